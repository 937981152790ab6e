package rental

import (
	"context"
	"errors"
	"net/http"

	"gearrent/internal/domain"
	"gearrent/internal/idempotency"
	"gearrent/internal/logger"
	"gearrent/internal/pkg/response"
	"gearrent/internal/pkg/utils"
	"gearrent/internal/pkg/validator"

	"github.com/gin-gonic/gin"
)

const IdempotencyHeader = "Idempotency-Key"

type Handler struct {
	service *Service
	idem    idempotency.Store
}

// NewHandler builds the ledger handler. A nil store disables Idempotency-Key handling.
func NewHandler(service *Service, idem idempotency.Store) *Handler {
	return &Handler{service: service, idem: idem}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, adminOnly gin.HandlerFunc) {
	rentals := rg.Group("/rentals")
	{
		rentals.GET("", h.List)
		rentals.POST("", h.Create)
		rentals.GET("/:id", h.Get)
		rentals.PUT("/:id", h.Update)
		rentals.DELETE("/:id", adminOnly, h.Delete)
		rentals.PATCH("/:id/confirm", h.action(h.service.Confirm))
		rentals.PATCH("/:id/start", h.action(h.service.Start))
		rentals.PATCH("/:id/return", h.action(h.service.Return))
		rentals.PATCH("/:id/cancel", h.action(h.service.Cancel))
	}
}

func (h *Handler) List(c *gin.Context) {
	limit, offset := utils.ParsePagination(c)
	items, total, err := h.service.List(c.Request.Context(), ListFilter{
		State:         c.Query("state"),
		EquipmentID:   utils.ParseOptionalInt64(c, "equipment_id"),
		PaymentStatus: c.Query("payment_status"),
		Limit:         limit,
		Offset:        offset,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, ListResponse{Items: items, Total: total, Limit: limit, Offset: offset})
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateRentalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", validator.Details(err))
		return
	}
	ctx := c.Request.Context()

	key := c.GetHeader(IdempotencyHeader)
	if key == "" || h.idem == nil {
		h.create(c, req)
		return
	}

	existingID, reserved, err := h.idem.Reserve(ctx, key)
	switch {
	case errors.Is(err, idempotency.ErrInProgress):
		response.Error(c, http.StatusConflict, "IDEMPOTENCY_CONFLICT", "A request with this Idempotency-Key is still in progress")
		return
	case err != nil:
		logger.WarnContext(ctx, "idempotency store unavailable", "error", err)
		h.create(c, req)
		return
	case !reserved:
		r, err := h.service.Get(ctx, existingID)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.Header("Idempotent-Replayed", "true")
		response.Success(c, http.StatusOK, r)
		return
	}

	r := h.create(c, req)
	if r == nil {
		if err := h.idem.Release(context.WithoutCancel(ctx), key); err != nil {
			logger.WarnContext(ctx, "idempotency release failed", "error", err)
		}
		return
	}
	if err := h.idem.Complete(context.WithoutCancel(ctx), key, r.ID); err != nil {
		logger.WarnContext(ctx, "idempotency complete failed", "rental_id", r.ID, "error", err)
	}
}

func (h *Handler) create(c *gin.Context, req CreateRentalRequest) *domain.Rental {
	r, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return nil
	}
	response.Success(c, http.StatusCreated, r)
	return r
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	r, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, r)
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req UpdateRentalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", validator.Details(err))
		return
	}
	r, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, r)
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	response.Deleted(c, id)
}

func (h *Handler) action(fn func(ctx context.Context, id int64) (*domain.Rental, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		r, err := fn(c.Request.Context(), id)
		if err != nil {
			h.fail(c, err)
			return
		}
		response.Success(c, http.StatusOK, r)
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid rental data")
	case errors.Is(err, ErrNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Rental not found")
	case errors.Is(err, ErrEquipmentNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Equipment not found")
	case errors.Is(err, ErrInvalidStatusTransition):
		response.Error(c, http.StatusConflict, "INVALID_STATUS_TRANSITION", err.Error())
	default:
		logger.ErrorContext(c.Request.Context(), "rental request failed", "path", c.FullPath(), "error", err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}

func pathID(c *gin.Context) (int64, bool) {
	id, ok := utils.ParseID(c, "id")
	if !ok {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid rental id")
	}
	return id, ok
}
