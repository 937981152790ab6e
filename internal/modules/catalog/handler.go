package catalog

import (
	"errors"
	"net/http"

	"gearrent/internal/logger"
	"gearrent/internal/pkg/response"
	"gearrent/internal/pkg/utils"
	"gearrent/internal/pkg/validator"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the catalog under rg. adminOnly guards deletion.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, adminOnly gin.HandlerFunc) {
	eq := rg.Group("/equipment")
	{
		eq.GET("", h.List)
		eq.POST("", h.Create)
		eq.GET("/:id", h.Get)
		eq.PUT("/:id", h.Update)
		eq.DELETE("/:id", adminOnly, h.Delete)
		eq.PATCH("/:id/maintenance", h.SetMaintenance)
		eq.PATCH("/:id/available", h.SetAvailable)
		eq.GET("/:id/rentals", h.RentalHistory)
	}
}

func (h *Handler) List(c *gin.Context) {
	limit, offset := utils.ParsePagination(c)
	items, total, err := h.service.List(c.Request.Context(), ListFilter{
		Category: c.Query("category"),
		Status:   c.Query("status"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, ListResponse{Items: items, Total: total, Limit: limit, Offset: offset})
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateEquipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", validator.Details(err))
		return
	}

	e, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, e)
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	e, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, e)
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req UpdateEquipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", validator.Details(err))
		return
	}

	e, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, e)
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

func (h *Handler) SetMaintenance(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	e, err := h.service.SetMaintenance(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, e)
}

func (h *Handler) SetAvailable(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	e, err := h.service.SetAvailable(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, e)
}

func (h *Handler) RentalHistory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	rentals, err := h.service.RentalHistory(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"items": rentals, "total": len(rentals)})
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid equipment data")
	case errors.Is(err, ErrNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Equipment not found")
	case errors.Is(err, ErrDuplicateCode):
		response.Error(c, http.StatusConflict, "DUPLICATE_CODE", "Equipment code already exists")
	case errors.Is(err, ErrEquipmentInUse):
		response.Error(c, http.StatusConflict, "EQUIPMENT_IN_USE", "Equipment has rental transactions")
	default:
		logger.ErrorContext(c.Request.Context(), "catalog request failed", "path", c.FullPath(), "error", err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}

func pathID(c *gin.Context) (int64, bool) {
	id, ok := utils.ParseID(c, "id")
	if !ok {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid equipment id")
	}
	return id, ok
}
