package rental

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gearrent/internal/domain"
	"gearrent/internal/events"
	"gearrent/internal/logger"
	"gearrent/internal/repository"
)

type Options struct {
	// Strict rejects transitions outside the draft → confirmed → ongoing → returned path.
	Strict     bool
	NamePrefix string
	Now        func() time.Time
}

type Service struct {
	store     Store
	publisher events.Publisher
	strict    bool
	prefix    string
	now       func() time.Time
}

func NewService(store Store, publisher events.Publisher, opts Options) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NamePrefix == "" {
		opts.NamePrefix = "RENT/"
	}
	return &Service{
		store:     store,
		publisher: publisher,
		strict:    opts.Strict,
		prefix:    opts.NamePrefix,
		now:       opts.Now,
	}
}

func (s *Service) today() time.Time {
	return domain.DateOnly(s.now().UTC())
}

// ReferenceFor formats the sequential rental name for id.
func (s *Service) ReferenceFor(id int64) string {
	return fmt.Sprintf("%s%05d", s.prefix, id)
}

func (s *Service) Create(ctx context.Context, req CreateRentalRequest) (*domain.Rental, error) {
	rentalDate := s.today()
	if req.RentalDate != "" {
		d, err := parseDate(req.RentalDate)
		if err != nil {
			return nil, err
		}
		rentalDate = d
	}
	returnDate, err := parseDate(req.ReturnDate)
	if err != nil {
		return nil, err
	}

	r := &domain.Rental{
		Name:          strings.TrimSpace(req.Name),
		CustomerName:  strings.TrimSpace(req.CustomerName),
		CustomerPhone: req.CustomerPhone,
		CustomerEmail: req.CustomerEmail,
		EquipmentID:   req.EquipmentID,
		RentalDate:    rentalDate,
		ReturnDate:    returnDate,
		Deposit:       req.Deposit,
		PaymentStatus: domain.PaymentStatus(req.PaymentStatus),
		State:         domain.RentalDraft,
		Notes:         req.Notes,
	}
	if r.PaymentStatus == "" {
		r.PaymentStatus = domain.PaymentPending
	}
	if r.Name == "" {
		r.Name = domain.RentalNamePlaceholder
	}
	if err := validateRental(r); err != nil {
		return nil, err
	}

	err = s.store.InTx(ctx, func(repos Repos) error {
		eq, err := repos.Equipment.GetByID(ctx, r.EquipmentID)
		if err != nil {
			return mapEquipmentErr(err)
		}
		r.Recompute(eq.DailyRate)

		if err := repos.Rentals.Create(ctx, r); err != nil {
			return fmt.Errorf("create rental: %w", err)
		}
		if r.Name == domain.RentalNamePlaceholder {
			r.Name = s.ReferenceFor(r.ID)
			if err := repos.Rentals.SetName(ctx, r.ID, r.Name); err != nil {
				return fmt.Errorf("assign rental name: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventRentalCreated, r, "", "")
	return s.Get(ctx, r.ID)
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Rental, error) {
	r, err := s.store.Repos().Rentals.GetByID(ctx, id)
	if err != nil {
		return nil, mapRentalErr(err)
	}
	return r, nil
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]domain.Rental, int64, error) {
	if f.State != "" && !domain.RentalState(f.State).Valid() {
		return nil, 0, ErrValidation
	}
	if f.PaymentStatus != "" && !domain.PaymentStatus(f.PaymentStatus).Valid() {
		return nil, 0, ErrValidation
	}

	items, total, err := s.store.Repos().Rentals.List(ctx, repository.RentalFilter{
		State:         domain.RentalState(f.State),
		EquipmentID:   f.EquipmentID,
		PaymentStatus: domain.PaymentStatus(f.PaymentStatus),
		Limit:         f.Limit,
		Offset:        f.Offset,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list rentals: %w", err)
	}
	return items, total, nil
}

// Update applies a partial change and recomputes duration and total.
// Switching equipment picks up the new item's daily rate.
func (s *Service) Update(ctx context.Context, id int64, req UpdateRentalRequest) (*domain.Rental, error) {
	err := s.store.InTx(ctx, func(repos Repos) error {
		r, err := repos.Rentals.GetByIDForUpdate(ctx, id)
		if err != nil {
			return mapRentalErr(err)
		}

		rate := r.DailyRate
		if req.EquipmentID != nil && *req.EquipmentID != r.EquipmentID {
			eq, err := repos.Equipment.GetByID(ctx, *req.EquipmentID)
			if err != nil {
				return mapEquipmentErr(err)
			}
			r.EquipmentID = eq.ID
			rate = eq.DailyRate
		}
		if err := applyUpdate(r, req); err != nil {
			return err
		}
		if err := validateRental(r); err != nil {
			return err
		}

		r.Recompute(rate)
		r.Equipment = nil
		if err := repos.Rentals.Update(ctx, r); err != nil {
			return fmt.Errorf("update rental: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return mapRentalErr(s.store.Repos().Rentals.Delete(ctx, id))
}

func (s *Service) Confirm(ctx context.Context, id int64) (*domain.Rental, error) {
	return s.transition(ctx, id, ActionConfirm)
}

func (s *Service) Start(ctx context.Context, id int64) (*domain.Rental, error) {
	return s.transition(ctx, id, ActionStart)
}

func (s *Service) Return(ctx context.Context, id int64) (*domain.Rental, error) {
	return s.transition(ctx, id, ActionReturn)
}

func (s *Service) Cancel(ctx context.Context, id int64) (*domain.Rental, error) {
	return s.transition(ctx, id, ActionCancel)
}

// transition writes the rental state and the paired equipment status in one
// transaction, then publishes the event.
func (s *Service) transition(ctx context.Context, id int64, action Action) (*domain.Rental, error) {
	eff, ok := effects[action]
	if !ok {
		return nil, fmt.Errorf("unknown action %q", action)
	}

	var (
		snapshot domain.Rental
		from     domain.RentalState
	)
	err := s.store.InTx(ctx, func(repos Repos) error {
		r, err := repos.Rentals.GetByIDForUpdate(ctx, id)
		if err != nil {
			return mapRentalErr(err)
		}
		from = r.State

		if s.strict && !CanTransition(from, eff.to) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, from, eff.to)
		}

		var actualReturn *time.Time
		if action == ActionReturn {
			today := s.today()
			actualReturn = &today
		}
		if err := repos.Rentals.UpdateState(ctx, r.ID, eff.to, actualReturn); err != nil {
			return fmt.Errorf("update rental state: %w", err)
		}

		if eff.equipment != "" {
			if _, err := repos.Equipment.GetByIDForUpdate(ctx, r.EquipmentID); err != nil {
				return mapEquipmentErr(err)
			}
			if err := repos.Equipment.UpdateStatus(ctx, r.EquipmentID, eff.equipment); err != nil {
				return fmt.Errorf("update equipment status: %w", err)
			}
		}

		snapshot = *r
		return nil
	})
	if err != nil {
		return nil, err
	}

	snapshot.State = eff.to
	logger.InfoContext(ctx, "rental transition",
		"rental_id", id, "action", action, "from", from, "to", eff.to)
	s.publish(ctx, eff.eventType, &snapshot, from, eff.equipment)

	return s.Get(ctx, id)
}

func (s *Service) publish(ctx context.Context, eventType string, r *domain.Rental, from domain.RentalState, eqStatus domain.EquipmentStatus) {
	ev := events.NewRentalEvent(eventType, s.now())
	ev.RentalID = r.ID
	ev.RentalName = r.Name
	ev.EquipmentID = r.EquipmentID
	ev.FromState = string(from)
	ev.ToState = string(r.State)
	ev.EquipmentStatus = string(eqStatus)

	if err := s.publisher.Publish(ctx, ev); err != nil {
		logger.WarnContext(ctx, "rental event publish failed",
			"rental_id", r.ID, "event_type", eventType, "error", err)
	}
}

func applyUpdate(r *domain.Rental, req UpdateRentalRequest) error {
	if req.CustomerName != nil {
		r.CustomerName = strings.TrimSpace(*req.CustomerName)
	}
	if req.CustomerPhone != nil {
		r.CustomerPhone = *req.CustomerPhone
	}
	if req.CustomerEmail != nil {
		r.CustomerEmail = *req.CustomerEmail
	}
	if req.RentalDate != nil {
		d, err := parseDate(*req.RentalDate)
		if err != nil {
			return err
		}
		r.RentalDate = d
	}
	if req.ReturnDate != nil {
		d, err := parseDate(*req.ReturnDate)
		if err != nil {
			return err
		}
		r.ReturnDate = d
	}
	if req.Deposit != nil {
		r.Deposit = *req.Deposit
	}
	if req.PaymentStatus != nil {
		r.PaymentStatus = domain.PaymentStatus(*req.PaymentStatus)
	}
	if req.Notes != nil {
		r.Notes = *req.Notes
	}
	return nil
}

func validateRental(r *domain.Rental) error {
	switch {
	case r.CustomerName == "":
		return ErrValidation
	case r.EquipmentID <= 0:
		return ErrValidation
	case r.ReturnDate.IsZero(), r.RentalDate.After(r.ReturnDate):
		return ErrValidation
	case r.Deposit < 0:
		return ErrValidation
	case !r.PaymentStatus.Valid():
		return ErrValidation
	}
	return nil
}

func mapRentalErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func mapEquipmentErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrEquipmentNotFound
	}
	return err
}
