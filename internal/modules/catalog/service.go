package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gearrent/internal/domain"
	"gearrent/internal/logger"
	"gearrent/internal/repository"
)

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) Create(ctx context.Context, req CreateEquipmentRequest) (*domain.Equipment, error) {
	if req.DailyRate == nil {
		return nil, ErrValidation
	}
	purchased, err := parsePurchaseDate(req.PurchaseDate)
	if err != nil {
		return nil, err
	}
	e := &domain.Equipment{
		Name:          strings.TrimSpace(req.Name),
		Code:          strings.TrimSpace(req.Code),
		Category:      domain.EquipmentCategory(req.Category),
		Description:   req.Description,
		DailyRate:     *req.DailyRate,
		PurchasePrice: req.PurchasePrice,
		Status:        domain.EquipmentStatus(req.Status),
		Condition:     domain.EquipmentCondition(req.Condition),
		PurchaseDate:  purchased,
		ImageURL:      req.ImageURL,
	}
	if e.Status == "" {
		e.Status = domain.EquipmentAvailable
	}
	if e.Condition == "" {
		e.Condition = domain.ConditionGood
	}
	if err := validateEquipment(e); err != nil {
		return nil, err
	}

	if err := s.store.Repos().Equipment.Create(ctx, e); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrDuplicateCode
		}
		return nil, fmt.Errorf("create equipment: %w", err)
	}
	return e, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Equipment, error) {
	repos := s.store.Repos()
	e, err := repos.Equipment.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	n, err := repos.Rentals.CountByEquipment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("count rentals: %w", err)
	}
	e.RentalCount = n
	return e, nil
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]domain.Equipment, int64, error) {
	if f.Category != "" && !domain.EquipmentCategory(f.Category).Valid() {
		return nil, 0, ErrValidation
	}
	if f.Status != "" && !domain.EquipmentStatus(f.Status).Valid() {
		return nil, 0, ErrValidation
	}

	repos := s.store.Repos()
	items, total, err := repos.Equipment.List(ctx, repository.EquipmentFilter{
		Category: domain.EquipmentCategory(f.Category),
		Status:   domain.EquipmentStatus(f.Status),
		Limit:    f.Limit,
		Offset:   f.Offset,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list equipment: %w", err)
	}

	ids := make([]int64, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}
	counts, err := repos.Rentals.CountsByEquipment(ctx, ids)
	if err != nil {
		return nil, 0, fmt.Errorf("count rentals: %w", err)
	}
	for i := range items {
		items[i].RentalCount = counts[items[i].ID]
	}
	return items, total, nil
}

// Update applies a partial change. A daily_rate change re-prices every
// rental of the item in the same transaction.
func (s *Service) Update(ctx context.Context, id int64, req UpdateEquipmentRequest) (*domain.Equipment, error) {
	var out *domain.Equipment
	err := s.store.InTx(ctx, func(r Repos) error {
		e, err := r.Equipment.GetByIDForUpdate(ctx, id)
		if err != nil {
			return mapRepoErr(err)
		}
		oldRate := e.DailyRate

		if err := applyUpdate(e, req); err != nil {
			return err
		}
		if err := validateEquipment(e); err != nil {
			return err
		}

		if err := r.Equipment.Update(ctx, e); err != nil {
			if repository.IsUniqueViolation(err) {
				return ErrDuplicateCode
			}
			return fmt.Errorf("update equipment: %w", err)
		}

		if e.DailyRate != oldRate {
			n, err := r.Rentals.RepriceForEquipment(ctx, e.ID, e.DailyRate)
			if err != nil {
				return err
			}
			logger.Info("rentals repriced", "equipment_id", e.ID, "daily_rate", e.DailyRate, "rentals", n)
		}

		count, err := r.Rentals.CountByEquipment(ctx, e.ID)
		if err != nil {
			return err
		}
		e.RentalCount = count
		out = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes an item that no rental references.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.store.InTx(ctx, func(r Repos) error {
		if _, err := r.Equipment.GetByIDForUpdate(ctx, id); err != nil {
			return mapRepoErr(err)
		}
		n, err := r.Rentals.CountByEquipment(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrEquipmentInUse
		}
		return mapRepoErr(r.Equipment.Delete(ctx, id))
	})
}

func (s *Service) SetMaintenance(ctx context.Context, id int64) (*domain.Equipment, error) {
	return s.setStatus(ctx, id, domain.EquipmentMaintenance)
}

func (s *Service) SetAvailable(ctx context.Context, id int64) (*domain.Equipment, error) {
	return s.setStatus(ctx, id, domain.EquipmentAvailable)
}

func (s *Service) setStatus(ctx context.Context, id int64, status domain.EquipmentStatus) (*domain.Equipment, error) {
	if err := s.store.Repos().Equipment.UpdateStatus(ctx, id, status); err != nil {
		return nil, mapRepoErr(err)
	}
	return s.Get(ctx, id)
}

// RentalHistory lists every rental of the item, newest first.
func (s *Service) RentalHistory(ctx context.Context, id int64) ([]domain.Rental, error) {
	repos := s.store.Repos()
	if _, err := repos.Equipment.GetByID(ctx, id); err != nil {
		return nil, mapRepoErr(err)
	}
	rentals, err := repos.Rentals.ListByEquipment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list rentals: %w", err)
	}
	return rentals, nil
}

func applyUpdate(e *domain.Equipment, req UpdateEquipmentRequest) error {
	if req.Name != nil {
		e.Name = strings.TrimSpace(*req.Name)
	}
	if req.Code != nil {
		e.Code = strings.TrimSpace(*req.Code)
	}
	if req.Category != nil {
		e.Category = domain.EquipmentCategory(*req.Category)
	}
	if req.Description != nil {
		e.Description = *req.Description
	}
	if req.DailyRate != nil {
		e.DailyRate = *req.DailyRate
	}
	if req.PurchasePrice != nil {
		e.PurchasePrice = *req.PurchasePrice
	}
	if req.Status != nil {
		e.Status = domain.EquipmentStatus(*req.Status)
	}
	if req.Condition != nil {
		e.Condition = domain.EquipmentCondition(*req.Condition)
	}
	if req.PurchaseDate != nil {
		purchased, err := parsePurchaseDate(*req.PurchaseDate)
		if err != nil {
			return err
		}
		e.PurchaseDate = purchased
	}
	if req.ImageURL != nil {
		e.ImageURL = *req.ImageURL
	}
	return nil
}

func validateEquipment(e *domain.Equipment) error {
	switch {
	case e.Name == "", e.Code == "":
		return ErrValidation
	case !e.Category.Valid(), !e.Status.Valid(), !e.Condition.Valid():
		return ErrValidation
	case e.DailyRate < 0, e.PurchasePrice < 0:
		return ErrValidation
	}
	return nil
}

// parsePurchaseDate reads a DateLayout day; an empty string means no date.
func parsePurchaseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := domain.ParseDate(s)
	if err != nil {
		return nil, ErrValidation
	}
	return &t, nil
}

func mapRepoErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
