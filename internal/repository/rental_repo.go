package repository

import (
	"context"
	"fmt"
	"time"

	"gearrent/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RentalRepository struct {
	db *gorm.DB
}

func NewRentalRepository(db *gorm.DB) *RentalRepository {
	return &RentalRepository{db: db}
}

type RentalFilter struct {
	State         domain.RentalState
	EquipmentID   int64
	PaymentStatus domain.PaymentStatus
	Limit         int
	Offset        int
}

func (r *RentalRepository) Create(ctx context.Context, rt *domain.Rental) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(rt).Error
}

// SetName stores the reference assigned after the row got its id.
func (r *RentalRepository) SetName(ctx context.Context, id int64, name string) error {
	return r.db.WithContext(ctx).
		Model(&domain.Rental{}).
		Where("id = ?", id).
		Update("name", name).Error
}

func (r *RentalRepository) GetByID(ctx context.Context, id int64) (*domain.Rental, error) {
	var rt domain.Rental
	if err := r.db.WithContext(ctx).Preload("Equipment").First(&rt, id).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return &rt, nil
}

func (r *RentalRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Rental, error) {
	var rt domain.Rental
	if err := forUpdate(r.db.WithContext(ctx)).First(&rt, id).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return &rt, nil
}

func (r *RentalRepository) List(ctx context.Context, f RentalFilter) ([]domain.Rental, int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.Rental{})
	if f.State != "" {
		q = q.Where("state = ?", f.State)
	}
	if f.EquipmentID > 0 {
		q = q.Where("equipment_id = ?", f.EquipmentID)
	}
	if f.PaymentStatus != "" {
		q = q.Where("payment_status = ?", f.PaymentStatus)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []domain.Rental
	err := page(q, f.Limit, f.Offset).
		Preload("Equipment").
		Order("rental_date DESC, id DESC").
		Find(&items).Error
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *RentalRepository) ListByEquipment(ctx context.Context, equipmentID int64) ([]domain.Rental, error) {
	var items []domain.Rental
	err := r.db.WithContext(ctx).
		Where("equipment_id = ?", equipmentID).
		Order("rental_date DESC, id DESC").
		Find(&items).Error
	return items, err
}

func (r *RentalRepository) Update(ctx context.Context, rt *domain.Rental) error {
	tx := r.db.WithContext(ctx).Omit(clause.Associations).Save(rt)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateState moves the rental to state; actualReturn is written only when set.
func (r *RentalRepository) UpdateState(ctx context.Context, id int64, state domain.RentalState, actualReturn *time.Time) error {
	updates := map[string]any{"state": state}
	if actualReturn != nil {
		updates["actual_return_date"] = *actualReturn
	}
	tx := r.db.WithContext(ctx).
		Model(&domain.Rental{}).
		Where("id = ?", id).
		Updates(updates)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RentalRepository) Delete(ctx context.Context, id int64) error {
	tx := r.db.WithContext(ctx).Delete(&domain.Rental{}, id)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RentalRepository) CountByEquipment(ctx context.Context, equipmentID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&domain.Rental{}).
		Where("equipment_id = ?", equipmentID).
		Count(&n).Error
	return n, err
}

// CountsByEquipment returns rental counts keyed by equipment id. Ids with no
// rentals are absent from the map.
func (r *RentalRepository) CountsByEquipment(ctx context.Context, ids []int64) (map[int64]int64, error) {
	out := make(map[int64]int64, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var rows []struct {
		EquipmentID int64
		N           int64
	}
	err := r.db.WithContext(ctx).
		Model(&domain.Rental{}).
		Select("equipment_id, COUNT(*) AS n").
		Where("equipment_id IN ?", ids).
		Group("equipment_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.EquipmentID] = row.N
	}
	return out, nil
}

// RepriceForEquipment copies rate onto every rental of the equipment and
// recomputes their totals. Returns how many rentals changed.
func (r *RentalRepository) RepriceForEquipment(ctx context.Context, equipmentID int64, rate float64) (int, error) {
	rentals, err := r.ListByEquipment(ctx, equipmentID)
	if err != nil {
		return 0, err
	}
	for i := range rentals {
		rt := &rentals[i]
		rt.Recompute(rate)
		err := r.db.WithContext(ctx).
			Model(&domain.Rental{}).
			Where("id = ?", rt.ID).
			Updates(map[string]any{
				"daily_rate":    rt.DailyRate,
				"duration_days": rt.DurationDays,
				"total_amount":  rt.TotalAmount,
			}).Error
		if err != nil {
			return i, fmt.Errorf("reprice rental %d: %w", rt.ID, err)
		}
	}
	return len(rentals), nil
}
