package repository

import (
	"context"

	"gearrent/internal/domain"

	"gorm.io/gorm"
)

type EquipmentRepository struct {
	db *gorm.DB
}

func NewEquipmentRepository(db *gorm.DB) *EquipmentRepository {
	return &EquipmentRepository{db: db}
}

type EquipmentFilter struct {
	Category domain.EquipmentCategory
	Status   domain.EquipmentStatus
	Limit    int
	Offset   int
}

func (r *EquipmentRepository) Create(ctx context.Context, e *domain.Equipment) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *EquipmentRepository) GetByID(ctx context.Context, id int64) (*domain.Equipment, error) {
	var e domain.Equipment
	if err := r.db.WithContext(ctx).First(&e, id).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return &e, nil
}

// GetByIDForUpdate loads the row and locks it until the surrounding
// transaction ends.
func (r *EquipmentRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Equipment, error) {
	var e domain.Equipment
	if err := forUpdate(r.db.WithContext(ctx)).First(&e, id).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return &e, nil
}

func (r *EquipmentRepository) List(ctx context.Context, f EquipmentFilter) ([]domain.Equipment, int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.Equipment{})
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []domain.Equipment
	if err := page(q, f.Limit, f.Offset).Order("id ASC").Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *EquipmentRepository) Update(ctx context.Context, e *domain.Equipment) error {
	tx := r.db.WithContext(ctx).Save(e)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *EquipmentRepository) UpdateStatus(ctx context.Context, id int64, status domain.EquipmentStatus) error {
	tx := r.db.WithContext(ctx).
		Model(&domain.Equipment{}).
		Where("id = ?", id).
		Update("status", status)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *EquipmentRepository) Delete(ctx context.Context, id int64) error {
	tx := r.db.WithContext(ctx).Delete(&domain.Equipment{}, id)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
