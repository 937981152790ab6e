package catalog

import (
	"context"

	"gearrent/internal/domain"
	"gearrent/internal/repository"
)

type EquipmentRepository interface {
	Create(ctx context.Context, e *domain.Equipment) error
	GetByID(ctx context.Context, id int64) (*domain.Equipment, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.Equipment, error)
	List(ctx context.Context, f repository.EquipmentFilter) ([]domain.Equipment, int64, error)
	Update(ctx context.Context, e *domain.Equipment) error
	UpdateStatus(ctx context.Context, id int64, status domain.EquipmentStatus) error
	Delete(ctx context.Context, id int64) error
}

// RentalRepository is the slice of the ledger the catalog needs.
type RentalRepository interface {
	CountByEquipment(ctx context.Context, equipmentID int64) (int64, error)
	CountsByEquipment(ctx context.Context, ids []int64) (map[int64]int64, error)
	ListByEquipment(ctx context.Context, equipmentID int64) ([]domain.Rental, error)
	RepriceForEquipment(ctx context.Context, equipmentID int64, rate float64) (int, error)
}

type Repos struct {
	Equipment EquipmentRepository
	Rentals   RentalRepository
}

type Store interface {
	Repos() Repos
	// InTx runs fn with repositories bound to one database transaction.
	InTx(ctx context.Context, fn func(r Repos) error) error
}
