package rental

import (
	"context"
	"time"

	"gearrent/internal/domain"
	"gearrent/internal/repository"
)

type RentalRepository interface {
	Create(ctx context.Context, r *domain.Rental) error
	SetName(ctx context.Context, id int64, name string) error
	GetByID(ctx context.Context, id int64) (*domain.Rental, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.Rental, error)
	List(ctx context.Context, f repository.RentalFilter) ([]domain.Rental, int64, error)
	Update(ctx context.Context, r *domain.Rental) error
	UpdateState(ctx context.Context, id int64, state domain.RentalState, actualReturn *time.Time) error
	Delete(ctx context.Context, id int64) error
}

type EquipmentRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Equipment, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.Equipment, error)
	UpdateStatus(ctx context.Context, id int64, status domain.EquipmentStatus) error
}

type Repos struct {
	Rentals   RentalRepository
	Equipment EquipmentRepository
}

type Store interface {
	Repos() Repos
	InTx(ctx context.Context, fn func(r Repos) error) error
}
