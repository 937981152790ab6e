package catalog

import (
	"context"

	"gearrent/internal/repository"

	"gorm.io/gorm"
)

type gormStore struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func reposFor(db *gorm.DB) Repos {
	return Repos{
		Equipment: repository.NewEquipmentRepository(db),
		Rentals:   repository.NewRentalRepository(db),
	}
}

func (s *gormStore) Repos() Repos { return reposFor(s.db) }

func (s *gormStore) InTx(ctx context.Context, fn func(r Repos) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(reposFor(tx))
	})
}
