package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"gearrent/internal/database"
	"gearrent/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:repo_%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := database.Connect(dsn)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		_ = sqlDB.Close()
	})
	return db
}

func seedEquipment(t *testing.T, db *gorm.DB, code string, rate float64) *domain.Equipment {
	t.Helper()
	e := &domain.Equipment{
		Name:      "Item " + code,
		Code:      code,
		Category:  domain.CategoryCamera,
		DailyRate: rate,
		Status:    domain.EquipmentAvailable,
		Condition: domain.ConditionGood,
	}
	require.NoError(t, NewEquipmentRepository(db).Create(context.Background(), e))
	return e
}

func seedRental(t *testing.T, db *gorm.DB, equipmentID int64, from, to time.Time, rate float64) *domain.Rental {
	t.Helper()
	r := &domain.Rental{
		Name:          domain.RentalNamePlaceholder,
		CustomerName:  "Jane",
		EquipmentID:   equipmentID,
		RentalDate:    from,
		ReturnDate:    to,
		PaymentStatus: domain.PaymentPending,
		State:         domain.RentalDraft,
	}
	r.Recompute(rate)
	require.NoError(t, NewRentalRepository(db).Create(context.Background(), r))
	return r
}

func d(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func TestEquipmentRepository_CRUD(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEquipmentRepository(db)
	ctx := context.Background()

	e := seedEquipment(t, db, "CAM-1", 20)
	require.NotZero(t, e.ID)

	got, err := repo.GetByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "CAM-1", got.Code)

	require.NoError(t, repo.UpdateStatus(ctx, e.ID, domain.EquipmentMaintenance))
	got, err = repo.GetByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EquipmentMaintenance, got.Status)

	require.NoError(t, repo.Delete(ctx, e.ID))
	_, err = repo.GetByID(ctx, e.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, e.ID), ErrNotFound)
	assert.ErrorIs(t, repo.UpdateStatus(ctx, 999, domain.EquipmentRented), ErrNotFound)
}

func TestEquipmentRepository_DuplicateCode(t *testing.T) {
	db := setupTestDB(t)
	seedEquipment(t, db, "CAM-1", 20)

	err := NewEquipmentRepository(db).Create(context.Background(), &domain.Equipment{
		Name: "Other", Code: "CAM-1", Category: domain.CategoryLens,
		Status: domain.EquipmentAvailable, Condition: domain.ConditionNew,
	})
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
}

func TestEquipmentRepository_ListFilters(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEquipmentRepository(db)
	ctx := context.Background()

	seedEquipment(t, db, "A", 10)
	b := seedEquipment(t, db, "B", 10)
	seedEquipment(t, db, "C", 10)
	require.NoError(t, repo.UpdateStatus(ctx, b.ID, domain.EquipmentRented))

	items, total, err := repo.List(ctx, EquipmentFilter{Status: domain.EquipmentAvailable})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, items, 2)

	items, total, err = repo.List(ctx, EquipmentFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, items, 1)
	assert.Equal(t, "B", items[0].Code)

	items, _, err = repo.List(ctx, EquipmentFilter{Category: domain.CategoryAudio})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestRentalRepository_StateAndCounts(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRentalRepository(db)
	ctx := context.Background()

	e1 := seedEquipment(t, db, "E1", 20)
	e2 := seedEquipment(t, db, "E2", 30)
	r1 := seedRental(t, db, e1.ID, d(2024, 1, 1), d(2024, 1, 5), 20)
	seedRental(t, db, e1.ID, d(2024, 2, 1), d(2024, 2, 2), 20)

	require.NoError(t, repo.SetName(ctx, r1.ID, "RENT/00001"))

	ret := d(2024, 1, 4)
	require.NoError(t, repo.UpdateState(ctx, r1.ID, domain.RentalReturned, &ret))

	got, err := repo.GetByID(ctx, r1.ID)
	require.NoError(t, err)
	assert.Equal(t, "RENT/00001", got.Name)
	assert.Equal(t, domain.RentalReturned, got.State)
	require.NotNil(t, got.ActualReturnDate)
	assert.True(t, got.ActualReturnDate.Equal(ret))
	require.NotNil(t, got.Equipment)
	assert.Equal(t, "E1", got.Equipment.Code)

	counts, err := repo.CountsByEquipment(ctx, []int64{e1.ID, e2.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 2, counts[e1.ID])
	_, ok := counts[e2.ID]
	assert.False(t, ok)

	n, err := repo.CountByEquipment(ctx, e2.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	items, total, err := repo.List(ctx, RentalFilter{State: domain.RentalDraft})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, items, 1)
}

func TestRentalRepository_RepriceForEquipment(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRentalRepository(db)
	ctx := context.Background()

	e := seedEquipment(t, db, "E1", 20)
	r := seedRental(t, db, e.ID, d(2024, 1, 1), d(2024, 1, 5), 20)
	assert.Equal(t, 100.0, r.TotalAmount)

	n, err := repo.RepriceForEquipment(ctx, e.ID, 25)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := repo.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 25.0, got.DailyRate)
	assert.Equal(t, 125.0, got.TotalAmount)
	assert.Equal(t, 5, got.DurationDays)
}

func TestUserRepository_LoginBookkeeping(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	u := &domain.User{Email: "  Admin@Example.com ", PasswordHash: "x", Role: domain.RoleAdmin, Name: "Admin"}
	require.NoError(t, repo.Create(ctx, u))

	got, err := repo.GetByEmail(ctx, "ADMIN@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	past := time.Now().UTC().Add(-time.Minute)
	require.NoError(t, repo.RecordLoginFailure(ctx, u.ID, 5, &past))

	cleared, err := repo.ClearExpiredLocks(ctx, time.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 1, cleared)

	got, err = repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Zero(t, got.FailedLoginAttempts)
	assert.Nil(t, got.LockedUntil)

	_, err = repo.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}
