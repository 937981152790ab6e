package rental

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"gearrent/internal/database"
	"gearrent/internal/domain"
	"gearrent/internal/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupLedger(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:ledger_%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := database.Connect(dsn)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		_ = sqlDB.Close()
	})
	return db
}

func seedCamera(t *testing.T, db *gorm.DB, rate float64) *domain.Equipment {
	t.Helper()
	e := &domain.Equipment{Name: "Canon R5", Code: "CAM-" + fmt.Sprint(time.Now().UnixNano()),
		Category: domain.CategoryCamera, DailyRate: rate,
		Status: domain.EquipmentAvailable, Condition: domain.ConditionGood}
	require.NoError(t, db.Create(e).Error)
	return e
}

type capturePublisher struct {
	got []events.RentalEvent
}

func (c *capturePublisher) Publish(_ context.Context, ev events.RentalEvent) error {
	c.got = append(c.got, ev)
	return nil
}

func equipmentStatus(t *testing.T, db *gorm.DB, id int64) domain.EquipmentStatus {
	t.Helper()
	var e domain.Equipment
	require.NoError(t, db.First(&e, id).Error)
	return e.Status
}

func TestLedger_Lifecycle(t *testing.T) {
	db := setupLedger(t)
	pub := &capturePublisher{}
	svc := NewService(NewStore(db), pub, Options{Now: func() time.Time { return fixedNow }})
	ctx := context.Background()
	cam := seedCamera(t, db, 20)

	r, err := svc.Create(ctx, CreateRentalRequest{
		CustomerName: "Jane", EquipmentID: cam.ID, RentalDate: "2024-01-01", ReturnDate: "2024-01-05",
	})
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("RENT/%05d", r.ID), r.Name)
	assert.Equal(t, 5, r.DurationDays)
	assert.Equal(t, 100.0, r.TotalAmount)
	require.NotNil(t, r.Equipment)

	r, err = svc.Confirm(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RentalConfirmed, r.State)
	assert.Equal(t, domain.EquipmentRented, equipmentStatus(t, db, cam.ID))

	r, err = svc.Start(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RentalOngoing, r.State)
	assert.Equal(t, domain.EquipmentRented, equipmentStatus(t, db, cam.ID))

	r, err = svc.Return(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RentalReturned, r.State)
	require.NotNil(t, r.ActualReturnDate)
	assert.Equal(t, "2024-03-10", r.ActualReturnDate.Format(DateLayout))
	assert.Equal(t, domain.EquipmentAvailable, equipmentStatus(t, db, cam.ID))

	require.Len(t, pub.got, 4)
	assert.Equal(t, events.EventRentalReturned, pub.got[3].EventType)
	assert.Equal(t, "ongoing", pub.got[3].FromState)
}

func TestLedger_CancelFromEveryNonTerminalState(t *testing.T) {
	db := setupLedger(t)
	svc := NewService(NewStore(db), nil, Options{})
	ctx := context.Background()

	prepare := map[domain.RentalState][]func(context.Context, int64) (*domain.Rental, error){
		domain.RentalDraft:     nil,
		domain.RentalConfirmed: {svc.Confirm},
		domain.RentalOngoing:   {svc.Confirm, svc.Start},
	}
	for state, steps := range prepare {
		t.Run(string(state), func(t *testing.T) {
			cam := seedCamera(t, db, 10)
			r, err := svc.Create(ctx, CreateRentalRequest{
				CustomerName: "Bob", EquipmentID: cam.ID, RentalDate: "2024-02-01", ReturnDate: "2024-02-03",
			})
			require.NoError(t, err)
			for _, step := range steps {
				_, err := step(ctx, r.ID)
				require.NoError(t, err)
			}

			r, err = svc.Cancel(ctx, r.ID)
			require.NoError(t, err)
			assert.Equal(t, domain.RentalCancelled, r.State)
			assert.Equal(t, domain.EquipmentAvailable, equipmentStatus(t, db, cam.ID))
		})
	}
}

func TestLedger_StrictModeChangesNothing(t *testing.T) {
	db := setupLedger(t)
	svc := NewService(NewStore(db), nil, Options{Strict: true})
	ctx := context.Background()
	cam := seedCamera(t, db, 10)

	r, err := svc.Create(ctx, CreateRentalRequest{
		CustomerName: "Bob", EquipmentID: cam.ID, RentalDate: "2024-02-01", ReturnDate: "2024-02-03",
	})
	require.NoError(t, err)

	_, err = svc.Return(ctx, r.ID)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)

	got, err := svc.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RentalDraft, got.State)
	assert.Nil(t, got.ActualReturnDate)
}

// failingEquipment wraps the tx-bound equipment repository and fails status writes.
type failingEquipment struct {
	EquipmentRepository
}

func (failingEquipment) UpdateStatus(context.Context, int64, domain.EquipmentStatus) error {
	return errors.New("equipment write failed")
}

type failingStore struct {
	db *gorm.DB
}

func (s failingStore) Repos() Repos { return reposFor(s.db) }

func (s failingStore) InTx(ctx context.Context, fn func(r Repos) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := reposFor(tx)
		r.Equipment = failingEquipment{r.Equipment}
		return fn(r)
	})
}

func TestLedger_PairedWriteIsAtomic(t *testing.T) {
	db := setupLedger(t)
	ctx := context.Background()
	cam := seedCamera(t, db, 10)

	good := NewService(NewStore(db), nil, Options{})
	r, err := good.Create(ctx, CreateRentalRequest{
		CustomerName: "Bob", EquipmentID: cam.ID, RentalDate: "2024-02-01", ReturnDate: "2024-02-03",
	})
	require.NoError(t, err)

	broken := NewService(failingStore{db: db}, nil, Options{})
	_, err = broken.Confirm(ctx, r.ID)
	require.Error(t, err)

	got, err := good.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RentalDraft, got.State)
	assert.Equal(t, domain.EquipmentAvailable, equipmentStatus(t, db, cam.ID))
}

func TestLedger_UpdateDatesRecomputes(t *testing.T) {
	db := setupLedger(t)
	svc := NewService(NewStore(db), nil, Options{})
	ctx := context.Background()
	cam := seedCamera(t, db, 12.5)

	r, err := svc.Create(ctx, CreateRentalRequest{
		CustomerName: "Bob", EquipmentID: cam.ID, RentalDate: "2024-02-01", ReturnDate: "2024-02-01",
	})
	require.NoError(t, err)
	assert.Equal(t, 12.5, r.TotalAmount)

	ret := "2024-02-10"
	r, err = svc.Update(ctx, r.ID, UpdateRentalRequest{ReturnDate: &ret})
	require.NoError(t, err)
	assert.Equal(t, 10, r.DurationDays)
	assert.Equal(t, 125.0, r.TotalAmount)

	bad := "2024-01-01"
	_, err = svc.Update(ctx, r.ID, UpdateRentalRequest{ReturnDate: &bad})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestLedger_Delete(t *testing.T) {
	db := setupLedger(t)
	svc := NewService(NewStore(db), events.Nop{}, Options{Now: func() time.Time { return fixedNow }})
	ctx := context.Background()
	cam := seedCamera(t, db, 10)

	r, err := svc.Create(ctx, CreateRentalRequest{CustomerName: "Jane", EquipmentID: cam.ID, ReturnDate: "2024-03-12"})
	require.NoError(t, err)
	assert.Equal(t, 3, r.DurationDays)

	require.NoError(t, svc.Delete(ctx, r.ID))

	_, err = svc.Get(ctx, r.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, r.ID), ErrNotFound)
}
