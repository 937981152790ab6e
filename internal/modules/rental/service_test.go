package rental

import (
	"context"
	"errors"
	"testing"
	"time"

	"gearrent/internal/domain"
	"gearrent/internal/events"
	"gearrent/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRentalRepository struct {
	mock.Mock
}

func (m *MockRentalRepository) Create(ctx context.Context, r *domain.Rental) error {
	args := m.Called(ctx, r)
	if args.Error(0) == nil {
		r.ID = 12
	}
	return args.Error(0)
}

func (m *MockRentalRepository) SetName(ctx context.Context, id int64, name string) error {
	return m.Called(ctx, id, name).Error(0)
}

func (m *MockRentalRepository) GetByID(ctx context.Context, id int64) (*domain.Rental, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Rental), args.Error(1)
}

func (m *MockRentalRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Rental, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Rental), args.Error(1)
}

func (m *MockRentalRepository) List(ctx context.Context, f repository.RentalFilter) ([]domain.Rental, int64, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]domain.Rental), args.Get(1).(int64), args.Error(2)
}

func (m *MockRentalRepository) Update(ctx context.Context, r *domain.Rental) error {
	return m.Called(ctx, r).Error(0)
}

func (m *MockRentalRepository) UpdateState(ctx context.Context, id int64, state domain.RentalState, actualReturn *time.Time) error {
	return m.Called(ctx, id, state, actualReturn).Error(0)
}

func (m *MockRentalRepository) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type MockEquipmentRepository struct {
	mock.Mock
}

func (m *MockEquipmentRepository) GetByID(ctx context.Context, id int64) (*domain.Equipment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Equipment), args.Error(1)
}

func (m *MockEquipmentRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Equipment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Equipment), args.Error(1)
}

func (m *MockEquipmentRepository) UpdateStatus(ctx context.Context, id int64, status domain.EquipmentStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, ev events.RentalEvent) error {
	return m.Called(ctx, ev).Error(0)
}

type mockStore struct {
	repos Repos
}

func (s *mockStore) Repos() Repos { return s.repos }

func (s *mockStore) InTx(_ context.Context, fn func(r Repos) error) error {
	return fn(s.repos)
}

var fixedNow = time.Date(2024, 3, 10, 15, 4, 5, 0, time.UTC)

type fixture struct {
	svc  *Service
	rent *MockRentalRepository
	eq   *MockEquipmentRepository
	pub  *MockPublisher
}

func newFixture(strict bool) fixture {
	f := fixture{
		rent: new(MockRentalRepository),
		eq:   new(MockEquipmentRepository),
		pub:  new(MockPublisher),
	}
	f.svc = NewService(
		&mockStore{repos: Repos{Rentals: f.rent, Equipment: f.eq}},
		f.pub,
		Options{Strict: strict, NamePrefix: "RENT/", Now: func() time.Time { return fixedNow }},
	)
	return f
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestService_Create_AssignsNameAndTotals(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()

	f.eq.On("GetByID", ctx, int64(3)).Return(&domain.Equipment{ID: 3, DailyRate: 20}, nil)
	f.rent.On("Create", ctx, mock.AnythingOfType("*domain.Rental")).Return(nil)
	f.rent.On("SetName", ctx, int64(12), "RENT/00012").Return(nil)
	f.pub.On("Publish", ctx, mock.MatchedBy(func(ev events.RentalEvent) bool {
		return ev.EventType == events.EventRentalCreated && ev.RentalName == "RENT/00012" && ev.ToState == "draft"
	})).Return(nil)
	f.rent.On("GetByID", ctx, int64(12)).Return(&domain.Rental{ID: 12, Name: "RENT/00012"}, nil)

	_, err := f.svc.Create(ctx, CreateRentalRequest{
		CustomerName: "Jane",
		EquipmentID:  3,
		RentalDate:   "2024-01-01",
		ReturnDate:   "2024-01-05",
	})
	require.NoError(t, err)

	created := f.rent.Calls[0].Arguments.Get(1).(*domain.Rental)
	assert.Equal(t, 5, created.DurationDays)
	assert.Equal(t, 20.0, created.DailyRate)
	assert.Equal(t, 100.0, created.TotalAmount)
	assert.Equal(t, domain.RentalDraft, created.State)
	assert.Equal(t, domain.PaymentPending, created.PaymentStatus)
	f.pub.AssertExpectations(t)
}

func TestService_Create_KeepsExplicitName(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()

	f.eq.On("GetByID", ctx, int64(3)).Return(&domain.Equipment{ID: 3, DailyRate: 10}, nil)
	f.rent.On("Create", ctx, mock.Anything).Return(nil)
	f.pub.On("Publish", ctx, mock.Anything).Return(nil)
	f.rent.On("GetByID", ctx, int64(12)).Return(&domain.Rental{ID: 12, Name: "WALK-IN"}, nil)

	_, err := f.svc.Create(ctx, CreateRentalRequest{
		Name: "WALK-IN", CustomerName: "Jane", EquipmentID: 3, ReturnDate: "2024-03-12",
	})
	require.NoError(t, err)

	f.rent.AssertNotCalled(t, "SetName", mock.Anything, mock.Anything, mock.Anything)
	created := f.rent.Calls[0].Arguments.Get(1).(*domain.Rental)
	assert.True(t, created.RentalDate.Equal(day(2024, 3, 10)), "rental date defaults to today")
	assert.Equal(t, 3, created.DurationDays)
}

func TestService_Create_RejectsInvertedDates(t *testing.T) {
	f := newFixture(false)

	_, err := f.svc.Create(context.Background(), CreateRentalRequest{
		CustomerName: "Jane", EquipmentID: 3, RentalDate: "2024-01-05", ReturnDate: "2024-01-01",
	})
	assert.ErrorIs(t, err, ErrValidation)
	f.rent.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestService_Create_BadDateFormat(t *testing.T) {
	f := newFixture(false)

	_, err := f.svc.Create(context.Background(), CreateRentalRequest{
		CustomerName: "Jane", EquipmentID: 3, ReturnDate: "05/01/2024",
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestService_Create_UnknownEquipment(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()

	f.eq.On("GetByID", ctx, int64(99)).Return(nil, repository.ErrNotFound)

	_, err := f.svc.Create(ctx, CreateRentalRequest{
		CustomerName: "Jane", EquipmentID: 99, RentalDate: "2024-01-01", ReturnDate: "2024-01-02",
	})
	assert.ErrorIs(t, err, ErrEquipmentNotFound)
}

func TestService_Confirm_SetsEquipmentRented(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()

	r := &domain.Rental{ID: 1, Name: "RENT/00001", EquipmentID: 3, State: domain.RentalDraft}
	f.rent.On("GetByIDForUpdate", ctx, int64(1)).Return(r, nil)
	f.rent.On("UpdateState", ctx, int64(1), domain.RentalConfirmed, (*time.Time)(nil)).Return(nil)
	f.eq.On("GetByIDForUpdate", ctx, int64(3)).Return(&domain.Equipment{ID: 3}, nil)
	f.eq.On("UpdateStatus", ctx, int64(3), domain.EquipmentRented).Return(nil)
	f.pub.On("Publish", ctx, mock.MatchedBy(func(ev events.RentalEvent) bool {
		return ev.FromState == "draft" && ev.ToState == "confirmed" && ev.EquipmentStatus == "rented"
	})).Return(nil)
	f.rent.On("GetByID", ctx, int64(1)).Return(&domain.Rental{ID: 1, State: domain.RentalConfirmed}, nil)

	got, err := f.svc.Confirm(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.RentalConfirmed, got.State)
	f.eq.AssertExpectations(t)
	f.pub.AssertExpectations(t)
}

func TestService_Start_LeavesEquipmentAlone(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()

	f.rent.On("GetByIDForUpdate", ctx, int64(1)).Return(&domain.Rental{ID: 1, EquipmentID: 3, State: domain.RentalConfirmed}, nil)
	f.rent.On("UpdateState", ctx, int64(1), domain.RentalOngoing, (*time.Time)(nil)).Return(nil)
	f.pub.On("Publish", ctx, mock.Anything).Return(nil)
	f.rent.On("GetByID", ctx, int64(1)).Return(&domain.Rental{ID: 1, State: domain.RentalOngoing}, nil)

	_, err := f.svc.Start(ctx, 1)
	require.NoError(t, err)
	f.eq.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Return_SetsActualReturnDate(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()

	today := day(2024, 3, 10)
	f.rent.On("GetByIDForUpdate", ctx, int64(1)).Return(&domain.Rental{ID: 1, EquipmentID: 3, State: domain.RentalOngoing}, nil)
	f.rent.On("UpdateState", ctx, int64(1), domain.RentalReturned, &today).Return(nil)
	f.eq.On("GetByIDForUpdate", ctx, int64(3)).Return(&domain.Equipment{ID: 3}, nil)
	f.eq.On("UpdateStatus", ctx, int64(3), domain.EquipmentAvailable).Return(nil)
	f.pub.On("Publish", ctx, mock.Anything).Return(nil)
	f.rent.On("GetByID", ctx, int64(1)).Return(&domain.Rental{ID: 1, State: domain.RentalReturned}, nil)

	_, err := f.svc.Return(ctx, 1)
	require.NoError(t, err)
	f.rent.AssertExpectations(t)
}

func TestService_Return_FromDraftAllowedByDefault(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()

	f.rent.On("GetByIDForUpdate", ctx, int64(1)).Return(&domain.Rental{ID: 1, EquipmentID: 3, State: domain.RentalDraft}, nil)
	f.rent.On("UpdateState", ctx, int64(1), domain.RentalReturned, mock.Anything).Return(nil)
	f.eq.On("GetByIDForUpdate", ctx, int64(3)).Return(&domain.Equipment{ID: 3}, nil)
	f.eq.On("UpdateStatus", ctx, int64(3), domain.EquipmentAvailable).Return(nil)
	f.pub.On("Publish", ctx, mock.Anything).Return(nil)
	f.rent.On("GetByID", ctx, int64(1)).Return(&domain.Rental{ID: 1, State: domain.RentalReturned}, nil)

	_, err := f.svc.Return(ctx, 1)
	assert.NoError(t, err)
}

func TestService_StrictMode_RejectsReturnFromDraft(t *testing.T) {
	f := newFixture(true)
	ctx := context.Background()

	f.rent.On("GetByIDForUpdate", ctx, int64(1)).Return(&domain.Rental{ID: 1, EquipmentID: 3, State: domain.RentalDraft}, nil)

	_, err := f.svc.Return(ctx, 1)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)
	f.rent.AssertNotCalled(t, "UpdateState", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.eq.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	f.pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestService_EquipmentWriteFailure_NoEvent(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()

	f.rent.On("GetByIDForUpdate", ctx, int64(1)).Return(&domain.Rental{ID: 1, EquipmentID: 3, State: domain.RentalDraft}, nil)
	f.rent.On("UpdateState", ctx, int64(1), domain.RentalCancelled, (*time.Time)(nil)).Return(nil)
	f.eq.On("GetByIDForUpdate", ctx, int64(3)).Return(&domain.Equipment{ID: 3}, nil)
	f.eq.On("UpdateStatus", ctx, int64(3), domain.EquipmentAvailable).Return(errors.New("disk full"))

	_, err := f.svc.Cancel(ctx, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	f.pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestService_PublishFailureDoesNotFailTransition(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()

	f.rent.On("GetByIDForUpdate", ctx, int64(1)).Return(&domain.Rental{ID: 1, EquipmentID: 3, State: domain.RentalConfirmed}, nil)
	f.rent.On("UpdateState", ctx, int64(1), domain.RentalOngoing, (*time.Time)(nil)).Return(nil)
	f.pub.On("Publish", ctx, mock.Anything).Return(errors.New("broker down"))
	f.rent.On("GetByID", ctx, int64(1)).Return(&domain.Rental{ID: 1, State: domain.RentalOngoing}, nil)

	_, err := f.svc.Start(ctx, 1)
	assert.NoError(t, err)
}

func TestService_Transition_NotFound(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()

	f.rent.On("GetByIDForUpdate", ctx, int64(5)).Return(nil, repository.ErrNotFound)

	_, err := f.svc.Confirm(ctx, 5)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_Update_EquipmentSwitchRepricesAtNewRate(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()

	r := &domain.Rental{ID: 1, CustomerName: "Jane", EquipmentID: 3, RentalDate: day(2024, 1, 1),
		ReturnDate: day(2024, 1, 2), PaymentStatus: domain.PaymentPending, State: domain.RentalDraft}
	r.Recompute(20)
	f.rent.On("GetByIDForUpdate", ctx, int64(1)).Return(r, nil)
	f.eq.On("GetByID", ctx, int64(4)).Return(&domain.Equipment{ID: 4, DailyRate: 35}, nil)
	f.rent.On("Update", ctx, r).Return(nil)
	f.rent.On("GetByID", ctx, int64(1)).Return(r, nil)

	newEq := int64(4)
	ret := "2024-01-04"
	got, err := f.svc.Update(ctx, 1, UpdateRentalRequest{EquipmentID: &newEq, ReturnDate: &ret})
	require.NoError(t, err)
	assert.EqualValues(t, 4, got.EquipmentID)
	assert.Equal(t, 4, got.DurationDays)
	assert.Equal(t, 35.0, got.DailyRate)
	assert.Equal(t, 140.0, got.TotalAmount)
}

func TestService_List_BadState(t *testing.T) {
	f := newFixture(false)

	_, _, err := f.svc.List(context.Background(), ListFilter{State: "archived"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestService_ReferenceFor(t *testing.T) {
	f := newFixture(false)
	assert.Equal(t, "RENT/00001", f.svc.ReferenceFor(1))
	assert.Equal(t, "RENT/123456", f.svc.ReferenceFor(123456))
}
