package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	EventRentalCreated   = "RentalCreated"
	EventRentalConfirmed = "RentalConfirmed"
	EventRentalStarted   = "RentalStarted"
	EventRentalReturned  = "RentalReturned"
	EventRentalCancelled = "RentalCancelled"
)

// RentalEvent is emitted after a rental changes state and the change is committed.
type RentalEvent struct {
	EventID         string    `json:"event_id"`
	EventType       string    `json:"event_type"`
	OccurredAt      time.Time `json:"occurred_at"`
	RentalID        int64     `json:"rental_id"`
	RentalName      string    `json:"rental_name"`
	EquipmentID     int64     `json:"equipment_id"`
	FromState       string    `json:"from_state,omitempty"`
	ToState         string    `json:"to_state"`
	EquipmentStatus string    `json:"equipment_status,omitempty"`
}

func NewRentalEvent(eventType string, at time.Time) RentalEvent {
	return RentalEvent{
		EventID:    uuid.NewString(),
		EventType:  eventType,
		OccurredAt: at.UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, ev RentalEvent) error
}

// Multi fans an event out to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, ev RentalEvent) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, RentalEvent) error { return nil }
