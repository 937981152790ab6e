// Package idempotency remembers which rental a client-supplied
// Idempotency-Key created, so retried POSTs return the first result.
package idempotency

import (
	"context"
	"errors"
	"fmt"
)

// KeyRentalCreate maps idem:rental:create:{key} to a rental id.
const KeyRentalCreate = "idem:rental:create:%s"

// ErrInProgress means another request holds the key and has not finished.
var ErrInProgress = errors.New("idempotency key in progress")

type Store interface {
	// Reserve claims key. When the key already completed it returns the
	// stored id with reserved=false.
	Reserve(ctx context.Context, key string) (existingID int64, reserved bool, err error)
	// Complete binds a reserved key to the created id.
	Complete(ctx context.Context, key string, id int64) error
	// Release frees a reserved key after a failed attempt.
	Release(ctx context.Context, key string) error
}

func RentalCreateKey(key string) string {
	return fmt.Sprintf(KeyRentalCreate, key)
}
