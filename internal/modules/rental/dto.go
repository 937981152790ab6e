package rental

import (
	"time"

	"gearrent/internal/domain"
)

// DateLayout is the wire format of rental dates.
const DateLayout = domain.DateLayout

type CreateRentalRequest struct {
	Name          string  `json:"name" binding:"max=64"`
	CustomerName  string  `json:"customer_name" binding:"required,max=255"`
	CustomerPhone string  `json:"customer_phone" binding:"max=32"`
	CustomerEmail string  `json:"customer_email" binding:"omitempty,email"`
	EquipmentID   int64   `json:"equipment_id" binding:"required,gt=0"`
	RentalDate    string  `json:"rental_date"`
	ReturnDate    string  `json:"return_date" binding:"required"`
	Deposit       float64 `json:"deposit" binding:"gte=0"`
	PaymentStatus string  `json:"payment_status"`
	Notes         string  `json:"notes"`
}

// UpdateRentalRequest is a partial update; state is driven by actions only.
type UpdateRentalRequest struct {
	CustomerName  *string  `json:"customer_name" binding:"omitempty,min=1,max=255"`
	CustomerPhone *string  `json:"customer_phone" binding:"omitempty,max=32"`
	CustomerEmail *string  `json:"customer_email" binding:"omitempty,email"`
	EquipmentID   *int64   `json:"equipment_id" binding:"omitempty,gt=0"`
	RentalDate    *string  `json:"rental_date"`
	ReturnDate    *string  `json:"return_date"`
	Deposit       *float64 `json:"deposit" binding:"omitempty,gte=0"`
	PaymentStatus *string  `json:"payment_status"`
	Notes         *string  `json:"notes"`
}

type ListFilter struct {
	State         string
	EquipmentID   int64
	PaymentStatus string
	Limit         int
	Offset        int
}

type ListResponse struct {
	Items  []domain.Rental `json:"items"`
	Total  int64           `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

func parseDate(s string) (time.Time, error) {
	t, err := domain.ParseDate(s)
	if err != nil {
		return time.Time{}, ErrValidation
	}
	return t, nil
}
