package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type RentalState string

const (
	RentalDraft     RentalState = "draft"
	RentalConfirmed RentalState = "confirmed"
	RentalOngoing   RentalState = "ongoing"
	RentalReturned  RentalState = "returned"
	RentalCancelled RentalState = "cancelled"
)

func (s RentalState) Valid() bool {
	switch s {
	case RentalDraft, RentalConfirmed, RentalOngoing, RentalReturned, RentalCancelled:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentPartial  PaymentStatus = "partial"
	PaymentRefunded PaymentStatus = "refunded"
)

func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentPending, PaymentPaid, PaymentPartial, PaymentRefunded:
		return true
	}
	return false
}

// RentalNamePlaceholder is the name a rental carries until the ledger assigns
// its sequential reference.
const RentalNamePlaceholder = "New"

// Rental books one equipment item to one customer for a date range.
type Rental struct {
	ID               int64         `json:"id" gorm:"primaryKey"`
	Name             string        `json:"name" gorm:"type:varchar(64);not null;index"`
	CustomerName     string        `json:"customer_name" gorm:"type:varchar(255);not null"`
	CustomerPhone    string        `json:"customer_phone,omitempty" gorm:"type:varchar(32)"`
	CustomerEmail    string        `json:"customer_email,omitempty" gorm:"type:varchar(255)"`
	EquipmentID      int64         `json:"equipment_id" gorm:"not null;index"`
	RentalDate       time.Time     `json:"rental_date" gorm:"type:date;not null;index"`
	ReturnDate       time.Time     `json:"return_date" gorm:"type:date;not null"`
	ActualReturnDate *time.Time    `json:"actual_return_date,omitempty" gorm:"type:date"`
	DurationDays     int           `json:"duration_days" gorm:"not null"`
	DailyRate        float64       `json:"daily_rate" gorm:"not null"`
	TotalAmount      float64       `json:"total_amount" gorm:"not null"`
	Deposit          float64       `json:"deposit"`
	PaymentStatus    PaymentStatus `json:"payment_status" gorm:"type:varchar(16);not null;check:payment_status IN ('pending','paid','partial','refunded')"`
	State            RentalState   `json:"state" gorm:"type:varchar(16);not null;index;check:state IN ('draft','confirmed','ongoing','returned','cancelled')"`
	Notes            string        `json:"notes,omitempty" gorm:"type:text"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`

	Equipment *Equipment `json:"equipment,omitempty" gorm:"foreignKey:EquipmentID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

func (Rental) TableName() string { return "rental_transactions" }

// Recompute refreshes the derived fields from the dates and the given rate.
func (r *Rental) Recompute(dailyRate float64) {
	r.DailyRate = dailyRate
	r.DurationDays = RentalDuration(r.RentalDate, r.ReturnDate)
	r.TotalAmount = RentalTotal(r.DurationDays, r.DailyRate)
}

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// ParseDate reads a DateLayout string as a UTC calendar day.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// DateOnly strips the clock part of t, keeping its calendar day.
func DateOnly(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

const secondsPerDay = 24 * 60 * 60

// RentalDuration counts both the first and the last day of the rental.
// A missing date yields 0.
func RentalDuration(rentalDate, returnDate time.Time) int {
	if rentalDate.IsZero() || returnDate.IsZero() {
		return 0
	}
	// whole days via unix seconds; time.Duration saturates near 292 years
	days := (DateOnly(returnDate).Unix() - DateOnly(rentalDate).Unix()) / secondsPerDay
	return int(days) + 1
}

// RentalTotal is duration × rate rounded to cents.
func RentalTotal(durationDays int, dailyRate float64) float64 {
	return decimal.NewFromInt(int64(durationDays)).
		Mul(decimal.NewFromFloat(dailyRate)).
		Round(2).
		InexactFloat64()
}
