package catalog

import "gearrent/internal/domain"

type CreateEquipmentRequest struct {
	Name          string     `json:"name" binding:"required,max=255"`
	Code          string     `json:"code" binding:"required,max=64"`
	Category      string     `json:"category" binding:"required"`
	Description   string     `json:"description"`
	DailyRate     *float64   `json:"daily_rate" binding:"required,gte=0"`
	PurchasePrice float64    `json:"purchase_price" binding:"gte=0"`
	Status        string     `json:"status"`
	Condition     string     `json:"condition"`
	PurchaseDate  string     `json:"purchase_date"` // YYYY-MM-DD
	ImageURL      string     `json:"image_url" binding:"omitempty,url"`
}

// UpdateEquipmentRequest is a partial update; nil fields are left alone.
type UpdateEquipmentRequest struct {
	Name          *string    `json:"name" binding:"omitempty,min=1,max=255"`
	Code          *string    `json:"code" binding:"omitempty,min=1,max=64"`
	Category      *string    `json:"category"`
	Description   *string    `json:"description"`
	DailyRate     *float64   `json:"daily_rate" binding:"omitempty,gte=0"`
	PurchasePrice *float64   `json:"purchase_price" binding:"omitempty,gte=0"`
	Status        *string    `json:"status"`
	Condition     *string    `json:"condition"`
	PurchaseDate  *string    `json:"purchase_date"` // "" clears
	ImageURL      *string    `json:"image_url" binding:"omitempty,url"`
}

type ListFilter struct {
	Category string
	Status   string
	Limit    int
	Offset   int
}

type ListResponse struct {
	Items  []domain.Equipment `json:"items"`
	Total  int64              `json:"total"`
	Limit  int                `json:"limit"`
	Offset int                `json:"offset"`
}
