package domain

import "time"

type EquipmentCategory string

const (
	CategoryCamera   EquipmentCategory = "camera"
	CategoryLens     EquipmentCategory = "lens"
	CategoryLighting EquipmentCategory = "lighting"
	CategoryAudio    EquipmentCategory = "audio"
	CategoryOther    EquipmentCategory = "other"
)

type EquipmentStatus string

const (
	EquipmentAvailable   EquipmentStatus = "available"
	EquipmentRented      EquipmentStatus = "rented"
	EquipmentMaintenance EquipmentStatus = "maintenance"
	EquipmentDamaged     EquipmentStatus = "damaged"
)

type EquipmentCondition string

const (
	ConditionNew  EquipmentCondition = "new"
	ConditionGood EquipmentCondition = "good"
	ConditionFair EquipmentCondition = "fair"
	ConditionPoor EquipmentCondition = "poor"
)

func (c EquipmentCategory) Valid() bool {
	switch c {
	case CategoryCamera, CategoryLens, CategoryLighting, CategoryAudio, CategoryOther:
		return true
	}
	return false
}

func (s EquipmentStatus) Valid() bool {
	switch s {
	case EquipmentAvailable, EquipmentRented, EquipmentMaintenance, EquipmentDamaged:
		return true
	}
	return false
}

func (c EquipmentCondition) Valid() bool {
	switch c {
	case ConditionNew, ConditionGood, ConditionFair, ConditionPoor:
		return true
	}
	return false
}

// Equipment is a rentable physical asset.
type Equipment struct {
	ID            int64              `json:"id" gorm:"primaryKey"`
	Name          string             `json:"name" gorm:"type:varchar(255);not null"`
	Code          string             `json:"code" gorm:"type:varchar(64);not null;uniqueIndex"`
	Category      EquipmentCategory  `json:"category" gorm:"type:varchar(20);not null;index;check:category IN ('camera','lens','lighting','audio','other')"`
	Description   string             `json:"description,omitempty" gorm:"type:text"`
	DailyRate     float64            `json:"daily_rate" gorm:"not null"`
	PurchasePrice float64            `json:"purchase_price"`
	Status        EquipmentStatus    `json:"status" gorm:"type:varchar(20);not null;index;check:status IN ('available','rented','maintenance','damaged')"`
	Condition     EquipmentCondition `json:"condition" gorm:"type:varchar(10);not null;check:condition IN ('new','good','fair','poor')"`
	PurchaseDate  *time.Time         `json:"purchase_date,omitempty" gorm:"type:date"`
	ImageURL      string             `json:"image_url,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`

	// RentalCount is filled by the catalog service, never stored.
	RentalCount int64 `json:"rental_count" gorm:"-"`
}

func (Equipment) TableName() string { return "equipment" }
