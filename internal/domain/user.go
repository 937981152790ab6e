package domain

import "time"

type UserRole string

const (
	RoleAdmin    UserRole = "admin"
	RoleOperator UserRole = "operator"
)

// User is a back-office operator.
type User struct {
	ID                  int64      `json:"id" gorm:"primaryKey"`
	Email               string     `json:"email" gorm:"type:varchar(255);not null;uniqueIndex" validate:"required,email"`
	PasswordHash        string     `json:"-" gorm:"not null"`
	Role                UserRole   `json:"role" gorm:"type:varchar(16);not null;check:role IN ('admin','operator')"`
	Name                string     `json:"name"`
	FailedLoginAttempts int        `json:"-" gorm:"not null;default:0"`
	LockedUntil         *time.Time `json:"-"`
	LastLoginAt         *time.Time `json:"last_login_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

func (User) TableName() string { return "users" }
