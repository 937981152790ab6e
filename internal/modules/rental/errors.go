package rental

import "errors"

var (
	ErrValidation              = errors.New("validation error")
	ErrNotFound                = errors.New("rental not found")
	ErrEquipmentNotFound       = errors.New("equipment not found")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
)
