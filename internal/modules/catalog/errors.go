package catalog

import "errors"

var (
	ErrValidation     = errors.New("validation error")
	ErrNotFound       = errors.New("equipment not found")
	ErrDuplicateCode  = errors.New("equipment code already exists")
	ErrEquipmentInUse = errors.New("equipment has rental transactions")
)
