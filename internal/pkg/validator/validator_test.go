package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	Name  string  `validate:"required"`
	Email string  `validate:"omitempty,email"`
	Rate  float64 `validate:"gte=0"`
}

func TestValidate(t *testing.T) {
	assert.Nil(t, Validate(sample{Name: "Canon R5", Rate: 10}))

	errs := Validate(sample{Email: "nope", Rate: -1})
	assert.Equal(t, "required", errs["Name"])
	assert.Equal(t, "email", errs["Email"])
	assert.Equal(t, "gte", errs["Rate"])
}

func TestDetails_NonValidationError(t *testing.T) {
	assert.Nil(t, Details(errors.New("EOF")))
}
