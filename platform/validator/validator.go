// Package validator provides request validation for the HTTP handlers.
// This is part of the platform layer and contains no business logic.
package validator

import (
	"strings"

	"inspection_booking_backend/platform/phone"

	"github.com/go-playground/validator/v10"
)

var auStates = map[string]bool{
	"ACT": true, "NSW": true, "NT": true, "QLD": true,
	"SA": true, "TAS": true, "VIC": true, "WA": true,
}

// Validator wraps the go-playground validator with the funnel's custom tags:
//
//	au_state  an Australian state or territory code, any case
//	au_phone  a phone number that parses as a valid AU number
type Validator struct {
	v *validator.Validate
}

// New creates a new Validator instance with the custom tags registered.
func New() *Validator {
	v := validator.New()
	_ = v.RegisterValidation("au_state", func(fl validator.FieldLevel) bool {
		return auStates[strings.ToUpper(strings.TrimSpace(fl.Field().String()))]
	})
	_ = v.RegisterValidation("au_phone", func(fl validator.FieldLevel) bool {
		return phone.IsValid(fl.Field().String())
	})
	return &Validator{v: v}
}

// Struct validates a struct based on validation tags.
func (val *Validator) Struct(s interface{}) error {
	return val.v.Struct(s)
}

// Var validates a single variable against a tag.
func (val *Validator) Var(field interface{}, tag string) error {
	return val.v.Var(field, tag)
}
