// Package validator validates API request payloads.
package validator

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

// currencyRegex matches an ISO 4217 style three letter currency code.
var currencyRegex = regexp.MustCompile(`^[A-Za-z]{3}$`)

// Validator is a wrapper around the go-playground/validator package.
type Validator struct {
	validator *validator.Validate
}

// New creates a new Validator instance.
func New() *Validator {
	v := validator.New()

	// Register custom validation functions
	_ = v.RegisterValidation("currency", validateCurrency)

	return &Validator{
		validator: v,
	}
}

// Validate validates a struct using the validator package.
func (v *Validator) Validate(s interface{}) error {
	return v.validator.Struct(s)
}

// ValidateVar validates a single value against the given tag, for example a
// URL parameter against "required,currency".
func (v *Validator) ValidateVar(field interface{}, tag string) error {
	return v.validator.Var(field, tag)
}

// validateCurrency validates a three letter currency code.
func validateCurrency(fl validator.FieldLevel) bool {
	// If the field is empty, it's valid (use required tag if it's required)
	if fl.Field().String() == "" {
		return true
	}

	return currencyRegex.MatchString(fl.Field().String())
}
