// Package validator wraps go-playground/validator to report failing fields
// by their JSON names.
package validator

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator is a wrapper around the go-playground/validator package.
type Validator struct {
	validator *validator.Validate
}

// ValidationError represents an individual validation error.
type ValidationError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
}

// ValidationErrors is a slice of ValidationError.
type ValidationErrors []ValidationError

// Error returns a string representation of the validation errors.
func (ve ValidationErrors) Error() string {
	var sb strings.Builder
	for i, err := range ve {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(fmt.Sprintf("%s: failed on %s", err.Field, err.Tag))
	}
	return sb.String()
}

// Has reports whether the given JSON field failed validation.
func (ve ValidationErrors) Has(field string) bool {
	for _, err := range ve {
		if err.Field == field {
			return true
		}
	}
	return false
}

// New creates a new Validator instance. Field names in the reported errors
// are taken from the json struct tag when present.
func New() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return &Validator{
		validator: v,
	}
}

// Validate validates a struct. It returns nil or a ValidationErrors value.
func (v *Validator) Validate(s any) error {
	err := v.validator.Struct(s)
	if err == nil {
		return nil
	}
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	var ve ValidationErrors
	for _, fieldErr := range fieldErrs {
		ve = append(ve, ValidationError{
			Field: fieldErr.Field(),
			Tag:   fieldErr.Tag(),
		})
	}
	return ve
}
