package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/activities-api/internal/auth"
)

// ValidationError carries field-keyed messages for a rejected payload.
type ValidationError struct {
	Fields map[string][]string
	cause  error
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for key := range e.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", key, strings.Join(e.Fields[key], "; ")))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Unwrap exposes the underlying validator errors.
func (e *ValidationError) Unwrap() error {
	return e.cause
}

// FieldError reports a conflict on a single field, such as a taken email address.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// validationError converts validator failures into a ValidationError and returns other errors unchanged.
func validationError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	fields := make(map[string][]string, len(validationErrors))
	for _, fieldErr := range validationErrors {
		name := fieldErr.StructField()
		fields[name] = append(fields[name], fieldMessages(fieldErr)...)
	}
	return &ValidationError{Fields: fields, cause: err}
}

func fieldMessages(fieldErr validator.FieldError) []string {
	name := fieldErr.StructField()
	switch fieldErr.Tag() {
	case "required":
		return []string{fmt.Sprintf("'%s' must not be empty.", name)}
	case "email":
		return []string{fmt.Sprintf("'%s' is not a valid email address.", name)}
	case auth.PasswordTag:
		value, _ := fieldErr.Value().(string)
		return auth.PasswordViolations(value)
	case "max":
		return []string{fmt.Sprintf("'%s' must be %s characters or fewer.", name, fieldErr.Param())}
	case "min":
		return []string{fmt.Sprintf("'%s' must be at least %s characters.", name, fieldErr.Param())}
	default:
		return []string{fmt.Sprintf("'%s' is invalid.", name)}
	}
}

func clampPageSize(size int) int {
	if size <= 0 {
		return 20
	}
	if size > 100 {
		return 100
	}
	return size
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
