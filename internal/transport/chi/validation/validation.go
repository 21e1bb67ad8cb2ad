// Package validation checks request structs against their validate tags.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/kailas-cloud/cmsdex/internal/domain"
	"github.com/kailas-cloud/cmsdex/internal/domain/day"
)

// Error lists every field that failed validation, one message per field.
type Error struct {
	Messages []string
}

func (e *Error) Error() string { return strings.Join(e.Messages, "; ") }

// Unwrap lets errors.Is(err, domain.ErrValidation) match.
func (e *Error) Unwrap() error { return domain.ErrValidation }

// Validator is stateless and safe for concurrent use.
type Validator struct {
	v *validator.Validate
}

// New creates a Validator with the cmsdex tags registered:
// notblank (non-whitespace string) and cmsdate (parseable day).
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return strings.ToLower(f.Name)
		}
		return name
	})
	// Built-in registrations only fail on empty tags or nil funcs.
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	_ = v.RegisterValidation("cmsdate", func(fl validator.FieldLevel) bool {
		_, err := day.Parse(fl.Field().String())
		return err == nil
	})
	return &Validator{v: v}
}

// Struct validates s. It returns nil or an *Error.
func (v *Validator) Struct(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return &Error{Messages: []string{err.Error()}}
	}
	msgs := make([]string, 0, len(ves))
	for _, fe := range ves {
		msgs = append(msgs, message(fe))
	}
	return &Error{Messages: msgs}
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required", "notblank":
		return fmt.Sprintf("The %s field is required.", field)
	case "cmsdate":
		return fmt.Sprintf("The %s is not a valid date.", field)
	case "max":
		return fmt.Sprintf("The %s may not be greater than %s characters.", field, fe.Param())
	default:
		return fmt.Sprintf("The %s is invalid.", field)
	}
}
