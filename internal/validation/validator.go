// Package validation wraps go-playground/validator with the struct tag
// vocabulary the CLOB request types use (atoms, mintid) and turns
// field errors into a single human-readable message.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	validator "github.com/go-playground/validator/v10"
)

// Validator wraps go-playground/validator.Validate with the tag
// vocabulary the clob request types use.
type Validator struct {
	validator *validator.Validate
}

var mintIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)

// NewValidator builds a Validator with the clob-specific tags
// registered: "atoms" (a positive uint64 quantity) and "mintid" (a
// 32-byte hex-encoded account identifier).
func NewValidator() *Validator {
	v := validator.New()

	v.RegisterValidation("atoms", validateAtoms)
	v.RegisterValidation("mintid", validateMintID)

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{validator: v}
}

// Validate validates a request struct, joining every failing field
// into one error message.
func (v *Validator) Validate(i interface{}) error {
	if err := v.validator.Struct(i); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			msgs := make([]string, 0, len(validationErrors))
			for _, e := range validationErrors {
				msgs = append(msgs, formatValidationError(e))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}
	return nil
}

func formatValidationError(e validator.FieldError) string {
	field := e.Field()
	tag := e.Tag()
	param := e.Param()

	switch tag {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, param)
	case "atoms":
		return fmt.Sprintf("%s must be a positive atom quantity", field)
	case "mintid":
		return fmt.Sprintf("%s must be a 32-byte hex-encoded account id", field)
	default:
		return fmt.Sprintf("%s failed validation: %s", field, tag)
	}
}

func validateAtoms(fl validator.FieldLevel) bool {
	return fl.Field().Uint() > 0
}

func validateMintID(fl validator.FieldLevel) bool {
	return mintIDPattern.MatchString(fl.Field().String())
}
