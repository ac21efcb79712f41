// Package validation checks request bodies and drafts with validator/v10 and
// reports failures as field-keyed domain errors.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	domainerrors "github.com/retroarena/eventengine/internal/errors"
)

// Validator is safe for concurrent use.
type Validator struct {
	v *validator.Validate
}

// customTags are the engine's own validation tags.
var customTags = map[string]validator.Func{
	// notblank: non-empty after trimming whitespace.
	"notblank": func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	},
	// nocontrol: no control characters other than newline and tab, so names
	// and comments render on one line in the leaderboard and moderation views.
	"nocontrol": func(fl validator.FieldLevel) bool {
		return !strings.ContainsFunc(fl.Field().String(), func(r rune) bool {
			return unicode.IsControl(r) && r != '\n' && r != '\t'
		})
	},
}

// New returns a Validator with the engine's tags registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)
	for tag, fn := range customTags {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("register %s: %v", tag, err))
		}
	}
	return &Validator{v: v}
}

// jsonFieldName reports fields by their JSON name.
func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	switch name {
	case "", "-":
		return fld.Name
	default:
		return name
	}
}

// Validate checks s. Failures come back as a validation error whose details
// map each JSON field name to a message.
func (v *Validator) Validate(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	details := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		if _, seen := details[fe.Field()]; !seen {
			details[fe.Field()] = message(fe)
		}
	}
	return domainerrors.ValidationWithDetails("validation failed", details)
}

func message(fe validator.FieldError) string {
	unit := ""
	if fe.Kind() == reflect.String {
		unit = " characters"
	}

	switch fe.Tag() {
	case "required", "notblank":
		return "is required"
	case "nocontrol":
		return "must not contain control characters"
	case "min":
		return "must be at least " + fe.Param() + unit
	case "max":
		return "must not exceed " + fe.Param() + unit
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "url":
		return "must be a valid URL"
	}
	return "is invalid"
}
