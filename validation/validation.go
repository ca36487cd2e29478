// Package validation runs shape/format checks on request payloads.
//
// Each resource writes an explicit function per payload shape that feeds its fields
// through a Checker. The outcome is either nil (valid) or an *apperror.AppError of type
// ValidationError listing every offending field, never just the first one.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/user/postboard-go/apperror"
)

// validate is safe for concurrent use and caches parsed tags, so one instance serves
// the whole process.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Checker accumulates field errors for one payload.
type Checker struct {
	details []apperror.FieldError
}

// New returns an empty Checker.
func New() *Checker {
	return &Checker{}
}

// Field checks value against validator tags such as "required,min=3" or "email"
// and records a failure under the given JSON field name.
func (c *Checker) Field(name string, value any, tags string) {
	err := validate.Var(value, tags)
	if err == nil {
		return
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		// InvalidValidationError: a programming mistake in the tags themselves.
		panic(fmt.Sprintf("validation: bad rule %q for field %s: %v", tags, name, err))
	}
	c.Add(name, describe(verrs[0]))
}

// Optional checks a field of a partial update. A field that was left out is skipped,
// while an explicit JSON null is rejected.
func (c *Checker) Optional(name string, value *string, null bool, tags string) {
	switch {
	case null:
		c.Add(name, "must not be null")
	case value != nil:
		c.Field(name, *value, tags)
	}
}

// Add records a failure that was detected without validator tags.
func (c *Checker) Add(name, message string) {
	c.details = append(c.details, apperror.FieldError{Field: name, Message: message})
}

// Valid reports whether no failures were recorded.
func (c *Checker) Valid() bool {
	return len(c.details) == 0
}

// Err returns nil when the payload is valid, otherwise a ValidationError with the
// given summary message and one detail per failing field.
func (c *Checker) Err(message string) error {
	if c.Valid() {
		return nil
	}
	return apperror.NewValidationError(message, c.details...)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "email":
		return "must be a valid email address"
	case "uuid", "uuid4":
		return "must be a valid UUID"
	default:
		return fmt.Sprintf("failed the %q check", fe.Tag())
	}
}

// NullFields returns the keys of a JSON object whose value is an explicit null.
// Pointer fields cannot tell a null apart from a missing key, so partial update
// payloads record it separately.
func NullFields(data []byte) (map[string]bool, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	var nulls map[string]bool
	for key, raw := range fields {
		if string(raw) == "null" {
			if nulls == nil {
				nulls = make(map[string]bool)
			}
			nulls[key] = true
		}
	}
	return nulls, nil
}
