// Package validator checks domain invariants on candidate values before they
// reach a repository. It wraps go-playground/validator and reports every
// failure as domain.ErrValidation.
package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/meterdesk/readings/internal/core/domain"
)

// Validator is safe for concurrent use; build one at startup and share it.
type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Length is counted in bytes; the built-in max tag counts runes.
	if err := v.RegisterValidation("pwbytes", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= domain.MaxPasswordBytes
	}); err != nil {
		panic(err)
	}
	return &Validator{v: v}
}

type userInput struct {
	Login    string `validate:"required"`
	Password string `validate:"required,pwbytes"`
}

type passwordInput struct {
	Password string `validate:"required,pwbytes"`
}

type readingsInput struct {
	Readings map[string]float64 `validate:"required,min=1,dive,keys,required,endkeys,gte=0"`
}

// ValidateUser fails if the login or the password is empty, or the password
// is longer than domain.MaxPasswordBytes.
func (val *Validator) ValidateUser(login, password string) error {
	return val.check(userInput{Login: login, Password: password})
}

// ValidatePassword fails if password is empty or longer than domain.MaxPasswordBytes.
func (val *Validator) ValidatePassword(password string) error {
	return val.check(passwordInput{Password: password})
}

// ValidateReadings fails if the set is empty, a type label is empty or a value is negative.
func (val *Validator) ValidateReadings(readings domain.Readings) error {
	return val.check(readingsInput{Readings: readings})
}

func (val *Validator) check(i any) error {
	if err := val.v.Struct(i); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			msgs := make([]string, 0, len(ve))
			for _, fe := range ve {
				msgs = append(msgs, fieldError(fe))
			}
			return fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return nil
}

// fieldError converts a single FieldError into a message the console can print.
func fieldError(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		switch {
		case field == "readings":
			return "readings must not be empty"
		case strings.HasPrefix(field, "readings["):
			return "reading type must not be empty"
		}
		return field + " is required"
	case "pwbytes":
		return fmt.Sprintf("%s must be at most %d bytes", field, domain.MaxPasswordBytes)
	case "min":
		return field + " must not be empty"
	case "gte":
		return fmt.Sprintf("%s must not be negative", readingName(fe.Field()))
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}

// readingName turns "Readings[hotWater]" into "hotWater".
func readingName(field string) string {
	start := strings.IndexByte(field, '[')
	end := strings.LastIndexByte(field, ']')
	if start < 0 || end <= start {
		return strings.ToLower(field)
	}
	return field[start+1 : end]
}
