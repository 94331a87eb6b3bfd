package checkout

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pawcircle/pawcircle-backend/pkg/types"
	"go.uber.org/multierr"
)

// Minimum lengths for checkout form fields, counted in runes after trimming.
const (
	MinNameLength       = 2
	MinPhoneLength      = 8
	MinLine1Length      = 5
	MinCityLength       = 2
	MinStateLength      = 2
	MinPostalCodeLength = 4
)

// FieldViolation describes one form field that failed validation.
type FieldViolation struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (v FieldViolation) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Reason)
}

// ValidateContact checks every contact field and returns all failures combined.
func ValidateContact(contact types.Contact) error {
	var err error
	err = multierr.Append(err, minLength("contact.name", contact.Name, MinNameLength))
	email := strings.TrimSpace(contact.Email)
	if email == "" {
		err = multierr.Append(err, FieldViolation{Field: "contact.email", Reason: "is required"})
	} else if !strings.Contains(email, "@") {
		err = multierr.Append(err, FieldViolation{Field: "contact.email", Reason: "must contain @"})
	}
	err = multierr.Append(err, minLength("contact.phone", contact.Phone, MinPhoneLength))
	return err
}

// ValidateAddress checks every required address field and returns all failures combined.
func ValidateAddress(address types.ShippingAddress) error {
	var err error
	err = multierr.Append(err, minLength("address.line1", address.Line1, MinLine1Length))
	err = multierr.Append(err, minLength("address.city", address.City, MinCityLength))
	err = multierr.Append(err, minLength("address.state", address.State, MinStateLength))
	err = multierr.Append(err, minLength("address.postalCode", address.PostalCode, MinPostalCodeLength))
	return err
}

// Violations flattens a combined validation error into its field violations.
func Violations(err error) []FieldViolation {
	var out []FieldViolation
	for _, e := range multierr.Errors(err) {
		var v FieldViolation
		if errors.As(e, &v) {
			out = append(out, v)
		}
	}
	return out
}

func minLength(field, value string, min int) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return FieldViolation{Field: field, Reason: "is required"}
	}
	if utf8.RuneCountInString(trimmed) < min {
		return FieldViolation{Field: field, Reason: fmt.Sprintf("must be at least %d characters", min)}
	}
	return nil
}
