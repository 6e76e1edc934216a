// Package phone normalizes and validates phone numbers. Conversation room
// identity for phone-based media hinges on the E.164 form, so every number
// entering the system goes through here first.
package phone

import (
	"errors"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// ErrUnparseable reports input that cannot be interpreted as a phone number
// for the given region.
var ErrUnparseable = errors.New("unparseable phone number")

// IsValidE164Number reports whether s is already in strict E.164 form: a
// leading '+' followed by a number that parses and validates without any
// region hint.
func IsValidE164Number(s string) bool {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "+") {
		return false
	}
	num, err := phonenumbers.Parse(s, "")
	if err != nil {
		return false
	}
	return phonenumbers.IsValidNumber(num)
}

// ConvertToE164 normalizes a nationally formatted number into E.164 using
// defaultRegion (ISO 3166-1 alpha-2, e.g. "US") for numbers without a country
// code. Already-normalized input passes through unchanged.
func ConvertToE164(s, defaultRegion string) (string, error) {
	s = strings.TrimSpace(s)
	if IsValidE164Number(s) {
		return s, nil
	}
	num, err := phonenumbers.Parse(s, strings.ToUpper(defaultRegion))
	if err != nil {
		return "", ErrUnparseable
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", ErrUnparseable
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}
