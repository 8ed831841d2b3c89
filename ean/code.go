// Package ean validates product identification codes and derives the search
// terms used to look them up.
package ean

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidCode is returned when the input is not a valid EAN/UPC code.
// A run started with an invalid code fails up front and is never retried.
var ErrInvalidCode = errors.New("invalid ean code")

// Code is a validated, immutable EAN/UPC digit string (8, 13 or 14 digits).
type Code struct {
	digits string
}

// Parse normalizes and validates raw input into a Code. Surrounding
// whitespace is tolerated; anything else must be digits of an accepted
// length, and 13-digit codes must carry a correct check digit.
func Parse(raw string) (Code, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Code{}, fmt.Errorf("%w: empty input", ErrInvalidCode)
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return Code{}, fmt.Errorf("%w: %q contains non-digit characters", ErrInvalidCode, raw)
		}
	}
	switch len(s) {
	case 8, 14:
		// Length alone is sufficient for EAN-8 and EAN-14.
	case 13:
		if CheckDigit(s[:12]) != int(s[12]-'0') {
			return Code{}, fmt.Errorf("%w: %q has a wrong check digit", ErrInvalidCode, raw)
		}
	default:
		return Code{}, fmt.Errorf("%w: %q has length %d, want 8, 13 or 14", ErrInvalidCode, raw, len(s))
	}
	return Code{digits: s}, nil
}

// CheckDigit computes the EAN-13 check digit for the first 12 digits:
// even positions weigh 1, odd positions weigh 3 (zero-based), and the
// check digit is (10 - sum%10) % 10.
func CheckDigit(first12 string) int {
	sum := 0
	for i := 0; i < len(first12) && i < 12; i++ {
		d := int(first12[i] - '0')
		if i%2 == 0 {
			sum += d
		} else {
			sum += d * 3
		}
	}
	return (10 - sum%10) % 10
}

// String returns the digit string.
func (c Code) String() string {
	return c.digits
}

// Format names the code's format from its length.
func (c Code) Format() string {
	switch len(c.digits) {
	case 8:
		return "EAN-8"
	case 13:
		return "EAN-13"
	case 14:
		return "EAN-14"
	default:
		return "unknown"
	}
}

// IsZero reports whether the code is the zero value (never produced by a
// successful Parse).
func (c Code) IsZero() bool {
	return c.digits == ""
}
