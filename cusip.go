package holdings

import (
	"fmt"
	"regexp"
	"strings"
)

// cusipRegex checks for the basic structure: 8 alphanumeric (or *@#) characters and 1 check digit.
var cusipRegex = regexp.MustCompile(`^[0-9A-Z*@#]{8}[0-9]$`)

// CUSIP is the 9-character identifier of a security in US filings.
//
// The first six characters identify the issuer, the next two the issue, and the
// last one is a modulus-10 "double-add-double" check digit.
type CUSIP string

// NewCUSIP normalizes s (trimmed, upper-cased) and validates it.
func NewCUSIP(s string) (CUSIP, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if err := ValidateCUSIP(s); err != nil {
		return "", fmt.Errorf("%w %q: %w", ErrInvalidCUSIP, s, err)
	}
	return CUSIP(s), nil
}

// MustCUSIP is like NewCUSIP but panics on error.
func MustCUSIP(s string) CUSIP {
	c, err := NewCUSIP(s)
	if err != nil {
		panic(err.Error())
	}
	return c
}

// ValidateCUSIP checks if a string is a validly formatted CUSIP.
// It returns nil if valid, or a descriptive error if invalid.
func ValidateCUSIP(cusip string) error {
	if len(cusip) != 9 {
		return fmt.Errorf("invalid length: must be 9 characters, got %d", len(cusip))
	}
	if !cusipRegex.MatchString(cusip) {
		return fmt.Errorf("invalid format: must be 8 characters in [0-9A-Z*@#] and 1 digit")
	}

	sum := 0
	for i, char := range cusip[:8] {
		var v int
		switch {
		case char >= '0' && char <= '9':
			v = int(char - '0')
		case char >= 'A' && char <= 'Z':
			v = int(char-'A') + 10
		case char == '*':
			v = 36
		case char == '@':
			v = 37
		case char == '#':
			v = 38
		}
		// every second character is doubled
		if i%2 == 1 {
			v *= 2
		}
		sum += v/10 + v%10
	}

	expected := (10 - sum%10) % 10
	actual := int(cusip[8] - '0')
	if expected != actual {
		return fmt.Errorf("invalid check digit: expected %d, got %d", expected, actual)
	}
	return nil
}

// Issuer returns the 6-character issuer part of the CUSIP.
func (c CUSIP) Issuer() string {
	if len(c) < 6 {
		return string(c)
	}
	return string(c[:6])
}

func (c CUSIP) String() string { return string(c) }
