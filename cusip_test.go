package holdings

import (
	"errors"
	"testing"
)

func TestValidateCUSIP(t *testing.T) {
	testCases := []struct {
		cusip   string
		wantErr bool
	}{
		{"037833100", false}, // Apple
		{"594918104", false}, // Microsoft
		{"67066G104", false}, // NVIDIA
		{"02079K305", false}, // Alphabet A
		{"084670702", false}, // Berkshire B
		{"037833101", true},  // bad check digit
		{"03783310", true},   // too short
		{"0378331000", true}, // too long
		{"03783310A", true},  // check must be a digit
		{"03783-100", true},  // bad character
		{"", true},
	}
	for _, tc := range testCases {
		t.Run(tc.cusip, func(t *testing.T) {
			err := ValidateCUSIP(tc.cusip)
			if (err != nil) != tc.wantErr {
				t.Errorf("ValidateCUSIP(%q) error = %v, wantErr %v", tc.cusip, err, tc.wantErr)
			}
		})
	}
}

func TestNewCUSIP(t *testing.T) {
	got, err := NewCUSIP(" 67066g104 ")
	if err != nil {
		t.Fatalf("NewCUSIP() error = %v", err)
	}
	if got != "67066G104" {
		t.Errorf("NewCUSIP() = %q, want %q", got, "67066G104")
	}
	if got.Issuer() != "67066G" {
		t.Errorf("Issuer() = %q, want %q", got.Issuer(), "67066G")
	}

	_, err = NewCUSIP("123456789")
	if !errors.Is(err, ErrInvalidCUSIP) {
		t.Errorf("NewCUSIP() error = %v, want ErrInvalidCUSIP", err)
	}
}
