package date

import "testing"

// TestTime assert that the time() is cannonical and gives comparable times.
func TestTime(t *testing.T) {
	d1 := New(2025, 7, 31)
	d2 := New(2025, 7, 31)

	if d1.time() != d2.time() {
		// Note that usually time.Time are not comparable (there is a pointer for the timezone) this
		// tests also checks that the property remain true
		t.Errorf("invalid time() function same day gives two different time")
	}
}

func TestParse(t *testing.T) {
	testCases := []struct {
		in   string
		want Date
	}{
		{"2025-07-01", New(2025, 7, 1)},
		{"2025-7-1", New(2025, 7, 1)},
		{"07/01/2025", New(2025, 7, 1)},
		{" 12/31/2024 ", New(2024, 12, 31)},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := Parse(tc.in)
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tc.in, err)
			}
			if got != tc.want {
				t.Errorf("Parse(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}

	if _, err := Parse("not a date"); err == nil {
		t.Error("Parse() expected an error for an invalid date")
	}
}

func TestDate_JSON(t *testing.T) {
	var d Date
	if err := d.UnmarshalJSON([]byte(`""`)); err != nil || !d.IsZero() {
		t.Errorf("UnmarshalJSON(\"\") = %v, %v, want zero date", d, err)
	}
	if err := d.UnmarshalJSON([]byte(`"2025-03-31"`)); err != nil {
		t.Fatalf("UnmarshalJSON() error = %v", err)
	}
	got, err := d.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON() error = %v", err)
	}
	if want := `"2025-03-31"`; string(got) != want {
		t.Errorf("MarshalJSON() = %s, want %s", got, want)
	}
}
