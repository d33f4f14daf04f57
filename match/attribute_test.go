package match

import (
	"testing"

	"github.com/etnz/holdings"
)

func testRoster(t *testing.T) *holdings.Roster {
	t.Helper()
	r, err := holdings.NewRoster([]holdings.FundIdentity{
		{CIK: "1067983", Name: "Berkshire Hathaway Inc", Denominations: []string{"BERKSHIRE HATHAWAY INC/DE"}, Aliases: []holdings.CIK{"315090"}},
		{CIK: "1649339", Name: "Scion Asset Management, LLC"},
		{CIK: "1336528", Name: "Pershing Square Capital Management, L.P."},
	})
	if err != nil {
		t.Fatalf("NewRoster() error = %v", err)
	}
	return r
}

func TestAttribute(t *testing.T) {
	roster := testRoster(t)
	testCases := []struct {
		name string
		cik  holdings.CIK
		want holdings.CIK
	}{
		{"BERKSHIRE HATHAWAY INC", "", "1067983"},
		{"Berkshire Hathaway Inc.", "", "1067983"},
		{"BUFFETT WARREN E", "315090", "1067983"}, // alias CIK
		{"anything", "1067983", "1067983"},
		{"SCION ASSET MANAGEMENT LLC", "", "1649339"},
		{"Pershing Square Capital Management LP", "", "1336528"},
		{"VANGUARD GROUP INC", "", ""},
		{"", "", ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Attribute(roster, tc.name, tc.cik, DefaultThreshold)
			if got.Fund != tc.want {
				t.Errorf("Attribute(%q, %q) = %+v, want fund %q", tc.name, tc.cik, got, tc.want)
			}
			if got.Attributed() != (tc.want != "") {
				t.Errorf("Attributed() = %v", got.Attributed())
			}
		})
	}
}

func TestAttribute_BelowThreshold(t *testing.T) {
	got := Attribute(testRoster(t), "BERKSHIRE HILLS BANCORP", "", DefaultThreshold)
	if got.Attributed() {
		t.Fatalf("Attribute() = %+v, want unattributed", got)
	}
	if got.Best != "1067983" || got.Score <= 0 || got.Score >= DefaultThreshold {
		t.Errorf("Attribute() = %+v, want Berkshire Hathaway as closest", got)
	}
}
