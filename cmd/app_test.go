package cmd

import (
	"strings"
	"testing"

	"github.com/etnz/holdings"
	"github.com/etnz/holdings/date"
)

func testRoster(t *testing.T) *holdings.Roster {
	t.Helper()
	r, err := holdings.DecodeRoster(strings.NewReader(`
- cik: "1067983"
  name: Berkshire Hathaway
  manager: Warren Buffett
  aliases: ["315090"]
- cik: "1336528"
  name: Pershing Square Capital Management
  manager: Bill Ackman
`))
	if err != nil {
		t.Fatalf("DecodeRoster() error = %v", err)
	}
	return r
}

func TestFund(t *testing.T) {
	roster := testRoster(t)
	testCases := []struct {
		arg     string
		want    holdings.CIK
		wantErr bool
	}{
		{"1067983", "1067983", false},
		{"0001067983", "1067983", false},
		{"315090", "1067983", false}, // alias
		{"Pershing Square Capital Management", "1336528", false},
		{"42", "", true},
		{"Renaissance Technologies", "", true},
	}
	for _, tc := range testCases {
		t.Run(tc.arg, func(t *testing.T) {
			got, err := fund(roster, tc.arg, 0.85)
			if (err != nil) != tc.wantErr {
				t.Fatalf("fund(%q) error = %v, wantErr %v", tc.arg, err, tc.wantErr)
			}
			if got.CIK != tc.want {
				t.Errorf("fund(%q) = %q, want %q", tc.arg, got.CIK, tc.want)
			}
		})
	}
}

func TestWriteMarkdownRaw(t *testing.T) {
	var b strings.Builder
	writeMarkdown(&b, "# Title\n", true)
	if got := b.String(); got != "# Title\n" {
		t.Errorf("writeMarkdown() = %q, want the raw markdown", got)
	}
}

func TestLatestQuarter(t *testing.T) {
	st := holdings.NewSnapshotStore(t.TempDir())
	if _, err := latestQuarter(st, []holdings.CIK{"1067983"}); err == nil {
		t.Error("latestQuarter() error = nil on an empty store, want an error")
	}

	for _, s := range []struct {
		fund    holdings.CIK
		quarter string
	}{
		{"1067983", "2024Q4"},
		{"1067983", "2025Q1"},
		{"1336528", "2025Q2"},
	} {
		snap, err := holdings.NewSnapshot(holdings.SnapshotHeader{Fund: s.fund, Quarter: date.MustParseQuarter(s.quarter)}, []holdings.HoldingRecord{
			{CUSIP: "037833100", Ticker: "AAPL", Issuer: "APPLE INC", Class: "COM", Shares: holdings.Q(1), Value: holdings.Dollars(100)},
		})
		if err != nil {
			t.Fatalf("NewSnapshot() error = %v", err)
		}
		if err := st.Put(snap); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}

	testCases := []struct {
		funds []holdings.CIK
		want  string
	}{
		{[]holdings.CIK{"1067983"}, "2025Q1"},
		{[]holdings.CIK{"1067983", "1336528"}, "2025Q2"},
		{[]holdings.CIK{"42", "1067983"}, "2025Q1"},
	}
	for _, tc := range testCases {
		got, err := latestQuarter(st, tc.funds)
		if err != nil {
			t.Fatalf("latestQuarter(%v) error = %v", tc.funds, err)
		}
		if got.String() != tc.want {
			t.Errorf("latestQuarter(%v) = %s, want %s", tc.funds, got, tc.want)
		}
	}
}
