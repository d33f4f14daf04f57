package holdings

import (
	"testing"

	"github.com/etnz/holdings/date"
)

// sale is a helper for test to create a Form 4 event of fundF.
func sale(cusip CUSIP, on string, shares float64) EventFiling {
	return EventFiling{
		Accession:       "0000000000-25-" + on,
		Kind:            InsiderTransaction,
		Fund:            fundF,
		CUSIP:           cusip,
		TransactionDate: date.MustParse(on),
		Shares:          Q(shares),
		Direction:       Disposed,
	}
}

func TestMerge_ZeroEvents(t *testing.T) {
	q2 := snap(t, "2025Q2", rec(AAPL, "AAPL", 1000, 150000), rec(MSFT, "MSFT", 500, 200000))

	merged, warnings, err := Merge(q2, nil, date.Date{})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("Merge() warnings = %v, want none", warnings)
	}
	if !merged.Equal(q2) {
		t.Errorf("Merge() = %v, want %v", merged, q2)
	}
	if !merged.Synthesized() {
		t.Error("Synthesized() = false, want true")
	}
	if merged.AsOf() != q2.AsOf() {
		t.Errorf("AsOf() = %v, want %v", merged.AsOf(), q2.AsOf())
	}
}

func TestMerge_SaleAfterQuarterEnd(t *testing.T) {
	q2 := snap(t, "2025Q2", rec(AAPL, "AAPL", 1000, 150000), rec(MSFT, "MSFT", 500, 200000))

	merged, _, err := Merge(q2, []EventFiling{sale(AAPL, "2025-07-15", 200)}, date.Date{})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	got, _ := merged.Record(AAPL)
	if !got.Shares.Equal(Q(800)) {
		t.Errorf("merged AAPL shares = %v, want 800", got.Shares)
	}
	if !got.Value.Equal(Dollars(120000)) {
		t.Errorf("merged AAPL value = %v, want $120,000.00", got.Value)
	}
	if m, _ := merged.Record(MSFT); !m.Shares.Equal(Q(500)) {
		t.Errorf("untouched MSFT shares = %v, want 500", m.Shares)
	}
	if merged.AsOf() != date.New(2025, 7, 15) {
		t.Errorf("AsOf() = %v, want 2025-07-15", merged.AsOf())
	}

	// the filed snapshot is unchanged.
	if orig, _ := q2.Record(AAPL); !orig.Shares.Equal(Q(1000)) {
		t.Errorf("filed AAPL shares = %v, want 1000", orig.Shares)
	}

	// and the synthesized snapshot diffs like a filed one.
	deltas, err := Diff(q2, merged)
	if err != nil {
		t.Fatalf("Diff() error = %v", err)
	}
	if deltas[0].CUSIP != AAPL || deltas[0].Classification != Decreased || !deltas[0].PercentChange.Equal(-20) {
		t.Errorf("deltas[0] = %s %s %v, want AAPL DECREASED -20%%", deltas[0].DisplayTicker(), deltas[0].Classification, deltas[0].PercentChange)
	}
}

func TestMerge_DateBoundaries(t *testing.T) {
	q2 := snap(t, "2025Q2", rec(AAPL, "AAPL", 1000, 150000))
	testCases := []struct {
		name  string
		on    string
		until date.Date
		want  float64
	}{
		{"before quarter end", "2025-06-01", date.Date{}, 1000},
		{"on quarter end", "2025-06-30", date.Date{}, 1000},
		{"day after quarter end", "2025-07-01", date.Date{}, 900},
		{"before next snapshot", "2025-08-13", date.New(2025, 8, 14), 900},
		{"on next snapshot", "2025-08-14", date.New(2025, 8, 14), 1000},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			merged, _, err := Merge(q2, []EventFiling{sale(AAPL, tc.on, 100)}, tc.until)
			if err != nil {
				t.Fatalf("Merge() error = %v", err)
			}
			got, _ := merged.Record(AAPL)
			if !got.Shares.Equal(Q(tc.want)) {
				t.Errorf("merged shares = %v, want %v", got.Shares, tc.want)
			}
		})
	}
}

func TestMerge_AuthoritativeCountWins(t *testing.T) {
	q2 := snap(t, "2025Q2", rec(AAPL, "AAPL", 1000, 150000))
	buy := sale(AAPL, "2025-07-02", 300)
	buy.Direction = Acquired
	threshold := EventFiling{
		Accession:       "0000000000-25-000002",
		Kind:            OwnershipThreshold,
		Fund:            fundF,
		CUSIP:           AAPL,
		TransactionDate: date.New(2025, 7, 10),
		Direction:       Acquired,
		PostTransaction: qty(2000),
	}
	after := sale(AAPL, "2025-07-20", 500)

	// given out of order, applied chronologically: 1000 + 300 -> 2000 -> 1500
	merged, _, err := Merge(q2, []EventFiling{after, threshold, buy}, date.Date{})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if got, _ := merged.Record(AAPL); !got.Shares.Equal(Q(1500)) {
		t.Errorf("merged shares = %v, want 1500", got.Shares)
	}
}

func TestMerge_NewAndClosedSecurities(t *testing.T) {
	q2 := snap(t, "2025Q2", rec(AAPL, "AAPL", 1000, 150000), rec(KO, "KO", 10, 700))
	newPosition := EventFiling{
		Accession:       "0000000000-25-000003",
		Kind:            OwnershipThreshold,
		Fund:            fundF,
		IssuerName:      "Nvidia Corp",
		CUSIP:           NVDA,
		TransactionDate: date.New(2025, 7, 3),
		Direction:       Acquired,
		PostTransaction: qty(5000),
	}
	merged, _, err := Merge(q2, []EventFiling{newPosition, sale(KO, "2025-07-04", 10)}, date.Date{})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	n, ok := merged.Record(NVDA)
	if !ok || !n.Shares.Equal(Q(5000)) || !n.Value.IsZero() || n.Issuer != "NVIDIA CORP" {
		t.Errorf("Record(NVDA) = %+v, %v, want 5000 shares with no value", n, ok)
	}
	if _, ok := merged.Record(KO); ok {
		t.Error("Record(KO) found, want it removed after selling every share")
	}

	deltas, _ := Diff(q2, merged)
	classes := make(map[CUSIP]Classification)
	for _, d := range deltas {
		classes[d.CUSIP] = d.Classification
	}
	if classes[NVDA] != New || classes[KO] != Closed || classes[AAPL] != Unchanged {
		t.Errorf("classes = %v", classes)
	}
}

func TestMerge_FiltersAndTickerKeys(t *testing.T) {
	q2 := snap(t, "2025Q2", rec(AAPL, "AAPL", 1000, 150000))

	otherFund := sale(AAPL, "2025-07-15", 100)
	otherFund.Fund = "42"

	byTicker := sale("", "2025-07-16", 100)
	byTicker.Ticker = "aapl"

	unknown := sale("", "2025-07-17", 100)
	unknown.Ticker = "ZZZZ"

	merged, warnings, err := Merge(q2, []EventFiling{otherFund, byTicker, unknown}, date.Date{})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if got, _ := merged.Record(AAPL); !got.Shares.Equal(Q(900)) {
		t.Errorf("merged shares = %v, want 900", got.Shares)
	}
	if len(warnings) != 1 || warnings[0].Code != WarnUnkeyedEvent {
		t.Errorf("warnings = %v, want one %s", warnings, WarnUnkeyedEvent)
	}
}
