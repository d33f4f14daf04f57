package holdings

import (
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"github.com/etnz/holdings/date"
	"github.com/google/go-cmp/cmp"
)

const (
	fundP CIK = "1336528"
	fundN CIK = "1000001"
)

var AAPLNotes = MustCUSIP("037833AB6")

// fundSnap is a helper for test to create a filed snapshot of any fund.
func fundSnap(t *testing.T, fund CIK, quarter string, records ...HoldingRecord) *Snapshot {
	t.Helper()
	s, err := NewSnapshot(SnapshotHeader{Fund: fund, Quarter: date.MustParseQuarter(quarter)}, records)
	if err != nil {
		t.Fatalf("NewSnapshot() error = %v", err)
	}
	return s
}

// stockQuarter returns three funds at 2025Q2: fundF adds to AAPL, fundP
// closes it, and fundN files for the first time with AAPL under two CUSIPs.
func stockQuarter(t *testing.T) []FundQuarter {
	t.Helper()
	return []FundQuarter{
		{
			Prior:   fundSnap(t, fundF, "2025Q1", rec(AAPL, "AAPL", 1000, 150000), rec(KO, "KO", 100, 6000)),
			Current: fundSnap(t, fundF, "2025Q2", rec(AAPL, "AAPL", 1200, 240000), rec(KO, "KO", 100, 7000)),
		},
		{
			Prior:   fundSnap(t, fundP, "2025Q1", rec(AAPL, "AAPL", 500, 75000), rec(MSFT, "MSFT", 10, 4000)),
			Current: fundSnap(t, fundP, "2025Q2", rec(MSFT, "MSFT", 10, 5000), rec(KO, "KO", 50, 3500)),
		},
		{
			Current: fundSnap(t, fundN, "2025Q2", rec(AAPL, "AAPL", 100, 20000), rec(AAPLNotes, "AAPL", 50, 10000), rec(NVDA, "", 10, 1000)),
		},
	}
}

func TestAnalyzeStock(t *testing.T) {
	q2 := date.MustParseQuarter("2025Q2")
	funds := stockQuarter(t)

	testCases := []struct {
		ticker     string
		wantFunds  []CIK
		wantClass  []Classification
		wantCounts []int // holders, buyers, sellers, new holders, closed
	}{
		{"AAPL", []CIK{fundF, fundN, fundP}, []Classification{Increased, New, Closed}, []int{2, 2, 1, 1, 1}},
		{" aapl ", []CIK{fundF, fundN, fundP}, []Classification{Increased, New, Closed}, []int{2, 2, 1, 1, 1}},
		{"KO", []CIK{fundF, fundP}, []Classification{Unchanged, New}, []int{2, 1, 0, 1, 0}},
		{"MSFT", []CIK{fundP}, []Classification{Unchanged}, []int{1, 0, 0, 0, 0}},
		// unresolved securities are found by CUSIP.
		{"67066g104", []CIK{fundN}, []Classification{New}, []int{1, 1, 0, 1, 0}},
		{"TSLA", nil, nil, []int{0, 0, 0, 0, 0}},
	}
	for _, tc := range testCases {
		t.Run(tc.ticker, func(t *testing.T) {
			r, err := AnalyzeStock(tc.ticker, q2, funds)
			if err != nil {
				t.Fatalf("AnalyzeStock() error = %v", err)
			}
			var gotFunds []CIK
			var gotClass []Classification
			for _, p := range r.Positions {
				gotFunds = append(gotFunds, p.Fund)
				gotClass = append(gotClass, p.Classification)
			}
			if diff := cmp.Diff(tc.wantFunds, gotFunds); diff != "" {
				t.Errorf("AnalyzeStock() funds mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tc.wantClass, gotClass); diff != "" {
				t.Errorf("AnalyzeStock() classifications mismatch (-want +got):\n%s", diff)
			}
			got := []int{r.Holders, r.Buyers, r.Sellers, r.NewHolders, r.Closed}
			if !slices.Equal(got, tc.wantCounts) {
				t.Errorf("AnalyzeStock() holders, buyers, sellers, new, closed = %v, want %v", got, tc.wantCounts)
			}
		})
	}
}

func TestAnalyzeStock_Positions(t *testing.T) {
	r, err := AnalyzeStock("AAPL", date.MustParseQuarter("2025Q2"), stockQuarter(t))
	if err != nil {
		t.Fatalf("AnalyzeStock() error = %v", err)
	}
	if len(r.Positions) != 3 {
		t.Fatalf("len(Positions) = %d, want 3", len(r.Positions))
	}
	if r.Ticker != "AAPL" || !r.Shares.Equal(Q(1350)) || !r.Value.Equal(Dollars(270000)) || !r.ValueChange.Equal(Dollars(45000)) {
		t.Errorf("AnalyzeStock() totals = %s %v %v %v, want AAPL 1350 $270,000.00 $45,000.00", r.Ticker, r.Shares, r.Value, r.ValueChange)
	}

	added := r.Positions[0]
	if !added.PercentChange.Equal(20) || !added.SharesChange().Equal(Q(200)) || !added.ValueChange.Equal(Dollars(90000)) {
		t.Errorf("increased position = %v %v %v, want +20%% 200 $90,000.00", added.PercentChange, added.SharesChange(), added.ValueChange)
	}
	if want := Percent(240000.0 / 247000.0 * 100); !added.PortfolioPercent.Equal(want) {
		t.Errorf("PortfolioPercent = %v, want %v", added.PortfolioPercent, want)
	}

	// both CUSIPs of the first filer are summed.
	first := r.Positions[1]
	if diff := cmp.Diff([]CUSIP{AAPL, AAPLNotes}, first.CUSIPs); diff != "" {
		t.Errorf("CUSIPs mismatch (-want +got):\n%s", diff)
	}
	if !first.Shares.Equal(Q(150)) || !first.Value.Equal(Dollars(30000)) || !first.PercentChange.IsInfinite() {
		t.Errorf("new position = %v %v %v, want 150 $30,000.00 ∞", first.Shares, first.Value, first.PercentChange)
	}
	if want := Percent(30000.0 / 31000.0 * 100); !first.PortfolioPercent.Equal(want) {
		t.Errorf("PortfolioPercent = %v, want %v", first.PortfolioPercent, want)
	}

	closed := r.Positions[2]
	if closed.PercentChange != PercentClosed || !closed.PriorShares.Equal(Q(500)) || !closed.ValueChange.Equal(Dollars(-75000)) {
		t.Errorf("closed position = %v %v %v, want -100%% 500 -$75,000.00", closed.PercentChange, closed.PriorShares, closed.ValueChange)
	}
}

func TestAnalyzeStock_WrongQuarter(t *testing.T) {
	funds := []FundQuarter{{Current: fundSnap(t, fundF, "2025Q1", rec(AAPL, "AAPL", 1, 100))}}
	if _, err := AnalyzeStock("AAPL", date.MustParseQuarter("2025Q2"), funds); !errors.Is(err, ErrInvariant) {
		t.Errorf("AnalyzeStock() error = %v, want ErrInvariant", err)
	}
}

func TestQuarterFilings(t *testing.T) {
	st := NewSnapshotStore(filepath.Join(t.TempDir(), "snapshots"))
	for _, s := range []*Snapshot{
		fundSnap(t, fundF, "2025Q1", rec(AAPL, "AAPL", 1000, 150000)),
		fundSnap(t, fundF, "2025Q2", rec(AAPL, "AAPL", 1200, 240000)),
		fundSnap(t, fundP, "2025Q1", rec(AAPL, "AAPL", 500, 75000)),
		fundSnap(t, fundN, "2025Q2", rec(AAPL, "AAPL", 100, 20000)),
	} {
		if err := st.Put(s); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}

	q2 := date.MustParseQuarter("2025Q2")
	fqs, err := QuarterFilings(st, []CIK{fundF, fundP, fundN}, q2)
	if err != nil {
		t.Fatalf("QuarterFilings() error = %v", err)
	}
	if len(fqs) != 2 {
		t.Fatalf("len(QuarterFilings()) = %d, want 2: fundP did not file for 2025Q2", len(fqs))
	}
	if fqs[0].Current.Fund() != fundF || fqs[0].Prior == nil || fqs[0].Prior.Quarter() != date.MustParseQuarter("2025Q1") {
		t.Errorf("QuarterFilings()[0] = %s with prior %v, want fundF with 2025Q1", fqs[0].Current.Fund(), fqs[0].Prior)
	}
	if fqs[1].Current.Fund() != fundN || fqs[1].Prior != nil {
		t.Errorf("QuarterFilings()[1] = %s with prior %v, want fundN without prior", fqs[1].Current.Fund(), fqs[1].Prior)
	}

	r, err := AnalyzeStock("AAPL", q2, fqs)
	if err != nil {
		t.Fatalf("AnalyzeStock() error = %v", err)
	}
	if r.Buyers != 2 || r.NewHolders != 1 {
		t.Errorf("AnalyzeStock() buyers, new = %d, %d, want 2, 1", r.Buyers, r.NewHolders)
	}
}
