package holdings

import (
	"errors"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/etnz/holdings/date"
)

func TestCurrent(t *testing.T) {
	dir := t.TempDir()
	st := NewSnapshotStore(filepath.Join(dir, "snapshots"))
	cache := NewEventCache(filepath.Join(dir, "events.jsonl"))

	for _, s := range []*Snapshot{
		snap(t, "2025Q1", rec(AAPL, "AAPL", 1000, 150000)),
		snap(t, "2025Q2", rec(AAPL, "AAPL", 800, 120000)),
	} {
		if err := st.Put(s); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}
	if err := cache.Append(sale(AAPL, "2025-05-10", 200), sale(AAPL, "2025-07-15", 100)); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	testCases := []struct {
		quarter    string
		wantBase   string
		wantShares float64
		wantAsOf   date.Date
	}{
		// the 2025Q2 snapshot is available on 2025-07-01: later events belong to it.
		{"2025Q1", "2025Q1", 800, date.New(2025, 5, 10)},
		{"", "2025Q2", 700, date.New(2025, 7, 15)},
	}
	for _, tc := range testCases {
		t.Run(tc.wantBase, func(t *testing.T) {
			var q date.Quarter
			if tc.quarter != "" {
				q = date.MustParseQuarter(tc.quarter)
			}
			base, current, warnings, err := Current(st, cache, fundF, q)
			if err != nil {
				t.Fatalf("Current() error = %v", err)
			}
			if len(warnings) != 0 {
				t.Errorf("Current() warnings = %v, want none", warnings)
			}
			if base.Quarter().String() != tc.wantBase || base.Synthesized() {
				t.Errorf("Current() base = %v, want the filed %s snapshot", base, tc.wantBase)
			}
			r, _ := current.Record(AAPL)
			if !r.Shares.Equal(Q(tc.wantShares)) {
				t.Errorf("Current() AAPL shares = %v, want %v", r.Shares, tc.wantShares)
			}
			if current.AsOf() != tc.wantAsOf {
				t.Errorf("Current() AsOf = %v, want %v", current.AsOf(), tc.wantAsOf)
			}
		})
	}

	if _, _, _, err := Current(st, cache, "42", date.Quarter{}); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Current() error = %v, want fs.ErrNotExist", err)
	}
}
