package holdings

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/etnz/holdings/date"
)

func TestSnapshotStore(t *testing.T) {
	st := NewSnapshotStore(t.TempDir())
	q1 := snap(t, "2025Q1", rec(AAPL, "AAPL", 1000, 150000))
	q2 := snap(t, "2025Q2", rec(MSFT, "MSFT", 500, 200000))

	for _, s := range []*Snapshot{q2, q1} {
		if err := st.Put(s); err != nil {
			t.Fatalf("Put(%v) error = %v", s, err)
		}
	}
	if _, err := os.Stat(filepath.Join(st.root, "2025Q1", "1067983.jsonl")); err != nil {
		t.Errorf("snapshot file missing: %v", err)
	}

	t.Run("idempotent put", func(t *testing.T) {
		if err := st.Put(snap(t, "2025Q1", rec(AAPL, "AAPL", 1000, 150000))); err != nil {
			t.Errorf("Put() error = %v, want nil for the same content", err)
		}
	})

	t.Run("conflicting put", func(t *testing.T) {
		err := st.Put(snap(t, "2025Q1", rec(AAPL, "AAPL", 999, 150000)))
		if !errors.Is(err, ErrSnapshotConflict) {
			t.Errorf("Put() error = %v, want ErrSnapshotConflict", err)
		}
	})

	t.Run("navigation", func(t *testing.T) {
		latest, err := st.Latest(fundF)
		if err != nil || !latest.Equal(q2) {
			t.Errorf("Latest() = %v, %v, want %v", latest, err, q2)
		}
		prev, err := st.Previous(fundF, date.MustParseQuarter("2025Q2"))
		if err != nil || !prev.Equal(q1) {
			t.Errorf("Previous() = %v, %v, want %v", prev, err, q1)
		}
		next, err := st.Next(fundF, date.MustParseQuarter("2025Q1"))
		if err != nil || !next.Equal(q2) {
			t.Errorf("Next() = %v, %v, want %v", next, err, q2)
		}
		if _, err := st.Previous(fundF, date.MustParseQuarter("2025Q1")); !errors.Is(err, fs.ErrNotExist) {
			t.Errorf("Previous() error = %v, want fs.ErrNotExist", err)
		}
		if _, err := st.Get("42", date.MustParseQuarter("2025Q1")); !errors.Is(err, fs.ErrNotExist) {
			t.Errorf("Get() error = %v, want fs.ErrNotExist", err)
		}
	})

	t.Run("new version", func(t *testing.T) {
		amended := snap(t, "2025Q1", rec(AAPL, "AAPL", 1100, 165000))
		v, err := st.PutVersion(amended)
		if err != nil {
			t.Fatalf("PutVersion() error = %v", err)
		}
		if v.Version() != 2 {
			t.Errorf("Version() = %d, want 2", v.Version())
		}
		again, err := st.PutVersion(amended)
		if err != nil || again.Version() != 2 {
			t.Errorf("PutVersion() = %v, %v, want the existing version 2", again, err)
		}
		got, err := st.Get(fundF, date.MustParseQuarter("2025Q1"))
		if err != nil || !got.Equal(amended) {
			t.Errorf("Get() = %v, %v, want the amendment", got, err)
		}
		if orig, err := st.GetVersion(fundF, date.MustParseQuarter("2025Q1"), 1); err != nil || !orig.Equal(q1) {
			t.Errorf("GetVersion(1) = %v, %v, want the original", orig, err)
		}
	})

	t.Run("synthesized", func(t *testing.T) {
		merged, _, _ := Merge(q2, nil, date.Date{})
		if err := st.Put(merged); err == nil {
			t.Error("Put() expected an error for a synthesized snapshot")
		}
	})
}

func TestAvailability(t *testing.T) {
	s := snap(t, "2025Q2")
	if got, want := Availability(s), date.New(2025, 7, 1); got != want {
		t.Errorf("Availability() = %v, want %v", got, want)
	}
	filed, _ := NewSnapshot(SnapshotHeader{Fund: fundF, Quarter: s.Quarter(), FiledOn: date.New(2025, 8, 14)}, nil)
	if got, want := Availability(filed), date.New(2025, 8, 14); got != want {
		t.Errorf("Availability() = %v, want %v", got, want)
	}
}

func TestEventCache(t *testing.T) {
	c := NewEventCache(filepath.Join(t.TempDir(), "events", "events.jsonl"))

	if events, err := c.Load(); err != nil || len(events) != 0 {
		t.Fatalf("Load() = %v, %v, want an empty cache", events, err)
	}

	original := EventFiling{Accession: "0001", Kind: OwnershipThreshold, Fund: fundF, CUSIP: AAPL, TransactionDate: date.New(2025, 7, 1), FiledOn: date.New(2025, 7, 3), Direction: Acquired, PostTransaction: qty(10)}
	amendment := original
	amendment.Accession, amendment.FiledOn, amendment.PostTransaction = "0002", date.New(2025, 7, 8), qty(12)
	other := original
	other.Accession, other.Fund = "0003", "42"

	if err := c.Append(original, other); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := c.Append(amendment); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	events, err := c.ForFund(fundF)
	if err != nil {
		t.Fatalf("ForFund() error = %v", err)
	}
	if len(events) != 1 || events[0].Accession != "0002" {
		t.Errorf("ForFund() = %+v, want only the amendment", events)
	}

	seen, err := c.Accessions()
	if err != nil || len(seen) != 3 {
		t.Errorf("Accessions() = %v, %v, want the 3 accessions", seen, err)
	}
}
