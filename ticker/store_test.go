package ticker

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/etnz/holdings"
	"github.com/google/go-cmp/cmp"
)

// stores returns a fresh instance of every Store implementation.
func stores(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()
	fs, err := OpenFileStore(filepath.Join(dir, "tickers.csv"))
	if err != nil {
		t.Fatalf("OpenFileStore() error = %v", err)
	}
	sql, err := OpenSQLStore(filepath.Join(dir, "tickers.db"))
	if err != nil {
		t.Fatalf("OpenSQLStore() error = %v", err)
	}
	return map[string]Store{"file": fs, "sql": sql}
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2025, 2, 14, 8, 30, 0, 0, time.UTC)
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			defer s.Close()
			if _, ok, err := s.Get(ctx, apple); ok || err != nil {
				t.Fatalf("Get() on empty store = %v, %v", ok, err)
			}

			e := holdings.TickerEntry{CUSIP: apple, Ticker: "AAPL", Name: "APPLE INC", Source: "keyless-provider", ResolvedAt: at}
			if err := s.Put(ctx, e); err != nil {
				t.Fatalf("Put() error = %v", err)
			}
			got, ok, err := s.Get(ctx, apple)
			if err != nil || !ok {
				t.Fatalf("Get() = %v, %v", ok, err)
			}
			if diff := cmp.Diff(e, got); diff != "" {
				t.Errorf("Get() mismatch (-want +got):\n%s", diff)
			}

			e.Source, e.ResolvedAt = "manual", at.Add(time.Hour)
			if err := s.Put(ctx, e); err != nil {
				t.Fatalf("Put() error = %v", err)
			}
			if got, _, _ := s.Get(ctx, apple); got.Source != "manual" {
				t.Errorf("Get().Source = %q, want manual", got.Source)
			}

			if got, ok, err := s.FindTicker(ctx, "aapl"); err != nil || !ok || got.CUSIP != apple {
				t.Errorf("FindTicker(aapl) = %+v, %v, %v", got, ok, err)
			}
			if _, ok, err := s.FindTicker(ctx, "KO"); ok || err != nil {
				t.Errorf("FindTicker(KO) = %v, %v, want not found", ok, err)
			}
		})
	}
}

func TestFileStore_ReopenAndCompact(t *testing.T) {
	ctx := context.Background()
	filename := filepath.Join(t.TempDir(), "cache", "tickers.csv")
	s, err := OpenFileStore(filename)
	if err != nil {
		t.Fatalf("OpenFileStore() error = %v", err)
	}
	at := time.Date(2025, 2, 14, 8, 30, 0, 0, time.UTC)
	s.Put(ctx, holdings.TickerEntry{CUSIP: coke, Ticker: "KO", Name: "COCA COLA CO", Source: "reference", ResolvedAt: at})
	s.Put(ctx, holdings.TickerEntry{CUSIP: apple, Ticker: "AAPL", Name: "APPLE INC", Source: "keyless-provider", ResolvedAt: at})
	s.Put(ctx, holdings.TickerEntry{CUSIP: apple, Ticker: "AAPL", Name: "Apple Inc.", Source: "manual", ResolvedAt: at})

	raw, _ := os.ReadFile(filename)
	if n := strings.Count(string(raw), "\n"); n != 4 {
		t.Errorf("appended file has %d lines, want 4:\n%s", n, raw)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	raw, _ = os.ReadFile(filename)
	want := "cusip,ticker,name,source,resolved_at\n" +
		"037833100,AAPL,Apple Inc.,manual,2025-02-14T08:30:00Z\n" +
		"191216100,KO,COCA COLA CO,reference,2025-02-14T08:30:00Z\n"
	if string(raw) != want {
		t.Errorf("compacted file =\n%s\nwant\n%s", raw, want)
	}

	s, err = OpenFileStore(filename)
	if err != nil {
		t.Fatalf("OpenFileStore() error = %v", err)
	}
	if got := len(s.Entries()); got != 2 {
		t.Errorf("Entries() = %d entries, want 2", got)
	}
	if got, ok, _ := s.Get(ctx, apple); !ok || got.Name != "Apple Inc." || !got.ResolvedAt.Equal(at) {
		t.Errorf("Get() after reopen = %+v, %v", got, ok)
	}
}

func TestOpenFileStore_Invalid(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "tickers.csv")
	os.WriteFile(filename, []byte("cusip,ticker,name,source,resolved_at\n123456789,X,x,manual,\n"), 0644)
	if _, err := OpenFileStore(filename); err == nil {
		t.Error("OpenFileStore() expected an error for an invalid CUSIP")
	}
}
