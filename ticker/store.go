package ticker

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/etnz/holdings"
)

// Store persists resolved tickers across runs.
type Store interface {
	// Get returns the entry of cusip, found is false when unknown.
	Get(ctx context.Context, cusip holdings.CUSIP) (e holdings.TickerEntry, found bool, err error)
	// Put inserts or replaces the entry of e.CUSIP.
	Put(ctx context.Context, e holdings.TickerEntry) error
	// FindTicker returns an entry with the given ticker.
	FindTicker(ctx context.Context, ticker string) (e holdings.TickerEntry, found bool, err error)
	Close() error
}

var fileHeader = []string{"cusip", "ticker", "name", "source", "resolved_at"}

// FileStore is a Store backed by an append-only CSV file.
//
// Later rows replace earlier ones for the same CUSIP; Close rewrites the file
// with one row per CUSIP.
type FileStore struct {
	filename string
	entries  sync.Map // holdings.CUSIP -> holdings.TickerEntry

	mu    sync.Mutex // guards the file
	dirty bool
}

// OpenFileStore loads filename, which may not exist yet.
func OpenFileStore(filename string) (*FileStore, error) {
	s := &FileStore{filename: filename}
	f, err := os.Open(filename)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	entries, err := readEntries(f)
	if err != nil {
		return nil, fmt.Errorf("reading ticker cache %q: %w", filename, err)
	}
	seen := make(map[holdings.CUSIP]bool, len(entries))
	for _, e := range entries {
		if seen[e.CUSIP] {
			s.dirty = true
		}
		seen[e.CUSIP] = true
		s.entries.Store(e.CUSIP, e)
	}
	return s, nil
}

func readEntries(r io.Reader) ([]holdings.TickerEntry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(fileHeader)
	var entries []holdings.TickerEntry
	for line := 1; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			return entries, nil
		}
		if err != nil {
			return nil, err
		}
		if line == 1 && slices.Equal(row, fileHeader) {
			continue
		}
		c, err := holdings.NewCUSIP(row[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		e := holdings.TickerEntry{CUSIP: c, Ticker: strings.ToUpper(row[1]), Name: row[2], Source: row[3]}
		if row[4] != "" {
			if e.ResolvedAt, err = time.Parse(time.RFC3339, row[4]); err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
		}
		entries = append(entries, e)
	}
}

func entryRow(e holdings.TickerEntry) []string {
	var at string
	if !e.ResolvedAt.IsZero() {
		at = e.ResolvedAt.UTC().Format(time.RFC3339)
	}
	return []string{string(e.CUSIP), e.Ticker, e.Name, e.Source, at}
}

// Get implements Store.
func (s *FileStore) Get(_ context.Context, cusip holdings.CUSIP) (holdings.TickerEntry, bool, error) {
	v, ok := s.entries.Load(cusip)
	if !ok {
		return holdings.TickerEntry{}, false, nil
	}
	return v.(holdings.TickerEntry), true, nil
}

// Put implements Store. The entry is appended to the file immediately.
func (s *FileStore) Put(_ context.Context, e holdings.TickerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.entries.Swap(e.CUSIP, e)
	if existed && prev.(holdings.TickerEntry) == e {
		return nil
	}
	if existed {
		s.dirty = true
	}

	if err := os.MkdirAll(filepath.Dir(s.filename), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(s.filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	w := csv.NewWriter(f)
	if info.Size() == 0 {
		w.Write(fileHeader)
	}
	w.Write(entryRow(e))
	w.Flush()
	return errors.Join(w.Error(), f.Close())
}

// FindTicker implements Store. When several CUSIPs share the ticker the
// smallest CUSIP is returned.
func (s *FileStore) FindTicker(_ context.Context, ticker string) (holdings.TickerEntry, bool, error) {
	ticker = strings.ToUpper(ticker)
	var found holdings.TickerEntry
	s.entries.Range(func(_, v any) bool {
		e := v.(holdings.TickerEntry)
		if e.Ticker == ticker && (found.CUSIP == "" || e.CUSIP < found.CUSIP) {
			found = e
		}
		return true
	})
	return found, found.CUSIP != "", nil
}

// Entries returns all entries sorted by CUSIP.
func (s *FileStore) Entries() []holdings.TickerEntry {
	var entries []holdings.TickerEntry
	s.entries.Range(func(_, v any) bool {
		entries = append(entries, v.(holdings.TickerEntry))
		return true
	})
	slices.SortFunc(entries, func(a, b holdings.TickerEntry) int { return strings.Compare(string(a.CUSIP), string(b.CUSIP)) })
	return entries
}

// Close compacts the file when entries were replaced.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return nil
	}
	tmp := s.filename + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	w.Write(fileHeader)
	for _, e := range s.Entries() {
		w.Write(entryRow(e))
	}
	w.Flush()
	if err := errors.Join(w.Error(), f.Close()); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, s.filename); err != nil {
		return err
	}
	s.dirty = false
	return nil
}
