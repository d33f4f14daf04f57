package holdings

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"sync"

	"github.com/etnz/holdings/date"
)

// SnapshotStore persists filed snapshots in a directory tree:
//
//	<root>/<YYYYQn>/<cik>.jsonl      version 1
//	<root>/<YYYYQn>/<cik>.v2.jsonl   version 2 (amendment), and so on
//
// Files are never rewritten: a snapshot that already exists with a different
// content is a conflict.
type SnapshotStore struct {
	root string
}

// NewSnapshotStore returns a store rooted at root.
func NewSnapshotStore(root string) *SnapshotStore { return &SnapshotStore{root: root} }

var snapshotFileRegex = regexp.MustCompile(`^([0-9]+)(?:\.v([0-9]+))?\.jsonl$`)

func (st *SnapshotStore) filename(fund CIK, q date.Quarter, version int) string {
	name := string(fund) + ".jsonl"
	if version > 1 {
		name = fmt.Sprintf("%s.v%d.jsonl", fund, version)
	}
	return filepath.Join(st.root, q.String(), name)
}

// Put writes s under its version. Writing the same content again is a no-op;
// a different content fails with ErrSnapshotConflict.
func (st *SnapshotStore) Put(s *Snapshot) error {
	if s.Synthesized() {
		return fmt.Errorf("cannot store synthesized snapshot %s %s", s.Fund(), s.Quarter())
	}
	existing, err := st.GetVersion(s.Fund(), s.Quarter(), s.Version())
	switch {
	case err == nil:
		if existing.Equal(s) {
			return nil
		}
		return fmt.Errorf("%w: %s %s v%d already exists with a different content", ErrSnapshotConflict, s.Fund(), s.Quarter(), s.Version())
	case !errors.Is(err, fs.ErrNotExist):
		return err
	}

	var buf bytes.Buffer
	if err := EncodeSnapshot(&buf, s); err != nil {
		return err
	}
	return writeFileAtomic(st.filename(s.Fund(), s.Quarter(), s.Version()), buf.Bytes())
}

// PutVersion stores s as a new version of the (fund, quarter) snapshot, unless
// the latest version already holds the same content. It returns the stored snapshot.
func (st *SnapshotStore) PutVersion(s *Snapshot) (*Snapshot, error) {
	versions, err := st.Versions(s.Fund(), s.Quarter())
	if err != nil {
		return nil, err
	}
	version := 1
	if len(versions) > 0 {
		last := versions[len(versions)-1]
		latest, err := st.GetVersion(s.Fund(), s.Quarter(), last)
		if err != nil {
			return nil, err
		}
		if latest.Equal(s) {
			return latest, nil
		}
		version = last + 1
	}
	h := s.Header()
	h.Version = version
	v, err := NewSnapshot(h, slices.Collect(s.Records()))
	if err != nil {
		return nil, err
	}
	return v, st.Put(v)
}

// GetVersion reads one version of a snapshot. A missing snapshot returns an
// error wrapping fs.ErrNotExist.
func (st *SnapshotStore) GetVersion(fund CIK, q date.Quarter, version int) (*Snapshot, error) {
	filename := st.filename(fund, q, version)
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s %s v%d: %w", fund, q, version, err)
	}
	return DecodeSnapshot(filename, bytes.NewReader(content))
}

// Get reads the latest version of the (fund, quarter) snapshot.
func (st *SnapshotStore) Get(fund CIK, q date.Quarter) (*Snapshot, error) {
	versions, err := st.Versions(fund, q)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, fmt.Errorf("snapshot %s %s: %w", fund, q, fs.ErrNotExist)
	}
	return st.GetVersion(fund, q, versions[len(versions)-1])
}

// Versions lists the stored versions of a (fund, quarter) snapshot in increasing order.
func (st *SnapshotStore) Versions(fund CIK, q date.Quarter) ([]int, error) {
	entries, err := os.ReadDir(filepath.Join(st.root, q.String()))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var versions []int
	for _, e := range entries {
		m := snapshotFileRegex.FindStringSubmatch(e.Name())
		if m == nil || m[1] != string(fund) {
			continue
		}
		v := 1
		if m[2] != "" {
			v, _ = strconv.Atoi(m[2])
		}
		versions = append(versions, v)
	}
	slices.Sort(versions)
	return versions, nil
}

// Quarters lists the quarters with a snapshot for fund, in chronological order.
func (st *SnapshotStore) Quarters(fund CIK) ([]date.Quarter, error) {
	entries, err := os.ReadDir(st.root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var quarters []date.Quarter
	for _, e := range entries {
		q, err := date.ParseQuarter(e.Name())
		if err != nil || !e.IsDir() {
			continue
		}
		if _, err := os.Stat(st.filename(fund, q, 1)); err == nil {
			quarters = append(quarters, q)
		}
	}
	slices.SortFunc(quarters, func(a, b date.Quarter) int {
		switch {
		case a.Before(b):
			return -1
		case b.Before(a):
			return 1
		}
		return 0
	})
	return quarters, nil
}

// Latest returns the snapshot of the most recent quarter.
func (st *SnapshotStore) Latest(fund CIK) (*Snapshot, error) {
	quarters, err := st.Quarters(fund)
	if err != nil {
		return nil, err
	}
	if len(quarters) == 0 {
		return nil, fmt.Errorf("no snapshot for %s: %w", fund, fs.ErrNotExist)
	}
	return st.Get(fund, quarters[len(quarters)-1])
}

// Previous returns the most recent snapshot strictly before q.
func (st *SnapshotStore) Previous(fund CIK, q date.Quarter) (*Snapshot, error) {
	quarters, err := st.Quarters(fund)
	if err != nil {
		return nil, err
	}
	for i := len(quarters) - 1; i >= 0; i-- {
		if quarters[i].Before(q) {
			return st.Get(fund, quarters[i])
		}
	}
	return nil, fmt.Errorf("no snapshot for %s before %s: %w", fund, q, fs.ErrNotExist)
}

// Next returns the earliest snapshot strictly after q.
func (st *SnapshotStore) Next(fund CIK, q date.Quarter) (*Snapshot, error) {
	quarters, err := st.Quarters(fund)
	if err != nil {
		return nil, err
	}
	for _, p := range quarters {
		if q.Before(p) {
			return st.Get(fund, p)
		}
	}
	return nil, fmt.Errorf("no snapshot for %s after %s: %w", fund, q, fs.ErrNotExist)
}

// Availability returns the first day a snapshot is public: its filing date, or
// the day after its quarter end when the filing date is unknown.
func Availability(s *Snapshot) date.Date {
	if !s.FiledOn().IsZero() {
		return s.FiledOn()
	}
	return s.Quarter().End().Add(1)
}

// writeFileAtomic writes content to a temporary file then renames it.
func writeFileAtomic(filename string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(filename), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filename)
}

// EventCache is the append-only JSONL file of attributed events.
type EventCache struct {
	filename string
	mu       sync.Mutex
}

// NewEventCache returns the cache stored in filename.
func NewEventCache(filename string) *EventCache { return &EventCache{filename: filename} }

// Append adds events at the end of the cache.
func (c *EventCache) Append(events ...EventFiling) error {
	if len(events) == 0 {
		return nil
	}
	var buf bytes.Buffer
	if err := EncodeEvents(&buf, events); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(c.filename), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(c.filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("cannot open %q for writing: %w", c.filename, err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// all reads every event line. A missing file is an empty cache.
func (c *EventCache) all() ([]EventFiling, error) {
	c.mu.Lock()
	content, err := os.ReadFile(c.filename)
	c.mu.Unlock()
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return DecodeEvents(c.filename, bytes.NewReader(content))
}

// Load reads every event, drops superseded filings and returns them sorted.
func (c *EventCache) Load() ([]EventFiling, error) {
	events, err := c.all()
	if err != nil {
		return nil, err
	}
	return DedupeEvents(events), nil
}

// ForFund returns the events attributed to fund.
func (c *EventCache) ForFund(fund CIK) ([]EventFiling, error) {
	events, err := c.Load()
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(events, func(e EventFiling) bool { return e.Fund != fund }), nil
}

// Accessions returns the set of accession numbers already cached, superseded ones included.
func (c *EventCache) Accessions() (map[string]bool, error) {
	events, err := c.all()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(events))
	for _, e := range events {
		seen[e.Accession] = true
	}
	return seen, nil
}
