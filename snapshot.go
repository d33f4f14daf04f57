package holdings

import (
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/etnz/holdings/date"
)

// SnapshotHeader identifies a snapshot and the filing it comes from.
type SnapshotHeader struct {
	Fund      CIK
	Quarter   date.Quarter
	Version   int // 1-based, amendments produce later versions
	FiledOn   date.Date
	Accession string
}

// Snapshot is the immutable set of holdings of one fund at one quarter end.
//
// Records are unique per CUSIP and ordered by CUSIP. A Snapshot has no
// mutating method: corrections produce a new version, and merging events
// produces a new synthesized Snapshot.
type Snapshot struct {
	header      SnapshotHeader
	synthesized bool
	asOf        date.Date
	records     []HoldingRecord
	index       map[CUSIP]int
	total       Money
}

// NewSnapshot creates a Snapshot. Records sharing a CUSIP are aggregated into
// one record whose details keep every contributing row.
func NewSnapshot(h SnapshotHeader, records []HoldingRecord) (*Snapshot, error) {
	if h.Fund == "" {
		return nil, fmt.Errorf("snapshot: missing fund")
	}
	if h.Quarter.IsZero() {
		return nil, fmt.Errorf("snapshot %s: missing quarter", h.Fund)
	}
	if h.Version == 0 {
		h.Version = 1
	}
	if h.Version < 0 {
		return nil, fmt.Errorf("snapshot %s %s: invalid version %d", h.Fund, h.Quarter, h.Version)
	}
	return newSnapshot(h, records, false, h.Quarter.End())
}

func newSnapshot(h SnapshotHeader, records []HoldingRecord, synthesized bool, asOf date.Date) (*Snapshot, error) {
	s := &Snapshot{
		header:      h,
		synthesized: synthesized,
		asOf:        asOf,
		index:       make(map[CUSIP]int, len(records)),
		total:       Dollars(0),
	}
	for _, r := range records {
		if r.CUSIP == "" {
			return nil, fmt.Errorf("snapshot %s %s: record %q has no CUSIP", h.Fund, h.Quarter, r.Issuer)
		}
		if !r.Shares.IsPositive() {
			return nil, fmt.Errorf("snapshot %s %s: %w: %s has %v shares", h.Fund, h.Quarter, ErrInvariant, r.CUSIP, r.Shares)
		}
		r.Fund, r.Quarter = h.Fund, h.Quarter
		r.Details = slices.Clone(r.Details)
		if i, exists := s.index[r.CUSIP]; exists {
			s.records[i] = s.records[i].aggregate(r)
			continue
		}
		s.index[r.CUSIP] = len(s.records)
		s.records = append(s.records, r)
	}

	slices.SortFunc(s.records, func(a, b HoldingRecord) int { return strings.Compare(string(a.CUSIP), string(b.CUSIP)) })
	for i, r := range s.records {
		s.index[r.CUSIP] = i
		s.total = s.total.Add(r.Value)
	}
	return s, nil
}

func (s *Snapshot) Header() SnapshotHeader { return s.header }
func (s *Snapshot) Fund() CIK              { return s.header.Fund }
func (s *Snapshot) Quarter() date.Quarter  { return s.header.Quarter }
func (s *Snapshot) Version() int           { return s.header.Version }
func (s *Snapshot) FiledOn() date.Date     { return s.header.FiledOn }
func (s *Snapshot) Accession() string      { return s.header.Accession }

// Synthesized reports whether the snapshot was derived from events rather than filed.
func (s *Snapshot) Synthesized() bool { return s.synthesized }

// AsOf is the date the holdings are known for: the quarter end for a filed
// snapshot, the last applied event for a synthesized one.
func (s *Snapshot) AsOf() date.Date { return s.asOf }

// Len returns the number of records.
func (s *Snapshot) Len() int { return len(s.records) }

// Record returns the record for cusip.
func (s *Snapshot) Record(cusip CUSIP) (HoldingRecord, bool) {
	i, ok := s.index[cusip]
	if !ok {
		return HoldingRecord{}, false
	}
	r := s.records[i]
	r.Details = slices.Clone(r.Details)
	return r, true
}

// Records iterates over the records in CUSIP order.
func (s *Snapshot) Records() iter.Seq[HoldingRecord] {
	return func(yield func(HoldingRecord) bool) {
		for _, r := range s.records {
			r.Details = slices.Clone(r.Details)
			if !yield(r) {
				return
			}
		}
	}
}

// TotalValue returns the sum of the records values.
func (s *Snapshot) TotalValue() Money { return s.total }

// PortfolioPercent returns the share of the snapshot value held in cusip.
func (s *Snapshot) PortfolioPercent(cusip CUSIP) Percent {
	r, ok := s.Record(cusip)
	if !ok {
		return 0
	}
	return s.percentOf(r.Value)
}

func (s *Snapshot) percentOf(value Money) Percent {
	if s.total.IsZero() {
		return 0
	}
	return Percent(value.Ratio(s.total) * 100)
}

// Equal reports whether s and o hold the same records for the same fund and quarter.
// Versions, filing metadata and the synthesized flag are ignored.
func (s *Snapshot) Equal(o *Snapshot) bool {
	if s.header.Fund != o.header.Fund || s.header.Quarter != o.header.Quarter || len(s.records) != len(o.records) {
		return false
	}
	for i := range s.records {
		if !s.records[i].sameContent(o.records[i]) {
			return false
		}
	}
	return true
}

func (s *Snapshot) String() string {
	kind := "filed"
	if s.synthesized {
		kind = "synthesized"
	}
	return fmt.Sprintf("%s %s v%d (%s, %d records, %v)", s.header.Fund, s.header.Quarter, s.header.Version, kind, len(s.records), s.total)
}
