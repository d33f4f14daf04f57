package renderer

import (
	"fmt"

	"github.com/etnz/holdings"
)

// Diff is the view of the changes between two snapshots of a fund.
type Diff struct {
	Fund     string
	CIK      string
	From, To string // snapshot labels
	Rows     []DeltaRow
	Hidden   int // unchanged positions not listed
	Summary  Summary
	Warnings []string
}

// DeltaRow is one security of a Diff.
type DeltaRow struct {
	Ticker           string
	Issuer           string
	Classification   string
	PriorShares      string
	CurrentShares    string
	SharesChange     string
	PercentChange    string
	PriorValue       string
	CurrentValue     string
	ValueChange      string
	TradedValue      string
	PortfolioPercent string
	PortfolioChange  string
}

// Summary is the total row of a Diff.
type Summary struct {
	PriorValue    string
	CurrentValue  string
	ValueChange   string
	PercentChange string

	New, Closed, Increased, Decreased, Unchanged int
}

// NewDiff builds the view of deltas, computed from the from and to snapshots of fund.
func NewDiff(fund holdings.FundIdentity, from, to *holdings.Snapshot, deltas []holdings.DeltaRecord, warnings []holdings.Warning, opts DiffOptions) *Diff {
	d := &Diff{
		Fund: cell(fund.Name),
		CIK:  fund.CIK.String(),
		From: SnapshotLabel(from),
		To:   SnapshotLabel(to),
	}
	for _, r := range deltas {
		if opts.HideUnchanged && r.Classification == holdings.Unchanged {
			d.Hidden++
			continue
		}
		d.Rows = append(d.Rows, DeltaRow{
			Ticker:           cell(r.DisplayTicker()),
			Issuer:           cell(r.Issuer),
			Classification:   string(r.Classification),
			PriorShares:      r.PriorShares.String(),
			CurrentShares:    r.CurrentShares.String(),
			SharesChange:     signed(r.SharesChange()),
			PercentChange:    r.PercentChange.SignedString(),
			PriorValue:       r.PriorValue.String(),
			CurrentValue:     r.CurrentValue.String(),
			ValueChange:      r.ValueChange.SignedString(),
			TradedValue:      r.TradedValue.SignedString(),
			PortfolioPercent: r.CurrentPortfolioPercent.String(),
			PortfolioChange:  r.PortfolioPercentChange.SignedString(),
		})
	}

	s := holdings.Summarize(from, to, deltas)
	d.Summary = Summary{
		PriorValue:    s.PriorValue.String(),
		CurrentValue:  s.CurrentValue.String(),
		ValueChange:   s.ValueChange.SignedString(),
		PercentChange: s.PercentChange.SignedString(),
		New:           s.Counts[holdings.New],
		Closed:        s.Counts[holdings.Closed],
		Increased:     s.Counts[holdings.Increased],
		Decreased:     s.Counts[holdings.Decreased],
		Unchanged:     s.Counts[holdings.Unchanged],
	}
	for _, w := range warnings {
		d.Warnings = append(d.Warnings, w.String())
	}
	return d
}

// SnapshotLabel names a snapshot in reports, e.g. "2025Q1", "2025Q1 v2" or
// "2025Q1 + events to 2025-05-02".
func SnapshotLabel(s *holdings.Snapshot) string {
	if s == nil {
		return "no filing"
	}
	label := s.Quarter().String()
	if s.Version() > 1 {
		label = fmt.Sprintf("%s v%d", label, s.Version())
	}
	if s.Synthesized() {
		label = fmt.Sprintf("%s + events to %s", label, s.AsOf())
	}
	return label
}

// signed formats a share count with its sign, "-" when zero.
func signed(q holdings.Quantity) string {
	switch {
	case q.IsZero():
		return "-"
	case q.IsPositive():
		return "+" + q.String()
	}
	return q.String()
}
