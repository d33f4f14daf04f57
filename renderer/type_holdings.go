package renderer

import (
	"slices"
	"strings"

	"github.com/etnz/holdings"
)

// Holdings is the view of one snapshot.
type Holdings struct {
	Fund      string
	CIK       string
	Label     string
	FiledOn   string
	Accession string
	Total     string
	Rows      []HoldingRow
	Warnings  []string
}

// HoldingRow is one position of a snapshot.
type HoldingRow struct {
	Ticker           string
	Issuer           string
	Class            string
	Shares           string
	Value            string
	PortfolioPercent string
	Source           string
}

// NewHoldings builds the view of s, positions sorted by decreasing value.
func NewHoldings(fund holdings.FundIdentity, s *holdings.Snapshot, warnings []holdings.Warning) *Holdings {
	h := &Holdings{
		Fund:      cell(fund.Name),
		CIK:       fund.CIK.String(),
		Label:     SnapshotLabel(s),
		FiledOn:   s.FiledOn().String(),
		Accession: s.Accession(),
		Total:     s.TotalValue().String(),
	}

	records := slices.Collect(s.Records())
	slices.SortStableFunc(records, func(a, b holdings.HoldingRecord) int {
		if c := b.Value.Cmp(a.Value); c != 0 {
			return c
		}
		return strings.Compare(a.DisplayTicker(), b.DisplayTicker())
	})
	for _, r := range records {
		h.Rows = append(h.Rows, HoldingRow{
			Ticker:           cell(r.DisplayTicker()),
			Issuer:           cell(r.Issuer),
			Class:            cell(r.Class),
			Shares:           r.Shares.String(),
			Value:            r.Value.String(),
			PortfolioPercent: s.PortfolioPercent(r.CUSIP).String(),
			Source:           r.TickerSource,
		})
	}
	for _, w := range warnings {
		h.Warnings = append(h.Warnings, w.String())
	}
	return h
}
