package holdings

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// Classification is the kind of change of a position between two snapshots.
type Classification string

const (
	New       Classification = "NEW"
	Closed    Classification = "CLOSED"
	Increased Classification = "INCREASED"
	Decreased Classification = "DECREASED"
	Unchanged Classification = "UNCHANGED"
)

// DeltaRecord is the change of one security between two snapshots of a fund.
// It is derived data: recompute it from the snapshots rather than storing it.
type DeltaRecord struct {
	CUSIP          CUSIP
	Ticker         string
	Issuer         string
	Classification Classification

	PriorShares, CurrentShares Quantity
	PriorValue, CurrentValue   Money

	// PercentChange is the change of the share count, PercentInfinite for NEW
	// and PercentClosed for CLOSED.
	PercentChange Percent

	PriorPortfolioPercent   Percent
	CurrentPortfolioPercent Percent
	PortfolioPercentChange  Percent

	ValueChange Money // current value - prior value
	TradedValue Money // share change valued at the per-share price
}

// DisplayTicker returns the ticker, or the CUSIP when the ticker is unresolved.
func (d DeltaRecord) DisplayTicker() string {
	if d.Ticker != "" {
		return d.Ticker
	}
	return string(d.CUSIP)
}

// SharesChange returns current - prior shares.
func (d DeltaRecord) SharesChange() Quantity { return d.CurrentShares.Sub(d.PriorShares) }

// Diff compares two snapshots of the same fund, from the prior one to the current one.
//
// A nil from snapshot stands for the fund's first filing: every record is NEW.
// Deltas are ordered by decreasing absolute value change, then by display
// ticker, then by CUSIP.
func Diff(from, to *Snapshot) ([]DeltaRecord, error) {
	if to == nil {
		return nil, fmt.Errorf("diff: missing current snapshot")
	}
	if from == nil {
		from = &Snapshot{header: SnapshotHeader{Fund: to.Fund()}, total: Dollars(0)}
	}
	if from.Fund() != to.Fund() {
		return nil, fmt.Errorf("diff %s against %s: %w", to.Fund(), from.Fund(), ErrFundMismatch)
	}

	deltas := make([]DeltaRecord, 0, max(from.Len(), to.Len()))
	for _, cur := range to.records {
		prior, found := from.Record(cur.CUSIP)
		if !found {
			deltas = append(deltas, DeltaRecord{
				CUSIP:                   cur.CUSIP,
				Ticker:                  cur.Ticker,
				Issuer:                  cur.Issuer,
				Classification:          New,
				PriorShares:             Q(0),
				CurrentShares:           cur.Shares,
				PriorValue:              Dollars(0),
				CurrentValue:            cur.Value,
				PercentChange:           PercentInfinite,
				CurrentPortfolioPercent: to.percentOf(cur.Value),
				PortfolioPercentChange:  to.percentOf(cur.Value),
				ValueChange:             cur.Value,
				TradedValue:             cur.Value,
			})
			continue
		}
		d, err := change(from, to, prior, cur)
		if err != nil {
			return nil, err
		}
		deltas = append(deltas, d)
	}
	for _, prior := range from.records {
		if _, found := to.index[prior.CUSIP]; found {
			continue
		}
		pp := from.percentOf(prior.Value)
		deltas = append(deltas, DeltaRecord{
			CUSIP:                  prior.CUSIP,
			Ticker:                 prior.Ticker,
			Issuer:                 prior.Issuer,
			Classification:         Closed,
			PriorShares:            prior.Shares,
			CurrentShares:          Q(0),
			PriorValue:             prior.Value,
			CurrentValue:           Dollars(0),
			PercentChange:          PercentClosed,
			PriorPortfolioPercent:  pp,
			PortfolioPercentChange: -pp,
			ValueChange:            prior.Value.Neg(),
			TradedValue:            prior.Value.Neg(),
		})
	}

	SortDeltas(deltas)
	return deltas, nil
}

// change computes the delta of a security present in both snapshots.
func change(from, to *Snapshot, prior, cur HoldingRecord) (DeltaRecord, error) {
	if prior.Shares.IsZero() {
		return DeltaRecord{}, fmt.Errorf("diff %s: %w: %s held with zero shares", to.Fund(), ErrInvariant, cur.CUSIP)
	}
	d := DeltaRecord{
		CUSIP:                   cur.CUSIP,
		Ticker:                  cmp.Or(cur.Ticker, prior.Ticker),
		Issuer:                  cmp.Or(cur.Issuer, prior.Issuer),
		PriorShares:             prior.Shares,
		CurrentShares:           cur.Shares,
		PriorValue:              prior.Value,
		CurrentValue:            cur.Value,
		PriorPortfolioPercent:   from.percentOf(prior.Value),
		CurrentPortfolioPercent: to.percentOf(cur.Value),
		ValueChange:             cur.Value.Sub(prior.Value),
	}
	d.PortfolioPercentChange = d.CurrentPortfolioPercent - d.PriorPortfolioPercent

	delta := cur.Shares.Sub(prior.Shares)
	switch {
	case delta.IsPositive():
		d.Classification = Increased
	case delta.IsNegative():
		d.Classification = Decreased
	default:
		d.Classification = Unchanged
	}
	d.PercentChange = Percent(delta.Decimal().Div(prior.Shares.Decimal()).InexactFloat64() * 100)

	price, ok := cur.PricePerShare()
	if !ok {
		price, ok = prior.PricePerShare()
	}
	d.TradedValue = Dollars(0)
	if ok {
		d.TradedValue = price.Mul(delta)
	}
	return d, nil
}

// SortDeltas orders deltas by decreasing absolute value change, then display ticker, then CUSIP.
func SortDeltas(deltas []DeltaRecord) {
	slices.SortStableFunc(deltas, func(a, b DeltaRecord) int {
		if c := b.ValueChange.Abs().Cmp(a.ValueChange.Abs()); c != 0 {
			return c
		}
		if c := strings.Compare(a.DisplayTicker(), b.DisplayTicker()); c != 0 {
			return c
		}
		return strings.Compare(string(a.CUSIP), string(b.CUSIP))
	})
}

// DiffSummary is the total row of a comparison.
type DiffSummary struct {
	PriorValue, CurrentValue Money
	ValueChange              Money
	PercentChange            Percent // PercentInfinite when there was no prior value
	Counts                   map[Classification]int
}

// Summarize totals the diff between from and to.
func Summarize(from, to *Snapshot, deltas []DeltaRecord) DiffSummary {
	s := DiffSummary{
		PriorValue:   Dollars(0),
		CurrentValue: to.TotalValue(),
		Counts:       make(map[Classification]int),
	}
	if from != nil {
		s.PriorValue = from.TotalValue()
	}
	s.ValueChange = s.CurrentValue.Sub(s.PriorValue)
	if s.PriorValue.IsZero() {
		s.PercentChange = PercentInfinite
	} else {
		s.PercentChange = Percent(s.ValueChange.Ratio(s.PriorValue) * 100)
	}
	for _, d := range deltas {
		s.Counts[d.Classification]++
	}
	return s
}
