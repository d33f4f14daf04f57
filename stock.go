package holdings

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"

	"github.com/etnz/holdings/date"
)

// FundQuarter pairs the snapshot a fund filed for a quarter with its previous one.
type FundQuarter struct {
	Prior   *Snapshot // nil for the fund's first filing
	Current *Snapshot
}

// QuarterFilings loads the snapshots of q for funds, each with its previous
// snapshot. Funds without a q snapshot are skipped.
func QuarterFilings(st *SnapshotStore, funds []CIK, q date.Quarter) ([]FundQuarter, error) {
	var fqs []FundQuarter
	for _, fund := range funds {
		current, err := st.Get(fund, q)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		prior, err := st.Previous(fund, q)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		fqs = append(fqs, FundQuarter{Prior: prior, Current: current})
	}
	return fqs, nil
}

// StockPosition is the position of one fund in one security at a quarter end.
// Records of several CUSIPs sharing the ticker are summed.
type StockPosition struct {
	Fund           CIK
	Ticker         string
	Issuer         string
	CUSIPs         []CUSIP
	Classification Classification

	PriorShares, Shares Quantity
	PriorValue, Value   Money
	ValueChange         Money

	// PercentChange is the change of the share count, PercentInfinite for NEW
	// and PercentClosed for CLOSED.
	PercentChange    Percent
	PortfolioPercent Percent
}

// SharesChange returns current - prior shares.
func (p StockPosition) SharesChange() Quantity { return p.Shares.Sub(p.PriorShares) }

// StockReport lists what the tracked funds did with one security over a quarter.
type StockReport struct {
	Ticker    string
	Quarter   date.Quarter
	Positions []StockPosition // by decreasing value, closed positions last

	Shares      Quantity
	Value       Money
	ValueChange Money

	Holders    int // funds holding shares at the quarter end
	Buyers     int // funds whose share count grew, NEW included
	Sellers    int // funds whose share count shrank, CLOSED included
	NewHolders int
	Closed     int
}

// AnalyzeStock reports the positions of every fund in ticker for quarter q.
//
// The ticker is compared case insensitively to the display ticker of the
// records, so an unresolved security can be looked up by its CUSIP.
func AnalyzeStock(ticker string, q date.Quarter, funds []FundQuarter) (StockReport, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	r := StockReport{
		Ticker:      ticker,
		Quarter:     q,
		Shares:      Q(0),
		Value:       Dollars(0),
		ValueChange: Dollars(0),
	}
	for _, fq := range funds {
		if fq.Current == nil {
			return StockReport{}, fmt.Errorf("stock analysis of %s: missing current snapshot", q)
		}
		if fq.Current.Quarter() != q {
			return StockReport{}, fmt.Errorf("stock analysis of %s: %w: snapshot of %s is for %s", q, ErrInvariant, fq.Current.Fund(), fq.Current.Quarter())
		}
		deltas, err := Diff(fq.Prior, fq.Current)
		if err != nil {
			return StockReport{}, err
		}
		p, found := position(fq.Current.Fund(), ticker, deltas)
		if !found {
			continue
		}
		r.Positions = append(r.Positions, p)

		r.Shares = r.Shares.Add(p.Shares)
		r.Value = r.Value.Add(p.Value)
		r.ValueChange = r.ValueChange.Add(p.ValueChange)
		if p.Shares.IsPositive() {
			r.Holders++
		}
		switch change := p.SharesChange(); {
		case change.IsPositive():
			r.Buyers++
		case change.IsNegative():
			r.Sellers++
		}
		switch p.Classification {
		case New:
			r.NewHolders++
		case Closed:
			r.Closed++
		}
	}

	slices.SortStableFunc(r.Positions, func(a, b StockPosition) int {
		if c := b.Value.Cmp(a.Value); c != 0 {
			return c
		}
		if c := b.PriorValue.Cmp(a.PriorValue); c != 0 {
			return c
		}
		return cmp.Compare(a.Fund, b.Fund)
	})
	return r, nil
}

// position sums the deltas of ticker into the position of fund.
func position(fund CIK, ticker string, deltas []DeltaRecord) (StockPosition, bool) {
	p := StockPosition{
		Fund:        fund,
		PriorShares: Q(0),
		Shares:      Q(0),
		PriorValue:  Dollars(0),
		Value:       Dollars(0),
		ValueChange: Dollars(0),
	}
	for _, d := range deltas {
		if !strings.EqualFold(d.DisplayTicker(), ticker) {
			continue
		}
		p.Ticker = cmp.Or(p.Ticker, d.Ticker)
		p.Issuer = cmp.Or(p.Issuer, d.Issuer)
		p.CUSIPs = append(p.CUSIPs, d.CUSIP)
		p.PriorShares = p.PriorShares.Add(d.PriorShares)
		p.Shares = p.Shares.Add(d.CurrentShares)
		p.PriorValue = p.PriorValue.Add(d.PriorValue)
		p.Value = p.Value.Add(d.CurrentValue)
		p.ValueChange = p.ValueChange.Add(d.ValueChange)
		p.PortfolioPercent += d.CurrentPortfolioPercent
	}
	if len(p.CUSIPs) == 0 {
		return StockPosition{}, false
	}
	slices.Sort(p.CUSIPs)

	change := p.SharesChange()
	switch {
	case p.Shares.IsZero():
		p.Classification, p.PercentChange = Closed, PercentClosed
	case p.PriorShares.IsZero():
		p.Classification, p.PercentChange = New, PercentInfinite
	default:
		p.PercentChange = Percent(change.Decimal().Div(p.PriorShares.Decimal()).InexactFloat64() * 100)
		switch {
		case change.IsPositive():
			p.Classification = Increased
		case change.IsNegative():
			p.Classification = Decreased
		default:
			p.Classification = Unchanged
		}
	}
	return p, true
}
