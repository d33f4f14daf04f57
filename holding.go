package holdings

import (
	"slices"

	"github.com/etnz/holdings/date"
)

// VotingAuthority is the breakdown of the shares the fund can vote.
// Filings may omit it: Known is then false and the quantities are zero.
type VotingAuthority struct {
	Sole   Quantity
	Shared Quantity
	None   Quantity
	Known  bool
}

// Add sums two breakdowns; the sum is known only when both are.
func (v VotingAuthority) Add(w VotingAuthority) VotingAuthority {
	if !v.Known || !w.Known {
		return VotingAuthority{}
	}
	return VotingAuthority{
		Sole:   v.Sole.Add(w.Sole),
		Shared: v.Shared.Add(w.Shared),
		None:   v.None.Add(w.None),
		Known:  true,
	}
}

// ClassDetail is one raw row that contributed to a HoldingRecord.
type ClassDetail struct {
	TitleOfClass string
	Shares       Quantity
	Value        Money
	Discretion   string
}

// HoldingRecord is a fund position on one security at a quarter end.
type HoldingRecord struct {
	CUSIP        CUSIP
	Issuer       string
	Class        string
	Shares       Quantity
	Value        Money // absolute USD
	Voting       VotingAuthority
	Fund         CIK
	Quarter      date.Quarter
	Ticker       string // empty when unresolved
	TickerSource string // resolution tier
	Details      []ClassDetail
}

// DisplayTicker returns the ticker, or the CUSIP when the ticker is unresolved.
func (h HoldingRecord) DisplayTicker() string {
	if h.Ticker != "" {
		return h.Ticker
	}
	return string(h.CUSIP)
}

// PricePerShare returns the reported value of one share. It is false when the
// record carries no shares or no value.
func (h HoldingRecord) PricePerShare() (Money, bool) {
	if !h.Shares.IsPositive() || h.Value.IsZero() {
		return Money{}, false
	}
	return h.Value.Div(h.Shares), true
}

// detail returns the record as a single class detail.
func (h HoldingRecord) detail() ClassDetail {
	return ClassDetail{TitleOfClass: h.Class, Shares: h.Shares, Value: h.Value}
}

// aggregate merges o, a row for the same CUSIP, into h.
func (h HoldingRecord) aggregate(o HoldingRecord) HoldingRecord {
	if len(h.Details) == 0 {
		h.Details = []ClassDetail{h.detail()}
	}
	details := o.Details
	if len(details) == 0 {
		details = []ClassDetail{o.detail()}
	}
	h.Details = append(slices.Clone(h.Details), details...)
	h.Shares = h.Shares.Add(o.Shares)
	h.Value = h.Value.Add(o.Value)
	h.Voting = h.Voting.Add(o.Voting)
	if h.Issuer == "" {
		h.Issuer = o.Issuer
	}
	if h.Ticker == "" {
		h.Ticker, h.TickerSource = o.Ticker, o.TickerSource
	}
	return h
}

// sameContent compares the persisted fields of two records.
func (h HoldingRecord) sameContent(o HoldingRecord) bool {
	return h.CUSIP == o.CUSIP &&
		h.Issuer == o.Issuer &&
		h.Class == o.Class &&
		h.Ticker == o.Ticker &&
		h.Shares.Equal(o.Shares) &&
		h.Value.Decimal().Equal(o.Value.Decimal())
}
