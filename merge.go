package holdings

import (
	"slices"
	"strings"

	"github.com/etnz/holdings/date"
)

// Merge folds the fund's events disclosed after the snapshot into a new,
// synthesized snapshot. s is left untouched.
//
// Qualifying events belong to the snapshot fund and were transacted strictly
// after the snapshot quarter end and, when until is not zero, strictly before
// until (the availability of the next snapshot).
//
// Per security, events apply in chronological order to the snapshot share
// count (zero for a new security): acquisitions add, disposals subtract, and a
// disclosed post-transaction count replaces the running total. Touched
// securities keep the snapshot price per share; new ones have no value.
// Securities left without shares are removed.
func Merge(s *Snapshot, events []EventFiling, until date.Date) (*Snapshot, []Warning, error) {
	qualifying := make([]EventFiling, 0, len(events))
	for _, e := range events {
		if e.Fund != s.Fund() || !e.TransactionDate.After(s.Quarter().End()) {
			continue
		}
		if !until.IsZero() && !e.TransactionDate.Before(until) {
			continue
		}
		qualifying = append(qualifying, e)
	}
	SortEvents(qualifying)

	byTicker := make(map[string]CUSIP)
	for _, r := range s.records {
		if r.Ticker != "" {
			byTicker[strings.ToUpper(r.Ticker)] = r.CUSIP
		}
	}

	var warnings []Warning
	touched := make(map[CUSIP]HoldingRecord)
	order := make([]CUSIP, 0)
	asOf := s.AsOf()
	for _, e := range qualifying {
		cusip := e.CUSIP
		if cusip == "" {
			c, ok := byTicker[strings.ToUpper(e.Ticker)]
			if !ok {
				warnings = append(warnings, Warnf(WarnUnkeyedEvent, 0, "%s %s: %s (%s) has no CUSIP and is not held", e.Accession, e.TransactionDate, e.IssuerName, e.Ticker))
				continue
			}
			cusip = c
		}

		r, ok := touched[cusip]
		if !ok {
			r, ok = s.Record(cusip)
			if !ok {
				r = HoldingRecord{CUSIP: cusip, Issuer: strings.ToUpper(e.IssuerName), Ticker: e.Ticker, Shares: Q(0), Value: Dollars(0)}
			}
			order = append(order, cusip)
		}
		if e.PostTransaction != nil {
			r.Shares = *e.PostTransaction
		} else {
			r.Shares = r.Shares.Add(e.SignedShares())
		}
		if r.Ticker == "" {
			r.Ticker = e.Ticker
		}
		touched[cusip] = r
		if e.TransactionDate.After(asOf) {
			asOf = e.TransactionDate
		}
	}

	records := make([]HoldingRecord, 0, len(s.records)+len(order))
	for _, r := range s.records {
		if _, ok := touched[r.CUSIP]; !ok {
			records = append(records, r)
		}
	}
	for _, cusip := range order {
		r := touched[cusip]
		if !r.Shares.IsPositive() {
			continue
		}
		if prior, ok := s.Record(cusip); ok {
			if price, ok := prior.PricePerShare(); ok {
				r.Value = price.Mul(r.Shares)
			}
		}
		// the breakdown no longer adds up to the merged position.
		r.Details = nil
		r.Voting = VotingAuthority{}
		records = append(records, r)
	}
	slices.SortFunc(records, func(a, b HoldingRecord) int { return strings.Compare(string(a.CUSIP), string(b.CUSIP)) })

	merged, err := newSnapshot(s.header, records, true, asOf)
	if err != nil {
		return nil, warnings, err
	}
	return merged, warnings, nil
}
