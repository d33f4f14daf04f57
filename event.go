package holdings

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/etnz/holdings/date"
)

// FilingKind is the kind of event disclosure.
type FilingKind string

const (
	// OwnershipThreshold is a Schedule 13D or 13G: a beneficial ownership above 5%.
	OwnershipThreshold FilingKind = "13D/G"
	// InsiderTransaction is a Form 4: a transaction by an insider or a 10% owner.
	InsiderTransaction FilingKind = "4"
)

// Direction is the side of a transaction.
type Direction string

const (
	Acquired Direction = "A"
	Disposed Direction = "D"
)

// EventFiling is one position change disclosed by an event filing, attributed to a tracked fund.
//
// Schedule 13D/G carry a CUSIP and the aggregate amount owned, reported as an
// authoritative PostTransaction. Form 4 carry a trading symbol, the shares
// transacted, and usually the shares owned after the transaction.
type EventFiling struct {
	Accession string
	Kind      FilingKind
	FormType  string // as filed, e.g. "SC 13G/A"

	FilerName string
	FilerCIK  CIK
	Fund      CIK // attributed fund, primary CIK

	IssuerName string
	IssuerCIK  CIK
	CUSIP      CUSIP // empty when the filing carries only a ticker
	Ticker     string

	TransactionDate date.Date
	FiledOn         date.Date

	Shares          Quantity
	Direction       Direction
	PostTransaction *Quantity // shares owned after the transaction, when disclosed
}

// Key identifies the security: its CUSIP, or its ticker when the CUSIP is unknown.
func (e EventFiling) Key() string {
	if e.CUSIP != "" {
		return string(e.CUSIP)
	}
	return "$" + strings.ToUpper(e.Ticker)
}

// SignedShares returns the shares with a negative sign for disposals.
func (e EventFiling) SignedShares() Quantity {
	if e.Direction == Disposed {
		return e.Shares.Neg()
	}
	return e.Shares
}

func compareEvents(a, b EventFiling) int {
	return cmp.Or(
		a.TransactionDate.Compare(b.TransactionDate),
		a.FiledOn.Compare(b.FiledOn),
		strings.Compare(a.Accession, b.Accession),
	)
}

// SortEvents orders events by transaction date, then filing date, then accession number.
// Events of the same accession keep their document order.
func SortEvents(events []EventFiling) {
	slices.SortStableFunc(events, compareEvents)
}

// DedupeEvents drops superseded filings: when several accessions report the
// same (fund, security, transaction date, kind), only the latest filed one is
// kept, with all its events. The result is sorted.
func DedupeEvents(events []EventFiling) []EventFiling {
	type key struct {
		fund     CIK
		security string
		on       date.Date
		kind     FilingKind
	}
	winner := make(map[key]EventFiling)
	for _, e := range events {
		k := key{e.Fund, e.Key(), e.TransactionDate, e.Kind}
		w, exists := winner[k]
		if !exists || cmp.Or(e.FiledOn.Compare(w.FiledOn), strings.Compare(e.Accession, w.Accession)) > 0 {
			winner[k] = e
		}
	}

	kept := make([]EventFiling, 0, len(events))
	for _, e := range events {
		if winner[key{e.Fund, e.Key(), e.TransactionDate, e.Kind}].Accession == e.Accession {
			kept = append(kept, e)
		}
	}
	SortEvents(kept)
	return kept
}

// Unattributed is an event filing whose filers match no tracked fund.
// It is never merged; it is reported for manual review.
type Unattributed struct {
	Accession  string
	Kind       FilingKind
	FilerName  string
	FilerCIK   CIK
	IssuerName string
	FiledOn    date.Date
	BestFund   CIK     // closest fund below the threshold, if any
	BestScore  float64 // its score
}

// Error implements error, it wraps ErrUnattributed.
func (u Unattributed) Error() string {
	if u.BestFund == "" {
		return fmt.Sprintf("%s: filer %q (%s): %v", u.Accession, u.FilerName, u.FilerCIK, ErrUnattributed)
	}
	return fmt.Sprintf("%s: filer %q (%s): %v, closest fund %s scored %.2f", u.Accession, u.FilerName, u.FilerCIK, ErrUnattributed, u.BestFund, u.BestScore)
}

func (u Unattributed) Unwrap() error { return ErrUnattributed }
