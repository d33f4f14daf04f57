package filing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/etnz/holdings"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Values are expected in dollars, but some filers still report thousands.
// A table whose largest position and total both stay under these bounds is
// taken as reported in thousands.
var (
	maxPositionInThousands = decimal.NewFromInt(1_000_000)
	maxTotalInThousands    = decimal.NewFromInt(100_000_000)
)

// row is a raw information table row.
type row struct {
	num    int
	record holdings.HoldingRecord
}

// ParseHoldings parses a 13F information table into the snapshot described by h.
func ParseHoldings(ctx context.Context, r io.Reader, h holdings.SnapshotHeader, opts ...Option) (*holdings.Snapshot, []holdings.Warning, error) {
	o := newOptions(opts)
	log := o.log.WithFields(logrus.Fields{"fund": h.Fund, "quarter": h.Quarter})

	tree, err := parseTree(r)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot parse information table of %s %s: %w", h.Fund, h.Quarter, err)
	}

	var warnings []holdings.Warning
	var rows []row
	for i, n := range tree.findAll("infotable") {
		rec, w := parseInfoTable(i+1, n)
		warnings = append(warnings, w...)
		if rec != nil {
			rows = append(rows, row{num: i + 1, record: *rec})
		}
	}

	if inThousands(rows) {
		log.Debug("values reported in thousands")
		for i := range rows {
			rec := &rows[i].record
			rec.Value = rec.Value.Scale(1000)
			rec.Details[0].Value = rec.Value
		}
	}

	resolved := make(map[holdings.CUSIP]holdings.TickerEntry)
	records := make([]holdings.HoldingRecord, 0, len(rows))
	for _, rw := range rows {
		rec := rw.record
		if o.resolver != nil {
			e, seen := resolved[rec.CUSIP]
			if !seen {
				e, err = o.resolver.Resolve(ctx, rec.CUSIP, rec.Issuer)
				if cerr := ctx.Err(); cerr != nil {
					return nil, warnings, cerr
				}
				if err != nil && !errors.Is(err, holdings.ErrResolutionExhausted) {
					log.WithError(err).WithField("cusip", rec.CUSIP).Warn("ticker resolution failed")
				}
				if !e.Resolved() {
					warnings = append(warnings, holdings.Warnf(holdings.WarnUnresolved, rw.num, "no ticker for %s %q", rec.CUSIP, rec.Issuer))
				}
				resolved[rec.CUSIP] = e
			}
			rec.Ticker, rec.TickerSource = e.Ticker, e.Source
		}
		records = append(records, rec)
	}

	s, err := holdings.NewSnapshot(h, records)
	if err != nil {
		return nil, warnings, err
	}
	log.WithFields(logrus.Fields{"records": s.Len(), "warnings": len(warnings)}).Debug("parsed information table")
	return s, warnings, nil
}

// parseInfoTable returns the record of one row, or nil when the row is excluded.
func parseInfoTable(num int, n *node) (*holdings.HoldingRecord, []holdings.Warning) {
	issuer := collapse(n.value("nameofissuer"))
	if pc := n.value("putcall"); pc != "" {
		return nil, []holdings.Warning{holdings.Warnf(holdings.WarnOption, num, "%s %q: %s option excluded", n.value("cusip"), issuer, pc)}
	}
	if t := n.value("sshprnamttype"); strings.EqualFold(t, "PRN") {
		return nil, []holdings.Warning{holdings.Warnf(holdings.WarnPrincipal, num, "%s %q: principal amount excluded", n.value("cusip"), issuer)}
	}
	cusip, err := holdings.NewCUSIP(n.value("cusip"))
	if err != nil {
		return nil, []holdings.Warning{holdings.Warnf(holdings.WarnInvalidCUSIP, num, "%q: %v", issuer, err)}
	}
	shares, err := holdings.ParseQuantity(n.value("sshprnamt"))
	if err != nil || shares.IsNegative() {
		return nil, []holdings.Warning{holdings.Warnf(holdings.WarnParse, num, "%s: invalid shares %q", cusip, n.value("sshprnamt"))}
	}
	value, err := holdings.ParseDollars(n.value("value"))
	if err != nil || value.IsNegative() {
		return nil, []holdings.Warning{holdings.Warnf(holdings.WarnParse, num, "%s: invalid value %q", cusip, n.value("value"))}
	}
	if shares.IsZero() || value.IsZero() {
		return nil, []holdings.Warning{holdings.Warnf(holdings.WarnZeroPosition, num, "%s: zero position excluded", cusip)}
	}

	var warnings []holdings.Warning
	voting, ok := parseVoting(n.find("votingauthority"))
	if !ok {
		warnings = append(warnings, holdings.Warnf(holdings.WarnMissingVoting, num, "%s: voting authority unknown", cusip))
	}
	class := collapse(n.value("titleofclass"))
	return &holdings.HoldingRecord{
		CUSIP:  cusip,
		Issuer: issuer,
		Class:  class,
		Shares: shares,
		Value:  value,
		Voting: voting,
		Details: []holdings.ClassDetail{{
			TitleOfClass: class,
			Shares:       shares,
			Value:        value,
			Discretion:   n.value("investmentdiscretion"),
		}},
	}, warnings
}

func parseVoting(n *node) (holdings.VotingAuthority, bool) {
	if n == nil {
		return holdings.VotingAuthority{}, false
	}
	v := holdings.VotingAuthority{Known: true}
	for _, f := range []struct {
		name string
		q    *holdings.Quantity
	}{{"sole", &v.Sole}, {"shared", &v.Shared}, {"none", &v.None}} {
		q, err := holdings.ParseQuantity(n.value(f.name))
		if err != nil {
			return holdings.VotingAuthority{}, false
		}
		*f.q = q
	}
	return v, true
}

func inThousands(rows []row) bool {
	if len(rows) == 0 {
		return false
	}
	largest, total := decimal.Zero, decimal.Zero
	for _, r := range rows {
		v := r.record.Value.Decimal()
		largest = decimal.Max(largest, v)
		total = total.Add(v)
	}
	return largest.LessThan(maxPositionInThousands) && total.LessThan(maxTotalInThousands)
}
