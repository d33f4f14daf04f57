package filing

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/etnz/holdings"
	"github.com/etnz/holdings/date"
	"github.com/etnz/holdings/match"
	"github.com/sirupsen/logrus"
)

// Meta describes an event filing as listed in the EDGAR index. Documents do
// not carry their own accession number nor filing date.
type Meta struct {
	Accession string
	FormType  string
	FiledOn   date.Date
}

// Events is the outcome of parsing one event filing.
type Events struct {
	Events       []holdings.EventFiling
	Unattributed []holdings.Unattributed
	Warnings     []holdings.Warning
}

func (e *Events) warn(code holdings.WarningCode, format string, args ...any) {
	e.Warnings = append(e.Warnings, holdings.Warnf(code, 0, format, args...))
}

// filer is a reporting person of an event filing.
type filer struct {
	name string
	cik  holdings.CIK
}

// ParseEvent parses a Schedule 13D/G or a Form 4, depending on the document.
func ParseEvent(ctx context.Context, r io.Reader, meta Meta, roster *holdings.Roster, opts ...Option) (Events, error) {
	tree, err := parseTree(r)
	if err != nil {
		return Events{}, fmt.Errorf("cannot parse %s %s: %w", meta.FormType, meta.Accession, err)
	}
	switch {
	case tree.find("ownershipdocument") != nil:
		return parseForm4(ctx, tree, meta, roster, newOptions(opts))
	case tree.find("formdata") != nil:
		return parseSchedule(ctx, tree, meta, roster, newOptions(opts))
	}
	return Events{}, fmt.Errorf("%s %s: unknown event document", meta.FormType, meta.Accession)
}

// ParseSchedule parses a Schedule 13D/G document. Each attributed reporting
// person yields one OwnershipThreshold event whose aggregate amount owned is
// the authoritative post-transaction position.
func ParseSchedule(ctx context.Context, r io.Reader, meta Meta, roster *holdings.Roster, opts ...Option) (Events, error) {
	tree, err := parseTree(r)
	if err != nil {
		return Events{}, fmt.Errorf("cannot parse %s %s: %w", meta.FormType, meta.Accession, err)
	}
	return parseSchedule(ctx, tree, meta, roster, newOptions(opts))
}

// ParseForm4 parses a Form 4 document. Each non-derivative transaction yields
// one InsiderTransaction event per attributed fund.
func ParseForm4(ctx context.Context, r io.Reader, meta Meta, roster *holdings.Roster, opts ...Option) (Events, error) {
	tree, err := parseTree(r)
	if err != nil {
		return Events{}, fmt.Errorf("cannot parse %s %s: %w", meta.FormType, meta.Accession, err)
	}
	return parseForm4(ctx, tree, meta, roster, newOptions(opts))
}

func parseSchedule(ctx context.Context, tree *node, meta Meta, roster *holdings.Roster, o options) (Events, error) {
	var out Events
	form := tree.find("formdata")
	meta.FormType = cmp.Or(meta.FormType, tree.value("submissiontype"))
	log := o.log.WithFields(logrus.Fields{"accession": meta.Accession, "form": meta.FormType})

	issuerName := collapse(form.value("issuername"))
	issuerCIK, _ := holdings.NewCIK(form.value("issuercik"))
	cusip, err := holdings.NewCUSIP(form.value("issuercusip"))
	if err != nil {
		out.warn(holdings.WarnInvalidCUSIP, "%s %q: %v", meta.Accession, issuerName, err)
		return out, nil
	}
	on, err := date.Parse(form.first("dateofevent", "eventdaterequiresfilingthisstatement"))
	if err != nil {
		out.warn(holdings.WarnParse, "%s: %v", meta.Accession, err)
		return out, nil
	}

	persons := tree.findAll("coverpageheaderreportingpersondetails")
	if len(persons) == 0 {
		persons = tree.findAll("reportingpersoninfo")
	}
	filers := make([]filer, 0, len(persons))
	amounts := make([]holdings.Quantity, 0, len(persons))
	for _, p := range persons {
		f := filer{name: collapse(p.value("reportingpersonname"))}
		f.cik, _ = holdings.NewCIK(p.first("rptownercik", "reportingpersoncik"))
		raw := p.first("aggregateamountowned", "reportingpersonbeneficiallyownedaggregatenumberofshares")
		q, err := holdings.ParseQuantity(raw)
		if err != nil || q.IsNegative() {
			out.warn(holdings.WarnParse, "%s %q: invalid aggregate amount %q", meta.Accession, f.name, raw)
			continue
		}
		filers = append(filers, f)
		amounts = append(amounts, q)
	}

	ticker := ""
	if o.resolver != nil {
		if e, err := o.resolver.Resolve(ctx, cusip, issuerName); err == nil {
			ticker = e.Ticker
		} else if !errors.Is(err, holdings.ErrResolutionExhausted) {
			log.WithError(err).Warn("ticker resolution failed")
		}
	}

	for _, a := range attribute(&out, filers, meta, holdings.OwnershipThreshold, issuerName, roster, o.threshold) {
		if selfFiling(&out, roster, a.fund, issuerCIK, meta) {
			continue
		}
		i, post := a.filer, amounts[a.filer]
		out.Events = append(out.Events, holdings.EventFiling{
			Accession:       meta.Accession,
			Kind:            holdings.OwnershipThreshold,
			FormType:        meta.FormType,
			FilerName:       filers[i].name,
			FilerCIK:        filers[i].cik,
			Fund:            a.fund,
			IssuerName:      issuerName,
			IssuerCIK:       issuerCIK,
			CUSIP:           cusip,
			Ticker:          ticker,
			TransactionDate: on,
			FiledOn:         meta.FiledOn,
			Shares:          post,
			Direction:       holdings.Acquired,
			PostTransaction: &post,
		})
	}
	holdings.SortEvents(out.Events)
	return out, nil
}

func parseForm4(ctx context.Context, tree *node, meta Meta, roster *holdings.Roster, o options) (Events, error) {
	var out Events
	doc := tree.find("ownershipdocument")
	meta.FormType = cmp.Or(meta.FormType, doc.value("documenttype"))

	issuer := doc.find("issuer")
	issuerName := collapse(issuer.value("issuername"))
	issuerCIK, _ := holdings.NewCIK(issuer.value("issuercik"))
	symbol := strings.ToUpper(issuer.value("issuertradingsymbol"))

	var cusip holdings.CUSIP
	if o.reverse != nil && symbol != "" {
		cusip, _ = o.reverse.Reverse(ctx, symbol)
	}
	if cusip == "" && symbol == "" {
		out.warn(holdings.WarnUnkeyedEvent, "%s %q: no trading symbol", meta.Accession, issuerName)
		return out, nil
	}

	var filers []filer
	for _, p := range doc.findAll("reportingowner") {
		f := filer{name: collapse(p.value("rptownername"))}
		f.cik, _ = holdings.NewCIK(p.value("rptownercik"))
		filers = append(filers, f)
	}
	period, _ := date.Parse(doc.value("periodofreport"))

	type transaction struct {
		on        date.Date
		shares    holdings.Quantity
		direction holdings.Direction
		post      *holdings.Quantity
	}
	var transactions []transaction
	for i, n := range doc.findAll("nonderivativetransaction") {
		t := transaction{on: period}
		if raw := n.value("transactiondate"); raw != "" {
			on, err := date.Parse(raw)
			if err != nil {
				out.warn(holdings.WarnParse, "%s transaction %d: %v", meta.Accession, i+1, err)
				continue
			}
			t.on = on
		}
		if t.on.IsZero() {
			out.warn(holdings.WarnParse, "%s transaction %d: no date", meta.Accession, i+1)
			continue
		}
		shares, err := holdings.ParseQuantity(n.value("transactionshares"))
		if err != nil || shares.IsNegative() {
			out.warn(holdings.WarnParse, "%s transaction %d: invalid shares %q", meta.Accession, i+1, n.value("transactionshares"))
			continue
		}
		t.shares = shares
		switch d := holdings.Direction(strings.ToUpper(n.value("transactionacquireddisposedcode"))); d {
		case holdings.Acquired, holdings.Disposed:
			t.direction = d
		default:
			out.warn(holdings.WarnParse, "%s transaction %d: invalid acquired/disposed code %q", meta.Accession, i+1, d)
			continue
		}
		if raw := n.value("sharesownedfollowingtransaction"); raw != "" {
			if post, err := holdings.ParseQuantity(raw); err == nil && !post.IsNegative() {
				t.post = &post
			}
		}
		transactions = append(transactions, t)
	}

	for _, a := range attribute(&out, filers, meta, holdings.InsiderTransaction, issuerName, roster, o.threshold) {
		if selfFiling(&out, roster, a.fund, issuerCIK, meta) {
			continue
		}
		for _, t := range transactions {
			out.Events = append(out.Events, holdings.EventFiling{
				Accession:       meta.Accession,
				Kind:            holdings.InsiderTransaction,
				FormType:        meta.FormType,
				FilerName:       filers[a.filer].name,
				FilerCIK:        filers[a.filer].cik,
				Fund:            a.fund,
				IssuerName:      issuerName,
				IssuerCIK:       issuerCIK,
				CUSIP:           cusip,
				Ticker:          symbol,
				TransactionDate: t.on,
				FiledOn:         meta.FiledOn,
				Shares:          t.shares,
				Direction:       t.direction,
				PostTransaction: t.post,
			})
		}
	}
	holdings.SortEvents(out.Events)
	return out, nil
}

// attribution is a fund and the index of the first filer attributed to it.
type attribution struct {
	filer int
	fund  holdings.CIK
}

// attribute maps filers to funds, once per fund, in filer order. When no filer
// is attributed the filing is reported as unattributed.
func attribute(out *Events, filers []filer, meta Meta, kind holdings.FilingKind, issuerName string, roster *holdings.Roster, threshold float64) []attribution {
	var attributed []attribution
	seen := make(map[holdings.CIK]bool)
	var closest match.Attribution
	closestFiler := -1
	for i, f := range filers {
		a := match.Attribute(roster, f.name, f.cik, threshold)
		if !a.Attributed() {
			if closestFiler < 0 || a.Score > closest.Score {
				closest, closestFiler = a, i
			}
			continue
		}
		if !seen[a.Fund] {
			seen[a.Fund] = true
			attributed = append(attributed, attribution{filer: i, fund: a.Fund})
		}
	}
	if len(attributed) > 0 || len(filers) == 0 {
		return attributed
	}

	f := filers[closestFiler]
	u := holdings.Unattributed{
		Accession:  meta.Accession,
		Kind:       kind,
		FilerName:  f.name,
		FilerCIK:   f.cik,
		IssuerName: issuerName,
		FiledOn:    meta.FiledOn,
		BestFund:   closest.Best,
		BestScore:  closest.Score,
	}
	out.Unattributed = append(out.Unattributed, u)
	out.warn(holdings.WarnUnattributed, "%v", u)
	return attributed
}

// selfFiling reports (and warns) when the fund is the issuer itself.
func selfFiling(out *Events, roster *holdings.Roster, fund, issuer holdings.CIK, meta Meta) bool {
	if issuer == "" {
		return false
	}
	if f, ok := roster.Get(fund); !ok || !f.Owns(issuer) {
		return false
	}
	out.warn(holdings.WarnSelfFiling, "%s: fund %s reports on its own shares", meta.Accession, fund)
	return true
}
