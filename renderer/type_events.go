package renderer

import (
	"fmt"
	"time"

	"github.com/etnz/holdings"
	"github.com/etnz/holdings/ingest"
)

// Events is the view of the event filings attributed to a fund.
type Events struct {
	Fund  string
	CIK   string
	Since string // empty when every event is listed
	Rows  []EventRow
}

// EventRow is one attributed event.
type EventRow struct {
	Date            string
	FiledOn         string
	Form            string
	Accession       string
	Filer           string
	Security        string
	Direction       string
	Shares          string
	PostTransaction string
}

// NewEvents builds the view of events, already sorted chronologically.
func NewEvents(fund holdings.FundIdentity, since string, events []holdings.EventFiling) *Events {
	v := &Events{Fund: cell(fund.Name), CIK: fund.CIK.String(), Since: since}
	for _, e := range events {
		security := e.Ticker
		if e.CUSIP != "" {
			security = fmt.Sprintf("%s %s", e.CUSIP, e.Ticker)
		}
		post := "-"
		if e.PostTransaction != nil {
			post = e.PostTransaction.String()
		}
		direction := "bought"
		if e.Direction == holdings.Disposed {
			direction = "sold"
		}
		v.Rows = append(v.Rows, EventRow{
			Date:            e.TransactionDate.String(),
			FiledOn:         e.FiledOn.String(),
			Form:            cell(e.FormType),
			Accession:       e.Accession,
			Filer:           cell(e.FilerName),
			Security:        cell(fmt.Sprintf("%s (%s)", e.IssuerName, security)),
			Direction:       direction,
			Shares:          e.Shares.String(),
			PostTransaction: post,
		})
	}
	return v
}

// Run is the view of an ingestion run.
type Run struct {
	ID       string
	Started  string
	Duration string
	Funds    []RunFund
	Failed   int

	Unattributed []UnattributedRow
}

// RunFund is the outcome of one fund.
type RunFund struct {
	Fund      string
	Snapshots string
	Events    int
	Warnings  int
	Status    string
}

// UnattributedRow is an event filing left for manual review.
type UnattributedRow struct {
	FiledOn   string
	Form      string
	Accession string
	Filer     string
	Issuer    string
	BestFund  string
	Score     string
}

// NewRun builds the view of res; names maps fund CIKs to display names.
func NewRun(res ingest.Result, names map[holdings.CIK]string) *Run {
	r := &Run{
		ID:       res.RunID,
		Started:  res.Started.Format(time.RFC3339),
		Duration: res.Duration.Round(time.Millisecond).String(),
		Failed:   len(res.Failed()),
	}
	for _, f := range res.Funds {
		name := f.Fund.String()
		if n, ok := names[f.Fund]; ok {
			name = fmt.Sprintf("%s (%s)", n, f.Fund)
		}
		snapshots := "-"
		for i, h := range f.Snapshots {
			if i == 0 {
				snapshots = ""
			} else {
				snapshots += ", "
			}
			snapshots += fmt.Sprintf("%s v%d", h.Quarter, h.Version)
		}
		status := "ok"
		if f.Err != nil {
			status = "failed: " + f.Err.Error()
		}
		r.Funds = append(r.Funds, RunFund{
			Fund:      cell(name),
			Snapshots: snapshots,
			Events:    f.Events,
			Warnings:  len(f.Warnings),
			Status:    cell(status),
		})
		for _, u := range f.Unattributed {
			best, score := "-", "-"
			if u.BestFund != "" {
				best = cell(fundName(names, u.BestFund))
				score = fmt.Sprintf("%.2f", u.BestScore)
			}
			r.Unattributed = append(r.Unattributed, UnattributedRow{
				FiledOn:   u.FiledOn.String(),
				Form:      string(u.Kind),
				Accession: u.Accession,
				Filer:     cell(fmt.Sprintf("%s (%s)", u.FilerName, u.FilerCIK)),
				Issuer:    cell(u.IssuerName),
				BestFund:  best,
				Score:     score,
			})
		}
	}
	return r
}

func fundName(names map[holdings.CIK]string, cik holdings.CIK) string {
	if n, ok := names[cik]; ok {
		return n
	}
	return cik.String()
}
