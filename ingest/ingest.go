// Package ingest fetches, parses and stores the filings of the tracked funds.
//
// A Pipeline run processes funds concurrently on a bounded pool of workers.
// Funds are isolated: a fund failing to fetch or parse is reported in its
// FundResult and the other funds go on.
package ingest

import (
	"bytes"
	"cmp"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"time"

	"github.com/etnz/holdings"
	"github.com/etnz/holdings/date"
	"github.com/etnz/holdings/edgar"
	"github.com/etnz/holdings/filing"
	"github.com/etnz/holdings/match"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Source lists and downloads filings, see edgar.Client.
type Source interface {
	Submissions(ctx context.Context, cik holdings.CIK) ([]edgar.Filing, error)
	InformationTable(ctx context.Context, f edgar.Filing) ([]byte, error)
	EventDocument(ctx context.Context, f edgar.Filing) ([]byte, error)
}

// Pipeline ingests filings into the stores.
type Pipeline struct {
	Source    Source
	Snapshots *holdings.SnapshotStore
	Events    *holdings.EventCache
	Roster    *holdings.Roster
	Resolver  filing.Resolver // optional

	Workers   int     // 1 when zero
	Quarters  int     // number of most recent quarters to ingest, 2 when zero
	Threshold float64 // attribution threshold, match.DefaultThreshold when zero
	Log       logrus.FieldLogger
}

// FundResult is the outcome of one fund.
type FundResult struct {
	Fund         holdings.CIK
	Snapshots    []holdings.SnapshotHeader // stored during the run
	Events       int                       // events cached during the run
	Unattributed []holdings.Unattributed
	Warnings     []holdings.Warning
	Err          error
}

// Result is the outcome of a run.
type Result struct {
	RunID    string
	Started  time.Time
	Duration time.Duration
	Funds    []FundResult // in the order of the requested funds
}

// Failed returns the funds that failed.
func (r Result) Failed() []FundResult {
	return slices.DeleteFunc(slices.Clone(r.Funds), func(f FundResult) bool { return f.Err == nil })
}

// Run ingests funds, all the roster funds when funds is empty. It only
// returns an error when ctx is done; fund failures are in the Result.
func (p *Pipeline) Run(ctx context.Context, funds ...holdings.CIK) (Result, error) {
	if len(funds) == 0 {
		for _, f := range p.Roster.Funds() {
			funds = append(funds, f.CIK)
		}
	}
	res := Result{RunID: uuid.NewString(), Started: time.Now(), Funds: make([]FundResult, len(funds))}
	log := p.logger().WithField("run", res.RunID)
	log.WithField("funds", len(funds)).Info("ingestion started")

	var g errgroup.Group
	g.SetLimit(max(p.Workers, 1))
	for i, fund := range funds {
		g.Go(func() error {
			res.Funds[i] = p.fund(ctx, log.WithField("fund", fund), fund)
			return nil
		})
	}
	g.Wait()
	res.Duration = time.Since(res.Started)

	failed := len(res.Failed())
	log.WithFields(logrus.Fields{"failed": failed, "duration": res.Duration.Round(time.Millisecond)}).Info("ingestion done")
	return res, ctx.Err()
}

func (p *Pipeline) logger() logrus.FieldLogger {
	if p.Log == nil {
		return logrus.StandardLogger()
	}
	return p.Log
}

func (p *Pipeline) options(log logrus.FieldLogger) []filing.Option {
	opts := []filing.Option{filing.WithLogger(log), filing.WithThreshold(cmp.Or(p.Threshold, match.DefaultThreshold))}
	if p.Resolver != nil {
		opts = append(opts, filing.WithResolver(p.Resolver))
	}
	return opts
}

// fund ingests the holdings then the events of one fund.
func (p *Pipeline) fund(ctx context.Context, log logrus.FieldLogger, fund holdings.CIK) FundResult {
	res := FundResult{Fund: fund}
	if !p.Roster.Tracks(fund) {
		res.Err = fmt.Errorf("fund %s is not in the roster", fund)
		return res
	}
	filings, err := p.Source.Submissions(ctx, fund)
	if err != nil {
		res.Err = err
		log.WithError(err).Error("cannot list filings")
		return res
	}
	if err := p.holdings(ctx, log, filings, &res); err != nil {
		res.Err = err
		log.WithError(err).Error("holdings ingestion failed")
		return res
	}
	if err := p.events(ctx, log, fund, filings, &res); err != nil {
		res.Err = err
		log.WithError(err).Error("events ingestion failed")
	}
	return res
}

// latestPerQuarter returns the most recent 13F-HR of each of the n latest
// quarters, most recent quarter first. filings are sorted by filing date, most
// recent first.
//
// TODO: 13F-HR/A restatements (amendmentType RESTATEMENT on the cover page)
// should be ingested as new snapshot versions; amendments are ignored for now.
func latestPerQuarter(filings []edgar.Filing, n int) []edgar.Filing {
	var selected []edgar.Filing
	seen := make(map[date.Quarter]bool)
	for _, f := range filings {
		if f.Form != edgar.Form13F || f.ReportDate.IsZero() || seen[f.Quarter()] {
			continue
		}
		seen[f.Quarter()] = true
		selected = append(selected, f)
	}
	slices.SortStableFunc(selected, func(a, b edgar.Filing) int { return b.ReportDate.Compare(a.ReportDate) })
	if len(selected) > n {
		selected = selected[:n]
	}
	return selected
}

func (p *Pipeline) holdings(ctx context.Context, log logrus.FieldLogger, filings []edgar.Filing, res *FundResult) error {
	for _, f := range latestPerQuarter(filings, cmp.Or(p.Quarters, 2)) {
		log := log.WithFields(logrus.Fields{"quarter": f.Quarter(), "accession": f.Accession})
		existing, err := p.Snapshots.Get(res.Fund, f.Quarter())
		if err == nil && existing.Accession() == f.Accession {
			log.Debug("snapshot already stored")
			continue
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}

		doc, err := p.Source.InformationTable(ctx, f)
		if err != nil {
			return err
		}
		h := holdings.SnapshotHeader{Fund: res.Fund, Quarter: f.Quarter(), FiledOn: f.FiledOn, Accession: f.Accession}
		s, warnings, err := filing.ParseHoldings(ctx, bytes.NewReader(doc), h, p.options(log)...)
		res.Warnings = append(res.Warnings, warnings...)
		if err != nil {
			return err
		}
		stored, err := p.Snapshots.PutVersion(s)
		if err != nil {
			return err
		}
		res.Snapshots = append(res.Snapshots, stored.Header())
		log.WithFields(logrus.Fields{"records": s.Len(), "version": stored.Version(), "warnings": len(warnings)}).Info("snapshot stored")
	}
	return nil
}

// events ingests the event filings disclosed since the latest snapshot quarter end.
func (p *Pipeline) events(ctx context.Context, log logrus.FieldLogger, fund holdings.CIK, filings []edgar.Filing, res *FundResult) error {
	latest, err := p.Snapshots.Latest(fund)
	if errors.Is(err, fs.ErrNotExist) {
		log.Debug("no snapshot, events skipped")
		return nil
	}
	if err != nil {
		return err
	}
	since := latest.Quarter().End()
	cached, err := p.Events.Accessions()
	if err != nil {
		return err
	}

	for _, f := range filings {
		if !f.IsEvent() || !f.FiledOn.After(since) || cached[f.Accession] {
			continue
		}
		doc, err := p.Source.EventDocument(ctx, f)
		if err != nil {
			return err
		}
		meta := filing.Meta{Accession: f.Accession, FormType: f.Form, FiledOn: f.FiledOn}
		parsed, err := filing.ParseEvent(ctx, bytes.NewReader(doc), meta, p.Roster, p.options(log)...)
		if err != nil {
			res.Warnings = append(res.Warnings, holdings.Warnf(holdings.WarnParse, 0, "%v", err))
			log.WithError(err).Warn("event filing skipped")
			continue
		}
		res.Warnings = append(res.Warnings, parsed.Warnings...)
		res.Unattributed = append(res.Unattributed, parsed.Unattributed...)
		if err := p.Events.Append(parsed.Events...); err != nil {
			return err
		}
		res.Events += len(parsed.Events)
	}
	log.WithField("events", res.Events).Info("events cached")
	return nil
}
