package cmd

import (
	"context"
	"flag"

	"github.com/etnz/holdings"
	"github.com/etnz/holdings/edgar"
	"github.com/etnz/holdings/ingest"
	"github.com/etnz/holdings/renderer"
	"github.com/google/subcommands"
)

type ingestCmd struct {
	quarters int
}

func (*ingestCmd) Name() string     { return "ingest" }
func (*ingestCmd) Synopsis() string { return "fetch and store the latest filings of the tracked funds" }
func (*ingestCmd) Usage() string {
	return `hft ingest [-q <quarters>] [<cik>...]

Fetches from EDGAR the 13F-HR filings of the last quarters and the event
filings (Schedule 13D/G, Form 4) filed since, for the given funds or every
fund of the roster.

Snapshots are stored in <data>/snapshots and events appended to
<data>/events.jsonl. Filings already stored are skipped, so the command can
be run again safely.

EDGAR requires a user agent with a contact email, set it in the
configuration file or in the SEC_USER_AGENT environment variable.
`
}

func (c *ingestCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.quarters, "q", 2, "Number of most recent quarters to ingest")
}

func (c *ingestCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	e, err := load()
	if err != nil {
		return failf("Error loading configuration: %v", err)
	}
	roster, err := e.roster()
	if err != nil {
		return failf("Error loading roster: %v", err)
	}
	var funds []holdings.CIK
	for _, arg := range f.Args() {
		fi, err := fund(roster, arg, e.cfg.Threshold)
		if err != nil {
			return failf("Error: %v", err)
		}
		funds = append(funds, fi.CIK)
	}

	client, err := edgar.New(e.cfg.EdgarOptions(), edgar.WithLogger(e.log))
	if err != nil {
		return failf("Error creating EDGAR client: %v", err)
	}
	resolver, err := e.resolver()
	if err != nil {
		return failf("Error: %v", err)
	}
	defer func() {
		if err := resolver.Close(); err != nil {
			e.log.WithError(err).Error("cannot close ticker cache")
		}
	}()

	p := &ingest.Pipeline{
		Source:    client,
		Snapshots: e.snapshots(),
		Events:    e.events(),
		Roster:    roster,
		Resolver:  resolver,
		Workers:   e.cfg.Workers,
		Quarters:  c.quarters,
		Threshold: e.cfg.Threshold,
		Log:       e.log,
	}
	res, err := p.Run(ctx, funds...)
	if err != nil {
		return failf("Ingestion interrupted: %v", err)
	}

	stats := resolver.Stats()
	e.log.WithField("resolved", stats.Resolved).WithField("unresolved", len(stats.Unresolved)).Info("ticker resolution")

	names := make(map[holdings.CIK]string)
	for _, fi := range roster.Funds() {
		names[fi.CIK] = fi.Name
	}
	printMarkdown(renderer.RenderRun(renderer.NewRun(res, names)))
	if len(res.Failed()) > 0 {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
