package cmd

import (
	"context"
	"flag"
	"os"

	"github.com/etnz/holdings"
	"github.com/etnz/holdings/date"
	"github.com/etnz/holdings/filing"
	"github.com/etnz/holdings/renderer"
	"github.com/google/subcommands"
)

// parseCmd parses a local 13F information table.
type parseCmd struct {
	fund      string
	quarter   string
	filed     string
	accession string
	store     bool
	offline   bool
}

func (*parseCmd) Name() string     { return "parse" }
func (*parseCmd) Synopsis() string { return "parse a 13F information table file into a snapshot" }
func (*parseCmd) Usage() string {
	return `hft parse -fund <cik> -quarter <YYYYQn> [-filed <date>] [-accession <number>] [-store] [-offline] <file.xml>

Parses a 13F information table and prints the resulting holdings, with the
warnings raised by the rows that were dropped or degraded.

With -store the snapshot is written to the data folder, as a new version
when the quarter was already stored with a different content.
With -offline tickers are not resolved.
`
}

func (c *parseCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.fund, "fund", "", "CIK or name of the filing fund")
	f.StringVar(&c.quarter, "quarter", "", "Quarter of the report, e.g. 2025Q1")
	f.StringVar(&c.filed, "filed", "", "Filing date")
	f.StringVar(&c.accession, "accession", "", "Accession number of the filing")
	f.BoolVar(&c.store, "store", false, "Store the snapshot")
	f.BoolVar(&c.offline, "offline", false, "Do not resolve tickers")
}

func (c *parseCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 || c.fund == "" || c.quarter == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}
	q, err := date.ParseQuarter(c.quarter)
	if err != nil {
		return failf("Error parsing quarter: %v", err)
	}
	var filed date.Date
	if c.filed != "" {
		if filed, err = date.Parse(c.filed); err != nil {
			return failf("Error parsing filing date: %v", err)
		}
	}

	e, err := load()
	if err != nil {
		return failf("Error loading configuration: %v", err)
	}
	roster, err := e.roster()
	if err != nil {
		return failf("Error loading roster: %v", err)
	}
	fi, err := fund(roster, c.fund, e.cfg.Threshold)
	if err != nil {
		return failf("Error: %v", err)
	}

	in, err := os.Open(f.Arg(0))
	if err != nil {
		return failf("Error opening information table: %v", err)
	}
	defer in.Close()

	opts := []filing.Option{filing.WithLogger(e.log)}
	if !c.offline {
		resolver, err := e.resolver()
		if err != nil {
			return failf("Error: %v", err)
		}
		defer resolver.Close()
		opts = append(opts, filing.WithResolver(resolver))
	}

	h := holdings.SnapshotHeader{Fund: fi.CIK, Quarter: q, FiledOn: filed, Accession: c.accession}
	s, warnings, err := filing.ParseHoldings(ctx, in, h, opts...)
	if err != nil {
		return failf("Error parsing information table: %v", err)
	}
	if c.store {
		if s, err = e.snapshots().PutVersion(s); err != nil {
			return failf("Error storing snapshot: %v", err)
		}
		e.log.WithField("fund", fi.CIK).WithField("quarter", q).WithField("version", s.Version()).Info("snapshot stored")
	}

	printMarkdown(renderer.RenderHoldings(renderer.NewHoldings(fi, s, warnings)))
	return subcommands.ExitSuccess
}
