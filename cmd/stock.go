package cmd

import (
	"context"
	"errors"
	"flag"

	"github.com/etnz/holdings"
	"github.com/etnz/holdings/date"
	"github.com/etnz/holdings/renderer"
	"github.com/google/subcommands"
)

// stockCmd lists the funds holding a security.
type stockCmd struct {
	quarter string
}

func (*stockCmd) Name() string     { return "stock" }
func (*stockCmd) Synopsis() string { return "display the positions of every fund in one security" }
func (*stockCmd) Usage() string {
	return `hft stock [-q <YYYYQn>] <ticker>

Lists the tracked funds that held, bought or closed a security during a
quarter, the latest one by default. Positions of a fund under several CUSIPs
sharing the ticker are summed. Unresolved securities are given by CUSIP.
`
}

func (c *stockCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.quarter, "q", "", "Quarter, defaults to the latest stored one")
}

func (c *stockCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		return failf("Error: expecting exactly one ticker")
	}
	e, err := load()
	if err != nil {
		return failf("Error loading configuration: %v", err)
	}
	roster, err := e.roster()
	if err != nil {
		return failf("Error loading roster: %v", err)
	}
	var (
		funds []holdings.CIK
		names = make(map[holdings.CIK]string)
	)
	for _, fi := range roster.Funds() {
		funds = append(funds, fi.CIK)
		names[fi.CIK] = fi.Name
	}

	st := e.snapshots()
	var q date.Quarter
	if c.quarter == "" {
		q, err = latestQuarter(st, funds)
	} else {
		q, err = date.ParseQuarter(c.quarter)
	}
	if err != nil {
		return failf("Error: %v", err)
	}

	fqs, err := holdings.QuarterFilings(st, funds, q)
	if err != nil {
		return failf("Error loading snapshots: %v", err)
	}
	report, err := holdings.AnalyzeStock(f.Arg(0), q, fqs)
	if err != nil {
		return failf("Error analyzing %s: %v", f.Arg(0), err)
	}
	printMarkdown(renderer.RenderStock(renderer.NewStock(report, names)))
	return subcommands.ExitSuccess
}

// latestQuarter returns the most recent quarter any of funds has a snapshot for.
func latestQuarter(st *holdings.SnapshotStore, funds []holdings.CIK) (date.Quarter, error) {
	var latest date.Quarter
	for _, fund := range funds {
		quarters, err := st.Quarters(fund)
		if err != nil {
			return date.Quarter{}, err
		}
		if n := len(quarters); n > 0 && (latest.IsZero() || latest.Before(quarters[n-1])) {
			latest = quarters[n-1]
		}
	}
	if latest.IsZero() {
		return date.Quarter{}, errors.New("no snapshot stored, run hft ingest first")
	}
	return latest, nil
}
