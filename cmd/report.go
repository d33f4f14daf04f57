package cmd

import (
	"context"
	"errors"
	"flag"
	"io/fs"

	"github.com/etnz/holdings"
	"github.com/etnz/holdings/date"
	"github.com/etnz/holdings/renderer"
	"github.com/google/subcommands"
)

// holdingsCmd prints a stored snapshot.
type holdingsCmd struct {
	quarter string
	version int
}

func (*holdingsCmd) Name() string     { return "holdings" }
func (*holdingsCmd) Synopsis() string { return "display the holdings of a fund at a quarter end" }
func (*holdingsCmd) Usage() string {
	return `hft holdings [-q <YYYYQn>] [-version <n>] <fund>

Displays the stored snapshot of a fund, the latest one by default.
The fund is given by CIK or by name.
`
}

func (c *holdingsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.quarter, "q", "", "Quarter of the snapshot, defaults to the latest")
	f.IntVar(&c.version, "version", 0, "Version of the snapshot, defaults to the latest")
}

func (c *holdingsCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	e, err := load()
	if err != nil {
		return failf("Error loading configuration: %v", err)
	}
	fi, _, err := e.fundArg(f)
	if err != nil {
		return failf("Error: %v", err)
	}

	st := e.snapshots()
	var s *holdings.Snapshot
	switch {
	case c.quarter == "":
		s, err = st.Latest(fi.CIK)
	default:
		q, perr := date.ParseQuarter(c.quarter)
		if perr != nil {
			return failf("Error parsing quarter: %v", perr)
		}
		if c.version > 0 {
			s, err = st.GetVersion(fi.CIK, q, c.version)
		} else {
			s, err = st.Get(fi.CIK, q)
		}
	}
	if err != nil {
		return failf("Error loading snapshot: %v", err)
	}
	printMarkdown(renderer.RenderHoldings(renderer.NewHoldings(fi, s, nil)))
	return subcommands.ExitSuccess
}

// diffCmd compares two stored snapshots.
type diffCmd struct {
	from, to string
	all      bool
}

func (*diffCmd) Name() string     { return "diff" }
func (*diffCmd) Synopsis() string { return "display the changes between two quarters of a fund" }
func (*diffCmd) Usage() string {
	return `hft diff [-from <YYYYQn>] [-to <YYYYQn>] [-all] <fund>

Compares two snapshots of a fund and lists the positions that are new,
closed, increased or decreased, largest value changes first.

By default the latest snapshot is compared to the one before it. Without a
prior snapshot every position is new.
`
}

func (c *diffCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.from, "from", "", "Prior quarter, defaults to the quarter before -to")
	f.StringVar(&c.to, "to", "", "Current quarter, defaults to the latest")
	f.BoolVar(&c.all, "all", false, "Also list unchanged positions")
}

func (c *diffCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	e, err := load()
	if err != nil {
		return failf("Error loading configuration: %v", err)
	}
	fi, _, err := e.fundArg(f)
	if err != nil {
		return failf("Error: %v", err)
	}

	st := e.snapshots()
	var to *holdings.Snapshot
	if c.to == "" {
		to, err = st.Latest(fi.CIK)
	} else {
		q, perr := date.ParseQuarter(c.to)
		if perr != nil {
			return failf("Error parsing quarter: %v", perr)
		}
		to, err = st.Get(fi.CIK, q)
	}
	if err != nil {
		return failf("Error loading snapshot: %v", err)
	}

	var from *holdings.Snapshot
	if c.from == "" {
		from, err = st.Previous(fi.CIK, to.Quarter())
		if errors.Is(err, fs.ErrNotExist) {
			from, err = nil, nil
		}
	} else {
		q, perr := date.ParseQuarter(c.from)
		if perr != nil {
			return failf("Error parsing quarter: %v", perr)
		}
		from, err = st.Get(fi.CIK, q)
	}
	if err != nil {
		return failf("Error loading prior snapshot: %v", err)
	}

	deltas, err := holdings.Diff(from, to)
	if err != nil {
		return failf("Error comparing snapshots: %v", err)
	}
	printMarkdown(renderer.RenderDiff(renderer.NewDiff(fi, from, to, deltas, nil, renderer.DiffOptions{HideUnchanged: !c.all})))
	return subcommands.ExitSuccess
}

// currentCmd compares the latest snapshot with the events disclosed since.
type currentCmd struct {
	quarter string
	all     bool
	show    bool
}

func (*currentCmd) Name() string     { return "current" }
func (*currentCmd) Synopsis() string { return "display the changes disclosed since the last quarter end" }
func (*currentCmd) Usage() string {
	return `hft current [-q <YYYYQn>] [-all] [-holdings] <fund>

Merges the event filings (Schedule 13D/G, Form 4) transacted after the
quarter end into the snapshot, and compares the result with the filed
snapshot.

With -q an older quarter is used, and only the events transacted before the
next snapshot became available are merged.
With -holdings the synthesized holdings are displayed instead.
`
}

func (c *currentCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.quarter, "q", "", "Quarter of the filed snapshot, defaults to the latest")
	f.BoolVar(&c.all, "all", false, "Also list unchanged positions")
	f.BoolVar(&c.show, "holdings", false, "Display the synthesized holdings instead of the changes")
}

func (c *currentCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	e, err := load()
	if err != nil {
		return failf("Error loading configuration: %v", err)
	}
	fi, _, err := e.fundArg(f)
	if err != nil {
		return failf("Error: %v", err)
	}
	var q date.Quarter
	if c.quarter != "" {
		if q, err = date.ParseQuarter(c.quarter); err != nil {
			return failf("Error parsing quarter: %v", err)
		}
	}

	base, current, warnings, err := holdings.Current(e.snapshots(), e.events(), fi.CIK, q)
	if err != nil {
		return failf("Error merging events: %v", err)
	}
	if c.show {
		printMarkdown(renderer.RenderHoldings(renderer.NewHoldings(fi, current, warnings)))
		return subcommands.ExitSuccess
	}
	deltas, err := holdings.Diff(base, current)
	if err != nil {
		return failf("Error comparing snapshots: %v", err)
	}
	printMarkdown(renderer.RenderDiff(renderer.NewDiff(fi, base, current, deltas, warnings, renderer.DiffOptions{HideUnchanged: !c.all})))
	return subcommands.ExitSuccess
}

// eventsCmd lists the cached events of a fund.
type eventsCmd struct {
	all bool
}

func (*eventsCmd) Name() string     { return "events" }
func (*eventsCmd) Synopsis() string { return "list the event filings of a fund" }
func (*eventsCmd) Usage() string {
	return `hft events [-all] <fund>

Lists the cached event filings of a fund transacted after its latest
snapshot quarter end, or every cached one with -all. Superseded amendments
are not listed.
`
}

func (c *eventsCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.all, "all", false, "List every cached event")
}

func (c *eventsCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	e, err := load()
	if err != nil {
		return failf("Error loading configuration: %v", err)
	}
	fi, _, err := e.fundArg(f)
	if err != nil {
		return failf("Error: %v", err)
	}
	events, err := e.events().ForFund(fi.CIK)
	if err != nil {
		return failf("Error loading events: %v", err)
	}

	var since date.Date
	if !c.all {
		latest, err := e.snapshots().Latest(fi.CIK)
		switch {
		case err == nil:
			since = latest.Quarter().End()
		case !errors.Is(err, fs.ErrNotExist):
			return failf("Error loading snapshot: %v", err)
		}
	}
	if !since.IsZero() {
		kept := events[:0]
		for _, ev := range events {
			if ev.TransactionDate.After(since) {
				kept = append(kept, ev)
			}
		}
		events = kept
	}
	printMarkdown(renderer.RenderEvents(renderer.NewEvents(fi, since.String(), events)))
	return subcommands.ExitSuccess
}
