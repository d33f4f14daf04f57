package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"slices"

	"github.com/etnz/holdings"
	"github.com/etnz/holdings/date"
	"github.com/etnz/holdings/filing"
	"github.com/etnz/holdings/renderer"
	"github.com/google/subcommands"
)

// eventCmd parses a local event filing.
type eventCmd struct {
	accession string
	form      string
	filed     string
	store     bool
}

func (*eventCmd) Name() string     { return "event" }
func (*eventCmd) Synopsis() string { return "parse a Schedule 13D/G or Form 4 file" }
func (*eventCmd) Usage() string {
	return `hft event -accession <number> -filed <date> [-form <type>] [-store] <file.xml>

Parses a Schedule 13D/G or a Form 4 document, attributes its reporting
persons to the funds of the roster and prints the resulting events.

With -store the attributed events are appended to the event cache.
`
}

func (c *eventCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.accession, "accession", "", "Accession number of the filing")
	f.StringVar(&c.form, "form", "", "Form type as filed, e.g. \"SC 13G/A\"")
	f.StringVar(&c.filed, "filed", date.Today().String(), "Filing date")
	f.BoolVar(&c.store, "store", false, "Append the events to the event cache")
}

func (c *eventCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 || c.accession == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}
	filed, err := date.Parse(c.filed)
	if err != nil {
		return failf("Error parsing filing date: %v", err)
	}

	e, err := load()
	if err != nil {
		return failf("Error loading configuration: %v", err)
	}
	roster, err := e.roster()
	if err != nil {
		return failf("Error loading roster: %v", err)
	}
	resolver, err := e.resolver()
	if err != nil {
		return failf("Error: %v", err)
	}
	defer resolver.Close()

	in, err := os.Open(f.Arg(0))
	if err != nil {
		return failf("Error opening event filing: %v", err)
	}
	defer in.Close()

	meta := filing.Meta{Accession: c.accession, FormType: c.form, FiledOn: filed}
	parsed, err := filing.ParseEvent(ctx, in, meta, roster,
		filing.WithResolver(resolver), filing.WithLogger(e.log), filing.WithThreshold(e.cfg.Threshold))
	if err != nil {
		return failf("Error parsing event filing: %v", err)
	}
	for _, w := range parsed.Warnings {
		fmt.Fprintln(os.Stderr, w)
	}
	for _, u := range parsed.Unattributed {
		e.log.WithError(u).Warn("event filing left for review")
	}
	if c.store {
		if err := e.events().Append(parsed.Events...); err != nil {
			return failf("Error storing events: %v", err)
		}
	}

	for _, fi := range roster.Funds() {
		events := slices.DeleteFunc(slices.Clone(parsed.Events), func(ev holdings.EventFiling) bool { return ev.Fund != fi.CIK })
		if len(events) > 0 {
			printMarkdown(renderer.RenderEvents(renderer.NewEvents(fi, "", events)))
		}
	}
	return subcommands.ExitSuccess
}
