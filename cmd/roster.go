package cmd

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/google/subcommands"
)

type rosterCmd struct{}

func (*rosterCmd) Name() string     { return "roster" }
func (*rosterCmd) Synopsis() string { return "list the tracked funds" }
func (*rosterCmd) Usage() string {
	return `hft roster

Lists the funds of the roster file with their aliases and denominations.
`
}

func (*rosterCmd) SetFlags(*flag.FlagSet) {}

func (*rosterCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	e, err := load()
	if err != nil {
		return failf("Error loading configuration: %v", err)
	}
	roster, err := e.roster()
	if err != nil {
		return failf("Error loading roster: %v", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Tracked Funds\n\n")
	fmt.Fprintln(&b, "| CIK | Name | Manager | Aliases | Denominations |")
	fmt.Fprintln(&b, "|:---|:---|:---|:---|:---|")
	for _, f := range roster.Funds() {
		aliases := make([]string, len(f.Aliases))
		for i, a := range f.Aliases {
			aliases[i] = a.String()
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
			f.CIK,
			f.Name,
			f.Manager,
			strings.Join(aliases, ", "),
			strings.Join(f.Denominations, "; "),
		)
	}
	printMarkdown(b.String())
	return subcommands.ExitSuccess
}
