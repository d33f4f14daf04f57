// Package cmd implements the hft command line application.
package cmd

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/holdings"
	"github.com/etnz/holdings/config"
	"github.com/etnz/holdings/match"
	"github.com/etnz/holdings/ticker"
	"github.com/etnz/holdings/web"
	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&ingestCmd{}, "filings")
	c.Register(&parseCmd{}, "filings")
	c.Register(&eventCmd{}, "filings")

	c.Register(&holdingsCmd{}, "reports")
	c.Register(&diffCmd{}, "reports")
	c.Register(&currentCmd{}, "reports")
	c.Register(&eventsCmd{}, "reports")
	c.Register(&stockCmd{}, "reports")

	c.Register(&resolveCmd{}, "reference")
	c.Register(&rosterCmd{}, "reference")
	c.Register(&topicCmd{}, "reference")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var (
	configFile = flag.String("config", "hft.yaml", "Path to the configuration file")
	dataDir    = flag.String("data", "", "Path to the data folder, overrides the configuration")
	rosterFile = flag.String("roster", "", "Path to the fund roster, overrides the configuration")
	verbose    = flag.Bool("v", false, "Log debug messages")
	plain      = flag.Bool("plain", false, "Print raw markdown instead of rendering it for the terminal")
)

// env bundles what the commands need.
type env struct {
	cfg config.Config
	log *logrus.Logger
}

// load reads the configuration, then applies the global flags.
func load() (*env, error) {
	cfg, err := config.Load(*configFile)
	if err != nil {
		return nil, err
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *rosterFile != "" {
		cfg.Roster = *rosterFile
	}
	if *verbose {
		cfg.Log.Level = logrus.DebugLevel.String()
	}
	log, err := cfg.Logger(os.Stderr)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, log: log}, nil
}

func (e *env) snapshots() *holdings.SnapshotStore {
	return holdings.NewSnapshotStore(e.cfg.SnapshotsDir())
}

func (e *env) events() *holdings.EventCache { return holdings.NewEventCache(e.cfg.EventsFile()) }

func (e *env) roster() (*holdings.Roster, error) { return holdings.LoadRoster(e.cfg.Roster) }

// resolver opens the ticker cache and builds the provider chain.
func (e *env) resolver() (*ticker.Resolver, error) {
	var (
		store ticker.Store
		err   error
	)
	switch e.cfg.Tickers.Store {
	case config.StoreSQLite:
		store, err = ticker.OpenSQLStore(e.cfg.TickersPath())
	default:
		store, err = ticker.OpenFileStore(e.cfg.TickersPath())
	}
	if err != nil {
		return nil, fmt.Errorf("cannot open ticker cache: %w", err)
	}

	var providers []ticker.Strategy
	if e.cfg.Tickers.Yahoo {
		providers = append(providers, ticker.NewYahoo(web.New(e.cfg.HTTPOptions()), ""))
	}
	opts := e.cfg.HTTPOptions()
	opts.Rate = e.cfg.Tickers.FinnhubRate
	providers = append(providers, ticker.NewFinnhub(web.New(opts), "", e.cfg.Tickers.FinnhubKey))

	ref, err := ticker.NewReference(e.cfg.Tickers.Reference...)
	if err != nil {
		store.Close()
		return nil, err
	}
	providers = append(providers, ref)

	return ticker.New(store, providers, ticker.WithLogger(e.log)), nil
}

// fund finds a roster fund by CIK, or by name.
func fund(roster *holdings.Roster, arg string, threshold float64) (holdings.FundIdentity, error) {
	if cik, err := holdings.NewCIK(arg); err == nil {
		if f, ok := roster.Get(cik); ok {
			return f, nil
		}
		return holdings.FundIdentity{}, fmt.Errorf("fund %s is not in the roster", cik)
	}
	a := match.Attribute(roster, arg, "", threshold)
	if !a.Attributed() {
		if a.Best != "" {
			best, _ := roster.Get(a.Best)
			return holdings.FundIdentity{}, fmt.Errorf("no fund named %q, did you mean %q (%s)?", arg, best.Name, best.CIK)
		}
		return holdings.FundIdentity{}, fmt.Errorf("no fund named %q", arg)
	}
	f, _ := roster.Get(a.Fund)
	return f, nil
}

// fundArg reads the single fund argument of a command.
func (e *env) fundArg(f *flag.FlagSet) (holdings.FundIdentity, *holdings.Roster, error) {
	if f.NArg() != 1 {
		return holdings.FundIdentity{}, nil, errors.New("expecting exactly one fund, by CIK or name")
	}
	roster, err := e.roster()
	if err != nil {
		return holdings.FundIdentity{}, nil, err
	}
	fi, err := fund(roster, f.Arg(0), e.cfg.Threshold)
	return fi, roster, err
}

// printMarkdown renders md for the terminal, or prints it as is with -plain.
func printMarkdown(md string) {
	writeMarkdown(os.Stdout, md, *plain)
}

func writeMarkdown(w io.Writer, md string, raw bool) {
	if raw {
		fmt.Fprint(w, md)
		return
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(0))
	if err != nil {
		fmt.Fprint(w, md)
		return
	}
	out, err := r.Render(md)
	if err != nil {
		fmt.Fprint(w, md)
		return
	}
	fmt.Fprint(w, out)
}

// failf prints an error and returns the failure status.
func failf(format string, args ...any) subcommands.ExitStatus {
	msg := fmt.Sprintf(format, args...)
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	fmt.Fprint(os.Stderr, msg)
	return subcommands.ExitFailure
}
