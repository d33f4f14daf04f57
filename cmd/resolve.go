package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/etnz/holdings"
	"github.com/google/subcommands"
)

type resolveCmd struct {
	set     string
	name    string
	reverse bool
}

func (*resolveCmd) Name() string     { return "resolve" }
func (*resolveCmd) Synopsis() string { return "resolve a CUSIP into a ticker, or fix the ticker cache" }
func (*resolveCmd) Usage() string {
	return `hft resolve [-set <ticker> [-name <name>]] <cusip> [<issuer name>...]
hft resolve -reverse <ticker>

Resolves a CUSIP through the ticker cache, then the providers: the keyless
provider, the keyed provider (requires FINNHUB_API_KEY), and the reference
dataset. Successful resolutions are cached.

The issuer name helps the providers when the CUSIP alone is not found.

With -set the cached ticker of the CUSIP is replaced, e.g. after a
corporate action changed it.
With -reverse the CUSIP of a ticker is looked up.
`
}

func (c *resolveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.set, "set", "", "Ticker to record for the CUSIP")
	f.StringVar(&c.name, "name", "", "Security name recorded with -set")
	f.BoolVar(&c.reverse, "reverse", false, "Look up the CUSIP of a ticker")
}

func (c *resolveCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() < 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	e, err := load()
	if err != nil {
		return failf("Error loading configuration: %v", err)
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

	if c.reverse {
		cusip, ok := resolver.Reverse(ctx, f.Arg(0))
		if !ok {
			return failf("No CUSIP known for %s", strings.ToUpper(f.Arg(0)))
		}
		fmt.Println(cusip)
		return subcommands.ExitSuccess
	}

	cusip, err := holdings.NewCUSIP(f.Arg(0))
	if err != nil {
		return failf("Error: %v", err)
	}

	if c.set != "" {
		entry, err := resolver.Set(ctx, cusip, c.set, c.name)
		if err != nil {
			return failf("Error updating ticker cache: %v", err)
		}
		fmt.Printf("%s\t%s\t%s\n", entry.CUSIP, entry.Ticker, entry.Source)
		return subcommands.ExitSuccess
	}

	issuer := strings.Join(f.Args()[1:], " ")
	entry, err := resolver.Resolve(ctx, cusip, issuer)
	if errors.Is(err, holdings.ErrResolutionExhausted) {
		return failf("No ticker found for %s", cusip)
	}
	if err != nil {
		return failf("Error resolving %s: %v", cusip, err)
	}
	fmt.Printf("%s\t%s\t%s\t%s\n", entry.CUSIP, entry.Ticker, entry.Source, entry.Name)
	return subcommands.ExitSuccess
}
