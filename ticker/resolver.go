// Package ticker resolves CUSIPs into tickers through an ordered chain of
// strategies: a persistent store, a keyless provider, a keyed provider, and a
// static reference dataset.
//
// The first strategy that knows a CUSIP wins; its answer is written to the
// store tagged with the tier that produced it. A CUSIP no strategy knows is
// remembered as unresolved until the Resolver is discarded, so it is looked up
// at most once per run. Concurrent requests for the same CUSIP share one
// lookup.
package ticker

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/etnz/holdings"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Tier is the position of a strategy in the resolution chain.
type Tier int

const (
	TierCache Tier = iota
	TierKeyless
	TierKeyed
	TierReference
	numTiers
)

var tierNames = [numTiers]string{"cache", "keyless-provider", "keyed-provider", "reference"}

func (t Tier) String() string {
	if t < 0 || t >= numTiers {
		return fmt.Sprintf("tier(%d)", int(t))
	}
	return tierNames[t]
}

// ParseTier parses a tier name as returned by String.
func ParseTier(s string) (Tier, error) {
	if i := slices.Index(tierNames[:], s); i >= 0 {
		return Tier(i), nil
	}
	return 0, fmt.Errorf("unknown tier %q", s)
}

// Query is what a strategy knows about the security to resolve.
type Query struct {
	CUSIP  holdings.CUSIP
	Issuer string
}

// Result is a strategy answer. An empty Ticker means not found.
type Result struct {
	Ticker string
	Name   string
}

// Found reports whether the strategy knew the security.
func (r Result) Found() bool { return r.Ticker != "" }

// Strategy is one step of the resolution chain.
//
// Lookup returns a zero Result and a nil error when the security is unknown to
// the strategy; an error means the strategy could not answer.
type Strategy interface {
	Tier() Tier
	Name() string
	Lookup(ctx context.Context, q Query) (Result, error)
}

// enabler is implemented by strategies that can be configured out, e.g. a keyed
// provider without a key.
type enabler interface {
	Enabled() bool
}

// Reverser is implemented by strategies that can map a ticker back to a CUSIP.
type Reverser interface {
	Reverse(ticker string) (holdings.CUSIP, bool)
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger, logrus.StandardLogger() by default.
func WithLogger(l logrus.FieldLogger) Option { return func(r *Resolver) { r.log = l } }

// WithClock sets the clock used to timestamp resolutions.
func WithClock(now func() time.Time) Option { return func(r *Resolver) { r.now = now } }

// Resolver runs the resolution chain. It is safe for concurrent use.
type Resolver struct {
	store     Store
	providers []Strategy
	log       logrus.FieldLogger
	now       func() time.Time

	flights singleflight.Group
	entries sync.Map // holdings.CUSIP -> holdings.TickerEntry, resolved or not
	calls   [numTiers]atomic.Int64
}

// New creates a Resolver over store and providers. Providers are tried by
// increasing tier; providers of the same tier keep their order.
func New(store Store, providers []Strategy, opts ...Option) *Resolver {
	r := &Resolver{
		store:     store,
		providers: slices.Clone(providers),
		log:       logrus.StandardLogger(),
		now:       time.Now,
	}
	slices.SortStableFunc(r.providers, func(a, b Strategy) int { return int(a.Tier() - b.Tier()) })
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the ticker entry of cusip. When no tier knows it, the
// returned entry is unresolved and the error wraps holdings.ErrResolutionExhausted.
// issuer is a hint for providers searching by name.
func (r *Resolver) Resolve(ctx context.Context, cusip holdings.CUSIP, issuer string) (holdings.TickerEntry, error) {
	if v, ok := r.entries.Load(cusip); ok {
		return result(v.(holdings.TickerEntry))
	}
	v, err, _ := r.flights.Do(string(cusip), func() (any, error) {
		if v, ok := r.entries.Load(cusip); ok {
			return v, nil
		}
		e, err := r.chain(ctx, Query{CUSIP: cusip, Issuer: issuer})
		if err != nil {
			// no entry: a cancelled chain is retried by the next request.
			return nil, err
		}
		r.entries.Store(cusip, e)
		return e, nil
	})
	if err != nil {
		return holdings.TickerEntry{CUSIP: cusip}, err
	}
	return result(v.(holdings.TickerEntry))
}

func result(e holdings.TickerEntry) (holdings.TickerEntry, error) {
	if !e.Resolved() {
		return e, fmt.Errorf("%s: %w", e.CUSIP, holdings.ErrResolutionExhausted)
	}
	return e, nil
}

// chain tries every tier in order.
func (r *Resolver) chain(ctx context.Context, q Query) (holdings.TickerEntry, error) {
	log := r.log.WithField("cusip", q.CUSIP)

	if r.store != nil {
		r.calls[TierCache].Add(1)
		e, found, err := r.store.Get(ctx, q.CUSIP)
		switch {
		case err != nil:
			log.WithError(err).Warn("ticker store lookup failed")
		case found && e.Resolved():
			return e, nil
		}
	}

	for _, p := range r.providers {
		if en, ok := p.(enabler); ok && !en.Enabled() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return holdings.TickerEntry{}, err
		}
		r.calls[p.Tier()].Add(1)
		res, err := p.Lookup(ctx, q)
		if err != nil {
			log.WithError(err).WithFields(logrus.Fields{"tier": p.Tier(), "provider": p.Name()}).Warn("ticker lookup failed, trying next tier")
			continue
		}
		if !res.Found() {
			log.WithFields(logrus.Fields{"tier": p.Tier(), "provider": p.Name()}).Debug("ticker not found")
			continue
		}
		e := holdings.TickerEntry{
			CUSIP:      q.CUSIP,
			Ticker:     strings.ToUpper(res.Ticker),
			Name:       cmp.Or(res.Name, q.Issuer),
			Source:     p.Tier().String(),
			ResolvedAt: r.now().UTC(),
		}
		if r.store != nil {
			if err := r.store.Put(ctx, e); err != nil {
				log.WithError(err).Warn("cannot persist ticker")
			}
		}
		log.WithFields(logrus.Fields{"tier": p.Tier(), "ticker": e.Ticker}).Debug("ticker resolved")
		return e, nil
	}

	log.Info("ticker unresolved")
	return holdings.TickerEntry{CUSIP: q.CUSIP, Name: q.Issuer, ResolvedAt: r.now().UTC()}, nil
}

// Reverse returns the CUSIP of a ticker from the entries already known, the
// store, or a strategy implementing Reverser.
func (r *Resolver) Reverse(ctx context.Context, ticker string) (holdings.CUSIP, bool) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return "", false
	}
	var found holdings.CUSIP
	r.entries.Range(func(k, v any) bool {
		if e := v.(holdings.TickerEntry); e.Ticker == ticker && (found == "" || e.CUSIP < found) {
			found = e.CUSIP
		}
		return true
	})
	if found != "" {
		return found, true
	}
	if r.store != nil {
		e, ok, err := r.store.FindTicker(ctx, ticker)
		if err != nil {
			r.log.WithError(err).WithField("ticker", ticker).Warn("ticker store reverse lookup failed")
		}
		if ok {
			return e.CUSIP, true
		}
	}
	for _, p := range r.providers {
		if rev, ok := p.(Reverser); ok {
			if c, ok := rev.Reverse(ticker); ok {
				return c, true
			}
		}
	}
	return "", false
}

// Set records a manual resolution, e.g. after a corporate action changed the ticker.
func (r *Resolver) Set(ctx context.Context, cusip holdings.CUSIP, ticker, name string) (holdings.TickerEntry, error) {
	e := holdings.TickerEntry{
		CUSIP:      cusip,
		Ticker:     strings.ToUpper(strings.TrimSpace(ticker)),
		Name:       name,
		Source:     "manual",
		ResolvedAt: r.now().UTC(),
	}
	if !e.Resolved() {
		return e, errors.New("manual resolution needs a ticker")
	}
	if r.store == nil {
		return e, errors.New("no ticker store configured")
	}
	if err := r.store.Put(ctx, e); err != nil {
		return e, err
	}
	r.entries.Store(cusip, e)
	return e, nil
}

// Calls returns the number of lookups made on tier since the Resolver was created.
func (r *Resolver) Calls(t Tier) int64 {
	if t < 0 || t >= numTiers {
		return 0
	}
	return r.calls[t].Load()
}

// Stats summarizes a run.
type Stats struct {
	Calls      map[Tier]int64
	Resolved   int
	Unresolved []holdings.CUSIP
}

// Stats returns the lookups per tier and the outcome of every CUSIP resolved so far.
func (r *Resolver) Stats() Stats {
	s := Stats{Calls: make(map[Tier]int64, numTiers)}
	for t := range numTiers {
		s.Calls[t] = r.calls[t].Load()
	}
	r.entries.Range(func(k, v any) bool {
		if v.(holdings.TickerEntry).Resolved() {
			s.Resolved++
		} else {
			s.Unresolved = append(s.Unresolved, k.(holdings.CUSIP))
		}
		return true
	})
	slices.Sort(s.Unresolved)
	return s
}

// Close releases the store.
func (r *Resolver) Close() error {
	if r.store == nil {
		return nil
	}
	return r.store.Close()
}
