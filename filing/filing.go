// Package filing parses EDGAR documents into holdings types.
//
// ParseHoldings reads a 13F information table into a Snapshot. ParseSchedule
// and ParseForm4 read Schedule 13D/G and Form 4 documents into EventFilings
// attributed to the funds of a Roster; ParseEvent picks the right one.
//
// Parsers never fail on a bad row: the row is dropped and reported as a
// holdings.Warning. Only unreadable documents are errors.
package filing

import (
	"context"
	"strings"

	"github.com/etnz/holdings"
	"github.com/etnz/holdings/match"
	"github.com/sirupsen/logrus"
)

// Resolver resolves CUSIPs into tickers, see ticker.Resolver.
type Resolver interface {
	Resolve(ctx context.Context, cusip holdings.CUSIP, issuer string) (holdings.TickerEntry, error)
}

// ReverseResolver finds the CUSIP of a ticker.
type ReverseResolver interface {
	Reverse(ctx context.Context, ticker string) (holdings.CUSIP, bool)
}

type options struct {
	resolver  Resolver
	reverse   ReverseResolver
	log       logrus.FieldLogger
	threshold float64
}

// Option configures the parsers.
type Option func(*options)

// WithResolver resolves tickers of the parsed securities. When r is also a
// ReverseResolver it resolves Form 4 trading symbols into CUSIPs.
func WithResolver(r Resolver) Option {
	return func(o *options) {
		o.resolver = r
		if rev, ok := r.(ReverseResolver); ok {
			o.reverse = rev
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option { return func(o *options) { o.log = l } }

// WithThreshold sets the attribution threshold, match.DefaultThreshold by default.
func WithThreshold(t float64) Option { return func(o *options) { o.threshold = t } }

func newOptions(opts []Option) options {
	o := options{log: logrus.StandardLogger(), threshold: match.DefaultThreshold}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// collapse trims s and collapses inner whitespace.
func collapse(s string) string { return strings.Join(strings.Fields(s), " ") }
