package ticker

import (
	"context"
	_ "embed"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/etnz/holdings"
)

//go:embed reference.csv
var referenceCSV string

// Reference is the static dataset tier. When a CUSIP is listed with several
// tickers (foreign listings) the shortest one wins.
type Reference struct {
	byCUSIP  map[holdings.CUSIP]Result
	byTicker map[string]holdings.CUSIP
}

// NewReference loads the embedded dataset and then every file of extra,
// CSV files with a cusip,ticker,name header.
func NewReference(extra ...string) (*Reference, error) {
	r := &Reference{byCUSIP: make(map[holdings.CUSIP]Result), byTicker: make(map[string]holdings.CUSIP)}
	if err := r.read(strings.NewReader(referenceCSV)); err != nil {
		return nil, fmt.Errorf("embedded reference: %w", err)
	}
	for _, name := range extra {
		f, err := os.Open(name)
		if err != nil {
			return nil, err
		}
		err = r.read(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("reference %q: %w", name, err)
		}
	}
	return r, nil
}

func (r *Reference) read(in io.Reader) error {
	cr := csv.NewReader(in)
	cr.FieldsPerRecord = 3
	if _, err := cr.Read(); err != nil {
		return err
	}
	for {
		row, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		c, err := holdings.NewCUSIP(row[0])
		if err != nil {
			// datasets carry invalid CUSIPs, they cannot match anything anyway.
			continue
		}
		r.add(c, strings.ToUpper(strings.TrimSpace(row[1])), strings.TrimSpace(row[2]))
	}
}

func (r *Reference) add(c holdings.CUSIP, ticker, name string) {
	if ticker == "" {
		return
	}
	if _, ok := r.byTicker[ticker]; !ok {
		r.byTicker[ticker] = c
	}
	prev, ok := r.byCUSIP[c]
	if ok && (len(prev.Ticker) < len(ticker) || len(prev.Ticker) == len(ticker) && prev.Ticker <= ticker) {
		return
	}
	r.byCUSIP[c] = Result{Ticker: ticker, Name: name}
}

func (*Reference) Tier() Tier   { return TierReference }
func (*Reference) Name() string { return "reference" }

// Len returns the number of CUSIPs in the dataset.
func (r *Reference) Len() int { return len(r.byCUSIP) }

// Lookup implements Strategy.
func (r *Reference) Lookup(_ context.Context, q Query) (Result, error) {
	return r.byCUSIP[q.CUSIP], nil
}

// Reverse implements Reverser.
func (r *Reference) Reverse(ticker string) (holdings.CUSIP, bool) {
	c, ok := r.byTicker[strings.ToUpper(ticker)]
	return c, ok
}
