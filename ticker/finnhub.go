package ticker

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/etnz/holdings/web"
)

// FinnhubSearchURL is the Finnhub symbol search endpoint.
const FinnhubSearchURL = "https://finnhub.io/api/v1/search"

// Finnhub is the keyed provider. It is disabled without an API key.
//
// It searches the CUSIP first, then falls back to the issuer name truncated to
// 20 characters, then to its first significant word.
type Finnhub struct {
	client  *web.Client
	baseURL string
	key     string
}

// NewFinnhub creates the keyed provider. The client should carry the rate
// limit of the key (60 calls per minute for a free key).
func NewFinnhub(client *web.Client, baseURL, key string) *Finnhub {
	if baseURL == "" {
		baseURL = FinnhubSearchURL
	}
	return &Finnhub{client: client, baseURL: baseURL, key: key}
}

func (*Finnhub) Tier() Tier      { return TierKeyed }
func (*Finnhub) Name() string    { return "finnhub" }
func (f *Finnhub) Enabled() bool { return f.key != "" }

type finnhubSearch struct {
	Count  int            `json:"count"`
	Result []finnhubMatch `json:"result"`
}

type finnhubMatch struct {
	Description   string `json:"description"`
	DisplaySymbol string `json:"displaySymbol"`
	Symbol        string `json:"symbol"`
	Type          string `json:"type"`
}

var preferredTypes = []string{"Common Stock", "Equity", "STOCK"}

// Lookup implements Strategy.
func (f *Finnhub) Lookup(ctx context.Context, q Query) (Result, error) {
	for _, query := range fallbackQueries(q) {
		res, err := f.search(ctx, query)
		if err != nil || res.Found() {
			return res, err
		}
	}
	return Result{}, nil
}

func (f *Finnhub) search(ctx context.Context, query string) (Result, error) {
	body, err := f.client.Get(ctx, f.baseURL, map[string]string{"q": query, "token": f.key})
	if err != nil {
		return Result{}, err
	}
	var s finnhubSearch
	if err := json.Unmarshal(body, &s); err != nil {
		return Result{}, fmt.Errorf("invalid finnhub response: %w", err)
	}
	if len(s.Result) == 0 {
		return Result{}, nil
	}
	best := s.Result[0]
	if i := slices.IndexFunc(s.Result, func(m finnhubMatch) bool { return slices.Contains(preferredTypes, m.Type) }); i >= 0 {
		best = s.Result[i]
	}
	return Result{Ticker: best.Symbol, Name: best.Description}, nil
}

// commonWords are never searched alone.
var commonWords = []string{"the", "corp", "inc", "group", "ltd", "co", "plc", "hldgs"}

// fallbackQueries returns the successive search terms for q, without duplicates.
func fallbackQueries(q Query) []string {
	queries := []string{string(q.CUSIP)}
	issuer := strings.Join(strings.Fields(q.Issuer), " ")
	if issuer == "" {
		return queries
	}
	truncated := issuer
	if r := []rune(issuer); len(r) > 20 {
		truncated = strings.TrimSpace(string(r[:20]))
	}
	queries = append(queries, truncated)
	first := strings.Fields(issuer)[0]
	if len(first) > 2 && !slices.Contains(commonWords, strings.ToLower(first)) && first != truncated {
		queries = append(queries, first)
	}
	return queries
}
