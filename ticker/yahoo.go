package ticker

import (
	"context"

	"github.com/etnz/holdings/web"
)

// YahooSearchURL is the public search endpoint used by Yahoo.
const YahooSearchURL = "https://query1.finance.yahoo.com/v1/finance/search"

const browserAgent = "Mozilla/5.0"

// Yahoo is the keyless provider, it searches the CUSIP in Yahoo Finance.
type Yahoo struct {
	client  *web.Client
	baseURL string
}

// NewYahoo creates the keyless provider. An empty baseURL uses YahooSearchURL.
func NewYahoo(client *web.Client, baseURL string) *Yahoo {
	if baseURL == "" {
		baseURL = YahooSearchURL
	}
	return &Yahoo{client: client, baseURL: baseURL}
}

func (*Yahoo) Tier() Tier   { return TierKeyless }
func (*Yahoo) Name() string { return "yahoo" }

// Lookup implements Strategy.
func (y *Yahoo) Lookup(ctx context.Context, q Query) (Result, error) {
	// the endpoint rejects requests without a browser agent.
	jobj, err := y.client.GetJSON(ctx, y.baseURL, map[string]string{"q": string(q.CUSIP)}, web.WithHeader("User-Agent", browserAgent))
	if err != nil {
		return Result{}, err
	}
	return Result{
		Ticker: web.String("$.quotes[0].symbol", jobj),
		Name:   web.String("$.quotes[0].longname", jobj),
	}, nil
}
