// Package web contains the HTTP plumbing shared by the remote services: a
// retrying client, a daily disk cache, and JSON path extraction.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

// Options configures a Client.
type Options struct {
	Timeout   time.Duration // per attempt
	Retries   int
	MinWait   time.Duration // first backoff
	MaxWait   time.Duration
	UserAgent string
	CacheDir  string  // responses are cached for the day when set
	Rate      float64 // max requests per second, unlimited when zero
}

// DefaultOptions are used for zero fields.
var DefaultOptions = Options{
	Timeout: 20 * time.Second,
	Retries: 3,
	MinWait: 500 * time.Millisecond,
	MaxWait: 10 * time.Second,
}

// Client is a rate-limited, retrying HTTP client.
type Client struct {
	*resty.Client
	limiter *rate.Limiter
}

// New creates a Client.
//
// Failed attempts are retried with exponential backoff on transport errors,
// 429 Too Many Requests and 5xx responses.
func New(opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = DefaultOptions.Timeout
	}
	if opts.MinWait == 0 {
		opts.MinWait = DefaultOptions.MinWait
	}
	if opts.MaxWait == 0 {
		opts.MaxWait = DefaultOptions.MaxWait
	}

	c := resty.New().
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.Retries).
		SetRetryWaitTime(opts.MinWait).
		SetRetryMaxWaitTime(opts.MaxWait).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r != nil && (r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500)
		})
	if opts.UserAgent != "" {
		c.SetHeader("User-Agent", opts.UserAgent)
	}
	if opts.CacheDir != "" {
		c.SetTransport(&DiskCache{Dir: opts.CacheDir, Base: http.DefaultTransport})
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.Rate), 1)
	}
	return &Client{Client: c, limiter: limiter}
}

// RequestOption customizes a single request.
type RequestOption func(*resty.Request)

// WithHeader sets a header on the request only, the client headers are left untouched.
func WithHeader(key, value string) RequestOption {
	return func(r *resty.Request) { r.SetHeader(key, value) }
}

// Get waits for the rate limiter and performs a GET of url with params.
// Non-2xx responses are errors.
func (c *Client) Get(ctx context.Context, url string, params map[string]string, opts ...RequestOption) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req := c.R().SetContext(ctx).SetQueryParams(params)
	for _, opt := range opts {
		opt(req)
	}
	resp, err := req.Get(url)
	if err != nil {
		return nil, fmt.Errorf("cannot GET %s: %w", url, err)
	}
	if resp.IsError() {
		return nil, &StatusError{URL: url, Code: resp.StatusCode(), Status: resp.Status()}
	}
	return resp.Body(), nil
}

// GetJSON is like Get but decodes the body into an untyped JSON value.
func (c *Client) GetJSON(ctx context.Context, url string, params map[string]string, opts ...RequestOption) (any, error) {
	body, err := c.Get(ctx, url, params, opts...)
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, fmt.Errorf("invalid JSON from %s: %w", url, err)
	}
	return v, nil
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL    string
	Code   int
	Status string
}

func (e *StatusError) Error() string { return fmt.Sprintf("cannot GET %s: %s", e.URL, e.Status) }

// First evaluates path on v and returns the first match, or nil when the path
// matches nothing. jsonpath reports unknown keys and out of range indexes as
// errors, they are treated as no match.
func First(path string, v any) any {
	jval, err := jsonpath.Get(path, v)
	if err != nil {
		return nil
	}
	// jsonpath returns either a single value or a list of matches.
	if jlist, ok := jval.([]any); ok {
		if len(jlist) == 0 {
			return nil
		}
		jval = jlist[0]
	}
	return jval
}

// String is First for string values.
func String(path string, v any) string {
	s, _ := First(path, v).(string)
	return s
}

// Strings returns the string values matched by path, e.g. "$.filings.recent.form".
func Strings(path string, v any) []string {
	jval, err := jsonpath.Get(path, v)
	if err != nil {
		return nil
	}
	jlist, _ := jval.([]any)
	out := make([]string, len(jlist))
	for i, x := range jlist {
		out[i], _ = x.(string)
	}
	return out
}
