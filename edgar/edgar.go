// Package edgar fetches filings from SEC EDGAR.
//
// Filings are listed from the submissions API of a filer and their documents
// downloaded from the archives. EDGAR requires a descriptive User-Agent with
// a contact address and allows at most 10 requests per second.
package edgar

import (
	"context"
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/etnz/holdings"
	"github.com/etnz/holdings/date"
	"github.com/etnz/holdings/web"
	"github.com/sirupsen/logrus"
)

const (
	// DataURL serves the submissions API.
	DataURL = "https://data.sec.gov"
	// ArchivesURL serves filing documents.
	ArchivesURL = "https://www.sec.gov"
	// MaxRate is the request rate allowed by EDGAR.
	MaxRate = 10
)

// Form types.
const (
	Form13F  = "13F-HR"
	Form13FA = "13F-HR/A"
	Form4    = "4"
	Form4A   = "4/A"
)

// ErrNoDocument is returned when a filing has no document of the expected kind.
var ErrNoDocument = errors.New("no such document")

// Filing is an entry of a filer's submissions.
type Filing struct {
	CIK             holdings.CIK // filer
	Accession       string
	Form            string
	FiledOn         date.Date
	ReportDate      date.Date // period of report, the quarter end for 13F
	PrimaryDocument string
}

// IsHoldings reports whether f is a 13F holdings report or its amendment.
func (f Filing) IsHoldings() bool { return f.Form == Form13F || f.Form == Form13FA }

// IsEvent reports whether f is a Schedule 13D/G or a Form 4, or an amendment.
func (f Filing) IsEvent() bool {
	form := strings.TrimSuffix(f.Form, "/A")
	switch form {
	case Form4, "SC 13D", "SC 13G", "SCHEDULE 13D", "SCHEDULE 13G":
		return true
	}
	return false
}

// Quarter returns the quarter the report date falls into.
func (f Filing) Quarter() date.Quarter { return date.QuarterOf(f.ReportDate) }

// Client is an EDGAR client.
type Client struct {
	http     *web.Client
	data     string
	archives string
	log      logrus.FieldLogger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURLs overrides the EDGAR hosts, for tests and mirrors.
func WithBaseURLs(data, archives string) Option {
	return func(c *Client) { c.data, c.archives = data, archives }
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option { return func(c *Client) { c.log = l } }

// New creates a Client. opts.UserAgent is required by EDGAR; opts.Rate is
// capped to MaxRate.
func New(opts web.Options, options ...Option) (*Client, error) {
	if opts.UserAgent == "" {
		return nil, errors.New("edgar: a User-Agent with a contact email is required")
	}
	if opts.Rate <= 0 || opts.Rate > MaxRate {
		opts.Rate = MaxRate
	}
	c := &Client{http: web.New(opts), data: DataURL, archives: ArchivesURL, log: logrus.StandardLogger()}
	for _, o := range options {
		o(c)
	}
	return c, nil
}

// Submissions returns the recent filings of cik, most recent first.
func (c *Client) Submissions(ctx context.Context, cik holdings.CIK) ([]Filing, error) {
	url := fmt.Sprintf("%s/submissions/CIK%s.json", c.data, cik.Padded())
	jobj, err := c.http.GetJSON(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("submissions of %s: %w", cik, err)
	}
	accessions := web.Strings("$.filings.recent.accessionNumber", jobj)
	forms := web.Strings("$.filings.recent.form", jobj)
	filed := web.Strings("$.filings.recent.filingDate", jobj)
	reports := web.Strings("$.filings.recent.reportDate", jobj)
	docs := web.Strings("$.filings.recent.primaryDocument", jobj)
	if len(forms) != len(accessions) || len(filed) != len(accessions) {
		return nil, fmt.Errorf("submissions of %s: inconsistent recent filings", cik)
	}

	filings := make([]Filing, 0, len(accessions))
	for i, acc := range accessions {
		f := Filing{CIK: cik, Accession: acc, Form: forms[i]}
		if f.FiledOn, err = date.Parse(filed[i]); err != nil {
			return nil, fmt.Errorf("submissions of %s: %s: %w", cik, acc, err)
		}
		if i < len(reports) && reports[i] != "" {
			// malformed report dates are left zero, they only matter for 13F.
			f.ReportDate, _ = date.Parse(reports[i])
		}
		if i < len(docs) {
			f.PrimaryDocument = docs[i]
		}
		filings = append(filings, f)
	}
	slices.SortStableFunc(filings, func(a, b Filing) int { return b.FiledOn.Compare(a.FiledOn) })
	return filings, nil
}

// folder returns the archive folder of a filing.
func (c *Client) folder(f Filing) string {
	return fmt.Sprintf("%s/Archives/edgar/data/%s/%s", c.archives, f.CIK, strings.ReplaceAll(f.Accession, "-", ""))
}

// Documents returns the file names of a filing.
func (c *Client) Documents(ctx context.Context, f Filing) ([]string, error) {
	jobj, err := c.http.GetJSON(ctx, c.folder(f)+"/index.json", nil)
	if err != nil {
		return nil, fmt.Errorf("index of %s: %w", f.Accession, err)
	}
	return web.Strings("$.directory.item[*].name", jobj), nil
}

// Document downloads one document of a filing.
func (c *Client) Document(ctx context.Context, f Filing, name string) ([]byte, error) {
	c.log.WithFields(logrus.Fields{"accession": f.Accession, "document": name}).Debug("fetching document")
	return c.http.Get(ctx, c.folder(f)+"/"+name, nil)
}

// InformationTable downloads the XML information table of a 13F filing: the
// XML document that is not the primary (cover page) document.
func (c *Client) InformationTable(ctx context.Context, f Filing) ([]byte, error) {
	names, err := c.Documents(ctx, f)
	if err != nil {
		return nil, err
	}
	primary := path.Base(f.PrimaryDocument)
	for _, name := range names {
		if strings.EqualFold(path.Ext(name), ".xml") && name != primary && name != "primary_doc.xml" {
			return c.Document(ctx, f, name)
		}
	}
	return nil, fmt.Errorf("%s %s: information table: %w", f.Form, f.Accession, ErrNoDocument)
}

// EventDocument downloads the XML document of a Schedule 13D/G or Form 4.
// The primary document is usually listed through its XSL rendering, e.g.
// "xslF345X05/form4.xml"; the raw XML lives at the folder root.
func (c *Client) EventDocument(ctx context.Context, f Filing) ([]byte, error) {
	if name := path.Base(f.PrimaryDocument); strings.EqualFold(path.Ext(name), ".xml") {
		return c.Document(ctx, f, name)
	}
	names, err := c.Documents(ctx, f)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		if strings.EqualFold(path.Ext(name), ".xml") {
			return c.Document(ctx, f, name)
		}
	}
	return nil, fmt.Errorf("%s %s: %w", f.Form, f.Accession, ErrNoDocument)
}
