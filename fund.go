package holdings

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// CIK is the SEC Central Index Key of a filing entity, normalized without leading zeros.
type CIK string

// NewCIK normalizes s: "0001067983" and "1067983" are the same CIK.
func NewCIK(s string) (CIK, error) {
	s = strings.TrimSpace(s)
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return "", fmt.Errorf("%w %q", ErrInvalidCIK, s)
	}
	return CIK(strconv.FormatUint(n, 10)), nil
}

// MustCIK is like NewCIK but panics on error.
func MustCIK(s string) CIK {
	c, err := NewCIK(s)
	if err != nil {
		panic(err.Error())
	}
	return c
}

// Padded returns the 10-digit zero-padded form used in EDGAR urls.
func (c CIK) Padded() string {
	if len(c) >= 10 {
		return string(c)
	}
	return strings.Repeat("0", 10-len(c)) + string(c)
}

func (c CIK) String() string { return string(c) }

// UnmarshalYAML accepts both numbers and strings.
func (c *CIK) UnmarshalYAML(node *yaml.Node) error {
	v, err := NewCIK(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*c = v
	return nil
}

// FundIdentity is a tracked fund.
//
// Aliases are CIKs of related legal entities (holding company, advisers) whose
// filings roll up to the fund. Denominations are the free-text names the fund
// appears under in event filings.
type FundIdentity struct {
	CIK           CIK      `yaml:"cik"`
	Name          string   `yaml:"name"`
	Manager       string   `yaml:"manager"`
	Denominations []string `yaml:"denominations"`
	Aliases       []CIK    `yaml:"aliases"`
}

// Owns reports whether cik is the fund's primary CIK or one of its aliases.
func (f FundIdentity) Owns(cik CIK) bool {
	return cik != "" && (cik == f.CIK || slices.Contains(f.Aliases, cik))
}

// Names returns the fund name followed by its denominations.
func (f FundIdentity) Names() []string {
	names := make([]string, 0, len(f.Denominations)+1)
	if f.Name != "" {
		names = append(names, f.Name)
	}
	return append(names, f.Denominations...)
}

// Roster is the read-only set of tracked funds.
type Roster struct {
	funds []FundIdentity // sorted by CIK
	byCIK map[CIK]int    // primary and aliases
}

// NewRoster validates the funds: every CIK, primary or alias, belongs to one fund only.
func NewRoster(funds []FundIdentity) (*Roster, error) {
	r := &Roster{
		funds: slices.Clone(funds),
		byCIK: make(map[CIK]int),
	}
	slices.SortFunc(r.funds, func(a, b FundIdentity) int { return strings.Compare(string(a.CIK), string(b.CIK)) })

	var errs []error
	for i, f := range r.funds {
		if f.CIK == "" {
			errs = append(errs, fmt.Errorf("fund %q: missing cik", f.Name))
			continue
		}
		for _, cik := range append([]CIK{f.CIK}, f.Aliases...) {
			if j, exists := r.byCIK[cik]; exists {
				errs = append(errs, fmt.Errorf("cik %s is declared by both %q and %q", cik, r.funds[j].Name, f.Name))
				continue
			}
			r.byCIK[cik] = i
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid roster: %w", err)
	}
	return r, nil
}

// DecodeRoster reads a YAML list of funds.
func DecodeRoster(r io.Reader) (*Roster, error) {
	var funds []FundIdentity
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&funds); err != nil && err != io.EOF {
		return nil, fmt.Errorf("cannot decode roster: %w", err)
	}
	return NewRoster(funds)
}

// LoadRoster reads a roster file.
func LoadRoster(filename string) (*Roster, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("cannot read roster: %w", err)
	}
	r, err := DecodeRoster(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return r, nil
}

// Funds returns the funds ordered by primary CIK.
func (r *Roster) Funds() []FundIdentity { return slices.Clone(r.funds) }

// Len returns the number of funds.
func (r *Roster) Len() int { return len(r.funds) }

// Get returns the fund owning cik (primary or alias).
func (r *Roster) Get(cik CIK) (FundIdentity, bool) {
	i, ok := r.byCIK[cik]
	if !ok {
		return FundIdentity{}, false
	}
	return r.funds[i], true
}

// Tracks reports whether cik belongs to a tracked fund.
func (r *Roster) Tracks(cik CIK) bool {
	_, ok := r.byCIK[cik]
	return ok
}
