// Package match scores free-text entity names against a set of known targets.
//
// It is used to attribute event filings to tracked funds: filers are named
// freely ("BERKSHIRE HATHAWAY INC", "Berkshire Hathaway Inc.") and must be
// mapped to exactly one fund, or to none.
package match

import (
	"cmp"
	"slices"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
)

// DefaultThreshold is the minimum score for a candidate to be accepted.
const DefaultThreshold = 0.85

// Query is the entity to match: its free-text name and, when known, its identifier.
type Query struct {
	Name string
	ID   string
}

// Target is a known entity.
type Target struct {
	ID      string   // primary identifier, also the tie-break key
	Names   []string // denominations
	Aliases []string // identifiers equivalent to ID
}

// Candidate is a scored target.
type Candidate struct {
	ID    string
	Score float64
}

// Matcher scores how well q designates t, from 0 (unrelated) to 1 (certain).
type Matcher interface {
	Score(q Query, t Target) float64
}

// NameMatcher matches identifiers exactly and names by normalized Levenshtein similarity.
type NameMatcher struct{}

// Score returns 1 when the query identifier is the target ID or one of its
// aliases, and otherwise the best name similarity.
func (NameMatcher) Score(q Query, t Target) float64 {
	if q.ID != "" && (q.ID == t.ID || slices.Contains(t.Aliases, q.ID)) {
		return 1
	}
	name := Normalize(q.Name)
	if name == "" {
		return 0
	}
	best := 0.0
	for _, n := range t.Names {
		best = max(best, Similarity(name, Normalize(n)))
	}
	return best
}

// Similarity is 1 - distance/length between two normalized names.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	l := max(len([]rune(a)), len([]rune(b)))
	if l == 0 {
		return 0
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(l)
}

// legalForms are dropped from names before comparison.
var legalForms = map[string]bool{
	"LLC": true, "LP": true, "LLP": true, "INC": true, "CORP": true, "CORPORATION": true,
	"LTD": true, "CO": true, "PLC": true, "SA": true, "AG": true, "NV": true, "THE": true,
}

// Normalize upper-cases name, replaces "&" by "AND", drops punctuation and legal forms.
func Normalize(name string) string {
	name = strings.ToUpper(strings.ReplaceAll(name, "&", " AND "))
	words := strings.FieldsFunc(name, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.'
	})
	kept := words[:0]
	for _, w := range words {
		w = strings.ReplaceAll(w, ".", "")
		if w == "" || legalForms[w] {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

// Rank scores every target and returns the candidates with a positive score,
// best first. Equal scores are ordered by ID so that ranking is reproducible.
func Rank(m Matcher, q Query, targets []Target) []Candidate {
	candidates := make([]Candidate, 0, len(targets))
	for _, t := range targets {
		if s := m.Score(q, t); s > 0 {
			candidates = append(candidates, Candidate{ID: t.ID, Score: s})
		}
	}
	slices.SortFunc(candidates, func(a, b Candidate) int {
		return cmp.Or(cmp.Compare(b.Score, a.Score), strings.Compare(a.ID, b.ID))
	})
	return candidates
}

// Best returns the top candidate if it clears threshold. The second result is
// false when no candidate does; the returned candidate is then the closest one,
// if any, for diagnostics.
func Best(m Matcher, q Query, targets []Target, threshold float64) (Candidate, bool) {
	ranked := Rank(m, q, targets)
	if len(ranked) == 0 {
		return Candidate{}, false
	}
	return ranked[0], ranked[0].Score >= threshold
}
