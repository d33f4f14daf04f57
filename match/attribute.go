package match

import "github.com/etnz/holdings"

// Targets returns the match targets of the roster funds. Target IDs are the
// zero-padded CIKs so that their lexicographic order is the numeric one.
func Targets(roster *holdings.Roster) []Target {
	funds := roster.Funds()
	targets := make([]Target, 0, len(funds))
	for _, f := range funds {
		t := Target{ID: f.CIK.Padded(), Names: f.Names()}
		for _, a := range f.Aliases {
			t.Aliases = append(t.Aliases, a.Padded())
		}
		targets = append(targets, t)
	}
	return targets
}

// Attribution is the result of Attribute.
type Attribution struct {
	Fund  holdings.CIK // zero when unattributed
	Best  holdings.CIK // closest fund, even below the threshold
	Score float64
}

// Attributed reports whether a fund was found.
func (a Attribution) Attributed() bool { return a.Fund != "" }

// Attribute maps a filer, by CIK or by name, to a fund of the roster.
// A CIK equal to a fund CIK or alias always wins; otherwise the best name
// similarity at or above threshold does.
func Attribute(roster *holdings.Roster, name string, cik holdings.CIK, threshold float64) Attribution {
	q := Query{Name: name}
	if cik != "" {
		q.ID = cik.Padded()
	}
	best, ok := Best(NameMatcher{}, q, Targets(roster), threshold)
	if best.ID == "" {
		return Attribution{}
	}
	a := Attribution{Best: holdings.MustCIK(best.ID), Score: best.Score}
	if ok {
		a.Fund = a.Best
	}
	return a
}
