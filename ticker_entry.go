package holdings

import "time"

// TickerEntry is the resolution of a CUSIP into a ticker.
// An empty Ticker is the Unresolved marker.
type TickerEntry struct {
	CUSIP      CUSIP
	Ticker     string
	Name       string
	Source     string // tier that resolved it
	ResolvedAt time.Time
}

// Resolved reports whether the entry carries a ticker.
func (e TickerEntry) Resolved() bool { return e.Ticker != "" }
