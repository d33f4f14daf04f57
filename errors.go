package holdings

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCUSIP is returned for identifiers failing the format or check digit validation.
	ErrInvalidCUSIP = errors.New("invalid CUSIP")
	// ErrInvalidCIK is returned for fund identifiers that are not a positive number.
	ErrInvalidCIK = errors.New("invalid CIK")
	// ErrFundMismatch is returned when two snapshots of different funds are compared.
	ErrFundMismatch = errors.New("snapshots belong to different funds")
	// ErrSnapshotConflict is returned when a snapshot already exists for a (fund, quarter, version)
	// with a different content.
	ErrSnapshotConflict = errors.New("conflicting snapshot")
	// ErrInvariant reports an internal inconsistency that should never happen.
	ErrInvariant = errors.New("invariant violation")
	// ErrUnattributed is reported for event filings that no tracked fund matches.
	ErrUnattributed = errors.New("unattributed event")
	// ErrResolutionExhausted is returned when no resolution tier knows a CUSIP.
	ErrResolutionExhausted = errors.New("ticker resolution exhausted")
)

// WarningCode classifies recoverable problems found while processing a document.
type WarningCode string

const (
	WarnParse         WarningCode = "W1001" // malformed row
	WarnInvalidCUSIP  WarningCode = "W1002" // check digit or format failure
	WarnOption        WarningCode = "W1003" // put/call row excluded
	WarnPrincipal     WarningCode = "W1004" // principal amount row excluded
	WarnZeroPosition  WarningCode = "W1005" // zero shares or zero value
	WarnUnresolved    WarningCode = "W2001" // ticker resolution exhausted
	WarnUnattributed  WarningCode = "W3001" // event filer matches no fund
	WarnSelfFiling    WarningCode = "W3002" // fund reporting on its own shares
	WarnUnkeyedEvent  WarningCode = "W4001" // event with neither CUSIP nor ticker match
	WarnMissingVoting WarningCode = "W1006" // voting authority absent
)

// Warning is a recoverable problem. The offending row was dropped or degraded but the
// processing went on.
type Warning struct {
	Code    WarningCode
	Message string
	Row     int // 1-based row in the source document, 0 when unknown
}

func (w Warning) String() string {
	if w.Row > 0 {
		return fmt.Sprintf("%s row %d: %s", w.Code, w.Row, w.Message)
	}
	return fmt.Sprintf("%s: %s", w.Code, w.Message)
}

// Warnf creates a Warning.
func Warnf(code WarningCode, row int, format string, args ...any) Warning {
	return Warning{Code: code, Message: fmt.Sprintf(format, args...), Row: row}
}

// CountWarnings returns the number of warnings per code.
func CountWarnings(ws []Warning) map[WarningCode]int {
	counts := make(map[WarningCode]int)
	for _, w := range ws {
		counts[w.Code]++
	}
	return counts
}
