package holdings

import (
	"testing"

	"github.com/etnz/holdings/date"
)

var (
	AAPL = MustCUSIP("037833100")
	MSFT = MustCUSIP("594918104")
	NVDA = MustCUSIP("67066G104")
	KO   = MustCUSIP("191216100")
)

// fundF is the fund used across tests.
const fundF CIK = "1067983"

// rec is a helper for test to create a holding record from const.
func rec(cusip CUSIP, ticker string, shares, value float64) HoldingRecord {
	return HoldingRecord{CUSIP: cusip, Ticker: ticker, Issuer: ticker + " INC", Class: "COM", Shares: Q(shares), Value: Dollars(value)}
}

// snap is a helper for test to create a filed snapshot of fundF.
func snap(t *testing.T, quarter string, records ...HoldingRecord) *Snapshot {
	t.Helper()
	s, err := NewSnapshot(SnapshotHeader{Fund: fundF, Quarter: date.MustParseQuarter(quarter)}, records)
	if err != nil {
		t.Fatalf("NewSnapshot() error = %v", err)
	}
	return s
}

// qty is a helper for test to create a quantity pointer.
func qty(v float64) *Quantity {
	q := Q(v)
	return &q
}
