package renderer

import (
	"cmp"
	"strings"

	"github.com/etnz/holdings"
)

// Stock is the view of what the tracked funds did with one security over a quarter.
type Stock struct {
	Ticker      string
	Issuer      string
	Quarter     string
	Shares      string
	Value       string
	ValueChange string

	Holders    int
	Buyers     int
	Sellers    int
	NewHolders int
	Closed     int

	Rows []StockRow
}

// StockRow is the position of one fund.
type StockRow struct {
	Fund             string
	Classification   string
	Shares           string
	SharesChange     string
	PercentChange    string
	Value            string
	ValueChange      string
	PortfolioPercent string
	CUSIPs           string
}

// NewStock builds the view of r; names maps fund CIKs to display names.
func NewStock(r holdings.StockReport, names map[holdings.CIK]string) *Stock {
	v := &Stock{
		Ticker:      cell(r.Ticker),
		Quarter:     r.Quarter.String(),
		Shares:      r.Shares.String(),
		Value:       r.Value.String(),
		ValueChange: r.ValueChange.SignedString(),
		Holders:     r.Holders,
		Buyers:      r.Buyers,
		Sellers:     r.Sellers,
		NewHolders:  r.NewHolders,
		Closed:      r.Closed,
	}
	for _, p := range r.Positions {
		v.Issuer = cmp.Or(v.Issuer, cell(p.Issuer))
		cusips := make([]string, len(p.CUSIPs))
		for i, c := range p.CUSIPs {
			cusips[i] = c.String()
		}
		v.Rows = append(v.Rows, StockRow{
			Fund:             cell(fundName(names, p.Fund)),
			Classification:   string(p.Classification),
			Shares:           p.Shares.String(),
			SharesChange:     signed(p.SharesChange()),
			PercentChange:    p.PercentChange.SignedString(),
			Value:            p.Value.String(),
			ValueChange:      p.ValueChange.SignedString(),
			PortfolioPercent: p.PortfolioPercent.String(),
			CUSIPs:           strings.Join(cusips, ", "),
		})
	}
	return v
}
