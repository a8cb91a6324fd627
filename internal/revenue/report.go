package revenue

import (
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"github.com/franco-grobler/phoenix-revenue/internal/symbols"
)

// MarketFee is one market's contribution to a report.
type MarketFee struct {
	Market    solana.PublicKey
	Symbol    symbols.Symbol
	QuoteLots uint64
	Amount    decimal.Decimal
}

// Report is a point-in-time summary of uncollected fees.
type Report struct {
	// Reference is the currency GrandTotal is expressed in.
	Reference symbols.Symbol
	// Totals holds the accumulated fees per quote currency.
	Totals map[symbols.Symbol]decimal.Decimal
	// Rates holds the spot price used for each priced currency, in Reference.
	Rates      map[symbols.Symbol]decimal.Decimal
	GrandTotal decimal.Decimal
	Markets    []MarketFee
}

func newReport(reference symbols.Symbol) *Report {
	return &Report{
		Reference:  reference,
		Totals:     make(map[symbols.Symbol]decimal.Decimal),
		Rates:      make(map[symbols.Symbol]decimal.Decimal),
		GrandTotal: decimal.Zero,
	}
}

// Total returns the accumulated amount for sym, zero when absent.
func (r *Report) Total(sym symbols.Symbol) decimal.Decimal {
	if v, ok := r.Totals[sym]; ok {
		return v
	}
	return decimal.Zero
}
