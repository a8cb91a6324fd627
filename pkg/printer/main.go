// Package printer renders reports to an output stream as text or JSON.
package printer

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Book display parameters.
const (
	BookWidth     = 10
	BookPrecision = 4
)

// CurrencyTotal is one line of a revenue report.
type CurrencyTotal struct {
	Symbol string `json:"symbol"`
	Amount string `json:"amount"`
	// Rate is the price of one unit in the reference currency.
	Rate string `json:"rate"`
}

// MarketFee is the contribution of one market.
type MarketFee struct {
	Market string `json:"market"`
	Symbol string `json:"symbol"`
	Amount string `json:"amount"`
}

// RevenueSummary provides a struct for serialising a revenue report.
type RevenueSummary struct {
	Reference  string          `json:"reference"`
	Totals     []CurrencyTotal `json:"totals"`
	GrandTotal string          `json:"grand_total"`
	Markets    []MarketFee     `json:"markets,omitempty"`
}

// BookLevel is a ladder level in display units.
type BookLevel struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// MarketDetails is the summary of a single market. Amounts are preformatted.
type MarketDetails struct {
	Market            string `json:"market"`
	Status            string `json:"status"`
	BaseMint          string `json:"base_mint"`
	QuoteMint         string `json:"quote_mint"`
	Authority         string `json:"authority"`
	FeeRecipient      string `json:"fee_recipient"`
	BaseVaultBalance  string `json:"base_vault_balance"`
	QuoteVaultBalance string `json:"quote_vault_balance"`
	BaseLotSize       string `json:"base_lot_size"`
	QuoteLotSize      string `json:"quote_lot_size"`
	TickSize          string `json:"tick_size"`
	TakerFeeBps       uint64 `json:"taker_fee_bps"`
	UncollectedFees   string `json:"uncollected_fees"`
}

// Printer provides an interface to write reports to an output stream.
type Printer interface {
	Write(data ...any) error
	Revenue(summary RevenueSummary) error
	Book(bids, asks []BookLevel) error
	Lines(lines []string) error
	MarketDetails(details MarketDetails) error
}
