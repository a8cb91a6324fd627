// Package revenue aggregates uncollected protocol fees across markets into
// per-currency totals and a single total in the reference currency.
package revenue

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/franco-grobler/phoenix-revenue/internal/phoenix"
	"github.com/franco-grobler/phoenix-revenue/internal/symbols"
	"github.com/franco-grobler/phoenix-revenue/internal/units"
)

// Reference is the currency every total is converted into.
const Reference = symbols.USDC

// Supported is the closed set of quote currencies the aggregator can price,
// in reporting order.
var Supported = []symbols.Symbol{symbols.USDC, symbols.USDT, symbols.SOL}

// Ledger provides market state.
type Ledger interface {
	MarketMetadata(ctx context.Context, market solana.PublicKey) (phoenix.MarketMetadata, error)
	RawAccountState(ctx context.Context, market solana.PublicKey) ([]byte, error)
}

// PriceOracle quotes base in units of quote.
type PriceOracle interface {
	SpotPrice(ctx context.Context, base, quote string) (decimal.Decimal, error)
}

// Aggregator builds revenue reports. Markets are processed sequentially.
type Aggregator struct {
	ledger   Ledger
	resolver symbols.Resolver
	oracle   PriceOracle
	log      *zap.Logger
}

// NewAggregator creates an Aggregator. A nil logger disables logging.
func NewAggregator(
	ledger Ledger, resolver symbols.Resolver, oracle PriceOracle, log *zap.Logger,
) *Aggregator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Aggregator{ledger: ledger, resolver: resolver, oracle: oracle, log: log}
}

func isSupported(sym symbols.Symbol) bool {
	for _, s := range Supported {
		if s == sym {
			return true
		}
	}
	return false
}

// Aggregate sums the uncollected fees of markets.
//
// Any failure aborts the whole run and no partial report is returned: a
// market that cannot be loaded, a quote currency outside Supported, or a
// missing price for a currency with a non-zero balance.
func (a *Aggregator) Aggregate(ctx context.Context, markets []solana.PublicKey) (*Report, error) {
	report := newReport(Reference)

	for _, market := range markets {
		fee, err := a.marketFee(ctx, market)
		if err != nil {
			return nil, err
		}

		report.Totals[fee.Symbol] = report.Total(fee.Symbol).Add(fee.Amount)
		report.Markets = append(report.Markets, fee)

		a.log.Debug("accumulated market fees",
			zap.Stringer("market", market),
			zap.String("symbol", string(fee.Symbol)),
			zap.Uint64("quote_lots", fee.QuoteLots),
			zap.String("amount", fee.Amount.String()),
		)
	}

	if err := a.price(ctx, report); err != nil {
		return nil, err
	}

	for _, sym := range Supported {
		total, ok := report.Totals[sym]
		if !ok || total.IsZero() {
			continue
		}
		report.GrandTotal = report.GrandTotal.Add(total.Mul(report.Rates[sym]))
	}

	a.log.Info("revenue aggregated",
		zap.Int("markets", len(markets)),
		zap.String("total", report.GrandTotal.String()),
		zap.String("reference", string(report.Reference)),
	)
	return report, nil
}

func (a *Aggregator) marketFee(ctx context.Context, market solana.PublicKey) (MarketFee, error) {
	md, err := a.ledger.MarketMetadata(ctx, market)
	if err != nil {
		return MarketFee{}, &MarketLoadFailedError{Market: market, Err: err}
	}

	data, err := a.ledger.RawAccountState(ctx, market)
	if err != nil {
		return MarketFee{}, &MarketLoadFailedError{Market: market, Err: err}
	}

	lots, err := phoenix.DecodeUncollectedFees(data)
	if err != nil {
		return MarketFee{}, &MarketLoadFailedError{Market: market, Err: err}
	}

	atoms, err := units.LotsToAmount(lots, md.QuoteLotSize)
	if err != nil {
		return MarketFee{}, fmt.Errorf("market %s fees: %w", market, err)
	}
	amount, err := units.ToDecimal(atoms, md.QuoteDecimals)
	if err != nil {
		return MarketFee{}, fmt.Errorf("market %s fees: %w", market, err)
	}

	sym := a.resolver.Resolve(md.QuoteMint)
	if !isSupported(sym) {
		return MarketFee{}, &UnsupportedQuoteCurrencyError{Market: market, Symbol: sym}
	}

	return MarketFee{Market: market, Symbol: sym, QuoteLots: lots, Amount: amount}, nil
}

// price fills report.Rates, querying the oracle once per currency that holds
// a non-zero balance.
func (a *Aggregator) price(ctx context.Context, report *Report) error {
	report.Rates[report.Reference] = decimal.NewFromInt(1)

	for _, sym := range Supported {
		if sym == report.Reference || report.Total(sym).IsZero() {
			continue
		}

		rate, err := a.oracle.SpotPrice(ctx, string(sym), string(report.Reference))
		if err != nil {
			return &PriceFeedUnavailableError{Symbol: sym, Err: err}
		}
		report.Rates[sym] = rate

		a.log.Debug("fetched spot price",
			zap.String("base", string(sym)),
			zap.String("quote", string(report.Reference)),
			zap.String("price", rate.String()),
		)
	}
	return nil
}
