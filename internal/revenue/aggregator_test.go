package revenue

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/franco-grobler/phoenix-revenue/internal/phoenix"
	"github.com/franco-grobler/phoenix-revenue/internal/symbols"
	"github.com/franco-grobler/phoenix-revenue/internal/units"
)

var ethMint = solana.MustPublicKeyFromBase58("7vfCXTUXx5WJV5JADk17DUJ4ksgau7utNKj4b963voxs")

// fakeLedger serves encoded market accounts from memory.
type fakeLedger struct {
	accounts map[solana.PublicKey][]byte
	failing  map[solana.PublicKey]error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		accounts: make(map[solana.PublicKey][]byte),
		failing:  make(map[solana.PublicKey]error),
	}
}

// addMarket registers a market quoted in quoteMint with the given unclaimed
// fee in quote lots and returns its address.
func (l *fakeLedger) addMarket(
	t *testing.T, quoteMint solana.PublicKey, quoteDecimals uint32, quoteLotSize, feeLots uint64,
) solana.PublicKey {
	t.Helper()

	st := &phoenix.MarketState{}
	st.Header.Status = uint64(phoenix.StatusActive)
	st.Header.BaseParams = phoenix.TokenParams{Decimals: 9, MintKey: symbols.SOLMint}
	st.Header.QuoteParams = phoenix.TokenParams{Decimals: quoteDecimals, MintKey: quoteMint}
	st.Header.BaseLotSize = 1_000
	st.Header.QuoteLotSize = quoteLotSize
	st.Header.TickSizeInQuoteAtomsPerBaseUnit = 1_000
	st.Counters.UnclaimedQuoteLotFees = feeLots

	data, err := phoenix.EncodeMarketState(st)
	require.NoError(t, err)

	market := solana.NewWallet().PublicKey()
	l.accounts[market] = data
	return market
}

func (l *fakeLedger) RawAccountState(_ context.Context, market solana.PublicKey) ([]byte, error) {
	if err, ok := l.failing[market]; ok {
		return nil, err
	}
	data, ok := l.accounts[market]
	if !ok {
		return nil, errors.New("account not found")
	}
	return data, nil
}

func (l *fakeLedger) MarketMetadata(ctx context.Context, market solana.PublicKey) (phoenix.MarketMetadata, error) {
	data, err := l.RawAccountState(ctx, market)
	if err != nil {
		return phoenix.MarketMetadata{}, err
	}
	h, err := phoenix.DecodeHeader(data)
	if err != nil {
		return phoenix.MarketMetadata{}, err
	}
	return h.Metadata()
}

// fakeOracle returns fixed prices and records every call.
type fakeOracle struct {
	mu     sync.Mutex
	prices map[string]decimal.Decimal
	errs   map[string]error
	calls  []string
}

func (o *fakeOracle) SpotPrice(_ context.Context, base, quote string) (decimal.Decimal, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	pair := base + "-" + quote
	o.calls = append(o.calls, pair)
	if err, ok := o.errs[pair]; ok {
		return decimal.Zero, err
	}
	p, ok := o.prices[pair]
	if !ok {
		return decimal.Zero, errors.New("no price for " + pair)
	}
	return p, nil
}

func standardOracle() *fakeOracle {
	return &fakeOracle{prices: map[string]decimal.Decimal{
		"USDT-USDC": decimal.RequireFromString("1.0002"),
		"SOL-USDC":  decimal.RequireFromString("150.0"),
	}}
}

func newTestAggregator(l Ledger, o PriceOracle) *Aggregator {
	return NewAggregator(l, symbols.NewTable(), o, nil)
}

func TestAggregate_Empty(t *testing.T) {
	t.Parallel()

	oracle := standardOracle()
	report, err := newTestAggregator(newFakeLedger(), oracle).Aggregate(context.Background(), nil)
	require.NoError(t, err)

	assert.Empty(t, report.Totals)
	assert.True(t, report.GrandTotal.IsZero())
	assert.Equal(t, symbols.USDC, report.Reference)
	assert.Empty(t, oracle.calls, "no currency needs pricing")
}

func TestAggregate_ThreeCurrencies(t *testing.T) {
	t.Parallel()

	ledger := newFakeLedger()
	markets := []solana.PublicKey{
		ledger.addMarket(t, symbols.USDCMint, 6, 1, 100_000_000),
		ledger.addMarket(t, symbols.USDTMint, 6, 1, 50_000_000),
		ledger.addMarket(t, symbols.SOLMint, 9, 1, 2),
	}
	oracle := standardOracle()

	report, err := newTestAggregator(ledger, oracle).Aggregate(context.Background(), markets)
	require.NoError(t, err)

	assert.True(t, report.Total(symbols.USDC).Equal(decimal.RequireFromString("100")))
	assert.True(t, report.Total(symbols.USDT).Equal(decimal.RequireFromString("50")))
	assert.True(t, report.Total(symbols.SOL).Equal(decimal.RequireFromString("0.000000002")))
	assert.Len(t, report.Totals, 3)

	// 100 + 50 * 1.0002 + 0.000000002 * 150
	assert.Equal(t, "150.0100003", report.GrandTotal.String())

	assert.ElementsMatch(t, []string{"USDT-USDC", "SOL-USDC"}, oracle.calls)
	require.Len(t, report.Markets, 3)
	assert.Equal(t, markets[1], report.Markets[1].Market)
	assert.Equal(t, symbols.USDT, report.Markets[1].Symbol)
}

func TestAggregate_QuoteLotSizeScaling(t *testing.T) {
	t.Parallel()

	ledger := newFakeLedger()
	// 1_234 lots of 1_000 atoms at 6 decimals is 1.234 USDC.
	market := ledger.addMarket(t, symbols.USDCMint, 6, 1_000, 1_234)

	report, err := newTestAggregator(ledger, standardOracle()).
		Aggregate(context.Background(), []solana.PublicKey{market})
	require.NoError(t, err)
	assert.Equal(t, "1.234", report.Total(symbols.USDC).String())
	assert.Equal(t, uint64(1_234), report.Markets[0].QuoteLots)
}

func TestAggregate_SameCurrencyAccumulates(t *testing.T) {
	t.Parallel()

	ledger := newFakeLedger()
	markets := []solana.PublicKey{
		ledger.addMarket(t, symbols.SOLMint, 9, 1, 1_500_000_000),
		ledger.addMarket(t, symbols.SOLMint, 9, 1, 500_000_000),
	}
	oracle := standardOracle()

	report, err := newTestAggregator(ledger, oracle).Aggregate(context.Background(), markets)
	require.NoError(t, err)

	assert.Equal(t, "2", report.Total(symbols.SOL).String())
	assert.Equal(t, "300", report.GrandTotal.String())
	assert.Equal(t, []string{"SOL-USDC"}, oracle.calls, "one price fetch per currency")
}

func TestAggregate_UnsupportedQuoteCurrency(t *testing.T) {
	t.Parallel()

	ledger := newFakeLedger()
	usdc := ledger.addMarket(t, symbols.USDCMint, 6, 1, 100_000_000)
	eth := ledger.addMarket(t, ethMint, 8, 1, 10)

	resolver := symbols.NewTable()
	resolver.Set(ethMint, "ETH")
	oracle := standardOracle()

	report, err := NewAggregator(ledger, resolver, oracle, nil).
		Aggregate(context.Background(), []solana.PublicKey{usdc, eth})
	require.Nil(t, report)
	require.ErrorIs(t, err, ErrUnsupportedQuoteCurrency)

	var target *UnsupportedQuoteCurrencyError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, eth, target.Market)
	assert.Equal(t, symbols.Symbol("ETH"), target.Symbol)
	assert.Contains(t, err.Error(), "unsupported quote token: ETH")
	assert.Empty(t, oracle.calls, "pricing must not start after a failed market")
}

func TestAggregate_UnknownMintIsUnsupported(t *testing.T) {
	t.Parallel()

	ledger := newFakeLedger()
	market := ledger.addMarket(t, solana.NewWallet().PublicKey(), 6, 1, 1)

	_, err := newTestAggregator(ledger, standardOracle()).
		Aggregate(context.Background(), []solana.PublicKey{market})

	var target *UnsupportedQuoteCurrencyError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, symbols.Unknown, target.Symbol)
}

func TestAggregate_MarketLoadFailed(t *testing.T) {
	t.Parallel()

	ledger := newFakeLedger()
	good := ledger.addMarket(t, symbols.USDCMint, 6, 1, 1)
	missing := solana.NewWallet().PublicKey()

	truncated := solana.NewWallet().PublicKey()
	ledger.accounts[truncated] = ledger.accounts[good][:phoenix.HeaderSize+8]

	rpcDown := ledger.addMarket(t, symbols.USDCMint, 6, 1, 1)
	ledger.failing[rpcDown] = errors.New("connection refused")

	tests := []struct {
		name   string
		market solana.PublicKey
		cause  error
	}{
		{name: "not found", market: missing},
		{name: "malformed account", market: truncated, cause: phoenix.ErrAccountTooShort},
		{name: "transport error", market: rpcDown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			report, err := newTestAggregator(ledger, standardOracle()).
				Aggregate(context.Background(), []solana.PublicKey{good, tt.market})
			require.Nil(t, report)
			require.ErrorIs(t, err, ErrMarketLoadFailed)
			if tt.cause != nil {
				require.ErrorIs(t, err, tt.cause)
			}

			var target *MarketLoadFailedError
			require.ErrorAs(t, err, &target)
			assert.Equal(t, tt.market, target.Market)
		})
	}
}

func TestAggregate_PriceFeedUnavailable(t *testing.T) {
	t.Parallel()

	ledger := newFakeLedger()
	markets := []solana.PublicKey{
		ledger.addMarket(t, symbols.USDCMint, 6, 1, 1_000_000),
		ledger.addMarket(t, symbols.SOLMint, 9, 1, 1_000_000_000),
	}
	oracle := standardOracle()
	oracle.errs = map[string]error{"SOL-USDC": errors.New("coinbase is down")}

	report, err := newTestAggregator(ledger, oracle).Aggregate(context.Background(), markets)
	require.Nil(t, report)
	require.ErrorIs(t, err, ErrPriceFeedUnavailable)

	var target *PriceFeedUnavailableError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, symbols.SOL, target.Symbol)
	assert.Contains(t, err.Error(), "coinbase is down")
}

func TestAggregate_ZeroBalanceSkipsPricing(t *testing.T) {
	t.Parallel()

	ledger := newFakeLedger()
	markets := []solana.PublicKey{
		ledger.addMarket(t, symbols.USDCMint, 6, 1, 7_000_000),
		ledger.addMarket(t, symbols.SOLMint, 9, 1, 0),
	}
	oracle := standardOracle()
	oracle.errs = map[string]error{
		"SOL-USDC":  errors.New("coinbase is down"),
		"USDT-USDC": errors.New("coinbase is down"),
	}

	report, err := newTestAggregator(ledger, oracle).Aggregate(context.Background(), markets)
	require.NoError(t, err)

	assert.Equal(t, "7", report.GrandTotal.String())
	assert.True(t, report.Total(symbols.SOL).IsZero())
	assert.Empty(t, oracle.calls)
}

func TestAggregate_ConverterOverflow(t *testing.T) {
	t.Parallel()

	ledger := newFakeLedger()
	market := ledger.addMarket(t, symbols.USDCMint, 6, math.MaxUint64, 2)

	_, err := newTestAggregator(ledger, standardOracle()).
		Aggregate(context.Background(), []solana.PublicKey{market})
	require.ErrorIs(t, err, units.ErrArithmeticOverflow)
}

func TestAggregate_InvalidScale(t *testing.T) {
	t.Parallel()

	ledger := newFakeLedger()
	market := ledger.addMarket(t, symbols.USDCMint, 25, 1, 2)

	_, err := newTestAggregator(ledger, standardOracle()).
		Aggregate(context.Background(), []solana.PublicKey{market})
	require.ErrorIs(t, err, units.ErrInvalidScale)
}

func TestAggregate_Idempotent(t *testing.T) {
	t.Parallel()

	ledger := newFakeLedger()
	markets := []solana.PublicKey{
		ledger.addMarket(t, symbols.USDCMint, 6, 1, 123_456_789),
		ledger.addMarket(t, symbols.USDTMint, 6, 10, 98_765),
		ledger.addMarket(t, symbols.SOLMint, 9, 1, 42_000_000_001),
	}
	agg := newTestAggregator(ledger, standardOracle())

	first, err := agg.Aggregate(context.Background(), markets)
	require.NoError(t, err)
	second, err := agg.Aggregate(context.Background(), markets)
	require.NoError(t, err)

	assert.Equal(t, first.GrandTotal.String(), second.GrandTotal.String())
	for _, sym := range Supported {
		assert.Equal(t, first.Total(sym).String(), second.Total(sym).String(), sym)
	}
	assert.Equal(t, first.Markets, second.Markets)
}

func TestAggregate_PrecisionAtScale(t *testing.T) {
	t.Parallel()

	ledger := newFakeLedger()
	markets := make([]solana.PublicKey, 0, 10_000)
	for range 10_000 {
		markets = append(markets, ledger.addMarket(t, symbols.USDCMint, 6, 1, 1_000_000_000_001))
	}

	report, err := newTestAggregator(ledger, standardOracle()).Aggregate(context.Background(), markets)
	require.NoError(t, err)

	// 10_000 * 1_000_000.000001
	assert.Equal(t, "10000000000.01", report.Total(symbols.USDC).String())
	assert.Equal(t, "10000000000.01", report.GrandTotal.String())
}
