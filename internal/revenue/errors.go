package revenue

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/franco-grobler/phoenix-revenue/internal/symbols"
)

// Sentinels matched by the typed errors below through errors.Is.
var (
	ErrMarketLoadFailed         = errors.New("market load failed")
	ErrUnsupportedQuoteCurrency = errors.New("unsupported quote currency")
	ErrPriceFeedUnavailable     = errors.New("price feed unavailable")
)

// MarketLoadFailedError reports a market whose account could not be fetched
// or decoded.
type MarketLoadFailedError struct {
	Market solana.PublicKey
	Err    error
}

func (e *MarketLoadFailedError) Error() string {
	return fmt.Sprintf("failed to load market %s: %v", e.Market, e.Err)
}

func (e *MarketLoadFailedError) Unwrap() error { return e.Err }

// Is reports whether target is ErrMarketLoadFailed.
func (e *MarketLoadFailedError) Is(target error) bool { return target == ErrMarketLoadFailed }

// UnsupportedQuoteCurrencyError reports a market quoted in a currency the
// aggregator cannot price.
type UnsupportedQuoteCurrencyError struct {
	Market solana.PublicKey
	Symbol symbols.Symbol
}

func (e *UnsupportedQuoteCurrencyError) Error() string {
	return fmt.Sprintf("the %s market is using an unsupported quote token: %s", e.Market, e.Symbol)
}

// Is reports whether target is ErrUnsupportedQuoteCurrency.
func (e *UnsupportedQuoteCurrencyError) Is(target error) bool {
	return target == ErrUnsupportedQuoteCurrency
}

// PriceFeedUnavailableError reports a failed price lookup for a currency
// holding a non-zero balance.
type PriceFeedUnavailableError struct {
	Symbol symbols.Symbol
	Err    error
}

func (e *PriceFeedUnavailableError) Error() string {
	return fmt.Sprintf("price feed unavailable for %s: %v", e.Symbol, e.Err)
}

func (e *PriceFeedUnavailableError) Unwrap() error { return e.Err }

// Is reports whether target is ErrPriceFeedUnavailable.
func (e *PriceFeedUnavailableError) Is(target error) bool {
	return target == ErrPriceFeedUnavailable
}
