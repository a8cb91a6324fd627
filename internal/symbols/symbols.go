// Package symbols maps token mints to ticker symbols.
package symbols

import (
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// Symbol is a ticker such as "USDC".
type Symbol string

// Well-known tickers.
const (
	USDC    Symbol = "USDC"
	USDT    Symbol = "USDT"
	SOL     Symbol = "SOL"
	Unknown Symbol = "UNKNOWN"
)

// Mainnet mints of the well-known tickers.
var (
	USDCMint = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	USDTMint = solana.MustPublicKeyFromBase58("Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB")
	SOLMint  = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
)

// Resolver maps a mint to its ticker, returning Unknown when it has none.
type Resolver interface {
	Resolve(mint solana.PublicKey) Symbol
}

var _ Resolver = (*Table)(nil)

// Table is a static Resolver.
type Table struct {
	byMint map[solana.PublicKey]Symbol
}

// NewTable returns a Table seeded with the well-known mints.
func NewTable() *Table {
	return &Table{
		byMint: map[solana.PublicKey]Symbol{
			USDCMint: USDC,
			USDTMint: USDT,
			SOLMint:  SOL,
		},
	}
}

// NewTableWithOverrides returns the default table extended by overrides,
// given as base58 mint -> ticker. Tickers are upper-cased.
func NewTableWithOverrides(overrides map[string]string) (*Table, error) {
	t := NewTable()
	for mint, sym := range overrides {
		pk, err := solana.PublicKeyFromBase58(mint)
		if err != nil {
			return nil, fmt.Errorf("symbol override %q: %w", mint, err)
		}
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" {
			return nil, fmt.Errorf("symbol override %q: empty ticker", mint)
		}
		t.Set(pk, Symbol(sym))
	}
	return t, nil
}

// Set registers or replaces the ticker for mint.
func (t *Table) Set(mint solana.PublicKey, sym Symbol) {
	t.byMint[mint] = sym
}

// Resolve implements [Resolver].
func (t *Table) Resolve(mint solana.PublicKey) Symbol {
	if sym, ok := t.byMint[mint]; ok {
		return sym
	}
	return Unknown
}
