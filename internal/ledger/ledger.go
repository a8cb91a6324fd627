// Package ledger reads Phoenix market accounts and token balances over Solana
// JSON-RPC.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/franco-grobler/phoenix-revenue/internal/phoenix"
	"github.com/franco-grobler/phoenix-revenue/internal/units"
)

// ProgramID is the Phoenix v1 program that owns every market account.
var ProgramID = solana.MustPublicKeyFromBase58("PhoeNiXZ8ByJGLkxNfZRnkUfjvmuYqLR89jjFHGqdXY")

var (
	// ErrAccountNotFound is returned when the account does not exist.
	ErrAccountNotFound = errors.New("account not found")
	// ErrNotMarket is returned when the account is not owned by the Phoenix program.
	ErrNotMarket = errors.New("account is not a phoenix market")
)

// RPC is the subset of *rpc.Client used by the ledger.
type RPC interface {
	GetAccountInfoWithOpts(
		ctx context.Context, account solana.PublicKey, opts *rpc.GetAccountInfoOpts,
	) (*rpc.GetAccountInfoResult, error)
	GetTokenAccountBalance(
		ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType,
	) (*rpc.GetTokenAccountBalanceResult, error)
}

var _ RPC = (*rpc.Client)(nil)

// Client reads market state at a fixed commitment.
type Client struct {
	rpc        RPC
	commitment rpc.CommitmentType
	log        *zap.Logger
}

// New creates a Client for endpoint. Requests are limited to perSecond with
// the given burst; a non-positive perSecond disables limiting.
func New(endpoint string, commitment rpc.CommitmentType, perSecond float64, burst int, log *zap.Logger) *Client {
	var c *rpc.Client
	if perSecond > 0 {
		c = rpc.NewWithCustomRPCClient(rpc.NewWithLimiter(endpoint, rate.Limit(perSecond), burst))
	} else {
		c = rpc.New(endpoint)
	}
	return NewWithRPC(c, commitment, log)
}

// NewWithRPC creates a Client over an existing RPC implementation. A nil
// logger disables logging.
func NewWithRPC(r RPC, commitment rpc.CommitmentType, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	if commitment == "" {
		commitment = rpc.CommitmentConfirmed
	}
	return &Client{rpc: r, commitment: commitment, log: log}
}

// RawAccountState returns the data of a market account.
func (c *Client) RawAccountState(ctx context.Context, market solana.PublicKey) ([]byte, error) {
	res, err := c.rpc.GetAccountInfoWithOpts(ctx, market, &rpc.GetAccountInfoOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: c.commitment,
	})
	if errors.Is(err, rpc.ErrNotFound) || (err == nil && (res == nil || res.Value == nil)) {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, market)
	}
	if err != nil {
		return nil, fmt.Errorf("get account %s: %w", market, err)
	}
	if !res.Value.Owner.Equals(ProgramID) {
		return nil, fmt.Errorf("%w: %s is owned by %s", ErrNotMarket, market, res.Value.Owner)
	}

	var data []byte
	if res.Value.Data != nil {
		data = res.Value.Data.GetBinary()
	}
	c.log.Debug("fetched market account",
		zap.Stringer("market", market),
		zap.Int("bytes", len(data)),
		zap.Uint64("slot", res.Context.Slot),
	)
	return data, nil
}

// MarketState fetches and decodes the market header and fee counters.
func (c *Client) MarketState(ctx context.Context, market solana.PublicKey) (*phoenix.MarketState, error) {
	data, err := c.RawAccountState(ctx, market)
	if err != nil {
		return nil, err
	}
	st, err := phoenix.DecodeMarketState(data)
	if err != nil {
		return nil, fmt.Errorf("market %s: %w", market, err)
	}
	return st, nil
}

// MarketMetadata fetches the conversion parameters of a market.
func (c *Client) MarketMetadata(ctx context.Context, market solana.PublicKey) (phoenix.MarketMetadata, error) {
	data, err := c.RawAccountState(ctx, market)
	if err != nil {
		return phoenix.MarketMetadata{}, err
	}
	h, err := phoenix.DecodeHeader(data)
	if err != nil {
		return phoenix.MarketMetadata{}, fmt.Errorf("market %s: %w", market, err)
	}
	return h.Metadata()
}

// TokenBalance returns the balance of an SPL token account in whole tokens.
func (c *Client) TokenBalance(ctx context.Context, account solana.PublicKey) (decimal.Decimal, error) {
	res, err := c.rpc.GetTokenAccountBalance(ctx, account, c.commitment)
	if errors.Is(err, rpc.ErrNotFound) || (err == nil && (res == nil || res.Value == nil)) {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrAccountNotFound, account)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("get token balance %s: %w", account, err)
	}

	raw, err := strconv.ParseUint(res.Value.Amount, 10, 64)
	if err != nil {
		return decimal.Zero, fmt.Errorf("token balance %s: %w", account, err)
	}
	return units.ToDecimal(raw, res.Value.Decimals)
}
