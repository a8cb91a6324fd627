// Package phoenix decodes the fixed-layout Phoenix market account: the
// 576-byte market header followed by the market's fee and sequence counters.
package phoenix

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

const (
	// HeaderSize is the encoded size of MarketHeader.
	HeaderSize = 576
	// CountersSize is the encoded size of MarketCounters.
	CountersSize = 304
)

var (
	// ErrAccountTooShort is returned when the account data cannot hold a market.
	ErrAccountTooShort = errors.New("market account data too short")
	// ErrUninitialized is returned for an account whose header was never written.
	ErrUninitialized = errors.New("market account is not initialized")
)

// MarketStatus mirrors the on-chain market status.
type MarketStatus uint64

// Known market statuses.
const (
	StatusUninitialized MarketStatus = iota
	StatusActive
	StatusPostOnly
	StatusPaused
	StatusClosed
	StatusTombstoned
)

func (s MarketStatus) String() string {
	switch s {
	case StatusUninitialized:
		return "Uninitialized"
	case StatusActive:
		return "Active"
	case StatusPostOnly:
		return "PostOnly"
	case StatusPaused:
		return "Paused"
	case StatusClosed:
		return "Closed"
	case StatusTombstoned:
		return "Tombstoned"
	default:
		return fmt.Sprintf("Unknown(%d)", uint64(s))
	}
}

// SizeParams are the capacities the market account was allocated with.
type SizeParams struct {
	BidsSize uint64
	AsksSize uint64
	NumSeats uint64
}

// TokenParams describe one side of the market.
type TokenParams struct {
	Decimals  uint32
	VaultBump uint32
	MintKey   [32]byte
	VaultKey  [32]byte
}

// MarketHeader is the leading, fixed-size part of a market account.
type MarketHeader struct {
	Discriminant                    uint64
	Status                          uint64
	SizeParams                      SizeParams
	BaseParams                      TokenParams
	BaseLotSize                     uint64
	QuoteParams                     TokenParams
	QuoteLotSize                    uint64
	TickSizeInQuoteAtomsPerBaseUnit uint64
	Authority                       [32]byte
	FeeRecipient                    [32]byte
	MarketSequenceNumber            uint64
	Successor                       [32]byte
	RawBaseUnitsPerBaseUnit         uint32
	Padding1                        uint32
	Padding2                        [32]uint64
}

// MarketCounters is the fixed prefix of the market body that follows the header.
// Fee counters are denominated in quote lots.
type MarketCounters struct {
	Padding                        [32]uint64
	BaseLotsPerBaseUnit            uint64
	TickSizeInQuoteLotsPerBaseUnit uint64
	OrderSequenceNumber            uint64
	TakerFeeBps                    uint64
	CollectedQuoteLotFees          uint64
	UnclaimedQuoteLotFees          uint64
}

// MarketState is a decoded market account.
type MarketState struct {
	Header   MarketHeader
	Counters MarketCounters
}

// MarketMetadata is the read-only descriptor needed to convert a market's raw
// quantities.
type MarketMetadata struct {
	BaseMint                        solana.PublicKey
	QuoteMint                       solana.PublicKey
	BaseDecimals                    uint8
	QuoteDecimals                   uint8
	BaseLotSize                     uint64
	QuoteLotSize                    uint64
	TickSizeInQuoteAtomsPerBaseUnit uint64
	RawBaseUnitsPerBaseUnit         uint32
}

// DecodeHeader decodes the market header at the start of data.
func DecodeHeader(data []byte) (*MarketHeader, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes, header needs %d", ErrAccountTooShort, len(data), HeaderSize)
	}

	var h MarketHeader
	if err := bin.NewBinDecoder(data[:HeaderSize]).Decode(&h); err != nil {
		return nil, fmt.Errorf("decode market header: %w", err)
	}
	if h.MarketStatus() == StatusUninitialized {
		return nil, ErrUninitialized
	}
	return &h, nil
}

// DecodeMarketState decodes the header and the counters that follow it.
func DecodeMarketState(data []byte) (*MarketState, error) {
	h, err := DecodeHeader(data)
	if err != nil {
		return nil, err
	}

	if len(data) < HeaderSize+CountersSize {
		return nil, fmt.Errorf(
			"%w: %d bytes, market needs at least %d",
			ErrAccountTooShort, len(data), HeaderSize+CountersSize,
		)
	}

	var c MarketCounters
	if err := bin.NewBinDecoder(data[HeaderSize : HeaderSize+CountersSize]).Decode(&c); err != nil {
		return nil, fmt.Errorf("decode market counters: %w", err)
	}
	return &MarketState{Header: *h, Counters: c}, nil
}

// DecodeUncollectedFees returns the market's unclaimed fees in quote lots.
func DecodeUncollectedFees(data []byte) (uint64, error) {
	st, err := DecodeMarketState(data)
	if err != nil {
		return 0, err
	}
	return st.Counters.UnclaimedQuoteLotFees, nil
}

// MarketStatus returns the typed market status.
func (h *MarketHeader) MarketStatus() MarketStatus {
	return MarketStatus(h.Status)
}

// Metadata extracts the conversion parameters from the header.
func (h *MarketHeader) Metadata() (MarketMetadata, error) {
	if h.BaseParams.Decimals > math.MaxUint8 || h.QuoteParams.Decimals > math.MaxUint8 {
		return MarketMetadata{}, fmt.Errorf(
			"implausible token decimals: base %d, quote %d",
			h.BaseParams.Decimals, h.QuoteParams.Decimals,
		)
	}
	return MarketMetadata{
		BaseMint:                        solana.PublicKeyFromBytes(h.BaseParams.MintKey[:]),
		QuoteMint:                       solana.PublicKeyFromBytes(h.QuoteParams.MintKey[:]),
		BaseDecimals:                    uint8(h.BaseParams.Decimals),
		QuoteDecimals:                   uint8(h.QuoteParams.Decimals),
		BaseLotSize:                     h.BaseLotSize,
		QuoteLotSize:                    h.QuoteLotSize,
		TickSizeInQuoteAtomsPerBaseUnit: h.TickSizeInQuoteAtomsPerBaseUnit,
		RawBaseUnitsPerBaseUnit:         h.RawBaseUnitsPerBaseUnit,
	}, nil
}

// EncodeMarketState serialises st in the on-chain layout. It is the inverse of
// DecodeMarketState and is used to build account fixtures.
func EncodeMarketState(st *MarketState) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(HeaderSize + CountersSize)
	enc := bin.NewBinEncoder(&buf)
	if err := enc.Encode(st.Header); err != nil {
		return nil, fmt.Errorf("encode market header: %w", err)
	}
	if err := enc.Encode(st.Counters); err != nil {
		return nil, fmt.Errorf("encode market counters: %w", err)
	}
	return buf.Bytes(), nil
}
