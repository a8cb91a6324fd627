package phoenix

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	solMint  = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	usdcMint = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
)

func sampleState() *MarketState {
	st := &MarketState{}
	st.Header.Status = uint64(StatusActive)
	st.Header.SizeParams = SizeParams{BidsSize: 4096, AsksSize: 4096, NumSeats: 8193}
	st.Header.BaseParams = TokenParams{Decimals: 9, MintKey: solMint}
	st.Header.QuoteParams = TokenParams{Decimals: 6, MintKey: usdcMint}
	st.Header.BaseLotSize = 1_000_000
	st.Header.QuoteLotSize = 1
	st.Header.TickSizeInQuoteAtomsPerBaseUnit = 1_000
	st.Header.RawBaseUnitsPerBaseUnit = 1
	st.Counters.BaseLotsPerBaseUnit = 1_000
	st.Counters.TickSizeInQuoteLotsPerBaseUnit = 1_000
	st.Counters.TakerFeeBps = 2
	st.Counters.CollectedQuoteLotFees = 9_000_000
	st.Counters.UnclaimedQuoteLotFees = 1_234_567
	return st
}

func TestEncodeMarketState_Layout(t *testing.T) {
	t.Parallel()

	data, err := EncodeMarketState(sampleState())
	require.NoError(t, err)
	require.Len(t, data, HeaderSize+CountersSize)

	// Spot-check fields at their on-chain offsets.
	assert.Equal(t, uint64(StatusActive), binary.LittleEndian.Uint64(data[8:16]))
	assert.Equal(t, uint32(9), binary.LittleEndian.Uint32(data[40:44]))
	assert.Equal(t, solMint[:], data[48:80])
	assert.Equal(t, uint64(1_000_000), binary.LittleEndian.Uint64(data[112:120]))
	assert.Equal(t, usdcMint[:], data[128:160])
	assert.Equal(t, uint64(1_000), binary.LittleEndian.Uint64(data[200:208]))
	assert.Equal(t, uint64(2), binary.LittleEndian.Uint64(data[856:864]))
	assert.Equal(t, uint64(1_234_567), binary.LittleEndian.Uint64(data[872:880]))
}

func TestDecodeMarketState(t *testing.T) {
	t.Parallel()

	want := sampleState()
	data, err := EncodeMarketState(want)
	require.NoError(t, err)

	// Trailing order book data must be ignored.
	data = append(data, make([]byte, 1024)...)

	got, err := DecodeMarketState(data)
	require.NoError(t, err)
	assert.Equal(t, *want, *got)
	assert.Equal(t, StatusActive, got.Header.MarketStatus())

	fees, err := DecodeUncollectedFees(data)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_234_567), fees)
}

func TestDecodeMarketState_Errors(t *testing.T) {
	t.Parallel()

	full, err := EncodeMarketState(sampleState())
	require.NoError(t, err)

	uninit := sampleState()
	uninit.Header.Status = uint64(StatusUninitialized)
	uninitData, err := EncodeMarketState(uninit)
	require.NoError(t, err)

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{name: "empty", data: nil, wantErr: ErrAccountTooShort},
		{name: "header only partially", data: full[:HeaderSize-1], wantErr: ErrAccountTooShort},
		{name: "missing counters", data: full[:HeaderSize+10], wantErr: ErrAccountTooShort},
		{name: "uninitialized", data: uninitData, wantErr: ErrUninitialized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := DecodeUncollectedFees(tt.data)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestMarketHeader_Metadata(t *testing.T) {
	t.Parallel()

	st := sampleState()
	md, err := st.Header.Metadata()
	require.NoError(t, err)

	assert.Equal(t, MarketMetadata{
		BaseMint:                        solMint,
		QuoteMint:                       usdcMint,
		BaseDecimals:                    9,
		QuoteDecimals:                   6,
		BaseLotSize:                     1_000_000,
		QuoteLotSize:                    1,
		TickSizeInQuoteAtomsPerBaseUnit: 1_000,
		RawBaseUnitsPerBaseUnit:         1,
	}, md)

	st.Header.QuoteParams.Decimals = 300
	_, err = st.Header.Metadata()
	require.Error(t, err)
}

func TestMarketStatus_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Active", StatusActive.String())
	assert.Equal(t, "Tombstoned", StatusTombstoned.String())
	assert.Equal(t, "Unknown(42)", MarketStatus(42).String())
}
