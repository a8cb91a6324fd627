// Package units converts between the fixed-point quantities stored on-chain
// (atoms, lots and ticks) and decimal, human-scale amounts.
//
// Every conversion is exact. Scaling is done on the decimal digits of the raw
// integer, never through binary floating point, so a balance of any size is
// reported to the last atom.
package units

import (
	"errors"
	"fmt"
	"math/big"
	"math/bits"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxDecimals is the largest scale accepted by the converter. 10^19 is the
// largest power of ten representable as a uint64.
const MaxDecimals = 19

var (
	// ErrInvalidScale is returned for a decimal count above MaxDecimals.
	ErrInvalidScale = errors.New("invalid decimal scale")
	// ErrArithmeticOverflow is returned when a result does not fit in 64 bits.
	ErrArithmeticOverflow = errors.New("arithmetic overflow")
	// ErrMalformedDecimal is returned when a decimal string cannot be parsed.
	ErrMalformedDecimal = errors.New("malformed decimal")
)

func checkScale(decimals uint8) error {
	if decimals > MaxDecimals {
		return fmt.Errorf("%w: %d exceeds %d", ErrInvalidScale, decimals, MaxDecimals)
	}
	return nil
}

// ToDecimalString renders raw / 10^decimals as a fixed-point string.
// Trailing fractional zeros are dropped, so 100000000 at 6 decimals is "100"
// and 2 at 9 decimals is "0.000000002".
func ToDecimalString(raw uint64, decimals uint8) (string, error) {
	if err := checkScale(decimals); err != nil {
		return "", err
	}

	s := strconv.FormatUint(raw, 10)
	if decimals == 0 {
		return s, nil
	}

	d := int(decimals)
	if len(s) <= d {
		s = strings.Repeat("0", d-len(s)+1) + s
	}

	whole := s[:len(s)-d]
	frac := strings.TrimRight(s[len(s)-d:], "0")
	if frac == "" {
		return whole, nil
	}
	return whole + "." + frac, nil
}

// ParseDecimalString is the inverse of ToDecimalString: it scales s by
// 10^decimals and returns the raw integer. Inputs with more fractional digits
// than decimals are rejected rather than rounded.
func ParseDecimalString(s string, decimals uint8) (uint64, error) {
	if err := checkScale(decimals); err != nil {
		return 0, err
	}

	whole, frac, hasPoint := strings.Cut(s, ".")
	if whole == "" || (hasPoint && frac == "") {
		return 0, fmt.Errorf("%w: %q", ErrMalformedDecimal, s)
	}
	if len(frac) > int(decimals) {
		return 0, fmt.Errorf(
			"%w: %q has more than %d fractional digits", ErrMalformedDecimal, s, decimals,
		)
	}

	digits := whole + frac + strings.Repeat("0", int(decimals)-len(frac))
	v, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, fmt.Errorf("%w: %q at scale %d", ErrArithmeticOverflow, s, decimals)
		}
		return 0, fmt.Errorf("%w: %q", ErrMalformedDecimal, s)
	}
	return v, nil
}

// ToDecimal returns raw / 10^decimals as an exact decimal.
func ToDecimal(raw uint64, decimals uint8) (decimal.Decimal, error) {
	if err := checkScale(decimals); err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromBigInt(new(big.Int).SetUint64(raw), -int32(decimals)), nil
}

// TicksToPrice converts a price in ticks to quote units per base unit.
// The product ticks*tickSize is formed exactly and rounded to float64 once,
// so the result never decreases as ticks grows.
func TicksToPrice(ticks, tickSizeInQuoteAtomsPerBaseUnit uint64, quoteDecimals uint8) (float64, error) {
	if err := checkScale(quoteDecimals); err != nil {
		return 0, err
	}

	atoms := new(big.Int).Mul(
		new(big.Int).SetUint64(ticks),
		new(big.Int).SetUint64(tickSizeInQuoteAtomsPerBaseUnit),
	)
	price, _ := decimal.NewFromBigInt(atoms, -int32(quoteDecimals)).Float64()
	return price, nil
}

// LotsToAmount converts a lot count to atoms.
func LotsToAmount(lots, lotSize uint64) (uint64, error) {
	hi, lo := bits.Mul64(lots, lotSize)
	if hi != 0 {
		return 0, fmt.Errorf("%w: %d lots of size %d", ErrArithmeticOverflow, lots, lotSize)
	}
	return lo, nil
}

// LotsToDecimalString converts a lot count straight to a decimal string.
func LotsToDecimalString(lots, lotSize uint64, decimals uint8) (string, error) {
	amount, err := LotsToAmount(lots, lotSize)
	if err != nil {
		return "", err
	}
	return ToDecimalString(amount, decimals)
}
