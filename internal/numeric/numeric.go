// Package numeric converts human-readable quantities into venue integer units
// (native token amounts, base lots, quote lots).
package numeric

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Errors returned by the converters.
var (
	ErrInvalidDecimals = errors.New("numeric: decimals must be positive")
	ErrInvalidLotSize  = errors.New("numeric: lot size must be positive")
	ErrNegativeAmount  = errors.New("numeric: amount must not be negative")
	ErrOverflow        = errors.New("numeric: result overflows int64")
)

// DivisionPrecision is the number of fractional digits kept when dividing.
// 48 decimal digits is far beyond the precision any venue unit needs.
const DivisionPrecision = 48

// ToLotSize converts a UI quantity into base lots:
// round(qty * 10^decimals / lotSize).
func ToLotSize(decimals int32, lotSize int64, qty decimal.Decimal) (int64, error) {
	if err := validate(decimals, lotSize, qty); err != nil {
		return 0, err
	}
	exact := scale(qty, decimals).DivRound(decimal.NewFromInt(lotSize), DivisionPrecision)
	return toLots(exact)
}

// ToNativeAmount converts a UI quantity into the smallest token unit:
// round(qty * 10^decimals).
func ToNativeAmount(decimals int32, qty decimal.Decimal) (uint64, error) {
	if err := validate(decimals, 1, qty); err != nil {
		return 0, err
	}
	exact := scale(qty, decimals)
	if exact.LessThan(decimal.NewFromInt(1)) {
		return 0, nil
	}
	r := exact.Round(0)
	if !r.BigInt().IsUint64() {
		return 0, fmt.Errorf("%w: %s", ErrOverflow, r)
	}
	return r.BigInt().Uint64(), nil
}

// ToQuoteLots converts a UI quote amount into quote lots:
// round(amount * 10^quoteDecimals / quoteLotSize).
func ToQuoteLots(quoteDecimals int32, quoteLotSize int64, amount decimal.Decimal) (int64, error) {
	return ToLotSize(quoteDecimals, quoteLotSize, amount)
}

// FromNative converts a native integer amount back into UI units.
func FromNative(decimals int32, native decimal.Decimal) decimal.Decimal {
	return native.Shift(-decimals)
}

func validate(decimals int32, lotSize int64, qty decimal.Decimal) error {
	if decimals <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidDecimals, decimals)
	}
	if lotSize <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidLotSize, lotSize)
	}
	if qty.IsNegative() {
		return fmt.Errorf("%w: %s", ErrNegativeAmount, qty)
	}
	return nil
}

func scale(qty decimal.Decimal, decimals int32) decimal.Decimal {
	return qty.Shift(decimals)
}

// toLots rounds half away from zero, except that anything below one whole
// lot is zero.
func toLots(exact decimal.Decimal) (int64, error) {
	if exact.LessThan(decimal.NewFromInt(1)) {
		return 0, nil
	}
	r := exact.Round(0)
	if !r.BigInt().IsInt64() {
		return 0, fmt.Errorf("%w: %s", ErrOverflow, r)
	}
	return r.IntPart(), nil
}
