/*
Conversion helpers between raw on-chain integer amounts (smallest unit) and
decimal-adjusted values, with strict validation on every path.
*/

package utils

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidDecimals = errors.New("token decimals are invalid")
	ErrAmountNil       = errors.New("amount is nil")
	ErrAmountNegative  = errors.New("amount is negative")
)

// RawToDecimal converts a smallest-unit integer amount to its
// decimal-adjusted value.
func RawToDecimal(amount *big.Int, decimals int) (decimal.Decimal, error) {
	if decimals < 0 || decimals > 36 {
		return decimal.Zero, fmt.Errorf("%w: %d (must be between 0 and 36)", ErrInvalidDecimals, decimals)
	}
	if amount == nil {
		return decimal.Zero, ErrAmountNil
	}
	if amount.Sign() < 0 {
		return decimal.Zero, ErrAmountNegative
	}

	return decimal.NewFromBigInt(amount, -int32(decimals)), nil
}

// DecimalToRaw converts a decimal-adjusted amount to the smallest-unit
// integer, truncating any precision beyond the token's decimals.
func DecimalToRaw(amount decimal.Decimal, decimals int) (*big.Int, error) {
	if decimals < 0 || decimals > 36 {
		return nil, fmt.Errorf("%w: %d (must be between 0 and 36)", ErrInvalidDecimals, decimals)
	}
	if amount.IsNegative() {
		return nil, ErrAmountNegative
	}

	shifted := amount.Shift(int32(decimals)).Truncate(0)
	return shifted.BigInt(), nil
}
