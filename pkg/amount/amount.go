// Package amount converts between human decimal token amounts and integer base
// units, and splits base-unit totals into exact-sum chunks.
package amount

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidAmount is returned for negative or unrepresentable amounts.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidParts is returned when a split is requested with fewer than
	// one part.
	ErrInvalidParts = errors.New("parts must be at least 1")
)

// MaxUint256 returns the largest representable base-unit amount, used to size
// unlimited approvals.
func MaxUint256() *uint256.Int {
	return new(uint256.Int).SetAllOne()
}

// ToBaseUnits converts a human decimal amount to integer base units by shifting
// decimals places and truncating toward zero. Truncation (never rounding up)
// keeps the result within what the user entered.
func ToBaseUnits(amt decimal.Decimal, decimals int) (*uint256.Int, error) {
	if amt.IsNegative() {
		return nil, fmt.Errorf("%w: %s is negative", ErrInvalidAmount, amt)
	}

	scaled := amt.Shift(int32(decimals)).Truncate(0)
	v, overflow := uint256.FromBig(scaled.BigInt())
	if overflow {
		return nil, fmt.Errorf("%w: %s does not fit in 256 bits", ErrInvalidAmount, scaled)
	}
	return v, nil
}

// FromBaseUnits converts base units back to a decimal amount for display.
func FromBaseUnits(v *uint256.Int, decimals int) decimal.Decimal {
	return decimal.NewFromBigInt(v.ToBig(), 0).Shift(int32(-decimals))
}

// Split divides total into parts chunks that sum exactly to total. The first
// total%parts chunks carry one extra base unit, so no two chunks differ by more
// than a single unit. Zero-valued chunks are valid; callers skip them.
func Split(total *uint256.Int, parts int) ([]*uint256.Int, error) {
	if parts < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidParts, parts)
	}

	n := uint256.NewInt(uint64(parts))
	base := new(uint256.Int).Div(total, n)
	// The remainder is < parts, so it always fits a uint64.
	rem := new(uint256.Int).Mod(total, n).Uint64()

	one := uint256.NewInt(1)
	chunks := make([]*uint256.Int, parts)
	for i := 0; i < parts; i++ {
		c := new(uint256.Int).Set(base)
		if uint64(i) < rem {
			c.Add(c, one)
		}
		chunks[i] = c
	}
	return chunks, nil
}
