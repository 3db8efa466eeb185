package amount

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToBaseUnits(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		decimals int
		want     uint64
	}{
		{"whole amount", "1.0", 6, 1_000_000},
		{"truncates sub-unit fraction", "1.0000005", 6, 1_000_000},
		{"truncates, never rounds up", "0.9999999", 6, 999_999},
		{"zero", "0", 18, 0},
		{"no shift", "42", 0, 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amt, err := decimal.NewFromString(tt.amount)
			require.NoError(t, err)

			got, err := ToBaseUnits(amt, tt.decimals)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Uint64())
		})
	}
}

func TestToBaseUnits_Negative(t *testing.T) {
	_, err := ToBaseUnits(decimal.NewFromInt(-1), 6)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestFromBaseUnits(t *testing.T) {
	v := uint256.NewInt(1_500_000)
	assert.True(t, FromBaseUnits(v, 6).Equal(decimal.RequireFromString("1.5")))
}

func TestSplit_RemainderFirst(t *testing.T) {
	chunks, err := Split(uint256.NewInt(10), 3)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, uint64(4), chunks[0].Uint64())
	assert.Equal(t, uint64(3), chunks[1].Uint64())
	assert.Equal(t, uint64(3), chunks[2].Uint64())
}

func TestSplit_SinglePart(t *testing.T) {
	chunks, err := Split(uint256.NewInt(12345), 1)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, uint64(12345), chunks[0].Uint64())
}

func TestSplit_ZeroTotal(t *testing.T) {
	chunks, err := Split(uint256.NewInt(0), 5)
	require.NoError(t, err)
	require.Len(t, chunks, 5)
	for _, c := range chunks {
		assert.True(t, c.IsZero())
	}
}

func TestSplit_SumAndSkewInvariants(t *testing.T) {
	totals := []uint64{0, 1, 7, 10, 999, 1_000_000, 18_446_744_073}
	partCounts := []int{1, 2, 3, 5, 7, 100}

	for _, total := range totals {
		for _, parts := range partCounts {
			chunks, err := Split(uint256.NewInt(total), parts)
			require.NoError(t, err)
			require.Len(t, chunks, parts)

			sum := new(uint256.Int)
			min, max := chunks[0], chunks[0]
			for _, c := range chunks {
				sum.Add(sum, c)
				if c.Cmp(min) < 0 {
					min = c
				}
				if c.Cmp(max) > 0 {
					max = c
				}
			}
			assert.Equal(t, total, sum.Uint64(), "sum mismatch for total=%d parts=%d", total, parts)

			skew := new(uint256.Int).Sub(max, min)
			assert.LessOrEqual(t, skew.Uint64(), uint64(1), "skew > 1 for total=%d parts=%d", total, parts)
		}
	}
}

func TestSplit_InvalidParts(t *testing.T) {
	_, err := Split(uint256.NewInt(10), 0)
	assert.ErrorIs(t, err, ErrInvalidParts)

	_, err = Split(uint256.NewInt(10), -3)
	assert.ErrorIs(t, err, ErrInvalidParts)
}
