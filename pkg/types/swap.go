package types

import (
	"strings"

	"github.com/holiman/uint256"
)

// NativeTokenAddress is the pseudo-address aggregators use for the chain's
// native coin. Native transfers carry value directly and need no ERC-20
// approval.
const NativeTokenAddress = "0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE"

// Token identifies a token on the target chain. Decimals drive the conversion
// between human decimal amounts and integer base units.
type Token struct {
	Symbol   string
	Name     string
	Address  string
	Decimals int
}

// IsNative reports whether the token is the chain's native coin rather than an
// ERC-20 contract.
func (t Token) IsNative() bool {
	return strings.EqualFold(t.Address, NativeTokenAddress)
}

// SwapRequest represents a user's swap command before token resolution.
type SwapRequest struct {
	Amount      string
	SourceToken string
	DestToken   string
}

// UnsignedTx is a transaction descriptor produced by the aggregator and
// consumed exactly once by the wallet signing channel.
type UnsignedTx struct {
	From string
	To   string
	Data string // 0x-prefixed calldata

	// Value is the native-coin amount attached to the transaction; nil means
	// zero.
	Value *uint256.Int

	// Gas and GasPrice are optional. A zero Gas or nil GasPrice delegates the
	// estimate to the signing wallet.
	Gas      uint64
	GasPrice *uint256.Int
}

// QuoteEstimate is the aggregator's output estimate for a single input amount.
type QuoteEstimate struct {
	OutAmount *uint256.Int
}

// SwapBuild is the aggregator's response to a swap build request. Tx is nil
// when no route exists for the requested amount; callers must treat that as a
// distinct condition, not a malformed response.
type SwapBuild struct {
	OutAmount *uint256.Int
	Tx        *UnsignedTx
}
