// Package splitswap simulates and executes split swaps: one logical trade run
// as N sequential sub-trades to reduce price impact.
package splitswap

import (
	"context"

	"github.com/holiman/uint256"

	"slip-swap/pkg/types"
)

// Collaborator interfaces, implemented by pkg/oneinch, pkg/wallet and
// pkg/watcher in production and by fakes in tests. The engine never reaches
// for global state; every collaborator is injected.

// QuoteGateway estimates the output of swapping an input amount, read-only.
type QuoteGateway interface {
	Quote(ctx context.Context, from, to types.Token, amount *uint256.Int) (*types.QuoteEstimate, error)
}

// SwapTxBuilder builds an unsigned swap transaction for one exact amount. A
// nil Tx in the result means no route exists for that amount.
type SwapTxBuilder interface {
	BuildSwap(ctx context.Context, from, to types.Token, amount *uint256.Int, wallet string, slippageBps int) (*types.SwapBuild, error)
}

// AllowanceGateway reads the current spender allowance and builds approval
// transactions.
type AllowanceGateway interface {
	Allowance(ctx context.Context, token types.Token, owner string) (*uint256.Int, error)
	BuildApproval(ctx context.Context, token types.Token, amount *uint256.Int, owner string) (*types.UnsignedTx, error)
}

// TxSender submits an unsigned transaction to the external signer and returns
// the transaction hash once the wallet responds.
type TxSender interface {
	Send(ctx context.Context, tx *types.UnsignedTx) (string, error)
}

// ConfirmationAwaiter blocks until a submitted transaction is reported
// confirmed on chain.
type ConfirmationAwaiter interface {
	Await(ctx context.Context, txHash string) error
}

// WalletResolver reports the address of the connected wallet account, or ""
// when no wallet is connected.
type WalletResolver interface {
	Address() string
}
