// Package balance reads ERC-20 balances over a JSON-RPC endpoint. This is the
// module's only direct chain access; everything else goes through the
// aggregator or the signing wallet.
package balance

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/holiman/uint256"

	"slip-swap/pkg/types"
)

const erc20BalanceOfABI = `[{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"type":"function"}]`

// Reader reads token balances for one RPC endpoint.
type Reader struct {
	client *ethclient.Client
}

// NewReader connects to the RPC endpoint.
func NewReader(rpcURL string) (*Reader, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC endpoint: %w", err)
	}
	return &Reader{client: client}, nil
}

// BalanceOf returns owner's balance of token in base units. For the native
// coin it reads the account balance directly.
func (r *Reader) BalanceOf(ctx context.Context, token types.Token, owner string) (*uint256.Int, error) {
	if !common.IsHexAddress(owner) {
		return nil, fmt.Errorf("invalid owner address: %s", owner)
	}
	ownerAddr := common.HexToAddress(owner)

	if token.IsNative() {
		bal, err := r.client.BalanceAt(ctx, ownerAddr, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to get native balance: %w", err)
		}
		v, overflow := uint256.FromBig(bal)
		if overflow {
			return nil, fmt.Errorf("native balance does not fit in 256 bits")
		}
		return v, nil
	}

	if !common.IsHexAddress(token.Address) {
		return nil, fmt.Errorf("invalid token contract address: %s", token.Address)
	}

	parsedABI, err := abi.JSON(strings.NewReader(erc20BalanceOfABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse balanceOf ABI: %w", err)
	}

	data, err := parsedABI.Pack("balanceOf", ownerAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to pack balanceOf data: %w", err)
	}

	tokenAddr := common.HexToAddress(token.Address)
	msg := ethereum.CallMsg{To: &tokenAddr, Data: data}

	result, err := r.client.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call balanceOf: %w", err)
	}
	if len(result) > 32 {
		result = result[len(result)-32:]
	}
	return new(uint256.Int).SetBytes(result), nil
}

// Close closes the RPC connection.
func (r *Reader) Close() {
	if r.client != nil {
		r.client.Close()
	}
}
