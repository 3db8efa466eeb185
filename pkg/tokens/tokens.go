// Package tokens holds the static registry of tokens known on the target
// chain.
package tokens

import (
	"fmt"
	"strings"

	"slip-swap/pkg/types"
)

// Polygon mainnet registry. Addresses follow the aggregator's conventions,
// including the native-coin pseudo-address.
var registry = []types.Token{
	{Symbol: "POL", Name: "Polygon Ecosystem Token", Address: types.NativeTokenAddress, Decimals: 18},
	{Symbol: "WPOL", Name: "Wrapped POL", Address: "0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270", Decimals: 18},
	{Symbol: "USDC", Name: "USD Coin", Address: "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359", Decimals: 6},
	{Symbol: "USDC.E", Name: "Bridged USD Coin", Address: "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174", Decimals: 6},
	{Symbol: "USDT", Name: "Tether USD", Address: "0xc2132D05D31c914a87C6611C10748AEb04B58e8F", Decimals: 6},
	{Symbol: "WETH", Name: "Wrapped Ether", Address: "0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619", Decimals: 18},
	{Symbol: "WBTC", Name: "Wrapped BTC", Address: "0x1BFD67037B42Cf73acF2047067bd4F2C47D9BfD6", Decimals: 8},
	{Symbol: "DAI", Name: "Dai Stablecoin", Address: "0x8f3Cf7ad23Cd3CaDbD9735AFf958023239c6A063", Decimals: 18},
}

// All returns every known token.
func All() []types.Token {
	out := make([]types.Token, len(registry))
	copy(out, registry)
	return out
}

// Find searches the registry by symbol. Exact matches win over partial ones.
func Find(symbol string) (types.Token, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	for _, token := range registry {
		if strings.ToUpper(token.Symbol) == symbol {
			return token, nil
		}
	}

	for _, token := range registry {
		if strings.Contains(strings.ToUpper(token.Symbol), symbol) {
			return token, nil
		}
	}

	return types.Token{}, fmt.Errorf("token '%s' not found", symbol)
}
