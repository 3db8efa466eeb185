package tokens

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slip-swap/pkg/types"
)

func TestFind_ExactMatchWinsOverPartial(t *testing.T) {
	// "USDC" must resolve to native USDC, not the bridged "USDC.E" variant.
	token, err := Find("USDC")
	require.NoError(t, err)
	assert.Equal(t, "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359", token.Address)
	assert.Equal(t, 6, token.Decimals)
}

func TestFind_CaseInsensitive(t *testing.T) {
	token, err := Find("weth")
	require.NoError(t, err)
	assert.Equal(t, "WETH", token.Symbol)
}

func TestFind_Unknown(t *testing.T) {
	_, err := Find("SHIB")
	assert.Error(t, err)
}

func TestNativeToken(t *testing.T) {
	token, err := Find("POL")
	require.NoError(t, err)
	assert.True(t, token.IsNative())
	assert.Equal(t, types.NativeTokenAddress, token.Address)

	for _, other := range All() {
		if other.Symbol != "POL" {
			assert.False(t, other.IsNative(), other.Symbol)
		}
	}
}
