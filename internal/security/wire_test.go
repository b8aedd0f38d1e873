package security

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexNumber_ToleratesUpstreamShapes(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want float64
	}{
		{"number", `0.05`, 0.05},
		{"integer", `1500`, 1500},
		{"quoted number", `"0.12"`, 0.12},
		{"quoted integer", `"320"`, 320},
		{"empty string", `""`, 0},
		{"null", `null`, 0},
		{"quoted null", `"null"`, 0},
		{"garbage", `"n/a"`, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var n flexNumber
			require.NoError(t, json.Unmarshal([]byte(tc.raw), &n))
			assert.InDelta(t, tc.want, float64(n), 1e-12)
		})
	}
}

func TestNormalizeHolders_RanksAndScales(t *testing.T) {
	holders := normalizeHolders([]wireHolder{
		{Address: "a", Percent: 0.30},
		{Address: "b", Percent: 0.02},
		{Address: "c", Percent: 0.11},
	})

	require.Len(t, holders, 3)
	assert.Equal(t, "a", holders[0].Address)
	assert.InDelta(t, 30.0, holders[0].Percent, 1e-6)
	assert.Equal(t, "c", holders[1].Address)
	assert.InDelta(t, 11.0, holders[1].Percent, 1e-6)
	assert.Equal(t, "b", holders[2].Address)

	assert.Nil(t, normalizeHolders(nil))
}

func TestNormalize_SolanaAndEVMShareShape(t *testing.T) {
	sol := normalizeSolana(solanaToken{
		NonTransferable: 1,
		Mintable:        solanaAuthority{Status: 1},
		Freezable:       solanaAuthority{Status: 1},
		HolderCount:     42,
	})
	evm := normalizeEVM(evmToken{
		IsHoneypot:    1,
		IsMintable:    1,
		IsBlacklisted: 1,
		IsOpenSource:  1,
		BuyTax:        0.03,
		SellTax:       0.08,
		OwnerAddress:  "0xOwner",
		HolderCount:   42,
	})

	// Flags that exist on both chains line up.
	assert.True(t, sol.Honeypot)
	assert.True(t, evm.Honeypot)
	assert.True(t, sol.Mintable)
	assert.True(t, evm.Mintable)
	assert.True(t, sol.Blacklisted)
	assert.True(t, evm.Blacklisted)
	assert.Equal(t, 42, sol.HolderCount)
	assert.Equal(t, 42, evm.HolderCount)

	// Chain-specific gaps fall to the safe side.
	assert.True(t, sol.OpenSource)
	assert.Zero(t, sol.BuyTaxPct)
	assert.Empty(t, sol.OwnerAddress)

	assert.True(t, evm.OpenSource)
	assert.InDelta(t, 3.0, evm.BuyTaxPct, 1e-6)
	assert.InDelta(t, 8.0, evm.SellTaxPct, 1e-6)
	assert.Equal(t, "0xOwner", evm.OwnerAddress)
}
