package addressset

import (
	"context"
	"testing"

	"liquidator/core"
	"liquidator/pkg/number"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pk(tag byte) common.PublicKey {
	var b [32]byte
	b[0] = 0x10
	b[31] = tag
	return common.PublicKeyFromBytes(b[:])
}

func buildContext() *core.AddressSetContext {
	market := &core.Market{
		Address:   pk(1),
		Authority: pk(2),
		ProgramID: pk(3),
		Reserves: map[common.PublicKey]*core.Reserve{
			pk(10): {
				Address:               pk(10),
				LiquidityMint:         pk(11),
				CollateralMint:        pk(12),
				CollateralSupplyVault: pk(13),
				LiquiditySupplyVault:  pk(14),
				LiquidityFeeVault:     pk(15),
				PriceFeeds:            []common.PublicKey{pk(16), {}},
				Status:                core.ReserveStatusActive,
				LiquidityAvailable:    number.Decimal("100"),
			},
			pk(20): {
				// obsolete and drained, excluded from the table set
				Address:            pk(20),
				LiquidityMint:      pk(21),
				Status:             core.ReserveStatusObsolete,
				LiquidityAvailable: number.Decimal("0"),
			},
		},
	}
	return &core.AddressSetContext{
		Market:             market,
		Searcher:           pk(30),
		Relayer:            pk(31),
		RelayerFeeReceiver: pk(32),
		RelayProgram:       common.PublicKeyFromString("GFPM2LncpbWiLkePLs3QjcLVPw31B9h23cuxCdFLBUXD"),
		Protocol:           common.PublicKeyFromString("7Nyabc3dMoMVdu1zWpAr8hhZhcLcT4uWVaVgCbC3NaPp"),
		SellMints:          []common.PublicKey{pk(40)},
		BuyMints:           []common.PublicKey{pk(41), pk(40)},
	}
}

func TestBuildPartitions(t *testing.T) {
	set, err := New().Build(context.Background(), buildContext())
	require.NoError(t, err)

	assert.True(t, set.Global.Contains(pk(31)), "relayer signer is global")
	assert.True(t, set.Global.Contains(common.SystemProgramID))
	assert.True(t, set.Global.Contains(common.TokenProgramID))

	assert.True(t, set.PerProtocol.Contains(pk(1)), "market address")
	assert.True(t, set.PerProtocol.Contains(pk(10)), "active reserve")
	assert.True(t, set.PerProtocol.Contains(pk(14)), "liquidity vault")
	assert.True(t, set.PerProtocol.Contains(pk(16)), "price feed")
	assert.False(t, set.PerProtocol.Contains(pk(20)), "drained obsolete reserve excluded")
	assert.False(t, set.PerProtocol.Contains(common.PublicKey{}), "null price feed excluded")

	// sell/buy mints and their derived accounts are per-call
	assert.True(t, set.PerCall.Contains(pk(40)))
	assert.True(t, set.PerCall.Contains(pk(41)))
	// two mints (deduplicated), four accounts each
	assert.Equal(t, 8, set.PerCall.Len())
}

func TestBuildDeduplicates(t *testing.T) {
	set, err := New().Build(context.Background(), buildContext())
	require.NoError(t, err)

	seen := make(map[common.PublicKey]int)
	for _, a := range set.All() {
		seen[a]++
	}
	for a, n := range seen {
		assert.Equal(t, 1, n, "duplicate address %s", a.ToBase58())
	}
}

func TestTabledExcludesPerCall(t *testing.T) {
	set, err := New().Build(context.Background(), buildContext())
	require.NoError(t, err)

	tabled := core.NewAddressSet(set.Tabled()...)
	for _, a := range set.PerCall.Addresses() {
		assert.False(t, tabled.Contains(a), "per-call address %s in table set", a.ToBase58())
	}
}
