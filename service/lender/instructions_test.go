package lender

import (
	"context"
	"testing"

	"liquidator/core"
	"liquidator/internal/ledger"
	"liquidator/pkg/number"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pk(tag byte) common.PublicKey {
	var b [32]byte
	b[0] = 0x50
	b[31] = tag
	return common.PublicKeyFromBytes(b[:])
}

func buildFixture() (*core.Market, *core.Obligation, *core.LiquidationScenario) {
	market := &core.Market{
		Address:   pk(1),
		Authority: pk(2),
		ProgramID: pk(3),
		Reserves: map[common.PublicKey]*core.Reserve{
			pk(10): {Address: pk(10), LiquidityMint: pk(11), CollateralMint: pk(12), PriceFeeds: []common.PublicKey{pk(13)}},
			pk(20): {Address: pk(20), LiquidityMint: pk(21), CollateralMint: pk(22), PriceFeeds: []common.PublicKey{pk(23)}},
		},
	}
	obligation := &core.Obligation{
		Address:  pk(30),
		Deposits: map[common.PublicKey]*core.Position{pk(10): {ReserveAddress: pk(10)}},
		Borrows:  map[common.PublicKey]*core.Position{pk(20): {ReserveAddress: pk(20)}},
	}
	scenario := &core.LiquidationScenario{
		Obligation:      pk(30),
		Reason:          core.ReasonLtvCrossed,
		SelectedBorrow:  obligation.Borrows[pk(20)],
		SelectedDeposit: obligation.Deposits[pk(10)],
	}
	return market, obligation, scenario
}

func TestLiquidateAndRedeem(t *testing.T) {
	market, obligation, scenario := buildFixture()
	bundle, err := New(pk(40)).LiquidateAndRedeem(context.Background(), market, obligation, scenario, number.Decimal("1000"))
	require.NoError(t, err)

	// two reserve refreshes, one obligation refresh, then the liquidation
	require.Len(t, bundle.Instructions, 4)
	liquidate := bundle.Instructions[3]
	assert.Equal(t, market.ProgramID, liquidate.ProgramID)
	assert.Equal(t, ledger.AnchorDiscriminator("liquidate_obligation_and_redeem_reserve_collateral"), liquidate.Data[:8])
	// discriminator + three u64 args
	assert.Len(t, liquidate.Data, 8+24)
	assert.True(t, liquidate.Accounts[0].IsSigner, "liquidator signs")

	refresh := bundle.Instructions[2]
	assert.Equal(t, ledger.AnchorDiscriminator("refresh_obligation"), refresh.Data)
	// market, obligation and both position reserves
	assert.Len(t, refresh.Accounts, 4)
}

func TestLiquidateAndRedeemUnknownReserve(t *testing.T) {
	market, obligation, scenario := buildFixture()
	scenario.SelectedBorrow = &core.Position{ReserveAddress: pk(99)}
	_, err := New(pk(40)).LiquidateAndRedeem(context.Background(), market, obligation, scenario, number.Decimal("1"))
	assert.Error(t, err)
}
