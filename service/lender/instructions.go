package lender

import (
	"context"
	"encoding/binary"
	"fmt"

	"liquidator/core"
	"liquidator/internal/ledger"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/shopspring/decimal"
)

var sysvarInstructions = common.PublicKeyFromString("Sysvar1nstructions1111111111111111111111111")

type liquidationInstructionProvider struct {
	liquidator common.PublicKey
}

// New new lending-program instruction provider
func New(liquidator common.PublicKey) core.ILiquidationInstructionProvider {
	return &liquidationInstructionProvider{liquidator: liquidator}
}

// LiquidateAndRedeem refresh instructions for both reserves and the
// obligation, then the liquidate-and-redeem call itself. The lending program
// rejects liquidations against state older than the current slot, so the
// refreshes must ride in the same transaction.
func (p *liquidationInstructionProvider) LiquidateAndRedeem(
	ctx context.Context,
	market *core.Market,
	obligation *core.Obligation,
	scenario *core.LiquidationScenario,
	liquidityAmount decimal.Decimal,
) (*core.InstructionBundle, error) {
	if scenario.SelectedBorrow == nil || scenario.SelectedDeposit == nil {
		return nil, fmt.Errorf("scenario for %s has no selected pair", scenario.Obligation.ToBase58())
	}
	debtReserve, ok := market.GetReserveByAddress(scenario.SelectedBorrow.ReserveAddress)
	if !ok {
		return nil, fmt.Errorf("debt reserve %s not in market", scenario.SelectedBorrow.ReserveAddress.ToBase58())
	}
	collateralReserve, ok := market.GetReserveByAddress(scenario.SelectedDeposit.ReserveAddress)
	if !ok {
		return nil, fmt.Errorf("collateral reserve %s not in market", scenario.SelectedDeposit.ReserveAddress.ToBase58())
	}

	bundle := &core.InstructionBundle{}
	bundle.Instructions = append(bundle.Instructions,
		refreshReserve(market, debtReserve),
		refreshReserve(market, collateralReserve),
		refreshObligation(market, obligation),
	)

	liquidate, err := p.liquidateInstruction(market, obligation, debtReserve, collateralReserve, liquidityAmount)
	if err != nil {
		return nil, err
	}
	bundle.Instructions = append(bundle.Instructions, liquidate)
	return bundle, nil
}

func (p *liquidationInstructionProvider) liquidateInstruction(
	market *core.Market,
	obligation *core.Obligation,
	debtReserve, collateralReserve *core.Reserve,
	liquidityAmount decimal.Decimal,
) (types.Instruction, error) {
	debtAta, _, err := common.FindAssociatedTokenAddress(p.liquidator, debtReserve.LiquidityMint)
	if err != nil {
		return types.Instruction{}, fmt.Errorf("derive debt ata: %w", err)
	}
	collateralAta, _, err := common.FindAssociatedTokenAddress(p.liquidator, collateralReserve.CollateralMint)
	if err != nil {
		return types.Instruction{}, fmt.Errorf("derive collateral ata: %w", err)
	}
	withdrawAta, _, err := common.FindAssociatedTokenAddress(p.liquidator, collateralReserve.LiquidityMint)
	if err != nil {
		return types.Instruction{}, fmt.Errorf("derive withdraw ata: %w", err)
	}

	data := ledger.AnchorDiscriminator("liquidate_obligation_and_redeem_reserve_collateral")
	data = appendU64(data, liquidityAmount.Truncate(0).BigInt().Uint64())
	// no minimum acceptable liquidity and no ltv override
	data = appendU64(data, 0)
	data = appendU64(data, 0)

	return types.Instruction{
		ProgramID: market.ProgramID,
		Accounts: []types.AccountMeta{
			{PubKey: p.liquidator, IsSigner: true, IsWritable: true},
			{PubKey: obligation.Address, IsWritable: true},
			{PubKey: market.Address},
			{PubKey: market.Authority},
			{PubKey: debtReserve.Address, IsWritable: true},
			{PubKey: debtReserve.LiquidityMint},
			{PubKey: debtReserve.LiquiditySupplyVault, IsWritable: true},
			{PubKey: debtReserve.LiquidityFeeVault, IsWritable: true},
			{PubKey: collateralReserve.Address, IsWritable: true},
			{PubKey: collateralReserve.LiquidityMint},
			{PubKey: collateralReserve.CollateralMint, IsWritable: true},
			{PubKey: collateralReserve.CollateralSupplyVault, IsWritable: true},
			{PubKey: collateralReserve.LiquiditySupplyVault, IsWritable: true},
			{PubKey: collateralReserve.LiquidityFeeVault, IsWritable: true},
			{PubKey: debtAta, IsWritable: true},
			{PubKey: collateralAta, IsWritable: true},
			{PubKey: withdrawAta, IsWritable: true},
			{PubKey: common.TokenProgramID},
			{PubKey: sysvarInstructions},
		},
		Data: data,
	}, nil
}

func refreshReserve(market *core.Market, reserve *core.Reserve) types.Instruction {
	accounts := []types.AccountMeta{
		{PubKey: reserve.Address, IsWritable: true},
		{PubKey: market.Address},
	}
	for _, feed := range reserve.PriceFeeds {
		if feed != (common.PublicKey{}) {
			accounts = append(accounts, types.AccountMeta{PubKey: feed})
		}
	}
	return types.Instruction{
		ProgramID: market.ProgramID,
		Accounts:  accounts,
		Data:      ledger.AnchorDiscriminator("refresh_reserve"),
	}
}

func refreshObligation(market *core.Market, obligation *core.Obligation) types.Instruction {
	accounts := []types.AccountMeta{
		{PubKey: market.Address},
		{PubKey: obligation.Address, IsWritable: true},
	}
	// every position's reserve rides as a remaining account
	for _, position := range obligation.Deposits {
		accounts = append(accounts, types.AccountMeta{PubKey: position.ReserveAddress})
	}
	for _, position := range obligation.Borrows {
		accounts = append(accounts, types.AccountMeta{PubKey: position.ReserveAddress})
	}
	return types.Instruction{
		ProgramID: market.ProgramID,
		Accounts:  accounts,
		Data:      ledger.AnchorDiscriminator("refresh_obligation"),
	}
}

func appendU64(data []byte, v uint64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return append(data, buf[:]...)
}
