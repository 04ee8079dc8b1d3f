package addressset

import (
	"context"
	"fmt"

	"liquidator/core"

	"github.com/blocto/solana-go-sdk/common"
)

var (
	wrappedSolMint     = common.PublicKeyFromString("So11111111111111111111111111111111111111112")
	ed25519Program     = common.PublicKeyFromString("Ed25519SigVerify111111111111111111111111111")
	sysvarInstructions = common.PublicKeyFromString("Sysvar1nstructions1111111111111111111111111")
)

type addressSetBuilder struct{}

// New new address set builder
func New() core.IAddressSetBuilder {
	return &addressSetBuilder{}
}

// Build enumerates every account a candidate liquidation transaction will
// touch, deduplicated and partitioned by stability. Global and per-protocol
// partitions are table candidates; per-call accounts vary every transaction.
func (b *addressSetBuilder) Build(ctx context.Context, setCtx *core.AddressSetContext) (*core.RequiredAddressSet, error) {
	global, err := b.buildGlobal(setCtx)
	if err != nil {
		return nil, err
	}
	perProtocol, err := b.buildPerProtocol(setCtx)
	if err != nil {
		return nil, err
	}
	perCall, err := b.buildPerCall(setCtx)
	if err != nil {
		return nil, err
	}
	return &core.RequiredAddressSet{
		Global:      global,
		PerProtocol: perProtocol,
		PerCall:     perCall,
	}, nil
}

// buildGlobal signer, fee receiver, relay authority/metadata and program
// accounts, constant across all transactions
func (b *addressSetBuilder) buildGlobal(setCtx *core.AddressSetContext) (*core.AddressSet, error) {
	set := core.NewAddressSet(
		setCtx.Relayer,
		setCtx.RelayerFeeReceiver,
		setCtx.Searcher,
		wrappedSolMint,
		common.SystemProgramID,
		common.TokenProgramID,
		common.SPLAssociatedTokenAccountProgramID,
		common.ComputeBudgetProgramID,
		sysvarInstructions,
		common.SysVarRentPubkey,
		ed25519Program,
		setCtx.RelayProgram,
	)

	authority, err := relayPda(setCtx.RelayProgram, []byte("authority"))
	if err != nil {
		return nil, err
	}
	metadata, err := relayPda(setCtx.RelayProgram, []byte("metadata"))
	if err != nil {
		return nil, err
	}
	wsolVault, err := relayPda(setCtx.RelayProgram, []byte("ata"), wrappedSolMint.Bytes())
	if err != nil {
		return nil, err
	}
	set.Add(authority, metadata, wsolVault)
	return set, nil
}

// buildPerProtocol protocol program, fee/config accounts and every stable
// market account: reserves, vaults, mints and price feeds of active reserves
func (b *addressSetBuilder) buildPerProtocol(setCtx *core.AddressSetContext) (*core.AddressSet, error) {
	set := core.NewAddressSet(setCtx.Protocol)

	feeReceiver, _, err := common.FindProgramAddress(
		[][]byte{[]byte("express_relay_fees")}, setCtx.Protocol)
	if err != nil {
		return nil, fmt.Errorf("derive protocol fee receiver: %w", err)
	}
	protocolConfig, err := relayPda(setCtx.RelayProgram, []byte("config_protocol"), setCtx.Protocol.Bytes())
	if err != nil {
		return nil, err
	}
	set.Add(feeReceiver, protocolConfig)

	market := setCtx.Market
	if market == nil {
		return set, nil
	}
	set.Add(market.Address, market.Authority, market.ProgramID)
	for _, reserve := range market.Reserves {
		if reserve.Status != core.ReserveStatusActive && reserve.LiquidityAvailable.IsZero() {
			continue
		}
		set.Add(
			reserve.Address,
			reserve.LiquidityMint,
			reserve.CollateralMint,
			reserve.CollateralSupplyVault,
			reserve.LiquiditySupplyVault,
			reserve.LiquidityFeeVault,
		)
		for _, feed := range reserve.PriceFeeds {
			if feed != (common.PublicKey{}) {
				set.Add(feed)
			}
		}
	}
	return set, nil
}

// buildPerCall searcher/relayer associated token accounts and per-mint
// token-expectation accounts for the mints this transaction moves
func (b *addressSetBuilder) buildPerCall(setCtx *core.AddressSetContext) (*core.AddressSet, error) {
	set := core.NewAddressSet()
	mints := core.NewAddressSet(setCtx.SellMints...)
	mints.Add(setCtx.BuyMints...)

	for _, mint := range mints.Addresses() {
		searcherAta, _, err := common.FindAssociatedTokenAddress(setCtx.Searcher, mint)
		if err != nil {
			return nil, fmt.Errorf("derive searcher ata: %w", err)
		}
		relayerAta, _, err := common.FindAssociatedTokenAddress(setCtx.Relayer, mint)
		if err != nil {
			return nil, fmt.Errorf("derive relayer ata: %w", err)
		}
		expectation, err := relayPda(setCtx.RelayProgram,
			[]byte("token_expectation"), setCtx.Searcher.Bytes(), mint.Bytes())
		if err != nil {
			return nil, err
		}
		set.Add(mint, searcherAta, relayerAta, expectation)
	}
	return set, nil
}

func relayPda(program common.PublicKey, seeds ...[]byte) (common.PublicKey, error) {
	pda, _, err := common.FindProgramAddress(seeds, program)
	if err != nil {
		return common.PublicKey{}, fmt.Errorf("derive pda: %w", err)
	}
	return pda, nil
}
