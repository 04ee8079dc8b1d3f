package core

import (
	"context"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/shopspring/decimal"
)

// InstructionBundle opaque ordered instructions from a collaborator plus
// any extra lookup tables those instructions need
type InstructionBundle struct {
	Instructions []types.Instruction
	LookupTables []*LookupTable
}

// Append extend the bundle with another bundle's output
func (b *InstructionBundle) Append(other *InstructionBundle) {
	if other == nil {
		return
	}
	b.Instructions = append(b.Instructions, other.Instructions...)
	b.LookupTables = append(b.LookupTables, other.LookupTables...)
}

// ILiquidationInstructionProvider lending-protocol liquidate action,
// treated as an opaque instruction producer
type ILiquidationInstructionProvider interface {
	LiquidateAndRedeem(ctx context.Context, market *Market, obligation *Obligation, scenario *LiquidationScenario, liquidityAmount decimal.Decimal) (*InstructionBundle, error)
}

// IPermissionProvider relay permission/depermission instruction producer
type IPermissionProvider interface {
	Permission(ctx context.Context, setCtx *AddressSetContext, permissionID []byte, bidAmount decimal.Decimal) (*InstructionBundle, error)
	Depermission(ctx context.Context, setCtx *AddressSetContext, permissionID []byte) (*InstructionBundle, error)
}

// SwapConfig aggregator swap request knobs
type SwapConfig struct {
	SlippageBps             int64
	OnlyDirectRoutes        bool
	WrapAndUnwrapSol        bool
	DestinationTokenAccount *common.PublicKey
}

// SwapBundle aggregator response, instruction groups kept in submit order
type SwapBundle struct {
	ComputeBudgetInstructions []types.Instruction
	SetupInstructions         []types.Instruction
	SwapInstructions          []types.Instruction
	CleanupInstructions       []types.Instruction
	LookupTables              []*LookupTable
	OutAmount                 decimal.Decimal
	MinOutAmount              decimal.Decimal
}

// Flatten all instruction groups in submit order
func (b *SwapBundle) Flatten() []types.Instruction {
	var out []types.Instruction
	out = append(out, b.ComputeBudgetInstructions...)
	out = append(out, b.SetupInstructions...)
	out = append(out, b.SwapInstructions...)
	out = append(out, b.CleanupInstructions...)
	return out
}

// ISwapService black-box DEX aggregator quote/swap-instruction provider
type ISwapService interface {
	Swap(ctx context.Context, inputMint, outputMint common.PublicKey, inputAmount decimal.Decimal, cfg SwapConfig) (*SwapBundle, error)
}

// ITransactionAssembler compiles, signs, submits and confirms a
// size-checked transaction; failures surface verbatim
type ITransactionAssembler interface {
	AssembleAndSubmit(ctx context.Context, instructions []types.Instruction, tables []*LookupTable, signers []types.Account) (string, error)
}
