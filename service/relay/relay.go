package relay

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

type permissionProvider struct{}

// New new relay permission provider
func New() core.IPermissionProvider {
	return &permissionProvider{}
}

// Permission opens the relay permission window for one liquidation attempt.
// Everything the searcher submits between permission and depermission is
// attributed to the permission id and the bid.
func (p *permissionProvider) Permission(ctx context.Context, setCtx *core.AddressSetContext, permissionID []byte, bidAmount decimal.Decimal) (*core.InstructionBundle, error) {
	accounts, err := p.accounts(setCtx)
	if err != nil {
		return nil, err
	}

	data := ledger.AnchorDiscriminator("permission")
	data = append(data, permissionID...)
	var bid [8]byte
	binary.LittleEndian.PutUint64(bid[:], bidAmount.Truncate(0).BigInt().Uint64())
	data = append(data, bid[:]...)

	return &core.InstructionBundle{
		Instructions: []types.Instruction{{
			ProgramID: setCtx.RelayProgram,
			Accounts:  accounts,
			Data:      data,
		}},
	}, nil
}

func (p *permissionProvider) Depermission(ctx context.Context, setCtx *core.AddressSetContext, permissionID []byte) (*core.InstructionBundle, error) {
	accounts, err := p.accounts(setCtx)
	if err != nil {
		return nil, err
	}

	data := ledger.AnchorDiscriminator("depermission")
	data = append(data, permissionID...)

	return &core.InstructionBundle{
		Instructions: []types.Instruction{{
			ProgramID: setCtx.RelayProgram,
			Accounts:  accounts,
			Data:      data,
		}},
	}, nil
}

func (p *permissionProvider) accounts(setCtx *core.AddressSetContext) ([]types.AccountMeta, error) {
	authority, _, err := common.FindProgramAddress([][]byte{[]byte("authority")}, setCtx.RelayProgram)
	if err != nil {
		return nil, fmt.Errorf("derive relay authority: %w", err)
	}
	protocolConfig, _, err := common.FindProgramAddress(
		[][]byte{[]byte("config_protocol"), setCtx.Protocol.Bytes()}, setCtx.RelayProgram)
	if err != nil {
		return nil, fmt.Errorf("derive protocol config: %w", err)
	}

	return []types.AccountMeta{
		{PubKey: setCtx.Relayer, IsSigner: true, IsWritable: true},
		{PubKey: setCtx.Searcher, IsSigner: true, IsWritable: true},
		{PubKey: setCtx.Protocol},
		{PubKey: authority},
		{PubKey: protocolConfig},
		{PubKey: setCtx.RelayerFeeReceiver, IsWritable: true},
		{PubKey: sysvarInstructions},
		{PubKey: common.SystemProgramID},
	}, nil
}
