package chain

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"time"

	"liquidator/core"
	"liquidator/internal/ledger"

	"github.com/blocto/solana-go-sdk/client"
	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/rpc"
	"github.com/blocto/solana-go-sdk/types"
)

// on-chain lookup table account layout
const (
	tableMetaSize         = 56
	tableTypeIndexActive  = 1
	tableAuthorityOffset  = 22
	lastExtendedSlotStart = 12
)

type tableChain struct {
	client    *client.Client
	assembler core.ITransactionAssembler
	signer    types.Account
}

// New new table chain adapter
func New(c *client.Client, assembler core.ITransactionAssembler, signer types.Account) core.ITableChain {
	return &tableChain{
		client:    c,
		assembler: assembler,
		signer:    signer,
	}
}

func (c *tableChain) CurrentSlot(ctx context.Context) (uint64, error) {
	return c.client.GetSlot(ctx)
}

func (c *tableChain) SubmitTableInstructions(ctx context.Context, instructions []types.Instruction) error {
	// table maintenance never references tables itself, so no size pressure
	_, err := c.assembler.AssembleAndSubmit(ctx, instructions, nil, []types.Account{c.signer})
	return err
}

// AwaitNextBlock blocks until the tip advances past the slot observed on entry
func (c *tableChain) AwaitNextBlock(ctx context.Context) error {
	start, err := c.client.GetSlot(ctx)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(ledger.SlotDurationMs * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		slot, err := c.client.GetSlot(ctx)
		if err != nil {
			return err
		}
		if slot > start {
			return nil
		}
	}
}

func (c *tableChain) FetchTable(ctx context.Context, address common.PublicKey) (*core.LookupTable, error) {
	info, err := c.client.GetAccountInfo(ctx, address.ToBase58())
	if err != nil {
		return nil, fmt.Errorf("fetch table %s: %w", address.ToBase58(), err)
	}
	return decodeLookupTable(address, info.Data)
}

func (c *tableChain) ListTablesByAuthority(ctx context.Context, authority common.PublicKey) ([]*core.LookupTable, error) {
	resp, err := c.client.RpcClient.GetProgramAccountsWithConfig(ctx,
		common.AddressLookupTableProgramID.ToBase58(),
		rpc.GetProgramAccountsConfig{
			Encoding: rpc.AccountEncodingBase64,
			Filters: []rpc.GetProgramAccountsConfigFilter{
				{
					MemCmp: &rpc.GetProgramAccountsConfigFilterMemCmp{
						Offset: tableAuthorityOffset,
						Bytes:  authority.ToBase58(),
					},
				},
			},
		})
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("list tables: %v", resp.Error)
	}

	tables := make([]*core.LookupTable, 0, len(resp.Result))
	for _, account := range resp.Result {
		data, err := decodeAccountData(account.Account.Data)
		if err != nil {
			continue
		}
		table, err := decodeLookupTable(common.PublicKeyFromString(account.Pubkey), data)
		if err != nil {
			continue
		}
		tables = append(tables, table)
	}
	return tables, nil
}

// decodeAccountData account data arrives as an [encoded, encoding] tuple
func decodeAccountData(raw any) ([]byte, error) {
	tuple, ok := raw.([]any)
	if !ok || len(tuple) < 2 {
		return nil, fmt.Errorf("unexpected account data shape %T", raw)
	}
	encoded, ok := tuple[0].(string)
	if !ok {
		return nil, fmt.Errorf("unexpected account data payload %T", tuple[0])
	}
	if encoding, ok := tuple[1].(string); !ok || encoding != "base64" {
		return nil, fmt.Errorf("unexpected account data encoding %v", tuple[1])
	}
	return base64.StdEncoding.DecodeString(encoded)
}

func decodeLookupTable(address common.PublicKey, data []byte) (*core.LookupTable, error) {
	if len(data) < tableMetaSize {
		return nil, fmt.Errorf("table %s account too short: %d bytes", address.ToBase58(), len(data))
	}
	if binary.LittleEndian.Uint32(data[0:4]) != tableTypeIndexActive {
		return nil, fmt.Errorf("account %s is not a lookup table", address.ToBase58())
	}

	table := &core.LookupTable{
		Address:          address,
		LastExtendedSlot: binary.LittleEndian.Uint64(data[lastExtendedSlotStart : lastExtendedSlotStart+8]),
	}
	if data[21] == 1 {
		table.Authority = common.PublicKeyFromBytes(data[tableAuthorityOffset : tableAuthorityOffset+32])
	}

	body := data[tableMetaSize:]
	if len(body)%32 != 0 {
		return nil, fmt.Errorf("table %s has a truncated address list", address.ToBase58())
	}
	for i := 0; i < len(body); i += 32 {
		table.Addresses = append(table.Addresses, common.PublicKeyFromBytes(body[i:i+32]))
	}
	return table, nil
}
