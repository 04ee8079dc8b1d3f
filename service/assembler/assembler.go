package assembler

import (
	"context"
	"fmt"
	"time"

	"liquidator/core"
	"liquidator/internal/ledger"

	"github.com/blocto/solana-go-sdk/client"
	"github.com/blocto/solana-go-sdk/program/compute_budget"
	"github.com/blocto/solana-go-sdk/rpc"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/fox-one/pkg/logger"
)

const confirmPollInterval = 2 * time.Second

// Config compute budget knobs prefixed onto every transaction
type Config struct {
	ComputeUnitLimit uint32
	// priority fee in micro-lamports per compute unit, 0 to omit
	ComputeUnitPriceMicroLamports uint64
}

type transactionAssembler struct {
	client *client.Client
	cfg    Config
}

// New new transaction assembler
func New(c *client.Client, cfg Config) core.ITransactionAssembler {
	return &transactionAssembler{
		client: c,
		cfg:    cfg,
	}
}

// AssembleAndSubmit compiles the instructions into one versioned transaction
// referencing the given tables, enforces the packet size ceiling, then signs,
// submits and waits for confirmation. Network rejections surface verbatim.
func (a *transactionAssembler) AssembleAndSubmit(
	ctx context.Context,
	instructions []types.Instruction,
	tables []*core.LookupTable,
	signers []types.Account,
) (string, error) {
	log := logger.FromContext(ctx).WithField("service", "assembler")

	slot, err := a.client.GetSlot(ctx)
	if err != nil {
		return "", err
	}
	if err := verifyTables(tables, slot); err != nil {
		return "", err
	}

	blockhash, err := a.client.GetLatestBlockhash(ctx)
	if err != nil {
		return "", fmt.Errorf("fetch blockhash: %w", err)
	}

	if len(signers) == 0 {
		return "", fmt.Errorf("no signers")
	}
	message := types.NewMessage(types.NewMessageParam{
		FeePayer:                   signers[0].PublicKey,
		Instructions:               prefixInstructions(a.cfg, instructions),
		RecentBlockhash:            blockhash.Blockhash,
		AddressLookupTableAccounts: tableAccounts(tables),
	})
	transaction, err := types.NewTransaction(types.NewTransactionParam{
		Message: message,
		Signers: signers,
	})
	if err != nil {
		return "", fmt.Errorf("sign transaction: %w", err)
	}

	raw, err := transaction.Serialize()
	if err != nil {
		return "", fmt.Errorf("serialize transaction: %w", err)
	}
	if len(raw) > ledger.PacketDataSize {
		return "", fmt.Errorf("%d bytes over %d: %w", len(raw), ledger.PacketDataSize, core.ErrTransactionTooLarge)
	}

	signature, err := a.client.SendTransaction(ctx, transaction)
	if err != nil {
		// the network's reason is the diagnostic; never swallow it
		return "", fmt.Errorf("%v: %w", err, core.ErrSubmitFailed)
	}
	log.Debugln("submitted:", signature)

	if err := a.awaitConfirmation(ctx, signature); err != nil {
		return signature, err
	}
	return signature, nil
}

func (a *transactionAssembler) awaitConfirmation(ctx context.Context, signature string) error {
	ticker := time.NewTicker(confirmPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		status, err := a.client.GetSignatureStatus(ctx, signature)
		if err != nil {
			return err
		}
		if status == nil {
			continue
		}
		if status.Err != nil {
			return fmt.Errorf("transaction %s failed: %v: %w", signature, status.Err, core.ErrSubmitFailed)
		}
		if status.ConfirmationStatus != nil &&
			(*status.ConfirmationStatus == rpc.CommitmentConfirmed || *status.ConfirmationStatus == rpc.CommitmentFinalized) {
			return nil
		}
	}
}

// verifyTables rejects any table still inside its activation latency;
// referencing one on chain is a guaranteed failure
func verifyTables(tables []*core.LookupTable, currentSlot uint64) error {
	for _, table := range tables {
		if !table.Active(currentSlot) {
			return fmt.Errorf("table %s extended at slot %d, current %d: %w",
				table.Address.ToBase58(), table.LastExtendedSlot, currentSlot, core.ErrTableNotActive)
		}
	}
	return nil
}

// prefixInstructions compute budget instructions go first so the runtime
// honors them for the whole transaction
func prefixInstructions(cfg Config, instructions []types.Instruction) []types.Instruction {
	var prefix []types.Instruction
	if cfg.ComputeUnitLimit > 0 {
		prefix = append(prefix, compute_budget.SetComputeUnitLimit(compute_budget.SetComputeUnitLimitParam{
			Units: cfg.ComputeUnitLimit,
		}))
	}
	if cfg.ComputeUnitPriceMicroLamports > 0 {
		prefix = append(prefix, compute_budget.SetComputeUnitPrice(compute_budget.SetComputeUnitPriceParam{
			MicroLamports: cfg.ComputeUnitPriceMicroLamports,
		}))
	}
	return append(prefix, instructions...)
}

func tableAccounts(tables []*core.LookupTable) []types.AddressLookupTableAccount {
	accounts := make([]types.AddressLookupTableAccount, 0, len(tables))
	for _, table := range tables {
		accounts = append(accounts, types.AddressLookupTableAccount{
			Key:       table.Address,
			Addresses: table.Addresses,
		})
	}
	return accounts
}
