package core

import (
	"context"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
)

const (
	// MaxTableAddresses hard per-table address ceiling
	MaxTableAddresses = 256
	// MaxExtendBatch max addresses appended in one extend instruction
	MaxExtendBatch = 30
	// TableActivationSlots slots a table must age after create/extend
	// before a transaction may reference it
	TableActivationSlots = 1
)

// LookupTable a published on-chain address lookup table
type LookupTable struct {
	Address   common.PublicKey   `json:"address"`
	Authority common.PublicKey   `json:"authority"`
	Addresses []common.PublicKey `json:"addresses"`
	// slot of the most recent create or extend
	LastExtendedSlot uint64 `json:"last_extended_slot"`
}

// Active reports whether the activation latency has elapsed
func (t *LookupTable) Active(currentSlot uint64) bool {
	return currentSlot > t.LastExtendedSlot+TableActivationSlots
}

// Contains membership check against the on-chain address list
func (t *LookupTable) Contains(address common.PublicKey) bool {
	for _, a := range t.Addresses {
		if a == address {
			return true
		}
	}
	return false
}

// TableDiff result of diffing a table against a required address set.
// Duplicates flags addresses stored more than once in the table; they
// waste slots against the per-table ceiling.
type TableDiff struct {
	ToAdd      []common.PublicKey `json:"to_add"`
	ToRemove   []common.PublicKey `json:"to_remove"`
	Duplicates []common.PublicKey `json:"duplicates"`
}

// TableRegistry the operator's published tables, refreshed by the caller
// between cycles and passed in explicitly
type TableRegistry struct {
	Tables []*LookupTable `json:"tables"`
}

// ITableChain chain operations the lookup table manager depends on.
// Extends to the same table must be serialized by the caller; tables are
// single-writer by the authority that created them.
type ITableChain interface {
	CurrentSlot(ctx context.Context) (uint64, error)
	// SubmitTableInstructions submits and confirms one table maintenance
	// transaction
	SubmitTableInstructions(ctx context.Context, instructions []types.Instruction) error
	// AwaitNextBlock blocks until at least one more block has been produced
	AwaitNextBlock(ctx context.Context) error
	FetchTable(ctx context.Context, address common.PublicKey) (*LookupTable, error)
	ListTablesByAuthority(ctx context.Context, authority common.PublicKey) ([]*LookupTable, error)
}

// ILookupTableService lookup table lifecycle manager
type ILookupTableService interface {
	// CreateAndPopulate creates a table (unless existing is non-nil) and
	// extends it with the required addresses, chunked per MaxExtendBatch.
	// It returns only after the activation latency has elapsed.
	CreateAndPopulate(ctx context.Context, required []common.PublicKey, existing *common.PublicKey) (common.PublicKey, error)
	// Sync extends the table with any missing required addresses and
	// reports the diff; removal is a no-op, callers must tolerate tables
	// that are a superset of the required set.
	Sync(ctx context.Context, table *LookupTable, required []common.PublicKey) (*TableDiff, error)
	// MapTablesToMarkets assigns to each market the compatible table with
	// the fewest missing addresses; unassigned markets are absent from the
	// result and fall back to fresh creation.
	MapTablesToMarkets(required map[common.PublicKey][]common.PublicKey, registry *TableRegistry, currentSlot uint64) map[common.PublicKey]*LookupTable
	// CreateOrSync reconciles every market's required set against the
	// registry, creating or extending tables as needed.
	CreateOrSync(ctx context.Context, required map[common.PublicKey][]common.PublicKey, registry *TableRegistry) (map[common.PublicKey]*LookupTable, error)
}
