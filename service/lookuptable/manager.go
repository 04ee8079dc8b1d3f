package lookuptable

import (
	"context"
	"fmt"
	"sync"

	"liquidator/core"
	"liquidator/internal/ledger"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/program/address_lookup_table"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/fox-one/pkg/logger"
	"golang.org/x/sync/errgroup"
)

type lookupTableService struct {
	chain     core.ITableChain
	authority common.PublicKey
	payer     common.PublicKey
}

// New new lookup table service
func New(chain core.ITableChain, authority, payer common.PublicKey) core.ILookupTableService {
	return &lookupTableService{
		chain:     chain,
		authority: authority,
		payer:     payer,
	}
}

// CreateAndPopulate creates a table unless an existing address is supplied,
// extends it with the deduplicated required addresses in batches of at most
// MaxExtendBatch, then waits out the activation latency before returning.
func (s *lookupTableService) CreateAndPopulate(ctx context.Context, required []common.PublicKey, existing *common.PublicKey) (common.PublicKey, error) {
	log := logger.FromContext(ctx).WithField("service", "lookuptable")

	addresses := core.NewAddressSet(required...).Addresses()
	if len(addresses) > core.MaxTableAddresses {
		return common.PublicKey{}, fmt.Errorf("%d addresses for one table: %w", len(addresses), core.ErrTableFull)
	}

	slot, err := s.chain.CurrentSlot(ctx)
	if err != nil {
		return common.PublicKey{}, err
	}
	// a slot strictly behind the tip: the derived table address depends on
	// the slot, and the tip may still roll back
	recentSlot := slot - 1

	var (
		tableAddress common.PublicKey
		createIx     *types.Instruction
	)
	if existing != nil {
		tableAddress = *existing
	} else {
		address, bump, err := ledger.DeriveLookupTableAddress(s.authority, recentSlot)
		if err != nil {
			return common.PublicKey{}, fmt.Errorf("derive table address: %w", err)
		}
		tableAddress = address
		ix := address_lookup_table.CreateLookupTable(address_lookup_table.CreateLookupTableParams{
			LookupTable: tableAddress,
			Authority:   s.authority,
			Payer:       s.payer,
			RecentSlot:  recentSlot,
			BumpSeed:    bump,
		})
		createIx = &ix
	}

	chunks := chunkAddresses(addresses, core.MaxExtendBatch)
	if len(chunks) == 0 && createIx != nil {
		if err := s.chain.SubmitTableInstructions(ctx, []types.Instruction{*createIx}); err != nil {
			return common.PublicKey{}, fmt.Errorf("create table %s: %w", tableAddress.ToBase58(), err)
		}
	}
	for i, batch := range chunks {
		var instructions []types.Instruction
		if i == 0 && createIx != nil {
			instructions = append(instructions, *createIx)
		}
		instructions = append(instructions, s.extendInstruction(tableAddress, batch))
		if err := s.chain.SubmitTableInstructions(ctx, instructions); err != nil {
			return common.PublicKey{}, fmt.Errorf("extend table %s: %w", tableAddress.ToBase58(), err)
		}
	}

	// the table is unusable until at least one more block has elapsed;
	// submitting against it early is a guaranteed on-chain failure
	if err := s.chain.AwaitNextBlock(ctx); err != nil {
		return common.PublicKey{}, err
	}

	log.Debugln("table populated:", tableAddress.ToBase58(), "addresses:", len(addresses))
	return tableAddress, nil
}

// Sync extends the table with missing required addresses and reports the
// diff. Addresses no longer required are reported but not removed; callers
// must tolerate superset tables.
func (s *lookupTableService) Sync(ctx context.Context, table *core.LookupTable, required []common.PublicKey) (*core.TableDiff, error) {
	diff := Diff(table, required)
	if len(diff.ToAdd) == 0 {
		return diff, nil
	}

	if len(table.Addresses)+len(diff.ToAdd) > core.MaxTableAddresses {
		return nil, fmt.Errorf("table %s cannot hold %d more addresses: %w",
			table.Address.ToBase58(), len(diff.ToAdd), core.ErrTableFull)
	}

	for _, batch := range chunkAddresses(diff.ToAdd, core.MaxExtendBatch) {
		instructions := []types.Instruction{s.extendInstruction(table.Address, batch)}
		if err := s.chain.SubmitTableInstructions(ctx, instructions); err != nil {
			return nil, fmt.Errorf("extend table %s: %w", table.Address.ToBase58(), err)
		}
	}
	if err := s.chain.AwaitNextBlock(ctx); err != nil {
		return nil, err
	}
	return diff, nil
}

// MapTablesToMarkets assigns to each market the active compatible table
// needing the fewest additions. A compatible table already contains the
// market address and needs no removals. Markets left unassigned are absent
// from the result.
func (s *lookupTableService) MapTablesToMarkets(
	required map[common.PublicKey][]common.PublicKey,
	registry *core.TableRegistry,
	currentSlot uint64,
) map[common.PublicKey]*core.LookupTable {
	assigned := make(map[common.PublicKey]*core.LookupTable)
	if registry == nil {
		return assigned
	}
	for market, requiredAddresses := range required {
		var (
			best     *core.LookupTable
			bestAdds int
		)
		for _, table := range registry.Tables {
			if !table.Contains(market) || !table.Active(currentSlot) {
				continue
			}
			diff := Diff(table, requiredAddresses)
			if len(diff.ToRemove) > 0 {
				continue
			}
			if best == nil || len(diff.ToAdd) < bestAdds {
				best, bestAdds = table, len(diff.ToAdd)
			}
		}
		if best != nil {
			assigned[market] = best
		}
	}
	return assigned
}

// CreateOrSync reconciles every market against the registry, one sync task
// per market since each targets an independent table.
func (s *lookupTableService) CreateOrSync(
	ctx context.Context,
	required map[common.PublicKey][]common.PublicKey,
	registry *core.TableRegistry,
) (map[common.PublicKey]*core.LookupTable, error) {
	slot, err := s.chain.CurrentSlot(ctx)
	if err != nil {
		return nil, err
	}
	assigned := s.MapTablesToMarkets(required, registry, slot)

	var (
		mu     sync.Mutex
		result = make(map[common.PublicKey]*core.LookupTable, len(required))
	)
	g, gctx := errgroup.WithContext(ctx)
	for market, requiredAddresses := range required {
		market, requiredAddresses := market, requiredAddresses
		g.Go(func() error {
			var tableAddress common.PublicKey
			if table, ok := assigned[market]; ok {
				if _, err := s.Sync(gctx, table, requiredAddresses); err != nil {
					return err
				}
				tableAddress = table.Address
			} else {
				address, err := s.CreateAndPopulate(gctx, requiredAddresses, nil)
				if err != nil {
					return err
				}
				tableAddress = address
			}

			// refetch so callers compile against the resolved on-chain content
			table, err := s.chain.FetchTable(gctx, tableAddress)
			if err != nil {
				return err
			}
			mu.Lock()
			result[market] = table
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *lookupTableService) extendInstruction(table common.PublicKey, addresses []common.PublicKey) types.Instruction {
	payer := s.payer
	return address_lookup_table.ExtendLookupTable(address_lookup_table.ExtendLookupTableParams{
		LookupTable: table,
		Authority:   s.authority,
		Payer:       &payer,
		Addresses:   addresses,
	})
}

// Diff required − existing, existing − required, and any duplicate slots
// already wasted in the table
func Diff(table *core.LookupTable, required []common.PublicKey) *core.TableDiff {
	requiredSet := core.NewAddressSet(required...)
	existingSet := core.NewAddressSet()

	diff := &core.TableDiff{}
	for _, address := range table.Addresses {
		if existingSet.Contains(address) {
			diff.Duplicates = append(diff.Duplicates, address)
			continue
		}
		existingSet.Add(address)
		if !requiredSet.Contains(address) {
			diff.ToRemove = append(diff.ToRemove, address)
		}
	}
	for _, address := range requiredSet.Addresses() {
		if !existingSet.Contains(address) {
			diff.ToAdd = append(diff.ToAdd, address)
		}
	}
	return diff
}

func chunkAddresses(addresses []common.PublicKey, size int) [][]common.PublicKey {
	var chunks [][]common.PublicKey
	for len(addresses) > size {
		chunks = append(chunks, addresses[:size])
		addresses = addresses[size:]
	}
	if len(addresses) > 0 {
		chunks = append(chunks, addresses)
	}
	return chunks
}
