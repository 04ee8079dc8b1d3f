package liquidator

import (
	"context"
	"sync"
	"time"

	"liquidator/core"
	"liquidator/worker"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/fox-one/pkg/logger"
	"github.com/fox-one/pkg/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/shopspring/decimal"
)

// Config liquidator worker config
type Config struct {
	Markets []common.PublicKey `json:"markets"`
	// multiplier on the liquidation limit before the standard policy fires
	ThresholdBufferFactor decimal.Decimal `json:"threshold_buffer_factor"`
	// max concurrent obligation evaluations
	Capacity    int             `json:"capacity"`
	BidLamports decimal.Decimal `json:"bid_lamports"`
	SlippageBps int64           `json:"slippage_bps"`
	Interval    time.Duration   `json:"interval"`
	ErrInterval time.Duration   `json:"err_interval"`
}

// Liquidator scans obligations, evaluates them against the current oracle
// snapshot and submits a relay-permissioned liquidation per eligible scenario
type Liquidator struct {
	worker.TickWorker
	system     *core.System
	marketSrv  core.IMarketService
	oracleSrv  core.IPriceOracleService
	statusSrv  core.IAutodeleverageService
	engineSrv  core.ILiquidationService
	addressSrv core.IAddressSetBuilder
	tableSrv   core.ILookupTableService
	chain      core.ITableChain
	lenderSrv  core.ILiquidationInstructionProvider
	relaySrv   core.IPermissionProvider
	swapSrv    core.ISwapService
	assembler  core.ITransactionAssembler
	cfg        Config
	pool       *ants.Pool
}

// New new liquidator worker
func New(
	system *core.System,
	marketSrv core.IMarketService,
	oracleSrv core.IPriceOracleService,
	statusSrv core.IAutodeleverageService,
	engineSrv core.ILiquidationService,
	addressSrv core.IAddressSetBuilder,
	tableSrv core.ILookupTableService,
	chain core.ITableChain,
	lenderSrv core.ILiquidationInstructionProvider,
	relaySrv core.IPermissionProvider,
	swapSrv core.ISwapService,
	assembler core.ITransactionAssembler,
	cfg Config,
) *Liquidator {
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = 8
	}
	pool, _ := ants.NewPool(capacity)

	return &Liquidator{
		TickWorker: worker.TickWorker{
			Delay:    cfg.Interval,
			ErrDelay: cfg.ErrInterval,
		},
		system:     system,
		marketSrv:  marketSrv,
		oracleSrv:  oracleSrv,
		statusSrv:  statusSrv,
		engineSrv:  engineSrv,
		addressSrv: addressSrv,
		tableSrv:   tableSrv,
		chain:      chain,
		lenderSrv:  lenderSrv,
		relaySrv:   relaySrv,
		swapSrv:    swapSrv,
		assembler:  assembler,
		cfg:        cfg,
		pool:       pool,
	}
}

// Run run worker
func (w *Liquidator) Run(ctx context.Context) error {
	return w.StartTick(ctx, func(ctx context.Context) error {
		return w.onWork(ctx)
	})
}

func (w *Liquidator) onWork(ctx context.Context) error {
	log := logger.FromContext(ctx).WithField("worker", "liquidator")

	var lastErr error
	for _, address := range w.cfg.Markets {
		if err := w.handleMarket(ctx, address); err != nil {
			log.WithError(err).Errorln("handle market", address.ToBase58())
			lastErr = err
		}
	}
	return lastErr
}

// candidate one eligible obligation; the scenario is frozen at evaluation
// time and everything downstream works off this snapshot
type candidate struct {
	obligation *core.Obligation
	scenario   *core.LiquidationScenario
}

func (w *Liquidator) handleMarket(ctx context.Context, address common.PublicKey) error {
	log := logger.FromContext(ctx).WithField("market", address.ToBase58())
	ctx = logger.WithContext(ctx, log)

	market, err := w.marketSrv.LoadMarket(ctx, address)
	if err != nil {
		return err
	}
	slot, err := w.marketSrv.CurrentSlot(ctx)
	if err != nil {
		return err
	}

	mints := make([]common.PublicKey, 0, len(market.Reserves))
	for _, reserve := range market.Reserves {
		mints = append(mints, reserve.LiquidityMint)
	}
	snapshot, err := w.oracleSrv.Snapshot(ctx, mints)
	if err != nil {
		return err
	}

	status := w.statusSrv.Compute(ctx, market, slot)

	obligations, err := w.marketSrv.LoadObligations(ctx, market)
	if err != nil {
		return err
	}

	candidates := w.evaluate(ctx, market, status, snapshot, slot, obligations)
	log.Debugln("evaluated", len(obligations), "obligations,", len(candidates), "eligible")

	for _, c := range candidates {
		if err := w.liquidate(ctx, market, c); err != nil {
			// next tick re-evaluates from scratch; a failed attempt is
			// never retried against stale stats
			log.WithError(err).Errorln("liquidate", c.obligation.Address.ToBase58())
		}
	}
	return nil
}

func (w *Liquidator) evaluate(
	ctx context.Context,
	market *core.Market,
	status core.AutodeleverageStatusMap,
	snapshot core.OracleSnapshot,
	slot uint64,
	obligations []*core.Obligation,
) []*candidate {
	log := logger.FromContext(ctx)

	var (
		mu         sync.Mutex
		wg         sync.WaitGroup
		candidates []*candidate
	)
	for _, obligation := range obligations {
		obligation := obligation

		wg.Add(1)
		task := func() {
			defer wg.Done()

			if err := w.marketSrv.RefreshObligation(ctx, market, obligation, snapshot, slot); err != nil {
				log.WithError(err).Warningln("refresh obligation", obligation.Address.ToBase58())
				return
			}
			scenario, err := w.engineSrv.TryLiquidate(ctx, market, status, obligation, w.cfg.ThresholdBufferFactor)
			if err != nil {
				log.WithError(err).Warningln("evaluate obligation", obligation.Address.ToBase58())
				return
			}
			if scenario == nil {
				return
			}

			mu.Lock()
			candidates = append(candidates, &candidate{obligation: obligation, scenario: scenario})
			mu.Unlock()
		}
		if w.pool == nil || w.pool.Submit(task) != nil {
			task()
		}
	}
	wg.Wait()
	return candidates
}

func (w *Liquidator) liquidate(ctx context.Context, market *core.Market, c *candidate) error {
	trace := uuid.New()
	log := logger.FromContext(ctx).WithFields(map[string]interface{}{
		"trace":      trace,
		"obligation": c.obligation.Address.ToBase58(),
		"reason":     c.scenario.Reason,
	})
	ctx = logger.WithContext(ctx, log)

	debtReserve, ok := market.GetReserveByAddress(c.scenario.SelectedBorrow.ReserveAddress)
	if !ok {
		return core.ErrStaleOracle
	}
	collateralReserve, ok := market.GetReserveByAddress(c.scenario.SelectedDeposit.ReserveAddress)
	if !ok {
		return core.ErrStaleOracle
	}

	setCtx := w.system.AddressContext(market,
		[]common.PublicKey{collateralReserve.LiquidityMint},
		[]common.PublicKey{debtReserve.LiquidityMint},
	)
	set, err := w.addressSrv.Build(ctx, setCtx)
	if err != nil {
		return err
	}

	tables, err := w.resolveTables(ctx, market, set.Tabled())
	if err != nil {
		return err
	}

	permissionID := c.obligation.Address.Bytes()
	permission, err := w.relaySrv.Permission(ctx, setCtx, permissionID, w.cfg.BidLamports)
	if err != nil {
		return err
	}
	liquidate, err := w.lenderSrv.LiquidateAndRedeem(ctx, market, c.obligation, c.scenario, c.scenario.SelectedBorrow.Amount)
	if err != nil {
		return err
	}
	swap, err := w.swapSrv.Swap(ctx,
		collateralReserve.LiquidityMint,
		debtReserve.LiquidityMint,
		c.scenario.SelectedDeposit.Amount,
		core.SwapConfig{
			SlippageBps:      w.cfg.SlippageBps,
			WrapAndUnwrapSol: true,
		})
	if err != nil {
		return err
	}
	depermission, err := w.relaySrv.Depermission(ctx, setCtx, permissionID)
	if err != nil {
		return err
	}

	var instructions []types.Instruction
	instructions = append(instructions, permission.Instructions...)
	instructions = append(instructions, liquidate.Instructions...)
	instructions = append(instructions, swap.Flatten()...)
	instructions = append(instructions, depermission.Instructions...)

	tables = append(tables, permission.LookupTables...)
	tables = append(tables, liquidate.LookupTables...)
	tables = append(tables, swap.LookupTables...)

	signature, err := w.assembler.AssembleAndSubmit(ctx, instructions, tables, []types.Account{w.system.Searcher})
	if err != nil {
		return err
	}

	log.Infoln("liquidation submitted:", signature)
	return nil
}

func (w *Liquidator) resolveTables(ctx context.Context, market *core.Market, required []common.PublicKey) ([]*core.LookupTable, error) {
	published, err := w.chain.ListTablesByAuthority(ctx, w.system.Searcher.PublicKey)
	if err != nil {
		return nil, err
	}
	registry := &core.TableRegistry{Tables: published}

	byMarket, err := w.tableSrv.CreateOrSync(ctx,
		map[common.PublicKey][]common.PublicKey{market.Address: required}, registry)
	if err != nil {
		return nil, err
	}

	var tables []*core.LookupTable
	if table, ok := byMarket[market.Address]; ok {
		tables = append(tables, table)
	}
	return tables, nil
}
