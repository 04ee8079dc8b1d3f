package tablesync

import (
	"context"
	"time"

	"liquidator/core"
	"liquidator/worker"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/fox-one/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// Config table sync worker config
type Config struct {
	Markets     []common.PublicKey `json:"markets"`
	Interval    time.Duration      `json:"interval"`
	ErrInterval time.Duration      `json:"err_interval"`
}

// TableSync keeps one lookup table per market aligned with the market's
// stable required address set, so liquidation attempts never pay the
// activation latency on the hot path
type TableSync struct {
	worker.TickWorker
	system     *core.System
	marketSrv  core.IMarketService
	addressSrv core.IAddressSetBuilder
	tableSrv   core.ILookupTableService
	chain      core.ITableChain
	cfg        Config
}

// New new table sync worker
func New(
	system *core.System,
	marketSrv core.IMarketService,
	addressSrv core.IAddressSetBuilder,
	tableSrv core.ILookupTableService,
	chain core.ITableChain,
	cfg Config,
) *TableSync {
	return &TableSync{
		TickWorker: worker.TickWorker{
			Delay:    cfg.Interval,
			ErrDelay: cfg.ErrInterval,
		},
		system:     system,
		marketSrv:  marketSrv,
		addressSrv: addressSrv,
		tableSrv:   tableSrv,
		chain:      chain,
		cfg:        cfg,
	}
}

// Run run worker
func (w *TableSync) Run(ctx context.Context) error {
	return w.StartTick(ctx, func(ctx context.Context) error {
		return w.Sync(ctx)
	})
}

// Sync reconcile every configured market once
func (w *TableSync) Sync(ctx context.Context) error {
	log := logger.FromContext(ctx).WithField("worker", "tablesync")

	required := make(map[common.PublicKey][]common.PublicKey, len(w.cfg.Markets))

	// markets are independent; enumerate their required sets in parallel
	var g errgroup.Group
	results := make([][]common.PublicKey, len(w.cfg.Markets))
	for idx, address := range w.cfg.Markets {
		idx, address := idx, address
		g.Go(func() error {
			market, err := w.marketSrv.LoadMarket(ctx, address)
			if err != nil {
				return err
			}
			set, err := w.addressSrv.Build(ctx, w.system.AddressContext(market, nil, nil))
			if err != nil {
				return err
			}
			results[idx] = set.Tabled()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for idx, address := range w.cfg.Markets {
		required[address] = results[idx]
	}

	published, err := w.chain.ListTablesByAuthority(ctx, w.system.Searcher.PublicKey)
	if err != nil {
		return err
	}
	registry := &core.TableRegistry{Tables: published}

	tables, err := w.tableSrv.CreateOrSync(ctx, required, registry)
	if err != nil {
		return err
	}
	for market, table := range tables {
		log.Debugln("market", market.ToBase58(), "table", table.Address.ToBase58(),
			"addresses", len(table.Addresses))
	}
	return nil
}
