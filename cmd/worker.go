package cmd

import (
	"sync"

	"liquidator/worker"
	"liquidator/worker/liquidator"
	"liquidator/worker/tablesync"

	"github.com/fox-one/pkg/logger"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "run the liquidation and table sync loops",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		log := logger.FromContext(ctx)
		ctx = logger.WithContext(ctx, log)

		c := provideClient()
		system := provideSystem()

		marketSrv := provideMarketService(c)
		oracleSrv := provideOracleService()
		statusSrv := provideAutodeleverageService()
		engineSrv := provideLiquidationService()
		addressSrv := provideAddressSetBuilder()
		asm := provideAssembler(c)
		tableChain := provideTableChain(c, asm, system.Searcher)
		tableSrv := provideLookupTableService(tableChain, system)
		lenderSrv := provideLenderService(system)
		relaySrv := provideRelayService()
		swapSrv := provideSwapService(system, tableChain)

		markets := provideMarkets()

		workers := []worker.Worker{
			liquidator.New(
				system,
				marketSrv, oracleSrv, statusSrv, engineSrv,
				addressSrv, tableSrv, tableChain,
				lenderSrv, relaySrv, swapSrv, asm,
				liquidator.Config{
					Markets:               markets,
					ThresholdBufferFactor: cfg.Worker.ThresholdBufferFactor,
					Capacity:              cfg.Worker.Capacity,
					BidLamports:           cfg.Worker.BidLamports,
					SlippageBps:           cfg.Swap.SlippageBps,
					Interval:              cfg.Worker.Interval,
					ErrInterval:           cfg.Worker.ErrInterval,
				},
			),
			tablesync.New(
				system, marketSrv, addressSrv, tableSrv, tableChain,
				tablesync.Config{
					Markets:     markets,
					Interval:    cfg.Worker.TableSyncInterval,
					ErrInterval: cfg.Worker.ErrInterval,
				},
			),
		}

		wg := sync.WaitGroup{}
		for _, w := range workers {
			wg.Add(1)

			go func(worker worker.Worker) {
				defer wg.Done()
				_ = worker.Run(ctx)
			}(w)
		}

		wg.Wait()
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
