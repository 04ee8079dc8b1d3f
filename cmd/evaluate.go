package cmd

import (
	"encoding/json"
	"fmt"

	"liquidator/core"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/fox-one/pkg/logger"
	"github.com/spf13/cobra"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "evaluate every obligation once and print the eligible scenarios",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		log := logger.FromContext(ctx)
		ctx = logger.WithContext(ctx, log)

		c := provideClient()
		marketSrv := provideMarketService(c)
		oracleSrv := provideOracleService()
		statusSrv := provideAutodeleverageService()
		engineSrv := provideLiquidationService()

		for _, address := range provideMarkets() {
			market, err := marketSrv.LoadMarket(ctx, address)
			if err != nil {
				log.WithError(err).Fatalln("load market")
			}
			slot, err := marketSrv.CurrentSlot(ctx)
			if err != nil {
				log.WithError(err).Fatalln("fetch slot")
			}

			mints := make([]common.PublicKey, 0, len(market.Reserves))
			for _, reserve := range market.Reserves {
				mints = append(mints, reserve.LiquidityMint)
			}
			snapshot, err := oracleSrv.Snapshot(ctx, mints)
			if err != nil {
				log.WithError(err).Fatalln("fetch prices")
			}
			status := statusSrv.Compute(ctx, market, slot)

			obligations, err := marketSrv.LoadObligations(ctx, market)
			if err != nil {
				log.WithError(err).Fatalln("load obligations")
			}

			for _, obligation := range obligations {
				if err := marketSrv.RefreshObligation(ctx, market, obligation, snapshot, slot); err != nil {
					log.WithError(err).Warningln("refresh", obligation.Address.ToBase58())
					continue
				}
				scenario, err := engineSrv.TryLiquidate(ctx, market, status, obligation, cfg.Worker.ThresholdBufferFactor)
				if err != nil {
					log.WithError(err).Warningln("evaluate", obligation.Address.ToBase58())
					continue
				}
				if scenario == nil {
					continue
				}
				printScenario(scenario)
			}
		}
	},
}

func printScenario(scenario *core.LiquidationScenario) {
	raw, err := json.MarshalIndent(scenario, "", "  ")
	if err != nil {
		return
	}
	fmt.Println(string(raw))
}

func init() {
	rootCmd.AddCommand(evaluateCmd)
}
