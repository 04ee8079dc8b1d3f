package cmd

import (
	"liquidator/worker/tablesync"

	"github.com/fox-one/pkg/logger"
	"github.com/spf13/cobra"
)

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "sync lookup tables for the configured markets once and exit",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		log := logger.FromContext(ctx)
		ctx = logger.WithContext(ctx, log)

		c := provideClient()
		system := provideSystem()

		marketSrv := provideMarketService(c)
		addressSrv := provideAddressSetBuilder()
		asm := provideAssembler(c)
		tableChain := provideTableChain(c, asm, system.Searcher)
		tableSrv := provideLookupTableService(tableChain, system)

		w := tablesync.New(system, marketSrv, addressSrv, tableSrv, tableChain, tablesync.Config{
			Markets: provideMarkets(),
		})
		if err := w.Sync(ctx); err != nil {
			log.WithError(err).Fatalln("table sync failed")
		}
		log.Infoln("tables synced")
	},
}

func init() {
	rootCmd.AddCommand(tablesCmd)
}
