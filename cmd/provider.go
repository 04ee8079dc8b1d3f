package cmd

import (
	"encoding/json"
	"os"

	"liquidator/core"
	"liquidator/service/addressset"
	"liquidator/service/assembler"
	"liquidator/service/autodeleverage"
	"liquidator/service/chain"
	"liquidator/service/lender"
	"liquidator/service/liquidation"
	"liquidator/service/lookuptable"
	marketservice "liquidator/service/market"
	"liquidator/service/oracle"
	"liquidator/service/relay"
	"liquidator/service/swap"

	"github.com/blocto/solana-go-sdk/client"
	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
)

func provideClient() *client.Client {
	return client.NewClient(cfg.Chain.RPCEndpoint)
}

func provideSearcher() types.Account {
	raw, err := os.ReadFile(cfg.Chain.KeystoreFile)
	if err != nil {
		panic(err)
	}

	var key []byte
	if err := json.Unmarshal(raw, &key); err != nil {
		panic(err)
	}

	account, err := types.AccountFromBytes(key)
	if err != nil {
		panic(err)
	}
	return account
}

func provideSystem() *core.System {
	return &core.System{
		Searcher:           provideSearcher(),
		Relayer:            common.PublicKeyFromString(cfg.Relay.Relayer),
		RelayerFeeReceiver: common.PublicKeyFromString(cfg.Relay.FeeReceiver),
		RelayProgram:       common.PublicKeyFromString(cfg.Relay.Program),
		Protocol:           common.PublicKeyFromString(cfg.Lending.Program),
	}
}

func provideMarkets() []common.PublicKey {
	markets := make([]common.PublicKey, 0, len(cfg.Lending.Markets))
	for _, m := range cfg.Lending.Markets {
		markets = append(markets, common.PublicKeyFromString(m))
	}
	return markets
}

func provideMarketService(c *client.Client) core.IMarketService {
	return marketservice.New(c, cfg.Lending.StateEndpoint)
}

func provideOracleService() core.IPriceOracleService {
	return oracle.New(cfg.Oracle.Endpoint)
}

func provideAutodeleverageService() core.IAutodeleverageService {
	return autodeleverage.New()
}

func provideLiquidationService() core.ILiquidationService {
	return liquidation.New()
}

func provideAddressSetBuilder() core.IAddressSetBuilder {
	return addressset.New()
}

func provideAssembler(c *client.Client) core.ITransactionAssembler {
	return assembler.New(c, assembler.Config{
		ComputeUnitLimit:              cfg.Assembler.ComputeUnitLimit,
		ComputeUnitPriceMicroLamports: cfg.Assembler.ComputeUnitPriceMicroLamports,
	})
}

func provideTableChain(c *client.Client, asm core.ITransactionAssembler, signer types.Account) core.ITableChain {
	return chain.New(c, asm, signer)
}

func provideLookupTableService(tc core.ITableChain, system *core.System) core.ILookupTableService {
	return lookuptable.New(tc, system.Searcher.PublicKey, system.Searcher.PublicKey)
}

func provideLenderService(system *core.System) core.ILiquidationInstructionProvider {
	return lender.New(system.Searcher.PublicKey)
}

func provideRelayService() core.IPermissionProvider {
	return relay.New()
}

func provideSwapService(system *core.System, tc core.ITableChain) core.ISwapService {
	return swap.New(cfg.Swap.Endpoint, system.Searcher.PublicKey, tc)
}
