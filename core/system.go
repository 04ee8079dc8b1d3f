package core

import (
	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
)

// System runtime identities shared by workers
type System struct {
	// searcher keypair, signs and pays for every submitted transaction
	Searcher           types.Account
	Relayer            common.PublicKey
	RelayerFeeReceiver common.PublicKey
	RelayProgram       common.PublicKey
	// lending protocol program permissioned through the relay
	Protocol common.PublicKey
}

// AddressContext address set context for one market under this system
func (s *System) AddressContext(market *Market, sellMints, buyMints []common.PublicKey) *AddressSetContext {
	return &AddressSetContext{
		Market:             market,
		Searcher:           s.Searcher.PublicKey,
		Relayer:            s.Relayer,
		RelayerFeeReceiver: s.RelayerFeeReceiver,
		RelayProgram:       s.RelayProgram,
		Protocol:           s.Protocol,
		SellMints:          sellMints,
		BuyMints:           buyMints,
	}
}
