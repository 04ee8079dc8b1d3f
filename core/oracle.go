package core

import (
	"context"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/shopspring/decimal"
)

// OraclePrice price and decimals for one liquidity mint
type OraclePrice struct {
	Price    decimal.Decimal `json:"price"`
	Decimals int32           `json:"decimals"`
}

// OracleSnapshot read-only price view per mint, taken once per evaluation
// cycle. A missing mint aborts evaluation for the obligations needing it;
// there is no zero-value fallback.
type OracleSnapshot map[common.PublicKey]OraclePrice

// Price price for a mint
func (s OracleSnapshot) Price(mint common.PublicKey) (OraclePrice, bool) {
	p, ok := s[mint]
	return p, ok
}

// IPriceOracleService market data loader supplying oracle snapshots
type IPriceOracleService interface {
	Snapshot(ctx context.Context, mints []common.PublicKey) (OracleSnapshot, error)
}
