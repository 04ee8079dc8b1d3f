package core

import (
	"github.com/blocto/solana-go-sdk/common"
	"github.com/shopspring/decimal"
)

// Position one deposit or borrow leg of an obligation
type Position struct {
	ReserveAddress common.PublicKey `json:"reserve_address"`
	MintAddress    common.PublicKey `json:"mint_address"`
	Amount         decimal.Decimal  `json:"amount"`
	// market value in quote currency at the refreshed slot
	MarketValueRefreshed decimal.Decimal `json:"market_value_refreshed"`
}

// ObligationStats aggregate stats recomputed from oracle prices before evaluation
type ObligationStats struct {
	UserTotalDeposit                    decimal.Decimal `json:"user_total_deposit"`
	UserTotalBorrow                     decimal.Decimal `json:"user_total_borrow"`
	UserTotalBorrowBorrowFactorAdjusted decimal.Decimal `json:"user_total_borrow_borrow_factor_adjusted"`
	BorrowLiquidationLimit              decimal.Decimal `json:"borrow_liquidation_limit"`
	// borrow-factor-adjusted borrow over total deposit, as a ratio
	LoanToValue decimal.Decimal `json:"loan_to_value"`
	// slot the stats were computed at
	RefreshedSlot uint64 `json:"refreshed_slot"`
}

// Obligation a borrower position
type Obligation struct {
	Address common.PublicKey `json:"address"`
	Owner   common.PublicKey `json:"owner"`
	// 0 means no elevation group
	ElevationGroup uint8 `json:"elevation_group"`
	// keyed by reserve address; each position is owned by exactly one obligation
	Deposits map[common.PublicKey]*Position `json:"deposits"`
	Borrows  map[common.PublicKey]*Position `json:"borrows"`
	Stats    ObligationStats                `json:"stats"`
}

// GetDepositByReserve deposit leg against the given reserve
func (o *Obligation) GetDepositByReserve(reserve common.PublicKey) (*Position, bool) {
	p, ok := o.Deposits[reserve]
	return p, ok
}

// GetBorrowByReserve borrow leg against the given reserve
func (o *Obligation) GetBorrowByReserve(reserve common.PublicKey) (*Position, bool) {
	p, ok := o.Borrows[reserve]
	return p, ok
}
