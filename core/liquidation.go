package core

import (
	"context"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/shopspring/decimal"
)

// LiquidationReason why an obligation is liquidatable
type LiquidationReason string

const (
	// ReasonLtvCrossed standard liquidation, borrow value crossed the liquidation limit
	ReasonLtvCrossed LiquidationReason = "LTV_CROSSED"
	// ReasonAutodeleverageCollateral a deposit reserve is over its deposit limit
	ReasonAutodeleverageCollateral LiquidationReason = "AUTODELEVERAGE_COLLATERAL"
	// ReasonAutodeleverageDebt a borrow reserve is over its borrow limit
	ReasonAutodeleverageDebt LiquidationReason = "AUTODELEVERAGE_DEBT"
)

// LiquidationScenario evaluator output, immutable once produced
type LiquidationScenario struct {
	Obligation      common.PublicKey  `json:"obligation"`
	Reason          LiquidationReason `json:"reason"`
	SelectedBorrow  *Position         `json:"selected_borrow"`
	SelectedDeposit *Position         `json:"selected_deposit"`
	// bonus paid to the liquidator, as a percentage
	LiquidationBonusPct decimal.Decimal `json:"liquidation_bonus_pct"`
}

// ILiquidationService liquidation evaluation engine.
//
// TryLiquidate returns (nil, nil) when the obligation is not eligible under
// any policy; that is not an error. ErrBadDebtNoPair is returned when the
// standard policy finds a borrow leg but no compatible deposit leg.
type ILiquidationService interface {
	TryLiquidate(ctx context.Context, market *Market, status AutodeleverageStatusMap, obligation *Obligation, thresholdBufferFactor decimal.Decimal) (*LiquidationScenario, error)
}
