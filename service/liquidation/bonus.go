package liquidation

import (
	"liquidator/core"
	"liquidator/internal/ledger"
	"liquidator/pkg/number"

	"github.com/shopspring/decimal"
)

const (
	// MinAutodeleverageBonusBps starting auto-deleverage bonus
	MinAutodeleverageBonusBps = 50
	// UnconstrainedMaxBonusBps 655.35%, effectively no cap
	UnconstrainedMaxBonusBps = 65535
)

var badDebtLtvPct = decimal.NewFromInt(100)

// CalculateLiquidationBonusPct bonus percentage for a standard liquidation.
//
// Above 99% LTV the bad-debt branch applies: the bonus is the smaller of the
// two reserves' configured bad-debt bonuses, floored (while LTV < 100) up to
// the gap to 100% so the liquidator never loses by closing it. The floor can
// exceed the configured max-bonus cap; upstream keeps that behavior, so do we.
//
// Otherwise the bonus grows with the unhealthy factor between min and max
// reserve bonuses, capped by the elevation-group bonus and finally by the gap
// to 100% LTV so a liquidation can never push the position into bad debt.
func CalculateLiquidationBonusPct(
	market *core.Market,
	collateralConfig, debtConfig *core.ReserveConfig,
	obligation *core.Obligation,
	maxAllowedLtvOverridePct *decimal.Decimal,
) (decimal.Decimal, error) {
	if obligation.Stats.UserTotalDeposit.IsZero() {
		return decimal.Zero, core.ErrZeroDeposit
	}

	emodeMaxBonusBps := emodeMaxLiquidationBonusBps(market, collateralConfig, debtConfig, obligation)

	userLtvPct := number.Pct(obligation.Stats.LoanToValue)
	var maxAllowedLtvPct decimal.Decimal
	if maxAllowedLtvOverridePct != nil {
		maxAllowedLtvPct = *maxAllowedLtvOverridePct
	} else {
		maxAllowedLtvPct = number.Pct(obligation.Stats.BorrowLiquidationLimit.Div(obligation.Stats.UserTotalDeposit))
	}

	if userLtvPct.GreaterThanOrEqual(decimal.NewFromInt(99)) {
		badDebtBonusBps := minInt64(collateralConfig.BadDebtLiquidationBonusBps, debtConfig.BadDebtLiquidationBonusBps)
		badDebtBonusPct := number.FromBps(decimal.NewFromInt(badDebtBonusBps))
		if userLtvPct.LessThan(badDebtLtvPct) {
			return number.Max(badDebtBonusPct, badDebtLtvPct.Sub(userLtvPct)), nil
		}
		return badDebtBonusPct, nil
	}

	unhealthyFactorBps := number.ToBps(userLtvPct.Sub(maxAllowedLtvPct))

	maxBonusBps := decimal.NewFromInt(minInt64(
		maxInt64(collateralConfig.MaxLiquidationBonusBps, debtConfig.MaxLiquidationBonusBps),
		emodeMaxBonusBps,
	))
	minReserveBonusBps := decimal.NewFromInt(maxInt64(collateralConfig.MinLiquidationBonusBps, debtConfig.MinLiquidationBonusBps))
	minBonusBps := number.Max(minReserveBonusBps, unhealthyFactorBps)
	collaredBonusBps := number.Min(minBonusBps, maxBonusBps)

	diffToBadDebtBps := number.ToBps(badDebtLtvPct.Sub(userLtvPct))
	return number.FromBps(number.Min(collaredBonusBps, diffToBadDebtBps)), nil
}

// emodeMaxLiquidationBonusBps elevation-group bonus cap. Unconstrained unless
// the obligation and both reserves share a non-zero group whose cap is set
// and not exceeded by either reserve's own cap.
func emodeMaxLiquidationBonusBps(
	market *core.Market,
	collateralConfig, debtConfig *core.ReserveConfig,
	obligation *core.Obligation,
) int64 {
	if obligation.ElevationGroup == 0 ||
		!collateralConfig.InElevationGroup(obligation.ElevationGroup) ||
		!debtConfig.InElevationGroup(obligation.ElevationGroup) {
		return UnconstrainedMaxBonusBps
	}

	group := market.GetElevationGroup(obligation.ElevationGroup)
	if group.MaxLiquidationBonusBps == 0 ||
		group.MaxLiquidationBonusBps > collateralConfig.MaxLiquidationBonusBps ||
		group.MaxLiquidationBonusBps > debtConfig.MaxLiquidationBonusBps {
		return UnconstrainedMaxBonusBps
	}
	return group.MaxLiquidationBonusBps
}

// CalculateAutodeleverageBonus time-decayed auto-deleverage bonus.
// Starts at MinAutodeleverageBonusBps and grows by the user's LTV ratio per
// day since deleveraging started, capped by the reserve's max bonus.
// Returns days since start and the bonus in basis points.
func CalculateAutodeleverageBonus(reserve *core.Reserve, slotsSinceStarted uint64, userLtvPct decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	days := ledger.ToDays(slotsSinceStarted)
	ltvRate := userLtvPct.Div(decimal.NewFromInt(100))
	bonusBps := decimal.NewFromInt(MinAutodeleverageBonusBps).Add(ltvRate.Mul(days))
	maxBonusBps := decimal.NewFromInt(reserve.Config.MaxLiquidationBonusBps)
	return days, number.Min(bonusBps, maxBonusBps)
}

// CalculateAutodeleverageThreshold LTV % above which an obligation can be
// auto-deleverage liquidated. The bar relaxes by one bps per configured
// slots-per-bps, fractional slots included, and floors at zero, at which
// point every loan qualifies. A zero slots-per-bps rate decays instantly.
// Returns the reduction in bps and the threshold percentage.
func CalculateAutodeleverageThreshold(reserve *core.Reserve, slotsSinceStarted uint64) (decimal.Decimal, decimal.Decimal) {
	fullReductionBps := number.ToBps(decimal.NewFromInt(reserve.Config.LiquidationThresholdPct))
	if reserve.Config.DeleveragingThresholdSlotsPerBps == 0 {
		return fullReductionBps, decimal.Zero
	}
	ltvReductionBps := decimal.NewFromInt(int64(slotsSinceStarted)).
		Div(decimal.NewFromInt(int64(reserve.Config.DeleveragingThresholdSlotsPerBps)))
	threshold := decimal.NewFromInt(reserve.Config.LiquidationThresholdPct).Sub(number.FromBps(ltvReductionBps))
	if threshold.IsNegative() {
		return ltvReductionBps, decimal.Zero
	}
	return ltvReductionBps, threshold
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
