package liquidation

import (
	"context"
	"fmt"

	"liquidator/core"
	"liquidator/pkg/number"

	"github.com/fox-one/pkg/logger"
	"github.com/shopspring/decimal"
)

type liquidationService struct{}

// New new liquidation service
func New() core.ILiquidationService {
	return &liquidationService{}
}

// TryLiquidate evaluates the three liquidation policies in strict priority
// order: standard LTV breach, collateral auto-deleverage, debt
// auto-deleverage. The first applicable policy wins. A nil scenario with nil
// error means the obligation is not eligible this cycle.
func (s *liquidationService) TryLiquidate(
	ctx context.Context,
	market *core.Market,
	status core.AutodeleverageStatusMap,
	obligation *core.Obligation,
	thresholdBufferFactor decimal.Decimal,
) (*core.LiquidationScenario, error) {
	scenario, err := s.checkLiquidate(ctx, market, obligation, thresholdBufferFactor)
	if err != nil {
		return nil, err
	}
	if scenario != nil {
		return scenario, nil
	}

	if status.IsEmpty() {
		return nil, nil
	}

	if scenario := s.checkCollateralAutodeleverage(market, status, obligation); scenario != nil {
		return scenario, nil
	}
	if scenario := s.checkDebtAutodeleverage(market, status, obligation); scenario != nil {
		return scenario, nil
	}
	return nil, nil
}

func (s *liquidationService) checkLiquidate(
	ctx context.Context,
	market *core.Market,
	obligation *core.Obligation,
	thresholdBufferFactor decimal.Decimal,
) (*core.LiquidationScenario, error) {
	stats := obligation.Stats
	if !stats.UserTotalBorrow.IsPositive() {
		return nil, nil
	}
	if stats.UserTotalBorrowBorrowFactorAdjusted.LessThan(stats.BorrowLiquidationLimit.Mul(thresholdBufferFactor)) {
		return nil, nil
	}

	selectedBorrow, selectedDeposit, err := bestLiquidationPairByMarketValue(market, obligation)
	if err != nil {
		return nil, err
	}

	collateralReserve, ok := market.GetReserveByMint(selectedDeposit.MintAddress)
	if !ok {
		return nil, fmt.Errorf("no reserve for deposit mint %s: %w", selectedDeposit.MintAddress.ToBase58(), core.ErrStaleOracle)
	}
	debtReserve, ok := market.GetReserveByMint(selectedBorrow.MintAddress)
	if !ok {
		return nil, fmt.Errorf("no reserve for borrow mint %s: %w", selectedBorrow.MintAddress.ToBase58(), core.ErrStaleOracle)
	}

	bonusPct, err := CalculateLiquidationBonusPct(market, &collateralReserve.Config, &debtReserve.Config, obligation, nil)
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).WithField("obligation", obligation.Address.ToBase58()).
		Debugln("ltv crossed, bonus pct:", bonusPct)

	return &core.LiquidationScenario{
		Obligation:          obligation.Address,
		Reason:              core.ReasonLtvCrossed,
		SelectedBorrow:      selectedBorrow,
		SelectedDeposit:     selectedDeposit,
		LiquidationBonusPct: bonusPct,
	}, nil
}

// bestLiquidationPairByMarketValue targets the riskiest borrow and the
// weakest collateral: the borrow with the highest effective borrow factor and
// the deposit with the lowest effective LTV, ties broken by higher refreshed
// market value. Deposits whose reserve has a zero LTV or liquidation
// threshold are not seizable and never selected.
func bestLiquidationPairByMarketValue(market *core.Market, obligation *core.Obligation) (*core.Position, *core.Position, error) {
	var (
		selectedBorrow       *core.Position
		selectedBorrowFactor decimal.Decimal
	)
	for _, borrow := range obligation.Borrows {
		reserve, ok := market.GetReserveByMint(borrow.MintAddress)
		if !ok {
			continue
		}
		borrowFactorPct := decimal.NewFromInt(reserve.Config.BorrowFactorPct)
		if obligation.ElevationGroup != 0 {
			borrowFactorPct = decimal.NewFromInt(100)
		}
		switch {
		case selectedBorrow == nil,
			borrowFactorPct.GreaterThan(selectedBorrowFactor):
			selectedBorrow, selectedBorrowFactor = borrow, borrowFactorPct
		case borrowFactorPct.Equal(selectedBorrowFactor) &&
			borrow.MarketValueRefreshed.GreaterThan(selectedBorrow.MarketValueRefreshed):
			selectedBorrow, selectedBorrowFactor = borrow, borrowFactorPct
		}
	}

	var (
		selectedDeposit    *core.Position
		selectedDepositLtv int64
	)
	for _, deposit := range obligation.Deposits {
		reserve, ok := market.GetReserveByMint(deposit.MintAddress)
		if !ok {
			continue
		}
		depositLtv := reserve.Config.LoanToValuePct
		if obligation.ElevationGroup != 0 {
			depositLtv = market.GetElevationGroup(obligation.ElevationGroup).LtvPct
		}
		seizable := reserve.Config.LiquidationThresholdPct > 0 && reserve.Config.LoanToValuePct > 0
		if !seizable {
			continue
		}
		switch {
		case selectedDeposit == nil, depositLtv < selectedDepositLtv:
			selectedDeposit, selectedDepositLtv = deposit, depositLtv
		case depositLtv == selectedDepositLtv &&
			deposit.MarketValueRefreshed.GreaterThan(selectedDeposit.MarketValueRefreshed):
			selectedDeposit, selectedDepositLtv = deposit, depositLtv
		}
	}

	if selectedBorrow == nil || selectedDeposit == nil {
		return nil, nil, fmt.Errorf("no liquidation pair for obligation %s (%d deposits, %d borrows): %w",
			obligation.Address.ToBase58(), len(obligation.Deposits), len(obligation.Borrows), core.ErrBadDebtNoPair)
	}
	return selectedBorrow, selectedDeposit, nil
}

func (s *liquidationService) checkCollateralAutodeleverage(
	market *core.Market,
	status core.AutodeleverageStatusMap,
	obligation *core.Obligation,
) *core.LiquidationScenario {
	var (
		selectedDeposit  *core.Position
		selectedBonusBps = decimal.Zero
	)
	for reserveAddress, st := range status {
		if st.CollateralSlotsSinceStarted == nil {
			continue
		}
		deposit, ok := obligation.GetDepositByReserve(reserveAddress)
		if !ok {
			continue
		}
		reserve, ok := market.GetReserveByAddress(deposit.ReserveAddress)
		if !ok {
			continue
		}
		bonusBps, ok := autodeleverageLiquidationBonusBps(obligation, reserve, *st.CollateralSlotsSinceStarted)
		if ok && bonusBps.GreaterThan(selectedBonusBps) {
			selectedBonusBps = bonusBps
			selectedDeposit = deposit
		}
	}
	if selectedDeposit == nil {
		return nil
	}

	// repay the borrow leg with the highest market value
	var selectedBorrow *core.Position
	for _, borrow := range obligation.Borrows {
		if selectedBorrow == nil || borrow.MarketValueRefreshed.GreaterThan(selectedBorrow.MarketValueRefreshed) {
			selectedBorrow = borrow
		}
	}
	if selectedBorrow == nil {
		return nil
	}

	return &core.LiquidationScenario{
		Obligation:          obligation.Address,
		Reason:              core.ReasonAutodeleverageCollateral,
		SelectedBorrow:      selectedBorrow,
		SelectedDeposit:     selectedDeposit,
		LiquidationBonusPct: number.FromBps(selectedBonusBps),
	}
}

func (s *liquidationService) checkDebtAutodeleverage(
	market *core.Market,
	status core.AutodeleverageStatusMap,
	obligation *core.Obligation,
) *core.LiquidationScenario {
	var (
		selectedBorrow   *core.Position
		selectedBonusBps = decimal.Zero
	)
	for reserveAddress, st := range status {
		if st.DebtSlotsSinceStarted == nil {
			continue
		}
		borrow, ok := obligation.GetBorrowByReserve(reserveAddress)
		if !ok {
			continue
		}
		reserve, ok := market.GetReserveByAddress(borrow.ReserveAddress)
		if !ok {
			continue
		}
		bonusBps, ok := autodeleverageLiquidationBonusBps(obligation, reserve, *st.DebtSlotsSinceStarted)
		if ok && bonusBps.GreaterThan(selectedBonusBps) {
			selectedBonusBps = bonusBps
			selectedBorrow = borrow
		}
	}
	if selectedBorrow == nil {
		return nil
	}

	// seize the deposit leg with the highest market value
	var selectedDeposit *core.Position
	for _, deposit := range obligation.Deposits {
		if selectedDeposit == nil || deposit.MarketValueRefreshed.GreaterThan(selectedDeposit.MarketValueRefreshed) {
			selectedDeposit = deposit
		}
	}
	if selectedDeposit == nil {
		return nil
	}

	return &core.LiquidationScenario{
		Obligation:          obligation.Address,
		Reason:              core.ReasonAutodeleverageDebt,
		SelectedBorrow:      selectedBorrow,
		SelectedDeposit:     selectedDeposit,
		LiquidationBonusPct: number.FromBps(selectedBonusBps),
	}
}

// autodeleverageLiquidationBonusBps bonus for auto-deleveraging against the
// given reserve, or false when the obligation's LTV is still below the
// time-decayed threshold
func autodeleverageLiquidationBonusBps(obligation *core.Obligation, reserve *core.Reserve, slotsSinceStarted uint64) (decimal.Decimal, bool) {
	_, threshold := CalculateAutodeleverageThreshold(reserve, slotsSinceStarted)
	userLtvPct := number.Pct(obligation.Stats.LoanToValue)
	if userLtvPct.LessThan(threshold) {
		return decimal.Zero, false
	}
	_, bonusBps := CalculateAutodeleverageBonus(reserve, slotsSinceStarted, userLtvPct)
	return bonusBps, true
}
