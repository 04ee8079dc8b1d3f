package autodeleverage

import (
	"context"

	"liquidator/core"
	"liquidator/internal/ledger"

	"github.com/shopspring/decimal"
)

type autodeleverageService struct{}

// New new autodeleverage service
func New() core.IAutodeleverageService {
	return &autodeleverageService{}
}

// Compute per-reserve slots since auto-deleveraging started, for both sides
// independently. Returns an empty map when the market has auto-deleveraging
// disabled.
func (s *autodeleverageService) Compute(ctx context.Context, market *core.Market, currentSlot uint64) core.AutodeleverageStatusMap {
	status := make(core.AutodeleverageStatusMap)
	if !market.AutodeleverageEnabled {
		return status
	}
	for address, reserve := range market.Reserves {
		status[address] = core.AutodeleverageStatus{
			DebtSlotsSinceStarted:       slotsSinceBorrowLimitCrossed(reserve, currentSlot),
			CollateralSlotsSinceStarted: slotsSinceDepositLimitCrossed(reserve, currentSlot),
		}
	}
	return status
}

// slotsSinceDepositLimitCrossed nil unless the deposit limit is crossed, the
// crossed-slot watermark is set, and the margin call period has expired
func slotsSinceDepositLimitCrossed(reserve *core.Reserve, currentSlot uint64) *uint64 {
	if !reserve.DepositLimitCrossed() {
		return nil
	}
	return slotsSinceCrossed(reserve, reserve.DepositLimitCrossedSlot, currentSlot)
}

// slotsSinceBorrowLimitCrossed nil unless the borrow limit is crossed, the
// crossed-slot watermark is set, and the margin call period has expired
func slotsSinceBorrowLimitCrossed(reserve *core.Reserve, currentSlot uint64) *uint64 {
	if !reserve.BorrowLimitCrossed() {
		return nil
	}
	return slotsSinceCrossed(reserve, reserve.BorrowLimitCrossedSlot, currentSlot)
}

func slotsSinceCrossed(reserve *core.Reserve, crossedSlot, currentSlot uint64) *uint64 {
	if crossedSlot == 0 || currentSlot < crossedSlot {
		return nil
	}
	slotsSince := currentSlot - crossedSlot
	if !marginCallPeriodExpired(reserve, slotsSince) {
		return nil
	}
	return &slotsSince
}

func marginCallPeriodExpired(reserve *core.Reserve, slotsSince uint64) bool {
	elapsed := ledger.ToSeconds(slotsSince)
	period := decimal.NewFromInt(int64(reserve.Config.DeleveragingMarginCallPeriodSecs))
	return elapsed.GreaterThanOrEqual(period)
}
