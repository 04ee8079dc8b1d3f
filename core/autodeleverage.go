package core

import (
	"context"

	"github.com/blocto/solana-go-sdk/common"
)

// AutodeleverageStatus slots since auto-deleveraging started for one reserve.
// A nil side means the side is not currently eligible by the policy.
type AutodeleverageStatus struct {
	DebtSlotsSinceStarted       *uint64 `json:"debt_slots_since_started"`
	CollateralSlotsSinceStarted *uint64 `json:"collateral_slots_since_started"`
}

// AutodeleverageStatusMap per-reserve status, derived fresh every evaluation
type AutodeleverageStatusMap map[common.PublicKey]AutodeleverageStatus

// IsEmpty reports whether no reserve has any side eligible
func (m AutodeleverageStatusMap) IsEmpty() bool {
	for _, s := range m {
		if s.DebtSlotsSinceStarted != nil || s.CollateralSlotsSinceStarted != nil {
			return false
		}
	}
	return true
}

// IAutodeleverageService reserve auto-deleverage status computation
type IAutodeleverageService interface {
	Compute(ctx context.Context, market *Market, currentSlot uint64) AutodeleverageStatusMap
}
