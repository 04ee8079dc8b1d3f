package core

import (
	"context"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/shopspring/decimal"
)

// ReserveStatus reserve lifecycle status
type ReserveStatus int

const (
	// ReserveStatusActive active reserve
	ReserveStatusActive ReserveStatus = iota
	// ReserveStatusObsolete obsolete reserve, withdrawals only
	ReserveStatusObsolete
	// ReserveStatusHidden hidden reserve
	ReserveStatusHidden
)

// ReserveConfig per-reserve risk parameters
type ReserveConfig struct {
	LoanToValuePct             int64 `json:"loan_to_value_pct"`
	LiquidationThresholdPct    int64 `json:"liquidation_threshold_pct"`
	MinLiquidationBonusBps     int64 `json:"min_liquidation_bonus_bps"`
	MaxLiquidationBonusBps     int64 `json:"max_liquidation_bonus_bps"`
	BadDebtLiquidationBonusBps int64 `json:"bad_debt_liquidation_bonus_bps"`
	// borrow factor as a percentage, 100 = neutral
	BorrowFactorPct int64 `json:"borrow_factor_pct"`
	// elevation groups this reserve is a member of
	ElevationGroups []uint8 `json:"elevation_groups"`
	// auto-deleverage threshold decay, in slots per basis point
	DeleveragingThresholdSlotsPerBps uint64 `json:"deleveraging_threshold_slots_per_bps"`
	// grace period between a limit being crossed and deleveraging starting
	DeleveragingMarginCallPeriodSecs uint64 `json:"deleveraging_margin_call_period_secs"`

	DepositLimit decimal.Decimal `json:"deposit_limit"`
	BorrowLimit  decimal.Decimal `json:"borrow_limit"`
}

// InElevationGroup reports whether the reserve is a member of group id
func (c *ReserveConfig) InElevationGroup(id uint8) bool {
	for _, g := range c.ElevationGroups {
		if g == id {
			return true
		}
	}
	return false
}

// Reserve a per-asset liquidity pool
type Reserve struct {
	Address               common.PublicKey `json:"address"`
	LiquidityMint         common.PublicKey `json:"liquidity_mint"`
	LiquidityDecimals     int32            `json:"liquidity_decimals"`
	CollateralMint        common.PublicKey `json:"collateral_mint"`
	CollateralSupplyVault common.PublicKey `json:"collateral_supply_vault"`
	LiquiditySupplyVault  common.PublicKey `json:"liquidity_supply_vault"`
	LiquidityFeeVault     common.PublicKey `json:"liquidity_fee_vault"`
	// oracle feed accounts, zero value means not configured
	PriceFeeds []common.PublicKey `json:"price_feeds"`
	Status     ReserveStatus      `json:"status"`
	// liquidity/collateral exchange rate at the refreshed slot
	CollateralExchangeRate decimal.Decimal `json:"collateral_exchange_rate"`
	LiquidityAvailable     decimal.Decimal `json:"liquidity_available"`
	TotalDeposits          decimal.Decimal `json:"total_deposits"`
	TotalBorrows           decimal.Decimal `json:"total_borrows"`
	// watermark slots, zero means never crossed; reset only by admin action
	DepositLimitCrossedSlot uint64 `json:"deposit_limit_crossed_slot"`
	BorrowLimitCrossedSlot  uint64 `json:"borrow_limit_crossed_slot"`

	Config ReserveConfig `json:"config"`
}

// DepositLimitCrossed reports whether total deposits exceed the deposit limit
func (r *Reserve) DepositLimitCrossed() bool {
	return r.Config.DepositLimit.IsPositive() && r.TotalDeposits.GreaterThan(r.Config.DepositLimit)
}

// BorrowLimitCrossed reports whether total borrows exceed the borrow limit
func (r *Reserve) BorrowLimitCrossed() bool {
	return r.Config.BorrowLimit.IsPositive() && r.TotalBorrows.GreaterThan(r.Config.BorrowLimit)
}

// ElevationGroup an alternate risk-parameter profile
type ElevationGroup struct {
	ID                      uint8 `json:"id"`
	LtvPct                  int64 `json:"ltv_pct"`
	LiquidationThresholdPct int64 `json:"liquidation_threshold_pct"`
	MaxLiquidationBonusBps  int64 `json:"max_liquidation_bonus_bps"`
	AllowNewLoans           bool  `json:"allow_new_loans"`
}

// Market a lending market and its reserves
type Market struct {
	Address   common.PublicKey `json:"address"`
	Authority common.PublicKey `json:"authority"`
	// lending program owning this market
	ProgramID             common.PublicKey              `json:"program_id"`
	AutodeleverageEnabled bool                          `json:"autodeleverage_enabled"`
	ElevationGroups       []ElevationGroup              `json:"elevation_groups"`
	Reserves              map[common.PublicKey]*Reserve `json:"reserves"`
}

// GetReserveByAddress find reserve by reserve address
func (m *Market) GetReserveByAddress(address common.PublicKey) (*Reserve, bool) {
	r, ok := m.Reserves[address]
	return r, ok
}

// GetReserveByMint find reserve by liquidity mint
func (m *Market) GetReserveByMint(mint common.PublicKey) (*Reserve, bool) {
	for _, r := range m.Reserves {
		if r.LiquidityMint == mint {
			return r, true
		}
	}
	return nil, false
}

// GetElevationGroup elevation group by id; id 0 returns the empty group
func (m *Market) GetElevationGroup(id uint8) ElevationGroup {
	if id == 0 {
		return ElevationGroup{}
	}
	for _, g := range m.ElevationGroups {
		if g.ID == id {
			return g
		}
	}
	return ElevationGroup{}
}

// IMarketService market state provider, read-only snapshots of on-chain state
type IMarketService interface {
	LoadMarket(ctx context.Context, address common.PublicKey) (*Market, error)
	LoadObligations(ctx context.Context, market *Market) ([]*Obligation, error)
	// RefreshObligation recomputes obligation stats against the given oracle
	// snapshot. Stats and eligibility checks must share one slot.
	RefreshObligation(ctx context.Context, market *Market, obligation *Obligation, snapshot OracleSnapshot, slot uint64) error
	CurrentSlot(ctx context.Context) (uint64, error)
}
