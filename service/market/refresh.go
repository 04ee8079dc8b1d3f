package market

import (
	"context"
	"fmt"

	"liquidator/core"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// RefreshObligation recomputes obligation stats against one oracle snapshot.
// Every position value, the totals and the loan-to-value are pinned to the
// given slot so eligibility checks never mix price generations.
func (s *marketService) RefreshObligation(
	ctx context.Context,
	market *core.Market,
	obligation *core.Obligation,
	snapshot core.OracleSnapshot,
	slot uint64,
) error {
	stats := core.ObligationStats{RefreshedSlot: slot}
	group := market.GetElevationGroup(obligation.ElevationGroup)

	for _, position := range obligation.Deposits {
		reserve, ok := market.GetReserveByAddress(position.ReserveAddress)
		if !ok {
			return fmt.Errorf("deposit reserve %s not in market: %w",
				position.ReserveAddress.ToBase58(), core.ErrStaleOracle)
		}
		price, ok := snapshot.Price(reserve.LiquidityMint)
		if !ok {
			return fmt.Errorf("no price for mint %s: %w",
				reserve.LiquidityMint.ToBase58(), core.ErrStaleOracle)
		}

		// deposits are collateral tokens; convert to liquidity before pricing
		liquidity := position.Amount.Mul(reserve.CollateralExchangeRate)
		value := tokenValue(liquidity, price)
		position.MarketValueRefreshed = value

		threshold := decimal.NewFromInt(reserve.Config.LiquidationThresholdPct)
		if obligation.ElevationGroup != 0 && group.LiquidationThresholdPct > 0 {
			threshold = decimal.NewFromInt(group.LiquidationThresholdPct)
		}
		stats.UserTotalDeposit = stats.UserTotalDeposit.Add(value)
		stats.BorrowLiquidationLimit = stats.BorrowLiquidationLimit.Add(value.Mul(threshold).Div(hundred))
	}

	for _, position := range obligation.Borrows {
		reserve, ok := market.GetReserveByAddress(position.ReserveAddress)
		if !ok {
			return fmt.Errorf("borrow reserve %s not in market: %w",
				position.ReserveAddress.ToBase58(), core.ErrStaleOracle)
		}
		price, ok := snapshot.Price(reserve.LiquidityMint)
		if !ok {
			return fmt.Errorf("no price for mint %s: %w",
				reserve.LiquidityMint.ToBase58(), core.ErrStaleOracle)
		}

		value := tokenValue(position.Amount, price)
		position.MarketValueRefreshed = value

		// elevation groups neutralize the borrow factor
		factor := hundred
		if obligation.ElevationGroup == 0 && reserve.Config.BorrowFactorPct > 0 {
			factor = decimal.NewFromInt(reserve.Config.BorrowFactorPct)
		}
		stats.UserTotalBorrow = stats.UserTotalBorrow.Add(value)
		stats.UserTotalBorrowBorrowFactorAdjusted = stats.UserTotalBorrowBorrowFactorAdjusted.
			Add(value.Mul(factor).Div(hundred))
	}

	if stats.UserTotalDeposit.IsPositive() {
		stats.LoanToValue = stats.UserTotalBorrowBorrowFactorAdjusted.Div(stats.UserTotalDeposit)
	}

	obligation.Stats = stats
	return nil
}

func tokenValue(amount decimal.Decimal, price core.OraclePrice) decimal.Decimal {
	return amount.Mul(price.Price).Shift(-price.Decimals)
}
