package liquidation

import (
	"testing"

	"liquidator/core"
	"liquidator/pkg/number"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statsWithLtv(ltvPct string) core.ObligationStats {
	return core.ObligationStats{
		UserTotalDeposit:       number.Decimal("1000"),
		BorrowLiquidationLimit: number.Decimal("800"),
		LoanToValue:            number.Decimal(ltvPct).Div(decimal.NewFromInt(100)),
	}
}

func TestCalculateLiquidationBonusPctEndToEnd(t *testing.T) {
	// liquidationThreshold 85%, maxAllowedLtv 80%, userLtv 90%:
	// unhealthyFactor = 1000 bps, minBonus = max(200, 1000) = 1000,
	// collared = min(1000, 500) = 500, cap (100-90)*100 = 1000 -> 5.00%
	collateral := &core.ReserveConfig{
		LiquidationThresholdPct: 85,
		MinLiquidationBonusBps:  200,
		MaxLiquidationBonusBps:  500,
	}
	debt := &core.ReserveConfig{
		MinLiquidationBonusBps: 200,
		MaxLiquidationBonusBps: 500,
	}
	obligation := &core.Obligation{Stats: statsWithLtv("90")}

	bonus, err := CalculateLiquidationBonusPct(&core.Market{}, collateral, debt, obligation, nil)
	require.NoError(t, err)
	assert.True(t, bonus.Equal(number.Decimal("5")), "got %s", bonus)
}

func TestCalculateLiquidationBonusPctMonotonic(t *testing.T) {
	collateral := &core.ReserveConfig{MinLiquidationBonusBps: 100, MaxLiquidationBonusBps: 500}
	debt := &core.ReserveConfig{MinLiquidationBonusBps: 100, MaxLiquidationBonusBps: 500}

	prev := decimal.Zero
	for ltv := 81; ltv < 99; ltv++ {
		obligation := &core.Obligation{Stats: statsWithLtv(decimal.NewFromInt(int64(ltv)).String())}
		bonus, err := CalculateLiquidationBonusPct(&core.Market{}, collateral, debt, obligation, nil)
		require.NoError(t, err)
		headroom := decimal.NewFromInt(int64(100 - ltv))
		assert.True(t, bonus.LessThanOrEqual(headroom), "bonus %s pushes ltv %d past 100%%", bonus, ltv)
		if ltv <= 95 {
			// past 95% the never-past-100% cap governs and the bonus tapers
			assert.True(t, bonus.GreaterThanOrEqual(prev), "bonus shrank at ltv %d", ltv)
			prev = bonus
		}
	}
}

func TestCalculateLiquidationBonusPctBadDebt(t *testing.T) {
	collateral := &core.ReserveConfig{BadDebtLiquidationBonusBps: 50, MaxLiquidationBonusBps: 500}
	debt := &core.ReserveConfig{BadDebtLiquidationBonusBps: 80, MaxLiquidationBonusBps: 500}

	t.Run("ltv 99 floors to remaining gap", func(t *testing.T) {
		obligation := &core.Obligation{Stats: statsWithLtv("99")}
		bonus, err := CalculateLiquidationBonusPct(&core.Market{}, collateral, debt, obligation, nil)
		require.NoError(t, err)
		// max(min(50,80)/100, 100-99) = 1%
		assert.True(t, bonus.Equal(number.Decimal("1")), "got %s", bonus)
	})

	t.Run("ltv 100 pays configured bonus exactly", func(t *testing.T) {
		obligation := &core.Obligation{Stats: statsWithLtv("100")}
		bonus, err := CalculateLiquidationBonusPct(&core.Market{}, collateral, debt, obligation, nil)
		require.NoError(t, err)
		assert.True(t, bonus.Equal(number.Decimal("0.5")), "got %s", bonus)
	})

	t.Run("floor may exceed the max bonus cap", func(t *testing.T) {
		// Known upstream quirk kept literally: with a tiny max cap the
		// bad-debt floor still pays the full gap to 100%.
		tight := &core.ReserveConfig{BadDebtLiquidationBonusBps: 25, MaxLiquidationBonusBps: 30}
		obligation := &core.Obligation{Stats: statsWithLtv("99")}
		bonus, err := CalculateLiquidationBonusPct(&core.Market{}, tight, tight, obligation, nil)
		require.NoError(t, err)
		assert.True(t, bonus.Equal(number.Decimal("1")), "got %s", bonus)
		assert.True(t, bonus.GreaterThan(number.FromBps(decimal.NewFromInt(tight.MaxLiquidationBonusBps))))
	})
}

func TestCalculateLiquidationBonusPctZeroDeposit(t *testing.T) {
	obligation := &core.Obligation{Stats: core.ObligationStats{}}
	_, err := CalculateLiquidationBonusPct(&core.Market{}, &core.ReserveConfig{}, &core.ReserveConfig{}, obligation, nil)
	assert.ErrorIs(t, err, core.ErrZeroDeposit)
}

func TestCalculateLiquidationBonusPctMaxLtvOverride(t *testing.T) {
	collateral := &core.ReserveConfig{MinLiquidationBonusBps: 200, MaxLiquidationBonusBps: 5000}
	debt := &core.ReserveConfig{MinLiquidationBonusBps: 200, MaxLiquidationBonusBps: 5000}
	obligation := &core.Obligation{Stats: statsWithLtv("90")}

	override := number.Decimal("85")
	bonus, err := CalculateLiquidationBonusPct(&core.Market{}, collateral, debt, obligation, &override)
	require.NoError(t, err)
	// unhealthyFactor = (90-85)*100 = 500 bps -> 5%
	assert.True(t, bonus.Equal(number.Decimal("5")), "got %s", bonus)
}

func TestEmodeMaxLiquidationBonusBps(t *testing.T) {
	market := &core.Market{
		ElevationGroups: []core.ElevationGroup{{ID: 1, MaxLiquidationBonusBps: 400}},
	}
	inGroup := &core.ReserveConfig{MaxLiquidationBonusBps: 300, ElevationGroups: []uint8{1}}

	t.Run("group cap applies", func(t *testing.T) {
		obligation := &core.Obligation{ElevationGroup: 1}
		assert.EqualValues(t, 400, emodeMaxLiquidationBonusBps(market, inGroup, inGroup, obligation))
	})

	t.Run("no elevation group", func(t *testing.T) {
		obligation := &core.Obligation{ElevationGroup: 0}
		assert.EqualValues(t, UnconstrainedMaxBonusBps, emodeMaxLiquidationBonusBps(market, inGroup, inGroup, obligation))
	})

	t.Run("reserve outside group", func(t *testing.T) {
		outGroup := &core.ReserveConfig{MaxLiquidationBonusBps: 300}
		obligation := &core.Obligation{ElevationGroup: 1}
		assert.EqualValues(t, UnconstrainedMaxBonusBps, emodeMaxLiquidationBonusBps(market, inGroup, outGroup, obligation))
	})

	t.Run("zero group cap is unconstrained", func(t *testing.T) {
		zeroMarket := &core.Market{ElevationGroups: []core.ElevationGroup{{ID: 1}}}
		obligation := &core.Obligation{ElevationGroup: 1}
		assert.EqualValues(t, UnconstrainedMaxBonusBps, emodeMaxLiquidationBonusBps(zeroMarket, inGroup, inGroup, obligation))
	})

	t.Run("reserve cap above group cap is unconstrained", func(t *testing.T) {
		bigReserve := &core.ReserveConfig{MaxLiquidationBonusBps: 900, ElevationGroups: []uint8{1}}
		obligation := &core.Obligation{ElevationGroup: 1}
		assert.EqualValues(t, UnconstrainedMaxBonusBps, emodeMaxLiquidationBonusBps(market, bigReserve, inGroup, obligation))
	})
}

func TestCalculateAutodeleverageThreshold(t *testing.T) {
	reserve := &core.Reserve{Config: core.ReserveConfig{
		LiquidationThresholdPct:          80,
		DeleveragingThresholdSlotsPerBps: 7200,
	}}

	t.Run("decays linearly", func(t *testing.T) {
		// 720000 slots = 100 bps reduction = 1%
		_, threshold := CalculateAutodeleverageThreshold(reserve, 720_000)
		assert.True(t, threshold.Equal(number.Decimal("79")), "got %s", threshold)
	})

	t.Run("keeps fractional reductions", func(t *testing.T) {
		// 3600 slots = half a bps, not rounded away
		reduction, threshold := CalculateAutodeleverageThreshold(reserve, 3_600)
		assert.True(t, reduction.Equal(number.Decimal("0.5")), "got %s", reduction)
		assert.True(t, threshold.Equal(number.Decimal("79.995")), "got %s", threshold)
	})

	t.Run("floors at zero", func(t *testing.T) {
		_, threshold := CalculateAutodeleverageThreshold(reserve, 7_200_000_000)
		assert.True(t, threshold.IsZero())
	})

	t.Run("zero slots per bps decays instantly", func(t *testing.T) {
		instant := &core.Reserve{Config: core.ReserveConfig{LiquidationThresholdPct: 80}}
		reduction, threshold := CalculateAutodeleverageThreshold(instant, 1)
		assert.True(t, threshold.IsZero())
		assert.True(t, reduction.Equal(number.Decimal("8000")), "got %s", reduction)
	})
}

func TestCalculateAutodeleverageBonus(t *testing.T) {
	reserve := &core.Reserve{Config: core.ReserveConfig{MaxLiquidationBonusBps: 100}}

	t.Run("starts at the minimum", func(t *testing.T) {
		_, bonus := CalculateAutodeleverageBonus(reserve, 0, number.Decimal("80"))
		assert.True(t, bonus.Equal(decimal.NewFromInt(MinAutodeleverageBonusBps)))
	})

	t.Run("grows with days elapsed", func(t *testing.T) {
		// 10 days at ltv 80% -> 50 + 0.8*10 = 58 bps
		days, bonus := CalculateAutodeleverageBonus(reserve, 1_920_000, number.Decimal("80"))
		assert.True(t, days.Equal(decimal.NewFromInt(10)))
		assert.True(t, bonus.Equal(number.Decimal("58")), "got %s", bonus)
	})

	t.Run("capped by the reserve max", func(t *testing.T) {
		_, bonus := CalculateAutodeleverageBonus(reserve, 19_200_000, number.Decimal("80"))
		assert.True(t, bonus.Equal(decimal.NewFromInt(100)))
	})
}
