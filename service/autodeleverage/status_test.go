package autodeleverage

import (
	"context"
	"testing"

	"liquidator/core"
	"liquidator/pkg/number"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReserve(address common.PublicKey) *core.Reserve {
	return &core.Reserve{
		Address: address,
		Config: core.ReserveConfig{
			DepositLimit:                     number.Decimal("1000"),
			BorrowLimit:                      number.Decimal("500"),
			DeleveragingMarginCallPeriodSecs: 900, // 2000 slots at 450ms
		},
	}
}

func newMarket(reserves ...*core.Reserve) *core.Market {
	m := &core.Market{
		AutodeleverageEnabled: true,
		Reserves:              make(map[common.PublicKey]*core.Reserve),
	}
	for _, r := range reserves {
		m.Reserves[r.Address] = r
	}
	return m
}

var reserveAddr = common.PublicKeyFromString("Ho3Mo1Tc9sfmVN2EDWXA9Nm11mBMHxJvXi2Nn2RDxDLD")

func TestComputeDisabledMarket(t *testing.T) {
	r := newReserve(reserveAddr)
	r.TotalDeposits = number.Decimal("2000")
	r.DepositLimitCrossedSlot = 100

	market := newMarket(r)
	market.AutodeleverageEnabled = false

	status := New().Compute(context.Background(), market, 10_000)
	assert.Len(t, status, 0)
}

func TestComputeLimitNotCrossed(t *testing.T) {
	r := newReserve(reserveAddr)
	r.TotalDeposits = number.Decimal("900")
	r.TotalBorrows = number.Decimal("400")
	r.DepositLimitCrossedSlot = 100
	r.BorrowLimitCrossedSlot = 100

	status := New().Compute(context.Background(), newMarket(r), 10_000)
	require.Contains(t, status, reserveAddr)
	assert.Nil(t, status[reserveAddr].CollateralSlotsSinceStarted)
	assert.Nil(t, status[reserveAddr].DebtSlotsSinceStarted)
	assert.True(t, status.IsEmpty())
}

func TestComputeWatermarkNeverRecorded(t *testing.T) {
	r := newReserve(reserveAddr)
	r.TotalDeposits = number.Decimal("2000")
	r.DepositLimitCrossedSlot = 0

	status := New().Compute(context.Background(), newMarket(r), 10_000)
	assert.Nil(t, status[reserveAddr].CollateralSlotsSinceStarted)
}

func TestComputeGracePeriodNotExpired(t *testing.T) {
	r := newReserve(reserveAddr)
	r.TotalDeposits = number.Decimal("2000")
	// 1999 slots elapsed = 899.55s < 900s margin call period
	r.DepositLimitCrossedSlot = 8001

	status := New().Compute(context.Background(), newMarket(r), 10_000)
	assert.Nil(t, status[reserveAddr].CollateralSlotsSinceStarted)
}

func TestComputeGracePeriodExpired(t *testing.T) {
	r := newReserve(reserveAddr)
	r.TotalDeposits = number.Decimal("2000")
	r.TotalBorrows = number.Decimal("600")
	// exactly 2000 slots elapsed = 900s on both sides
	r.DepositLimitCrossedSlot = 8000
	r.BorrowLimitCrossedSlot = 7000

	status := New().Compute(context.Background(), newMarket(r), 10_000)
	require.NotNil(t, status[reserveAddr].CollateralSlotsSinceStarted)
	assert.Equal(t, uint64(2000), *status[reserveAddr].CollateralSlotsSinceStarted)
	require.NotNil(t, status[reserveAddr].DebtSlotsSinceStarted)
	assert.Equal(t, uint64(3000), *status[reserveAddr].DebtSlotsSinceStarted)
	assert.False(t, status.IsEmpty())
}

func TestComputeSidesIndependent(t *testing.T) {
	r := newReserve(reserveAddr)
	r.TotalDeposits = number.Decimal("2000")
	r.TotalBorrows = number.Decimal("400") // under borrow limit
	r.DepositLimitCrossedSlot = 1000
	r.BorrowLimitCrossedSlot = 1000

	status := New().Compute(context.Background(), newMarket(r), 10_000)
	assert.NotNil(t, status[reserveAddr].CollateralSlotsSinceStarted)
	assert.Nil(t, status[reserveAddr].DebtSlotsSinceStarted)
}
