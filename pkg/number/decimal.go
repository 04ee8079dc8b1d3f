package number

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Decimal decimal from string, invalid input yields zero
func Decimal(v string) decimal.Decimal {
	d, _ := decimal.NewFromString(v)
	return d
}

// FromBps basis points to percentage
func FromBps(bps decimal.Decimal) decimal.Decimal {
	return bps.Div(hundred)
}

// ToBps percentage to basis points, floored to an integer
func ToBps(pct decimal.Decimal) decimal.Decimal {
	return pct.Mul(hundred).Floor()
}

// Pct ratio to percentage
func Pct(ratio decimal.Decimal) decimal.Decimal {
	return ratio.Mul(hundred)
}

// Min smaller of a and b
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// Max larger of a and b
func Max(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}
