package money

import "github.com/shopspring/decimal"

// Round2 normalizes a floating-point currency amount to two decimal places
// using half-away-from-zero semantics on the decimal representation. Going
// through decimal strings corrects binary representation error, so
// Round2(0.1+0.2) == 0.3 and Round2(10.005) == 10.01.
func Round2(amount float64) float64 {
	rounded, _ := decimal.NewFromFloat(amount).Round(2).Float64()
	return rounded
}

// MulRound2 returns Round2(price * qty), the line-total convention used by
// cart and order totals.
func MulRound2(price float64, qty int) float64 {
	product, _ := decimal.NewFromFloat(price).Mul(decimal.NewFromInt(int64(qty))).Round(2).Float64()
	return product
}
