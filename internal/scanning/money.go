package scanning

import "github.com/shopspring/decimal"

const (
	maxMoneyScale    = 10
	maxMoneyExponent = 12
	maxMoneyDigits   = 24
)

var maxMoney = decimal.New(1, maxMoneyExponent)

// PlausibleMoney reports whether d is usable as a receipt amount. The
// exponent is checked before any arithmetic so values like 1e2000000000
// are rejected without being expanded.
func PlausibleMoney(d decimal.Decimal) bool {
	exp := d.Exponent()
	if exp < -maxMoneyScale || exp > maxMoneyExponent {
		return false
	}
	if d.NumDigits() > maxMoneyDigits {
		return false
	}
	return d.Abs().LessThanOrEqual(maxMoney)
}
