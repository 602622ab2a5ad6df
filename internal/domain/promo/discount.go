package promo

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Discount calculates the monetary discount the code grants on the
// given subtotal. The result never exceeds the subtotal and is never
// negative; it is rounded to 2 decimal places.
func Discount(c *Code, subtotal decimal.Decimal) decimal.Decimal {
	var amount decimal.Decimal
	switch c.Type {
	case DiscountPercent:
		amount = subtotal.Mul(c.Value).Div(hundred)
	case DiscountFixed:
		amount = c.Value
	default:
		return decimal.Zero
	}

	amount = decimal.Min(amount, subtotal)
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	return amount.Round(2)
}
