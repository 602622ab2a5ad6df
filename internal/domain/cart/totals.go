package cart

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/tattva-co/storefront/internal/domain/promo"
)

// Totals is the derived pricing breakdown of a cart. It is computed on
// every read, never stored.
type Totals struct {
	Subtotal        decimal.Decimal
	Discount        decimal.Decimal
	Shipping        decimal.Decimal
	ShippingETADays int
	Tax             decimal.Decimal
	Total           decimal.Decimal
	PromoCode       string
	ItemCount       int
}

// Totals recomputes the cart's pricing breakdown.
func (e *Engine) Totals(ctx context.Context) Totals {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.totals(ctx)
}

// subtotal sums unit price times quantity across all lines.
// Callers must hold e.mu.
func (e *Engine) subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range e.items {
		line := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		sum = sum.Add(line)
	}
	return sum
}

// totals computes the full breakdown. Callers must hold e.mu.
//
// The discount is re-derived from the applied code on every pass: when
// the cart has since dropped below the code's minimum order value the
// discount collapses to zero while the code stays applied. Shipping
// comes from the external rate provider; a missing or failing provider
// contributes zero rather than an error, since collaborator failures
// are the host's concern.
func (e *Engine) totals(ctx context.Context) Totals {
	t := Totals{
		Subtotal: e.subtotal().Round(2),
		Discount: decimal.Zero,
		Shipping: decimal.Zero,
		Tax:      decimal.Zero,
	}
	for _, item := range e.items {
		t.ItemCount += item.Quantity
	}

	if e.applied != nil {
		t.PromoCode = e.applied.Code
		if !e.applied.MinOrderValue.IsPositive() || t.Subtotal.GreaterThanOrEqual(e.applied.MinOrderValue) {
			t.Discount = promo.Discount(e.applied, t.Subtotal)
		}
	}

	if e.rates != nil && len(e.items) > 0 {
		rate, err := e.rates.GetRate(ctx, e.dest, t.ItemCount, t.Subtotal)
		if err == nil {
			t.Shipping = rate.Price.Round(2)
			t.ShippingETADays = rate.ETADays
		}
	}

	if e.tax != nil {
		t.Tax = e.tax(t.Subtotal.Sub(t.Discount)).Round(2)
	}

	total := t.Subtotal.Sub(t.Discount).Add(t.Shipping).Add(t.Tax)
	if total.IsNegative() {
		total = decimal.Zero
	}
	t.Total = total.Round(2)
	return t
}
