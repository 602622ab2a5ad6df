// Package shipping defines the rate-provider contract the cart engine
// folds into its totals, plus the storefront's built-in flat-rate rule.
// External carrier integrations implement RateProvider and are owned
// elsewhere.
package shipping

import (
	"context"

	"github.com/shopspring/decimal"
)

// Destination identifies where a cart ships to.
type Destination struct {
	PinCode string
	Country string
}

// Rate is a shipping quote for a cart.
type Rate struct {
	Price   decimal.Decimal
	ETADays int
}

// RateProvider quotes shipping for a destination given the cart's
// total item count and monetary value.
type RateProvider interface {
	GetRate(ctx context.Context, dest Destination, itemCount int, value decimal.Decimal) (Rate, error)
}

// FlatRateProvider implements the storefront's shipping rule: orders at
// or above FreeThreshold ship free, everything else pays the flat Fee.
type FlatRateProvider struct {
	Fee           decimal.Decimal
	FreeThreshold decimal.Decimal
	ETADays       int
}

// NewFlatRateProvider returns the provider with the storefront's
// defaults: free shipping from 600 upward, a flat 50 below.
func NewFlatRateProvider() *FlatRateProvider {
	return &FlatRateProvider{
		Fee:           decimal.NewFromInt(50),
		FreeThreshold: decimal.NewFromInt(600),
		ETADays:       5,
	}
}

// GetRate implements RateProvider.
func (p *FlatRateProvider) GetRate(_ context.Context, _ Destination, _ int, value decimal.Decimal) (Rate, error) {
	if value.GreaterThanOrEqual(p.FreeThreshold) {
		return Rate{Price: decimal.Zero, ETADays: p.ETADays}, nil
	}
	return Rate{Price: p.Fee, ETADays: p.ETADays}, nil
}
