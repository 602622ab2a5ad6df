// Package catalog holds the product data model and the pure
// filtering/sorting engine that decides which products a shopper sees.
package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog entry with its purchasable variants
// and customer reviews.
type Product struct {
	ID          string
	Name        string
	Description string
	Category    string
	Tags        []string
	Images      []string
	Origin      string
	Grind       string
	Grade       string
	Variants    []Variant
	Reviews     []Review
}

// Variant is a purchasable SKU of a product, e.g. a specific pack weight.
type Variant struct {
	ID    string
	Label string
	Price decimal.Decimal
	// SalePrice, when non-nil and below Price, replaces Price for all
	// pricing purposes. A sale price at or above the base price is
	// treated as no discount.
	SalePrice *decimal.Decimal
	Stock     int
}

// Review is a single customer review of a product.
type Review struct {
	Author    string
	Rating    int
	Comment   string
	CreatedAt string
	Helpful   int
	Verified  bool
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
}

// EffectivePrice returns the price a shopper actually pays for the
// variant: the sale price when present and lower than the base price,
// else the base price.
func (v Variant) EffectivePrice() decimal.Decimal {
	if v.SalePrice != nil && v.SalePrice.LessThan(v.Price) {
		return *v.SalePrice
	}
	return v.Price
}

// OnSale reports whether the variant carries a valid sale price.
func (v Variant) OnSale() bool {
	return v.SalePrice != nil && v.SalePrice.LessThan(v.Price)
}

// RepresentativePrice returns the minimum effective price across the
// product's variants. It is the single source of truth for price
// sorting and price-bounds computation; every call site must use it
// rather than reading the first variant. ok is false when the product
// has no variants and therefore no price.
func (p Product) RepresentativePrice() (price decimal.Decimal, ok bool) {
	for i, v := range p.Variants {
		ep := v.EffectivePrice()
		if i == 0 || ep.LessThan(price) {
			price = ep
		}
	}
	return price, len(p.Variants) > 0
}

// AverageRating returns the arithmetic mean of the product's review
// ratings, or 0 when it has no reviews.
func (p Product) AverageRating() float64 {
	if len(p.Reviews) == 0 {
		return 0
	}
	sum := 0
	for _, r := range p.Reviews {
		sum += r.Rating
	}
	return float64(sum) / float64(len(p.Reviews))
}

// InStock reports whether at least one variant has stock available.
func (p Product) InStock() bool {
	for _, v := range p.Variants {
		if v.Stock > 0 {
			return true
		}
	}
	return false
}

// OnSale reports whether any variant carries a valid sale price.
func (p Product) OnSale() bool {
	for _, v := range p.Variants {
		if v.OnSale() {
			return true
		}
	}
	return false
}

// HasTag reports whether the product carries the given tag.
func (p Product) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
