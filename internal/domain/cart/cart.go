// Package cart implements the shopping cart and pricing engine: line
// items, quantity rules, promo application and totals arithmetic.
package cart

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/tattva-co/storefront/internal/domain/catalog"
	"github.com/tattva-co/storefront/internal/domain/promo"
	"github.com/tattva-co/storefront/internal/domain/shipping"
)

var (
	// ErrOutOfStock is returned when a requested quantity exceeds the
	// variant's available stock on add.
	ErrOutOfStock = errors.New("requested quantity exceeds available stock")
	// ErrInvalidQuantity is returned when an add requests a non-positive
	// quantity.
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
	// ErrPromoAlreadyApplied is returned when a second promo code is
	// applied while one is active.
	ErrPromoAlreadyApplied = errors.New("a promo code is already applied")
	// ErrEmptyCart is returned when a promo code is applied to a cart
	// with no items.
	ErrEmptyCart = errors.New("cart is empty")
)

// LineItem is one product variant entry in the cart. Name, Image,
// Weight and UnitPrice are snapshots taken when the item was added.
type LineItem struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	VariantID string          `json:"variant_id"`
	Name      string          `json:"name"`
	Image     string          `json:"image"`
	Weight    string          `json:"weight"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Stock     int             `json:"stock"`
}

// LineItemID builds the composite identity of a cart line.
func LineItemID(productID, variantID string) string {
	return productID + ":" + variantID
}

// Result reports the outcome of a successful cart mutation.
type Result struct {
	Totals Totals
	// StockLimited is set when the requested quantity was clamped to the
	// variant's stock ceiling.
	StockLimited bool
}

// TaxFunc computes the tax on the discounted subtotal. Tax is a
// pass-through supplied by the host; the engine does not own tax rules.
type TaxFunc func(taxable decimal.Decimal) decimal.Decimal

// Engine owns the state of a single cart. All mutations are serialized
// by an internal mutex, so totals are always recomputed from a fully
// applied prior state even under concurrent calls. Construct one per
// cart; there is no global instance.
type Engine struct {
	mu      sync.Mutex
	items   []LineItem
	applied *promo.Code

	promos promo.Store
	rates  shipping.RateProvider
	dest   shipping.Destination
	tax    TaxFunc
	now    func() time.Time
}

// NewEngine creates an empty cart engine. promos is required for promo
// application; rates may be nil, in which case shipping is zero.
func NewEngine(promos promo.Store, rates shipping.RateProvider) *Engine {
	return &Engine{
		promos: promos,
		rates:  rates,
		now:    time.Now,
	}
}

// SetDestination records where the cart ships to, for rate quotes.
func (e *Engine) SetDestination(dest shipping.Destination) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dest = dest
}

// SetTaxFunc installs the externally supplied tax computation.
func (e *Engine) SetTaxFunc(fn TaxFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tax = fn
}

// Items returns a copy of the cart's line items in insertion order.
func (e *Engine) Items() []LineItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]LineItem, len(e.items))
	copy(out, e.items)
	return out
}

// AppliedPromo returns the currently applied promo code, or "".
func (e *Engine) AppliedPromo() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.applied == nil {
		return ""
	}
	return e.applied.Code
}

// AddItem puts quantity units of the given variant into the cart. An
// existing line for the same product+variant is incremented, clamped to
// the stock ceiling. A new line whose requested quantity exceeds stock
// is rejected with ErrOutOfStock and the cart is left untouched.
func (e *Engine) AddItem(ctx context.Context, p catalog.Product, v catalog.Variant, quantity int) (Result, error) {
	if quantity <= 0 {
		return Result{}, ErrInvalidQuantity
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	id := LineItemID(p.ID, v.ID)
	if i := e.indexOf(id); i >= 0 {
		limited := false
		q := e.items[i].Quantity + quantity
		if q > e.items[i].Stock {
			q = e.items[i].Stock
			limited = true
		}
		e.items[i].Quantity = q
		return e.result(ctx, limited)
	}

	if quantity > v.Stock {
		return Result{}, ErrOutOfStock
	}

	image := ""
	if len(p.Images) > 0 {
		image = p.Images[0]
	}
	e.items = append(e.items, LineItem{
		ID:        id,
		ProductID: p.ID,
		VariantID: v.ID,
		Name:      p.Name,
		Image:     image,
		Weight:    v.Label,
		UnitPrice: v.EffectivePrice(),
		Quantity:  quantity,
		Stock:     v.Stock,
	})
	return e.result(ctx, false)
}

// UpdateQuantity sets the quantity of a line item. A quantity of zero
// or less removes the line; a quantity above the stock ceiling is
// clamped and flagged. An unknown line ID is a no-op.
func (e *Engine) UpdateQuantity(ctx context.Context, lineID string, quantity int) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	i := e.indexOf(lineID)
	if i < 0 {
		return e.result(ctx, false)
	}

	if quantity <= 0 {
		e.removeAt(i)
		return e.result(ctx, false)
	}

	limited := false
	if quantity > e.items[i].Stock {
		quantity = e.items[i].Stock
		limited = true
	}
	e.items[i].Quantity = quantity
	return e.result(ctx, limited)
}

// RemoveItem deletes a line item. Removing an absent line is a no-op.
func (e *Engine) RemoveItem(ctx context.Context, lineID string) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if i := e.indexOf(lineID); i >= 0 {
		e.removeAt(i)
	}
	return e.result(ctx, false)
}

// ApplyPromo validates and applies a promo code. Checks run in order:
// the code exists and is active, it is not expired, the subtotal meets
// its minimum order value, and no other code is already applied. The
// first failing check is returned and the cart stays unchanged.
func (e *Engine) ApplyPromo(ctx context.Context, code string) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.items) == 0 {
		return Result{}, ErrEmptyCart
	}

	c, err := e.promos.FindByCode(ctx, code)
	if err != nil {
		return Result{}, err
	}
	if err := promo.Validate(c, e.subtotal(), e.now()); err != nil {
		return Result{}, err
	}
	if e.applied != nil {
		return Result{}, ErrPromoAlreadyApplied
	}

	e.applied = c
	return e.result(ctx, false)
}

// ClearPromo removes any applied promo code. Idempotent.
func (e *Engine) ClearPromo(ctx context.Context) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.applied = nil
	return e.result(ctx, false)
}

// Clear empties the cart and drops any applied promo.
func (e *Engine) Clear(ctx context.Context) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.items = nil
	e.applied = nil
	return e.result(ctx, false)
}

func (e *Engine) indexOf(lineID string) int {
	for i := range e.items {
		if e.items[i].ID == lineID {
			return i
		}
	}
	return -1
}

// removeAt deletes the line at index i; emptying the cart drops the
// applied promo, per the cart state machine.
func (e *Engine) removeAt(i int) {
	e.items = append(e.items[:i], e.items[i+1:]...)
	if len(e.items) == 0 {
		e.applied = nil
	}
}

func (e *Engine) result(ctx context.Context, limited bool) (Result, error) {
	return Result{Totals: e.totals(ctx), StockLimited: limited}, nil
}
