package api

import (
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/tattva-co/storefront/internal/domain/cart"
	"github.com/tattva-co/storefront/internal/domain/catalog"
)

// CreateCart registers a new empty cart and returns its ID.
func (h *Handler) CreateCart(w http.ResponseWriter, r *http.Request) {
	id, engine, err := h.carts.Create(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	totals := engine.Totals(r.Context())
	writeJSON(w, r, http.StatusCreated, func(e *jx.Encoder) {
		encodeCart(e, id, engine.Items(), totals, false)
	})
}

// GetCart returns the cart's line items and recomputed totals.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	engine, err := h.carts.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	totals := engine.Totals(r.Context())
	writeJSON(w, r, http.StatusOK, func(e *jx.Encoder) {
		encodeCart(e, id, engine.Items(), totals, false)
	})
}

// AddCartItem puts a product variant into the cart.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	engine, err := h.carts.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	var req struct {
		productID string
		variantID string
		quantity  int
	}
	req.quantity = 1
	err = decodeBody(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "product_id":
			req.productID, err = d.Str()
		case "variant_id":
			req.variantID, err = d.Str()
		case "quantity":
			req.quantity, err = d.Int()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "malformed request body")
		return
	}

	p, err := h.products.GetByID(r.Context(), req.productID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	variant, ok := findVariant(*p, req.variantID)
	if !ok {
		writeError(w, r, http.StatusUnprocessableEntity, "variant not found")
		return
	}

	res, err := engine.AddItem(r.Context(), *p, variant, req.quantity)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	h.persist(r, id)
	writeJSON(w, r, http.StatusOK, func(e *jx.Encoder) {
		encodeCart(e, id, engine.Items(), res.Totals, res.StockLimited)
	})
}

// UpdateCartItem sets a line item's quantity; zero removes the line.
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	engine, err := h.carts.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	quantity := 0
	err = decodeBody(r, func(d *jx.Decoder, key string) error {
		var err error
		if key == "quantity" {
			quantity, err = d.Int()
			return err
		}
		return d.Skip()
	})
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "malformed request body")
		return
	}

	res, err := engine.UpdateQuantity(r.Context(), r.PathValue("itemID"), quantity)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	h.persist(r, id)
	writeJSON(w, r, http.StatusOK, func(e *jx.Encoder) {
		encodeCart(e, id, engine.Items(), res.Totals, res.StockLimited)
	})
}

// RemoveCartItem deletes a line item.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	engine, err := h.carts.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	res, err := engine.RemoveItem(r.Context(), r.PathValue("itemID"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	h.persist(r, id)
	writeJSON(w, r, http.StatusOK, func(e *jx.Encoder) {
		encodeCart(e, id, engine.Items(), res.Totals, res.StockLimited)
	})
}

// ApplyPromo validates and applies a promo code to the cart.
func (h *Handler) ApplyPromo(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	engine, err := h.carts.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	code := ""
	err = decodeBody(r, func(d *jx.Decoder, key string) error {
		var err error
		if key == "code" {
			code, err = d.Str()
			return err
		}
		return d.Skip()
	})
	if err != nil || code == "" {
		writeError(w, r, http.StatusBadRequest, "promo code required")
		return
	}

	res, err := engine.ApplyPromo(r.Context(), code)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	h.persist(r, id)
	writeJSON(w, r, http.StatusOK, func(e *jx.Encoder) {
		encodeCart(e, id, engine.Items(), res.Totals, res.StockLimited)
	})
}

// ClearPromo removes any applied promo code. Idempotent.
func (h *Handler) ClearPromo(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	engine, err := h.carts.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	res, err := engine.ClearPromo(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	h.persist(r, id)
	writeJSON(w, r, http.StatusOK, func(e *jx.Encoder) {
		encodeCart(e, id, engine.Items(), res.Totals, res.StockLimited)
	})
}

// persist writes the cart snapshot through to the durable store.
// Snapshot persistence is a cache; failures are logged, not surfaced.
func (h *Handler) persist(r *http.Request, id string) {
	if err := h.carts.Persist(r.Context(), id); err != nil {
		zctx.From(r.Context()).Warn("persist cart",
			zap.String("cart_id", id), zap.Error(err))
	}
}

func decodeBody(r *http.Request, fn func(d *jx.Decoder, key string) error) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return errors.Wrap(err, "read body")
	}
	d := jx.DecodeBytes(body)
	return d.Obj(fn)
}

func findVariant(p catalog.Product, variantID string) (catalog.Variant, bool) {
	for _, v := range p.Variants {
		if v.ID == variantID {
			return v, true
		}
	}
	return catalog.Variant{}, false
}

func encodeCart(e *jx.Encoder, id string, items []cart.LineItem, totals cart.Totals, stockLimited bool) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(id)

	e.FieldStart("items")
	e.ArrStart()
	for _, item := range items {
		e.ObjStart()
		e.FieldStart("id")
		e.Str(item.ID)
		e.FieldStart("product_id")
		e.Str(item.ProductID)
		e.FieldStart("variant_id")
		e.Str(item.VariantID)
		e.FieldStart("name")
		e.Str(item.Name)
		e.FieldStart("image")
		e.Str(item.Image)
		e.FieldStart("weight")
		e.Str(item.Weight)
		e.FieldStart("unit_price")
		encodeDecimal(e, item.UnitPrice)
		e.FieldStart("quantity")
		e.Int(item.Quantity)
		e.ObjEnd()
	}
	e.ArrEnd()

	e.FieldStart("totals")
	e.ObjStart()
	e.FieldStart("subtotal")
	encodeDecimal(e, totals.Subtotal)
	e.FieldStart("discount")
	encodeDecimal(e, totals.Discount)
	e.FieldStart("shipping")
	encodeDecimal(e, totals.Shipping)
	if totals.ShippingETADays > 0 {
		e.FieldStart("shipping_eta_days")
		e.Int(totals.ShippingETADays)
	}
	e.FieldStart("tax")
	encodeDecimal(e, totals.Tax)
	e.FieldStart("total")
	encodeDecimal(e, totals.Total)
	if totals.PromoCode != "" {
		e.FieldStart("promo_code")
		e.Str(totals.PromoCode)
	}
	e.FieldStart("item_count")
	e.Int(totals.ItemCount)
	e.ObjEnd()

	if stockLimited {
		e.FieldStart("stock_limited")
		e.Bool(true)
	}

	e.ObjEnd()
}
