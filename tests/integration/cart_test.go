//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestCartLifecycle(t *testing.T) {
	cartID := newCart(t)

	// Empty cart comes back with zero totals.
	resp := doGet(t, "/api/carts/"+cartID)
	c := decodeJSON[cartResponse](t, resp)
	resp.Body.Close()
	if len(c.Items) != 0 || c.Totals.Total != 0 {
		t.Fatalf("new cart not empty: %+v", c)
	}

	// Black Pepper 100g at its sale price.
	c = addItem(t, cartID, "2", "2", 2)
	if len(c.Items) != 1 {
		t.Fatalf("expected 1 line, got %d", len(c.Items))
	}
	if c.Items[0].UnitPrice != 249 {
		t.Errorf("unit price: got %v, want 249 (sale price)", c.Items[0].UnitPrice)
	}
	if c.Totals.Subtotal != 498 {
		t.Errorf("subtotal: got %v, want 498", c.Totals.Subtotal)
	}
	if c.Totals.Shipping != 50 {
		t.Errorf("shipping: got %v, want 50 (below free threshold)", c.Totals.Shipping)
	}
	if c.Totals.Total != 548 {
		t.Errorf("total: got %v, want 548", c.Totals.Total)
	}

	// Crossing the free-shipping threshold zeroes shipping.
	c = addItem(t, cartID, "2", "2", 1)
	if c.Totals.Subtotal != 747 {
		t.Errorf("subtotal: got %v, want 747", c.Totals.Subtotal)
	}
	if c.Totals.Shipping != 0 {
		t.Errorf("shipping: got %v, want 0 (free above threshold)", c.Totals.Shipping)
	}

	// Update down, then remove.
	resp = doJSON(t, http.MethodPatch, "/api/carts/"+cartID+"/items/2:2", map[string]any{"quantity": 1})
	c = decodeJSON[cartResponse](t, resp)
	resp.Body.Close()
	if c.Items[0].Quantity != 1 {
		t.Errorf("quantity after update: got %d, want 1", c.Items[0].Quantity)
	}

	resp = doJSON(t, http.MethodDelete, "/api/carts/"+cartID+"/items/2:2", nil)
	c = decodeJSON[cartResponse](t, resp)
	resp.Body.Close()
	if len(c.Items) != 0 {
		t.Errorf("expected empty cart after remove, got %d items", len(c.Items))
	}
}

func TestCart_StockClamp(t *testing.T) {
	cartID := newCart(t)

	// Saffron has stock 10; a fresh add beyond stock is rejected.
	resp := doJSON(t, http.MethodPost, "/api/carts/"+cartID+"/items", map[string]any{
		"product_id": "1", "variant_id": "1", "quantity": 11,
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}

	// Merging an existing line clamps instead.
	addItem(t, cartID, "1", "1", 8)
	c := addItem(t, cartID, "1", "1", 8)
	if !c.StockLimited {
		t.Error("expected stock_limited flag")
	}
	if c.Items[0].Quantity != 10 {
		t.Errorf("quantity: got %d, want 10", c.Items[0].Quantity)
	}
}

func TestCart_NotFound(t *testing.T) {
	resp := doGet(t, "/api/carts/00000000-0000-0000-0000-000000000000")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestPromoLifecycle(t *testing.T) {
	cartID := newCart(t)
	addItem(t, cartID, "1", "1", 1) // 2499

	// Percent discount applies.
	resp := doJSON(t, http.MethodPost, "/api/carts/"+cartID+"/promo", map[string]any{"code": "TATTVA10"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("apply promo: expected 200, got %d", resp.StatusCode)
	}
	c := decodeJSON[cartResponse](t, resp)
	resp.Body.Close()
	if c.Totals.PromoCode != "TATTVA10" {
		t.Errorf("promo_code: got %q, want TATTVA10", c.Totals.PromoCode)
	}
	if c.Totals.Discount != 249.9 {
		t.Errorf("discount: got %v, want 249.9", c.Totals.Discount)
	}
	if c.Totals.Total != 2249.1 {
		t.Errorf("total: got %v, want 2249.1", c.Totals.Total)
	}

	// A second code conflicts; the first survives.
	resp = doJSON(t, http.MethodPost, "/api/carts/"+cartID+"/promo", map[string]any{"code": "SPICE5"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("second promo: expected 409, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doGet(t, "/api/carts/"+cartID)
	c = decodeJSON[cartResponse](t, resp)
	resp.Body.Close()
	if c.Totals.PromoCode != "TATTVA10" {
		t.Errorf("promo after conflict: got %q, want TATTVA10", c.Totals.PromoCode)
	}

	// Clearing is idempotent.
	for range 2 {
		resp = doJSON(t, http.MethodDelete, "/api/carts/"+cartID+"/promo", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("clear promo: expected 200, got %d", resp.StatusCode)
		}
		c = decodeJSON[cartResponse](t, resp)
		resp.Body.Close()
	}
	if c.Totals.PromoCode != "" || c.Totals.Discount != 0 {
		t.Errorf("promo not cleared: %+v", c.Totals)
	}
}

func TestPromo_Rejections(t *testing.T) {
	cartID := newCart(t)
	addItem(t, cartID, "2", "2", 1) // 249

	tests := []struct {
		name       string
		code       string
		wantStatus int
	}{
		{name: "unknown code", code: "BOGUS", wantStatus: http.StatusUnprocessableEntity},
		{name: "expired code", code: "EXPIRED20", wantStatus: http.StatusUnprocessableEntity},
		{name: "inactive code", code: "DISABLED", wantStatus: http.StatusUnprocessableEntity},
		{name: "below minimum order", code: "FREESHIP", wantStatus: http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, http.MethodPost, "/api/carts/"+cartID+"/promo", map[string]any{"code": tt.code})
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, resp.StatusCode)
			}
		})
	}
}

func TestPromo_CaseInsensitive(t *testing.T) {
	cartID := newCart(t)
	addItem(t, cartID, "4", "4", 1) // 499

	resp := doJSON(t, http.MethodPost, "/api/carts/"+cartID+"/promo", map[string]any{"code": "tattva10"})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	c := decodeJSON[cartResponse](t, resp)
	if c.Totals.PromoCode != "TATTVA10" {
		t.Errorf("promo_code: got %q, want TATTVA10", c.Totals.PromoCode)
	}
}

func TestCart_SurvivesRestoreFromStore(t *testing.T) {
	// The snapshot store persists every mutation, so a cart created in
	// one request chain is retrievable later with identical totals. This
	// exercises the snapshot round trip through PostgreSQL.
	cartID := newCart(t)
	before := addItem(t, cartID, "6", "7", 2) // Ginger 250g, 1800

	resp := doGet(t, "/api/carts/"+cartID)
	after := decodeJSON[cartResponse](t, resp)
	resp.Body.Close()

	if after.Totals.Subtotal != before.Totals.Subtotal {
		t.Errorf("subtotal drifted: %v vs %v", after.Totals.Subtotal, before.Totals.Subtotal)
	}
	if after.Totals.Total != before.Totals.Total {
		t.Errorf("total drifted: %v vs %v", after.Totals.Total, before.Totals.Total)
	}
}
