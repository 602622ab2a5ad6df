package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tattva-co/storefront/internal/domain/cart"
	"github.com/tattva-co/storefront/internal/domain/catalog"
	"github.com/tattva-co/storefront/internal/domain/promo"
	"github.com/tattva-co/storefront/internal/domain/shipping"
)

// --- Mock implementations ---

type mockProductRepo struct {
	products []catalog.Product
	listErr  error
}

func (m *mockProductRepo) List(_ context.Context) ([]catalog.Product, error) {
	return m.products, m.listErr
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*catalog.Product, error) {
	for i := range m.products {
		if m.products[i].ID == id {
			return &m.products[i], nil
		}
	}
	return nil, catalog.ErrNotFound
}

type mockPromoStore struct {
	codes map[string]*promo.Code
}

func (m *mockPromoStore) FindByCode(_ context.Context, code string) (*promo.Code, error) {
	c, ok := m.codes[strings.ToUpper(code)]
	if !ok {
		return nil, promo.ErrInvalidPromo
	}
	return c, nil
}

// --- Helpers ---

func decPtr(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func testProducts() []catalog.Product {
	return []catalog.Product{
		{
			ID: "1", Name: "Premium Saffron", Description: "Finest saffron",
			Category: "Spices", Tags: []string{"organic", "premium"},
			Images: []string{"/images/saffron.jpg"},
			Variants: []catalog.Variant{
				{ID: "1", Label: "5g", Price: decimal.NewFromInt(2999), SalePrice: decPtr(2499), Stock: 10},
			},
			Reviews: []catalog.Review{{Author: "John", Rating: 5}, {Author: "Jane", Rating: 4}},
		},
		{
			ID: "2", Name: "Black Pepper", Description: "Organic pepper",
			Category: "Spices", Tags: []string{"organic"},
			Variants: []catalog.Variant{
				{ID: "2", Label: "100g", Price: decimal.NewFromInt(299), SalePrice: decPtr(249), Stock: 25},
			},
		},
		{
			ID: "3", Name: "Basmati Rice", Description: "Premium rice",
			Category: "Grains",
			Variants: []catalog.Variant{
				{ID: "3", Label: "1kg", Price: decimal.NewFromInt(599), Stock: 50},
			},
		},
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *mockProductRepo) {
	t.Helper()

	repo := &mockProductRepo{products: testProducts()}
	promos := &mockPromoStore{codes: map[string]*promo.Code{
		"TATTVA10": {Code: "TATTVA10", Type: promo.DiscountPercent, Value: decimal.NewFromInt(10), Active: true},
		"SPICE5":   {Code: "SPICE5", Type: promo.DiscountFixed, Value: decimal.NewFromInt(5), Active: true},
	}}
	carts := cart.NewManager(nil, promos, shipping.NewFlatRateProvider())

	h := NewHandler(HandlerConfig{}, repo, carts)
	mux := http.NewServeMux()
	h.Routes(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, repo
}

func doJSON(t *testing.T, method, url, body string) (int, map[string]any) {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func createCart(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	status, body := doJSON(t, http.MethodPost, srv.URL+"/api/carts", "")
	require.Equal(t, http.StatusCreated, status)
	id, ok := body["id"].(string)
	require.True(t, ok, "cart id missing: %v", body)
	return id
}

// --- Catalog tests ---

func TestListProducts(t *testing.T) {
	srv, _ := newTestServer(t)

	status, body := doJSON(t, http.MethodGet, srv.URL+"/api/products", "")
	require.Equal(t, http.StatusOK, status)

	assert.Equal(t, float64(3), body["count"])
	products := body["products"].([]any)
	require.Len(t, products, 3)

	first := products[0].(map[string]any)
	assert.Equal(t, "1", first["id"])
	assert.Equal(t, "Premium Saffron", first["name"])
	assert.Equal(t, float64(2499), first["price"], "price is the effective sale price")
	assert.Equal(t, 4.5, first["rating"])
	assert.Equal(t, true, first["in_stock"])
}

func TestListProducts_Filtered(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{name: "category", query: "category=Grains", want: []string{"Basmati Rice"}},
		{name: "search", query: "q=pepper", want: []string{"Black Pepper"}},
		{name: "price range", query: "min_price=500&max_price=1000", want: []string{"Basmati Rice"}},
		{name: "open upper bound", query: "min_price=1000", want: []string{"Premium Saffron"}},
		{name: "on sale", query: "on_sale=true", want: []string{"Premium Saffron", "Black Pepper"}},
		{name: "sorted by price", query: "sort=price-asc", want: []string{"Black Pepper", "Basmati Rice", "Premium Saffron"}},
		{name: "min rating", query: "min_rating=4", want: []string{"Premium Saffron"}},
		{name: "tag", query: "tag=organic", want: []string{"Premium Saffron", "Black Pepper"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := doJSON(t, http.MethodGet, srv.URL+"/api/products?"+tt.query, "")
			require.Equal(t, http.StatusOK, status)

			products := body["products"].([]any)
			got := make([]string, len(products))
			for i, p := range products {
				got[i] = p.(map[string]any)["name"].(string)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestListProducts_RepoError(t *testing.T) {
	srv, repo := newTestServer(t)
	repo.listErr = errors.New("db down")

	status, body := doJSON(t, http.MethodGet, srv.URL+"/api/products", "")
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal error", body["message"])
}

func TestGetProduct(t *testing.T) {
	srv, _ := newTestServer(t)

	status, body := doJSON(t, http.MethodGet, srv.URL+"/api/products/2", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Black Pepper", body["name"])

	variants := body["variants"].([]any)
	require.Len(t, variants, 1)
	v := variants[0].(map[string]any)
	assert.Equal(t, float64(299), v["price"])
	assert.Equal(t, float64(249), v["sale_price"])

	status, body = doJSON(t, http.MethodGet, srv.URL+"/api/products/99", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, float64(404), body["code"])
	assert.Equal(t, "product not found", body["message"])
}

func TestGetFacets(t *testing.T) {
	srv, _ := newTestServer(t)

	status, body := doJSON(t, http.MethodGet, srv.URL+"/api/facets", "")
	require.Equal(t, http.StatusOK, status)

	categories := body["categories"].([]any)
	assert.Equal(t, []any{"All", "Spices", "Grains"}, categories)

	bounds := body["price_bounds"].(map[string]any)
	assert.Equal(t, float64(249), bounds["min"])
	assert.Equal(t, float64(2499), bounds["max"])
}

// --- Cart tests ---

func TestCreateAndGetCart(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createCart(t, srv)

	status, body := doJSON(t, http.MethodGet, srv.URL+"/api/carts/"+id, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, id, body["id"])
	assert.Empty(t, body["items"])

	totals := body["totals"].(map[string]any)
	assert.Equal(t, float64(0), totals["subtotal"])
	assert.Equal(t, float64(0), totals["total"])

	status, body = doJSON(t, http.MethodGet, srv.URL+"/api/carts/missing", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "cart not found", body["message"])
}

func TestAddCartItem(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createCart(t, srv)

	status, body := doJSON(t, http.MethodPost, srv.URL+"/api/carts/"+id+"/items",
		`{"product_id":"2","variant_id":"2","quantity":2}`)
	require.Equal(t, http.StatusOK, status)

	items := body["items"].([]any)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	assert.Equal(t, "2:2", item["id"])
	assert.Equal(t, float64(249), item["unit_price"])
	assert.Equal(t, float64(2), item["quantity"])

	totals := body["totals"].(map[string]any)
	assert.Equal(t, float64(498), totals["subtotal"])
	assert.Equal(t, float64(50), totals["shipping"], "below free shipping threshold")
	assert.Equal(t, float64(548), totals["total"])
	assert.Equal(t, float64(2), totals["item_count"])
}

func TestAddCartItem_Validation(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createCart(t, srv)

	tests := []struct {
		name        string
		body        string
		wantStatus  int
		wantMessage string
	}{
		{
			name:        "unknown product",
			body:        `{"product_id":"99","variant_id":"1","quantity":1}`,
			wantStatus:  http.StatusNotFound,
			wantMessage: "product not found",
		},
		{
			name:        "unknown variant",
			body:        `{"product_id":"1","variant_id":"99","quantity":1}`,
			wantStatus:  http.StatusUnprocessableEntity,
			wantMessage: "variant not found",
		},
		{
			name:        "zero quantity",
			body:        `{"product_id":"1","variant_id":"1","quantity":0}`,
			wantStatus:  http.StatusUnprocessableEntity,
			wantMessage: "quantity must be greater than 0",
		},
		{
			name:        "exceeds stock",
			body:        `{"product_id":"1","variant_id":"1","quantity":11}`,
			wantStatus:  http.StatusConflict,
			wantMessage: "requested quantity exceeds available stock",
		},
		{
			name:        "malformed body",
			body:        `{not json`,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "malformed request body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := doJSON(t, http.MethodPost, srv.URL+"/api/carts/"+id+"/items", tt.body)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantMessage, body["message"])
		})
	}
}

func TestAddCartItem_StockLimited(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createCart(t, srv)

	_, _ = doJSON(t, http.MethodPost, srv.URL+"/api/carts/"+id+"/items",
		`{"product_id":"1","variant_id":"1","quantity":8}`)
	status, body := doJSON(t, http.MethodPost, srv.URL+"/api/carts/"+id+"/items",
		`{"product_id":"1","variant_id":"1","quantity":8}`)
	require.Equal(t, http.StatusOK, status)

	assert.Equal(t, true, body["stock_limited"])
	item := body["items"].([]any)[0].(map[string]any)
	assert.Equal(t, float64(10), item["quantity"], "merged quantity clamps to stock")
}

func TestUpdateAndRemoveCartItem(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createCart(t, srv)

	_, _ = doJSON(t, http.MethodPost, srv.URL+"/api/carts/"+id+"/items",
		`{"product_id":"2","variant_id":"2","quantity":1}`)

	status, body := doJSON(t, http.MethodPatch, srv.URL+"/api/carts/"+id+"/items/2:2",
		`{"quantity":3}`)
	require.Equal(t, http.StatusOK, status)
	item := body["items"].([]any)[0].(map[string]any)
	assert.Equal(t, float64(3), item["quantity"])

	status, body = doJSON(t, http.MethodDelete, srv.URL+"/api/carts/"+id+"/items/2:2", "")
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["items"])
}

func TestApplyPromo(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createCart(t, srv)

	// Promo on an empty cart is rejected.
	status, body := doJSON(t, http.MethodPost, srv.URL+"/api/carts/"+id+"/promo",
		`{"code":"TATTVA10"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "cart is empty", body["message"])

	_, _ = doJSON(t, http.MethodPost, srv.URL+"/api/carts/"+id+"/items",
		`{"product_id":"1","variant_id":"1","quantity":1}`) // 2499

	status, body = doJSON(t, http.MethodPost, srv.URL+"/api/carts/"+id+"/promo",
		`{"code":"TATTVA10"}`)
	require.Equal(t, http.StatusOK, status)
	totals := body["totals"].(map[string]any)
	assert.Equal(t, "TATTVA10", totals["promo_code"])
	assert.Equal(t, 249.9, totals["discount"])
	// 2499 - 249.9, free shipping above threshold.
	assert.Equal(t, 2249.1, totals["total"])

	// A second code conflicts while the first stays applied.
	status, body = doJSON(t, http.MethodPost, srv.URL+"/api/carts/"+id+"/promo",
		`{"code":"SPICE5"}`)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "a promo code is already applied", body["message"])

	// Unknown codes are unprocessable.
	status, body = doJSON(t, http.MethodPost, srv.URL+"/api/carts/"+id+"/promo",
		`{"code":"BOGUS"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "invalid promo code", body["message"])

	// Missing code is a bad request.
	status, body = doJSON(t, http.MethodPost, srv.URL+"/api/carts/"+id+"/promo", `{}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "promo code required", body["message"])
}

func TestClearPromo(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createCart(t, srv)

	_, _ = doJSON(t, http.MethodPost, srv.URL+"/api/carts/"+id+"/items",
		`{"product_id":"1","variant_id":"1","quantity":1}`)
	_, _ = doJSON(t, http.MethodPost, srv.URL+"/api/carts/"+id+"/promo",
		`{"code":"TATTVA10"}`)

	status, body := doJSON(t, http.MethodDelete, srv.URL+"/api/carts/"+id+"/promo", "")
	require.Equal(t, http.StatusOK, status)
	totals := body["totals"].(map[string]any)
	assert.NotContains(t, totals, "promo_code")
	assert.Equal(t, float64(0), totals["discount"])

	// Idempotent.
	status, _ = doJSON(t, http.MethodDelete, srv.URL+"/api/carts/"+id+"/promo", "")
	assert.Equal(t, http.StatusOK, status)
}

func TestImageBaseURL(t *testing.T) {
	repo := &mockProductRepo{products: testProducts()}
	carts := cart.NewManager(nil, &mockPromoStore{}, nil)
	h := NewHandler(HandlerConfig{ImageBaseURL: "https://cdn.example.com"}, repo, carts)

	mux := http.NewServeMux()
	h.Routes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	status, body := doJSON(t, http.MethodGet, srv.URL+"/api/products/1", "")
	require.Equal(t, http.StatusOK, status)
	images := body["images"].([]any)
	require.Len(t, images, 1)
	assert.Equal(t, "https://cdn.example.com/images/saffron.jpg", images[0])
}
