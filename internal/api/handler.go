// Package api exposes the catalog and cart engines over HTTP. Handlers
// are hand-written against net/http with go-faster/jx for JSON.
package api

import (
	"net/http"

	"github.com/tattva-co/storefront/internal/domain/cart"
	"github.com/tattva-co/storefront/internal/domain/catalog"
)

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// ImageBaseURL is prepended to relative image paths in product
	// responses. When empty, paths are returned as stored.
	ImageBaseURL string
}

// Handler routes API requests to the catalog filter engine and the
// cart manager.
type Handler struct {
	products     catalog.Repository
	carts        *cart.Manager
	imageBaseURL string
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(cfg HandlerConfig, products catalog.Repository, carts *cart.Manager) *Handler {
	return &Handler{
		products:     products,
		carts:        carts,
		imageBaseURL: cfg.ImageBaseURL,
	}
}

// Routes registers all API endpoints on the given mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.HandleFunc("GET /api/products/{id}", h.GetProduct)
	mux.HandleFunc("GET /api/facets", h.GetFacets)

	mux.HandleFunc("POST /api/carts", h.CreateCart)
	mux.HandleFunc("GET /api/carts/{id}", h.GetCart)
	mux.HandleFunc("POST /api/carts/{id}/items", h.AddCartItem)
	mux.HandleFunc("PATCH /api/carts/{id}/items/{itemID}", h.UpdateCartItem)
	mux.HandleFunc("DELETE /api/carts/{id}/items/{itemID}", h.RemoveCartItem)
	mux.HandleFunc("POST /api/carts/{id}/promo", h.ApplyPromo)
	mux.HandleFunc("DELETE /api/carts/{id}/promo", h.ClearPromo)
}
