package api

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/tattva-co/storefront/internal/domain/cart"
	"github.com/tattva-co/storefront/internal/domain/catalog"
	"github.com/tattva-co/storefront/internal/domain/promo"
)

// writeJSON encodes a response body with fn and writes it with the
// given status.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, fn func(e *jx.Encoder)) {
	var e jx.Encoder
	fn(&e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(e.Bytes()); err != nil {
		zctx.From(r.Context()).Debug("write response", zap.Error(err))
	}
}

// writeError writes the {code, message} error envelope.
func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, r, status, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("code")
		e.Int(status)
		e.FieldStart("message")
		e.Str(message)
		e.ObjEnd()
	})
}

// writeDomainError maps domain failures to HTTP statuses. Anything
// unrecognized is a 500 with the details kept out of the response.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "product not found")
	case errors.Is(err, cart.ErrCartNotFound):
		writeError(w, r, http.StatusNotFound, "cart not found")
	case errors.Is(err, cart.ErrOutOfStock):
		writeError(w, r, http.StatusConflict, "requested quantity exceeds available stock")
	case errors.Is(err, cart.ErrInvalidQuantity):
		writeError(w, r, http.StatusUnprocessableEntity, "quantity must be greater than 0")
	case errors.Is(err, cart.ErrEmptyCart):
		writeError(w, r, http.StatusUnprocessableEntity, "cart is empty")
	case errors.Is(err, cart.ErrPromoAlreadyApplied):
		writeError(w, r, http.StatusConflict, "a promo code is already applied")
	case errors.Is(err, promo.ErrInvalidPromo):
		writeError(w, r, http.StatusUnprocessableEntity, "invalid promo code")
	case errors.Is(err, promo.ErrPromoExpired):
		writeError(w, r, http.StatusUnprocessableEntity, "promo code expired")
	case errors.Is(err, promo.ErrPromoMinimumNotMet):
		writeError(w, r, http.StatusUnprocessableEntity, "cart subtotal is below the promo code minimum")
	default:
		zctx.From(r.Context()).Error("internal error", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

// encodeDecimal writes a decimal as a bare JSON number.
func encodeDecimal(e *jx.Encoder, d interface{ String() string }) {
	e.Raw([]byte(d.String()))
}
