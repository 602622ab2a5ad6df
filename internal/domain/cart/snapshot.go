package cart

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
)

// snapshot is the serialized form of a cart. Only the applied code
// string is stored; Restore re-resolves it against the promo store so
// a code revoked between sessions silently drops off.
type snapshot struct {
	Items     []LineItem `json:"items"`
	PromoCode string     `json:"promo_code,omitempty"`
}

// Snapshot serializes the cart's line items and applied promo code for
// durable caching. The storage mechanism itself is the caller's.
func (e *Engine) Snapshot() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := snapshot{Items: e.items}
	if e.applied != nil {
		s.PromoCode = e.applied.Code
	}

	data, err := json.Marshal(s)
	if err != nil {
		return nil, errors.Wrap(err, "marshal cart snapshot")
	}
	return data, nil
}

// Restore replaces the cart's state with a previously taken snapshot.
func (e *Engine) Restore(ctx context.Context, data []byte) error {
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.Wrap(err, "unmarshal cart snapshot")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.items = s.Items
	e.applied = nil
	if s.PromoCode != "" && len(s.Items) > 0 {
		if c, err := e.promos.FindByCode(ctx, s.PromoCode); err == nil {
			e.applied = c
		}
	}
	return nil
}
