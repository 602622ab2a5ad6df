package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tattva-co/storefront/internal/domain/cart"
)

const (
	loadCartSQL = `SELECT snapshot FROM carts WHERE id = $1`

	saveCartSQL = `INSERT INTO carts (id, snapshot, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (id) DO UPDATE SET snapshot = EXCLUDED.snapshot, updated_at = now()`

	deleteCartSQL = `DELETE FROM carts WHERE id = $1`
)

var _ cart.SnapshotStore = (*CartRepository)(nil)

// CartRepository implements cart.SnapshotStore over a JSONB snapshots
// table, giving carts durability across sessions and restarts.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// Load returns the stored snapshot for a cart ID, or cart.ErrCartNotFound.
func (r *CartRepository) Load(ctx context.Context, id string) ([]byte, error) {
	var data []byte
	err := r.pool.QueryRow(ctx, loadCartSQL, id).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrCartNotFound
		}
		return nil, fmt.Errorf("loading cart %q: %w", id, err)
	}
	return data, nil
}

// Save upserts the snapshot for a cart ID.
func (r *CartRepository) Save(ctx context.Context, id string, data []byte) error {
	if _, err := r.pool.Exec(ctx, saveCartSQL, id, data); err != nil {
		return fmt.Errorf("saving cart %q: %w", id, err)
	}
	return nil
}

// Delete removes the snapshot for a cart ID. Deleting an absent cart
// is not an error.
func (r *CartRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, deleteCartSQL, id); err != nil {
		return fmt.Errorf("deleting cart %q: %w", id, err)
	}
	return nil
}
