package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tattva-co/storefront/internal/domain/promo"
)

const (
	getPromoSQL = `SELECT code, discount_type, value, active, expires_at, min_order_value
		FROM promo_codes WHERE code = UPPER($1)`

	insertPromoSQL = `INSERT INTO promo_codes (code, discount_type, value, active, expires_at, min_order_value)
		VALUES (UPPER($1), $2, $3, $4, $5, $6)
		ON CONFLICT (code) DO NOTHING`
)

var _ promo.Store = (*PromoRepository)(nil)

// PromoRepository implements promo.Store backed by PostgreSQL. Codes
// are stored upper-cased; lookups apply UPPER() on the parameter so
// matching is case-insensitive.
type PromoRepository struct {
	pool *pgxpool.Pool
}

// NewPromoRepository returns a PromoRepository that uses the given pool.
func NewPromoRepository(pool *pgxpool.Pool) *PromoRepository {
	return &PromoRepository{pool: pool}
}

// FindByCode looks up a promo code. Returns promo.ErrInvalidPromo when
// no matching code exists.
func (r *PromoRepository) FindByCode(ctx context.Context, code string) (*promo.Code, error) {
	rows, err := r.pool.Query(ctx, getPromoSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding promo code %q: %w", code, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanPromo)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, promo.ErrInvalidPromo
		}
		return nil, fmt.Errorf("finding promo code %q: %w", code, err)
	}
	return &c, nil
}

// InsertCodes bulk-inserts promo codes inside one transaction,
// skipping codes that already exist.
func (r *PromoRepository) InsertCodes(ctx context.Context, codes []promo.Code) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin promo insert: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	for _, c := range codes {
		_, err := tx.Exec(ctx, insertPromoSQL,
			c.Code, string(c.Type), c.Value, c.Active, c.ExpiresAt, c.MinOrderValue)
		if err != nil {
			return fmt.Errorf("inserting promo code %q: %w", c.Code, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit promo insert: %w", err)
	}
	return nil
}

func scanPromo(row pgx.CollectableRow) (promo.Code, error) {
	var (
		c         promo.Code
		dtype     string
		expiresAt *time.Time
	)
	err := row.Scan(&c.Code, &dtype, &c.Value, &c.Active, &expiresAt, &c.MinOrderValue)
	c.Type = promo.DiscountType(dtype)
	c.ExpiresAt = expiresAt
	return c, err
}
