// Command seed-catalog loads products and promo codes from JSON files
// into the database. It is idempotent: existing products are replaced
// and existing promo codes are kept.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/tattva-co/storefront/internal/domain/promo"
	"github.com/tattva-co/storefront/internal/repository"
)

type productJSON struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
	Images      []string `json:"images"`
	Origin      string   `json:"origin"`
	Grind       string   `json:"grind"`
	Grade       string   `json:"grade"`
	Variants    []struct {
		ID        string           `json:"id"`
		Label     string           `json:"label"`
		Price     decimal.Decimal  `json:"price"`
		SalePrice *decimal.Decimal `json:"sale_price"`
		Stock     int              `json:"stock"`
	} `json:"variants"`
	Reviews []struct {
		Author   string `json:"author"`
		Rating   int    `json:"rating"`
		Comment  string `json:"comment"`
		Verified bool   `json:"verified"`
	} `json:"reviews"`
}

type promoJSON struct {
	Code          string          `json:"code"`
	Type          string          `json:"type"`
	Value         decimal.Decimal `json:"value"`
	Active        bool            `json:"active"`
	ExpiresAt     *time.Time      `json:"expires_at"`
	MinOrderValue decimal.Decimal `json:"min_order_value"`
}

func main() {
	var (
		databaseURL  string
		productsFile string
		promosFile   string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&promosFile, "promos-file", "db/seed/promos.json", "path to promo codes JSON file (skipped when absent)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, promosFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, promosFile string) error {
	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products file")
	}

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, pool, products); err != nil {
		return err
	}
	slog.Info("products seeded", slog.Int("count", len(products)))

	if err := seedPromos(ctx, pool, promosFile); err != nil {
		return err
	}
	return nil
}

func seedPromos(ctx context.Context, pool *pgxpool.Pool, promosFile string) error {
	data, err := os.ReadFile(promosFile)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Info("no promos file, skipping", slog.String("path", promosFile))
			return nil
		}
		return errors.Wrap(err, "read promos file")
	}

	var entries []promoJSON
	if err := json.Unmarshal(data, &entries); err != nil {
		return errors.Wrap(err, "parse promos file")
	}

	codes := make([]promo.Code, 0, len(entries))
	for _, e := range entries {
		codes = append(codes, promo.Code{
			Code:          e.Code,
			Type:          promo.DiscountType(e.Type),
			Value:         e.Value,
			Active:        e.Active,
			ExpiresAt:     e.ExpiresAt,
			MinOrderValue: e.MinOrderValue,
		})
	}

	if err := repository.NewPromoRepository(pool).InsertCodes(ctx, codes); err != nil {
		return errors.Wrap(err, "insert promo codes")
	}
	slog.Info("promo codes seeded", slog.Int("count", len(codes)))
	return nil
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool, products []productJSON) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	for _, p := range products {
		// Replace semantics: cascade wipes old variants and reviews.
		if _, err := tx.Exec(ctx, `DELETE FROM products WHERE id = $1`, p.ID); err != nil {
			return errors.Wrapf(err, "delete product %s", p.ID)
		}

		_, err := tx.Exec(ctx,
			`INSERT INTO products (id, name, description, category, tags, images, origin, grind, grade)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			p.ID, p.Name, p.Description, p.Category, p.Tags, p.Images, p.Origin, p.Grind, p.Grade)
		if err != nil {
			return errors.Wrapf(err, "insert product %s", p.ID)
		}

		for _, v := range p.Variants {
			_, err := tx.Exec(ctx,
				`INSERT INTO variants (id, product_id, label, price, sale_price, stock)
				 VALUES ($1, $2, $3, $4, $5, $6)`,
				v.ID, p.ID, v.Label, v.Price, v.SalePrice, v.Stock)
			if err != nil {
				return errors.Wrapf(err, "insert variant %s/%s", p.ID, v.ID)
			}
		}

		for _, r := range p.Reviews {
			_, err := tx.Exec(ctx,
				`INSERT INTO reviews (product_id, author, rating, comment, verified)
				 VALUES ($1, $2, $3, $4, $5)`,
				p.ID, r.Author, r.Rating, r.Comment, r.Verified)
			if err != nil {
				return errors.Wrapf(err, "insert review for %s", p.ID)
			}
		}
	}

	return errors.Wrap(tx.Commit(ctx), "commit")
}
