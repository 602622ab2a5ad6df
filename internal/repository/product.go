package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/tattva-co/storefront/internal/domain/catalog"
)

const (
	listProductsSQL = `SELECT id, name, description, category, tags, images, origin, grind, grade
		FROM products ORDER BY id`

	getProductSQL = `SELECT id, name, description, category, tags, images, origin, grind, grade
		FROM products WHERE id = $1`

	listVariantsSQL = `SELECT product_id, id, label, price, sale_price, stock
		FROM variants ORDER BY product_id, id`

	getVariantsSQL = `SELECT product_id, id, label, price, sale_price, stock
		FROM variants WHERE product_id = $1 ORDER BY id`

	listReviewsSQL = `SELECT product_id, author, rating, comment, created_at::text, helpful, verified
		FROM reviews ORDER BY product_id, id`

	getReviewsSQL = `SELECT product_id, author, rating, comment, created_at::text, helpful, verified
		FROM reviews WHERE product_id = $1 ORDER BY id`
)

var _ catalog.Repository = (*ProductRepository)(nil)

// ProductRepository implements catalog.Repository backed by PostgreSQL.
// Products are assembled from three ordered queries; variants and
// reviews keep their row order within each product.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns the whole catalog with variants and reviews attached.
func (r *ProductRepository) List(ctx context.Context) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}

	index := make(map[string]int, len(products))
	for i, p := range products {
		index[p.ID] = i
	}

	variants, err := r.queryVariants(ctx, listVariantsSQL)
	if err != nil {
		return nil, err
	}
	for _, v := range variants {
		if i, ok := index[v.productID]; ok {
			products[i].Variants = append(products[i].Variants, v.Variant)
		}
	}

	reviews, err := r.queryReviews(ctx, listReviewsSQL)
	if err != nil {
		return nil, err
	}
	for _, rv := range reviews {
		if i, ok := index[rv.productID]; ok {
			products[i].Reviews = append(products[i].Reviews, rv.Review)
		}
	}

	return products, nil
}

// GetByID returns a single product with variants and reviews attached.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*catalog.Product, error) {
	rows, err := r.pool.Query(ctx, getProductSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	variants, err := r.queryVariants(ctx, getVariantsSQL, id)
	if err != nil {
		return nil, err
	}
	for _, v := range variants {
		p.Variants = append(p.Variants, v.Variant)
	}

	reviews, err := r.queryReviews(ctx, getReviewsSQL, id)
	if err != nil {
		return nil, err
	}
	for _, rv := range reviews {
		p.Reviews = append(p.Reviews, rv.Review)
	}

	return &p, nil
}

func scanProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var p catalog.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Category,
		&p.Tags, &p.Images, &p.Origin, &p.Grind, &p.Grade,
	)
	return p, err
}

type variantRow struct {
	productID string
	catalog.Variant
}

func (r *ProductRepository) queryVariants(ctx context.Context, sql string, args ...any) ([]variantRow, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("listing variants: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (variantRow, error) {
		var (
			v    variantRow
			sale *decimal.Decimal
		)
		err := row.Scan(&v.productID, &v.ID, &v.Label, &v.Price, &sale, &v.Stock)
		v.SalePrice = sale
		return v, err
	})
	if err != nil {
		return nil, fmt.Errorf("listing variants: %w", err)
	}
	return out, nil
}

type reviewRow struct {
	productID string
	catalog.Review
}

func (r *ProductRepository) queryReviews(ctx context.Context, sql string, args ...any) ([]reviewRow, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("listing reviews: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (reviewRow, error) {
		var rv reviewRow
		err := row.Scan(&rv.productID, &rv.Author, &rv.Rating, &rv.Comment, &rv.CreatedAt, &rv.Helpful, &rv.Verified)
		return rv, err
	})
	if err != nil {
		return nil, fmt.Errorf("listing reviews: %w", err)
	}
	return out, nil
}
