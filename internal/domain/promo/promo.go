// Package promo defines promotional discount codes and their
// validation and discount arithmetic.
package promo

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported discount strategies.
type DiscountType string

const (
	// DiscountPercent applies a percentage discount to the cart subtotal.
	DiscountPercent DiscountType = "percent"
	// DiscountFixed applies a fixed monetary discount capped at the subtotal.
	DiscountFixed DiscountType = "fixed"
)

var (
	// ErrInvalidPromo is returned when a code is not found or inactive.
	ErrInvalidPromo = errors.New("invalid promo code")
	// ErrPromoExpired is returned when a code is past its expiry.
	ErrPromoExpired = errors.New("promo code expired")
	// ErrPromoMinimumNotMet is returned when the cart subtotal is below
	// the code's minimum order value.
	ErrPromoMinimumNotMet = errors.New("promo code minimum order value not met")
)

// Code describes a promotional discount code and its eligibility
// constraints. Codes match case-insensitively.
type Code struct {
	Code          string
	Type          DiscountType
	Value         decimal.Decimal
	Active        bool
	ExpiresAt     *time.Time
	MinOrderValue decimal.Decimal
}

// Store provides lookup of promo codes. FindByCode matches
// case-insensitively and returns ErrInvalidPromo when no code exists.
type Store interface {
	FindByCode(ctx context.Context, code string) (*Code, error)
}

// check is one step of the validation pipeline.
type check func(c *Code, subtotal decimal.Decimal, now time.Time) error

// checks run in a fixed order; the first failure wins.
var checks = []check{
	func(c *Code, _ decimal.Decimal, _ time.Time) error {
		if !c.Active {
			return ErrInvalidPromo
		}
		return nil
	},
	func(c *Code, _ decimal.Decimal, now time.Time) error {
		if c.ExpiresAt != nil && now.After(*c.ExpiresAt) {
			return ErrPromoExpired
		}
		return nil
	},
	func(c *Code, subtotal decimal.Decimal, _ time.Time) error {
		if c.MinOrderValue.IsPositive() && subtotal.LessThan(c.MinOrderValue) {
			return ErrPromoMinimumNotMet
		}
		return nil
	},
}

// Validate runs the ordered eligibility checks against the given cart
// subtotal, short-circuiting on the first failure.
func Validate(c *Code, subtotal decimal.Decimal, now time.Time) error {
	for _, chk := range checks {
		if err := chk(c, subtotal, now); err != nil {
			return err
		}
	}
	return nil
}
