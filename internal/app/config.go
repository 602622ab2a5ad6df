package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Config holds the complete application configuration, loadable from
// environment variables (TATTVA_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (TATTVA_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	ImageBaseURL string `default:"" usage:"Base URL for product images (e.g. https://cdn.example.com/images)" flag:"image-base-url"`
	Shipping     ShippingConfig
	Tax          TaxConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// ShippingConfig controls the built-in flat-rate shipping provider.
type ShippingConfig struct {
	FlatFee       float64 `default:"50"  usage:"Flat shipping fee below the free threshold" flag:"shipping-fee"`
	FreeThreshold float64 `default:"600" usage:"Order value from which shipping is free" flag:"shipping-free-threshold"`
	ETADays       int     `default:"5"   usage:"Estimated delivery days" flag:"shipping-eta-days"`
}

// TaxConfig controls the pass-through tax rate applied to the
// discounted subtotal. Zero disables tax.
type TaxConfig struct {
	RatePercent float64 `default:"0" usage:"Tax rate in percent applied to the discounted subtotal" flag:"tax-rate"`
}

// RateLimitConfig controls the per-client rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// FlatFeeDecimal returns the configured flat fee as a decimal.
func (c ShippingConfig) FlatFeeDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.FlatFee)
}

// FreeThresholdDecimal returns the free-shipping threshold as a decimal.
func (c ShippingConfig) FreeThresholdDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.FreeThreshold)
}

// LoadConfig loads configuration from environment variables, YAML
// config files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "TATTVA",
		Files:     []string{"config.yaml", "/etc/tattva/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set TATTVA_DATABASE_URL or DATABASE_URL")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables
// (Railway, Render, etc.) that use standard names like DATABASE_URL
// and PORT onto the TATTVA_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
