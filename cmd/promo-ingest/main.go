// Command promo-ingest loads bulk promo-code dumps into the database.
// Dumps are gzipped text files with one candidate code per line; a code
// counts as valid when it appears in at least two of the input files.
// Pass 1 builds a bloom filter per file concurrently, pass 2 re-reads
// each file and keeps codes the other files' filters also contain.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/tattva-co/storefront/internal/domain/promo"
	"github.com/tattva-co/storefront/internal/repository"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	minCodeLen    = 4
	maxCodeLen    = 12
)

// knownRules maps recognised codes to their discount rules; everything
// else gets the default.
var knownRules = map[string]promo.Code{
	"TATTVA10": {Type: promo.DiscountPercent, Value: decimal.NewFromInt(10), Active: true},
	"SPICE5":   {Type: promo.DiscountFixed, Value: decimal.NewFromInt(5), Active: true},
	"FREESHIP": {Type: promo.DiscountFixed, Value: decimal.NewFromInt(50), Active: true, MinOrderValue: decimal.NewFromInt(300)},
}

var defaultRule = promo.Code{
	Type:   promo.DiscountPercent,
	Value:  decimal.NewFromInt(10),
	Active: true,
}

func main() {
	var databaseURL string
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	files := flag.Args()
	if len(files) < 2 {
		slog.Error("at least two dump files are required")
		os.Exit(1)
	}

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, files, databaseURL); err != nil {
		slog.Error("promo ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("promo ingest completed successfully")
}

func run(ctx context.Context, files []string, databaseURL string) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	slog.Info("pass 1: building bloom filters", slog.Int("files", len(files)))
	filters, err := buildBloomFilters(ctx, files)
	if err != nil {
		return errors.Wrap(err, "build bloom filters")
	}

	slog.Info("pass 2: finding valid codes")
	validCodes, err := findValidCodes(ctx, files, filters)
	if err != nil {
		return errors.Wrap(err, "find valid codes")
	}

	slog.Info("valid codes found", slog.Int("count", len(validCodes)))
	if len(validCodes) == 0 {
		return nil
	}

	slog.Info("connecting to database")
	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	codes := make([]promo.Code, 0, len(validCodes))
	for code := range validCodes {
		rule, ok := knownRules[code]
		if !ok {
			rule = defaultRule
		}
		rule.Code = code
		codes = append(codes, rule)
	}

	repo := repository.NewPromoRepository(pool)
	if err := repo.InsertCodes(ctx, codes); err != nil {
		return errors.Wrap(err, "write promo codes")
	}
	return nil
}

// buildBloomFilters creates one bloom filter per file, concurrently.
func buildBloomFilters(ctx context.Context, files []string) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
			err := scanCodes(ctx, f, func(code string) {
				filter.AddString(code)
			})
			if err != nil {
				return errors.Wrapf(err, "scan %s", f)
			}
			filters[i] = filter
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return filters, nil
}

// findValidCodes re-reads each file and keeps codes that at least one
// other file's filter also contains.
func findValidCodes(ctx context.Context, files []string, filters []*bloom.BloomFilter) (map[string]struct{}, error) {
	valid := make(map[string]struct{})
	for i, f := range files {
		err := scanCodes(ctx, f, func(code string) {
			for j, filter := range filters {
				if j == i {
					continue
				}
				if filter.TestString(code) {
					valid[strings.ToUpper(code)] = struct{}{}
					return
				}
			}
		})
		if err != nil {
			return nil, errors.Wrapf(err, "scan %s", f)
		}
	}
	return valid, nil
}

// scanCodes streams a gzipped dump line by line, calling fn for each
// plausible code.
func scanCodes(ctx context.Context, path string, fn func(code string)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open")
	}
	defer f.Close()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrap(err, "gzip reader")
	}
	defer gz.Close()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		code := strings.TrimSpace(scanner.Text())
		if len(code) < minCodeLen || len(code) > maxCodeLen {
			continue
		}
		fn(code)
	}
	return errors.Wrap(scanner.Err(), "scan")
}
