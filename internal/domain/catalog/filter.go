package catalog

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortKey selects the ordering applied after filtering.
type SortKey string

const (
	SortNone      SortKey = ""
	SortName      SortKey = "name"
	SortPriceAsc  SortKey = "price-asc"
	SortPriceDesc SortKey = "price-desc"
	SortRating    SortKey = "rating"
	SortNewest    SortKey = "newest"
)

// CategoryAll disables category filtering.
const CategoryAll = "All"

// PriceRange is an inclusive [Min, Max] price constraint.
type PriceRange struct {
	Min decimal.Decimal
	Max decimal.Decimal
}

// Criteria describes the shopper's current filter and sort selection.
// It is a value object recreated on every interaction; the zero value
// matches everything.
type Criteria struct {
	Category    string
	SearchQuery string
	PriceRange  *PriceRange
	MinRating   *float64
	InStockOnly bool
	OnSale      bool
	SortBy      SortKey

	// Facet filters carried over from the storefront's sidebar.
	// Tags requires every listed tag; the rest match on membership.
	Tags    []string
	Origins []string
	Grinds  []string
	Grades  []string
	Sizes   []string
}

// Result holds the filtered, ordered product list.
type Result struct {
	Products []Product
	Count    int
}

// FilterAndSort applies the criteria's filter stages in fixed order and
// then the requested sort. It never mutates its inputs and is
// deterministic: identical inputs yield element-wise identical output.
func FilterAndSort(products []Product, c Criteria) Result {
	c = c.normalize()

	result := make([]Product, 0, len(products))
	for _, p := range products {
		if c.matches(p) {
			result = append(result, p)
		}
	}

	sortProducts(result, c.SortBy)

	return Result{Products: result, Count: len(result)}
}

// normalize repairs malformed criteria instead of rejecting them:
// an inverted price range is swapped and negative bounds are clamped
// to zero.
func (c Criteria) normalize() Criteria {
	if c.PriceRange != nil {
		pr := *c.PriceRange
		if pr.Min.IsNegative() {
			pr.Min = decimal.Zero
		}
		if pr.Max.IsNegative() {
			pr.Max = decimal.Zero
		}
		if pr.Min.GreaterThan(pr.Max) {
			pr.Min, pr.Max = pr.Max, pr.Min
		}
		c.PriceRange = &pr
	}
	return c
}

func (c Criteria) matches(p Product) bool {
	if c.Category != "" && c.Category != CategoryAll && p.Category != c.Category {
		return false
	}

	if c.SearchQuery != "" && !matchesQuery(p, c.SearchQuery) {
		return false
	}

	// A product matches the price range when any variant's effective
	// price falls inside it. Products with no variants have no price to
	// test and pass through.
	if c.PriceRange != nil && len(p.Variants) > 0 {
		inRange := false
		for _, v := range p.Variants {
			ep := v.EffectivePrice()
			if ep.GreaterThanOrEqual(c.PriceRange.Min) && ep.LessThanOrEqual(c.PriceRange.Max) {
				inRange = true
				break
			}
		}
		if !inRange {
			return false
		}
	}

	// Inclusive threshold: a product averaging exactly MinRating stays.
	// A zero threshold filters nothing, so review-less products pass.
	if c.MinRating != nil && p.AverageRating() < *c.MinRating {
		return false
	}

	if c.InStockOnly && !p.InStock() {
		return false
	}

	if c.OnSale && !p.OnSale() {
		return false
	}

	for _, tag := range c.Tags {
		if !p.HasTag(tag) {
			return false
		}
	}
	if len(c.Origins) > 0 && (p.Origin == "" || !contains(c.Origins, p.Origin)) {
		return false
	}
	if len(c.Grinds) > 0 && (p.Grind == "" || !contains(c.Grinds, p.Grind)) {
		return false
	}
	if len(c.Grades) > 0 && (p.Grade == "" || !contains(c.Grades, p.Grade)) {
		return false
	}
	if len(c.Sizes) > 0 {
		found := false
		for _, v := range p.Variants {
			if contains(c.Sizes, v.Label) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}

func matchesQuery(p Product, query string) bool {
	q := strings.ToLower(query)
	if strings.Contains(strings.ToLower(p.Name), q) ||
		strings.Contains(strings.ToLower(p.Description), q) ||
		strings.Contains(strings.ToLower(p.Category), q) {
		return true
	}
	for _, tag := range p.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

func contains(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

var (
	collatorOnce sync.Once
	collator     *collate.Collator
	collatorMu   sync.Mutex
)

// compareNames is a locale-aware string comparison for the name sort.
// The collator is not safe for concurrent use, so calls are serialized.
func compareNames(a, b string) int {
	collatorOnce.Do(func() {
		collator = collate.New(language.English, collate.IgnoreCase)
	})
	collatorMu.Lock()
	defer collatorMu.Unlock()
	return collator.CompareString(a, b)
}

// sortProducts orders the slice in place. All sorts are stable so that
// ties keep the catalog's original order.
func sortProducts(products []Product, key SortKey) {
	switch key {
	case SortName:
		sort.SliceStable(products, func(i, j int) bool {
			return compareNames(products[i].Name, products[j].Name) < 0
		})
	case SortPriceAsc:
		sort.SliceStable(products, func(i, j int) bool {
			return comparePrices(products[i], products[j]) < 0
		})
	case SortPriceDesc:
		sort.SliceStable(products, func(i, j int) bool {
			return comparePrices(products[i], products[j]) > 0
		})
	case SortRating:
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].AverageRating() > products[j].AverageRating()
		})
	case SortNewest:
		sort.SliceStable(products, func(i, j int) bool {
			return newerID(products[i].ID, products[j].ID)
		})
	}
}

// comparePrices orders products by representative price. Products with
// no variants have no price and sort after priced ones regardless of
// direction.
func comparePrices(a, b Product) int {
	pa, okA := a.RepresentativePrice()
	pb, okB := b.RepresentativePrice()
	switch {
	case !okA && !okB:
		return 0
	case !okA:
		return 1
	case !okB:
		return -1
	}
	return pa.Cmp(pb)
}

// newerID reports whether id a is newer than b. Higher identifiers are
// newer; numeric comparison applies when both parse as integers,
// otherwise plain string order.
func newerID(a, b string) bool {
	na, errA := strconv.ParseInt(a, 10, 64)
	nb, errB := strconv.ParseInt(b, 10, 64)
	if errA == nil && errB == nil {
		return na > nb
	}
	return a > b
}

// Categories returns "All" followed by each product category in
// first-seen order, de-duplicated.
func Categories(products []Product) []string {
	seen := make(map[string]struct{}, len(products))
	out := []string{CategoryAll}
	for _, p := range products {
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	return out
}

// PriceBounds returns the floor of the lowest and the ceiling of the
// highest representative price across the catalog. An empty or
// entirely priceless catalog yields the default [0, 100] slider bounds.
func PriceBounds(products []Product) (min, max decimal.Decimal) {
	found := false
	for _, p := range products {
		rp, ok := p.RepresentativePrice()
		if !ok {
			continue
		}
		if !found {
			min, max = rp, rp
			found = true
			continue
		}
		if rp.LessThan(min) {
			min = rp
		}
		if rp.GreaterThan(max) {
			max = rp
		}
	}
	if !found {
		return decimal.Zero, decimal.NewFromInt(100)
	}
	return min.Floor(), max.Ceil()
}
