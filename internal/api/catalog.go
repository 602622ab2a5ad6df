package api

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/tattva-co/storefront/internal/domain/catalog"
)

// ListProducts runs the catalog filter engine over the full catalog
// with criteria parsed from query parameters and returns the filtered,
// ordered list.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	result := catalog.FilterAndSort(products, criteriaFromQuery(r.URL.Query()))

	writeJSON(w, r, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("products")
		e.ArrStart()
		for _, p := range result.Products {
			h.encodeProduct(e, p)
		}
		e.ArrEnd()
		e.FieldStart("count")
		e.Int(result.Count)
		e.ObjEnd()
	})
}

// GetProduct returns a single product by ID.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, func(e *jx.Encoder) {
		h.encodeProduct(e, *p)
	})
}

// GetFacets returns the derived filterable dimensions of the current
// catalog: category list and price slider bounds.
func (h *Handler) GetFacets(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	categories := catalog.Categories(products)
	min, max := catalog.PriceBounds(products)

	writeJSON(w, r, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("categories")
		e.ArrStart()
		for _, c := range categories {
			e.Str(c)
		}
		e.ArrEnd()
		e.FieldStart("price_bounds")
		e.ObjStart()
		e.FieldStart("min")
		encodeDecimal(e, min)
		e.FieldStart("max")
		encodeDecimal(e, max)
		e.ObjEnd()
		e.ObjEnd()
	})
}

// criteriaFromQuery maps query parameters onto filter criteria.
// Unparseable numeric values are ignored rather than rejected; the
// engine itself normalizes an inverted range. The price range applies
// as soon as either bound is present, the other defaulting to zero or
// the open upper bound.
func criteriaFromQuery(q url.Values) catalog.Criteria {
	c := catalog.Criteria{
		Category:    q.Get("category"),
		SearchQuery: q.Get("q"),
		InStockOnly: boolParam(q.Get("in_stock")),
		OnSale:      boolParam(q.Get("on_sale")),
		Tags:        q["tag"],
		Origins:     q["origin"],
		Grinds:      q["grind"],
		Grades:      q["grade"],
		Sizes:       q["size"],
	}

	minRaw, maxRaw := q.Get("min_price"), q.Get("max_price")
	if minRaw != "" || maxRaw != "" {
		pr := catalog.PriceRange{Min: decimal.Zero, Max: openUpperBound}
		if d, err := decimal.NewFromString(minRaw); err == nil && minRaw != "" {
			pr.Min = d
		}
		if d, err := decimal.NewFromString(maxRaw); err == nil && maxRaw != "" {
			pr.Max = d
		}
		c.PriceRange = &pr
	}

	if raw := q.Get("min_rating"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			c.MinRating = &v
		}
	}

	switch key := catalog.SortKey(q.Get("sort")); key {
	case catalog.SortName, catalog.SortPriceAsc, catalog.SortPriceDesc,
		catalog.SortRating, catalog.SortNewest:
		c.SortBy = key
	}

	return c
}

// openUpperBound stands in for "no maximum" when only min_price is given.
var openUpperBound = decimal.New(1, 15)

func boolParam(v string) bool {
	return v == "true" || v == "1"
}

func (h *Handler) encodeProduct(e *jx.Encoder, p catalog.Product) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("description")
	e.Str(p.Description)
	e.FieldStart("category")
	e.Str(p.Category)

	e.FieldStart("tags")
	e.ArrStart()
	for _, t := range p.Tags {
		e.Str(t)
	}
	e.ArrEnd()

	e.FieldStart("images")
	e.ArrStart()
	for _, img := range p.Images {
		e.Str(h.imageBaseURL + img)
	}
	e.ArrEnd()

	if p.Origin != "" {
		e.FieldStart("origin")
		e.Str(p.Origin)
	}
	if p.Grind != "" {
		e.FieldStart("grind")
		e.Str(p.Grind)
	}
	if p.Grade != "" {
		e.FieldStart("grade")
		e.Str(p.Grade)
	}

	if rp, ok := p.RepresentativePrice(); ok {
		e.FieldStart("price")
		encodeDecimal(e, rp)
	}
	e.FieldStart("rating")
	e.Float64(p.AverageRating())
	e.FieldStart("review_count")
	e.Int(len(p.Reviews))
	e.FieldStart("in_stock")
	e.Bool(p.InStock())

	e.FieldStart("variants")
	e.ArrStart()
	for _, v := range p.Variants {
		e.ObjStart()
		e.FieldStart("id")
		e.Str(v.ID)
		e.FieldStart("label")
		e.Str(v.Label)
		e.FieldStart("price")
		encodeDecimal(e, v.Price)
		if v.SalePrice != nil {
			e.FieldStart("sale_price")
			encodeDecimal(e, *v.SalePrice)
		}
		e.FieldStart("stock")
		e.Int(v.Stock)
		e.ObjEnd()
	}
	e.ArrEnd()

	e.ObjEnd()
}
