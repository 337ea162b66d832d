package model

import "github.com/shopspring/decimal"

// SearchCriteria filters the catalog. All set fields are AND-combined;
// the zero value matches every book. Year and price accept either an
// exact value or an inclusive [From, To] range.
type SearchCriteria struct {
	Type      string
	Title     string
	Publisher string
	Author    string

	Year     *int
	YearFrom *int
	YearTo   *int

	Price     *decimal.Decimal
	PriceFrom *decimal.Decimal
	PriceTo   *decimal.Decimal

	OrderBy    string
	Descending bool
}

// SortableColumns are the columns accepted for SearchCriteria.OrderBy.
var SortableColumns = map[string]struct{}{
	"id":        {},
	"type":      {},
	"title":     {},
	"publisher": {},
	"year":      {},
	"author":    {},
	"price":     {},
	"total":     {},
	"stock":     {},
}
