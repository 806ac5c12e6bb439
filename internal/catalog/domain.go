package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Entry is one row of the sellable catalog: a product/SKU pair joined with
// its live stock position. AvailableQuantity is signed; a negative value
// means the SKU is already backordered, which is a valid starting state.
type Entry struct {
	ProductID         int64   `json:"product_id" db:"product_id"`
	ProductName       string  `json:"product_name" db:"product_name"`
	Category          string  `json:"category" db:"category"`
	SKUID             int64   `json:"sku_id" db:"sku_id"`
	SKUCode           string  `json:"sku_code" db:"sku_code"`
	UnitType          string  `json:"unit_type" db:"unit_type"`
	AvailableQuantity float64 `json:"available_quantity" db:"available_quantity"`
	TotalWeight       float64 `json:"total_weight" db:"total_weight"`
}

// Querier supplies a full snapshot of the current catalog.
type Querier interface {
	QueryCatalog(ctx context.Context) ([]Entry, error)
}

// ErrSelectorNotFound indicates no catalog row matches the selector key.
var ErrSelectorNotFound = errors.New("catalog entry not found for selector")

// IncompleteEntryError reports an explicitly chosen catalog row that is
// missing mandatory fields. The affected line stays unresolved.
type IncompleteEntryError struct {
	Missing []string
}

func (e *IncompleteEntryError) Error() string {
	return fmt.Sprintf("catalog entry incomplete: missing %s", strings.Join(e.Missing, ", "))
}

// AmbiguityWarning flags a selector key matched by more than one catalog
// row. The duplicate key is a data-integrity defect in the catalog; the
// resolver falls back to the first match for backward compatibility but the
// warning must reach the operator or an administrator.
type AmbiguityWarning struct {
	SelectorKey int64
	MatchCount  int
	Chosen      Entry
}

func (w *AmbiguityWarning) Message() string {
	return fmt.Sprintf("sku %d matches %d catalog rows; using product %q sku %q — fix the duplicate catalog data",
		w.SelectorKey, w.MatchCount, w.Chosen.ProductName, w.Chosen.SKUCode)
}
