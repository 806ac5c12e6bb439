package finalize

import (
	"fmt"

	"github.com/bindalkapil/FxDPartnerERP-sub002/internal/catalog"
)

// WarningType classifies reconciliation warnings.
type WarningType string

const (
	// WarningShort means fulfilling the line would drive stock negative.
	WarningShort WarningType = "short"
	// WarningNotFound means the line's item no longer exists in the catalog.
	WarningNotFound WarningType = "not_found"
)

// Warning is one advisory reconciliation finding, attached to the line
// that caused it. Warnings never block an order on their own; the operator
// decides whether to proceed.
type Warning struct {
	Type              WarningType `json:"type"`
	LineID            string      `json:"line_id"`
	ProductID         int64       `json:"product_id"`
	ProductName       string      `json:"product_name"`
	SKUID             int64       `json:"sku_id"`
	SKUCode           string      `json:"sku_code"`
	CurrentQuantity   float64     `json:"current_quantity"`
	RequestedQuantity float64     `json:"requested_quantity"`
	ResultingQuantity float64     `json:"resulting_quantity"`
}

func (w Warning) Message() string {
	if w.Type == WarningNotFound {
		return fmt.Sprintf("item %q (sku %q) not found in catalog", w.ProductName, w.SKUCode)
	}
	return fmt.Sprintf("insufficient stock for %q (sku %q): have %.2f, requested %.2f, would leave %.2f",
		w.ProductName, w.SKUCode, w.CurrentQuantity, w.RequestedQuantity, w.ResultingQuantity)
}

type stockKey struct {
	productID int64
	skuID     int64
}

// Reconciler checks resolved order lines against one inventory snapshot.
// It reads the snapshot as-is: no locks, no reservations. Current stock may
// already be negative from a prior backorder; that is a valid starting
// state, not an error — the line simply warns because fulfilling it keeps
// the balance below zero.
type Reconciler struct {
	byKey map[stockKey]catalog.Entry
}

// NewReconciler indexes an inventory snapshot by product and SKU.
func NewReconciler(entries []catalog.Entry) *Reconciler {
	idx := make(map[stockKey]catalog.Entry, len(entries))
	for _, e := range entries {
		k := stockKey{productID: e.ProductID, skuID: e.SKUID}
		if _, ok := idx[k]; !ok {
			idx[k] = e
		}
	}
	return &Reconciler{byKey: idx}
}

// Reconcile classifies every line and returns the advisory warning set.
// An empty result means every line is fulfillable from current stock.
func (r *Reconciler) Reconcile(lines []OrderLine) []Warning {
	var warnings []Warning
	for _, line := range lines {
		entry, ok := r.byKey[stockKey{productID: line.ProductID, skuID: line.SKUID}]
		if !ok {
			warnings = append(warnings, Warning{
				Type:              WarningNotFound,
				LineID:            line.LineID,
				ProductID:         line.ProductID,
				ProductName:       line.ProductName,
				SKUID:             line.SKUID,
				SKUCode:           line.SKUCode,
				RequestedQuantity: line.Quantity,
			})
			continue
		}

		resulting := entry.AvailableQuantity - line.Quantity
		if resulting < 0 {
			warnings = append(warnings, Warning{
				Type:              WarningShort,
				LineID:            line.LineID,
				ProductID:         line.ProductID,
				ProductName:       line.ProductName,
				SKUID:             line.SKUID,
				SKUCode:           line.SKUCode,
				CurrentQuantity:   entry.AvailableQuantity,
				RequestedQuantity: line.Quantity,
				ResultingQuantity: resulting,
			})
		}
	}
	return warnings
}
