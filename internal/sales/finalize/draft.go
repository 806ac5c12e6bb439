package finalize

import (
	"github.com/google/uuid"

	"github.com/bindalkapil/FxDPartnerERP-sub002/internal/catalog"
	"github.com/bindalkapil/FxDPartnerERP-sub002/internal/sales/payments"
	"github.com/bindalkapil/FxDPartnerERP-sub002/internal/sales/shared"
)

// OrderLine is one resolved line of an in-progress order. LineTotal is
// always derived from quantity and unit price, never set independently.
type OrderLine struct {
	LineID      string  `json:"line_id"`
	ProductID   int64   `json:"product_id"`
	ProductName string  `json:"product_name"`
	SKUID       int64   `json:"sku_id"`
	SKUCode     string  `json:"sku_code"`
	Quantity    float64 `json:"quantity"`
	UnitType    string  `json:"unit_type"`
	UnitPrice   float64 `json:"unit_price"`
	LineTotal   float64 `json:"line_total"`
}

// Totals holds the computed money figures for one draft. Breakdown is a
// projection of the latest allocator run, refreshed on every change to the
// instrument set or the order total.
type Totals struct {
	OrderTotal    float64            `json:"order_total"`
	TotalQuantity float64            `json:"total_quantity"`
	Breakdown     payments.Breakdown `json:"breakdown"`
}

// Draft is the transient aggregate owned by exactly one finalize attempt.
// It is discarded on abort and consumed on successful submission.
type Draft struct {
	ID          uuid.UUID                  `json:"id"`
	CustomerID  int64                      `json:"customer_id"`
	Lines       []OrderLine                `json:"lines"`
	Instruments []payments.Instrument      `json:"instruments"`
	Profile     payments.CreditProfile     `json:"profile"`
	Totals      Totals                     `json:"totals"`
	Warnings    []Warning                  `json:"warnings,omitempty"`
	Ambiguities []catalog.AmbiguityWarning `json:"ambiguities,omitempty"`
	Notes       *string                    `json:"notes,omitempty"`
	CreatedBy   int64                      `json:"created_by"`
}

func newLine(entry catalog.Entry, quantity, unitPrice float64) OrderLine {
	return OrderLine{
		LineID:      uuid.NewString(),
		ProductID:   entry.ProductID,
		ProductName: entry.ProductName,
		SKUID:       entry.SKUID,
		SKUCode:     entry.SKUCode,
		Quantity:    quantity,
		UnitType:    entry.UnitType,
		UnitPrice:   unitPrice,
		LineTotal:   shared.CalculateLineTotal(quantity, unitPrice),
	}
}

func (d *Draft) recomputeTotals() {
	var total, qty float64
	for _, line := range d.Lines {
		total += line.LineTotal
		qty += line.Quantity
	}
	d.Totals.OrderTotal = total
	d.Totals.TotalQuantity = qty
}
