package shared

// CalculateLineTotal derives the total for one order line. Line totals are
// never stored independently; every caller goes through this helper.
func CalculateLineTotal(quantity, unitPrice float64) float64 {
	return quantity * unitPrice
}
