package catalog

// Resolver answers "which concrete product/SKU does this line mean" against
// one immutable catalog snapshot. Building it from a snapshot keeps every
// Resolve call pure: the same inputs always produce the same answer.
type Resolver struct {
	bySKU map[int64][]Entry
}

// NewResolver indexes a catalog snapshot by SKU identifier. Snapshot order
// is preserved per key so the degraded first-match fallback is stable.
func NewResolver(entries []Entry) *Resolver {
	idx := make(map[int64][]Entry, len(entries))
	for _, e := range entries {
		idx[e.SKUID] = append(idx[e.SKUID], e)
	}
	return &Resolver{bySKU: idx}
}

// Resolve maps a selector key, or an explicitly chosen row, to exactly one
// catalog entry.
//
// When the operator picked a concrete row it is trusted verbatim but
// re-checked for mandatory fields; a gap yields *IncompleteEntryError and
// the line stays unresolved. With only a selector key, zero matches yield
// ErrSelectorNotFound and multiple matches yield the first row plus a
// non-nil *AmbiguityWarning. The warning path is a degraded fallback kept
// for backward compatibility, not a supported mode.
func (r *Resolver) Resolve(selectorKey int64, explicit *Entry) (Entry, *AmbiguityWarning, error) {
	if explicit != nil {
		if err := checkMandatory(*explicit); err != nil {
			return Entry{}, nil, err
		}
		return *explicit, nil, nil
	}

	matches := r.bySKU[selectorKey]
	switch len(matches) {
	case 0:
		return Entry{}, nil, ErrSelectorNotFound
	case 1:
		return matches[0], nil, nil
	}

	warn := &AmbiguityWarning{
		SelectorKey: selectorKey,
		MatchCount:  len(matches),
		Chosen:      matches[0],
	}
	return matches[0], warn, nil
}

func checkMandatory(e Entry) error {
	var missing []string
	if e.ProductID == 0 {
		missing = append(missing, "product_id")
	}
	if e.ProductName == "" {
		missing = append(missing, "product_name")
	}
	if e.SKUID == 0 {
		missing = append(missing, "sku_id")
	}
	if e.SKUCode == "" {
		missing = append(missing, "sku_code")
	}
	if len(missing) > 0 {
		return &IncompleteEntryError{Missing: missing}
	}
	return nil
}
