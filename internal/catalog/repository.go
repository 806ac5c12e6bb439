package catalog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads the catalog snapshot from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// QueryCatalog returns every active product/SKU pair joined with its stock
// position. The engine treats the result as one immutable snapshot.
func (r *Repository) QueryCatalog(ctx context.Context) ([]Entry, error) {
	query := `
		SELECT p.id, p.name, c.name AS category,
		       s.id, s.code, s.unit_type,
		       COALESCE(st.available_quantity, 0),
		       COALESCE(st.total_weight, 0)
		FROM products p
		JOIN categories c ON p.category_id = c.id
		JOIN product_skus s ON s.product_id = p.id
		LEFT JOIN sku_stock st ON st.sku_id = s.id
		WHERE p.is_active
		ORDER BY p.name, s.code, s.id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("catalog: query snapshot: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var available, weight pgtype.Numeric

		err := rows.Scan(
			&e.ProductID, &e.ProductName, &e.Category,
			&e.SKUID, &e.SKUCode, &e.UnitType,
			&available, &weight,
		)
		if err != nil {
			return nil, fmt.Errorf("catalog: scan snapshot row: %w", err)
		}

		if available.Valid {
			f, _ := available.Float64Value()
			e.AvailableQuantity = f.Float64
		}
		if weight.Valid {
			f, _ := weight.Float64Value()
			e.TotalWeight = f.Float64
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: read snapshot rows: %w", err)
	}

	return entries, nil
}
