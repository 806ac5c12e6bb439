package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bindalkapil/FxDPartnerERP-sub002/internal/catalog"
	"github.com/bindalkapil/FxDPartnerERP-sub002/internal/platform/db"
	"github.com/bindalkapil/FxDPartnerERP-sub002/internal/sales/finalize"
	"github.com/bindalkapil/FxDPartnerERP-sub002/internal/sales/payments"
)

var ErrNotFound = errors.New("record not found")

// Repository persists finalized drafts and reads committed orders back.
// It implements the engine's Persister and SeedReader ports.
type Repository interface {
	Persist(ctx context.Context, draft *finalize.Draft) (int64, error)
	QueryOrder(ctx context.Context, orderID int64) (finalize.OrderSeed, error)
	Get(ctx context.Context, id int64) (*Order, error)
}

type repository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool, now: time.Now}
}

// Persist writes the draft, its lines and its payment instruments as one
// transaction. The engine calls it at most once per successful submission.
func (r *repository) Persist(ctx context.Context, draft *finalize.Draft) (int64, error) {
	var orderID int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		orderDate := r.now()
		docNumber, err := generateNumber(ctx, tx, orderDate)
		if err != nil {
			return fmt.Errorf("generate doc number: %w", err)
		}

		creditFinanced := draft.Totals.Breakdown.CreditFinanced
		if creditFinanced < 0 {
			creditFinanced = 0
		}

		err = tx.QueryRow(ctx, `
			INSERT INTO sales_orders (
				draft_id, doc_number, customer_id, status, order_date,
				total_amount, total_quantity, paid_amount, credit_amount,
				notes, created_by
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING id
		`,
			draft.ID.String(), docNumber, draft.CustomerID, OrderStatusSubmitted, orderDate,
			draft.Totals.OrderTotal, draft.Totals.TotalQuantity,
			draft.Totals.Breakdown.PaidDirectly, creditFinanced,
			draft.Notes, draft.CreatedBy,
		).Scan(&orderID)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		for _, line := range draft.Lines {
			_, err := tx.Exec(ctx, `
				INSERT INTO sales_order_items (
					order_id, product_id, product_name, sku_id, sku_code,
					quantity, unit_type, unit_price, line_total
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			`,
				orderID, line.ProductID, line.ProductName, line.SKUID, line.SKUCode,
				line.Quantity, line.UnitType, line.UnitPrice, line.LineTotal,
			)
			if err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
		}

		for _, in := range draft.Instruments {
			_, err := tx.Exec(ctx, `
				INSERT INTO sales_order_payments (
					order_id, kind, amount, reference_number, proof_artifact, remarks
				) VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''))
			`,
				orderID, string(in.Kind), in.Amount, in.ReferenceNumber, in.ProofArtifact, in.Remarks,
			)
			if err != nil {
				return fmt.Errorf("insert order payment: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return 0, err
	}
	return orderID, nil
}

// generateNumber produces the next document number for the order date,
// e.g. SO-202609-0042. Runs inside the persist transaction so concurrent
// submissions cannot collide.
func generateNumber(ctx context.Context, tx pgx.Tx, date time.Time) (string, error) {
	prefix := fmt.Sprintf("SO-%s-", date.Format("200601"))
	var seq int64
	err := tx.QueryRow(ctx, `
		SELECT COUNT(*) + 1
		FROM sales_orders
		WHERE doc_number LIKE $1 || '%'
	`, prefix).Scan(&seq)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%04d", prefix, seq), nil
}

// QueryOrder replays a committed order as draft input for edit flows.
// Stored lines become explicit catalog picks; credit-kind payments are
// dropped so the credit remainder is re-derived at validation time.
func (r *repository) QueryOrder(ctx context.Context, orderID int64) (finalize.OrderSeed, error) {
	order, err := r.Get(ctx, orderID)
	if err != nil {
		return finalize.OrderSeed{}, err
	}

	seed := finalize.OrderSeed{CustomerID: order.CustomerID, CreatedBy: order.CreatedBy, Notes: order.Notes}
	for _, item := range order.Lines {
		seed.Lines = append(seed.Lines, finalize.LineInput{
			SelectorKey: item.SKUID,
			Entry: &catalog.Entry{
				ProductID:   item.ProductID,
				ProductName: item.ProductName,
				SKUID:       item.SKUID,
				SKUCode:     item.SKUCode,
				UnitType:    item.UnitType,
			},
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	for _, p := range order.Payments {
		if payments.Kind(p.Kind) == payments.KindCredit {
			continue
		}
		in := finalize.InstrumentInput{Kind: payments.Kind(p.Kind), Amount: p.Amount}
		if p.ReferenceNumber != nil {
			in.ReferenceNumber = *p.ReferenceNumber
		}
		if p.ProofArtifact != nil {
			in.ProofArtifact = *p.ProofArtifact
		}
		if p.Remarks != nil {
			in.Remarks = *p.Remarks
		}
		seed.Instruments = append(seed.Instruments, in)
	}
	return seed, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Order, error) {
	var o Order
	var notes pgtype.Text
	var settledAt pgtype.Timestamptz
	var total, qty, paid, credit pgtype.Numeric

	err := r.pool.QueryRow(ctx, `
		SELECT id, doc_number, customer_id, status, order_date,
		       total_amount, total_quantity, paid_amount, credit_amount,
		       notes, created_by, settled_at, created_at, updated_at
		FROM sales_orders
		WHERE id = $1
	`, id).Scan(
		&o.ID, &o.DocNumber, &o.CustomerID, &o.Status, &o.OrderDate,
		&total, &qty, &paid, &credit,
		&notes, &o.CreatedBy, &settledAt, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	if total.Valid {
		f, _ := total.Float64Value()
		o.TotalAmount = f.Float64
	}
	if qty.Valid {
		f, _ := qty.Float64Value()
		o.TotalQuantity = f.Float64
	}
	if paid.Valid {
		f, _ := paid.Float64Value()
		o.PaidAmount = f.Float64
	}
	if credit.Valid {
		f, _ := credit.Float64Value()
		o.CreditAmount = f.Float64
	}
	if notes.Valid {
		o.Notes = &notes.String
	}
	if settledAt.Valid {
		o.SettledAt = &settledAt.Time
	}

	if o.Lines, err = r.getItems(ctx, id); err != nil {
		return nil, err
	}
	if o.Payments, err = r.getPayments(ctx, id); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *repository) getItems(ctx context.Context, orderID int64) ([]OrderItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, order_id, product_id, product_name, sku_id, sku_code,
		       quantity, unit_type, unit_price, line_total
		FROM sales_order_items
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var it OrderItem
		var qty, price, lineTotal pgtype.Numeric
		err := rows.Scan(
			&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.SKUID, &it.SKUCode,
			&qty, &it.UnitType, &price, &lineTotal,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		if qty.Valid {
			f, _ := qty.Float64Value()
			it.Quantity = f.Float64
		}
		if price.Valid {
			f, _ := price.Float64Value()
			it.UnitPrice = f.Float64
		}
		if lineTotal.Valid {
			f, _ := lineTotal.Float64Value()
			it.LineTotal = f.Float64
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *repository) getPayments(ctx context.Context, orderID int64) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, order_id, kind, amount, reference_number, proof_artifact, remarks
		FROM sales_order_payments
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order payments: %w", err)
	}
	defer rows.Close()

	var results []Payment
	for rows.Next() {
		var p Payment
		var amount pgtype.Numeric
		var ref, proof, remarks pgtype.Text
		if err := rows.Scan(&p.ID, &p.OrderID, &p.Kind, &amount, &ref, &proof, &remarks); err != nil {
			return nil, fmt.Errorf("scan order payment: %w", err)
		}
		if amount.Valid {
			f, _ := amount.Float64Value()
			p.Amount = f.Float64
		}
		if ref.Valid {
			p.ReferenceNumber = &ref.String
		}
		if proof.Valid {
			p.ProofArtifact = &proof.String
		}
		if remarks.Valid {
			p.Remarks = &remarks.String
		}
		results = append(results, p)
	}
	return results, rows.Err()
}
