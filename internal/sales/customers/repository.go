package customers

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bindalkapil/FxDPartnerERP-sub002/internal/sales/payments"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrInactive = errors.New("customer inactive")
)

// Repository reads customer data used by order finalization.
type Repository interface {
	Get(ctx context.Context, id int64) (*Customer, error)
	CreditProfile(ctx context.Context, id int64) (payments.CreditProfile, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Get(ctx context.Context, id int64) (*Customer, error) {
	query := `
		SELECT id, code, name, email, phone, credit_limit, is_active, created_at, updated_at
		FROM customers
		WHERE id = $1
	`

	var c Customer
	var email, phone pgtype.Text
	var limit pgtype.Numeric

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.Code, &c.Name, &email, &phone, &limit, &c.IsActive, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}

	if email.Valid {
		c.Email = &email.String
	}
	if phone.Valid {
		c.Phone = &phone.String
	}
	if limit.Valid {
		f, _ := limit.Float64Value()
		c.CreditLimit = f.Float64
	}
	return &c, nil
}

// CreditProfile returns the customer's credit limit together with the open
// receivable balance. The balance counts submitted orders not yet settled.
// Missing and deactivated customers are rejected here so no order can be
// financed against a dead account.
func (r *repository) CreditProfile(ctx context.Context, id int64) (payments.CreditProfile, error) {
	c, err := r.Get(ctx, id)
	if err != nil {
		return payments.CreditProfile{}, err
	}
	if !c.IsActive {
		return payments.CreditProfile{}, fmt.Errorf("customer %s: %w", c.Code, ErrInactive)
	}

	query := `
		SELECT COALESCE(SUM(credit_amount), 0)
		FROM sales_orders
		WHERE customer_id = $1 AND settled_at IS NULL
	`

	var balance pgtype.Numeric
	if err := r.pool.QueryRow(ctx, query, id).Scan(&balance); err != nil {
		return payments.CreditProfile{}, fmt.Errorf("get open balance: %w", err)
	}

	profile := payments.CreditProfile{Limit: c.CreditLimit}
	if balance.Valid {
		f, _ := balance.Float64Value()
		profile.CurrentBalance = f.Float64
	}
	return profile, nil
}
