package orders

import "time"

type OrderStatus string

const (
	OrderStatusSubmitted OrderStatus = "SUBMITTED"
	OrderStatusSettled   OrderStatus = "SETTLED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// Order is a committed sales order. Once persisted, its lines and payments
// are an immutable record; edit flows seed a fresh draft instead of
// mutating the record in place.
type Order struct {
	ID            int64       `json:"id" db:"id"`
	DocNumber     string      `json:"doc_number" db:"doc_number"`
	CustomerID    int64       `json:"customer_id" db:"customer_id"`
	Status        OrderStatus `json:"status" db:"status"`
	OrderDate     time.Time   `json:"order_date" db:"order_date"`
	TotalAmount   float64     `json:"total_amount" db:"total_amount"`
	TotalQuantity float64     `json:"total_quantity" db:"total_quantity"`
	PaidAmount    float64     `json:"paid_amount" db:"paid_amount"`
	CreditAmount  float64     `json:"credit_amount" db:"credit_amount"`
	Notes         *string     `json:"notes,omitempty" db:"notes"`
	CreatedBy     int64       `json:"created_by" db:"created_by"`
	SettledAt     *time.Time  `json:"settled_at,omitempty" db:"settled_at"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at" db:"updated_at"`
	Lines         []OrderItem `json:"lines,omitempty" db:"-"`
	Payments      []Payment   `json:"payments,omitempty" db:"-"`
}

// OrderItem is one immutable persisted order line.
type OrderItem struct {
	ID          int64   `json:"id" db:"id"`
	OrderID     int64   `json:"order_id" db:"order_id"`
	ProductID   int64   `json:"product_id" db:"product_id"`
	ProductName string  `json:"product_name" db:"product_name"`
	SKUID       int64   `json:"sku_id" db:"sku_id"`
	SKUCode     string  `json:"sku_code" db:"sku_code"`
	Quantity    float64 `json:"quantity" db:"quantity"`
	UnitType    string  `json:"unit_type" db:"unit_type"`
	UnitPrice   float64 `json:"unit_price" db:"unit_price"`
	LineTotal   float64 `json:"line_total" db:"line_total"`
}

// Payment is one immutable payment instrument attached to an order.
type Payment struct {
	ID              int64   `json:"id" db:"id"`
	OrderID         int64   `json:"order_id" db:"order_id"`
	Kind            string  `json:"kind" db:"kind"`
	Amount          float64 `json:"amount" db:"amount"`
	ReferenceNumber *string `json:"reference_number,omitempty" db:"reference_number"`
	ProofArtifact   *string `json:"proof_artifact,omitempty" db:"proof_artifact"`
	Remarks         *string `json:"remarks,omitempty" db:"remarks"`
}
