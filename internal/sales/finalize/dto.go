package finalize

import (
	"github.com/bindalkapil/FxDPartnerERP-sub002/internal/catalog"
	"github.com/bindalkapil/FxDPartnerERP-sub002/internal/sales/payments"
)

// DraftInput is the operator's raw order entry, validated before a draft
// is built. Amounts are deliberately untagged: the payment allocator owns
// the amount rules so its violations carry the offending instrument.
type DraftInput struct {
	CustomerID  int64             `json:"customer_id" validate:"required,gt=0"`
	CreatedBy   int64             `json:"created_by" validate:"required,gt=0"`
	Lines       []LineInput       `json:"lines" validate:"required,min=1,dive"`
	Instruments []InstrumentInput `json:"instruments,omitempty" validate:"omitempty,dive"`
	Notes       *string           `json:"notes,omitempty"`
}

// LineInput selects one catalog item. Entry is set when the operator picked
// a concrete row from a presented list; otherwise SelectorKey alone drives
// catalog resolution.
type LineInput struct {
	SelectorKey int64          `json:"selector_key" validate:"required_without=Entry,omitempty,gt=0"`
	Entry       *catalog.Entry `json:"entry,omitempty"`
	Quantity    float64        `json:"quantity" validate:"required,gt=0"`
	UnitPrice   float64        `json:"unit_price" validate:"gte=0"`
}

// InstrumentInput is one entered payment instrument.
type InstrumentInput struct {
	Kind            payments.Kind `json:"kind" validate:"required,oneof=credit cash upi bank_transfer credit_increase"`
	Amount          float64       `json:"amount"`
	ReferenceNumber string        `json:"reference_number,omitempty"`
	ProofArtifact   string        `json:"proof_artifact,omitempty"`
	Remarks         string        `json:"remarks,omitempty"`
}
