package payments

import "fmt"

// Kind enumerates supported payment instrument kinds.
type Kind string

const (
	// KindCredit charges the customer's account. An operator may enter a
	// credit line explicitly; the allocator also synthesizes one when no
	// instruments were entered at all.
	KindCredit Kind = "credit"
	// KindCash is cash received at the counter.
	KindCash Kind = "cash"
	// KindUPI is a UPI transfer; requires a reference or proof.
	KindUPI Kind = "upi"
	// KindBankTransfer is a bank transfer; requires a reference or proof.
	KindBankTransfer Kind = "bank_transfer"
	// KindCreditIncrease raises the effective credit ceiling for this
	// order only. It never pays down the order total.
	KindCreditIncrease Kind = "credit_increase"
)

// Instrument is one entered payment against an order. Instruments are
// mutable until the order is submitted, then become an immutable record.
type Instrument struct {
	ID              string  `json:"id"`
	Kind            Kind    `json:"kind"`
	Amount          float64 `json:"amount"`
	ReferenceNumber string  `json:"reference_number,omitempty"`
	ProofArtifact   string  `json:"proof_artifact,omitempty"`
	Remarks         string  `json:"remarks,omitempty"`
	// Synthetic marks the auto-generated "remainder on credit" instrument.
	// It represents the unpaid remainder rather than money received, so the
	// allocator must not count it as a direct payment.
	Synthetic bool `json:"synthetic,omitempty"`
}

// CreditProfile is the customer's standing credit position. The engine
// only reads it; ledger mutations happen elsewhere.
type CreditProfile struct {
	Limit          float64 `json:"limit" db:"credit_limit"`
	CurrentBalance float64 `json:"current_balance" db:"current_balance"`
}

// ViolationCode identifies which allocation rule failed.
type ViolationCode string

const (
	ViolationCreditExceeded ViolationCode = "credit_exceeded"
	ViolationNonPositive    ViolationCode = "non_positive_amount"
	ViolationMissingProof   ViolationCode = "missing_reference_or_proof"
	ViolationMissingRemarks ViolationCode = "missing_increase_remarks"
)

// Violation reports the first failed allocation rule, attached to the
// instrument that caused it where one exists.
type Violation struct {
	Code           ViolationCode
	InstrumentID   string
	InstrumentKind Kind
	Message        string

	// Populated for ViolationCreditExceeded.
	CreditFinanced  float64
	AvailableCredit float64
}

func (v *Violation) Error() string {
	return v.Message
}

// ImplicitCredit builds the synthetic instrument that represents "the full
// total on credit" when the operator entered no payments.
func ImplicitCredit(orderTotal float64) Instrument {
	return Instrument{
		Kind:      KindCredit,
		Amount:    orderTotal,
		Remarks:   fmt.Sprintf("implicit credit for order total %.2f", orderTotal),
		Synthetic: true,
	}
}
