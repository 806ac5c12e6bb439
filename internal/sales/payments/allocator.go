package payments

import "fmt"

// Breakdown is the arithmetic behind an allocation verdict. It is exposed
// so callers can show the figures, not just the pass/fail outcome.
type Breakdown struct {
	PaidDirectly        float64 `json:"paid_directly"`
	CreditFinanced      float64 `json:"credit_financed"`
	CreditIncreaseTotal float64 `json:"credit_increase_total"`
	EffectiveLimit      float64 `json:"effective_limit"`
	AvailableCredit     float64 `json:"available_credit"`
}

// ComputeBreakdown derives the allocation figures for one order total and
// instrument set. Every concretely entered instrument pays down the total,
// including operator-entered credit lines. Two never do: credit_increase
// entries, which only raise the effective limit, and the synthetic
// remainder instrument, which stands for the unpaid part of the total.
// CreditFinanced may be zero or negative (overpayment); that alone is not
// an error.
func ComputeBreakdown(orderTotal float64, instruments []Instrument, profile CreditProfile) Breakdown {
	var paid, increase float64
	for _, in := range instruments {
		switch {
		case in.Kind == KindCreditIncrease:
			increase += in.Amount
		case in.Synthetic:
			// The remainder on credit is not money received.
		default:
			paid += in.Amount
		}
	}

	effective := profile.Limit + increase
	return Breakdown{
		PaidDirectly:        paid,
		CreditFinanced:      orderTotal - paid,
		CreditIncreaseTotal: increase,
		EffectiveLimit:      effective,
		AvailableCredit:     effective - profile.CurrentBalance,
	}
}

// Validate checks one allocation as a unit and returns the first violated
// rule, or nil when the allocation is acceptable. It is pure and
// re-entrant: identical inputs always produce identical verdicts, so it is
// safe to run on every edit, not just before submission.
//
// Rules, in order, first failure wins:
//  1. the credit-financed remainder must fit the available credit,
//     counting any temporary increase;
//  2. every instrument amount must exceed zero;
//  3. upi and bank_transfer instruments need a reference number or a
//     proof artifact;
//  4. credit_increase instruments need remarks.
func Validate(orderTotal float64, instruments []Instrument, profile CreditProfile) *Violation {
	b := ComputeBreakdown(orderTotal, instruments, profile)

	if b.CreditFinanced > b.AvailableCredit {
		return &Violation{
			Code: ViolationCreditExceeded,
			Message: fmt.Sprintf("credit financed %.2f exceeds available credit %.2f (including temporary increase)",
				b.CreditFinanced, b.AvailableCredit),
			CreditFinanced:  b.CreditFinanced,
			AvailableCredit: b.AvailableCredit,
		}
	}

	for _, in := range instruments {
		if in.Amount <= 0 {
			return &Violation{
				Code:           ViolationNonPositive,
				InstrumentID:   in.ID,
				InstrumentKind: in.Kind,
				Message:        "all payment amounts must exceed zero",
			}
		}
	}

	for _, in := range instruments {
		if (in.Kind == KindUPI || in.Kind == KindBankTransfer) && in.ReferenceNumber == "" && in.ProofArtifact == "" {
			return &Violation{
				Code:           ViolationMissingProof,
				InstrumentID:   in.ID,
				InstrumentKind: in.Kind,
				Message:        fmt.Sprintf("%s payment requires a reference number or proof", in.Kind),
			}
		}
	}

	for _, in := range instruments {
		if in.Kind == KindCreditIncrease && in.Remarks == "" {
			return &Violation{
				Code:           ViolationMissingRemarks,
				InstrumentID:   in.ID,
				InstrumentKind: in.Kind,
				Message:        "remarks required for temporary credit increase",
			}
		}
	}

	return nil
}
