package finalize

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bindalkapil/FxDPartnerERP-sub002/internal/catalog"
	"github.com/bindalkapil/FxDPartnerERP-sub002/internal/notify"
	"github.com/bindalkapil/FxDPartnerERP-sub002/internal/sales/customers"
	"github.com/bindalkapil/FxDPartnerERP-sub002/internal/sales/payments"
)

type fakeCatalog struct {
	entries []catalog.Entry
	err     error
	calls   int
}

func (f *fakeCatalog) QueryCatalog(ctx context.Context) ([]catalog.Entry, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	result := make([]catalog.Entry, len(f.entries))
	copy(result, f.entries)
	return result, nil
}

type fakeCredit struct {
	profile payments.CreditProfile
	err     error
}

func (f *fakeCredit) CreditProfile(ctx context.Context, customerID int64) (payments.CreditProfile, error) {
	if f.err != nil {
		return payments.CreditProfile{}, f.err
	}
	return f.profile, nil
}

type fakePersister struct {
	nextID int64
	err    error
	calls  int
	last   *Draft
}

func (f *fakePersister) Persist(ctx context.Context, draft *Draft) (int64, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	f.last = draft
	f.nextID++
	return f.nextID, nil
}

type fakeSeeds struct {
	seed OrderSeed
	err  error
}

func (f *fakeSeeds) QueryOrder(ctx context.Context, orderID int64) (OrderSeed, error) {
	if f.err != nil {
		return OrderSeed{}, f.err
	}
	return f.seed, nil
}

type stubNotifier struct {
	mu      sync.Mutex
	notices []string
}

func (s *stubNotifier) Notify(ctx context.Context, severity notify.Severity, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notices = append(s.notices, string(severity)+": "+message)
}

func (s *stubNotifier) all() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.notices...)
}

type testRig struct {
	engine    *Engine
	catalog   *fakeCatalog
	credit    *fakeCredit
	persister *fakePersister
	seeds     *fakeSeeds
	notifier  *stubNotifier
}

func newRig(profile payments.CreditProfile) *testRig {
	rig := &testRig{
		catalog:   &fakeCatalog{entries: snapshot()},
		credit:    &fakeCredit{profile: profile},
		persister: &fakePersister{},
		seeds:     &fakeSeeds{},
		notifier:  &stubNotifier{},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rig.engine = NewEngine(rig.catalog, rig.credit, rig.persister, rig.seeds, rig.notifier, logger)
	return rig
}

func TestFinalizeHappyPath(t *testing.T) {
	rig := newRig(payments.CreditProfile{Limit: 500})
	ctx := context.Background()

	attempt, err := rig.engine.NewAttempt(DraftInput{
		CustomerID: 7,
		CreatedBy:  3,
		Lines: []LineInput{
			{SelectorKey: 10, Quantity: 4, UnitPrice: 100},
			{SelectorKey: 11, Quantity: 3, UnitPrice: 200},
		},
		Instruments: []InstrumentInput{
			{Kind: payments.KindCash, Amount: 400},
			{Kind: payments.KindUPI, Amount: 300, ReferenceNumber: "UPI-1"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, StateDraft, attempt.State())

	state, err := attempt.Finalize(ctx)
	require.NoError(t, err)
	require.Equal(t, StateReadyToSubmit, state)

	draft := attempt.Draft()
	require.Len(t, draft.Lines, 2)
	require.InDelta(t, 1000.0, draft.Totals.OrderTotal, 0.0001)
	require.InDelta(t, 400.0, draft.Lines[0].LineTotal, 0.0001, "line total derived from qty and price")
	require.InDelta(t, 300.0, draft.Totals.Breakdown.CreditFinanced, 0.0001)
	require.Nil(t, attempt.PaymentViolation())

	orderID, err := attempt.Submit(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), orderID)
	require.Equal(t, StateSubmitted, attempt.State())
	require.Nil(t, attempt.Draft(), "draft consumed on submit")
	require.Equal(t, 1, rig.persister.calls)
	require.Equal(t, int64(7), rig.persister.last.CustomerID)
	require.Equal(t, int64(3), rig.persister.last.CreatedBy, "creator recorded on the committed order")
}

func TestImplicitCreditSynthesizedWhenNoInstruments(t *testing.T) {
	rig := newRig(payments.CreditProfile{Limit: 2000})
	ctx := context.Background()

	attempt, err := rig.engine.NewAttempt(DraftInput{
		CustomerID: 7,
		CreatedBy:  3,
		Lines:      []LineInput{{SelectorKey: 10, Quantity: 10, UnitPrice: 100}},
	})
	require.NoError(t, err)

	require.NoError(t, attempt.ResolveLines(ctx))
	require.NoError(t, attempt.ValidatePayments(ctx))

	draft := attempt.Draft()
	require.Len(t, draft.Instruments, 1)
	require.Equal(t, payments.KindCredit, draft.Instruments[0].Kind)
	require.InDelta(t, 1000.0, draft.Instruments[0].Amount, 0.0001)
	require.InDelta(t, 1000.0, draft.Totals.Breakdown.CreditFinanced, 0.0001)
}

func TestFullyOnCreditBlockedByLimit(t *testing.T) {
	// total=1000 fully on credit against limit 500: validation fails and
	// the attempt stays one step back with the draft intact.
	rig := newRig(payments.CreditProfile{Limit: 500})
	ctx := context.Background()

	attempt, err := rig.engine.NewAttempt(DraftInput{
		CustomerID: 7,
		CreatedBy:  3,
		Lines:      []LineInput{{SelectorKey: 10, Quantity: 10, UnitPrice: 100}},
	})
	require.NoError(t, err)

	require.NoError(t, attempt.ResolveLines(ctx))
	err = attempt.ValidatePayments(ctx)

	var v *payments.Violation
	require.ErrorAs(t, err, &v)
	require.Equal(t, payments.ViolationCreditExceeded, v.Code)
	require.Equal(t, StateLinesResolved, attempt.State())
	require.Equal(t, v, attempt.PaymentViolation())
	require.NotNil(t, attempt.Draft())
}

func TestInactiveCustomerBlocksPaymentValidation(t *testing.T) {
	rig := newRig(payments.CreditProfile{})
	rig.credit.err = fmt.Errorf("customer CUST-9: %w", customers.ErrInactive)
	ctx := context.Background()

	attempt, err := rig.engine.NewAttempt(DraftInput{
		CustomerID: 7,
		CreatedBy:  3,
		Lines:      []LineInput{{SelectorKey: 10, Quantity: 1, UnitPrice: 100}},
	})
	require.NoError(t, err)

	require.NoError(t, attempt.ResolveLines(ctx))
	err = attempt.ValidatePayments(ctx)
	require.ErrorIs(t, err, customers.ErrInactive)
	require.Equal(t, StateLinesResolved, attempt.State())
}

func TestShortStockPausesForConfirmation(t *testing.T) {
	rig := newRig(payments.CreditProfile{Limit: 50000})
	ctx := context.Background()

	attempt, err := rig.engine.NewAttempt(DraftInput{
		CustomerID: 7,
		CreatedBy:  3,
		Lines:      []LineInput{{SelectorKey: 11, Quantity: 10, UnitPrice: 100}},
	})
	require.NoError(t, err)

	state, err := attempt.Finalize(ctx)
	require.NoError(t, err)
	require.Equal(t, StateAwaitingConfirmation, state)

	draft := attempt.Draft()
	require.Len(t, draft.Warnings, 1)
	require.Equal(t, WarningShort, draft.Warnings[0].Type)
	require.InDelta(t, -6.0, draft.Warnings[0].ResultingQuantity, 0.0001)

	// A plain submit is not an explicit confirmation.
	_, err = attempt.Submit(ctx)
	require.ErrorIs(t, err, ErrInvalidState)

	orderID, err := attempt.Proceed(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), orderID)
	require.Equal(t, StateSubmitted, attempt.State())
}

func TestPersistFailureKeepsDraftForRetry(t *testing.T) {
	rig := newRig(payments.CreditProfile{Limit: 50000})
	ctx := context.Background()

	attempt, err := rig.engine.NewAttempt(DraftInput{
		CustomerID: 7,
		CreatedBy:  3,
		Lines:      []LineInput{{SelectorKey: 11, Quantity: 10, UnitPrice: 100}},
	})
	require.NoError(t, err)

	state, err := attempt.Finalize(ctx)
	require.NoError(t, err)
	require.Equal(t, StateAwaitingConfirmation, state)

	rig.persister.err = errors.New("connection reset")
	_, err = attempt.Proceed(ctx)

	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, StateAwaitingConfirmation, attempt.State(), "state restored for retry")
	require.NotNil(t, attempt.Draft(), "draft preserved")

	rig.persister.err = nil
	orderID, err := attempt.Proceed(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), orderID)
	require.Equal(t, 2, rig.persister.calls)
}

func TestSecondSubmitRejected(t *testing.T) {
	rig := newRig(payments.CreditProfile{Limit: 50000})
	ctx := context.Background()

	attempt, err := rig.engine.NewAttempt(DraftInput{
		CustomerID: 7,
		CreatedBy:  3,
		Lines:      []LineInput{{SelectorKey: 10, Quantity: 1, UnitPrice: 100}},
	})
	require.NoError(t, err)

	_, err = attempt.Finalize(ctx)
	require.NoError(t, err)
	_, err = attempt.Submit(ctx)
	require.NoError(t, err)

	_, err = attempt.Submit(ctx)
	require.ErrorIs(t, err, ErrAlreadySubmitted)
	require.Equal(t, 1, rig.persister.calls)
}

func TestAbortDiscardsDraft(t *testing.T) {
	rig := newRig(payments.CreditProfile{Limit: 50000})
	ctx := context.Background()

	attempt, err := rig.engine.NewAttempt(DraftInput{
		CustomerID: 7,
		CreatedBy:  3,
		Lines:      []LineInput{{SelectorKey: 11, Quantity: 10, UnitPrice: 100}},
	})
	require.NoError(t, err)

	_, err = attempt.Finalize(ctx)
	require.NoError(t, err)
	require.Equal(t, StateAwaitingConfirmation, attempt.State())

	require.NoError(t, attempt.Abort(ctx))
	require.Equal(t, StateAborted, attempt.State())
	require.Nil(t, attempt.Draft())
	require.Zero(t, rig.persister.calls, "no partial submission")

	_, err = attempt.Proceed(ctx)
	require.ErrorIs(t, err, ErrAborted)

	// Abort is idempotent.
	require.NoError(t, attempt.Abort(ctx))
}

func TestUnresolvableLineBlocksWithSpecificError(t *testing.T) {
	rig := newRig(payments.CreditProfile{Limit: 50000})
	ctx := context.Background()

	attempt, err := rig.engine.NewAttempt(DraftInput{
		CustomerID: 7,
		CreatedBy:  3,
		Lines: []LineInput{
			{SelectorKey: 10, Quantity: 1, UnitPrice: 100},
			{SelectorKey: 999, Quantity: 1, UnitPrice: 100},
		},
	})
	require.NoError(t, err)

	err = attempt.ResolveLines(ctx)
	var resErr *ResolutionError
	require.ErrorAs(t, err, &resErr)
	require.Len(t, resErr.Lines, 1)
	require.Equal(t, 1, resErr.Lines[0].LineIndex)
	require.ErrorIs(t, resErr.Lines[0].Err, catalog.ErrSelectorNotFound)
	require.Equal(t, StateDraft, attempt.State())
}

func TestDuplicateSKUResolvesWithAmbiguityWarning(t *testing.T) {
	rig := newRig(payments.CreditProfile{Limit: 50000})
	rig.catalog.entries = append(rig.catalog.entries,
		catalog.Entry{ProductID: 9, ProductName: "Alphonso Mango Export", SKUID: 10, SKUCode: "MNG-ALP-5E", UnitType: "box", AvailableQuantity: 100},
	)
	ctx := context.Background()

	attempt, err := rig.engine.NewAttempt(DraftInput{
		CustomerID: 7,
		CreatedBy:  3,
		Lines:      []LineInput{{SelectorKey: 10, Quantity: 1, UnitPrice: 100}},
	})
	require.NoError(t, err)

	require.NoError(t, attempt.ResolveLines(ctx))

	draft := attempt.Draft()
	require.Equal(t, int64(1), draft.Lines[0].ProductID, "first row used as degraded fallback")
	require.Len(t, draft.Ambiguities, 1)
	require.Equal(t, 2, draft.Ambiguities[0].MatchCount)

	notices := rig.notifier.all()
	require.Len(t, notices, 1)
	require.Contains(t, notices[0], "warning:")
	require.Contains(t, notices[0], "catalog rows")
}

func TestInstrumentEditRefreshesCachedVerdict(t *testing.T) {
	rig := newRig(payments.CreditProfile{Limit: 500})
	ctx := context.Background()

	attempt, err := rig.engine.NewAttempt(DraftInput{
		CustomerID:  7,
		CreatedBy:   3,
		Lines:       []LineInput{{SelectorKey: 10, Quantity: 10, UnitPrice: 100}},
		Instruments: []InstrumentInput{{Kind: payments.KindCash, Amount: 900}},
	})
	require.NoError(t, err)

	require.NoError(t, attempt.ResolveLines(ctx))
	require.NoError(t, attempt.ValidatePayments(ctx))
	require.Equal(t, StatePaymentValidated, attempt.State())

	// Dropping the cash payment pushes the full total onto credit, which
	// no longer fits; the cached verdict flips without a submit attempt.
	require.NoError(t, attempt.UpdateInstruments(nil))
	require.Equal(t, StateLinesResolved, attempt.State())

	v := attempt.PaymentViolation()
	require.NotNil(t, v)
	require.Equal(t, payments.ViolationCreditExceeded, v.Code)
}

func TestLineEditRewindsToDraft(t *testing.T) {
	rig := newRig(payments.CreditProfile{Limit: 50000})
	ctx := context.Background()

	attempt, err := rig.engine.NewAttempt(DraftInput{
		CustomerID: 7,
		CreatedBy:  3,
		Lines:      []LineInput{{SelectorKey: 10, Quantity: 2, UnitPrice: 100}},
	})
	require.NoError(t, err)

	require.NoError(t, attempt.ResolveLines(ctx))
	require.Equal(t, StateLinesResolved, attempt.State())

	require.NoError(t, attempt.UpdateLines([]LineInput{{SelectorKey: 11, Quantity: 1, UnitPrice: 50}}))
	require.Equal(t, StateDraft, attempt.State())
	require.Empty(t, attempt.Draft().Lines)

	require.NoError(t, attempt.ResolveLines(ctx))
	require.InDelta(t, 50.0, attempt.Draft().Totals.OrderTotal, 0.0001)
}

func TestEditsRejectedWhileAwaitingConfirmation(t *testing.T) {
	rig := newRig(payments.CreditProfile{Limit: 50000})
	ctx := context.Background()

	attempt, err := rig.engine.NewAttempt(DraftInput{
		CustomerID: 7,
		CreatedBy:  3,
		Lines:      []LineInput{{SelectorKey: 11, Quantity: 10, UnitPrice: 100}},
	})
	require.NoError(t, err)

	_, err = attempt.Finalize(ctx)
	require.NoError(t, err)
	require.Equal(t, StateAwaitingConfirmation, attempt.State())

	err = attempt.UpdateLines([]LineInput{{SelectorKey: 10, Quantity: 1, UnitPrice: 1}})
	require.ErrorIs(t, err, ErrInvalidState)
	err = attempt.UpdateInstruments([]InstrumentInput{{Kind: payments.KindCash, Amount: 1}})
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestNewAttemptValidatesInput(t *testing.T) {
	rig := newRig(payments.CreditProfile{})

	_, err := rig.engine.NewAttempt(DraftInput{CustomerID: 7, CreatedBy: 3})
	require.Error(t, err, "at least one line required")

	_, err = rig.engine.NewAttempt(DraftInput{
		CustomerID: 7,
		Lines:      []LineInput{{SelectorKey: 10, Quantity: 1, UnitPrice: 1}},
	})
	require.Error(t, err, "creator required")

	_, err = rig.engine.NewAttempt(DraftInput{
		Lines: []LineInput{{SelectorKey: 10, Quantity: 1, UnitPrice: 1}},
	})
	require.Error(t, err, "customer required")

	_, err = rig.engine.NewAttempt(DraftInput{
		CustomerID: 7,
		CreatedBy:  3,
		Lines:      []LineInput{{SelectorKey: 10, Quantity: 0, UnitPrice: 1}},
	})
	require.Error(t, err, "quantity must be positive")
}

func TestNewAttemptFromOrderSeedsDraft(t *testing.T) {
	rig := newRig(payments.CreditProfile{Limit: 50000})
	rig.seeds.seed = OrderSeed{
		CustomerID: 7,
		CreatedBy:  3,
		Lines: []LineInput{{
			Entry: &catalog.Entry{
				ProductID: 1, ProductName: "Alphonso Mango",
				SKUID: 10, SKUCode: "MNG-ALP-5", UnitType: "box",
			},
			Quantity:  4,
			UnitPrice: 100,
		}},
		Instruments: []InstrumentInput{{Kind: payments.KindCash, Amount: 400}},
	}
	ctx := context.Background()

	attempt, err := rig.engine.NewAttemptFromOrder(ctx, 31)
	require.NoError(t, err)

	state, err := attempt.Finalize(ctx)
	require.NoError(t, err)
	require.Equal(t, StateReadyToSubmit, state)
	require.InDelta(t, 400.0, attempt.Draft().Totals.OrderTotal, 0.0001)
	require.InDelta(t, 0.0, attempt.Draft().Totals.Breakdown.CreditFinanced, 0.0001)
	require.Equal(t, int64(3), attempt.Draft().CreatedBy, "creator carried over from the seeded order")
}
