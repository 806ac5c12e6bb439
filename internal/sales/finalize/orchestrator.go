package finalize

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/bindalkapil/FxDPartnerERP-sub002/internal/catalog"
	"github.com/bindalkapil/FxDPartnerERP-sub002/internal/notify"
	"github.com/bindalkapil/FxDPartnerERP-sub002/internal/sales/payments"
)

// State names one step of the finalization workflow.
type State string

const (
	StateDraft                State = "DRAFT"
	StateLinesResolved        State = "LINES_RESOLVED"
	StatePaymentValidated     State = "PAYMENT_VALIDATED"
	StateInventoryChecked     State = "INVENTORY_CHECKED"
	StateAwaitingConfirmation State = "AWAITING_CONFIRMATION"
	StateReadyToSubmit        State = "READY_TO_SUBMIT"
	StateSubmitted            State = "SUBMITTED"
	StateAborted              State = "ABORTED"
)

// Persister commits a finalized draft. It is called at most once per
// successful submission.
type Persister interface {
	Persist(ctx context.Context, draft *Draft) (int64, error)
}

// CreditReader supplies the customer's credit position.
type CreditReader interface {
	CreditProfile(ctx context.Context, customerID int64) (payments.CreditProfile, error)
}

// OrderSeed is a previously committed order replayed as draft input for
// edit flows.
type OrderSeed struct {
	CustomerID  int64
	CreatedBy   int64
	Lines       []LineInput
	Instruments []InstrumentInput
	Notes       *string
}

// SeedReader loads a committed order to seed a new draft.
type SeedReader interface {
	QueryOrder(ctx context.Context, orderID int64) (OrderSeed, error)
}

// Engine wires the finalization workflow to its collaborators. It holds no
// per-order state; each finalize attempt owns its draft exclusively.
type Engine struct {
	catalog  catalog.Querier
	credit   CreditReader
	orders   Persister
	seeds    SeedReader
	notifier notify.Notifier
	validate *validator.Validate
	logger   *slog.Logger
}

// NewEngine constructs Engine. seeds may be nil when edit flows are not
// hosted.
func NewEngine(catalogQ catalog.Querier, credit CreditReader, orders Persister, seeds SeedReader, notifier notify.Notifier, logger *slog.Logger) *Engine {
	return &Engine{
		catalog:  catalogQ,
		credit:   credit,
		orders:   orders,
		seeds:    seeds,
		notifier: notifier,
		validate: validator.New(),
		logger:   logger,
	}
}

// Attempt is one finalize attempt over one draft. The workflow is strictly
// sequential: every collaborator round-trip freezes the draft, and a second
// operation arriving while one is outstanding is rejected with ErrBusy
// rather than reading a half-updated draft.
type Attempt struct {
	engine *Engine
	input  DraftInput

	mu            sync.Mutex
	busy          bool
	state         State
	draft         *Draft
	profileLoaded bool
	lastViolation *payments.Violation
}

// NewAttempt validates the operator's input and opens a draft around it.
func (e *Engine) NewAttempt(input DraftInput) (*Attempt, error) {
	if err := e.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("validate draft input: %w", err)
	}

	draft := &Draft{
		ID:          uuid.New(),
		CustomerID:  input.CustomerID,
		CreatedBy:   input.CreatedBy,
		Instruments: buildInstruments(input.Instruments),
		Notes:       input.Notes,
	}
	return &Attempt{engine: e, input: input, state: StateDraft, draft: draft}, nil
}

// NewAttemptFromOrder seeds a fresh draft from a committed order so the
// operator can adjust and re-finalize without re-entering data.
func (e *Engine) NewAttemptFromOrder(ctx context.Context, orderID int64) (*Attempt, error) {
	if e.seeds == nil {
		return nil, fmt.Errorf("order seeding not configured")
	}
	seed, err := e.seeds.QueryOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("query order %d: %w", orderID, err)
	}
	return e.NewAttempt(DraftInput{
		CustomerID:  seed.CustomerID,
		CreatedBy:   seed.CreatedBy,
		Lines:       seed.Lines,
		Instruments: seed.Instruments,
		Notes:       seed.Notes,
	})
}

func buildInstruments(inputs []InstrumentInput) []payments.Instrument {
	var instruments []payments.Instrument
	for _, in := range inputs {
		instruments = append(instruments, payments.Instrument{
			ID:              uuid.NewString(),
			Kind:            in.Kind,
			Amount:          in.Amount,
			ReferenceNumber: in.ReferenceNumber,
			ProofArtifact:   in.ProofArtifact,
			Remarks:         in.Remarks,
		})
	}
	return instruments
}

// State reports the attempt's current workflow state.
func (a *Attempt) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Draft exposes the in-progress draft. It is nil once the draft has been
// consumed by a submission or discarded by an abort.
func (a *Attempt) Draft() *Draft {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.draft
}

// PaymentViolation returns the cached verdict of the latest allocator run,
// nil when the last run passed. The validity flag is always this
// projection, never toggled by hand.
func (a *Attempt) PaymentViolation() *payments.Violation {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastViolation
}

// begin freezes the draft for one collaborator round-trip. The caller must
// invoke end when the round-trip settles.
func (a *Attempt) begin(allowed ...State) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.busy {
		return ErrBusy
	}
	switch a.state {
	case StateSubmitted:
		return ErrAlreadySubmitted
	case StateAborted:
		return ErrAborted
	}
	for _, s := range allowed {
		if a.state == s {
			a.busy = true
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidState, a.state)
}

func (a *Attempt) end(next State) {
	a.mu.Lock()
	a.busy = false
	if next != "" {
		a.state = next
	}
	a.mu.Unlock()
}

// ResolveLines turns every raw line input into an unambiguous order line.
// Any unresolved or incomplete line blocks the transition and the specific
// line errors are returned together; ambiguous selectors resolve to the
// first match and surface a data-integrity warning instead of failing.
func (a *Attempt) ResolveLines(ctx context.Context) error {
	if err := a.begin(StateDraft); err != nil {
		return err
	}

	entries, err := a.engine.catalog.QueryCatalog(ctx)
	if err != nil {
		a.end("")
		return fmt.Errorf("query catalog: %w", err)
	}

	resolver := catalog.NewResolver(entries)
	var (
		lines       []OrderLine
		ambiguities []catalog.AmbiguityWarning
		lineErrs    []*LineError
	)
	for i, in := range a.input.Lines {
		entry, warn, err := resolver.Resolve(in.SelectorKey, in.Entry)
		if err != nil {
			lineErrs = append(lineErrs, &LineError{LineIndex: i, SelectorKey: in.SelectorKey, Err: err})
			continue
		}
		if warn != nil {
			ambiguities = append(ambiguities, *warn)
		}
		lines = append(lines, newLine(entry, in.Quantity, in.UnitPrice))
	}

	if len(lineErrs) > 0 {
		resErr := &ResolutionError{Lines: lineErrs}
		a.engine.notifier.Notify(ctx, notify.SeverityError, resErr.Error())
		a.end("")
		return resErr
	}

	for _, w := range ambiguities {
		a.engine.notifier.Notify(ctx, notify.SeverityWarning, w.Message())
	}

	a.mu.Lock()
	a.draft.Lines = lines
	a.draft.Ambiguities = ambiguities
	a.draft.recomputeTotals()
	a.mu.Unlock()
	a.end(StateLinesResolved)
	return nil
}

// ValidatePayments reconciles the instrument set against the order total
// and the customer's credit position. An empty instrument set legally means
// "fully on credit": a single implicit credit instrument covering the whole
// total is synthesized before validating.
func (a *Attempt) ValidatePayments(ctx context.Context) error {
	if err := a.begin(StateLinesResolved); err != nil {
		return err
	}

	profile, err := a.engine.credit.CreditProfile(ctx, a.draft.CustomerID)
	if err != nil {
		a.end("")
		return fmt.Errorf("query credit profile: %w", err)
	}

	a.mu.Lock()
	a.draft.Profile = profile
	a.profileLoaded = true
	if len(a.draft.Instruments) == 0 && a.draft.Totals.OrderTotal > 0 {
		implicit := payments.ImplicitCredit(a.draft.Totals.OrderTotal)
		implicit.ID = uuid.NewString()
		a.draft.Instruments = []payments.Instrument{implicit}
	}
	violation := a.revalidateLocked()
	a.mu.Unlock()

	if violation != nil {
		a.engine.notifier.Notify(ctx, notify.SeverityError, violation.Message)
		a.end("")
		return violation
	}

	a.end(StatePaymentValidated)
	return nil
}

// revalidateLocked reruns the allocator and refreshes the cached verdict
// and breakdown. Callers must hold a.mu.
func (a *Attempt) revalidateLocked() *payments.Violation {
	a.draft.Totals.Breakdown = payments.ComputeBreakdown(a.draft.Totals.OrderTotal, a.draft.Instruments, a.draft.Profile)
	a.lastViolation = payments.Validate(a.draft.Totals.OrderTotal, a.draft.Instruments, a.draft.Profile)
	return a.lastViolation
}

// CheckInventory reconciles the resolved lines against a live inventory
// snapshot. Warnings are advisory: a non-empty set pauses the workflow in
// AwaitingConfirmation for an explicit operator decision, an empty set
// moves straight to ReadyToSubmit.
func (a *Attempt) CheckInventory(ctx context.Context) ([]Warning, error) {
	if err := a.begin(StatePaymentValidated); err != nil {
		return nil, err
	}

	entries, err := a.engine.catalog.QueryCatalog(ctx)
	if err != nil {
		a.end("")
		return nil, fmt.Errorf("query inventory snapshot: %w", err)
	}

	warnings := NewReconciler(entries).Reconcile(a.draft.Lines)

	a.mu.Lock()
	a.draft.Warnings = warnings
	a.state = StateInventoryChecked
	a.mu.Unlock()

	if len(warnings) == 0 {
		a.end(StateReadyToSubmit)
		return nil, nil
	}

	for _, w := range warnings {
		a.engine.notifier.Notify(ctx, notify.SeverityWarning, w.Message())
	}
	a.end(StateAwaitingConfirmation)
	return warnings, nil
}

// Finalize drives resolve, payment validation and inventory reconciliation
// in order and reports the resulting state. The caller then either submits,
// proceeds past warnings, or aborts.
func (a *Attempt) Finalize(ctx context.Context) (State, error) {
	if err := a.ResolveLines(ctx); err != nil {
		return a.State(), err
	}
	if err := a.ValidatePayments(ctx); err != nil {
		return a.State(), err
	}
	if _, err := a.CheckInventory(ctx); err != nil {
		return a.State(), err
	}
	return a.State(), nil
}

// Submit commits a warning-free draft.
func (a *Attempt) Submit(ctx context.Context) (int64, error) {
	return a.submit(ctx, StateReadyToSubmit)
}

// Proceed commits the draft past its reconciliation warnings. It is the
// explicit operator decision that releases an AwaitingConfirmation pause.
func (a *Attempt) Proceed(ctx context.Context) (int64, error) {
	return a.submit(ctx, StateAwaitingConfirmation)
}

func (a *Attempt) submit(ctx context.Context, from State) (int64, error) {
	if err := a.begin(from); err != nil {
		return 0, err
	}

	orderID, err := a.engine.orders.Persist(ctx, a.draft)
	if err != nil {
		perr := &PersistenceError{Err: err}
		a.engine.notifier.Notify(ctx, notify.SeverityError, perr.Error())
		// The draft survives intact in its pre-submit state so the
		// operator can retry without re-entering anything.
		a.end("")
		return 0, perr
	}

	a.mu.Lock()
	a.busy = false
	a.state = StateSubmitted
	a.draft = nil
	a.mu.Unlock()

	a.engine.notifier.Notify(ctx, notify.SeverityInfo, fmt.Sprintf("order %d submitted", orderID))
	a.engine.logger.InfoContext(ctx, "order submitted",
		slog.Int64("order_id", orderID),
		slog.String("state", string(StateSubmitted)),
	)
	return orderID, nil
}

// Abort discards the draft. It is allowed from any state before Submitted
// and leaves nothing half-committed.
func (a *Attempt) Abort(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch {
	case a.busy:
		return ErrBusy
	case a.state == StateSubmitted:
		return ErrAlreadySubmitted
	case a.state == StateAborted:
		return nil
	}
	a.state = StateAborted
	a.draft = nil
	a.lastViolation = nil
	a.engine.logger.InfoContext(ctx, "draft aborted")
	return nil
}

// UpdateLines replaces the draft's line inputs and rewinds the workflow to
// the start so everything downstream of the edit is recomputed. Edits are
// rejected once the workflow has paused on warnings; the operator must
// proceed or abort first.
func (a *Attempt) UpdateLines(lines []LineInput) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.editableLocked(); err != nil {
		return err
	}
	if len(lines) == 0 {
		return fmt.Errorf("validate lines: at least one line required")
	}
	for i, line := range lines {
		if err := a.engine.validate.Struct(line); err != nil {
			return fmt.Errorf("validate line %d: %w", i+1, err)
		}
	}

	a.input.Lines = lines
	a.draft.Lines = nil
	a.draft.Warnings = nil
	a.draft.Ambiguities = nil
	a.draft.Totals = Totals{}
	a.lastViolation = nil
	a.state = StateDraft
	return nil
}

// UpdateInstruments replaces the instrument set and immediately refreshes
// the cached allocation verdict when the order total is already known.
func (a *Attempt) UpdateInstruments(instruments []InstrumentInput) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.editableLocked(); err != nil {
		return err
	}
	for i, in := range instruments {
		if err := a.engine.validate.Struct(in); err != nil {
			return fmt.Errorf("validate instrument %d: %w", i+1, err)
		}
	}

	a.input.Instruments = instruments
	a.draft.Instruments = buildInstruments(instruments)
	if a.state == StatePaymentValidated {
		a.state = StateLinesResolved
	}
	if a.profileLoaded {
		a.revalidateLocked()
	}
	return nil
}

func (a *Attempt) editableLocked() error {
	switch {
	case a.busy:
		return ErrBusy
	case a.state == StateSubmitted:
		return ErrAlreadySubmitted
	case a.state == StateAborted:
		return ErrAborted
	case a.state == StateAwaitingConfirmation || a.state == StateReadyToSubmit:
		return fmt.Errorf("%w: %s", ErrInvalidState, a.state)
	}
	return nil
}
