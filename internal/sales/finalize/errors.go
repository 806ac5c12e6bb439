package finalize

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidState indicates a transition attempted from the wrong state.
	ErrInvalidState = errors.New("invalid finalization state")
	// ErrBusy indicates a collaborator round-trip is outstanding; the
	// draft is frozen until it returns.
	ErrBusy = errors.New("finalize attempt busy")
	// ErrAlreadySubmitted rejects a second submit on the same draft.
	ErrAlreadySubmitted = errors.New("draft already submitted")
	// ErrAborted rejects operations on a discarded draft.
	ErrAborted = errors.New("draft aborted")
)

// LineError attaches a resolution failure to the specific line it came from.
type LineError struct {
	LineIndex   int
	SelectorKey int64
	Err         error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.LineIndex+1, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// ResolutionError aggregates the line errors that blocked the transition
// out of the draft state. Every failing line keeps its own specific cause.
type ResolutionError struct {
	Lines []*LineError
}

func (e *ResolutionError) Error() string {
	if len(e.Lines) == 1 {
		return e.Lines[0].Error()
	}
	return fmt.Sprintf("%s (and %d more lines)", e.Lines[0].Error(), len(e.Lines)-1)
}

// PersistenceError wraps an order-persistence collaborator failure. It is
// retryable: the draft survives intact and the attempt returns to the state
// it was in before the submit.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist order: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
