package buffer

import "errors"

// Sentinel errors returned by buffer operations. Callers match with
// errors.Is.
var (
	// ErrInvalidRange indicates an edit range that is out of bounds,
	// unsorted, or overlapping a preceding range.
	ErrInvalidRange = errors.New("buffer: invalid range")

	// ErrMissingDependency indicates a remote operation whose causal
	// context has not been applied yet. The buffer does not queue such
	// operations; redelivery is the transport's responsibility.
	ErrMissingDependency = errors.New("buffer: missing dependency")

	// ErrUnknownTransaction indicates a transaction id with no history
	// entry.
	ErrUnknownTransaction = errors.New("buffer: unknown transaction")

	// ErrUnknownSelectionSet indicates a selection set id that was never
	// added or was already removed.
	ErrUnknownSelectionSet = errors.New("buffer: unknown selection set")

	// ErrStaleDiff indicates a diff whose base version no longer matches
	// the buffer.
	ErrStaleDiff = errors.New("buffer: stale diff")

	// ErrNothingToUndo indicates an empty undo stack.
	ErrNothingToUndo = errors.New("buffer: nothing to undo")

	// ErrNothingToRedo indicates an empty redo stack.
	ErrNothingToRedo = errors.New("buffer: nothing to redo")

	// ErrTransactionOpen indicates a call that is not permitted while a
	// transaction is open, such as undo or redo.
	ErrTransactionOpen = errors.New("buffer: transaction open")

	// ErrNoTransaction indicates an EndTransaction call with no matching
	// StartTransaction.
	ErrNoTransaction = errors.New("buffer: no open transaction")
)
