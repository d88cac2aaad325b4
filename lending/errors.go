package lending

import (
	"errors"
)

// Precondition and validation errors are detected before any mutation and
// returned directly; no partial state change accompanies them.
var (
	ErrMemberNotFound = errors.New("member not found")
	ErrBookNotFound   = errors.New("book not found")
	ErrLoanNotFound   = errors.New("loan record not found")

	// ErrOutOfStock is returned by a borrow attempt when no copy of the
	// requested book is currently available.
	ErrOutOfStock = errors.New("book is out of stock")

	// ErrAlreadyReturned is returned when a return targets a loan record
	// that is already closed. Closed records are immutable.
	ErrAlreadyReturned = errors.New("loan record is already returned")

	// ErrHasActiveLoans is returned when a delete targets a member or book
	// that is still referenced by an open loan record.
	ErrHasActiveLoans = errors.New("entity has active loans")

	// ErrValidation marks malformed input, e.g. negative stock or an empty
	// name. Wrapped errors carry the concrete reason.
	ErrValidation = errors.New("validation failed")

	// ErrConcurrencyConflict signals a lost optimistic write on a book's
	// stock counter; callers retry the whole atomic unit.
	ErrConcurrencyConflict = errors.New("concurrency conflict, stock changed underneath")

	// ErrPersistenceFailure marks a store-layer fault. It is always joined
	// with the underlying cause.
	ErrPersistenceFailure = errors.New("persistence failure")
)
