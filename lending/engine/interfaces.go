package engine

import (
	"context"
	"time"

	"github.com/raparthisrichethan-png/library-lending-go/lending"
)

// MemberStore defines the member operations the engine needs from an entity store.
type MemberStore interface {
	InsertMember(ctx context.Context, member lending.Member) (lending.Member, error)
	GetMember(ctx context.Context, memberID int64) (lending.Member, error)
	ListMembers(ctx context.Context) ([]lending.Member, error)
	UpdateMemberEmail(ctx context.Context, memberID int64, email string) (lending.Member, error)

	// DeleteMember must refuse with lending.ErrHasActiveLoans while an open
	// loan references the member, and must evaluate that guard atomically
	// with the delete.
	DeleteMember(ctx context.Context, memberID int64) error
}

// BookStore defines the book and inventory operations the engine needs from
// an entity store.
type BookStore interface {
	InsertBook(ctx context.Context, book lending.Book) (lending.Book, error)
	GetBook(ctx context.Context, bookID int64) (lending.Book, error)
	ListBooks(ctx context.Context) ([]lending.Book, error)
	SearchBooksByField(ctx context.Context, field lending.SearchField, keyword string) ([]lending.Book, error)
	UpdateBookStock(ctx context.Context, bookID int64, stock int) (lending.Book, error)
	DeleteBook(ctx context.Context, bookID int64) error

	// DecrementStock must be a serialized read-then-write per book: it fails
	// with lending.ErrOutOfStock at stock 0 and must never lose a concurrent
	// update. Implementations may instead fail with
	// lending.ErrConcurrencyConflict, which the engine retries.
	DecrementStock(ctx context.Context, bookID int64) (int, error)
	IncrementStock(ctx context.Context, bookID int64) (int, error)
}

// LoanStore defines the loan record operations the engine needs from an
// entity store.
type LoanStore interface {
	// InsertLoan must only create a record while both the member and the
	// book exist, with that check evaluated atomically with the insert
	// (lending.ErrMemberNotFound / lending.ErrBookNotFound otherwise).
	// Together with the delete guards this closes the race between a
	// borrow and a concurrent delete of either entity.
	InsertLoan(ctx context.Context, memberID int64, bookID int64, borrowedAt time.Time) (lending.LoanRecord, error)
	GetLoan(ctx context.Context, recordID int64) (lending.LoanRecord, error)

	// DeleteLoan removes a record outright. It is the compensating action
	// for a borrow whose stock decrement failed; the record it removes has
	// never been observed by a caller.
	DeleteLoan(ctx context.Context, recordID int64) error

	// CloseLoan must only transition an open record and fail with
	// lending.ErrAlreadyReturned otherwise; closed records are immutable.
	CloseLoan(ctx context.Context, recordID int64, returnedAt time.Time) (lending.LoanRecord, error)
	ReopenLoan(ctx context.Context, recordID int64) error
	ListOpenLoansBorrowedBefore(ctx context.Context, cutoff time.Time) ([]lending.LoanRecord, error)
}

// Store is the complete entity store contract the engine operates on.
type Store interface {
	MemberStore
	BookStore
	LoanStore
}

// AggregateSource is the optional precomputed aggregation source backing the
// top-borrowed-books and member-borrow-counts reports. When it is absent or
// failing, those reports degrade to empty results.
type AggregateSource interface {
	CountLoansByBook(ctx context.Context) ([]lending.BookBorrowCount, error)
	CountLoansByMember(ctx context.Context) ([]lending.MemberBorrowCount, error)
}

// Logger interface for operational logging, warnings, and error reporting.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}
