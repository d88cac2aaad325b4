package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/raparthisrichethan-png/library-lending-go/lending"
	"github.com/raparthisrichethan-png/library-lending-go/lending/engine"
	"github.com/raparthisrichethan-png/library-lending-go/lending/memorystore"
)

var testNow = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

var errStoreBroken = errors.New("store broken")

func newTestService(t *testing.T, options ...engine.Option) (*engine.Service, *memorystore.Store) {
	t.Helper()

	store := memorystore.NewStore()

	allOptions := append([]engine.Option{
		engine.WithClock(func() time.Time { return testNow }),
		engine.WithAggregates(store),
	}, options...)

	service, err := engine.NewService(store, allOptions...)
	require.NoError(t, err)

	return service, store
}

func newServiceOnStore(t *testing.T, store engine.Store, options ...engine.Option) *engine.Service {
	t.Helper()

	allOptions := append([]engine.Option{
		engine.WithClock(func() time.Time { return testNow }),
	}, options...)

	service, err := engine.NewService(store, allOptions...)
	require.NoError(t, err)

	return service
}

func givenMember(t *testing.T, service *engine.Service, name string) lending.Member {
	t.Helper()

	member, err := service.AddMember(context.Background(), name, name+"@example.com")
	require.NoError(t, err)

	return member
}

func givenBook(t *testing.T, service *engine.Service, title, author, category string, stock int) lending.Book {
	t.Helper()

	book, err := service.AddBook(context.Background(), title, author, category, stock)
	require.NoError(t, err)

	return book
}

func openLoans(t *testing.T, store *memorystore.Store) []lending.LoanRecord {
	t.Helper()

	farFuture := testNow.Add(100 * 365 * 24 * time.Hour)

	loans, err := store.ListOpenLoansBorrowedBefore(context.Background(), farFuture)
	require.NoError(t, err)

	return loans
}

func currentStock(t *testing.T, store *memorystore.Store, bookID int64) int {
	t.Helper()

	book, err := store.GetBook(context.Background(), bookID)
	require.NoError(t, err)

	return book.Stock
}

// failingLoanInsertStore makes every loan record insert fail, to exercise
// the borrow rollback path.
type failingLoanInsertStore struct {
	*memorystore.Store
}

func (s *failingLoanInsertStore) InsertLoan(_ context.Context, _ int64, _ int64, _ time.Time) (lending.LoanRecord, error) {
	return lending.LoanRecord{}, errors.Join(lending.ErrPersistenceFailure, errStoreBroken)
}

// failingDecrementStore makes every stock decrement fail, to exercise the
// borrow compensation path.
type failingDecrementStore struct {
	*memorystore.Store
}

func (s *failingDecrementStore) DecrementStock(_ context.Context, _ int64) (int, error) {
	return 0, errors.Join(lending.ErrPersistenceFailure, errStoreBroken)
}

// bookDeletingOnInsertStore deletes the book right before the loan record
// insert, simulating a delete that wins the race against a borrow.
type bookDeletingOnInsertStore struct {
	*memorystore.Store
	deleted bool
}

func (s *bookDeletingOnInsertStore) InsertLoan(ctx context.Context, memberID int64, bookID int64, borrowedAt time.Time) (lending.LoanRecord, error) {
	if !s.deleted {
		s.deleted = true

		if err := s.Store.DeleteBook(ctx, bookID); err != nil {
			return lending.LoanRecord{}, err
		}
	}

	return s.Store.InsertLoan(ctx, memberID, bookID, borrowedAt)
}

// memberDeletingOnInsertStore mirrors bookDeletingOnInsertStore for the
// member side of the guard.
type memberDeletingOnInsertStore struct {
	*memorystore.Store
	deleted bool
}

func (s *memberDeletingOnInsertStore) InsertLoan(ctx context.Context, memberID int64, bookID int64, borrowedAt time.Time) (lending.LoanRecord, error) {
	if !s.deleted {
		s.deleted = true

		if err := s.Store.DeleteMember(ctx, memberID); err != nil {
			return lending.LoanRecord{}, err
		}
	}

	return s.Store.InsertLoan(ctx, memberID, bookID, borrowedAt)
}

// bookDeletingOnDecrementStore attempts the book delete between the loan
// record insert and the stock decrement, capturing the guard's verdict.
type bookDeletingOnDecrementStore struct {
	*memorystore.Store
	deleteErr error
	attempted bool
}

func (s *bookDeletingOnDecrementStore) DecrementStock(ctx context.Context, bookID int64) (int, error) {
	if !s.attempted {
		s.attempted = true
		s.deleteErr = s.Store.DeleteBook(ctx, bookID)
	}

	return s.Store.DecrementStock(ctx, bookID)
}

// bookDeletingOnIncrementStore deletes the book between the loan record
// close and the stock increment, the legal schedule once the record is
// closed.
type bookDeletingOnIncrementStore struct {
	*memorystore.Store
	deleted bool
}

func (s *bookDeletingOnIncrementStore) IncrementStock(ctx context.Context, bookID int64) (int, error) {
	if !s.deleted {
		s.deleted = true

		if err := s.Store.DeleteBook(ctx, bookID); err != nil {
			return 0, err
		}
	}

	return s.Store.IncrementStock(ctx, bookID)
}

// failingIncrementStore makes stock increments fail on demand, to exercise
// the return rollback path.
type failingIncrementStore struct {
	*memorystore.Store
	failIncrements bool
}

func (s *failingIncrementStore) IncrementStock(ctx context.Context, bookID int64) (int, error) {
	if s.failIncrements {
		return 0, errors.Join(lending.ErrPersistenceFailure, errStoreBroken)
	}

	return s.Store.IncrementStock(ctx, bookID)
}

// failingAggregates simulates an unavailable aggregation source.
type failingAggregates struct{}

func (failingAggregates) CountLoansByBook(_ context.Context) ([]lending.BookBorrowCount, error) {
	return nil, errors.Join(lending.ErrPersistenceFailure, errStoreBroken)
}

func (failingAggregates) CountLoansByMember(_ context.Context) ([]lending.MemberBorrowCount, error) {
	return nil, errors.Join(lending.ErrPersistenceFailure, errStoreBroken)
}
