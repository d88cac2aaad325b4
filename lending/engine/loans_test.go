package engine_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raparthisrichethan-png/library-lending-go/lending"
	"github.com/raparthisrichethan-png/library-lending-go/lending/engine"
	"github.com/raparthisrichethan-png/library-lending-go/lending/memorystore"
)

func Test_BorrowBook_Success_DecrementsStockAndOpensRecord(t *testing.T) {
	// arrange
	service, store := newTestService(t)
	member := givenMember(t, service, "alice")
	book := givenBook(t, service, "The Go Programming Language", "Rob Pike", "Systems", 1)

	// act
	record, err := service.BorrowBook(context.Background(), member.ID, book.ID)

	// assert
	require.NoError(t, err)
	assert.True(t, record.IsOpen())
	assert.Equal(t, member.ID, record.MemberID)
	assert.Equal(t, book.ID, record.BookID)
	assert.Equal(t, testNow, record.BorrowedAt)
	assert.Equal(t, 0, currentStock(t, store, book.ID))
}

func Test_BorrowBook_OutOfStock_WhenLastCopyAlreadyBorrowed(t *testing.T) {
	// arrange
	service, store := newTestService(t)
	firstMember := givenMember(t, service, "alice")
	secondMember := givenMember(t, service, "bob")
	book := givenBook(t, service, "The Go Programming Language", "Rob Pike", "Systems", 1)

	_, err := service.BorrowBook(context.Background(), firstMember.ID, book.ID)
	require.NoError(t, err)

	// act
	_, err = service.BorrowBook(context.Background(), secondMember.ID, book.ID)

	// assert
	assert.ErrorIs(t, err, lending.ErrOutOfStock)
	assert.Equal(t, 0, currentStock(t, store, book.ID))
}

func Test_BorrowBook_MemberNotFound(t *testing.T) {
	service, _ := newTestService(t)
	book := givenBook(t, service, "The Go Programming Language", "Rob Pike", "Systems", 1)

	_, err := service.BorrowBook(context.Background(), 42, book.ID)

	assert.ErrorIs(t, err, lending.ErrMemberNotFound)
}

func Test_BorrowBook_BookNotFound(t *testing.T) {
	service, _ := newTestService(t)
	member := givenMember(t, service, "alice")

	_, err := service.BorrowBook(context.Background(), member.ID, 42)

	assert.ErrorIs(t, err, lending.ErrBookNotFound)
}

func Test_BorrowBook_InvalidIDs(t *testing.T) {
	service, _ := newTestService(t)

	_, err := service.BorrowBook(context.Background(), 0, 1)
	assert.ErrorIs(t, err, lending.ErrValidation)

	_, err = service.BorrowBook(context.Background(), 1, -1)
	assert.ErrorIs(t, err, lending.ErrValidation)
}

func Test_BorrowBook_NoEffect_WhenLoanInsertFails(t *testing.T) {
	// arrange
	store := &failingLoanInsertStore{Store: memorystore.NewStore()}
	service := newServiceOnStore(t, store)
	member := givenMember(t, service, "alice")
	book := givenBook(t, service, "The Go Programming Language", "Rob Pike", "Systems", 3)

	// act
	_, err := service.BorrowBook(context.Background(), member.ID, book.ID)

	// assert - the record insert comes first, so nothing was mutated yet
	assert.ErrorIs(t, err, lending.ErrPersistenceFailure)
	assert.Equal(t, 3, currentStock(t, store.Store, book.ID))
	assert.Empty(t, openLoans(t, store.Store))
}

func Test_BorrowBook_RemovesRecord_WhenDecrementFails(t *testing.T) {
	// arrange
	store := &failingDecrementStore{Store: memorystore.NewStore()}
	service := newServiceOnStore(t, store)
	member := givenMember(t, service, "alice")
	book := givenBook(t, service, "The Go Programming Language", "Rob Pike", "Systems", 3)

	// act
	_, err := service.BorrowBook(context.Background(), member.ID, book.ID)

	// assert - the insert was compensated, no partial effect remains
	assert.ErrorIs(t, err, lending.ErrPersistenceFailure)
	assert.Equal(t, 3, currentStock(t, store.Store, book.ID))
	assert.Empty(t, openLoans(t, store.Store))
}

func Test_BorrowBook_DeleteWinsRace_NoOrphanedRecord(t *testing.T) {
	// arrange - the book is deleted just before the record insert
	store := &bookDeletingOnInsertStore{Store: memorystore.NewStore()}
	service := newServiceOnStore(t, store)
	member := givenMember(t, service, "alice")
	book := givenBook(t, service, "The Go Programming Language", "Rob Pike", "Systems", 1)

	// act
	_, err := service.BorrowBook(context.Background(), member.ID, book.ID)

	// assert - the borrow refuses, the delete stands, and no loan record
	// references the deleted book
	assert.ErrorIs(t, err, lending.ErrBookNotFound)

	_, getErr := store.GetBook(context.Background(), book.ID)
	assert.ErrorIs(t, getErr, lending.ErrBookNotFound)
	assert.Empty(t, openLoans(t, store.Store))
}

func Test_BorrowBook_MemberDeleteWinsRace_NoOrphanedRecord(t *testing.T) {
	// arrange
	store := &memberDeletingOnInsertStore{Store: memorystore.NewStore()}
	service := newServiceOnStore(t, store)
	member := givenMember(t, service, "alice")
	book := givenBook(t, service, "The Go Programming Language", "Rob Pike", "Systems", 1)

	// act
	_, err := service.BorrowBook(context.Background(), member.ID, book.ID)

	// assert
	assert.ErrorIs(t, err, lending.ErrMemberNotFound)
	assert.Equal(t, 1, currentStock(t, store.Store, book.ID))
	assert.Empty(t, openLoans(t, store.Store))
}

func Test_DeleteBook_DuringBorrow_BlockedByOpenRecord(t *testing.T) {
	// arrange - the delete fires between the record insert and the stock
	// decrement, where the guard already sees the open record
	store := &bookDeletingOnDecrementStore{Store: memorystore.NewStore()}
	service := newServiceOnStore(t, store)
	member := givenMember(t, service, "alice")
	book := givenBook(t, service, "The Go Programming Language", "Rob Pike", "Systems", 1)

	// act
	record, err := service.BorrowBook(context.Background(), member.ID, book.ID)

	// assert - the borrow wins, the delete is refused
	require.NoError(t, err)
	assert.True(t, record.IsOpen())
	assert.ErrorIs(t, store.deleteErr, lending.ErrHasActiveLoans)
	assert.Equal(t, 0, currentStock(t, store.Store, book.ID))
}

func Test_ReturnBook_Success_RestoresStockAndClosesRecord(t *testing.T) {
	// arrange
	service, store := newTestService(t)
	member := givenMember(t, service, "alice")
	book := givenBook(t, service, "The Go Programming Language", "Rob Pike", "Systems", 1)

	record, err := service.BorrowBook(context.Background(), member.ID, book.ID)
	require.NoError(t, err)

	// act
	returned, err := service.ReturnBook(context.Background(), record.ID)

	// assert
	require.NoError(t, err)
	assert.False(t, returned.IsOpen())
	require.NotNil(t, returned.ReturnedAt)
	assert.Equal(t, testNow, *returned.ReturnedAt)
	assert.Equal(t, 1, currentStock(t, store, book.ID))
}

func Test_ReturnBook_AlreadyReturned_DoesNotChangeStock(t *testing.T) {
	// arrange
	service, store := newTestService(t)
	member := givenMember(t, service, "alice")
	book := givenBook(t, service, "The Go Programming Language", "Rob Pike", "Systems", 1)

	record, err := service.BorrowBook(context.Background(), member.ID, book.ID)
	require.NoError(t, err)

	_, err = service.ReturnBook(context.Background(), record.ID)
	require.NoError(t, err)

	// act - a closed record is immutable, no re-return via the same record
	_, err = service.ReturnBook(context.Background(), record.ID)

	// assert
	assert.ErrorIs(t, err, lending.ErrAlreadyReturned)
	assert.Equal(t, 1, currentStock(t, store, book.ID))
}

func Test_ReturnBook_RecordNotFound(t *testing.T) {
	service, _ := newTestService(t)

	_, err := service.ReturnBook(context.Background(), 42)

	assert.ErrorIs(t, err, lending.ErrLoanNotFound)
}

func Test_ReturnBook_ReopensRecord_WhenIncrementFails(t *testing.T) {
	// arrange
	store := &failingIncrementStore{Store: memorystore.NewStore()}
	service := newServiceOnStore(t, store)
	member := givenMember(t, service, "alice")
	book := givenBook(t, service, "The Go Programming Language", "Rob Pike", "Systems", 1)

	record, err := service.BorrowBook(context.Background(), member.ID, book.ID)
	require.NoError(t, err)

	store.failIncrements = true

	// act
	_, err = service.ReturnBook(context.Background(), record.ID)

	// assert - the close was compensated, the loan is open again
	assert.ErrorIs(t, err, lending.ErrPersistenceFailure)

	loan, getErr := store.GetLoan(context.Background(), record.ID)
	require.NoError(t, getErr)
	assert.True(t, loan.IsOpen())
	assert.Equal(t, 0, currentStock(t, store.Store, book.ID))

	// and the return succeeds once the store recovers
	store.failIncrements = false

	returned, err := service.ReturnBook(context.Background(), record.ID)
	require.NoError(t, err)
	assert.False(t, returned.IsOpen())
	assert.Equal(t, 1, currentStock(t, store.Store, book.ID))
}

func Test_ReturnBook_BookDeletedAfterClose_RecordStaysClosed(t *testing.T) {
	// arrange - once the record is closed the guard releases the book, so a
	// delete between close and increment is legal; there is no stock row
	// left to restore and the return must stand rather than reopen
	store := &bookDeletingOnIncrementStore{Store: memorystore.NewStore()}
	service := newServiceOnStore(t, store)
	member := givenMember(t, service, "alice")
	book := givenBook(t, service, "The Go Programming Language", "Rob Pike", "Systems", 1)

	record, err := service.BorrowBook(context.Background(), member.ID, book.ID)
	require.NoError(t, err)

	// act
	returned, err := service.ReturnBook(context.Background(), record.ID)

	// assert
	require.NoError(t, err)
	assert.False(t, returned.IsOpen())

	loan, getErr := store.GetLoan(context.Background(), record.ID)
	require.NoError(t, getErr)
	assert.False(t, loan.IsOpen())

	_, getErr = store.GetBook(context.Background(), book.ID)
	assert.ErrorIs(t, getErr, lending.ErrBookNotFound)
}

func Test_BorrowBook_ConcurrentBorrows_NeverOversellStock(t *testing.T) {
	// arrange
	const initialStock = 8
	const borrowers = 24

	service, store := newTestService(t,
		engine.WithRetryOptions(engine.WithMaxAttempts(50), engine.WithBaseDelay(0)),
	)
	book := givenBook(t, service, "The Go Programming Language", "Rob Pike", "Systems", initialStock)

	members := make([]lending.Member, borrowers)
	for i := range members {
		members[i] = givenMember(t, service, string(rune('a'+i)))
	}

	// act
	var wg sync.WaitGroup
	results := make([]error, borrowers)

	for i := 0; i < borrowers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = service.BorrowBook(context.Background(), members[i].ID, book.ID)
		}(i)
	}

	wg.Wait()

	// assert - exactly initialStock borrows succeeded, the rest ran out of
	// stock, and stock never went negative
	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}

		assert.ErrorIs(t, err, lending.ErrOutOfStock)
	}

	assert.Equal(t, initialStock, succeeded)
	assert.Equal(t, 0, currentStock(t, store, book.ID))
}

func Test_BorrowAndReturn_RestoresPreBorrowStock(t *testing.T) {
	// arrange
	service, store := newTestService(t)
	member := givenMember(t, service, "alice")
	book := givenBook(t, service, "The Go Programming Language", "Rob Pike", "Systems", 5)

	// act
	record, err := service.BorrowBook(context.Background(), member.ID, book.ID)
	require.NoError(t, err)

	_, err = service.ReturnBook(context.Background(), record.ID)
	require.NoError(t, err)

	// assert
	assert.Equal(t, 5, currentStock(t, store, book.ID))
}
