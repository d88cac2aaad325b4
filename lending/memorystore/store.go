// Package memorystore implements the entity store for the lending engine in
// process memory.
//
// It backs the engine's tests and the CLI's demo mode. Stock mutations use an
// optimistic compare-and-swap on a per-book version counter: a lost write
// surfaces as lending.ErrConcurrencyConflict, which the engine retries with
// exponential backoff. All other mutations run under the store mutex.
package memorystore

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/raparthisrichethan-png/library-lending-go/lending"
)

type bookSlot struct {
	book    lending.Book
	version uint64
}

// Store is an in-memory entity store for members, books, and loan records.
// The zero value is not usable; create instances with NewStore.
type Store struct {
	mu           sync.RWMutex
	members      map[int64]lending.Member
	books        map[int64]*bookSlot
	loans        map[int64]lending.LoanRecord
	nextMemberID int64
	nextBookID   int64
	nextLoanID   int64
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		members: make(map[int64]lending.Member),
		books:   make(map[int64]*bookSlot),
		loans:   make(map[int64]lending.LoanRecord),
	}
}

// InsertMember stores a new member and returns it with the assigned identifier.
func (s *Store) InsertMember(_ context.Context, member lending.Member) (lending.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextMemberID++
	member.ID = s.nextMemberID
	s.members[member.ID] = member

	return member, nil
}

// GetMember returns the member with the given identifier or lending.ErrMemberNotFound.
func (s *Store) GetMember(_ context.Context, memberID int64) (lending.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	member, ok := s.members[memberID]
	if !ok {
		return lending.Member{}, lending.ErrMemberNotFound
	}

	return member, nil
}

// ListMembers returns all members ordered by identifier.
func (s *Store) ListMembers(_ context.Context) ([]lending.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members := make([]lending.Member, 0, len(s.members))
	for _, member := range s.members {
		members = append(members, member)
	}

	sortByID(members, func(m lending.Member) int64 { return m.ID })

	return members, nil
}

// UpdateMemberEmail sets a new email address for the member.
func (s *Store) UpdateMemberEmail(_ context.Context, memberID int64, email string) (lending.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	member, ok := s.members[memberID]
	if !ok {
		return lending.Member{}, lending.ErrMemberNotFound
	}

	member.Email = email
	s.members[memberID] = member

	return member, nil
}

// DeleteMember removes a member unless an open loan record still references
// it. Guard and delete run under one lock acquisition, so no loan can open
// between the check and the delete.
func (s *Store) DeleteMember(_ context.Context, memberID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.members[memberID]; !ok {
		return lending.ErrMemberNotFound
	}

	for _, loan := range s.loans {
		if loan.MemberID == memberID && loan.IsOpen() {
			return lending.ErrHasActiveLoans
		}
	}

	delete(s.members, memberID)

	return nil
}

// InsertBook stores a new book and returns it with the assigned identifier.
func (s *Store) InsertBook(_ context.Context, book lending.Book) (lending.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextBookID++
	book.ID = s.nextBookID
	s.books[book.ID] = &bookSlot{book: book}

	return book, nil
}

// GetBook returns the book with the given identifier or lending.ErrBookNotFound.
func (s *Store) GetBook(_ context.Context, bookID int64) (lending.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	slot, ok := s.books[bookID]
	if !ok {
		return lending.Book{}, lending.ErrBookNotFound
	}

	return slot.book, nil
}

// ListBooks returns all books ordered by identifier.
func (s *Store) ListBooks(_ context.Context) ([]lending.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	books := make([]lending.Book, 0, len(s.books))
	for _, slot := range s.books {
		books = append(books, slot.book)
	}

	sortByID(books, func(b lending.Book) int64 { return b.ID })

	return books, nil
}

// SearchBooksByField returns all books whose given field contains the
// keyword, case-insensitively, ordered by identifier.
func (s *Store) SearchBooksByField(_ context.Context, field lending.SearchField, keyword string) ([]lending.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(keyword)
	books := make([]lending.Book, 0)

	for _, slot := range s.books {
		var haystack string

		switch field {
		case lending.SearchFieldTitle:
			haystack = slot.book.Title
		case lending.SearchFieldAuthor:
			haystack = slot.book.Author
		case lending.SearchFieldCategory:
			haystack = slot.book.Category
		}

		if strings.Contains(strings.ToLower(haystack), needle) {
			books = append(books, slot.book)
		}
	}

	sortByID(books, func(b lending.Book) int64 { return b.ID })

	return books, nil
}

// UpdateBookStock sets the stock counter to an absolute value.
func (s *Store) UpdateBookStock(_ context.Context, bookID int64, stock int) (lending.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.books[bookID]
	if !ok {
		return lending.Book{}, lending.ErrBookNotFound
	}

	slot.book.Stock = stock
	slot.version++

	return slot.book, nil
}

// DeleteBook removes a book unless an open loan record still references it.
func (s *Store) DeleteBook(_ context.Context, bookID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.books[bookID]; !ok {
		return lending.ErrBookNotFound
	}

	for _, loan := range s.loans {
		if loan.BookID == bookID && loan.IsOpen() {
			return lending.ErrHasActiveLoans
		}
	}

	delete(s.books, bookID)

	return nil
}

// DecrementStock takes one copy of the book out of stock and returns the new
// stock value. The read and the conditional write are separate lock
// acquisitions; if the book's version changed in between, the caller gets
// lending.ErrConcurrencyConflict and is expected to retry.
func (s *Store) DecrementStock(_ context.Context, bookID int64) (int, error) {
	s.mu.RLock()
	slot, ok := s.books[bookID]

	var stock int
	var version uint64
	if ok {
		stock = slot.book.Stock
		version = slot.version
	}
	s.mu.RUnlock()

	if !ok {
		return 0, lending.ErrBookNotFound
	}

	if stock <= 0 {
		return 0, lending.ErrOutOfStock
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok = s.books[bookID]
	if !ok {
		return 0, lending.ErrBookNotFound
	}

	if slot.version != version {
		return 0, lending.ErrConcurrencyConflict
	}

	slot.book.Stock = stock - 1
	slot.version++

	return slot.book.Stock, nil
}

// IncrementStock puts one copy of the book back into stock and returns the
// new stock value.
func (s *Store) IncrementStock(_ context.Context, bookID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.books[bookID]
	if !ok {
		return 0, lending.ErrBookNotFound
	}

	slot.book.Stock++
	slot.version++

	return slot.book.Stock, nil
}

// InsertLoan stores a new open loan record. The existence checks on member
// and book run under the same lock as the guarded deletes, so a delete of
// either entity can never interleave with the insert.
func (s *Store) InsertLoan(_ context.Context, memberID int64, bookID int64, borrowedAt time.Time) (lending.LoanRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.members[memberID]; !ok {
		return lending.LoanRecord{}, lending.ErrMemberNotFound
	}

	if _, ok := s.books[bookID]; !ok {
		return lending.LoanRecord{}, lending.ErrBookNotFound
	}

	s.nextLoanID++
	loan := lending.LoanRecord{
		ID:         s.nextLoanID,
		MemberID:   memberID,
		BookID:     bookID,
		BorrowedAt: borrowedAt,
	}
	s.loans[loan.ID] = loan

	return loan, nil
}

// GetLoan returns the loan record with the given identifier or lending.ErrLoanNotFound.
func (s *Store) GetLoan(_ context.Context, recordID int64) (lending.LoanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	loan, ok := s.loans[recordID]
	if !ok {
		return lending.LoanRecord{}, lending.ErrLoanNotFound
	}

	return copyLoan(loan), nil
}

// CloseLoan transitions an open loan record to closed. A record that is
// already closed yields lending.ErrAlreadyReturned and stays unchanged.
func (s *Store) CloseLoan(_ context.Context, recordID int64, returnedAt time.Time) (lending.LoanRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	loan, ok := s.loans[recordID]
	if !ok {
		return lending.LoanRecord{}, lending.ErrLoanNotFound
	}

	if !loan.IsOpen() {
		return lending.LoanRecord{}, lending.ErrAlreadyReturned
	}

	loan.ReturnedAt = &returnedAt
	s.loans[recordID] = loan

	return copyLoan(loan), nil
}

// DeleteLoan removes a loan record. Compensating action for a borrow whose
// stock decrement failed, see the engine.
func (s *Store) DeleteLoan(_ context.Context, recordID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.loans[recordID]; !ok {
		return lending.ErrLoanNotFound
	}

	delete(s.loans, recordID)

	return nil
}

// ReopenLoan clears the return timestamp of a loan record. Compensating
// action for a failed return, see the engine.
func (s *Store) ReopenLoan(_ context.Context, recordID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	loan, ok := s.loans[recordID]
	if !ok {
		return lending.ErrLoanNotFound
	}

	loan.ReturnedAt = nil
	s.loans[recordID] = loan

	return nil
}

// ListOpenLoansBorrowedBefore returns all open loan records borrowed before
// the cutoff, ordered by borrow timestamp.
func (s *Store) ListOpenLoansBorrowedBefore(_ context.Context, cutoff time.Time) ([]lending.LoanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	loans := make([]lending.LoanRecord, 0)
	for _, loan := range s.loans {
		if loan.IsOpen() && loan.BorrowedAt.Before(cutoff) {
			loans = append(loans, copyLoan(loan))
		}
	}

	sortByBorrowedAt(loans)

	return loans, nil
}

// copyLoan detaches the ReturnedAt pointer so callers cannot alias the
// stored record.
func copyLoan(loan lending.LoanRecord) lending.LoanRecord {
	if loan.ReturnedAt != nil {
		t := *loan.ReturnedAt
		loan.ReturnedAt = &t
	}

	return loan
}
