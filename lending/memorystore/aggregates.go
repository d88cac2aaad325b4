package memorystore

import (
	"context"
	"slices"

	"github.com/raparthisrichethan-png/library-lending-go/lending"
)

// CountLoansByBook returns the total historical loan record count per book.
// Loans whose book has since been deleted are not reported, matching the
// join semantics of the Postgres store.
func (s *Store) CountLoansByBook(_ context.Context) ([]lending.BookBorrowCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byBook := make(map[int64]int)
	for _, loan := range s.loans {
		byBook[loan.BookID]++
	}

	counts := make([]lending.BookBorrowCount, 0, len(byBook))
	for bookID, borrows := range byBook {
		slot, ok := s.books[bookID]
		if !ok {
			continue
		}

		counts = append(counts, lending.BookBorrowCount{
			BookID:  bookID,
			Title:   slot.book.Title,
			Borrows: borrows,
		})
	}

	return counts, nil
}

// CountLoansByMember returns the total historical loan record count per member.
func (s *Store) CountLoansByMember(_ context.Context) ([]lending.MemberBorrowCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byMember := make(map[int64]int)
	for _, loan := range s.loans {
		byMember[loan.MemberID]++
	}

	counts := make([]lending.MemberBorrowCount, 0, len(byMember))
	for memberID, borrows := range byMember {
		member, ok := s.members[memberID]
		if !ok {
			continue
		}

		counts = append(counts, lending.MemberBorrowCount{
			MemberID: memberID,
			Name:     member.Name,
			Borrows:  borrows,
		})
	}

	return counts, nil
}

func sortByID[T any](items []T, id func(T) int64) {
	slices.SortFunc(items, func(a, b T) int {
		switch {
		case id(a) < id(b):
			return -1
		case id(a) > id(b):
			return 1
		default:
			return 0
		}
	})
}

func sortByBorrowedAt(loans []lending.LoanRecord) {
	slices.SortFunc(loans, func(a, b lending.LoanRecord) int {
		return a.BorrowedAt.Compare(b.BorrowedAt)
	})
}
