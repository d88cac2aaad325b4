package lending

import (
	"time"
)

// Member is a registered library member.
type Member struct {
	ID       int64
	Name     string
	Email    string
	JoinedAt time.Time
}

// Book is a catalog entry with a stock counter.
// Stock counts the physical copies currently available to borrow and must
// never go negative; only the inventory operations of a store mutate it.
type Book struct {
	ID       int64
	Title    string
	Author   string
	Category string
	Stock    int
}

// LoanRecord couples a member to a borrowed book copy.
// ReturnedAt is nil while the loan is open. A record is mutated exactly
// once, by the matching return; it is never deleted.
type LoanRecord struct {
	ID         int64
	MemberID   int64
	BookID     int64
	BorrowedAt time.Time
	ReturnedAt *time.Time
}

// IsOpen reports whether the loan has not been returned yet.
func (r LoanRecord) IsOpen() bool {
	return r.ReturnedAt == nil
}

// SearchField names a book column the catalog search scans.
type SearchField string

const (
	SearchFieldTitle    SearchField = "title"
	SearchFieldAuthor   SearchField = "author"
	SearchFieldCategory SearchField = "category"
)

// SearchFieldScanOrder is the order in which catalog search scans the book
// fields; a book matching on multiple fields is reported once, attributed
// to the first field that matched.
func SearchFieldScanOrder() []SearchField {
	return []SearchField{SearchFieldTitle, SearchFieldAuthor, SearchFieldCategory}
}

// BookBorrowCount is one row of the top-borrowed-books aggregate:
// the total historical number of loan records (open and closed) per book.
type BookBorrowCount struct {
	BookID  int64
	Title   string
	Borrows int
}

// MemberBorrowCount is one row of the per-member loan count aggregate.
type MemberBorrowCount struct {
	MemberID int64
	Name     string
	Borrows  int
}
