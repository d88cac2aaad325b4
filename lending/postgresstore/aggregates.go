package postgresstore

import (
	"context"

	"github.com/doug-martin/goqu/v9"

	"github.com/raparthisrichethan-png/library-lending-go/lending"
)

const (
	actionCountLoansByBook   = "count loans by book"
	actionCountLoansByMember = "count loans by member"

	aliasBorrows = "borrows"
)

// CountLoansByBook returns the total historical loan record count (open and
// closed) per book. Order is unspecified; ranking and tie-breaks are the
// report aggregator's concern.
func (s *Store) CountLoansByBook(ctx context.Context) ([]lending.BookBorrowCount, error) {
	loans := goqu.T(s.tables.loans)
	books := goqu.T(s.tables.books)

	selectStmt := s.builder().
		From(loans).
		Join(books, goqu.On(loans.Col(colBookID).Eq(books.Col(colBookID)))).
		Select(books.Col(colBookID), books.Col(colTitle), goqu.COUNT(goqu.Star()).As(aliasBorrows)).
		GroupBy(books.Col(colBookID), books.Col(colTitle))

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		return nil, s.buildQueryFailed(toSQLErr)
	}

	rows, queryErr := s.executeQuery(ctx, actionCountLoansByBook, sqlQuery)
	if queryErr != nil {
		return nil, queryErr
	}
	defer s.closeRows(rows)

	counts := make([]lending.BookBorrowCount, 0)

	for rows.Next() {
		var count lending.BookBorrowCount

		if scanErr := rows.Scan(&count.BookID, &count.Title, &count.Borrows); scanErr != nil {
			return nil, s.scanRowFailed(scanErr)
		}

		counts = append(counts, count)
	}

	return counts, nil
}

// CountLoansByMember returns the total historical loan record count (open and
// closed) per member.
func (s *Store) CountLoansByMember(ctx context.Context) ([]lending.MemberBorrowCount, error) {
	loans := goqu.T(s.tables.loans)
	members := goqu.T(s.tables.members)

	selectStmt := s.builder().
		From(loans).
		Join(members, goqu.On(loans.Col(colMemberID).Eq(members.Col(colMemberID)))).
		Select(members.Col(colMemberID), members.Col(colName), goqu.COUNT(goqu.Star()).As(aliasBorrows)).
		GroupBy(members.Col(colMemberID), members.Col(colName))

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		return nil, s.buildQueryFailed(toSQLErr)
	}

	rows, queryErr := s.executeQuery(ctx, actionCountLoansByMember, sqlQuery)
	if queryErr != nil {
		return nil, queryErr
	}
	defer s.closeRows(rows)

	counts := make([]lending.MemberBorrowCount, 0)

	for rows.Next() {
		var count lending.MemberBorrowCount

		if scanErr := rows.Scan(&count.MemberID, &count.Name, &count.Borrows); scanErr != nil {
			return nil, s.scanRowFailed(scanErr)
		}

		counts = append(counts, count)
	}

	return counts, nil
}
