package postgresstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/raparthisrichethan-png/library-lending-go/lending"
)

const (
	actionInsertLoan    = "insert loan"
	actionGetLoan       = "get loan"
	actionCloseLoan     = "close loan"
	actionReopenLoan    = "reopen loan"
	actionDeleteLoan    = "delete loan"
	actionListOpenLoans = "list open loans"
)

// InsertLoan stores a new open loan record and returns it with the
// store-assigned identifier. The insert only matches while both the member
// and the book rows exist; existence check and insert are one SQL statement,
// so a guarded delete of either entity cannot slip in between.
func (s *Store) InsertLoan(ctx context.Context, memberID int64, bookID int64, borrowedAt time.Time) (lending.LoanRecord, error) {
	memberExistsStmt := s.builder().
		From(s.tables.members).
		Select(goqu.L("1")).
		Where(goqu.C(colMemberID).Eq(memberID))

	bookExistsStmt := s.builder().
		From(s.tables.books).
		Select(goqu.L("1")).
		Where(goqu.C(colBookID).Eq(bookID))

	sourceStmt := s.builder().
		Select(goqu.V(memberID), goqu.V(bookID), goqu.V(borrowedAt)).
		Where(
			goqu.L("EXISTS ?", memberExistsStmt),
			goqu.L("EXISTS ?", bookExistsStmt),
		)

	insertStmt := s.builder().
		Insert(s.tables.loans).
		Cols(colMemberID, colBookID, colBorrowedAt).
		FromQuery(sourceStmt).
		Returning(colRecordID, colMemberID, colBookID, colBorrowedAt, colReturnedAt)

	sqlQuery, _, toSQLErr := insertStmt.ToSQL()
	if toSQLErr != nil {
		return lending.LoanRecord{}, s.buildQueryFailed(toSQLErr)
	}

	loans, queryErr := s.queryLoans(ctx, actionInsertLoan, sqlQuery)
	if queryErr != nil {
		return lending.LoanRecord{}, queryErr
	}

	if len(loans) == 0 {
		// No row inserted: one of the referenced entities is gone.
		if _, getErr := s.GetMember(ctx, memberID); getErr != nil {
			return lending.LoanRecord{}, getErr
		}

		if _, getErr := s.GetBook(ctx, bookID); getErr != nil {
			return lending.LoanRecord{}, getErr
		}

		return lending.LoanRecord{}, errors.Join(lending.ErrPersistenceFailure, errNoRowReturned)
	}

	return loans[0], nil
}

// GetLoan returns the loan record with the given identifier or lending.ErrLoanNotFound.
func (s *Store) GetLoan(ctx context.Context, recordID int64) (lending.LoanRecord, error) {
	selectStmt := s.builder().
		From(s.tables.loans).
		Select(colRecordID, colMemberID, colBookID, colBorrowedAt, colReturnedAt).
		Where(goqu.C(colRecordID).Eq(recordID))

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		return lending.LoanRecord{}, s.buildQueryFailed(toSQLErr)
	}

	loans, queryErr := s.queryLoans(ctx, actionGetLoan, sqlQuery)
	if queryErr != nil {
		return lending.LoanRecord{}, queryErr
	}

	if len(loans) == 0 {
		return lending.LoanRecord{}, lending.ErrLoanNotFound
	}

	return loans[0], nil
}

// CloseLoan transitions an open loan record to closed by setting the return
// timestamp. The conditional single-statement update guarantees a record is
// closed at most once; a second close yields lending.ErrAlreadyReturned.
func (s *Store) CloseLoan(ctx context.Context, recordID int64, returnedAt time.Time) (lending.LoanRecord, error) {
	updateStmt := s.builder().
		Update(s.tables.loans).
		Set(goqu.Record{colReturnedAt: returnedAt}).
		Where(
			goqu.C(colRecordID).Eq(recordID),
			goqu.C(colReturnedAt).IsNull(),
		).
		Returning(colRecordID, colMemberID, colBookID, colBorrowedAt, colReturnedAt)

	sqlQuery, _, toSQLErr := updateStmt.ToSQL()
	if toSQLErr != nil {
		return lending.LoanRecord{}, s.buildQueryFailed(toSQLErr)
	}

	loans, queryErr := s.queryLoans(ctx, actionCloseLoan, sqlQuery)
	if queryErr != nil {
		return lending.LoanRecord{}, queryErr
	}

	if len(loans) == 0 {
		// No row matched: the record is either absent or already closed.
		if _, getErr := s.GetLoan(ctx, recordID); getErr != nil {
			return lending.LoanRecord{}, getErr
		}

		return lending.LoanRecord{}, lending.ErrAlreadyReturned
	}

	return loans[0], nil
}

// ReopenLoan clears the return timestamp of a loan record. This is the
// compensating action for a return whose stock increment failed; it is not
// part of the public lending workflow.
func (s *Store) ReopenLoan(ctx context.Context, recordID int64) error {
	updateStmt := s.builder().
		Update(s.tables.loans).
		Set(goqu.Record{colReturnedAt: nil}).
		Where(goqu.C(colRecordID).Eq(recordID))

	sqlQuery, _, toSQLErr := updateStmt.ToSQL()
	if toSQLErr != nil {
		return s.buildQueryFailed(toSQLErr)
	}

	rowsAffected, execErr := s.executeStatement(ctx, actionReopenLoan, sqlQuery)
	if execErr != nil {
		return execErr
	}

	if rowsAffected == 0 {
		return lending.ErrLoanNotFound
	}

	return nil
}

// DeleteLoan removes a loan record. This is the compensating action for a
// borrow whose stock decrement failed; it is not part of the public lending
// workflow.
func (s *Store) DeleteLoan(ctx context.Context, recordID int64) error {
	deleteStmt := s.builder().
		Delete(s.tables.loans).
		Where(goqu.C(colRecordID).Eq(recordID))

	sqlQuery, _, toSQLErr := deleteStmt.ToSQL()
	if toSQLErr != nil {
		return s.buildQueryFailed(toSQLErr)
	}

	rowsAffected, execErr := s.executeStatement(ctx, actionDeleteLoan, sqlQuery)
	if execErr != nil {
		return execErr
	}

	if rowsAffected == 0 {
		return lending.ErrLoanNotFound
	}

	return nil
}

// ListOpenLoansBorrowedBefore returns all open loan records whose borrow
// timestamp is older than the cutoff, ordered by borrow timestamp.
func (s *Store) ListOpenLoansBorrowedBefore(ctx context.Context, cutoff time.Time) ([]lending.LoanRecord, error) {
	selectStmt := s.builder().
		From(s.tables.loans).
		Select(colRecordID, colMemberID, colBookID, colBorrowedAt, colReturnedAt).
		Where(
			goqu.C(colReturnedAt).IsNull(),
			goqu.C(colBorrowedAt).Lt(cutoff),
		).
		Order(goqu.I(colBorrowedAt).Asc())

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		return nil, s.buildQueryFailed(toSQLErr)
	}

	return s.queryLoans(ctx, actionListOpenLoans, sqlQuery)
}

func (s *Store) queryLoans(ctx context.Context, action string, sqlQuery string) ([]lending.LoanRecord, error) {
	rows, queryErr := s.executeQuery(ctx, action, sqlQuery)
	if queryErr != nil {
		return nil, queryErr
	}
	defer s.closeRows(rows)

	loans := make([]lending.LoanRecord, 0)

	for rows.Next() {
		var loan lending.LoanRecord
		var returnedAt sql.NullTime

		if scanErr := rows.Scan(&loan.ID, &loan.MemberID, &loan.BookID, &loan.BorrowedAt, &returnedAt); scanErr != nil {
			return nil, s.scanRowFailed(scanErr)
		}

		if returnedAt.Valid {
			t := returnedAt.Time
			loan.ReturnedAt = &t
		}

		loans = append(loans, loan)
	}

	return loans, nil
}
