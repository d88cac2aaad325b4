package postgresstore

import (
	"context"
	"errors"
	"strings"

	"github.com/doug-martin/goqu/v9"

	"github.com/raparthisrichethan-png/library-lending-go/lending"
)

// likeEscaper neutralizes the LIKE metacharacters so keywords match as
// literal substrings, the same way the in-memory store matches them.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

const (
	actionInsertBook      = "insert book"
	actionGetBook         = "get book"
	actionListBooks       = "list books"
	actionSearchBooks     = "search books"
	actionUpdateBookStock = "update book stock"
	actionDeleteBook      = "delete book"
	actionDecrementStock  = "decrement stock"
	actionIncrementStock  = "increment stock"
)

// InsertBook stores a new book and returns it with the store-assigned identifier.
func (s *Store) InsertBook(ctx context.Context, book lending.Book) (lending.Book, error) {
	insertStmt := s.builder().
		Insert(s.tables.books).
		Rows(goqu.Record{
			colTitle:    book.Title,
			colAuthor:   book.Author,
			colCategory: book.Category,
			colStock:    book.Stock,
		}).
		Returning(colBookID, colTitle, colAuthor, colCategory, colStock)

	sqlQuery, _, toSQLErr := insertStmt.ToSQL()
	if toSQLErr != nil {
		return lending.Book{}, s.buildQueryFailed(toSQLErr)
	}

	books, queryErr := s.queryBooks(ctx, actionInsertBook, sqlQuery)
	if queryErr != nil {
		return lending.Book{}, queryErr
	}

	if len(books) == 0 {
		return lending.Book{}, errors.Join(lending.ErrPersistenceFailure, errNoRowReturned)
	}

	return books[0], nil
}

// GetBook returns the book with the given identifier or lending.ErrBookNotFound.
func (s *Store) GetBook(ctx context.Context, bookID int64) (lending.Book, error) {
	selectStmt := s.builder().
		From(s.tables.books).
		Select(colBookID, colTitle, colAuthor, colCategory, colStock).
		Where(goqu.C(colBookID).Eq(bookID))

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		return lending.Book{}, s.buildQueryFailed(toSQLErr)
	}

	books, queryErr := s.queryBooks(ctx, actionGetBook, sqlQuery)
	if queryErr != nil {
		return lending.Book{}, queryErr
	}

	if len(books) == 0 {
		return lending.Book{}, lending.ErrBookNotFound
	}

	return books[0], nil
}

// ListBooks returns all books ordered by identifier.
func (s *Store) ListBooks(ctx context.Context) ([]lending.Book, error) {
	selectStmt := s.builder().
		From(s.tables.books).
		Select(colBookID, colTitle, colAuthor, colCategory, colStock).
		Order(goqu.I(colBookID).Asc())

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		return nil, s.buildQueryFailed(toSQLErr)
	}

	return s.queryBooks(ctx, actionListBooks, sqlQuery)
}

// SearchBooksByField returns all books whose given field contains the keyword
// as a literal substring, case-insensitively, ordered by identifier.
func (s *Store) SearchBooksByField(ctx context.Context, field lending.SearchField, keyword string) ([]lending.Book, error) {
	selectStmt := s.builder().
		From(s.tables.books).
		Select(colBookID, colTitle, colAuthor, colCategory, colStock).
		Where(goqu.C(string(field)).ILike("%" + likeEscaper.Replace(keyword) + "%")).
		Order(goqu.I(colBookID).Asc())

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		return nil, s.buildQueryFailed(toSQLErr)
	}

	return s.queryBooks(ctx, actionSearchBooks, sqlQuery)
}

// UpdateBookStock sets the stock counter to an absolute value.
func (s *Store) UpdateBookStock(ctx context.Context, bookID int64, stock int) (lending.Book, error) {
	updateStmt := s.builder().
		Update(s.tables.books).
		Set(goqu.Record{colStock: stock}).
		Where(goqu.C(colBookID).Eq(bookID)).
		Returning(colBookID, colTitle, colAuthor, colCategory, colStock)

	sqlQuery, _, toSQLErr := updateStmt.ToSQL()
	if toSQLErr != nil {
		return lending.Book{}, s.buildQueryFailed(toSQLErr)
	}

	books, queryErr := s.queryBooks(ctx, actionUpdateBookStock, sqlQuery)
	if queryErr != nil {
		return lending.Book{}, queryErr
	}

	if len(books) == 0 {
		return lending.Book{}, lending.ErrBookNotFound
	}

	return books[0], nil
}

// DeleteBook removes a book unless an open loan record still references it.
// Guard and delete are one SQL statement, see DeleteMember.
func (s *Store) DeleteBook(ctx context.Context, bookID int64) error {
	openLoansStmt := s.builder().
		From(s.tables.loans).
		Select(goqu.L("1")).
		Where(
			goqu.C(colBookID).Eq(bookID),
			goqu.C(colReturnedAt).IsNull(),
		)

	deleteStmt := s.builder().
		Delete(s.tables.books).
		Where(
			goqu.C(colBookID).Eq(bookID),
			goqu.L("NOT EXISTS ?", openLoansStmt),
		)

	sqlQuery, _, toSQLErr := deleteStmt.ToSQL()
	if toSQLErr != nil {
		return s.buildQueryFailed(toSQLErr)
	}

	rowsAffected, execErr := s.executeStatement(ctx, actionDeleteBook, sqlQuery)
	if execErr != nil {
		return execErr
	}

	if rowsAffected == 0 {
		if _, getErr := s.GetBook(ctx, bookID); getErr != nil {
			if errors.Is(getErr, lending.ErrBookNotFound) {
				return lending.ErrBookNotFound
			}

			return getErr
		}

		return lending.ErrHasActiveLoans
	}

	return nil
}

// DecrementStock atomically takes one copy of the book out of stock and
// returns the new stock value. The conditional single-statement update
// cannot lose a concurrent update and cannot drive stock below zero.
func (s *Store) DecrementStock(ctx context.Context, bookID int64) (int, error) {
	updateStmt := s.builder().
		Update(s.tables.books).
		Set(goqu.Record{colStock: goqu.L(colStock + " - 1")}).
		Where(
			goqu.C(colBookID).Eq(bookID),
			goqu.C(colStock).Gt(0),
		).
		Returning(colStock)

	sqlQuery, _, toSQLErr := updateStmt.ToSQL()
	if toSQLErr != nil {
		return 0, s.buildQueryFailed(toSQLErr)
	}

	newStock, found, queryErr := s.queryStock(ctx, actionDecrementStock, sqlQuery)
	if queryErr != nil {
		return 0, queryErr
	}

	if !found {
		// No row matched: the book is either absent or out of stock.
		if _, getErr := s.GetBook(ctx, bookID); getErr != nil {
			return 0, getErr
		}

		return 0, lending.ErrOutOfStock
	}

	return newStock, nil
}

// IncrementStock atomically puts one copy of the book back into stock and
// returns the new stock value. A return always restores a unit; there is no
// upper bound check.
func (s *Store) IncrementStock(ctx context.Context, bookID int64) (int, error) {
	updateStmt := s.builder().
		Update(s.tables.books).
		Set(goqu.Record{colStock: goqu.L(colStock + " + 1")}).
		Where(goqu.C(colBookID).Eq(bookID)).
		Returning(colStock)

	sqlQuery, _, toSQLErr := updateStmt.ToSQL()
	if toSQLErr != nil {
		return 0, s.buildQueryFailed(toSQLErr)
	}

	newStock, found, queryErr := s.queryStock(ctx, actionIncrementStock, sqlQuery)
	if queryErr != nil {
		return 0, queryErr
	}

	if !found {
		return 0, lending.ErrBookNotFound
	}

	return newStock, nil
}

func (s *Store) queryStock(ctx context.Context, action string, sqlQuery string) (int, bool, error) {
	rows, queryErr := s.executeQuery(ctx, action, sqlQuery)
	if queryErr != nil {
		return 0, false, queryErr
	}
	defer s.closeRows(rows)

	if !rows.Next() {
		return 0, false, nil
	}

	var stock int
	if scanErr := rows.Scan(&stock); scanErr != nil {
		return 0, false, s.scanRowFailed(scanErr)
	}

	return stock, true, nil
}

func (s *Store) queryBooks(ctx context.Context, action string, sqlQuery string) ([]lending.Book, error) {
	rows, queryErr := s.executeQuery(ctx, action, sqlQuery)
	if queryErr != nil {
		return nil, queryErr
	}
	defer s.closeRows(rows)

	books := make([]lending.Book, 0)

	for rows.Next() {
		var book lending.Book

		if scanErr := rows.Scan(&book.ID, &book.Title, &book.Author, &book.Category, &book.Stock); scanErr != nil {
			return nil, s.scanRowFailed(scanErr)
		}

		books = append(books, book)
	}

	return books, nil
}
