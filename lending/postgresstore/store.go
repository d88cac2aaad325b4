package postgresstore

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect import
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/raparthisrichethan-png/library-lending-go/lending"
	"github.com/raparthisrichethan-png/library-lending-go/lending/postgresstore/internal/adapters"
)

const (
	defaultMembersTableName = "members"
	defaultBooksTableName   = "books"
	defaultLoansTableName   = "loans"

	logMsgDBQueryFailed    = "database query execution failed"
	logMsgDBExecFailed     = "database execution failed"
	logMsgCloseRowsFailed  = "failed to close database rows"
	logMsgScanRowFailed    = "failed to scan database row"
	logMsgRowsAffected     = "failed to get rows affected count"
	logMsgBuildQueryFailed = "failed to build query"
	logMsgSQLExecuted      = "executed sql for: "
	logAttrError           = "error"
	logAttrQuery           = "query"
	logAttrDurationMS      = "duration_ms"

	colMemberID   = "member_id"
	colName       = "name"
	colEmail      = "email"
	colJoinedAt   = "joined_at"
	colBookID     = "book_id"
	colTitle      = "title"
	colAuthor     = "author"
	colCategory   = "category"
	colStock      = "stock"
	colRecordID   = "record_id"
	colBorrowedAt = "borrowed_at"
	colReturnedAt = "returned_at"

	dialectPostgres = "postgres"
)

var (
	// ErrNilDatabaseConnection is returned by the constructors when the supplied connection is nil.
	ErrNilDatabaseConnection = errors.New("database connection must not be nil")

	// ErrEmptyTableName is returned by WithTableNames when a table name is empty.
	ErrEmptyTableName = errors.New("empty table name supplied")

	errBuildingQueryFailed = errors.New("building query failed")
	errNoRowReturned       = errors.New("statement returned no row")
)

// Logger interface for SQL query logging, operational metrics, warnings, and error reporting.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type tableNames struct {
	members string
	books   string
	loans   string
}

// Store is the PostgreSQL entity store for members, books, and loan records.
// It leverages a database adapter and supports customizable logging and table names.
//
// All conditional mutations (stock decrement, loan close, guarded delete) are
// single SQL statements, so each one is atomic with respect to concurrent
// callers without an explicit transaction.
type Store struct {
	db     adapters.DBAdapter
	tables tableNames
	logger Logger
}

// Option defines a functional option for configuring a Store.
type Option func(*Store) error

// WithTableNames overrides the default members/books/loans table names.
func WithTableNames(members, books, loans string) Option {
	return func(s *Store) error {
		if members == "" || books == "" || loans == "" {
			return ErrEmptyTableName
		}

		s.tables = tableNames{members: members, books: books, loans: loans}

		return nil
	}
}

// WithLogger sets the logger for the Store.
//
// Debug level: SQL queries with execution timing (development use)
// Warn level: non-critical issues like cleanup failures
// Error level: critical failures that cause operation failures.
func WithLogger(logger Logger) Option {
	return func(s *Store) error {
		s.logger = logger
		return nil
	}
}

// NewStoreFromPGXPool creates a new Store using a pgx pool with optional configuration.
func NewStoreFromPGXPool(db *pgxpool.Pool, options ...Option) (*Store, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newStore(adapters.NewPGXAdapter(db), options...)
}

// NewStoreFromSQLDB creates a new Store using a sql.DB with optional configuration.
func NewStoreFromSQLDB(db *sql.DB, options ...Option) (*Store, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newStore(adapters.NewSQLAdapter(db), options...)
}

// NewStoreFromSQLX creates a new Store using a sqlx.DB with optional configuration.
func NewStoreFromSQLX(db *sqlx.DB, options ...Option) (*Store, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newStore(adapters.NewSQLXAdapter(db), options...)
}

func newStore(db adapters.DBAdapter, options ...Option) (*Store, error) {
	s := &Store{
		db: db,
		tables: tableNames{
			members: defaultMembersTableName,
			books:   defaultBooksTableName,
			loans:   defaultLoansTableName,
		},
	}

	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func (s *Store) builder() goqu.DialectWrapper {
	return goqu.Dialect(dialectPostgres)
}

// executeQuery executes the SQL query with timing and debug logging.
func (s *Store) executeQuery(ctx context.Context, action string, sqlQuery string) (adapters.DBRows, error) {
	start := time.Now()
	rows, queryErr := s.db.Query(ctx, sqlQuery)
	s.logQueryWithDuration(sqlQuery, action, time.Since(start))

	if queryErr != nil {
		if s.logger != nil {
			s.logger.Error(logMsgDBQueryFailed, logAttrError, queryErr.Error(), logAttrQuery, sqlQuery)
		}

		return nil, errors.Join(lending.ErrPersistenceFailure, queryErr)
	}

	return rows, nil
}

// executeStatement executes a SQL statement and returns the number of affected rows.
func (s *Store) executeStatement(ctx context.Context, action string, sqlQuery string) (int64, error) {
	start := time.Now()
	result, execErr := s.db.Exec(ctx, sqlQuery)
	s.logQueryWithDuration(sqlQuery, action, time.Since(start))

	if execErr != nil {
		if s.logger != nil {
			s.logger.Error(logMsgDBExecFailed, logAttrError, execErr.Error(), logAttrQuery, sqlQuery)
		}

		return 0, errors.Join(lending.ErrPersistenceFailure, execErr)
	}

	rowsAffected, rowsAffectedErr := result.RowsAffected()
	if rowsAffectedErr != nil {
		if s.logger != nil {
			s.logger.Error(logMsgRowsAffected, logAttrError, rowsAffectedErr.Error())
		}

		return 0, errors.Join(lending.ErrPersistenceFailure, rowsAffectedErr)
	}

	return rowsAffected, nil
}

// closeRows safely closes database rows and logs any errors.
func (s *Store) closeRows(rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		if s.logger != nil {
			s.logger.Warn(logMsgCloseRowsFailed, logAttrError, closeErr.Error())
		}
	}
}

func (s *Store) buildQueryFailed(err error) error {
	if s.logger != nil {
		s.logger.Error(logMsgBuildQueryFailed, logAttrError, err.Error())
	}

	return errors.Join(lending.ErrPersistenceFailure, errBuildingQueryFailed, err)
}

func (s *Store) scanRowFailed(err error) error {
	if s.logger != nil {
		s.logger.Error(logMsgScanRowFailed, logAttrError, err.Error())
	}

	return errors.Join(lending.ErrPersistenceFailure, err)
}

// logQueryWithDuration logs SQL queries with execution time at debug level if the logger is configured.
func (s *Store) logQueryWithDuration(sqlQuery string, action string, duration time.Duration) {
	if s.logger != nil {
		s.logger.Debug(logMsgSQLExecuted+action, logAttrDurationMS, durationToMilliseconds(duration), logAttrQuery, sqlQuery)
	}
}

// durationToMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func durationToMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}
