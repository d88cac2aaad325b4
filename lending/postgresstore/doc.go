// Package postgresstore implements the entity store for the lending engine
// on PostgreSQL.
//
// All SQL is built with goqu and executed through a small database adapter
// interface, so the store works with pgxpool.Pool, sql.DB, or sqlx.DB
// connections (see NewStoreFromPGXPool, NewStoreFromSQLDB, NewStoreFromSQLX).
//
// The mutations that carry invariants are single conditional SQL statements:
//
//   - DecrementStock only matches a row with stock > 0, so stock can never
//     go negative and concurrent borrows cannot lose updates.
//   - CloseLoan only matches an open record, so a loan is closed at most once.
//   - DeleteMember and DeleteBook carry their open-loan guard in the DELETE
//     statement itself, so no loan can open between check and delete.
//   - InsertLoan only inserts while the referenced member and book rows
//     exist, so no loan can come into being for an entity that a guarded
//     delete has already removed.
//
// The expected schema is in schema.sql next to this package.
package postgresstore
