// Package engine implements the lending transaction engine: the component
// that keeps a library's inventory counts and loan records consistent under
// concurrent borrow and return requests.
//
// The crux is the coupling of each inventory mutation to its loan record
// mutation as one atomic unit. A borrow decrements the book's stock and then
// creates an open loan record; a return closes the record and then restores
// the stock unit. If the second half of either unit fails, the first half is
// compensated before the error is surfaced (see BorrowBook and ReturnBook).
// Stores that serialize stock writes optimistically report
// lending.ErrConcurrencyConflict, and the engine retries the whole unit with
// exponential backoff.
//
// Everything else is ordinary CRUD, catalog search with per-field
// deduplication, and advisory reports that degrade to empty results when
// their source is unavailable.
package engine
