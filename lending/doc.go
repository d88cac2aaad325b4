// Package lending contains the domain types and sentinel errors shared by
// the lending transaction engine and its entity store implementations.
//
// The types mirror the three tables of the library system: members, books,
// and loan records. A LoanRecord is "open" while its return timestamp is
// absent; the book it references is considered on loan for as long as the
// record stays open.
package lending
