package engine

import (
	"context"
	"slices"
	"time"

	"github.com/raparthisrichethan-png/library-lending-go/lending"
)

// DefaultOverdueThresholdDays is the overdue threshold applied when the
// caller passes a non-positive value.
const DefaultOverdueThresholdDays = 14

// OverdueLoans returns all open loan records whose borrow timestamp is older
// than now minus thresholdDays. It is a pure read; no action is taken on the
// records. Like all reports it degrades to an empty result when the store
// fails, since reports are advisory.
func (s *Service) OverdueLoans(ctx context.Context, thresholdDays int) ([]lending.LoanRecord, error) {
	if thresholdDays <= 0 {
		thresholdDays = DefaultOverdueThresholdDays
	}

	cutoff := s.clock().Add(-time.Duration(thresholdDays) * 24 * time.Hour)

	loans, err := s.store.ListOpenLoansBorrowedBefore(ctx, cutoff)
	if err != nil {
		s.logReportDegraded(reportOverdue, err)
		return []lending.LoanRecord{}, nil
	}

	return loans, nil
}

// TopBorrowedBooks ranks books by total historical loan record count (open
// and closed), descending, ties broken by book identifier ascending. When
// no aggregation source is configured or it fails, the result is empty,
// never an error.
func (s *Service) TopBorrowedBooks(ctx context.Context) ([]lending.BookBorrowCount, error) {
	if s.aggregates == nil {
		return []lending.BookBorrowCount{}, nil
	}

	counts, err := s.aggregates.CountLoansByBook(ctx)
	if err != nil {
		s.logReportDegraded(reportTopBooks, err)
		return []lending.BookBorrowCount{}, nil
	}

	slices.SortFunc(counts, func(a, b lending.BookBorrowCount) int {
		if a.Borrows != b.Borrows {
			return b.Borrows - a.Borrows
		}

		switch {
		case a.BookID < b.BookID:
			return -1
		case a.BookID > b.BookID:
			return 1
		default:
			return 0
		}
	})

	if counts == nil {
		counts = []lending.BookBorrowCount{}
	}

	return counts, nil
}

// MemberBorrowCounts returns the total historical loan record count per
// member, ordered by member identifier ascending, with the same
// fallback-to-empty policy as TopBorrowedBooks.
func (s *Service) MemberBorrowCounts(ctx context.Context) ([]lending.MemberBorrowCount, error) {
	if s.aggregates == nil {
		return []lending.MemberBorrowCount{}, nil
	}

	counts, err := s.aggregates.CountLoansByMember(ctx)
	if err != nil {
		s.logReportDegraded(reportMemberBorrows, err)
		return []lending.MemberBorrowCount{}, nil
	}

	slices.SortFunc(counts, func(a, b lending.MemberBorrowCount) int {
		switch {
		case a.MemberID < b.MemberID:
			return -1
		case a.MemberID > b.MemberID:
			return 1
		default:
			return 0
		}
	})

	if counts == nil {
		counts = []lending.MemberBorrowCount{}
	}

	return counts, nil
}

func (s *Service) logReportDegraded(report string, err error) {
	if s.logger != nil {
		s.logger.Warn(logMsgReportDegraded, logAttrReport, report, logAttrError, err.Error())
	}
}
