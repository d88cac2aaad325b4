package engine

import (
	"context"
	"errors"

	"github.com/raparthisrichethan-png/library-lending-go/lending"
)

// BorrowBook lends one copy of a book to a member.
//
// The atomic unit is: create an open loan record with borrow timestamp = now,
// then decrement the book's stock. The record goes in first so that the
// open-loan guards on DeleteMember and DeleteBook see it for the whole unit;
// a delete of either entity can only win before the record exists, in which
// case the insert itself refuses with the matching not-found error. If the
// decrement fails after the insert, the never-observed record is removed
// again before the error is surfaced, so stock never desyncs from the number
// of copies on loan.
//
// A store that detects a lost optimistic write on the stock counter reports
// lending.ErrConcurrencyConflict; the whole unit is then retried with
// exponential backoff.
func (s *Service) BorrowBook(ctx context.Context, memberID int64, bookID int64) (lending.LoanRecord, error) {
	if err := validID("member id", memberID); err != nil {
		return lending.LoanRecord{}, err
	}

	if err := validID("book id", bookID); err != nil {
		return lending.LoanRecord{}, err
	}

	opID := newOperationID()

	var record lending.LoanRecord

	retryErr := RetryWithExponentialBackoff(ctx, func(retryCtx context.Context) error {
		insertedRecord, insertErr := s.store.InsertLoan(retryCtx, memberID, bookID, s.clock())
		if insertErr != nil {
			return insertErr
		}

		newStock, decrementErr := s.store.DecrementStock(retryCtx, bookID)
		if decrementErr != nil {
			s.rollbackInsert(retryCtx, opID, insertedRecord.ID)
			return decrementErr
		}

		record = insertedRecord

		s.logOperation(
			actionBookBorrowed,
			logAttrOperationID, opID,
			logAttrRecordID, record.ID,
			logAttrMemberID, memberID,
			logAttrBookID, bookID,
			logAttrStock, newStock,
		)

		return nil
	}, s.retryOptions...)

	if retryErr != nil {
		return lending.LoanRecord{}, retryErr
	}

	return record, nil
}

// ReturnBook closes an open loan record and puts the copy back into stock.
//
// The atomic unit is: transition the record to closed with return timestamp
// = now, then increment the book's stock. If the increment fails after the
// close, the record is reopened before the error is surfaced. The one
// exception is an increment failing with lending.ErrBookNotFound: the book
// was deleted after the record closed (legal, since the close released the
// guard), there is no stock row left to restore, and the return stands.
// A return on an already-closed record yields lending.ErrAlreadyReturned
// and changes nothing.
func (s *Service) ReturnBook(ctx context.Context, recordID int64) (lending.LoanRecord, error) {
	if err := validID("record id", recordID); err != nil {
		return lending.LoanRecord{}, err
	}

	opID := newOperationID()

	var record lending.LoanRecord

	retryErr := RetryWithExponentialBackoff(ctx, func(retryCtx context.Context) error {
		closedRecord, closeErr := s.store.CloseLoan(retryCtx, recordID, s.clock())
		if closeErr != nil {
			return closeErr
		}

		newStock, incrementErr := s.store.IncrementStock(retryCtx, closedRecord.BookID)
		if incrementErr != nil {
			if errors.Is(incrementErr, lending.ErrBookNotFound) {
				record = closedRecord

				s.logOperation(
					actionBookReturned,
					logAttrOperationID, opID,
					logAttrRecordID, record.ID,
					logAttrMemberID, record.MemberID,
					logAttrBookID, record.BookID,
				)

				return nil
			}

			s.rollbackClose(retryCtx, opID, recordID)
			return incrementErr
		}

		record = closedRecord

		s.logOperation(
			actionBookReturned,
			logAttrOperationID, opID,
			logAttrRecordID, record.ID,
			logAttrMemberID, record.MemberID,
			logAttrBookID, record.BookID,
			logAttrStock, newStock,
		)

		return nil
	}, s.retryOptions...)

	if retryErr != nil {
		return lending.LoanRecord{}, retryErr
	}

	return record, nil
}

// rollbackInsert is the best-effort compensating action for a borrow whose
// stock decrement failed. A failure here is logged loudly; the caller still
// sees the original error.
func (s *Service) rollbackInsert(ctx context.Context, opID string, recordID int64) {
	if rollbackErr := s.store.DeleteLoan(ctx, recordID); rollbackErr != nil {
		if s.logger != nil {
			s.logger.Error(logMsgRollbackFailed,
				logAttrOperationID, opID,
				logAttrRecordID, recordID,
				logAttrError, rollbackErr.Error(),
			)
		}
	}
}

// rollbackClose is the best-effort compensating action for a return whose
// stock increment failed.
func (s *Service) rollbackClose(ctx context.Context, opID string, recordID int64) {
	if rollbackErr := s.store.ReopenLoan(ctx, recordID); rollbackErr != nil {
		if s.logger != nil {
			s.logger.Error(logMsgRollbackFailed,
				logAttrOperationID, opID,
				logAttrRecordID, recordID,
				logAttrError, rollbackErr.Error(),
			)
		}
	}
}
