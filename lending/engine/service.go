package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/raparthisrichethan-png/library-lending-go/lending"
)

const (
	logMsgOperation       = "lending operation: "
	logMsgRollbackFailed  = "compensating rollback failed, stock and loan records may be inconsistent"
	logMsgReportDegraded  = "report source unavailable, degrading to empty result"
	logAttrOperationID    = "operation_id"
	logAttrError          = "error"
	logAttrMemberID       = "member_id"
	logAttrBookID         = "book_id"
	logAttrRecordID       = "record_id"
	logAttrStock          = "stock"
	logAttrReport         = "report"
	actionMemberAdded     = "member added"
	actionMemberDeleted   = "member deleted"
	actionBookAdded       = "book added"
	actionBookDeleted     = "book deleted"
	actionBookBorrowed    = "book borrowed"
	actionBookReturned    = "book returned"
	reportTopBooks        = "top borrowed books"
	reportMemberBorrows   = "member borrow counts"
	reportOverdue         = "overdue loans"
)

// ErrNilStore is returned by NewService when the supplied store is nil.
var ErrNilStore = errors.New("store must not be nil")

// Service is the lending transaction engine. It enforces the loan state
// machine, couples every inventory mutation to its loan record mutation as
// one atomic unit with compensating rollback, guards destructive operations
// against open loans, and serves catalog search and aggregate reports.
//
// The service itself holds no mutable state; all shared state lives in the
// entity store, and every mutating operation is safe under concurrent
// invocation as long as the store honors the contracts in interfaces.go.
type Service struct {
	store        Store
	aggregates   AggregateSource
	logger       Logger
	clock        func() time.Time
	retryOptions []RetryOption
}

// Option defines a functional option for configuring a Service.
type Option func(*Service)

// WithLogger sets the logger for the Service.
func WithLogger(logger Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithClock overrides the time source, mainly for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// WithAggregates sets the precomputed aggregation source for the
// top-borrowed-books and member-borrow-counts reports.
func WithAggregates(aggregates AggregateSource) Option {
	return func(s *Service) {
		s.aggregates = aggregates
	}
}

// WithRetryOptions sets a custom retry configuration for the borrow/return
// atomic units.
func WithRetryOptions(opts ...RetryOption) Option {
	return func(s *Service) {
		s.retryOptions = opts
	}
}

// NewService creates a Service on top of an entity store with optional configuration.
func NewService(store Store, options ...Option) (*Service, error) {
	if store == nil {
		return nil, ErrNilStore
	}

	s := &Service{
		store: store,
		clock: func() time.Time { return time.Now().UTC() },
	}

	for _, option := range options {
		option(s)
	}

	return s, nil
}

// AddMember registers a new member with join timestamp = now.
func (s *Service) AddMember(ctx context.Context, name string, email string) (lending.Member, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	if name == "" {
		return lending.Member{}, fmt.Errorf("%w: member name must not be empty", lending.ErrValidation)
	}

	if email == "" {
		return lending.Member{}, fmt.Errorf("%w: member email must not be empty", lending.ErrValidation)
	}

	member, err := s.store.InsertMember(ctx, lending.Member{
		Name:     name,
		Email:    email,
		JoinedAt: s.clock(),
	})
	if err != nil {
		return lending.Member{}, err
	}

	s.logOperation(actionMemberAdded, logAttrMemberID, member.ID)

	return member, nil
}

// ListMembers returns all registered members.
func (s *Service) ListMembers(ctx context.Context) ([]lending.Member, error) {
	return s.store.ListMembers(ctx)
}

// UpdateMemberEmail sets a new email address for the member.
func (s *Service) UpdateMemberEmail(ctx context.Context, memberID int64, email string) (lending.Member, error) {
	if err := validID("member id", memberID); err != nil {
		return lending.Member{}, err
	}

	email = strings.TrimSpace(email)
	if email == "" {
		return lending.Member{}, fmt.Errorf("%w: member email must not be empty", lending.ErrValidation)
	}

	return s.store.UpdateMemberEmail(ctx, memberID, email)
}

// DeleteMember removes a member. It fails with lending.ErrHasActiveLoans
// while any open loan record references the member; deletion is blocked,
// never cascaded.
func (s *Service) DeleteMember(ctx context.Context, memberID int64) error {
	if err := validID("member id", memberID); err != nil {
		return err
	}

	if err := s.store.DeleteMember(ctx, memberID); err != nil {
		return err
	}

	s.logOperation(actionMemberDeleted, logAttrMemberID, memberID)

	return nil
}

// AddBook adds a new catalog entry with the given initial stock.
func (s *Service) AddBook(ctx context.Context, title, author, category string, stock int) (lending.Book, error) {
	title = strings.TrimSpace(title)
	author = strings.TrimSpace(author)
	category = strings.TrimSpace(category)

	if title == "" {
		return lending.Book{}, fmt.Errorf("%w: book title must not be empty", lending.ErrValidation)
	}

	if author == "" {
		return lending.Book{}, fmt.Errorf("%w: book author must not be empty", lending.ErrValidation)
	}

	if stock < 0 {
		return lending.Book{}, fmt.Errorf("%w: stock must not be negative", lending.ErrValidation)
	}

	book, err := s.store.InsertBook(ctx, lending.Book{
		Title:    title,
		Author:   author,
		Category: category,
		Stock:    stock,
	})
	if err != nil {
		return lending.Book{}, err
	}

	s.logOperation(actionBookAdded, logAttrBookID, book.ID, logAttrStock, book.Stock)

	return book, nil
}

// ListBooks returns the whole catalog.
func (s *Service) ListBooks(ctx context.Context) ([]lending.Book, error) {
	return s.store.ListBooks(ctx)
}

// UpdateBookStock sets the stock counter to an absolute value, e.g. after
// acquiring or discarding physical copies.
func (s *Service) UpdateBookStock(ctx context.Context, bookID int64, stock int) (lending.Book, error) {
	if err := validID("book id", bookID); err != nil {
		return lending.Book{}, err
	}

	if stock < 0 {
		return lending.Book{}, fmt.Errorf("%w: stock must not be negative", lending.ErrValidation)
	}

	return s.store.UpdateBookStock(ctx, bookID, stock)
}

// DeleteBook removes a catalog entry. It fails with lending.ErrHasActiveLoans
// while any open loan record references the book.
func (s *Service) DeleteBook(ctx context.Context, bookID int64) error {
	if err := validID("book id", bookID); err != nil {
		return err
	}

	if err := s.store.DeleteBook(ctx, bookID); err != nil {
		return err
	}

	s.logOperation(actionBookDeleted, logAttrBookID, bookID)

	return nil
}

func validID(what string, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: %s must be positive", lending.ErrValidation, what)
	}

	return nil
}

// logOperation logs operational information at info level if the logger is configured.
func (s *Service) logOperation(action string, args ...any) {
	if s.logger != nil {
		s.logger.Info(logMsgOperation+action, args...)
	}
}

// newOperationID creates the correlation id that ties together all log
// entries of one borrow/return atomic unit, including its rollback path.
func newOperationID() string {
	return uuid.New().String()
}
