package postgresstore

import (
	"context"
	"errors"

	"github.com/doug-martin/goqu/v9"

	"github.com/raparthisrichethan-png/library-lending-go/lending"
)

const (
	actionInsertMember      = "insert member"
	actionGetMember         = "get member"
	actionListMembers       = "list members"
	actionUpdateMemberEmail = "update member email"
	actionDeleteMember      = "delete member"
)

// InsertMember stores a new member and returns it with the store-assigned identifier.
func (s *Store) InsertMember(ctx context.Context, member lending.Member) (lending.Member, error) {
	insertStmt := s.builder().
		Insert(s.tables.members).
		Rows(goqu.Record{
			colName:     member.Name,
			colEmail:    member.Email,
			colJoinedAt: member.JoinedAt,
		}).
		Returning(colMemberID, colName, colEmail, colJoinedAt)

	sqlQuery, _, toSQLErr := insertStmt.ToSQL()
	if toSQLErr != nil {
		return lending.Member{}, s.buildQueryFailed(toSQLErr)
	}

	members, queryErr := s.queryMembers(ctx, actionInsertMember, sqlQuery)
	if queryErr != nil {
		return lending.Member{}, queryErr
	}

	if len(members) == 0 {
		return lending.Member{}, errors.Join(lending.ErrPersistenceFailure, errNoRowReturned)
	}

	return members[0], nil
}

// GetMember returns the member with the given identifier or lending.ErrMemberNotFound.
func (s *Store) GetMember(ctx context.Context, memberID int64) (lending.Member, error) {
	selectStmt := s.builder().
		From(s.tables.members).
		Select(colMemberID, colName, colEmail, colJoinedAt).
		Where(goqu.C(colMemberID).Eq(memberID))

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		return lending.Member{}, s.buildQueryFailed(toSQLErr)
	}

	members, queryErr := s.queryMembers(ctx, actionGetMember, sqlQuery)
	if queryErr != nil {
		return lending.Member{}, queryErr
	}

	if len(members) == 0 {
		return lending.Member{}, lending.ErrMemberNotFound
	}

	return members[0], nil
}

// ListMembers returns all members ordered by identifier.
func (s *Store) ListMembers(ctx context.Context) ([]lending.Member, error) {
	selectStmt := s.builder().
		From(s.tables.members).
		Select(colMemberID, colName, colEmail, colJoinedAt).
		Order(goqu.I(colMemberID).Asc())

	sqlQuery, _, toSQLErr := selectStmt.ToSQL()
	if toSQLErr != nil {
		return nil, s.buildQueryFailed(toSQLErr)
	}

	return s.queryMembers(ctx, actionListMembers, sqlQuery)
}

// UpdateMemberEmail sets a new email address for the member.
func (s *Store) UpdateMemberEmail(ctx context.Context, memberID int64, email string) (lending.Member, error) {
	updateStmt := s.builder().
		Update(s.tables.members).
		Set(goqu.Record{colEmail: email}).
		Where(goqu.C(colMemberID).Eq(memberID)).
		Returning(colMemberID, colName, colEmail, colJoinedAt)

	sqlQuery, _, toSQLErr := updateStmt.ToSQL()
	if toSQLErr != nil {
		return lending.Member{}, s.buildQueryFailed(toSQLErr)
	}

	members, queryErr := s.queryMembers(ctx, actionUpdateMemberEmail, sqlQuery)
	if queryErr != nil {
		return lending.Member{}, queryErr
	}

	if len(members) == 0 {
		return lending.Member{}, lending.ErrMemberNotFound
	}

	return members[0], nil
}

// DeleteMember removes a member unless an open loan record still references it.
// The referential-integrity guard and the delete are one SQL statement, so no
// loan can be opened between the check and the delete.
func (s *Store) DeleteMember(ctx context.Context, memberID int64) error {
	openLoansStmt := s.builder().
		From(s.tables.loans).
		Select(goqu.L("1")).
		Where(
			goqu.C(colMemberID).Eq(memberID),
			goqu.C(colReturnedAt).IsNull(),
		)

	deleteStmt := s.builder().
		Delete(s.tables.members).
		Where(
			goqu.C(colMemberID).Eq(memberID),
			goqu.L("NOT EXISTS ?", openLoansStmt),
		)

	sqlQuery, _, toSQLErr := deleteStmt.ToSQL()
	if toSQLErr != nil {
		return s.buildQueryFailed(toSQLErr)
	}

	rowsAffected, execErr := s.executeStatement(ctx, actionDeleteMember, sqlQuery)
	if execErr != nil {
		return execErr
	}

	if rowsAffected == 0 {
		// Nothing was deleted: either the member does not exist, or the
		// guard blocked the delete. The follow-up read only labels the error.
		if _, getErr := s.GetMember(ctx, memberID); getErr != nil {
			if errors.Is(getErr, lending.ErrMemberNotFound) {
				return lending.ErrMemberNotFound
			}

			return getErr
		}

		return lending.ErrHasActiveLoans
	}

	return nil
}

func (s *Store) queryMembers(ctx context.Context, action string, sqlQuery string) ([]lending.Member, error) {
	rows, queryErr := s.executeQuery(ctx, action, sqlQuery)
	if queryErr != nil {
		return nil, queryErr
	}
	defer s.closeRows(rows)

	members := make([]lending.Member, 0)

	for rows.Next() {
		var member lending.Member

		if scanErr := rows.Scan(&member.ID, &member.Name, &member.Email, &member.JoinedAt); scanErr != nil {
			return nil, s.scanRowFailed(scanErr)
		}

		members = append(members, member)
	}

	return members, nil
}
