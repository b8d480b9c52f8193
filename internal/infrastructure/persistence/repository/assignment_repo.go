package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/ops-approval/internal/application/port"
	"github.com/garyjia/ops-approval/internal/domain/entity"
	"github.com/garyjia/ops-approval/internal/infrastructure/persistence/sqldb"
	"go.uber.org/zap"
)

// AssignmentRepository implements port.AssignmentRepository over the approvers table
type AssignmentRepository struct {
	db     *sqldb.DB
	logger *zap.Logger
}

// NewAssignmentRepository creates a new assignment repository
func NewAssignmentRepository(db *sqldb.DB, logger *zap.Logger) *AssignmentRepository {
	return &AssignmentRepository{
		db:     db,
		logger: logger,
	}
}

// ListActiveByGroup returns the active assignments of a custom group ordered by id
func (r *AssignmentRepository) ListActiveByGroup(ctx context.Context, groupName string) ([]*entity.ApproverAssignment, error) {
	query := `
		SELECT id, group_name, user_id, delegate_user_id, delegate_start, delegate_end,
			department_scope, amount_limit, is_active, created_at
		FROM approvers
		WHERE group_name = ? AND is_active = ?
		ORDER BY id ASC
	`

	rows, err := r.db.Query(ctx, query, groupName, true)
	if err != nil {
		r.logger.Error("Failed to list approver assignments", zap.String("group", groupName), zap.Error(err))
		return nil, fmt.Errorf("failed to list approver assignments: %w", err)
	}
	defer rows.Close()

	var assignments []*entity.ApproverAssignment
	for rows.Next() {
		var (
			a           entity.ApproverAssignment
			delegate    sql.NullInt64
			start, end  sql.NullString
			scope       string
			amountLimit sql.NullFloat64
		)
		err := rows.Scan(
			&a.ID,
			&a.GroupName,
			&a.UserID,
			&delegate,
			&start,
			&end,
			&scope,
			&amountLimit,
			&a.IsActive,
			&a.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan approver assignment: %w", err)
		}

		a.DelegateUserID = int64Ptr(delegate)
		a.DelegateStart = stringPtr(start)
		a.DelegateEnd = stringPtr(end)
		a.AmountLimit = float64Ptr(amountLimit)
		if s := strings.TrimSpace(scope); s != "" && s != "null" {
			if err := json.Unmarshal([]byte(s), &a.DepartmentScope); err != nil {
				// A malformed scope must not widen access, so the row is skipped
				r.logger.Warn("Skipping approver with malformed department scope",
					zap.Int64("approver_id", a.ID), zap.Error(err))
				continue
			}
		}
		assignments = append(assignments, &a)
	}
	return assignments, rows.Err()
}

// Exists reports whether the user has any assignment row in the group
func (r *AssignmentRepository) Exists(ctx context.Context, groupName string, userID int64) (bool, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM approvers WHERE group_name = ? AND user_id = ?`, groupName, userID).Scan(&n)
	if err != nil {
		r.logger.Error("Failed to check approver assignment",
			zap.String("group", groupName), zap.Int64("user_id", userID), zap.Error(err))
		return false, fmt.Errorf("failed to check approver assignment: %w", err)
	}
	return n > 0, nil
}

// Create inserts an assignment and sets its ID
func (r *AssignmentRepository) Create(ctx context.Context, a *entity.ApproverAssignment) error {
	scope := a.DepartmentScope
	if scope == nil {
		scope = []int64{}
	}
	scopeJSON, err := json.Marshal(scope)
	if err != nil {
		return fmt.Errorf("failed to encode department scope: %w", err)
	}
	a.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO approvers (
			group_name, user_id, delegate_user_id, delegate_start, delegate_end,
			department_scope, amount_limit, is_active, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`

	err = r.db.QueryRow(ctx, query,
		a.GroupName,
		a.UserID,
		nullableInt64(a.DelegateUserID),
		nullableString(a.DelegateStart),
		nullableString(a.DelegateEnd),
		string(scopeJSON),
		nullableFloat64(a.AmountLimit),
		a.IsActive,
		a.CreatedAt,
	).Scan(&a.ID)
	if err != nil {
		r.logger.Error("Failed to create approver assignment",
			zap.String("group", a.GroupName), zap.Int64("user_id", a.UserID), zap.Error(err))
		return fmt.Errorf("failed to create approver assignment: %w", err)
	}
	return nil
}

// Verify interface compliance
var _ port.AssignmentRepository = (*AssignmentRepository)(nil)
