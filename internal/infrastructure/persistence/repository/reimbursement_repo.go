package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/ops-approval/internal/application/port"
	"github.com/garyjia/ops-approval/internal/domain/entity"
	"github.com/garyjia/ops-approval/internal/infrastructure/persistence/sqldb"
	"go.uber.org/zap"
)

// ReimbursementRepository implements port.ReimbursementRepository
type ReimbursementRepository struct {
	*recordStore
}

// NewReimbursementRepository creates a new reimbursement repository
func NewReimbursementRepository(db *sqldb.DB, logger *zap.Logger) *ReimbursementRepository {
	return &ReimbursementRepository{
		recordStore: &recordStore{
			db: db,
			table: recordTable{
				name:         "reimbursements",
				businessType: entity.BusinessTypeReimbursement,
				amountColumn: "total_amount",
			},
			logger: logger,
		},
	}
}

// Create inserts a draft claim and sets its ID
func (r *ReimbursementRepository) Create(ctx context.Context, claim *entity.Reimbursement) error {
	if claim.Status == "" {
		claim.Status = entity.RecordStatusDraft
	}
	claim.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO reimbursements (
			user_id, department_id, title, type, total_amount, remark, status, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`

	err := r.db.QueryRow(ctx, query,
		claim.UserID,
		claim.DepartmentID,
		claim.Title,
		claim.Type,
		claim.TotalAmount,
		claim.Remark,
		string(claim.Status),
		claim.CreatedAt,
	).Scan(&claim.ID)
	if err != nil {
		r.logger.Error("Failed to create reimbursement", zap.Int64("user_id", claim.UserID), zap.Error(err))
		return fmt.Errorf("failed to create reimbursement: %w", err)
	}
	return nil
}

// GetByID retrieves a claim by ID
func (r *ReimbursementRepository) GetByID(ctx context.Context, id int64) (*entity.Reimbursement, error) {
	query := `
		SELECT id, user_id, department_id, title, type, total_amount, remark, status,
			workflow_id, current_node_id, submitted_at, completed_at, created_at
		FROM reimbursements
		WHERE id = ?
	`

	var (
		claim       entity.Reimbursement
		status      string
		workflowID  sql.NullInt64
		nodeID      sql.NullInt64
		submittedAt sql.NullTime
		completedAt sql.NullTime
	)
	err := r.db.QueryRow(ctx, query, id).Scan(
		&claim.ID,
		&claim.UserID,
		&claim.DepartmentID,
		&claim.Title,
		&claim.Type,
		&claim.TotalAmount,
		&claim.Remark,
		&status,
		&workflowID,
		&nodeID,
		&submittedAt,
		&completedAt,
		&claim.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get reimbursement", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get reimbursement: %w", err)
	}

	claim.Status = entity.RecordStatus(status)
	claim.WorkflowID = int64Ptr(workflowID)
	claim.CurrentNodeID = int64Ptr(nodeID)
	claim.SubmittedAt = timePtr(submittedAt)
	claim.CompletedAt = timePtr(completedAt)
	return &claim, nil
}

// Verify interface compliance
var _ port.ReimbursementRepository = (*ReimbursementRepository)(nil)
