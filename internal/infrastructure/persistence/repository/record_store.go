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

// recordTable describes how a business table maps onto entity.BusinessRecord
type recordTable struct {
	name         string
	businessType entity.BusinessType
	// amountColumn is empty for documents without a monetary amount
	amountColumn string
}

// recordStore implements port.BusinessRecordRepository for one business table.
// Business repositories embed it so the engine sees every document the same way.
type recordStore struct {
	db     *sqldb.DB
	table  recordTable
	logger *zap.Logger
}

func (s *recordStore) recordColumns() string {
	amount := "NULL"
	if s.table.amountColumn != "" {
		amount = s.table.amountColumn
	}
	return "id, user_id, department_id, " + amount +
		", status, workflow_id, current_node_id, submitted_at, completed_at"
}

// GetRecord reads the record without locking
func (s *recordStore) GetRecord(ctx context.Context, id int64) (*entity.BusinessRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, s.recordColumns(), s.table.name)

	record, err := s.scanRecord(s.db.QueryRow(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		s.logger.Error("Failed to get business record",
			zap.String("table", s.table.name), zap.Int64("record_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get %s record: %w", s.table.businessType, err)
	}
	return record, nil
}

// LockRecord reads the record and locks it until the surrounding transaction ends
func (s *recordStore) LockRecord(ctx context.Context, id int64) (*entity.BusinessRecord, error) {
	if !sqldb.InTransaction(ctx) {
		return nil, fmt.Errorf("lock on %s %d requires a transaction", s.table.name, id)
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?%s`,
		s.recordColumns(), s.table.name, s.db.Dialect().LockClause())

	record, err := s.scanRecord(s.db.QueryRow(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		s.logger.Error("Failed to lock business record",
			zap.String("table", s.table.name), zap.Int64("record_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to lock %s record: %w", s.table.businessType, err)
	}
	return record, nil
}

// MarkSubmitted binds the record to a workflow and points it at the first node
func (s *recordStore) MarkSubmitted(ctx context.Context, id, workflowID, nodeID int64, at time.Time) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET status = ?, workflow_id = ?, current_node_id = ?, submitted_at = ?, completed_at = NULL
		WHERE id = ?`, s.table.name)

	result, err := s.db.Exec(ctx, query, string(entity.RecordStatusPending), workflowID, nodeID, at, id)
	if err != nil {
		s.logger.Error("Failed to mark record submitted",
			zap.String("table", s.table.name), zap.Int64("record_id", id), zap.Error(err))
		return fmt.Errorf("failed to mark %s submitted: %w", s.table.businessType, err)
	}
	return expectOneRow(result, s.table.name, id)
}

// MoveToNode points a pending record at another node
func (s *recordStore) MoveToNode(ctx context.Context, id, nodeID int64) error {
	query := fmt.Sprintf(`UPDATE %s SET current_node_id = ? WHERE id = ?`, s.table.name)

	result, err := s.db.Exec(ctx, query, nodeID, id)
	if err != nil {
		s.logger.Error("Failed to move record to node",
			zap.String("table", s.table.name), zap.Int64("record_id", id), zap.Int64("node_id", nodeID), zap.Error(err))
		return fmt.Errorf("failed to move %s to node: %w", s.table.businessType, err)
	}
	return expectOneRow(result, s.table.name, id)
}

// Complete sets a terminal status, clears the node pointer and stamps completion
func (s *recordStore) Complete(ctx context.Context, id int64, status entity.RecordStatus, at time.Time) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET status = ?, current_node_id = NULL, completed_at = ?
		WHERE id = ?`, s.table.name)

	result, err := s.db.Exec(ctx, query, string(status), at, id)
	if err != nil {
		s.logger.Error("Failed to complete record",
			zap.String("table", s.table.name), zap.Int64("record_id", id), zap.String("status", string(status)), zap.Error(err))
		return fmt.Errorf("failed to complete %s: %w", s.table.businessType, err)
	}
	return expectOneRow(result, s.table.name, id)
}

func (s *recordStore) scanRecord(row rowScanner) (*entity.BusinessRecord, error) {
	var (
		record      entity.BusinessRecord
		amount      sql.NullFloat64
		status      string
		workflowID  sql.NullInt64
		nodeID      sql.NullInt64
		submittedAt sql.NullTime
		completedAt sql.NullTime
	)
	err := row.Scan(
		&record.ID,
		&record.SubmitterID,
		&record.DepartmentID,
		&amount,
		&status,
		&workflowID,
		&nodeID,
		&submittedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	record.BusinessType = s.table.businessType
	record.Amount = float64Ptr(amount)
	record.Status = entity.RecordStatus(status)
	record.WorkflowID = int64Ptr(workflowID)
	record.CurrentNodeID = int64Ptr(nodeID)
	record.SubmittedAt = timePtr(submittedAt)
	record.CompletedAt = timePtr(completedAt)
	return &record, nil
}

// Verify interface compliance
var _ port.BusinessRecordRepository = (*recordStore)(nil)
