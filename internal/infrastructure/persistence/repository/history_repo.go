package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/ops-approval/internal/application/port"
	"github.com/garyjia/ops-approval/internal/domain/entity"
	"github.com/garyjia/ops-approval/internal/infrastructure/persistence/sqldb"
	"go.uber.org/zap"
)

// HistoryRepository implements port.HistoryRepository over approval_records.
// Rows are only ever inserted.
type HistoryRepository struct {
	db     *sqldb.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sqldb.DB, logger *zap.Logger) *HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Append records one decision
func (r *HistoryRepository) Append(ctx context.Context, entry *entity.ApprovalHistoryEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO approval_records (
			business_type, record_id, workflow_id, node_id, node_order,
			actor_id, action, opinion, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`

	err := r.db.QueryRow(ctx, query,
		string(entry.BusinessType),
		entry.RecordID,
		entry.WorkflowID,
		entry.NodeID,
		entry.NodeOrder,
		entry.ActorID,
		string(entry.Action),
		entry.Opinion,
		entry.CreatedAt,
	).Scan(&entry.ID)
	if err != nil {
		r.logger.Error("Failed to append approval record",
			zap.String("business_type", string(entry.BusinessType)),
			zap.Int64("record_id", entry.RecordID),
			zap.Error(err))
		return fmt.Errorf("failed to append approval record: %w", err)
	}
	return nil
}

// ListByRecord returns the trail of one record in the order it was written,
// with each actor's display name from the directory
func (r *HistoryRepository) ListByRecord(ctx context.Context, businessType entity.BusinessType, recordID int64) ([]*entity.ApprovalHistoryEntry, error) {
	query := `
		SELECT a.id, a.business_type, a.record_id, a.workflow_id, a.node_id, a.node_order,
			a.actor_id, COALESCE(u.name, ''), a.action, a.opinion, a.created_at
		FROM approval_records a
		LEFT JOIN users u ON u.id = a.actor_id
		WHERE a.business_type = ? AND a.record_id = ?
		ORDER BY a.id ASC
	`

	rows, err := r.db.Query(ctx, query, string(businessType), recordID)
	if err != nil {
		r.logger.Error("Failed to list approval records",
			zap.String("business_type", string(businessType)),
			zap.Int64("record_id", recordID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list approval records: %w", err)
	}
	defer rows.Close()

	var entries []*entity.ApprovalHistoryEntry
	for rows.Next() {
		var (
			entry  entity.ApprovalHistoryEntry
			btype  string
			action string
		)
		err := rows.Scan(
			&entry.ID,
			&btype,
			&entry.RecordID,
			&entry.WorkflowID,
			&entry.NodeID,
			&entry.NodeOrder,
			&entry.ActorID,
			&entry.ActorName,
			&action,
			&entry.Opinion,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan approval record: %w", err)
		}
		entry.BusinessType = entity.BusinessType(btype)
		entry.Action = entity.DecisionAction(action)
		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}

// Verify interface compliance
var _ port.HistoryRepository = (*HistoryRepository)(nil)
