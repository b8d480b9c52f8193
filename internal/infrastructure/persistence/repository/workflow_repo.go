package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/ops-approval/internal/application/port"
	"github.com/garyjia/ops-approval/internal/domain/entity"
	"github.com/garyjia/ops-approval/internal/infrastructure/persistence/sqldb"
	"go.uber.org/zap"
)

// WorkflowRepository implements port.WorkflowRepository
type WorkflowRepository struct {
	db     *sqldb.DB
	logger *zap.Logger
}

// NewWorkflowRepository creates a new workflow repository
func NewWorkflowRepository(db *sqldb.DB, logger *zap.Logger) *WorkflowRepository {
	return &WorkflowRepository{
		db:     db,
		logger: logger,
	}
}

const workflowColumns = `id, name, business_type, conditions, is_default, status, created_at, updated_at`

// ListCandidates returns active, non-default definitions of a business type ordered by id
func (r *WorkflowRepository) ListCandidates(ctx context.Context, businessType entity.BusinessType) ([]*entity.WorkflowDefinition, error) {
	query := `SELECT ` + workflowColumns + `
		FROM workflows
		WHERE business_type = ? AND status = ? AND is_default = ?
		ORDER BY id ASC`

	rows, err := r.db.Query(ctx, query, string(businessType), string(entity.WorkflowStatusActive), false)
	if err != nil {
		r.logger.Error("Failed to list candidate workflows",
			zap.String("business_type", string(businessType)), zap.Error(err))
		return nil, fmt.Errorf("failed to list candidate workflows: %w", err)
	}
	defer rows.Close()

	var defs []*entity.WorkflowDefinition
	for rows.Next() {
		def, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, rows.Err()
}

// GetDefault returns the active default definition with the lowest id
func (r *WorkflowRepository) GetDefault(ctx context.Context, businessType entity.BusinessType) (*entity.WorkflowDefinition, error) {
	query := `SELECT ` + workflowColumns + `
		FROM workflows
		WHERE business_type = ? AND status = ? AND is_default = ?
		ORDER BY id ASC
		LIMIT 1`

	def, err := scanWorkflow(r.db.QueryRow(ctx, query, string(businessType), string(entity.WorkflowStatusActive), true))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get default workflow",
			zap.String("business_type", string(businessType)), zap.Error(err))
		return nil, fmt.Errorf("failed to get default workflow: %w", err)
	}
	return def, nil
}

// GetByID retrieves a workflow definition by ID
func (r *WorkflowRepository) GetByID(ctx context.Context, id int64) (*entity.WorkflowDefinition, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE id = ?`

	def, err := scanWorkflow(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get workflow", zap.Int64("workflow_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}
	return def, nil
}

// GetByName retrieves a definition by business type and name, lowest id first
func (r *WorkflowRepository) GetByName(ctx context.Context, businessType entity.BusinessType, name string) (*entity.WorkflowDefinition, error) {
	query := `SELECT ` + workflowColumns + `
		FROM workflows
		WHERE business_type = ? AND name = ?
		ORDER BY id ASC
		LIMIT 1`

	def, err := scanWorkflow(r.db.QueryRow(ctx, query, string(businessType), name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get workflow by name", zap.String("name", name), zap.Error(err))
		return nil, fmt.Errorf("failed to get workflow by name: %w", err)
	}
	return def, nil
}

// Create inserts a workflow definition and sets its ID
func (r *WorkflowRepository) Create(ctx context.Context, def *entity.WorkflowDefinition) error {
	conditions, err := json.Marshal(def.Conditions)
	if err != nil {
		return fmt.Errorf("failed to encode workflow conditions: %w", err)
	}
	if def.Status == "" {
		def.Status = entity.WorkflowStatusActive
	}
	now := time.Now().UTC()

	query := `
		INSERT INTO workflows (name, business_type, conditions, is_default, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`

	err = r.db.QueryRow(ctx, query,
		def.Name,
		string(def.BusinessType),
		string(conditions),
		def.IsDefault,
		string(def.Status),
		now,
		now,
	).Scan(&def.ID)
	if err != nil {
		r.logger.Error("Failed to create workflow", zap.String("name", def.Name), zap.Error(err))
		return fmt.Errorf("failed to create workflow: %w", err)
	}
	def.CreatedAt, def.UpdatedAt = now, now
	return nil
}

// UpdateStatus activates or deactivates a workflow definition
func (r *WorkflowRepository) UpdateStatus(ctx context.Context, id int64, status entity.WorkflowStatus) error {
	query := `UPDATE workflows SET status = ?, updated_at = ? WHERE id = ?`

	result, err := r.db.Exec(ctx, query, string(status), time.Now().UTC(), id)
	if err != nil {
		r.logger.Error("Failed to update workflow status", zap.Int64("workflow_id", id), zap.Error(err))
		return fmt.Errorf("failed to update workflow status: %w", err)
	}
	return expectOneRow(result, "workflow", id)
}

const nodeColumns = `id, workflow_id, name, node_order, approver_type, user_id, role_id, group_name`

// ListNodes returns the nodes of a workflow in ascending order
func (r *WorkflowRepository) ListNodes(ctx context.Context, workflowID int64) ([]*entity.WorkflowNode, error) {
	query := `SELECT ` + nodeColumns + ` FROM workflow_nodes WHERE workflow_id = ? ORDER BY node_order ASC`

	rows, err := r.db.Query(ctx, query, workflowID)
	if err != nil {
		r.logger.Error("Failed to list workflow nodes", zap.Int64("workflow_id", workflowID), zap.Error(err))
		return nil, fmt.Errorf("failed to list workflow nodes: %w", err)
	}
	defer rows.Close()

	var nodes []*entity.WorkflowNode
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, rows.Err()
}

// GetNode retrieves a node by ID
func (r *WorkflowRepository) GetNode(ctx context.Context, id int64) (*entity.WorkflowNode, error) {
	query := `SELECT ` + nodeColumns + ` FROM workflow_nodes WHERE id = ?`

	node, err := scanNode(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get workflow node", zap.Int64("node_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get workflow node: %w", err)
	}
	return node, nil
}

// NextNode returns the node with the smallest order greater than afterOrder
func (r *WorkflowRepository) NextNode(ctx context.Context, workflowID int64, afterOrder int) (*entity.WorkflowNode, error) {
	query := `SELECT ` + nodeColumns + `
		FROM workflow_nodes
		WHERE workflow_id = ? AND node_order > ?
		ORDER BY node_order ASC
		LIMIT 1`

	node, err := scanNode(r.db.QueryRow(ctx, query, workflowID, afterOrder))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get next workflow node",
			zap.Int64("workflow_id", workflowID), zap.Int("after_order", afterOrder), zap.Error(err))
		return nil, fmt.Errorf("failed to get next workflow node: %w", err)
	}
	return node, nil
}

// CreateNode inserts a node and sets its ID
func (r *WorkflowRepository) CreateNode(ctx context.Context, node *entity.WorkflowNode) error {
	query := `
		INSERT INTO workflow_nodes (workflow_id, name, node_order, approver_type, user_id, role_id, group_name)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`

	err := r.db.QueryRow(ctx, query,
		node.WorkflowID,
		node.Name,
		node.Order,
		string(node.ApproverType),
		nullableInt64(node.UserID),
		nullableInt64(node.RoleID),
		node.GroupName,
	).Scan(&node.ID)
	if err != nil {
		r.logger.Error("Failed to create workflow node",
			zap.Int64("workflow_id", node.WorkflowID), zap.Int("order", node.Order), zap.Error(err))
		return fmt.Errorf("failed to create workflow node: %w", err)
	}
	return nil
}

// DeleteNode removes a node from its workflow
func (r *WorkflowRepository) DeleteNode(ctx context.Context, id int64) error {
	result, err := r.db.Exec(ctx, `DELETE FROM workflow_nodes WHERE id = ?`, id)
	if err != nil {
		r.logger.Error("Failed to delete workflow node", zap.Int64("node_id", id), zap.Error(err))
		return fmt.Errorf("failed to delete workflow node: %w", err)
	}
	return expectOneRow(result, "workflow node", id)
}

// RoleBindings returns the bindings of the given roles to active workflows
func (r *WorkflowRepository) RoleBindings(ctx context.Context, roleIDs []int64) ([]entity.RoleWorkflowBinding, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT rw.role_id, r.level, rw.workflow_id
		FROM role_workflows rw
		JOIN roles r ON r.id = rw.role_id
		JOIN workflows w ON w.id = rw.workflow_id
		WHERE rw.role_id IN (%s) AND w.status = ?
		ORDER BY r.level DESC, rw.workflow_id ASC`, placeholders(len(roleIDs)))

	args := make([]interface{}, 0, len(roleIDs)+1)
	for _, id := range roleIDs {
		args = append(args, id)
	}
	args = append(args, string(entity.WorkflowStatusActive))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to get role bindings", zap.Int64s("role_ids", roleIDs), zap.Error(err))
		return nil, fmt.Errorf("failed to get role bindings: %w", err)
	}
	defer rows.Close()

	var bindings []entity.RoleWorkflowBinding
	for rows.Next() {
		var b entity.RoleWorkflowBinding
		if err := rows.Scan(&b.RoleID, &b.RoleLevel, &b.WorkflowID); err != nil {
			return nil, fmt.Errorf("failed to scan role binding: %w", err)
		}
		bindings = append(bindings, b)
	}
	return bindings, rows.Err()
}

// BindRole pins a workflow to holders of a role
func (r *WorkflowRepository) BindRole(ctx context.Context, roleID, workflowID int64) error {
	query := `INSERT INTO role_workflows (role_id, workflow_id) VALUES (?, ?)`

	if _, err := r.db.Exec(ctx, query, roleID, workflowID); err != nil {
		r.logger.Error("Failed to bind role to workflow",
			zap.Int64("role_id", roleID), zap.Int64("workflow_id", workflowID), zap.Error(err))
		return fmt.Errorf("failed to bind role: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanWorkflow(row rowScanner) (*entity.WorkflowDefinition, error) {
	var (
		def          entity.WorkflowDefinition
		businessType string
		conditions   string
		status       string
	)
	err := row.Scan(
		&def.ID,
		&def.Name,
		&businessType,
		&conditions,
		&def.IsDefault,
		&status,
		&def.CreatedAt,
		&def.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	def.BusinessType = entity.BusinessType(businessType)
	def.Status = entity.WorkflowStatus(status)
	if strings.TrimSpace(conditions) != "" {
		if err := json.Unmarshal([]byte(conditions), &def.Conditions); err != nil {
			return nil, fmt.Errorf("failed to decode conditions of workflow %d: %w", def.ID, err)
		}
	}
	return &def, nil
}

func scanNode(row rowScanner) (*entity.WorkflowNode, error) {
	var (
		node         entity.WorkflowNode
		approverType string
		userID       sql.NullInt64
		roleID       sql.NullInt64
	)
	err := row.Scan(
		&node.ID,
		&node.WorkflowID,
		&node.Name,
		&node.Order,
		&approverType,
		&userID,
		&roleID,
		&node.GroupName,
	)
	if err != nil {
		return nil, err
	}

	node.ApproverType = entity.ApproverType(approverType)
	node.UserID = int64Ptr(userID)
	node.RoleID = int64Ptr(roleID)
	return &node, nil
}

// Verify interface compliance
var _ port.WorkflowRepository = (*WorkflowRepository)(nil)
