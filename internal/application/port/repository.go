package port

import (
	"context"
	"time"

	"github.com/garyjia/ops-approval/internal/domain/entity"
)

// WorkflowRepository defines persistence operations for workflow definitions and nodes.
// Getters return nil, nil when nothing matches.
type WorkflowRepository interface {
	// ListCandidates returns active, non-default definitions of a business type ordered by id
	ListCandidates(ctx context.Context, businessType entity.BusinessType) ([]*entity.WorkflowDefinition, error)

	// GetDefault returns the active default definition of a business type
	GetDefault(ctx context.Context, businessType entity.BusinessType) (*entity.WorkflowDefinition, error)

	GetByID(ctx context.Context, id int64) (*entity.WorkflowDefinition, error)

	// GetByName returns the definition of a business type with the given name, in any status
	GetByName(ctx context.Context, businessType entity.BusinessType, name string) (*entity.WorkflowDefinition, error)
	Create(ctx context.Context, def *entity.WorkflowDefinition) error
	UpdateStatus(ctx context.Context, id int64, status entity.WorkflowStatus) error

	// ListNodes returns the nodes of a workflow ordered by their order column
	ListNodes(ctx context.Context, workflowID int64) ([]*entity.WorkflowNode, error)
	GetNode(ctx context.Context, id int64) (*entity.WorkflowNode, error)

	// NextNode returns the node with the smallest order strictly greater than afterOrder
	NextNode(ctx context.Context, workflowID int64, afterOrder int) (*entity.WorkflowNode, error)
	CreateNode(ctx context.Context, node *entity.WorkflowNode) error
	DeleteNode(ctx context.Context, id int64) error

	// RoleBindings returns bindings of the given roles whose workflow is active
	RoleBindings(ctx context.Context, roleIDs []int64) ([]entity.RoleWorkflowBinding, error)
	BindRole(ctx context.Context, roleID, workflowID int64) error
}

// AssignmentRepository defines persistence operations for custom-group approver assignments
type AssignmentRepository interface {
	ListActiveByGroup(ctx context.Context, groupName string) ([]*entity.ApproverAssignment, error)

	// Exists reports whether the user already has an assignment in the group, active or not
	Exists(ctx context.Context, groupName string, userID int64) (bool, error)
	Create(ctx context.Context, assignment *entity.ApproverAssignment) error
}

// HistoryRepository defines persistence operations for the append-only approval trail
type HistoryRepository interface {
	Append(ctx context.Context, entry *entity.ApprovalHistoryEntry) error
	ListByRecord(ctx context.Context, businessType entity.BusinessType, recordID int64) ([]*entity.ApprovalHistoryEntry, error)
}

// BusinessRecordRepository is the engine's access to one business type's records.
// Each business module implements it over its own table.
type BusinessRecordRepository interface {
	// GetRecord reads the record without locking
	GetRecord(ctx context.Context, id int64) (*entity.BusinessRecord, error)

	// LockRecord reads the record and holds an exclusive lock on it until the
	// surrounding transaction ends. It must be called inside WithTransaction.
	LockRecord(ctx context.Context, id int64) (*entity.BusinessRecord, error)

	MarkSubmitted(ctx context.Context, id, workflowID, nodeID int64, at time.Time) error
	MoveToNode(ctx context.Context, id, nodeID int64) error

	// Complete sets a terminal status, clears the node pointer and stamps completion
	Complete(ctx context.Context, id int64, status entity.RecordStatus, at time.Time) error
}

// ReimbursementRepository defines persistence operations for expense claims
type ReimbursementRepository interface {
	BusinessRecordRepository
	Create(ctx context.Context, claim *entity.Reimbursement) error
	GetByID(ctx context.Context, id int64) (*entity.Reimbursement, error)
}

// AssetRequestRepository defines persistence operations for asset change requests
type AssetRequestRepository interface {
	BusinessRecordRepository
	Create(ctx context.Context, req *entity.AssetRequest) error
	GetByID(ctx context.Context, id int64) (*entity.AssetRequest, error)
}

// DeviceRepository defines persistence operations for tracked devices
type DeviceRepository interface {
	Create(ctx context.Context, device *entity.Device) error
	GetByID(ctx context.Context, id int64) (*entity.Device, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
