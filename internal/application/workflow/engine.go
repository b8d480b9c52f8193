// Package workflow drives business records through their approval workflow.
package workflow

import (
	"context"

	"github.com/garyjia/ops-approval/internal/application/port"
	"github.com/garyjia/ops-approval/internal/domain/entity"
	"github.com/garyjia/ops-approval/internal/domain/event"
)

// ApprovalEngine moves records from draft through their workflow's nodes to a terminal status.
// Every operation takes the record accessor of the record's business type.
type ApprovalEngine interface {
	// Submit routes a draft record to a workflow and parks it on the first node
	Submit(ctx context.Context, records port.BusinessRecordRepository, recordID int64) (*SubmitResult, error)

	// Decide applies one approver decision to the record's current node
	Decide(ctx context.Context, records port.BusinessRecordRepository, recordID int64, req DecideRequest) (*DecideResult, error)

	// Progress returns the record with its workflow's nodes and full history. It never writes.
	Progress(ctx context.Context, records port.BusinessRecordRepository, recordID int64) (*Progress, error)
}

// SubmitResult tells the caller where the record landed and whom to notify
type SubmitResult struct {
	WorkflowID int64   `json:"workflow_id"`
	NodeID     int64   `json:"node_id"`
	NodeName   string  `json:"node_name"`
	Approvers  []int64 `json:"approvers"`
}

// DecideRequest is one approver action. ExpectedNodeID, when set, must match the
// record's current node at lock time or the decision is refused as stale.
type DecideRequest struct {
	ActorID        int64
	Action         entity.DecisionAction
	Opinion        string
	ExpectedNodeID *int64
}

// DecideResult reports the record's state after a decision
type DecideResult struct {
	Completed     bool                `json:"completed"`
	Status        entity.RecordStatus `json:"status"`
	NextNodeID    *int64              `json:"next_node_id,omitempty"`
	NextApprovers []int64             `json:"next_approvers"`
}

// Progress is the read-only view of a record's approval. AllowedActions lists
// what a caller may still do to the record: submit, approve, reject or cancel.
type Progress struct {
	Record         *entity.BusinessRecord         `json:"record"`
	WorkflowName   string                         `json:"workflow_name,omitempty"`
	Nodes          []*entity.WorkflowNode         `json:"nodes"`
	History        []*entity.ApprovalHistoryEntry `json:"history"`
	AllowedActions []string                       `json:"allowed_actions"`
}

// Selector picks the workflow a record follows
type Selector interface {
	Select(ctx context.Context, businessType entity.BusinessType, record *entity.BusinessRecord) (*entity.WorkflowDefinition, error)
}

// NodeCatalog lists the ordered nodes of a workflow
type NodeCatalog interface {
	GetNodes(ctx context.Context, workflowID int64) ([]*entity.WorkflowNode, error)
}

// ApproverResolver computes the approvers of a node
type ApproverResolver interface {
	Resolve(ctx context.Context, node *entity.WorkflowNode, rc entity.ResolutionContext) ([]int64, error)
}

// Publisher receives events once the transaction that produced them has committed
type Publisher interface {
	DispatchAsync(ctx context.Context, evt *event.Event)
}

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}
