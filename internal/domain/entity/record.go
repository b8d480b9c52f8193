package entity

import "time"

// BusinessRecord is the engine's view of a document under approval.
// CurrentNodeID is non-nil exactly while Status is pending.
type BusinessRecord struct {
	ID            int64        `json:"id"`
	BusinessType  BusinessType `json:"business_type"`
	SubmitterID   int64        `json:"submitter_id"`
	DepartmentID  int64        `json:"department_id"`
	Amount        *float64     `json:"amount,omitempty"`
	Status        RecordStatus `json:"status"`
	WorkflowID    *int64       `json:"workflow_id,omitempty"`
	CurrentNodeID *int64       `json:"current_node_id,omitempty"`
	SubmittedAt   *time.Time   `json:"submitted_at,omitempty"`
	CompletedAt   *time.Time   `json:"completed_at,omitempty"`
}

// ResolutionContext returns the attributes approver resolution depends on
func (r *BusinessRecord) ResolutionContext() ResolutionContext {
	return ResolutionContext{
		SubmitterID:  r.SubmitterID,
		DepartmentID: r.DepartmentID,
		Amount:       r.Amount,
	}
}

// ResolutionContext carries the record attributes used to resolve approvers
type ResolutionContext struct {
	SubmitterID  int64
	DepartmentID int64
	Amount       *float64
}
