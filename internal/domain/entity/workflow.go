package entity

import "time"

// WorkflowDefinition describes one approval route for a business type.
// Records bind to a definition by id, so later edits only affect new submissions.
type WorkflowDefinition struct {
	ID           int64              `json:"id"`
	Name         string             `json:"name"`
	BusinessType BusinessType       `json:"business_type"`
	Conditions   WorkflowConditions `json:"conditions"`
	IsDefault    bool               `json:"is_default"`
	Status       WorkflowStatus     `json:"status"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// IsActive returns true when the definition may be selected
func (w *WorkflowDefinition) IsActive() bool {
	return w.Status == WorkflowStatusActive
}

// WorkflowConditions is the condition set stored with a definition.
// Empty or nil fields mean the condition kind is absent.
type WorkflowConditions struct {
	RoleIDs             []int64  `json:"role_ids,omitempty" yaml:"role_ids,omitempty"`
	IsDepartmentManager *bool    `json:"is_department_manager,omitempty" yaml:"is_department_manager,omitempty"`
	AmountGreaterThan   *float64 `json:"amount_greater_than,omitempty" yaml:"amount_greater_than,omitempty"`
	DepartmentIDs       []int64  `json:"department_ids,omitempty" yaml:"department_ids,omitempty"`
}

// IsEmpty returns true when no condition kind is present
func (c WorkflowConditions) IsEmpty() bool {
	return len(c.RoleIDs) == 0 && c.IsDepartmentManager == nil &&
		c.AmountGreaterThan == nil && len(c.DepartmentIDs) == 0
}

// WorkflowNode is one ordered step of a workflow definition
type WorkflowNode struct {
	ID           int64        `json:"id"`
	WorkflowID   int64        `json:"workflow_id"`
	Name         string       `json:"name"`
	Order        int          `json:"order"`
	ApproverType ApproverType `json:"approver_type"`
	// Payload per approver type: UserID for user, RoleID for role, GroupName for custom_group
	UserID    *int64 `json:"user_id,omitempty"`
	RoleID    *int64 `json:"role_id,omitempty"`
	GroupName string `json:"group_name,omitempty"`
}

// RoleWorkflowBinding pins a workflow to holders of a role
type RoleWorkflowBinding struct {
	RoleID     int64 `json:"role_id"`
	RoleLevel  int   `json:"role_level"`
	WorkflowID int64 `json:"workflow_id"`
}
