package entity

import "time"

// Reimbursement is an expense claim owned by the reimbursement module
type Reimbursement struct {
	ID            int64        `json:"id"`
	UserID        int64        `json:"user_id"`
	DepartmentID  int64        `json:"department_id"`
	Title         string       `json:"title"`
	Type          string       `json:"type"`
	TotalAmount   float64      `json:"total_amount"`
	Remark        string       `json:"remark,omitempty"`
	Status        RecordStatus `json:"status"`
	WorkflowID    *int64       `json:"workflow_id,omitempty"`
	CurrentNodeID *int64       `json:"current_node_id,omitempty"`
	SubmittedAt   *time.Time   `json:"submitted_at,omitempty"`
	CompletedAt   *time.Time   `json:"completed_at,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}

// AsRecord projects the claim onto the generic record shape
func (r *Reimbursement) AsRecord() *BusinessRecord {
	amount := r.TotalAmount
	return &BusinessRecord{
		ID:            r.ID,
		BusinessType:  BusinessTypeReimbursement,
		SubmitterID:   r.UserID,
		DepartmentID:  r.DepartmentID,
		Amount:        &amount,
		Status:        r.Status,
		WorkflowID:    r.WorkflowID,
		CurrentNodeID: r.CurrentNodeID,
		SubmittedAt:   r.SubmittedAt,
		CompletedAt:   r.CompletedAt,
	}
}

// AssetRequest asks for a change on a tracked device
type AssetRequest struct {
	ID            int64        `json:"id"`
	AssetID       int64        `json:"asset_id"`
	UserID        int64        `json:"user_id"`
	DepartmentID  int64        `json:"department_id"`
	Type          string       `json:"type"`
	Description   string       `json:"description,omitempty"`
	Status        RecordStatus `json:"status"`
	WorkflowID    *int64       `json:"workflow_id,omitempty"`
	CurrentNodeID *int64       `json:"current_node_id,omitempty"`
	SubmittedAt   *time.Time   `json:"submitted_at,omitempty"`
	CompletedAt   *time.Time   `json:"completed_at,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}

// AsRecord projects the request onto the generic record shape.
// Asset requests carry no amount.
func (r *AssetRequest) AsRecord() *BusinessRecord {
	return &BusinessRecord{
		ID:            r.ID,
		BusinessType:  BusinessTypeAssetRequest,
		SubmitterID:   r.UserID,
		DepartmentID:  r.DepartmentID,
		Status:        r.Status,
		WorkflowID:    r.WorkflowID,
		CurrentNodeID: r.CurrentNodeID,
		SubmittedAt:   r.SubmittedAt,
		CompletedAt:   r.CompletedAt,
	}
}

// Device is a tracked asset
type Device struct {
	ID       int64  `json:"id"`
	AssetNo  string `json:"asset_no"`
	Name     string `json:"name"`
	Status   string `json:"device_status"`
	HolderID *int64 `json:"holder_id,omitempty"`
}
