package entity

// BusinessType identifies the kind of document an approval workflow governs
type BusinessType string

const (
	BusinessTypeReimbursement BusinessType = "reimbursement"
	BusinessTypeAssetRequest  BusinessType = "asset_request"
)

// String returns the string representation of the business type
func (t BusinessType) String() string {
	return string(t)
}

// RecordStatus is the lifecycle status of a business record
type RecordStatus string

const (
	RecordStatusDraft     RecordStatus = "draft"
	RecordStatusPending   RecordStatus = "pending"
	RecordStatusApproved  RecordStatus = "approved"
	RecordStatusRejected  RecordStatus = "rejected"
	RecordStatusCancelled RecordStatus = "cancelled"
)

// IsTerminal returns true once the engine has released the record
func (s RecordStatus) IsTerminal() bool {
	switch s {
	case RecordStatusApproved, RecordStatusRejected, RecordStatusCancelled:
		return true
	default:
		return false
	}
}

// WorkflowStatus is the lifecycle status of a workflow definition
type WorkflowStatus string

const (
	WorkflowStatusActive   WorkflowStatus = "active"
	WorkflowStatusInactive WorkflowStatus = "inactive"
)

// ApproverType tags how a workflow node picks its approvers
type ApproverType string

const (
	ApproverTypeUser              ApproverType = "user"
	ApproverTypeRole              ApproverType = "role"
	ApproverTypeCustomGroup       ApproverType = "custom_group"
	ApproverTypeDepartmentManager ApproverType = "department_manager"
	ApproverTypeInitiator         ApproverType = "initiator"
)

// IsKnown reports whether the resolver understands this approver type
func (t ApproverType) IsKnown() bool {
	switch t {
	case ApproverTypeUser, ApproverTypeRole, ApproverTypeCustomGroup,
		ApproverTypeDepartmentManager, ApproverTypeInitiator:
		return true
	default:
		return false
	}
}

// DecisionAction is the action an approver takes on the current node
type DecisionAction string

const (
	DecisionApprove DecisionAction = "approve"
	DecisionReject  DecisionAction = "reject"
)

// IsValid returns true for approve and reject
func (a DecisionAction) IsValid() bool {
	return a == DecisionApprove || a == DecisionReject
}

// Device status values touched by asset request outcomes
const (
	DeviceStatusInUse    = "in_use"
	DeviceStatusRepair   = "repairing"
	DeviceStatusIdle     = "idle"
	AssetRequestRepair   = "repair"
	AssetRequestReturn   = "return"
	AssetRequestTransfer = "transfer"
)

// DateLayout is the calendar-day layout used for delegation windows
const DateLayout = "2006-01-02"
