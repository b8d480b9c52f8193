package event

// Type identifies the type of domain event
type Type string

const (
	TypeRecordSubmitted Type = "approval.submitted"
	TypeRecordAdvanced  Type = "approval.advanced"
	TypeRecordCompleted Type = "approval.completed"
	TypeRecordCancelled Type = "approval.cancelled"
)

// Payload keys shared by publishers and handlers
const (
	PayloadApprovers  = "approvers"
	PayloadNodeID     = "node_id"
	PayloadNodeName   = "node_name"
	PayloadWorkflowID = "workflow_id"
	PayloadStatus     = "status"
	PayloadActorID    = "actor_id"
	PayloadSubmitter  = "submitter_id"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeRecordSubmitted,
		TypeRecordAdvanced,
		TypeRecordCompleted,
		TypeRecordCancelled:
		return true
	default:
		return false
	}
}
