package workflow

import "github.com/garyjia/ops-approval/internal/domain/entity"

// State represents a business record state in the approval lifecycle
type State string

const (
	StateDraft     State = State(entity.RecordStatusDraft)
	StatePending   State = State(entity.RecordStatusPending)
	StateApproved  State = State(entity.RecordStatusApproved)
	StateRejected  State = State(entity.RecordStatusRejected)
	StateCancelled State = State(entity.RecordStatusCancelled)
)

var validStates = map[State]bool{
	StateDraft:     true,
	StatePending:   true,
	StateApproved:  true,
	StateRejected:  true,
	StateCancelled: true,
}

var terminalStates = map[State]bool{
	StateApproved:  true,
	StateRejected:  true,
	StateCancelled: true,
}

// IsTerminal returns true if no further transitions are allowed
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a known lifecycle state
func (s State) IsValid() bool {
	return validStates[s]
}

// RecordStatus converts the state back to the persisted status value
func (s State) RecordStatus() entity.RecordStatus {
	return entity.RecordStatus(s)
}
