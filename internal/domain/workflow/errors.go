package workflow

import "errors"

var (
	// ErrInvalidTransition is returned when a state transition is not allowed
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrInvalidState is returned when a state is not valid
	ErrInvalidState = errors.New("invalid state")

	// ErrNotFound is returned when a record or node does not exist
	ErrNotFound = errors.New("not found")

	// ErrConfiguration is returned when the workflow catalog cannot route a record
	ErrConfiguration = errors.New("workflow configuration error")

	// ErrState is returned when a record is not in a state that allows the operation
	ErrState = errors.New("workflow state error")

	// ErrInvalidAction is returned for a decision other than approve or reject
	ErrInvalidAction = errors.New("invalid decision action")
)
