package workflow

import (
	"context"
	"sort"
)

// StateMachine tracks the current state of one record and validates transitions
type StateMachine interface {
	// State returns the current state
	State() State

	// Fire attempts to execute the trigger, transitioning to the new state if allowed
	Fire(ctx context.Context, trigger Trigger) error

	// PermittedTriggers returns all triggers configured for the current state
	PermittedTriggers() []Trigger
}

// NewRecordMachine returns the approval lifecycle positioned at initial.
// Cancellation is owned by business modules; every other trigger belongs to the engine.
func NewRecordMachine(initial State) StateMachine {
	builder := NewBuilder()

	builder.Configure(StateDraft).
		Permit(TriggerSubmit, StatePending).
		Permit(TriggerCancel, StateCancelled)

	builder.Configure(StatePending).
		Permit(TriggerAdvance, StatePending).
		Permit(TriggerApprove, StateApproved).
		Permit(TriggerReject, StateRejected).
		Permit(TriggerCancel, StateCancelled)

	return builder.Build(initial)
}

// Transition fires trigger from the given status and returns the resulting status.
// Unknown statuses yield ErrInvalidState and refused triggers ErrInvalidTransition.
func Transition(ctx context.Context, from State, trigger Trigger) (State, error) {
	if !from.IsValid() {
		return from, ErrInvalidState
	}
	m := NewRecordMachine(from)
	if err := m.Fire(ctx, trigger); err != nil {
		return from, err
	}
	return m.State(), nil
}

var triggerActions = map[Trigger]string{
	TriggerSubmit:  "submit",
	TriggerAdvance: "approve",
	TriggerApprove: "approve",
	TriggerReject:  "reject",
	TriggerCancel:  "cancel",
}

// AllowedActions lists the caller actions a record in state accepts, in name order.
// ADVANCE and APPROVE both come from an approve decision so they collapse into one.
func AllowedActions(state State) []string {
	actions := []string{}
	if !state.IsValid() {
		return actions
	}

	seen := make(map[string]bool)
	for _, trigger := range NewRecordMachine(state).PermittedTriggers() {
		action, ok := triggerActions[trigger]
		if !ok || seen[action] {
			continue
		}
		seen[action] = true
		actions = append(actions, action)
	}
	sort.Strings(actions)
	return actions
}
