// Package resolver turns a workflow node's approver settings into user ids.
package resolver

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/garyjia/ops-approval/internal/application/port"
	"github.com/garyjia/ops-approval/internal/domain/entity"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Resolver computes the approvers of a node. It only reads and is safe for concurrent use.
type Resolver struct {
	org         port.OrgDirectory
	assignments port.AssignmentRepository
	now         func() time.Time
	logger      Logger
}

// Option configures a Resolver
type Option func(*Resolver)

// WithClock replaces the time source used for delegation windows
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		r.now = now
	}
}

// New creates a resolver
func New(org port.OrgDirectory, assignments port.AssignmentRepository, logger Logger, opts ...Option) *Resolver {
	r := &Resolver{
		org:         org,
		assignments: assignments,
		now:         time.Now,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the distinct approver ids of node for a record, sorted ascending.
// An unknown approver type is logged and resolves to an empty set.
func (r *Resolver) Resolve(ctx context.Context, node *entity.WorkflowNode, rc entity.ResolutionContext) ([]int64, error) {
	var (
		ids []int64
		err error
	)

	switch node.ApproverType {
	case entity.ApproverTypeUser:
		if node.UserID != nil {
			ids = []int64{*node.UserID}
		}

	case entity.ApproverTypeRole:
		if node.RoleID != nil {
			ids, err = r.org.ActiveUsersWithRole(ctx, *node.RoleID)
		}

	case entity.ApproverTypeCustomGroup:
		ids, err = r.resolveGroup(ctx, node.GroupName, rc)

	case entity.ApproverTypeDepartmentManager:
		ids, err = r.org.ActiveDepartmentManagers(ctx, rc.DepartmentID)

	case entity.ApproverTypeInitiator:
		ids = []int64{rc.SubmitterID}

	default:
		r.logger.Warn("Unknown approver type, node resolves to nobody",
			"node_id", node.ID, "workflow_id", node.WorkflowID, "approver_type", string(node.ApproverType))
		return []int64{}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to resolve approvers of node %d: %w", node.ID, err)
	}
	return dedupe(ids), nil
}

func (r *Resolver) resolveGroup(ctx context.Context, group string, rc entity.ResolutionContext) ([]int64, error) {
	if group == "" {
		return nil, nil
	}

	assignments, err := r.assignments.ListActiveByGroup(ctx, group)
	if err != nil {
		return nil, err
	}

	// Delegation windows are calendar days in UTC
	today := r.now().UTC()

	ids := make([]int64, 0, len(assignments))
	for _, a := range assignments {
		if !a.CoversDepartment(rc.DepartmentID) || !a.CoversAmount(rc.Amount) {
			continue
		}
		ids = append(ids, a.EffectiveUser(today))
	}
	return ids, nil
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
