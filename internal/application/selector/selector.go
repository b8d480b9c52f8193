// Package selector picks the workflow definition a newly submitted record follows.
package selector

import (
	"context"
	"fmt"

	"github.com/garyjia/ops-approval/internal/domain/entity"
)

// Catalog is the part of the workflow catalog the selector reads
type Catalog interface {
	ListCandidates(ctx context.Context, businessType entity.BusinessType) ([]*entity.WorkflowDefinition, error)
	GetDefault(ctx context.Context, businessType entity.BusinessType) (*entity.WorkflowDefinition, error)
	GetWorkflow(ctx context.Context, id int64) (*entity.WorkflowDefinition, error)
}

// RoleBindingSource lists role to workflow bindings
type RoleBindingSource interface {
	RoleBindings(ctx context.Context, roleIDs []int64) ([]entity.RoleWorkflowBinding, error)
}

// SubmitterDirectory is the part of port.OrgDirectory conditions are evaluated against
type SubmitterDirectory interface {
	RolesOf(ctx context.Context, userID int64) ([]entity.UserRole, error)
	IsDepartmentManager(ctx context.Context, userID int64) (bool, error)
}

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Selector chooses a workflow for a record. With an unchanged catalog and
// unchanged record attributes it always returns the same definition.
// Role bindings are only consulted for the business types in roleBound.
type Selector struct {
	catalog   Catalog
	bindings  RoleBindingSource
	org       SubmitterDirectory
	roleBound map[entity.BusinessType]bool
	logger    Logger
}

// New creates a selector. roleBindingTypes names the business types whose
// submitters' role bindings take priority over conditional routing.
func New(
	catalog Catalog,
	bindings RoleBindingSource,
	org SubmitterDirectory,
	roleBindingTypes []entity.BusinessType,
	logger Logger,
) *Selector {
	roleBound := make(map[entity.BusinessType]bool, len(roleBindingTypes))
	for _, bt := range roleBindingTypes {
		roleBound[bt] = true
	}
	return &Selector{
		catalog:   catalog,
		bindings:  bindings,
		org:       org,
		roleBound: roleBound,
		logger:    logger,
	}
}

// submitterFacts holds the submitter attributes conditions are evaluated against.
// They are loaded lazily since most definitions only test one of them.
type submitterFacts struct {
	roles     []entity.UserRole
	rolesRead bool
	manager   bool
	mgrRead   bool
}

// Select returns the workflow definition for the record. It fails with
// workflow.ErrConfiguration when nothing matches and no default exists.
func (s *Selector) Select(ctx context.Context, businessType entity.BusinessType, record *entity.BusinessRecord) (*entity.WorkflowDefinition, error) {
	facts := &submitterFacts{}

	if s.roleBound[businessType] {
		def, err := s.selectByRoleBinding(ctx, businessType, record, facts)
		if err != nil {
			return nil, err
		}
		if def != nil {
			s.logger.Info("Workflow selected by role binding",
				"business_type", string(businessType), "record_id", record.ID, "workflow_id", def.ID)
			return def, nil
		}
	}

	candidates, err := s.catalog.ListCandidates(ctx, businessType)
	if err != nil {
		return nil, err
	}
	for _, def := range candidates {
		ok, err := s.matches(ctx, def.Conditions, record, facts)
		if err != nil {
			return nil, err
		}
		if ok {
			s.logger.Info("Workflow selected by condition",
				"business_type", string(businessType), "record_id", record.ID, "workflow_id", def.ID)
			return def, nil
		}
	}

	// GetDefault reports ErrConfiguration when there is no default
	def, err := s.catalog.GetDefault(ctx, businessType)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Workflow selected by default",
		"business_type", string(businessType), "record_id", record.ID, "workflow_id", def.ID)
	return def, nil
}

// selectByRoleBinding returns the workflow bound to the submitter's highest-level
// role, or nil when no binding applies. Bindings come ordered by level, then workflow id.
func (s *Selector) selectByRoleBinding(ctx context.Context, businessType entity.BusinessType, record *entity.BusinessRecord, facts *submitterFacts) (*entity.WorkflowDefinition, error) {
	roles, err := s.rolesOf(ctx, record.SubmitterID, facts)
	if err != nil {
		return nil, err
	}
	if len(roles) == 0 {
		return nil, nil
	}

	roleIDs := make([]int64, len(roles))
	for i, r := range roles {
		roleIDs[i] = r.RoleID
	}
	bindings, err := s.bindings.RoleBindings(ctx, roleIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load role bindings: %w", err)
	}

	for _, b := range bindings {
		def, err := s.catalog.GetWorkflow(ctx, b.WorkflowID)
		if err != nil {
			return nil, err
		}
		// A binding only routes records of the workflow's own business type
		if def.BusinessType == businessType && def.IsActive() {
			return def, nil
		}
	}
	return nil, nil
}

// matches evaluates only the first condition kind present on a definition, in
// the order role set, manager flag, amount threshold, department set. Further
// kinds on the same definition are not consulted.
func (s *Selector) matches(ctx context.Context, c entity.WorkflowConditions, record *entity.BusinessRecord, facts *submitterFacts) (bool, error) {
	switch {
	case len(c.RoleIDs) > 0:
		roles, err := s.rolesOf(ctx, record.SubmitterID, facts)
		if err != nil {
			return false, err
		}
		for _, want := range c.RoleIDs {
			for _, have := range roles {
				if have.RoleID == want {
					return true, nil
				}
			}
		}
		return false, nil

	case c.IsDepartmentManager != nil:
		isManager, err := s.isManager(ctx, record.SubmitterID, facts)
		if err != nil {
			return false, err
		}
		return isManager == *c.IsDepartmentManager, nil

	case c.AmountGreaterThan != nil:
		return record.Amount != nil && *record.Amount > *c.AmountGreaterThan, nil

	case len(c.DepartmentIDs) > 0:
		for _, id := range c.DepartmentIDs {
			if id == record.DepartmentID {
				return true, nil
			}
		}
		return false, nil

	default:
		// A non-default definition without conditions never matches
		return false, nil
	}
}

func (s *Selector) rolesOf(ctx context.Context, userID int64, facts *submitterFacts) ([]entity.UserRole, error) {
	if !facts.rolesRead {
		roles, err := s.org.RolesOf(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to load submitter roles: %w", err)
		}
		facts.roles, facts.rolesRead = roles, true
	}
	return facts.roles, nil
}

func (s *Selector) isManager(ctx context.Context, userID int64, facts *submitterFacts) (bool, error) {
	if !facts.mgrRead {
		isManager, err := s.org.IsDepartmentManager(ctx, userID)
		if err != nil {
			return false, fmt.Errorf("failed to load submitter manager flag: %w", err)
		}
		facts.manager, facts.mgrRead = isManager, true
	}
	return facts.manager, nil
}
