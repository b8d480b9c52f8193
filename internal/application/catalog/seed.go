package catalog

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/garyjia/ops-approval/internal/application/port"
	"github.com/garyjia/ops-approval/internal/domain/entity"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Seed is the YAML document that bootstraps a workflow catalog
type Seed struct {
	Workflows   []SeedWorkflow   `yaml:"workflows" validate:"dive"`
	Assignments []SeedAssignment `yaml:"assignments" validate:"dive"`
}

// SeedWorkflow is one definition with its nodes and role bindings
type SeedWorkflow struct {
	Name         string                    `yaml:"name" validate:"required"`
	BusinessType string                    `yaml:"business_type" validate:"required,oneof=reimbursement asset_request"`
	IsDefault    bool                      `yaml:"is_default"`
	Status       string                    `yaml:"status" validate:"omitempty,oneof=active inactive"`
	Conditions   entity.WorkflowConditions `yaml:"conditions"`
	Nodes        []SeedNode                `yaml:"nodes" validate:"required,min=1,dive"`
	BindRoles    []int64                   `yaml:"bind_roles" validate:"dive,gt=0"`
}

// SeedNode is one step of a seeded workflow
type SeedNode struct {
	Name         string `yaml:"name" validate:"required"`
	Order        int    `yaml:"order" validate:"gte=0"`
	ApproverType string `yaml:"approver_type" validate:"required"`
	UserID       *int64 `yaml:"user_id" validate:"required_if=ApproverType user"`
	RoleID       *int64 `yaml:"role_id" validate:"required_if=ApproverType role"`
	GroupName    string `yaml:"group_name" validate:"required_if=ApproverType custom_group"`
}

// SeedAssignment is one custom-group membership
type SeedAssignment struct {
	GroupName       string   `yaml:"group_name" validate:"required"`
	UserID          int64    `yaml:"user_id" validate:"required,gt=0"`
	DelegateUserID  *int64   `yaml:"delegate_user_id"`
	DelegateStart   *string  `yaml:"delegate_start" validate:"required_with=DelegateUserID"`
	DelegateEnd     *string  `yaml:"delegate_end" validate:"required_with=DelegateUserID"`
	DepartmentScope []int64  `yaml:"department_scope"`
	AmountLimit     *float64 `yaml:"amount_limit" validate:"omitempty,gte=0"`
	Inactive        bool     `yaml:"inactive"`
}

var seedValidator = validator.New()

// ParseSeed decodes and validates a seed document
func ParseSeed(data []byte) (*Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal seed: %w", err)
	}
	if err := seed.Validate(); err != nil {
		return nil, err
	}
	return &seed, nil
}

// LoadSeed reads a seed document from disk
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return ParseSeed(data)
}

// Validate checks field rules plus the cross-row rules struct tags cannot express
func (s *Seed) Validate() error {
	if err := seedValidator.Struct(s); err != nil {
		return err
	}

	defaults := make(map[string]int)
	for _, wf := range s.Workflows {
		seen := make(map[int]bool, len(wf.Nodes))
		for _, n := range wf.Nodes {
			if seen[n.Order] {
				return fmt.Errorf("workflow %q: duplicate node order %d", wf.Name, n.Order)
			}
			seen[n.Order] = true
		}
		if wf.IsDefault && wf.Status != string(entity.WorkflowStatusInactive) {
			defaults[wf.BusinessType]++
		}
	}
	for businessType, n := range defaults {
		if n > 1 {
			return fmt.Errorf("business type %s has %d active default workflows", businessType, n)
		}
	}

	for _, a := range s.Assignments {
		for _, day := range []*string{a.DelegateStart, a.DelegateEnd} {
			if day == nil {
				continue
			}
			if _, err := time.Parse(entity.DateLayout, *day); err != nil {
				return fmt.Errorf("assignment %s/%d: delegation date %q is not YYYY-MM-DD", a.GroupName, a.UserID, *day)
			}
		}
		if a.DelegateStart != nil && a.DelegateEnd != nil && *a.DelegateStart > *a.DelegateEnd {
			return fmt.Errorf("assignment %s/%d: delegation ends before it starts", a.GroupName, a.UserID)
		}
	}
	return nil
}

// SeedResult counts what Apply wrote
type SeedResult struct {
	Workflows   int
	Nodes       int
	Bindings    int
	Assignments int
	Skipped     int
}

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Seeder writes a Seed into the catalog tables
type Seeder struct {
	tx          port.TransactionManager
	workflows   port.WorkflowRepository
	assignments port.AssignmentRepository
	catalog     *Catalog
	logger      Logger
}

// NewSeeder creates a new seeder
func NewSeeder(
	tx port.TransactionManager,
	workflows port.WorkflowRepository,
	assignments port.AssignmentRepository,
	catalog *Catalog,
	logger Logger,
) *Seeder {
	return &Seeder{
		tx:          tx,
		workflows:   workflows,
		assignments: assignments,
		catalog:     catalog,
		logger:      logger,
	}
}

// Apply inserts the seed in one transaction. Workflows that already exist by
// business type and name, and assignments that already exist by group and user,
// are left untouched so the same seed can be applied on every start.
func (s *Seeder) Apply(ctx context.Context, seed *Seed) (*SeedResult, error) {
	result := &SeedResult{}

	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		for i := range seed.Workflows {
			if err := s.applyWorkflow(txCtx, &seed.Workflows[i], result); err != nil {
				return err
			}
		}
		for i := range seed.Assignments {
			if err := s.applyAssignment(txCtx, &seed.Assignments[i], result); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to apply catalog seed", "error", err)
		return nil, err
	}

	s.catalog.Invalidate()
	s.logger.Info("Catalog seed applied",
		"workflows", result.Workflows,
		"nodes", result.Nodes,
		"bindings", result.Bindings,
		"assignments", result.Assignments,
		"skipped", result.Skipped)
	return result, nil
}

func (s *Seeder) applyWorkflow(ctx context.Context, sw *SeedWorkflow, result *SeedResult) error {
	businessType := entity.BusinessType(sw.BusinessType)

	existing, err := s.workflows.GetByName(ctx, businessType, sw.Name)
	if err != nil {
		return err
	}
	if existing != nil {
		s.logger.Info("Workflow already seeded", "name", sw.Name, "workflow_id", existing.ID)
		result.Skipped++
		return nil
	}

	status := entity.WorkflowStatus(sw.Status)
	if status == "" {
		status = entity.WorkflowStatusActive
	}
	def := &entity.WorkflowDefinition{
		Name:         sw.Name,
		BusinessType: businessType,
		Conditions:   sw.Conditions,
		IsDefault:    sw.IsDefault,
		Status:       status,
	}
	if err := s.workflows.Create(ctx, def); err != nil {
		return err
	}
	result.Workflows++

	for _, sn := range sw.Nodes {
		if !entity.ApproverType(sn.ApproverType).IsKnown() {
			// Accepted by the engine, but such a node resolves to nobody
			s.logger.Warn("Seeded node has unknown approver type",
				"workflow", sw.Name, "node", sn.Name, "approver_type", sn.ApproverType)
		}
		node := &entity.WorkflowNode{
			WorkflowID:   def.ID,
			Name:         sn.Name,
			Order:        sn.Order,
			ApproverType: entity.ApproverType(sn.ApproverType),
			UserID:       sn.UserID,
			RoleID:       sn.RoleID,
			GroupName:    sn.GroupName,
		}
		if err := s.workflows.CreateNode(ctx, node); err != nil {
			return err
		}
		result.Nodes++
	}

	for _, roleID := range sw.BindRoles {
		if err := s.workflows.BindRole(ctx, roleID, def.ID); err != nil {
			return err
		}
		result.Bindings++
	}
	return nil
}

func (s *Seeder) applyAssignment(ctx context.Context, sa *SeedAssignment, result *SeedResult) error {
	exists, err := s.assignments.Exists(ctx, sa.GroupName, sa.UserID)
	if err != nil {
		return err
	}
	if exists {
		result.Skipped++
		return nil
	}

	assignment := &entity.ApproverAssignment{
		GroupName:       sa.GroupName,
		UserID:          sa.UserID,
		DelegateUserID:  sa.DelegateUserID,
		DelegateStart:   sa.DelegateStart,
		DelegateEnd:     sa.DelegateEnd,
		DepartmentScope: sa.DepartmentScope,
		AmountLimit:     sa.AmountLimit,
		IsActive:        !sa.Inactive,
	}
	if err := s.assignments.Create(ctx, assignment); err != nil {
		return err
	}
	result.Assignments++
	return nil
}
