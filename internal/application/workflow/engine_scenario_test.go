package workflow_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/garyjia/ops-approval/internal/application/catalog"
	"github.com/garyjia/ops-approval/internal/application/resolver"
	"github.com/garyjia/ops-approval/internal/application/selector"
	"github.com/garyjia/ops-approval/internal/application/workflow"
	"github.com/garyjia/ops-approval/internal/domain/entity"
	domainwf "github.com/garyjia/ops-approval/internal/domain/workflow"
	"github.com/garyjia/ops-approval/internal/infrastructure/persistence/repository"
	"github.com/garyjia/ops-approval/internal/infrastructure/persistence/sqldb"
	"github.com/garyjia/ops-approval/migrations"
	"github.com/garyjia/ops-approval/pkg/database"
	"github.com/garyjia/ops-approval/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// scenario is an engine over a migrated sqlite file with one department:
// submitter Ann, manager Bob and auditor Cid.
type scenario struct {
	ctx       context.Context
	db        *sqldb.DB
	org       *repository.OrgRepository
	workflows *repository.WorkflowRepository
	history   *repository.HistoryRepository
	claims    *repository.ReimbursementRepository
	engine    workflow.ApprovalEngine

	dept, ann, bob, cid, auditorRole int64
}

func newScenario(t *testing.T) *scenario {
	t.Helper()
	logger := zap.NewNop()
	ctx := context.Background()

	conn, err := database.New(database.Config{
		Driver: database.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "engine.db"),
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, database.NewMigrator(conn, logger).RunMigrationsFS(migrations.FS, migrations.Dir(conn.Driver)))
	db := sqldb.NewDB(conn.DB, sqldb.Dialect(conn.Driver), logger)

	s := &scenario{
		ctx:       ctx,
		db:        db,
		org:       repository.NewOrgRepository(db, logger),
		workflows: repository.NewWorkflowRepository(db, logger),
		history:   repository.NewHistoryRepository(db, logger),
		claims:    repository.NewReimbursementRepository(db, logger),
	}

	kv := utils.NewKVLogger(logger)
	cat := catalog.New(s.workflows)
	sel := selector.New(cat, s.workflows, s.org, []entity.BusinessType{entity.BusinessTypeReimbursement}, kv)
	res := resolver.New(s.org, repository.NewAssignmentRepository(db, logger), kv)
	s.engine = workflow.NewEngine(sel, cat, s.workflows, res, s.history, db, workflow.WithLogger(kv))

	s.dept = s.must(t)(s.org.CreateDepartment(ctx, "Operations"))
	s.ann = s.must(t)(s.org.CreateUser(ctx, repository.OrgUser{Name: "Ann", DepartmentID: s.dept, IsActive: true}))
	s.bob = s.must(t)(s.org.CreateUser(ctx, repository.OrgUser{Name: "Bob", DepartmentID: s.dept, IsManager: true, IsActive: true}))
	s.cid = s.must(t)(s.org.CreateUser(ctx, repository.OrgUser{Name: "Cid", DepartmentID: s.dept, IsActive: true}))
	s.auditorRole = s.must(t)(s.org.CreateRole(ctx, "auditor", 10))
	require.NoError(t, s.org.AssignRole(ctx, s.cid, s.auditorRole))

	return s
}

func (s *scenario) must(t *testing.T) func(int64, error) int64 {
	return func(id int64, err error) int64 {
		t.Helper()
		require.NoError(t, err)
		return id
	}
}

// addWorkflow creates a reimbursement workflow with nodes at orders 10, 20, 30...
func (s *scenario) addWorkflow(t *testing.T, def *entity.WorkflowDefinition, nodes ...*entity.WorkflowNode) (*entity.WorkflowDefinition, []*entity.WorkflowNode) {
	t.Helper()
	def.BusinessType = entity.BusinessTypeReimbursement
	require.NoError(t, s.workflows.Create(s.ctx, def))
	for i, n := range nodes {
		n.WorkflowID = def.ID
		n.Order = (i + 1) * 10
		require.NoError(t, s.workflows.CreateNode(s.ctx, n))
	}
	return def, nodes
}

// threeStep is role, then department manager, then the initiator signing off
func (s *scenario) threeStep(t *testing.T) []*entity.WorkflowNode {
	_, nodes := s.addWorkflow(t, &entity.WorkflowDefinition{Name: "standard", IsDefault: true},
		&entity.WorkflowNode{Name: "audit", ApproverType: entity.ApproverTypeRole, RoleID: &s.auditorRole},
		&entity.WorkflowNode{Name: "manager", ApproverType: entity.ApproverTypeDepartmentManager},
		&entity.WorkflowNode{Name: "sign-off", ApproverType: entity.ApproverTypeInitiator},
	)
	return nodes
}

func (s *scenario) newClaim(t *testing.T, amount float64) int64 {
	t.Helper()
	claim := &entity.Reimbursement{
		UserID:       s.ann,
		DepartmentID: s.dept,
		Title:        "Conference travel",
		Type:         "travel",
		TotalAmount:  amount,
	}
	require.NoError(t, s.claims.Create(s.ctx, claim))
	return claim.ID
}

func (s *scenario) approve(t *testing.T, id, actor int64) *workflow.DecideResult {
	t.Helper()
	result, err := s.engine.Decide(s.ctx, s.claims, id, workflow.DecideRequest{ActorID: actor, Action: entity.DecisionApprove})
	require.NoError(t, err)
	return result
}

func TestScenario_ThreeApprovalsComplete(t *testing.T) {
	s := newScenario(t)
	nodes := s.threeStep(t)
	id := s.newClaim(t, 800)

	submitted, err := s.engine.Submit(s.ctx, s.claims, id)
	require.NoError(t, err)
	assert.Equal(t, nodes[0].ID, submitted.NodeID)
	assert.Equal(t, []int64{s.cid}, submitted.Approvers)

	first := s.approve(t, id, s.cid)
	assert.False(t, first.Completed)
	assert.Equal(t, nodes[1].ID, *first.NextNodeID)
	assert.Equal(t, []int64{s.bob}, first.NextApprovers)

	second := s.approve(t, id, s.bob)
	assert.Equal(t, nodes[2].ID, *second.NextNodeID)
	assert.Equal(t, []int64{s.ann}, second.NextApprovers)

	third := s.approve(t, id, s.ann)
	assert.True(t, third.Completed)
	assert.Equal(t, entity.RecordStatusApproved, third.Status)

	progress, err := s.engine.Progress(s.ctx, s.claims, id)
	require.NoError(t, err)
	assert.Equal(t, entity.RecordStatusApproved, progress.Record.Status)
	assert.Nil(t, progress.Record.CurrentNodeID)
	assert.NotNil(t, progress.Record.CompletedAt)
	assert.Equal(t, "standard", progress.WorkflowName)
	assert.Empty(t, progress.AllowedActions)
	assert.Len(t, progress.Nodes, 3)

	require.Len(t, progress.History, 3)
	for i, entry := range progress.History {
		assert.Equal(t, []string{"Cid", "Bob", "Ann"}[i], entry.ActorName)
		assert.Equal(t, nodes[i].ID, entry.NodeID)
		assert.Equal(t, nodes[i].Order, entry.NodeOrder)
		assert.Equal(t, entity.DecisionApprove, entry.Action)
	}

	_, err = s.engine.Decide(s.ctx, s.claims, id, workflow.DecideRequest{ActorID: s.ann, Action: entity.DecisionApprove})
	assert.ErrorIs(t, err, domainwf.ErrState)
}

func TestScenario_RejectAtSecondNode(t *testing.T) {
	s := newScenario(t)
	nodes := s.threeStep(t)
	id := s.newClaim(t, 800)

	_, err := s.engine.Submit(s.ctx, s.claims, id)
	require.NoError(t, err)
	s.approve(t, id, s.cid)

	result, err := s.engine.Decide(s.ctx, s.claims, id, workflow.DecideRequest{
		ActorID: s.bob, Action: entity.DecisionReject, Opinion: "missing receipts",
	})
	require.NoError(t, err)
	assert.True(t, result.Completed)
	assert.Equal(t, entity.RecordStatusRejected, result.Status)

	progress, err := s.engine.Progress(s.ctx, s.claims, id)
	require.NoError(t, err)
	assert.Equal(t, entity.RecordStatusRejected, progress.Record.Status)
	assert.Nil(t, progress.Record.CurrentNodeID)
	require.Len(t, progress.History, 2)
	assert.Equal(t, nodes[1].ID, progress.History[1].NodeID)
	assert.Equal(t, "missing receipts", progress.History[1].Opinion)
	for _, entry := range progress.History {
		assert.NotEqual(t, nodes[2].ID, entry.NodeID)
	}
}

func TestScenario_AmountThresholdRouting(t *testing.T) {
	s := newScenario(t)
	s.threeStep(t)
	big, bigNodes := s.addWorkflow(t, &entity.WorkflowDefinition{
		Name:       "large-claims",
		Conditions: entity.WorkflowConditions{AmountGreaterThan: ptrFloat(5000)},
	}, &entity.WorkflowNode{Name: "cfo", ApproverType: entity.ApproverTypeUser, UserID: &s.bob})

	large, err := s.engine.Submit(s.ctx, s.claims, s.newClaim(t, 6000))
	require.NoError(t, err)
	assert.Equal(t, big.ID, large.WorkflowID)
	assert.Equal(t, bigNodes[0].ID, large.NodeID)

	small, err := s.engine.Submit(s.ctx, s.claims, s.newClaim(t, 4000))
	require.NoError(t, err)
	assert.NotEqual(t, big.ID, small.WorkflowID)
	assert.Equal(t, "audit", small.NodeName)

	// The threshold is strict
	edge, err := s.engine.Submit(s.ctx, s.claims, s.newClaim(t, 5000))
	require.NoError(t, err)
	assert.Equal(t, small.WorkflowID, edge.WorkflowID)
}

func TestScenario_ConcurrentDecisionsOnOneNode(t *testing.T) {
	s := newScenario(t)
	nodes := s.threeStep(t)
	id := s.newClaim(t, 800)

	_, err := s.engine.Submit(s.ctx, s.claims, id)
	require.NoError(t, err)

	const racers = 2
	var (
		wg   sync.WaitGroup
		errs = make([]error, racers)
	)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.engine.Decide(s.ctx, s.claims, id, workflow.DecideRequest{
				ActorID:        s.cid,
				Action:         entity.DecisionApprove,
				ExpectedNodeID: &nodes[0].ID,
			})
		}(i)
	}
	wg.Wait()

	var ok, stale int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domainwf.ErrState):
			stale++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, stale)

	history, err := s.history.ListByRecord(s.ctx, entity.BusinessTypeReimbursement, id)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, nodes[0].ID, history[0].NodeID)

	record, err := s.claims.GetRecord(s.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, nodes[1].ID, *record.CurrentNodeID)
}

func TestScenario_NodeRemovedAfterSubmission(t *testing.T) {
	s := newScenario(t)
	nodes := s.threeStep(t)
	id := s.newClaim(t, 800)

	_, err := s.engine.Submit(s.ctx, s.claims, id)
	require.NoError(t, err)
	require.NoError(t, s.workflows.DeleteNode(s.ctx, nodes[0].ID))

	_, err = s.engine.Decide(s.ctx, s.claims, id, workflow.DecideRequest{ActorID: s.cid, Action: entity.DecisionApprove})
	assert.ErrorIs(t, err, domainwf.ErrState)

	history, err := s.history.ListByRecord(s.ctx, entity.BusinessTypeReimbursement, id)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestScenario_SubmitWithoutDefault(t *testing.T) {
	s := newScenario(t)
	id := s.newClaim(t, 100)

	_, err := s.engine.Submit(s.ctx, s.claims, id)
	assert.ErrorIs(t, err, domainwf.ErrConfiguration)

	record, err := s.claims.GetRecord(s.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, entity.RecordStatusDraft, record.Status)
	assert.Nil(t, record.CurrentNodeID)
}

func ptrFloat(v float64) *float64 { return &v }
