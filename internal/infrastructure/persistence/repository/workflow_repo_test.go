package repository

import (
	"context"
	"testing"

	"github.com/garyjia/ops-approval/internal/domain/entity"
	domainwf "github.com/garyjia/ops-approval/internal/domain/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func ptr[T any](v T) *T { return &v }

func createWorkflow(t *testing.T, repo *WorkflowRepository, def *entity.WorkflowDefinition) *entity.WorkflowDefinition {
	t.Helper()
	require.NoError(t, repo.Create(context.Background(), def))
	require.NotZero(t, def.ID)
	return def
}

func TestWorkflowRepository_CandidatesAndDefault(t *testing.T) {
	db := newSQLiteDB(t)
	repo := NewWorkflowRepository(db, zap.NewNop())
	ctx := context.Background()

	fallback := createWorkflow(t, repo, &entity.WorkflowDefinition{
		Name: "default", BusinessType: entity.BusinessTypeReimbursement, IsDefault: true,
	})
	large := createWorkflow(t, repo, &entity.WorkflowDefinition{
		Name:         "large",
		BusinessType: entity.BusinessTypeReimbursement,
		Conditions:   entity.WorkflowConditions{AmountGreaterThan: ptr(5000.0)},
	})
	managers := createWorkflow(t, repo, &entity.WorkflowDefinition{
		Name:         "managers",
		BusinessType: entity.BusinessTypeReimbursement,
		Conditions:   entity.WorkflowConditions{IsDepartmentManager: ptr(true), DepartmentIDs: []int64{3, 4}},
	})
	retired := createWorkflow(t, repo, &entity.WorkflowDefinition{
		Name: "retired", BusinessType: entity.BusinessTypeReimbursement,
	})
	require.NoError(t, repo.UpdateStatus(ctx, retired.ID, entity.WorkflowStatusInactive))
	createWorkflow(t, repo, &entity.WorkflowDefinition{
		Name: "assets", BusinessType: entity.BusinessTypeAssetRequest,
	})

	candidates, err := repo.ListCandidates(ctx, entity.BusinessTypeReimbursement)
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, large.ID, candidates[0].ID)
	assert.Equal(t, managers.ID, candidates[1].ID)
	require.NotNil(t, candidates[0].Conditions.AmountGreaterThan)
	assert.Equal(t, 5000.0, *candidates[0].Conditions.AmountGreaterThan)
	require.NotNil(t, candidates[1].Conditions.IsDepartmentManager)
	assert.True(t, *candidates[1].Conditions.IsDepartmentManager)
	assert.Equal(t, []int64{3, 4}, candidates[1].Conditions.DepartmentIDs)

	def, err := repo.GetDefault(ctx, entity.BusinessTypeReimbursement)
	require.NoError(t, err)
	require.NotNil(t, def)
	assert.Equal(t, fallback.ID, def.ID)
	assert.True(t, def.Conditions.IsEmpty())

	def, err = repo.GetDefault(ctx, entity.BusinessTypeAssetRequest)
	require.NoError(t, err)
	assert.Nil(t, def)

	got, err := repo.GetByID(ctx, retired.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.WorkflowStatusInactive, got.Status)

	got, err = repo.GetByID(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, got)

	err = repo.UpdateStatus(ctx, 9999, entity.WorkflowStatusActive)
	assert.ErrorIs(t, err, domainwf.ErrNotFound)
}

func TestWorkflowRepository_NodeOrdering(t *testing.T) {
	db := newSQLiteDB(t)
	repo := NewWorkflowRepository(db, zap.NewNop())
	ctx := context.Background()

	wf := createWorkflow(t, repo, &entity.WorkflowDefinition{
		Name: "gapped", BusinessType: entity.BusinessTypeReimbursement, IsDefault: true,
	})

	// Orders are deliberately sparse and inserted out of order
	for _, n := range []*entity.WorkflowNode{
		{WorkflowID: wf.ID, Name: "finance", Order: 30, ApproverType: entity.ApproverTypeCustomGroup, GroupName: "finance"},
		{WorkflowID: wf.ID, Name: "manager", Order: 10, ApproverType: entity.ApproverTypeDepartmentManager},
		{WorkflowID: wf.ID, Name: "cfo", Order: 20, ApproverType: entity.ApproverTypeUser, UserID: ptr(int64(7))},
	} {
		require.NoError(t, repo.CreateNode(ctx, n))
	}

	nodes, err := repo.ListNodes(ctx, wf.ID)
	require.NoError(t, err)
	require.Len(t, nodes, 3)
	assert.Equal(t, []int{10, 20, 30}, []int{nodes[0].Order, nodes[1].Order, nodes[2].Order})
	require.NotNil(t, nodes[1].UserID)
	assert.Equal(t, int64(7), *nodes[1].UserID)
	assert.Nil(t, nodes[1].RoleID)
	assert.Equal(t, "finance", nodes[2].GroupName)

	next, err := repo.NextNode(ctx, wf.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, "cfo", next.Name)

	next, err = repo.NextNode(ctx, wf.ID, 15)
	require.NoError(t, err)
	assert.Equal(t, "cfo", next.Name)

	next, err = repo.NextNode(ctx, wf.ID, 30)
	require.NoError(t, err)
	assert.Nil(t, next)

	// Removing a middle node shifts progression to the following one
	require.NoError(t, repo.DeleteNode(ctx, nodes[1].ID))
	next, err = repo.NextNode(ctx, wf.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, "finance", next.Name)

	gone, err := repo.GetNode(ctx, nodes[1].ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	assert.ErrorIs(t, repo.DeleteNode(ctx, nodes[1].ID), domainwf.ErrNotFound)
}

func TestWorkflowRepository_DuplicateNodeOrderRejected(t *testing.T) {
	db := newSQLiteDB(t)
	repo := NewWorkflowRepository(db, zap.NewNop())
	ctx := context.Background()

	wf := createWorkflow(t, repo, &entity.WorkflowDefinition{
		Name: "dup", BusinessType: entity.BusinessTypeReimbursement, IsDefault: true,
	})
	require.NoError(t, repo.CreateNode(ctx, &entity.WorkflowNode{
		WorkflowID: wf.ID, Name: "a", Order: 1, ApproverType: entity.ApproverTypeInitiator,
	}))
	err := repo.CreateNode(ctx, &entity.WorkflowNode{
		WorkflowID: wf.ID, Name: "b", Order: 1, ApproverType: entity.ApproverTypeInitiator,
	})
	assert.Error(t, err)
}

func TestWorkflowRepository_RoleBindings(t *testing.T) {
	db := newSQLiteDB(t)
	repo := NewWorkflowRepository(db, zap.NewNop())
	org := NewOrgRepository(db, zap.NewNop())
	ctx := context.Background()

	staff, err := org.CreateRole(ctx, "staff", 1)
	require.NoError(t, err)
	director, err := org.CreateRole(ctx, "director", 5)
	require.NoError(t, err)

	staffFlow := createWorkflow(t, repo, &entity.WorkflowDefinition{Name: "staff", BusinessType: entity.BusinessTypeReimbursement})
	directorFlow := createWorkflow(t, repo, &entity.WorkflowDefinition{Name: "director", BusinessType: entity.BusinessTypeReimbursement})
	retiredFlow := createWorkflow(t, repo, &entity.WorkflowDefinition{Name: "retired", BusinessType: entity.BusinessTypeReimbursement})
	require.NoError(t, repo.UpdateStatus(ctx, retiredFlow.ID, entity.WorkflowStatusInactive))

	require.NoError(t, repo.BindRole(ctx, staff, staffFlow.ID))
	require.NoError(t, repo.BindRole(ctx, director, directorFlow.ID))
	require.NoError(t, repo.BindRole(ctx, director, retiredFlow.ID))

	bindings, err := repo.RoleBindings(ctx, []int64{staff, director})
	require.NoError(t, err)
	require.Len(t, bindings, 2)
	assert.Equal(t, entity.RoleWorkflowBinding{RoleID: director, RoleLevel: 5, WorkflowID: directorFlow.ID}, bindings[0])
	assert.Equal(t, entity.RoleWorkflowBinding{RoleID: staff, RoleLevel: 1, WorkflowID: staffFlow.ID}, bindings[1])

	bindings, err = repo.RoleBindings(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, bindings)
}
