package repository

import (
	"context"
	"testing"
	"time"

	"github.com/garyjia/ops-approval/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOrgRepository_Directory(t *testing.T) {
	db := newSQLiteDB(t)
	org := NewOrgRepository(db, zap.NewNop())
	ctx := context.Background()

	sales, err := org.CreateDepartment(ctx, "sales")
	require.NoError(t, err)
	ops, err := org.CreateDepartment(ctx, "ops")
	require.NoError(t, err)

	alice, err := org.CreateUser(ctx, OrgUser{Name: "alice", DepartmentID: sales, IsManager: true, IsActive: true, OpenID: "ou_alice"})
	require.NoError(t, err)
	bob, err := org.CreateUser(ctx, OrgUser{Name: "bob", DepartmentID: sales, IsActive: true})
	require.NoError(t, err)
	carol, err := org.CreateUser(ctx, OrgUser{Name: "carol", DepartmentID: sales, IsManager: true, IsActive: false, OpenID: "ou_carol"})
	require.NoError(t, err)
	dave, err := org.CreateUser(ctx, OrgUser{Name: "dave", DepartmentID: ops, IsManager: true, IsActive: true, OpenID: "ou_dave"})
	require.NoError(t, err)

	staff, err := org.CreateRole(ctx, "staff", 1)
	require.NoError(t, err)
	lead, err := org.CreateRole(ctx, "lead", 3)
	require.NoError(t, err)

	require.NoError(t, org.AssignRole(ctx, alice, staff))
	require.NoError(t, org.AssignRole(ctx, alice, lead))
	require.NoError(t, org.AssignRole(ctx, bob, lead))
	require.NoError(t, org.AssignRole(ctx, carol, lead))

	roles, err := org.RolesOf(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []entity.UserRole{{RoleID: lead, Level: 3}, {RoleID: staff, Level: 1}}, roles)

	holders, err := org.ActiveUsersWithRole(ctx, lead)
	require.NoError(t, err)
	assert.Equal(t, []int64{alice, bob}, holders)

	managers, err := org.ActiveDepartmentManagers(ctx, sales)
	require.NoError(t, err)
	assert.Equal(t, []int64{alice}, managers)

	managers, err = org.ActiveDepartmentManagers(ctx, ops)
	require.NoError(t, err)
	assert.Equal(t, []int64{dave}, managers)

	isManager, err := org.IsDepartmentManager(ctx, alice)
	require.NoError(t, err)
	assert.True(t, isManager)

	isManager, err = org.IsDepartmentManager(ctx, bob)
	require.NoError(t, err)
	assert.False(t, isManager)

	isManager, err = org.IsDepartmentManager(ctx, 9999)
	require.NoError(t, err)
	assert.False(t, isManager)

	contacts, err := org.ContactsOf(ctx, []int64{dave, bob, alice})
	require.NoError(t, err)
	require.Len(t, contacts, 2)
	assert.Equal(t, "ou_alice", contacts[0].OpenID)
	assert.Equal(t, "ou_dave", contacts[1].OpenID)

	id, err := org.RoleIDByName(ctx, "lead")
	require.NoError(t, err)
	assert.Equal(t, lead, id)

	id, err = org.RoleIDByName(ctx, "nobody")
	require.NoError(t, err)
	assert.Zero(t, id)
}

func TestAssignmentRepository_ListActiveByGroup(t *testing.T) {
	db := newSQLiteDB(t)
	repo := NewAssignmentRepository(db, zap.NewNop())
	ctx := context.Background()

	first := &entity.ApproverAssignment{
		GroupName:       "finance",
		UserID:          10,
		DelegateUserID:  ptr(int64(20)),
		DelegateStart:   ptr("2026-05-01"),
		DelegateEnd:     ptr("2026-05-10"),
		DepartmentScope: []int64{1, 2},
		AmountLimit:     ptr(5000.0),
		IsActive:        true,
	}
	second := &entity.ApproverAssignment{GroupName: "finance", UserID: 11, IsActive: true}
	inactive := &entity.ApproverAssignment{GroupName: "finance", UserID: 12, IsActive: false}
	other := &entity.ApproverAssignment{GroupName: "it", UserID: 13, IsActive: true}
	for _, a := range []*entity.ApproverAssignment{first, second, inactive, other} {
		require.NoError(t, repo.Create(ctx, a))
	}

	got, err := repo.ListActiveByGroup(ctx, "finance")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, first.ID, got[0].ID)
	assert.Equal(t, []int64{1, 2}, got[0].DepartmentScope)
	require.NotNil(t, got[0].AmountLimit)
	assert.Equal(t, 5000.0, *got[0].AmountLimit)
	assert.Equal(t, int64(20), got[0].EffectiveUser(time.Date(2026, 5, 10, 23, 0, 0, 0, time.UTC)))

	assert.Equal(t, second.ID, got[1].ID)
	assert.Empty(t, got[1].DepartmentScope)
	assert.Nil(t, got[1].AmountLimit)
	assert.Nil(t, got[1].DelegateUserID)

	empty, err := repo.ListActiveByGroup(ctx, "legal")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestAssignmentRepository_MalformedScopeSkipped(t *testing.T) {
	db := newSQLiteDB(t)
	repo := NewAssignmentRepository(db, zap.NewNop())
	ctx := context.Background()

	good := &entity.ApproverAssignment{GroupName: "finance", UserID: 1, IsActive: true}
	bad := &entity.ApproverAssignment{GroupName: "finance", UserID: 2, IsActive: true}
	require.NoError(t, repo.Create(ctx, good))
	require.NoError(t, repo.Create(ctx, bad))

	_, err := db.Exec(ctx, `UPDATE approvers SET department_scope = ? WHERE id = ?`, "{not json", bad.ID)
	require.NoError(t, err)

	got, err := repo.ListActiveByGroup(ctx, "finance")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, good.ID, got[0].ID)
}

func TestHistoryRepository_AppendOnlyTrail(t *testing.T) {
	db := newSQLiteDB(t)
	repo := NewHistoryRepository(db, zap.NewNop())
	ctx := context.Background()

	entries := []*entity.ApprovalHistoryEntry{
		{BusinessType: entity.BusinessTypeReimbursement, RecordID: 1, WorkflowID: 1, NodeID: 1, NodeOrder: 1, ActorID: 7, Action: entity.DecisionApprove, Opinion: "ok"},
		{BusinessType: entity.BusinessTypeAssetRequest, RecordID: 1, WorkflowID: 2, NodeID: 5, NodeOrder: 1, ActorID: 8, Action: entity.DecisionReject},
		{BusinessType: entity.BusinessTypeReimbursement, RecordID: 1, WorkflowID: 1, NodeID: 2, NodeOrder: 2, ActorID: 9, Action: entity.DecisionReject, Opinion: "missing receipt"},
	}
	for _, e := range entries {
		require.NoError(t, repo.Append(ctx, e))
		require.NotZero(t, e.ID)
	}

	trail, err := repo.ListByRecord(ctx, entity.BusinessTypeReimbursement, 1)
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.Equal(t, int64(7), trail[0].ActorID)
	assert.Empty(t, trail[0].ActorName, "actors missing from the directory have no name")
	assert.Equal(t, entity.DecisionApprove, trail[0].Action)
	assert.Equal(t, 2, trail[1].NodeOrder)
	assert.Equal(t, "missing receipt", trail[1].Opinion)

	// The same record id under another business type is a different record
	trail, err = repo.ListByRecord(ctx, entity.BusinessTypeAssetRequest, 1)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, int64(8), trail[0].ActorID)
}
