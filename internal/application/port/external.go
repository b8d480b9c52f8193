package port

import (
	"context"

	"github.com/garyjia/ops-approval/internal/domain/entity"
)

// OrgDirectory exposes the organisational data approver resolution depends on.
// It is owned by the wider platform and read-only from the engine's side.
type OrgDirectory interface {
	// RolesOf returns the roles held by a user together with their levels
	RolesOf(ctx context.Context, userID int64) ([]entity.UserRole, error)

	// ActiveUsersWithRole returns active users holding the role
	ActiveUsersWithRole(ctx context.Context, roleID int64) ([]int64, error)

	// ActiveDepartmentManagers returns active users flagged as managers of the department
	ActiveDepartmentManagers(ctx context.Context, departmentID int64) ([]int64, error)

	// IsDepartmentManager reports the manager flag of a user
	IsDepartmentManager(ctx context.Context, userID int64) (bool, error)

	// ContactsOf returns messaging contacts for the given users
	ContactsOf(ctx context.Context, userIDs []int64) ([]entity.Contact, error)
}

// MessageSender delivers text notifications to users
type MessageSender interface {
	SendMessage(ctx context.Context, openID string, content string) error
}
