package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/garyjia/ops-approval/internal/application/port"
	"github.com/garyjia/ops-approval/internal/domain/entity"
	"github.com/garyjia/ops-approval/internal/infrastructure/persistence/sqldb"
	"go.uber.org/zap"
)

// OrgRepository implements port.OrgDirectory over the users, roles and
// departments tables. The write helpers exist for seeding and tests.
type OrgRepository struct {
	db     *sqldb.DB
	logger *zap.Logger
}

// NewOrgRepository creates a new org directory repository
func NewOrgRepository(db *sqldb.DB, logger *zap.Logger) *OrgRepository {
	return &OrgRepository{
		db:     db,
		logger: logger,
	}
}

// RolesOf returns the roles held by a user ordered by level descending
func (r *OrgRepository) RolesOf(ctx context.Context, userID int64) ([]entity.UserRole, error) {
	query := `
		SELECT ro.id, ro.level
		FROM user_roles ur
		JOIN roles ro ON ro.id = ur.role_id
		WHERE ur.user_id = ?
		ORDER BY ro.level DESC, ro.id ASC
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error("Failed to load user roles", zap.Int64("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to load user roles: %w", err)
	}
	defer rows.Close()

	var roles []entity.UserRole
	for rows.Next() {
		var role entity.UserRole
		if err := rows.Scan(&role.RoleID, &role.Level); err != nil {
			return nil, fmt.Errorf("failed to scan user role: %w", err)
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// ActiveUsersWithRole returns active holders of a role ordered by user id
func (r *OrgRepository) ActiveUsersWithRole(ctx context.Context, roleID int64) ([]int64, error) {
	query := `
		SELECT u.id
		FROM user_roles ur
		JOIN users u ON u.id = ur.user_id
		WHERE ur.role_id = ? AND u.is_active = ?
		ORDER BY u.id ASC
	`
	return r.queryIDs(ctx, "role holders", query, roleID, true)
}

// ActiveDepartmentManagers returns active managers of a department ordered by user id
func (r *OrgRepository) ActiveDepartmentManagers(ctx context.Context, departmentID int64) ([]int64, error) {
	query := `
		SELECT id
		FROM users
		WHERE department_id = ? AND is_department_manager = ? AND is_active = ?
		ORDER BY id ASC
	`
	return r.queryIDs(ctx, "department managers", query, departmentID, true, true)
}

// IsDepartmentManager reports the manager flag of a user. Unknown users are not managers.
func (r *OrgRepository) IsDepartmentManager(ctx context.Context, userID int64) (bool, error) {
	var isManager bool
	err := r.db.QueryRow(ctx, `SELECT is_department_manager FROM users WHERE id = ?`, userID).Scan(&isManager)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		r.logger.Error("Failed to read manager flag", zap.Int64("user_id", userID), zap.Error(err))
		return false, fmt.Errorf("failed to read manager flag: %w", err)
	}
	return isManager, nil
}

// ContactsOf returns messaging contacts of the given users, skipping users without an open id
func (r *OrgRepository) ContactsOf(ctx context.Context, userIDs []int64) ([]entity.Contact, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	args := make([]interface{}, len(userIDs))
	for i, id := range userIDs {
		args[i] = id
	}
	query := fmt.Sprintf(`
		SELECT id, name, open_id
		FROM users
		WHERE id IN (%s) AND open_id <> ''
		ORDER BY id ASC
	`, placeholders(len(userIDs)))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to load contacts", zap.Int("user_count", len(userIDs)), zap.Error(err))
		return nil, fmt.Errorf("failed to load contacts: %w", err)
	}
	defer rows.Close()

	var contacts []entity.Contact
	for rows.Next() {
		var c entity.Contact
		if err := rows.Scan(&c.UserID, &c.Name, &c.OpenID); err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

// CreateDepartment inserts a department and returns its ID
func (r *OrgRepository) CreateDepartment(ctx context.Context, name string) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO departments (name) VALUES (?) RETURNING id`, name).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create department: %w", err)
	}
	return id, nil
}

// OrgUser is the write model for CreateUser
type OrgUser struct {
	Name         string
	DepartmentID int64
	IsManager    bool
	IsActive     bool
	OpenID       string
}

// CreateUser inserts a user and returns its ID
func (r *OrgRepository) CreateUser(ctx context.Context, u OrgUser) (int64, error) {
	query := `
		INSERT INTO users (name, department_id, is_department_manager, is_active, open_id)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRow(ctx, query, u.Name, u.DepartmentID, u.IsManager, u.IsActive, u.OpenID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create user: %w", err)
	}
	return id, nil
}

// CreateRole inserts a role and returns its ID
func (r *OrgRepository) CreateRole(ctx context.Context, name string, level int) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO roles (name, level) VALUES (?, ?) RETURNING id`, name, level).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create role: %w", err)
	}
	return id, nil
}

// AssignRole grants a role to a user
func (r *OrgRepository) AssignRole(ctx context.Context, userID, roleID int64) error {
	if _, err := r.db.Exec(ctx, `INSERT INTO user_roles (user_id, role_id) VALUES (?, ?)`, userID, roleID); err != nil {
		return fmt.Errorf("failed to assign role: %w", err)
	}
	return nil
}

// RoleIDByName looks up a role by its unique name; 0 means not found
func (r *OrgRepository) RoleIDByName(ctx context.Context, name string) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `SELECT id FROM roles WHERE name = ?`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to look up role: %w", err)
	}
	return id, nil
}

func (r *OrgRepository) queryIDs(ctx context.Context, what, query string, args ...interface{}) ([]int64, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to load "+what, zap.Error(err))
		return nil, fmt.Errorf("failed to load %s: %w", what, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", what, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Verify interface compliance
var _ port.OrgDirectory = (*OrgRepository)(nil)
