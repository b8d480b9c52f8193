package repository

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/garyjia/ops-approval/internal/infrastructure/persistence/sqldb"
	"github.com/garyjia/ops-approval/migrations"
	"github.com/garyjia/ops-approval/pkg/database"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newSQLiteDB opens a migrated sqlite database in a temp dir
func newSQLiteDB(t *testing.T) *sqldb.DB {
	t.Helper()
	return openMigrated(t, database.Config{
		Driver: database.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "approval.db"),
	})
}

// newPostgresDB opens TEST_POSTGRES_DSN and empties every engine table.
// The test is skipped when the variable is unset.
func newPostgresDB(t *testing.T) *sqldb.DB {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}

	db := openMigrated(t, database.Config{Driver: database.DriverPostgres, DSN: dsn})
	_, err := db.SQL().Exec(`TRUNCATE approval_records, asset_requests, reimbursements, devices,
		role_workflows, approvers, workflow_nodes, workflows, user_roles, roles, users, departments
		RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	return db
}

func openMigrated(t *testing.T, cfg database.Config) *sqldb.DB {
	t.Helper()
	logger := zap.NewNop()

	conn, err := database.New(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	migrator := database.NewMigrator(conn, logger)
	require.NoError(t, migrator.RunMigrationsFS(migrations.FS, migrations.Dir(conn.Driver)))

	return sqldb.NewDB(conn.DB, sqldb.Dialect(conn.Driver), logger)
}
