// Package container provides dependency injection and lifecycle management
// for the approval service following Clean Architecture principles.
package container

import (
	"fmt"
	"time"

	"github.com/garyjia/ops-approval/internal/domain/entity"
	"github.com/garyjia/ops-approval/pkg/database"
)

// Config holds all configuration for the Container.
// It aggregates configurations for all subsystems.
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Workflow catalog configuration
	Catalog CatalogConfig

	// Approval engine configuration
	Engine EngineConfig

	// Lark API configuration
	Lark LarkConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Driver is sqlite3 or pgx
	Driver string

	// Path to SQLite database file
	Path string

	// DSN is the Postgres connection string
	DSN string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// AutoMigrate applies the embedded migrations on start
	AutoMigrate bool
}

// CatalogConfig holds workflow catalog settings.
type CatalogConfig struct {
	// SeedFile is an optional YAML seed applied on start
	SeedFile string

	// CacheTTL of the catalog cache; zero disables it
	CacheTTL time.Duration
}

// EngineConfig holds approval engine settings.
type EngineConfig struct {
	// RoleBindingTypes are the business types whose submitters' role bindings pick the workflow
	RoleBindingTypes []entity.BusinessType
}

// LarkConfig holds Lark API settings.
type LarkConfig struct {
	// Enabled turns on approver notifications through Lark
	Enabled bool

	AppID     string
	AppSecret string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:          database.DriverSQLite,
			Path:            "data/approval.db",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			AutoMigrate:     true,
		},
		Catalog: CatalogConfig{
			CacheTTL: time.Minute,
		},
		Engine: EngineConfig{
			RoleBindingTypes: []entity.BusinessType{entity.BusinessTypeReimbursement},
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case database.DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required")
		}
	case database.DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	if c.Lark.Enabled && (c.Lark.AppID == "" || c.Lark.AppSecret == "") {
		return fmt.Errorf("lark.app_id and lark.app_secret are required when lark is enabled")
	}

	return nil
}
