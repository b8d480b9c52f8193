package config

import (
	"github.com/garyjia/ops-approval/internal/container"
	"github.com/garyjia/ops-approval/internal/domain/entity"
)

// ToContainerConfig converts the application Config to a container.Config.
// This provides a bridge between the file-based config loaded by viper
// and the container's configuration structure.
func (c *Config) ToContainerConfig() *container.Config {
	roleBound := make([]entity.BusinessType, 0, len(c.Engine.RoleBindingTypes))
	for _, bt := range c.Engine.RoleBindingTypes {
		roleBound = append(roleBound, entity.BusinessType(bt))
	}

	return &container.Config{
		Database: container.DatabaseConfig{
			Driver:          c.Database.Driver,
			Path:            c.Database.Path,
			DSN:             c.Database.DSN,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			AutoMigrate:     c.Database.AutoMigrate,
		},
		Catalog: container.CatalogConfig{
			SeedFile: c.Catalog.SeedFile,
			CacheTTL: c.Catalog.CacheTTL,
		},
		Engine: container.EngineConfig{
			RoleBindingTypes: roleBound,
		},
		Lark: container.LarkConfig{
			Enabled:   c.Lark.Enabled,
			AppID:     c.Lark.AppID,
			AppSecret: c.Lark.AppSecret,
		},
	}
}
