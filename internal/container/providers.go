package container

import (
	"context"
	"fmt"

	"github.com/garyjia/ops-approval/internal/application/catalog"
	"github.com/garyjia/ops-approval/internal/application/dispatcher"
	"github.com/garyjia/ops-approval/internal/application/port"
	"github.com/garyjia/ops-approval/internal/application/resolver"
	"github.com/garyjia/ops-approval/internal/application/selector"
	"github.com/garyjia/ops-approval/internal/application/service"
	"github.com/garyjia/ops-approval/internal/application/workflow"
	"github.com/garyjia/ops-approval/internal/domain/entity"
	"github.com/garyjia/ops-approval/internal/domain/event"
	infraLark "github.com/garyjia/ops-approval/internal/infrastructure/external/lark"
	"github.com/garyjia/ops-approval/internal/infrastructure/persistence/repository"
	"github.com/garyjia/ops-approval/internal/infrastructure/persistence/sqldb"
	"github.com/garyjia/ops-approval/migrations"
	"github.com/garyjia/ops-approval/pkg/database"
	"github.com/garyjia/ops-approval/pkg/utils"
	"go.uber.org/zap"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	Conn           *database.DB
	TransactionMgr *sqldb.DB
}

// LarkBundle holds the Lark client and the message sender built on it.
type LarkBundle struct {
	Client    *infraLark.SDKClient
	Messenger *infraLark.Messenger
}

// ProvideDatabase opens the configured driver and wraps it in a transaction manager.
// Pending embedded migrations are applied when AutoMigrate is set.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	conn, err := database.New(database.Config{
		Driver:          cfg.Driver,
		Path:            cfg.Path,
		DSN:             cfg.DSN,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	if cfg.AutoMigrate {
		migrator := database.NewMigrator(conn, logger)
		if err := migrator.RunMigrationsFS(migrations.FS, migrations.Dir(conn.Driver)); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	return &DatabaseBundle{
		Conn:           conn,
		TransactionMgr: sqldb.NewDB(conn.DB, sqldb.Dialect(conn.Driver), logger),
	}, nil
}

// ProvideRepositories creates all repositories over the transaction-aware connection.
func ProvideRepositories(db *sqldb.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Org:            repository.NewOrgRepository(db, logger),
		Workflows:      repository.NewWorkflowRepository(db, logger),
		Assignments:    repository.NewAssignmentRepository(db, logger),
		History:        repository.NewHistoryRepository(db, logger),
		Reimbursements: repository.NewReimbursementRepository(db, logger),
		AssetRequests:  repository.NewAssetRequestRepository(db, logger),
		Devices:        repository.NewDeviceRepository(db, logger),
	}, nil
}

// CatalogDeps holds dependencies required for creating the workflow catalog.
type CatalogDeps struct {
	Repos     *RepositoryBundle
	TxManager port.TransactionManager
	Config    *CatalogConfig
	Logger    *zap.Logger
}

// ProvideCatalog creates the workflow catalog and applies the seed file when one is configured.
func ProvideCatalog(ctx context.Context, deps *CatalogDeps) (*catalog.Catalog, error) {
	if deps == nil || deps.Repos == nil || deps.Config == nil {
		return nil, fmt.Errorf("catalog dependencies are required")
	}

	cat := catalog.New(deps.Repos.Workflows, catalog.WithCache(deps.Config.CacheTTL))

	if deps.Config.SeedFile == "" {
		return cat, nil
	}

	seed, err := catalog.LoadSeed(deps.Config.SeedFile)
	if err != nil {
		return nil, err
	}

	seeder := catalog.NewSeeder(deps.TxManager, deps.Repos.Workflows, deps.Repos.Assignments, cat, utils.NewKVLogger(deps.Logger))
	result, err := seeder.Apply(ctx, seed)
	if err != nil {
		return nil, fmt.Errorf("failed to apply catalog seed: %w", err)
	}

	deps.Logger.Info("Workflow catalog seeded",
		zap.String("seed_file", deps.Config.SeedFile),
		zap.Int("workflows", result.Workflows),
		zap.Int("nodes", result.Nodes),
		zap.Int("bindings", result.Bindings),
		zap.Int("assignments", result.Assignments),
		zap.Int("skipped", result.Skipped))

	return cat, nil
}

// ProvideLarkClients creates the Lark client and messenger.
// Returns nil when Lark is disabled; notifications are then only logged.
func ProvideLarkClients(cfg *LarkConfig, logger *zap.Logger) (*LarkBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("lark config is required")
	}
	if !cfg.Enabled {
		logger.Info("Lark messaging disabled")
		return nil, nil
	}

	client := infraLark.NewSDKClient(infraLark.Config{
		AppID:     cfg.AppID,
		AppSecret: cfg.AppSecret,
	}, logger)

	return &LarkBundle{
		Client:    client,
		Messenger: infraLark.NewMessenger(client, logger),
	}, nil
}

// ProvideDispatcher creates the event dispatcher.
// Returns dispatcher.Dispatcher implementation.
func ProvideDispatcher(logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return dispatcher.NewDispatcher(
		dispatcher.WithLogger(utils.NewKVLogger(logger)),
	), nil
}

// WorkflowDeps holds dependencies required for creating the approval engine.
type WorkflowDeps struct {
	Repos      *RepositoryBundle
	Catalog    *catalog.Catalog
	TxManager  port.TransactionManager
	Dispatcher dispatcher.Dispatcher
	Engine     *EngineConfig
	Logger     *zap.Logger
}

// ProvideWorkflowEngine creates the selector, resolver and approval engine.
func ProvideWorkflowEngine(deps *WorkflowDeps) (workflow.ApprovalEngine, error) {
	if deps == nil {
		return nil, fmt.Errorf("workflow dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.Catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}

	kv := utils.NewKVLogger(deps.Logger)

	var roleBound []entity.BusinessType
	if deps.Engine != nil {
		roleBound = deps.Engine.RoleBindingTypes
	}

	sel := selector.New(deps.Catalog, deps.Repos.Workflows, deps.Repos.Org, roleBound, kv)
	res := resolver.New(deps.Repos.Org, deps.Repos.Assignments, kv)

	return workflow.NewEngine(
		sel,
		deps.Catalog,
		deps.Repos.Workflows,
		res,
		deps.Repos.History,
		deps.TxManager,
		workflow.WithDispatcher(deps.Dispatcher),
		workflow.WithLogger(kv),
	), nil
}

// ServiceDeps holds dependencies required for creating application services.
type ServiceDeps struct {
	Repos      *RepositoryBundle
	Engine     workflow.ApprovalEngine
	TxManager  port.TransactionManager
	Dispatcher dispatcher.Dispatcher
	Messenger  port.MessageSender
	Logger     *zap.Logger
}

// ProvideServices creates the application services, registers the business
// types with the approval facade and subscribes the event handlers.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.Engine == nil {
		return nil, fmt.Errorf("approval engine is required")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}

	serviceLogger := utils.NewKVLogger(deps.Logger)

	approval := service.NewApprovalService(deps.Engine, serviceLogger)
	approval.Register(entity.BusinessTypeReimbursement, deps.Repos.Reimbursements)
	approval.Register(entity.BusinessTypeAssetRequest, deps.Repos.AssetRequests)

	bundle := &ServiceBundle{
		Approval:       approval,
		Reimbursements: service.NewReimbursementService(deps.Repos.Reimbursements, deps.TxManager, deps.Dispatcher, serviceLogger),
		Assets:         service.NewAssetRequestService(deps.Repos.AssetRequests, deps.Repos.Devices, deps.TxManager, deps.Dispatcher, serviceLogger),
		Notification:   service.NewNotificationService(deps.Repos.Org, deps.Messenger, serviceLogger),
	}

	d := deps.Dispatcher
	d.SubscribeNamed(event.TypeRecordSubmitted, "approver_notifier", bundle.Notification.HandleAwaiting)
	d.SubscribeNamed(event.TypeRecordAdvanced, "approver_notifier", bundle.Notification.HandleAwaiting)
	d.SubscribeNamed(event.TypeRecordCompleted, "submitter_notifier", bundle.Notification.HandleFinished)
	d.SubscribeNamed(event.TypeRecordCancelled, "submitter_notifier", bundle.Notification.HandleFinished)
	d.SubscribeNamed(event.TypeRecordCompleted, "asset_outcome",
		dispatcher.ForBusinessType(entity.BusinessTypeAssetRequest, bundle.Assets.HandleCompleted))

	return bundle, nil
}
