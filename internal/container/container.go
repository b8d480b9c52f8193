package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/garyjia/ops-approval/internal/application/catalog"
	"github.com/garyjia/ops-approval/internal/application/dispatcher"
	"github.com/garyjia/ops-approval/internal/application/port"
	"github.com/garyjia/ops-approval/internal/application/service"
	"github.com/garyjia/ops-approval/internal/application/workflow"
	"github.com/garyjia/ops-approval/internal/infrastructure/persistence/repository"
	"github.com/garyjia/ops-approval/internal/infrastructure/persistence/sqldb"
	"github.com/garyjia/ops-approval/pkg/database"
	"go.uber.org/zap"
)

// Container manages all application dependencies and lifecycle.
// It follows Clean Architecture principles with ordered initialization
// and reverse-order teardown.
type Container struct {
	config *Config
	logger *zap.Logger

	// Infrastructure - Data
	conn         *database.DB
	db           *sqldb.DB
	repositories *RepositoryBundle

	// Infrastructure - External
	lark *LarkBundle

	// Application
	catalog    *catalog.Catalog
	dispatcher dispatcher.Dispatcher
	engine     workflow.ApprovalEngine
	services   *ServiceBundle

	// Lifecycle
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	ready  atomic.Bool
	closed atomic.Bool
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Org            *repository.OrgRepository
	Workflows      *repository.WorkflowRepository
	Assignments    *repository.AssignmentRepository
	History        *repository.HistoryRepository
	Reimbursements *repository.ReimbursementRepository
	AssetRequests  *repository.AssetRequestRepository
	Devices        *repository.DeviceRepository
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Approval       service.ApprovalService
	Reimbursements service.ReimbursementService
	Assets         service.AssetRequestService
	Notification   service.NotificationService
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components in dependency order:
// 1. Database and repositories
// 2. Workflow catalog (and seed)
// 3. External clients (Lark)
// 4. Event dispatcher and approval engine
// 5. Application services and event subscriptions
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}

	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.ctx, c.cancel = context.WithCancel(ctx)
	c.logger.Info("Starting container initialization")

	// Step 1: Initialize database and repositories
	if err := c.initDatabase(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.logger.Info("Database initialized", zap.String("driver", c.conn.Driver))

	// Step 2: Initialize the workflow catalog
	if err := c.initCatalog(); err != nil {
		c.closeDatabase()
		return fmt.Errorf("failed to initialize catalog: %w", err)
	}
	c.logger.Info("Workflow catalog initialized")

	// Step 3: Initialize external clients
	if err := c.initExternalClients(); err != nil {
		c.closeDatabase()
		return fmt.Errorf("failed to initialize external clients: %w", err)
	}
	c.logger.Info("External clients initialized", zap.Bool("lark_enabled", c.lark != nil))

	// Step 4: Initialize dispatcher and approval engine
	if err := c.initDispatcherAndEngine(); err != nil {
		c.closeDatabase()
		return fmt.Errorf("failed to initialize dispatcher and engine: %w", err)
	}
	c.logger.Info("Dispatcher and approval engine initialized")

	// Step 5: Initialize application services
	if err := c.initServices(); err != nil {
		c.closeDatabase()
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	c.logger.Info("Application services initialized",
		zap.Int("business_types", len(c.services.Approval.BusinessTypes())))

	c.ready.Store(true)
	c.logger.Info("Container started successfully")

	return nil
}

// Close gracefully shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")

	var errs []error

	// Cancel context to signal all goroutines
	if c.cancel != nil {
		c.cancel()
	}

	// Step 1: Services don't need explicit cleanup (reverse of step 5)

	// Step 2: Close dispatcher so in-flight notifications finish (reverse of step 4)
	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		} else {
			c.logger.Info("Dispatcher closed")
		}
	}

	// Steps 3 and 4: the Lark client and the catalog hold no resources

	// Step 5: Close database (reverse of step 1)
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return fmt.Errorf("container closed with %d errors", len(errs))
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health() *HealthStatus {
	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}

	notReady := func(name string) {
		status.Components[name] = ComponentHealth{Healthy: false, Message: "not initialized"}
		status.Overall = false
	}

	// Check database
	if c.conn != nil {
		ctx := c.ctx
		if ctx == nil {
			ctx = context.Background()
		}
		if err := c.conn.PingContext(ctx); err != nil {
			status.Components["database"] = ComponentHealth{
				Healthy: false,
				Message: fmt.Sprintf("ping failed: %v", err),
			}
			status.Overall = false
		} else {
			status.Components["database"] = ComponentHealth{Healthy: true, Message: c.conn.Driver}
		}
	} else {
		notReady("database")
	}

	if c.dispatcher != nil {
		status.Components["dispatcher"] = ComponentHealth{Healthy: true}
	} else {
		notReady("dispatcher")
	}

	if c.engine != nil {
		status.Components["engine"] = ComponentHealth{Healthy: true}
	} else {
		notReady("engine")
	}

	// Lark is optional; a disabled messenger is healthy
	if c.lark != nil {
		status.Components["lark"] = ComponentHealth{Healthy: true, Message: c.lark.Client.GetAppID()}
	} else {
		status.Components["lark"] = ComponentHealth{Healthy: true, Message: "disabled"}
	}

	return status
}

// initDatabase initializes the database and all repositories using providers.
func (c *Container) initDatabase() error {
	dbBundle, err := ProvideDatabase(&c.config.Database, c.logger)
	if err != nil {
		return err
	}

	c.conn = dbBundle.Conn
	c.db = dbBundle.TransactionMgr

	repos, err := ProvideRepositories(c.db, c.logger)
	if err != nil {
		c.closeDatabase()
		return err
	}

	c.repositories = repos
	return nil
}

// initCatalog builds the catalog and applies the configured seed.
func (c *Container) initCatalog() error {
	cat, err := ProvideCatalog(c.ctx, &CatalogDeps{
		Repos:     c.repositories,
		TxManager: c.db,
		Config:    &c.config.Catalog,
		Logger:    c.logger,
	})
	if err != nil {
		return err
	}

	c.catalog = cat
	return nil
}

// initExternalClients initializes the optional Lark client.
func (c *Container) initExternalClients() error {
	larkBundle, err := ProvideLarkClients(&c.config.Lark, c.logger)
	if err != nil {
		return err
	}

	c.lark = larkBundle
	return nil
}

// initDispatcherAndEngine initializes the event dispatcher and approval engine.
func (c *Container) initDispatcherAndEngine() error {
	disp, err := ProvideDispatcher(c.logger)
	if err != nil {
		return err
	}
	c.dispatcher = disp

	engine, err := ProvideWorkflowEngine(&WorkflowDeps{
		Repos:      c.repositories,
		Catalog:    c.catalog,
		TxManager:  c.db,
		Dispatcher: c.dispatcher,
		Engine:     &c.config.Engine,
		Logger:     c.logger,
	})
	if err != nil {
		return err
	}
	c.engine = engine

	return nil
}

// initServices initializes all application services using providers.
func (c *Container) initServices() error {
	// A nil *Messenger inside the interface would not compare equal to nil
	var messenger port.MessageSender
	if c.lark != nil {
		messenger = c.lark.Messenger
	}

	services, err := ProvideServices(&ServiceDeps{
		Repos:      c.repositories,
		Engine:     c.engine,
		TxManager:  c.db,
		Dispatcher: c.dispatcher,
		Messenger:  messenger,
		Logger:     c.logger,
	})
	if err != nil {
		return err
	}

	c.services = services
	return nil
}

// closeDatabase releases the connection after a failed start
func (c *Container) closeDatabase() {
	if c.conn == nil {
		return
	}
	if err := c.conn.Close(); err != nil {
		c.logger.Error("Failed to close database", zap.Error(err))
	}
	c.conn = nil
	c.db = nil
}

// Getters for accessing container components

// DB returns the transaction manager.
func (c *Container) DB() port.TransactionManager {
	return c.db
}

// Repositories returns the repository bundle.
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// Catalog returns the workflow catalog.
func (c *Container) Catalog() *catalog.Catalog {
	return c.catalog
}

// Dispatcher returns the event dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// Engine returns the approval engine.
func (c *Container) Engine() workflow.ApprovalEngine {
	return c.engine
}

// Services returns the application services bundle.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Logger returns the logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container configuration.
func (c *Container) Config() *Config {
	return c.config
}
