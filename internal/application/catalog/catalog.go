// Package catalog provides read access to workflow definitions and their nodes.
package catalog

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/garyjia/ops-approval/internal/application/port"
	"github.com/garyjia/ops-approval/internal/domain/entity"
	"github.com/garyjia/ops-approval/internal/domain/workflow"
	gocache "github.com/patrickmn/go-cache"
)

// Catalog reads workflow definitions and nodes. Results may be served from a
// TTL cache; returned values are shared and must not be mutated by callers.
type Catalog struct {
	repo  port.WorkflowRepository
	cache *gocache.Cache
}

// Option configures a Catalog
type Option func(*Catalog)

// WithCache enables a TTL cache in front of the repository. A non-positive ttl disables it.
func WithCache(ttl time.Duration) Option {
	return func(c *Catalog) {
		if ttl > 0 {
			c.cache = gocache.New(ttl, 2*ttl)
		}
	}
}

// New creates a catalog over the workflow repository
func New(repo port.WorkflowRepository, opts ...Option) *Catalog {
	c := &Catalog{repo: repo}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListCandidates returns active, non-default definitions ordered by id ascending
func (c *Catalog) ListCandidates(ctx context.Context, businessType entity.BusinessType) ([]*entity.WorkflowDefinition, error) {
	key := "candidates:" + string(businessType)
	if cached, ok := c.get(key); ok {
		return cached.([]*entity.WorkflowDefinition), nil
	}

	defs, err := c.repo.ListCandidates(ctx, businessType)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidate workflows: %w", err)
	}
	c.set(key, defs)
	return defs, nil
}

// GetDefault returns the active default definition of a business type
func (c *Catalog) GetDefault(ctx context.Context, businessType entity.BusinessType) (*entity.WorkflowDefinition, error) {
	key := "default:" + string(businessType)
	if cached, ok := c.get(key); ok {
		return cached.(*entity.WorkflowDefinition), nil
	}

	def, err := c.repo.GetDefault(ctx, businessType)
	if err != nil {
		return nil, fmt.Errorf("failed to get default workflow: %w", err)
	}
	if def == nil {
		return nil, fmt.Errorf("%w: no active default workflow for %s", workflow.ErrConfiguration, businessType)
	}
	c.set(key, def)
	return def, nil
}

// GetWorkflow returns a definition by id regardless of its status
func (c *Catalog) GetWorkflow(ctx context.Context, id int64) (*entity.WorkflowDefinition, error) {
	def, err := c.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}
	if def == nil {
		return nil, fmt.Errorf("%w: workflow %d", workflow.ErrNotFound, id)
	}
	return def, nil
}

// GetNodes returns the nodes of a workflow in ascending order
func (c *Catalog) GetNodes(ctx context.Context, workflowID int64) ([]*entity.WorkflowNode, error) {
	key := "nodes:" + strconv.FormatInt(workflowID, 10)
	if cached, ok := c.get(key); ok {
		return cached.([]*entity.WorkflowNode), nil
	}

	nodes, err := c.repo.ListNodes(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow nodes: %w", err)
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: workflow %d has no nodes", workflow.ErrConfiguration, workflowID)
	}
	c.set(key, nodes)
	return nodes, nil
}

// SetStatus activates or deactivates a definition. Records already bound to it are unaffected.
func (c *Catalog) SetStatus(ctx context.Context, id int64, status entity.WorkflowStatus) error {
	if status != entity.WorkflowStatusActive && status != entity.WorkflowStatusInactive {
		return fmt.Errorf("%w: unknown workflow status %q", workflow.ErrConfiguration, status)
	}
	if err := c.repo.UpdateStatus(ctx, id, status); err != nil {
		return err
	}
	c.Invalidate()
	return nil
}

// RemoveNode deletes a node. Records pointing at it fail their next decision with ErrState.
func (c *Catalog) RemoveNode(ctx context.Context, nodeID int64) error {
	if err := c.repo.DeleteNode(ctx, nodeID); err != nil {
		return err
	}
	c.Invalidate()
	return nil
}

// Invalidate drops every cached entry
func (c *Catalog) Invalidate() {
	if c.cache != nil {
		c.cache.Flush()
	}
}

func (c *Catalog) get(key string) (interface{}, bool) {
	if c.cache == nil {
		return nil, false
	}
	return c.cache.Get(key)
}

func (c *Catalog) set(key string, v interface{}) {
	if c.cache != nil {
		c.cache.SetDefault(key, v)
	}
}
