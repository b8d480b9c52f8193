package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/ops-approval/internal/application/port"
	"github.com/garyjia/ops-approval/internal/domain/entity"
	"github.com/garyjia/ops-approval/internal/domain/event"
	domainwf "github.com/garyjia/ops-approval/internal/domain/workflow"
)

// NodeStore reads workflow nodes. Decide uses it inside its transaction,
// bypassing any catalog cache.
type NodeStore interface {
	GetByID(ctx context.Context, id int64) (*entity.WorkflowDefinition, error)
	ListNodes(ctx context.Context, workflowID int64) ([]*entity.WorkflowNode, error)
	GetNode(ctx context.Context, id int64) (*entity.WorkflowNode, error)
	NextNode(ctx context.Context, workflowID int64, afterOrder int) (*entity.WorkflowNode, error)
}

// engineImpl is the concrete implementation of ApprovalEngine
type engineImpl struct {
	selector  Selector
	catalog   NodeCatalog
	nodes     NodeStore
	resolver  ApproverResolver
	history   port.HistoryRepository
	txManager port.TransactionManager

	publisher Publisher
	logger    Logger
	now       func() time.Time
}

// EngineOption configures the approval engine
type EngineOption func(*engineImpl)

// WithDispatcher sets the publisher for emitting events after commit
func WithDispatcher(p Publisher) EngineOption {
	return func(e *engineImpl) {
		e.publisher = p
	}
}

// WithLogger sets the engine logger
func WithLogger(logger Logger) EngineOption {
	return func(e *engineImpl) {
		e.logger = logger
	}
}

// WithClock replaces the time source for submitted_at, completed_at and history timestamps
func WithClock(now func() time.Time) EngineOption {
	return func(e *engineImpl) {
		e.now = now
	}
}

// NewEngine creates a new approval engine
func NewEngine(
	selector Selector,
	catalog NodeCatalog,
	nodes NodeStore,
	resolver ApproverResolver,
	history port.HistoryRepository,
	txManager port.TransactionManager,
	opts ...EngineOption,
) ApprovalEngine {
	e := &engineImpl{
		selector:  selector,
		catalog:   catalog,
		nodes:     nodes,
		resolver:  resolver,
		history:   history,
		txManager: txManager,
		logger:    nopLogger{},
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Submit implements ApprovalEngine. The record is read without a lock, so two
// concurrent submissions of one draft can both pass the status check.
func (e *engineImpl) Submit(ctx context.Context, records port.BusinessRecordRepository, recordID int64) (*SubmitResult, error) {
	record, err := records.GetRecord(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to load record %d: %w", recordID, err)
	}
	if record == nil {
		return nil, fmt.Errorf("%w: record %d", domainwf.ErrNotFound, recordID)
	}
	if _, err := transition(ctx, record, domainwf.TriggerSubmit); err != nil {
		return nil, err
	}

	def, err := e.selector.Select(ctx, record.BusinessType, record)
	if err != nil {
		return nil, err
	}
	nodes, err := e.catalog.GetNodes(ctx, def.ID)
	if err != nil {
		return nil, err
	}
	first := nodes[0]

	// Resolution only reads, so it runs first and a failure leaves the draft untouched
	approvers, err := e.resolver.Resolve(ctx, first, record.ResolutionContext())
	if err != nil {
		return nil, err
	}

	submittedAt := e.now().UTC()
	err = e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := records.MarkSubmitted(txCtx, record.ID, def.ID, first.ID, submittedAt); err != nil {
			return fmt.Errorf("failed to mark record %d submitted: %w", record.ID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Record submitted",
		"business_type", record.BusinessType.String(),
		"record_id", record.ID,
		"workflow_id", def.ID,
		"node_id", first.ID,
		"approver_count", len(approvers),
	)

	e.publish(ctx, event.NewEvent(event.TypeRecordSubmitted, record.BusinessType, record.ID, map[string]interface{}{
		event.PayloadWorkflowID: def.ID,
		event.PayloadNodeID:     first.ID,
		event.PayloadNodeName:   first.Name,
		event.PayloadApprovers:  approvers,
		event.PayloadSubmitter:  record.SubmitterID,
	}))

	return &SubmitResult{
		WorkflowID: def.ID,
		NodeID:     first.ID,
		NodeName:   first.Name,
		Approvers:  approvers,
	}, nil
}

// Decide implements ApprovalEngine. The record row stays locked from the status
// check to the final write, so of two racing decisions on one node only the
// first applies and the second sees the moved pointer or a terminal status.
func (e *engineImpl) Decide(ctx context.Context, records port.BusinessRecordRepository, recordID int64, req DecideRequest) (*DecideResult, error) {
	if !req.Action.IsValid() {
		return nil, fmt.Errorf("%w: %q", domainwf.ErrInvalidAction, req.Action)
	}

	var (
		result *DecideResult
		evt    *event.Event
	)

	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		record, err := records.LockRecord(txCtx, recordID)
		if err != nil {
			return fmt.Errorf("failed to lock record %d: %w", recordID, err)
		}
		if record == nil {
			return fmt.Errorf("%w: record %d", domainwf.ErrNotFound, recordID)
		}
		if record.Status != entity.RecordStatusPending || record.CurrentNodeID == nil {
			return fmt.Errorf("%w: record %d is %s", domainwf.ErrState, record.ID, record.Status)
		}
		if req.ExpectedNodeID != nil && *req.ExpectedNodeID != *record.CurrentNodeID {
			return fmt.Errorf("%w: record %d has moved from node %d to node %d",
				domainwf.ErrState, record.ID, *req.ExpectedNodeID, *record.CurrentNodeID)
		}

		node, err := e.nodes.GetNode(txCtx, *record.CurrentNodeID)
		if err != nil {
			return fmt.Errorf("failed to load node %d: %w", *record.CurrentNodeID, err)
		}
		if node == nil {
			return fmt.Errorf("%w: current node %d of record %d no longer exists",
				domainwf.ErrState, *record.CurrentNodeID, record.ID)
		}

		now := e.now().UTC()
		entry := &entity.ApprovalHistoryEntry{
			BusinessType: record.BusinessType,
			RecordID:     record.ID,
			WorkflowID:   node.WorkflowID,
			NodeID:       node.ID,
			NodeOrder:    node.Order,
			ActorID:      req.ActorID,
			Action:       req.Action,
			Opinion:      req.Opinion,
			CreatedAt:    now,
		}
		if err := e.history.Append(txCtx, entry); err != nil {
			return err
		}

		if req.Action == entity.DecisionReject {
			result, evt, err = e.complete(txCtx, records, record, domainwf.TriggerReject, req.ActorID, now)
			return err
		}

		next, err := e.nodes.NextNode(txCtx, node.WorkflowID, node.Order)
		if err != nil {
			return fmt.Errorf("failed to load node after order %d: %w", node.Order, err)
		}
		if next == nil {
			result, evt, err = e.complete(txCtx, records, record, domainwf.TriggerApprove, req.ActorID, now)
			return err
		}

		if _, err := transition(txCtx, record, domainwf.TriggerAdvance); err != nil {
			return err
		}
		if err := records.MoveToNode(txCtx, record.ID, next.ID); err != nil {
			return fmt.Errorf("failed to move record %d to node %d: %w", record.ID, next.ID, err)
		}
		approvers, err := e.resolver.Resolve(txCtx, next, record.ResolutionContext())
		if err != nil {
			return err
		}

		nextID := next.ID
		result = &DecideResult{
			Status:        entity.RecordStatusPending,
			NextNodeID:    &nextID,
			NextApprovers: approvers,
		}
		evt = event.NewEvent(event.TypeRecordAdvanced, record.BusinessType, record.ID, map[string]interface{}{
			event.PayloadWorkflowID: node.WorkflowID,
			event.PayloadNodeID:     next.ID,
			event.PayloadNodeName:   next.Name,
			event.PayloadApprovers:  approvers,
			event.PayloadActorID:    req.ActorID,
			event.PayloadSubmitter:  record.SubmitterID,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Decision applied",
		"business_type", evt.BusinessType.String(),
		"record_id", recordID,
		"actor_id", req.ActorID,
		"action", string(req.Action),
		"status", string(result.Status),
	)
	e.publish(ctx, evt)

	return result, nil
}

// complete finishes the record with the status trigger leads to
func (e *engineImpl) complete(
	ctx context.Context,
	records port.BusinessRecordRepository,
	record *entity.BusinessRecord,
	trigger domainwf.Trigger,
	actorID int64,
	at time.Time,
) (*DecideResult, *event.Event, error) {
	status, err := transition(ctx, record, trigger)
	if err != nil {
		return nil, nil, err
	}
	if err := records.Complete(ctx, record.ID, status, at); err != nil {
		return nil, nil, fmt.Errorf("failed to complete record %d: %w", record.ID, err)
	}

	evt := event.NewEvent(event.TypeRecordCompleted, record.BusinessType, record.ID, map[string]interface{}{
		event.PayloadStatus:    string(status),
		event.PayloadActorID:   actorID,
		event.PayloadSubmitter: record.SubmitterID,
	})
	if record.WorkflowID != nil {
		evt = evt.WithPayload(event.PayloadWorkflowID, *record.WorkflowID)
	}

	return &DecideResult{
		Completed:     true,
		Status:        status,
		NextApprovers: []int64{},
	}, evt, nil
}

// Progress implements ApprovalEngine
func (e *engineImpl) Progress(ctx context.Context, records port.BusinessRecordRepository, recordID int64) (*Progress, error) {
	record, err := records.GetRecord(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to load record %d: %w", recordID, err)
	}
	if record == nil {
		return nil, fmt.Errorf("%w: record %d", domainwf.ErrNotFound, recordID)
	}

	progress := &Progress{
		Record:         record,
		Nodes:          []*entity.WorkflowNode{},
		AllowedActions: domainwf.AllowedActions(domainwf.State(record.Status)),
	}

	if record.WorkflowID != nil {
		def, err := e.nodes.GetByID(ctx, *record.WorkflowID)
		if err != nil {
			return nil, fmt.Errorf("failed to load workflow %d: %w", *record.WorkflowID, err)
		}
		if def != nil {
			progress.WorkflowName = def.Name
		}

		nodes, err := e.nodes.ListNodes(ctx, *record.WorkflowID)
		if err != nil {
			return nil, fmt.Errorf("failed to load nodes of workflow %d: %w", *record.WorkflowID, err)
		}
		if nodes != nil {
			progress.Nodes = nodes
		}
	}

	history, err := e.history.ListByRecord(ctx, record.BusinessType, record.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history of record %d: %w", record.ID, err)
	}
	progress.History = history
	if progress.History == nil {
		progress.History = []*entity.ApprovalHistoryEntry{}
	}

	return progress, nil
}

func (e *engineImpl) publish(ctx context.Context, evt *event.Event) {
	if e.publisher != nil && evt != nil {
		e.publisher.DispatchAsync(ctx, evt)
	}
}

// transition checks trigger against the record lifecycle and returns the resulting status
func transition(ctx context.Context, record *entity.BusinessRecord, trigger domainwf.Trigger) (entity.RecordStatus, error) {
	to, err := domainwf.Transition(ctx, domainwf.State(record.Status), trigger)
	if err != nil {
		return "", fmt.Errorf("%w: cannot %s record %d in status %s: %v",
			domainwf.ErrState, trigger, record.ID, record.Status, err)
	}
	return to.RecordStatus(), nil
}

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}
