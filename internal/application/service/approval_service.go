package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/garyjia/ops-approval/internal/application/port"
	"github.com/garyjia/ops-approval/internal/application/workflow"
	"github.com/garyjia/ops-approval/internal/domain/entity"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ErrUnknownBusinessType is returned for a business type with no registered record accessor
var ErrUnknownBusinessType = errors.New("unknown business type")

// ApprovalService is the entry point for approval operations on any registered business type
type ApprovalService interface {
	// Register binds a business type to the accessor of its records
	Register(businessType entity.BusinessType, records port.BusinessRecordRepository)

	// BusinessTypes lists the registered business types in name order
	BusinessTypes() []entity.BusinessType

	Submit(ctx context.Context, businessType string, recordID int64) (*workflow.SubmitResult, error)
	Decide(ctx context.Context, businessType string, recordID int64, req workflow.DecideRequest) (*workflow.DecideResult, error)
	Progress(ctx context.Context, businessType string, recordID int64) (*workflow.Progress, error)
}

type approvalServiceImpl struct {
	engine workflow.ApprovalEngine
	logger Logger

	mu       sync.RWMutex
	registry map[entity.BusinessType]port.BusinessRecordRepository
}

// NewApprovalService creates a new ApprovalService with an empty registry
func NewApprovalService(engine workflow.ApprovalEngine, logger Logger) ApprovalService {
	return &approvalServiceImpl{
		engine:   engine,
		logger:   logger,
		registry: make(map[entity.BusinessType]port.BusinessRecordRepository),
	}
}

// Register implements ApprovalService. A second registration replaces the first.
func (s *approvalServiceImpl) Register(businessType entity.BusinessType, records port.BusinessRecordRepository) {
	s.mu.Lock()
	s.registry[businessType] = records
	s.mu.Unlock()

	s.logger.Info("Business type registered", "business_type", businessType.String())
}

// BusinessTypes implements ApprovalService
func (s *approvalServiceImpl) BusinessTypes() []entity.BusinessType {
	s.mu.RLock()
	defer s.mu.RUnlock()

	types := make([]entity.BusinessType, 0, len(s.registry))
	for bt := range s.registry {
		types = append(types, bt)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Submit implements ApprovalService
func (s *approvalServiceImpl) Submit(ctx context.Context, businessType string, recordID int64) (*workflow.SubmitResult, error) {
	records, err := s.lookup(businessType)
	if err != nil {
		return nil, err
	}

	result, err := s.engine.Submit(ctx, records, recordID)
	if err != nil {
		s.logger.Error("Failed to submit record", "business_type", businessType, "record_id", recordID, "error", err)
		return nil, err
	}
	return result, nil
}

// Decide implements ApprovalService
func (s *approvalServiceImpl) Decide(ctx context.Context, businessType string, recordID int64, req workflow.DecideRequest) (*workflow.DecideResult, error) {
	records, err := s.lookup(businessType)
	if err != nil {
		return nil, err
	}

	result, err := s.engine.Decide(ctx, records, recordID, req)
	if err != nil {
		s.logger.Error("Failed to apply decision",
			"business_type", businessType,
			"record_id", recordID,
			"actor_id", req.ActorID,
			"action", string(req.Action),
			"error", err,
		)
		return nil, err
	}
	return result, nil
}

// Progress implements ApprovalService
func (s *approvalServiceImpl) Progress(ctx context.Context, businessType string, recordID int64) (*workflow.Progress, error) {
	records, err := s.lookup(businessType)
	if err != nil {
		return nil, err
	}
	return s.engine.Progress(ctx, records, recordID)
}

func (s *approvalServiceImpl) lookup(businessType string) (port.BusinessRecordRepository, error) {
	s.mu.RLock()
	records, ok := s.registry[entity.BusinessType(businessType)]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBusinessType, businessType)
	}
	return records, nil
}
