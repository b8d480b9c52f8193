package service

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/ops-approval/internal/application/port"
	"github.com/garyjia/ops-approval/internal/application/workflow"
	"github.com/garyjia/ops-approval/internal/domain/entity"
	"github.com/garyjia/ops-approval/internal/domain/event"
	domainwf "github.com/garyjia/ops-approval/internal/domain/workflow"
	"github.com/garyjia/ops-approval/pkg/utils"
)

// DraftAssetRequest is the input for a new asset change request
type DraftAssetRequest struct {
	AssetID      int64
	UserID       int64
	DepartmentID int64
	Type         string
	Description  string
}

// AssetRequestService manages asset requests and applies their approved outcomes to devices
type AssetRequestService interface {
	CreateDraft(ctx context.Context, draft DraftAssetRequest) (*entity.AssetRequest, error)
	Get(ctx context.Context, id int64) (*entity.AssetRequest, error)
	Cancel(ctx context.Context, id int64) error

	// ApplyOutcome updates the device once the request has been approved
	ApplyOutcome(ctx context.Context, id int64) error

	// HandleCompleted is the approval.completed subscriber
	HandleCompleted(ctx context.Context, evt *event.Event) error
}

type assetRequestServiceImpl struct {
	repo    port.AssetRequestRepository
	devices port.DeviceRepository
	cancel  *canceller
	logger  Logger
}

// NewAssetRequestService creates a new AssetRequestService. publisher may be nil.
func NewAssetRequestService(
	repo port.AssetRequestRepository,
	devices port.DeviceRepository,
	txManager port.TransactionManager,
	publisher workflow.Publisher,
	logger Logger,
) AssetRequestService {
	return &assetRequestServiceImpl{
		repo:    repo,
		devices: devices,
		cancel: &canceller{
			records:   repo,
			txManager: txManager,
			publisher: publisher,
			now:       time.Now,
		},
		logger: logger,
	}
}

var assetRequestTypes = map[string]bool{
	entity.AssetRequestRepair:   true,
	entity.AssetRequestReturn:   true,
	entity.AssetRequestTransfer: true,
}

// CreateDraft stores a request in draft status. The device must exist.
func (s *assetRequestServiceImpl) CreateDraft(ctx context.Context, draft DraftAssetRequest) (*entity.AssetRequest, error) {
	req := &entity.AssetRequest{
		AssetID:      draft.AssetID,
		UserID:       draft.UserID,
		DepartmentID: draft.DepartmentID,
		Type:         draft.Type,
		Description:  utils.SanitizeString(draft.Description),
	}

	if req.UserID <= 0 || req.DepartmentID <= 0 {
		return nil, fmt.Errorf("%w: user and department are required", ErrInvalidInput)
	}
	if !assetRequestTypes[req.Type] {
		return nil, fmt.Errorf("%w: unknown request type %q", ErrInvalidInput, req.Type)
	}

	device, err := s.devices.GetByID(ctx, req.AssetID)
	if err != nil {
		return nil, err
	}
	if device == nil {
		return nil, fmt.Errorf("%w: device %d", domainwf.ErrNotFound, req.AssetID)
	}

	if err := s.repo.Create(ctx, req); err != nil {
		s.logger.Error("Failed to create asset request", "asset_id", req.AssetID, "error", err)
		return nil, err
	}

	s.logger.Info("Asset request drafted", "id", req.ID, "asset_id", req.AssetID, "type", req.Type)
	return req, nil
}

// Get returns a request or ErrNotFound
func (s *assetRequestServiceImpl) Get(ctx context.Context, id int64) (*entity.AssetRequest, error) {
	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("%w: asset request %d", domainwf.ErrNotFound, id)
	}
	return req, nil
}

// Cancel withdraws a draft or pending request
func (s *assetRequestServiceImpl) Cancel(ctx context.Context, id int64) error {
	if err := s.cancel.cancel(ctx, id); err != nil {
		s.logger.Error("Failed to cancel asset request", "id", id, "error", err)
		return err
	}
	s.logger.Info("Asset request cancelled", "id", id)
	return nil
}

// ApplyOutcome puts a device back in use after its repair request is approved.
// Other request types and other statuses leave the device alone.
func (s *assetRequestServiceImpl) ApplyOutcome(ctx context.Context, id int64) error {
	req, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if req.Status != entity.RecordStatusApproved || req.Type != entity.AssetRequestRepair {
		return nil
	}

	if err := s.devices.UpdateStatus(ctx, req.AssetID, entity.DeviceStatusInUse); err != nil {
		s.logger.Error("Failed to update device after repair approval", "id", id, "asset_id", req.AssetID, "error", err)
		return err
	}

	s.logger.Info("Device back in use", "id", id, "asset_id", req.AssetID)
	return nil
}

// HandleCompleted implements AssetRequestService
func (s *assetRequestServiceImpl) HandleCompleted(ctx context.Context, evt *event.Event) error {
	if evt.BusinessType != entity.BusinessTypeAssetRequest {
		return nil
	}
	if evt.GetPayloadString(event.PayloadStatus) != string(entity.RecordStatusApproved) {
		return nil
	}
	return s.ApplyOutcome(ctx, evt.RecordID)
}
