package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/ops-approval/internal/application/port"
	"github.com/garyjia/ops-approval/internal/domain/entity"
	"github.com/garyjia/ops-approval/internal/infrastructure/persistence/sqldb"
	"go.uber.org/zap"
)

// AssetRequestRepository implements port.AssetRequestRepository
type AssetRequestRepository struct {
	*recordStore
}

// NewAssetRequestRepository creates a new asset request repository
func NewAssetRequestRepository(db *sqldb.DB, logger *zap.Logger) *AssetRequestRepository {
	return &AssetRequestRepository{
		recordStore: &recordStore{
			db: db,
			table: recordTable{
				name:         "asset_requests",
				businessType: entity.BusinessTypeAssetRequest,
			},
			logger: logger,
		},
	}
}

// Create inserts a draft request and sets its ID
func (r *AssetRequestRepository) Create(ctx context.Context, req *entity.AssetRequest) error {
	if req.Status == "" {
		req.Status = entity.RecordStatusDraft
	}
	req.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO asset_requests (
			asset_id, user_id, department_id, type, description, status, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`

	err := r.db.QueryRow(ctx, query,
		req.AssetID,
		req.UserID,
		req.DepartmentID,
		req.Type,
		req.Description,
		string(req.Status),
		req.CreatedAt,
	).Scan(&req.ID)
	if err != nil {
		r.logger.Error("Failed to create asset request",
			zap.Int64("asset_id", req.AssetID), zap.Int64("user_id", req.UserID), zap.Error(err))
		return fmt.Errorf("failed to create asset request: %w", err)
	}
	return nil
}

// GetByID retrieves a request by ID
func (r *AssetRequestRepository) GetByID(ctx context.Context, id int64) (*entity.AssetRequest, error) {
	query := `
		SELECT id, asset_id, user_id, department_id, type, description, status,
			workflow_id, current_node_id, submitted_at, completed_at, created_at
		FROM asset_requests
		WHERE id = ?
	`

	var (
		req         entity.AssetRequest
		status      string
		workflowID  sql.NullInt64
		nodeID      sql.NullInt64
		submittedAt sql.NullTime
		completedAt sql.NullTime
	)
	err := r.db.QueryRow(ctx, query, id).Scan(
		&req.ID,
		&req.AssetID,
		&req.UserID,
		&req.DepartmentID,
		&req.Type,
		&req.Description,
		&status,
		&workflowID,
		&nodeID,
		&submittedAt,
		&completedAt,
		&req.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get asset request", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get asset request: %w", err)
	}

	req.Status = entity.RecordStatus(status)
	req.WorkflowID = int64Ptr(workflowID)
	req.CurrentNodeID = int64Ptr(nodeID)
	req.SubmittedAt = timePtr(submittedAt)
	req.CompletedAt = timePtr(completedAt)
	return &req, nil
}

// DeviceRepository implements port.DeviceRepository
type DeviceRepository struct {
	db     *sqldb.DB
	logger *zap.Logger
}

// NewDeviceRepository creates a new device repository
func NewDeviceRepository(db *sqldb.DB, logger *zap.Logger) *DeviceRepository {
	return &DeviceRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a device and sets its ID
func (r *DeviceRepository) Create(ctx context.Context, device *entity.Device) error {
	if device.Status == "" {
		device.Status = entity.DeviceStatusIdle
	}

	query := `
		INSERT INTO devices (asset_no, name, device_status, holder_id)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`

	err := r.db.QueryRow(ctx, query,
		device.AssetNo,
		device.Name,
		device.Status,
		nullableInt64(device.HolderID),
	).Scan(&device.ID)
	if err != nil {
		r.logger.Error("Failed to create device", zap.String("asset_no", device.AssetNo), zap.Error(err))
		return fmt.Errorf("failed to create device: %w", err)
	}
	return nil
}

// GetByID retrieves a device by ID
func (r *DeviceRepository) GetByID(ctx context.Context, id int64) (*entity.Device, error) {
	query := `SELECT id, asset_no, name, device_status, holder_id FROM devices WHERE id = ?`

	var (
		device entity.Device
		holder sql.NullInt64
	)
	err := r.db.QueryRow(ctx, query, id).Scan(&device.ID, &device.AssetNo, &device.Name, &device.Status, &holder)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get device", zap.Int64("device_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get device: %w", err)
	}
	device.HolderID = int64Ptr(holder)
	return &device, nil
}

// UpdateStatus sets the operational status of a device
func (r *DeviceRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	result, err := r.db.Exec(ctx, `UPDATE devices SET device_status = ? WHERE id = ?`, status, id)
	if err != nil {
		r.logger.Error("Failed to update device status",
			zap.Int64("device_id", id), zap.String("status", status), zap.Error(err))
		return fmt.Errorf("failed to update device status: %w", err)
	}
	return expectOneRow(result, "device", id)
}

// Verify interface compliance
var (
	_ port.AssetRequestRepository = (*AssetRequestRepository)(nil)
	_ port.DeviceRepository       = (*DeviceRepository)(nil)
)
