package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/garyjia/ops-approval/internal/application/port"
	"github.com/garyjia/ops-approval/internal/application/workflow"
	"github.com/garyjia/ops-approval/internal/domain/entity"
	"github.com/garyjia/ops-approval/internal/domain/event"
)

// Mock engine
type mockEngine struct {
	submitFunc   func(ctx context.Context, records port.BusinessRecordRepository, id int64) (*workflow.SubmitResult, error)
	decideFunc   func(ctx context.Context, records port.BusinessRecordRepository, id int64, req workflow.DecideRequest) (*workflow.DecideResult, error)
	progressFunc func(ctx context.Context, records port.BusinessRecordRepository, id int64) (*workflow.Progress, error)
}

func (m *mockEngine) Submit(ctx context.Context, records port.BusinessRecordRepository, id int64) (*workflow.SubmitResult, error) {
	if m.submitFunc != nil {
		return m.submitFunc(ctx, records, id)
	}
	return &workflow.SubmitResult{}, nil
}

func (m *mockEngine) Decide(ctx context.Context, records port.BusinessRecordRepository, id int64, req workflow.DecideRequest) (*workflow.DecideResult, error) {
	if m.decideFunc != nil {
		return m.decideFunc(ctx, records, id, req)
	}
	return &workflow.DecideResult{}, nil
}

func (m *mockEngine) Progress(ctx context.Context, records port.BusinessRecordRepository, id int64) (*workflow.Progress, error) {
	if m.progressFunc != nil {
		return m.progressFunc(ctx, records, id)
	}
	return &workflow.Progress{}, nil
}

// mockRecordStore keeps generic records in memory
type mockRecordStore struct {
	mu          sync.Mutex
	records     map[int64]*entity.BusinessRecord
	completeErr error
}

func newMockRecordStore() *mockRecordStore {
	return &mockRecordStore{records: make(map[int64]*entity.BusinessRecord)}
}

func (m *mockRecordStore) put(r *entity.BusinessRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[r.ID] = r
}

func (m *mockRecordStore) GetRecord(ctx context.Context, id int64) (*entity.BusinessRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return nil, nil
	}
	clone := *r
	return &clone, nil
}

func (m *mockRecordStore) LockRecord(ctx context.Context, id int64) (*entity.BusinessRecord, error) {
	return m.GetRecord(ctx, id)
}

func (m *mockRecordStore) MarkSubmitted(ctx context.Context, id, workflowID, nodeID int64, at time.Time) error {
	return nil
}

func (m *mockRecordStore) MoveToNode(ctx context.Context, id, nodeID int64) error {
	return nil
}

func (m *mockRecordStore) Complete(ctx context.Context, id int64, status entity.RecordStatus, at time.Time) error {
	if m.completeErr != nil {
		return m.completeErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.records[id]
	r.Status = status
	r.CurrentNodeID = nil
	r.CompletedAt = &at
	return nil
}

// Mock reimbursement repository
type mockReimbursementRepo struct {
	*mockRecordStore
	createFunc func(ctx context.Context, claim *entity.Reimbursement) error
	claims     map[int64]*entity.Reimbursement
}

func newMockReimbursementRepo() *mockReimbursementRepo {
	return &mockReimbursementRepo{
		mockRecordStore: newMockRecordStore(),
		claims:          make(map[int64]*entity.Reimbursement),
	}
}

func (m *mockReimbursementRepo) Create(ctx context.Context, claim *entity.Reimbursement) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, claim)
	}
	claim.ID = int64(len(m.claims) + 1)
	claim.Status = entity.RecordStatusDraft
	m.claims[claim.ID] = claim
	m.put(claim.AsRecord())
	return nil
}

func (m *mockReimbursementRepo) GetByID(ctx context.Context, id int64) (*entity.Reimbursement, error) {
	return m.claims[id], nil
}

// Mock asset request repository
type mockAssetRequestRepo struct {
	*mockRecordStore
	requests map[int64]*entity.AssetRequest
}

func newMockAssetRequestRepo() *mockAssetRequestRepo {
	return &mockAssetRequestRepo{
		mockRecordStore: newMockRecordStore(),
		requests:        make(map[int64]*entity.AssetRequest),
	}
}

func (m *mockAssetRequestRepo) Create(ctx context.Context, req *entity.AssetRequest) error {
	req.ID = int64(len(m.requests) + 1)
	req.Status = entity.RecordStatusDraft
	m.requests[req.ID] = req
	m.put(req.AsRecord())
	return nil
}

func (m *mockAssetRequestRepo) GetByID(ctx context.Context, id int64) (*entity.AssetRequest, error) {
	return m.requests[id], nil
}

// Mock device repository
type mockDeviceRepo struct {
	devices         map[int64]*entity.Device
	updateStatusErr error
	updates         []string
}

func (m *mockDeviceRepo) Create(ctx context.Context, device *entity.Device) error {
	device.ID = int64(len(m.devices) + 1)
	m.devices[device.ID] = device
	return nil
}

func (m *mockDeviceRepo) GetByID(ctx context.Context, id int64) (*entity.Device, error) {
	return m.devices[id], nil
}

func (m *mockDeviceRepo) UpdateStatus(ctx context.Context, id int64, status string) error {
	if m.updateStatusErr != nil {
		return m.updateStatusErr
	}
	m.devices[id].Status = status
	m.updates = append(m.updates, status)
	return nil
}

// Mock org directory
type mockOrg struct {
	contactsFunc func(ctx context.Context, userIDs []int64) ([]entity.Contact, error)
}

func (m *mockOrg) RolesOf(ctx context.Context, userID int64) ([]entity.UserRole, error) {
	return nil, nil
}

func (m *mockOrg) ActiveUsersWithRole(ctx context.Context, roleID int64) ([]int64, error) {
	return nil, nil
}

func (m *mockOrg) ActiveDepartmentManagers(ctx context.Context, departmentID int64) ([]int64, error) {
	return nil, nil
}

func (m *mockOrg) IsDepartmentManager(ctx context.Context, userID int64) (bool, error) {
	return false, nil
}

func (m *mockOrg) ContactsOf(ctx context.Context, userIDs []int64) ([]entity.Contact, error) {
	if m.contactsFunc != nil {
		return m.contactsFunc(ctx, userIDs)
	}
	contacts := make([]entity.Contact, len(userIDs))
	for i, id := range userIDs {
		contacts[i] = entity.Contact{UserID: id, OpenID: fmt.Sprintf("ou_%d", id)}
	}
	return contacts, nil
}

// Mock message sender
type mockSender struct {
	sendFunc func(ctx context.Context, openID, content string) error
	sent     map[string][]string
}

func (m *mockSender) SendMessage(ctx context.Context, openID string, content string) error {
	if m.sendFunc != nil {
		if err := m.sendFunc(ctx, openID, content); err != nil {
			return err
		}
	}
	if m.sent == nil {
		m.sent = make(map[string][]string)
	}
	m.sent[openID] = append(m.sent[openID], content)
	return nil
}

type mockTxManager struct{}

func (mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type mockPublisher struct {
	events []*event.Event
}

func (m *mockPublisher) DispatchAsync(ctx context.Context, evt *event.Event) {
	m.events = append(m.events, evt)
}

type mockLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infos = append(m.infos, msg)
}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, msg)
}
