package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/garyjia/ops-approval/internal/application/port"
	"github.com/garyjia/ops-approval/internal/application/workflow"
	"github.com/garyjia/ops-approval/internal/domain/entity"
	domainwf "github.com/garyjia/ops-approval/internal/domain/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApprovalService_RoutesByBusinessType(t *testing.T) {
	claims := newMockReimbursementRepo()
	requests := newMockAssetRequestRepo()

	var seen []port.BusinessRecordRepository
	engine := &mockEngine{
		submitFunc: func(ctx context.Context, records port.BusinessRecordRepository, id int64) (*workflow.SubmitResult, error) {
			seen = append(seen, records)
			return &workflow.SubmitResult{NodeID: id}, nil
		},
		decideFunc: func(ctx context.Context, records port.BusinessRecordRepository, id int64, req workflow.DecideRequest) (*workflow.DecideResult, error) {
			seen = append(seen, records)
			return &workflow.DecideResult{Status: entity.RecordStatusPending}, nil
		},
		progressFunc: func(ctx context.Context, records port.BusinessRecordRepository, id int64) (*workflow.Progress, error) {
			seen = append(seen, records)
			return &workflow.Progress{}, nil
		},
	}

	svc := NewApprovalService(engine, &mockLogger{})
	svc.Register(entity.BusinessTypeReimbursement, claims)
	svc.Register(entity.BusinessTypeAssetRequest, requests)
	ctx := context.Background()

	result, err := svc.Submit(ctx, "reimbursement", 4)
	require.NoError(t, err)
	assert.Equal(t, int64(4), result.NodeID)

	_, err = svc.Decide(ctx, "asset_request", 1, workflow.DecideRequest{ActorID: 2, Action: entity.DecisionApprove})
	require.NoError(t, err)

	_, err = svc.Progress(ctx, "asset_request", 1)
	require.NoError(t, err)

	require.Len(t, seen, 3)
	assert.Same(t, claims, seen[0])
	assert.Same(t, requests, seen[1])
	assert.Same(t, requests, seen[2])

	assert.Equal(t, []entity.BusinessType{entity.BusinessTypeAssetRequest, entity.BusinessTypeReimbursement}, svc.BusinessTypes())
}

func TestApprovalService_UnknownBusinessType(t *testing.T) {
	called := false
	engine := &mockEngine{
		submitFunc: func(ctx context.Context, records port.BusinessRecordRepository, id int64) (*workflow.SubmitResult, error) {
			called = true
			return nil, nil
		},
	}
	svc := NewApprovalService(engine, &mockLogger{})
	svc.Register(entity.BusinessTypeReimbursement, newMockReimbursementRepo())
	ctx := context.Background()

	_, err := svc.Submit(ctx, "payroll", 1)
	assert.ErrorIs(t, err, ErrUnknownBusinessType)

	_, err = svc.Decide(ctx, "Reimbursement", 1, workflow.DecideRequest{})
	assert.ErrorIs(t, err, ErrUnknownBusinessType)

	_, err = svc.Progress(ctx, "", 1)
	assert.ErrorIs(t, err, ErrUnknownBusinessType)

	assert.False(t, called)
}

func TestApprovalService_PropagatesEngineErrors(t *testing.T) {
	logger := &mockLogger{}
	engine := &mockEngine{
		decideFunc: func(ctx context.Context, records port.BusinessRecordRepository, id int64, req workflow.DecideRequest) (*workflow.DecideResult, error) {
			return nil, fmt.Errorf("%w: record %d is approved", domainwf.ErrState, id)
		},
	}
	svc := NewApprovalService(engine, logger)
	svc.Register(entity.BusinessTypeReimbursement, newMockReimbursementRepo())

	_, err := svc.Decide(context.Background(), "reimbursement", 9, workflow.DecideRequest{ActorID: 1, Action: entity.DecisionApprove})
	assert.True(t, errors.Is(err, domainwf.ErrState))
	assert.Equal(t, []string{"Failed to apply decision"}, logger.errors)
}
