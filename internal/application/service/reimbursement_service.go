package service

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/ops-approval/internal/application/port"
	"github.com/garyjia/ops-approval/internal/application/workflow"
	"github.com/garyjia/ops-approval/internal/domain/entity"
	domainwf "github.com/garyjia/ops-approval/internal/domain/workflow"
	"github.com/garyjia/ops-approval/pkg/utils"
)

// DraftReimbursement is the input for a new expense claim
type DraftReimbursement struct {
	UserID       int64
	DepartmentID int64
	Title        string
	Type         string
	Amount       float64
	Remark       string
}

// ReimbursementService manages expense claims outside the approval flow
type ReimbursementService interface {
	CreateDraft(ctx context.Context, draft DraftReimbursement) (*entity.Reimbursement, error)
	Get(ctx context.Context, id int64) (*entity.Reimbursement, error)
	Cancel(ctx context.Context, id int64) error
}

type reimbursementServiceImpl struct {
	repo   port.ReimbursementRepository
	cancel *canceller
	logger Logger
}

// NewReimbursementService creates a new ReimbursementService. publisher may be nil.
func NewReimbursementService(
	repo port.ReimbursementRepository,
	txManager port.TransactionManager,
	publisher workflow.Publisher,
	logger Logger,
) ReimbursementService {
	return &reimbursementServiceImpl{
		repo: repo,
		cancel: &canceller{
			records:   repo,
			txManager: txManager,
			publisher: publisher,
			now:       time.Now,
		},
		logger: logger,
	}
}

// CreateDraft stores a claim in draft status
func (s *reimbursementServiceImpl) CreateDraft(ctx context.Context, draft DraftReimbursement) (*entity.Reimbursement, error) {
	claim := &entity.Reimbursement{
		UserID:       draft.UserID,
		DepartmentID: draft.DepartmentID,
		Title:        utils.SanitizeString(draft.Title),
		Type:         utils.SanitizeString(draft.Type),
		TotalAmount:  draft.Amount,
		Remark:       utils.SanitizeString(draft.Remark),
	}

	switch {
	case claim.UserID <= 0 || claim.DepartmentID <= 0:
		return nil, fmt.Errorf("%w: user and department are required", ErrInvalidInput)
	case claim.Title == "":
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if err := utils.ValidateAmount(claim.TotalAmount); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if err := s.repo.Create(ctx, claim); err != nil {
		s.logger.Error("Failed to create reimbursement", "user_id", claim.UserID, "error", err)
		return nil, err
	}

	s.logger.Info("Reimbursement drafted", "id", claim.ID, "user_id", claim.UserID, "amount", claim.TotalAmount)
	return claim, nil
}

// Get returns a claim or ErrNotFound
func (s *reimbursementServiceImpl) Get(ctx context.Context, id int64) (*entity.Reimbursement, error) {
	claim, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if claim == nil {
		return nil, fmt.Errorf("%w: reimbursement %d", domainwf.ErrNotFound, id)
	}
	return claim, nil
}

// Cancel withdraws a draft or pending claim
func (s *reimbursementServiceImpl) Cancel(ctx context.Context, id int64) error {
	if err := s.cancel.cancel(ctx, id); err != nil {
		s.logger.Error("Failed to cancel reimbursement", "id", id, "error", err)
		return err
	}
	s.logger.Info("Reimbursement cancelled", "id", id)
	return nil
}
