package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/ops-approval/internal/application/port"
	"github.com/garyjia/ops-approval/internal/application/workflow"
	"github.com/garyjia/ops-approval/internal/domain/event"
	domainwf "github.com/garyjia/ops-approval/internal/domain/workflow"
)

// ErrInvalidInput is returned when a draft fails validation
var ErrInvalidInput = errors.New("invalid input")

// canceller withdraws records on behalf of a business module. Cancellation is
// not an engine action, but it takes the same row lock as a decision so a
// cancel cannot interleave with an approval.
type canceller struct {
	records   port.BusinessRecordRepository
	txManager port.TransactionManager
	publisher workflow.Publisher
	now       func() time.Time
}

func (c *canceller) cancel(ctx context.Context, id int64) error {
	var evt *event.Event

	err := c.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		record, err := c.records.LockRecord(txCtx, id)
		if err != nil {
			return fmt.Errorf("failed to lock record %d: %w", id, err)
		}
		if record == nil {
			return fmt.Errorf("%w: record %d", domainwf.ErrNotFound, id)
		}

		to, err := domainwf.Transition(txCtx, domainwf.State(record.Status), domainwf.TriggerCancel)
		if err != nil {
			return fmt.Errorf("%w: cannot cancel record %d in status %s", domainwf.ErrState, id, record.Status)
		}
		if err := c.records.Complete(txCtx, id, to.RecordStatus(), c.now().UTC()); err != nil {
			return fmt.Errorf("failed to cancel record %d: %w", id, err)
		}

		evt = event.NewEvent(event.TypeRecordCancelled, record.BusinessType, id, map[string]interface{}{
			event.PayloadStatus:    string(to),
			event.PayloadSubmitter: record.SubmitterID,
		})
		return nil
	})
	if err != nil {
		return err
	}

	if c.publisher != nil {
		c.publisher.DispatchAsync(ctx, evt)
	}
	return nil
}
