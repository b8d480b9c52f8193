package service

import (
	"context"
	"fmt"

	"github.com/garyjia/ops-approval/internal/application/port"
	"github.com/garyjia/ops-approval/internal/domain/event"
)

// NotificationService tells approvers and submitters about approval progress.
// Delivery is best effort: failures are logged and never reach the engine.
type NotificationService interface {
	// HandleAwaiting notifies the approvers of a submitted or advanced record
	HandleAwaiting(ctx context.Context, evt *event.Event) error

	// HandleFinished notifies the submitter of a completed or cancelled record
	HandleFinished(ctx context.Context, evt *event.Event) error
}

type notificationServiceImpl struct {
	org    port.OrgDirectory
	sender port.MessageSender
	logger Logger
}

// NewNotificationService creates a new NotificationService. With a nil sender
// messages are only logged.
func NewNotificationService(org port.OrgDirectory, sender port.MessageSender, logger Logger) NotificationService {
	return &notificationServiceImpl{
		org:    org,
		sender: sender,
		logger: logger,
	}
}

// HandleAwaiting implements NotificationService
func (s *notificationServiceImpl) HandleAwaiting(ctx context.Context, evt *event.Event) error {
	approvers := evt.GetPayloadIDs(event.PayloadApprovers)
	if len(approvers) == 0 {
		s.logger.Info("Node has no approvers to notify",
			"business_type", evt.BusinessType.String(),
			"record_id", evt.RecordID,
			"node_id", evt.GetPayloadInt(event.PayloadNodeID),
		)
		return nil
	}

	message := fmt.Sprintf("[%s #%d] is waiting for your approval at step %q",
		evt.BusinessType, evt.RecordID, evt.GetPayloadString(event.PayloadNodeName))
	s.deliver(ctx, evt, approvers, message)
	return nil
}

// HandleFinished implements NotificationService
func (s *notificationServiceImpl) HandleFinished(ctx context.Context, evt *event.Event) error {
	submitter := evt.GetPayloadInt(event.PayloadSubmitter)
	if submitter == 0 {
		return nil
	}

	message := fmt.Sprintf("[%s #%d] approval finished: %s",
		evt.BusinessType, evt.RecordID, evt.GetPayloadString(event.PayloadStatus))
	s.deliver(ctx, evt, []int64{submitter}, message)
	return nil
}

func (s *notificationServiceImpl) deliver(ctx context.Context, evt *event.Event, userIDs []int64, message string) {
	if s.sender == nil {
		s.logger.Info("Notification (messaging disabled)",
			"event_type", evt.Type.String(),
			"record_id", evt.RecordID,
			"user_ids", userIDs,
			"message", message,
		)
		return
	}

	contacts, err := s.org.ContactsOf(ctx, userIDs)
	if err != nil {
		s.logger.Error("Failed to load contacts", "record_id", evt.RecordID, "user_ids", userIDs, "error", err)
		return
	}

	sent := 0
	for _, c := range contacts {
		if err := s.sender.SendMessage(ctx, c.OpenID, message); err != nil {
			s.logger.Error("Failed to send notification",
				"record_id", evt.RecordID,
				"user_id", c.UserID,
				"error", err,
			)
			continue
		}
		sent++
	}

	s.logger.Info("Notifications sent",
		"event_type", evt.Type.String(),
		"record_id", evt.RecordID,
		"recipients", len(userIDs),
		"sent", sent,
	)
}
