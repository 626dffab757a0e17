package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"backoffice/internal/mailer"
	"backoffice/internal/queue"
	"backoffice/internal/service"
	"backoffice/internal/workflow"

	"go.uber.org/zap"
)

// NotifierWorker consumes record events off the approval-events queue and
// emails the approver list whenever a record is left waiting for a verdict.
type NotifierWorker struct {
	broker     queue.Broker
	sender     mailer.Sender
	recipients []string
	logger     *zap.SugaredLogger
	ctx        context.Context
	cancel     context.CancelFunc
}

func NewNotifierWorker(broker queue.Broker, sender mailer.Sender, recipients []string, logger *zap.SugaredLogger) *NotifierWorker {
	ctx, cancel := context.WithCancel(context.Background())
	return &NotifierWorker{
		broker:     broker,
		sender:     sender,
		recipients: recipients,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (w *NotifierWorker) Start() error {
	w.logger.Info("starting approval notifier worker")
	return w.broker.Subscribe(w.ctx, queue.QueueApprovalEvents, w.handleMessage)
}

func (w *NotifierWorker) Stop() {
	w.logger.Info("stopping approval notifier worker")
	w.cancel()
}

func (w *NotifierWorker) handleMessage(ctx context.Context, message []byte) error {
	var event service.RecordEvent
	if err := json.Unmarshal(message, &event); err != nil {
		w.logger.Errorw("failed to unmarshal record event", "error", err)
		return fmt.Errorf("failed to unmarshal record event: %w", err)
	}

	if !needsApproverAttention(event) {
		return nil
	}
	if len(w.recipients) == 0 {
		w.logger.Debugw("no notification recipients configured, skipping", "record_id", event.RecordID)
		return nil
	}

	msg, err := mailer.RenderNotification(mailer.NotificationData{
		Event:    event.Event,
		Resource: event.Resource,
		Name:     event.Name,
		Status:   event.Status,
		Actor:    event.Actor,
		TenantID: event.TenantID,
	}, w.recipients)
	if err != nil {
		return err
	}

	if err := w.sender.Send(ctx, msg); err != nil {
		w.logger.Errorw("failed to deliver approval notification",
			"record_id", event.RecordID, "error", err)
		return err
	}

	w.logger.Infow("approval notification sent",
		"record_id", event.RecordID, "resource", event.Resource, "status", event.Status)
	return nil
}

// needsApproverAttention reports whether the event left the record waiting on
// a second actor.
func needsApproverAttention(event service.RecordEvent) bool {
	switch workflow.Status(event.Status) {
	case workflow.StatusNewRecord, workflow.StatusForApproval, workflow.StatusForDeletion:
		return event.Event == service.EventRecordCreated || event.Event == service.EventRecordUpdated
	default:
		return false
	}
}
