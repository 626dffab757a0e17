package queue

import "context"

// Broker is the messaging contract between the record service (publisher)
// and the notification workers (subscribers).
type Broker interface {
	Publish(ctx context.Context, queueName string, message []byte) error
	Subscribe(ctx context.Context, queueName string, handler MessageHandler) error
	Close() error
}

// MessageHandler processes one delivery; a non-nil error triggers the retry
// and dead-letter policy.
type MessageHandler func(ctx context.Context, message []byte) error

const (
	QueueApprovalEvents    = "approval-events"
	QueueApprovalEventsDLQ = "approval-events-dlq"
)
