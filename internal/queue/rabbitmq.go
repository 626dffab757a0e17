package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const maxDeliveryRetries = 3

// RabbitMQBroker is the amqp-backed Broker. Queues are durable and messages
// persistent; failed deliveries are retried with exponential backoff and then
// parked on the queue's dead-letter sibling.
type RabbitMQBroker struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *zap.SugaredLogger
	mu      sync.RWMutex
}

// Config holds broker connection settings.
type Config struct {
	URL           string
	PrefetchCount int
}

// NewRabbitMQBroker connects, applies QoS and declares the approval-event
// queues up front.
func NewRabbitMQBroker(cfg Config, logger *zap.SugaredLogger) (*RabbitMQBroker, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := channel.Qos(cfg.PrefetchCount, 0, false); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	broker := &RabbitMQBroker{conn: conn, channel: channel, logger: logger}

	for _, queueName := range []string{QueueApprovalEvents, QueueApprovalEventsDLQ} {
		if err := broker.declareQueue(queueName); err != nil {
			broker.Close()
			return nil, err
		}
	}

	return broker, nil
}

func (b *RabbitMQBroker) declareQueue(queueName string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, err := b.channel.QueueDeclare(queueName, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", queueName, err)
	}
	return nil
}

func (b *RabbitMQBroker) Publish(ctx context.Context, queueName string, message []byte) error {
	return b.publish(ctx, queueName, message, nil)
}

func (b *RabbitMQBroker) publish(ctx context.Context, queueName string, message []byte, headers amqp.Table) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	err := b.channel.PublishWithContext(
		ctx,
		"",        // default exchange
		queueName, // routing key
		false,     // mandatory
		false,     // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         message,
			Headers:      headers,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

func (b *RabbitMQBroker) Subscribe(ctx context.Context, queueName string, handler MessageHandler) error {
	b.mu.RLock()
	msgs, err := b.channel.Consume(queueName, "", false, false, false, false, nil)
	b.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				b.handleDelivery(ctx, queueName, msg, handler)
			}
		}
	}()

	return nil
}

func (b *RabbitMQBroker) handleDelivery(ctx context.Context, queueName string, msg amqp.Delivery, handler MessageHandler) {
	err := handler(ctx, msg.Body)
	if err == nil {
		_ = msg.Ack(false)
		return
	}

	retryCount := 0
	if msg.Headers != nil {
		if count, ok := msg.Headers["x-retry-count"].(int32); ok {
			retryCount = int(count)
		}
	}

	if retryCount < maxDeliveryRetries {
		b.requeue(ctx, queueName, msg, retryCount)
	} else {
		b.deadLetter(ctx, queueName, msg, retryCount, err)
	}
	_ = msg.Ack(false)
}

// requeue republishes the delivery with an incremented retry counter after an
// exponential backoff (2^n seconds).
func (b *RabbitMQBroker) requeue(ctx context.Context, queueName string, msg amqp.Delivery, retryCount int) {
	time.Sleep(time.Duration(1<<retryCount) * time.Second)

	err := b.publish(ctx, queueName, msg.Body, amqp.Table{
		"x-retry-count": int32(retryCount + 1),
	})
	if err != nil {
		b.logger.Errorw("failed to requeue message", "queue", queueName, "error", err)
	}
}

func (b *RabbitMQBroker) deadLetter(ctx context.Context, queueName string, msg amqp.Delivery, retryCount int, cause error) {
	b.logger.Warnw("message exhausted retries, dead-lettering", "queue", queueName, "error", cause)

	err := b.publish(ctx, queueName+"-dlq", msg.Body, amqp.Table{
		"x-original-queue": queueName,
		"x-retry-count":    int32(retryCount),
		"x-error":          cause.Error(),
	})
	if err != nil {
		b.logger.Errorw("failed to dead-letter message", "queue", queueName, "error", err)
	}
}

func (b *RabbitMQBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.channel != nil {
		b.channel.Close()
	}
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}
