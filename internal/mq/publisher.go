package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/Riskwatch/internal/telemetry"
)

// ErrNacked — брокер не принял сообщение (publisher confirm = nack).
var ErrNacked = errors.New("message nacked by broker")

// Publisher отправляет события scoring jobs и ждёт подтверждения брокера.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{conn: conn, logger: logger}
}

// Publish возвращается после confirm брокера или отмены ctx.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, key RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	publishing := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.ID,
		AppId:        p.conn.Name(),
		Timestamp:    msg.Timestamp,
		Type:         string(msg.Type),
		Body:         body,
	}

	err = p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		confirm, err := ch.PublishWithDeferredConfirmWithContext(ctx, string(exchange), string(key), false, false, publishing)
		if err != nil {
			return err
		}
		if confirm == nil {
			// канал не в режиме confirm
			return nil
		}
		acked, err := confirm.WaitContext(ctx)
		if err != nil {
			return err
		}
		if !acked {
			return ErrNacked
		}
		return nil
	})
	if err != nil {
		telemetry.MQMessages.WithLabelValues(string(key), "publish_failed").Inc()
		return fmt.Errorf("publish %s to %s: %w", msg.Type, exchange, err)
	}

	telemetry.MQMessages.WithLabelValues(string(key), "published").Inc()
	p.logger.Debug("published message", "exchange", exchange, "routing_key", key, "message_id", msg.ID, "type", msg.Type)
	return nil
}

// PublishJobPending будит воркеры: job ждёт обработки.
func (p *Publisher) PublishJobPending(ctx context.Context, jobID uuid.UUID) error {
	msg, err := NewMessage(MessageTypeJobPending, JobPendingPayload{JobID: jobID})
	if err != nil {
		return err
	}
	return p.Publish(ctx, ExchangeJobs, RoutingKeyPending, msg)
}

// PublishJobCompleted сообщает итог job подписчикам jobs.completed.
func (p *Publisher) PublishJobCompleted(ctx context.Context, payload JobCompletedPayload) error {
	msg, err := NewMessage(MessageTypeJobCompleted, payload)
	if err != nil {
		return err
	}
	return p.Publish(ctx, ExchangeJobs, RoutingKeyCompleted, msg)
}
