package mq

import (
	"context"
	"fmt"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

type (
	Exchange   string
	Queue      string
	RoutingKey string
)

const (
	ExchangeJobs Exchange = "riskwatch.jobs"
	ExchangeDLQ  Exchange = "riskwatch.dlq"
)

const (
	QueueJobsPending   Queue = "jobs.pending"
	QueueJobsCompleted Queue = "jobs.completed"
	QueueDLQJobs       Queue = "dlq.jobs"
)

const (
	RoutingKeyPending   RoutingKey = "pending"
	RoutingKeyCompleted RoutingKey = "completed"
	RoutingKeyDLQJobs   RoutingKey = "jobs"
)

// completedTTL ограничивает жизнь событий завершения, если их никто не читает.
const completedTTL = 24 * time.Hour

// queueDecl — очередь вместе с её привязкой.
type queueDecl struct {
	name     Queue
	exchange Exchange
	key      RoutingKey
	args     amqp.Table
	consumer string // для Describe
}

var (
	exchanges = []Exchange{ExchangeJobs, ExchangeDLQ}

	queues = []queueDecl{
		{
			name:     QueueJobsPending,
			exchange: ExchangeJobs,
			key:      RoutingKeyPending,
			args: amqp.Table{
				"x-dead-letter-exchange":    string(ExchangeDLQ),
				"x-dead-letter-routing-key": string(RoutingKeyDLQJobs),
			},
			consumer: "riskwatch-worker",
		},
		{
			name:     QueueJobsCompleted,
			exchange: ExchangeJobs,
			key:      RoutingKeyCompleted,
			args:     amqp.Table{"x-message-ttl": completedTTL.Milliseconds()},
			consumer: "external subscribers",
		},
		{
			name:     QueueDLQJobs,
			exchange: ExchangeDLQ,
			key:      RoutingKeyDLQJobs,
			consumer: "manual",
		},
	}
)

// SetupTopology объявляет обменники, очереди и привязки jobs.
// Объявление идемпотентно и повторяется после каждого переподключения.
func SetupTopology(ctx context.Context, conn *Connection) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return conn.OnReconnect(declareTopology)
}

func declareTopology(ch *amqp.Channel) error {
	for _, ex := range exchanges {
		// durable, не auto-delete, не internal
		if err := ch.ExchangeDeclare(string(ex), "direct", true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex, err)
		}
	}

	for _, q := range queues {
		if _, err := ch.QueueDeclare(string(q.name), true, false, false, false, q.args); err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
		if err := ch.QueueBind(string(q.name), string(q.key), string(q.exchange), false, nil); err != nil {
			return fmt.Errorf("bind %s to %s: %w", q.name, q.exchange, err)
		}
	}
	return nil
}

// Describe печатает топологию в читаемом виде (для логов и отладки).
func Describe() string {
	var b strings.Builder
	for _, ex := range exchanges {
		fmt.Fprintf(&b, "%s (direct)\n", ex)
		for _, q := range queues {
			if q.exchange != ex {
				continue
			}
			fmt.Fprintf(&b, "  %s <- %s, consumer: %s", q.name, q.key, q.consumer)
			if dlx, ok := q.args["x-dead-letter-exchange"]; ok {
				fmt.Fprintf(&b, ", dead letters: %s", dlx)
			}
			b.WriteByte('\n')
		}
	}
	return b.String()
}
