package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/Riskwatch/internal/telemetry"
)

// Исходы обработки сообщения (метка outcome в MQMessages).
const (
	OutcomeAck        = "ack"
	OutcomeRequeue    = "requeue"
	OutcomeDeadLetter = "dead_letter"
	OutcomeMalformed  = "malformed"
)

// Handler — функция обработки сообщения.
// Ошибка или panic ведут к nack: первый раз с возвратом в очередь,
// при повторной доставке в DLQ.
type Handler func(ctx context.Context, msg *Delivery) error

// Delivery — доставленное сообщение.
type Delivery struct {
	// Message — распарсенный конверт.
	Message Message

	// Raw — сырое AMQP сообщение.
	Raw amqp.Delivery
}

// Redelivered — сообщение уже доставлялось и не было подтверждено.
func (d *Delivery) Redelivered() bool {
	return d.Raw.Redelivered
}

// Consumer потребляет сообщения из очереди, подтверждая их вручную.
type Consumer struct {
	conn        *Connection
	logger      *slog.Logger
	queue       string
	tag         string
	handler     Handler
	prefetch    int
	concurrency int

	// stop закрывается в Stop; Start отменяет свой контекст по нему.
	stop     chan struct{}
	stopOnce sync.Once
}

// ConsumerConfig — конфигурация consumer.
type ConsumerConfig struct {
	Queue   string
	Handler Handler

	// Tag — consumer tag; пусто — сгенерирует брокер.
	Tag string

	// Concurrency — сколько сообщений обрабатывается параллельно (default: 1).
	Concurrency int

	// Prefetch — сколько неподтверждённых сообщений держит брокер (default: Concurrency).
	Prefetch int
}

// NewConsumer создаёт новый Consumer.
func NewConsumer(conn *Connection, logger *slog.Logger, cfg ConsumerConfig) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	concurrency := max(cfg.Concurrency, 1)
	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = concurrency
	}

	return &Consumer{
		conn:        conn,
		logger:      logger.With("queue", cfg.Queue),
		queue:       cfg.Queue,
		tag:         cfg.Tag,
		handler:     cfg.Handler,
		prefetch:    prefetch,
		concurrency: concurrency,
		stop:        make(chan struct{}),
	}
}

// Start блокируется, пока ctx не отменён или не вызван Stop.
// Разрыв соединения не завершает Start: consumer ждёт переподключения.
// После Stop Start сразу возвращает context.Canceled.
func (c *Consumer) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	select {
	case <-c.stop:
		cancel()
	default:
		go func() {
			select {
			case <-c.stop:
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		deliveries, err := c.setupConsume()
		if err != nil {
			c.logger.Error("failed to setup consume", "error", err)
			if err := c.waitReconnect(ctx); err != nil {
				return err
			}
			continue
		}

		c.logger.Info("consumer started", "concurrency", c.concurrency)
		c.process(ctx, deliveries)

		if err := ctx.Err(); err != nil {
			return err
		}
		c.logger.Warn("deliveries channel closed, waiting for reconnect")
		if err := c.waitReconnect(ctx); err != nil {
			return err
		}
	}
}

func (c *Consumer) waitReconnect(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.conn.ReconnectNotify():
		c.logger.Info("reconnected, restarting consumer")
		return nil
	}
}

func (c *Consumer) setupConsume() (<-chan amqp.Delivery, error) {
	ch := c.conn.Channel()
	if ch == nil {
		return nil, ErrNoChannel
	}

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.Consume(
		c.queue, // queue
		c.tag,   // consumer tag
		false,   // auto-ack (ack вручную)
		false,   // exclusive
		false,   // no-local
		false,   // no-wait
		nil,     // args
	)
	if err != nil {
		return nil, fmt.Errorf("consume: %w", err)
	}
	return deliveries, nil
}

// process раздаёт сообщения concurrency обработчикам и ждёт их,
// пока канал доставки открыт и ctx не отменён.
func (c *Consumer) process(ctx context.Context, deliveries <-chan amqp.Delivery) {
	var wg sync.WaitGroup
	for range c.concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case raw, ok := <-deliveries:
					if !ok {
						return
					}
					c.handleDelivery(ctx, raw)
				}
			}
		}()
	}
	wg.Wait()
}

func (c *Consumer) handleDelivery(ctx context.Context, raw amqp.Delivery) {
	var msg Message
	if err := json.Unmarshal(raw.Body, &msg); err != nil {
		c.logger.Error("failed to unmarshal message", "error", err, "body", truncateBody(raw.Body))
		// некорректное сообщение не станет корректным при повторе
		raw.Nack(false, false)
		c.count(OutcomeMalformed)
		return
	}

	log := c.logger.With("message_id", msg.ID, "type", msg.Type)
	log.Debug("received message")

	if err := c.invoke(ctx, &Delivery{Message: msg, Raw: raw}); err != nil {
		log.Error("handler failed", "error", err, "redelivered", raw.Redelivered)
		if raw.Redelivered {
			log.Warn("message failed twice, dead-lettering")
			raw.Nack(false, false)
			c.count(OutcomeDeadLetter)
			return
		}
		raw.Nack(false, true)
		c.count(OutcomeRequeue)
		return
	}

	raw.Ack(false)
	c.count(OutcomeAck)
}

// invoke вызывает обработчик, превращая panic в ошибку.
func (c *Consumer) invoke(ctx context.Context, d *Delivery) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return c.handler(ctx, d)
}

func (c *Consumer) count(outcome string) {
	telemetry.MQMessages.WithLabelValues(c.queue, outcome).Inc()
}

// Stop останавливает consumer. Безопасен для повторного и конкурентного вызова.
func (c *Consumer) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func truncateBody(body []byte) string {
	const maxLen = 256
	if len(body) > maxLen {
		return string(body[:maxLen]) + "..."
	}
	return string(body)
}
