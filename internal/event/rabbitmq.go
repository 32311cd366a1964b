package event

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// RabbitPublisher publishes persistent JSON messages to a durable queue on
// the default exchange. The connection is re-dialled lazily after a failure.
type RabbitPublisher struct {
	url   string
	queue string
	log   *zap.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewRabbitPublisher(url, queue string, log *zap.Logger) (*RabbitPublisher, error) {
	p := &RabbitPublisher{
		url:   url,
		queue: queue,
		log:   log.With(zap.String("publisher", "rabbitmq"), zap.String("queue", queue)),
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

// connect must be called with mu held.
func (p *RabbitPublisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("rabbitmq channel open: %w", err)
	}

	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("rabbitmq queue declare: %w", err)
	}

	p.conn, p.ch = conn, ch
	return nil
}

func (p *RabbitPublisher) Publish(ctx context.Context, ev Event) error {
	body, err := ev.Encode()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil || p.ch.IsClosed() {
		p.closeLocked()
		if err := p.connect(); err != nil {
			p.log.Error("Failed to reconnect to broker", zap.Error(err))
			return err
		}
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID.String(),
		Type:         string(ev.Kind),
		Timestamp:    ev.OccurredAt,
		Body:         body,
	}

	if err := p.ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		p.log.Error("Failed to publish event",
			zap.Error(err),
			zap.String("kind", string(ev.Kind)),
			zap.String("booking_id", ev.BookingID.String()),
		)
		return fmt.Errorf("rabbitmq publish: %w", err)
	}

	return nil
}

func (p *RabbitPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLocked()
	return nil
}

func (p *RabbitPublisher) closeLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// RabbitConsumer reads the events queue and hands each message to a Handler.
// Messages that fail are rejected without requeue.
type RabbitConsumer struct {
	url      string
	queue    string
	prefetch int
	log      *zap.Logger
}

func NewRabbitConsumer(url, queue string, log *zap.Logger) *RabbitConsumer {
	return &RabbitConsumer{
		url:      url,
		queue:    queue,
		prefetch: 50,
		log:      log.With(zap.String("consumer", "rabbitmq"), zap.String("queue", queue)),
	}
}

// Run blocks until ctx is cancelled, reconnecting with capped backoff.
func (c *RabbitConsumer) Run(ctx context.Context, handle Handler) error {
	backoff := time.Second
	for {
		err := c.consume(ctx, handle, func() { backoff = time.Second })
		if ctx.Err() != nil {
			return nil
		}

		c.log.Warn("Consumer loop ended, reconnecting", zap.Error(err), zap.Duration("backoff", backoff))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (c *RabbitConsumer) consume(ctx context.Context, handle Handler, connected func()) error {
	conn, err := amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		c.log.Warn("Set QoS failed", zap.Error(err))
	}

	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	connected()
	c.log.Info("Consuming booking events")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			c.deliver(ctx, d, handle)
		}
	}
}

func (c *RabbitConsumer) deliver(ctx context.Context, d amqp.Delivery, handle Handler) {
	ev, err := Decode(d.Body)
	if err == nil {
		err = handle(ctx, ev)
	}
	if err != nil {
		c.log.Error("Failed to handle event", zap.Error(err), zap.String("message_id", d.MessageId))
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
}
