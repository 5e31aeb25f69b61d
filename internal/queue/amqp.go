// Package queue publishes reservation events to RabbitMQ.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"bookvalley/internal/events"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

var ErrClosed = errors.New("publisher closed")

// AMQPPublisher sends events to a durable queue on the default exchange.
// The connection is opened on first use and re-dialed after a failure.
type AMQPPublisher struct {
	url    string
	queue  string
	logger *zerolog.Logger

	mu     sync.Mutex
	conn   *amqp.Connection
	ch     *amqp.Channel
	closed bool
}

func NewAMQPPublisher(url, queue string, logger *zerolog.Logger) (*AMQPPublisher, error) {
	if url == "" {
		return nil, errors.New("amqp url is required")
	}
	if queue == "" {
		return nil, errors.New("amqp queue is required")
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &AMQPPublisher{url: url, queue: queue, logger: logger}, nil
}

// Publish sends event as a persistent JSON message routed to the queue.
func (p *AMQPPublisher) Publish(ctx context.Context, event events.Event) error {
	msg, err := newPublishing(event)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	if err := p.connect(); err != nil {
		return err
	}

	if err := p.ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		p.logger.Warn().Err(err).Str("event_id", event.ID).Msg("rabbitmq publish failed")
		p.reset()
		return fmt.Errorf("publish %s: %w", event.ID, err)
	}
	return nil
}

func (p *AMQPPublisher) connect() error {
	if p.ch != nil && !p.ch.IsClosed() {
		return nil
	}
	p.reset()

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("rabbitmq queue declare %s: %w", p.queue, err)
	}

	p.conn, p.ch = conn, ch
	p.logger.Info().Str("queue", p.queue).Msg("rabbitmq connected")
	return nil
}

func (p *AMQPPublisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.reset()
	return nil
}

func newPublishing(event events.Event) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("encode event %s: %w", event.ID, err)
	}
	ts := event.CreatedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Type:         event.Type,
		Timestamp:    ts.UTC(),
		Body:         body,
	}, nil
}
