package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bookvalley/internal/events"
	"bookvalley/internal/metrics"
	"bookvalley/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Publisher delivers one event to an external broker.
type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type eventTask struct {
	Event   events.Event `json:"event"`
	Attempt int          `json:"attempt"`
	Error   string       `json:"error,omitempty"`
}

// EventWorker forwards bus events to a Publisher. Failed deliveries are
// retried with backoff; exhausted ones are parked in a Redis dead-letter list.
type EventWorker struct {
	publisher     Publisher
	redis         *redis.Client
	retryPolicy   RetryPolicy
	queue         chan eventTask
	deadLetterKey string
	logger        *zerolog.Logger
}

func NewEventWorker(publisher Publisher, redisClient *redis.Client, retry RetryPolicy, logger *zerolog.Logger) *EventWorker {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 5
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = 1 * time.Minute
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &EventWorker{
		publisher:     publisher,
		redis:         redisClient,
		retryPolicy:   retry,
		queue:         make(chan eventTask, models.WorkerQueueSize),
		deadLetterKey: "bookvalley:events:deadletter",
		logger:        logger,
	}
}

// Subscribe attaches the worker to the reservation events of bus.
func (w *EventWorker) Subscribe(bus *events.EventBus) {
	bus.Subscribe(w.Handle, events.ReservationTypes...)
}

// Handle queues event for delivery without blocking the publisher. When the
// buffer is full the event goes straight to the dead-letter list.
func (w *EventWorker) Handle(event *events.Event) error {
	task := eventTask{Event: *event}
	select {
	case w.queue <- task:
		return nil
	default:
		task.Error = "queue full"
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		w.pushDeadLetter(ctx, task)
		return errors.New("event queue full")
	}
}

// Start delivers queued events until ctx is done. Events still buffered at
// shutdown are parked in the dead-letter list.
func (w *EventWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("event worker started")
	defer w.logger.Info().Msg("event worker stopped")

	for {
		select {
		case <-ctx.Done():
			w.drain()
			return
		case task := <-w.queue:
			w.process(ctx, task)
		}
	}
}

func (w *EventWorker) process(ctx context.Context, task eventTask) {
	err := w.publisher.Publish(ctx, task.Event)
	if err == nil {
		metrics.IncEvent("ok")
		return
	}
	w.retryOrFail(ctx, task, err)
}

func (w *EventWorker) retryOrFail(ctx context.Context, task eventTask, cause error) {
	task.Attempt++
	task.Error = cause.Error()

	if task.Attempt >= w.retryPolicy.MaxRetries {
		metrics.IncEvent("dead")
		w.logger.Error().Err(cause).Str("event_id", task.Event.ID).Int("attempts", task.Attempt).Msg("event delivery failed")
		w.pushDeadLetter(ctx, task)
		return
	}

	metrics.IncEvent("retry")
	delay := w.retryPolicy.NextDelay(task.Attempt)
	w.logger.Warn().Err(cause).Str("event_id", task.Event.ID).Dur("delay", delay).Msg("event delivery retry")

	time.AfterFunc(delay, func() {
		select {
		case w.queue <- task:
		default:
			task.Error = "queue full"
			w.pushDeadLetter(context.Background(), task)
		}
	})
}

func (w *EventWorker) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case task := <-w.queue:
			task.Error = "shutdown"
			w.pushDeadLetter(ctx, task)
		default:
			return
		}
	}
}

func (w *EventWorker) pushDeadLetter(ctx context.Context, task eventTask) {
	if w.redis == nil {
		w.logger.Error().Str("event_id", task.Event.ID).Str("reason", task.Error).Msg("event dropped, no dead-letter store")
		return
	}
	data, err := json.Marshal(task)
	if err != nil {
		w.logger.Error().Err(err).Str("event_id", task.Event.ID).Msg("encode deadletter")
		return
	}
	if err := w.redis.LPush(ctx, w.deadLetterKey, data).Err(); err != nil {
		w.logger.Error().Err(err).Str("event_id", task.Event.ID).Msg("deadletter push")
	}
}

// DeadLetters returns the parked events, newest first.
func (w *EventWorker) DeadLetters(ctx context.Context) ([]events.Event, error) {
	if w.redis == nil {
		return nil, nil
	}
	raw, err := w.redis.LRange(ctx, w.deadLetterKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read deadletter: %w", err)
	}
	out := make([]events.Event, 0, len(raw))
	for _, r := range raw {
		var task eventTask
		if err := json.Unmarshal([]byte(r), &task); err != nil {
			return nil, fmt.Errorf("decode deadletter: %w", err)
		}
		out = append(out, task.Event)
	}
	return out, nil
}
