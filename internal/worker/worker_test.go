package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"bookvalley/internal/config"
	"bookvalley/internal/events"
	"bookvalley/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	mu       sync.Mutex
	failures int
	calls    int
	got      []events.Event
}

func (f *fakePublisher) Publish(_ context.Context, event events.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return errors.New("broker unavailable")
	}
	f.got = append(f.got, event)
	return nil
}

func (f *fakePublisher) snapshot() (int, []events.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls, append([]events.Event(nil), f.got...)
}

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func fastRetry(n int) RetryPolicy {
	return RetryPolicy{MaxRetries: n, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, BackoffFactor: 2}
}

func TestEventWorker_DeliversBusEvents(t *testing.T) {
	pub := &fakePublisher{}
	w := NewEventWorker(pub, nil, fastRetry(3), nil)
	bus := events.NewEventBus()
	w.Subscribe(bus)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	require.NoError(t, bus.PublishJSON(models.EventReservationMade, events.ReservationEventPayload{CustomerID: "alice"}))
	require.NoError(t, bus.PublishJSON(models.EventReservationCancelled, events.ReservationEventPayload{CustomerID: "alice"}))
	require.NoError(t, bus.PublishJSON("unrelated", nil))

	assert.Eventually(t, func() bool {
		_, got := pub.snapshot()
		return len(got) == 2
	}, time.Second, 5*time.Millisecond)

	_, got := pub.snapshot()
	assert.Equal(t, models.EventReservationMade, got[0].Type)
	assert.Equal(t, models.EventReservationCancelled, got[1].Type)
}

func TestEventWorker_RetriesThenSucceeds(t *testing.T) {
	pub := &fakePublisher{failures: 2}
	w := NewEventWorker(pub, newRedis(t), fastRetry(5), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	require.NoError(t, w.Handle(&events.Event{ID: "e-1", Type: models.EventReservationMade}))

	assert.Eventually(t, func() bool {
		calls, got := pub.snapshot()
		return calls == 3 && len(got) == 1
	}, time.Second, 5*time.Millisecond)

	dead, err := w.DeadLetters(ctx)
	require.NoError(t, err)
	assert.Empty(t, dead)
}

func TestEventWorker_DeadLetterAfterRetries(t *testing.T) {
	pub := &fakePublisher{failures: 100}
	w := NewEventWorker(pub, newRedis(t), fastRetry(3), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	require.NoError(t, w.Handle(&events.Event{ID: "e-1", Type: models.EventReservationMade}))

	assert.Eventually(t, func() bool {
		dead, err := w.DeadLetters(ctx)
		return err == nil && len(dead) == 1
	}, time.Second, 5*time.Millisecond)

	calls, _ := pub.snapshot()
	assert.Equal(t, 3, calls)

	dead, err := w.DeadLetters(ctx)
	require.NoError(t, err)
	assert.Equal(t, "e-1", dead[0].ID)
}

func TestEventWorker_ShutdownParksQueued(t *testing.T) {
	pub := &fakePublisher{}
	w := NewEventWorker(pub, newRedis(t), fastRetry(3), nil)

	require.NoError(t, w.Handle(&events.Event{ID: "e-1", Type: models.EventReservationMade}))
	require.NoError(t, w.Handle(&events.Event{ID: "e-2", Type: models.EventReservationMade}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.Start(ctx)

	dead, err := w.DeadLetters(context.Background())
	require.NoError(t, err)
	assert.Len(t, dead, 2)
	calls, _ := pub.snapshot()
	assert.Zero(t, calls)
}

func TestEventWorker_QueueFull(t *testing.T) {
	w := NewEventWorker(&fakePublisher{}, newRedis(t), fastRetry(3), nil)
	w.queue = make(chan eventTask, 1)

	require.NoError(t, w.Handle(&events.Event{ID: "e-1"}))
	assert.Error(t, w.Handle(&events.Event{ID: "e-2"}))

	dead, err := w.DeadLetters(context.Background())
	require.NoError(t, err)
	require.Len(t, dead, 1)
	assert.Equal(t, "e-2", dead[0].ID)
}

func TestEventWorker_NoRedis(t *testing.T) {
	w := NewEventWorker(&fakePublisher{}, nil, RetryPolicy{}, nil)
	dead, err := w.DeadLetters(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, dead)
	assert.Equal(t, 5, w.retryPolicy.MaxRetries)
}

func TestRetryPolicyNextDelay(t *testing.T) {
	policy := RetryPolicy{InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, BackoffFactor: 2}

	assert.Equal(t, 100*time.Millisecond, policy.NextDelay(0))
	assert.Equal(t, 100*time.Millisecond, policy.NextDelay(1))
	assert.Equal(t, 200*time.Millisecond, policy.NextDelay(2))
	assert.Equal(t, 400*time.Millisecond, policy.NextDelay(3))
	assert.Equal(t, time.Second, policy.NextDelay(10))
	assert.Equal(t, time.Second, RetryPolicy{}.NextDelay(1))
}

func TestPolicyFromConfig(t *testing.T) {
	p := PolicyFromConfig(config.RetryConfig{MaxRetries: 4, InitialDelay: time.Second, MaxDelay: time.Minute, BackoffFactor: 3})
	assert.Equal(t, RetryPolicy{MaxRetries: 4, InitialDelay: time.Second, MaxDelay: time.Minute, BackoffFactor: 3}, p)
}

func TestRetryPolicyDo(t *testing.T) {
	transient := errors.New("transient")
	fatal := errors.New("fatal")
	isTransient := func(err error) bool { return errors.Is(err, transient) }
	policy := fastRetry(3)

	t.Run("SucceedsAfterRetries", func(t *testing.T) {
		calls, retries := 0, 0
		err := policy.Do(context.Background(), func(context.Context) error {
			calls++
			if calls < 3 {
				return transient
			}
			return nil
		}, isTransient, func(int, error) { retries++ })
		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
		assert.Equal(t, 2, retries)
	})

	t.Run("StopsOnPermanentError", func(t *testing.T) {
		calls := 0
		err := policy.Do(context.Background(), func(context.Context) error { calls++; return fatal }, isTransient, nil)
		assert.ErrorIs(t, err, fatal)
		assert.Equal(t, 1, calls)
	})

	t.Run("GivesUp", func(t *testing.T) {
		calls := 0
		err := policy.Do(context.Background(), func(context.Context) error { calls++; return transient }, isTransient, nil)
		assert.ErrorIs(t, err, transient)
		assert.Equal(t, 4, calls)
	})

	t.Run("ContextCancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		calls := 0
		err := RetryPolicy{MaxRetries: 5, InitialDelay: time.Hour}.Do(ctx, func(context.Context) error {
			calls++
			return transient
		}, isTransient, nil)
		assert.ErrorIs(t, err, transient)
		assert.Equal(t, 1, calls)
	})
}
