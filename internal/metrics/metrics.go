package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "bookvalley"

var (
	once sync.Once

	reservationsMade = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reservations_made_total",
		Help:      "Reservation records created.",
	})

	reservationsCancelled = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reservations_cancelled_total",
		Help:      "Reservation records cancelled.",
	})

	reservationConflicts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reservation_conflicts_total",
		Help:      "Reservation requests rejected for lack of rooms.",
	})

	txRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tx_retries_total",
		Help:      "Transactions retried after a deadlock or busy database.",
	})

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint and status code.",
		},
		[]string{"endpoint", "code"},
	)

	eventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Reservation events handed to the broker, by result.",
		},
		[]string{"result"},
	)

	operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of reservation operations.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			reservationsMade,
			reservationsCancelled,
			reservationConflicts,
			txRetries,
			httpRequests,
			eventsPublished,
			operationDuration,
		)
	})
}

func AddReservationsMade(n int)        { reservationsMade.Add(float64(n)) }
func AddReservationsCancelled(n int64) { reservationsCancelled.Add(float64(n)) }
func IncConflict()                     { reservationConflicts.Inc() }
func IncTxRetry()                      { txRetries.Inc() }

// IncHTTP counts one request for endpoint answered with code.
func IncHTTP(endpoint string, code int) {
	httpRequests.WithLabelValues(endpoint, strconv.Itoa(code)).Inc()
}

// IncEvent counts one publish attempt; result is "ok", "retry" or "dead".
func IncEvent(result string) {
	eventsPublished.WithLabelValues(result).Inc()
}

// ObserveOperation records the time elapsed since start.
func ObserveOperation(operation string, start time.Time) {
	operationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
