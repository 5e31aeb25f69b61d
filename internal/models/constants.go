package models

const (
	EventReservationMade      = "reservation_made"
	EventReservationCancelled = "reservation_cancelled"
)

const (
	// DefaultOperationTimeout bounds one reservation operation, in seconds.
	DefaultOperationTimeout = 5

	// WorkerQueueSize is the buffer of the event worker.
	WorkerQueueSize = 1000

	// RateLimitRequests per RateLimitWindow seconds per customer.
	RateLimitRequests = 60
	RateLimitWindow   = 60
)
