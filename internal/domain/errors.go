package domain

import "errors"

// Sentinel errors used throughout the application.
// Handlers translate these to HTTP status codes via a single mapError function.
var (
	ErrQueueFull         = errors.New("notification queue is at capacity")
	ErrCaptureBusy       = errors.New("motion capture is handling an edge")
	ErrUnknownLine       = errors.New("unknown gpio line")
	ErrUnknownDriver     = errors.New("unknown gpio driver: must be periph, rpi, or fake")
	ErrNotConnected      = errors.New("mqtt client is not connected")
	ErrConfigMismatch    = errors.New("configuration mismatch: wrong broker url")
	ErrEmptyBrokerURL    = errors.New("broker url must not be empty")
	ErrInvalidCapacity   = errors.New("queue capacity must be positive")
	ErrInvalidDelay      = errors.New("actuation delays must not be negative")
	ErrInvalidEventKind  = errors.New("invalid event kind")
	ErrInvalidSince      = errors.New("since must be an RFC 3339 timestamp")
	ErrInvalidRate       = errors.New("publish rate must not be negative")
	ErrActuationCanceled = errors.New("actuation sequence interrupted")
)
