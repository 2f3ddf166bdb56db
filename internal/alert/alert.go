package alert

import (
	"context"
	"time"
)

// Alert kinds.
const (
	KindMotionDropped  = "motion_dropped"
	KindConnectionLost = "connection_lost"
)

// Alert is the JSON body posted to the operator's webhook.
type Alert struct {
	Kind      string    `json:"kind"`
	Device    string    `json:"device"`
	Detail    string    `json:"detail"`
	Timestamp time.Time `json:"timestamp"`
}

// Notifier delivers alerts to an external endpoint.
type Notifier interface {
	Send(ctx context.Context, a Alert) error
}
