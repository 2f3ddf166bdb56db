package events

import (
	"time"

	"github.com/notifyhub/garage-controller/internal/domain"
)

// Event type constants for kelindar/event.
const (
	TypeMotionReported uint32 = iota + 1
	TypeMotionDropped
	TypeDoorActuated
	TypeConnectionChanged
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// MotionReported is emitted after the consumer task hands a motion publish
// to the client. Err is set when the client rejected it.
type MotionReported struct {
	MessageID int       `json:"message_id"`
	Err       string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}

func (e MotionReported) Type() uint32 { return TypeMotionReported }

// MotionDropped is emitted when a rising edge found the queue full.
type MotionDropped struct {
	At time.Time `json:"at"`
}

func (e MotionDropped) Type() uint32 { return TypeMotionDropped }

// DoorActuated is emitted after a relay sequence completes or fails.
// Source is "mqtt" or "api".
type DoorActuated struct {
	Source string    `json:"source"`
	Err    string    `json:"error,omitempty"`
	At     time.Time `json:"at"`
}

func (e DoorActuated) Type() uint32 { return TypeDoorActuated }

// ConnectionChanged is emitted on every observed connection state change.
type ConnectionChanged struct {
	State domain.ConnState `json:"state"`
	At    time.Time        `json:"at"`
}

func (e ConnectionChanged) Type() uint32 { return TypeConnectionChanged }
