package events

import (
	"github.com/kelindar/event"
)

// Bus wraps a kelindar/event dispatcher. Subscribers run asynchronously,
// so publishing never blocks the caller on a slow consumer.
type Bus struct {
	dispatcher *event.Dispatcher
}

func New() *Bus {
	return &Bus{dispatcher: event.NewDispatcher()}
}

// Publish broadcasts ev to every subscriber of its concrete type.
// A nil Bus drops the event.
func (b *Bus) Publish(ev Event) {
	if b == nil {
		return
	}
	switch e := ev.(type) {
	case MotionReported:
		event.Publish(b.dispatcher, e)
	case MotionDropped:
		event.Publish(b.dispatcher, e)
	case DoorActuated:
		event.Publish(b.dispatcher, e)
	case ConnectionChanged:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe registers handler for the event type named by its parameter and
// returns the unsubscribe function. Unknown handler types get a no-op.
// Usage: unsub := bus.Subscribe(func(e MotionDropped) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(MotionReported):
		return event.Subscribe(b.dispatcher, h)
	case func(MotionDropped):
		return event.Subscribe(b.dispatcher, h)
	case func(DoorActuated):
		return event.Subscribe(b.dispatcher, h)
	case func(ConnectionChanged):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}
