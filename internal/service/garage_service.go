package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/garage-controller/internal/domain"
	"github.com/notifyhub/garage-controller/internal/events"
)

// Subscriber is the part of the client handle the event handler needs.
type Subscriber interface {
	Subscribe(topic string, qos byte) (int, error)
}

// Actuator runs one timed relay sequence.
type Actuator interface {
	Pulse(ctx context.Context) error
}

// QueueStats exposes the notification queue's occupancy.
type QueueStats interface {
	Len() int
	Cap() int
}

// Hooks are optional metric callbacks.
type Hooks struct {
	OnEvent func(domain.EventKind)
	OnDoor  func(err error)
}

// Door command sources recorded on the bus.
const (
	SourceMQTT = "mqtt"
	SourceAPI  = "api"
)

// GarageService reacts to client events: it subscribes to the door topic on
// every (re)connect and drives the relay when a door command arrives.
// HandleEvent is called serially from the client's event goroutine.
type GarageService struct {
	client Subscriber
	relay  Actuator
	queue  QueueStats
	bus    *events.Bus
	logger *zap.Logger
	hooks  Hooks

	mu    sync.RWMutex
	state domain.ConnState

	motionSent    atomic.Uint64
	motionDropped atomic.Uint64
	doorActuated  atomic.Uint64
	startedAt     time.Time
	unsubs        []func()
}

func NewGarageService(
	client Subscriber,
	relay Actuator,
	queue QueueStats,
	bus *events.Bus,
	logger *zap.Logger,
	hooks Hooks,
) *GarageService {
	if hooks.OnEvent == nil {
		hooks.OnEvent = func(domain.EventKind) {}
	}
	if hooks.OnDoor == nil {
		hooks.OnDoor = func(error) {}
	}
	return &GarageService{
		client:    client,
		relay:     relay,
		queue:     queue,
		bus:       bus,
		logger:    logger,
		hooks:     hooks,
		state:     domain.ConnDisconnected,
		startedAt: time.Now().UTC(),
	}
}

// Attach subscribes the status counters to motion events on the bus.
func (s *GarageService) Attach(bus *events.Bus) {
	s.unsubs = append(s.unsubs,
		bus.Subscribe(func(e events.MotionReported) {
			if e.Err == "" {
				s.motionSent.Add(1)
			}
		}),
		bus.Subscribe(func(events.MotionDropped) { s.motionDropped.Add(1) }),
	)
}

// Detach undoes Attach.
func (s *GarageService) Detach() {
	for _, unsub := range s.unsubs {
		unsub()
	}
	s.unsubs = nil
}

// HandleEvent dispatches one client event. A door command blocks the caller
// for the full relay sequence.
func (s *GarageService) HandleEvent(ev domain.Event) {
	s.hooks.OnEvent(ev.Kind)

	switch ev.Kind {
	case domain.EventConnected:
		s.logger.Info("connected to broker")
		s.setState(domain.ConnConnected)
		msgID, err := s.client.Subscribe(domain.TopicDoor, domain.QoSAtMostOnce)
		if err != nil {
			s.logger.Info("sent subscribe", zap.Int("msg_id", msgID), zap.String("topic", domain.TopicDoor), zap.Error(err))
			return
		}
		s.logger.Info("sent subscribe", zap.Int("msg_id", msgID), zap.String("topic", domain.TopicDoor))

	case domain.EventDisconnected:
		s.logger.Info("disconnected from broker")
		s.setState(domain.ConnDisconnected)

	case domain.EventSubscribed:
		s.logger.Info("subscribed", zap.Int("msg_id", ev.MessageID))
		s.setState(domain.ConnSubscribed)

	case domain.EventUnsubscribed:
		s.logger.Info("unsubscribed", zap.Int("msg_id", ev.MessageID))
		if s.State() == domain.ConnSubscribed {
			s.setState(domain.ConnConnected)
		}

	case domain.EventPublished:
		s.logger.Info("published", zap.Int("msg_id", ev.MessageID))

	case domain.EventData:
		s.logger.Info("data received",
			zap.String("topic", ev.Topic),
			zap.ByteString("data", ev.Payload),
		)
		if domain.IsDoorCommand(ev.Payload) {
			_ = s.actuate(context.Background(), SourceMQTT)
		}

	case domain.EventError:
		s.logError(ev.Error)

	default:
		s.logger.Info("Other event", zap.String("kind", string(ev.Kind)))
	}
}

// TriggerDoor runs the relay sequence on request from the local API.
func (s *GarageService) TriggerDoor(ctx context.Context) error {
	return s.actuate(ctx, SourceAPI)
}

// State returns the observed connection state.
func (s *GarageService) State() domain.ConnState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Status returns a runtime snapshot.
func (s *GarageService) Status() domain.Status {
	return domain.Status{
		Connection:    s.State(),
		QueueDepth:    s.queue.Len(),
		QueueCapacity: s.queue.Cap(),
		MotionSent:    s.motionSent.Load(),
		MotionDropped: s.motionDropped.Load(),
		DoorActuated:  s.doorActuated.Load(),
		StartedAt:     s.startedAt,
	}
}

func (s *GarageService) actuate(ctx context.Context, source string) error {
	err := s.relay.Pulse(ctx)
	s.hooks.OnDoor(err)

	ev := events.DoorActuated{Source: source, At: time.Now().UTC()}
	if err != nil {
		ev.Err = err.Error()
		s.logger.Warn("door actuation failed", zap.String("source", source), zap.Error(err))
	} else {
		s.doorActuated.Add(1)
		s.logger.Info("door actuated", zap.String("source", source))
	}
	s.bus.Publish(ev)
	return err
}

func (s *GarageService) setState(next domain.ConnState) {
	s.mu.Lock()
	changed := s.state != next
	s.state = next
	s.mu.Unlock()

	if changed {
		s.bus.Publish(events.ConnectionChanged{State: next, At: time.Now().UTC()})
	}
}

func (s *GarageService) logError(info *domain.ErrorInfo) {
	if info == nil {
		s.logger.Info("error event")
		return
	}

	switch info.Kind {
	case domain.ErrorTransport:
		t := info.Transport
		if t.TLSErr != 0 {
			s.logger.Info("Last error", zap.String("source", "reported from tls"), zap.String("code", hex(t.TLSErr)))
		}
		if t.TLSStackErr != 0 {
			s.logger.Info("Last error", zap.String("source", "reported from tls stack"), zap.String("code", hex(t.TLSStackErr)))
		}
		if t.SockErrno != 0 {
			s.logger.Info("Last error", zap.String("source", "captured as transport's socket errno"), zap.String("code", hex(int(t.SockErrno))))
		}
		s.logger.Info("Last errno string", zap.String("errno", errnoString(t)), zap.Error(info.Err))

	case domain.ErrorConnectionRefused:
		s.logger.Info("connection refused", zap.Error(info.Err))

	default:
		s.logger.Info("error event", zap.String("kind", string(info.Kind)), zap.Error(info.Err))
	}
}

func hex(code int) string {
	return fmt.Sprintf("0x%x", code)
}

func errnoString(t domain.TransportError) string {
	if t.SockErrno == 0 {
		return "success"
	}
	return t.SockErrno.Error()
}
