package domain

import (
	"fmt"
	"syscall"
)

// Fixed topics and payloads exchanged with the broker.
const (
	TopicMotion   = "/garage/motion"
	TopicDoor     = "/garage/door"
	MotionPayload = "motion"

	// QoSAtMostOnce is the lowest delivery-assurance level (no acknowledgment).
	QoSAtMostOnce byte = 0
)

// EventKind identifies a message-client event delivered to the event handler.
type EventKind string

const (
	EventBeforeConnect EventKind = "before_connect"
	EventConnected     EventKind = "connected"
	EventDisconnected  EventKind = "disconnected"
	EventSubscribed    EventKind = "subscribed"
	EventUnsubscribed  EventKind = "unsubscribed"
	EventPublished     EventKind = "published"
	EventData          EventKind = "data"
	EventError         EventKind = "error"
)

func (k EventKind) IsValid() bool {
	switch k {
	case EventBeforeConnect, EventConnected, EventDisconnected, EventSubscribed,
		EventUnsubscribed, EventPublished, EventData, EventError:
		return true
	}
	return false
}

// ErrorKind classifies an Error event.
type ErrorKind string

const (
	ErrorTransport         ErrorKind = "transport"
	ErrorConnectionRefused ErrorKind = "connection_refused"
	ErrorSubscribe         ErrorKind = "subscribe"
	ErrorUnknown           ErrorKind = "unknown"
)

// TLS stack error codes, derived from the x509 verification failure type.
const (
	TLSStackUnknownAuthority   = 0x2701
	TLSStackHostname           = 0x2702
	TLSStackCertificateInvalid = 0x2703
)

// TransportError carries the sub-codes of a transport-layer failure.
// A zero field means that layer reported nothing.
type TransportError struct {
	TLSErr      int
	TLSStackErr int
	SockErrno   syscall.Errno
}

// ErrorInfo describes an Error event.
type ErrorInfo struct {
	Kind      ErrorKind
	Transport TransportError
	Err       error
}

// Event is a single notification from the message client.
type Event struct {
	Kind      EventKind
	MessageID int
	Topic     string
	Payload   []byte
	Error     *ErrorInfo
}

func (e Event) String() string {
	switch e.Kind {
	case EventData:
		return fmt.Sprintf("%s topic=%s len=%d", e.Kind, e.Topic, len(e.Payload))
	case EventError:
		if e.Error != nil {
			return fmt.Sprintf("%s kind=%s", e.Kind, e.Error.Kind)
		}
	}
	return fmt.Sprintf("%s msg_id=%d", e.Kind, e.MessageID)
}

// IsDoorCommand reports whether payload asks for a relay actuation:
// its first byte must be the character '0' or '1'.
func IsDoorCommand(payload []byte) bool {
	if len(payload) == 0 {
		return false
	}
	return payload[0] == '0' || payload[0] == '1'
}

// ConnState is the connection lifecycle as observed by the event handler.
type ConnState string

const (
	ConnDisconnected ConnState = "disconnected"
	ConnConnected    ConnState = "connected"
	ConnSubscribed   ConnState = "subscribed"
)
