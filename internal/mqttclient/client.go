package mqttclient

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/url"
	"os"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/notifyhub/garage-controller/internal/clock"
	"github.com/notifyhub/garage-controller/internal/domain"
)

// Options configures the broker connection.
type Options struct {
	BrokerURL            string
	ClientID             string
	Username             string
	Password             string
	CAFile               string
	KeepAlive            time.Duration
	ConnectTimeout       time.Duration
	RetryInterval        time.Duration
	MaxReconnectInterval time.Duration
	// EventBuffer is the depth of the channel between paho callbacks and
	// the dispatcher goroutine.
	EventBuffer int
}

// Handler receives every client event, one at a time, on the dispatcher
// goroutine. It must not block for long: all event delivery is serialized
// behind it.
type Handler func(domain.Event)

// Client is the single long-lived handle to the broker connection.
// It is created once at startup and shared read-only by the capture unit,
// the consumer task, and the event handler.
type Client struct {
	opts   Options
	client mqtt.Client
	clock  clock.Clock
	logger *zap.Logger

	events  chan domain.Event
	handler Handler

	// paho keeps SUBSCRIBE packet ids private, so subscribe requests are
	// numbered here.
	subSeq atomic.Uint32

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// New builds the client without connecting. Call Start to register the
// event handler and begin connecting.
func New(o Options, logger *zap.Logger) (*Client, error) {
	if o.BrokerURL == "" {
		return nil, domain.ErrEmptyBrokerURL
	}
	if _, err := url.Parse(o.BrokerURL); err != nil {
		return nil, fmt.Errorf("parse broker url: %w", err)
	}

	c := newClient(o, clock.Real(), logger)
	bridgeLogs(logger.Named("paho"))

	po := mqtt.NewClientOptions().
		AddBroker(o.BrokerURL).
		SetClientID(o.ClientID).
		SetUsername(o.Username).
		SetPassword(o.Password).
		SetKeepAlive(o.KeepAlive).
		SetConnectTimeout(o.ConnectTimeout).
		SetMaxReconnectInterval(o.MaxReconnectInterval).
		SetAutoReconnect(true).
		SetConnectRetry(false).
		SetCleanSession(true).
		SetOrderMatters(true).
		SetOnConnectHandler(func(mqtt.Client) { c.onConnect() }).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) { c.onConnectionLost(err) }).
		SetReconnectingHandler(func(mqtt.Client, *mqtt.ClientOptions) { c.onReconnecting() }).
		SetDefaultPublishHandler(func(_ mqtt.Client, m mqtt.Message) { c.onMessage(m) })

	if o.CAFile != "" {
		tlsCfg, err := loadTLS(o.CAFile)
		if err != nil {
			return nil, err
		}
		po.SetTLSConfig(tlsCfg)
	}

	c.client = mqtt.NewClient(po)
	return c, nil
}

func newClient(o Options, clk clock.Clock, logger *zap.Logger) *Client {
	if o.EventBuffer < 1 {
		o.EventBuffer = 32
	}
	if o.RetryInterval <= 0 {
		o.RetryInterval = 5 * time.Second
	}
	return &Client{
		opts:   o,
		clock:  clk,
		logger: logger.With(zap.String("component", "mqtt")),
		events: make(chan domain.Event, o.EventBuffer),
	}
}

func loadTLS(caFile string) (*tls.Config, error) {
	pem, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("read ca file: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates found in %s", caFile)
	}
	return &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

// Start registers h and begins connecting in the background. The first
// connection is retried every RetryInterval until it succeeds; after that
// paho's auto-reconnect takes over.
func (c *Client) Start(ctx context.Context, h Handler) {
	c.handler = h
	c.ctx, c.cancel = context.WithCancel(ctx)

	c.wg.Add(2)
	go func() {
		defer c.wg.Done()
		c.dispatch()
	}()
	go func() {
		defer c.wg.Done()
		c.connectLoop()
	}()
}

// Stop disconnects and waits for the dispatcher to exit.
func (c *Client) Stop() {
	c.once.Do(func() {
		if c.client != nil && c.client.IsConnectionOpen() {
			c.client.Disconnect(250)
		}
		if c.cancel != nil {
			c.cancel()
		}
		c.wg.Wait()
	})
}

// Connected reports whether the connection is currently up.
func (c *Client) Connected() bool {
	return c.client.IsConnectionOpen()
}

// Publish sends payload without waiting for the broker. The returned
// identifier is the MQTT packet id (0 at QoS 0), or -1 when the client
// rejected the message outright.
func (c *Client) Publish(topic string, qos byte, retained bool, payload []byte) (int, error) {
	tok := c.client.Publish(topic, qos, retained, payload)
	id := messageID(tok)

	select {
	case <-tok.Done():
		if err := tok.Error(); err != nil {
			return -1, rejected(err)
		}
	default:
	}

	if qos > 0 {
		c.track(tok, func(err error) domain.Event {
			if err != nil {
				return errorEvent(err)
			}
			return domain.Event{Kind: domain.EventPublished, MessageID: id, Topic: topic}
		})
	}
	return id, nil
}

// Subscribe requests a subscription without waiting. Completion arrives as
// a Subscribed or Error event carrying the same identifier.
func (c *Client) Subscribe(topic string, qos byte) (int, error) {
	tok := c.client.Subscribe(topic, qos, nil)
	id := c.nextSubscribeID()

	select {
	case <-tok.Done():
		if err := tok.Error(); err != nil {
			return -1, rejected(err)
		}
	default:
	}

	c.track(tok, func(err error) domain.Event {
		if err != nil {
			return domain.Event{
				Kind:  domain.EventError,
				Topic: topic,
				Error: &domain.ErrorInfo{Kind: domain.ErrorSubscribe, Err: err},
			}
		}
		return domain.Event{Kind: domain.EventSubscribed, MessageID: id, Topic: topic}
	})
	return id, nil
}

// track emits the event built from tok's outcome once it completes.
func (c *Client) track(tok mqtt.Token, build func(error) domain.Event) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		select {
		case <-tok.Done():
			c.emit(build(tok.Error()))
		case <-c.done():
		}
	}()
}

func (c *Client) connectLoop() {
	for {
		c.emit(domain.Event{Kind: domain.EventBeforeConnect})
		tok := c.client.Connect()
		select {
		case <-tok.Done():
		case <-c.done():
			return
		}
		err := tok.Error()
		if err == nil {
			return
		}
		c.emit(errorEvent(err))

		select {
		case <-c.clock.After(c.opts.RetryInterval):
		case <-c.done():
			return
		}
	}
}

func (c *Client) dispatch() {
	for {
		select {
		case ev := <-c.events:
			c.deliver(ev)
		case <-c.done():
			return
		}
	}
}

func (c *Client) deliver(ev domain.Event) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("event handler panic",
				zap.Any("panic", r),
				zap.String("event", ev.String()),
				zap.ByteString("stack", debug.Stack()),
			)
		}
	}()
	if c.handler != nil {
		c.handler(ev)
	}
}

func (c *Client) emit(ev domain.Event) {
	select {
	case c.events <- ev:
	case <-c.done():
	}
}

func (c *Client) done() <-chan struct{} {
	if c.ctx == nil {
		return nil
	}
	return c.ctx.Done()
}

func (c *Client) onConnect() {
	c.emit(domain.Event{Kind: domain.EventConnected})
}

func (c *Client) onConnectionLost(err error) {
	if err != nil {
		c.emit(errorEvent(err))
	}
	c.emit(domain.Event{Kind: domain.EventDisconnected})
}

func (c *Client) onReconnecting() {
	c.emit(domain.Event{Kind: domain.EventBeforeConnect})
}

func (c *Client) onMessage(m mqtt.Message) {
	payload := append([]byte(nil), m.Payload()...)
	c.emit(domain.Event{
		Kind:      domain.EventData,
		MessageID: int(m.MessageID()),
		Topic:     m.Topic(),
		Payload:   payload,
	})
}

// nextSubscribeID returns identifiers in 1..65535, wrapping like MQTT
// packet ids.
func (c *Client) nextSubscribeID() int {
	for {
		if id := uint16(c.subSeq.Add(1)); id != 0 {
			return int(id)
		}
	}
}

// rejected maps paho's immediate refusals onto domain errors.
func rejected(err error) error {
	if errors.Is(err, mqtt.ErrNotConnected) {
		return fmt.Errorf("%w: %w", domain.ErrNotConnected, err)
	}
	return err
}

// messageID reads the packet id of a publish token. Other token types do
// not expose one.
func messageID(tok mqtt.Token) int {
	if m, ok := tok.(interface{ MessageID() uint16 }); ok {
		return int(m.MessageID())
	}
	return 0
}

func errorEvent(err error) domain.Event {
	return domain.Event{Kind: domain.EventError, Error: ClassifyError(err)}
}
