// Package broker runs an embedded MQTT broker for bench setups where no
// external broker is available. The controller connects to it like any
// other broker.
package broker

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/DrmagicE/gmqtt"
	"github.com/DrmagicE/gmqtt/pkg/packets"
	"go.uber.org/zap"
)

// runner is the lifecycle half of the server gmqtt.NewServer returns; the
// gmqtt.Server interface only covers the services handed to plugins.
type runner interface {
	Run()
	Stop(ctx context.Context) error
}

// Broker wraps a gmqtt server listening on one TCP address.
type Broker struct {
	addr   string
	logger *zap.Logger

	ln  net.Listener
	srv runner
	p   *plugin
}

func New(addr string, logger *zap.Logger) *Broker {
	return &Broker{addr: addr, logger: logger, p: &plugin{logger: logger}}
}

// Start opens the listener and runs the server in the background.
func (b *Broker) Start() error {
	ln, err := net.Listen("tcp", b.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", b.addr, err)
	}
	b.ln = ln
	s := gmqtt.NewServer(
		gmqtt.WithTCPListener(ln),
		gmqtt.WithPlugin(b.p),
	)
	s.Run()
	b.srv = s
	b.logger.Info("embedded broker started", zap.String("addr", ln.Addr().String()))
	return nil
}

// Addr is the bound listener address, useful when started on port 0.
func (b *Broker) Addr() string {
	if b.ln == nil {
		return b.addr
	}
	return b.ln.Addr().String()
}

// Publish injects a QoS 0 message as if a client had sent it.
func (b *Broker) Publish(topic string, payload []byte) error {
	svc := b.p.server()
	if svc == nil {
		return fmt.Errorf("embedded broker not running")
	}
	svc.PublishService().Publish(gmqtt.NewMessage(topic, payload, packets.QOS_0))
	return nil
}

// Stop shuts the server down.
func (b *Broker) Stop(ctx context.Context) error {
	if b.srv == nil {
		return nil
	}
	b.logger.Info("embedded broker stopping")
	return b.srv.Stop(ctx)
}

// plugin logs client sessions and message traffic.
type plugin struct {
	logger *zap.Logger

	mu      sync.RWMutex
	service gmqtt.Server
}

func (p *plugin) server() gmqtt.Server {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.service
}

// Load implements the gmqtt plugin interface.
func (p *plugin) Load(service gmqtt.Server) error {
	p.mu.Lock()
	p.service = service
	p.mu.Unlock()
	return nil
}

// Unload implements the gmqtt plugin interface.
func (p *plugin) Unload() error { return nil }

// Name implements the gmqtt plugin interface.
func (p *plugin) Name() string { return "garage-broker" }

// HookWrapper implements the gmqtt plugin interface.
func (p *plugin) HookWrapper() gmqtt.HookWrapper {
	return gmqtt.HookWrapper{
		OnConnectWrapper:    p.onConnectWrapper,
		OnMsgArrivedWrapper: p.onMsgArrivedWrapper,
	}
}

func (p *plugin) onConnectWrapper(connect gmqtt.OnConnect) gmqtt.OnConnect {
	return func(ctx context.Context, client gmqtt.Client) (code uint8) {
		p.logger.Info("broker client connected", zap.String("client_id", client.OptionsReader().ClientID()))
		return connect(ctx, client)
	}
}

func (p *plugin) onMsgArrivedWrapper(arrived gmqtt.OnMsgArrived) gmqtt.OnMsgArrived {
	return func(ctx context.Context, client gmqtt.Client, msg packets.Message) (valid bool) {
		p.logger.Debug("broker message",
			zap.String("client_id", client.OptionsReader().ClientID()),
			zap.String("topic", msg.Topic()),
			zap.Int("bytes", len(msg.Payload())),
		)
		return arrived(ctx, client, msg)
	}
}
