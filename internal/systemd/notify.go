// Package systemd reports service state to the service manager over the
// sd_notify socket. Outside systemd every call is a no-op.
package systemd

import (
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"go.uber.org/zap"
)

// notifyFunc matches daemon.SdNotify.
type notifyFunc func(unsetEnvironment bool, state string) (bool, error)

// Notifier sends READY, STOPPING and WATCHDOG messages.
type Notifier struct {
	enabled bool
	notify  notifyFunc
	logger  *zap.Logger
}

func NewNotifier(enabled bool, logger *zap.Logger) *Notifier {
	return newNotifier(enabled, daemon.SdNotify, logger)
}

func newNotifier(enabled bool, fn notifyFunc, logger *zap.Logger) *Notifier {
	return &Notifier{enabled: enabled, notify: fn, logger: logger}
}

// Ready reports that startup is complete.
func (n *Notifier) Ready() { n.send(daemon.SdNotifyReady) }

// Stopping reports that shutdown has begun.
func (n *Notifier) Stopping() { n.send(daemon.SdNotifyStopping) }

// Watchdog sends one keep-alive ping.
func (n *Notifier) Watchdog() error {
	if !n.enabled {
		return nil
	}
	_, err := n.notify(false, daemon.SdNotifyWatchdog)
	return err
}

// WatchdogInterval returns how often to ping: half the manager's timeout.
// Zero means the watchdog is not enabled for this unit.
func (n *Notifier) WatchdogInterval() time.Duration {
	if !n.enabled {
		return 0
	}
	d, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		n.logger.Warn("watchdog configuration invalid", zap.Error(err))
		return 0
	}
	return d / 2
}

func (n *Notifier) send(state string) {
	if !n.enabled {
		return
	}
	sent, err := n.notify(false, state)
	if err != nil {
		n.logger.Warn("sd_notify failed", zap.String("state", state), zap.Error(err))
		return
	}
	if sent {
		n.logger.Debug("sd_notify sent", zap.String("state", state))
	}
}
