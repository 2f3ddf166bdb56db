package mqttclient

import (
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

var bridgeOnce sync.Once

// bridgeLogs routes paho's package-level loggers through zap. paho keeps
// these as globals, so the bridge is installed once per process.
func bridgeLogs(logger *zap.Logger) {
	bridgeOnce.Do(func() {
		if l, err := zap.NewStdLogAt(logger, zap.ErrorLevel); err == nil {
			mqtt.ERROR = l
			mqtt.CRITICAL = l
		}
		if l, err := zap.NewStdLogAt(logger, zap.WarnLevel); err == nil {
			mqtt.WARN = l
		}
	})
}
