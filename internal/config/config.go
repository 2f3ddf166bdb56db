package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/pflag"

	"github.com/notifyhub/garage-controller/internal/domain"
)

// BrokerFromStdin is the placeholder broker URL required when the URL is to
// be read from standard input.
const BrokerFromStdin = "FROM_STDIN"

// Config holds all runtime configuration. Precedence, lowest first:
// Default(), the TOML file, environment variables, explicitly set flags.
type Config struct {
	MQTT      MQTTConfig      `toml:"mqtt"`
	GPIO      GPIOConfig      `toml:"gpio"`
	Actuation ActuationConfig `toml:"actuation"`
	Queue     QueueConfig     `toml:"queue"`
	HTTP      HTTPConfig      `toml:"http"`
	Database  DatabaseConfig  `toml:"database"`
	Journal   JournalConfig   `toml:"journal"`
	Logging   LoggingConfig   `toml:"logging"`
	Alert     AlertConfig     `toml:"alert"`
	Broker    BrokerConfig    `toml:"embedded_broker"`
	Systemd   SystemdConfig   `toml:"systemd"`
}

type MQTTConfig struct {
	BrokerURL       string   `toml:"broker_url" env:"MQTT_BROKER_URL"`
	BrokerFromStdin bool     `toml:"broker_from_stdin" env:"MQTT_BROKER_FROM_STDIN"`
	ClientID        string   `toml:"client_id" env:"MQTT_CLIENT_ID"`
	Username        string   `toml:"username" env:"MQTT_USERNAME"`
	Password        string   `toml:"password" env:"MQTT_PASSWORD"`
	CAFile          string   `toml:"ca_file" env:"MQTT_CA_FILE"`
	KeepAlive       Duration `toml:"keep_alive" env:"MQTT_KEEP_ALIVE"`
	ConnectTimeout  Duration `toml:"connect_timeout" env:"MQTT_CONNECT_TIMEOUT"`
	RetryInterval   Duration `toml:"retry_interval" env:"MQTT_RETRY_INTERVAL"`
	MaxReconnect    Duration `toml:"max_reconnect_interval" env:"MQTT_MAX_RECONNECT_INTERVAL"`
	PublishRate     float64  `toml:"publish_rate" env:"MQTT_PUBLISH_RATE"`
	PublishBurst    int      `toml:"publish_burst" env:"MQTT_PUBLISH_BURST"`
}

type GPIOConfig struct {
	Driver       string `toml:"driver" env:"GPIO_DRIVER"`
	RelayPin     string `toml:"relay_pin" env:"GPIO_RELAY_PIN"`
	MotionPin    string `toml:"motion_pin" env:"GPIO_MOTION_PIN"`
	IndicatorPin string `toml:"indicator_pin" env:"GPIO_INDICATOR_PIN"`
}

type ActuationConfig struct {
	Settle Duration `toml:"settle" env:"ACTUATION_SETTLE"`
	Hold   Duration `toml:"hold" env:"ACTUATION_HOLD"`
}

type QueueConfig struct {
	Capacity int `toml:"capacity" env:"QUEUE_CAPACITY"`
}

type HTTPConfig struct {
	Addr            string   `toml:"addr" env:"HTTP_ADDR"`
	ReadTimeout     Duration `toml:"read_timeout" env:"HTTP_READ_TIMEOUT"`
	WriteTimeout    Duration `toml:"write_timeout" env:"HTTP_WRITE_TIMEOUT"`
	ShutdownTimeout Duration `toml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT"`
}

type DatabaseConfig struct {
	URL      string `toml:"url" env:"DATABASE_URL"`
	MaxConns int32  `toml:"max_conns" env:"DB_MAX_CONNS"`
	MinConns int32  `toml:"min_conns" env:"DB_MIN_CONNS"`
}

type JournalConfig struct {
	MemoryCapacity int      `toml:"memory_capacity" env:"JOURNAL_MEMORY_CAPACITY"`
	Retention      Duration `toml:"retention" env:"JOURNAL_RETENTION"`
	PruneInterval  Duration `toml:"prune_interval" env:"JOURNAL_PRUNE_INTERVAL"`
}

type LoggingConfig struct {
	Level  string `toml:"level" env:"LOG_LEVEL"`
	Format string `toml:"format" env:"LOG_FORMAT"`
}

type AlertConfig struct {
	WebhookURL string   `toml:"webhook_url" env:"ALERT_WEBHOOK_URL"`
	Timeout    Duration `toml:"timeout" env:"ALERT_TIMEOUT"`
	Cooldown   Duration `toml:"cooldown" env:"ALERT_COOLDOWN"`
	Device     string   `toml:"device" env:"ALERT_DEVICE"`
}

type BrokerConfig struct {
	Addr string `toml:"addr" env:"EMBEDDED_BROKER_ADDR"`
}

type SystemdConfig struct {
	Notify bool `toml:"notify" env:"SYSTEMD_NOTIFY"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		MQTT: MQTTConfig{
			BrokerURL:      "tcp://localhost:1883",
			ClientID:       "garage-controller",
			KeepAlive:      Duration(120 * time.Second),
			ConnectTimeout: Duration(10 * time.Second),
			RetryInterval:  Duration(5 * time.Second),
			MaxReconnect:   Duration(time.Minute),
			PublishBurst:   1,
		},
		GPIO: GPIOConfig{
			Driver:       "periph",
			RelayPin:     "GPIO17",
			MotionPin:    "GPIO27",
			IndicatorPin: "GPIO22",
		},
		Actuation: ActuationConfig{
			Settle: Duration(100 * time.Millisecond),
			Hold:   Duration(500 * time.Millisecond),
		},
		Queue: QueueConfig{Capacity: 10},
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ReadTimeout:     Duration(5 * time.Second),
			WriteTimeout:    Duration(10 * time.Second),
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Database: DatabaseConfig{MaxConns: 4, MinConns: 1},
		Journal: JournalConfig{
			MemoryCapacity: 1000,
			Retention:      Duration(7 * 24 * time.Hour),
			PruneInterval:  Duration(time.Hour),
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Alert: AlertConfig{
			Timeout:  Duration(5 * time.Second),
			Cooldown: Duration(5 * time.Minute),
			Device:   "garage-controller",
		},
		Systemd: SystemdConfig{Notify: true},
	}
}

// Load builds the effective configuration. path may be empty; flags may be
// nil. Only flags the user actually set override file and environment.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := envdecode.Decode(cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}

	if flags != nil {
		if err := applyFlags(cfg, flags); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := toml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse TOML config: %w", err)
	}
	return nil
}

// BindFlags registers the command-line flags on fs, bound to c's fields
// and defaulting to c's current values.
func BindFlags(fs *pflag.FlagSet, c *Config) {
	fs.StringVar(&c.MQTT.BrokerURL, "broker-url", c.MQTT.BrokerURL, "MQTT broker URL (tcp://, ssl://, ws://)")
	fs.BoolVar(&c.MQTT.BrokerFromStdin, "broker-from-stdin", c.MQTT.BrokerFromStdin, "read the broker URL from stdin (requires --broker-url=FROM_STDIN)")
	fs.StringVar(&c.MQTT.ClientID, "client-id", c.MQTT.ClientID, "MQTT client identifier")
	fs.Float64Var(&c.MQTT.PublishRate, "publish-rate", c.MQTT.PublishRate, "max motion publishes per second (0 = unlimited)")
	fs.StringVar(&c.GPIO.Driver, "gpio-driver", c.GPIO.Driver, "GPIO driver: periph, rpi or fake")
	fs.StringVar(&c.GPIO.RelayPin, "relay-pin", c.GPIO.RelayPin, "relay output line")
	fs.StringVar(&c.GPIO.MotionPin, "motion-pin", c.GPIO.MotionPin, "motion sensor input line")
	fs.StringVar(&c.GPIO.IndicatorPin, "indicator-pin", c.GPIO.IndicatorPin, "motion indicator output line")
	fs.IntVar(&c.Queue.Capacity, "queue-capacity", c.Queue.Capacity, "motion notification queue capacity")
	fs.StringVar(&c.HTTP.Addr, "http-addr", c.HTTP.Addr, "local HTTP listen address (empty disables)")
	fs.StringVar(&c.Database.URL, "database-url", c.Database.URL, "PostgreSQL URL for the event journal (empty = in-memory)")
	fs.StringVar(&c.Logging.Level, "log-level", c.Logging.Level, "log level: debug, info, warn, error")
	fs.StringVar(&c.Logging.Format, "log-format", c.Logging.Format, "log format: json or console")
	fs.StringVar(&c.Broker.Addr, "embedded-broker", c.Broker.Addr, "run an embedded MQTT broker on this address")
	fs.Var((*durationValue)(&c.Actuation.Settle), "settle", "relay settle delay")
	fs.Var((*durationValue)(&c.Actuation.Hold), "hold", "relay hold delay")
}

// applyFlags re-applies every flag changed on fs onto cfg.
func applyFlags(cfg *Config, fs *pflag.FlagSet) error {
	overlay := pflag.NewFlagSet("overlay", pflag.ContinueOnError)
	BindFlags(overlay, cfg)

	var firstErr error
	fs.Visit(func(f *pflag.Flag) {
		target := overlay.Lookup(f.Name)
		if target == nil || firstErr != nil {
			return
		}
		if err := target.Value.Set(f.Value.String()); err != nil {
			firstErr = fmt.Errorf("flag --%s: %w", f.Name, err)
		}
	})
	return firstErr
}

// Validate rejects configurations the daemon cannot start with.
func (c *Config) Validate() error {
	if c.MQTT.BrokerURL == "" {
		return domain.ErrEmptyBrokerURL
	}
	if c.MQTT.BrokerFromStdin && c.MQTT.BrokerURL != BrokerFromStdin {
		return fmt.Errorf("%w: broker url must be %q when reading it from stdin", domain.ErrConfigMismatch, BrokerFromStdin)
	}
	if c.GPIO.RelayPin == "" || c.GPIO.MotionPin == "" || c.GPIO.IndicatorPin == "" {
		return fmt.Errorf("%w: relay, motion and indicator pins must be set", domain.ErrUnknownLine)
	}
	if c.Queue.Capacity < 1 {
		return domain.ErrInvalidCapacity
	}
	if c.Actuation.Settle < 0 || c.Actuation.Hold < 0 {
		return domain.ErrInvalidDelay
	}
	if c.MQTT.PublishRate < 0 {
		return domain.ErrInvalidRate
	}
	return nil
}
