package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/notifyhub/garage-controller/internal/actuator"
	"github.com/notifyhub/garage-controller/internal/alert"
	"github.com/notifyhub/garage-controller/internal/api"
	"github.com/notifyhub/garage-controller/internal/broker"
	"github.com/notifyhub/garage-controller/internal/capture"
	"github.com/notifyhub/garage-controller/internal/clock"
	"github.com/notifyhub/garage-controller/internal/config"
	"github.com/notifyhub/garage-controller/internal/db"
	"github.com/notifyhub/garage-controller/internal/events"
	"github.com/notifyhub/garage-controller/internal/gpio"
	"github.com/notifyhub/garage-controller/internal/journal"
	"github.com/notifyhub/garage-controller/internal/logging"
	"github.com/notifyhub/garage-controller/internal/metrics"
	"github.com/notifyhub/garage-controller/internal/mqttclient"
	"github.com/notifyhub/garage-controller/internal/queue"
	"github.com/notifyhub/garage-controller/internal/ratelimiter"
	"github.com/notifyhub/garage-controller/internal/repository"
	"github.com/notifyhub/garage-controller/internal/service"
	"github.com/notifyhub/garage-controller/internal/systemd"
	"github.com/notifyhub/garage-controller/internal/worker"
)

func runDaemon(cmd *cobra.Command, configPath string) error {
	// ---- config ----
	cfg, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// ---- logger ----
	logger, level, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	if err := cfg.ResolveBroker(os.Stdin, os.Stdout); err != nil {
		logger.Fatal("failed to resolve broker url", zap.Error(err))
	}

	// ---- embedded broker (optional) ----
	var embedded *broker.Broker
	if cfg.Broker.Addr != "" {
		embedded = broker.New(cfg.Broker.Addr, logger.With(zap.String("component", "broker")))
		if err := embedded.Start(); err != nil {
			logger.Fatal("failed to start embedded broker", zap.Error(err))
		}
		logger.Info("embedded broker listening", zap.String("addr", embedded.Addr()))
	}

	// ---- gpio ----
	drv, err := gpio.Open(cfg.GPIO.Driver)
	if err != nil {
		logger.Fatal("failed to open gpio driver", zap.String("driver", cfg.GPIO.Driver), zap.Error(err))
	}
	defer drv.Close()

	relayLine, err := drv.Output(cfg.GPIO.RelayPin)
	if err != nil {
		logger.Fatal("failed to configure relay output", zap.String("line", cfg.GPIO.RelayPin), zap.Error(err))
	}
	indicatorLine, err := drv.Output(cfg.GPIO.IndicatorPin)
	if err != nil {
		logger.Fatal("failed to configure indicator output", zap.String("line", cfg.GPIO.IndicatorPin), zap.Error(err))
	}
	motionLine, err := drv.Input(cfg.GPIO.MotionPin)
	if err != nil {
		logger.Fatal("failed to configure motion input", zap.String("line", cfg.GPIO.MotionPin), zap.Error(err))
	}

	// ---- journal storage ----
	repo := openRepository(cfg, logger)

	// ---- event bus ----
	bus := events.New()

	recorder := journal.NewRecorder(repo, logger.With(zap.String("component", "journal")))
	recorder.Attach(bus)
	defer recorder.Close()

	if cfg.Alert.WebhookURL != "" {
		watcher := alert.NewWatcher(
			alert.NewWebhookNotifier(cfg.Alert.WebhookURL, cfg.Alert.Timeout.Std()),
			cfg.Alert.Device,
			cfg.Alert.Cooldown.Std(),
			clock.Real(),
			logger.With(zap.String("component", "alert")),
		)
		watcher.Attach(bus)
		defer watcher.Close()
	}

	// ---- metrics ----
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	// ---- client handle ----
	client, err := mqttclient.New(mqttclient.Options{
		BrokerURL:            cfg.MQTT.BrokerURL,
		ClientID:             cfg.MQTT.ClientID,
		Username:             cfg.MQTT.Username,
		Password:             cfg.MQTT.Password,
		CAFile:               cfg.MQTT.CAFile,
		KeepAlive:            cfg.MQTT.KeepAlive.Std(),
		ConnectTimeout:       cfg.MQTT.ConnectTimeout.Std(),
		RetryInterval:        cfg.MQTT.RetryInterval.Std(),
		MaxReconnectInterval: cfg.MQTT.MaxReconnect.Std(),
	}, logger)
	if err != nil {
		logger.Fatal("failed to create mqtt client", zap.Error(err))
	}

	// ---- actuation sequences ----
	relay := actuator.New(relayLine, timing(cfg), clock.Real(), logger.With(zap.String("component", "relay")))
	indicator := actuator.New(indicatorLine, timing(cfg), clock.Real(), logger.With(zap.String("component", "indicator")))

	// ---- notification queue + capture unit ----
	q := queue.New[worker.Publisher](cfg.Queue.Capacity)

	onAccepted, onDropped := m.CaptureHooks(q.Len)
	unit := capture.New[worker.Publisher](motionLine, q, client, capture.Hooks{
		OnAccepted: onAccepted,
		OnDropped: func() {
			onDropped()
			bus.Publish(events.MotionDropped{At: time.Now().UTC()})
		},
	}, logger.With(zap.String("component", "capture")))

	// ---- consumer task ----
	motion := worker.NewMotionWorker(
		q,
		indicator,
		ratelimiter.New(cfg.MQTT.PublishRate, cfg.MQTT.PublishBurst),
		logger.With(zap.String("component", "motion")),
		worker.MotionHooks{
			OnPublished: func(msgID int) {
				m.PublishResult(nil)
				m.QueueDepth.Set(float64(q.Len()))
				bus.Publish(events.MotionReported{MessageID: msgID, At: time.Now().UTC()})
			},
			OnPublishFailed: func(err error) {
				m.PublishResult(err)
				m.QueueDepth.Set(float64(q.Len()))
				bus.Publish(events.MotionReported{MessageID: -1, Err: err.Error(), At: time.Now().UTC()})
			},
			OnIndicator: func(err error) { m.ActuationResult(indicator.Name(), err) },
		},
	)

	// ---- event handler ----
	svc := service.NewGarageService(client, relay, q, bus, logger.With(zap.String("component", "service")), service.Hooks{
		OnEvent: m.ObserveEvent,
		OnDoor:  func(err error) { m.ActuationResult(relay.Name(), err) },
	})
	svc.Attach(bus)
	defer svc.Detach()

	// ---- background tasks ----
	notifier := systemd.NewNotifier(cfg.Systemd.Notify, logger.With(zap.String("component", "systemd")))

	group := worker.NewGroup(logger)
	group.Add("capture", unit.Run)
	group.Add("motion", motion.Run)
	group.Add("journal-prune", worker.NewPruneWorker(
		repo,
		cfg.Journal.PruneInterval.Std(),
		cfg.Journal.Retention.Std(),
		logger.With(zap.String("component", "prune")),
	).Run)
	if interval := notifier.WatchdogInterval(); interval > 0 {
		group.Add("watchdog", worker.NewWatchdogWorker(interval, notifier.Watchdog, logger).Run)
	}
	if configPath != "" {
		reload := func() (*config.Config, error) { return config.Load(configPath, cmd.Flags()) }
		apply := func(next *config.Config) {
			if err := logging.SetLevel(level, next.Logging.Level); err != nil {
				logger.Warn("ignoring log level from reloaded config", zap.Error(err))
				return
			}
			logger.Info("config reloaded", zap.String("log_level", next.Logging.Level))
		}
		group.Add("config-watcher", config.NewWatcher(configPath, 0, reload, apply, logger.With(zap.String("component", "config"))).Run)
	}

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()
	group.Start(workerCtx)

	client.Start(workerCtx, svc.HandleEvent)

	// ---- HTTP server ----
	var srv *http.Server
	if cfg.HTTP.Addr != "" {
		srv = &http.Server{
			Addr:         cfg.HTTP.Addr,
			Handler:      api.NewRouter(svc, unit, repo, reg, logger.With(zap.String("component", "http"))),
			ReadTimeout:  cfg.HTTP.ReadTimeout.Std(),
			WriteTimeout: cfg.HTTP.WriteTimeout.Std(),
			IdleTimeout:  60 * time.Second,
		}
		go func() {
			logger.Info("http server listening", zap.String("addr", cfg.HTTP.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Fatal("http server error", zap.Error(err))
			}
		}()
	}

	notifier.Ready()
	logger.Info("garage controller started",
		zap.String("broker", cfg.MQTT.BrokerURL),
		zap.String("gpio_driver", cfg.GPIO.Driver),
		zap.Int("queue_capacity", q.Cap()),
	)

	// ---- wait for shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	case <-group.Failed():
		logger.Error("background task failed, shutting down", zap.Error(group.Err()))
	}
	notifier.Stopping()

	// 1. Stop accepting HTTP requests
	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout.Std())
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("http server shutdown error", zap.Error(err))
		}
		cancel()
	}

	// 2. Disconnect; a door sequence already running on the event goroutine completes first
	client.Stop()

	// 3. Stop capture, consumer and housekeeping tasks
	cancelWorkers()
	group.Wait()

	// 4. Broker last so the client's disconnect reaches it
	if embedded != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := embedded.Stop(ctx); err != nil {
			logger.Warn("embedded broker shutdown error", zap.Error(err))
		}
		cancel()
	}

	logger.Info("garage controller stopped")
	return group.Err()
}

// openRepository returns the Postgres journal when a database URL is set and
// the in-memory ring otherwise.
func openRepository(cfg *config.Config, logger *zap.Logger) repository.EventRepository {
	if cfg.Database.URL == "" {
		logger.Info("journal kept in memory", zap.Int("capacity", cfg.Journal.MemoryCapacity))
		return repository.NewMemoryEventRepository(cfg.Journal.MemoryCapacity)
	}

	if err := db.Migrate(cfg.Database.URL); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	logger.Info("migrations applied")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := db.Connect(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	logger.Info("database connected")
	return repository.NewPgEventRepository(pool)
}
