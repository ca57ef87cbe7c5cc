// Package app wires the framework features into a runnable service.
//
// An App owns the feature registry and the shared infrastructure every
// BrewBlox service needs: the event bus client, the task scheduler, the
// health monitor, the metrics registry, and the HTTP server. Services add
// their own features before Start; the registry starts everything in
// registration order and stops it in reverse.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/BrewBlox/brewblox-service/announcer"
	"github.com/BrewBlox/brewblox-service/config"
	"github.com/BrewBlox/brewblox-service/errors"
	"github.com/BrewBlox/brewblox-service/eventbus"
	"github.com/BrewBlox/brewblox-service/feature"
	"github.com/BrewBlox/brewblox-service/health"
	"github.com/BrewBlox/brewblox-service/metric"
	"github.com/BrewBlox/brewblox-service/scheduler"
	"github.com/BrewBlox/brewblox-service/web"
)

// healthRefreshInterval paces the background sync of feature states into
// the health monitor
const healthRefreshInterval = 5 * time.Second

// App is a configured service instance
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	registry *feature.Registry
	monitor  *health.Monitor
	metrics  *metric.Registry
	bus      *eventbus.Client
	runner   *scheduler.TaskRunner
	web      *web.Server
}

// New creates an App from validated configuration.
// The standard features are registered in dependency order: scheduler,
// event bus, announcer (when enabled), then the web server.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "App", "New", "config validation")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.WrapFatal(err, "App", "New", "config validation")
	}
	if logger == nil {
		logger = slog.Default()
	}

	metrics := metric.NewRegistry()
	registry := feature.NewRegistry(logger)
	registry.OnStartup(metrics.CoreMetrics().RecordStartupDuration)
	monitor := health.NewMonitor()

	busOpts := []eventbus.ClientOption{
		eventbus.WithLogger(logger),
		eventbus.WithName(cfg.Service.Name),
		eventbus.WithMetrics(metrics.CoreMetrics()),
		eventbus.WithConnectTimeout(cfg.Bus.ConnectTimeout.Std()),
		eventbus.WithDrainTimeout(cfg.Bus.DrainTimeout.Std()),
		eventbus.WithRetryConfig(errors.RetryConfig{
			InitialDelay: cfg.Bus.ReconnectWait.Std(),
			MaxDelay:     cfg.Bus.MaxBackoff.Std(),
			Multiplier:   2.0,
			AddJitter:    true,
		}),
	}
	if cfg.Bus.Username != "" {
		busOpts = append(busOpts, eventbus.WithCredentials(cfg.Bus.Username, cfg.Bus.Password))
	}
	if cfg.Bus.Token != "" {
		busOpts = append(busOpts, eventbus.WithToken(cfg.Bus.Token))
	}
	if cfg.Bus.TLS.Enabled {
		busOpts = append(busOpts, eventbus.WithTLS(
			cfg.Bus.TLS.CertFile, cfg.Bus.TLS.KeyFile, cfg.Bus.TLS.CAFile))
	}

	bus, err := eventbus.NewClient(cfg.Bus.URL, busOpts...)
	if err != nil {
		return nil, errors.WrapFatal(err, "App", "New", "create event bus client")
	}

	runner := scheduler.NewTaskRunner(
		scheduler.WithLogger(logger),
		scheduler.WithStopTimeout(cfg.Shutdown.Timeout.Std()),
	)

	webServer := web.NewServer(
		cfg.Service.Name, cfg.Service.Host, cfg.Service.Port,
		registry, monitor,
		web.WithLogger(logger),
		web.WithBus(bus),
		web.WithMetrics(metrics),
	)

	a := &App{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		monitor:  monitor,
		metrics:  metrics,
		bus:      bus,
		runner:   runner,
		web:      webServer,
	}

	if err := registry.Add(runner.Name(), runner); err != nil {
		return nil, err
	}
	if err := registry.Add(bus.Name(), bus); err != nil {
		return nil, err
	}
	if cfg.Announcer.Enabled {
		ann := announcer.New(
			cfg.Service.Name, cfg.Announcer.Interval.Std(),
			bus, monitor, runner, logger)
		if err := registry.Add(ann.Name(), ann); err != nil {
			return nil, err
		}
	}
	if err := registry.Add(webServer.Name(), webServer); err != nil {
		return nil, err
	}

	return a, nil
}

// Config returns the service configuration
func (a *App) Config() *config.Config {
	return a.cfg
}

// Logger returns the service logger
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// Features returns the feature registry
func (a *App) Features() *feature.Registry {
	return a.registry
}

// Bus returns the event bus client
func (a *App) Bus() *eventbus.Client {
	return a.bus
}

// Monitor returns the health monitor
func (a *App) Monitor() *health.Monitor {
	return a.monitor
}

// Metrics returns the metrics registry
func (a *App) Metrics() *metric.Registry {
	return a.metrics
}

// Scheduler returns the task runner
func (a *App) Scheduler() *scheduler.TaskRunner {
	return a.runner
}

// Web returns the HTTP server
func (a *App) Web() *web.Server {
	return a.web
}

// AddFeature registers a service-specific feature.
// Must be called before Start; the feature starts after the standard ones.
func (a *App) AddFeature(f feature.Feature) error {
	if f == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "App", "AddFeature", "feature validation")
	}
	return a.registry.Add(f.Name(), f)
}

// Start starts all registered features in registration order.
// A startup failure stops the features that already started before the
// error is returned.
func (a *App) Start(ctx context.Context) error {
	a.logger.Info("Starting service",
		"service", a.cfg.Service.Name,
		"features", a.registry.Names())

	if err := a.registry.StartAll(ctx); err != nil {
		a.logger.Error("Service startup failed", "error", err)
		if stopErr := a.registry.StopAll(ctx); stopErr != nil {
			a.logger.Error("Cleanup after failed startup reported errors", "error", stopErr)
		}
		return err
	}

	a.refreshHealth()
	if _, err := a.runner.Create("health-refresh", a.healthRefreshLoop); err != nil {
		a.logger.Warn("Health refresh task not started", "error", err)
	}

	a.logger.Info("Service started", "service", a.cfg.Service.Name)
	return nil
}

// Stop stops all features in reverse registration order.
// Individual failures are collected; every feature gets a shutdown attempt.
func (a *App) Stop(ctx context.Context) error {
	a.logger.Info("Stopping service", "service", a.cfg.Service.Name)

	err := a.registry.StopAll(ctx)
	if err != nil {
		a.logger.Error("Service shutdown reported errors", "error", err)
	} else {
		a.logger.Info("Service stopped", "service", a.cfg.Service.Name)
	}
	return err
}

// Run starts the service and blocks until the context is cancelled or a
// SIGINT/SIGTERM arrives, then stops it with the configured shutdown timeout.
func (a *App) Run(ctx context.Context) error {
	signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	if err := a.Start(signalCtx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}

	<-signalCtx.Done()
	a.logger.Info("Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(), a.cfg.Shutdown.Timeout.Std())
	defer shutdownCancel()

	return a.Stop(shutdownCtx)
}

// healthRefreshLoop keeps the health monitor in sync with feature states
// and the bus connection
func (a *App) healthRefreshLoop(ctx context.Context) error {
	ticker := time.NewTicker(healthRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			a.refreshHealth()
		}
	}
}

// refreshHealth maps feature lifecycle states into the health monitor and
// feature state metrics. The bus is special-cased: a started bus that has
// lost its connection is degraded, not healthy.
func (a *App) refreshHealth() {
	core := a.metrics.CoreMetrics()
	for _, info := range a.registry.Snapshot() {
		status := health.FromFeatureState(info.Name, info.State, info.LastErr)
		if info.Name == a.bus.Name() && info.State == feature.StateStarted && !a.bus.IsConnected() {
			status = health.NewDegraded(info.Name, "Reconnecting to event bus")
		}
		a.monitor.Update(info.Name, status)
		core.RecordFeatureState(info.Name, int(info.State))
		core.RecordHealthStatus(info.Name, status.IsHealthy())
	}
}
