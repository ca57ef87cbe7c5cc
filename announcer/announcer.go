// Package announcer periodically publishes the service's health state to the
// event bus, so other services and the UI can discover it and notice when it
// goes away.
package announcer

import (
	"context"
	"log/slog"
	"time"

	"github.com/BrewBlox/brewblox-service/errors"
	"github.com/BrewBlox/brewblox-service/health"
	"github.com/BrewBlox/brewblox-service/repeater"
	"github.com/BrewBlox/brewblox-service/scheduler"
)

// Publisher is the slice of the event bus client the announcer needs
type Publisher interface {
	Publish(ctx context.Context, topic string, message any) error
	WaitForConnection(ctx context.Context) error
	IsConnected() bool
}

// Announcement is the message published to the state topic
type Announcement struct {
	Key       string        `json:"key"`
	Type      string        `json:"type"`
	Timestamp time.Time     `json:"timestamp"`
	Data      health.Status `json:"data"`
}

// impl is the repeat loop behind the announcer feature
type impl struct {
	serviceName string
	topic       string
	interval    time.Duration
	bus         Publisher
	monitor     *health.Monitor
	logger      *slog.Logger
}

// New creates the announcer feature. It publishes an Announcement to
// brewcast/state/<service> every interval while the bus is connected.
func New(
	serviceName string,
	interval time.Duration,
	bus Publisher,
	monitor *health.Monitor,
	runner *scheduler.TaskRunner,
	logger *slog.Logger,
) *repeater.Repeater {
	if logger == nil {
		logger = slog.Default()
	}
	return repeater.New("announcer", &impl{
		serviceName: serviceName,
		topic:       "brewcast/state/" + serviceName,
		interval:    interval,
		bus:         bus,
		monitor:     monitor,
		logger:      logger,
	}, runner, logger)
}

// Prepare waits for the first broker connection so the initial announcement
// is not lost
func (a *impl) Prepare(ctx context.Context) error {
	return a.bus.WaitForConnection(ctx)
}

// Run publishes one announcement, then sleeps for the interval
func (a *impl) Run(ctx context.Context) error {
	err := a.bus.Publish(ctx, a.topic, Announcement{
		Key:       a.serviceName,
		Type:      "service",
		Timestamp: time.Now().UTC(),
		Data:      a.monitor.AggregateHealth(a.serviceName),
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(a.interval):
	}

	if err != nil {
		// Expected while the bus reconnects; the repeater logs it once
		return errors.Wrap(err, "Announcer", "Run", "publish announcement")
	}
	return nil
}
