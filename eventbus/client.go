// Package eventbus provides a reconnecting publish/subscribe client for the
// BrewBlox event bus.
//
// The client is a feature: Startup launches a supervisor goroutine that
// connects to the broker and keeps reconnecting with bounded backoff until
// Shutdown. Subscriptions and listeners may be registered at any time,
// including before startup; broker subscriptions are replayed after every
// reconnect so a restarted broker never silently drops them.
//
// Publishing is synchronous and fails fast with a PublishError while the
// connection is down. Inbound traffic is best-effort: malformed payloads and
// listener failures are logged and counted, never raised.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/BrewBlox/brewblox-service/errors"
	"github.com/BrewBlox/brewblox-service/metric"
)

// ConnectionStatus represents the state of the broker connection
type ConnectionStatus int

// Possible connection statuses
const (
	StatusDisconnected ConnectionStatus = iota
	StatusConnecting
	StatusConnected
)

// String returns the string representation of ConnectionStatus
func (s ConnectionStatus) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Callback handles an inbound event. The payload is validated JSON, handed
// over raw so each listener can unmarshal into its own typed structure;
// payloads that fail validation are dropped before dispatch.
// Callbacks run on the broker's delivery goroutine; slow callbacks delay
// later listeners.
type Callback func(ctx context.Context, topic string, payload json.RawMessage)

// listener pairs a subscription filter with a callback
type listener struct {
	filter string
	cb     Callback
}

// Client is the reconnecting event bus client
type Client struct {
	url    string
	logger *slog.Logger

	// Connection options
	connectTimeout time.Duration
	drainTimeout   time.Duration
	retry          errors.RetryConfig
	clientName     string

	// Authentication
	username string
	password string
	token    string

	// TLS
	tlsEnabled  bool
	tlsCertFile string
	tlsKeyFile  string
	tlsCAFile   string

	// Metrics
	metrics *metric.Metrics

	status   atomic.Value // stores ConnectionStatus
	connects atomic.Int64

	mu        sync.Mutex
	conn      *nats.Conn
	subs      []string // subscription filters, in attachment order
	natsSubs  map[string]*nats.Subscription
	listeners []listener
	started   bool

	runCtx    context.Context
	runCancel context.CancelFunc
	connLost  chan struct{}
	done      chan struct{}
}

// NewClient creates a new event bus client for the given broker URL
func NewClient(url string, opts ...ClientOption) (*Client, error) {
	if url == "" {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Client", "NewClient", "url validation")
	}

	c := &Client{
		url:            url,
		logger:         slog.Default(),
		connectTimeout: 5 * time.Second,
		drainTimeout:   5 * time.Second,
		retry:          errors.DefaultRetryConfig(),
		natsSubs:       make(map[string]*nats.Subscription),
		connLost:       make(chan struct{}, 1),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, errors.WrapInvalid(err, "Client", "NewClient", "apply option")
		}
	}

	c.status.Store(StatusDisconnected)
	return c, nil
}

// Name returns the feature name
func (c *Client) Name() string {
	return "eventbus"
}

// Status returns the current connection status
func (c *Client) Status() ConnectionStatus {
	val := c.status.Load()
	if val == nil {
		return StatusDisconnected
	}
	return val.(ConnectionStatus)
}

// IsConnected returns true if the broker connection is up
func (c *Client) IsConnected() bool {
	return c.Status() == StatusConnected
}

func (c *Client) setStatus(status ConnectionStatus) {
	c.status.Store(status)
	if c.metrics != nil {
		c.metrics.RecordBusStatus(status == StatusConnected)
	}
}

// Startup launches the connection supervisor.
// It returns immediately; use WaitForConnection to block until the broker
// is reachable.
func (c *Client) Startup(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "Client", "Startup", "state check")
	}
	c.started = true

	// The connection outlives the startup call, so the supervisor hangs off
	// an internal context cancelled at shutdown.
	c.runCtx, c.runCancel = context.WithCancel(context.Background())
	c.done = make(chan struct{})

	go c.run(c.runCtx)
	return nil
}

// Shutdown stops the supervisor and drains the broker connection.
// Draining is bounded by the drain timeout; a connection that cannot drain
// in time is closed anyway.
func (c *Client) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = false
	conn := c.conn
	c.conn = nil
	c.natsSubs = make(map[string]*nats.Subscription)
	done := c.done
	c.mu.Unlock()

	c.runCancel()

	var drainErr error
	if conn != nil && !conn.IsClosed() {
		drained := make(chan error, 1)
		go func() {
			drained <- conn.Drain()
		}()

		select {
		case err := <-drained:
			if err != nil {
				drainErr = errors.WrapTransient(err, "Client", "Shutdown", "drain connection")
			}
		case <-time.After(c.drainTimeout):
			drainErr = errors.WrapTransient(
				fmt.Errorf("drain timeout after %s", c.drainTimeout),
				"Client", "Shutdown", "drain connection")
			conn.Close()
		case <-ctx.Done():
			drainErr = errors.WrapTransient(ctx.Err(), "Client", "Shutdown", "drain connection")
			conn.Close()
		}
	}

	select {
	case <-done:
	case <-ctx.Done():
		return errors.WrapTransient(ctx.Err(), "Client", "Shutdown", "wait for supervisor")
	}

	c.setStatus(StatusDisconnected)
	return drainErr
}

// run is the connection supervisor. It connects, replays subscriptions, and
// waits for the connection to drop, backing off between attempts. It only
// exits when the context is cancelled at shutdown.
func (c *Client) run(ctx context.Context) {
	defer close(c.done)

	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}

		c.setStatus(StatusConnecting)
		conn, err := c.connect()
		if err != nil {
			c.setStatus(StatusDisconnected)
			delay := c.retry.BackoffDelay(attempt)
			attempt++
			c.logger.Warn("Event bus connection failed",
				"url", c.url, "attempt", attempt, "retry_in", delay, "error", err)

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			continue
		}
		attempt = 0

		// Shutdown may have fired while the dial was in flight. Its drain
		// branch saw a nil conn, so this connection must be closed here or
		// it leaks past Shutdown.
		if ctx.Err() != nil {
			conn.Close()
			return
		}

		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()

		if c.connects.Add(1) > 1 {
			if c.metrics != nil {
				c.metrics.RecordBusReconnect()
			}
			c.logger.Info("Event bus reconnected", "url", c.url)
		} else {
			c.logger.Info("Event bus connected", "url", c.url)
		}

		c.setStatus(StatusConnected)
		c.replaySubscriptions()

		select {
		case <-ctx.Done():
			c.closeConn()
			return
		case <-c.connLost:
			c.setStatus(StatusDisconnected)
			c.logger.Warn("Event bus connection lost", "url", c.url)

			c.mu.Lock()
			c.conn = nil
			c.natsSubs = make(map[string]*nats.Subscription)
			c.mu.Unlock()
		}
	}
}

// closeConn closes and clears the active connection, unless the shutdown
// path already claimed it for draining.
func (c *Client) closeConn() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.natsSubs = make(map[string]*nats.Subscription)
	c.mu.Unlock()

	if conn != nil && !conn.IsClosed() {
		conn.Close()
	}
}

// connect performs a single connection attempt.
// The broker library's own reconnect machinery is disabled: the supervisor
// owns retries so subscription replay is explicit and observable.
func (c *Client) connect() (*nats.Conn, error) {
	opts := []nats.Option{
		nats.NoReconnect(),
		nats.Timeout(c.connectTimeout),
		nats.ClosedHandler(func(_ *nats.Conn) {
			select {
			case c.connLost <- struct{}{}:
			default:
			}
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			subject := ""
			if sub != nil {
				subject = sub.Subject
			}
			c.logger.Error("Event bus async error", "subject", subject, "error", err)
		}),
	}

	if c.username != "" && c.password != "" {
		opts = append(opts, nats.UserInfo(c.username, c.password))
	}
	if c.token != "" {
		opts = append(opts, nats.Token(c.token))
	}
	if c.tlsEnabled {
		if c.tlsCertFile != "" && c.tlsKeyFile != "" {
			opts = append(opts, nats.ClientCert(c.tlsCertFile, c.tlsKeyFile))
		}
		if c.tlsCAFile != "" {
			opts = append(opts, nats.RootCAs(c.tlsCAFile))
		}
	}
	if c.clientName != "" {
		opts = append(opts, nats.Name(c.clientName))
	}

	return nats.Connect(c.url, opts...)
}

// replaySubscriptions re-establishes every registered subscription on the
// fresh connection, in attachment order. Individual failures are logged and
// skipped; the filter stays registered for the next replay.
//
// The lock is held for the whole replay so that a concurrent Subscribe
// cannot interleave with it: both paths go through subscribeLocked, which
// skips filters already subscribed on the current connection.
func (c *Client) replaySubscriptions() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, filter := range c.subs {
		if err := c.subscribeLocked(filter); err != nil {
			c.logger.Error("Subscription replay failed", "filter", filter, "error", err)
		}
	}

	if c.metrics != nil {
		c.metrics.RecordSubscriptionCount(len(c.natsSubs))
	}
	if len(c.subs) > 0 {
		c.logger.Debug("Subscriptions replayed", "count", len(c.natsSubs), "registered", len(c.subs))
	}
}

// subscribeLocked establishes the broker subscription for a filter, if a
// live connection exists and the filter is not already subscribed on it.
// Callers must hold mu: keeping the broker call inside the critical section
// means a filter can never end up subscribed twice on one connection, which
// would dispatch every matching message to each listener twice.
func (c *Client) subscribeLocked(filter string) error {
	if c.conn == nil || !c.conn.IsConnected() {
		return nil
	}
	if _, exists := c.natsSubs[filter]; exists {
		return nil
	}

	sub, err := c.conn.Subscribe(filterToSubject(filter), c.handleMessage)
	if err != nil {
		return err
	}
	c.natsSubs[filter] = sub
	return nil
}

// handleMessage dispatches an inbound broker message to matching listeners.
// Inbound failures never propagate: malformed payloads are dropped and
// listener panics are recovered, both with a log entry and a metric.
func (c *Client) handleMessage(msg *nats.Msg) {
	topic := subjectToTopic(msg.Subject)

	if c.metrics != nil {
		c.metrics.RecordEventReceived(topic)
	}

	if !json.Valid(msg.Data) {
		c.logger.Warn("Dropping event with malformed payload", "topic", topic)
		return
	}
	payload := json.RawMessage(msg.Data)

	c.mu.Lock()
	listeners := make([]listener, len(c.listeners))
	copy(listeners, c.listeners)
	ctx := c.runCtx
	c.mu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}

	for _, l := range listeners {
		if Match(l.filter, topic) {
			c.invokeListener(ctx, l, topic, payload)
		}
	}
}

func (c *Client) invokeListener(ctx context.Context, l listener, topic string, payload json.RawMessage) {
	defer func() {
		if rec := recover(); rec != nil {
			c.logger.Error("Listener callback panicked",
				"filter", l.filter, "topic", topic, "panic", rec)
			if c.metrics != nil {
				c.metrics.RecordCallbackError(l.filter)
			}
		}
	}()
	l.cb(ctx, topic, payload)
}

// Publish marshals message as JSON and publishes it to the given topic.
// Failures are synchronous: an invalid topic, a marshal error, a down
// connection, or a broker error all return a PublishError.
func (c *Client) Publish(_ context.Context, topic string, message any) error {
	if err := ValidateTopic(topic); err != nil {
		return c.publishError(topic, err)
	}

	data, err := json.Marshal(message)
	if err != nil {
		return c.publishError(topic, err)
	}

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil || !conn.IsConnected() {
		return c.publishError(topic, errors.ErrNotConnected)
	}

	if err := conn.Publish(topicToSubject(topic), data); err != nil {
		return c.publishError(topic, err)
	}

	if c.metrics != nil {
		c.metrics.RecordEventPublished(topic)
	}
	return nil
}

func (c *Client) publishError(topic string, err error) error {
	if c.metrics != nil {
		c.metrics.RecordPublishError(topic)
	}
	return &errors.PublishError{Topic: topic, Err: err}
}

// Subscribe registers a subscription filter with the broker.
// Subscribing is idempotent: repeating a filter is a no-op. Filters
// registered before startup or while disconnected are established on the
// next successful connect.
func (c *Client) Subscribe(filter string) error {
	if err := ValidateFilter(filter); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !slices.Contains(c.subs, filter) {
		c.subs = append(c.subs, filter)
	}

	if err := c.subscribeLocked(filter); err != nil {
		// Filter stays registered and is retried on the next reconnect
		return errors.WrapTransient(err, "Client", "Subscribe", "broker subscribe")
	}

	if c.metrics != nil {
		c.metrics.RecordSubscriptionCount(len(c.natsSubs))
	}
	return nil
}

// Unsubscribe removes a subscription filter.
// Listeners attached to the filter stay registered but stop receiving
// traffic unless another subscription covers their topics.
func (c *Client) Unsubscribe(filter string) error {
	c.mu.Lock()
	for i, existing := range c.subs {
		if existing == filter {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			break
		}
	}
	sub := c.natsSubs[filter]
	delete(c.natsSubs, filter)
	count := len(c.natsSubs)
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordSubscriptionCount(count)
	}

	if sub != nil {
		if err := sub.Unsubscribe(); err != nil {
			return errors.WrapTransient(err, "Client", "Unsubscribe", "broker unsubscribe")
		}
	}
	return nil
}

// Subscriptions returns the registered subscription filters in attachment order
func (c *Client) Subscriptions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	filters := make([]string, len(c.subs))
	copy(filters, c.subs)
	return filters
}

// Listen attaches a callback for events matching the given filter.
// Listening does not subscribe: a matching subscription must also be
// registered for events to arrive. Multiple listeners may share a filter;
// they are invoked in attachment order.
func (c *Client) Listen(filter string, cb Callback) error {
	if err := ValidateFilter(filter); err != nil {
		return err
	}
	if cb == nil {
		return errors.WrapInvalid(
			fmt.Errorf("nil callback for filter %q", filter),
			"Client", "Listen", "callback validation")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, listener{filter: filter, cb: cb})
	return nil
}

// WaitForConnection blocks until the broker connection is up or the context
// is cancelled
func (c *Client) WaitForConnection(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return errors.WrapTransient(ctx.Err(), "Client", "WaitForConnection", "wait for broker")
		case <-ticker.C:
			if c.IsConnected() {
				return nil
			}
		}
	}
}
