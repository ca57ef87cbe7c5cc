// Package brewblox is the root of the BrewBlox service scaffolding: the
// shared Go foundation for services in a BrewBlox installation.
//
// A BrewBlox service is a collection of features. A feature is anything with
// a lifecycle: it starts when the service starts and stops when the service
// stops. The scaffolding ships the features every service needs and leaves
// room for service-specific ones.
//
// # Architecture
//
//	┌─────────────────────────────────────┐
//	│              App                    │  Feature wiring
//	│     (config, logging, signals)      │  Run loop
//	└─────────────────────────────────────┘
//	           ↓ orchestrates
//	┌─────────────────────────────────────┐
//	│           Features                  │  scheduler, eventbus,
//	│  (startup order, reverse shutdown)  │  announcer, web, yours
//	└─────────────────────────────────────┘
//	           ↓ communicate via
//	┌─────────────────────────────────────┐
//	│          Event Bus                  │  brewcast/# topics,
//	│   (publish, subscribe, listen)      │  JSON payloads
//	└─────────────────────────────────────┘
//
// # Packages
//
// Lifecycle:
//   - feature: Feature interface and ordered registry
//   - app: Standard feature wiring and the service run loop
//   - scheduler: Long-running task management
//   - repeater: Prepare-once, run-forever loops
//
// Messaging:
//   - eventbus: Reconnecting pub/sub client with MQTT-style topics
//   - announcer: Periodic service state broadcasts
//
// Infrastructure:
//   - config: Layered JSON configuration with env overrides
//   - errors: Structured error handling and retry backoff
//   - health: Per-feature health tracking and aggregation
//   - metric: Prometheus metrics
//   - web: HTTP surface (probes, status, metrics, debug)
//
// # Usage
//
// A service embeds the scaffolding and adds its own features:
//
//	cfg := config.Default()
//	cfg.Service.Name = "spark-one"
//
//	service, _ := app.New(cfg, logger)
//	service.AddFeature(NewSparkConnection(service.Bus()))
//	service.Run(context.Background())
//
// Features exchange events over the bus using `/`-separated topics.
// Subscriptions accept MQTT-style wildcards: `+` matches one segment,
// a trailing `#` matches one or more:
//
//	bus := service.Bus()
//	bus.Subscribe("brewcast/state/#")
//	bus.Listen("brewcast/state/#", func(ctx context.Context, topic string, payload json.RawMessage) {
//	    // inbound callback errors are logged, never fatal
//	})
//	bus.Publish(ctx, "brewcast/state/spark-one", state)
//
// The bus reconnects on its own with bounded backoff and replays all
// subscriptions after every reconnect. Publishing while disconnected fails
// fast with a PublishError; subscriptions made while disconnected are
// applied on the next connect.
package brewblox
