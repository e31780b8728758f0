// Fusion Bridge - Physical Security Event Hub
//
// This is the main entry point for the Fusion Bridge service. Fusion
// Bridge normalises raw vendor payloads from physical security and IoT
// connectors into standardized events, evaluates rule-based
// automations against them, and dispatches resulting actions back out
// through vendor APIs.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/austin-smith/fusion-bridge-sub003/migrations"

	"github.com/austin-smith/fusion-bridge-sub003/internal/api"
	"github.com/austin-smith/fusion-bridge-sub003/internal/automation"
	"github.com/austin-smith/fusion-bridge-sub003/internal/connector"
	"github.com/austin-smith/fusion-bridge-sub003/internal/connector/netbox"
	"github.com/austin-smith/fusion-bridge-sub003/internal/connector/piko"
	"github.com/austin-smith/fusion-bridge-sub003/internal/connector/yolink"
	"github.com/austin-smith/fusion-bridge-sub003/internal/device"
	"github.com/austin-smith/fusion-bridge-sub003/internal/deviceactions"
	"github.com/austin-smith/fusion-bridge-sub003/internal/drivers"
	"github.com/austin-smith/fusion-bridge-sub003/internal/event"
	"github.com/austin-smith/fusion-bridge-sub003/internal/eventstore"
	"github.com/austin-smith/fusion-bridge-sub003/internal/infrastructure/config"
	"github.com/austin-smith/fusion-bridge-sub003/internal/infrastructure/database"
	"github.com/austin-smith/fusion-bridge-sub003/internal/infrastructure/influxdb"
	"github.com/austin-smith/fusion-bridge-sub003/internal/infrastructure/logging"
	"github.com/austin-smith/fusion-bridge-sub003/internal/infrastructure/mqtt"
	"github.com/austin-smith/fusion-bridge-sub003/internal/location"
	"github.com/austin-smith/fusion-bridge-sub003/internal/pipeline"
	"github.com/austin-smith/fusion-bridge-sub003/internal/state"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for
// testability. Returning an error allows main to handle exit codes
// consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Fusion Bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Repositories over the shared database handle
	deviceRepo := device.NewSQLiteRepository(db.DB)
	connectorRepo := connector.NewSQLiteRepository(db.DB)
	locationRepo := location.NewSQLiteRepository(db.DB)
	automationRepo := automation.NewSQLiteRepository(db.DB)
	store := eventstore.NewSQLiteStore(db.DB)

	// Device registry: cached reads for the hot path
	deviceRegistry := device.NewRegistry(deviceRepo)
	deviceRegistry.SetLogger(log)
	if refreshErr := deviceRegistry.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading device registry: %w", refreshErr)
	}

	// Automation registry: validated rules, cached for per-event listing
	automationRegistry := automation.NewRegistry(automationRepo, automation.DefaultCatalog())
	automationRegistry.SetLogger(log)
	if refreshErr := automationRegistry.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading automation registry: %w", refreshErr)
	}
	log.Info("registries initialised")

	// Outbound vendor clients share one HTTP client
	httpClient := &http.Client{
		Timeout: time.Duration(cfg.Automation.HTTPTimeout) * time.Second,
	}
	yolinkClient := drivers.NewYoLinkClient(httpClient)
	yolinkClient.SetLogger(log)
	pikoClient := drivers.NewPikoClient(httpClient)
	pikoClient.SetLogger(log)
	netboxClient := drivers.NewNetBoxClient(httpClient)
	netboxClient.SetLogger(log)

	driverRegistry := drivers.NewRegistry(connectorRepo, map[connector.Category]drivers.Driver{
		connector.CategoryPiko: pikoClient,
	})
	driverRegistry.SetLogger(log)

	// Device action service: abstract state changes routed to vendor
	// command handlers
	actionService := deviceactions.NewService(deviceRegistry, connectorRepo,
		deviceactions.NewRegistry(
			deviceactions.NewYoLinkHandler(yolinkClient),
			deviceactions.NewNetBoxHandler(netboxClient),
		))
	actionService.SetLogger(log)

	// Automation engine and action dispatcher
	engine := automation.NewEngine(store)
	engine.SetLogger(log)
	dispatcher := automation.NewDispatcher(nil, driverRegistry, actionService, httpClient)
	dispatcher.SetLogger(log)

	// API server is created before the pipeline so its websocket hub
	// can receive pipeline broadcasts
	srv, err := api.New(api.Deps{
		Config:        cfg.API,
		WS:            cfg.WebSocket,
		Logger:        log,
		Devices:       deviceRegistry,
		DeviceRepo:    deviceRepo,
		Connectors:    connectorRepo,
		Locations:     locationRepo,
		Automations:   automationRegistry,
		DeviceActions: actionService,
		Events:        store,
		Version:       version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log)
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Event pipeline: parse, persist, evaluate, dispatch
	fanout := &eventFanout{hub: srv.Hub(), mqtt: mqttClient, log: log}
	opts := []pipeline.Option{
		pipeline.WithLogger(log),
		pipeline.WithBroadcaster(fanout),
	}
	if cfg.Automation.EvaluationTimeout > 0 {
		opts = append(opts, pipeline.WithEvaluationTimeout(time.Duration(cfg.Automation.EvaluationTimeout)*time.Second))
	}
	if influxClient != nil {
		opts = append(opts, pipeline.WithTelemetry(influxClient))
	}
	pipe := pipeline.New(deviceRegistry, connectorRepo, locationRepo, store, engine, automationRegistry, dispatcher, opts...)

	if err := registerParsers(ctx, pipe, connectorRepo, deviceRegistry, log); err != nil {
		return fmt.Errorf("registering parsers: %w", err)
	}

	// Route raw vendor payloads into the pipeline. The connector id is
	// the final topic segment.
	rawPrefix := strings.TrimSuffix(mqtt.Topics{}.AllConnectorRaw(), "+")
	err = mqttClient.Subscribe(mqtt.Topics{}.AllConnectorRaw(), byte(cfg.MQTT.QoS), func(topic string, payload []byte) error {
		connectorID := strings.TrimPrefix(topic, rawPrefix)
		if connectorID == "" || strings.Contains(connectorID, "/") {
			return fmt.Errorf("unexpected raw topic %q", topic)
		}
		return pipe.HandleRaw(ctx, connectorID, payload)
	})
	if err != nil {
		return fmt.Errorf("subscribing to raw payloads: %w", err)
	}
	log.Info("raw payload subscription active", "topic", mqtt.Topics{}.AllConnectorRaw())

	// Start the REST API and websocket server
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := srv.Close(); closeErr != nil {
			log.Error("error stopping API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "host", cfg.API.Host, "port", cfg.API.Port)

	// Periodic event retention sweep
	if cfg.Events.RetentionDays > 0 {
		go retentionLoop(ctx, store, cfg.Events, log)
	} else {
		log.Info("event retention cleanup disabled")
	}

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. InfluxDB (if enabled)
	// 3. MQTT
	// 4. Database

	log.Info("Fusion Bridge stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses FUSION_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("FUSION_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// registerParsers builds one parser per stored connector and binds it
// in the pipeline. Disabled connectors are skipped; their raw payloads
// are rejected at parse-routing time.
func registerParsers(ctx context.Context, pipe *pipeline.Pipeline, connectorRepo connector.Repository, deviceRegistry *device.Registry, log *logging.Logger) error {
	idx, err := event.NewIndex(event.DefaultHierarchy())
	if err != nil {
		return fmt.Errorf("building event index: %w", err)
	}
	types := device.NewTypeRegistry(device.DefaultTypeTables(), log)
	translator := state.NewTranslator(state.DefaultTokenTables(), log)

	connectors, err := connectorRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("listing connectors: %w", err)
	}

	registered := 0
	for _, conn := range connectors {
		if !conn.Enabled {
			log.Info("skipping disabled connector", "connector_id", conn.ID)
			continue
		}

		switch conn.Category {
		case connector.CategoryYoLink:
			classifier, err := yolink.NewClassifier(idx)
			if err != nil {
				return fmt.Errorf("yolink classifier for %s: %w", conn.ID, err)
			}
			pipe.RegisterParser(conn.ID, yolink.NewParser(conn.ID, classifier, idx, types, translator, deviceRegistry, deviceRegistry, log))

		case connector.CategoryPiko:
			classifier, err := piko.NewClassifier(idx)
			if err != nil {
				return fmt.Errorf("piko classifier for %s: %w", conn.ID, err)
			}
			pipe.RegisterParser(conn.ID, piko.NewParser(conn.ID, classifier, idx, pikoResources(conn, log), log))

		case connector.CategoryNetBox:
			classifier, err := netbox.NewClassifier(idx)
			if err != nil {
				return fmt.Errorf("netbox classifier for %s: %w", conn.ID, err)
			}
			pipe.RegisterParser(conn.ID, netbox.NewParser(conn.ID, classifier, idx, types, translator, deviceRegistry, deviceRegistry, log))

		default:
			log.Warn("no parser for connector category", "connector_id", conn.ID, "category", conn.Category)
			continue
		}

		registered++
		log.Info("parser registered", "connector_id", conn.ID, "category", conn.Category)
	}

	log.Info("parsers registered", "count", registered)
	return nil
}

// pikoResources reads the connector's synced resource map from its
// config: resource id -> {type, subtype}. Piko payloads reference
// devices by resource id only, so classification needs this ahead of
// time.
func pikoResources(conn connector.Connector, log *logging.Logger) map[string]device.TypedDeviceInfo {
	raw, ok := conn.Config["resources"].(map[string]any)
	if !ok {
		return nil
	}

	resources := make(map[string]device.TypedDeviceInfo, len(raw))
	for resourceID, entry := range raw {
		fields, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		typ, _ := fields["type"].(string)
		var subtype *device.Subtype
		if s, ok := fields["subtype"].(string); ok && s != "" {
			st := device.Subtype(s)
			subtype = &st
		}
		info, err := device.NewTypedDeviceInfo(device.DeviceType(typ), subtype)
		if err != nil {
			log.Warn("skipping invalid piko resource mapping",
				"connector_id", conn.ID,
				"resource_id", resourceID,
				"error", err,
			)
			continue
		}
		resources[resourceID] = info
	}
	return resources
}

// retentionLoop prunes events past the configured retention window at
// a fixed interval until the context is cancelled.
func retentionLoop(ctx context.Context, store eventstore.Store, cfg config.EventsConfig, log *logging.Logger) {
	interval := time.Duration(cfg.CleanupInterval) * time.Minute
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info("event retention cleanup active",
		"retention_days", cfg.RetentionDays,
		"interval", interval,
	)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().UTC().AddDate(0, 0, -cfg.RetentionDays)
			deleted, err := store.DeleteOlderThan(ctx, cutoff)
			if err != nil {
				log.Error("event retention sweep failed", "error", err)
				continue
			}
			if deleted > 0 {
				log.Info("event retention sweep", "deleted", deleted, "cutoff", cutoff)
			}
		}
	}
}

// healthCheck verifies all infrastructure connections are healthy.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}

// eventFanout delivers each standardized event to websocket
// subscribers and republishes it on the per-connector event topic so
// other MQTT consumers can follow the normalised stream.
type eventFanout struct {
	hub  *api.Hub
	mqtt *mqtt.Client
	log  *logging.Logger
}

// BroadcastEvent implements pipeline.Broadcaster.
func (f *eventFanout) BroadcastEvent(ev *event.StandardizedEvent) {
	if ev == nil {
		return
	}

	f.hub.BroadcastEvent(ev)

	payload, err := json.Marshal(ev)
	if err != nil {
		f.log.Error("marshalling event for MQTT", "event_id", ev.EventID, "error", err)
		return
	}
	topic := mqtt.Topics{}.Event(ev.ConnectorID)
	if err := f.mqtt.Publish(topic, payload, 0, false); err != nil {
		f.log.Warn("publishing normalised event", "topic", topic, "error", err)
	}
}
