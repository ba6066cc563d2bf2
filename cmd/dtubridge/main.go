// Hoymiles DTU Bridge
//
// dtubridge receives decoded frames from Hoymiles DTU data loggers, routes
// them by tag, normalizes the telemetry and fans it out to MQTT topics, with
// optional InfluxDB history, a Kafka mirror, daily spreadsheets and a
// WebSocket live feed.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	_ "github.com/nerrad567/hoymiles-dtu-bridge/migrations"

	"github.com/nerrad567/hoymiles-dtu-bridge/internal/api"
	"github.com/nerrad567/hoymiles-dtu-bridge/internal/bridges/dtu"
	"github.com/nerrad567/hoymiles-dtu-bridge/internal/export/spreadsheet"
	"github.com/nerrad567/hoymiles-dtu-bridge/internal/fanout"
	"github.com/nerrad567/hoymiles-dtu-bridge/internal/history"
	"github.com/nerrad567/hoymiles-dtu-bridge/internal/infrastructure/config"
	"github.com/nerrad567/hoymiles-dtu-bridge/internal/infrastructure/database"
	"github.com/nerrad567/hoymiles-dtu-bridge/internal/infrastructure/influxdb"
	"github.com/nerrad567/hoymiles-dtu-bridge/internal/infrastructure/kafka"
	"github.com/nerrad567/hoymiles-dtu-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/hoymiles-dtu-bridge/internal/infrastructure/metrics"
	"github.com/nerrad567/hoymiles-dtu-bridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/hoymiles-dtu-bridge/internal/ingest"
	"github.com/nerrad567/hoymiles-dtu-bridge/internal/router"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
//
// Deferred cleanup runs in reverse start order: ingest sources, API server,
// bridge (drains the queue), sinks, InfluxDB, MQTT, database.
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // startup wiring is linear
	log := logging.Default()
	log.Info("starting Hoymiles DTU bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Database: device inventory and publish failure history.
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	devices := history.NewDeviceRepository(db.DB)
	failures := history.NewFailureRepository(db.DB)

	// MQTT: the broker carries both the fan-out and the bridge LWT.
	topics := fanout.Topics{Namespace: strings.Trim(cfg.Bridge.Namespace, "/")}
	mqttClient, err := mqtt.Connect(cfg.MQTT, mqtt.Availability{
		Topic:   topics.Availability(),
		Online:  fanout.StateOnline,
		Offline: fanout.StateOffline,
	})
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log.Component("mqtt"))
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", mqttClient.ClientID(),
	)

	publisher, err := fanout.New(mqttClient, fanout.Options{
		Namespace:         cfg.Bridge.Namespace,
		LoggerTopicPrefix: cfg.Bridge.LoggerTopicPrefix,
		DiscoveryPrefix:   cfg.Discovery.Prefix,
		Location:          cfg.Location(),
		Logger:            log.Component("fanout"),
	})
	if err != nil {
		return fmt.Errorf("creating publisher: %w", err)
	}

	registry, err := router.NewDefault()
	if err != nil {
		return fmt.Errorf("building router: %w", err)
	}

	checks := map[string]api.HealthChecker{
		"database": db,
		"mqtt":     mqttClient,
	}

	// Sinks, in write order.
	var sinks []dtu.Sink

	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		sinks = append(sinks, dtu.NewInfluxSink(influxClient))
		checks["influxdb"] = influxClient
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	if cfg.Kafka.Mirror.Enabled {
		mirror, mirrorErr := kafka.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.Mirror.Topic)
		if mirrorErr != nil {
			return fmt.Errorf("creating Kafka mirror: %w", mirrorErr)
		}
		defer func() {
			if closeErr := mirror.Close(); closeErr != nil {
				log.Error("error closing Kafka mirror", "error", closeErr)
			}
		}()
		sinks = append(sinks, dtu.NewMirrorSink(mirror))
		log.Info("Kafka mirror enabled", "topic", mirror.Topic())
	}

	if cfg.Export.Spreadsheet.Enabled {
		sheet, sheetErr := spreadsheet.New(cfg.Export.Spreadsheet.Dir, cfg.Location())
		if sheetErr != nil {
			return fmt.Errorf("creating spreadsheet export: %w", sheetErr)
		}
		defer func() {
			if closeErr := sheet.Close(); closeErr != nil {
				log.Error("error closing spreadsheet export", "error", closeErr)
			}
		}()
		sinks = append(sinks, sheet)
		log.Info("spreadsheet export enabled", "dir", cfg.Export.Spreadsheet.Dir)
	}

	// The hub runs for the process lifetime so the bridge can broadcast to it
	// before the API server starts.
	var hub *api.Hub
	if cfg.API.Enabled {
		hub = api.NewHub(cfg.WebSocket, log.Component("websocket"))
		go hub.Run(ctx)
		sinks = append(sinks, hub)
	}

	var discovery map[string][]byte
	if cfg.Discovery.Enabled {
		discovery, err = dtu.LoadDiscovery(cfg.Discovery.Dir)
		if err != nil {
			return fmt.Errorf("loading discovery configs: %w", err)
		}
		log.Info("discovery configs loaded", "dir", cfg.Discovery.Dir, "count", len(discovery))
	}

	bridge, err := dtu.NewBridge(dtu.BridgeOptions{
		Config:    cfg,
		Version:   version,
		MQTT:      mqttClient,
		Router:    registry,
		Publisher: publisher,
		Sinks:     sinks,
		Failures:  failures,
		Inventory: devices,
		Metrics:   metrics.Default(),
		Discovery: discovery,
		Logger:    log.Component("dtu"),
	})
	if err != nil {
		return fmt.Errorf("creating bridge: %w", err)
	}
	if err := bridge.Start(ctx); err != nil {
		return fmt.Errorf("starting bridge: %w", err)
	}
	defer func() {
		log.Info("stopping bridge")
		bridge.Stop()
	}()
	log.Info("bridge started",
		"namespace", cfg.Bridge.Namespace,
		"queue_capacity", cfg.Queue.Capacity,
		"sinks", len(sinks),
	)

	if cfg.API.Enabled {
		var influxConn api.ConnectionChecker
		if influxClient != nil {
			influxConn = influxClient
		}
		srv, srvErr := api.New(api.Deps{
			Config:       cfg.API,
			WS:           cfg.WebSocket,
			Security:     cfg.Security,
			Logger:       log.Component("api"),
			Bridge:       bridge,
			AcceptFrames: cfg.Ingest.HTTP.Enabled,
			Devices:      devices,
			Failures:     failures,
			MQTT:         mqttClient,
			InfluxDB:     influxConn,
			Database:     db,
			Checks:       checks,
			ExternalHub:  hub,
			Version:      version,
		})
		if srvErr != nil {
			return fmt.Errorf("creating API server: %w", srvErr)
		}
		if startErr := srv.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := srv.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("API server disabled")
	}

	stopSources, err := startSources(ctx, cfg, mqttClient, bridge, log)
	if err != nil {
		return err
	}
	defer stopSources()

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// startSources starts the configured frame producers. The returned function
// stops them and waits for the Kafka consumer to exit.
func startSources(ctx context.Context, cfg *config.Config, mqttClient *mqtt.Client, bridge *dtu.Bridge, log *logging.Logger) (func(), error) {
	srcCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	var stops []func()

	stopAll := func() {
		cancel()
		for i := len(stops) - 1; i >= 0; i-- {
			stops[i]()
		}
		wg.Wait()
	}

	if cfg.Ingest.MQTT.Enabled {
		src, err := ingest.NewMQTTSource(mqttClient, bridge, ingest.MQTTSourceOptions{
			Topic:  cfg.Ingest.MQTT.Topic,
			QoS:    byte(cfg.MQTT.QoS), //nolint:gosec // validated 0..2
			Logger: log.Component("ingest.mqtt"),
		})
		if err != nil {
			stopAll()
			return nil, fmt.Errorf("creating MQTT ingest: %w", err)
		}
		if err := src.Start(srcCtx); err != nil {
			stopAll()
			return nil, fmt.Errorf("starting MQTT ingest: %w", err)
		}
		stops = append(stops, func() {
			if err := src.Stop(); err != nil {
				log.Warn("error stopping MQTT ingest", "error", err)
			}
		})
		log.Info("MQTT ingest started", "topic", cfg.Ingest.MQTT.Topic)
	}

	if cfg.Ingest.Kafka.Enabled {
		reader, err := kafka.NewReader(cfg.Kafka.Brokers, cfg.Ingest.Kafka.Topic, cfg.Ingest.Kafka.GroupID)
		if err != nil {
			stopAll()
			return nil, fmt.Errorf("creating Kafka reader: %w", err)
		}
		src, err := ingest.NewKafkaSource(reader, bridge, ingest.KafkaSourceOptions{
			Logger: log.Component("ingest.kafka"),
		})
		if err != nil {
			_ = reader.Close()
			stopAll()
			return nil, fmt.Errorf("creating Kafka ingest: %w", err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := src.Run(srcCtx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("Kafka ingest stopped", "error", err)
			}
		}()
		stops = append(stops, func() {
			wg.Wait()
			if err := reader.Close(); err != nil {
				log.Warn("error closing Kafka reader", "error", err)
			}
		})
		log.Info("Kafka ingest started", "topic", reader.Topic(), "group_id", cfg.Ingest.Kafka.GroupID)
	}

	if cfg.Ingest.HTTP.Enabled {
		log.Info("HTTP ingest enabled", "path", "/api/v1/frames")
	}

	return stopAll, nil
}

// getConfigPath returns the configuration file path.
// Uses DTUBRIDGE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("DTUBRIDGE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
