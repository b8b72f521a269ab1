// adcbridge exposes Alarm.com camera brightness settings to Home Assistant.
//
// It polls the Alarm.com web API for cameras and their configuration
// options, publishes every brightness option as an MQTT-discovered number
// entity, and writes values set from Home Assistant (or the REST API) back
// to the camera.
//
// Usage:
//
//	adcbridge                          run the bridge
//	adcbridge -issue-token <subject>   print a signed API token and exit
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/nerrad567/gray-logic-alarmdotcom/migrations"

	"github.com/nerrad567/gray-logic-alarmdotcom/internal/alarmdotcom"
	"github.com/nerrad567/gray-logic-alarmdotcom/internal/api"
	"github.com/nerrad567/gray-logic-alarmdotcom/internal/entity"
	"github.com/nerrad567/gray-logic-alarmdotcom/internal/hass"
	"github.com/nerrad567/gray-logic-alarmdotcom/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-alarmdotcom/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-alarmdotcom/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-alarmdotcom/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-alarmdotcom/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-alarmdotcom/internal/number"
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

// defaultTokenTTL is the lifetime of tokens minted with -issue-token.
const defaultTokenTTL = 30 * 24 * time.Hour

func main() {
	issueSubject := flag.String("issue-token", "", "print an API token for `subject` and exit")
	tokenTTL := flag.Duration("token-ttl", defaultTokenTTL, "lifetime of the issued token")
	flag.Parse()

	if *issueSubject != "" {
		if err := issueToken(os.Stdout, *issueSubject, *tokenTTL); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Cancel on Ctrl+C or SIGTERM for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// issueToken loads the configuration and writes a signed API token to w.
func issueToken(w io.Writer, subject string, ttl time.Duration) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	token, err := api.IssueToken(cfg.Security.JWT.Secret, subject, ttl)
	if err != nil {
		return fmt.Errorf("issuing token: %w", err)
	}
	if _, err := fmt.Fprintln(w, token); err != nil {
		return fmt.Errorf("writing token: %w", err)
	}
	return nil
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Alarm.com bridge",
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
	defer func() {
		if closeErr := log.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "closing log output: %v\n", closeErr)
		}
	}()
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
		"output", cfg.Logging.Output,
	)

	// Open database
	db, err := database.Open(ctx, database.Config{
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

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	registry := entity.NewRegistry(entity.NewSQLiteRepository(db.DB))
	registry.SetLogger(log)
	if refreshErr := registry.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading entity registry: %w", refreshErr)
	}
	log.Info("entity registry initialised", "entities", registry.Count())

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
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	// Connect to InfluxDB (optional)
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
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	controller, err := startController(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer controller.Stop()

	opts := hass.PlatformOptions{
		MQTT: mqttClient,
		Topics: mqtt.Topics{
			DiscoveryPrefix: cfg.HomeAssistant.DiscoveryPrefix,
			NodeID:          cfg.HomeAssistant.NodeID,
		},
		QoS:            mqttClient.QoS(),
		CommandTimeout: cfg.GetCommandTimeout(),
		Version:        version,
		Registry:       registry,
		Logger:         log,
	}
	if influxClient != nil {
		opts.Values = influxClient
	}
	platform, err := hass.NewPlatform(opts)
	if err != nil {
		return fmt.Errorf("creating Home Assistant platform: %w", err)
	}

	// Start the API before adding entities so the first states reach
	// websocket subscribers.
	var apiServer *api.Server
	if cfg.API.Enabled {
		apiServer, err = api.New(api.Deps{
			Config:         cfg.API,
			WS:             cfg.WebSocket,
			Security:       cfg.Security,
			Logger:         log,
			Numbers:        platform,
			History:        registry,
			Status:         controller,
			MQTT:           mqttClient,
			Version:        version,
			CommandTimeout: cfg.GetCommandTimeout(),
		})
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		if startErr := apiServer.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := apiServer.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
		platform.SetBroadcaster(apiServer.Hub())
	} else {
		log.Info("API server disabled")
	}

	if startErr := platform.Start(ctx); startErr != nil {
		return fmt.Errorf("starting Home Assistant platform: %w", startErr)
	}
	defer platform.Stop()

	if setupErr := number.Setup(ctx, controller, platform.AddEntities, log); setupErr != nil {
		return fmt.Errorf("setting up number entities: %w", setupErr)
	}
	log.Info("number entities exported", "count", len(platform.Entities()))

	// Only a clean first refresh proves an entity is gone rather than unreachable.
	if st := controller.Status(); st.LastError == "" && !st.LastRefresh.IsZero() {
		pruned, pruneErr := platform.PruneStale(ctx)
		if pruneErr != nil {
			log.Warn("removing stale entities failed", "error", pruneErr)
		} else if pruned > 0 {
			log.Info("stale entities removed", "count", pruned)
		}
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient, apiServer); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order: platform, API server, controller,
	// InfluxDB, MQTT, database, log output.
	return nil
}

// startController creates the Alarm.com client and controller, performs
// the first refresh and starts polling.
//
// A failed first refresh is logged, not returned. Entities are discovered
// from that first refresh only, so cameras missing from it are not exported
// until the next restart.
func startController(ctx context.Context, cfg *config.Config, log *logging.Logger) (*alarmdotcom.Controller, error) {
	client := alarmdotcom.NewClient(alarmdotcom.ClientConfig{
		BaseURL:   cfg.AlarmDotCom.BaseURL,
		Token:     cfg.AlarmDotCom.Token,
		Timeout:   cfg.GetRequestTimeout(),
		UserAgent: "adcbridge/" + version,
		Logger:    log,
	})

	controller, err := alarmdotcom.NewController(alarmdotcom.ControllerOptions{
		API:          client,
		PollInterval: cfg.GetPollInterval(),
		MaxParallel:  cfg.AlarmDotCom.MaxParallel,
		Logger:       log,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Alarm.com controller: %w", err)
	}

	if refreshErr := controller.Refresh(ctx); refreshErr != nil {
		log.Warn("initial Alarm.com refresh failed", "error", refreshErr)
	}
	log.Info("Alarm.com controller ready",
		"base_url", cfg.AlarmDotCom.BaseURL,
		"cameras", len(controller.Cameras()),
	)

	controller.Start(ctx)
	return controller, nil
}

// getConfigPath returns the configuration file path.
// Uses GRAYLOGIC_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GRAYLOGIC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
//
// influxClient and apiServer may be nil when disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client, apiServer *api.Server) error {
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

	if apiServer != nil {
		if err := apiServer.HealthCheck(ctx); err != nil {
			return fmt.Errorf("api: %w", err)
		}
	}

	return nil
}
