// Hearth Core - LLM-driven smart home control.
//
// This is the main entry point for the Hearth Core service. It wires
// the capture controller, transcriber, model client, policy and the
// orchestration engine behind an HTTP command surface and an MQTT
// presence.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/hearth-home/hearth-core/migrations"

	"github.com/hearth-home/hearth-core/internal/api"
	"github.com/hearth-home/hearth-core/internal/capture"
	"github.com/hearth-home/hearth-core/internal/homeassistant"
	"github.com/hearth-home/hearth-core/internal/infrastructure/config"
	"github.com/hearth-home/hearth-core/internal/infrastructure/database"
	"github.com/hearth-home/hearth-core/internal/infrastructure/influxdb"
	"github.com/hearth-home/hearth-core/internal/infrastructure/logging"
	"github.com/hearth-home/hearth-core/internal/infrastructure/mqtt"
	"github.com/hearth-home/hearth-core/internal/interaction"
	"github.com/hearth-home/hearth-core/internal/llm"
	"github.com/hearth-home/hearth-core/internal/orchestrator"
	"github.com/hearth-home/hearth-core/internal/policy"
	"github.com/hearth-home/hearth-core/internal/transcribe"
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

// Interaction log retention.
const (
	interactionRetention = 90 * 24 * time.Hour
	pruneInterval        = 24 * time.Hour
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for
// testability.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Hearth Core",
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

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)

	// Open database and run migrations
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

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)

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
		log.Info("MQTT connected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	// Connect to InfluxDB (optional). A disabled or absent InfluxDB
	// degrades to no-op telemetry, never to a startup failure.
	metrics := &influxdb.Client{}
	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(cfg.InfluxDB)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
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
		metrics = influxClient
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Capture controller, publishing state transitions to the broker
	topics := mqtt.Topics{}
	recorder := capture.New(capture.Config{
		Binary: cfg.Audio.Binary,
		Args: capture.FFmpegArgs(
			cfg.Audio.Device,
			cfg.Audio.SampleRate,
			time.Duration(cfg.Audio.MaxDuration)*time.Second,
			cfg.Audio.AssetPath,
		),
		AssetPath:         cfg.Audio.AssetPath,
		SupervisorTimeout: time.Duration(cfg.Audio.SupervisorTimeout) * time.Second,
	}, log)
	recorder.SetOnChange(func(state capture.State) {
		payload, _ := json.Marshal(map[string]string{"state": string(state)})
		if pubErr := mqttClient.PublishRetained(topics.CaptureState(), payload); pubErr != nil {
			log.Warn("capture state publish failed", "error", pubErr)
		}
	})

	// Domain clients
	haClient := homeassistant.New(cfg.HomeAssistant)
	llmClient := llm.New(cfg.LLM)
	transcriber := transcribe.New(cfg.Transcribe)
	checker := policy.New(cfg.Policy.DenyServices, cfg.Policy.AllowServices)
	interactionRepo := interaction.NewSQLiteRepository(db.DB)

	engine := orchestrator.New(orchestrator.Deps{
		Home:        haClient,
		Planner:     llmClient,
		Recorder:    recorder,
		Transcriber: transcriber,
		Checker:     checker,
		Publisher:   mqttClient,
		Metrics:     metrics,
		Topics:      topics,
		Log:         interactionRepo,
		Logger:      log.Logger,
	}, orchestrator.Options{
		TwoStep: cfg.LLM.TwoStep,
	})

	// HTTP command surface
	apiServer, err := api.New(api.Deps{
		Config:       cfg.API,
		Logger:       log,
		Engine:       engine,
		Interactions: interactionRepo,
		Health: map[string]api.HealthChecker{
			"database":      db.HealthCheck,
			"mqtt":          mqttClient.HealthCheck,
			"homeassistant": haClient.HealthCheck,
		},
		Version: version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	go pruneLoop(ctx, interactionRepo, log)

	// Verify infrastructure connections before declaring ready
	if err := healthCheck(ctx, db, mqttClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	// Deferred Close() calls run in reverse order:
	// API server, InfluxDB (if enabled), MQTT, database.

	log.Info("Hearth Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses HEARTH_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("HEARTH_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies the infrastructure connections are healthy.
// Home Assistant and the model endpoint are checked lazily per request
// instead; they may come and go without taking Hearth down.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	return nil
}

// pruneLoop trims old interaction rows once a day.
func pruneLoop(ctx context.Context, repo interaction.Repository, log *logging.Logger) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := repo.Prune(ctx, interactionRetention)
			if err != nil {
				log.Error("interaction prune failed", "error", err)
				continue
			}
			if n > 0 {
				log.Info("interaction log pruned", "removed", n)
			}
		}
	}
}
