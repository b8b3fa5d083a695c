// Silk harness entry point.
//
// The binary wires the full bench together: configuration, logging,
// the results database, the MQTT event stream, InfluxDB telemetry, the
// hardware inventory and the shell runner that executes every device
// command. Once initialised it holds the bench open until it receives
// an interrupt.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/openthread/silk-go/migrations"

	"github.com/openthread/silk-go/internal/hardware"
	"github.com/openthread/silk-go/internal/harness"
	"github.com/openthread/silk-go/internal/infrastructure/config"
	"github.com/openthread/silk-go/internal/infrastructure/database"
	"github.com/openthread/silk-go/internal/infrastructure/influxdb"
	"github.com/openthread/silk-go/internal/infrastructure/logging"
	"github.com/openthread/silk-go/internal/infrastructure/mqtt"
	"github.com/openthread/silk-go/internal/process"
	"github.com/openthread/silk-go/internal/results"
	"github.com/openthread/silk-go/internal/shell"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

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
func run(ctx context.Context) error {
	// Use the default logger until config is loaded.
	log := logging.Default()
	log.Info("starting Silk harness",
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

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	repo := results.NewSQLiteRepository(db.DB)

	registry := hardware.NewRegistry()
	registry.SetLogger(log)
	if cfg.Hardware.InventoryPath != "" {
		if loadErr := registry.Load(cfg.Hardware.InventoryPath); loadErr != nil {
			return fmt.Errorf("loading hardware inventory: %w", loadErr)
		}
		log.Info("hardware inventory loaded",
			"path", cfg.Hardware.InventoryPath,
			"modules", len(registry.Modules()),
		)
	} else {
		log.Warn("no hardware inventory configured, bench is empty")
	}

	runner := shell.NewRunner(cfg.Shell.Path)
	runner.SetLogger(log)

	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
	} else {
		log.Info("MQTT disabled")
	}

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

	opts := harness.Options{
		HarnessID:   cfg.Harness.ID,
		Registry:    registry,
		Runner:      runner,
		Results:     repo,
		Logger:      log,
		WaitTimeout: time.Duration(cfg.Harness.WaitTimeout) * time.Second,
	}
	// Assign only when present; a typed nil in the interface field would
	// defeat the harness's nil checks.
	if mqttClient != nil {
		opts.Events = mqttClient
	}
	if influxClient != nil {
		opts.Telemetry = influxClient
	}
	if cfg.Wpantund.Enabled {
		opts.Daemons = &harness.DaemonOptions{
			Mode:         process.ThreadMode(strings.ToUpper(cfg.Wpantund.Mode)),
			WpantundPath: cfg.Wpantund.Path,
			PosixAppPath: cfg.Wpantund.PosixAppPath,
			VerboseDebug: cfg.Wpantund.VerboseDebug,
		}
		log.Info("wpantund supervision enabled", "mode", cfg.Wpantund.Mode)
	}

	h, err := harness.New(opts)
	if err != nil {
		return fmt.Errorf("creating harness: %w", err)
	}
	defer func() {
		if releaseErr := h.ReleaseAll(); releaseErr != nil {
			log.Error("error releasing boards", "error", releaseErr)
		}
	}()

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, bench ready, waiting for shutdown signal",
		"harness", cfg.Harness.ID,
	)

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	log.Info("Silk harness stopped")
	return nil
}

// getConfigPath returns the configuration file path, preferring the
// SILK_CONFIG environment variable.
func getConfigPath() string {
	if path := os.Getenv("SILK_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies the infrastructure connections. The MQTT and
// InfluxDB clients may be nil when disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
