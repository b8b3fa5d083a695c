package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the Silk harness.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Harness  HarnessConfig  `yaml:"harness"`
	Hardware HardwareConfig `yaml:"hardware"`
	Wpantund WpantundConfig `yaml:"wpantund"`
	Shell    ShellConfig    `yaml:"shell"`
	Database DatabaseConfig `yaml:"database"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// HarnessConfig contains identification and timing for a harness instance.
type HarnessConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`

	// WaitTimeout is the upper bound, in seconds, that a caller blocks in
	// WaitForCompletion before giving up on a wedged device.
	WaitTimeout int `yaml:"wait_timeout"`
}

// HardwareConfig locates the hardware inventory.
type HardwareConfig struct {
	// InventoryPath is the YAML file describing the attached dev boards.
	InventoryPath string `yaml:"inventory_path"`
}

// WpantundConfig controls per-board wpantund supervision.
type WpantundConfig struct {
	// Enabled starts a supervised wpantund for every acquired board.
	Enabled bool `yaml:"enabled"`

	// Path overrides the wpantund binary location.
	Path string `yaml:"path"`

	// Mode is "NCP" or "RCP". Empty defaults to NCP.
	Mode string `yaml:"mode"`

	// PosixAppPath is the OpenThread POSIX app binary, required when
	// Mode is RCP.
	PosixAppPath string `yaml:"posix_app_path"`

	// VerboseDebug enables full syslog output from the daemon.
	VerboseDebug bool `yaml:"verbose_debug"`
}

// ShellConfig contains settings for the external process invoker.
type ShellConfig struct {
	// Path is the shell binary used to run device commands.
	Path string `yaml:"path"`
}

// DatabaseConfig contains SQLite settings for the results store.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings for the event stream.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains InfluxDB connection settings for command telemetry.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: SILK_SECTION_KEY
// For example: SILK_DATABASE_PATH, SILK_MQTT_HOST
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Harness: HarnessConfig{
			ID:          "silk-001",
			Name:        "Silk",
			WaitTimeout: 180,
		},
		Hardware: HardwareConfig{
			InventoryPath: "./configs/hwconfig.yaml",
		},
		Shell: ShellConfig{
			Path: "/bin/sh",
		},
		Database: DatabaseConfig{
			Path:        "./data/silk.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "silk-harness",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: SILK_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SILK_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("SILK_HARDWARE_INVENTORY"); v != "" {
		cfg.Hardware.InventoryPath = v
	}
	if v := os.Getenv("SILK_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("SILK_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("SILK_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
	if v := os.Getenv("SILK_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Harness.ID == "" {
		errs = append(errs, "harness.id is required")
	}
	if c.Harness.WaitTimeout <= 0 {
		errs = append(errs, "harness.wait_timeout must be positive")
	}
	if c.Shell.Path == "" {
		errs = append(errs, "shell.path is required")
	}
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}
	if c.Wpantund.Enabled && strings.EqualFold(c.Wpantund.Mode, "RCP") && c.Wpantund.PosixAppPath == "" {
		errs = append(errs, "wpantund.posix_app_path is required in RCP mode")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetWaitTimeout returns the device wait bound as a Duration.
func (c *Config) GetWaitTimeout() time.Duration {
	return time.Duration(c.Harness.WaitTimeout) * time.Second
}
