package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Logging     LoggingConfig     `mapstructure:"logging"`
	Serial      SerialConfig      `mapstructure:"serial"`
	Database    DatabaseConfig    `mapstructure:"database"`
	AddressBook AddressBookConfig `mapstructure:"addressbook"`
	Web         WebConfig         `mapstructure:"web"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"` // empty logs to stderr
}

// SerialConfig holds the programming cable settings
type SerialConfig struct {
	Port          string `mapstructure:"port"`
	BaudRate      int    `mapstructure:"baud_rate"`
	ReadTimeoutMS int    `mapstructure:"read_timeout_ms"`
}

// ReadTimeout returns the per-read timeout as a duration.
func (s SerialConfig) ReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutMS) * time.Millisecond
}

// DatabaseConfig holds the address book store location
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// AddressBookConfig holds address book import and sync settings
type AddressBookConfig struct {
	SourceURL    string        `mapstructure:"source_url"`
	BatchSize    int           `mapstructure:"batch_size"`
	MaxContacts  int           `mapstructure:"max_contacts"` // 0 for no limit
	Country      string        `mapstructure:"country"`      // empty exports every country
	SyncInterval time.Duration `mapstructure:"sync_interval"`
}

// WebConfig holds web API configuration
type WebConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled    bool             `mapstructure:"enabled"`
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// PrometheusConfig holds Prometheus metrics configuration
type PrometheusConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

// Load loads configuration from file and environment variables
func Load(configFile string) (*Config, error) {
	// Set defaults
	setDefaults()

	// Set config file
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("rt4d")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.config/rt4d")
		viper.AddConfigPath("/etc/rt4d")
	}

	// Environment variables: RT4D_SERIAL_PORT overrides serial.port
	viper.SetEnvPrefix("RT4D")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found is OK, use defaults
		} else if os.IsNotExist(err) {
			// File explicitly specified but doesn't exist - that's also OK
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Unmarshal to struct
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
	viper.SetDefault("logging.file", "")

	// Serial defaults
	viper.SetDefault("serial.port", "")
	viper.SetDefault("serial.baud_rate", 115200)
	viper.SetDefault("serial.read_timeout_ms", 10000)

	// Database defaults
	viper.SetDefault("database.path", "rt4d.db")

	// Address book defaults
	viper.SetDefault("addressbook.source_url", "https://radioid.net/static/user.csv")
	viper.SetDefault("addressbook.batch_size", 1000)
	viper.SetDefault("addressbook.max_contacts", 0)
	viper.SetDefault("addressbook.country", "")
	viper.SetDefault("addressbook.sync_interval", 24*time.Hour)

	// Web defaults
	viper.SetDefault("web.enabled", true)
	viper.SetDefault("web.host", "127.0.0.1")
	viper.SetDefault("web.port", 8080)

	// Metrics defaults
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.prometheus.enabled", false)
	viper.SetDefault("metrics.prometheus.port", 9090)
	viper.SetDefault("metrics.prometheus.path", "/metrics")
}
