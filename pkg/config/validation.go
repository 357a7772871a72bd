package config

import (
	"fmt"
	"strings"
)

var baudRates = map[int]bool{9600: true, 19200: true, 38400: true, 57600: true, 115200: true}

// validate validates the configuration
func validate(cfg *Config) error {
	// Validate logging config
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error")
	}
	if f := strings.ToLower(cfg.Logging.Format); f != "text" && f != "json" {
		return fmt.Errorf("logging.format must be text or json")
	}

	// Validate serial config
	if !baudRates[cfg.Serial.BaudRate] {
		return fmt.Errorf("serial.baud_rate %d is not a supported rate", cfg.Serial.BaudRate)
	}
	if cfg.Serial.ReadTimeoutMS <= 0 {
		return fmt.Errorf("serial.read_timeout_ms must be positive")
	}

	// Validate address book config
	if cfg.AddressBook.BatchSize <= 0 {
		return fmt.Errorf("addressbook.batch_size must be positive")
	}
	if cfg.AddressBook.MaxContacts < 0 {
		return fmt.Errorf("addressbook.max_contacts must not be negative")
	}
	if cfg.AddressBook.SyncInterval < 0 {
		return fmt.Errorf("addressbook.sync_interval must not be negative")
	}

	// Validate web config
	if cfg.Web.Enabled {
		if cfg.Web.Port <= 0 || cfg.Web.Port > 65535 {
			return fmt.Errorf("web.port must be between 1 and 65535")
		}
	}

	// Validate metrics config
	if cfg.Metrics.Prometheus.Enabled {
		if cfg.Metrics.Prometheus.Port <= 0 || cfg.Metrics.Prometheus.Port > 65535 {
			return fmt.Errorf("metrics.prometheus.port must be between 1 and 65535")
		}
		if !strings.HasPrefix(cfg.Metrics.Prometheus.Path, "/") {
			return fmt.Errorf("metrics.prometheus.path must start with /")
		}
	}

	return nil
}
