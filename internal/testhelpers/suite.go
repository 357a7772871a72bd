package testhelpers

import (
	"context"
	"testing"
	"time"

	"github.com/dbehnke/rt4d-cps/pkg/config"
	"github.com/dbehnke/rt4d-cps/pkg/logger"
	"github.com/dbehnke/rt4d-cps/pkg/metrics"
	"github.com/dbehnke/rt4d-cps/pkg/uart"
)

// Suite wires a mock radio, logger and metrics collector for tests that
// drive the serial protocol end to end.
type Suite struct {
	T       *testing.T
	Logger  *logger.Logger
	Metrics *metrics.Collector
	Radio   *MockRadio
	Ctx     context.Context
	Cancel  context.CancelFunc
}

// NewSuite creates a suite with a fresh erased radio.
func NewSuite(t *testing.T) *Suite {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

	log := logger.New(logger.Config{
		Level:  "debug",
		Format: "text",
	})

	return &Suite{
		T:       t,
		Logger:  log,
		Metrics: metrics.NewCollector(),
		Radio:   NewMockRadio(),
		Ctx:     ctx,
		Cancel:  cancel,
	}
}

// Connect opens a programming session on the mock radio.
func (s *Suite) Connect() *uart.Radio {
	s.T.Helper()
	r := uart.New(s.Radio, s.Logger, s.Metrics)
	if err := r.Notify(); err != nil {
		s.T.Fatalf("notify: %v", err)
	}
	return r
}

// Cleanup cancels the suite context.
func (s *Suite) Cleanup() {
	s.Cancel()
}

// WaitFor waits for a condition to be true
func (s *Suite) WaitFor(condition func() bool, timeout time.Duration, message string) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	s.T.Logf("WaitFor timeout: %s", message)
	return false
}

// AssertEventually asserts that a condition becomes true within timeout
func (s *Suite) AssertEventually(condition func() bool, timeout time.Duration, message string) {
	if !s.WaitFor(condition, timeout, message) {
		s.T.Errorf("Assertion failed: %s", message)
	}
}

// DefaultConfig returns a configuration with every network surface off.
func DefaultConfig() *config.Config {
	return &config.Config{
		Logging: config.LoggingConfig{
			Level:  "debug",
			Format: "text",
		},
		Serial: config.SerialConfig{
			BaudRate:      uart.DefaultBaudRate,
			ReadTimeoutMS: 1000,
		},
		Database: config.DatabaseConfig{
			Path: ":memory:",
		},
		AddressBook: config.AddressBookConfig{
			BatchSize: 1000,
		},
		Web: config.WebConfig{
			Enabled: false,
		},
		Metrics: config.MetricsConfig{
			Enabled: false,
		},
	}
}
