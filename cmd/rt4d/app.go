package main

import (
	"fmt"
	"io"
	"os"

	"github.com/dbehnke/rt4d-cps/pkg/config"
	"github.com/dbehnke/rt4d-cps/pkg/database"
	rterrors "github.com/dbehnke/rt4d-cps/pkg/errors"
	"github.com/dbehnke/rt4d-cps/pkg/logger"
	"github.com/dbehnke/rt4d-cps/pkg/metrics"
	"github.com/dbehnke/rt4d-cps/pkg/uart"
)

// dialRadio opens the programming cable. Tests replace it with a mock.
var dialRadio = func(cfg uart.Config, log *logger.Logger, m *metrics.Collector) (*uart.Radio, error) {
	return uart.Open(cfg, log, m)
}

// app carries what a command needs once configuration is loaded.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	metrics *metrics.Collector
	closers []io.Closer
}

func newApp(flags *rootFlags) (*app, error) {
	cfg, err := config.Load(flags.configFile)
	if err != nil {
		return nil, rterrors.WrapConfigError(err, flags.configFile)
	}
	if flags.port != "" {
		cfg.Serial.Port = flags.port
	}
	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}

	a := &app{cfg: cfg, metrics: metrics.NewCollector()}

	var out io.Writer = os.Stderr
	if cfg.Logging.File != "" {
		f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		a.closers = append(a.closers, f)
		out = f
	}
	a.log = logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: out,
	})
	return a, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i].Close()
	}
}

// openRadio opens the configured port and announces a programming session.
// The returned func ends the session.
func (a *app) openRadio() (*uart.Radio, func(), error) {
	port := a.cfg.Serial.Port
	if port == "" {
		return nil, nil, fmt.Errorf("no serial port configured; pass --port or set serial.port (see `rt4d radio ports`)")
	}
	radio, err := dialRadio(uart.Config{
		Port:        port,
		BaudRate:    a.cfg.Serial.BaudRate,
		ReadTimeout: a.cfg.Serial.ReadTimeout(),
	}, a.log, a.metrics)
	if err != nil {
		return nil, nil, rterrors.WrapSerialError(err, port, "open")
	}
	if err := radio.Notify(); err != nil {
		_ = radio.Close()
		return nil, nil, rterrors.WrapSerialError(err, port, "handshake")
	}
	a.metrics.SessionStarted()

	done := func() {
		a.metrics.SessionEnded()
		if err := radio.Close(); err != nil {
			a.log.Warn("Failed to close radio session", logger.Error(err))
		}
	}
	return radio, done, nil
}

// openDB opens the address book and snapshot store.
func (a *app) openDB() (*database.DB, error) {
	db, err := database.NewDB(database.Config{Path: a.cfg.Database.Path}, a.log)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", a.cfg.Database.Path, err)
	}
	a.closers = append(a.closers, db)
	return db, nil
}

// progressPrinter renders block progress on w as a single updating line.
func progressPrinter(w io.Writer, label string) uart.ProgressFunc {
	last := -1
	return func(done, total int) {
		if total <= 0 {
			return
		}
		pct := done * 100 / total
		if pct == last {
			return
		}
		last = pct
		fmt.Fprintf(w, "\r%s: %3d%% (%d/%d blocks)", label, pct, done, total)
		if done >= total {
			fmt.Fprintln(w)
		}
	}
}
