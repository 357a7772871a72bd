package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dbehnke/rt4d-cps/pkg/database"
	"github.com/dbehnke/rt4d-cps/pkg/logger"
	"github.com/dbehnke/rt4d-cps/pkg/metrics"
	"github.com/dbehnke/rt4d-cps/pkg/uart"
	"github.com/dbehnke/rt4d-cps/pkg/web"
)

type serveFlags struct {
	sync bool
}

func newServeCmd(root *rootFlags) *cobra.Command {
	flags := &serveFlags{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web API",
		Long: `Run the HTTP API: codeplug decode and encode, address book lookup,
snapshots, and radio reads with progress over a WebSocket. With --sync the
address book is refreshed from RadioID.net on the configured interval.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(root)
			if err != nil {
				return err
			}
			defer a.Close()
			return runServe(cmd.Context(), a, flags)
		},
	}

	cmd.Flags().BoolVar(&flags.sync, "sync", false, "Periodically sync the address book from RadioID.net")
	return cmd
}

func runServe(parent context.Context, a *app, flags *serveFlags) error {
	if !a.cfg.Web.Enabled {
		return fmt.Errorf("web server is disabled; set web.enabled: true")
	}
	web.SetVersionInfo(version, commit, buildTime)

	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db, err := a.openDB()
	if err != nil {
		return err
	}
	contacts := database.NewContactRepository(db.GetDB())
	if n, err := contacts.Count(); err == nil {
		a.metrics.SetAddressBookContacts(n)
	}

	deps := web.Deps{
		Contacts:  contacts,
		Snapshots: database.NewSnapshotRepository(db.GetDB()),
		Metrics:   a.metrics,
	}
	if a.cfg.Serial.Port != "" {
		deps.OpenRadio = func() (*uart.Radio, error) {
			return dialRadio(uart.Config{
				Port:        a.cfg.Serial.Port,
				BaudRate:    a.cfg.Serial.BaudRate,
				ReadTimeout: a.cfg.Serial.ReadTimeout(),
			}, a.log, a.metrics)
		}
	}

	var wg sync.WaitGroup

	if a.cfg.Metrics.Enabled && a.cfg.Metrics.Prometheus.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			srv := metrics.NewPrometheusServer(
				metrics.PrometheusConfig{
					Enabled: a.cfg.Metrics.Prometheus.Enabled,
					Port:    a.cfg.Metrics.Prometheus.Port,
					Path:    a.cfg.Metrics.Prometheus.Path,
				},
				a.metrics,
				a.log.WithComponent("metrics"),
			)
			if err := srv.Start(ctx); err != nil && err != context.Canceled {
				a.log.Error("Prometheus metrics server error", logger.Error(err))
			}
		}()
		a.log.Info("Prometheus metrics server started",
			logger.Int("port", a.cfg.Metrics.Prometheus.Port),
			logger.String("path", a.cfg.Metrics.Prometheus.Path))
	}

	srv := web.NewServer(a.cfg.Web, deps, a.log)

	if flags.sync {
		syncer := a.syncer(contacts, srv.GetHub().BroadcastAddressBookSynced)
		wg.Add(1)
		go func() {
			defer wg.Done()
			syncer.Start(ctx)
		}()
	}

	err = srv.Start(ctx)
	cancel()
	wg.Wait()

	if err != nil && err != context.Canceled {
		return err
	}
	a.log.Info("Shutdown complete")
	return nil
}
