// Package radioid keeps the address book store in step with the
// RadioID.net user database.
package radioid

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dbehnke/rt4d-cps/pkg/addressbook"
	"github.com/dbehnke/rt4d-cps/pkg/database"
	"github.com/dbehnke/rt4d-cps/pkg/logger"
	"github.com/dbehnke/rt4d-cps/pkg/metrics"
)

const (
	// RadioIDURL is the URL to download the DMR user database
	RadioIDURL = "https://radioid.net/static/user.csv"
	// SyncInterval is how often to sync the database (24 hours)
	SyncInterval = 24 * time.Hour
	// BatchSize for database upserts
	BatchSize = 1000
)

// Config holds syncer settings. Zero values select the defaults above.
type Config struct {
	URL         string
	Interval    time.Duration
	BatchSize   int
	MaxContacts int
	// OnImport, when set, is called after each successful import.
	OnImport func(source string, contacts int)
}

// Syncer handles syncing the RadioID database
type Syncer struct {
	cfg     Config
	repo    *database.ContactRepository
	logger  *logger.Logger
	metrics *metrics.Collector
	client  *http.Client
}

// NewSyncer creates a new RadioID syncer
func NewSyncer(cfg Config, repo *database.ContactRepository, log *logger.Logger, m *metrics.Collector) *Syncer {
	if cfg.URL == "" {
		cfg.URL = RadioIDURL
	}
	if cfg.Interval <= 0 {
		cfg.Interval = SyncInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = BatchSize
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Syncer{
		cfg:     cfg,
		repo:    repo,
		logger:  log.WithComponent("radioid"),
		metrics: m,
		client: &http.Client{
			Timeout: 5 * time.Minute, // Large file, need generous timeout
		},
	}
}

// Start syncs immediately and then every interval until ctx is done
func (s *Syncer) Start(ctx context.Context) {
	s.logger.Info("Starting RadioID database sync")
	if err := s.Sync(ctx); err != nil {
		s.logger.Error("Failed to sync RadioID database on startup", logger.Error(err))
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("RadioID syncer stopped")
			return
		case <-ticker.C:
			s.logger.Info("Starting periodic RadioID database sync")
			if err := s.Sync(ctx); err != nil {
				s.logger.Error("Failed to sync RadioID database", logger.Error(err))
			}
		}
	}
}

// Sync downloads the user database and upserts it into the store
func (s *Syncer) Sync(ctx context.Context) error {
	start := time.Now()
	s.logger.Info("Downloading RadioID database", logger.String("url", s.cfg.URL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download database: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			s.logger.Warn("Failed to close response body", logger.Error(err))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	n, err := s.Import(resp.Body, "radioid")
	if err != nil {
		return err
	}

	s.logger.Info("RadioID database sync complete",
		logger.Int("contacts", n),
		logger.Duration("duration", time.Since(start)))
	return nil
}

// Import parses a user CSV from r and upserts it, tagging rows with source.
// It returns the number of contacts parsed.
func (s *Syncer) Import(r io.Reader, source string) (int, error) {
	book, err := addressbook.Parse(r, s.cfg.MaxContacts, s.logger)
	if err != nil {
		return 0, fmt.Errorf("failed to parse CSV: %w", err)
	}

	rows := make([]database.Contact, 0, book.Len())
	for _, c := range book.Contacts() {
		rows = append(rows, database.ContactFrom(c, source))
	}
	if err := s.repo.UpsertBatch(rows, s.cfg.BatchSize); err != nil {
		return 0, fmt.Errorf("failed to save contacts: %w", err)
	}

	if count, err := s.repo.Count(); err == nil {
		s.metrics.SetAddressBookContacts(count)
	}
	if s.cfg.OnImport != nil {
		s.cfg.OnImport(source, book.Len())
	}
	return book.Len(), nil
}
