package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/dbehnke/rt4d-cps/pkg/config"
	"github.com/dbehnke/rt4d-cps/pkg/logger"
	"github.com/dbehnke/rt4d-cps/pkg/metrics"
)

// Server is the HTTP front end for codeplug conversion, the address book
// and radio sessions.
type Server struct {
	config config.WebConfig
	logger *logger.Logger
	server *http.Server
	hub    *WebSocketHub
	api    *API
	deps   Deps
	addr   string
	mu     sync.RWMutex
}

// NewServer creates a new web server instance
func NewServer(cfg config.WebConfig, deps Deps, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	log = log.WithComponent("web")
	hub := NewWebSocketHub(log)
	return &Server{
		config: cfg,
		logger: log,
		hub:    hub,
		api:    NewAPI(deps, hub, log),
		deps:   deps,
	}
}

// Handler builds the route table. Start serves it; tests use it directly.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)

	mux.HandleFunc("/api/status", s.api.HandleStatus)
	mux.HandleFunc("/api/codeplug/decode", s.api.HandleDecode)
	mux.HandleFunc("/api/codeplug/encode", s.api.HandleEncode)
	mux.HandleFunc("GET /api/addressbook", s.api.HandleSearch)
	mux.HandleFunc("GET /api/addressbook/{id}", s.api.HandleContact)
	mux.HandleFunc("GET /api/snapshots", s.api.HandleSnapshots)
	mux.HandleFunc("GET /api/snapshots/{id}/image", s.api.HandleSnapshotImage)
	mux.HandleFunc("/api/radio/read", s.api.HandleRadioRead)

	if s.deps.Metrics != nil {
		mux.Handle("/metrics", metrics.NewPrometheusHandler(s.deps.Metrics))
	}

	mux.Handle("/ws", s.hub.Handler())
	return mux
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.logger.Info("Web server is disabled")
		return nil
	}

	go s.hub.Run(ctx)

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	// Image uploads and radio reads outlast the usual request budget.
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Listen first so GetAddr reports the real port when Port is 0
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}

	s.mu.Lock()
	s.addr = listener.Addr().String()
	s.mu.Unlock()

	s.logger.Info("Starting web server",
		logger.String("address", s.addr))

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down web server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
		return ctx.Err()
	case err := <-errChan:
		return err
	}
}

// GetAddr returns the address the server is listening on
func (s *Server) GetAddr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

// GetHub returns the WebSocket hub
func (s *Server) GetHub() *WebSocketHub {
	return s.hub
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "rt4d-cps",
		"time":    time.Now().Unix(),
	}); err != nil {
		s.logger.Warn("Failed to encode health response", logger.Error(err))
	}
}
