package metrics

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/dbehnke/rt4d-cps/pkg/logger"
)

// PrometheusConfig holds Prometheus server configuration
type PrometheusConfig struct {
	Enabled bool
	Port    int
	Path    string
}

// PrometheusHandler handles Prometheus metrics HTTP requests
type PrometheusHandler struct {
	collector *Collector
}

// NewPrometheusHandler creates a new Prometheus handler
func NewPrometheusHandler(collector *Collector) *PrometheusHandler {
	return &PrometheusHandler{
		collector: collector,
	}
}

func writeMetric(out *strings.Builder, name, kind, help string, value interface{}) {
	fmt.Fprintf(out, "# HELP %s %s\n", name, help)
	fmt.Fprintf(out, "# TYPE %s %s\n", name, kind)
	fmt.Fprintf(out, "%s %v\n", name, value)
}

// ServeHTTP handles HTTP requests for metrics
func (h *PrometheusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	s := h.collector.Snapshot()
	var output strings.Builder

	// Transfer metrics
	writeMetric(&output, "rt4d_blocks_read_total", "counter", "Flash blocks read from the radio", s.BlocksRead)
	writeMetric(&output, "rt4d_blocks_written_total", "counter", "Flash blocks written to the radio", s.BlocksWritten)
	writeMetric(&output, "rt4d_bytes_read_total", "counter", "Bytes read from the radio", s.BytesRead)
	writeMetric(&output, "rt4d_bytes_written_total", "counter", "Bytes written to the radio", s.BytesWritten)

	output.WriteString("# HELP rt4d_transfer_errors_total Failed block transfers by operation\n")
	output.WriteString("# TYPE rt4d_transfer_errors_total counter\n")
	for _, op := range s.errorOps() {
		fmt.Fprintf(&output, "rt4d_transfer_errors_total{op=%q} %d\n", op, s.TransferErrors[op])
	}

	writeMetric(&output, "rt4d_sessions_active", "gauge", "Open programming sessions", s.ActiveSessions)

	// Codec metrics
	writeMetric(&output, "rt4d_images_parsed_total", "counter", "Codeplug images decoded", s.ImagesParsed)
	writeMetric(&output, "rt4d_images_serialized_total", "counter", "Codeplug images encoded", s.ImagesSerialized)
	writeMetric(&output, "rt4d_codec_errors_total", "counter", "Rejected images or models", s.CodecErrors)

	writeMetric(&output, "rt4d_addressbook_contacts", "gauge", "Contacts in the address book store", s.AddressBookContacts)

	_, _ = w.Write([]byte(output.String()))
}

// PrometheusServer is an HTTP server for Prometheus metrics
type PrometheusServer struct {
	config    PrometheusConfig
	collector *Collector
	log       *logger.Logger
	server    *http.Server
}

// NewPrometheusServer creates a new Prometheus metrics server
func NewPrometheusServer(config PrometheusConfig, collector *Collector, log *logger.Logger) *PrometheusServer {
	if log == nil {
		log = logger.Nop()
	}
	if config.Path == "" {
		config.Path = "/metrics"
	}

	return &PrometheusServer{
		config:    config,
		collector: collector,
		log:       log.WithComponent("metrics"),
	}
}

// Start serves metrics until ctx is cancelled
func (s *PrometheusServer) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.log.Info("Prometheus metrics server disabled")
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(s.config.Path, NewPrometheusHandler(s.collector))

	addr := fmt.Sprintf(":%d", s.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.log.Info("Starting Prometheus metrics server",
		logger.Int("port", listener.Addr().(*net.TCPAddr).Port),
		logger.String("path", s.config.Path))

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.log.Info("Shutting down Prometheus metrics server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics server shutdown error: %w", err)
		}
		return ctx.Err()
	case err := <-errChan:
		return err
	}
}
