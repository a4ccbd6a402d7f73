package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/life-stream-dev/life-stream-go-stomp-broker/internal/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var ErrServerRunning = errors.New("metrics server already running")

// Server serves the scrape endpoint and a /health probe.
type Server struct {
	listen  string
	path    string
	metrics *Metrics

	mu     sync.Mutex
	server *http.Server
	closed bool
}

func NewServer(listen, path string, metrics *Metrics) *Server {
	if path == "" {
		path = "/metrics"
	}
	return &Server{listen: listen, path: path, metrics: metrics}
}

func (s *Server) handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(s.path, promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	return mux
}

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.listen)
	if err != nil {
		return fmt.Errorf("metrics server listen on %s: %w", s.listen, err)
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown. It returns nil after a shutdown, also
// when Shutdown came first.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = ln.Close()
		return nil
	}
	if s.server != nil {
		s.mu.Unlock()
		_ = ln.Close()
		return ErrServerRunning
	}
	server := &http.Server{
		Handler:           s.handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.server = server
	s.mu.Unlock()

	logger.InfoF("Metrics Server Listen On %s%s", ln.Addr().String(), s.path)
	if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	server := s.server
	s.server = nil
	s.closed = true
	s.mu.Unlock()

	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}
