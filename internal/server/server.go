// Package server accepts STOMP clients over TCP and WebSocket and wires
// each one to a session sharing the broker's routing state.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/life-stream-dev/life-stream-go-stomp-broker/internal/ack"
	"github.com/life-stream-dev/life-stream-go-stomp-broker/internal/auth"
	"github.com/life-stream-dev/life-stream-go-stomp-broker/internal/config"
	"github.com/life-stream-dev/life-stream-go-stomp-broker/internal/connection"
	"github.com/life-stream-dev/life-stream-go-stomp-broker/internal/logger"
	"github.com/life-stream-dev/life-stream-go-stomp-broker/internal/metrics"
	"github.com/life-stream-dev/life-stream-go-stomp-broker/internal/session"
	"github.com/life-stream-dev/life-stream-go-stomp-broker/internal/stomp"
	"github.com/life-stream-dev/life-stream-go-stomp-broker/internal/subscription"
	"golang.org/x/sync/errgroup"
)

// Version is reported in the CONNECTED server header.
var Version = "1.0.0"

var ErrServerClosed = errors.New("server: broker closed")

// Broker is the composition root: one subscription registry, one ack
// tracker and the set of live clients.
type Broker struct {
	cfg            config.Config
	options        *session.Options
	manager        *connection.Manager
	metrics        *metrics.Metrics
	connectTimeout time.Duration

	sem  chan struct{}
	quit chan struct{}
	wg   sync.WaitGroup

	mu          sync.Mutex
	closed      bool
	listeners   map[net.Listener]struct{}
	httpServers []shutdowner
}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

// New builds a broker from cfg. authenticator may be nil, in which case
// cfg.Auth.Provider is looked up in the auth registry.
func New(cfg config.Config, authenticator auth.Authenticator) (*Broker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if authenticator == nil {
		provider := cfg.Auth.Provider
		if provider == "" {
			provider = "allow"
		}
		var err error
		if authenticator, err = auth.New(provider); err != nil {
			return nil, err
		}
	}

	b := &Broker{
		cfg:            cfg,
		manager:        connection.NewManager(),
		connectTimeout: cfg.ConnectTimeoutDuration(),
		sem:            make(chan struct{}, cfg.MaxConnections),
		quit:           make(chan struct{}),
		listeners:      make(map[net.Listener]struct{}),
	}
	b.options = &session.Options{
		ServerName: cfg.AppName + "/" + Version,
		HeartBeat: stomp.HeartBeat{
			Guaranteed: cfg.HeartBeat.GuaranteedDuration(),
			Expected:   cfg.HeartBeat.ExpectedDuration(),
		},
		Authenticator: authenticator,
		Registry:      subscription.NewRegistry(),
		Tracker:       ack.NewTracker(),
		MessageIDs:    &session.MessageIDs{},
	}

	m, err := metrics.New(metrics.Sources{
		Connections:   b.manager.Count,
		Subscriptions: b.options.Registry.Count,
		Topics:        b.options.Registry.Topics,
		PendingAcks:   b.options.Tracker.Pending,
	})
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}
	b.metrics = m
	b.options.Recorder = m
	return b, nil
}

func (b *Broker) Metrics() *metrics.Metrics {
	return b.metrics
}

// Connections returns the number of live clients.
func (b *Broker) Connections() int {
	return b.manager.Count()
}

func (b *Broker) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *Broker) trackListener(ln net.Listener) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false
	}
	b.listeners[ln] = struct{}{}
	return true
}

func (b *Broker) untrackListener(ln net.Listener) {
	b.mu.Lock()
	delete(b.listeners, ln)
	b.mu.Unlock()
}

// startConn registers a connection goroutine unless the broker is closed.
func (b *Broker) startConn() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false
	}
	b.wg.Add(1)
	return true
}

func (b *Broker) trackHTTP(server shutdowner) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false
	}
	b.httpServers = append(b.httpServers, server)
	return true
}

// acquire takes a connection slot, waiting while the broker is full.
func (b *Broker) acquire() bool {
	select {
	case b.sem <- struct{}{}:
		return true
	case <-b.quit:
		return false
	}
}

func (b *Broker) tryAcquire() bool {
	select {
	case b.sem <- struct{}{}:
		return true
	default:
		return false
	}
}

func (b *Broker) release() {
	<-b.sem
}

// Serve accepts TCP clients on ln until Shutdown. It returns nil once the
// broker is shut down.
func (b *Broker) Serve(ln net.Listener) error {
	if !b.trackListener(ln) {
		_ = ln.Close()
		return ErrServerClosed
	}
	defer b.untrackListener(ln)

	logger.InfoF("STOMP Server Listen On %s", ln.Addr().String())

	var delay time.Duration
	for {
		if !b.acquire() {
			return nil
		}
		conn, err := ln.Accept()
		if err != nil {
			b.release()
			if b.isClosed() {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			if delay == 0 {
				delay = 5 * time.Millisecond
			} else if delay *= 2; delay > time.Second {
				delay = time.Second
			}
			logger.ErrorF("Accept connection error: %v, retrying in %s", err, delay)
			select {
			case <-time.After(delay):
			case <-b.quit:
				return nil
			}
			continue
		}
		delay = 0

		logger.DebugF("Accepted new connection from %s", conn.RemoteAddr().String())
		b.metrics.ConnectionAccepted("tcp")

		if !b.startConn() {
			b.release()
			_ = conn.Close()
			return nil
		}
		go func(c net.Conn) {
			defer b.wg.Done()
			defer b.release()
			b.ServeConn(c)
		}(conn)
	}
}

// ListenAndServe runs the TCP listener, and the WebSocket and metrics
// listeners when enabled, until ctx is done or one of them fails.
func (b *Broker) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", b.cfg.Listen)
	if err != nil {
		return fmt.Errorf("STOMP server listen on %s: %w", b.cfg.Listen, err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return b.Serve(ln)
	})

	if b.cfg.WebSocket.Enabled {
		wsServer := &http.Server{
			Addr:              b.cfg.WebSocket.Listen,
			Handler:           b.WebSocketHandler(b.cfg.WebSocket.Path),
			ReadHeaderTimeout: 10 * time.Second,
		}
		if !b.trackHTTP(wsServer) {
			_ = ln.Close()
			return ErrServerClosed
		}
		g.Go(func() error {
			logger.InfoF("STOMP WebSocket Server Listen On %s%s", b.cfg.WebSocket.Listen, b.cfg.WebSocket.Path)
			if err := wsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("websocket server: %w", err)
			}
			return nil
		})
	}

	if b.cfg.Metrics.Enabled {
		metricsServer := metrics.NewServer(b.cfg.Metrics.Listen, b.cfg.Metrics.Path, b.metrics)
		if !b.trackHTTP(metricsServer) {
			_ = ln.Close()
			return ErrServerClosed
		}
		g.Go(metricsServer.Start)
	}

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return b.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Shutdown stops every listener, closes all clients through their normal
// teardown and waits for the connection goroutines to exit.
func (b *Broker) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.quit)
	listeners := make([]net.Listener, 0, len(b.listeners))
	for ln := range b.listeners {
		listeners = append(listeners, ln)
	}
	httpServers := b.httpServers
	b.mu.Unlock()

	logger.Info("Shutting down STOMP server")

	var errs []error
	for _, ln := range listeners {
		if err := ln.Close(); err != nil && !connection.IsNetClosedError(err) {
			errs = append(errs, err)
		}
	}
	for _, server := range httpServers {
		if err := server.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	b.manager.CloseAll()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		errs = append(errs, ctx.Err())
	}
	return errors.Join(errs...)
}

// Invoke lets the broker take part in the shutdown cleaner.
func (b *Broker) Invoke(ctx context.Context) error {
	return b.Shutdown(ctx)
}
