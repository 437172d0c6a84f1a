// Package server contains the HTTP server of the application.
package server

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"

	"go.hackfix.me/dirserve/crypto"
	"go.hackfix.me/dirserve/web/server/middleware"
)

// Server is a wrapper around http.Server with some custom behavior.
type Server struct {
	*http.Server
	logger      *slog.Logger
	peekTimeout time.Duration
	ready       chan struct{}
}

// Option configures a Server.
type Option func(*Server)

// WithPeekTimeout sets how long clients of a TLS-enabled server have to start
// sending data, before their connection is dropped.
func WithPeekTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.peekTimeout = d
	}
}

// New returns a new web Server instance that will listen on addr. If tlsCert
// is provided, the server accepts both TLS and plain HTTP connections on addr,
// and HTTP/2 is enabled for TLS connections.
func New(
	addr string, handler http.Handler, tlsCert *tls.Certificate, logger *slog.Logger, opts ...Option,
) (*Server, error) {
	srv := &Server{
		Server: &http.Server{
			Handler:           handler,
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			IdleTimeout:       2 * time.Minute,
			ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
		},
		logger: logger,
		ready:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(srv)
	}

	if tlsCert != nil {
		tlsCfg := crypto.DefaultTLSConfig()
		tlsCfg.Certificates = []tls.Certificate{*tlsCert}
		srv.TLSConfig = tlsCfg

		if err := http2.ConfigureServer(srv.Server, &http2.Server{IdleTimeout: srv.IdleTimeout}); err != nil {
			return nil, fmt.Errorf("failed configuring HTTP/2: %w", err)
		}
	}

	return srv, nil
}

// ListenAndServe starts either an HTTP or a hybrid HTTP/HTTPS server. It stores
// the actual listen address, which is convenient when the address is
// dynamically determined by the system (e.g. ':0').
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("failed listening on '%s': %w", s.Addr, err)
	}

	s.Addr = ln.Addr().String()
	s.logger.Info("started listener", "address", s.Addr, "tls", s.TLSConfig != nil)
	close(s.ready)

	if s.TLSConfig != nil {
		ln = NewHybridListener(ln, s.TLSConfig, s.peekTimeout, s.logger)
	}

	//nolint:wrapcheck // http.ErrServerClosed is checked by callers.
	return s.Serve(ln)
}

// Ready returns a channel that's closed once the server is listening. Addr
// may be read after that.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// SetupHandlers returns the handler of the file server, which serves h on
// every path for GET and HEAD requests, wrapped by request logging. If rec is
// not nil, request metrics are recorded with it.
func SetupHandlers(h http.Handler, logger *slog.Logger, rec middleware.RequestRecorder) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /", h)

	mws := []middleware.Middleware{middleware.RequestID(), middleware.Logger(logger)}
	if rec != nil {
		mws = append(mws, middleware.Metrics(rec))
	}

	return middleware.Chain(mux, mws...)
}
