package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

const (
	defaultReadTimeout  = 15 * time.Second
	defaultWriteTimeout = 45 * time.Second
	defaultIdleTimeout  = 60 * time.Second
)

// Server wraps http.Server with address validation and a configurable stop.
type Server struct {
	server *http.Server
}

type Option func(*http.Server)

// WithWriteTimeout bounds how long a response may take to write. It must
// exceed the upstream timeout or slow upstream answers are cut off.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *http.Server) {
		s.WriteTimeout = d
	}
}

func WithReadTimeout(d time.Duration) Option {
	return func(s *http.Server) {
		s.ReadTimeout = d
	}
}

// New creates a new HTTP server with the given address and handler.
// The address is validated before creating the server.
func New(addr string, handler http.Handler, opts ...Option) (*Server, error) {
	if err := validateHost(addr); err != nil {
		return nil, err
	}

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		IdleTimeout:  defaultIdleTimeout,
	}

	for _, opt := range opts {
		opt(httpServer)
	}

	return &Server{server: httpServer}, nil
}

func (s *Server) Addr() string {
	return s.server.Addr
}

// Start begins listening for HTTP requests.
// Returns an error unless the server is stopped cleanly.
func (s *Server) Start() error {
	err := s.server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// Close stops the listener and drops in-flight requests.
func (s *Server) Close() error {
	return s.server.Close()
}

// Shutdown stops accepting connections and waits up to drain for in-flight
// requests. A drain of zero or less behaves like Close.
func (s *Server) Shutdown(ctx context.Context, drain time.Duration) error {
	if drain <= 0 {
		return s.Close()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, drain)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		// Drain window elapsed; drop whatever is left.
		_ = s.server.Close()
		return err
	}

	return nil
}

func validateHost(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cant be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}
