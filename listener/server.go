package listener

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Server is a running listener
type Server interface {
	ID() uuid.UUID
	Addr() string
	Shutdown(ctx context.Context) error
}

// Builder starts a server with root as its handler
type Builder interface {
	Start(root http.Handler) (Server, error)
}

// BuilderFunc adapts a function to Builder
type BuilderFunc func(root http.Handler) (Server, error)

// Start calls f(root)
func (f BuilderFunc) Start(root http.Handler) (Server, error) {
	return f(root)
}

// HTTPBuilder starts net/http servers
type HTTPBuilder struct {
	Addr              string
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	TLSConfig         *tls.Config
	Logger            *zap.Logger
}

// Start listens on Addr and serves root in the background
func (b *HTTPBuilder) Start(root http.Handler) (Server, error) {
	ln, err := net.Listen("tcp", b.Addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", b.Addr, err)
	}
	if b.TLSConfig != nil {
		ln = tls.NewListener(ln, b.TLSConfig)
	}

	logger := b.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &HTTPServer{
		id:       uuid.New(),
		listener: ln,
		server: &http.Server{
			Handler:           root,
			ReadTimeout:       b.ReadTimeout,
			ReadHeaderTimeout: b.ReadHeaderTimeout,
			WriteTimeout:      b.WriteTimeout,
			IdleTimeout:       b.IdleTimeout,
			ErrorLog:          zap.NewStdLog(logger),
		},
		done: make(chan struct{}),
	}

	go func() {
		defer close(s.done)
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", zap.String("addr", s.Addr()), zap.Error(err))
		}
	}()

	logger.Info("server started", zap.String("addr", s.Addr()), zap.String("server_id", s.id.String()))
	return s, nil
}

// HTTPServer is a Server backed by net/http
type HTTPServer struct {
	id       uuid.UUID
	listener net.Listener
	server   *http.Server
	done     chan struct{}
}

// ID implements Server
func (s *HTTPServer) ID() uuid.UUID {
	return s.id
}

// Addr returns the bound address, with the real port when Addr used port 0
func (s *HTTPServer) Addr() string {
	return s.listener.Addr().String()
}

// Shutdown stops accepting connections and waits for active requests
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	<-s.done
	return nil
}
