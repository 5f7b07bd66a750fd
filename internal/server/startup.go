package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

const defaultShutdownTimeout = 30 * time.Second

// Start serves HTTP until ctx is cancelled, then shuts down gracefully.
// Streaming endpoints hold connections open, so no write timeout is set.
func (s *Server) Start(ctx context.Context) error {
	httpServer := s.newHTTPServer()

	s.startWatchers()
	s.displayServerInfo()

	serverErrors := make(chan error, 1)
	go func() {
		s.Logger.Info("Starting HTTP server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	select {
	case err := <-serverErrors:
		s.cleanup()
		return fmt.Errorf("server failed to start: %w", err)
	case <-ctx.Done():
		s.Logger.Info("Received shutdown signal, starting graceful shutdown")
		return s.performGracefulShutdown(httpServer)
	}
}

// newHTTPServer creates the http.Server wrapping the routed handler
func (s *Server) newHTTPServer() *http.Server {
	return &http.Server{
		Addr:              net.JoinHostPort(s.Host, s.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.ReadHeaderTimeout,
		IdleTimeout:       s.IdleTimeout,
	}
}

func (s *Server) startWatchers() {
	if s.promptWatcher != nil {
		if err := s.promptWatcher.Start(); err != nil {
			s.Logger.LogError(err, "Failed to start prompt watcher")
		}
	}
	if s.secretWatcher != nil {
		if err := s.secretWatcher.Start(); err != nil {
			s.Logger.LogError(err, "Failed to start secret watcher")
		}
	}
}

// performGracefulShutdown drains in-flight requests before releasing resources
func (s *Server) performGracefulShutdown(server *http.Server) error {
	timeout := s.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.Logger.Info("Shutting down HTTP server...")
	err := server.Shutdown(shutdownCtx)
	if err != nil {
		s.Logger.LogError(err, "Failed to shutdown server gracefully, forcing close")
		err = server.Close()
	}

	s.cleanup()
	if err == nil {
		s.Logger.Info("Server shutdown completed successfully")
	}
	return err
}

// cleanup stops watchers and closes the rate limiter and session store
func (s *Server) cleanup() {
	if s.promptWatcher != nil {
		if err := s.promptWatcher.Stop(); err != nil {
			s.Logger.LogError(err, "Failed to stop prompt watcher")
		}
	}
	if s.secretWatcher != nil {
		if err := s.secretWatcher.Stop(); err != nil {
			s.Logger.LogError(err, "Failed to stop secret watcher")
		}
	}
	if s.RateLimiter != nil {
		s.RateLimiter.Close()
		s.Logger.Info("Rate limiter cleaned up")
	}
	if s.sessions != nil {
		if err := s.sessions.Close(); err != nil {
			s.Logger.LogError(err, "Failed to close session store")
		}
	}
}
