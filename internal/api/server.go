// ABOUTME: HTTP route registration and server lifecycle for cergdb
// ABOUTME: Wires handlers behind the token middleware and manages graceful shutdown

package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/cergworks/cergdb/internal/auth"
	"github.com/cergworks/cergdb/internal/config"
)

// Routes builds the full handler tree. Login and the route listing are
// public; everything else sits behind the bearer token middleware.
func (s *Server) Routes(requestTimeoutDur time.Duration) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleInfo)
	mux.HandleFunc("POST /login", s.handleLogin)

	authed := auth.Middleware(s.tokens)
	mux.Handle("POST /register", authed(http.HandlerFunc(s.handleRegister)))
	mux.Handle("GET /user_profile", authed(http.HandlerFunc(s.handleUserProfile)))
	mux.Handle("POST /submit", authed(http.HandlerFunc(s.handleSubmit)))
	mux.Handle("GET /retrieve", authed(http.HandlerFunc(s.handleRetrieve)))
	mux.Handle("POST /retrieve", authed(http.HandlerFunc(s.handleRetrieve)))
	mux.Handle("POST /rename", authed(http.HandlerFunc(s.handleRename)))
	mux.Handle("POST /delete", authed(http.HandlerFunc(s.handleDelete)))

	var handler http.Handler = mux
	handler = requestTimeout(requestTimeoutDur)(handler)
	handler = requestLogger(s.logger)(handler)
	return handler
}

// Run starts the HTTP server and blocks until the context is canceled.
// Returns nil on graceful shutdown, or an error if the server fails.
func (s *Server) Run(ctx context.Context, cfg config.ServerConfig) error {
	ln, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on HTTP address: %w", err)
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.Routes(cfg.RequestTimeout),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		scheme := "http"
		if cfg.CertFile != "" {
			scheme = "https"
		}
		s.logger.Info("HTTP server listening", "addr", ln.Addr().String(), "scheme", scheme)

		var serveErr error
		if cfg.CertFile != "" {
			serveErr = httpServer.ServeTLS(ln, cfg.CertFile, cfg.KeyFile)
		} else {
			serveErr = httpServer.Serve(ln)
		}
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", serveErr)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		s.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		s.logger.Error("server error", "error", serverErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil && serverErr == nil {
		return fmt.Errorf("shutting down HTTP server: %w", err)
	}

	return serverErr
}
