// Package server assembles the loopback transport around a plugin.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/arko-chat/paybridge/internal/config"
	"github.com/arko-chat/paybridge/internal/handlers"
	"github.com/arko-chat/paybridge/internal/metrics"
	"github.com/arko-chat/paybridge/internal/middleware"
	"github.com/arko-chat/paybridge/internal/plugin"
	"github.com/arko-chat/paybridge/internal/router"
	"github.com/arko-chat/paybridge/internal/sdk"
	"github.com/arko-chat/paybridge/internal/session"
)

const tokenTTL = 24 * time.Hour

type Server struct {
	Plugin *plugin.Plugin
	Token  string

	srv      *http.Server
	listener net.Listener
	logger   *slog.Logger
}

// New builds the plugin over adapter and the HTTP handler in front of it.
// Extra plugin options are applied after the ones derived from cfg.
func New(cfg *config.Config, adapter sdk.Adapter, logger *slog.Logger, opts ...plugin.Option) (*Server, error) {
	var (
		recorder     metrics.Recorder = metrics.NoopRecorder{}
		metricsRoute http.Handler
	)
	if cfg.MetricsEnabled {
		prom := metrics.NewPrometheusRecorder()
		recorder, metricsRoute = prom, prom.Handler()
	}

	base := []plugin.Option{
		plugin.WithLogger(logger),
		plugin.WithMetrics(recorder),
		plugin.WithDefaultEnvironment(cfg.DefaultEnvironment),
		plugin.WithDefaultReturnURL(cfg.DefaultReturnURL),
		plugin.WithResultCacheSize(cfg.ResultCacheSize),
		plugin.WithPlatformVersion(cfg.PlatformVersion),
	}
	p, err := plugin.New(adapter, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create plugin: %w", err)
	}

	tokens, err := session.NewTokens(cfg.TokenSecret, tokenTTL)
	if err != nil {
		return nil, err
	}
	token, err := tokens.Issue("host")
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	store := session.NewStore([]byte(cfg.TokenSecret))

	h := handlers.New(p, tokens, store, logger)
	mux := router.New(h, middleware.Auth(tokens, store, logger), metricsRoute)

	return &Server{
		Plugin: p,
		Token:  token,
		srv:    &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second},
		logger: logger,
	}, nil
}

// Listen binds addr and returns the base URL clients should use.
func (s *Server) Listen(addr string) (string, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("failed to listen: %w", err)
	}
	s.listener = listener
	return fmt.Sprintf("http://%s", listener.Addr().String()), nil
}

// Serve blocks until the server is shut down.
func (s *Server) Serve() error {
	if s.listener == nil {
		return errors.New("server: Listen not called")
	}
	if err := s.srv.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server and then the plugin.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.srv.Shutdown(ctx)
	s.Plugin.Close()
	return err
}

// Close stops everything immediately.
func (s *Server) Close() {
	if err := s.srv.Close(); err != nil {
		s.logger.Warn("server close", "err", err)
	}
	s.Plugin.Close()
}
