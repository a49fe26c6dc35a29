package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

type Config struct {
	Addr string `json:"addr" env:"STOREFRONT_METRICS_ADDR"`
}

// Server exposes /metrics over HTTP for the lifetime of the application.
type Server struct {
	cfg    Config
	srv    *http.Server
	lis    net.Listener
	logger *zap.Logger
}

func NewServer(cfg Config, m *ClientMetrics, logger *zap.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	return &Server{
		cfg:    cfg,
		srv:    &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		logger: logger,
	}
}

func (s *Server) Start(ctx context.Context) error {
	if s.lis != nil {
		return errors.New("metrics server is already running")
	}

	lis, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	s.lis = lis

	go func() {
		if err := s.srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server stopped", zap.Error(err))
		}
	}()

	s.logger.Info("metrics server is running", zap.String("addr", lis.Addr().String()))

	return nil
}

// Addr is the bound address, useful when the configured port is 0.
func (s *Server) Addr() string {
	if s.lis == nil {
		return ""
	}
	return s.lis.Addr().String()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.lis == nil {
		return errors.New("metrics server is not running")
	}
	return s.srv.Shutdown(ctx)
}
