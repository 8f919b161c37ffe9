// Package http 提供预测服务的HTTP服务器
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"termdeposit/config"
)

// Server HTTP服务器
type Server struct {
	server *http.Server
	logger *zap.Logger
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Addr           string
	Timeout        time.Duration
	MaxConnections int
	MaxBodyBytes   int64
}

// DefaultServerConfig 默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:           "127.0.0.1:8000",
		Timeout:        30 * time.Second,
		MaxConnections: 4,
		MaxBodyBytes:   1 << 20,
	}
}

// ConfigFromSettings 从应用设置构建服务器配置
func ConfigFromSettings(s config.Settings) ServerConfig {
	cfg := DefaultServerConfig()
	cfg.Addr = s.Addr()
	if s.RequestTimeout > 0 {
		cfg.Timeout = s.RequestTimeout
	}
	cfg.MaxConnections = s.Workers
	return cfg
}

// NewServer 创建HTTP服务器
func NewServer(cfg ServerConfig, svc Predictor, logger *zap.Logger, reg *prometheus.Registry) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		server: &http.Server{
			Addr:         cfg.Addr,
			Handler:      NewHandler(cfg, svc, logger, reg),
			ReadTimeout:  cfg.Timeout,
			WriteTimeout: cfg.Timeout + 5*time.Second,
			IdleTimeout:  120 * time.Second,
		},
		logger: logger,
	}
}

// NewHandler 注册路由并包装中间件链
func NewHandler(cfg ServerConfig, svc Predictor, logger *zap.Logger, reg *prometheus.Registry) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	metrics := NewMetrics(reg)

	mux := http.NewServeMux()
	RegisterHandlers(mux, svc, logger, metrics)
	RegisterMetricsHandler(mux, reg)

	chain := Chain(
		RecoveryMiddleware(logger),                // 1. 恢复中间件（最先执行，捕获panic）
		LoggerMiddleware(logger),                  // 2. 日志中间件
		metrics.Middleware(mux),                   // 3. 指标中间件
		ConcurrencyMiddleware(cfg.MaxConnections), // 4. 并发限制
		SecurityHeadersMiddleware,                 // 5. 安全头中间件
		RequestSizeMiddleware(cfg.MaxBodyBytes),   // 6. 请求大小限制
		TimeoutMiddleware(cfg.Timeout),            // 7. 超时中间件
	)
	return chain(mux)
}

// Start 启动服务器，阻塞直到服务器关闭
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Stop 停止服务器
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.logger.Info("Shutting down HTTP server...")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

// Addr 返回服务器地址
func (s *Server) Addr() string {
	return s.server.Addr
}
