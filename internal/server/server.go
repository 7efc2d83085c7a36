// Package server HTTP 服务：API、指标与运行存储的装配。
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	v1 "restodocks/internal/api/v1"
	"restodocks/internal/config"
	"restodocks/internal/linker"
	"restodocks/internal/metrics"
	"restodocks/internal/store"
)

// Server HTTP服务器
type Server struct {
	router  *gin.Engine
	store   *store.Store
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewServer 创建服务器
func NewServer(cfg *config.AppConfig, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Server.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}

	dataDir, err := config.EnsureDataDir(cfg)
	if err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	sqliteStore, err := store.New(filepath.Join(dataDir, "restodocks.db"))
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	m := metrics.New()
	runner := linker.NewCoordinator(cfg,
		linker.WithStore(sqliteStore),
		linker.WithMetrics(m),
		linker.WithLogger(logger),
	)
	api := v1.NewHandler(cfg, sqliteStore, runner, v1.Dirs{
		Uploads: filepath.Join(dataDir, "uploads"),
		Outputs: filepath.Join(dataDir, "outputs"),
	}, logger)

	s := &Server{
		router:  gin.New(),
		store:   sqliteStore,
		metrics: m,
		logger:  logger,
	}
	s.setupRoutes(api)
	return s, nil
}

// setupRoutes 设置路由
func (s *Server) setupRoutes(api *v1.Handler) {
	s.router.Use(gin.Recovery(), s.requestLogger())

	// CORS
	s.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	api.RegisterRoutes(s.router.Group("/api"))

	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
}

// requestLogger 请求日志
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// Handler 路由（用于测试）
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run 启动服务器，ctx 结束时优雅关闭
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// Close 关闭存储
func (s *Server) Close() error {
	return s.store.Close()
}
