package server

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/OutboundSpade/Virtual-FTIR-Functions/internal/api"
	"github.com/OutboundSpade/Virtual-FTIR-Functions/internal/config"
	"github.com/OutboundSpade/Virtual-FTIR-Functions/internal/service/components"
	"github.com/OutboundSpade/Virtual-FTIR-Functions/internal/service/engine"
	"github.com/OutboundSpade/Virtual-FTIR-Functions/internal/service/simulator"
	"github.com/OutboundSpade/Virtual-FTIR-Functions/internal/service/worker"
	"github.com/OutboundSpade/Virtual-FTIR-Functions/internal/store"
)

//go:embed static/index.html
var indexHTML []byte

// Server HTTP服务器
type Server struct {
	router *gin.Engine
	mu     sync.Mutex
	http   *http.Server
	store  *store.Store
	api    *api.Handler
	logger *zap.Logger
}

// NewServer 创建服务器
func NewServer(cfg *config.AppConfig, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Server.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化 SQLite Store（运行记录）
	dataDir, err := config.EnsureDataDir(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	sqliteStore, err := store.New(filepath.Join(dataDir, "ftir.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	lib, err := components.NewLibrary(cfg.Instrument.Sources)
	if err != nil {
		_ = sqliteStore.Close()
		return nil, fmt.Errorf("failed to load component library: %w", err)
	}

	databank := config.DatabankDir(cfg)
	sim := simulator.New(
		engine.NewLBL(databank),
		lib,
		simulator.WithNoise(simulator.Noise{
			Level: cfg.Instrument.NoiseLevel,
			Seed:  cfg.Instrument.NoiseSeed,
		}),
		simulator.WithMaxPoints(cfg.Engine.MaxPoints),
		simulator.WithLogger(logger.Named("simulator")),
	)
	pool := worker.NewPool(cfg.Engine.Workers, cfg.Engine.Timeout(), logger.Named("worker"))

	s := &Server{
		router: gin.New(),
		store:  sqliteStore,
		api:    api.NewHandler(sim, lib, pool, sqliteStore, logger.Named("api")),
		logger: logger,
	}
	s.setupRoutes()

	logger.Info("server initialized",
		zap.String("data_dir", dataDir),
		zap.String("databank_dir", databank),
		zap.Int("workers", pool.Size()),
		zap.Duration("timeout", cfg.Engine.Timeout()),
		zap.Strings("sources", lib.Sources()),
	)
	return s, nil
}

// setupRoutes 设置路由
func (s *Server) setupRoutes() {
	s.router.Use(recovery(s.logger), requestLogger(s.logger.Named("http")), corsMiddleware())

	// 首页
	s.router.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
	})

	s.api.RegisterRoutes(s.router)
}

// Handler 路由（用于测试）
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run 启动服务器，直到 Shutdown 被调用
func (s *Server) Run(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.http = srv
	s.mu.Unlock()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown 等待进行中的请求结束后关闭服务与数据库
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.http
	s.mu.Unlock()

	var errs []error
	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown http server: %w", err))
		}
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	return errors.Join(errs...)
}

// GetStore 获取存储（用于测试）
func (s *Server) GetStore() *store.Store {
	return s.store
}
