package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/OutboundSpade/Virtual-FTIR-Functions/internal/exporter"
	"github.com/OutboundSpade/Virtual-FTIR-Functions/internal/model"
	"github.com/OutboundSpade/Virtual-FTIR-Functions/internal/service/simulator"
	"github.com/OutboundSpade/Virtual-FTIR-Functions/internal/service/worker"
	"github.com/OutboundSpade/Virtual-FTIR-Functions/internal/store"
)

// SourceCatalog 可用光源
type SourceCatalog interface {
	HasSource(s model.Source) bool
	Sources() []string
}

// RunRecorder 运行记录存储
type RunRecorder interface {
	CreateRun(id, kind, molecule, params string) error
	CompleteRun(id, status, errorKind, message string, points int, elapsed time.Duration) error
	ListRuns(limit int) ([]store.Run, error)
}

// Handler API 处理器
type Handler struct {
	sim      *simulator.Simulator
	sources  SourceCatalog
	pool     *worker.Pool
	runs     RunRecorder
	exporter *exporter.Exporter
	logger   *zap.Logger
}

// NewHandler 创建 API 处理器。runs 为 nil 时不记录运行日志。
func NewHandler(sim *simulator.Simulator, sources SourceCatalog, pool *worker.Pool, runs RunRecorder, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		sim:      sim,
		sources:  sources,
		pool:     pool,
		runs:     runs,
		exporter: exporter.NewExporter(),
		logger:   logger,
	}
}

// RegisterRoutes 注册 API 路由
func (h *Handler) RegisterRoutes(router gin.IRoutes) {
	// 光谱模拟
	router.POST("/spectrum", h.Spectrum)
	router.POST("/background", h.Background)
	// 峰值检测
	router.POST("/find_peaks", h.FindPeaks)

	// 导出
	router.POST("/spectrum/export", h.Export)
	router.POST("/spectrum/plot", h.Plot)

	// 运行记录与状态
	router.GET("/runs", h.ListRuns)
	router.GET("/status", h.GetStatus)
}
