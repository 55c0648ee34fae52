package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/OutboundSpade/Virtual-FTIR-Functions/internal/store"
)

// StatusResponse 系统状态响应
type StatusResponse struct {
	Success bool     `json:"success"`
	Workers int      `json:"workers"` // 任务池容量
	Busy    int      `json:"busy"`    // 正在计算的任务数
	Sources []string `json:"sources"` // 可用光源
}

// GetStatus 获取系统状态
// GET /status
func (h *Handler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, StatusResponse{
		Success: true,
		Workers: h.pool.Size(),
		Busy:    h.pool.Busy(),
		Sources: h.sources.Sources(),
	})
}

// RunsResponse 运行记录响应
type RunsResponse struct {
	Success bool        `json:"success"`
	Runs    []store.Run `json:"runs"`
}

// ListRuns 最近运行记录
// GET /runs?limit=N
func (h *Handler) ListRuns(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusOK, FailureResponse{Success: false, Text: "invalid limit"})
			return
		}
		limit = min(n, 500)
	}

	if h.runs == nil {
		c.JSON(http.StatusOK, RunsResponse{Success: true, Runs: []store.Run{}})
		return
	}

	runs, err := h.runs.ListRuns(limit)
	if err != nil {
		h.logger.Error("list runs failed", zap.Error(err))
		c.JSON(http.StatusOK, FailureResponse{Success: false, Text: "failed to read run log"})
		return
	}
	c.JSON(http.StatusOK, RunsResponse{Success: true, Runs: runs})
}
