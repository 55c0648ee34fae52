package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/OutboundSpade/Virtual-FTIR-Functions/internal/model"
	"github.com/OutboundSpade/Virtual-FTIR-Functions/internal/service/peaks"
	"github.com/OutboundSpade/Virtual-FTIR-Functions/internal/service/simulator"
)

// FindPeaks 在 (x, y) 曲线上查找发射峰
// POST /find_peaks
func (h *Handler) FindPeaks(c *gin.Context) {
	start := time.Now()

	var req FindPeaksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug("bind find_peaks request failed", zap.Error(err))
		fail(c, simulator.AsError(errors.Join(model.ErrParamCheck, err)))
		return
	}
	// 只记录检测参数，不保存曲线本身
	rec := h.beginRun(kindPeaks, "", gin.H{
		"points":     len(req.X),
		"lowerBound": req.LowerBound,
		"upperBound": req.UpperBound,
		"threshold":  req.Threshold,
	})

	if err := req.check(); err != nil {
		serr := simulator.AsError(err)
		h.finishRun(rec, serr, 0, time.Since(start))
		fail(c, serr)
		return
	}

	y := make([]float64, len(req.Y))
	for i, v := range req.Y {
		y[i] = float64(v)
	}

	set, err := peaks.FindPeaks(req.X, y, *req.LowerBound, *req.UpperBound, req.Threshold)
	if err != nil {
		serr := simulator.AsError(err)
		h.logger.Info("peak detection failed", zap.Int("points", len(req.X)), zap.Error(err))
		h.finishRun(rec, serr, 0, time.Since(start))
		fail(c, serr)
		return
	}

	h.finishRun(rec, nil, len(set), time.Since(start))
	c.JSON(http.StatusOK, PeaksResponse{
		Success: true,
		Peaks:   peaksToWire(set),
	})
}
