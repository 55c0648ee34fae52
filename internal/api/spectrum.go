package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/OutboundSpade/Virtual-FTIR-Functions/internal/model"
	"github.com/OutboundSpade/Virtual-FTIR-Functions/internal/service/simulator"
	"github.com/OutboundSpade/Virtual-FTIR-Functions/internal/spectrum"
	"github.com/OutboundSpade/Virtual-FTIR-Functions/internal/store"
)

// 运行类型
const (
	kindSpectrum   = "spectrum"
	kindBackground = "background"
	kindPeaks      = "find_peaks"
	kindExport     = "export"
	kindPlot       = "plot"
)

// Spectrum 模拟气体样品经过仪器后的光谱
// POST /spectrum
func (h *Handler) Spectrum(c *gin.Context) {
	h.respondSpectrum(c, kindSpectrum, false)
}

// Background 模拟无样品时的背景光谱
// POST /background
func (h *Handler) Background(c *gin.Context) {
	h.respondSpectrum(c, kindBackground, true)
}

func (h *Handler) respondSpectrum(c *gin.Context, kind string, background bool) {
	var req model.SpectrumRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug("bind spectrum request failed", zap.Error(err))
		fail(c, simulator.AsError(errors.Join(model.ErrParamCheck, err)))
		return
	}

	_, out, serr := h.simulate(c.Request.Context(), kind, &req, background)
	if serr != nil {
		fail(c, serr)
		return
	}

	c.JSON(http.StatusOK, SpectrumResponse{
		Success: true,
		X:       out.Grid,
		Y:       formatValues(out.Values),
	})
}

// simulate 参数校验 → 任务池中运行模拟 → 记录运行日志
func (h *Handler) simulate(ctx context.Context, kind string, req *model.SpectrumRequest, background bool) (*model.InstrumentConfig, *spectrum.Spectrum, *simulator.Error) {
	start := time.Now()
	molecule := ""
	if req.Molecule != nil {
		molecule = *req.Molecule
	}
	rec := h.beginRun(kind, molecule, req)

	cfg, err := req.ParamCheck(h.sources.HasSource)
	if err != nil {
		serr := simulator.AsError(err)
		h.logger.Info("parameter check failed", zap.String("kind", kind), zap.Error(err))
		h.finishRun(rec, serr, 0, time.Since(start))
		return nil, nil, serr
	}

	var out *spectrum.Spectrum
	err = h.pool.Do(ctx, func(ctx context.Context) error {
		var runErr error
		out, runErr = h.sim.Run(ctx, cfg, background)
		return runErr
	})
	if err != nil {
		serr := simulator.AsError(err)
		h.logger.Warn("simulation failed",
			zap.String("kind", kind),
			zap.String("molecule", cfg.Molecule),
			zap.String("error_kind", serr.Kind.String()),
			zap.Error(err),
		)
		h.finishRun(rec, serr, 0, time.Since(start))
		return cfg, nil, serr
	}

	h.finishRun(rec, nil, out.Len(), time.Since(start))
	return cfg, out, nil
}

// runRecord 正在进行的运行记录；id 为空表示不记录
type runRecord struct {
	id string
}

func (h *Handler) beginRun(kind, molecule string, params any) runRecord {
	if h.runs == nil {
		return runRecord{}
	}

	b, err := json.Marshal(params)
	if err != nil {
		b = []byte("{}")
	}

	id := uuid.New().String()
	if err := h.runs.CreateRun(id, kind, molecule, string(b)); err != nil {
		h.logger.Warn("create run record failed", zap.Error(err))
		return runRecord{}
	}
	return runRecord{id: id}
}

func (h *Handler) finishRun(rec runRecord, serr *simulator.Error, points int, elapsed time.Duration) {
	if h.runs == nil || rec.id == "" {
		return
	}

	status, kind, message := store.RunSucceeded, "", ""
	if serr != nil {
		status, kind, message = store.RunFailed, serr.Kind.String(), serr.Text
	}
	if err := h.runs.CompleteRun(rec.id, status, kind, message, points, elapsed); err != nil {
		h.logger.Warn("complete run record failed", zap.String("run_id", rec.id), zap.Error(err))
	}
}
