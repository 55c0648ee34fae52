package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/OutboundSpade/Virtual-FTIR-Functions/internal/exporter"
	"github.com/OutboundSpade/Virtual-FTIR-Functions/internal/model"
	"github.com/OutboundSpade/Virtual-FTIR-Functions/internal/service/peaks"
	"github.com/OutboundSpade/Virtual-FTIR-Functions/internal/service/simulator"
	"github.com/OutboundSpade/Virtual-FTIR-Functions/internal/spectrum"
)

// exportResult 导出与绘图共用的模拟结果
type exportResult struct {
	req   ExportRequest
	cfg   *model.InstrumentConfig
	spec  *spectrum.Spectrum
	peaks peaks.PeakSet
}

func (h *Handler) prepareExport(c *gin.Context, kind string) (*exportResult, *simulator.Error) {
	var req ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug("bind export request failed", zap.Error(err))
		return nil, simulator.AsError(errors.Join(model.ErrParamCheck, err))
	}
	if req.Peaks != nil {
		if err := req.Peaks.check(); err != nil {
			return nil, simulator.AsError(err)
		}
	}

	cfg, out, serr := h.simulate(c.Request.Context(), kind, &req.SpectrumRequest, req.Background)
	if serr != nil {
		return nil, serr
	}

	res := &exportResult{req: req, cfg: cfg, spec: out}
	if req.Peaks != nil {
		set, err := peaks.FindPeaks(out.Grid, out.Values, *req.Peaks.LowerBound, *req.Peaks.UpperBound, req.Peaks.Threshold)
		if err != nil {
			return nil, simulator.AsError(err)
		}
		res.peaks = set
	}
	return res, nil
}

// Export 导出光谱 Excel
// POST /spectrum/export
func (h *Handler) Export(c *gin.Context) {
	res, serr := h.prepareExport(c, kindExport)
	if serr != nil {
		fail(c, serr)
		return
	}

	req := res.req
	opts := exporter.ExportOptions{
		Spectrum:   res.spec,
		Config:     res.cfg,
		Background: req.Background,
		Peaks:      res.peaks,
	}
	if req.Peaks != nil {
		opts.PeakWindow = &exporter.PeakWindow{
			LowerBound: *req.Peaks.LowerBound,
			UpperBound: *req.Peaks.UpperBound,
			Threshold:  req.Peaks.Threshold,
		}
	}

	file, err := h.exporter.Export(opts)
	if err != nil {
		h.logger.Error("export workbook failed", zap.Error(err))
		fail(c, simulator.AsError(err))
		return
	}
	defer file.Close()

	suffix := kindSpectrum
	if req.Background {
		suffix = kindBackground
	}
	filename := fmt.Sprintf("%s-%s.xlsx", safeName(res.cfg.Molecule), suffix)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")

	if err := file.Write(c.Writer); err != nil {
		h.logger.Error("write workbook failed", zap.Error(err))
	}
}

// Plot 光谱绘图
// POST /spectrum/plot
func (h *Handler) Plot(c *gin.Context) {
	res, serr := h.prepareExport(c, kindPlot)
	if serr != nil {
		fail(c, serr)
		return
	}

	var buf bytes.Buffer
	err := exporter.RenderPNG(&buf, res.spec, exporter.PlotOptions{
		Title: fmt.Sprintf("%s (%s)", res.cfg.Molecule, res.spec.Name),
		Peaks: res.peaks,
	})
	if err != nil {
		h.logger.Error("render plot failed", zap.Error(err))
		fail(c, simulator.AsError(err))
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

// safeName 文件名只保留字母数字
func safeName(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
	if s == "" {
		return "spectrum"
	}
	return s
}
