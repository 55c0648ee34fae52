package simulator

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/OutboundSpade/Virtual-FTIR-Functions/internal/model"
	"github.com/OutboundSpade/Virtual-FTIR-Functions/internal/service/components"
	"github.com/OutboundSpade/Virtual-FTIR-Functions/internal/spectrum"
)

type termSelector func(c *components.CurveSet) []*spectrum.Spectrum

// 分束器：只取一片
var beamsplitterTerms = map[model.Beamsplitter]termSelector{
	model.BeamsplitterARZnSe: func(c *components.CurveSet) []*spectrum.Spectrum { return []*spectrum.Spectrum{c.ARZnSe} },
	model.BeamsplitterARCaF2: func(c *components.CurveSet) []*spectrum.Spectrum { return []*spectrum.Spectrum{c.ARCaF2} },
}

// 样品池入射、出射两片窗，材料相同
var windowTerms = map[model.Window]termSelector{
	model.WindowCaF2: func(c *components.CurveSet) []*spectrum.Spectrum { return []*spectrum.Spectrum{c.CaF2, c.CaF2} },
	model.WindowZnSe: func(c *components.CurveSet) []*spectrum.Spectrum { return []*spectrum.Spectrum{c.ZnSe, c.ZnSe} },
}

// 探测器前光路材料固定，与样品池窗片无关
var detectorTerms = map[model.Detector]termSelector{
	model.DetectorMCT:  func(c *components.CurveSet) []*spectrum.Spectrum { return []*spectrum.Spectrum{c.ZnSe, c.MCT} },
	model.DetectorInSb: func(c *components.CurveSet) []*spectrum.Spectrum { return []*spectrum.Spectrum{c.Sapphire, c.InSb} },
}

// Compose 光路合成：样品光谱依次乘以光源、分束器、窗片、探测器光路与探测器响应，
// 再做多次扫描与范围截取。输入光谱不会被修改。
func (s *Simulator) Compose(ctx context.Context, in *spectrum.Spectrum, cfg *model.InstrumentConfig) (*spectrum.Spectrum, error) {
	if err := ctx.Err(); err != nil {
		return nil, AsError(err)
	}

	bs, ok := beamsplitterTerms[cfg.Beamsplitter]
	if !ok {
		return nil, validationError(fmt.Errorf("unknown beamsplitter %q", cfg.Beamsplitter))
	}
	win, ok := windowTerms[cfg.Window]
	if !ok {
		return nil, validationError(fmt.Errorf("unknown window %q", cfg.Window))
	}
	det, ok := detectorTerms[cfg.Detector]
	if !ok {
		return nil, validationError(fmt.Errorf("unknown detector %q", cfg.Detector))
	}

	set, err := s.curves.Curves(in.Grid, cfg.Source)
	if err != nil {
		return nil, AsError(fmt.Errorf("component curves: %w", err))
	}

	terms := []*spectrum.Spectrum{in, set.Source}
	terms = append(terms, bs(set)...)
	terms = append(terms, win(set)...)
	terms = append(terms, det(set)...)

	composed, err := spectrum.Serial(in.Name, terms...)
	if err != nil {
		return nil, AsError(err)
	}

	integrated, err := s.IntegrateScans(composed, cfg.ScanCount)
	if err != nil {
		return nil, err
	}

	out := integrated.Crop(cfg.WaveMin, cfg.WaveMax)
	s.logger.Debug("spectrum composed",
		zap.String("name", in.Name),
		zap.Int("terms", len(terms)),
		zap.Int("points", out.Len()),
	)
	return out, nil
}
