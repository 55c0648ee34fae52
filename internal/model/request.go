package model

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrParamCheck 参数校验失败
var ErrParamCheck = errors.New("parameter check failed")

// SpectrumRequest /spectrum 与 /background 的请求体。
// 指针字段用于区分"缺失"与"零值"。
type SpectrumRequest struct {
	Molecule     *string  `json:"molecule"`
	Source       *string  `json:"source"`
	Beamsplitter *string  `json:"beamsplitter"`
	Window       *string  `json:"window"`
	Detector     *string  `json:"detector"`
	Pressure     *float64 `json:"pressure"`
	Mole         *float64 `json:"mole"`
	Resolution   *float64 `json:"resolution"`
	ZeroFill     *int     `json:"zeroFill"`
	Scan         *int     `json:"scan"`
	WaveMin      *float64 `json:"waveMin"`
	WaveMax      *float64 `json:"waveMax"`
}

// ParamCheck 校验请求并生成仪器配置。
// knownSource 判断光源名称是否在配置的光源表中。
func (r *SpectrumRequest) ParamCheck(knownSource func(Source) bool) (*InstrumentConfig, error) {
	if r.Molecule == nil || r.Source == nil || r.Beamsplitter == nil || r.Window == nil || r.Detector == nil ||
		r.Pressure == nil || r.Mole == nil || r.Resolution == nil || r.ZeroFill == nil || r.Scan == nil ||
		r.WaveMin == nil || r.WaveMax == nil {
		return nil, fmt.Errorf("%w: missing field", ErrParamCheck)
	}

	for name, v := range map[string]float64{
		"pressure":   *r.Pressure,
		"mole":       *r.Mole,
		"resolution": *r.Resolution,
		"waveMin":    *r.WaveMin,
		"waveMax":    *r.WaveMax,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: %s is not finite", ErrParamCheck, name)
		}
	}

	cfg := &InstrumentConfig{
		Molecule:     strings.TrimSpace(*r.Molecule),
		Pressure:     *r.Pressure,
		MoleFraction: *r.Mole,
		Resolution:   *r.Resolution,
		ZeroFill:     *r.ZeroFill,
		ScanCount:    *r.Scan,
		Source:       Source(*r.Source),
		Beamsplitter: Beamsplitter(*r.Beamsplitter),
		Window:       Window(*r.Window),
		Detector:     Detector(*r.Detector),
		WaveMin:      *r.WaveMin,
		WaveMax:      *r.WaveMax,
	}

	switch {
	case cfg.Molecule == "":
		return nil, fmt.Errorf("%w: molecule is empty", ErrParamCheck)
	case cfg.Pressure <= 0:
		return nil, fmt.Errorf("%w: pressure must be > 0", ErrParamCheck)
	case cfg.MoleFraction <= 0 || cfg.MoleFraction > 1:
		return nil, fmt.Errorf("%w: mole must be in (0, 1]", ErrParamCheck)
	case cfg.Resolution <= 0:
		return nil, fmt.Errorf("%w: resolution must be > 0", ErrParamCheck)
	case cfg.ZeroFill < 0:
		return nil, fmt.Errorf("%w: zeroFill must be >= 0", ErrParamCheck)
	case cfg.ScanCount < 1:
		return nil, fmt.Errorf("%w: scan must be >= 1", ErrParamCheck)
	case cfg.WaveMin >= cfg.WaveMax:
		return nil, fmt.Errorf("%w: waveMin must be < waveMax", ErrParamCheck)
	case knownSource == nil || !knownSource(cfg.Source):
		return nil, fmt.Errorf("%w: unknown source %q", ErrParamCheck, cfg.Source)
	case !cfg.Beamsplitter.Valid():
		return nil, fmt.Errorf("%w: unknown beamsplitter %q", ErrParamCheck, cfg.Beamsplitter)
	case !cfg.Window.Valid():
		return nil, fmt.Errorf("%w: unknown window %q", ErrParamCheck, cfg.Window)
	case !cfg.Detector.Valid():
		return nil, fmt.Errorf("%w: unknown detector %q", ErrParamCheck, cfg.Detector)
	}

	return cfg, nil
}
