package simulator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/OutboundSpade/Virtual-FTIR-Functions/internal/model"
	"github.com/OutboundSpade/Virtual-FTIR-Functions/internal/service/engine"
	"github.com/OutboundSpade/Virtual-FTIR-Functions/internal/spectrum"
)

// Generate 调用辐射传输引擎生成原始透过率光谱，失败时归类为面向用户的错误
func (s *Simulator) Generate(ctx context.Context, cfg *model.InstrumentConfig) (*spectrum.Spectrum, error) {
	start := time.Now()
	req := engine.Request{
		Molecule:     cfg.Molecule,
		Isotopes:     s.physics.Isotopes,
		Pressure:     cfg.Pressure,
		MoleFraction: cfg.MoleFraction,
		Temperature:  s.physics.Temperature,
		PathLength:   s.physics.PathLength,
		WaveMin:      s.physics.WaveMin,
		WaveMax:      s.physics.WaveMax,
		Step:         engine.StepSize(cfg.Resolution, cfg.ZeroFill),
		Databank:     s.physics.Databank,
	}

	if n := engine.GridPoints(req.WaveMin, req.WaveMax, req.Step); n > float64(s.maxPoints) {
		s.logger.Info("grid too large",
			zap.String("molecule", cfg.Molecule),
			zap.Float64("step", req.Step),
			zap.Float64("points", n),
			zap.Int("max_points", s.maxPoints),
		)
		return nil, AsError(fmt.Errorf("%w: grid of %.0f points exceeds limit %d", model.ErrParamCheck, n, s.maxPoints))
	}

	raw, err := s.engine.Calculate(ctx, req)
	if err != nil {
		e := AsError(err)
		s.logger.Info("engine failed",
			zap.String("molecule", cfg.Molecule),
			zap.String("kind", e.Kind.String()),
			zap.Error(err),
		)
		return nil, e
	}
	if raw.Len() == 0 {
		return nil, AsError(engine.ErrEmptyDatabase)
	}

	s.logger.Debug("raw spectrum generated",
		zap.String("molecule", cfg.Molecule),
		zap.Float64("step", req.Step),
		zap.Int("points", raw.Len()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return raw, nil
}
