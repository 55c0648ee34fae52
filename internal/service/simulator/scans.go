package simulator

import (
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/OutboundSpade/Virtual-FTIR-Functions/internal/spectrum"
)

// IntegrateScans 模拟 scans 次采集并取平均，最后按峰值归一化。
// 噪声为 0 时每次采集都等于输入，结果即 Normalize(in)。
func (s *Simulator) IntegrateScans(in *spectrum.Spectrum, scans int) (*spectrum.Spectrum, error) {
	if scans < 1 {
		return nil, validationError(fmt.Errorf("scan count must be >= 1, got %d", scans))
	}

	acc := make([]float64, in.Len())
	if s.noise.Level > 0 && in.Len() > 0 {
		seed := s.noise.Seed
		if seed == 0 {
			seed = uint64(time.Now().UnixNano())
		}
		rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
		for pass := 0; pass < scans; pass++ {
			for i, v := range in.Values {
				acc[i] += v + rng.NormFloat64()*s.noise.Level
			}
		}
		floats.Scale(1/float64(scans), acc)
	} else {
		copy(acc, in.Values)
	}

	out, ok := Normalize(in.WithValues(in.Name, acc))
	if !ok {
		s.logger.Warn("spectrum not normalized: maximum is not positive",
			zap.String("name", in.Name),
			zap.Int("points", in.Len()),
		)
	}
	return out, nil
}

// Normalize 除以最大值使峰值恰为 1。最大值 ≤ 0 或光谱为空时原样返回并报告 false。
func Normalize(in *spectrum.Spectrum) (*spectrum.Spectrum, bool) {
	peak, err := in.Max()
	if err != nil || peak <= 0 {
		return in, false
	}

	values := make([]float64, in.Len())
	for i, v := range in.Values {
		values[i] = v / peak
	}
	return in.WithValues(in.Name, values), true
}
