package peaks

import (
	"errors"
	"fmt"
	"math"

	"github.com/OutboundSpade/Virtual-FTIR-Functions/internal/spectrum"
)

// ErrDetection 寻峰失败
var ErrDetection = errors.New("peak detection failed")

// noiseFactor 寻线噪声倍数
const noiseFactor = 1.0

// PeakSet 峰位（4 位小数）→ 峰值（4 位小数）
type PeakSet map[float64]float64

// FindPeaks 在 [lowerBound, upperBound] 内查找幅值不低于 threshold 的发射峰。
// x 须严格单调，递增或递减均可。
// 任一步失败都返回 ErrDetection，不返回部分结果。
func FindPeaks(x, y []float64, lowerBound, upperBound, threshold float64) (PeakSet, error) {
	s, err := absorbanceCurve(x, y)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDetection, err)
	}
	lines, err := FindLinesThreshold(s, nil, noiseFactor)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDetection, err)
	}

	peaks := PeakSet{}
	for _, line := range lines {
		wn, v := s.Grid[line.Index], s.Values[line.Index]
		if wn < lowerBound || wn > upperBound {
			continue
		}
		if line.Type == Emission && v >= threshold {
			peaks[round4(wn)] = round4(v)
		}
	}
	return peaks, nil
}

func absorbanceCurve(x, y []float64) (*spectrum.Spectrum, error) {
	if len(x) == 0 {
		return nil, spectrum.ErrEmpty
	}
	for i, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("non-finite value at %d", i)
		}
	}
	if len(x) != len(y) {
		return nil, fmt.Errorf("%d wavenumbers but %d values", len(x), len(y))
	}
	// 递减轴翻转为递增
	if len(x) > 1 && x[0] > x[len(x)-1] {
		x, y = reversed(x), reversed(y)
	}
	grid := spectrum.Grid(x)
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	return spectrum.New("peaks", spectrum.Absorbance, grid, y)
}

func reversed(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[len(v)-1-i] = x
	}
	return out
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
