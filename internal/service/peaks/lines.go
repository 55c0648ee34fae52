package peaks

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/OutboundSpade/Virtual-FTIR-Functions/internal/spectrum"
)

// LineType 谱线类型
type LineType string

const (
	Emission   LineType = "emission"
	Absorption LineType = "absorption"
)

// Line 阈值寻线结果。Index 为中心在原始数组中的下标。
type Line struct {
	Center float64
	Type   LineType
	Index  int
}

// FindLinesThreshold 阈值寻线：|y[i]| 超过 noiseFactor·uncertainty[i] 的连续点构成一条谱线，
// 正值段取最大值处为发射线中心，负值段取最小值处为吸收线中心。
// uncertainty 为 nil 时噪声取 0，即每段连续的正值或负值都是一条谱线。
func FindLinesThreshold(s *spectrum.Spectrum, uncertainty []float64, noiseFactor float64) ([]Line, error) {
	if s.Len() == 0 {
		return nil, nil
	}
	if uncertainty != nil && len(uncertainty) != s.Len() {
		return nil, fmt.Errorf("uncertainty has %d values, spectrum has %d", len(uncertainty), s.Len())
	}
	limit := func(i int) float64 {
		if uncertainty == nil {
			return 0
		}
		return noiseFactor * uncertainty[i]
	}

	var lines []Line
	scan := func(positive bool) {
		start := -1
		flush := func(end int) {
			if start < 0 {
				return
			}
			best := start + floats.MinIdx(s.Values[start:end])
			if positive {
				best = start + floats.MaxIdx(s.Values[start:end])
			}
			typ := Emission
			if !positive {
				typ = Absorption
			}
			lines = append(lines, Line{Center: s.Grid[best], Type: typ, Index: best})
			start = -1
		}

		for i, v := range s.Values {
			hit := math.Abs(v) > limit(i) && (positive && v > 0 || !positive && v < 0)
			if hit && start < 0 {
				start = i
			}
			if !hit {
				flush(i)
			}
		}
		flush(s.Len())
	}

	scan(true)
	scan(false)
	return lines, nil
}
