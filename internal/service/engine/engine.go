package engine

import (
	"context"
	"errors"
	"math"

	"github.com/OutboundSpade/Virtual-FTIR-Functions/internal/spectrum"
)

var (
	// ErrEmptyDatabase 请求范围内谱线数据不足
	ErrEmptyDatabase = errors.New("insufficient data points in requested range")
	// ErrRetrieval 无法按给定参数获取谱线数据
	ErrRetrieval = errors.New("failed to retrieve data for given parameters")
)

// Request 逐线计算参数
type Request struct {
	Molecule     string
	Isotopes     []int
	Pressure     float64 // atm
	MoleFraction float64
	Temperature  float64 // K
	PathLength   float64 // cm
	WaveMin      float64 // cm⁻¹
	WaveMax      float64 // cm⁻¹
	Step         float64 // cm⁻¹
	Databank     string
}

// Engine 辐射传输引擎：由气体参数计算原始透过率光谱
type Engine interface {
	Calculate(ctx context.Context, req Request) (*spectrum.Spectrum, error)
}

// 分辨率 1 cm⁻¹ 的仪器对应的网格步长
const unitResolutionStep = 0.481927711

// StepSize 由分辨率与补零级数计算网格步长，每一级补零使点密度加倍
func StepSize(resolution float64, zeroFill int) float64 {
	if zeroFill < 0 {
		zeroFill = 0
	}
	return resolution * unitResolutionStep / math.Pow(2, float64(zeroFill))
}

// GridPoints [waveMin, waveMax] 上步长为 step 的网格点数
func GridPoints(waveMin, waveMax, step float64) float64 {
	if step <= 0 || waveMax < waveMin {
		return 0
	}
	return math.Floor((waveMax-waveMin)/step) + 1
}
