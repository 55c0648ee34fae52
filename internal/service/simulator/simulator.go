package simulator

import (
	"context"

	"go.uber.org/zap"

	"github.com/OutboundSpade/Virtual-FTIR-Functions/internal/model"
	"github.com/OutboundSpade/Virtual-FTIR-Functions/internal/service/components"
	"github.com/OutboundSpade/Virtual-FTIR-Functions/internal/service/engine"
	"github.com/OutboundSpade/Virtual-FTIR-Functions/internal/spectrum"
)

// CurveProvider 元件响应曲线来源
type CurveProvider interface {
	Curves(grid spectrum.Grid, source model.Source) (*components.CurveSet, error)
}

// Physics 与仪器无关的固定物理条件
type Physics struct {
	Temperature float64 // 气体温度 (K)
	PathLength  float64 // 光程 (cm)
	Isotopes    []int
	Databank    string
	WaveMin     float64 // 逐线计算范围下限 (cm⁻¹)
	WaveMax     float64 // 逐线计算范围上限 (cm⁻¹)
}

// DefaultPhysics 默认物理条件
func DefaultPhysics() Physics {
	return Physics{
		Temperature: 294.15,
		PathLength:  10,
		Isotopes:    []int{1, 2, 3},
		Databank:    "hitran",
		WaveMin:     400,
		WaveMax:     12500,
	}
}

// DefaultMaxPoints 单次计算网格点数上限
const DefaultMaxPoints = 4_000_000

// Noise 探测器噪声设置，Level 为 0 时不加噪声
type Noise struct {
	Level float64
	Seed  uint64
}

// Simulator FTIR 输出模拟器。不持有任何请求间可变状态，可并发使用。
type Simulator struct {
	engine    engine.Engine
	curves    CurveProvider
	physics   Physics
	noise     Noise
	maxPoints int
	logger    *zap.Logger
}

// Option 模拟器选项
type Option func(*Simulator)

// WithPhysics 覆盖默认物理条件
func WithPhysics(p Physics) Option {
	return func(s *Simulator) { s.physics = p }
}

// WithNoise 设置探测器噪声
func WithNoise(n Noise) Option {
	return func(s *Simulator) { s.noise = n }
}

// WithMaxPoints 设置网格点数上限，n ≤ 0 时保留默认值
func WithMaxPoints(n int) Option {
	return func(s *Simulator) {
		if n > 0 {
			s.maxPoints = n
		}
	}
}

// WithLogger 设置日志
func WithLogger(l *zap.Logger) Option {
	return func(s *Simulator) {
		if l != nil {
			s.logger = l
		}
	}
}

// New 创建模拟器
func New(eng engine.Engine, curves CurveProvider, opts ...Option) *Simulator {
	s := &Simulator{
		engine:  eng,
		curves:  curves,
		physics:   DefaultPhysics(),
		maxPoints: DefaultMaxPoints,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run 完整流程：生成原始光谱 →（可选）背景替换 → 光路合成 → 多次扫描 → 截取
func (s *Simulator) Run(ctx context.Context, cfg *model.InstrumentConfig, background bool) (*spectrum.Spectrum, error) {
	raw, err := s.Generate(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if background {
		raw = SynthesizeBackground(raw)
	}
	return s.Compose(ctx, raw, cfg)
}
