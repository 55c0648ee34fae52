package components

import (
	_ "embed"
	"fmt"
	"math"
	"sort"

	"github.com/pelletier/go-toml/v2"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"

	"github.com/OutboundSpade/Virtual-FTIR-Functions/internal/model"
	"github.com/OutboundSpade/Virtual-FTIR-Functions/internal/spectrum"
)

//go:embed materials.toml
var materialsTOML []byte

// 第二辐射常数 c2 = hc/k (cm·K)
const secondRadiationConstant = 1.4387769

// 透过率表中必须存在的材料
const (
	MaterialARZnSe   = "AR_ZnSe"
	MaterialARCaF2   = "AR_CaF2"
	MaterialCaF2     = "CaF2"
	MaterialZnSe     = "ZnSe"
	MaterialSapphire = "sapphire"
)

var requiredMaterials = []string{MaterialARZnSe, MaterialARCaF2, MaterialCaF2, MaterialZnSe, MaterialSapphire}

// CurveSet 单次请求的全部元件响应曲线，共享请求网格
type CurveSet struct {
	Source   *spectrum.Spectrum // 光源发射
	ARZnSe   *spectrum.Spectrum // 分束器
	ARCaF2   *spectrum.Spectrum // 分束器
	CaF2     *spectrum.Spectrum // 窗片
	ZnSe     *spectrum.Spectrum // 窗片 / MCT 光路
	Sapphire *spectrum.Spectrum // InSb 光路
	MCT      *spectrum.Spectrum // 探测器
	InSb     *spectrum.Spectrum // 探测器
}

type materialTable struct {
	Wavenumber    []float64 `toml:"wavenumber"`
	Transmittance []float64 `toml:"transmittance"`
}

type detectorTable struct {
	Cutoff    float64 `toml:"cutoff"`
	EdgeWidth float64 `toml:"edge_width"`
}

type catalog struct {
	Materials map[string]materialTable `toml:"materials"`
	Detectors map[string]detectorTable `toml:"detectors"`
}

type material struct {
	curve    interp.PiecewiseLinear
	min, max float64
}

// Library 元件响应曲线库
type Library struct {
	sources   map[model.Source]float64
	materials map[string]*material
	detectors map[model.Detector]detectorTable
}

// NewLibrary 加载内置材料表。sources 为光源名称到黑体温度 (K) 的映射。
func NewLibrary(sources map[string]float64) (*Library, error) {
	var cat catalog
	if err := toml.Unmarshal(materialsTOML, &cat); err != nil {
		return nil, fmt.Errorf("failed to parse materials table: %w", err)
	}

	lib := &Library{
		sources:   make(map[model.Source]float64, len(sources)),
		materials: make(map[string]*material, len(cat.Materials)),
		detectors: make(map[model.Detector]detectorTable, len(cat.Detectors)),
	}

	for name, kelvin := range sources {
		if kelvin <= 0 {
			return nil, fmt.Errorf("source %q: temperature must be > 0, got %v", name, kelvin)
		}
		lib.sources[model.Source(name)] = kelvin
	}

	for _, name := range requiredMaterials {
		table, ok := cat.Materials[name]
		if !ok {
			return nil, fmt.Errorf("materials table: missing %q", name)
		}
		m := &material{}
		if err := m.curve.Fit(table.Wavenumber, table.Transmittance); err != nil {
			return nil, fmt.Errorf("materials table %q: %w", name, err)
		}
		m.min = table.Wavenumber[0]
		m.max = table.Wavenumber[len(table.Wavenumber)-1]
		lib.materials[name] = m
	}

	for _, d := range model.Detectors {
		table, ok := cat.Detectors[string(d)]
		if !ok {
			return nil, fmt.Errorf("detectors table: missing %q", d)
		}
		if table.Cutoff <= 0 || table.EdgeWidth <= 0 {
			return nil, fmt.Errorf("detectors table %q: cutoff and edge_width must be > 0", d)
		}
		lib.detectors[d] = table
	}

	return lib, nil
}

// HasSource 光源是否已配置
func (l *Library) HasSource(s model.Source) bool {
	_, ok := l.sources[s]
	return ok
}

// Sources 已配置的光源名称（排序）
func (l *Library) Sources() []string {
	out := make([]string, 0, len(l.sources))
	for s := range l.sources {
		out = append(out, string(s))
	}
	sort.Strings(out)
	return out
}

// Curves 在给定网格上生成全部元件曲线
func (l *Library) Curves(grid spectrum.Grid, source model.Source) (*CurveSet, error) {
	kelvin, ok := l.sources[source]
	if !ok {
		return nil, fmt.Errorf("unknown source %q", source)
	}

	return &CurveSet{
		Source:   Planck(grid, kelvin),
		ARZnSe:   l.transmission(grid, MaterialARZnSe),
		ARCaF2:   l.transmission(grid, MaterialARCaF2),
		CaF2:     l.transmission(grid, MaterialCaF2),
		ZnSe:     l.transmission(grid, MaterialZnSe),
		Sapphire: l.transmission(grid, MaterialSapphire),
		MCT:      l.responsivity(grid, model.DetectorMCT),
		InSb:     l.responsivity(grid, model.DetectorInSb),
	}, nil
}

func (l *Library) transmission(grid spectrum.Grid, name string) *spectrum.Spectrum {
	m := l.materials[name]
	values := make([]float64, len(grid))
	for i, x := range grid {
		values[i] = m.curve.Predict(math.Min(math.Max(x, m.min), m.max))
	}
	return &spectrum.Spectrum{Grid: grid, Values: values, Quantity: spectrum.Transmittance, Name: name}
}

// responsivity 光子型探测器响应率：截止波数以上 ∝ 1/ν，截止处以 logistic 边缘衰减
func (l *Library) responsivity(grid spectrum.Grid, d model.Detector) *spectrum.Spectrum {
	p := l.detectors[d]
	values := make([]float64, len(grid))
	for i, x := range grid {
		if x <= 0 {
			continue
		}
		edge := 1 / (1 + math.Exp(-(x-p.Cutoff)/p.EdgeWidth))
		values[i] = p.Cutoff / x * edge
	}
	return &spectrum.Spectrum{Grid: grid, Values: values, Quantity: spectrum.Transmittance, Name: string(d)}
}

// Planck 黑体辐射曲线，归一化到网格上的峰值为 1
func Planck(grid spectrum.Grid, kelvin float64) *spectrum.Spectrum {
	values := make([]float64, len(grid))
	for i, x := range grid {
		if x <= 0 {
			continue
		}
		values[i] = x * x * x / math.Expm1(secondRadiationConstant*x/kelvin)
	}
	if len(values) > 0 {
		if peak := floats.Max(values); peak > 0 {
			floats.Scale(1/peak, values)
		}
	}
	return &spectrum.Spectrum{Grid: grid, Values: values, Quantity: spectrum.Transmittance, Name: "Planck"}
}
