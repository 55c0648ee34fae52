package spectrum

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Quantity 光谱物理量
type Quantity string

const (
	Transmittance Quantity = "transmittance"
	Absorbance    Quantity = "absorbance"
)

var (
	// ErrGridMismatch 参与合成的光谱网格不一致
	ErrGridMismatch = errors.New("spectrum: wavenumber grids differ")
	// ErrEmpty 空光谱
	ErrEmpty = errors.New("spectrum: empty")
)

// Grid 波数网格（cm⁻¹，严格递增）
type Grid []float64

// Equal 判断两个网格是否完全一致
func (g Grid) Equal(o Grid) bool {
	if len(g) != len(o) {
		return false
	}
	return floats.Equal(g, o)
}

// Validate 检查网格严格递增且为有限值
func (g Grid) Validate() error {
	for i, v := range g {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("spectrum: non-finite wavenumber at %d", i)
		}
		if i > 0 && v <= g[i-1] {
			return fmt.Errorf("spectrum: grid not strictly increasing at %d", i)
		}
	}
	return nil
}

// Uniform 生成 [min, max] 上步长为 step 的等距网格
func Uniform(min, max, step float64) Grid {
	if step <= 0 || max < min {
		return Grid{}
	}
	n := int(math.Floor((max-min)/step+1e-9)) + 1
	g := make(Grid, n)
	for i := range g {
		g[i] = min + float64(i)*step
	}
	return g
}

// Spectrum 光谱：网格与取值一一对应。
// 约定为不可变值，所有变换返回新对象。
type Spectrum struct {
	Grid     Grid
	Values   []float64
	Quantity Quantity
	Name     string
}

// New 创建光谱，网格与取值长度必须一致
func New(name string, q Quantity, grid Grid, values []float64) (*Spectrum, error) {
	if len(grid) != len(values) {
		return nil, fmt.Errorf("spectrum %q: %d wavenumbers but %d values", name, len(grid), len(values))
	}
	return &Spectrum{Grid: grid, Values: values, Quantity: q, Name: name}, nil
}

// Constant 在给定网格上生成常数光谱
func Constant(name string, q Quantity, grid Grid, v float64) *Spectrum {
	values := make([]float64, len(grid))
	for i := range values {
		values[i] = v
	}
	return &Spectrum{Grid: grid, Values: values, Quantity: q, Name: name}
}

// Len 采样点数
func (s *Spectrum) Len() int {
	return len(s.Values)
}

// Clone 深拷贝
func (s *Spectrum) Clone() *Spectrum {
	grid := make(Grid, len(s.Grid))
	copy(grid, s.Grid)
	values := make([]float64, len(s.Values))
	copy(values, s.Values)
	return &Spectrum{Grid: grid, Values: values, Quantity: s.Quantity, Name: s.Name}
}

// WithValues 以相同网格生成新光谱（共享只读网格）
func (s *Spectrum) WithValues(name string, values []float64) *Spectrum {
	return &Spectrum{Grid: s.Grid, Values: values, Quantity: s.Quantity, Name: name}
}

// Max 最大值，空光谱返回 ErrEmpty
func (s *Spectrum) Max() (float64, error) {
	if len(s.Values) == 0 {
		return 0, ErrEmpty
	}
	return floats.Max(s.Values), nil
}

// Crop 截取 [min, max] 波数范围（闭区间），返回新光谱
func (s *Spectrum) Crop(min, max float64) *Spectrum {
	lo := sort.SearchFloat64s(s.Grid, min)
	hi := sort.Search(len(s.Grid), func(i int) bool { return s.Grid[i] > max })
	if lo >= hi {
		return &Spectrum{Grid: Grid{}, Values: []float64{}, Quantity: s.Quantity, Name: s.Name}
	}

	grid := make(Grid, hi-lo)
	copy(grid, s.Grid[lo:hi])
	values := make([]float64, hi-lo)
	copy(values, s.Values[lo:hi])
	return &Spectrum{Grid: grid, Values: values, Quantity: s.Quantity, Name: s.Name}
}

// Serial 串联合成：逐点相乘所有光谱的取值。
// 结果写入新分配的缓冲区，输入光谱不被修改。
func Serial(name string, terms ...*Spectrum) (*Spectrum, error) {
	if len(terms) == 0 {
		return nil, ErrEmpty
	}
	base := terms[0]
	for _, t := range terms[1:] {
		if !base.Grid.Equal(t.Grid) {
			return nil, fmt.Errorf("%w: %q vs %q", ErrGridMismatch, base.Name, t.Name)
		}
	}

	values := make([]float64, len(base.Values))
	copy(values, base.Values)
	for _, t := range terms[1:] {
		floats.Mul(values, t.Values)
	}
	return &Spectrum{Grid: base.Grid, Values: values, Quantity: Transmittance, Name: name}, nil
}
