package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/OutboundSpade/Virtual-FTIR-Functions/internal/spectrum"
)

const (
	referenceTemperature = 296.0       // HITRAN 参考温度 (K)
	boltzmann            = 1.380649e-23 // J/K
	atmosphere           = 101325.0     // Pa
	c2                   = 1.4387769    // cm·K
	lineWingCutoff       = 50.0         // 谱线截断 (cm⁻¹)
)

// LBL 基于本地 HITRAN .par 文件的逐线计算引擎。
// 数据库目录下每个分子一个文件，例如 CO2.par。
type LBL struct {
	dir string
}

// NewLBL 创建逐线引擎
func NewLBL(databankDir string) *LBL {
	return &LBL{dir: databankDir}
}

// Calculate 计算 [WaveMin, WaveMax] 上的透过率光谱
func (e *LBL) Calculate(ctx context.Context, req Request) (*spectrum.Spectrum, error) {
	if req.Step <= 0 || req.WaveMin >= req.WaveMax {
		return nil, fmt.Errorf("invalid wavenumber range [%v, %v] step %v", req.WaveMin, req.WaveMax, req.Step)
	}
	if req.Temperature <= 0 || req.Pressure <= 0 || req.PathLength <= 0 {
		return nil, fmt.Errorf("temperature, pressure and path length must be > 0")
	}

	name, mol, ok := lookupMolecule(req.Molecule)
	if !ok {
		return nil, fmt.Errorf("%w: unknown molecule %q", ErrRetrieval, req.Molecule)
	}

	lines, err := e.load(ctx, req, name, mol)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrEmptyDatabase
	}

	grid := spectrum.Uniform(req.WaveMin, req.WaveMax, req.Step)
	absorbance := make([]float64, len(grid))

	// 吸收分子柱密度 (molecules/cm²)
	numberDensity := req.Pressure * atmosphere / (boltzmann * req.Temperature) * 1e-6
	column := numberDensity * req.MoleFraction * req.PathLength

	qExp := 1.5
	if mol.linear {
		qExp = 1.0
	}
	tRatio := referenceTemperature / req.Temperature
	partitionRatio := math.Pow(tRatio, qExp)
	selfPressure := req.Pressure * req.MoleFraction

	for n, l := range lines {
		if n%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		center := l.Wavenumber + l.DeltaAir*req.Pressure
		boltz := math.Exp(-c2 * l.LowerE * (1/req.Temperature - 1/referenceTemperature))
		stim := -math.Expm1(-c2*l.Wavenumber/req.Temperature) / -math.Expm1(-c2*l.Wavenumber/referenceTemperature)
		strength := l.Intensity * partitionRatio * boltz * stim * column

		gamma := math.Pow(tRatio, l.NAir) * (l.GammaAir*(req.Pressure-selfPressure) + l.GammaSelf*selfPressure)
		if gamma <= 0 {
			continue
		}

		lo := int(math.Ceil((center - lineWingCutoff - req.WaveMin) / req.Step))
		hi := int(math.Floor((center + lineWingCutoff - req.WaveMin) / req.Step))
		if lo < 0 {
			lo = 0
		}
		if hi > len(grid)-1 {
			hi = len(grid) - 1
		}
		for i := lo; i <= hi; i++ {
			d := grid[i] - center
			absorbance[i] += strength * gamma / math.Pi / (d*d + gamma*gamma)
		}
	}

	values := make([]float64, len(grid))
	for i, a := range absorbance {
		values[i] = math.Exp(-a)
	}
	return spectrum.New(name, spectrum.Transmittance, grid, values)
}

func (e *LBL) load(ctx context.Context, req Request, name string, mol molecule) ([]Line, error) {
	path := filepath.Join(e.dir, name+".par")
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: no %s line list in %s", ErrRetrieval, req.Databank, e.dir)
		}
		return nil, fmt.Errorf("%w: %v", ErrRetrieval, err)
	}
	defer f.Close()

	isotopes := make(map[int]bool, len(req.Isotopes))
	for _, iso := range req.Isotopes {
		isotopes[iso] = true
	}

	return readLines(ctx, f, lineFilter{
		moleculeID: mol.id,
		isotopes:   isotopes,
		min:        req.WaveMin - lineWingCutoff,
		max:        req.WaveMax + lineWingCutoff,
	})
}

// lookupMolecule 不区分大小写查找分子，返回规范名称
func lookupMolecule(s string) (string, molecule, bool) {
	s = strings.TrimSpace(s)
	for name, mol := range molecules {
		if strings.EqualFold(name, s) {
			return name, mol, true
		}
	}
	return "", molecule{}, false
}
