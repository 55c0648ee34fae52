package engine

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Line HITRAN 谱线参数（参考温度 296 K）
type Line struct {
	Isotope    int
	Wavenumber float64 // ν0 (cm⁻¹)
	Intensity  float64 // S (cm⁻¹/(molecule·cm⁻²))
	GammaAir   float64 // 空气展宽半宽 (cm⁻¹/atm)
	GammaSelf  float64 // 自展宽半宽 (cm⁻¹/atm)
	LowerE     float64 // 低态能量 E'' (cm⁻¹)
	NAir       float64 // 展宽温度指数
	DeltaAir   float64 // 压力频移 (cm⁻¹/atm)
}

// molecule HITRAN 分子编号与是否线性分子（决定配分函数温度指数）
type molecule struct {
	id     int
	linear bool
}

var molecules = map[string]molecule{
	"H2O":  {1, false},
	"CO2":  {2, true},
	"O3":   {3, false},
	"N2O":  {4, true},
	"CO":   {5, true},
	"CH4":  {6, false},
	"O2":   {7, true},
	"NO":   {8, true},
	"SO2":  {9, false},
	"NO2":  {10, false},
	"NH3":  {11, false},
	"HNO3": {12, false},
	"OH":   {13, true},
	"HF":   {14, true},
	"HCl":  {15, true},
	"HBr":  {16, true},
	"HI":   {17, true},
	"OCS":  {19, true},
	"H2CO": {20, false},
	"C2H2": {26, true},
	"C2H6": {27, false},
}

// lineFilter 读取时的过滤条件
type lineFilter struct {
	moleculeID int
	isotopes   map[int]bool
	min, max   float64
}

// readLines 解析 160 列定长 .par 格式，只保留满足过滤条件的谱线
func readLines(ctx context.Context, r io.Reader, f lineFilter) ([]Line, error) {
	var lines []Line
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 256), 1024*1024)

	n := 0
	for scanner.Scan() {
		n++
		if n%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		raw := scanner.Text()
		if strings.TrimSpace(raw) == "" {
			continue
		}
		if len(raw) < 67 {
			return nil, fmt.Errorf("%w: line %d is truncated", ErrRetrieval, n)
		}

		id, err := strconv.Atoi(strings.TrimSpace(raw[0:2]))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: bad molecule id", ErrRetrieval, n)
		}
		if id != f.moleculeID {
			continue
		}
		iso := isotopeNumber(raw[2])
		if len(f.isotopes) > 0 && !f.isotopes[iso] {
			continue
		}

		nu, err := parseField(raw[3:15])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrRetrieval, n, err)
		}
		if nu < f.min || nu > f.max {
			continue
		}

		line := Line{Isotope: iso, Wavenumber: nu}
		fields := []struct {
			dst *float64
			col string
		}{
			{&line.Intensity, raw[15:25]},
			{&line.GammaAir, raw[35:40]},
			{&line.GammaSelf, raw[40:45]},
			{&line.LowerE, raw[45:55]},
			{&line.NAir, raw[55:59]},
			{&line.DeltaAir, raw[59:67]},
		}
		for _, fd := range fields {
			v, err := parseField(fd.col)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrRetrieval, n, err)
			}
			*fd.dst = v
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrieval, err)
	}
	return lines, nil
}

func parseField(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

// isotopeNumber 同位素编号：'0' 表示第 10 个，字母依次为 11 起
func isotopeNumber(c byte) int {
	switch {
	case c >= '1' && c <= '9':
		return int(c - '0')
	case c == '0':
		return 10
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 11
	default:
		return 0
	}
}
