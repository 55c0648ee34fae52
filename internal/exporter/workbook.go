package exporter

import (
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/OutboundSpade/Virtual-FTIR-Functions/internal/model"
	"github.com/OutboundSpade/Virtual-FTIR-Functions/internal/service/peaks"
	"github.com/OutboundSpade/Virtual-FTIR-Functions/internal/spectrum"
)

// 工作表名称
const (
	SheetSpectrum   = "Spectrum"
	SheetParameters = "Parameters"
	SheetPeaks      = "Peaks"
)

// PeakWindow 峰检测参数（导出时一并写入）
type PeakWindow struct {
	LowerBound float64
	UpperBound float64
	Threshold  float64
}

// ExportOptions 导出选项
type ExportOptions struct {
	Spectrum *spectrum.Spectrum
	Config   *model.InstrumentConfig
	// Background 为 true 时表示导出的是背景谱
	Background bool
	// Peaks 为 nil 时不生成峰值表
	Peaks      peaks.PeakSet
	PeakWindow *PeakWindow
}

// Exporter 光谱导出器
type Exporter struct{}

// NewExporter 创建导出器
func NewExporter() *Exporter {
	return &Exporter{}
}

// Export 导出光谱到 Excel
func (e *Exporter) Export(opts ExportOptions) (*excelize.File, error) {
	if opts.Spectrum == nil || opts.Spectrum.Len() == 0 {
		return nil, fmt.Errorf("export spectrum: %w", spectrum.ErrEmpty)
	}

	f := excelize.NewFile()
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("create header style: %w", err)
	}

	if err := writeSpectrumSheet(f, opts.Spectrum, headerStyle); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := writeParameterSheet(f, opts, headerStyle); err != nil {
		_ = f.Close()
		return nil, err
	}
	if opts.Peaks != nil {
		if err := writePeakSheet(f, opts.Peaks, opts.PeakWindow, headerStyle); err != nil {
			_ = f.Close()
			return nil, err
		}
	}

	f.SetActiveSheet(0)
	return f, nil
}

func writeSpectrumSheet(f *excelize.File, s *spectrum.Spectrum, headerStyle int) error {
	if err := f.SetSheetName("Sheet1", SheetSpectrum); err != nil {
		return fmt.Errorf("rename spectrum sheet: %w", err)
	}

	// 大量数据行走流式写入器
	sw, err := f.NewStreamWriter(SheetSpectrum)
	if err != nil {
		return fmt.Errorf("open spectrum stream: %w", err)
	}
	if err := sw.SetColWidth(1, 2, 20); err != nil {
		return fmt.Errorf("set spectrum width: %w", err)
	}
	if err := sw.SetRow("A1", []interface{}{
		excelize.Cell{StyleID: headerStyle, Value: "Wavenumber (cm-1)"},
		excelize.Cell{StyleID: headerStyle, Value: string(s.Quantity)},
	}); err != nil {
		return fmt.Errorf("write spectrum header: %w", err)
	}
	for i := range s.Values {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := sw.SetRow(cell, []interface{}{s.Grid[i], s.Values[i]}); err != nil {
			return fmt.Errorf("write spectrum row %d: %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush spectrum sheet: %w", err)
	}
	return nil
}

func writeParameterSheet(f *excelize.File, opts ExportOptions, headerStyle int) error {
	if _, err := f.NewSheet(SheetParameters); err != nil {
		return fmt.Errorf("create parameter sheet: %w", err)
	}

	kind := "spectrum"
	if opts.Background {
		kind = "background"
	}
	rows := [][]interface{}{
		{"Parameter", "Value"},
		{"type", kind},
		{"name", opts.Spectrum.Name},
		{"points", opts.Spectrum.Len()},
	}
	if c := opts.Config; c != nil {
		rows = append(rows,
			[]interface{}{"molecule", c.Molecule},
			[]interface{}{"pressure", c.Pressure},
			[]interface{}{"mole", c.MoleFraction},
			[]interface{}{"resolution", c.Resolution},
			[]interface{}{"zeroFill", c.ZeroFill},
			[]interface{}{"scan", c.ScanCount},
			[]interface{}{"source", string(c.Source)},
			[]interface{}{"beamsplitter", string(c.Beamsplitter)},
			[]interface{}{"window", string(c.Window)},
			[]interface{}{"detector", string(c.Detector)},
			[]interface{}{"waveMin", c.WaveMin},
			[]interface{}{"waveMax", c.WaveMax},
		)
	}

	for i, row := range rows {
		for j, val := range row {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+1)
			if err := f.SetCellValue(SheetParameters, cell, val); err != nil {
				return fmt.Errorf("write parameter %s: %w", cell, err)
			}
		}
	}
	_ = f.SetRowStyle(SheetParameters, 1, 1, headerStyle)
	_ = f.SetColWidth(SheetParameters, "A", "A", 16)
	_ = f.SetColWidth(SheetParameters, "B", "B", 24)
	return nil
}

func writePeakSheet(f *excelize.File, set peaks.PeakSet, window *PeakWindow, headerStyle int) error {
	if _, err := f.NewSheet(SheetPeaks); err != nil {
		return fmt.Errorf("create peak sheet: %w", err)
	}

	header := []interface{}{"Wavenumber (cm-1)", "Amplitude"}
	if err := f.SetSheetRow(SheetPeaks, "A1", &header); err != nil {
		return fmt.Errorf("write peak header: %w", err)
	}
	_ = f.SetRowStyle(SheetPeaks, 1, 1, headerStyle)

	centers := make([]float64, 0, len(set))
	for x := range set {
		centers = append(centers, x)
	}
	sort.Float64s(centers)
	for i, x := range centers {
		row := []interface{}{x, set[x]}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(SheetPeaks, cell, &row); err != nil {
			return fmt.Errorf("write peak row %d: %w", i+2, err)
		}
	}

	// 检测参数写在右侧
	if window != nil {
		meta := [][]interface{}{
			{"lowerBound", window.LowerBound},
			{"upperBound", window.UpperBound},
			{"threshold", window.Threshold},
		}
		for i, row := range meta {
			cell, _ := excelize.CoordinatesToCellName(4, i+1)
			if err := f.SetSheetRow(SheetPeaks, cell, &row); err != nil {
				return fmt.Errorf("write peak settings: %w", err)
			}
		}
	}
	_ = f.SetColWidth(SheetPeaks, "A", "B", 20)
	return nil
}
