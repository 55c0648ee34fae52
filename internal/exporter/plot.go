package exporter

import (
	"fmt"
	"image/color"
	"io"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/OutboundSpade/Virtual-FTIR-Functions/internal/service/peaks"
	"github.com/OutboundSpade/Virtual-FTIR-Functions/internal/spectrum"
)

// 默认图片尺寸
const (
	DefaultPlotWidth  = 8 * vg.Inch
	DefaultPlotHeight = 4 * vg.Inch
)

// PlotOptions 绘图选项
type PlotOptions struct {
	Title  string
	Width  vg.Length
	Height vg.Length
	// Peaks 非空时以散点标出峰位
	Peaks peaks.PeakSet
}

// RenderPNG 将光谱绘制为 PNG 写入 w
func RenderPNG(w io.Writer, s *spectrum.Spectrum, opts PlotOptions) error {
	if s == nil || s.Len() == 0 {
		return fmt.Errorf("plot spectrum: %w", spectrum.ErrEmpty)
	}
	if opts.Width <= 0 {
		opts.Width = DefaultPlotWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultPlotHeight
	}

	p := plot.New()
	p.Title.Text = opts.Title
	if p.Title.Text == "" {
		p.Title.Text = s.Name
	}
	p.X.Label.Text = "Wavenumber (cm-1)"
	p.Y.Label.Text = string(s.Quantity)
	p.Add(plotter.NewGrid())

	xy := make(plotter.XYs, s.Len())
	for i := range s.Values {
		xy[i].X = s.Grid[i]
		xy[i].Y = s.Values[i]
	}
	line, err := plotter.NewLine(xy)
	if err != nil {
		return fmt.Errorf("build spectrum line: %w", err)
	}
	line.LineStyle.Width = vg.Points(1)
	line.LineStyle.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	p.Add(line)

	if len(opts.Peaks) > 0 {
		centers := make([]float64, 0, len(opts.Peaks))
		for x := range opts.Peaks {
			centers = append(centers, x)
		}
		sort.Float64s(centers)
		pts := make(plotter.XYs, len(centers))
		for i, x := range centers {
			pts[i].X = x
			pts[i].Y = opts.Peaks[x]
		}
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return fmt.Errorf("build peak markers: %w", err)
		}
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		sc.GlyphStyle.Radius = vg.Points(3)
		sc.GlyphStyle.Color = color.RGBA{R: 214, G: 39, B: 40, A: 255}
		p.Add(sc)
		p.Legend.Add("peaks", sc)
	}

	wt, err := p.WriterTo(opts.Width, opts.Height, "png")
	if err != nil {
		return fmt.Errorf("render plot: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write plot: %w", err)
	}
	return nil
}
