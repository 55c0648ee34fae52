package simulator

import "github.com/OutboundSpade/Virtual-FTIR-Functions/internal/spectrum"

// SynthesizeBackground 生成与原始光谱同网格、透过率恒为 1 的背景光谱
func SynthesizeBackground(raw *spectrum.Spectrum) *spectrum.Spectrum {
	return spectrum.Constant("Background", spectrum.Transmittance, raw.Grid, 1.0)
}
