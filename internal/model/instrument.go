package model

// Source 光源（名称由配置中的光源表决定）
type Source string

// Beamsplitter 分束器
type Beamsplitter string

const (
	BeamsplitterARZnSe Beamsplitter = "AR_ZnSe" // 增透 ZnSe
	BeamsplitterARCaF2 Beamsplitter = "AR_CaF2" // 增透 CaF2
)

// Window 样品池窗片材料
type Window string

const (
	WindowCaF2 Window = "CaF2"
	WindowZnSe Window = "ZnSe"
)

// Detector 探测器
type Detector string

const (
	DetectorMCT  Detector = "MCT"  // 碲镉汞
	DetectorInSb Detector = "InSb" // 锑化铟
)

// Beamsplitters 全部可选分束器
var Beamsplitters = []Beamsplitter{BeamsplitterARZnSe, BeamsplitterARCaF2}

// Windows 全部可选窗片
var Windows = []Window{WindowCaF2, WindowZnSe}

// Detectors 全部可选探测器
var Detectors = []Detector{DetectorMCT, DetectorInSb}

// Valid 是否为已知分束器
func (b Beamsplitter) Valid() bool {
	for _, v := range Beamsplitters {
		if v == b {
			return true
		}
	}
	return false
}

// Valid 是否为已知窗片
func (w Window) Valid() bool {
	for _, v := range Windows {
		if v == w {
			return true
		}
	}
	return false
}

// Valid 是否为已知探测器
func (d Detector) Valid() bool {
	for _, v := range Detectors {
		if v == d {
			return true
		}
	}
	return false
}

// InstrumentConfig 一次请求的仪器与样品参数，校验后只读
type InstrumentConfig struct {
	Molecule     string       `json:"molecule"`
	Pressure     float64      `json:"pressure"`     // 大气压 (atm)
	MoleFraction float64      `json:"mole"`         // 摩尔分数 (0,1]
	Resolution   float64      `json:"resolution"`   // 分辨率 (cm⁻¹)
	ZeroFill     int          `json:"zeroFill"`     // 补零级数
	ScanCount    int          `json:"scan"`         // 扫描次数
	Source       Source       `json:"source"`
	Beamsplitter Beamsplitter `json:"beamsplitter"`
	Window       Window       `json:"window"`
	Detector     Detector     `json:"detector"`
	WaveMin      float64      `json:"waveMin"` // 显示范围下限 (cm⁻¹)
	WaveMax      float64      `json:"waveMax"` // 显示范围上限 (cm⁻¹)
}
