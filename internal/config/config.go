package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// EnvDatabankDir 覆盖谱线数据库目录的环境变量
const EnvDatabankDir = "FTIR_DATABANK_DIR"

// AppConfig 应用配置
type AppConfig struct {
	Server     ServerConfig     `toml:"server"`
	Data       DataConfig       `toml:"data"`
	Engine     EngineConfig     `toml:"engine"`
	Instrument InstrumentConfig `toml:"instrument"`
	Log        LogConfig        `toml:"log"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port    int  `toml:"port"`
	DevMode bool `toml:"dev_mode"`
}

// DataConfig 数据配置
type DataConfig struct {
	DataDir string `toml:"data_dir"`
}

// EngineConfig 辐射传输计算配置
type EngineConfig struct {
	DatabankDir    string `toml:"databank_dir"`
	Workers        int    `toml:"workers"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxPoints      int    `toml:"max_points"` // 单次计算网格点数上限
}

// InstrumentConfig 仪器配置
type InstrumentConfig struct {
	NoiseLevel float64 `toml:"noise_level"`
	NoiseSeed  uint64  `toml:"noise_seed"`
	// Sources 光源名称 → 黑体温度 (K)
	Sources map[string]float64 `toml:"sources"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level string `toml:"level"`
}

// LoadConfigInfo 配置加载元信息
type LoadConfigInfo struct {
	PortSpecified bool
	Path          string
}

// DefaultConfig 默认配置
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:    5000,
			DevMode: false,
		},
		Data: DataConfig{
			DataDir: "data",
		},
		Engine: EngineConfig{
			DatabankDir:    "databank",
			Workers:        0,
			TimeoutSeconds: 60,
			MaxPoints:      4_000_000,
		},
		Instrument: InstrumentConfig{
			NoiseLevel: 0,
			NoiseSeed:  0,
			Sources: map[string]float64{
				"globar":   1700,
				"tungsten": 3400,
			},
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Timeout 单次计算超时
func (c EngineConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func isPortSpecifiedInToml(data []byte) bool {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return false
	}

	serverAny, ok := raw["server"]
	if !ok {
		return false
	}

	serverMap, ok := serverAny.(map[string]any)
	if !ok {
		return false
	}

	_, ok = serverMap["port"]
	return ok
}

// GetExeDir 获取可执行文件所在目录
func GetExeDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

// LoadConfigWithInfo 从可执行文件同目录的 config.toml 加载配置并返回元信息
func LoadConfigWithInfo() (*AppConfig, LoadConfigInfo, error) {
	exeDir, err := GetExeDir()
	if err != nil {
		// 无法获取可执行文件目录，使用当前目录
		exeDir = "."
	}
	return LoadConfigFrom(filepath.Join(exeDir, "config.toml"))
}

// LoadConfigFrom 从指定路径加载配置；文件不存在时使用默认配置
func LoadConfigFrom(configPath string) (*AppConfig, LoadConfigInfo, error) {
	info := LoadConfigInfo{Path: configPath}
	config := DefaultConfig()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, info, err
		}
		// 配置文件不存在，使用默认配置
		data = nil
	}

	if data != nil {
		info.PortSpecified = isPortSpecifiedInToml(data)

		// 光源表整体替换，不与默认值合并
		config.Instrument.Sources = nil
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, info, err
		}
		if len(config.Instrument.Sources) == 0 {
			config.Instrument.Sources = DefaultConfig().Instrument.Sources
		}
	}

	// 环境变量覆盖（用于部署 / 本地运行）
	if v := os.Getenv(EnvDatabankDir); v != "" {
		config.Engine.DatabankDir = v
	}

	return config, info, nil
}

// LoadConfig 从 config.toml 加载配置
// 配置文件位于可执行文件同目录下
func LoadConfig() (*AppConfig, error) {
	config, _, err := LoadConfigWithInfo()
	return config, err
}

// resolve 相对路径按可执行文件目录解析
func resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	exeDir, err := GetExeDir()
	if err != nil {
		exeDir = "."
	}
	return filepath.Join(exeDir, p)
}

// EnsureDataDir 确保数据目录存在
// 数据目录位于可执行文件同目录下
func EnsureDataDir(config *AppConfig) (string, error) {
	dataDir := resolve(config.Data.DataDir)

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", err
	}
	return dataDir, nil
}

// DatabankDir 谱线数据库目录
func DatabankDir(config *AppConfig) string {
	return resolve(config.Engine.DatabankDir)
}
