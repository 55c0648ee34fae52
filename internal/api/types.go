package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/OutboundSpade/Virtual-FTIR-Functions/internal/model"
	"github.com/OutboundSpade/Virtual-FTIR-Functions/internal/service/peaks"
	"github.com/OutboundSpade/Virtual-FTIR-Functions/internal/service/simulator"
)

// FlexFloat 既接受 JSON 数字也接受十进制字符串（/spectrum 的 y 以字符串返回）
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fmt.Errorf("invalid number %q: %w", s, err)
		}
		*f = FlexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = FlexFloat(v)
	return nil
}

// PeakSettings 峰值检测参数
type PeakSettings struct {
	LowerBound *float64 `json:"lowerBound"`
	UpperBound *float64 `json:"upperBound"`
	Threshold  float64  `json:"threshold"`
}

func (p *PeakSettings) check() error {
	if p.LowerBound == nil || p.UpperBound == nil {
		return fmt.Errorf("%w: missing peak bounds", model.ErrParamCheck)
	}
	return nil
}

// FindPeaksRequest /find_peaks 请求体
type FindPeaksRequest struct {
	X []float64   `json:"x"`
	Y []FlexFloat `json:"y"`
	PeakSettings
}

// ExportRequest /spectrum/export 与 /spectrum/plot 请求体
type ExportRequest struct {
	model.SpectrumRequest
	Background bool          `json:"background"`
	Peaks      *PeakSettings `json:"peaks"`
}

// SpectrumResponse 光谱响应
type SpectrumResponse struct {
	Success bool      `json:"success"`
	X       []float64 `json:"x"`
	Y       []string  `json:"y"`
}

// FailureResponse 失败响应
type FailureResponse struct {
	Success bool   `json:"success"`
	Text    string `json:"text"`
}

// PeaksResponse 峰值响应，键为波数的十进制字符串
type PeaksResponse struct {
	Success bool               `json:"success"`
	Peaks   map[string]float64 `json:"peaks"`
}

// formatValues y 值按最短十进制表示输出
func formatValues(values []float64) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return out
}

func peaksToWire(set peaks.PeakSet) map[string]float64 {
	out := make(map[string]float64, len(set))
	for x, y := range set {
		out[strconv.FormatFloat(x, 'f', -1, 64)] = y
	}
	return out
}

// fail 领域错误统一以 200 + {success:false} 返回
func fail(c *gin.Context, e *simulator.Error) {
	c.JSON(http.StatusOK, FailureResponse{Success: false, Text: e.Text})
}
