package api

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"slices"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"github.com/OutboundSpade/Virtual-FTIR-Functions/internal/exporter"
	"github.com/OutboundSpade/Virtual-FTIR-Functions/internal/model"
	"github.com/OutboundSpade/Virtual-FTIR-Functions/internal/service/components"
	"github.com/OutboundSpade/Virtual-FTIR-Functions/internal/service/engine"
	"github.com/OutboundSpade/Virtual-FTIR-Functions/internal/service/simulator"
	"github.com/OutboundSpade/Virtual-FTIR-Functions/internal/service/worker"
	"github.com/OutboundSpade/Virtual-FTIR-Functions/internal/spectrum"
	"github.com/OutboundSpade/Virtual-FTIR-Functions/internal/store"
)

// flatEngine 在 [400, 12500] 上以步长 1 返回透过率恒为 1 的光谱
type flatEngine struct {
	err error
}

func (e flatEngine) Calculate(ctx context.Context, req engine.Request) (*spectrum.Spectrum, error) {
	if e.err != nil {
		return nil, e.err
	}
	return spectrum.Constant(req.Molecule, spectrum.Transmittance, spectrum.Uniform(400, 12500, 1), 1), nil
}

// rampCurves 每条曲线为 1 + k·x/10000，k 区分元件
type rampCurves struct{}

const (
	kSource = iota + 1
	kARZnSe
	kARCaF2
	kCaF2
	kZnSe
	kSapphire
	kMCT
	kInSb
)

func rampValue(k int, x float64) float64 {
	return 1 + float64(k)*x/10000
}

func (rampCurves) Curves(grid spectrum.Grid, source model.Source) (*components.CurveSet, error) {
	ramp := func(name string, k int) *spectrum.Spectrum {
		values := make([]float64, len(grid))
		for i, x := range grid {
			values[i] = rampValue(k, x)
		}
		return &spectrum.Spectrum{Grid: grid, Values: values, Quantity: spectrum.Transmittance, Name: name}
	}
	return &components.CurveSet{
		Source:   ramp("source", kSource),
		ARZnSe:   ramp("AR_ZnSe", kARZnSe),
		ARCaF2:   ramp("AR_CaF2", kARCaF2),
		CaF2:     ramp("CaF2", kCaF2),
		ZnSe:     ramp("ZnSe", kZnSe),
		Sapphire: ramp("sapphire", kSapphire),
		MCT:      ramp("MCT", kMCT),
		InSb:     ramp("InSb", kInSb),
	}, nil
}

type testEnv struct {
	router *gin.Engine
	store  *store.Store
}

func newTestEnv(t *testing.T, eng engine.Engine) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st, err := store.New(filepath.Join(t.TempDir(), "ftir.db"))
	if err != nil {
		t.Fatalf("init store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	// 测试光源表只登记 "X"
	lib, err := components.NewLibrary(map[string]float64{"X": 1500})
	if err != nil {
		t.Fatalf("init library: %v", err)
	}

	sim := simulator.New(eng, rampCurves{})
	h := NewHandler(sim, lib, worker.NewPool(2, 10*time.Second, nil), st, nil)

	r := gin.New()
	h.RegisterRoutes(r)
	return &testEnv{router: r, store: st}
}

func (e *testEnv) post(t *testing.T, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var raw []byte
	switch b := body.(type) {
	case string:
		raw = []byte(b)
	default:
		raw, _ = json.Marshal(b)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", w.Code, w.Body.String())
	}
	return w
}

func (e *testEnv) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", w.Code, w.Body.String())
	}
	return w
}

func co2Request() map[string]any {
	return map[string]any{
		"molecule":     "CO2",
		"pressure":     1.0,
		"mole":         0.1,
		"resolution":   1.0,
		"zeroFill":     0,
		"scan":         1,
		"source":       "X",
		"beamsplitter": "AR_ZnSe",
		"window":       "CaF2",
		"detector":     "MCT",
		"waveMin":      2000,
		"waveMax":      2200,
	}
}

func decodeFailure(t *testing.T, w *httptest.ResponseRecorder) FailureResponse {
	t.Helper()
	var resp FailureResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v body=%s", err, w.Body.String())
	}
	if resp.Success {
		t.Fatalf("expected failure, got %s", w.Body.String())
	}
	return resp
}

func TestSpectrum_EndToEnd(t *testing.T) {
	env := newTestEnv(t, flatEngine{})

	w := env.post(t, "/spectrum", co2Request())
	var resp SpectrumResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success {
		t.Fatalf("expected success, got %s", w.Body.String())
	}
	if len(resp.X) != 201 || resp.X[0] != 2000 || resp.X[len(resp.X)-1] != 2200 {
		t.Fatalf("x should span [2000, 2200] at step 1, got %d points", len(resp.X))
	}
	if len(resp.Y) != len(resp.X) {
		t.Fatalf("x/y length mismatch: %d vs %d", len(resp.X), len(resp.Y))
	}

	// AR_ZnSe + CaF2 窗（两片）+ MCT 光路（ZnSe + MCT），再按全谱峰值归一化
	product := func(x float64) float64 {
		p := 1.0
		for _, k := range []int{kSource, kARZnSe, kCaF2, kCaF2, kZnSe, kMCT} {
			p *= rampValue(k, x)
		}
		return p
	}
	peak := product(12500)
	for i, x := range resp.X {
		got, err := strconv.ParseFloat(resp.Y[i], 64)
		if err != nil {
			t.Fatalf("y[%d]=%q is not a number", i, resp.Y[i])
		}
		want := product(x) / peak
		if math.Abs(got-want) > 1e-12 {
			t.Fatalf("y at %v = %v, want %v", x, got, want)
		}
	}
}

func TestSpectrum_ParameterCheckFailed(t *testing.T) {
	env := newTestEnv(t, flatEngine{})

	tests := []struct {
		name string
		body any
	}{
		{name: "负压强", body: func() map[string]any { r := co2Request(); r["pressure"] = -1; return r }()},
		{name: "未知光源", body: func() map[string]any { r := co2Request(); r["source"] = "globar"; return r }()},
		{name: "缺少字段", body: func() map[string]any { r := co2Request(); delete(r, "detector"); return r }()},
		{name: "网格过密", body: func() map[string]any { r := co2Request(); r["zeroFill"] = 16; return r }()},
		{name: "非法 JSON", body: `{"molecule": `},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := decodeFailure(t, env.post(t, "/spectrum", tt.body))
			if resp.Text != "Parameter check failed" {
				t.Fatalf("text=%q", resp.Text)
			}
		})
	}
}

func TestSpectrum_EngineErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "取数失败", err: engine.ErrRetrieval, want: simulator.TextDataRetrieval},
		{name: "数据不足", err: engine.ErrEmptyDatabase, want: simulator.TextInsufficientData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, flatEngine{err: tt.err})
			resp := decodeFailure(t, env.post(t, "/background", co2Request()))
			if resp.Text != tt.want {
				t.Fatalf("text=%q, want %q", resp.Text, tt.want)
			}
		})
	}
}

func TestBackground(t *testing.T) {
	env := newTestEnv(t, flatEngine{})

	var spec, bg SpectrumResponse
	if err := json.Unmarshal(env.post(t, "/spectrum", co2Request()).Body.Bytes(), &spec); err != nil {
		t.Fatalf("decode spectrum: %v", err)
	}
	if err := json.Unmarshal(env.post(t, "/background", co2Request()).Body.Bytes(), &bg); err != nil {
		t.Fatalf("decode background: %v", err)
	}
	if !bg.Success || len(bg.Y) != len(spec.Y) {
		t.Fatalf("unexpected background response")
	}
	// 引擎返回全 1 透过率时，背景与样品光谱一致
	for i := range bg.Y {
		if bg.Y[i] != spec.Y[i] {
			t.Fatalf("background differs at %d: %s vs %s", i, bg.Y[i], spec.Y[i])
		}
	}
}

func spikeBody(threshold float64, asStrings bool) map[string]any {
	x := []float64(spectrum.Uniform(1900, 2100, 1))
	y := make([]any, len(x))
	for i, v := range x {
		val := 0.0
		if v == 2000 {
			val = 0.8
		}
		if asStrings {
			y[i] = strconv.FormatFloat(val, 'g', -1, 64)
		} else {
			y[i] = val
		}
	}
	return map[string]any{"x": x, "y": y, "lowerBound": 1900, "upperBound": 2100, "threshold": threshold}
}

func TestFindPeaks(t *testing.T) {
	env := newTestEnv(t, flatEngine{})

	tests := []struct {
		name string
		body map[string]any
		want map[string]float64
	}{
		{name: "数字 y", body: spikeBody(0.5, false), want: map[string]float64{"2000": 0.8}},
		{name: "字符串 y", body: spikeBody(0.5, true), want: map[string]float64{"2000": 0.8}},
		{name: "阈值过高", body: spikeBody(0.9, false), want: map[string]float64{}},
		{name: "递减 x", body: func() map[string]any {
			b := spikeBody(0.5, false)
			x, y := b["x"].([]float64), b["y"].([]any)
			slices.Reverse(x)
			slices.Reverse(y)
			return b
		}(), want: map[string]float64{"2000": 0.8}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.post(t, "/find_peaks", tt.body)
			var resp PeaksResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !resp.Success || len(resp.Peaks) != len(tt.want) {
				t.Fatalf("got %s, want %v", w.Body.String(), tt.want)
			}
			for k, v := range tt.want {
				if resp.Peaks[k] != v {
					t.Fatalf("got %v, want %v", resp.Peaks, tt.want)
				}
			}
		})
	}
}

func TestFindPeaks_Failures(t *testing.T) {
	env := newTestEnv(t, flatEngine{})

	missing := spikeBody(0.5, false)
	delete(missing, "upperBound")
	if resp := decodeFailure(t, env.post(t, "/find_peaks", missing)); resp.Text != simulator.TextParamCheck {
		t.Fatalf("text=%q", resp.Text)
	}

	mismatched := spikeBody(0.5, false)
	mismatched["x"] = []float64{1, 2, 3}
	if resp := decodeFailure(t, env.post(t, "/find_peaks", mismatched)); resp.Text != simulator.TextPeakDetection {
		t.Fatalf("text=%q", resp.Text)
	}

	bad := spikeBody(0.5, false)
	bad["y"] = []string{"abc"}
	if resp := decodeFailure(t, env.post(t, "/find_peaks", bad)); resp.Text != simulator.TextParamCheck {
		t.Fatalf("text=%q", resp.Text)
	}
}

func TestExport(t *testing.T) {
	env := newTestEnv(t, flatEngine{})

	body := co2Request()
	body["peaks"] = map[string]any{"lowerBound": 2000, "upperBound": 2200, "threshold": 0}
	w := env.post(t, "/spectrum/export", body)

	if ct := w.Header().Get("Content-Type"); ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Fatalf("content-type=%q body=%s", ct, w.Body.String())
	}
	if cd := w.Header().Get("Content-Disposition"); cd != `attachment; filename="CO2-spectrum.xlsx"` {
		t.Fatalf("content-disposition=%q", cd)
	}

	wb, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer wb.Close()

	rows, err := wb.GetRows(exporter.SheetSpectrum)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 202 {
		t.Fatalf("expected header + 201 rows, got %d", len(rows))
	}
	if idx, _ := wb.GetSheetIndex(exporter.SheetPeaks); idx < 0 {
		t.Fatalf("peak sheet missing")
	}
}

func TestExport_Failure(t *testing.T) {
	env := newTestEnv(t, flatEngine{})

	body := co2Request()
	body["pressure"] = -1
	resp := decodeFailure(t, env.post(t, "/spectrum/export", body))
	if resp.Text != simulator.TextParamCheck {
		t.Fatalf("text=%q", resp.Text)
	}
}

func TestPlot(t *testing.T) {
	env := newTestEnv(t, flatEngine{})

	w := env.post(t, "/spectrum/plot", co2Request())
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("content-type=%q body=%s", ct, w.Body.String())
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")) {
		t.Fatalf("body is not a PNG")
	}
}

func TestStatus(t *testing.T) {
	env := newTestEnv(t, flatEngine{})

	var resp StatusResponse
	if err := json.Unmarshal(env.get(t, "/status").Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.Workers != 2 || resp.Busy != 0 {
		t.Fatalf("unexpected status: %+v", resp)
	}
	if len(resp.Sources) != 1 || resp.Sources[0] != "X" {
		t.Fatalf("sources=%v", resp.Sources)
	}
}

func TestRuns(t *testing.T) {
	env := newTestEnv(t, flatEngine{})

	env.post(t, "/spectrum", co2Request())
	bad := co2Request()
	bad["pressure"] = -1
	env.post(t, "/spectrum", bad)

	var resp RunsResponse
	if err := json.Unmarshal(env.get(t, "/runs?limit=10").Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || len(resp.Runs) != 2 {
		t.Fatalf("unexpected runs: %+v", resp)
	}

	byStatus := map[string]store.Run{}
	for _, r := range resp.Runs {
		byStatus[r.Status] = r
	}
	ok := byStatus[store.RunSucceeded]
	if ok.Kind != kindSpectrum || ok.Molecule != "CO2" || ok.Points != 201 {
		t.Fatalf("unexpected succeeded run: %+v", ok)
	}
	failed := byStatus[store.RunFailed]
	if failed.ErrorKind != "ValidationError" || failed.Message != simulator.TextParamCheck {
		t.Fatalf("unexpected failed run: %+v", failed)
	}

	if resp := decodeFailure(t, env.get(t, "/runs?limit=abc")); resp.Text != "invalid limit" {
		t.Fatalf("text=%q", resp.Text)
	}
}

func TestRuns_WithoutStore(t *testing.T) {
	gin.SetMode(gin.TestMode)
	lib, err := components.NewLibrary(map[string]float64{"X": 1500})
	if err != nil {
		t.Fatalf("init library: %v", err)
	}
	h := NewHandler(simulator.New(flatEngine{}, rampCurves{}), lib, worker.NewPool(1, 0, nil), nil, nil)
	r := gin.New()
	h.RegisterRoutes(r)

	req := httptest.NewRequest(http.MethodGet, "/runs", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp RunsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || len(resp.Runs) != 0 {
		t.Fatalf("unexpected runs: %s", w.Body.String())
	}
}

func TestFlexFloat(t *testing.T) {
	var v []FlexFloat
	if err := json.Unmarshal([]byte(`[1, "2.5", " 3e2 "]`), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(v) != 3 || v[0] != 1 || v[1] != 2.5 || v[2] != 300 {
		t.Fatalf("got %v", v)
	}
	if err := json.Unmarshal([]byte(`["x"]`), &v); err == nil {
		t.Fatalf("expected error for non-numeric string")
	}
}
