package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/OutboundSpade/Virtual-FTIR-Functions/internal/config"
)

func newTestServer(t *testing.T) (*Server, *observer.ObservedLogs) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.DefaultConfig()
	cfg.Server.DevMode = true
	cfg.Data.DataDir = t.TempDir()
	cfg.Engine.DatabankDir = t.TempDir()
	cfg.Engine.Workers = 3

	core, logs := observer.New(zapcore.InfoLevel)
	srv, err := NewServer(cfg, zap.New(core))
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv, logs
}

func TestServer_Index(t *testing.T) {
	srv, _ := newTestServer(t)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Virtual FTIR API") {
		t.Fatalf("unexpected index page")
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("content-type=%q", ct)
	}
}

func TestServer_CORS(t *testing.T) {
	srv, _ := newTestServer(t)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/spectrum", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight status=%d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing CORS header")
	}
}

func TestServer_RequestID(t *testing.T) {
	srv, logs := newTestServer(t)

	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{name: "生成新 ID", incoming: "", keep: false},
		{name: "沿用合法 ID", incoming: "6f1c2b1e-8a53-4c3e-9d1a-0c7a2f4b9e10", keep: true},
		{name: "非法 ID 被替换", incoming: "not-a-uuid", keep: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/status", nil)
			if tt.incoming != "" {
				req.Header.Set(HeaderRequestID, tt.incoming)
			}
			w := httptest.NewRecorder()
			srv.Handler().ServeHTTP(w, req)

			id := w.Header().Get(HeaderRequestID)
			if id == "" {
				t.Fatalf("missing request id")
			}
			if (id == tt.incoming) != tt.keep {
				t.Fatalf("request id=%q incoming=%q", id, tt.incoming)
			}
		})
	}

	entries := logs.FilterMessage("request").All()
	if len(entries) != len(tests) {
		t.Fatalf("expected %d access logs, got %d", len(tests), len(entries))
	}
	if entries[0].ContextMap()["path"] != "/status" {
		t.Fatalf("unexpected log fields: %v", entries[0].ContextMap())
	}
}

func TestServer_Status(t *testing.T) {
	srv, _ := newTestServer(t)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))

	var resp struct {
		Success bool     `json:"success"`
		Workers int      `json:"workers"`
		Sources []string `json:"sources"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.Workers != 3 {
		t.Fatalf("unexpected status: %s", w.Body.String())
	}
	if len(resp.Sources) != 2 || resp.Sources[0] != "globar" || resp.Sources[1] != "tungsten" {
		t.Fatalf("sources=%v", resp.Sources)
	}
}

func TestServer_MissingDatabank(t *testing.T) {
	srv, _ := newTestServer(t)

	body := `{"molecule":"CO2","pressure":1,"mole":0.1,"resolution":1,"zeroFill":0,"scan":1,
		"source":"globar","beamsplitter":"AR_ZnSe","window":"CaF2","detector":"MCT","waveMin":2000,"waveMax":2200}`
	req := httptest.NewRequest(http.MethodPost, "/spectrum", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	var resp struct {
		Success bool   `json:"success"`
		Text    string `json:"text"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// 空的谱线库目录：取数失败
	if resp.Success || !strings.HasPrefix(resp.Text, "There was an issue processing the data") {
		t.Fatalf("unexpected response: %s", w.Body.String())
	}
}
