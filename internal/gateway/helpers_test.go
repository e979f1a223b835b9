package gateway

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// fixedRandom は常に同じ値を返すRandom。
type fixedRandom struct {
	f float64
	i int
}

func (r fixedRandom) Float64() float64 { return r.f }

func (r fixedRandom) IntN(n int) int {
	if r.i >= n {
		return n - 1
	}
	return r.i
}

// recordingMetrics は呼び出しを記録するMetricsCollector。
type recordingMetrics struct {
	mu        sync.Mutex
	successes []string
	failures  []string // "op/kind"
	fallbacks []string
	statuses  []int
	toggles   map[bool]int
}

func (m *recordingMetrics) RecordUpstreamSuccess(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.successes = append(m.successes, op)
}

func (m *recordingMetrics) RecordUpstreamFailure(op string, kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, op+"/"+kind)
}

func (m *recordingMetrics) RecordFallback(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallbacks = append(m.fallbacks, op)
}

func (m *recordingMetrics) RecordHTTPStatus(_ string, code int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses = append(m.statuses, code)
}

func (m *recordingMetrics) RecordUpstreamLatency(string, time.Duration) {}

func (m *recordingMetrics) RecordToggle(_ string, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.toggles == nil {
		m.toggles = make(map[bool]int)
	}
	m.toggles[success]++
}

func (m *recordingMetrics) SetAPIOnline(bool) {}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// testConfig は擬似遅延とレート制限を無効にした設定を返す。
func testConfig(baseURL string) Config {
	return Config{
		PostsBaseURL:   baseURL,
		CatalogBaseURL: baseURL,
		Timeout:        2 * time.Second,
	}
}

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestGateway(t *testing.T, server *httptest.Server, r Random, opts ...Option) (*Gateway, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	opts = append([]Option{WithRandom(r), WithClock(func() time.Time { return testNow })}, opts...)
	return New(server.Client(), newTestLogger(&buf), testConfig(server.URL), opts...), &buf
}

// jsonHandler はvをJSONで返すハンドラーを生成する。
func jsonHandler(t *testing.T, v any) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(v); err != nil {
			t.Errorf("レスポンスのエンコードに失敗: %v", err)
		}
	}
}

func statusHandler(code int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(code), code)
	}
}
