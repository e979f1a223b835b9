package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// findMetric は指定名・ラベルのメトリクスを探す。
func findMetric(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) *dto.Metric {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if labelsMatch(m, labels) {
				return m
			}
		}
	}
	return nil
}

func labelsMatch(m *dto.Metric, labels map[string]string) bool {
	matched := 0
	for _, lp := range m.GetLabel() {
		if v, ok := labels[lp.GetName()]; ok && v == lp.GetValue() {
			matched++
		}
	}
	return matched == len(labels)
}

func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	if c := NewCollector(reg); c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

func TestRecordUpstreamSuccess_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordUpstreamSuccess("get_posts")
	c.RecordUpstreamSuccess("get_posts")

	m := findMetric(t, reg, "socialdemo_upstream_success_total", map[string]string{"operation": "get_posts"})
	if m == nil {
		t.Fatal("socialdemo_upstream_success_total metric not found")
	}
	if v := m.GetCounter().GetValue(); v != 2 {
		t.Errorf("upstream_success_total = %v, want 2", v)
	}
}

func TestRecordUpstreamFailure_LabelsKind(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordUpstreamFailure("get_users", "status")

	m := findMetric(t, reg, "socialdemo_upstream_fail_total", map[string]string{"operation": "get_users", "kind": "status"})
	if m == nil {
		t.Fatal("socialdemo_upstream_fail_total metric not found")
	}
	if v := m.GetCounter().GetValue(); v != 1 {
		t.Errorf("upstream_fail_total = %v, want 1", v)
	}
}

func TestRecordFallbackAndToggle(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordFallback("get_products")
	c.RecordToggle("toggle_like", true)
	c.RecordToggle("toggle_like", false)
	c.RecordToggle("toggle_like", false)

	if m := findMetric(t, reg, "socialdemo_fallback_total", map[string]string{"operation": "get_products"}); m == nil || m.GetCounter().GetValue() != 1 {
		t.Error("fallback_total{operation=get_products} should be 1")
	}
	if m := findMetric(t, reg, "socialdemo_toggle_total", map[string]string{"operation": "toggle_like", "result": "failure"}); m == nil || m.GetCounter().GetValue() != 2 {
		t.Error("toggle_total{result=failure} should be 2")
	}
}

func TestRecordHTTPStatusAndLatency(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus("catalog", 503)
	c.RecordUpstreamLatency("get_products", 250*time.Millisecond)

	if m := findMetric(t, reg, "socialdemo_upstream_http_status_total", map[string]string{"upstream": "catalog", "status_code": "503"}); m == nil {
		t.Error("http_status_total{status_code=503} not found")
	}
	m := findMetric(t, reg, "socialdemo_upstream_latency_seconds", map[string]string{"operation": "get_products"})
	if m == nil {
		t.Fatal("upstream_latency_seconds not found")
	}
	if n := m.GetHistogram().GetSampleCount(); n != 1 {
		t.Errorf("sample count = %d, want 1", n)
	}
}

func TestSetAPIOnline(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.SetAPIOnline(true)
	if m := findMetric(t, reg, "socialdemo_api_online", nil); m == nil || m.GetGauge().GetValue() != 1 {
		t.Error("api_online should be 1")
	}
	c.SetAPIOnline(false)
	if m := findMetric(t, reg, "socialdemo_api_online", nil); m == nil || m.GetGauge().GetValue() != 0 {
		t.Error("api_online should be 0")
	}
}

func TestNop_ImplementsCollector(t *testing.T) {
	var c MetricsCollector = Nop{}
	c.RecordUpstreamSuccess("x")
	c.SetAPIOnline(true)
}

func TestHandler_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordUpstreamSuccess("get_posts")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "socialdemo_upstream_success_total") {
		t.Error("response should contain socialdemo_upstream_success_total metric")
	}
}
