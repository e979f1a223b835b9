// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ゲートウェイとビューステートから利用する。
type MetricsCollector interface {
	RecordUpstreamSuccess(op string)
	RecordUpstreamFailure(op string, kind string)
	RecordFallback(op string)
	RecordHTTPStatus(upstream string, statusCode int)
	RecordUpstreamLatency(op string, duration time.Duration)
	RecordToggle(op string, success bool)
	SetAPIOnline(online bool)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	upstreamSuccess *prometheus.CounterVec
	upstreamFail    *prometheus.CounterVec
	fallback        *prometheus.CounterVec
	httpStatus      *prometheus.CounterVec
	upstreamLatency *prometheus.HistogramVec
	toggles         *prometheus.CounterVec
	apiOnline       prometheus.Gauge
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		upstreamSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "socialdemo_upstream_success_total",
			Help: "外部API呼び出し成功の合計数",
		}, []string{"operation"}),
		upstreamFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "socialdemo_upstream_fail_total",
			Help: "外部API呼び出し失敗の合計数",
		}, []string{"operation", "kind"}),
		fallback: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "socialdemo_fallback_total",
			Help: "フォールバックデータを返した回数",
		}, []string{"operation"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "socialdemo_upstream_http_status_total",
			Help: "外部APIのHTTPステータスコード別レスポンス数",
		}, []string{"upstream", "status_code"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "socialdemo_upstream_latency_seconds",
			Help:    "外部API呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		toggles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "socialdemo_toggle_total",
			Help: "いいね/お気に入り切り替えの結果別件数",
		}, []string{"operation", "result"}),
		apiOnline: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "socialdemo_api_online",
			Help: "投稿APIの死活状態（1: online, 0: offline）",
		}),
	}

	reg.MustRegister(
		c.upstreamSuccess,
		c.upstreamFail,
		c.fallback,
		c.httpStatus,
		c.upstreamLatency,
		c.toggles,
		c.apiOnline,
	)

	return c
}

// RecordUpstreamSuccess は外部API呼び出し成功を記録する。
func (c *Collector) RecordUpstreamSuccess(op string) {
	c.upstreamSuccess.WithLabelValues(op).Inc()
}

// RecordUpstreamFailure は外部API呼び出し失敗を記録する。
func (c *Collector) RecordUpstreamFailure(op string, kind string) {
	c.upstreamFail.WithLabelValues(op, kind).Inc()
}

// RecordFallback はフォールバック返却を記録する。
func (c *Collector) RecordFallback(op string) {
	c.fallback.WithLabelValues(op).Inc()
}

// RecordHTTPStatus は外部APIのHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(upstream string, statusCode int) {
	c.httpStatus.WithLabelValues(upstream, strconv.Itoa(statusCode)).Inc()
}

// RecordUpstreamLatency は外部API呼び出しのレイテンシを記録する。
func (c *Collector) RecordUpstreamLatency(op string, duration time.Duration) {
	c.upstreamLatency.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordToggle は切り替え操作の結果を記録する。
func (c *Collector) RecordToggle(op string, success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	c.toggles.WithLabelValues(op, result).Inc()
}

// SetAPIOnline は投稿APIの死活状態を設定する。
func (c *Collector) SetAPIOnline(online bool) {
	if online {
		c.apiOnline.Set(1)
		return
	}
	c.apiOnline.Set(0)
}

// Nop は何も記録しないMetricsCollector。テストやメトリクス無効時に使用する。
type Nop struct{}

func (Nop) RecordUpstreamSuccess(string)                {}
func (Nop) RecordUpstreamFailure(string, string)        {}
func (Nop) RecordFallback(string)                       {}
func (Nop) RecordHTTPStatus(string, int)                {}
func (Nop) RecordUpstreamLatency(string, time.Duration) {}
func (Nop) RecordToggle(string, bool)                   {}
func (Nop) SetAPIOnline(bool)                           {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
