// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 操作結果のラベル値。
const (
	ResultSuccess  = "success"
	ResultNotFound = "not_found"
	ResultInvalid  = "invalid"
	ResultError    = "error"
)

// OperationRecorder はサービス層の操作結果を記録するインターフェース。
type OperationRecorder interface {
	RecordOperation(operation, result string)
}

// HTTPRecorder はHTTPリクエストの結果を記録するインターフェース。
type HTTPRecorder interface {
	RecordHTTPRequest(method, route string, statusCode int, duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	operations   *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "todoapp_operations_total",
			Help: "Todo操作の結果別の合計数",
		}, []string{"operation", "result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "todoapp_http_requests_total",
			Help: "HTTPメソッド・ルート・ステータスコード別のリクエスト数",
		}, []string{"method", "route", "status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "todoapp_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		c.operations,
		c.httpRequests,
		c.httpLatency,
	)

	return c
}

// RecordOperation はTodo操作の結果を記録する。
func (c *Collector) RecordOperation(operation, result string) {
	c.operations.WithLabelValues(operation, result).Inc()
}

// RecordHTTPRequest はHTTPリクエストのステータスコードとレイテンシを記録する。
func (c *Collector) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	c.httpLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface checks
var _ OperationRecorder = (*Collector)(nil)
var _ HTTPRecorder = (*Collector)(nil)
