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
// ハンドラーやサービス層から利用する。
type MetricsCollector interface {
	RecordBackendRequest(method string, statusCode int, duration time.Duration)
	RecordBackendRetry(reason string)
	RecordChatMessage(sender string)
	RecordLogin(success bool)
}

// Collector はPrometheusメトリクスを収集する実装。
// backend.MetricsRecorderとしてバックエンドクライアントにも注入される。
type Collector struct {
	backendRequests *prometheus.CounterVec
	backendRetries  *prometheus.CounterVec
	backendLatency  prometheus.Histogram
	chatMessages    *prometheus.CounterVec
	logins          *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		backendRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "accesshub_backend_request_total",
			Help: "バックエンドAPIリクエストのメソッド・ステータス別の合計数",
		}, []string{"method", "status_code"}),
		backendRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "accesshub_backend_retry_total",
			Help: "バックエンドAPIリトライの理由別の合計数",
		}, []string{"reason"}),
		backendLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "accesshub_backend_latency_seconds",
			Help:    "バックエンドAPIリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		chatMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "accesshub_chat_message_total",
			Help: "チャットメッセージの送信者別の合計数",
		}, []string{"sender"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "accesshub_login_total",
			Help: "ログイン試行の結果別の合計数",
		}, []string{"result"}),
	}

	reg.MustRegister(
		c.backendRequests,
		c.backendRetries,
		c.backendLatency,
		c.chatMessages,
		c.logins,
	)

	return c
}

// RecordBackendRequest はバックエンドAPIリクエストの結果を記録する。
// ネットワークエラーの場合はstatusCodeに0が渡される。
func (c *Collector) RecordBackendRequest(method string, statusCode int, duration time.Duration) {
	c.backendRequests.WithLabelValues(method, strconv.Itoa(statusCode)).Inc()
	c.backendLatency.Observe(duration.Seconds())
}

// RecordBackendRetry はバックエンドAPIリトライを理由付きで記録する。
func (c *Collector) RecordBackendRetry(reason string) {
	c.backendRetries.WithLabelValues(reason).Inc()
}

// RecordChatMessage はチャットメッセージの保存を記録する。
func (c *Collector) RecordChatMessage(sender string) {
	c.chatMessages.WithLabelValues(sender).Inc()
}

// RecordLogin はログイン試行の結果を記録する。
func (c *Collector) RecordLogin(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	c.logins.WithLabelValues(result).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
