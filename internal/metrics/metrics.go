// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層とハンドラから利用する。
type MetricsCollector interface {
	RecordAccountCreated()
	RecordAccountUpdated()
	RecordAccountDeleted()
	RecordMutationFailure(code string)
	RecordLoginSuccess()
	RecordLoginFailure(code string)
	RecordListLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	accountCreated  prometheus.Counter
	accountUpdated  prometheus.Counter
	accountDeleted  prometheus.Counter
	mutationFailure *prometheus.CounterVec
	loginSuccess    prometheus.Counter
	loginFailure    *prometheus.CounterVec
	listLatency     prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		accountCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cuentas_account_created_total",
			Help: "作成されたアカウントの合計数",
		}),
		accountUpdated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cuentas_account_updated_total",
			Help: "更新されたアカウントの合計数",
		}),
		accountDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cuentas_account_deleted_total",
			Help: "削除されたアカウントの合計数",
		}),
		mutationFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cuentas_mutation_failure_total",
			Help: "エラーコード別のミューテーション失敗数",
		}, []string{"code"}),
		loginSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cuentas_login_success_total",
			Help: "ログイン成功の合計数",
		}),
		loginFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cuentas_login_failure_total",
			Help: "エラーコード別のログイン失敗数",
		}, []string{"code"}),
		listLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cuentas_list_latency_seconds",
			Help:    "アカウント一覧取得のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.accountCreated,
		c.accountUpdated,
		c.accountDeleted,
		c.mutationFailure,
		c.loginSuccess,
		c.loginFailure,
		c.listLatency,
	)

	return c
}

// RecordAccountCreated はアカウント作成を記録する。
func (c *Collector) RecordAccountCreated() {
	c.accountCreated.Inc()
}

// RecordAccountUpdated はアカウント更新を記録する。
func (c *Collector) RecordAccountUpdated() {
	c.accountUpdated.Inc()
}

// RecordAccountDeleted はアカウント削除を記録する。
func (c *Collector) RecordAccountDeleted() {
	c.accountDeleted.Inc()
}

// RecordMutationFailure はミューテーション失敗をエラーコード別に記録する。
func (c *Collector) RecordMutationFailure(code string) {
	c.mutationFailure.WithLabelValues(code).Inc()
}

// RecordLoginSuccess はログイン成功を記録する。
func (c *Collector) RecordLoginSuccess() {
	c.loginSuccess.Inc()
}

// RecordLoginFailure はログイン失敗をエラーコード別に記録する。
func (c *Collector) RecordLoginFailure(code string) {
	c.loginFailure.WithLabelValues(code).Inc()
}

// RecordListLatency は一覧取得のレイテンシを記録する。
func (c *Collector) RecordListLatency(duration time.Duration) {
	c.listLatency.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
