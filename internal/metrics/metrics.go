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
// ハンドラーやワーカーから利用する。
type MetricsCollector interface {
	RecordRegistration()
	RecordVerification()
	RecordRegistrationConflict(reason string)
	RecordAccountsExpired(count int)
	RecordSweepFailure()
	RecordSweepDuration(duration time.Duration)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	registrations     prometheus.Counter
	verifications     prometheus.Counter
	registerConflicts *prometheus.CounterVec
	accountsExpired   prometheus.Counter
	sweepFailures     prometheus.Counter
	sweepDuration     prometheus.Histogram
	httpStatus        *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "demostand_registrations_total",
			Help: "デモ申込受付の合計数",
		}),
		verifications: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "demostand_verifications_total",
			Help: "本人確認完了の合計数",
		}),
		registerConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "demostand_registration_conflicts_total",
			Help: "申込競合（確認待ち再申込・登録済み再申込）の合計数",
		}, []string{"reason"}),
		accountsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "demostand_accounts_expired_total",
			Help: "期限切れで削除されたデモアカウントの合計数",
		}),
		sweepFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "demostand_sweep_failures_total",
			Help: "スイープの対象単位での失敗の合計数",
		}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "demostand_sweep_duration_seconds",
			Help:    "スイープ1回あたりの所要時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "demostand_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.registrations,
		c.verifications,
		c.registerConflicts,
		c.accountsExpired,
		c.sweepFailures,
		c.sweepDuration,
		c.httpStatus,
	)

	return c
}

// RecordRegistration は申込受付を記録する。
func (c *Collector) RecordRegistration() {
	c.registrations.Inc()
}

// RecordVerification は本人確認完了を記録する。
func (c *Collector) RecordVerification() {
	c.verifications.Inc()
}

// RecordRegistrationConflict は申込競合を理由コード付きで記録する。
func (c *Collector) RecordRegistrationConflict(reason string) {
	c.registerConflicts.WithLabelValues(reason).Inc()
}

// RecordAccountsExpired は期限切れ削除されたアカウント数を記録する。
func (c *Collector) RecordAccountsExpired(count int) {
	c.accountsExpired.Add(float64(count))
}

// RecordSweepFailure はスイープの対象単位での失敗を記録する。
func (c *Collector) RecordSweepFailure() {
	c.sweepFailures.Inc()
}

// RecordSweepDuration はスイープ1回の所要時間を記録する。
func (c *Collector) RecordSweepDuration(duration time.Duration) {
	c.sweepDuration.Observe(duration.Seconds())
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
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
