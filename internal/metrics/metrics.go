// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はPrometheusメトリクスを収集する実装。
// プロバイダー呼び出しと予約作成の結果を記録する。
type Collector struct {
	bookingSuccess prometheus.Counter
	bookingFail    *prometheus.CounterVec
	providerStatus *prometheus.CounterVec
	providerLat    *prometheus.HistogramVec
	slotsReturned  prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		bookingSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bookman_booking_success_total",
			Help: "予約作成成功の合計数",
		}),
		bookingFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bookman_booking_fail_total",
			Help: "予約作成失敗の合計数（理由別）",
		}, []string{"reason"}),
		providerStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bookman_provider_status_total",
			Help: "プロバイダー呼び出しのHTTPステータスコード別レスポンス数",
		}, []string{"endpoint", "status_code"}),
		providerLat: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bookman_provider_latency_seconds",
			Help:    "プロバイダー呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		slotsReturned: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bookman_free_slots_returned",
			Help:    "空き状況クエリ1回あたりの返却空き枠数",
			Buckets: []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9},
		}),
	}

	reg.MustRegister(
		c.bookingSuccess,
		c.bookingFail,
		c.providerStatus,
		c.providerLat,
		c.slotsReturned,
	)

	return c
}

// RecordBookingSuccess は予約作成成功を記録する。
func (c *Collector) RecordBookingSuccess() {
	c.bookingSuccess.Inc()
}

// RecordBookingFailure は予約作成失敗を理由別に記録する。
func (c *Collector) RecordBookingFailure(reason string) {
	c.bookingFail.WithLabelValues(reason).Inc()
}

// RecordProviderStatus はプロバイダー呼び出しのステータスコードを記録する。
func (c *Collector) RecordProviderStatus(endpoint string, statusCode int) {
	c.providerStatus.WithLabelValues(endpoint, strconv.Itoa(statusCode)).Inc()
}

// RecordProviderLatency はプロバイダー呼び出しのレイテンシを記録する。
func (c *Collector) RecordProviderLatency(endpoint string, duration time.Duration) {
	c.providerLat.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordSlotsReturned は空き状況クエリで返した空き枠数を記録する。
func (c *Collector) RecordSlotsReturned(count int) {
	c.slotsReturned.Observe(float64(count))
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
