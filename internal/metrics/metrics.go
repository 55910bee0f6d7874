// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はポーリングと認証のメトリクスを収集する。
type Collector struct {
	pollSuccess       prometheus.Counter
	pollFail          prometheus.Counter
	refreshSuccess    prometheus.Counter
	refreshFail       prometheus.Counter
	enrichmentFail    prometheus.Counter
	observations      prometheus.Counter
	sweepLatency      prometheus.Histogram
	trackedIdentities prometheus.Gauge
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		pollSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "evewatch_poll_success_total",
			Help: "位置ポーリング成功の合計数",
		}),
		pollFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "evewatch_poll_fail_total",
			Help: "位置ポーリング失敗（リフレッシュ後の再試行含む）の合計数",
		}),
		refreshSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "evewatch_token_refresh_success_total",
			Help: "トークンリフレッシュ成功の合計数",
		}),
		refreshFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "evewatch_token_refresh_fail_total",
			Help: "トークンリフレッシュ失敗の合計数",
		}),
		enrichmentFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "evewatch_enrichment_fail_total",
			Help: "補完取得（システム名・ポートレート）失敗の合計数",
		}),
		observations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "evewatch_observations_recorded_total",
			Help: "履歴に記録された観測の合計数",
		}),
		sweepLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "evewatch_sweep_latency_seconds",
			Help:    "全キャラクターの1スイープにかかった時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		trackedIdentities: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "evewatch_tracked_identities",
			Help: "追跡中のキャラクター数",
		}),
	}

	reg.MustRegister(
		c.pollSuccess,
		c.pollFail,
		c.refreshSuccess,
		c.refreshFail,
		c.enrichmentFail,
		c.observations,
		c.sweepLatency,
		c.trackedIdentities,
	)

	return c
}

// RecordPollSuccess はポーリング成功を記録する。
func (c *Collector) RecordPollSuccess() {
	c.pollSuccess.Inc()
}

// RecordPollFailure はポーリング失敗を記録する。
func (c *Collector) RecordPollFailure() {
	c.pollFail.Inc()
}

// RecordRefreshSuccess はトークンリフレッシュ成功を記録する。
func (c *Collector) RecordRefreshSuccess() {
	c.refreshSuccess.Inc()
}

// RecordRefreshFailure はトークンリフレッシュ失敗を記録する。
func (c *Collector) RecordRefreshFailure() {
	c.refreshFail.Inc()
}

// RecordEnrichmentFailure は補完取得失敗を記録する。
func (c *Collector) RecordEnrichmentFailure() {
	c.enrichmentFail.Inc()
}

// RecordObservation は観測の記録を記録する。
func (c *Collector) RecordObservation() {
	c.observations.Inc()
}

// RecordSweepLatency はスイープにかかった時間を記録する。
func (c *Collector) RecordSweepLatency(duration time.Duration) {
	c.sweepLatency.Observe(duration.Seconds())
}

// SetTrackedIdentities は追跡中のキャラクター数を設定する。
func (c *Collector) SetTrackedIdentities(n int) {
	c.trackedIdentities.Set(float64(n))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
