// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// サイクル結果のラベル値。
const (
	CycleCompleted = "completed"
	CycleAborted   = "aborted"
	CycleSkipped   = "skipped"
)

// 通知結果のラベル値。
const (
	NotificationSent        = "sent"
	NotificationFailed      = "failed"
	NotificationAlreadySeen = "already_seen"
)

// MetricsCollector はメトリクス収集のインターフェース。
// モニターとクリーンアップジョブから利用する。
type MetricsCollector interface {
	RecordCycle(result string, duration time.Duration)
	RecordFetchFailure(category string)
	RecordListingsFetched(count int)
	RecordDealsFound(count int)
	RecordNotification(result string)
	RecordSeenPurged(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	cycles          *prometheus.CounterVec
	cycleDuration   prometheus.Histogram
	fetchFailures   *prometheus.CounterVec
	listingsFetched prometheus.Counter
	dealsFound      prometheus.Counter
	notifications   *prometheus.CounterVec
	seenPurged      prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dealwatch_cycles_total",
			Help: "結果別のチェックサイクル数",
		}, []string{"result"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "dealwatch_cycle_duration_seconds",
			Help: "チェックサイクルの所要時間（秒）",
			// 購読者ごとの待機を含むため、数秒から数分に分布する
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		fetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dealwatch_fetch_failures_total",
			Help: "カテゴリ別の上流フェッチ失敗数",
		}, []string{"category"}),
		listingsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dealwatch_listings_fetched_total",
			Help: "取得した出品の合計数",
		}),
		dealsFound: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dealwatch_deals_found_total",
			Help: "閾値を超えた出品の合計数",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dealwatch_notifications_total",
			Help: "結果別の通知数",
		}, []string{"result"}),
		seenPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dealwatch_seen_purged_total",
			Help: "保持期間切れで削除した既読マーカーの合計数",
		}),
	}

	reg.MustRegister(
		c.cycles,
		c.cycleDuration,
		c.fetchFailures,
		c.listingsFetched,
		c.dealsFound,
		c.notifications,
		c.seenPurged,
	)

	return c
}

// RecordCycle はサイクルの結果と所要時間を記録する。スキップされたサイクルは時間を記録しない。
func (c *Collector) RecordCycle(result string, duration time.Duration) {
	c.cycles.WithLabelValues(result).Inc()
	if result != CycleSkipped {
		c.cycleDuration.Observe(duration.Seconds())
	}
}

func (c *Collector) RecordFetchFailure(category string) {
	c.fetchFailures.WithLabelValues(category).Inc()
}

func (c *Collector) RecordListingsFetched(count int) {
	c.listingsFetched.Add(float64(count))
}

func (c *Collector) RecordDealsFound(count int) {
	c.dealsFound.Add(float64(count))
}

func (c *Collector) RecordNotification(result string) {
	c.notifications.WithLabelValues(result).Inc()
}

func (c *Collector) RecordSeenPurged(count int64) {
	c.seenPurged.Add(float64(count))
}

// Nop は何も記録しないMetricsCollector。
type Nop struct{}

func (Nop) RecordCycle(string, time.Duration) {}
func (Nop) RecordFetchFailure(string) {}
func (Nop) RecordListingsFetched(int) {}
func (Nop) RecordDealsFound(int) {}
func (Nop) RecordNotification(string) {}
func (Nop) RecordSeenPurged(int64) {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
