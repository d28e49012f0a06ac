// Package metrics содержит prometheus-метрики опроса лент.
package metrics

import (
	"rss_aggregator/internal/models"
	"rss_aggregator/internal/notify"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Cycles        prometheus.Counter
	CycleDuration prometheus.Histogram
	FeedFailures  *prometheus.CounterVec
	NewPosts      prometheus.Counter
	Submissions   *prometheus.CounterVec
	Feeds         prometheus.Gauge
	Posts         prometheus.Gauge
}

// New регистрирует метрики в reg. Для nil используется prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		Cycles: f.NewCounter(prometheus.CounterOpts{
			Name: "rss_aggregator_poll_cycles_total",
			Help: "The total number of completed poll cycles",
		}),
		CycleDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "rss_aggregator_poll_cycle_duration_seconds",
			Help:    "Duration of poll cycles, from snapshot to commit",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		FeedFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rss_aggregator_feed_failures_total",
			Help: "Feeds that failed to load during a poll cycle",
		}, []string{"kind"}),
		NewPosts: f.NewCounter(prometheus.CounterOpts{
			Name: "rss_aggregator_new_posts_total",
			Help: "Posts merged into the store by poll cycles",
		}),
		Submissions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rss_aggregator_submissions_total",
			Help: "Feed submissions by result",
		}, []string{"result"}),
		Feeds: f.NewGauge(prometheus.GaugeOpts{
			Name: "rss_aggregator_feeds",
			Help: "The current number of feeds",
		}),
		Posts: f.NewGauge(prometheus.GaugeOpts{
			Name: "rss_aggregator_posts",
			Help: "The current number of posts",
		}),
	}
}

// Observe обновляет счётчики лент и публикаций по изменениям состояния.
func (m *Metrics) Observe(d *notify.Dispatcher) {
	d.On(notify.Feeds, func(v any) {
		if feeds, ok := v.([]models.Feed); ok {
			m.Feeds.Set(float64(len(feeds)))
		}
	})
	d.On(notify.Posts, func(v any) {
		if posts, ok := v.([]models.Post); ok {
			m.Posts.Set(float64(len(posts)))
		}
	})
}
