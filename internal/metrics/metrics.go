// Package metrics exposes Prometheus instruments for bid admission, auction
// settlement and notification delivery.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "studentbidz"

// Recorder holds the instruments. A nil *Recorder records nothing.
type Recorder struct {
	registry      *prometheus.Registry
	bidsAccepted  prometheus.Counter
	bidsRejected  *prometheus.CounterVec
	extensions    prometheus.Counter
	auctionsClose *prometheus.CounterVec
	notifications *prometheus.CounterVec
	sweepDuration *prometheus.HistogramVec
}

// New registers the instruments on a fresh registry together with the Go and process collectors.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Recorder{
		registry: reg,
		bidsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bids_accepted_total",
			Help:      "Number of bids admitted.",
		}),
		bidsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bids_rejected_total",
			Help:      "Number of bids rejected, by reason.",
		}, []string{"reason"}),
		extensions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auction_extensions_total",
			Help:      "Number of anti-sniping end time extensions.",
		}),
		auctionsClose: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auctions_closed_total",
			Help:      "Number of auctions closed by the sweeper, by outcome.",
		}, []string{"outcome"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_created_total",
			Help:      "Number of notifications persisted, by type.",
		}, []string{"type"}),
		sweepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Duration of sweeper passes in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}, []string{"pass", "success"}),
	}
	reg.MustRegister(m.bidsAccepted, m.bidsRejected, m.extensions, m.auctionsClose, m.notifications, m.sweepDuration)
	return m
}

func (m *Recorder) BidAccepted(extended bool) {
	if m == nil {
		return
	}
	m.bidsAccepted.Inc()
	if extended {
		m.extensions.Inc()
	}
}

func (m *Recorder) BidRejected(reason string) {
	if m == nil {
		return
	}
	m.bidsRejected.WithLabelValues(reason).Inc()
}

// AuctionClosed records a settlement outcome: "sold" or "ended".
func (m *Recorder) AuctionClosed(outcome string) {
	if m == nil {
		return
	}
	m.auctionsClose.WithLabelValues(outcome).Inc()
}

func (m *Recorder) NotificationCreated(kind string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(kind).Inc()
}

func (m *Recorder) SweepDuration(pass string, d time.Duration, success bool) {
	if m == nil {
		return
	}
	label := "true"
	if !success {
		label = "false"
	}
	m.sweepDuration.WithLabelValues(pass, label).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Recorder) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
