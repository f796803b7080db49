package reconcile

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/HammerMeetNail/blockshield/internal/models"
)

// Metrics are the Prometheus collectors for reconciliation and fan-out.
// All methods are nil-safe.
type Metrics struct {
	SyncsTotal      *prometheus.CounterVec
	SyncDuration    prometheus.Histogram
	SummaryCounters *prometheus.CounterVec
	PushesTotal     *prometheus.CounterVec
	FanoutTotal     *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg when reg is
// non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SyncsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blockshield",
			Subsystem: "sync",
			Name:      "runs_total",
			Help:      "Sync runs by outcome (success, remote_unavailable, catalog_unavailable, cancelled, invariant)",
		}, []string{"outcome"}),
		SyncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "blockshield",
			Subsystem: "sync",
			Name:      "duration_seconds",
			Help:      "Wall time of a sync run",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		SummaryCounters: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blockshield",
			Subsystem: "sync",
			Name:      "entries_total",
			Help:      "Summary counters accumulated across successful syncs",
		}, []string{"counter"}),
		PushesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blockshield",
			Subsystem: "remote",
			Name:      "pushes_total",
			Help:      "Outbound block creations by result",
		}, []string{"result"}),
		FanoutTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blockshield",
			Subsystem: "fanout",
			Name:      "accounts_total",
			Help:      "Per-account fan-out attempts by result (applied, skipped, failed)",
		}, []string{"result"}),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{m.SyncsTotal, m.SyncDuration, m.SummaryCounters, m.PushesTotal, m.FanoutTotal} {
			if err := reg.Register(c); err != nil {
				if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
					panic(err)
				}
			}
		}
	}
	return m
}

func (m *Metrics) observeSync(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.SyncsTotal.WithLabelValues(outcome).Inc()
	m.SyncDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) observeSummary(s *models.SyncSummary) {
	if m == nil || s == nil {
		return
	}
	m.SummaryCounters.WithLabelValues("fetched").Add(float64(s.TotalFetched))
	m.SummaryCounters.WithLabelValues("newly_added").Add(float64(s.NewlyAdded))
	m.SummaryCounters.WithLabelValues("existing").Add(float64(s.Existing))
	m.SummaryCounters.WithLabelValues("self_blocks_filtered").Add(float64(s.SelfBlocksFiltered))
	m.SummaryCounters.WithLabelValues("added_to_remote").Add(float64(s.AddedToBsky))
	m.SummaryCounters.WithLabelValues("existing_in_remote").Add(float64(s.ExistingInBsky))
	m.SummaryCounters.WithLabelValues("failed_to_add").Add(float64(s.FailedToAdd))
}

func (m *Metrics) observePush(ok bool) {
	if m == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	m.PushesTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) observeFanout(result string) {
	if m == nil {
		return
	}
	m.FanoutTotal.WithLabelValues(result).Inc()
}
