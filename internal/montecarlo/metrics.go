package montecarlo

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the Prometheus instruments of one controller. A nil *Metrics records nothing.
type Metrics struct {
	trials      *prometheus.CounterVec
	engagements *prometheus.CounterVec
	simTime     prometheus.Histogram
	batches     *prometheus.CounterVec
	running     prometheus.Gauge
	progress    prometheus.Gauge
}

// NewMetrics registers the batch instruments with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		// Labels: outcome (ok, early, build_error, tick_error)
		trials: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "combat_mc",
			Subsystem: "trial",
			Name:      "completed_total",
			Help:      "Trials completed, by outcome",
		}, []string{"outcome"}),
		// Labels: weapon (SAM, A2A, KKV), result (LAUNCH, KILL, MISS)
		engagements: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "combat_mc",
			Subsystem: "trial",
			Name:      "engagements_total",
			Help:      "Engagement events emitted",
		}, []string{"weapon", "result"}),
		simTime: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "combat_mc",
			Subsystem: "trial",
			Name:      "sim_time_seconds",
			Help:      "Final simulated time of each trial",
			Buckets:   []float64{1, 10, 30, 60, 120, 300, 600, 1200, 3600},
		}),
		// Labels: status (completed, cancelled, rejected)
		batches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "combat_mc",
			Subsystem: "batch",
			Name:      "finished_total",
			Help:      "Batches finished, by status",
		}, []string{"status"}),
		running: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "combat_mc",
			Subsystem: "batch",
			Name:      "running",
			Help:      "1 while a batch is running",
		}),
		progress: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "combat_mc",
			Subsystem: "batch",
			Name:      "progress_percent",
			Help:      "Completion percentage of the current batch",
		}),
	}
}

func (m *Metrics) observeTrial(r TrialResult, resolved bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	switch {
	case r.Error != nil && r.Error.Kind == KindBuild:
		outcome = "build_error"
	case r.Error != nil:
		outcome = "tick_error"
	case resolved:
		outcome = "early"
	}
	m.trials.WithLabelValues(outcome).Inc()
	m.simTime.Observe(r.SimTimeFinal)
}

func (m *Metrics) observeEvent(ev EngagementEvent) {
	if m == nil {
		return
	}
	m.engagements.WithLabelValues(ev.WeaponType, ev.Result).Inc()
}

func (m *Metrics) batchStarted() {
	if m == nil {
		return
	}
	m.running.Set(1)
	m.progress.Set(0)
}

func (m *Metrics) batchProgress(pct int) {
	if m == nil {
		return
	}
	m.progress.Set(float64(pct))
}

func (m *Metrics) batchFinished(status string) {
	if m == nil {
		return
	}
	if status != "rejected" {
		m.running.Set(0)
	}
	m.batches.WithLabelValues(status).Inc()
}
