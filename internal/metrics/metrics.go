// Package metrics exports episode outcomes to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tutorsim.ai/internal/sim/session"
)

const namespace = "tutorsim"

// Recorder counts episodes as sessions report them. It implements
// session.Recorder and the websocket server's lifecycle hooks.
type Recorder struct {
	reg *prometheus.Registry

	started    *prometheus.CounterVec
	ended      *prometheus.CounterVec
	reward     *prometheus.CounterVec
	usedTime   *prometheus.HistogramVec
	dispatches *prometheus.CounterVec
	faults     *prometheus.CounterVec
	violations *prometheus.CounterVec
	sessions   prometheus.Gauge
}

func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		started: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "episodes_started_total",
			Help: "Episodes begun, by task.",
		}, []string{"task"}),
		ended: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "episodes_ended_total",
			Help: "Episodes terminated, by task and cause.",
		}, []string{"task", "cause"}),
		reward: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "reward_total",
			Help: "Sum of terminal rewards, by task.",
		}, []string{"task"}),
		usedTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "episode_time_used_ratio",
			Help:    "Elapsed simulated time over the episode's maximum.",
			Buckets: []float64{0.1, 0.25, 0.5, 0.75, 0.9, 1},
		}, []string{"task"}),
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "dispatches_total",
			Help: "Entry-point calls that delivered at least one event, by task.",
		}, []string{"task"}),
		faults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "reaction_faults_total",
			Help: "Reactions that returned an error or panicked, by task.",
		}, []string{"task"}),
		violations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "contract_violations_total",
			Help: "Contract violations reported by the dispatcher, by task.",
		}, []string{"task"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "sessions_active",
			Help: "Learners currently connected.",
		}),
	}
	r.reg.MustRegister(r.started, r.ended, r.reward, r.usedTime, r.dispatches, r.faults, r.violations, r.sessions)
	return r
}

// Register adds collectors owned by other components, e.g. queue gauges.
func (r *Recorder) Register(cs ...prometheus.Collector) error {
	for _, c := range cs {
		if err := r.reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

func (r *Recorder) EpisodeStarted(e session.EpisodeInfo) {
	r.started.WithLabelValues(e.Task).Inc()
}

func (r *Recorder) Dispatched(d session.DispatchRecord) {
	if len(d.Delivered) > 0 {
		r.dispatches.WithLabelValues(d.Task).Inc()
	}
	if n := len(d.Faults); n > 0 {
		r.faults.WithLabelValues(d.Task).Add(float64(n))
	}
	if n := len(d.Violations); n > 0 {
		r.violations.WithLabelValues(d.Task).Add(float64(n))
	}
}

func (r *Recorder) EpisodeEnded(o session.Outcome) {
	r.ended.WithLabelValues(o.Task, o.Cause).Inc()
	if o.Reward > 0 {
		r.reward.WithLabelValues(o.Task).Add(float64(o.Reward))
	}
	if o.MaxTime > 0 {
		r.usedTime.WithLabelValues(o.Task).Observe(float64(o.Elapsed) / float64(o.MaxTime))
	}
}

func (r *Recorder) SessionOpened() { r.sessions.Inc() }
func (r *Recorder) SessionClosed() { r.sessions.Dec() }
