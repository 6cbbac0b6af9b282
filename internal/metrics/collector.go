package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector exposes live scheduler counters to Prometheus. Each collector
// owns its registry, so several schedulers in one process never collide.
// Label values are bounded: cull reasons and lifecycle states only.
type Collector struct {
	reg *prometheus.Registry

	live           prometheus.Gauge
	interval       prometheus.Gauge
	state          *prometheus.GaugeVec
	spawned        prometheus.Counter
	skipped        prometheus.Counter
	handleFailures prometheus.Counter
	culled         *prometheus.CounterVec
	frameSteps     prometheus.Histogram
	frameDuration  prometheus.Histogram
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Collector{
		reg: reg,
		live: f.NewGauge(prometheus.GaugeOpts{
			Name: "stacksim_live_entities",
			Help: "Entities currently in the pool",
		}),
		interval: f.NewGauge(prometheus.GaugeOpts{
			Name: "stacksim_spawn_interval_seconds",
			Help: "Current spawn interval after throttling",
		}),
		state: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "stacksim_scheduler_state",
			Help: "1 for the scheduler's current lifecycle state",
		}, []string{"state"}),
		spawned: f.NewCounter(prometheus.CounterOpts{
			Name: "stacksim_spawned_total",
			Help: "Entities spawned",
		}),
		skipped: f.NewCounter(prometheus.CounterOpts{
			Name: "stacksim_spawn_skipped_total",
			Help: "Spawn ticks skipped at the hard limit",
		}),
		handleFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "stacksim_handle_failures_total",
			Help: "Spawns dropped because the host could not create a handle",
		}),
		culled: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stacksim_culled_total",
			Help: "Entities removed by culling",
		}, []string{"reason"}),
		frameSteps: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "stacksim_frame_physics_steps",
			Help:    "Fixed physics steps run per frame",
			Buckets: []float64{0, 1, 2, 3, 4, 5, 8},
		}),
		frameDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "stacksim_frame_duration_seconds",
			Help:    "Wall time spent stepping and syncing one frame",
			Buckets: []float64{0.0005, 0.001, 0.002, 0.005, 0.01, 0.02, 0.05},
		}),
	}
}

func (c *Collector) Registry() *prometheus.Registry { return c.reg }

func (c *Collector) SetLive(n int)               { c.live.Set(float64(n)) }
func (c *Collector) SetInterval(d time.Duration) { c.interval.Set(d.Seconds()) }
func (c *Collector) IncSpawned()                 { c.spawned.Inc() }
func (c *Collector) IncSkipped()                 { c.skipped.Inc() }
func (c *Collector) IncHandleFailure()           { c.handleFailures.Inc() }
func (c *Collector) IncCulled(reason string)     { c.culled.WithLabelValues(reason).Inc() }

// SetState marks current as the active state among all.
func (c *Collector) SetState(current string, all []string) {
	for _, s := range all {
		v := 0.0
		if s == current {
			v = 1
		}
		c.state.WithLabelValues(s).Set(v)
	}
}

func (c *Collector) ObserveFrame(steps int, d time.Duration) {
	c.frameSteps.Observe(float64(steps))
	c.frameDuration.Observe(d.Seconds())
}
