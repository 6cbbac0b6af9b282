package runner

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/san-kum/stacksim/internal/config"
	"github.com/san-kum/stacksim/internal/lifecycle"
	"github.com/san-kum/stacksim/internal/metrics"
	"github.com/san-kum/stacksim/internal/pool"
	"github.com/san-kum/stacksim/internal/render"
)

// epoch anchors the simulated clock; only differences matter.
var epoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// Frame is one recorded row of a run trace.
type Frame struct {
	T             float64 `json:"t"`
	Live          int     `json:"live"`
	Total         int     `json:"total"`
	Culled        uint64  `json:"culled"`
	KineticEnergy float64 `json:"kinetic_energy"`
	IntervalMs    float64 `json:"interval_ms"`
	SpawnState    string  `json:"spawn_state"`
}

type Result struct {
	Seed    int64
	Frames  []Frame
	Metrics map[string]float64
	Final   lifecycle.Stats
	Elapsed time.Duration // wall time
}

type Option func(*Runner)

func WithLogger(log *zap.Logger) Option {
	return func(r *Runner) { r.log = log }
}

// WithHost sets the host factory. Every run gets a fresh host.
func WithHost(newHost func() render.Host) Option {
	return func(r *Runner) { r.newHost = newHost }
}

// WithRecordEvery keeps one trace row every n frames.
func WithRecordEvery(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.recordEvery = n
		}
	}
}

// WithFinish is called with the scheduler after the last frame, before it
// is destroyed.
func WithFinish(fn func(seed int64, s *lifecycle.Scheduler)) Option {
	return func(r *Runner) { r.finish = fn }
}

type Runner struct {
	cfg         *config.Config
	log         *zap.Logger
	newHost     func() render.Host
	recordEvery int
	finish      func(int64, *lifecycle.Scheduler)
}

func New(cfg *config.Config, opts ...Option) *Runner {
	r := &Runner{
		cfg:         cfg.Clone(),
		log:         zap.NewNop(),
		newHost:     func() render.Host { return NewNullHost() },
		recordEvery: 1,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) validate() error {
	if r.cfg.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %f", config.ErrInvalidConfig, r.cfg.Duration)
	}
	return r.cfg.Validate()
}

// Run simulates cfg.Duration seconds with the given seed.
func (r *Runner) Run(ctx context.Context, seed int64) (*Result, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}

	cfg := r.cfg.Clone()
	cfg.Seed = seed
	log := r.log.With(zap.Int64("seed", seed))

	s, err := lifecycle.New(cfg, r.newHost(),
		lifecycle.WithLogger(log),
		lifecycle.WithRand(rand.New(rand.NewSource(seed))),
	)
	if err != nil {
		return nil, err
	}
	defer s.Destroy()

	if err := s.Init(cfg.Width, cfg.Height); err != nil {
		return nil, err
	}

	set := metrics.Defaults(cfg.SpawnInterval())
	frames := int(cfg.Duration / cfg.Dt)
	result := &Result{
		Seed:    seed,
		Frames:  make([]Frame, 0, frames/r.recordEvery+1),
		Metrics: make(map[string]float64, len(set)),
	}

	start := time.Now()
	step := cfg.FrameStep()
	clock := epoch
	for i := 0; i < frames; i++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		clock = clock.Add(step)
		if err := s.Advance(clock); err != nil {
			return result, err
		}

		t := float64(i+1) * cfg.Dt
		sample := s.Sample(t)
		for _, m := range set {
			m.Observe(sample)
		}
		if i%r.recordEvery == 0 || i == frames-1 {
			result.Frames = append(result.Frames, r.frame(s, sample))
		}
	}

	for _, m := range set {
		result.Metrics[m.Name()] = m.Value()
	}
	result.Final = s.Stats()
	result.Elapsed = time.Since(start)
	if r.finish != nil {
		r.finish(seed, s)
	}
	log.Debug("run finished",
		zap.Int("frames", frames), zap.Int("live", result.Final.Live),
		zap.Duration("elapsed", result.Elapsed))
	return result, nil
}

func (r *Runner) frame(s *lifecycle.Scheduler, sample metrics.Sample) Frame {
	st := s.Stats()
	return Frame{
		T:             sample.T,
		Live:          sample.Live,
		Total:         sample.Total,
		Culled:        st.Culled,
		KineticEnergy: sample.KineticEnergy,
		IntervalMs:    float64(sample.Interval) / float64(time.Millisecond),
		SpawnState:    st.SpawnState,
	}
}

// NullHost is a render host that keeps no visuals, only a handle count.
type NullHost struct {
	live int
}

func NewNullHost() *NullHost { return &NullHost{} }

type nullHandle struct{ seq int }

func (h *NullHost) CreateHandle(category string, radius float64) (pool.Handle, error) {
	h.live++
	return &nullHandle{seq: h.live}, nil
}

func (h *NullHost) DestroyHandle(pool.Handle)               { h.live-- }
func (h *NullHost) ApplyPose(pool.Handle, render.Transform) {}
func (h *NullHost) Live() int                               { return h.live }
