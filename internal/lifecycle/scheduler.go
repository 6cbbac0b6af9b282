package lifecycle

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/san-kum/stacksim/internal/bus"
	"github.com/san-kum/stacksim/internal/config"
	"github.com/san-kum/stacksim/internal/metrics"
	"github.com/san-kum/stacksim/internal/pool"
	"github.com/san-kum/stacksim/internal/render"
	"github.com/san-kum/stacksim/internal/spawn"
	"github.com/san-kum/stacksim/internal/world"
)

var (
	ErrDestroyed          = errors.New("lifecycle: scheduler destroyed")
	ErrAlreadyInitialized = errors.New("lifecycle: already initialized")
)

type State int

const (
	Uninitialized State = iota
	Running
	Paused
	Destroyed
)

var stateNames = []string{"uninitialized", "running", "paused", "destroyed"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Container reports the host's measured size. Zero means not measured yet.
type Container interface {
	Size() (width, height float64)
}

// ContainerFunc adapts a function to Container.
type ContainerFunc func() (float64, float64)

func (f ContainerFunc) Size() (float64, float64) { return f() }

// InteractionFunc is told the category of an entity the user interacted with.
type InteractionFunc func(category string)

type Option func(*Scheduler)

func WithLogger(log *zap.Logger) Option {
	return func(s *Scheduler) { s.log = log }
}

func WithRand(rng *rand.Rand) Option {
	return func(s *Scheduler) { s.rng = rng }
}

func WithInteraction(fn InteractionFunc) Option {
	return func(s *Scheduler) { s.interact = fn }
}

func WithCollector(c *metrics.Collector) Option {
	return func(s *Scheduler) { s.collector = c }
}

func WithBus(b *bus.Bus) Option {
	return func(s *Scheduler) { s.bus = b }
}

func WithContainer(c Container) Option {
	return func(s *Scheduler) { s.container = c }
}

// Scheduler runs the whole subsystem. See the package documentation.
type Scheduler struct {
	cfg       *config.Config
	log       *zap.Logger
	rng       *rand.Rand
	interact  InteractionFunc
	collector *metrics.Collector
	bus       *bus.Bus
	container Container

	world   *world.World
	pool    *pool.Pool
	sync    *render.Synchronizer
	spawner *spawn.Controller
	culler  *pool.Culler

	state   State
	dt      float64
	step    time.Duration
	maxSub  int
	hintW   float64
	hintH   float64
	backoff retry.Backoff

	nextAttempt time.Time
	attempts    int

	// hidden before the first measurement; initialize starts paused
	pausePending bool

	fresh       bool
	lastFrame   time.Time
	accumulator time.Duration
	nextSpawn   time.Time

	frames uint64
	culled uint64
}

// New wires a scheduler for cfg. Rendering goes through host.
func New(cfg *config.Config, host render.Host, opts ...Option) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	wc, err := cfg.World()
	if err != nil {
		return nil, err
	}

	s := &Scheduler{
		cfg:    cfg.Clone(),
		dt:     cfg.Dt,
		step:   cfg.FrameStep(),
		maxSub: cfg.MaxSubSteps,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(cfg.Seed))
	}
	if s.bus == nil {
		s.bus = bus.New()
	}
	if s.collector == nil {
		s.collector = metrics.NewCollector()
	}

	s.world = world.New(wc)
	s.sync = render.NewSynchronizer(host, s.log)
	s.pool = pool.New(cfg.HardLimit, s.sync)
	s.culler = pool.NewCuller(cfg.CullMargin, s.log.Named("cull"))
	s.spawner, err = spawn.New(cfg.Spawn(), s.pool, s.sync, s.world, s.rng, s.log)
	if err != nil {
		return nil, err
	}
	s.resetBackoff()
	s.collector.SetState(s.state.String(), stateNames)
	s.log = s.log.Named("lifecycle")
	return s, nil
}

func (s *Scheduler) resetBackoff() {
	b := retry.NewExponential(time.Duration(s.cfg.InitBackoff.BaseMs) * time.Millisecond)
	s.backoff = retry.WithCappedDuration(time.Duration(s.cfg.InitBackoff.MaxMs)*time.Millisecond, b)
	s.attempts = 0
	s.nextAttempt = time.Time{}
}

// Init initializes directly for hosts that already know their size.
func (s *Scheduler) Init(width, height float64) error {
	switch s.state {
	case Destroyed:
		return ErrDestroyed
	case Running, Paused:
		return ErrAlreadyInitialized
	}
	return s.initialize(width, height)
}

func (s *Scheduler) initialize(width, height float64) error {
	if err := s.world.Init(width, height); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	s.fresh = true
	s.accumulator = 0
	s.nextSpawn = time.Time{}
	s.spawner.Start()
	if s.pausePending {
		s.pausePending = false
		s.setState(Paused)
	} else {
		s.setState(Running)
	}
	s.log.Info("simulation initialized",
		zap.Float64("width", width), zap.Float64("height", height),
		zap.Int("attempts", s.attempts), zap.Stringer("state", s.state))
	return nil
}

func (s *Scheduler) measure() (float64, float64) {
	if s.container != nil {
		return s.container.Size()
	}
	return s.hintW, s.hintH
}

// tryInit measures the container. A zero size schedules another attempt;
// a negative size is a precondition error.
func (s *Scheduler) tryInit(now time.Time) error {
	if now.Before(s.nextAttempt) {
		return nil
	}
	w, h := s.measure()
	if w < 0 || h < 0 {
		return fmt.Errorf("measure container: %w: %gx%g", world.ErrInvalidDimensions, w, h)
	}
	if w == 0 || h == 0 {
		s.attempts++
		wait, _ := s.backoff.Next()
		s.nextAttempt = now.Add(wait)
		s.log.Debug("container not measured yet, retrying",
			zap.Int("attempt", s.attempts), zap.Duration("wait", wait))
		return nil
	}
	return s.initialize(w, h)
}

// Advance is the host's frame callback. It returns an error only for
// precondition violations during initialization.
func (s *Scheduler) Advance(now time.Time) error {
	switch s.state {
	case Destroyed:
		return nil
	case Uninitialized:
		if err := s.tryInit(now); err != nil {
			return err
		}
		if s.state == Uninitialized {
			return nil
		}
	}

	s.pumpSpawn(now)
	if s.state == Running {
		s.pumpFrame(now)
	}
	s.bus.Flush()
	return nil
}

// pumpSpawn fires the spawn timer at most once. The next deadline counts
// from now, so a late call never produces a burst.
func (s *Scheduler) pumpSpawn(now time.Time) {
	if !s.spawner.Armed() {
		s.nextSpawn = time.Time{}
		return
	}
	if s.nextSpawn.IsZero() {
		s.nextSpawn = now.Add(s.spawner.Interval())
		return
	}
	if now.Before(s.nextSpawn) {
		return
	}
	s.FireSpawn()
	s.nextSpawn = now.Add(s.spawner.Interval())
}

func (s *Scheduler) pumpFrame(now time.Time) {
	start := time.Now()
	steps := 0

	if s.fresh {
		s.fresh = false
		s.accumulator = 0
	} else {
		if elapsed := now.Sub(s.lastFrame); elapsed > 0 {
			s.accumulator += elapsed
		}
		steps = int(s.accumulator / s.step)
		if steps >= s.maxSub {
			steps = s.maxSub
			s.accumulator = 0
		} else {
			s.accumulator -= time.Duration(steps) * s.step
		}
	}
	s.lastFrame = now

	for i := 0; i < steps; i++ {
		s.physicsStep()
	}
	s.renderSync()
	s.collector.ObserveFrame(steps, time.Since(start))
}

// FireSpawn is the spawn timer callback. Stale calls before Init or after
// Destroy do nothing.
func (s *Scheduler) FireSpawn() {
	if s.state == Uninitialized || s.state == Destroyed {
		return
	}

	before := s.spawner.State()
	outcome, e := s.spawner.Tick()
	switch outcome {
	case spawn.Spawned:
		s.collector.IncSpawned()
		bus.Emit(s.bus, Spawned{ID: e.ID, Category: e.Category, Radius: e.Body.Radius})
	case spawn.AtLimit:
		s.collector.IncSkipped()
	case spawn.HandleFailed:
		s.collector.IncHandleFailure()
	}
	s.collector.SetLive(s.pool.Len())
	s.collector.SetInterval(s.spawner.Interval())

	if before != spawn.Stopped && s.spawner.State() == spawn.Stopped {
		bus.Emit(s.bus, SpawnStopped{Total: s.spawner.Total()})
	}
}

// Frame is a single fixed-rate frame tick: one physics step, culling and a
// render sync. It does nothing unless running.
func (s *Scheduler) Frame() {
	if s.state != Running {
		return
	}
	s.physicsStep()
	s.renderSync()
}

func (s *Scheduler) physicsStep() {
	if err := s.world.Step(s.pool.Bodies(), s.dt); err != nil {
		s.log.Error("physics step failed", zap.Error(err))
		return
	}
	_, height := s.world.Size()
	for _, c := range s.culler.Cull(s.pool, height) {
		s.culled++
		s.collector.IncCulled(c.Reason.String())
		bus.Emit(s.bus, Culled{ID: c.ID, Category: c.Category, Reason: c.Reason})
	}
	s.collector.SetLive(s.pool.Len())
}

func (s *Scheduler) renderSync() {
	s.sync.Sync(s.pool)
	s.frames++
}

// Pause stops the frame cadence. Entities and the spawn timer are kept.
// Before initialization the request is remembered for the first Init.
func (s *Scheduler) Pause() {
	if s.state == Uninitialized {
		s.pausePending = true
		return
	}
	if s.state != Running {
		return
	}
	s.setState(Paused)
}

// Resume restarts the frame cadence without catching up on the time spent
// paused.
func (s *Scheduler) Resume() {
	if s.state == Uninitialized {
		s.pausePending = false
		return
	}
	if s.state != Paused {
		return
	}
	s.fresh = true
	s.setState(Running)
}

// Resize moves the boundaries. Entity poses are untouched. Before
// initialization the size is kept as a hint for the first attempt.
func (s *Scheduler) Resize(width, height float64) error {
	switch s.state {
	case Destroyed:
		return nil
	case Uninitialized:
		if width < 0 || height < 0 {
			return fmt.Errorf("resize: %w: %gx%g", world.ErrInvalidDimensions, width, height)
		}
		s.hintW, s.hintH = width, height
		s.nextAttempt = time.Time{}
		return nil
	}
	if err := s.world.Resize(width, height); err != nil {
		return fmt.Errorf("resize: %w", err)
	}
	s.log.Debug("container resized", zap.Float64("width", width), zap.Float64("height", height))
	return nil
}

// Reset is an explicit reinitialization: every entity is released and the
// spawn controller starts over from Idle.
func (s *Scheduler) Reset() {
	if s.state == Destroyed || s.state == Uninitialized {
		return
	}
	n := s.pool.Clear()
	s.spawner.Reset()
	s.spawner.Start()
	s.nextSpawn = time.Time{}
	s.collector.SetLive(0)
	s.log.Info("simulation reset", zap.Int("released", n))
}

// Destroy releases everything. Later calls, including stale timer
// callbacks, do nothing.
func (s *Scheduler) Destroy() {
	if s.state == Destroyed {
		return
	}
	n := s.pool.Clear()
	s.spawner.Reset()
	s.world.Teardown()
	s.nextSpawn = time.Time{}
	s.accumulator = 0
	s.fresh = false
	s.setState(Destroyed)
	s.collector.SetLive(0)
	s.bus.Flush()
	s.log.Info("simulation destroyed", zap.Int("released", n))
}

// Interact hit-tests screen coordinates against live entities and reports
// the topmost hit to the interaction callback.
func (s *Scheduler) Interact(x, y float64) (string, bool) {
	if s.state != Running && s.state != Paused {
		return "", false
	}
	p := s.sync.ScreenToWorld(x, y)

	var hit *pool.Entity
	s.pool.Each(func(e *pool.Entity) {
		if e.Body.Position().Sub(p).LenSq() <= e.Body.Radius*e.Body.Radius {
			hit = e
		}
	})
	if hit == nil {
		return "", false
	}

	if s.interact != nil {
		s.interact(hit.Category)
	}
	bus.Emit(s.bus, Interacted{ID: hit.ID, Category: hit.Category})
	return hit.Category, true
}

func (s *Scheduler) setState(to State) {
	from := s.state
	s.state = to
	s.collector.SetState(to.String(), stateNames)
	bus.Emit(s.bus, StateChanged{From: from, To: to})
}

func (s *Scheduler) State() State                       { return s.state }
func (s *Scheduler) Pool() *pool.Pool                   { return s.pool }
func (s *Scheduler) World() *world.World                { return s.world }
func (s *Scheduler) Bus() *bus.Bus                      { return s.bus }
func (s *Scheduler) Spawner() *spawn.Controller         { return s.spawner }
func (s *Scheduler) Synchronizer() *render.Synchronizer { return s.sync }
func (s *Scheduler) Collector() *metrics.Collector      { return s.collector }
func (s *Scheduler) Config() *config.Config             { return s.cfg }
func (s *Scheduler) InitAttempts() int                  { return s.attempts }
