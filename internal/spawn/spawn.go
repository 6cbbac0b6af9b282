package spawn

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/san-kum/stacksim/internal/pool"
	"github.com/san-kum/stacksim/internal/world"
)

var ErrInvalidConfig = errors.New("spawn: invalid config")

const (
	DefaultSlowdownBase = 1.5
	DefaultDivisor      = 5.0
	DefaultMaxSlowdown  = 8.0
	DefaultStopBuffer   = 10
)

type State int

const (
	Idle State = iota
	Spawning
	Throttled
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Spawning:
		return "spawning"
	case Throttled:
		return "throttled"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Outcome is what a single timer tick did.
type Outcome int

const (
	Spawned Outcome = iota
	AtLimit
	Halted
	HandleFailed
)

func (o Outcome) String() string {
	switch o {
	case Spawned:
		return "spawned"
	case AtLimit:
		return "at_limit"
	case Halted:
		return "halted"
	case HandleFailed:
		return "handle_failed"
	default:
		return "unknown"
	}
}

// Launch bounds the randomized initial motion of a new entity.
type Launch struct {
	MaxVX      float64 // |vx| bound, px/s
	MaxVY      float64 // downward vy in [0, MaxVY], px/s
	MaxAngular float64 // |angular| bound, rad/s
	SpawnBand  float64 // entities start this far above the top edge at most
}

type Config struct {
	Categories           []string
	RadiusMin, RadiusMax float64
	Material             world.Material
	Interval             time.Duration
	SoftLimit            int
	HardLimit            int
	SlowdownBase         float64
	Divisor              float64
	MaxSlowdown          float64
	StopBuffer           int
	Launch               Launch
}

func DefaultConfig() Config {
	return Config{
		Categories:   []string{"BTC", "ETH", "SOL", "BNB", "XRP", "ADA", "DOGE"},
		RadiusMin:    18,
		RadiusMax:    28,
		Material:     world.Material{Restitution: 0.3, Friction: 0.4, Density: 0.001},
		Interval:     300 * time.Millisecond,
		SoftLimit:    30,
		HardLimit:    40,
		SlowdownBase: DefaultSlowdownBase,
		Divisor:      DefaultDivisor,
		MaxSlowdown:  DefaultMaxSlowdown,
		StopBuffer:   DefaultStopBuffer,
		Launch:       Launch{MaxVX: 60, MaxVY: 120, MaxAngular: 2, SpawnBand: 60},
	}
}

func (c Config) Validate() error {
	switch {
	case len(c.Categories) == 0:
		return fmt.Errorf("%w: at least one category required", ErrInvalidConfig)
	case !(c.RadiusMin > 0) || c.RadiusMax < c.RadiusMin:
		return fmt.Errorf("%w: radius range [%g, %g]", ErrInvalidConfig, c.RadiusMin, c.RadiusMax)
	case c.Interval <= 0:
		return fmt.Errorf("%w: interval must be positive", ErrInvalidConfig)
	case c.SoftLimit < 0 || c.HardLimit < 1 || c.HardLimit < c.SoftLimit:
		return fmt.Errorf("%w: limits soft=%d hard=%d", ErrInvalidConfig, c.SoftLimit, c.HardLimit)
	case c.SlowdownBase < 1 || c.MaxSlowdown < 1 || !(c.Divisor > 0):
		return fmt.Errorf("%w: throttle base=%g divisor=%g max=%g", ErrInvalidConfig, c.SlowdownBase, c.Divisor, c.MaxSlowdown)
	case c.StopBuffer < 0:
		return fmt.Errorf("%w: stop buffer %d", ErrInvalidConfig, c.StopBuffer)
	case c.Material.Restitution < 0 || c.Material.Friction < 0 || c.Material.Density < 0:
		return fmt.Errorf("%w: material properties must be non-negative", ErrInvalidConfig)
	}
	return nil
}

// ThrottledInterval is the spawn interval after `excess` spawns beyond the
// soft limit: min(base*maxSlowdown, base*slowdownBase^(excess/divisor)).
func (c Config) ThrottledInterval(excess int) time.Duration {
	if excess <= 0 {
		return c.Interval
	}
	base := float64(c.Interval)
	factor := math.Pow(c.SlowdownBase, float64(excess)/c.Divisor)
	return time.Duration(math.Min(base*c.MaxSlowdown, base*factor))
}

// Factory creates and destroys render handles for new entities.
type Factory interface {
	Acquire(category string, radius float64) (pool.Handle, error)
	Release(h pool.Handle)
}

// Bounds reports the current container size in world units.
type Bounds interface {
	Size() (width, height float64)
}

// Controller decides when to create an entity and with what properties.
// Counters only move after the pool has accepted the entity.
type Controller struct {
	cfg      Config
	pool     *pool.Pool
	handles  Factory
	bounds   Bounds
	rng      *rand.Rand
	log      *zap.Logger
	warn     rate.Sometimes
	state    State
	interval time.Duration
	total    int
	armed    bool
	skipped  uint64
	failed   uint64
}

func New(cfg Config, p *pool.Pool, handles Factory, bounds Bounds, rng *rand.Rand, log *zap.Logger) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{
		cfg:      cfg,
		pool:     p,
		handles:  handles,
		bounds:   bounds,
		rng:      rng,
		log:      log.Named("spawn"),
		warn:     rate.Sometimes{First: 3, Interval: 10 * time.Second},
		interval: cfg.Interval,
	}, nil
}

// Start arms the spawn timer. It has no effect once stopped; only Reset
// brings a stopped controller back.
func (c *Controller) Start() {
	if c.state == Stopped {
		return
	}
	c.armed = true
}

// Reset returns to Idle with zeroed counters and a disarmed timer.
func (c *Controller) Reset() {
	c.state = Idle
	c.interval = c.cfg.Interval
	c.total = 0
	c.armed = false
	c.skipped = 0
	c.failed = 0
}

// Tick handles one spawn-timer firing.
func (c *Controller) Tick() (Outcome, *pool.Entity) {
	if c.state == Stopped {
		return Halted, nil
	}
	if c.pool.Len() >= c.cfg.HardLimit {
		c.skipped++
		return AtLimit, nil
	}

	category := c.cfg.Categories[c.rng.Intn(len(c.cfg.Categories))]
	radius := c.cfg.RadiusMin + c.rng.Float64()*(c.cfg.RadiusMax-c.cfg.RadiusMin)
	body := world.NewBody(radius, c.cfg.Material, c.pose(radius), c.velocity())

	h, err := c.handles.Acquire(category, radius)
	if err != nil {
		c.failed++
		c.warn.Do(func() {
			c.log.Warn("render handle creation failed, skipping spawn",
				zap.String("category", category), zap.Error(err))
		})
		return HandleFailed, nil
	}

	e, err := c.pool.Insert(category, body, h)
	if err != nil {
		c.handles.Release(h)
		c.skipped++
		return AtLimit, nil
	}

	c.total++
	c.advance()
	return Spawned, e
}

func (c *Controller) pose(radius float64) world.Pose {
	width, _ := c.bounds.Size()
	x := width / 2
	if span := width - 2*radius; span > 0 {
		x = radius + c.rng.Float64()*span
	}
	y := -radius - c.rng.Float64()*c.cfg.Launch.SpawnBand
	return world.Pose{X: x, Y: y, Rotation: c.rng.Float64() * 2 * math.Pi}
}

func (c *Controller) velocity() world.Velocity {
	l := c.cfg.Launch
	return world.Velocity{
		VX:      (c.rng.Float64()*2 - 1) * l.MaxVX,
		VY:      c.rng.Float64() * l.MaxVY,
		Angular: (c.rng.Float64()*2 - 1) * l.MaxAngular,
	}
}

func (c *Controller) advance() {
	if c.state == Idle {
		c.state = Spawning
	}
	excess := c.total - c.cfg.SoftLimit
	if excess <= 0 {
		return
	}

	if next := c.cfg.ThrottledInterval(excess); next > c.interval {
		c.interval = next
	}
	if c.state == Spawning {
		c.state = Throttled
		c.log.Debug("spawn rate throttled", zap.Int("total", c.total), zap.Duration("interval", c.interval))
	}

	if excess > c.cfg.StopBuffer && c.pool.Len() >= c.cfg.SoftLimit {
		c.state = Stopped
		c.armed = false
		c.log.Info("spawning stopped", zap.Int("total", c.total), zap.Int("live", c.pool.Len()))
	}
}

func (c *Controller) State() State            { return c.state }
func (c *Controller) Interval() time.Duration { return c.interval }
func (c *Controller) Total() int              { return c.total }
func (c *Controller) Armed() bool             { return c.armed }
func (c *Controller) Skipped() uint64         { return c.skipped }
func (c *Controller) HandleFailures() uint64  { return c.failed }
func (c *Controller) Config() Config          { return c.cfg }
