package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/stacksim/internal/spawn"
	"github.com/san-kum/stacksim/internal/world"
)

var ErrInvalidConfig = errors.New("config: invalid")

const (
	DefaultWidth            = 800.0
	DefaultHeight           = 600.0
	DefaultDensity          = 0.001
	DefaultRestitution      = 0.3
	DefaultFriction         = 0.4
	DefaultSpawnIntervalMs  = 300
	DefaultMaxObjects       = 30
	DefaultHardLimit        = 40
	DefaultRadiusMin        = 18.0
	DefaultRadiusMax        = 28.0
	DefaultDt               = 1.0 / 60
	DefaultMaxSubSteps      = 5
	DefaultDuration         = 30.0
	DefaultBackoffBaseMs    = 50
	DefaultBackoffMaxMs     = 2000
	DefaultIntegrator       = "euler"
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "console"
	DefaultSolverIterations = world.DefaultIterations

	// MinFrameStep is the smallest physics step the frame loop accepts.
	MinFrameStep = 100 * time.Microsecond
)

var DefaultCategories = []string{"BTC", "ETH", "SOL", "BNB", "XRP", "ADA", "DOGE"}

type Config struct {
	Width            float64        `yaml:"width" toml:"width"`
	Height           float64        `yaml:"height" toml:"height"`
	Density          float64        `yaml:"density" toml:"density"`
	Restitution      float64        `yaml:"restitution" toml:"restitution"`
	Friction         float64        `yaml:"friction" toml:"friction"`
	SpawnIntervalMs  int            `yaml:"spawn_interval_ms" toml:"spawn_interval_ms"`
	MaxObjects       int            `yaml:"max_objects" toml:"max_objects"`
	HardLimit        int            `yaml:"hard_limit" toml:"hard_limit"`
	Categories       []string       `yaml:"categories" toml:"categories"`
	RadiusMin        float64        `yaml:"radius_min" toml:"radius_min"`
	RadiusMax        float64        `yaml:"radius_max" toml:"radius_max"`
	Gravity          float64        `yaml:"gravity" toml:"gravity"`
	Dt               float64        `yaml:"dt" toml:"dt"`
	MaxSubSteps      int            `yaml:"max_sub_steps" toml:"max_sub_steps"`
	SolverIterations int            `yaml:"solver_iterations" toml:"solver_iterations"`
	Integrator       string         `yaml:"integrator" toml:"integrator"`
	CullMargin       float64        `yaml:"cull_margin" toml:"cull_margin"`
	Duration         float64        `yaml:"duration" toml:"duration"` // headless runs, simulated seconds
	Seed             int64          `yaml:"seed" toml:"seed"`
	Throttle         ThrottleConfig `yaml:"throttle" toml:"throttle"`
	Launch           LaunchConfig   `yaml:"launch" toml:"launch"`
	InitBackoff      BackoffConfig  `yaml:"init_backoff" toml:"init_backoff"`
	Logging          LoggingConfig  `yaml:"logging" toml:"logging"`
}

type ThrottleConfig struct {
	SlowdownBase float64 `yaml:"slowdown_base" toml:"slowdown_base"`
	Divisor      float64 `yaml:"divisor" toml:"divisor"`
	MaxSlowdown  float64 `yaml:"max_slowdown" toml:"max_slowdown"`
	StopBuffer   int     `yaml:"stop_buffer" toml:"stop_buffer"`
}

type LaunchConfig struct {
	MaxVX      float64 `yaml:"max_vx" toml:"max_vx"`
	MaxVY      float64 `yaml:"max_vy" toml:"max_vy"`
	MaxAngular float64 `yaml:"max_angular" toml:"max_angular"`
	SpawnBand  float64 `yaml:"spawn_band" toml:"spawn_band"`
}

// BackoffConfig bounds the retry schedule used while the container has no
// measured size yet.
type BackoffConfig struct {
	BaseMs int `yaml:"base_ms" toml:"base_ms"`
	MaxMs  int `yaml:"max_ms" toml:"max_ms"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"` // "json" or "console"
}

func DefaultConfig() *Config {
	return &Config{
		Width:            DefaultWidth,
		Height:           DefaultHeight,
		Density:          DefaultDensity,
		Restitution:      DefaultRestitution,
		Friction:         DefaultFriction,
		SpawnIntervalMs:  DefaultSpawnIntervalMs,
		MaxObjects:       DefaultMaxObjects,
		HardLimit:        DefaultHardLimit,
		Categories:       append([]string(nil), DefaultCategories...),
		RadiusMin:        DefaultRadiusMin,
		RadiusMax:        DefaultRadiusMax,
		Gravity:          world.DefaultGravity,
		Dt:               DefaultDt,
		MaxSubSteps:      DefaultMaxSubSteps,
		SolverIterations: DefaultSolverIterations,
		Integrator:       DefaultIntegrator,
		CullMargin:       100,
		Duration:         DefaultDuration,
		Throttle: ThrottleConfig{
			SlowdownBase: spawn.DefaultSlowdownBase,
			Divisor:      spawn.DefaultDivisor,
			MaxSlowdown:  spawn.DefaultMaxSlowdown,
			StopBuffer:   spawn.DefaultStopBuffer,
		},
		Launch: LaunchConfig{
			MaxVX:      60,
			MaxVY:      120,
			MaxAngular: 2,
			SpawnBand:  60,
		},
		InitBackoff: BackoffConfig{
			BaseMs: DefaultBackoffBaseMs,
			MaxMs:  DefaultBackoffMaxMs,
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// Load reads a YAML or TOML file over the defaults. The format follows the
// file extension; anything other than .toml is read as YAML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := DefaultConfig()
	if isTOML(path) {
		err = toml.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := Marshal(cfg, isTOML(path))
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Marshal encodes cfg as TOML or YAML.
func Marshal(cfg *Config, asTOML bool) ([]byte, error) {
	if !asTOML {
		return yaml.Marshal(cfg)
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

func (c *Config) Clone() *Config {
	out := *c
	out.Categories = append([]string(nil), c.Categories...)
	return &out
}

func (c *Config) SpawnInterval() time.Duration {
	return time.Duration(c.SpawnIntervalMs) * time.Millisecond
}

func (c *Config) FrameStep() time.Duration {
	return time.Duration(c.Dt * float64(time.Second))
}

func (c *Config) Material() world.Material {
	return world.Material{Restitution: c.Restitution, Friction: c.Friction, Density: c.Density}
}

// World builds the physics configuration.
func (c *Config) World() (world.Config, error) {
	integ, err := world.IntegratorByName(c.Integrator)
	if err != nil {
		return world.Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	wc := world.DefaultConfig()
	wc.Gravity = world.Vec{X: 0, Y: c.Gravity}
	wc.Iterations = c.SolverIterations
	wc.Integrator = integ
	return wc, nil
}

// Spawn builds the spawn controller configuration.
func (c *Config) Spawn() spawn.Config {
	return spawn.Config{
		Categories:   append([]string(nil), c.Categories...),
		RadiusMin:    c.RadiusMin,
		RadiusMax:    c.RadiusMax,
		Material:     c.Material(),
		Interval:     c.SpawnInterval(),
		SoftLimit:    c.MaxObjects,
		HardLimit:    c.HardLimit,
		SlowdownBase: c.Throttle.SlowdownBase,
		Divisor:      c.Throttle.Divisor,
		MaxSlowdown:  c.Throttle.MaxSlowdown,
		StopBuffer:   c.Throttle.StopBuffer,
		Launch: spawn.Launch{
			MaxVX:      c.Launch.MaxVX,
			MaxVY:      c.Launch.MaxVY,
			MaxAngular: c.Launch.MaxAngular,
			SpawnBand:  c.Launch.SpawnBand,
		},
	}
}

func (c *Config) Validate() error {
	switch {
	case !(c.Width > 0) || !(c.Height > 0):
		return fmt.Errorf("%w: container %gx%g", ErrInvalidConfig, c.Width, c.Height)
	case !(c.Dt > 0):
		return fmt.Errorf("%w: dt must be positive", ErrInvalidConfig)
	case c.FrameStep() < MinFrameStep:
		return fmt.Errorf("%w: dt %gs is below the %s minimum", ErrInvalidConfig, c.Dt, MinFrameStep)
	case c.MaxSubSteps < 1:
		return fmt.Errorf("%w: max_sub_steps must be at least 1", ErrInvalidConfig)
	case c.SolverIterations < 1:
		return fmt.Errorf("%w: solver_iterations must be at least 1", ErrInvalidConfig)
	case c.CullMargin < 0:
		return fmt.Errorf("%w: cull_margin must be non-negative", ErrInvalidConfig)
	case c.InitBackoff.BaseMs < 1 || c.InitBackoff.MaxMs < c.InitBackoff.BaseMs:
		return fmt.Errorf("%w: init_backoff base=%dms max=%dms", ErrInvalidConfig, c.InitBackoff.BaseMs, c.InitBackoff.MaxMs)
	}
	if _, err := c.World(); err != nil {
		return err
	}
	if err := c.Spawn().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}
