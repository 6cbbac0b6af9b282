package world

import (
	"fmt"
	"math"
)

const (
	DefaultGravity    = 980.0
	DefaultThickness  = 50.0
	DefaultHeadroom   = 200.0
	DefaultIterations = 4
	DefaultMaxSpeed   = 2000.0
)

type Config struct {
	Gravity    Vec
	Thickness  float64 // boundary box thickness
	Headroom   float64 // how far the walls reach above the top edge
	Iterations int     // contact solver passes per step
	MaxSpeed   float64 // linear speed clamp, 0 disables
	Integrator Integrator
}

func DefaultConfig() Config {
	return Config{
		Gravity:    Vec{0, DefaultGravity},
		Thickness:  DefaultThickness,
		Headroom:   DefaultHeadroom,
		Iterations: DefaultIterations,
		MaxSpeed:   DefaultMaxSpeed,
		Integrator: NewSemiImplicitEuler(),
	}
}

// World advances circle bodies inside a floor and two walls sized to a
// container. Boundaries exist only between Init and Teardown.
type World struct {
	cfg           Config
	width, height float64
	boundaries    []Boundary
	initialized   bool
	steps         uint64
	broad         sweep
}

func New(cfg Config) *World {
	if cfg.Integrator == nil {
		cfg.Integrator = NewSemiImplicitEuler()
	}
	if cfg.Iterations < 1 {
		cfg.Iterations = 1
	}
	return &World{cfg: cfg}
}

// Init builds the boundary bodies for a width x height container.
func (w *World) Init(width, height float64) error {
	if err := validateDimensions(width, height); err != nil {
		return err
	}
	w.width, w.height = width, height
	w.boundaries = w.buildBoundaries()
	w.initialized = true
	return nil
}

// Resize repositions the boundaries for a new container size. Body poses
// are never touched; the next Step sees the new boundaries.
func (w *World) Resize(width, height float64) error {
	if !w.initialized {
		return ErrNotInitialized
	}
	if err := validateDimensions(width, height); err != nil {
		return err
	}
	w.width, w.height = width, height
	w.boundaries = w.buildBoundaries()
	return nil
}

// Teardown releases the boundaries and returns the world to the
// uninitialized state. Safe to call more than once.
func (w *World) Teardown() {
	w.boundaries = nil
	w.initialized = false
	w.width, w.height = 0, 0
	w.broad.reset()
}

func (w *World) Initialized() bool { return w.initialized }

func (w *World) Size() (width, height float64) { return w.width, w.height }

func (w *World) Gravity() Vec { return w.cfg.Gravity }

func (w *World) Steps() uint64 { return w.steps }

func (w *World) Integrator() Integrator { return w.cfg.Integrator }

// Boundaries returns a copy of the current boundary bodies.
func (w *World) Boundaries() []Boundary {
	out := make([]Boundary, len(w.boundaries))
	copy(out, w.boundaries)
	return out
}

// Step advances every body by dt seconds: integrate free motion, then
// resolve body/body and body/boundary contacts. Bodies that leave the
// container are left alone.
func (w *World) Step(bodies []*Body, dt float64) error {
	if !w.initialized {
		return ErrNotInitialized
	}
	if dt <= 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return &StepError{Step: w.steps, Bodies: len(bodies), Wrapped: fmt.Errorf("%w: dt must be positive, got %f", ErrParameterBounds, dt)}
	}
	if len(bodies) == 0 {
		return nil
	}

	for _, b := range bodies {
		w.cfg.Integrator.Step(b, w.cfg.Gravity, dt)
		w.clampSpeed(b)
	}

	for iter := 0; iter < w.cfg.Iterations; iter++ {
		for _, p := range w.broad.pairs(bodies) {
			resolveBodies(bodies[p.a], bodies[p.b])
		}
		for _, b := range bodies {
			for i := range w.boundaries {
				resolveBoundary(b, &w.boundaries[i])
			}
		}
	}

	w.steps++
	return nil
}

func (w *World) clampSpeed(b *Body) {
	if w.cfg.MaxSpeed <= 0 {
		return
	}
	v := Vec{b.Velocity.VX, b.Velocity.VY}
	if s := v.Len(); s > w.cfg.MaxSpeed {
		v = v.Scale(w.cfg.MaxSpeed / s)
		b.Velocity.VX, b.Velocity.VY = v.X, v.Y
	}
}

func (w *World) buildBoundaries() []Boundary {
	t, top := w.cfg.Thickness, -w.cfg.Headroom
	return []Boundary{
		{Kind: Floor, Min: Vec{-t, w.height}, Max: Vec{w.width + t, w.height + t}},
		{Kind: LeftWall, Min: Vec{-t, top}, Max: Vec{0, w.height + t}},
		{Kind: RightWall, Min: Vec{w.width, top}, Max: Vec{w.width + t, w.height + t}},
	}
}

func validateDimensions(width, height float64) error {
	if !(width > 0) || !(height > 0) || math.IsInf(width, 0) || math.IsInf(height, 0) {
		return fmt.Errorf("%w: %gx%g", ErrInvalidDimensions, width, height)
	}
	return nil
}
