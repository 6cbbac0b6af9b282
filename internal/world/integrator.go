package world

import (
	"fmt"
	"sort"
)

// Integrator advances a single body's free motion under a constant
// acceleration. Contacts are resolved separately by the World.
type Integrator interface {
	Name() string
	Step(b *Body, acc Vec, dt float64)
}

// SemiImplicitEuler updates velocity first, then position with the new
// velocity. Stable for stacking contacts at small fixed steps.
type SemiImplicitEuler struct{}

func NewSemiImplicitEuler() *SemiImplicitEuler {
	return &SemiImplicitEuler{}
}

func (e *SemiImplicitEuler) Name() string { return "euler" }

func (e *SemiImplicitEuler) Step(b *Body, acc Vec, dt float64) {
	b.Velocity.VX += acc.X * dt
	b.Velocity.VY += acc.Y * dt
	b.Pose.X += b.Velocity.VX * dt
	b.Pose.Y += b.Velocity.VY * dt
	b.Pose.Rotation += b.Velocity.Angular * dt
}

// Verlet is velocity Verlet. With constant gravity the averaged
// acceleration term collapses to acc itself.
type Verlet struct{}

func NewVerlet() *Verlet {
	return &Verlet{}
}

func (v *Verlet) Name() string { return "verlet" }

func (v *Verlet) Step(b *Body, acc Vec, dt float64) {
	halfDt2 := 0.5 * dt * dt
	b.Pose.X += b.Velocity.VX*dt + acc.X*halfDt2
	b.Pose.Y += b.Velocity.VY*dt + acc.Y*halfDt2
	b.Velocity.VX += acc.X * dt
	b.Velocity.VY += acc.Y * dt
	b.Pose.Rotation += b.Velocity.Angular * dt
}

var integrators = map[string]func() Integrator{
	"euler":  func() Integrator { return NewSemiImplicitEuler() },
	"verlet": func() Integrator { return NewVerlet() },
}

// IntegratorByName returns a fresh integrator registered under name.
func IntegratorByName(name string) (Integrator, error) {
	fn, ok := integrators[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownIntegrator, name, IntegratorNames())
	}
	return fn(), nil
}

func IntegratorNames() []string {
	names := make([]string, 0, len(integrators))
	for name := range integrators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
