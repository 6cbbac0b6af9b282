// Package world provides the rigid-body simulation world for falling,
// stacking circular bodies.
//
// The world owns global physics state only:
//
//   - gravity, a constant acceleration vector (+Y points down)
//   - the static boundary bodies (floor, left wall, right wall)
//
// Bodies themselves are owned by the caller and passed to [World.Step]
// every fixed timestep. The world never adds or removes bodies.
//
// # Example
//
//	w := world.New(world.DefaultConfig())
//	if err := w.Init(800, 600); err != nil {
//	    return err
//	}
//	err := w.Step(bodies, 1.0/60)
//
// # Thread Safety
//
// World instances are NOT thread-safe. All calls must come from the
// goroutine that drives the simulation.
package world
