package world

import (
	"errors"
	"math"
	"testing"
)

func TestIntegrators(t *testing.T) {
	acc := Vec{0, 10}
	dt := 0.1

	tests := []struct {
		name   string
		integ  Integrator
		wantY  float64
		wantVy float64
	}{
		{"euler", NewSemiImplicitEuler(), 1.0 * dt * 1, 1.0},
		{"verlet", NewVerlet(), 0.5 * 10 * dt * dt, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBody(1, Material{Density: 1}, Pose{}, Velocity{Angular: 2})
			tt.integ.Step(b, acc, dt)

			if math.Abs(b.Pose.Y-tt.wantY) > 1e-12 {
				t.Errorf("y = %v, want %v", b.Pose.Y, tt.wantY)
			}
			if math.Abs(b.Velocity.VY-tt.wantVy) > 1e-12 {
				t.Errorf("vy = %v, want %v", b.Velocity.VY, tt.wantVy)
			}
			if math.Abs(b.Pose.Rotation-0.2) > 1e-12 {
				t.Errorf("rotation = %v, want 0.2", b.Pose.Rotation)
			}
		})
	}
}

func TestIntegratorByName(t *testing.T) {
	for _, name := range IntegratorNames() {
		integ, err := IntegratorByName(name)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if integ.Name() != name {
			t.Errorf("expected name %s, got %s", name, integ.Name())
		}
	}

	if _, err := IntegratorByName("rk4"); !errors.Is(err, ErrUnknownIntegrator) {
		t.Errorf("expected ErrUnknownIntegrator, got %v", err)
	}
}
