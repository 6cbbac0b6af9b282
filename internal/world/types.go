package world

import "math"

// minDensity keeps every dynamic body at a finite, non-zero mass.
const minDensity = 1e-9

type Vec struct {
	X, Y float64
}

func (v Vec) Add(o Vec) Vec       { return Vec{v.X + o.X, v.Y + o.Y} }
func (v Vec) Sub(o Vec) Vec       { return Vec{v.X - o.X, v.Y - o.Y} }
func (v Vec) Scale(f float64) Vec { return Vec{v.X * f, v.Y * f} }
func (v Vec) Dot(o Vec) float64   { return v.X*o.X + v.Y*o.Y }
func (v Vec) Cross(o Vec) float64 { return v.X*o.Y - v.Y*o.X }
func (v Vec) Len() float64        { return math.Hypot(v.X, v.Y) }
func (v Vec) LenSq() float64      { return v.X*v.X + v.Y*v.Y }
func (v Vec) Neg() Vec            { return Vec{-v.X, -v.Y} }
func (v Vec) Equal(o Vec, eps float64) bool {
	return math.Abs(v.X-o.X) <= eps && math.Abs(v.Y-o.Y) <= eps
}

// Pose is a body's position and rotation in world units (radians).
type Pose struct {
	X, Y     float64
	Rotation float64
}

type Velocity struct {
	VX, VY  float64
	Angular float64
}

// Material holds the fixed physical properties of a body.
type Material struct {
	Restitution float64
	Friction    float64
	Density     float64
}

// Body is a dynamic circle. Pose and Velocity are written only by the
// World during Step; callers treat them as read-only afterwards.
type Body struct {
	Radius   float64
	Material Material
	Pose     Pose
	Velocity Velocity

	mass       float64
	invMass    float64
	invInertia float64
}

// NewBody creates a dynamic circle with mass derived from density and area.
func NewBody(radius float64, mat Material, pose Pose, vel Velocity) *Body {
	density := math.Max(mat.Density, minDensity)
	mass := density * math.Pi * radius * radius
	inertia := 0.5 * mass * radius * radius
	return &Body{
		Radius:     radius,
		Material:   mat,
		Pose:       pose,
		Velocity:   vel,
		mass:       mass,
		invMass:    1 / mass,
		invInertia: 1 / inertia,
	}
}

func (b *Body) Mass() float64 { return b.mass }

func (b *Body) Position() Vec { return Vec{b.Pose.X, b.Pose.Y} }

// KineticEnergy returns translational plus rotational kinetic energy.
func (b *Body) KineticEnergy() float64 {
	v2 := b.Velocity.VX*b.Velocity.VX + b.Velocity.VY*b.Velocity.VY
	w := b.Velocity.Angular
	inertia := 0.0
	if b.invInertia > 0 {
		inertia = 1 / b.invInertia
	}
	return 0.5*b.mass*v2 + 0.5*inertia*w*w
}

// IsValid reports whether pose and velocity are all finite.
func (b *Body) IsValid() bool {
	for _, v := range [...]float64{b.Pose.X, b.Pose.Y, b.Pose.Rotation, b.Velocity.VX, b.Velocity.VY, b.Velocity.Angular} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// pointVelocity is the velocity of a point at offset r from the center.
func (b *Body) pointVelocity(r Vec) Vec {
	w := b.Velocity.Angular
	return Vec{b.Velocity.VX - w*r.Y, b.Velocity.VY + w*r.X}
}

func (b *Body) applyImpulse(j, r Vec) {
	b.Velocity.VX += j.X * b.invMass
	b.Velocity.VY += j.Y * b.invMass
	b.Velocity.Angular += r.Cross(j) * b.invInertia
}

func (b *Body) translate(d Vec) {
	b.Pose.X += d.X
	b.Pose.Y += d.Y
}

type BoundaryKind int

const (
	Floor BoundaryKind = iota
	LeftWall
	RightWall
)

func (k BoundaryKind) String() string {
	switch k {
	case Floor:
		return "floor"
	case LeftWall:
		return "left_wall"
	case RightWall:
		return "right_wall"
	default:
		return "unknown"
	}
}

// Boundary is a static, immovable axis-aligned box.
type Boundary struct {
	Kind     BoundaryKind
	Min, Max Vec
}

func (b Boundary) Center() Vec {
	return Vec{(b.Min.X + b.Max.X) / 2, (b.Min.Y + b.Max.Y) / 2}
}

func (b Boundary) Size() (w, h float64) {
	return b.Max.X - b.Min.X, b.Max.Y - b.Min.Y
}
