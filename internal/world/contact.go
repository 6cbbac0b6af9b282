package world

import (
	"math"
	"sort"
)

const (
	correctionPercent = 0.4
	correctionSlop    = 0.01
	boundaryPercent   = 0.8
	epsilon           = 1e-9
)

// resolveBodies applies a normal impulse with restitution, a Coulomb
// friction impulse, and positional correction to an overlapping pair.
func resolveBodies(a, b *Body) bool {
	d := Vec{b.Pose.X - a.Pose.X, b.Pose.Y - a.Pose.Y}
	r := a.Radius + b.Radius
	dist2 := d.LenSq()
	if dist2 >= r*r {
		return false
	}

	dist := math.Sqrt(dist2)
	n := Vec{1, 0}
	if dist > epsilon {
		n = d.Scale(1 / dist)
	}
	penetration := r - dist
	invMassSum := a.invMass + b.invMass

	ra := n.Scale(a.Radius)
	rb := n.Scale(-b.Radius)

	rv := b.pointVelocity(rb).Sub(a.pointVelocity(ra))
	if vn := rv.Dot(n); vn < 0 {
		e := math.Min(a.Material.Restitution, b.Material.Restitution)
		j := -(1 + e) * vn / invMassSum
		impulse := n.Scale(j)
		a.applyImpulse(impulse.Neg(), ra)
		b.applyImpulse(impulse, rb)

		mu := math.Sqrt(a.Material.Friction * b.Material.Friction)
		applyFriction(a, b, n, ra, rb, j, mu)
	}

	c := math.Max(penetration-correctionSlop, 0) / invMassSum * correctionPercent
	corr := n.Scale(c)
	a.translate(corr.Scale(-a.invMass))
	b.translate(corr.Scale(b.invMass))
	return true
}

func applyFriction(a, b *Body, n, ra, rb Vec, normalImpulse, mu float64) {
	rv := b.pointVelocity(rb).Sub(a.pointVelocity(ra))
	t := rv.Sub(n.Scale(rv.Dot(n)))
	tl := t.Len()
	if tl < epsilon {
		return
	}
	t = t.Scale(1 / tl)

	raT, rbT := ra.Cross(t), rb.Cross(t)
	k := a.invMass + b.invMass + raT*raT*a.invInertia + rbT*rbT*b.invInertia
	jt := -rv.Dot(t) / k
	limit := mu * math.Abs(normalImpulse)
	jt = math.Max(-limit, math.Min(jt, limit))

	f := t.Scale(jt)
	a.applyImpulse(f.Neg(), ra)
	b.applyImpulse(f, rb)
}

// resolveBoundary pushes a body out of a static box. The boundary has
// infinite mass; the body's own restitution and friction apply.
func resolveBoundary(b *Body, box *Boundary) bool {
	p := b.Position()
	closest := Vec{
		X: math.Max(box.Min.X, math.Min(p.X, box.Max.X)),
		Y: math.Max(box.Min.Y, math.Min(p.Y, box.Max.Y)),
	}

	var n Vec
	var penetration float64

	d := p.Sub(closest)
	dist2 := d.LenSq()
	switch {
	case dist2 > epsilon:
		if dist2 >= b.Radius*b.Radius {
			return false
		}
		dist := math.Sqrt(dist2)
		n = d.Scale(1 / dist)
		penetration = b.Radius - dist
	default:
		// center is inside the box: leave through the nearest face
		n, penetration = insideNormal(p, box)
		penetration += b.Radius
	}

	r := n.Scale(-b.Radius)
	v := b.pointVelocity(r)
	if vn := v.Dot(n); vn < 0 {
		j := -(1 + b.Material.Restitution) * vn / b.invMass
		b.applyImpulse(n.Scale(j), r)

		v = b.pointVelocity(r)
		t := v.Sub(n.Scale(v.Dot(n)))
		if tl := t.Len(); tl > epsilon {
			t = t.Scale(1 / tl)
			rt := r.Cross(t)
			k := b.invMass + rt*rt*b.invInertia
			jt := -v.Dot(t) / k
			limit := b.Material.Friction * math.Abs(j)
			jt = math.Max(-limit, math.Min(jt, limit))
			b.applyImpulse(t.Scale(jt), r)
		}
	}

	b.translate(n.Scale(math.Max(penetration-correctionSlop, 0) * boundaryPercent))
	return true
}

func insideNormal(p Vec, box *Boundary) (Vec, float64) {
	left := p.X - box.Min.X
	right := box.Max.X - p.X
	top := p.Y - box.Min.Y
	bottom := box.Max.Y - p.Y

	n, depth := Vec{-1, 0}, left
	if right < depth {
		n, depth = Vec{1, 0}, right
	}
	if top < depth {
		n, depth = Vec{0, -1}, top
	}
	if bottom < depth {
		n, depth = Vec{0, 1}, bottom
	}
	return n, depth
}

type pair struct{ a, b int }

// sweep is a sort-and-sweep broad phase along X. Scratch slices are
// reused between steps.
type sweep struct {
	order []int
	out   []pair
}

func (s *sweep) reset() {
	s.order = s.order[:0]
	s.out = s.out[:0]
}

func (s *sweep) pairs(bodies []*Body) []pair {
	s.order = s.order[:0]
	s.out = s.out[:0]
	for i := range bodies {
		s.order = append(s.order, i)
	}
	sort.Slice(s.order, func(i, j int) bool {
		bi, bj := bodies[s.order[i]], bodies[s.order[j]]
		return bi.Pose.X-bi.Radius < bj.Pose.X-bj.Radius
	})

	for i, ai := range s.order {
		a := bodies[ai]
		maxX := a.Pose.X + a.Radius
		for _, bi := range s.order[i+1:] {
			b := bodies[bi]
			if b.Pose.X-b.Radius > maxX {
				break
			}
			if math.Abs(a.Pose.Y-b.Pose.Y) > a.Radius+b.Radius {
				continue
			}
			s.out = append(s.out, pair{ai, bi})
		}
	}
	return s.out
}
