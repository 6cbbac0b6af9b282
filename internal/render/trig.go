package render

import "math"

// rotationTable holds sin/cos samples over one turn. Lookups interpolate
// linearly between neighbouring samples.
type rotationTable struct {
	sin, cos []float64
	step     float64 // samples per radian
}

// 4096 samples keep the interpolation error well under a sub-pixel offset
// for any coin radius we draw.
var defaultRotations = newRotationTable(4096)

func newRotationTable(n int) *rotationTable {
	t := &rotationTable{
		sin:  make([]float64, n+1),
		cos:  make([]float64, n+1),
		step: float64(n) / (2 * math.Pi),
	}
	for i := 0; i <= n; i++ {
		a := float64(i) / t.step
		t.sin[i], t.cos[i] = math.Sincos(a)
	}
	return t
}

func (t *rotationTable) sinCos(angle float64) (sin, cos float64) {
	if math.IsNaN(angle) || math.IsInf(angle, 0) {
		return 0, 1
	}
	a := math.Mod(angle, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	pos := a * t.step
	i := int(pos)
	if i >= len(t.sin)-1 {
		i = len(t.sin) - 2
	}
	f := pos - float64(i)
	sin = t.sin[i] + (t.sin[i+1]-t.sin[i])*f
	cos = t.cos[i] + (t.cos[i+1]-t.cos[i])*f
	return sin, cos
}
