package viz

import (
	"math"
	"sort"

	"github.com/san-kum/stacksim/internal/pool"
	"github.com/san-kum/stacksim/internal/render"
)

type sprite struct {
	seq      uint64
	category string
	radius   float64
	pose     render.Transform
	posed    bool
}

// Host implements render.Host for the braille canvas. Transforms arrive
// in dot coordinates.
type Host struct {
	sprites map[*sprite]struct{}
	seq     uint64
}

func NewHost() *Host {
	return &Host{sprites: make(map[*sprite]struct{})}
}

func (h *Host) CreateHandle(category string, radius float64) (pool.Handle, error) {
	h.seq++
	s := &sprite{seq: h.seq, category: category, radius: radius}
	h.sprites[s] = struct{}{}
	return s, nil
}

func (h *Host) DestroyHandle(handle pool.Handle) {
	if s, ok := handle.(*sprite); ok {
		delete(h.sprites, s)
	}
}

func (h *Host) ApplyPose(handle pool.Handle, t render.Transform) {
	if s, ok := handle.(*sprite); ok {
		s.pose = t
		s.posed = true
	}
}

func (h *Host) Live() int { return len(h.sprites) }

// Draw renders every posed sprite as a circle with a rotation marker.
func (h *Host) Draw(c *Canvas) {
	ordered := make([]*sprite, 0, len(h.sprites))
	for s := range h.sprites {
		if s.posed {
			ordered = append(ordered, s)
		}
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].seq < ordered[j].seq })

	for _, s := range ordered {
		t := s.pose
		cx, cy := int(math.Round(t.X)), int(math.Round(t.Y))
		r := int(math.Round(t.Radius))
		c.DrawCircle(cx, cy, r)
		if r >= 2 {
			c.DrawLine(cx, cy, cx+int(math.Round(t.Cos*float64(r-1))), cy+int(math.Round(t.Sin*float64(r-1))))
		}
	}
}
