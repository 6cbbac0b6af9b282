package pool

import "go.uber.org/zap"

const DefaultCullMargin = 100.0

type CullReason int

const (
	CullOutOfBounds CullReason = iota
	CullInvalidState
)

func (r CullReason) String() string {
	switch r {
	case CullOutOfBounds:
		return "out_of_bounds"
	case CullInvalidState:
		return "invalid_state"
	default:
		return "unknown"
	}
}

type Culled struct {
	ID       ID
	Category string
	Reason   CullReason
}

// Culler removes entities that fell below the container. It never evicts
// visible entities to make room; the hard limit is enforced at spawn time.
type Culler struct {
	margin float64
	log    *zap.Logger
	buf    []Culled
}

func NewCuller(margin float64, log *zap.Logger) *Culler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Culler{margin: margin, log: log}
}

func (c *Culler) Margin() float64 { return c.margin }

// Cull removes every entity with y > containerHeight+margin, plus any whose
// physics state is no longer finite. The returned slice is reused by the
// next call.
func (c *Culler) Cull(p *Pool, containerHeight float64) []Culled {
	c.buf = c.buf[:0]
	limit := containerHeight + c.margin

	p.Each(func(e *Entity) {
		reason := CullOutOfBounds
		switch {
		case !e.Body.IsValid():
			reason = CullInvalidState
			c.log.Warn("culling entity with invalid physics state",
				zap.Stringer("id", e.ID), zap.String("category", e.Category))
		case e.Body.Pose.Y > limit:
		default:
			return
		}
		c.buf = append(c.buf, Culled{ID: e.ID, Category: e.Category, Reason: reason})
		p.Remove(e.ID)
	})
	return c.buf
}
