package render

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/san-kum/stacksim/internal/pool"
	"github.com/san-kum/stacksim/internal/world"
)

var (
	ErrHostPanic = errors.New("render: host panicked")
	ErrNilHandle = errors.New("render: host returned a nil handle")
)

// Transform is the screen-space placement of one entity.
type Transform struct {
	X, Y     float64
	Rotation float64
	Sin, Cos float64
	Radius   float64
	Scale    float64
}

// Host owns the concrete rendering technology. Handles are opaque to the
// rest of the system.
type Host interface {
	CreateHandle(category string, radius float64) (pool.Handle, error)
	DestroyHandle(h pool.Handle)
	ApplyPose(h pool.Handle, t Transform)
}

// Viewport maps world units to screen units: screen = world*Scale + Offset.
type Viewport struct {
	OffsetX, OffsetY float64
	Scale            float64
}

func DefaultViewport() Viewport { return Viewport{Scale: 1} }

type pending struct {
	id pool.ID
	h  pool.Handle
	t  Transform
}

// Synchronizer pushes poses to render handles once per render tick. It
// reads physics state and never writes it.
type Synchronizer struct {
	host    Host
	view    Viewport
	rot     *rotationTable
	log     *zap.Logger
	warn    rate.Sometimes
	buf     []pending
	handles int
	frames  uint64
	skipped uint64
}

func NewSynchronizer(host Host, log *zap.Logger) *Synchronizer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Synchronizer{
		host: host,
		view: DefaultViewport(),
		rot:  defaultRotations,
		log:  log.Named("render"),
		warn: rate.Sometimes{First: 3, Interval: 5 * time.Second},
	}
}

func (s *Synchronizer) SetViewport(v Viewport) {
	if !(v.Scale > 0) {
		v.Scale = 1
	}
	s.view = v
}

func (s *Synchronizer) Viewport() Viewport { return s.view }

// Acquire asks the host for a new handle. Host panics and nil handles come
// back as errors so a failing host never takes the loop down.
func (s *Synchronizer) Acquire(category string, radius float64) (h pool.Handle, err error) {
	defer func() {
		if r := recover(); r != nil {
			h, err = nil, fmt.Errorf("%w: create %s: %v", ErrHostPanic, category, r)
		}
	}()
	h, err = s.host.CreateHandle(category, radius*s.view.Scale)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, fmt.Errorf("%w (category %s)", ErrNilHandle, category)
	}
	s.handles++
	return h, nil
}

// Release destroys a handle. It satisfies pool.Releaser.
func (s *Synchronizer) Release(h pool.Handle) {
	if h == nil {
		return
	}
	s.handles--
	defer func() {
		if r := recover(); r != nil {
			s.warn.Do(func() {
				s.log.Warn("host panicked destroying handle", zap.Any("panic", r))
			})
		}
	}()
	s.host.DestroyHandle(h)
}

// Transform computes the screen-space placement of a body.
func (s *Synchronizer) Transform(b *world.Body) Transform {
	sin, cos := s.rot.sinCos(b.Pose.Rotation)
	return Transform{
		X:        b.Pose.X*s.view.Scale + s.view.OffsetX,
		Y:        b.Pose.Y*s.view.Scale + s.view.OffsetY,
		Rotation: b.Pose.Rotation,
		Sin:      sin,
		Cos:      cos,
		Radius:   b.Radius * s.view.Scale,
		Scale:    s.view.Scale,
	}
}

// ScreenToWorld inverts the viewport mapping.
func (s *Synchronizer) ScreenToWorld(x, y float64) world.Vec {
	return world.Vec{
		X: (x - s.view.OffsetX) / s.view.Scale,
		Y: (y - s.view.OffsetY) / s.view.Scale,
	}
}

// Sync runs one render tick in two phases: every transform is computed
// first, then applied. Entities that die between the phases are skipped.
// It returns the number of handles updated.
func (s *Synchronizer) Sync(p *pool.Pool) int {
	s.buf = s.buf[:0]
	p.Each(func(e *pool.Entity) {
		s.buf = append(s.buf, pending{id: e.ID, h: e.Handle(), t: s.Transform(e.Body)})
	})

	applied := 0
	for i := range s.buf {
		if !p.Alive(s.buf[i].id) {
			s.skipped++
			continue
		}
		if s.apply(&s.buf[i]) {
			applied++
		}
	}
	s.frames++
	return applied
}

func (s *Synchronizer) apply(pe *pending) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			s.warn.Do(func() {
				s.log.Warn("host panicked applying pose",
					zap.Stringer("id", pe.id), zap.Any("panic", r))
			})
		}
	}()
	s.host.ApplyPose(pe.h, pe.t)
	return true
}

// Handles reports how many host handles are currently outstanding.
func (s *Synchronizer) Handles() int    { return s.handles }
func (s *Synchronizer) Frames() uint64  { return s.frames }
func (s *Synchronizer) Skipped() uint64 { return s.skipped }
