package lifecycle

import (
	"github.com/san-kum/stacksim/internal/pool"
	"github.com/san-kum/stacksim/internal/render"
)

type coin struct {
	category string
	poses    int
	last     render.Transform
}

// recordingHost is an in-memory render.Host that tracks every handle.
type recordingHost struct {
	live      map[*coin]bool
	created   int
	destroyed int
	applied   int
	explode   bool
}

func newRecordingHost() *recordingHost {
	return &recordingHost{live: make(map[*coin]bool)}
}

func (h *recordingHost) CreateHandle(category string, radius float64) (pool.Handle, error) {
	if h.explode {
		panic("renderer unavailable")
	}
	c := &coin{category: category}
	h.live[c] = true
	h.created++
	return c, nil
}

func (h *recordingHost) DestroyHandle(hd pool.Handle) {
	delete(h.live, hd.(*coin))
	h.destroyed++
}

func (h *recordingHost) ApplyPose(hd pool.Handle, t render.Transform) {
	c := hd.(*coin)
	c.poses++
	c.last = t
	h.applied++
}
