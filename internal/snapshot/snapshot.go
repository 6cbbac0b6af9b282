// Package snapshot renders the pool to a still PNG image. Its Host keeps
// the last pose of every handle and draws them on demand.
package snapshot

import (
	"errors"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"sort"

	"github.com/fogleman/gg"

	"github.com/san-kum/stacksim/internal/pool"
	"github.com/san-kum/stacksim/internal/render"
)

var ErrEmptyCanvas = errors.New("snapshot: canvas size must be positive")

var (
	background = color.RGBA{12, 12, 28, 255}
	floorColor = color.RGBA{60, 60, 80, 255}
	labelColor = color.RGBA{20, 25, 35, 255}
)

var categoryColors = map[string]color.RGBA{
	"BTC":  {247, 147, 26, 255},
	"ETH":  {98, 126, 234, 255},
	"SOL":  {20, 241, 149, 255},
	"BNB":  {243, 186, 47, 255},
	"XRP":  {35, 41, 47, 255},
	"ADA":  {0, 51, 173, 255},
	"DOGE": {194, 166, 51, 255},
}

var fallbackColors = []color.RGBA{
	{255, 107, 107, 255},
	{78, 205, 196, 255},
	{255, 230, 109, 255},
	{162, 155, 254, 255},
	{129, 236, 236, 255},
}

// ColorFor returns the fill color for a category.
func ColorFor(category string) color.RGBA {
	if c, ok := categoryColors[category]; ok {
		return c
	}
	h := fnv.New32a()
	h.Write([]byte(category))
	return fallbackColors[h.Sum32()%uint32(len(fallbackColors))]
}

type sprite struct {
	seq      uint64
	category string
	radius   float64
	pose     render.Transform
	posed    bool
}

// Host implements render.Host on top of an off-screen gg context.
type Host struct {
	width, height int
	sprites       map[*sprite]struct{}
	seq           uint64
}

func NewHost(width, height int) (*Host, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrEmptyCanvas, width, height)
	}
	return &Host{width: width, height: height, sprites: make(map[*sprite]struct{})}, nil
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
	s, ok := handle.(*sprite)
	if !ok {
		return
	}
	s.pose = t
	s.posed = true
}

func (h *Host) Live() int { return len(h.sprites) }

// Render draws every posed sprite in creation order, so later coins sit on
// top of earlier ones.
func (h *Host) Render() image.Image {
	dc := gg.NewContext(h.width, h.height)
	dc.SetColor(background)
	dc.DrawRectangle(0, 0, float64(h.width), float64(h.height))
	dc.Fill()

	dc.SetColor(floorColor)
	dc.SetLineWidth(2)
	dc.DrawLine(0, float64(h.height)-1, float64(h.width), float64(h.height)-1)
	dc.Stroke()

	for _, s := range h.ordered() {
		if s.posed {
			drawCoin(dc, s)
		}
	}
	return dc.Image()
}

func (h *Host) ordered() []*sprite {
	out := make([]*sprite, 0, len(h.sprites))
	for s := range h.sprites {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

func drawCoin(dc *gg.Context, s *sprite) {
	t := s.pose
	r := t.Radius

	dc.SetColor(color.RGBA{0, 0, 0, 96})
	dc.DrawCircle(t.X, t.Y+3, r)
	dc.Fill()

	dc.SetColor(ColorFor(s.category))
	dc.DrawCircle(t.X, t.Y, r)
	dc.Fill()

	dc.SetColor(color.White)
	dc.SetLineWidth(2)
	dc.DrawCircle(t.X, t.Y, r)
	dc.Stroke()

	// rotation marker from the center to the rim
	dc.DrawLine(t.X, t.Y, t.X+t.Cos*r*0.8, t.Y+t.Sin*r*0.8)
	dc.Stroke()

	dc.SetColor(labelColor)
	dc.DrawStringAnchored(s.category, t.X, t.Y, 0.5, 0.5)
}

// SavePNG renders the current frame and writes it to path.
func (h *Host) SavePNG(path string) error {
	return gg.SavePNG(path, h.Render())
}
