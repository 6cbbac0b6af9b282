package viz

import (
	"strings"
	"testing"

	"github.com/san-kum/stacksim/internal/pool"
	"github.com/san-kum/stacksim/internal/render"
)

func TestCanvasSetAndBounds(t *testing.T) {
	c := NewCanvas(4, 2)
	if c.DotsWide() != 8 || c.DotsHigh() != 8 {
		t.Fatalf("unexpected dot size %dx%d", c.DotsWide(), c.DotsHigh())
	}

	c.Set(3, 5)
	c.Set(-1, 0)
	c.Set(8, 0)
	c.Set(0, 8)
	if !c.IsSet(3, 5) {
		t.Error("dot (3,5) not set")
	}
	if c.IsSet(2, 5) || c.IsSet(3, 4) {
		t.Error("neighbouring dots should stay clear")
	}

	c.Clear()
	if c.IsSet(3, 5) {
		t.Error("clear left a dot behind")
	}
	if lines := strings.Split(c.String(), "\n"); len(lines) != 2 {
		t.Errorf("expected 2 rows, got %d", len(lines))
	}
}

func TestDrawCircleSymmetry(t *testing.T) {
	c := NewCanvas(20, 10)
	c.DrawCircle(20, 20, 8)

	for _, p := range [][2]int{{28, 20}, {12, 20}, {20, 28}, {20, 12}} {
		if !c.IsSet(p[0], p[1]) {
			t.Errorf("expected rim dot at %v", p)
		}
	}
	if c.IsSet(20, 20) {
		t.Error("circle outline should leave the center clear")
	}
}

func TestDrawLineEndpoints(t *testing.T) {
	c := NewCanvas(10, 5)
	c.DrawLine(1, 1, 15, 9)
	if !c.IsSet(1, 1) || !c.IsSet(15, 9) {
		t.Error("line endpoints missing")
	}
}

func TestHostDrawsOnlyPosedSprites(t *testing.T) {
	h := NewHost()
	posed, _ := h.CreateHandle("BTC", 4)
	h.CreateHandle("ETH", 4)
	h.ApplyPose(posed, render.Transform{X: 10, Y: 10, Cos: 1, Radius: 4, Scale: 1})

	c := NewCanvas(10, 5)
	h.Draw(c)
	if !c.IsSet(14, 10) || !c.IsSet(6, 10) {
		t.Error("posed sprite not drawn")
	}
	if !c.IsSet(12, 10) {
		t.Error("rotation marker not drawn")
	}

	h.DestroyHandle(posed)
	h.DestroyHandle(pool.Handle(nil))
	if h.Live() != 1 {
		t.Errorf("expected 1 live sprite, got %d", h.Live())
	}
}

func TestCanvasSVG(t *testing.T) {
	c := NewCanvas(2, 1)
	c.Set(0, 0)
	c.Set(3, 3)

	svg := c.SVG(2, "#ffd700")
	if got := strings.Count(svg, "<circle"); got != 2 {
		t.Errorf("expected 2 dots, got %d", got)
	}
	if !strings.Contains(svg, `width="8" height="8"`) {
		t.Errorf("unexpected svg size in %q", svg)
	}
	if !strings.Contains(svg, `cx="7.0" cy="7.0"`) {
		t.Error("dot (3,3) misplaced")
	}
}
