package pool

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/stacksim/internal/world"
)

type fakeHandle struct{ n int }

type countingReleaser struct {
	released map[*fakeHandle]int
}

func newCountingReleaser() *countingReleaser {
	return &countingReleaser{released: make(map[*fakeHandle]int)}
}

func (r *countingReleaser) Release(h Handle) {
	r.released[h.(*fakeHandle)]++
}

func body(x, y float64) *world.Body {
	return world.NewBody(10, world.Material{Restitution: 0.3, Friction: 0.4, Density: 0.001}, world.Pose{X: x, Y: y}, world.Velocity{})
}

func TestInsertRemovePairing(t *testing.T) {
	rel := newCountingReleaser()
	p := New(10, rel)

	created := 0
	var ids []ID
	for i := 0; i < 6; i++ {
		created++
		e, err := p.Insert("BTC", body(0, 0), &fakeHandle{n: i})
		if err != nil {
			t.Fatalf("insert failed: %v", err)
		}
		ids = append(ids, e.ID)
	}

	for _, id := range ids[:4] {
		if !p.Remove(id) {
			t.Fatalf("remove %s failed", id)
		}
	}

	if p.Len() != 2 {
		t.Errorf("expected 2 live entities, got %d", p.Len())
	}
	if got := created - len(rel.released); got != p.Len() {
		t.Errorf("handle count %d != live count %d", got, p.Len())
	}
	for h, n := range rel.released {
		if n != 1 {
			t.Errorf("handle %d released %d times", h.n, n)
		}
	}
}

func TestRemoveStaleID(t *testing.T) {
	rel := newCountingReleaser()
	p := New(4, rel)

	e, _ := p.Insert("ETH", body(0, 0), &fakeHandle{})
	old := e.ID
	if !p.Remove(old) {
		t.Fatal("first remove failed")
	}
	if p.Remove(old) {
		t.Error("second remove of same id should be ignored")
	}
	if len(rel.released) != 1 {
		t.Errorf("expected exactly one release, got %d", len(rel.released))
	}

	e2, _ := p.Insert("SOL", body(0, 0), &fakeHandle{})
	if e2.ID.Index() != old.Index() {
		t.Fatalf("expected slot reuse, got index %d want %d", e2.ID.Index(), old.Index())
	}
	if e2.ID == old {
		t.Error("reused slot must get a new generation")
	}
	if p.Alive(old) {
		t.Error("stale id reported alive")
	}
	if !p.Alive(e2.ID) {
		t.Error("new id not alive")
	}
}

func TestInsertHardLimit(t *testing.T) {
	p := New(3, newCountingReleaser())
	for i := 0; i < 3; i++ {
		if _, err := p.Insert("BTC", body(0, 0), &fakeHandle{}); err != nil {
			t.Fatalf("insert %d failed: %v", i, err)
		}
	}

	_, err := p.Insert("BTC", body(0, 0), &fakeHandle{})
	if !errors.Is(err, ErrPoolFull) {
		t.Fatalf("expected ErrPoolFull, got %v", err)
	}
	if p.Len() != 3 {
		t.Errorf("expected 3 entities, got %d", p.Len())
	}
}

func TestInsertRequiresHandleAndBody(t *testing.T) {
	p := New(3, newCountingReleaser())

	if _, err := p.Insert("BTC", body(0, 0), nil); !errors.Is(err, ErrNilHandle) {
		t.Errorf("expected ErrNilHandle, got %v", err)
	}
	if _, err := p.Insert("BTC", nil, &fakeHandle{}); !errors.Is(err, ErrNilBody) {
		t.Errorf("expected ErrNilBody, got %v", err)
	}
	if p.Len() != 0 {
		t.Errorf("expected empty pool, got %d", p.Len())
	}
}

func TestEachToleratesRemoval(t *testing.T) {
	p := New(10, newCountingReleaser())
	var ids []ID
	for i := 0; i < 5; i++ {
		e, _ := p.Insert("BTC", body(float64(i), 0), &fakeHandle{})
		ids = append(ids, e.ID)
	}

	visited := 0
	p.Each(func(e *Entity) {
		visited++
		if e.ID == ids[0] {
			// removing a later entity mid-iteration must skip it
			p.Remove(ids[3])
		}
	})

	if visited != 4 {
		t.Errorf("expected 4 visits, got %d", visited)
	}
	if p.Len() != 4 {
		t.Errorf("expected 4 live, got %d", p.Len())
	}
}

func TestClearReleasesEverything(t *testing.T) {
	rel := newCountingReleaser()
	p := New(10, rel)
	for i := 0; i < 7; i++ {
		p.Insert("BTC", body(0, 0), &fakeHandle{n: i})
	}

	if n := p.Clear(); n != 7 {
		t.Errorf("expected 7 cleared, got %d", n)
	}
	if p.Len() != 0 || len(p.Bodies()) != 0 {
		t.Errorf("pool not empty after clear")
	}
	if len(rel.released) != 7 {
		t.Errorf("expected 7 releases, got %d", len(rel.released))
	}
	if p.Removed() != 7 {
		t.Errorf("expected removed counter 7, got %d", p.Removed())
	}
}

func TestBodiesInsertionOrder(t *testing.T) {
	p := New(10, nil)
	for i := 0; i < 3; i++ {
		p.Insert("BTC", body(float64(i), 0), &fakeHandle{})
	}
	for i, b := range p.Bodies() {
		if b.Pose.X != float64(i) {
			t.Errorf("body %d out of order: x=%f", i, b.Pose.X)
		}
	}
}

func TestCullOutOfBounds(t *testing.T) {
	rel := newCountingReleaser()
	p := New(10, rel)
	c := NewCuller(100, nil)

	keep, _ := p.Insert("BTC", body(0, 599), &fakeHandle{})
	drop, _ := p.Insert("ETH", body(0, 600.5), &fakeHandle{})

	culled := c.Cull(p, 500)
	if len(culled) != 1 || culled[0].ID != drop.ID {
		t.Fatalf("expected only %s culled, got %+v", drop.ID, culled)
	}
	if culled[0].Category != "ETH" || culled[0].Reason != CullOutOfBounds {
		t.Errorf("unexpected cull record %+v", culled[0])
	}
	if !p.Alive(keep.ID) || p.Alive(drop.ID) {
		t.Error("wrong entity removed")
	}
	if len(rel.released) != 1 {
		t.Errorf("expected handle released with body, got %d releases", len(rel.released))
	}
}

func TestCullInvalidState(t *testing.T) {
	p := New(10, newCountingReleaser())
	c := NewCuller(100, nil)

	b := body(0, 10)
	b.Pose.Y = math.NaN()
	e, _ := p.Insert("BTC", b, &fakeHandle{})

	culled := c.Cull(p, 500)
	if len(culled) != 1 || culled[0].Reason != CullInvalidState {
		t.Fatalf("expected invalid-state cull, got %+v", culled)
	}
	if p.Alive(e.ID) {
		t.Error("invalid entity still alive")
	}
}

func TestCullExactlyOnFirstStepPastLimit(t *testing.T) {
	const (
		containerHeight = 500.0
		margin          = 100.0
		dt              = 1.0 / 60
	)

	w := world.New(world.DefaultConfig())
	if err := w.Init(800, containerHeight); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	p := New(10, newCountingReleaser())
	c := NewCuller(margin, nil)

	// outside the walls, so nothing catches it
	b := world.NewBody(10, world.Material{Density: 0.001}, world.Pose{X: -500, Y: -50}, world.Velocity{VY: 200})
	e, err := p.Insert("BTC", b, &fakeHandle{})
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	for step := 1; step <= 1000; step++ {
		if err := w.Step(p.Bodies(), dt); err != nil {
			t.Fatalf("step failed: %v", err)
		}
		past := b.Pose.Y > containerHeight+margin
		c.Cull(p, containerHeight)

		if past {
			if p.Alive(e.ID) {
				t.Fatalf("step %d: entity at y=%f still alive", step, b.Pose.Y)
			}
			return
		}
		if !p.Alive(e.ID) {
			t.Fatalf("step %d: entity removed early at y=%f", step, b.Pose.Y)
		}
	}
	t.Fatal("entity never fell past the cull line")
}

func TestIDString(t *testing.T) {
	id := newID(7, 3)
	if id.String() != "e7.3" {
		t.Errorf("unexpected id string %q", id.String())
	}
	if id.Index() != 7 || id.Generation() != 3 {
		t.Errorf("bad id decode: %d/%d", id.Index(), id.Generation())
	}
}
