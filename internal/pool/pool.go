package pool

import (
	"errors"
	"fmt"

	"github.com/san-kum/stacksim/internal/world"
)

var (
	// ErrPoolFull indicates an insert at the hard population limit.
	ErrPoolFull = errors.New("pool: hard limit reached")

	// ErrNilHandle indicates an insert without a render handle.
	ErrNilHandle = errors.New("pool: entity requires a render handle")

	// ErrNilBody indicates an insert without a physics body.
	ErrNilBody = errors.New("pool: entity requires a body")
)

// ID encodes a 32-bit index in the lower bits and a 32-bit generation in
// the upper bits. The generation increments on removal so stale ids never
// match a newer entity in the same slot.
type ID uint64

func newID(index, generation uint32) ID {
	return ID(uint64(generation)<<32 | uint64(index))
}

func (id ID) Index() uint32      { return uint32(id) }
func (id ID) Generation() uint32 { return uint32(id >> 32) }

func (id ID) String() string {
	return fmt.Sprintf("e%d.%d", id.Index(), id.Generation())
}

// Handle is an opaque reference to an entity's visual representation.
type Handle any

// Releaser destroys render handles on entity removal.
type Releaser interface {
	Release(h Handle)
}

type Entity struct {
	ID       ID
	Category string
	Body     *world.Body
	handle   Handle
}

func (e *Entity) Handle() Handle { return e.handle }

// Pool is the set of live entities. Every entity carries exactly one
// handle from insertion until removal; removal releases both together.
type Pool struct {
	hardLimit   int
	releaser    Releaser
	generations []uint32
	free        []uint32
	live        map[ID]*Entity
	order       []*Entity
	removed     uint64
}

func New(hardLimit int, releaser Releaser) *Pool {
	return &Pool{
		hardLimit:   hardLimit,
		releaser:    releaser,
		generations: make([]uint32, 0, hardLimit),
		free:        make([]uint32, 0, hardLimit),
		live:        make(map[ID]*Entity, hardLimit),
		order:       make([]*Entity, 0, hardLimit),
	}
}

// Insert adds an entity. It never grows the pool past the hard limit.
func (p *Pool) Insert(category string, body *world.Body, h Handle) (*Entity, error) {
	if body == nil {
		return nil, ErrNilBody
	}
	if h == nil {
		return nil, ErrNilHandle
	}
	if len(p.order) >= p.hardLimit {
		return nil, fmt.Errorf("%w (%d)", ErrPoolFull, p.hardLimit)
	}

	e := &Entity{
		ID:       p.allocate(),
		Category: category,
		Body:     body,
		handle:   h,
	}
	p.live[e.ID] = e
	p.order = append(p.order, e)
	return e, nil
}

func (p *Pool) allocate() ID {
	if n := len(p.free); n > 0 {
		idx := p.free[n-1]
		p.free = p.free[:n-1]
		return newID(idx, p.generations[idx])
	}
	idx := uint32(len(p.generations))
	p.generations = append(p.generations, 0)
	return newID(idx, 0)
}

// Remove drops an entity and releases its handle in the same call.
// Unknown or stale ids are ignored.
func (p *Pool) Remove(id ID) bool {
	e, ok := p.live[id]
	if !ok {
		return false
	}
	delete(p.live, id)
	for i, o := range p.order {
		if o == e {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}

	idx := id.Index()
	p.generations[idx]++
	p.free = append(p.free, idx)
	p.removed++

	h := e.handle
	e.handle = nil
	e.Body = nil
	if p.releaser != nil {
		p.releaser.Release(h)
	}
	return true
}

// Clear removes every entity, oldest first, and returns how many were removed.
func (p *Pool) Clear() int {
	n := 0
	for len(p.order) > 0 {
		if p.Remove(p.order[0].ID) {
			n++
		}
	}
	return n
}

func (p *Pool) Get(id ID) (*Entity, bool) {
	e, ok := p.live[id]
	return e, ok
}

func (p *Pool) Alive(id ID) bool {
	_, ok := p.live[id]
	return ok
}

func (p *Pool) Len() int        { return len(p.order) }
func (p *Pool) HardLimit() int  { return p.hardLimit }
func (p *Pool) Removed() uint64 { return p.removed }

// Each visits live entities in insertion order. The callback may remove
// entities; removed ones are skipped.
func (p *Pool) Each(fn func(e *Entity)) {
	snapshot := make([]*Entity, len(p.order))
	copy(snapshot, p.order)
	for _, e := range snapshot {
		if _, ok := p.live[e.ID]; !ok {
			continue
		}
		fn(e)
	}
}

// Bodies returns the live bodies in insertion order.
func (p *Pool) Bodies() []*world.Body {
	out := make([]*world.Body, len(p.order))
	for i, e := range p.order {
		out[i] = e.Body
	}
	return out
}
