package lifecycle

import "github.com/san-kum/stacksim/internal/pool"

// Events published on the scheduler's bus. They are delivered at the end of
// the Advance call that produced them.

type Spawned struct {
	ID       pool.ID
	Category string
	Radius   float64
}

type Culled struct {
	ID       pool.ID
	Category string
	Reason   pool.CullReason
}

type Interacted struct {
	ID       pool.ID
	Category string
}

type StateChanged struct {
	From, To State
}

type SpawnStopped struct {
	Total int
}
