package telemetry

import (
	"sync/atomic"
	"time"

	"github.com/san-kum/stacksim/internal/lifecycle"
)

// Board holds the most recent scheduler stats for readers on other
// goroutines. The scheduler side publishes, HTTP handlers read.
type Board struct {
	latest atomic.Pointer[snapshot]
}

type snapshot struct {
	Stats     lifecycle.Stats `json:"stats"`
	Published time.Time       `json:"published"`
}

func NewBoard() *Board { return &Board{} }

func (b *Board) Publish(s lifecycle.Stats) {
	b.latest.Store(&snapshot{Stats: s, Published: time.Now()})
}

// Latest returns the last published stats, or false if nothing was
// published yet.
func (b *Board) Latest() (lifecycle.Stats, time.Time, bool) {
	snap := b.latest.Load()
	if snap == nil {
		return lifecycle.Stats{}, time.Time{}, false
	}
	return snap.Stats, snap.Published, true
}
