package lifecycle

import (
	"time"

	"github.com/san-kum/stacksim/internal/metrics"
)

// Stats is a point-in-time view of the scheduler's counters.
type Stats struct {
	State          string        `json:"state"`
	SpawnState     string        `json:"spawn_state"`
	Live           int           `json:"live"`
	Handles        int           `json:"handles"`
	Total          int           `json:"total_spawned"`
	SoftLimit      int           `json:"soft_limit"`
	HardLimit      int           `json:"hard_limit"`
	Interval       time.Duration `json:"spawn_interval_ns"`
	Skipped        uint64        `json:"spawn_skipped"`
	HandleFailures uint64        `json:"handle_failures"`
	Culled         uint64        `json:"culled"`
	Steps          uint64        `json:"physics_steps"`
	Frames         uint64        `json:"frames"`
	Width          float64       `json:"width"`
	Height         float64       `json:"height"`
	KineticEnergy  float64       `json:"kinetic_energy"`
}

func (s *Scheduler) Stats() Stats {
	w, h := s.world.Size()
	return Stats{
		State:          s.state.String(),
		SpawnState:     s.spawner.State().String(),
		Live:           s.pool.Len(),
		Handles:        s.sync.Handles(),
		Total:          s.spawner.Total(),
		SoftLimit:      s.cfg.MaxObjects,
		HardLimit:      s.cfg.HardLimit,
		Interval:       s.spawner.Interval(),
		Skipped:        s.spawner.Skipped(),
		HandleFailures: s.spawner.HandleFailures(),
		Culled:         s.culled,
		Steps:          s.world.Steps(),
		Frames:         s.frames,
		Width:          w,
		Height:         h,
		KineticEnergy:  s.KineticEnergy(),
	}
}

// KineticEnergy sums the kinetic energy of every live entity.
func (s *Scheduler) KineticEnergy() float64 {
	total := 0.0
	for _, b := range s.pool.Bodies() {
		total += b.KineticEnergy()
	}
	return total
}

// Sample builds a metrics sample stamped with simulated time t.
func (s *Scheduler) Sample(t float64) metrics.Sample {
	return metrics.Sample{
		T:             t,
		Live:          s.pool.Len(),
		Total:         s.spawner.Total(),
		KineticEnergy: s.KineticEnergy(),
		Interval:      s.spawner.Interval(),
	}
}
