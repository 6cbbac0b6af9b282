package metrics

// DefaultSettleThreshold is the per-entity kinetic energy below which a
// pile counts as at rest.
const DefaultSettleThreshold = 50.0

// Settled is the fraction of populated samples in which the pile was at
// rest. Empty frames are not counted.
type Settled struct {
	threshold float64
	resting   int
	samples   int
}

func NewSettled(threshold float64) *Settled {
	return &Settled{threshold: threshold}
}

func (s *Settled) Name() string { return "settled" }

func (s *Settled) Observe(x Sample) {
	if x.Live == 0 {
		return
	}
	s.samples++
	if x.KineticEnergy/float64(x.Live) < s.threshold {
		s.resting++
	}
}

func (s *Settled) Value() float64 {
	if s.samples == 0 {
		return 0
	}
	return float64(s.resting) / float64(s.samples)
}

func (s *Settled) Reset() {
	s.resting = 0
	s.samples = 0
}
