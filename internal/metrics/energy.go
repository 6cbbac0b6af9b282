package metrics

// KineticEnergy is the mean total kinetic energy across samples.
type KineticEnergy struct {
	total   float64
	samples int
}

func NewKineticEnergy() *KineticEnergy { return &KineticEnergy{} }

func (e *KineticEnergy) Name() string { return "kinetic_energy" }

func (e *KineticEnergy) Observe(s Sample) {
	e.total += s.KineticEnergy
	e.samples++
}

func (e *KineticEnergy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.total / float64(e.samples)
}

func (e *KineticEnergy) Reset() {
	e.total = 0
	e.samples = 0
}
