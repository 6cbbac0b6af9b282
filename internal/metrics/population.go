package metrics

type PeakPopulation struct {
	peak int
}

func NewPeakPopulation() *PeakPopulation { return &PeakPopulation{} }

func (p *PeakPopulation) Name() string { return "peak_population" }

func (p *PeakPopulation) Observe(s Sample) {
	if s.Live > p.peak {
		p.peak = s.Live
	}
}

func (p *PeakPopulation) Value() float64 { return float64(p.peak) }
func (p *PeakPopulation) Reset()         { p.peak = 0 }

type MeanPopulation struct {
	sum     float64
	samples int
}

func NewMeanPopulation() *MeanPopulation { return &MeanPopulation{} }

func (m *MeanPopulation) Name() string { return "mean_population" }

func (m *MeanPopulation) Observe(s Sample) {
	m.sum += float64(s.Live)
	m.samples++
}

func (m *MeanPopulation) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *MeanPopulation) Reset() {
	m.sum = 0
	m.samples = 0
}

// SpawnRate is entities spawned per simulated second.
type SpawnRate struct {
	first, last Sample
	samples     int
}

func NewSpawnRate() *SpawnRate { return &SpawnRate{} }

func (r *SpawnRate) Name() string { return "spawn_rate" }

func (r *SpawnRate) Observe(s Sample) {
	if r.samples == 0 {
		r.first = s
	}
	r.last = s
	r.samples++
}

func (r *SpawnRate) Value() float64 {
	dt := r.last.T - r.first.T
	if r.samples < 2 || dt <= 0 {
		return 0
	}
	return float64(r.last.Total-r.first.Total) / dt
}

func (r *SpawnRate) Reset() {
	r.first, r.last = Sample{}, Sample{}
	r.samples = 0
}
