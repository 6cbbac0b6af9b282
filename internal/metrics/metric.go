package metrics

import "time"

// Sample is the population snapshot taken once per frame.
type Sample struct {
	T             float64 // simulated seconds since start
	Live          int
	Total         int
	KineticEnergy float64
	Interval      time.Duration
}

// Metric accumulates a single scalar over a run.
type Metric interface {
	Name() string
	Observe(s Sample)
	Value() float64
	Reset()
}

// Defaults returns the metric set recorded for every run.
func Defaults(baseInterval time.Duration) []Metric {
	return []Metric{
		NewPeakPopulation(),
		NewMeanPopulation(),
		NewSpawnRate(),
		NewKineticEnergy(),
		NewSettled(DefaultSettleThreshold),
		NewThrottleLoad(baseInterval),
	}
}
