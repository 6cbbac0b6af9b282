package metrics

import "time"

// ThrottleLoad is the mean slowdown factor of the spawn interval relative
// to the configured base. 1 means never throttled.
type ThrottleLoad struct {
	base    time.Duration
	sum     float64
	samples int
}

func NewThrottleLoad(base time.Duration) *ThrottleLoad {
	return &ThrottleLoad{base: base}
}

func (t *ThrottleLoad) Name() string { return "throttle_load" }

func (t *ThrottleLoad) Observe(s Sample) {
	if t.base <= 0 || s.Interval <= 0 {
		return
	}
	t.sum += float64(s.Interval) / float64(t.base)
	t.samples++
}

func (t *ThrottleLoad) Value() float64 {
	if t.samples == 0 {
		return 1
	}
	return t.sum / float64(t.samples)
}

func (t *ThrottleLoad) Reset() {
	t.sum = 0
	t.samples = 0
}
