package runner

import (
	"context"
	"math"
	"sort"
	"sync"
)

type Ensemble struct {
	runner    *Runner
	numRuns   int
	seedStart int64
}

func NewEnsemble(r *Runner, numRuns int, seedStart int64) *Ensemble {
	return &Ensemble{runner: r, numRuns: numRuns, seedStart: seedStart}
}

// Run executes every seed in its own goroutine. Results are ordered by
// seed. The first error wins.
func (e *Ensemble) Run(ctx context.Context) ([]*Result, error) {
	results := make([]*Result, e.numRuns)
	errs := make([]error, e.numRuns)

	var wg sync.WaitGroup
	for i := 0; i < e.numRuns; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			results[idx], errs[idx] = e.runner.Run(ctx, e.seedStart+int64(idx))
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

// Spread summarizes one metric across ensemble runs.
type Spread struct {
	Mean, Std, Min, Max float64
}

// Summarize aggregates every metric present in the results.
func Summarize(results []*Result) map[string]Spread {
	values := make(map[string][]float64)
	for _, r := range results {
		for name, v := range r.Metrics {
			values[name] = append(values[name], v)
		}
	}

	out := make(map[string]Spread, len(values))
	for name, vs := range values {
		sort.Float64s(vs)
		sum := 0.0
		for _, v := range vs {
			sum += v
		}
		mean := sum / float64(len(vs))
		variance := 0.0
		for _, v := range vs {
			variance += (v - mean) * (v - mean)
		}
		out[name] = Spread{
			Mean: mean,
			Std:  math.Sqrt(variance / float64(len(vs))),
			Min:  vs[0],
			Max:  vs[len(vs)-1],
		}
	}
	return out
}
