// Package runner drives schedulers headlessly on a simulated clock.
//
// A run advances one frame per fixed step for the configured duration,
// records a population trace and evaluates the run metrics. An [Ensemble]
// repeats the same configuration over consecutive seeds in parallel; each
// run owns its scheduler and host, nothing is shared between goroutines.
package runner
