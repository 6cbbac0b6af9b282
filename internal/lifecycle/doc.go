// Package lifecycle drives the simulation from host signals.
//
// A [Scheduler] owns the world, the entity pool, the spawn controller and
// the render synchronizer. Hosts call [Scheduler.Advance] from their frame
// callback with the current time; everything else happens inside it:
//
//   - while uninitialized, the container is measured and initialization is
//     retried with capped exponential backoff until it has a size
//   - the spawn timer fires at most once per call and never builds a backlog
//   - the frame cadence runs fixed physics steps (each followed by culling)
//     and then exactly one render sync
//   - queued events are flushed to bus subscribers
//
// Pause stops the frame cadence only; entities are kept and resume starts
// from the preserved state without catching up on elapsed time. Destroy
// releases every entity, handle and boundary and is safe to call twice.
//
// A Scheduler is single-threaded. Calls must come from one goroutine.
package lifecycle
