// Package spawn creates new entities on a timer and slows itself down as
// the population grows past the soft limit.
//
// The controller moves Idle → Spawning → Throttled → Stopped. Once stopped
// it stays stopped until Reset, even if culling frees capacity.
package spawn
