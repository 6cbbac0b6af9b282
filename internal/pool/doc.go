// Package pool owns the live entity set and the culling policy.
//
// The pool is the single source of truth for "is entity X alive". Each
// entity pairs a physics body with exactly one render handle; removal
// releases both within the same call via the pool's [Releaser].
//
// The [Culler] removes entities that have fallen below the container plus
// a margin. Visible entities are never evicted: the population ceiling is
// held by refusing inserts at the hard limit.
package pool
