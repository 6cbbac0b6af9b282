// Package render keeps host-side visuals in step with the simulation.
//
// A [Host] supplies opaque handles, one per live entity. The [Synchronizer]
// creates them on spawn, destroys them on removal and pushes a [Transform]
// to every handle once per render tick. Rendering technology is up to the
// host: the repository ships a terminal canvas and a PNG writer.
package render
