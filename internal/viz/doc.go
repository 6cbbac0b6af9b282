// Package viz is the terminal host for the stacking simulation.
//
// Coins are drawn on a braille [Canvas] (2x4 dots per cell) by a [Host]
// that implements render.Host. [Model] is a Bubble Tea model that drives
// the lifecycle scheduler from its update loop:
//
//   - window size messages resize the container
//   - focus resumes and blur pauses
//   - mouse clicks hit-test coins
//
// # Key Bindings
//
//	Space - Pause/Resume
//	R     - Reinitialize
//	T     - Cycle color themes
//	S     - Save the canvas as SVG
//	?     - Show help overlay
//	Q     - Quit
package viz
