// Package viz provides a terminal live view of a running cable simulation.
//
// The view is a Bubble Tea program that advances the driver a batch of steps
// per frame and shows:
//
//   - a Braille cross-section with an isotherm ring every 10 K
//   - the radial temperature profile of the innermost shells
//   - conductor temperature history, run progress and tunable parameters
//
// # Key Bindings
//
//	Space - Pause/Resume
//	R     - Restart with the current parameters
//	Tab   - Select parameter
//	Up/K  - Raise selected parameter by 5% and restart
//	Down/J - Lower selected parameter by 5% and restart
//	+/-   - Double or halve steps per frame
//	?     - Show help overlay
package viz
