// Package thermal provides the radial heat diffusion core.
//
// A buried conductor is modelled as shell 0 of N concentric shells, each
// one centimetre thick. The package defines:
//
//   - [Geometry]: per-shell area, mass and specific heat, computed once
//   - [State]: per-shell energy and the temperature derived from it
//   - [Stepper]: one explicit (forward Euler) exchange sweep between shells
//   - [Source]: constant power injected into the conductor
//
// # Example
//
//	geom, _ := thermal.NewGeometry(params)
//	st, _ := thermal.NewState(geom, params.Ambient)
//	stepper := thermal.NewStepper(params.Conductivity, 900, 0.1, thermal.StopAtSmallGap)
//	source := thermal.NewSource(1, 900)
//	stepper.Sweep(st)
//	source.Inject(st)
//
// # Sweep order
//
// The sweep runs from the conductor outward and every pair reads the
// temperatures already updated by the pair before it (Gauss-Seidel). Results
// depend on this order, so a single sweep must never be split across
// goroutines. Independent runs can be parallelised freely.
package thermal
