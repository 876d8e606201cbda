package metrics

import "github.com/san-kum/cableheat/internal/sim"

// FrontMargin is the warming, in Kelvin, that counts a shell as reached by
// the thermal front.
const FrontMargin = 1.0

// Default returns a fresh set of the standard run metrics.
func Default(cfg sim.Config, ambient float64) []sim.Metric {
	return []sim.Metric{
		NewEnergyBalance(cfg.HeatDissipation * cfg.TimeStep),
		NewPeakConductor(),
		NewThermalFront(ambient, FrontMargin),
	}
}
