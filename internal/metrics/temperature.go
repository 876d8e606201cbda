package metrics

import (
	"math"

	"github.com/san-kum/cableheat/internal/thermal"
)

// PeakConductor is the highest conductor temperature seen, in Kelvin.
type PeakConductor struct {
	name string
	peak float64
}

func NewPeakConductor() *PeakConductor {
	return &PeakConductor{name: "peak_conductor_temp", peak: math.Inf(-1)}
}

func (p *PeakConductor) Name() string { return p.name }

func (p *PeakConductor) Observe(_ int, st *thermal.State) {
	p.peak = math.Max(p.peak, st.Temperature(0))
}

func (p *PeakConductor) Value() float64 {
	if math.IsInf(p.peak, -1) {
		return 0
	}
	return p.peak
}

func (p *PeakConductor) Reset() { p.peak = math.Inf(-1) }

// ThermalFront is the radius, in shells (cm), of the outermost shell warmer
// than ambient by more than margin at the latest observation.
type ThermalFront struct {
	name    string
	ambient float64
	margin  float64
	radius  int
}

func NewThermalFront(ambient, margin float64) *ThermalFront {
	return &ThermalFront{name: "thermal_front", ambient: ambient, margin: margin}
}

func (f *ThermalFront) Name() string { return f.name }

func (f *ThermalFront) Observe(_ int, st *thermal.State) {
	f.radius = 0
	for s := st.Len() - 1; s >= 0; s-- {
		if st.Temperature(s)-f.ambient > f.margin {
			f.radius = s
			return
		}
	}
}

func (f *ThermalFront) Value() float64 { return float64(f.radius) }

func (f *ThermalFront) Reset() { f.radius = 0 }
