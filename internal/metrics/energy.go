package metrics

import (
	"math"

	"github.com/san-kum/cableheat/internal/thermal"
)

// EnergyBalance tracks the worst relative mismatch between the stored energy
// and the initial energy plus everything the source injected.
type EnergyBalance struct {
	name          string
	joulesPerStep float64
	baseline      float64
	maxDrift      float64
	started       bool
}

func NewEnergyBalance(joulesPerStep float64) *EnergyBalance {
	return &EnergyBalance{
		name:          "energy_balance",
		joulesPerStep: joulesPerStep,
	}
}

func (e *EnergyBalance) Name() string { return e.name }

// Start records the baseline from the state before step+1 runs. Without it
// the first observation is taken as exact.
func (e *EnergyBalance) Start(step int, st *thermal.State) {
	e.baseline = st.TotalEnergy() - float64(step)*e.joulesPerStep
	e.started = true
}

func (e *EnergyBalance) Observe(step int, st *thermal.State) {
	total := st.TotalEnergy()
	expectedInjection := float64(step) * e.joulesPerStep

	if !e.started {
		e.baseline = total - expectedInjection
		e.started = true
	}

	if e.baseline != 0 {
		drift := math.Abs(total-(e.baseline+expectedInjection)) / math.Abs(e.baseline)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyBalance) Value() float64 { return e.maxDrift }

func (e *EnergyBalance) Reset() {
	e.baseline = 0
	e.maxDrift = 0
	e.started = false
}
