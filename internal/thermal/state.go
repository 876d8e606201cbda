package thermal

import "math"

// State holds the mutable energy of every shell and the temperature derived
// from it. Buffers are allocated once and updated in place.
type State struct {
	geom     *Geometry
	capacity []float64
	energy   []float64
	temp     []float64
}

// NewState places every shell at the given temperature.
func NewState(g *Geometry, ambient float64) (*State, error) {
	if !(ambient > 0) || math.IsInf(ambient, 0) {
		return nil, &ConfigError{Field: "ambient temperature", Value: ambient}
	}

	n := g.Len()
	st := &State{
		geom:     g,
		capacity: make([]float64, n),
		energy:   make([]float64, n),
		temp:     make([]float64, n),
	}

	for s := 0; s < n; s++ {
		m, c := g.Mass(s), g.SpecificHeat(s)
		if !(m > 0) || math.IsInf(m, 0) {
			return nil, &InvariantError{Shell: s, Message: "mass must be positive"}
		}
		if !(c > 0) || math.IsInf(c, 0) {
			return nil, &InvariantError{Shell: s, Message: "specific heat must be positive"}
		}
		st.capacity[s] = m * c
		st.energy[s] = m * c * ambient
		st.temp[s] = st.energy[s] / st.capacity[s]
	}

	return st, nil
}

func (st *State) Len() int { return len(st.energy) }

func (st *State) Geometry() *Geometry { return st.geom }

// Temperature returns shell s temperature in Kelvin.
func (st *State) Temperature(s int) float64 { return st.temp[s] }

// Energy returns shell s energy in Joules.
func (st *State) Energy(s int) float64 { return st.energy[s] }

// AddEnergy applies a signed energy delta to shell s and recomputes its
// temperature.
func (st *State) AddEnergy(s int, joules float64) {
	st.energy[s] += joules
	st.temp[s] = st.energy[s] / st.capacity[s]
}

func (st *State) TotalEnergy() float64 {
	sum := 0.0
	for _, e := range st.energy {
		sum += e
	}
	return sum
}

// Temperatures copies all shell temperatures into dst, growing it if needed.
func (st *State) Temperatures(dst []float64) []float64 {
	if cap(dst) < len(st.temp) {
		dst = make([]float64, len(st.temp))
	}
	dst = dst[:len(st.temp)]
	copy(dst, st.temp)
	return dst
}

// Validate reports the first shell holding a non-finite energy or
// temperature.
func (st *State) Validate() error {
	for s := range st.energy {
		if math.IsNaN(st.energy[s]) || math.IsInf(st.energy[s], 0) {
			return &InvariantError{Shell: s, Message: "energy is not finite"}
		}
		if math.IsNaN(st.temp[s]) || math.IsInf(st.temp[s], 0) {
			return &InvariantError{Shell: s, Message: "temperature is not finite"}
		}
	}
	return nil
}
