package thermal

// Source is a conductor dissipating constant power into shell 0.
type Source struct {
	Watts float64
	Dt    float64
}

func NewSource(watts, dt float64) *Source {
	return &Source{Watts: watts, Dt: dt}
}

// Joules is the energy added per step.
func (src *Source) Joules() float64 { return src.Watts * src.Dt }

// Inject adds one step of dissipated energy to the conductor and returns it.
func (src *Source) Inject(st *State) float64 {
	j := src.Joules()
	st.AddEnergy(0, j)
	return j
}
