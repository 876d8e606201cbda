package thermal

import "fmt"

// GapPolicy decides what a sweep does with a pair whose temperature gap is
// below the threshold.
type GapPolicy int

const (
	// StopAtSmallGap ends the whole sweep at the first small gap. Shells
	// beyond it receive nothing this step.
	StopAtSmallGap GapPolicy = iota
	// SkipSmallGap leaves the pair alone and continues outward.
	SkipSmallGap
)

func (p GapPolicy) String() string {
	switch p {
	case StopAtSmallGap:
		return "stop"
	case SkipSmallGap:
		return "skip"
	default:
		return fmt.Sprintf("GapPolicy(%d)", int(p))
	}
}

// ParseGapPolicy accepts "stop" (or empty) and "skip".
func ParseGapPolicy(name string) (GapPolicy, error) {
	switch name {
	case "", "stop":
		return StopAtSmallGap, nil
	case "skip":
		return SkipSmallGap, nil
	default:
		return 0, &ConfigError{Field: "gap policy", Reason: `must be "stop" or "skip"`, Input: name}
	}
}

// Stepper exchanges heat between radially adjacent shells.
type Stepper struct {
	conductivity float64
	dt           float64
	minDelta     float64
	policy       GapPolicy
}

func NewStepper(conductivity, dt, minDelta float64, policy GapPolicy) *Stepper {
	return &Stepper{
		conductivity: conductivity,
		dt:           dt,
		minDelta:     minDelta,
		policy:       policy,
	}
}

func (s *Stepper) Policy() GapPolicy { return s.policy }

// Sweep runs one forward Euler exchange over pairs (i, i+1) from the
// conductor outward. Each pair sees the temperatures written by the previous
// pair. It returns the number of pairs that exchanged heat.
func (s *Stepper) Sweep(st *State) int {
	exchanged := 0
	for i := 0; i < st.Len()-1; i++ {
		diff := st.temp[i] - st.temp[i+1]
		if diff < s.minDelta {
			if s.policy == StopAtSmallGap {
				break
			}
			continue
		}

		loss := s.conductivity * diff * st.geom.area[i] * s.dt
		st.AddEnergy(i, -loss)
		st.AddEnergy(i+1, loss)
		exchanged++
	}
	return exchanged
}
