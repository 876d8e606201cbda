package sim

import (
	"fmt"
	"math"

	"github.com/san-kum/cableheat/internal/thermal"
)

const secondsPerDay = 86400.0

// Snapshot is a point-in-time copy of every shell temperature. It is never
// mutated after the driver hands it out.
type Snapshot struct {
	Step         int       `json:"step"`
	Temperatures []float64 `json:"temperatures"`
	TimeStep     float64   `json:"time_step"`
	Ambient      float64   `json:"ambient"`
}

// Seconds is the simulated time covered by the snapshot.
func (s Snapshot) Seconds() float64 { return float64(s.Step) * s.TimeStep }

// Days counts whole simulated days.
func (s Snapshot) Days() int {
	if s.TimeStep <= 0 {
		return 0
	}
	return int(float64(s.Step) / (secondsPerDay / s.TimeStep))
}

// Conductor returns the temperature of shell 0.
func (s Snapshot) Conductor() float64 {
	if len(s.Temperatures) == 0 {
		return math.NaN()
	}
	return s.Temperatures[0]
}

// Clone copies the temperatures so the result shares nothing with s.
func (s Snapshot) Clone() Snapshot {
	s.Temperatures = append([]float64(nil), s.Temperatures...)
	return s
}

// Renderer consumes snapshots. Each renderer receives its own copy, so it may
// keep or modify it. Renderers that also implement io.Closer are closed when
// the run ends.
type Renderer interface {
	Render(s Snapshot) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(s Snapshot) error

func (f RendererFunc) Render(s Snapshot) error { return f(s) }

// Metric is observed after every completed step.
type Metric interface {
	Name() string
	Observe(step int, st *thermal.State)
	Value() float64
	Reset()
}

// Starter is implemented by metrics that need the state as it stands when
// they are added, before the next step is taken.
type Starter interface {
	Start(step int, st *thermal.State)
}

type Config struct {
	TimeStep         float64 // seconds per step
	TotalSteps       int
	SnapshotInterval int
	ProgressInterval int // 0 disables progress logging
	HeatDissipation  float64
	MinTempDelta     float64
	Policy           thermal.GapPolicy
	ValidateState    bool
}

// DefaultConfig runs a little over a year in 15 minute steps with a
// snapshot every 30 days.
func DefaultConfig() Config {
	return Config{
		TimeStep:         900,
		TotalSteps:       36000,
		SnapshotInterval: 2880,
		ProgressInterval: 1000,
		HeatDissipation:  1,
		MinTempDelta:     0.1,
		Policy:           thermal.StopAtSmallGap,
		ValidateState:    true,
	}
}

type Phase int

const (
	Initialized Phase = iota
	Stepping
	Completed
	Canceled
	Failed
)

func (p Phase) String() string {
	switch p {
	case Initialized:
		return "initialized"
	case Stepping:
		return "stepping"
	case Completed:
		return "completed"
	case Canceled:
		return "canceled"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

type Result struct {
	StepsTaken int
	Injected   float64
	Final      Snapshot
	Metrics    map[string]float64
	Errors     []error
	Phase      Phase
}

type SimError struct {
	Time    float64
	Step    int
	Wrapped error
}

func (e *SimError) Error() string {
	return fmt.Sprintf("step %d (t=%.0fs): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimError) Unwrap() error { return e.Wrapped }
