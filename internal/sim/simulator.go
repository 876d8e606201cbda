package sim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/san-kum/cableheat/internal/thermal"
	log "github.com/sirupsen/logrus"
)

// ErrFinished is returned by Step once the configured number of steps has
// been taken or the run has stopped.
var ErrFinished = errors.New("sim: run already finished")

type Option func(*Driver)

// WithLogger routes progress and renderer failures to l.
func WithLogger(l log.FieldLogger) Option {
	return func(d *Driver) { d.log = l }
}

// Driver owns the thermal state and advances it step by step: one diffusion
// sweep, then one heat injection.
type Driver struct {
	params  thermal.Params
	cfg     Config
	state   *thermal.State
	stepper *thermal.Stepper
	source  *thermal.Source

	renderers []Renderer
	metrics   []Metric
	log       log.FieldLogger

	step     int
	phase    Phase
	injected float64
	last     Snapshot
	errs     []error
	scratch  []float64
}

// New builds the geometry and the initial state. It fails with
// thermal.ErrConfiguration before anything is simulated.
func New(params thermal.Params, cfg Config, opts ...Option) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	geom, err := thermal.NewGeometry(params)
	if err != nil {
		return nil, err
	}
	st, err := thermal.NewState(geom, params.Ambient)
	if err != nil {
		return nil, err
	}

	d := &Driver{
		params:    params,
		cfg:       cfg,
		state:     st,
		stepper:   thermal.NewStepper(params.Conductivity, cfg.TimeStep, cfg.MinTempDelta, cfg.Policy),
		source:    thermal.NewSource(cfg.HeatDissipation, cfg.TimeStep),
		renderers: make([]Renderer, 0),
		metrics:   make([]Metric, 0),
		log:       log.StandardLogger(),
		phase:     Initialized,
		scratch:   make([]float64, st.Len()),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.last = d.snapshot()

	return d, nil
}

func (d *Driver) AddRenderer(r Renderer) { d.renderers = append(d.renderers, r) }

func (d *Driver) AddMetric(m Metric) {
	m.Reset()
	if s, ok := m.(Starter); ok {
		s.Start(d.step, d.state)
	}
	d.metrics = append(d.metrics, m)
}

func (d *Driver) Phase() Phase      { return d.phase }
func (d *Driver) StepIndex() int    { return d.step }
func (d *Driver) Config() Config    { return d.cfg }
func (d *Driver) Injected() float64 { return d.injected }

// State exposes the live thermal state for read-only inspection.
func (d *Driver) State() *thermal.State { return d.state }

// Snapshot copies the current temperatures.
func (d *Driver) Snapshot() Snapshot { return d.snapshot() }

// LastEmitted returns a copy of the latest snapshot handed to renderers, or
// of the initial state if none was emitted yet.
func (d *Driver) LastEmitted() Snapshot { return d.last.Clone() }

// Done reports whether no further steps will be taken.
func (d *Driver) Done() bool {
	return d.phase == Completed || d.phase == Canceled || d.phase == Failed
}

// Step advances the simulation by one time step and emits a snapshot when
// the step count reaches a multiple of the snapshot interval.
func (d *Driver) Step() error {
	if d.Done() || d.step >= d.cfg.TotalSteps {
		return ErrFinished
	}
	d.phase = Stepping

	d.stepper.Sweep(d.state)
	d.injected += d.source.Inject(d.state)
	d.step++

	if d.cfg.ValidateState {
		if err := d.state.Validate(); err != nil {
			d.phase = Failed
			return &SimError{Time: float64(d.step) * d.cfg.TimeStep, Step: d.step, Wrapped: err}
		}
	}

	for _, m := range d.metrics {
		m.Observe(d.step, d.state)
	}

	if d.cfg.ProgressInterval > 0 && d.step%d.cfg.ProgressInterval == 0 {
		d.log.WithFields(log.Fields{
			"step":           d.step,
			"conductor_temp": d.state.Temperature(0),
		}).Debug("progress")
	}

	if d.step%d.cfg.SnapshotInterval == 0 {
		d.emit()
	}

	if d.step == d.cfg.TotalSteps {
		d.phase = Completed
	}
	return nil
}

// Run steps until the configured number of steps is reached or ctx is
// canceled, then closes the renderers.
func (d *Driver) Run(ctx context.Context) (*Result, error) {
	if d.Done() {
		return nil, ErrFinished
	}

	d.log.WithFields(log.Fields{
		"shells":            d.state.Len(),
		"steps":             d.cfg.TotalSteps,
		"time_step":         d.cfg.TimeStep,
		"snapshot_interval": d.cfg.SnapshotInterval,
		"gap_policy":        d.cfg.Policy.String(),
	}).Info("simulation started")

	var runErr error
	for d.step < d.cfg.TotalSteps {
		select {
		case <-ctx.Done():
			d.phase = Canceled
			runErr = ctx.Err()
		default:
		}
		if runErr != nil {
			break
		}

		if err := d.Step(); err != nil {
			runErr = err
			break
		}
	}
	if runErr == nil {
		d.phase = Completed
	}

	if err := d.Close(); err != nil {
		d.errs = append(d.errs, err)
	}

	result := d.result()
	fields := log.Fields{
		"steps":          result.StepsTaken,
		"phase":          result.Phase.String(),
		"conductor_temp": result.Final.Conductor(),
	}
	if runErr != nil {
		d.log.WithFields(fields).WithError(runErr).Error("simulation stopped")
		return result, runErr
	}
	d.log.WithFields(fields).Info("simulation completed")
	return result, nil
}

// Close closes every renderer that implements io.Closer.
func (d *Driver) Close() error {
	var errs []error
	for _, r := range d.renderers {
		if c, ok := r.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (d *Driver) emit() {
	snap := d.snapshot()
	d.last = snap
	for _, r := range d.renderers {
		if err := r.Render(snap.Clone()); err != nil {
			d.log.WithFields(log.Fields{
				"step":     snap.Step,
				"renderer": fmt.Sprintf("%T", r),
			}).WithError(err).Warn("renderer failed")
			d.errs = append(d.errs, fmt.Errorf("render step %d: %w", snap.Step, err))
		}
	}
}

func (d *Driver) snapshot() Snapshot {
	d.scratch = d.state.Temperatures(d.scratch)
	temps := make([]float64, len(d.scratch))
	copy(temps, d.scratch)
	return Snapshot{
		Step:         d.step,
		Temperatures: temps,
		TimeStep:     d.cfg.TimeStep,
		Ambient:      d.params.Ambient,
	}
}

func (d *Driver) result() *Result {
	r := &Result{
		StepsTaken: d.step,
		Injected:   d.injected,
		Final:      d.snapshot(),
		Metrics:    make(map[string]float64, len(d.metrics)),
		Errors:     append([]error(nil), d.errs...),
		Phase:      d.phase,
	}
	for _, m := range d.metrics {
		r.Metrics[m.Name()] = m.Value()
	}
	return r
}

// Validate reports the first invalid loop option as a *thermal.ConfigError.
func (cfg Config) Validate() error {
	if !(cfg.TimeStep > 0) || math.IsInf(cfg.TimeStep, 0) {
		return &thermal.ConfigError{Field: "time step", Value: cfg.TimeStep}
	}
	if cfg.TotalSteps < 0 {
		return &thermal.ConfigError{Field: "total steps", Value: float64(cfg.TotalSteps), Reason: "must not be negative"}
	}
	if cfg.SnapshotInterval <= 0 {
		return &thermal.ConfigError{Field: "snapshot interval", Value: float64(cfg.SnapshotInterval)}
	}
	if cfg.ProgressInterval < 0 {
		return &thermal.ConfigError{Field: "progress interval", Value: float64(cfg.ProgressInterval), Reason: "must not be negative"}
	}
	if !(cfg.HeatDissipation >= 0) || math.IsInf(cfg.HeatDissipation, 0) {
		return &thermal.ConfigError{Field: "heat dissipation", Value: cfg.HeatDissipation, Reason: "must be finite and not negative"}
	}
	if !(cfg.MinTempDelta >= 0) || math.IsInf(cfg.MinTempDelta, 0) {
		return &thermal.ConfigError{Field: "minimum temperature delta", Value: cfg.MinTempDelta, Reason: "must be finite and not negative"}
	}
	return nil
}
