package automation

import (
	"context"
	"fmt"
	"os"

	"github.com/san-kum/cableheat/internal/config"
	"github.com/san-kum/cableheat/internal/metrics"
	"github.com/san-kum/cableheat/internal/sim"
	"github.com/san-kum/cableheat/internal/storage"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Scenario is a batch of named runs that share a base configuration.
type Scenario struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Preset      string        `yaml:"preset"`
	Workers     int           `yaml:"workers"`
	Runs        []ScenarioRun `yaml:"runs"`
}

// ScenarioRun overrides the scenario base. Preset replaces the base, then
// GapPolicy and Params are applied on top.
type ScenarioRun struct {
	Name      string             `yaml:"name"`
	Preset    string             `yaml:"preset"`
	GapPolicy string             `yaml:"gap_policy"`
	Params    map[string]float64 `yaml:"params"`
}

// Outcome is one finished scenario run. RunID is empty when nothing was
// stored.
type Outcome struct {
	Name   string
	RunID  string
	Config *config.Config
	Result *sim.Result
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(scenario.Runs) == 0 {
		return nil, fmt.Errorf("scenario %q has no runs", scenario.Name)
	}
	return &scenario, nil
}

// Configs resolves and validates the configuration of every run.
func (s *Scenario) Configs(base *config.Config) ([]*config.Config, error) {
	if s.Preset != "" {
		base = config.GetPreset(s.Preset)
		if base == nil {
			return nil, fmt.Errorf("scenario %q: unknown preset %s", s.Name, s.Preset)
		}
	}
	if base == nil {
		base = config.DefaultConfig()
	}

	cfgs := make([]*config.Config, 0, len(s.Runs))
	for i, run := range s.Runs {
		cfg := base.Clone()
		if run.Preset != "" {
			cfg = config.GetPreset(run.Preset)
			if cfg == nil {
				return nil, fmt.Errorf("run %d (%s): unknown preset %s", i+1, run.Name, run.Preset)
			}
		}
		if run.GapPolicy != "" {
			cfg.GapPolicy = run.GapPolicy
		}
		for k, v := range run.Params {
			if err := cfg.SetParam(k, v); err != nil {
				return nil, fmt.Errorf("run %d (%s): %w", i+1, run.Name, err)
			}
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("run %d (%s): %w", i+1, run.Name, err)
		}
		cfgs = append(cfgs, cfg)
	}
	return cfgs, nil
}

// RunScenario executes every run through an ensemble and, when store is not
// nil, saves each one with its snapshots.
func RunScenario(ctx context.Context, s *Scenario, base *config.Config, store *storage.Store, logger log.FieldLogger) ([]Outcome, error) {
	if logger == nil {
		logger = log.StandardLogger()
	}
	cfgs, err := s.Configs(base)
	if err != nil {
		return nil, err
	}

	jobs := make([]sim.Job, len(cfgs))
	recorders := make([]*sim.Recorder, len(cfgs))
	for i, cfg := range cfgs {
		name := s.Runs[i].Name
		if name == "" {
			name = fmt.Sprintf("%s_%d", s.Name, i+1)
		}
		job, err := cfg.Job(name)
		if err != nil {
			return nil, err
		}
		recorders[i] = sim.NewRecorder()
		job.Metrics = metrics.Default(job.Config, cfg.AmbientTemperature)
		job.Renderers = []sim.Renderer{recorders[i]}
		jobs[i] = job
	}

	logger.WithFields(log.Fields{"scenario": s.Name, "runs": len(jobs)}).Info("scenario started")

	results, err := sim.NewEnsemble(s.Workers, logger).Run(ctx, jobs)
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w", s.Name, err)
	}

	outcomes := make([]Outcome, len(jobs))
	for i, job := range jobs {
		outcomes[i] = Outcome{Name: job.Name, Config: cfgs[i], Result: results[i]}
		if store == nil {
			continue
		}
		id, err := store.Save(job.Name, cfgs[i], recorders[i].Snapshots, results[i])
		if err != nil {
			return outcomes, fmt.Errorf("save %s: %w", job.Name, err)
		}
		outcomes[i].RunID = id
	}
	return outcomes, nil
}

// ParameterSweep varies one parameter linearly between Min and Max.
type ParameterSweep struct {
	ParamName string
	Min       float64
	Max       float64
	NumSteps  int
	Workers   int
}

type SweepResult struct {
	ParamValue float64
	Conductor  float64
	Metrics    map[string]float64
}

// RunSweep runs one job per parameter value, all in parallel.
func RunSweep(ctx context.Context, sweep *ParameterSweep, base *config.Config, logger log.FieldLogger) ([]SweepResult, error) {
	if sweep.NumSteps < 1 {
		return nil, fmt.Errorf("sweep needs at least one step, got %d", sweep.NumSteps)
	}
	paramStep := 0.0
	if sweep.NumSteps > 1 {
		paramStep = (sweep.Max - sweep.Min) / float64(sweep.NumSteps-1)
	}

	jobs := make([]sim.Job, 0, sweep.NumSteps)
	values := make([]float64, 0, sweep.NumSteps)
	for i := 0; i < sweep.NumSteps; i++ {
		val := sweep.Min + float64(i)*paramStep
		cfg := base.Clone()
		if err := cfg.SetParam(sweep.ParamName, val); err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("%s=%g: %w", sweep.ParamName, val, err)
		}
		job, err := cfg.Job(fmt.Sprintf("%s=%g", sweep.ParamName, val))
		if err != nil {
			return nil, err
		}
		job.Metrics = metrics.Default(job.Config, cfg.AmbientTemperature)
		jobs = append(jobs, job)
		values = append(values, val)
	}

	results, err := sim.NewEnsemble(sweep.Workers, logger).Run(ctx, jobs)
	if err != nil {
		return nil, err
	}

	out := make([]SweepResult, len(results))
	for i, r := range results {
		out[i] = SweepResult{
			ParamValue: values[i],
			Conductor:  r.Final.Conductor(),
			Metrics:    r.Metrics,
		}
	}
	return out, nil
}
