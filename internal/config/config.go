package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/san-kum/cableheat/internal/sim"
	"github.com/san-kum/cableheat/internal/thermal"
	"gopkg.in/yaml.v3"
)

const (
	DefaultShells           = 300
	DefaultTimeStep         = 900.0
	DefaultTotalSteps       = 36000
	DefaultSnapshotInterval = 2880
	DefaultProgressInterval = 1000

	DefaultConductorLength       = 100.0
	DefaultConductorDiameter     = 2.0
	DefaultConductorDensity      = 2.7
	DefaultConductorSpecificHeat = 0.903

	DefaultMediumDensity      = 1.8
	DefaultConductivity       = 0.85
	DefaultMediumSpecificHeat = 1.512

	DefaultAmbient         = 230.0
	DefaultHeatDissipation = 1.0
	DefaultMinTempDelta    = 0.1
	DefaultGapPolicy       = "stop"
)

type Config struct {
	ShellCount         int             `yaml:"shell_count" json:"shell_count"`
	TimeStep           float64         `yaml:"time_step" json:"time_step"`
	TotalSteps         int             `yaml:"total_steps" json:"total_steps"`
	SnapshotInterval   int             `yaml:"snapshot_interval" json:"snapshot_interval"`
	ProgressInterval   int             `yaml:"progress_interval" json:"progress_interval"`
	Conductor          ConductorConfig `yaml:"conductor" json:"conductor"`
	Medium             MediumConfig    `yaml:"medium" json:"medium"`
	AmbientTemperature float64         `yaml:"ambient_temperature" json:"ambient_temperature"`
	HeatDissipation    float64         `yaml:"heat_dissipation" json:"heat_dissipation"`
	MinTempDelta       float64         `yaml:"min_temp_delta" json:"min_temp_delta"`
	GapPolicy          string          `yaml:"gap_policy" json:"gap_policy"`
	ValidateState      bool            `yaml:"validate_state" json:"validate_state"`
}

type ConductorConfig struct {
	Length       float64 `yaml:"length" json:"length"`
	Diameter     float64 `yaml:"diameter" json:"diameter"`
	Density      float64 `yaml:"density" json:"density"`
	SpecificHeat float64 `yaml:"specific_heat" json:"specific_heat"`
}

type MediumConfig struct {
	Density             float64 `yaml:"density" json:"density"`
	ThermalConductivity float64 `yaml:"thermal_conductivity" json:"thermal_conductivity"`
	SpecificHeat        float64 `yaml:"specific_heat" json:"specific_heat"`
}

// DefaultConfig is the reference model: a 2 cm aluminium cable dissipating
// 1 W into regolith at 230 K, for a little over a year.
func DefaultConfig() *Config {
	return &Config{
		ShellCount:       DefaultShells,
		TimeStep:         DefaultTimeStep,
		TotalSteps:       DefaultTotalSteps,
		SnapshotInterval: DefaultSnapshotInterval,
		ProgressInterval: DefaultProgressInterval,
		Conductor: ConductorConfig{
			Length:       DefaultConductorLength,
			Diameter:     DefaultConductorDiameter,
			Density:      DefaultConductorDensity,
			SpecificHeat: DefaultConductorSpecificHeat,
		},
		Medium: MediumConfig{
			Density:             DefaultMediumDensity,
			ThermalConductivity: DefaultConductivity,
			SpecificHeat:        DefaultMediumSpecificHeat,
		},
		AmbientTemperature: DefaultAmbient,
		HeatDissipation:    DefaultHeatDissipation,
		MinTempDelta:       DefaultMinTempDelta,
		GapPolicy:          DefaultGapPolicy,
		ValidateState:      true,
	}
}

// Load reads a YAML or INI file on top of the defaults. Keys absent from
// the file keep their default values.
func Load(path string) (*Config, error) {
	return LoadOver(path, DefaultConfig())
}

// LoadOver is Load with base in place of the defaults. base is not modified.
func LoadOver(path string, base *Config) (*Config, error) {
	if isINI(path) {
		return loadINIOver(path, base)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := base.Clone()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	if isINI(path) {
		return SaveINI(path, cfg)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func isINI(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".ini")
}

func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

// Params converts the physical part of the configuration.
func (c *Config) Params() thermal.Params {
	return thermal.Params{
		Shells:            c.ShellCount,
		ConductorLength:   c.Conductor.Length,
		ConductorDiameter: c.Conductor.Diameter,
		Conductor: thermal.Material{
			Density:      c.Conductor.Density,
			SpecificHeat: c.Conductor.SpecificHeat,
		},
		Medium: thermal.Material{
			Density:      c.Medium.Density,
			SpecificHeat: c.Medium.SpecificHeat,
		},
		Conductivity: c.Medium.ThermalConductivity,
		Ambient:      c.AmbientTemperature,
	}
}

// SimConfig converts the time loop part of the configuration.
func (c *Config) SimConfig() (sim.Config, error) {
	policy, err := thermal.ParseGapPolicy(c.GapPolicy)
	if err != nil {
		return sim.Config{}, err
	}
	return sim.Config{
		TimeStep:         c.TimeStep,
		TotalSteps:       c.TotalSteps,
		SnapshotInterval: c.SnapshotInterval,
		ProgressInterval: c.ProgressInterval,
		HeatDissipation:  c.HeatDissipation,
		MinTempDelta:     c.MinTempDelta,
		Policy:           policy,
		ValidateState:    c.ValidateState,
	}, nil
}

// Job packages the configuration as one ensemble job without metrics or
// renderers.
func (c *Config) Job(name string) (sim.Job, error) {
	sc, err := c.SimConfig()
	if err != nil {
		return sim.Job{}, err
	}
	return sim.Job{Name: name, Params: c.Params(), Config: sc}, nil
}

// Validate fails fast with thermal.ErrConfiguration on the first bad value.
func (c *Config) Validate() error {
	if err := c.Params().Validate(); err != nil {
		return err
	}
	sc, err := c.SimConfig()
	if err != nil {
		return err
	}
	return sc.Validate()
}

// GetParams lists every numeric option by its dotted YAML key.
func (c *Config) GetParams() map[string]float64 {
	params := make(map[string]float64, len(paramFields))
	for name, f := range paramFields {
		params[name] = f.get(c)
	}
	return params
}

// SetParam sets a numeric option by its dotted YAML key.
func (c *Config) SetParam(name string, value float64) error {
	f, ok := paramFields[name]
	if !ok {
		return fmt.Errorf("unknown parameter: %s (available: %v)", name, ParamNames())
	}
	f.set(c, value)
	return nil
}

func ParamNames() []string {
	names := make([]string, 0, len(paramFields))
	for name := range paramFields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type paramField struct {
	get func(*Config) float64
	set func(*Config, float64)
}

var paramFields = map[string]paramField{
	"shell_count": {
		func(c *Config) float64 { return float64(c.ShellCount) },
		func(c *Config, v float64) { c.ShellCount = int(v) },
	},
	"time_step": {
		func(c *Config) float64 { return c.TimeStep },
		func(c *Config, v float64) { c.TimeStep = v },
	},
	"total_steps": {
		func(c *Config) float64 { return float64(c.TotalSteps) },
		func(c *Config, v float64) { c.TotalSteps = int(v) },
	},
	"snapshot_interval": {
		func(c *Config) float64 { return float64(c.SnapshotInterval) },
		func(c *Config, v float64) { c.SnapshotInterval = int(v) },
	},
	"conductor.length": {
		func(c *Config) float64 { return c.Conductor.Length },
		func(c *Config, v float64) { c.Conductor.Length = v },
	},
	"conductor.diameter": {
		func(c *Config) float64 { return c.Conductor.Diameter },
		func(c *Config, v float64) { c.Conductor.Diameter = v },
	},
	"conductor.density": {
		func(c *Config) float64 { return c.Conductor.Density },
		func(c *Config, v float64) { c.Conductor.Density = v },
	},
	"conductor.specific_heat": {
		func(c *Config) float64 { return c.Conductor.SpecificHeat },
		func(c *Config, v float64) { c.Conductor.SpecificHeat = v },
	},
	"medium.density": {
		func(c *Config) float64 { return c.Medium.Density },
		func(c *Config, v float64) { c.Medium.Density = v },
	},
	"medium.thermal_conductivity": {
		func(c *Config) float64 { return c.Medium.ThermalConductivity },
		func(c *Config, v float64) { c.Medium.ThermalConductivity = v },
	},
	"medium.specific_heat": {
		func(c *Config) float64 { return c.Medium.SpecificHeat },
		func(c *Config, v float64) { c.Medium.SpecificHeat = v },
	},
	"ambient_temperature": {
		func(c *Config) float64 { return c.AmbientTemperature },
		func(c *Config, v float64) { c.AmbientTemperature = v },
	},
	"heat_dissipation": {
		func(c *Config) float64 { return c.HeatDissipation },
		func(c *Config, v float64) { c.HeatDissipation = v },
	},
	"min_temp_delta": {
		func(c *Config) float64 { return c.MinTempDelta },
		func(c *Config, v float64) { c.MinTempDelta = v },
	},
}
