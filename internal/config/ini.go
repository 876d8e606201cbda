package config

import (
	"fmt"
	"strconv"

	"github.com/san-kum/cableheat/internal/thermal"
	"gopkg.in/ini.v1"
)

// LoadINI reads the [simulation], [conductor] and [medium] sections. Missing
// keys fall back to the defaults; a key that is present but unreadable is a
// *thermal.ConfigError naming section.key.
func LoadINI(path string) (*Config, error) {
	return loadINIOver(path, DefaultConfig())
}

func loadINIOver(path string, base *Config) (*Config, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	cfg, err := fromINI(file, base)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return cfg, nil
}

// iniReader keeps the first parse failure and leaves later fields at their
// base values.
type iniReader struct {
	file *ini.File
	err  error
}

func (r *iniReader) key(section, name string) (*ini.Key, bool) {
	if r.err != nil {
		return nil, false
	}
	sec := r.file.Section(section)
	if !sec.HasKey(name) {
		return nil, false
	}
	return sec.Key(name), true
}

func (r *iniReader) fail(section, name, reason string, k *ini.Key) {
	r.err = &thermal.ConfigError{Field: section + "." + name, Reason: reason, Input: k.String()}
}

func (r *iniReader) float(section, name string, def float64) float64 {
	k, ok := r.key(section, name)
	if !ok {
		return def
	}
	v, err := k.Float64()
	if err != nil {
		r.fail(section, name, "must be a number", k)
		return def
	}
	return v
}

func (r *iniReader) integer(section, name string, def int) int {
	k, ok := r.key(section, name)
	if !ok {
		return def
	}
	v, err := k.Int()
	if err != nil {
		r.fail(section, name, "must be an integer", k)
		return def
	}
	return v
}

func (r *iniReader) boolean(section, name string, def bool) bool {
	k, ok := r.key(section, name)
	if !ok {
		return def
	}
	v, err := k.Bool()
	if err != nil {
		r.fail(section, name, "must be true or false", k)
		return def
	}
	return v
}

func (r *iniReader) text(section, name, def string) string {
	k, ok := r.key(section, name)
	if !ok {
		return def
	}
	return k.String()
}

func fromINI(file *ini.File, d *Config) (*Config, error) {
	r := &iniReader{file: file}

	cfg := &Config{
		ShellCount:       r.integer("simulation", "shell_count", d.ShellCount),
		TimeStep:         r.float("simulation", "time_step", d.TimeStep),
		TotalSteps:       r.integer("simulation", "total_steps", d.TotalSteps),
		SnapshotInterval: r.integer("simulation", "snapshot_interval", d.SnapshotInterval),
		ProgressInterval: r.integer("simulation", "progress_interval", d.ProgressInterval),
		Conductor: ConductorConfig{
			Length:       r.float("conductor", "length", d.Conductor.Length),
			Diameter:     r.float("conductor", "diameter", d.Conductor.Diameter),
			Density:      r.float("conductor", "density", d.Conductor.Density),
			SpecificHeat: r.float("conductor", "specific_heat", d.Conductor.SpecificHeat),
		},
		Medium: MediumConfig{
			Density:             r.float("medium", "density", d.Medium.Density),
			ThermalConductivity: r.float("medium", "thermal_conductivity", d.Medium.ThermalConductivity),
			SpecificHeat:        r.float("medium", "specific_heat", d.Medium.SpecificHeat),
		},
		AmbientTemperature: r.float("simulation", "ambient_temperature", d.AmbientTemperature),
		HeatDissipation:    r.float("simulation", "heat_dissipation", d.HeatDissipation),
		MinTempDelta:       r.float("simulation", "min_temp_delta", d.MinTempDelta),
		GapPolicy:          r.text("simulation", "gap_policy", d.GapPolicy),
		ValidateState:      r.boolean("simulation", "validate_state", d.ValidateState),
	}
	if r.err != nil {
		return nil, r.err
	}
	return cfg, nil
}

func SaveINI(path string, cfg *Config) error {
	file := ini.Empty()
	simSec := file.Section("simulation")
	cond := file.Section("conductor")
	med := file.Section("medium")

	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

	simSec.Key("shell_count").SetValue(strconv.Itoa(cfg.ShellCount))
	simSec.Key("time_step").SetValue(f(cfg.TimeStep))
	simSec.Key("total_steps").SetValue(strconv.Itoa(cfg.TotalSteps))
	simSec.Key("snapshot_interval").SetValue(strconv.Itoa(cfg.SnapshotInterval))
	simSec.Key("progress_interval").SetValue(strconv.Itoa(cfg.ProgressInterval))
	simSec.Key("ambient_temperature").SetValue(f(cfg.AmbientTemperature))
	simSec.Key("heat_dissipation").SetValue(f(cfg.HeatDissipation))
	simSec.Key("min_temp_delta").SetValue(f(cfg.MinTempDelta))
	simSec.Key("gap_policy").SetValue(cfg.GapPolicy)
	simSec.Key("validate_state").SetValue(strconv.FormatBool(cfg.ValidateState))

	cond.Key("length").SetValue(f(cfg.Conductor.Length))
	cond.Key("diameter").SetValue(f(cfg.Conductor.Diameter))
	cond.Key("density").SetValue(f(cfg.Conductor.Density))
	cond.Key("specific_heat").SetValue(f(cfg.Conductor.SpecificHeat))

	med.Key("density").SetValue(f(cfg.Medium.Density))
	med.Key("thermal_conductivity").SetValue(f(cfg.Medium.ThermalConductivity))
	med.Key("specific_heat").SetValue(f(cfg.Medium.SpecificHeat))

	return file.SaveTo(path)
}
