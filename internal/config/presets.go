package config

import "sort"

var Presets = map[string]func(c *Config){
	"reference": func(c *Config) {},
	// One simulated month with daily snapshots on a smaller grid.
	"quick": func(c *Config) {
		c.ShellCount = 60
		c.TotalSteps = 2880
		c.SnapshotInterval = 96
	},
	"hot_cable": func(c *Config) {
		c.HeatDissipation = 10
	},
	"thin_cable": func(c *Config) {
		c.Conductor.Diameter = 0.5
	},
	"copper": func(c *Config) {
		c.Conductor.Density = 8.96
		c.Conductor.SpecificHeat = 0.385
	},
	"dense_regolith": func(c *Config) {
		c.Medium.Density = 2.1
		c.Medium.ThermalConductivity = 1.2
	},
	"skip_gaps": func(c *Config) {
		c.GapPolicy = "skip"
	},
}

// GetPreset returns a fresh configuration, or nil for an unknown name.
func GetPreset(name string) *Config {
	apply, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	apply(cfg)
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
