package thermal

import "math"

// Heat transfer uses square metres; shell volumes use square centimetres
// times the one centimetre shell thickness.
const squareCentimetresPerSquareMetre = 10000.0

// Material describes a homogeneous material.
type Material struct {
	Density      float64 // g/cm^3
	SpecificHeat float64 // J/(g*K)
}

// Params holds the physical constants of one model.
type Params struct {
	Shells            int
	ConductorLength   float64 // cm
	ConductorDiameter float64 // cm
	Conductor         Material
	Medium            Material
	Conductivity      float64 // W/K per m^2 of shell surface
	Ambient           float64 // K
}

// Validate reports the first non-positive constant as a *ConfigError.
func (p Params) Validate() error {
	if p.Shells <= 0 {
		return &ConfigError{Field: "shell count", Value: float64(p.Shells)}
	}
	checks := []struct {
		field string
		value float64
	}{
		{"conductor length", p.ConductorLength},
		{"conductor diameter", p.ConductorDiameter},
		{"conductor density", p.Conductor.Density},
		{"conductor specific heat", p.Conductor.SpecificHeat},
		{"medium density", p.Medium.Density},
		{"medium specific heat", p.Medium.SpecificHeat},
		{"medium thermal conductivity", p.Conductivity},
		{"ambient temperature", p.Ambient},
	}
	for _, c := range checks {
		if !(c.value > 0) || math.IsInf(c.value, 0) {
			return &ConfigError{Field: c.field, Value: c.value}
		}
	}
	return nil
}

// Geometry is the immutable per-shell description of the model.
type Geometry struct {
	area         []float64
	mass         []float64
	specificHeat []float64
}

// NewGeometry computes the area, mass and specific heat of every shell.
// Shell 0 is the solid conductor; shell s >= 1 is the annulus of radius s cm.
func NewGeometry(p Params) (*Geometry, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	n := p.Shells
	g := &Geometry{
		area:         make([]float64, n),
		mass:         make([]float64, n),
		specificHeat: make([]float64, n),
	}

	radius := p.ConductorDiameter / 2
	g.area[0] = math.Pi * p.ConductorDiameter * p.ConductorLength / squareCentimetresPerSquareMetre
	g.mass[0] = math.Pi * radius * radius * p.ConductorLength * p.Conductor.Density
	g.specificHeat[0] = p.Conductor.SpecificHeat

	for s := 1; s < n; s++ {
		lateral := 2 * math.Pi * float64(s) * p.ConductorLength
		g.area[s] = lateral / squareCentimetresPerSquareMetre
		g.mass[s] = lateral * p.Medium.Density
		g.specificHeat[s] = p.Medium.SpecificHeat
	}

	return g, nil
}

func (g *Geometry) Len() int { return len(g.area) }

// Area returns the heat transfer surface of shell s in square metres.
func (g *Geometry) Area(s int) float64 { return g.area[s] }

// Mass returns the mass of shell s in grams.
func (g *Geometry) Mass(s int) float64 { return g.mass[s] }

func (g *Geometry) SpecificHeat(s int) float64 { return g.specificHeat[s] }

// HeatCapacity returns mass * specific heat of shell s, in J/K.
func (g *Geometry) HeatCapacity(s int) float64 { return g.mass[s] * g.specificHeat[s] }
