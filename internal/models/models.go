package models

import (
	"fmt"
	"maps"
	"slices"

	"github.com/dustin/go-humanize"
)

// Kind distinguishes the two families of scenario the sandbox ships with.
type Kind string

const (
	KindHeatFlood Kind = "heat_flood"
	KindEnergy    Kind = "energy"
)

// Money is an amount of currency in whole units.
type Money int64

func (m Money) String() string {
	if m < 0 {
		return "-$" + humanize.Comma(int64(-m))
	}
	return "$" + humanize.Comma(int64(m))
}

// Millions renders the amount the way stakeholders talk about it, e.g. "$1.5M".
func (m Money) Millions() string {
	if m < 0 {
		return fmt.Sprintf("-$%.1fM", float64(-m)/1e6)
	}
	return fmt.Sprintf("$%.1fM", float64(m)/1e6)
}

// Level is a Low/Medium/High rating on an intervention.
type Level string

const (
	LevelLow    Level = "Low"
	LevelMedium Level = "Medium"
	LevelHigh   Level = "High"
)

// Points maps the rating onto 1/2/3. Unknown or empty levels are worth nothing.
func (l Level) Points() int {
	switch l {
	case LevelLow:
		return 1
	case LevelMedium:
		return 2
	case LevelHigh:
		return 3
	}
	return 0
}

// Valid reports whether l is one of the three known ratings.
func (l Level) Valid() bool {
	return l.Points() > 0
}

// Category splits interventions into nature-based and engineered ones.
type Category string

const (
	CategoryGreen Category = "green"
	CategoryGrey  Category = "grey"
)

// Neighborhood describes one district of a scenario. Heat/flood scenarios use
// the risk fields; energy scenarios use the land and grid fields.
type Neighborhood struct {
	FloodRisk            string  `yaml:"floodRisk,omitempty"`
	HeatIndex            string  `yaml:"heatIndex,omitempty"`
	VulnerablePopulation float64 `yaml:"vulnerablePopulation,omitempty"`
	LandUse              string  `yaml:"landUse,omitempty"`
	SolarPotential       string  `yaml:"solarPotential,omitempty"`
	GridAccess           string  `yaml:"gridAccess,omitempty"`
}

// Intervention is a purchasable action. Optional impact fields are pointers so
// that an absent field can be told apart from a zero one.
type Intervention struct {
	Cost               Money    `yaml:"cost"`
	HeatReduction      *float64 `yaml:"heatReduction,omitempty"`      // °C
	FloodRiskReduction *float64 `yaml:"floodRiskReduction,omitempty"` // %
	EnergyOutput       *float64 `yaml:"energyOutput,omitempty"`       // MW
	JobsCreated        *float64 `yaml:"jobsCreated,omitempty"`
	EquityImpact       Level    `yaml:"equityImpact"`
	LandImpact         Level    `yaml:"landImpact,omitempty"`
	FoodSecurityImpact Level    `yaml:"foodSecurityImpact,omitempty"`
	Maintenance        Money    `yaml:"maintenance"` // per year
	Category           Category `yaml:"category"`
}

// Persona is the profile handed to the dialogue collaborator for one stakeholder.
type Persona struct {
	Personality  string   `yaml:"personality"`
	Priorities   []string `yaml:"priorities"`
	Tone         string   `yaml:"tone"`
	NewObjective string   `yaml:"newObjective"`
}

// Impact is a point in the env/econ/social outcome space, each axis in [0,10].
type Impact struct {
	Env    float64 `yaml:"env"`
	Econ   float64 `yaml:"econ"`
	Social float64 `yaml:"social"`
}

// Scenario is the static definition of a decision problem. It is never
// mutated during play.
type Scenario struct {
	ID            string                  `yaml:"id"`
	Title         string                  `yaml:"title"`
	Kind          Kind                    `yaml:"kind"`
	Summary       string                  `yaml:"summary"`
	Budget        Money                   `yaml:"budget"`
	Neighborhoods map[string]Neighborhood `yaml:"neighborhoods"`
	Interventions map[string]Intervention `yaml:"interventions"`
	PersonaGoals  map[string]string       `yaml:"personaGoals"`
	Personas      map[string]Persona      `yaml:"personas"`
	HiddenActuals Impact                  `yaml:"hidden_actuals"`
}

// Stakeholders returns every stakeholder named by the scenario, sorted.
func (s *Scenario) Stakeholders() []string {
	names := make(map[string]struct{}, len(s.PersonaGoals))
	for name := range s.PersonaGoals {
		names[name] = struct{}{}
	}
	for name := range s.Personas {
		names[name] = struct{}{}
	}
	return slices.Sorted(maps.Keys(names))
}

// NeighborhoodNames returns the neighborhood names, sorted.
func (s *Scenario) NeighborhoodNames() []string {
	return slices.Sorted(maps.Keys(s.Neighborhoods))
}

// InterventionNames returns the intervention names, sorted.
func (s *Scenario) InterventionNames() []string {
	return slices.Sorted(maps.Keys(s.Interventions))
}

// Copy returns a deep copy of s.
func (s *Scenario) Copy() Scenario {
	c := *s
	c.Neighborhoods = maps.Clone(s.Neighborhoods)
	c.PersonaGoals = maps.Clone(s.PersonaGoals)
	if s.Interventions != nil {
		c.Interventions = make(map[string]Intervention, len(s.Interventions))
		for name, in := range s.Interventions {
			c.Interventions[name] = in.copy()
		}
	}
	if s.Personas != nil {
		c.Personas = make(map[string]Persona, len(s.Personas))
		for name, p := range s.Personas {
			p.Priorities = slices.Clone(p.Priorities)
			c.Personas[name] = p
		}
	}
	return c
}

func (in Intervention) copy() Intervention {
	in.HeatReduction = clonePtr(in.HeatReduction)
	in.FloodRiskReduction = clonePtr(in.FloodRiskReduction)
	in.EnergyOutput = clonePtr(in.EnergyOutput)
	in.JobsCreated = clonePtr(in.JobsCreated)
	return in
}

func clonePtr(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Float returns a pointer to v, for building interventions in code.
func Float(v float64) *float64 {
	return &v
}
