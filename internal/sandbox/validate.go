package sandbox

import (
	"fmt"
	"math"

	"github.com/tatianab/impact-sandbox/internal/models"
)

// ValidateScenario checks the reference data a play-through depends on.
func ValidateScenario(s *models.Scenario) error {
	if s.Budget <= 0 {
		return &ConfigurationError{Field: "budget", Reason: fmt.Sprintf("must be positive, got %d", s.Budget)}
	}
	for _, axis := range []struct {
		name string
		v    float64
	}{
		{"hidden_actuals.env", s.HiddenActuals.Env},
		{"hidden_actuals.econ", s.HiddenActuals.Econ},
		{"hidden_actuals.social", s.HiddenActuals.Social},
	} {
		if math.IsNaN(axis.v) || axis.v < 0 || axis.v > MaxDimension {
			return &ConfigurationError{Field: axis.name, Reason: fmt.Sprintf("%g outside [0,10]", axis.v)}
		}
	}
	for name, in := range s.Interventions {
		if in.Cost < 0 {
			return &ConfigurationError{Field: "interventions." + name + ".cost", Reason: "must not be negative"}
		}
		if !in.EquityImpact.Valid() {
			return &ConfigurationError{Field: "interventions." + name + ".equityImpact", Reason: fmt.Sprintf("unknown level %q", in.EquityImpact)}
		}
	}
	return nil
}

// ValidateGuess rejects any axis outside [0,10], including NaN and infinities.
func ValidateGuess(g models.Impact) error {
	for _, axis := range []struct {
		name string
		v    float64
	}{
		{"env", g.Env},
		{"econ", g.Econ},
		{"social", g.Social},
	} {
		if math.IsNaN(axis.v) || axis.v < 0 || axis.v > MaxDimension {
			return &ValidationError{Field: "guess." + axis.name, Value: axis.v, Reason: "must be within [0,10]"}
		}
	}
	return nil
}

// ValidateAllocations checks player-entered allocations: every key must name a
// known neighborhood and intervention, and every cost must be positive and
// equal the intervention's listed cost.
func ValidateAllocations(allocations map[string]models.Money, s *models.Scenario) error {
	for key, cost := range allocations {
		n, name, ok := SplitAllocationKey(key, s)
		if !ok {
			if _, known := s.Interventions[name]; !known {
				return &ConfigurationError{Field: "allocations." + key, Reason: "unknown intervention"}
			}
			return &ConfigurationError{Field: "allocations." + key, Reason: fmt.Sprintf("unknown neighborhood %q", n)}
		}
		if cost <= 0 {
			return &ValidationError{Field: "allocations." + key, Value: float64(cost), Reason: "cost must be positive"}
		}
		if listed := s.Interventions[name].Cost; cost != listed {
			return &ValidationError{Field: "allocations." + key, Value: float64(cost), Reason: fmt.Sprintf("cost must equal the listed %s", listed)}
		}
	}
	return nil
}
