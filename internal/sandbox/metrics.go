package sandbox

import "github.com/tatianab/impact-sandbox/internal/models"

// Metrics are the aggregates derived from a set of allocations.
type Metrics struct {
	TotalSpent          models.Money
	RemainingBudget     models.Money // negative when over budget
	BudgetUsedPercent   float64
	TotalHeatReduction  float64
	TotalFloodReduction float64
	TotalEnergyOutput   float64
	TotalJobsCreated    float64
	EquityScore         int
	LandImpactScore     int
	FoodSecurityScore   int
	GreenCount          int
	GreenSpend          models.Money
	GreyCount           int
	GreySpend           models.Money
	AllocationCount     int
}

// Compute derives metrics from allocations. Allocations whose intervention is
// unknown still count towards spend and allocationCount but add no impact.
// A non-positive budget is a ConfigurationError.
func Compute(allocations map[string]models.Money, s *models.Scenario) (Metrics, error) {
	if s.Budget <= 0 {
		return Metrics{}, &ConfigurationError{Field: "budget", Reason: "must be positive"}
	}

	var m Metrics
	for key, cost := range allocations {
		m.TotalSpent += cost
		m.AllocationCount++

		_, name, _ := SplitAllocationKey(key, s)
		in, ok := s.Interventions[name]
		if !ok {
			continue
		}
		if in.HeatReduction != nil {
			m.TotalHeatReduction += *in.HeatReduction
		}
		if in.FloodRiskReduction != nil {
			m.TotalFloodReduction += *in.FloodRiskReduction
		}
		if in.EnergyOutput != nil {
			m.TotalEnergyOutput += *in.EnergyOutput
		}
		if in.JobsCreated != nil {
			m.TotalJobsCreated += *in.JobsCreated
		}
		m.EquityScore += in.EquityImpact.Points()
		m.LandImpactScore += in.LandImpact.Points()
		m.FoodSecurityScore += in.FoodSecurityImpact.Points()

		switch in.Category {
		case models.CategoryGreen:
			m.GreenCount++
			m.GreenSpend += cost
		case models.CategoryGrey:
			m.GreyCount++
			m.GreySpend += cost
		}
	}

	m.RemainingBudget = s.Budget - m.TotalSpent
	m.BudgetUsedPercent = 100 * float64(m.TotalSpent) / float64(s.Budget)
	return m, nil
}
