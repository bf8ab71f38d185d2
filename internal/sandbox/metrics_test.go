package sandbox

import (
	"errors"
	"math"
	"testing"

	"github.com/tatianab/impact-sandbox/internal/models"
)

// testScenario is a small heat/flood scenario with one energy-style
// intervention mixed in so every accumulator can be checked.
func testScenario() *models.Scenario {
	return &models.Scenario{
		ID:     "test",
		Kind:   models.KindHeatFlood,
		Budget: 5000000,
		Neighborhoods: map[string]models.Neighborhood{
			"Riverside": {FloodRisk: "High", HeatIndex: "High", VulnerablePopulation: 42},
			"Downtown":  {FloodRisk: "High", HeatIndex: "Medium", VulnerablePopulation: 18},
		},
		Interventions: map[string]models.Intervention{
			"Green Roofs": {
				Cost:               1000000,
				HeatReduction:      models.Float(1.5),
				FloodRiskReduction: models.Float(10),
				EquityImpact:       models.LevelHigh,
				Category:           models.CategoryGreen,
			},
			"Rain Gardens": {
				Cost:               500000,
				HeatReduction:      models.Float(0.5),
				FloodRiskReduction: models.Float(15),
				EquityImpact:       models.LevelMedium,
				Category:           models.CategoryGreen,
			},
			"Sea Wall": {
				Cost:               2500000,
				FloodRiskReduction: models.Float(40),
				EquityImpact:       models.LevelLow,
				Category:           models.CategoryGrey,
			},
			"Utility-Scale Solar": {
				Cost:               4000000,
				EnergyOutput:       models.Float(40),
				JobsCreated:        models.Float(120),
				EquityImpact:       models.LevelLow,
				LandImpact:         models.LevelHigh,
				FoodSecurityImpact: models.LevelMedium,
				Category:           models.CategoryGrey,
			},
		},
		PersonaGoals: map[string]string{
			"City Council":    "Stay within budget",
			"Local Residents": "Protect vulnerable people",
		},
		HiddenActuals: models.Impact{Env: 5, Econ: 5, Social: 5},
	}
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestComputeGreenRoofsExample(t *testing.T) {
	m, err := Compute(map[string]models.Money{"Riverside-Green Roofs": 1000000}, testScenario())
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if m.TotalSpent != 1000000 {
		t.Errorf("expected totalSpent 1000000, got %d", m.TotalSpent)
	}
	if m.RemainingBudget != 4000000 {
		t.Errorf("expected remainingBudget 4000000, got %d", m.RemainingBudget)
	}
	if !approx(m.BudgetUsedPercent, 20) {
		t.Errorf("expected budgetUsedPercent 20, got %f", m.BudgetUsedPercent)
	}
	if !approx(m.TotalHeatReduction, 1.5) {
		t.Errorf("expected heat reduction 1.5, got %f", m.TotalHeatReduction)
	}
	if !approx(m.TotalFloodReduction, 10) {
		t.Errorf("expected flood reduction 10, got %f", m.TotalFloodReduction)
	}
	if m.EquityScore != 3 {
		t.Errorf("expected equity score 3, got %d", m.EquityScore)
	}
	if m.AllocationCount != 1 {
		t.Errorf("expected allocation count 1, got %d", m.AllocationCount)
	}
	if m.GreenCount != 1 || m.GreenSpend != 1000000 || m.GreyCount != 0 {
		t.Errorf("expected one green allocation, got green=%d/%d grey=%d", m.GreenCount, m.GreenSpend, m.GreyCount)
	}
}

func TestComputeEmpty(t *testing.T) {
	m, err := Compute(nil, testScenario())
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if m.TotalSpent != 0 || m.RemainingBudget != 5000000 || m.AllocationCount != 0 || m.BudgetUsedPercent != 0 {
		t.Errorf("unexpected metrics for no allocations: %+v", m)
	}
}

func TestComputeAdditivity(t *testing.T) {
	s := testScenario()
	allocs := map[string]models.Money{
		"Riverside-Green Roofs": 1000000,
		"Downtown-Sea Wall":     2500000,
	}
	before, err := Compute(allocs, s)
	if err != nil {
		t.Fatal(err)
	}

	allocs["Downtown-Rain Gardens"] = 500000
	after, err := Compute(allocs, s)
	if err != nil {
		t.Fatal(err)
	}

	if after.TotalSpent-before.TotalSpent != 500000 {
		t.Errorf("expected spend to grow by 500000, grew by %d", after.TotalSpent-before.TotalSpent)
	}
	if !approx(after.TotalHeatReduction-before.TotalHeatReduction, 0.5) {
		t.Errorf("expected heat reduction to grow by 0.5, got %f", after.TotalHeatReduction-before.TotalHeatReduction)
	}
	if !approx(after.TotalFloodReduction-before.TotalFloodReduction, 15) {
		t.Errorf("expected flood reduction to grow by 15, got %f", after.TotalFloodReduction-before.TotalFloodReduction)
	}
	if after.EquityScore-before.EquityScore != 2 {
		t.Errorf("expected equity to grow by 2, got %d", after.EquityScore-before.EquityScore)
	}
	if after.AllocationCount != 3 {
		t.Errorf("expected 3 allocations, got %d", after.AllocationCount)
	}
}

func TestComputeBudgetConservation(t *testing.T) {
	s := testScenario()
	cases := []map[string]models.Money{
		{},
		{"Riverside-Green Roofs": 1000000},
		{"Riverside-Sea Wall": 2500000, "Downtown-Sea Wall": 2500000, "Riverside-Green Roofs": 1000000},
		{"Riverside-Utility-Scale Solar": 4000000, "Downtown-Utility-Scale Solar": 4000000},
	}
	for _, allocs := range cases {
		m, err := Compute(allocs, s)
		if err != nil {
			t.Fatal(err)
		}
		if m.RemainingBudget+m.TotalSpent != s.Budget {
			t.Errorf("remaining %d + spent %d != budget %d", m.RemainingBudget, m.TotalSpent, s.Budget)
		}
	}
}

func TestComputeOverBudgetKeepsNegativeRemainder(t *testing.T) {
	m, err := Compute(map[string]models.Money{
		"Riverside-Sea Wall":   2500000,
		"Downtown-Sea Wall":    2500000,
		"Downtown-Green Roofs": 1000000,
	}, testScenario())
	if err != nil {
		t.Fatal(err)
	}
	if m.RemainingBudget != -1000000 {
		t.Errorf("expected remaining -1000000, got %d", m.RemainingBudget)
	}
	if !approx(m.BudgetUsedPercent, 120) {
		t.Errorf("expected 120%% used, got %f", m.BudgetUsedPercent)
	}
}

func TestComputeUnknownInterventionStillCosts(t *testing.T) {
	m, err := Compute(map[string]models.Money{
		"Riverside-Green Roofs": 1000000,
		"Riverside-Moon Base":   750000,
	}, testScenario())
	if err != nil {
		t.Fatalf("unknown intervention must not fail: %v", err)
	}
	if m.TotalSpent != 1750000 {
		t.Errorf("expected unknown intervention to still cost money, spent %d", m.TotalSpent)
	}
	if m.AllocationCount != 2 {
		t.Errorf("expected 2 allocations, got %d", m.AllocationCount)
	}
	if !approx(m.TotalHeatReduction, 1.5) || m.EquityScore != 3 {
		t.Errorf("expected unknown intervention to add no impact, got heat=%f equity=%d", m.TotalHeatReduction, m.EquityScore)
	}
}

func TestComputeEnergyFields(t *testing.T) {
	m, err := Compute(map[string]models.Money{"Riverside-Utility-Scale Solar": 4000000}, testScenario())
	if err != nil {
		t.Fatal(err)
	}
	if !approx(m.TotalEnergyOutput, 40) || !approx(m.TotalJobsCreated, 120) {
		t.Errorf("expected 40 MW and 120 jobs, got %f and %f", m.TotalEnergyOutput, m.TotalJobsCreated)
	}
	if m.LandImpactScore != 3 || m.FoodSecurityScore != 2 {
		t.Errorf("expected land 3 and food 2, got %d and %d", m.LandImpactScore, m.FoodSecurityScore)
	}
	if m.TotalHeatReduction != 0 || m.TotalFloodReduction != 0 {
		t.Errorf("expected no heat/flood contribution, got %f/%f", m.TotalHeatReduction, m.TotalFloodReduction)
	}
}

func TestComputeZeroBudget(t *testing.T) {
	s := testScenario()
	s.Budget = 0
	_, err := Compute(map[string]models.Money{"Riverside-Green Roofs": 1000000}, s)
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
	if cfgErr.Field != "budget" {
		t.Errorf("expected budget field, got %q", cfgErr.Field)
	}
}

func TestCheckBudget(t *testing.T) {
	tests := []struct {
		name        string
		spent       models.Money
		over, sig   bool
		wantValid   bool
		wantMessage string
	}{
		{"under", 4000000, false, false, true, msgBudgetValid},
		{"exact", 5000000, false, false, true, msgBudgetValid},
		{"over", 5500000, true, false, true, msgBudgetOver},
		{"at threshold", 6000000, true, false, true, msgBudgetOver},
		{"rejected", 6200000, true, true, false, msgBudgetRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CheckBudget(tt.spent, 5000000)
			if got.OverBudget != tt.over || got.SignificantlyOverBudget != tt.sig || got.Valid != tt.wantValid {
				t.Errorf("CheckBudget(%d) = %+v", tt.spent, got)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("expected message %q, got %q", tt.wantMessage, got.Message)
			}
		})
	}
}
