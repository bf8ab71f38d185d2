package main

import (
	"cmp"
	"slices"

	"github.com/tatianab/impact-sandbox/internal/models"
	"github.com/tatianab/impact-sandbox/internal/sandbox"
)

// greedyPlan builds a within-budget allocation that favours high-equity
// interventions, placing each one in the next neighborhood by priority.
func greedyPlan(s *models.Scenario) map[string]models.Money {
	interventions := s.InterventionNames()
	slices.SortStableFunc(interventions, func(a, b string) int {
		ia, ib := s.Interventions[a], s.Interventions[b]
		if c := cmp.Compare(ib.EquityImpact.Points(), ia.EquityImpact.Points()); c != 0 {
			return c
		}
		return cmp.Compare(ia.Cost, ib.Cost)
	})

	// Most vulnerable neighborhoods first; names break ties.
	neighborhoods := s.NeighborhoodNames()
	slices.SortStableFunc(neighborhoods, func(a, b string) int {
		return cmp.Compare(s.Neighborhoods[b].VulnerablePopulation, s.Neighborhoods[a].VulnerablePopulation)
	})

	plan := make(map[string]models.Money)
	if len(neighborhoods) == 0 {
		return plan
	}
	var spent models.Money
	for i, name := range interventions {
		cost := s.Interventions[name].Cost
		if cost <= 0 || spent+cost > s.Budget {
			continue
		}
		plan[sandbox.AllocationKey(neighborhoods[i%len(neighborhoods)], name)] = cost
		spent += cost
	}
	return plan
}
