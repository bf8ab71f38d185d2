package engine

import (
	"context"
	"errors"

	"github.com/tatianab/impact-sandbox/internal/models"
	"github.com/tatianab/impact-sandbox/internal/sandbox"
)

const fallbackText = "I'm sorry, I'm having connection issues. Please try again."

// ErrDisabled is returned by the Disabled provider.
var ErrDisabled = errors.New("language model disabled")

// Disabled is a Provider for offline play. Every call fails, so callers
// always land on the canned fallbacks.
type Disabled struct{}

func (Disabled) AskStakeholder(context.Context, StakeholderQuery) (models.StakeholderReply, error) {
	return models.StakeholderReply{}, &sandbox.ExternalServiceError{Op: "ask stakeholder", Err: ErrDisabled}
}

func (Disabled) AssessDecision(context.Context, sandbox.Context) (models.Assessment, error) {
	return models.Assessment{}, &sandbox.ExternalServiceError{Op: "assess decision", Err: ErrDisabled}
}

// FallbackReply is the apology a stakeholder gives when the dialogue call fails.
func FallbackReply() models.StakeholderReply {
	return models.StakeholderReply{
		Text:     fallbackText,
		Mood:     models.MoodNeutral,
		Degraded: true,
	}
}

var cannedReactions = map[models.Kind]map[string]models.Reaction{
	models.KindHeatFlood: {
		"City Council":              {Reaction: "We need to review this decision carefully given the budget implications.", CredibilityChange: -10},
		"Residents' Representative": {Reaction: "I'm concerned about how this will affect our most vulnerable residents.", CredibilityChange: 0},
		"Urban Developers":          {Reaction: "The implementation timeline needs to be carefully managed.", CredibilityChange: 0},
		"Environmental NGO":         {Reaction: "This decision shows some promise for environmental sustainability.", CredibilityChange: 10},
		"Local Businesses":          {Reaction: "We're worried about the potential disruption to our operations.", CredibilityChange: -15},
	},
	models.KindEnergy: {
		"City Council":            {Reaction: "We need to carefully evaluate this decision against our climate goals and renewable energy targets.", CredibilityChange: -10},
		"Farmers' Association":    {Reaction: "We're deeply concerned about the impact on our agricultural land and rural livelihoods.", CredibilityChange: 15},
		"Environmental NGO":       {Reaction: "This decision shows promise for renewable energy but we need to ensure biodiversity safeguards.", CredibilityChange: 0},
		"Local Residents":         {Reaction: "We're torn between cheaper energy and concerns about food security and land use.", CredibilityChange: 10},
		"Solar Developer":         {Reaction: "We need to ensure this project can proceed efficiently with minimal regulatory delays.", CredibilityChange: -15},
		"Food Security Advocates": {Reaction: "We strongly oppose any decision that sacrifices farmland for energy production.", CredibilityChange: 20},
	},
}

var cannedConsequences = map[models.Kind]map[string]string{
	models.KindHeatFlood: {
		"floodRiskMitigation": "Moderate flood risk reduction achieved",
		"heatReduction":       "Some heat reduction benefits",
		"equityImplications":  "Mixed equity impact",
		"longTermCosts":       "Consider long-term maintenance costs",
		"overallViability":    "Decision is viable with some concerns",
	},
	models.KindEnergy: {
		"energyOutput":     "Moderate renewable energy generation achieved",
		"landUseImpact":    "Significant agricultural land use implications",
		"foodSecurity":     "Mixed impact on food security and agricultural economy",
		"jobCreation":      "Some employment opportunities created",
		"overallViability": "Decision is viable with significant trade-offs",
	},
}

// FallbackAssessment is the canned verdict used when the assessor fails.
// Stakeholders of custom scenarios without a canned line get a neutral one.
func FallbackAssessment(s *models.Scenario, status models.BudgetStatus) models.Assessment {
	kind := s.Kind
	if _, ok := cannedReactions[kind]; !ok {
		kind = models.KindHeatFlood
	}

	a := models.Assessment{
		StakeholderReactions: make(map[string]models.Reaction),
		ScenarioConsequence:  make(map[string]string),
		BudgetStatus:         status,
		Degraded:             true,
	}
	for _, name := range s.Stakeholders() {
		r, ok := cannedReactions[kind][name]
		if !ok {
			r = models.Reaction{Reaction: "We will need time to consider how this decision affects us."}
		}
		a.StakeholderReactions[name] = r
	}
	for k, v := range cannedConsequences[kind] {
		a.ScenarioConsequence[k] = v
	}
	return a
}
