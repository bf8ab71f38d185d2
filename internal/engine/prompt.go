package engine

import (
	"bytes"
	"embed"
	"fmt"
	"slices"
	"strings"
	"text/template"

	"github.com/tatianab/impact-sandbox/internal/models"
	"github.com/tatianab/impact-sandbox/internal/sandbox"
)

//go:embed prompts/*.txt
var promptFS embed.FS

var prompts = template.Must(template.New("prompts").Funcs(template.FuncMap{
	"join": strings.Join,
	"yesno": func(b bool) string {
		if b {
			return "Yes"
		}
		return "No"
	},
}).ParseFS(promptFS, "prompts/*.txt"))

// Consequence keys the assessor is asked to fill in, per scenario kind.
var consequenceKeys = map[models.Kind][]string{
	models.KindHeatFlood: {"floodRiskMitigation", "heatReduction", "equityImplications", "longTermCosts", "overallViability"},
	models.KindEnergy:    {"energyOutput", "landUseImpact", "foodSecurity", "jobCreation", "overallViability"},
}

type neighborhoodLine struct {
	Name    string
	Details string
}

type allocationLine struct {
	Neighborhood string
	Intervention string
	Cost         models.Money
}

type historyLine struct {
	Speaker string
	Text    string
}

type stakeholderLine struct {
	Name       string
	Priorities []string
}

type stakeholderData struct {
	Stakeholder    string
	Objective      string
	Message        string
	Title          string
	Kind           models.Kind
	Persona        models.Persona
	Budget         models.Money
	Remaining      models.Money
	UsedPercent    float64
	Credibility    int
	Neighborhoods  []neighborhoodLine
	Allocations    []allocationLine
	RecentDecision string
	History        []historyLine
}

type assessmentData struct {
	Title           string
	Kind            models.Kind
	Budget          models.Money
	Metrics         sandbox.Metrics
	Status          models.BudgetStatus
	Credibility     int
	Neighborhoods   []neighborhoodLine
	Allocations     []allocationLine
	Stakeholders    []stakeholderLine
	ConsequenceKeys []string
}

func renderStakeholderPrompt(q StakeholderQuery) (string, error) {
	s := &q.Context.Scenario
	objective := q.Objective
	if objective == "" {
		objective = s.PersonaGoals[q.Stakeholder]
	}
	data := stakeholderData{
		Stakeholder:    q.Stakeholder,
		Objective:      objective,
		Message:        q.Message,
		Title:          s.Title,
		Kind:           s.Kind,
		Persona:        s.Personas[q.Stakeholder],
		Budget:         s.Budget,
		Remaining:      q.Context.Metrics.RemainingBudget,
		UsedPercent:    q.Context.Metrics.BudgetUsedPercent,
		Credibility:    q.Context.Credibility,
		Neighborhoods:  neighborhoodLines(s),
		Allocations:    allocationLines(q.Context.Allocations, s),
		RecentDecision: describeDecision(q.Context.RecentDecision, s),
		History:        historyLines(q.History, q.Stakeholder),
	}
	return render("stakeholder_response.txt", data)
}

func renderAssessmentPrompt(c sandbox.Context, status models.BudgetStatus) (string, error) {
	s := &c.Scenario
	var stakeholders []stakeholderLine
	for _, name := range s.Stakeholders() {
		stakeholders = append(stakeholders, stakeholderLine{Name: name, Priorities: s.Personas[name].Priorities})
	}
	keys, ok := consequenceKeys[s.Kind]
	if !ok {
		keys = consequenceKeys[models.KindHeatFlood]
	}
	data := assessmentData{
		Title:           s.Title,
		Kind:            s.Kind,
		Budget:          s.Budget,
		Metrics:         c.Metrics,
		Status:          status,
		Credibility:     c.Credibility,
		Neighborhoods:   neighborhoodLines(s),
		Allocations:     allocationLines(c.Allocations, s),
		Stakeholders:    stakeholders,
		ConsequenceKeys: keys,
	}
	return render("decision_assessment.txt", data)
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := prompts.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func neighborhoodLines(s *models.Scenario) []neighborhoodLine {
	var lines []neighborhoodLine
	for _, name := range s.NeighborhoodNames() {
		n := s.Neighborhoods[name]
		var details string
		if s.Kind == models.KindEnergy {
			details = fmt.Sprintf("land use %s, %s solar potential, %s grid access", n.LandUse, n.SolarPotential, n.GridAccess)
		} else {
			details = fmt.Sprintf("%s flood risk, %s heat index, %g%% vulnerable population", n.FloodRisk, n.HeatIndex, n.VulnerablePopulation)
		}
		lines = append(lines, neighborhoodLine{Name: name, Details: details})
	}
	return lines
}

// historyLines keeps the last MaxHistory chat lines and names who said each.
func historyLines(history []sandbox.ChatMessage, stakeholder string) []historyLine {
	if len(history) > MaxHistory {
		history = history[len(history)-MaxHistory:]
	}
	lines := make([]historyLine, 0, len(history))
	for _, m := range history {
		speaker := "Player"
		if m.From == sandbox.SpeakerAgent {
			speaker = stakeholder
		}
		lines = append(lines, historyLine{Speaker: speaker, Text: m.Text})
	}
	return lines
}

func allocationLines(allocations map[string]models.Money, s *models.Scenario) []allocationLine {
	keys := make([]string, 0, len(allocations))
	for k := range allocations {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	lines := make([]allocationLine, 0, len(keys))
	for _, k := range keys {
		n, in, _ := sandbox.SplitAllocationKey(k, s)
		lines = append(lines, allocationLine{Neighborhood: n, Intervention: in, Cost: allocations[k]})
	}
	return lines
}

// describeDecision summarises the projected impact of the most recent
// decision, or returns "" when there is none.
func describeDecision(d *sandbox.Decision, s *models.Scenario) string {
	if d == nil || len(d.Payload.Allocations) == 0 {
		return ""
	}
	m, err := sandbox.Compute(d.Payload.Allocations, s)
	if err != nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Recent decision: %d allocation(s) totalling %s. ", m.AllocationCount, m.TotalSpent.Millions())
	if s.Kind == models.KindEnergy {
		fmt.Fprintf(&b, "This provides %g MW of output and %g jobs, with land impact score %d and food security score %d.",
			m.TotalEnergyOutput, m.TotalJobsCreated, m.LandImpactScore, m.FoodSecurityScore)
	} else {
		fmt.Fprintf(&b, "This provides %g°C heat reduction and %g%% flood reduction, with equity score %d.",
			m.TotalHeatReduction, m.TotalFloodReduction, m.EquityScore)
	}
	return b.String()
}
