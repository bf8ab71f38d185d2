package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/tatianab/impact-sandbox/internal/models"
	"github.com/tatianab/impact-sandbox/internal/sandbox"
)

// stubGenerator returns a canned answer and remembers the prompt it was given.
type stubGenerator struct {
	text   string
	err    error
	prompt string
	calls  int
}

func (g *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.calls++
	g.prompt = prompt
	if _, ok := ctx.Deadline(); !ok {
		return "", errors.New("generate called without a deadline")
	}
	return g.text, g.err
}

func builtin(t *testing.T, id string) *models.Scenario {
	t.Helper()
	scenarios, err := models.BuiltinScenarios()
	if err != nil {
		t.Fatal(err)
	}
	s, ok := models.FindScenario(scenarios, id)
	if !ok {
		t.Fatalf("scenario %s not found", id)
	}
	return s
}

func testContext(t *testing.T, id string, allocations map[string]models.Money) sandbox.Context {
	t.Helper()
	st, err := sandbox.NewState(builtin(t, id))
	if err != nil {
		t.Fatal(err)
	}
	st.SetAllocations(allocations)
	if len(allocations) > 0 {
		st.AddDecision(sandbox.DecisionPayload{Kind: sandbox.DecisionAllocation, Allocations: allocations})
	}
	return st.Context()
}

func TestAskStakeholder(t *testing.T) {
	g := &stubGenerator{text: "```json\n{\"response\": \"Green roofs in Riverside? Good start.\", \"credibilityChange\": 12, \"mood\": \"Pleased\"}\n```"}
	e := newEngine(g, nil, Options{})

	c := testContext(t, "1", map[string]models.Money{"Riverside-Green Roofs": 1000000})
	reply, err := e.AskStakeholder(context.Background(), StakeholderQuery{Stakeholder: "City Council", Context: c})
	if err != nil {
		t.Fatalf("AskStakeholder failed: %v", err)
	}
	if reply.Text != "Green roofs in Riverside? Good start." || reply.CredibilityDelta != 12 || reply.Mood != models.MoodPleased {
		t.Errorf("unexpected reply: %+v", reply)
	}
	if reply.Degraded {
		t.Error("a parsed reply should not be degraded")
	}

	for _, want := range []string{
		"City Council",
		DefaultMessage,
		"Maximize city efficiency and stay within budget",
		"Green Roofs in Riverside: $1.0M",
		"$5.0M total, $4.0M remaining",
		"Current Credibility: 85%",
		"Recent decision: 1 allocation(s) totalling $1.0M",
	} {
		if !strings.Contains(g.prompt, want) {
			t.Errorf("prompt is missing %q:\n%s", want, g.prompt)
		}
	}
	if strings.Contains(g.prompt, "6.5") {
		t.Error("prompt leaks the hidden actuals")
	}
}

func TestAskStakeholderReplaysHistory(t *testing.T) {
	g := &stubGenerator{text: `{"response": "As I said, watch the costs.", "credibilityChange": 0, "mood": "neutral"}`}
	e := newEngine(g, nil, Options{})

	var history []sandbox.ChatMessage
	for i := range 12 {
		history = append(history,
			sandbox.ChatMessage{From: sandbox.SpeakerUser, Text: fmt.Sprintf("question %d", i)},
			sandbox.ChatMessage{From: sandbox.SpeakerAgent, Text: fmt.Sprintf("answer %d", i)},
		)
	}
	_, err := e.AskStakeholder(context.Background(), StakeholderQuery{
		Stakeholder: "City Council",
		Message:     "And now?",
		History:     history,
		Context:     testContext(t, "1", nil),
	})
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{"Conversation so far:", "Player: question 7", "City Council: answer 11"} {
		if !strings.Contains(g.prompt, want) {
			t.Errorf("prompt is missing %q:\n%s", want, g.prompt)
		}
	}
	if strings.Contains(g.prompt, "question 6") {
		t.Errorf("expected only the last %d lines of history:\n%s", MaxHistory, g.prompt)
	}
	if strings.Index(g.prompt, "answer 11") > strings.Index(g.prompt, `"And now?"`) {
		t.Error("history should come before the new question")
	}
}

func TestAskStakeholderWithoutHistory(t *testing.T) {
	g := &stubGenerator{text: `{"response": "ok", "mood": "neutral"}`}
	e := newEngine(g, nil, Options{})
	if _, err := e.AskStakeholder(context.Background(), StakeholderQuery{Stakeholder: "City Council", Context: testContext(t, "1", nil)}); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(g.prompt, "Conversation so far") {
		t.Error("expected no conversation block for a first message")
	}
}

func TestAskStakeholderObjectiveOverride(t *testing.T) {
	g := &stubGenerator{text: `{"response": "ok", "credibilityChange": 0, "mood": "neutral"}`}
	e := newEngine(g, nil, Options{})
	c := testContext(t, "2", nil)

	_, err := e.AskStakeholder(context.Background(), StakeholderQuery{
		Stakeholder: "Farmers' Association",
		Message:     "Can we share the land?",
		Objective:   "Negotiate a lease",
		Context:     c,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(g.prompt, "Objective: Negotiate a lease") || !strings.Contains(g.prompt, "Can we share the land?") {
		t.Errorf("prompt did not carry the override:\n%s", g.prompt)
	}
	if !strings.Contains(g.prompt, "Energy & Land Status") {
		t.Error("expected energy wording for an energy scenario")
	}
}

func TestAskStakeholderErrors(t *testing.T) {
	c := testContext(t, "1", nil)
	tests := []struct {
		name string
		gen  *stubGenerator
	}{
		{"generator failure", &stubGenerator{err: errors.New("quota exceeded")}},
		{"not json", &stubGenerator{text: "I think that's fine: really [unclosed"}},
		{"empty text", &stubGenerator{text: `{"response": "  ", "credibilityChange": 5}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(tt.gen, nil, Options{})
			_, err := e.AskStakeholder(context.Background(), StakeholderQuery{Stakeholder: "City Council", Context: c})
			var extErr *sandbox.ExternalServiceError
			if !errors.As(err, &extErr) {
				t.Fatalf("expected ExternalServiceError, got %v", err)
			}
			if extErr.Op != "ask stakeholder" {
				t.Errorf("unexpected op %q", extErr.Op)
			}
		})
	}
}

func TestParseReplyClampsAndNormalises(t *testing.T) {
	tests := []struct {
		text  string
		delta int
		mood  models.Mood
	}{
		{`{"response": "x", "credibilityChange": 45, "mood": "furious"}`, 20, models.MoodNeutral},
		{`{"response": "x", "credibilityChange": -33.7, "mood": "ANGRY"}`, -20, models.MoodAngry},
		{`{"response": "x", "credibilityChange": 4.6}`, 5, models.MoodNeutral},
		{"{\n\t\"response\": \"x\",\n\t\"mood\": \"worried\"\n}", 0, models.MoodWorried},
	}
	for _, tt := range tests {
		r, err := parseReply(tt.text)
		if err != nil {
			t.Errorf("parseReply(%q): %v", tt.text, err)
			continue
		}
		if r.CredibilityDelta != tt.delta || r.Mood != tt.mood {
			t.Errorf("parseReply(%q) = %+v, want delta %d mood %s", tt.text, r, tt.delta, tt.mood)
		}
	}
}

func TestCleanResponseKeepsTabsInStrings(t *testing.T) {
	text := "```json\n{\n\t\"response\": \"Costs:\tHigh\",\n\t\"mood\": \"neutral\"\n}\n```"
	got := cleanResponse(text)
	if strings.Contains(got, "\n\t") {
		t.Errorf("indentation tabs were kept: %q", got)
	}
	r, err := parseReply(text)
	if err != nil {
		t.Fatal(err)
	}
	if r.Text != "Costs:\tHigh" {
		t.Errorf("expected the tab inside the string to survive, got %q", r.Text)
	}
}

func TestAssessDecision(t *testing.T) {
	g := &stubGenerator{text: `{
  "stakeholderReactions": {
    "City Council": {"reaction": "Fiscally sound.", "credibilityChange": 8},
    "Local Businesses": {"reaction": "Too much disruption.", "credibilityChange": -50}
  },
  "scenarioConsequence": {"overallViability": "Viable", "heatReduction": 1.5},
  "budgetStatus": {"valid": false, "overBudget": true, "significantlyOverBudget": true, "message": "made up"}
}`}
	e := newEngine(nil, g, Options{})

	c := testContext(t, "1", map[string]models.Money{
		"Riverside-Sea Wall":       2500000,
		"Downtown-Sea Wall":        2500000,
		"Eastside-Cooling Centers": 600000,
	})
	a, err := e.AssessDecision(context.Background(), c)
	if err != nil {
		t.Fatalf("AssessDecision failed: %v", err)
	}

	if got := a.StakeholderReactions["Local Businesses"].CredibilityChange; got != -20 {
		t.Errorf("expected clamped -20, got %d", got)
	}
	if a.TotalCredibilityChange() != -12 {
		t.Errorf("expected total -12, got %d", a.TotalCredibilityChange())
	}
	if a.ScenarioConsequence["heatReduction"] != "1.5" {
		t.Errorf("expected consequence values as text, got %q", a.ScenarioConsequence["heatReduction"])
	}

	// 5.6M against 5M is over budget but within the rejection threshold.
	want := sandbox.CheckBudget(5600000, 5000000)
	if a.BudgetStatus != want || !a.BudgetStatus.Valid || !a.BudgetStatus.OverBudget {
		t.Errorf("expected locally computed status %+v, got %+v", want, a.BudgetStatus)
	}

	for _, want := range []string{"Over Budget: Yes", "Significantly Over Budget: No", "- Local Businesses", "floodRiskMitigation"} {
		if !strings.Contains(g.prompt, want) {
			t.Errorf("assessment prompt is missing %q", want)
		}
	}
}

func TestAssessDecisionRequiresReactions(t *testing.T) {
	g := &stubGenerator{text: `{"stakeholderReactions": {}, "scenarioConsequence": {"overallViability": "?"}}`}
	e := newEngine(nil, g, Options{})
	_, err := e.AssessDecision(context.Background(), testContext(t, "2", nil))
	var extErr *sandbox.ExternalServiceError
	if !errors.As(err, &extErr) || extErr.Op != "assess decision" {
		t.Fatalf("expected ExternalServiceError from assess decision, got %v", err)
	}
}

func TestGenerateTimeout(t *testing.T) {
	blocking := generatorFunc(func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	e := newEngine(blocking, nil, Options{Timeout: 10 * time.Millisecond})
	_, err := e.AskStakeholder(context.Background(), StakeholderQuery{Stakeholder: "City Council", Context: testContext(t, "1", nil)})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

type generatorFunc func(ctx context.Context, prompt string) (string, error)

func (f generatorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

func TestNewEngineRequiresKey(t *testing.T) {
	if _, err := NewEngine(context.Background(), "", Options{}); err == nil {
		t.Error("expected an error for an empty api key")
	}
}

func TestDisabled(t *testing.T) {
	var p Provider = Disabled{}
	_, err := p.AskStakeholder(context.Background(), StakeholderQuery{})
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("expected ErrDisabled, got %v", err)
	}
	_, err = p.AssessDecision(context.Background(), sandbox.Context{})
	var extErr *sandbox.ExternalServiceError
	if !errors.As(err, &extErr) || !errors.Is(err, ErrDisabled) {
		t.Errorf("expected wrapped ErrDisabled, got %v", err)
	}
}

func TestFallbackReply(t *testing.T) {
	r := FallbackReply()
	if r.Text != fallbackText || r.Mood != models.MoodNeutral || r.CredibilityDelta != 0 || !r.Degraded {
		t.Errorf("unexpected fallback: %+v", r)
	}
}

func TestFallbackAssessment(t *testing.T) {
	status := sandbox.CheckBudget(100, 5000000)

	heat := FallbackAssessment(builtin(t, "1"), status)
	if len(heat.StakeholderReactions) != 5 || heat.TotalCredibilityChange() != -15 {
		t.Errorf("unexpected heat fallback: %d reactions, total %d", len(heat.StakeholderReactions), heat.TotalCredibilityChange())
	}
	if !heat.Degraded || heat.BudgetStatus != status {
		t.Errorf("expected degraded fallback with the given status, got %+v", heat)
	}
	if heat.ScenarioConsequence["longTermCosts"] == "" {
		t.Error("expected heat consequences")
	}

	energy := FallbackAssessment(builtin(t, "2"), status)
	if len(energy.StakeholderReactions) != 6 || energy.TotalCredibilityChange() != 20 {
		t.Errorf("unexpected energy fallback: %d reactions, total %d", len(energy.StakeholderReactions), energy.TotalCredibilityChange())
	}

	custom := builtin(t, "1")
	custom.PersonaGoals["Harbor Authority"] = "Keep the port open"
	a := FallbackAssessment(custom, status)
	if r, ok := a.StakeholderReactions["Harbor Authority"]; !ok || r.CredibilityChange != 0 || r.Reaction == "" {
		t.Errorf("expected a neutral reaction for an unknown stakeholder, got %+v", r)
	}
}
