package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/tatianab/impact-sandbox/internal/config"
	"github.com/tatianab/impact-sandbox/internal/engine"
	"github.com/tatianab/impact-sandbox/internal/game"
	"github.com/tatianab/impact-sandbox/internal/models"
	"google.golang.org/api/option"
)

const stockQuestion = "What matters most to you in this decision?"

func main() {
	ctx := context.Background()
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	scenarios, err := models.LoadCatalog(cfg.ScenarioDir)
	if err != nil {
		log.Fatalf("Failed to load scenarios: %v", err)
	}
	id := "1"
	if len(os.Args) > 1 {
		id = os.Args[1]
	}
	scenario, ok := models.FindScenario(scenarios, id)
	if !ok {
		log.Fatalf("No scenario with id %q", id)
	}

	// The assessor plays the stakeholders; an optional player model writes
	// the questions.
	var provider engine.Provider = engine.Disabled{}
	var playerModel *genai.GenerativeModel
	if !cfg.Offline {
		eng, err := engine.NewEngine(ctx, cfg.GeminiAPIKey, engine.Options{Model: cfg.Model, Timeout: cfg.RequestTimeout, Logger: logger})
		if err != nil {
			log.Fatalf("Failed to create engine: %v", err)
		}
		defer eng.Close()
		provider = eng

		playerClient, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
		if err != nil {
			log.Fatalf("Failed to create player client: %v", err)
		}
		defer playerClient.Close()
		playerModel = playerClient.GenerativeModel(cfg.Model)
	}

	session, err := game.NewSession(scenario, provider, game.WithLogger(logger))
	if err != nil {
		log.Fatalf("Failed to start session: %v", err)
	}

	fmt.Printf("--- Briefing: %s ---\n%s\nBudget: %s\n\n", scenario.Title, scenario.Summary, scenario.Budget)

	fmt.Println("--- Step 1: Stakeholder consultation ---")
	if err := session.StartChat(); err != nil {
		log.Fatal(err)
	}
	for _, name := range session.Stakeholders() {
		question := playerQuestion(ctx, playerModel, scenario, name)
		reply, err := session.Ask(ctx, name, question)
		if err != nil {
			log.Fatalf("Ask %s: %v", name, err)
		}
		printReply(name, question, reply)
	}

	fmt.Println("--- Step 2: Decision ---")
	if err := session.StartDecision(); err != nil {
		log.Fatal(err)
	}
	plan := greedyPlan(scenario)
	for _, key := range slices.Sorted(maps.Keys(plan)) {
		fmt.Printf("Allocate %s: %s\n", key, plan[key])
	}
	fb, err := session.SubmitDecision(ctx, plan)
	if err != nil {
		log.Fatalf("Decision failed: %v", err)
	}
	fmt.Printf("\n%s (spent %s, remaining %s)\n", fb.Assessment.BudgetStatus.Message, fb.Metrics.TotalSpent, fb.Metrics.RemainingBudget)
	for _, name := range slices.Sorted(maps.Keys(fb.Assessment.StakeholderReactions)) {
		r := fb.Assessment.StakeholderReactions[name]
		fmt.Printf("%s (%+d): %s\n", name, r.CredibilityChange, r.Reaction)
	}
	for _, k := range slices.Sorted(maps.Keys(fb.Assessment.ScenarioConsequence)) {
		fmt.Printf("Consequence %s: %s\n", k, fb.Assessment.ScenarioConsequence[k])
	}
	fmt.Printf("Credibility %+d, now %d%%\n\n", fb.CredibilityChange, fb.Credibility)

	fmt.Println("--- Step 3: New objectives ---")
	if err := session.BeginNewObjective(); err != nil {
		log.Fatal(err)
	}
	for _, name := range session.Stakeholders() {
		objective := scenario.Personas[name].NewObjective
		if objective == "" {
			continue
		}
		question := fmt.Sprintf("How should we approach %s?", strings.ToLower(objective))
		reply, err := session.Ask(ctx, name, question)
		if err != nil {
			log.Fatalf("Ask %s: %v", name, err)
		}
		printReply(name, question, reply)
	}

	fmt.Println("--- Step 4: Impact estimate ---")
	result, err := session.SubmitGuess(models.Impact{Env: 5, Econ: 5, Social: 5})
	if err != nil {
		log.Fatalf("Guess failed: %v", err)
	}
	fmt.Printf("Guess:  env %.1f, econ %.1f, social %.1f\n", result.Guess.Env, result.Guess.Econ, result.Guess.Social)
	fmt.Printf("Actual: env %.1f, econ %.1f, social %.1f\n", result.Actual.Env, result.Actual.Econ, result.Actual.Social)
	fmt.Printf("Score: %d\nFinal credibility: %d%%\n", result.Score, session.State().Credibility())
}

func printReply(name, question string, reply models.StakeholderReply) {
	fmt.Printf("Player -> %s: %s\n", name, question)
	fmt.Printf("%s (%s, %+d): %s\n", name, reply.Mood, reply.CredibilityDelta, reply.Text)
	if reply.Degraded {
		fmt.Println("(fallback reply)")
	}
	fmt.Println()
}

// playerQuestion asks the player model what to say to a stakeholder. Without
// a model, or on any failure, it falls back to a stock question.
func playerQuestion(ctx context.Context, model *genai.GenerativeModel, s *models.Scenario, stakeholder string) string {
	if model == nil {
		return stockQuestion
	}
	prompt := fmt.Sprintf(`You are a city planner playing a decision-making simulation.
Scenario: %s
%s
Budget: %s
You are about to speak with %s, whose goal is: %s

Ask them one short question. Return ONLY the question.`,
		s.Title, s.Summary, s.Budget.Millions(), stakeholder, s.PersonaGoals[stakeholder])

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return stockQuestion
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return stockQuestion
	}
	q := strings.TrimSpace(fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0]))
	if q == "" {
		return stockQuestion
	}
	return q
}
