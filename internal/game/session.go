// Package game drives one play-through of a scenario: briefing, stakeholder
// chat, decisions with assessment feedback, a follow-up objective, and the
// final impact guess.
package game

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/tatianab/impact-sandbox/internal/engine"
	"github.com/tatianab/impact-sandbox/internal/models"
	"github.com/tatianab/impact-sandbox/internal/sandbox"
)

// OverBudgetPenalty is the extra credibility lost when an accepted decision
// spends past the budget.
const OverBudgetPenalty = -10

const objectiveGreeting = "Now that we've seen the results of your previous decisions, we need to focus on our new priority: %s. What would you like to discuss?"

// Feedback is the result of an accepted decision.
type Feedback struct {
	Assessment        models.Assessment
	Metrics           sandbox.Metrics
	CredibilityChange int
	Credibility       int
}

type Session struct {
	id       string
	scenario models.Scenario
	provider engine.Provider
	state    *sandbox.State
	phase    Phase
	result   *sandbox.Result

	logger *slog.Logger
	now    func() time.Time
}

type Option func(*Session)

func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// NewSession starts a play-through of scenario in the briefing phase.
func NewSession(scenario *models.Scenario, provider engine.Provider, opts ...Option) (*Session, error) {
	if provider == nil {
		provider = engine.Disabled{}
	}
	s := &Session{
		id:       uuid.NewString(),
		scenario: scenario.Copy(),
		provider: provider,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("session", s.id, "scenario", scenario.ID)

	if err := s.reset(); err != nil {
		return nil, err
	}
	s.logger.Info("session started", "title", scenario.Title)
	return s, nil
}

func (s *Session) reset() error {
	st, err := sandbox.NewState(&s.scenario, sandbox.WithClock(s.now))
	if err != nil {
		return err
	}
	s.state = st
	s.phase = PhaseBriefing
	s.result = nil
	return nil
}

func (s *Session) ID() string { return s.id }
func (s *Session) Phase() Phase { return s.phase }
func (s *Session) State() *sandbox.State { return s.state }
func (s *Session) Context() sandbox.Context { return s.state.Context() }
func (s *Session) Scenario() models.Scenario { return s.scenario.Copy() }
func (s *Session) Result() *sandbox.Result { return s.result }
func (s *Session) Stakeholders() []string { return s.scenario.Stakeholders() }

// Transcript returns the chat with one stakeholder, oldest first.
func (s *Session) Transcript(stakeholder string) []sandbox.ChatMessage {
	return s.state.ChatMessages(stakeholder)
}

func (s *Session) moveTo(action string, next Phase) error {
	if !s.phase.canMoveTo(next) {
		return phaseError(action, s.phase)
	}
	s.logger.Debug("phase change", "from", s.phase, "to", next)
	s.phase = next
	return nil
}

func (s *Session) StartChat() error {
	return s.moveTo("start chat", PhaseChat)
}

func (s *Session) StartDecision() error {
	return s.moveTo("start decision", PhaseDecision)
}

// BeginNewObjective moves from feedback to the follow-up round. Each
// stakeholder with a new objective opens the conversation by announcing it.
func (s *Session) BeginNewObjective() error {
	if err := s.moveTo("begin new objective", PhaseNewObjective); err != nil {
		return err
	}
	for _, name := range s.scenario.Stakeholders() {
		objective := s.scenario.Personas[name].NewObjective
		if objective == "" {
			continue
		}
		s.state.RecordChatMessage(name, sandbox.ChatMessage{
			From: sandbox.SpeakerAgent,
			Text: fmt.Sprintf(objectiveGreeting, objective),
			Mood: models.MoodNeutral,
		})
	}
	return nil
}

// Ask sends a message to one stakeholder. A failed collaborator call yields
// the canned apology and leaves the state untouched.
func (s *Session) Ask(ctx context.Context, stakeholder, message string) (models.StakeholderReply, error) {
	if s.phase != PhaseChat && s.phase != PhaseNewObjective {
		return models.StakeholderReply{}, phaseError("ask", s.phase)
	}
	if !slices.Contains(s.scenario.Stakeholders(), stakeholder) {
		return models.StakeholderReply{}, &sandbox.ConfigurationError{
			Field:  "stakeholder",
			Reason: fmt.Sprintf("%q is not part of this scenario", stakeholder),
		}
	}
	if message == "" {
		message = engine.DefaultMessage
	}

	history := s.state.ChatMessages(stakeholder)
	if len(history) > engine.MaxHistory {
		history = history[len(history)-engine.MaxHistory:]
	}
	q := engine.StakeholderQuery{
		Stakeholder: stakeholder,
		Message:     message,
		History:     history,
		Context:     s.state.Context(),
	}
	if s.phase == PhaseNewObjective {
		q.Objective = s.scenario.Personas[stakeholder].NewObjective
	}

	reply, err := s.provider.AskStakeholder(ctx, q)
	if err != nil {
		s.logger.Warn("stakeholder reply failed, using fallback", "stakeholder", stakeholder, "error", err)
		return engine.FallbackReply(), nil
	}

	credibility := s.state.AdjustCredibility(reply.CredibilityDelta)
	s.state.RecordStakeholderResponse(stakeholder, reply)
	s.state.RecordChatMessage(stakeholder, sandbox.ChatMessage{From: sandbox.SpeakerUser, Text: message})
	s.state.RecordChatMessage(stakeholder, sandbox.ChatMessage{From: sandbox.SpeakerAgent, Text: reply.Text, Mood: reply.Mood})
	s.logger.Info("stakeholder replied",
		"stakeholder", stakeholder,
		"mood", reply.Mood,
		"delta", reply.CredibilityDelta,
		"credibility", credibility,
	)
	return reply, nil
}

// SubmitDecision commits a set of allocations. Proposals past 1.2 times the
// budget are rejected with ErrBudgetRejected and change nothing.
func (s *Session) SubmitDecision(ctx context.Context, allocations map[string]models.Money) (*Feedback, error) {
	if s.phase != PhaseDecision {
		return nil, phaseError("submit decision", s.phase)
	}
	if err := sandbox.ValidateAllocations(allocations, &s.scenario); err != nil {
		return nil, err
	}
	proposed, err := sandbox.Compute(allocations, &s.scenario)
	if err != nil {
		return nil, err
	}
	status := sandbox.CheckBudget(proposed.TotalSpent, s.scenario.Budget)
	if status.SignificantlyOverBudget {
		s.logger.Info("decision rejected", "spent", proposed.TotalSpent, "budget", s.scenario.Budget)
		return nil, fmt.Errorf("%s (%s of %s): %w", status.Message, proposed.TotalSpent, s.scenario.Budget, sandbox.ErrBudgetRejected)
	}

	payload := sandbox.DecisionPayload{
		Kind:        sandbox.DecisionAllocation,
		Allocations: maps.Clone(allocations),
		TotalCost:   proposed.TotalSpent,
	}

	// The assessor sees the proposal as if it were committed. State changes
	// only once it has answered or been replaced by the fallback.
	c := s.state.Context()
	c.Allocations = maps.Clone(allocations)
	c.Metrics = proposed
	c.RecentDecision = &sandbox.Decision{
		Payload:           payload,
		Timestamp:         s.now(),
		CredibilityAtTime: c.Credibility,
	}
	assessment, err := s.provider.AssessDecision(ctx, c)
	if err != nil {
		s.logger.Warn("assessment failed, using fallback", "error", err)
		assessment = engine.FallbackAssessment(&c.Scenario, status)
	}
	assessment.BudgetStatus = status

	s.state.SetAllocations(allocations)
	s.state.AddDecision(payload)

	change := assessment.TotalCredibilityChange()
	if status.OverBudget {
		change += OverBudgetPenalty
	}
	before := s.state.Credibility()
	after := s.state.AdjustCredibility(change)
	s.phase = PhaseFeedback

	s.logger.Info("decision accepted",
		"spent", proposed.TotalSpent,
		"over_budget", status.OverBudget,
		"degraded", assessment.Degraded,
		"credibility", after,
	)
	return &Feedback{
		Assessment:        assessment,
		Metrics:           s.state.Metrics(),
		CredibilityChange: after - before,
		Credibility:       after,
	}, nil
}

// SubmitGuess scores the player's env/econ/social estimate and ends the round.
func (s *Session) SubmitGuess(guess models.Impact) (sandbox.Result, error) {
	if s.phase != PhaseFeedback && s.phase != PhaseNewObjective {
		return sandbox.Result{}, phaseError("submit guess", s.phase)
	}
	if err := sandbox.ValidateGuess(guess); err != nil {
		return sandbox.Result{}, err
	}
	r := sandbox.Evaluate(guess, &s.scenario)
	s.result = &r
	s.phase = PhaseOutcome
	s.logger.Info("guess scored", "score", r.Score)
	return r, nil
}

// Restart discards the play-through and returns to the briefing.
func (s *Session) Restart() error {
	s.logger.Info("session restarted")
	return s.reset()
}
