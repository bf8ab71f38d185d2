package game

import (
	"errors"
	"fmt"
	"slices"
)

// Phase is a step of the decision loop.
type Phase string

const (
	PhaseBriefing     Phase = "briefing"
	PhaseChat         Phase = "chat"
	PhaseDecision     Phase = "decision"
	PhaseFeedback     Phase = "feedback"
	PhaseNewObjective Phase = "new_objective"
	PhaseOutcome      Phase = "outcome"
)

// ErrInvalidPhase is returned when an action is not allowed in the current phase.
var ErrInvalidPhase = errors.New("action not allowed in this phase")

var transitions = map[Phase][]Phase{
	PhaseBriefing:     {PhaseChat, PhaseDecision},
	PhaseChat:         {PhaseDecision},
	PhaseDecision:     {PhaseChat, PhaseFeedback},
	PhaseFeedback:     {PhaseDecision, PhaseNewObjective, PhaseOutcome},
	PhaseNewObjective: {PhaseOutcome},
	PhaseOutcome:      {},
}

func (p Phase) canMoveTo(next Phase) bool {
	return slices.Contains(transitions[p], next)
}

func phaseError(action string, p Phase) error {
	return fmt.Errorf("%s during %s: %w", action, p, ErrInvalidPhase)
}
