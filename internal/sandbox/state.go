package sandbox

import (
	"maps"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/tatianab/impact-sandbox/internal/models"
)

const (
	DefaultCredibility = 85
	MinCredibility     = 0
	MaxCredibility     = 100

	// DefaultRecentLimit is how many responses RecentResponses returns when
	// asked for a non-positive number.
	DefaultRecentLimit = 5
)

// DecisionAllocation is the payload kind for a submitted set of allocations.
const DecisionAllocation = "intervention_allocation"

// Speaker identifies who said a chat line.
type Speaker string

const (
	SpeakerUser  Speaker = "user"
	SpeakerAgent Speaker = "agent"
)

// ChatMessage is one line of a stakeholder conversation.
type ChatMessage struct {
	From      Speaker
	Text      string
	Mood      models.Mood
	Timestamp time.Time
}

// DecisionPayload is what the player committed to.
type DecisionPayload struct {
	Kind        string
	Allocations map[string]models.Money
	TotalCost   models.Money
	Note        string
}

func (p DecisionPayload) clone() DecisionPayload {
	p.Allocations = maps.Clone(p.Allocations)
	return p
}

// Decision is an entry in the append-only decision log.
type Decision struct {
	ID                string
	Payload           DecisionPayload
	Timestamp         time.Time
	CredibilityAtTime int
}

func (d Decision) clone() Decision {
	d.Payload = d.Payload.clone()
	return d
}

// ResponseRecord is a stakeholder reply as logged by the state.
type ResponseRecord struct {
	Stakeholder string
	Reply       models.StakeholderReply
	Timestamp   time.Time
}

// Context is a detached snapshot of a play-through for the assessment
// collaborator. Mutating it never affects the State it came from.
type Context struct {
	Scenario       models.Scenario
	Allocations    map[string]models.Money
	Credibility    int
	Metrics        Metrics
	RecentDecision *Decision
}

// State tracks one play-through of a scenario. All mutation goes through its
// methods. A State is owned by a single session and is not safe for
// concurrent use.
type State struct {
	scenario    models.Scenario
	allocations map[string]models.Money
	metrics     Metrics
	credibility int
	decisions   []Decision

	responses     map[string][]ResponseRecord
	responseOrder []string
	chats         map[string][]ChatMessage

	now   func() time.Time
	newID func() string
}

// Option configures a State.
type Option func(*State)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *State) { s.now = now }
}

// WithCredibility sets the starting credibility, clamped to [0,100].
func WithCredibility(c int) Option {
	return func(s *State) { s.credibility = clampCredibility(c) }
}

// NewState validates the scenario and starts an empty play-through of it.
func NewState(scenario *models.Scenario, opts ...Option) (*State, error) {
	if err := ValidateScenario(scenario); err != nil {
		return nil, err
	}
	s := &State{
		scenario:    scenario.Copy(),
		allocations: map[string]models.Money{},
		credibility: DefaultCredibility,
		responses:   map[string][]ResponseRecord{},
		chats:       map[string][]ChatMessage{},
		now:         time.Now,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.recompute()
	return s, nil
}

// SetAllocations replaces the allocation map and recomputes metrics. Budget
// ceilings are not enforced here.
func (s *State) SetAllocations(allocations map[string]models.Money) {
	s.allocations = maps.Clone(allocations)
	if s.allocations == nil {
		s.allocations = map[string]models.Money{}
	}
	s.recompute()
}

func (s *State) recompute() {
	// The scenario was validated in NewState, so Compute cannot fail here.
	m, _ := Compute(s.allocations, &s.scenario)
	s.metrics = m
}

// AddDecision appends a decision stamped with the current time and
// credibility, and returns the stored record.
func (s *State) AddDecision(payload DecisionPayload) Decision {
	d := Decision{
		ID:                s.newID(),
		Payload:           payload.clone(),
		Timestamp:         s.now(),
		CredibilityAtTime: s.credibility,
	}
	s.decisions = append(s.decisions, d)
	return d.clone()
}

// AdjustCredibility applies delta and clamps the result to [0,100].
func (s *State) AdjustCredibility(delta int) int {
	s.credibility = clampCredibility(s.credibility + delta)
	return s.credibility
}

func clampCredibility(c int) int {
	return min(MaxCredibility, max(MinCredibility, c))
}

// RecordStakeholderResponse appends a reply to the stakeholder's log. Names
// the scenario does not know get their own log.
func (s *State) RecordStakeholderResponse(stakeholder string, reply models.StakeholderReply) {
	if _, ok := s.responses[stakeholder]; !ok {
		s.responseOrder = append(s.responseOrder, stakeholder)
	}
	s.responses[stakeholder] = append(s.responses[stakeholder], ResponseRecord{
		Stakeholder: stakeholder,
		Reply:       reply,
		Timestamp:   s.now(),
	})
}

// RecordChatMessage appends a chat line to the stakeholder's transcript,
// stamping it with the current time.
func (s *State) RecordChatMessage(stakeholder string, msg ChatMessage) {
	msg.Timestamp = s.now()
	s.chats[stakeholder] = append(s.chats[stakeholder], msg)
}

// ChatMessages returns a copy of the stakeholder's transcript. It is never nil.
func (s *State) ChatMessages(stakeholder string) []ChatMessage {
	msgs := slices.Clone(s.chats[stakeholder])
	if msgs == nil {
		return []ChatMessage{}
	}
	return msgs
}

// ClearChatMessages empties the stakeholder's transcript.
func (s *State) ClearChatMessages(stakeholder string) {
	if _, ok := s.chats[stakeholder]; ok {
		s.chats[stakeholder] = nil
	}
}

// StakeholderHistory returns a copy of the stakeholder's logged replies.
func (s *State) StakeholderHistory(stakeholder string) []ResponseRecord {
	recs := slices.Clone(s.responses[stakeholder])
	if recs == nil {
		return []ResponseRecord{}
	}
	return recs
}

// RecentResponses returns up to limit replies across all stakeholders, newest
// first. Equal timestamps keep insertion order: stakeholders in the order they
// first replied, then each stakeholder's replies in order.
func (s *State) RecentResponses(limit int) []ResponseRecord {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	var all []ResponseRecord
	for _, name := range s.responseOrder {
		all = append(all, s.responses[name]...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Timestamp.After(all[j].Timestamp)
	})
	if len(all) > limit {
		all = all[:limit]
	}
	return all
}

// Context returns a deep-copied snapshot for the assessment collaborator.
func (s *State) Context() Context {
	c := Context{
		Scenario:    s.scenario.Copy(),
		Allocations: maps.Clone(s.allocations),
		Credibility: s.credibility,
		Metrics:     s.metrics,
	}
	if n := len(s.decisions); n > 0 {
		d := s.decisions[n-1].clone()
		c.RecentDecision = &d
	}
	return c
}

// Scenario returns a copy of the scenario being played.
func (s *State) Scenario() models.Scenario {
	return s.scenario.Copy()
}

// Allocations returns a copy of the current allocations.
func (s *State) Allocations() map[string]models.Money {
	return maps.Clone(s.allocations)
}

// Metrics returns the metrics for the current allocations.
func (s *State) Metrics() Metrics {
	return s.metrics
}

// Credibility returns the current credibility.
func (s *State) Credibility() int {
	return s.credibility
}

// DecisionHistory returns a copy of the decision log, oldest first.
func (s *State) DecisionHistory() []Decision {
	out := make([]Decision, len(s.decisions))
	for i, d := range s.decisions {
		out[i] = d.clone()
	}
	return out
}
