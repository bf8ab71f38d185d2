package models

// Mood is the tone tag a stakeholder reply carries.
type Mood string

const (
	MoodAngry      Mood = "angry"
	MoodConcerned  Mood = "concerned"
	MoodNeutral    Mood = "neutral"
	MoodPleased    Mood = "pleased"
	MoodExcited    Mood = "excited"
	MoodWorried    Mood = "worried"
	MoodPassionate Mood = "passionate"
)

// ParseMood normalises a free-form mood tag. Anything unrecognised is neutral.
func ParseMood(s string) Mood {
	switch m := Mood(s); m {
	case MoodAngry, MoodConcerned, MoodNeutral, MoodPleased, MoodExcited, MoodWorried, MoodPassionate:
		return m
	}
	return MoodNeutral
}

// StakeholderReply is what the dialogue collaborator returns for one message.
type StakeholderReply struct {
	Text             string `yaml:"response"`
	Mood             Mood   `yaml:"mood"`
	CredibilityDelta int    `yaml:"credibilityChange"`
	// Degraded marks a canned reply produced because the collaborator failed.
	Degraded bool `yaml:"degraded,omitempty"`
}

// Reaction is one stakeholder's verdict on a submitted decision.
type Reaction struct {
	Reaction          string `yaml:"reaction"`
	CredibilityChange int    `yaml:"credibilityChange"`
}

// BudgetStatus gates whether a decision is accepted.
type BudgetStatus struct {
	Valid                   bool   `yaml:"valid"`
	OverBudget              bool   `yaml:"overBudget"`
	SignificantlyOverBudget bool   `yaml:"significantlyOverBudget"`
	Message                 string `yaml:"message"`
}

// Assessment is the collaborator's holistic verdict on a decision.
type Assessment struct {
	StakeholderReactions map[string]Reaction `yaml:"stakeholderReactions"`
	ScenarioConsequence  map[string]string   `yaml:"scenarioConsequence"`
	BudgetStatus         BudgetStatus        `yaml:"budgetStatus"`
	Degraded             bool                `yaml:"degraded,omitempty"`
}

// TotalCredibilityChange sums every reaction's credibility change.
func (a *Assessment) TotalCredibilityChange() int {
	total := 0
	for _, r := range a.StakeholderReactions {
		total += r.CredibilityChange
	}
	return total
}
