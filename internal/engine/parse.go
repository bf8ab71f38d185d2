package engine

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/tatianab/impact-sandbox/internal/models"
	"gopkg.in/yaml.v3"
)

// MaxCredibilityDelta bounds any single credibility change the model proposes.
const MaxCredibilityDelta = 20

// cleanResponse strips markdown fences from model output. Tabs in leading
// indentation are replaced because YAML, which decodes the JSON, rejects
// them there. Tabs elsewhere are kept.
func cleanResponse(text string) string {
	text = strings.TrimSpace(text)
	for _, fence := range []string{"```json", "```yaml", "```"} {
		if strings.HasPrefix(text, fence) {
			text = strings.TrimPrefix(text, fence)
			break
		}
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")

	lines := strings.Split(strings.TrimSpace(text), "\n")
	for i, line := range lines {
		rest := strings.TrimLeft(line, " \t")
		indent := line[:len(line)-len(rest)]
		lines[i] = strings.ReplaceAll(indent, "\t", "  ") + rest
	}
	return strings.Join(lines, "\n")
}

type replyWire struct {
	Response          string  `yaml:"response"`
	CredibilityChange float64 `yaml:"credibilityChange"`
	Mood              string  `yaml:"mood"`
}

func parseReply(text string) (models.StakeholderReply, error) {
	var w replyWire
	if err := yaml.Unmarshal([]byte(cleanResponse(text)), &w); err != nil {
		return models.StakeholderReply{}, fmt.Errorf("parse reply: %w", err)
	}
	if strings.TrimSpace(w.Response) == "" {
		return models.StakeholderReply{}, errors.New("parse reply: empty response text")
	}
	return models.StakeholderReply{
		Text:             strings.TrimSpace(w.Response),
		Mood:             models.ParseMood(strings.ToLower(strings.TrimSpace(w.Mood))),
		CredibilityDelta: clampDelta(w.CredibilityChange),
	}, nil
}

type assessmentWire struct {
	StakeholderReactions map[string]struct {
		Reaction          string  `yaml:"reaction"`
		CredibilityChange float64 `yaml:"credibilityChange"`
	} `yaml:"stakeholderReactions"`
	ScenarioConsequence map[string]any `yaml:"scenarioConsequence"`
}

// parseAssessment decodes the assessor's answer. The budget status is never
// taken from the model.
func parseAssessment(text string, status models.BudgetStatus) (models.Assessment, error) {
	var w assessmentWire
	if err := yaml.Unmarshal([]byte(cleanResponse(text)), &w); err != nil {
		return models.Assessment{}, fmt.Errorf("parse assessment: %w", err)
	}
	if len(w.StakeholderReactions) == 0 {
		return models.Assessment{}, errors.New("parse assessment: no stakeholder reactions")
	}

	a := models.Assessment{
		StakeholderReactions: make(map[string]models.Reaction, len(w.StakeholderReactions)),
		ScenarioConsequence:  make(map[string]string, len(w.ScenarioConsequence)),
		BudgetStatus:         status,
	}
	for name, r := range w.StakeholderReactions {
		a.StakeholderReactions[name] = models.Reaction{
			Reaction:          strings.TrimSpace(r.Reaction),
			CredibilityChange: clampDelta(r.CredibilityChange),
		}
	}
	for k, v := range w.ScenarioConsequence {
		a.ScenarioConsequence[k] = fmt.Sprint(v)
	}
	return a, nil
}

func clampDelta(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	return int(max(-MaxCredibilityDelta, min(MaxCredibilityDelta, math.Round(v))))
}
