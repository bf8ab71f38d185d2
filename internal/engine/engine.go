package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/tatianab/impact-sandbox/internal/models"
	"github.com/tatianab/impact-sandbox/internal/sandbox"
	"google.golang.org/api/option"
)

const (
	DefaultModel   = "gemini-2.5-flash"
	DefaultTimeout = 20 * time.Second

	DefaultMessage = "What are your thoughts on the current situation?"

	// MaxHistory is how many earlier chat lines are replayed to a stakeholder.
	MaxHistory = 10

	dialogueInstruction   = "You are a stakeholder in an environmental decision-making simulation. Respond as your character would, considering your objectives and the current situation."
	assessmentInstruction = "You are a decision assessment engine for environmental city planning. Analyze decisions from multiple stakeholder perspectives and provide comprehensive feedback."
)

// Provider produces stakeholder dialogue and decision assessments. Any error
// it returns is recovered by the caller with a fallback.
type Provider interface {
	AskStakeholder(ctx context.Context, q StakeholderQuery) (models.StakeholderReply, error)
	AssessDecision(ctx context.Context, c sandbox.Context) (models.Assessment, error)
}

// StakeholderQuery is one player message to one stakeholder.
type StakeholderQuery struct {
	Stakeholder string
	Message     string
	// Objective overrides the stakeholder's scenario goal, e.g. with the
	// follow-up objective after a decision has been assessed.
	Objective string
	// History is the earlier conversation with this stakeholder, oldest first.
	History []sandbox.ChatMessage
	Context sandbox.Context
}

// generator turns a prompt into raw model text.
type generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Engine is the Gemini-backed Provider.
type Engine struct {
	client   *genai.Client
	dialogue generator
	assessor generator
	timeout  time.Duration
	logger   *slog.Logger
}

// Options tunes an Engine. Zero values pick the defaults.
type Options struct {
	Model   string
	Timeout time.Duration
	Logger  *slog.Logger
}

func NewEngine(ctx context.Context, apiKey string, opts Options) (*Engine, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is empty")
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	e := newEngine(nil, nil, opts)
	e.client = client
	e.dialogue = &geminiGenerator{model: newModel(client, opts.Model, dialogueInstruction, 0.8), logger: e.logger}
	e.assessor = &geminiGenerator{model: newModel(client, opts.Model, assessmentInstruction, 0.7), logger: e.logger}
	return e, nil
}

func newEngine(dialogue, assessor generator, opts Options) *Engine {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Engine{
		dialogue: dialogue,
		assessor: assessor,
		timeout:  opts.Timeout,
		logger:   opts.Logger,
	}
}

func newModel(client *genai.Client, name, instruction string, temperature float32) *genai.GenerativeModel {
	model := client.GenerativeModel(name)
	model.SetTemperature(temperature)
	model.ResponseMIMEType = "application/json"
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(instruction)}}
	return model
}

func (e *Engine) Close() {
	if e.client != nil {
		e.client.Close()
	}
}

// AskStakeholder renders the persona prompt and parses the in-character reply.
func (e *Engine) AskStakeholder(ctx context.Context, q StakeholderQuery) (models.StakeholderReply, error) {
	const op = "ask stakeholder"

	if q.Message == "" {
		q.Message = DefaultMessage
	}
	prompt, err := renderStakeholderPrompt(q)
	if err != nil {
		return models.StakeholderReply{}, fmt.Errorf("render prompt: %w", err)
	}

	text, err := e.generate(ctx, e.dialogue, prompt)
	if err != nil {
		return models.StakeholderReply{}, &sandbox.ExternalServiceError{Op: op, Err: err}
	}
	reply, err := parseReply(text)
	if err != nil {
		return models.StakeholderReply{}, &sandbox.ExternalServiceError{Op: op, Err: err}
	}
	return reply, nil
}

// AssessDecision asks for every stakeholder's reaction to the most recent
// decision. The budget status on the result is always computed locally.
func (e *Engine) AssessDecision(ctx context.Context, c sandbox.Context) (models.Assessment, error) {
	const op = "assess decision"

	status := sandbox.CheckBudget(c.Metrics.TotalSpent, c.Scenario.Budget)
	prompt, err := renderAssessmentPrompt(c, status)
	if err != nil {
		return models.Assessment{}, fmt.Errorf("render prompt: %w", err)
	}

	text, err := e.generate(ctx, e.assessor, prompt)
	if err != nil {
		return models.Assessment{}, &sandbox.ExternalServiceError{Op: op, Err: err}
	}
	a, err := parseAssessment(text, status)
	if err != nil {
		return models.Assessment{}, &sandbox.ExternalServiceError{Op: op, Err: err}
	}
	return a, nil
}

func (e *Engine) generate(ctx context.Context, g generator, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	text, err := g.Generate(ctx, prompt)
	e.logger.Debug("generation finished", "elapsed", time.Since(start), "ok", err == nil)
	return text, err
}

type geminiGenerator struct {
	model  *genai.GenerativeModel
	logger *slog.Logger
}

func (g *geminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}

	if resp.UsageMetadata != nil {
		g.logger.Debug("gemini call",
			"input_tokens", resp.UsageMetadata.PromptTokenCount,
			"output_tokens", resp.UsageMetadata.CandidatesTokenCount,
		)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content returned from Gemini")
	}

	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return "", fmt.Errorf("unexpected response type from Gemini")
	}
	return string(text), nil
}
