package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tatianab/impact-sandbox/internal/engine"
	"github.com/tatianab/impact-sandbox/internal/game"
	"github.com/tatianab/impact-sandbox/internal/models"
	"github.com/tatianab/impact-sandbox/internal/sandbox"
)

type sessionState int

const (
	statePicking sessionState = iota
	stateWaiting
	statePlaying
	stateError
)

type model struct {
	state     sessionState
	ctx       context.Context
	scenarios []models.Scenario
	provider  engine.Provider
	logger    *slog.Logger

	session     *game.Session
	stakeholder string
	draft       map[string]models.Money

	textInput textinput.Model
	viewport  viewport.Model
	gameLog   string
	panel     string
	err       error
	width     int
	height    int
}

var (
	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EEEEEE")).
			Background(lipgloss.Color("#5F5F87")).
			Bold(true).
			PaddingLeft(1)

	gameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#D7875F")).
			Italic(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)

	stateStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("#3C3C3C")).
			PaddingLeft(2).
			Foreground(lipgloss.Color("#AAAAAA"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Bold(true).
			Underline(true)
)

func newModel(ctx context.Context, scenarios []models.Scenario, provider engine.Provider, logger *slog.Logger) model {
	ti := textinput.New()
	ti.Placeholder = "Scenario number..."
	ti.Focus()
	ti.CharLimit = 280
	ti.Width = 60

	if logger == nil {
		logger = slog.Default()
	}
	return model{
		state:     statePicking,
		ctx:       ctx,
		scenarios: scenarios,
		provider:  provider,
		logger:    logger,
		textInput: ti,
		viewport:  viewport.New(80, 20),
		draft:     make(map[string]models.Money),
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

type replyMsg struct {
	stakeholder string
	reply       models.StakeholderReply
	err         error
}

type feedbackMsg struct {
	feedback *game.Feedback
	err      error
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit

		case tea.KeyEnter:
			line := strings.TrimSpace(m.textInput.Value())
			switch m.state {
			case statePicking:
				m.textInput.Reset()
				m.pickScenario(line)
				return m, nil
			case statePlaying:
				if line == "" {
					return m, nil
				}
				m.textInput.Reset()
				return m.handleLine(line)
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = m.logWidth()
		m.viewport.Height = max(msg.Height-6, 5)
		m.viewport.SetContent(m.gameLog)

	case replyMsg:
		m.state = statePlaying
		if msg.err != nil {
			m.notice(msg.err.Error())
		} else {
			m.appendReply(msg.stakeholder, msg.reply)
		}
		m.refreshPanel()
		return m, nil

	case feedbackMsg:
		m.state = statePlaying
		if msg.err != nil {
			m.notice(msg.err.Error())
		} else {
			m.draft = make(map[string]models.Money)
			m.appendFeedback(msg.feedback)
		}
		m.refreshPanel()
		return m, nil
	}

	if m.state == statePicking || m.state == statePlaying {
		m.textInput, cmd = m.textInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *model) pickScenario(line string) {
	n, err := strconv.Atoi(line)
	if err != nil || n < 1 || n > len(m.scenarios) {
		m.err = fmt.Errorf("pick a scenario between 1 and %d", len(m.scenarios))
		return
	}
	s, err := game.NewSession(&m.scenarios[n-1], m.provider, game.WithLogger(m.logger))
	if err != nil {
		m.err = err
		m.state = stateError
		return
	}
	m.err = nil
	m.session = s
	m.stakeholder = ""
	m.draft = make(map[string]models.Money)
	m.state = statePlaying
	m.textInput.Placeholder = "Type /help for commands..."
	m.gameLog = ""
	m.appendBriefing()
	m.refreshPanel()
}

// handleLine runs one line of player input. Calls that reach the language
// model run as commands so the UI stays responsive.
func (m model) handleLine(line string) (tea.Model, tea.Cmd) {
	c, err := parseCommand(line)
	if err != nil {
		m.notice(err.Error())
		return m, nil
	}

	s := m.session
	switch c.kind {
	case cmdQuit:
		return m, tea.Quit

	case cmdHelp:
		m.appendLog(helpStyle.Render(helpText))

	case cmdRestart:
		if err := s.Restart(); err != nil {
			m.notice(err.Error())
			break
		}
		m.stakeholder = ""
		m.draft = make(map[string]models.Money)
		m.gameLog = ""
		m.appendBriefing()

	case cmdScenarios:
		m.state = statePicking
		m.session = nil
		m.gameLog = ""
		m.panel = ""
		m.viewport.SetContent("")
		m.textInput.Placeholder = "Scenario number..."
		return m, nil

	case cmdChat:
		m.check(s.StartChat(), "Stakeholders are listening. Use /talk N to pick one.")

	case cmdTalk:
		name, err := pick(s.Stakeholders(), c.index[0])
		if err != nil {
			m.notice(err.Error())
			break
		}
		if s.Phase() == game.PhaseBriefing || s.Phase() == game.PhaseDecision {
			if err := s.StartChat(); err != nil {
				m.notice(err.Error())
				break
			}
		}
		m.stakeholder = name
		m.appendLog(gameStyle.Bold(true).Render("Talking to " + name))
		for _, line := range s.Transcript(name) {
			m.appendLog(renderChatLine(name, line))
		}

	case cmdDecide:
		m.check(s.StartDecision(), "Decision board open. Use /add N I to build a plan, then /submit.")

	case cmdAdd, cmdDrop:
		m.editDraft(c)

	case cmdSubmit:
		if s.Phase() != game.PhaseDecision {
			m.notice("open the decision board with /decide first")
			break
		}
		m.state = stateWaiting
		m.appendLog(noticeStyle.Render("Submitting your plan to the stakeholders..."))
		return m, m.submitDecision(maps.Clone(m.draft))

	case cmdObjective:
		if err := s.BeginNewObjective(); err != nil {
			m.notice(err.Error())
			break
		}
		m.stakeholder = ""
		m.appendLog(gameStyle.Render("A new priority emerges. Use /talk N to hear each stakeholder."))
		m.appendNewObjectives()

	case cmdGuess:
		r, err := s.SubmitGuess(c.guess)
		if err != nil {
			m.notice(err.Error())
			break
		}
		m.appendResult(r)

	case cmdSay:
		if m.stakeholder == "" {
			m.notice("pick a stakeholder with /talk N first")
			break
		}
		m.appendLog(userStyle.Width(m.logWidth()).Render("> " + c.text))
		m.state = stateWaiting
		return m, m.ask(m.stakeholder, c.text)
	}

	m.refreshPanel()
	return m, nil
}

func (m *model) check(err error, ok string) {
	if err != nil {
		m.notice(err.Error())
		return
	}
	m.appendLog(gameStyle.Render(ok))
}

func (m *model) editDraft(c command) {
	s := m.session
	if s.Phase() != game.PhaseDecision {
		m.notice("open the decision board with /decide first")
		return
	}
	scenario := s.Scenario()
	n, err := pick(scenario.NeighborhoodNames(), c.index[0])
	if err != nil {
		m.notice(err.Error())
		return
	}
	in, err := pick(scenario.InterventionNames(), c.index[1])
	if err != nil {
		m.notice(err.Error())
		return
	}

	key := sandbox.AllocationKey(n, in)
	if c.kind == cmdDrop {
		delete(m.draft, key)
		return
	}
	m.draft[key] = scenario.Interventions[in].Cost

	metrics, _ := sandbox.Compute(m.draft, &scenario)
	if status := sandbox.CheckBudget(metrics.TotalSpent, scenario.Budget); status.OverBudget {
		m.notice(fmt.Sprintf("draft now spends %s of %s", metrics.TotalSpent.Millions(), scenario.Budget.Millions()))
	}
}

func (m model) ask(stakeholder, text string) tea.Cmd {
	s := m.session
	ctx := m.ctx
	return func() tea.Msg {
		reply, err := s.Ask(ctx, stakeholder, text)
		return replyMsg{stakeholder: stakeholder, reply: reply, err: err}
	}
}

func (m model) submitDecision(draft map[string]models.Money) tea.Cmd {
	s := m.session
	ctx := m.ctx
	return func() tea.Msg {
		fb, err := s.SubmitDecision(ctx, draft)
		if errors.Is(err, sandbox.ErrBudgetRejected) {
			err = fmt.Errorf("%w; drop something and resubmit", err)
		}
		return feedbackMsg{feedback: fb, err: err}
	}
}

func (m model) View() string {
	var s string

	switch m.state {
	case statePicking:
		var b strings.Builder
		b.WriteString("Welcome to the Impact Sandbox!\n\nChoose a scenario:\n\n")
		for i, sc := range m.scenarios {
			fmt.Fprintf(&b, "  %d. %s (%s budget)\n", i+1, sc.Title, sc.Budget.Millions())
		}
		s = b.String() + "\n" + m.textInput.View()
		if m.err != nil {
			s += "\n\n" + noticeStyle.Render(m.err.Error())
		}

	case stateWaiting, statePlaying:
		input := m.textInput.View()
		if m.state == stateWaiting {
			input = helpStyle.Render("Waiting for a response...")
		}
		mainView := lipgloss.JoinHorizontal(lipgloss.Top,
			m.viewport.View(),
			stateStyle.Width(m.panelWidth()).Height(m.viewport.Height).Render(m.panel),
		)
		help := helpStyle.Render("Commands: /help, /talk N, /decide, /submit, /guess E C S, /restart, /quit")
		s = lipgloss.JoinVertical(lipgloss.Left,
			mainView,
			"\n"+input,
			"\n"+help,
		)

	case stateError:
		s = fmt.Sprintf("\n  Error: %v\n\nPress Esc to quit.", m.err)
	}

	return "\n" + s + "\n"
}

func (m model) logWidth() int {
	if m.width == 0 {
		return 80
	}
	return int(float64(m.width) * 0.7)
}

func (m model) panelWidth() int {
	if m.width == 0 {
		return 36
	}
	return int(float64(m.width) * 0.27)
}

func (m *model) appendLog(s string) {
	m.gameLog += s + "\n\n"
	m.viewport.SetContent(m.gameLog)
	m.viewport.GotoBottom()
}

func (m *model) notice(s string) {
	m.appendLog(noticeStyle.Render(s))
}

func (m *model) appendBriefing() {
	sc := m.session.Scenario()
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n%s\n\nBudget: %s\n\nStakeholders:\n", sc.Title, sc.Summary, sc.Budget)
	for i, name := range sc.Stakeholders() {
		fmt.Fprintf(&b, "  %d. %s: %s\n", i+1, name, sc.PersonaGoals[name])
	}
	b.WriteString("\nStart with /chat or /decide. Type /help for all commands.")
	m.appendLog(gameStyle.Width(m.logWidth()).Render(b.String()))
}

func (m *model) appendReply(stakeholder string, r models.StakeholderReply) {
	line := sandbox.ChatMessage{From: sandbox.SpeakerAgent, Text: r.Text, Mood: r.Mood}
	m.appendLog(renderChatLine(stakeholder, line))
	if r.CredibilityDelta != 0 {
		m.appendLog(helpStyle.Render(fmt.Sprintf("credibility %+d", r.CredibilityDelta)))
	}
}

func renderChatLine(stakeholder string, line sandbox.ChatMessage) string {
	if line.From == sandbox.SpeakerUser {
		return userStyle.Render("> " + line.Text)
	}
	return gameStyle.Render(fmt.Sprintf("%s (%s): %s", stakeholder, line.Mood, line.Text))
}

func (m *model) appendFeedback(fb *game.Feedback) {
	a := fb.Assessment
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", a.BudgetStatus.Message)
	for _, name := range slices.Sorted(maps.Keys(a.StakeholderReactions)) {
		r := a.StakeholderReactions[name]
		fmt.Fprintf(&b, "%s (%+d): %s\n", name, r.CredibilityChange, r.Reaction)
	}
	if len(a.ScenarioConsequence) > 0 {
		b.WriteString("\nConsequences:\n")
		for _, k := range slices.Sorted(maps.Keys(a.ScenarioConsequence)) {
			fmt.Fprintf(&b, "  %s: %s\n", k, a.ScenarioConsequence[k])
		}
	}
	fmt.Fprintf(&b, "\nCredibility %+d, now %d%%.", fb.CredibilityChange, fb.Credibility)
	if a.Degraded {
		b.WriteString(" (stakeholders were unreachable; showing a generic assessment)")
	}
	b.WriteString("\nRevise with /decide, continue with /objective, or finish with /guess E C S.")
	m.appendLog(gameStyle.Width(m.logWidth()).Render(b.String()))
}

func (m *model) appendNewObjectives() {
	sc := m.session.Scenario()
	var b strings.Builder
	for _, name := range sc.Stakeholders() {
		if obj := sc.Personas[name].NewObjective; obj != "" {
			fmt.Fprintf(&b, "%s: %s\n", name, obj)
		}
	}
	if b.Len() > 0 {
		m.appendLog(gameStyle.Render(b.String()))
	}
}

func (m *model) appendResult(r sandbox.Result) {
	text := fmt.Sprintf(
		"Your estimate: env %.1f, econ %.1f, social %.1f\nActual impact: env %.1f, econ %.1f, social %.1f\n\nScore: %d/%d\n\n/restart to play again.",
		r.Guess.Env, r.Guess.Econ, r.Guess.Social,
		r.Actual.Env, r.Actual.Econ, r.Actual.Social,
		r.Score, sandbox.MaxScore,
	)
	m.appendLog(titleStyle.Render("OUTCOME") + "\n" + gameStyle.Render(text))
}

func (m *model) refreshPanel() {
	if m.session == nil {
		m.panel = ""
		return
	}
	s := m.session
	sc := s.Scenario()
	st := s.State()
	metrics := st.Metrics()

	var b strings.Builder
	b.WriteString(titleStyle.Render("STATUS") + "\n")
	fmt.Fprintf(&b, "Phase: %s\nBudget: %s\nSpent: %s\nRemaining: %s\nCredibility: %d%%\n\n",
		s.Phase(), sc.Budget.Millions(), metrics.TotalSpent.Millions(), metrics.RemainingBudget.Millions(), st.Credibility())

	b.WriteString(titleStyle.Render("STAKEHOLDERS") + "\n")
	for i, name := range sc.Stakeholders() {
		marker := " "
		if name == m.stakeholder {
			marker = "*"
		}
		fmt.Fprintf(&b, "%s%d. %s\n", marker, i+1, name)
	}
	b.WriteString("\n")

	if s.Phase() == game.PhaseDecision {
		b.WriteString(titleStyle.Render("NEIGHBORHOODS") + "\n")
		for i, name := range sc.NeighborhoodNames() {
			fmt.Fprintf(&b, "%d. %s\n", i+1, name)
		}
		b.WriteString("\n" + titleStyle.Render("INTERVENTIONS") + "\n")
		for i, name := range sc.InterventionNames() {
			fmt.Fprintf(&b, "%d. %s %s\n", i+1, name, sc.Interventions[name].Cost.Millions())
		}
		b.WriteString("\n" + titleStyle.Render("DRAFT") + "\n")
		if len(m.draft) == 0 {
			b.WriteString("(empty)\n")
		}
		var total models.Money
		for _, key := range slices.Sorted(maps.Keys(m.draft)) {
			n, in, _ := sandbox.SplitAllocationKey(key, &sc)
			fmt.Fprintf(&b, "- %s in %s\n", in, n)
			total += m.draft[key]
		}
		if total > 0 {
			fmt.Fprintf(&b, "Total: %s\n", total.Millions())
		}
	}
	m.panel = b.String()
}

// Run starts the terminal UI over the given scenario catalog.
func Run(ctx context.Context, scenarios []models.Scenario, provider engine.Provider, logger *slog.Logger) error {
	if len(scenarios) == 0 {
		return errors.New("no scenarios to play")
	}
	p := tea.NewProgram(newModel(ctx, scenarios, provider, logger), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
