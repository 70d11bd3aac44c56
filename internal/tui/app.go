// Package tui is the interactive surface for foreman runs. It lists the
// registered processes, launches a run, tails its journal while agents work,
// and doubles as the breakpoint gate: raised breakpoints surface as an
// approval prompt and the reviewer's answer resumes the run.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/xldeveloper/foreman/internal/config"
	"github.com/xldeveloper/foreman/internal/host"
	"github.com/xldeveloper/foreman/internal/process"
	"github.com/xldeveloper/foreman/internal/run"
)

// appState represents which screen the app is on.
type appState int

const (
	stateMenu appState = iota
	stateRunning
	stateBreakpoint
	stateDone
)

const journalRefreshInterval = time.Second

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	questionStyle = lipgloss.NewStyle().Bold(true)
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

// Controller is the slice of the host the app drives. Narrow so tests can
// stub run execution.
type Controller interface {
	Start(ctx context.Context, processID string, inputs process.Inputs) (*host.Outcome, error)
	ListRuns() ([]host.Summary, error)
}

// AppOption customizes App construction.
type AppOption func(*App)

// WithController overrides the run controller (tests).
func WithController(controller Controller) AppOption {
	return func(a *App) {
		if controller != nil {
			a.controller = controller
		}
	}
}

type runFinishedMsg struct {
	outcome *host.Outcome
	err     error
}

type breakpointMsg struct {
	request gateRequest
}

type journalTickMsg struct {
	lines []string
}

type menuItem struct {
	id   string
	desc string
}

func (i menuItem) Title() string       { return i.id }
func (i menuItem) Description() string { return i.desc }
func (i menuItem) FilterValue() string { return i.id }

// App is the bubbletea model for foreman.
type App struct {
	state      appState
	cfg        *config.Config
	controller Controller
	gate       *Gate
	inputs     process.Inputs

	menu     list.Model
	feedback textinput.Model

	selectedProcess string
	journalLines    []string
	pending         *gateRequest
	outcome         *host.Outcome
	runErr          error

	runCtx    context.Context
	cancelRun context.CancelFunc

	width  int
	height int
}

// NewApp assembles the app around a configured project. The registry's
// processes populate the menu; runs execute through a host wired to the TUI
// gate.
func NewApp(cfg *config.Config, registry *process.Registry, inputs process.Inputs, opts ...AppOption) *App {
	gate := NewGate()
	items := make([]list.Item, 0, len(registry.IDs()))
	for _, id := range registry.IDs() {
		desc := ""
		if proc, err := registry.Resolve(id); err == nil {
			desc = proc.Info().Description
		}
		items = append(items, menuItem{id: id, desc: desc})
	}
	menu := list.New(items, list.NewDefaultDelegate(), 0, 0)
	menu.Title = "foreman processes"
	menu.SetShowStatusBar(false)
	menu.SetFilteringEnabled(false)

	feedback := textinput.New()
	feedback.Placeholder = "y to approve, anything else is revision feedback"
	feedback.CharLimit = 280

	app := &App{
		state:      stateMenu,
		cfg:        cfg,
		controller: host.New(cfg, registry, host.WithGate(gate)),
		gate:       gate,
		inputs:     inputs,
		menu:       menu,
		feedback:   feedback,
	}
	for _, opt := range opts {
		opt(app)
	}
	return app
}

// Run starts the bubbletea program.
func (a *App) Run() error {
	_, err := tea.NewProgram(a, tea.WithAltScreen()).Run()
	return err
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		a.menu.SetSize(msg.Width-4, msg.Height-4)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case runFinishedMsg:
		a.outcome = msg.outcome
		a.runErr = msg.err
		a.state = stateDone
		if a.cancelRun != nil {
			a.cancelRun()
		}
		return a, nil

	case breakpointMsg:
		a.pending = &msg.request
		a.feedback.SetValue("")
		a.feedback.Focus()
		a.state = stateBreakpoint
		return a, textinput.Blink

	case journalTickMsg:
		if msg.lines != nil {
			a.journalLines = msg.lines
		}
		if a.state == stateRunning || a.state == stateBreakpoint {
			return a, a.tickJournal()
		}
		return a, nil
	}

	if a.state == stateMenu {
		var cmd tea.Cmd
		a.menu, cmd = a.menu.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch a.state {
	case stateMenu:
		switch msg.String() {
		case "ctrl+c", "q":
			return a, tea.Quit
		case "enter":
			if item, ok := a.menu.SelectedItem().(menuItem); ok {
				return a, a.startRun(item.id)
			}
			return a, nil
		}
		var cmd tea.Cmd
		a.menu, cmd = a.menu.Update(msg)
		return a, cmd

	case stateRunning:
		if msg.String() == "ctrl+c" {
			if a.cancelRun != nil {
				a.cancelRun()
			}
			return a, tea.Quit
		}
		return a, nil

	case stateBreakpoint:
		switch msg.String() {
		case "ctrl+c":
			if a.cancelRun != nil {
				a.cancelRun()
			}
			return a, tea.Quit
		case "enter":
			a.resolvePending(a.feedback.Value())
			a.state = stateRunning
			return a, a.awaitBreakpoint()
		}
		var cmd tea.Cmd
		a.feedback, cmd = a.feedback.Update(msg)
		return a, cmd

	default: // stateDone
		switch msg.String() {
		case "ctrl+c", "q", "enter":
			return a, tea.Quit
		}
		return a, nil
	}
}

// startRun launches the process in its own goroutine and begins listening for
// breakpoints and journal updates.
func (a *App) startRun(processID string) tea.Cmd {
	a.selectedProcess = processID
	a.state = stateRunning
	a.journalLines = nil
	a.runCtx, a.cancelRun = context.WithCancel(context.Background())
	runCmd := func() tea.Msg {
		outcome, err := a.controller.Start(a.runCtx, processID, a.inputs)
		return runFinishedMsg{outcome: outcome, err: err}
	}
	return tea.Batch(runCmd, a.awaitBreakpoint(), a.tickJournal())
}

// awaitBreakpoint blocks on the gate until the run raises a breakpoint or
// finishes.
func (a *App) awaitBreakpoint() tea.Cmd {
	ctx := a.runCtx
	if ctx == nil {
		ctx = context.Background()
	}
	return func() tea.Msg {
		select {
		case request := <-a.gate.requests:
			return breakpointMsg{request: request}
		case <-ctx.Done():
			return nil
		}
	}
}

func (a *App) resolvePending(answer string) {
	if a.pending == nil {
		return
	}
	answer = strings.TrimSpace(answer)
	decision := process.Decision{Approved: true}
	switch strings.ToLower(answer) {
	case "", "y", "yes":
	default:
		decision = process.Decision{Approved: false, Feedback: answer}
	}
	a.pending.reply <- decision
	a.pending = nil
}

// tickJournal refreshes the journal preview for the newest run of the
// selected process.
func (a *App) tickJournal() tea.Cmd {
	return tea.Tick(journalRefreshInterval, func(time.Time) tea.Msg {
		return journalTickMsg{lines: a.recentEvents()}
	})
}

func (a *App) recentEvents() []string {
	summaries, err := a.controller.ListRuns()
	if err != nil {
		return nil
	}
	for _, summary := range summaries {
		if summary.ProcessID != a.selectedProcess {
			continue
		}
		r, err := run.New(a.cfg.RunsDir(), summary.RunID, summary.ProcessID)
		if err != nil {
			return nil
		}
		entries, err := run.NewJournal(r).Read()
		if err != nil {
			return nil
		}
		if len(entries) > 8 {
			entries = entries[len(entries)-8:]
		}
		lines := make([]string, 0, len(entries))
		for _, entry := range entries {
			lines = append(lines, fmt.Sprintf("#%s %s", entry.ID, entry.Event))
		}
		return lines
	}
	return nil
}

// View implements tea.Model.
func (a *App) View() string {
	switch a.state {
	case stateMenu:
		return a.menu.View()
	case stateRunning:
		return a.runningView()
	case stateBreakpoint:
		return a.breakpointView()
	default:
		return a.doneView()
	}
}

func (a *App) runningView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Running %s", a.selectedProcess)))
	b.WriteString("\n\n")
	if len(a.journalLines) == 0 {
		b.WriteString(dimStyle.Render("waiting for the first journal event..."))
	}
	for _, line := range a.journalLines {
		b.WriteString(dimStyle.Render(line))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("ctrl+c to cancel"))
	return b.String()
}

func (a *App) breakpointView() string {
	if a.pending == nil {
		return a.runningView()
	}
	breakpoint := a.pending.breakpoint
	var b strings.Builder
	b.WriteString(titleStyle.Render(breakpoint.Title))
	b.WriteString("\n\n")
	if breakpoint.Context.Summary != "" {
		b.WriteString(breakpoint.Context.Summary)
		b.WriteString("\n")
	}
	for _, file := range breakpoint.Context.Files {
		b.WriteString(dimStyle.Render("  - " + file))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(questionStyle.Render(breakpoint.Question))
	b.WriteString("\n\n")
	b.WriteString(a.feedback.View())
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("enter to submit"))
	return b.String()
}

func (a *App) doneView() string {
	var b strings.Builder
	switch {
	case a.runErr != nil:
		b.WriteString(errorStyle.Render(fmt.Sprintf("Run failed: %v", a.runErr)))
	case a.outcome != nil && a.outcome.Result.Success:
		b.WriteString(okStyle.Render(fmt.Sprintf("Run %s completed", a.outcome.Run.ID)))
	case a.outcome != nil:
		b.WriteString(errorStyle.Render(fmt.Sprintf("Run %s failed at %s: %s",
			a.outcome.Run.ID, a.outcome.Result.Phase, a.outcome.Result.Error)))
	default:
		b.WriteString(errorStyle.Render("Run finished without an outcome"))
	}
	if a.outcome != nil {
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("result: " + a.outcome.Run.ResultPath()))
	}
	b.WriteString("\n\n")
	b.WriteString(dimStyle.Render("q to quit"))
	return b.String()
}
