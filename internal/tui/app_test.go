package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/xldeveloper/foreman/internal/config"
	"github.com/xldeveloper/foreman/internal/host"
	"github.com/xldeveloper/foreman/internal/process"
	"github.com/xldeveloper/foreman/internal/run"
)

type stubController struct {
	summaries []host.Summary
}

func (s *stubController) Start(_ context.Context, _ string, _ process.Inputs) (*host.Outcome, error) {
	return nil, nil
}

func (s *stubController) ListRuns() ([]host.Summary, error) {
	return s.summaries, nil
}

type stubProcess struct{ info process.Info }

func (p stubProcess) Info() process.Info { return p.info }

func (p stubProcess) Run(_ context.Context, _ *process.Context, _ process.Inputs) (process.Result, error) {
	return process.Result{Success: true}, nil
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	projectDir := t.TempDir()
	if err := config.InitForemanDir(projectDir); err != nil {
		t.Fatalf("init: %v", err)
	}
	cfg, err := config.NewConfig(projectDir)
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	registry := process.NewRegistry()
	registry.MustRegister("powder-processing", func() (process.Process, error) {
		return stubProcess{info: process.Info{
			ID: "powder-processing", Name: "Powder Processing", Version: "1.0.0",
		}}, nil
	})
	return NewApp(cfg, registry, nil, WithController(&stubController{}))
}

func pendingRequest() gateRequest {
	return gateRequest{
		breakpoint: process.Breakpoint{
			Title:    "Quality review",
			Question: "Approve the process plan?",
			Context:  process.BreakpointContext{Summary: "8 phases complete"},
		},
		reply: make(chan process.Decision, 1),
	}
}

func TestBreakpointMsgSwitchesToPrompt(t *testing.T) {
	app := newTestApp(t)
	app.state = stateRunning

	model, _ := app.Update(breakpointMsg{request: pendingRequest()})
	app = model.(*App)
	if app.state != stateBreakpoint {
		t.Fatalf("expected breakpoint state, got %d", app.state)
	}
	view := app.View()
	for _, fragment := range []string{"Quality review", "Approve the process plan?", "8 phases complete"} {
		if !strings.Contains(view, fragment) {
			t.Fatalf("view missing %q:\n%s", fragment, view)
		}
	}
}

func TestEmptyAnswerApproves(t *testing.T) {
	app := newTestApp(t)
	app.state = stateRunning
	request := pendingRequest()
	model, _ := app.Update(breakpointMsg{request: request})
	app = model.(*App)

	model, _ = app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	app = model.(*App)
	if app.state != stateRunning {
		t.Fatalf("expected running state after resolution, got %d", app.state)
	}
	select {
	case decision := <-request.reply:
		if !decision.Approved {
			t.Fatalf("expected approval, got %+v", decision)
		}
	default:
		t.Fatalf("decision not delivered")
	}
}

func TestFeedbackAnswerRequestsRevision(t *testing.T) {
	app := newTestApp(t)
	app.state = stateRunning
	request := pendingRequest()
	model, _ := app.Update(breakpointMsg{request: request})
	app = model.(*App)

	app.feedback.SetValue("extend the sintering hold")
	model, _ = app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	app = model.(*App)

	select {
	case decision := <-request.reply:
		if decision.Approved || decision.Feedback != "extend the sintering hold" {
			t.Fatalf("unexpected decision: %+v", decision)
		}
	default:
		t.Fatalf("decision not delivered")
	}
}

func TestRunFinishedShowsOutcome(t *testing.T) {
	app := newTestApp(t)
	app.state = stateRunning
	r, err := run.New(t.TempDir(), "powder-processing-1", "powder-processing")
	if err != nil {
		t.Fatalf("new run: %v", err)
	}

	model, _ := app.Update(runFinishedMsg{outcome: &host.Outcome{
		Run:    r,
		Result: process.Result{Success: true},
	}})
	app = model.(*App)
	if app.state != stateDone {
		t.Fatalf("expected done state, got %d", app.state)
	}
	if !strings.Contains(app.View(), "completed") {
		t.Fatalf("view missing completion notice:\n%s", app.View())
	}
}

func TestMenuEnterStartsRun(t *testing.T) {
	app := newTestApp(t)
	model, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	app = model.(*App)
	if app.state != stateRunning {
		t.Fatalf("expected running state, got %d", app.state)
	}
	if app.selectedProcess != "powder-processing" {
		t.Fatalf("unexpected selection: %s", app.selectedProcess)
	}
	if cmd == nil {
		t.Fatalf("expected run command")
	}
}

func TestGateRoundTrip(t *testing.T) {
	gate := NewGate()
	done := make(chan process.Decision, 1)
	go func() {
		decision, err := gate.Resolve(context.Background(), process.Breakpoint{Title: "t", Question: "q"})
		if err == nil {
			done <- decision
		}
	}()

	select {
	case request := <-gate.requests:
		request.reply <- process.Decision{Approved: true}
	case <-time.After(time.Second):
		t.Fatalf("breakpoint never surfaced")
	}
	select {
	case decision := <-done:
		if !decision.Approved {
			t.Fatalf("unexpected decision: %+v", decision)
		}
	case <-time.After(time.Second):
		t.Fatalf("resolution never returned")
	}
}

func TestGateResolveHonorsCancellation(t *testing.T) {
	gate := NewGate()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := gate.Resolve(ctx, process.Breakpoint{Title: "t", Question: "q"}); err == nil {
		t.Fatalf("expected cancellation error")
	}
}
