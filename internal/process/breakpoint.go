package process

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// BreakpointContext gives the reviewer what they need to decide: the run,
// a summary of the state so far, and the files worth inspecting.
type BreakpointContext struct {
	RunID   string   `json:"runId"`
	Summary string   `json:"summary,omitempty"`
	Files   []string `json:"files,omitempty"`
}

// Breakpoint is a human-in-the-loop checkpoint. Raising one suspends the
// orchestration until an external actor resolves it; the breakpoint itself
// never retries or escalates.
type Breakpoint struct {
	Title    string            `json:"title"`
	Question string            `json:"question"`
	Context  BreakpointContext `json:"context"`
}

// Decision is the reviewer's verdict. Anything other than approval carries
// the feedback verbatim so the process can record or act on it.
type Decision struct {
	Approved bool
	Feedback string
}

// AutoGate approves every breakpoint. Used for unattended runs.
type AutoGate struct{}

// Resolve implements Gate.
func (AutoGate) Resolve(_ context.Context, breakpoint Breakpoint) (Decision, error) {
	return Decision{Approved: true, Feedback: fmt.Sprintf("%s auto-approved", breakpoint.Title)}, nil
}

// ConsoleGate prompts on the terminal and reads a single line: "y"/"yes"
// approves, anything else is treated as revision feedback.
type ConsoleGate struct {
	In  io.Reader
	Out io.Writer
}

// Resolve implements Gate. The stdin read runs in a goroutine so the prompt
// stays cancellable while a human takes their time.
func (g ConsoleGate) Resolve(ctx context.Context, breakpoint Breakpoint) (Decision, error) {
	if g.In == nil || g.Out == nil {
		return Decision{}, fmt.Errorf("process: console gate requires input and output streams")
	}
	fmt.Fprintf(g.Out, "\n  %s\n", breakpoint.Title)
	if breakpoint.Context.Summary != "" {
		fmt.Fprintf(g.Out, "  %s\n", breakpoint.Context.Summary)
	}
	for _, file := range breakpoint.Context.Files {
		fmt.Fprintf(g.Out, "    - %s\n", file)
	}
	fmt.Fprintf(g.Out, "\n  %s\n  [y to approve / feedback to revise]: ", breakpoint.Question)

	type readResult struct {
		line string
		err  error
	}
	ch := make(chan readResult, 1)
	go func() {
		reader := bufio.NewReader(g.In)
		line, err := reader.ReadString('\n')
		ch <- readResult{line: strings.TrimSpace(line), err: err}
	}()

	select {
	case <-ctx.Done():
		return Decision{}, ctx.Err()
	case r := <-ch:
		if r.err != nil && r.line == "" {
			return Decision{}, fmt.Errorf("process: read breakpoint response: %w", r.err)
		}
		switch strings.ToLower(r.line) {
		case "y", "yes":
			return Decision{Approved: true}, nil
		default:
			return Decision{Approved: false, Feedback: r.line}, nil
		}
	}
}
