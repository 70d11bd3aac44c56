// Package executor is the reference TaskRunner: it persists task IO under the
// run directory, renders the agent prompt, launches the configured agent
// command, and recovers the schema-validated JSON result from its output.
// Retry and backoff are deliberately absent; failures surface to the caller.

package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path"
	"strings"
	"time"

	"github.com/xldeveloper/foreman/internal/config"
	"github.com/xldeveloper/foreman/internal/jsonx"
	"github.com/xldeveloper/foreman/internal/process"
	"github.com/xldeveloper/foreman/internal/prompt"
	"github.com/xldeveloper/foreman/internal/run"
	"github.com/xldeveloper/foreman/internal/task"
)

// Launcher starts the agent with a rendered prompt and returns its raw output.
type Launcher interface {
	Launch(ctx context.Context, agent config.AgentConfig, promptText string, env map[string]string) ([]byte, error)
}

// Executor implements process.TaskRunner against the local filesystem.
type Executor struct {
	run      *run.Run
	journal  *run.Journal
	store    *run.IOStore
	agent    config.AgentConfig
	template string
	launcher Launcher
	now      func() time.Time
}

// Option customizes the executor.
type Option func(*Executor)

// WithLauncher swaps the agent launcher (used in tests).
func WithLauncher(l Launcher) Option {
	return func(e *Executor) {
		if l != nil {
			e.launcher = l
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(clock func() time.Time) Option {
	return func(e *Executor) {
		if clock != nil {
			e.now = clock
		}
	}
}

// WithPromptTemplate installs a prompt template; without one the prompt is
// composed from the descriptor's prompt spec.
func WithPromptTemplate(template string) Option {
	return func(e *Executor) {
		e.template = template
	}
}

// New builds an executor bound to a run.
func New(r *run.Run, journal *run.Journal, agent config.AgentConfig, opts ...Option) *Executor {
	executor := &Executor{
		run:      r,
		journal:  journal,
		store:    run.NewIOStore(r),
		agent:    agent,
		launcher: commandLauncher{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(executor)
	}
	return executor
}

// RunTask implements process.TaskRunner.
func (e *Executor) RunTask(ctx context.Context, descriptor task.Descriptor, args map[string]any) (process.TaskResult, error) {
	if err := descriptor.Validate(); err != nil {
		return process.TaskResult{}, err
	}
	effectID := effectFromIO(descriptor.IO)
	if effectID == "" {
		return process.TaskResult{}, fmt.Errorf("executor: cannot derive effect id from %s", descriptor.IO.InputPath)
	}
	meta := run.TaskMeta{
		Process: e.run.ProcessID,
		Kind:    descriptor.Kind,
		Effect:  effectID,
		Created: e.now().UTC().Format(time.RFC3339),
	}
	if err := e.store.WriteInput(meta, args); err != nil {
		return process.TaskResult{}, err
	}
	e.appendEvent("task-started", map[string]any{
		"kind":   descriptor.Kind,
		"effect": effectID,
		"title":  descriptor.Title,
	})

	promptText, err := e.renderPrompt(descriptor, args)
	if err != nil {
		return process.TaskResult{}, err
	}
	output, err := e.launcher.Launch(ctx, e.agent, promptText, map[string]string{
		"FOREMAN_RUN_ID":    e.run.ID,
		"FOREMAN_RUN_DIR":   e.run.Dir(),
		"FOREMAN_EFFECT_ID": effectID,
		"FOREMAN_TASK_KIND": descriptor.Kind,
	})
	if err != nil {
		e.appendEvent("task-failed", map[string]any{"kind": descriptor.Kind, "effect": effectID, "error": err.Error()})
		return process.TaskResult{}, fmt.Errorf("executor: launch agent for %s: %w", descriptor.Kind, err)
	}

	object, err := jsonx.FirstObject(output)
	if err != nil {
		e.appendEvent("task-failed", map[string]any{"kind": descriptor.Kind, "effect": effectID, "error": err.Error()})
		return process.TaskResult{}, fmt.Errorf("executor: recover result for %s: %w", descriptor.Kind, err)
	}
	if err := task.ValidateOutput(descriptor.Agent.OutputSchema, object); err != nil {
		e.appendEvent("task-invalid", map[string]any{"kind": descriptor.Kind, "effect": effectID, "error": err.Error()})
		return process.TaskResult{}, fmt.Errorf("executor: %s: %w", descriptor.Kind, err)
	}
	if err := e.store.WriteResult(meta, object); err != nil {
		return process.TaskResult{}, err
	}
	result := process.TaskResult{Object: object}
	e.appendEvent("task-finished", map[string]any{
		"kind":    descriptor.Kind,
		"effect":  effectID,
		"success": result.Success(),
	})
	return result, nil
}

func (e *Executor) renderPrompt(descriptor task.Descriptor, args map[string]any) (string, error) {
	if e.template != "" {
		return prompt.Render(e.template, descriptor.Agent.Prompt.Task, args)
	}
	schemaJSON := ""
	if descriptor.Agent.OutputSchema != nil {
		encoded, err := json.MarshalIndent(descriptor.Agent.OutputSchema, "", "  ")
		if err != nil {
			return "", fmt.Errorf("executor: encode schema for %s: %w", descriptor.Kind, err)
		}
		schemaJSON = string(encoded)
	}
	inputJSON := ""
	if len(args) > 0 {
		encoded, err := json.MarshalIndent(args, "", "  ")
		if err != nil {
			return "", fmt.Errorf("executor: encode args for %s: %w", descriptor.Kind, err)
		}
		inputJSON = string(encoded)
	}
	return prompt.Compose(descriptor.Agent.Prompt, schemaJSON, inputJSON), nil
}

func (e *Executor) appendEvent(event string, data map[string]any) {
	if e.journal == nil {
		return
	}
	_, _ = e.journal.Append("event", event, data)
}

// effectFromIO recovers the effect ID from the tasks/<effect>/input.json
// convention.
func effectFromIO(io task.IOSpec) string {
	dir := path.Dir(io.InputPath)
	if dir == "." || dir == "/" {
		return ""
	}
	return path.Base(dir)
}

type commandLauncher struct{}

// Launch pipes the prompt to the agent command's stdin and captures stdout.
func (commandLauncher) Launch(ctx context.Context, agent config.AgentConfig, promptText string, env map[string]string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, agent.Command, agent.Args...)
	cmd.Stdin = strings.NewReader(promptText)
	cmd.Env = os.Environ()
	for key, value := range env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", key, value))
	}
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, err
	}
	return output, nil
}
