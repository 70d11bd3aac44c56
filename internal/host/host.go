// Package host assembles one orchestration run end to end: it allocates the
// run directory, wires the process context (task runner, breakpoint gate,
// logbook, journal), drives the process to its terminal result, and persists
// result.json plus the final run status.

package host

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/xldeveloper/foreman/internal/config"
	"github.com/xldeveloper/foreman/internal/executor"
	"github.com/xldeveloper/foreman/internal/logbook"
	"github.com/xldeveloper/foreman/internal/process"
	"github.com/xldeveloper/foreman/internal/run"
)

// Host launches processes for a configured project.
type Host struct {
	cfg      *config.Config
	registry *process.Registry
	gate     process.Gate
	runner   process.TaskRunner
	now      func() time.Time
	runID    func(processID string) string
}

// Option customizes the host.
type Option func(*Host)

// WithGate overrides breakpoint resolution (TUI gate, test stubs).
func WithGate(gate process.Gate) Option {
	return func(h *Host) {
		if gate != nil {
			h.gate = gate
		}
	}
}

// WithRunner overrides the task runner (test stubs, remote executors).
func WithRunner(runner process.TaskRunner) Option {
	return func(h *Host) {
		if runner != nil {
			h.runner = runner
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(clock func() time.Time) Option {
	return func(h *Host) {
		if clock != nil {
			h.now = clock
		}
	}
}

// WithRunID overrides run ID allocation (for deterministic tests).
func WithRunID(alloc func(processID string) string) Option {
	return func(h *Host) {
		if alloc != nil {
			h.runID = alloc
		}
	}
}

// New builds a host for the project.
func New(cfg *config.Config, registry *process.Registry, opts ...Option) *Host {
	host := &Host{
		cfg:      cfg,
		registry: registry,
		now:      time.Now,
		runID:    defaultRunID,
	}
	for _, opt := range opts {
		opt(host)
	}
	return host
}

// defaultRunID yields <processID>-<short uuid>, readable in directory listings
// while still unique per run.
func defaultRunID(processID string) string {
	short := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("%s-%s", processID, short)
}

// Outcome bundles the run handle with the terminal result.
type Outcome struct {
	Run    *run.Run
	Result process.Result
}

// Start resolves the process, provisions a fresh run, and drives it to
// completion. The run directory survives regardless of outcome; failures are
// recorded in result.json and the run status.
func (h *Host) Start(ctx context.Context, processID string, inputs process.Inputs) (*Outcome, error) {
	proc, err := h.registry.Resolve(processID)
	if err != nil {
		return nil, err
	}
	info := proc.Info()

	r, err := run.New(h.cfg.RunsDir(), h.runID(info.ID), info.ID)
	if err != nil {
		return nil, err
	}
	if err := r.Initialize(); err != nil {
		return nil, err
	}
	if err := r.SaveState(run.NewState(r, h.now())); err != nil {
		return nil, err
	}
	journal := run.NewJournal(r)

	book, err := logbook.New(r.LogbookPath())
	if err != nil {
		return nil, err
	}
	defer book.Close()

	hostLog, err := logbook.New(h.cfg.HostLogPath())
	if err != nil {
		return nil, err
	}
	defer hostLog.Close()
	hostLog.Info("run %s started (process %s)", r.ID, info.ID)

	runner := h.runner
	if runner == nil {
		runner, err = h.localRunner(r, journal)
		if err != nil {
			return nil, err
		}
	}
	gate := h.gate
	if gate == nil {
		gate = h.defaultGate()
	}

	pctx := &process.Context{
		RunID:   r.ID,
		Tasks:   runner,
		Gate:    gate,
		Logbook: book,
		Clock:   h.now,
	}

	if _, err := journal.AppendStatus("status", "run-started", map[string]any{
		"processId": info.ID,
		"inputs":    inputs.Clone(),
	}, run.StatusRunning); err != nil {
		return nil, err
	}
	book.Info("run %s started (process %s v%s)", r.ID, info.ID, info.Version)

	started := h.now()
	result, runErr := proc.Run(ctx, pctx, inputs)
	if runErr != nil {
		result = process.Failure("", runErr.Error(), nil)
		book.Error("run %s aborted: %v", r.ID, runErr)
	}
	result.Duration = h.now().Sub(started)
	result.Metadata = process.NewMetadata(info, h.now())

	if err := h.persistResult(r, result); err != nil {
		return nil, err
	}
	status := run.StatusCompleted
	if !result.Success {
		status = run.StatusFailed
	}
	if _, err := journal.AppendStatus("status", "run-finished", map[string]any{
		"success": result.Success,
		"error":   result.Error,
	}, status); err != nil {
		return nil, err
	}
	book.Info("run %s finished (success=%t)", r.ID, result.Success)
	hostLog.Info("run %s finished (success=%t)", r.ID, result.Success)
	h.pruneRuns(hostLog)

	outcome := &Outcome{Run: r, Result: result}
	if runErr != nil {
		return outcome, fmt.Errorf("host: run %s: %w", r.ID, runErr)
	}
	return outcome, nil
}

// localRunner builds the reference executor from project configuration.
func (h *Host) localRunner(r *run.Run, journal *run.Journal) (process.TaskRunner, error) {
	opts := []executor.Option{executor.WithClock(h.now)}
	if templatePath := h.cfg.PromptTemplatePath(); templatePath != "" {
		data, err := os.ReadFile(templatePath)
		if err != nil {
			return nil, fmt.Errorf("host: read prompt template %s: %w", templatePath, err)
		}
		opts = append(opts, executor.WithPromptTemplate(string(data)))
	}
	return executor.New(r, journal, h.cfg.Project.Agent, opts...), nil
}

func (h *Host) defaultGate() process.Gate {
	if h.cfg.Project.Approvals.Auto {
		return process.AutoGate{}
	}
	return process.ConsoleGate{In: os.Stdin, Out: os.Stdout}
}

func (h *Host) persistResult(r *run.Run, result process.Result) error {
	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("host: encode result for %s: %w", r.ID, err)
	}
	if err := os.WriteFile(r.ResultPath(), append(encoded, '\n'), 0o644); err != nil {
		return fmt.Errorf("host: write result for %s: %w", r.ID, err)
	}
	return nil
}

// pruneRuns removes the oldest run directories beyond the configured
// retention cap. Best effort: a run that cannot be removed is logged and
// skipped.
func (h *Host) pruneRuns(hostLog *logbook.Logbook) {
	retain := h.cfg.RetainRuns()
	if retain <= 0 {
		return
	}
	summaries, err := h.ListRuns()
	if err != nil || len(summaries) <= retain {
		return
	}
	for _, summary := range summaries[retain:] {
		dir := filepath.Join(h.cfg.RunsDir(), summary.RunID)
		if err := os.RemoveAll(dir); err != nil {
			hostLog.Warn("prune run %s: %v", summary.RunID, err)
			continue
		}
		hostLog.Info("pruned run %s", summary.RunID)
	}
}

// Summary is one row of the run listing.
type Summary struct {
	RunID     string
	ProcessID string
	Status    run.Status
	UpdatedAt time.Time
}

// ListRuns scans the runs directory and reports each run's latest state,
// newest first. Runs without a readable state file are skipped.
func (h *Host) ListRuns() ([]Summary, error) {
	entries, err := os.ReadDir(h.cfg.RunsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("host: list runs: %w", err)
	}
	var summaries []Summary
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(h.cfg.RunsDir(), entry.Name(), "state.json"))
		if err != nil {
			continue
		}
		var state run.State
		if err := json.Unmarshal(data, &state); err != nil {
			continue
		}
		summaries = append(summaries, Summary{
			RunID:     state.RunID,
			ProcessID: state.ProcessID,
			Status:    state.Status,
			UpdatedAt: state.UpdatedAt,
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})
	return summaries, nil
}
