// Package run owns the on-disk layout of a single orchestration run.
// Every run gets a directory under .foreman/runs/<runID> holding the
// state file, the event journal, per-task IO folders, and the terminal
// result document.

package run

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Run identifies one orchestration run and resolves its file layout.
type Run struct {
	ID        string
	ProcessID string
	dir       string
}

// New builds a run handle rooted at runsDir/<id>.
func New(runsDir, id, processID string) (*Run, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("run: id is required")
	}
	if strings.TrimSpace(runsDir) == "" {
		return nil, fmt.Errorf("run: runs directory is required for %s", id)
	}
	return &Run{
		ID:        id,
		ProcessID: strings.TrimSpace(processID),
		dir:       filepath.Join(runsDir, id),
	}, nil
}

// Initialize creates the run directory tree.
func (r *Run) Initialize() error {
	dirs := []string{
		r.Dir(),
		r.TasksDir(),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("run: ensure %s: %w", dir, err)
		}
	}
	return nil
}

// Dir returns the root directory of the run.
func (r *Run) Dir() string {
	return r.dir
}

// StatePath returns the state.json location.
func (r *Run) StatePath() string {
	return filepath.Join(r.dir, "state.json")
}

// JournalPath returns the journal.jsonl location.
func (r *Run) JournalPath() string {
	return filepath.Join(r.dir, "journal.jsonl")
}

// ResultPath returns the terminal result.json location.
func (r *Run) ResultPath() string {
	return filepath.Join(r.dir, "result.json")
}

// LogbookPath returns the per-run logbook location.
func (r *Run) LogbookPath() string {
	return filepath.Join(r.dir, "logbook.log")
}

// TasksDir returns the folder holding per-effect task IO.
func (r *Run) TasksDir() string {
	return filepath.Join(r.dir, "tasks")
}

// TaskDir returns the IO folder for one task effect.
func (r *Run) TaskDir(effectID string) string {
	return filepath.Join(r.TasksDir(), effectID)
}

// TaskInputPath returns the input.json path for a task effect.
func (r *Run) TaskInputPath(effectID string) string {
	return filepath.Join(r.TaskDir(effectID), "input.json")
}

// TaskResultPath returns the result.json path for a task effect.
func (r *Run) TaskResultPath(effectID string) string {
	return filepath.Join(r.TaskDir(effectID), "result.json")
}
