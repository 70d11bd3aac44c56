package run

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Status enumerates run lifecycle states.
type Status string

const (
	StatusCreated          Status = "created"
	StatusRunning          Status = "running"
	StatusAwaitingApproval Status = "awaiting-approval"
	StatusCompleted        Status = "completed"
	StatusFailed           Status = "failed"
)

// State is the persisted run snapshot stored in state.json. The external
// executor contract counts journal events from NextEventID, so the field is
// persisted rather than derived.
type State struct {
	RunID       string    `json:"runId"`
	ProcessID   string    `json:"processId"`
	Status      Status    `json:"status"`
	NextEventID int       `json:"nextEventId"`
	StartedAt   time.Time `json:"startedAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NewState seeds the initial snapshot for a run.
func NewState(r *Run, now time.Time) State {
	return State{
		RunID:       r.ID,
		ProcessID:   r.ProcessID,
		Status:      StatusCreated,
		NextEventID: 1,
		StartedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}
}

// LoadState reads state.json for the run.
func (r *Run) LoadState() (State, error) {
	data, err := os.ReadFile(r.StatePath())
	if err != nil {
		return State{}, fmt.Errorf("run: read state for %s: %w", r.ID, err)
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, fmt.Errorf("run: parse state for %s: %w", r.ID, err)
	}
	if state.NextEventID < 1 {
		state.NextEventID = 1
	}
	return state, nil
}

// SaveState writes state.json atomically-enough for a single-writer run.
func (r *Run) SaveState(state State) error {
	if state.RunID == "" {
		state.RunID = r.ID
	}
	if state.ProcessID == "" {
		state.ProcessID = r.ProcessID
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("run: encode state for %s: %w", r.ID, err)
	}
	if err := os.MkdirAll(filepath.Dir(r.StatePath()), 0o755); err != nil {
		return err
	}
	return os.WriteFile(r.StatePath(), append(data, '\n'), 0o644)
}

// HasState reports whether state.json exists yet.
func (r *Run) HasState() (bool, error) {
	_, err := os.Stat(r.StatePath())
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}
