package run

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// TaskMeta is the provenance block stamped into every task IO document under
// the "_foreman" key.
type TaskMeta struct {
	Process string `json:"process"`
	Kind    string `json:"kind"`
	Effect  string `json:"effect"`
	Created string `json:"created"`
}

// IOStore persists task input/result documents for a run.
type IOStore struct {
	run *Run
	now func() time.Time
}

// IOStoreOption customizes an IOStore during construction.
type IOStoreOption func(*IOStore)

// WithIOClock overrides the metadata timestamp source.
func WithIOClock(clock func() time.Time) IOStoreOption {
	return func(s *IOStore) {
		if clock != nil {
			s.now = clock
		}
	}
}

// NewIOStore builds a store for a run.
func NewIOStore(r *Run, opts ...IOStoreOption) *IOStore {
	store := &IOStore{run: r, now: time.Now}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// WriteInput persists tasks/<effect>/input.json with provenance metadata.
func (s *IOStore) WriteInput(meta TaskMeta, payload map[string]any) error {
	return s.write(s.run.TaskInputPath(meta.Effect), meta, payload)
}

// WriteResult persists tasks/<effect>/result.json with provenance metadata.
func (s *IOStore) WriteResult(meta TaskMeta, payload map[string]any) error {
	return s.write(s.run.TaskResultPath(meta.Effect), meta, payload)
}

// ReadResult loads tasks/<effect>/result.json, stripping the metadata block.
func (s *IOStore) ReadResult(effectID string) (map[string]any, TaskMeta, error) {
	return s.read(s.run.TaskResultPath(effectID))
}

// ReadInput loads tasks/<effect>/input.json, stripping the metadata block.
func (s *IOStore) ReadInput(effectID string) (map[string]any, TaskMeta, error) {
	return s.read(s.run.TaskInputPath(effectID))
}

func (s *IOStore) write(path string, meta TaskMeta, payload map[string]any) error {
	if meta.Effect == "" {
		return fmt.Errorf("run: task metadata missing effect id")
	}
	if meta.Kind == "" {
		return fmt.Errorf("run: task metadata missing kind for effect %s", meta.Effect)
	}
	if meta.Created == "" {
		meta.Created = s.now().UTC().Format(time.RFC3339)
	}
	document := make(map[string]any, len(payload)+1)
	for key, value := range payload {
		document[key] = value
	}
	document["_foreman"] = meta
	encoded, err := json.MarshalIndent(document, "", "  ")
	if err != nil {
		return fmt.Errorf("run: encode task document %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, append(encoded, '\n'), 0o644)
}

func (s *IOStore) read(path string) (map[string]any, TaskMeta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, TaskMeta{}, fmt.Errorf("run: read task document %s: %w", path, err)
	}
	var document map[string]any
	if err := json.Unmarshal(data, &document); err != nil {
		return nil, TaskMeta{}, fmt.Errorf("run: parse task document %s: %w", path, err)
	}
	meta, err := extractTaskMeta(document)
	if err != nil {
		return nil, TaskMeta{}, fmt.Errorf("run: %s: %w", path, err)
	}
	delete(document, "_foreman")
	return document, meta, nil
}

func extractTaskMeta(document map[string]any) (TaskMeta, error) {
	raw, ok := document["_foreman"]
	if !ok {
		return TaskMeta{}, fmt.Errorf("missing _foreman metadata")
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return TaskMeta{}, fmt.Errorf("invalid _foreman metadata: %w", err)
	}
	var meta TaskMeta
	if err := json.Unmarshal(encoded, &meta); err != nil {
		return TaskMeta{}, fmt.Errorf("invalid _foreman metadata: %w", err)
	}
	if meta.Effect == "" || meta.Kind == "" {
		return TaskMeta{}, fmt.Errorf("incomplete _foreman metadata")
	}
	return meta, nil
}
