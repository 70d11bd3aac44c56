package process

import (
	"encoding/json"
	"time"

	"github.com/xldeveloper/foreman/internal/run"
)

// Result is the terminal object every process returns. Domain fields live in
// Fields and are flattened to the top level when serialized, matching the
// executor's result.json contract.
type Result struct {
	Success   bool
	Error     string
	Phase     string
	Details   map[string]any
	Fields    map[string]any
	Artifacts []run.Artifact
	Duration  time.Duration
	Metadata  Metadata
}

// Failure builds the gate short-circuit result: success false, the failing
// phase tag, and whatever details the gate gathered.
func Failure(phase, message string, details map[string]any) Result {
	return Result{
		Success: false,
		Error:   message,
		Phase:   phase,
		Details: details,
	}
}

// Field records one domain field on the result.
func (r *Result) Field(key string, value any) {
	if r.Fields == nil {
		r.Fields = map[string]any{}
	}
	r.Fields[key] = value
}

// MarshalJSON flattens Fields alongside the fixed envelope keys.
func (r Result) MarshalJSON() ([]byte, error) {
	document := make(map[string]any, len(r.Fields)+7)
	for key, value := range r.Fields {
		document[key] = value
	}
	document["success"] = r.Success
	if r.Error != "" {
		document["error"] = r.Error
	}
	if r.Phase != "" {
		document["phase"] = r.Phase
	}
	if len(r.Details) > 0 {
		document["details"] = r.Details
	}
	document["artifacts"] = artifactsOrEmpty(r.Artifacts)
	document["duration"] = r.Duration.Seconds()
	document["metadata"] = r.Metadata
	return json.Marshal(document)
}

func artifactsOrEmpty(artifacts []run.Artifact) []run.Artifact {
	if artifacts == nil {
		return []run.Artifact{}
	}
	return artifacts
}

// TaskResult wraps the schema-validated JSON object an agent task produced.
type TaskResult struct {
	Object map[string]any
}

// Success reports the conventional success flag. Results without the flag
// count as successful; only an explicit false fails a gate.
func (t TaskResult) Success() bool {
	if v, ok := t.Object["success"].(bool); ok {
		return v
	}
	return true
}

// Field returns a named field of the result object.
func (t TaskResult) Field(key string) (any, bool) {
	v, ok := t.Object[key]
	return v, ok
}

// Artifacts extracts the conventional artifacts list from the result object.
func (t TaskResult) Artifacts() []run.Artifact {
	raw, ok := t.Object["artifacts"].([]any)
	if !ok {
		return nil
	}
	return run.ArtifactsFromObjects(raw)
}

// Decode unmarshals the result object into a typed phase struct. This is the
// boundary where the implicit field-name contract between phases becomes a
// checked one.
func (t TaskResult) Decode(v any) error {
	encoded, err := json.Marshal(t.Object)
	if err != nil {
		return err
	}
	return json.Unmarshal(encoded, v)
}
