package run

import "strings"

// Artifact references one named output produced by a task. Artifacts are
// never mutated after a phase reports them; the orchestrator only aggregates.
type Artifact struct {
	Path   string `json:"path"`
	Format string `json:"format,omitempty"`
	Label  string `json:"label,omitempty"`
}

// Valid reports whether the artifact carries at least a path.
func (a Artifact) Valid() bool {
	return strings.TrimSpace(a.Path) != ""
}

// CollectArtifacts appends the phase's artifacts onto the accumulator in
// order, dropping entries without a path. The input slices are not modified.
func CollectArtifacts(acc []Artifact, phase []Artifact) []Artifact {
	for _, artifact := range phase {
		if artifact.Valid() {
			acc = append(acc, artifact)
		}
	}
	return acc
}

// ArtifactsFromObjects converts loosely-typed artifact declarations (as they
// arrive in agent result JSON) into Artifact values, preserving order.
func ArtifactsFromObjects(values []any) []Artifact {
	if len(values) == 0 {
		return nil
	}
	artifacts := make([]Artifact, 0, len(values))
	for _, value := range values {
		obj, ok := value.(map[string]any)
		if !ok {
			continue
		}
		artifact := Artifact{
			Path:   stringField(obj, "path"),
			Format: stringField(obj, "format"),
			Label:  stringField(obj, "label"),
		}
		if artifact.Valid() {
			artifacts = append(artifacts, artifact)
		}
	}
	return artifacts
}

func stringField(obj map[string]any, key string) string {
	if raw, ok := obj[key]; ok {
		if s, ok := raw.(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}
