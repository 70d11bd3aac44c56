// Package process defines the orchestration contract: a Process sequences
// delegated agent tasks and human breakpoints into one forward-only run,
// threading each phase's result into the next phase's arguments and
// aggregating artifacts along the way.

package process

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Info describes a process's identity and intent.
type Info struct {
	ID          string
	Name        string
	Description string
	Version     string
}

// Validate ensures the info block is well-formed.
func (i Info) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("process: id is required")
	}
	if i.Name == "" {
		return fmt.Errorf("process: name is required for %s", i.ID)
	}
	if i.Version == "" {
		return fmt.Errorf("process: version is required for %s", i.ID)
	}
	return nil
}

// Process is implemented by every orchestration entry point. Run blocks until
// the run finishes: task execution and breakpoint resolution can both take
// unbounded time, so the context is the only way out.
type Process interface {
	Info() Info
	Run(ctx context.Context, pctx *Context, inputs Inputs) (Result, error)
}

// Inputs is the loosely-typed argument bag a process receives. Getters apply
// defaults instead of failing; a process never rejects inputs at the door.
type Inputs map[string]any

// String returns the named field or fallback.
func (in Inputs) String(key, fallback string) string {
	if raw, ok := in[key]; ok {
		if s, ok := raw.(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return fallback
}

// Float returns the named numeric field or fallback.
func (in Inputs) Float(key string, fallback float64) float64 {
	switch v := in[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return fallback
	}
}

// Bool returns the named boolean field or fallback.
func (in Inputs) Bool(key string, fallback bool) bool {
	if v, ok := in[key].(bool); ok {
		return v
	}
	return fallback
}

// Strings returns the named string-list field. Both []string and the
// []any shape produced by JSON decoding are accepted.
func (in Inputs) Strings(key string) []string {
	switch v := in[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Contains reports whether the named string-list field includes value.
// Processes use it for feature-flag style phase toggles.
func (in Inputs) Contains(key, value string) bool {
	for _, item := range in.Strings(key) {
		if strings.EqualFold(strings.TrimSpace(item), value) {
			return true
		}
	}
	return false
}

// Clone returns a shallow copy so a process can thread inputs forward without
// mutating the caller's map.
func (in Inputs) Clone() Inputs {
	if in == nil {
		return Inputs{}
	}
	clone := make(Inputs, len(in))
	for key, value := range in {
		clone[key] = value
	}
	return clone
}

// Metadata stamps the terminal result with run provenance.
type Metadata struct {
	ProcessID string `json:"processId"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// NewMetadata builds the provenance block for a process at a point in time.
func NewMetadata(info Info, now time.Time) Metadata {
	return Metadata{
		ProcessID: info.ID,
		Timestamp: now.UTC().Format(time.RFC3339),
		Version:   info.Version,
	}
}
