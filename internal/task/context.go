package task

import (
	"fmt"
	"path"

	"github.com/google/uuid"
)

// Context carries the per-invocation values a factory needs. The effect ID
// namespaces the task's IO files so repeated invocations of the same kind
// never collide within a run.
type Context struct {
	EffectID string
}

// NewContext allocates a fresh effect ID.
func NewContext() Context {
	return Context{EffectID: uuid.NewString()}
}

// IO resolves the executor file contract for this invocation:
// tasks/<effectID>/input.json and tasks/<effectID>/result.json.
func (c Context) IO() IOSpec {
	return IOSpec{
		InputPath:  path.Join("tasks", c.EffectID, "input.json"),
		OutputPath: path.Join("tasks", c.EffectID, "result.json"),
	}
}

// Validate ensures the context can namespace IO paths.
func (c Context) Validate() error {
	if c.EffectID == "" {
		return fmt.Errorf("task: effect id is required")
	}
	return nil
}

// Factory builds a descriptor from loosely-typed arguments and the
// per-invocation context. Factories are pure: no I/O, no side effects,
// referentially transparent apart from the injected effect ID.
type Factory func(args map[string]any, tctx Context) Descriptor
