package process

import (
	"context"
	"fmt"
	"time"

	"github.com/xldeveloper/foreman/internal/logbook"
	"github.com/xldeveloper/foreman/internal/task"
)

// TaskRunner executes one delegated task to completion. The call blocks for
// the full agent turnaround; cancellation arrives through the context.
type TaskRunner interface {
	RunTask(ctx context.Context, descriptor task.Descriptor, args map[string]any) (TaskResult, error)
}

// Gate resolves a human breakpoint. Resolution can take human-timescale
// durations; implementations must honor context cancellation.
type Gate interface {
	Resolve(ctx context.Context, breakpoint Breakpoint) (Decision, error)
}

// Context carries the narrow runtime dependencies a process needs. Each
// capability is injected separately so tests can stub them independently.
type Context struct {
	RunID   string
	Tasks   TaskRunner
	Gate    Gate
	Logbook *logbook.Logbook
	Clock   func() time.Time

	// Effects allocates per-task contexts; injectable so tests get
	// deterministic effect IDs.
	Effects func() task.Context
}

// Validate ensures the context carries the required capabilities.
func (c *Context) Validate() error {
	if c == nil {
		return fmt.Errorf("process: context is nil")
	}
	if c.RunID == "" {
		return fmt.Errorf("process: run id is required")
	}
	if c.Tasks == nil {
		return fmt.Errorf("process: task runner is required")
	}
	if c.Gate == nil {
		return fmt.Errorf("process: breakpoint gate is required")
	}
	return nil
}

// Now returns the injected clock's time, falling back to the wall clock.
func (c *Context) Now() time.Time {
	if c != nil && c.Clock != nil {
		return c.Clock()
	}
	return time.Now()
}

// TaskContext allocates the per-invocation context for the next task.
func (c *Context) TaskContext() task.Context {
	if c != nil && c.Effects != nil {
		return c.Effects()
	}
	return task.NewContext()
}

// Task builds a descriptor through the factory and runs it. This is the
// single step primitive processes sequence their phases with.
func (c *Context) Task(ctx context.Context, factory task.Factory, args map[string]any) (TaskResult, error) {
	if err := c.Validate(); err != nil {
		return TaskResult{}, err
	}
	descriptor := factory(args, c.TaskContext())
	if err := descriptor.Validate(); err != nil {
		return TaskResult{}, err
	}
	c.Logbook.Info("task %s (%s) dispatched", descriptor.Kind, descriptor.Title)
	result, err := c.Tasks.RunTask(ctx, descriptor, args)
	if err != nil {
		c.Logbook.Error("task %s failed: %v", descriptor.Kind, err)
		return TaskResult{}, err
	}
	c.Logbook.Info("task %s finished (success=%t)", descriptor.Kind, result.Success())
	return result, nil
}

// Breakpoint suspends the run until a human resolves the checkpoint. The run
// ID is stamped into the breakpoint context if the caller left it empty.
func (c *Context) Breakpoint(ctx context.Context, breakpoint Breakpoint) (Decision, error) {
	if err := c.Validate(); err != nil {
		return Decision{}, err
	}
	if breakpoint.Context.RunID == "" {
		breakpoint.Context.RunID = c.RunID
	}
	c.Logbook.Warn("breakpoint raised: %s", breakpoint.Title)
	decision, err := c.Gate.Resolve(ctx, breakpoint)
	if err != nil {
		return Decision{}, err
	}
	if decision.Approved {
		c.Logbook.Info("breakpoint %q approved", breakpoint.Title)
	} else {
		c.Logbook.Warn("breakpoint %q: revision requested: %s", breakpoint.Title, decision.Feedback)
	}
	return decision, nil
}
