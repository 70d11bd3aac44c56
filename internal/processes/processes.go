// Package processes wires the built-in process implementations into the
// registries the host resolves from.
package processes

import (
	"github.com/xldeveloper/foreman/internal/process"
	"github.com/xldeveloper/foreman/internal/processes/powder"
	"github.com/xldeveloper/foreman/internal/processes/quantum"
	"github.com/xldeveloper/foreman/internal/task"
)

// RegisterBuiltins installs all of the built-in processes into the process
// registry and their task factories into the task registry.
func RegisterBuiltins(procs *process.Registry, tasks *task.Registry) {
	if procs != nil {
		powder.Register(procs)
		quantum.Register(procs)
	}
	if tasks != nil {
		powder.RegisterTasks(tasks)
		quantum.RegisterTasks(tasks)
	}
}
