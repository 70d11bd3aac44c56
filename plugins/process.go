package plugins

import (
	"context"
	"fmt"

	"github.com/xldeveloper/foreman/internal/process"
	"github.com/xldeveloper/foreman/internal/run"
	"github.com/xldeveloper/foreman/internal/task"
)

// declarativeProcess adapts a ProcessDefinition into a process.Process.
// Phase results are merged into the running argument bag, so later phases
// see every field earlier phases produced, mirroring how the built-in
// processes thread results forward.
type declarativeProcess struct {
	def ProcessDefinition
}

// NewProcess adapts a validated definition into a runnable process.
func NewProcess(def ProcessDefinition) (process.Process, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &declarativeProcess{def: def.Normalized()}, nil
}

// RegisterAll adapts and registers every loaded definition.
func RegisterAll(reg *process.Registry, defs []DefinitionFile) error {
	for _, file := range defs {
		def := file.Definition
		proc, err := NewProcess(def)
		if err != nil {
			return fmt.Errorf("plugin: %s: %w", file.Path, err)
		}
		if err := reg.Register(def.ID, func() (process.Process, error) {
			return proc, nil
		}); err != nil {
			return fmt.Errorf("plugin: %s: %w", file.Path, err)
		}
	}
	return nil
}

// Info implements process.Process.
func (p *declarativeProcess) Info() process.Info {
	return process.Info{
		ID:          p.def.ID,
		Name:        p.def.Name,
		Description: p.def.Description,
		Version:     p.def.Version,
	}
}

// Run implements process.Process.
func (p *declarativeProcess) Run(ctx context.Context, pctx *process.Context, inputs process.Inputs) (process.Result, error) {
	args := inputs.Clone()
	for key, value := range p.def.Defaults {
		if _, ok := args[key]; !ok {
			args[key] = value
		}
	}

	var artifacts []run.Artifact
	feedback := map[string]string{}
	var lastObject map[string]any

	for _, phase := range p.def.Phases {
		factory := descriptorFactory(phase.Task)
		result, err := pctx.Task(ctx, factory, args)
		if err != nil {
			return process.Result{}, err
		}
		artifacts = run.CollectArtifacts(artifacts, result.Artifacts())

		if phase.Gate != nil {
			if failed, details := gateFailure(*phase.Gate, result); failed {
				message := phase.Gate.Message
				if message == "" {
					message = fmt.Sprintf("gate failed at phase %s", phase.Name)
				}
				return process.Failure(phase.Name, message, details), nil
			}
		}

		lastObject = result.Object
		for key, value := range result.Object {
			if key == "artifacts" || key == "_foreman" {
				continue
			}
			args[key] = value
		}

		if phase.Breakpoint != nil {
			decision, err := pctx.Breakpoint(ctx, process.Breakpoint{
				Title:    phase.Breakpoint.Title,
				Question: phase.Breakpoint.Question,
				Context: process.BreakpointContext{
					Summary: phase.Breakpoint.Summary,
					Files:   artifactPaths(artifacts),
				},
			})
			if err != nil {
				return process.Result{}, err
			}
			if decision.Feedback != "" {
				feedback[phase.Name] = decision.Feedback
			}
		}
	}

	result := process.Result{Success: true, Artifacts: artifacts}
	phaseNames := make([]string, 0, len(p.def.Phases))
	for _, phase := range p.def.Phases {
		phaseNames = append(phaseNames, phase.Name)
	}
	result.Field("phases", phaseNames)
	for key, value := range lastObject {
		if key == "success" || key == "artifacts" || key == "_foreman" {
			continue
		}
		result.Field(key, value)
	}
	if len(feedback) > 0 {
		result.Field("feedback", feedback)
	}
	return result, nil
}

// descriptorFactory turns a task template into a task.Factory.
func descriptorFactory(def TaskDefinition) task.Factory {
	return func(_ map[string]any, tctx task.Context) task.Descriptor {
		return task.Descriptor{
			Kind:  def.Kind,
			Title: def.Title,
			Agent: task.AgentSpec{
				Name: def.Agent,
				Prompt: task.PromptSpec{
					Role:         def.Prompt.Role,
					Task:         def.Prompt.Task,
					Context:      def.Prompt.Context,
					Instructions: def.Prompt.Instructions,
					OutputFormat: def.Prompt.OutputFormat,
				},
				OutputSchema: def.Output.Schema(),
			},
			IO:     tctx.IO(),
			Labels: append([]string(nil), def.Labels...),
		}
	}
}

func gateFailure(gate GateDefinition, result process.TaskResult) (bool, map[string]any) {
	if !result.Success() {
		return true, map[string]any{"reason": "phase reported failure"}
	}
	if gate.Require != "" {
		value, ok := result.Field(gate.Require)
		if !ok || !truthy(value) {
			return true, map[string]any{"field": gate.Require, "value": value}
		}
	}
	if gate.NotEmpty != "" {
		value, _ := result.Field(gate.NotEmpty)
		if emptyCollection(value) {
			return true, map[string]any{"field": gate.NotEmpty, "reason": "empty collection"}
		}
	}
	return false, nil
}

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case float64:
		return v != 0
	case int:
		return v != 0
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	default:
		return true
	}
}

func emptyCollection(value any) bool {
	switch v := value.(type) {
	case []any:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	case string:
		return v == ""
	case nil:
		return true
	default:
		return false
	}
}

func artifactPaths(artifacts []run.Artifact) []string {
	paths := make([]string, 0, len(artifacts))
	for _, artifact := range artifacts {
		paths = append(paths, artifact.Path)
	}
	return paths
}
