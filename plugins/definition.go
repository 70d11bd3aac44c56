// Package plugins loads declarative process definitions from YAML. A
// definition names its phases; each phase carries a task template, an
// optional gate on the phase result, and an optional breakpoint. Loaded
// definitions are adapted into process implementations and registered
// alongside the built-ins.
package plugins

import (
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
)

// ProcessDefinition describes a declarative process loaded from
// .foreman/processes/*.yaml.
type ProcessDefinition struct {
	ID          string            `json:"id" yaml:"id"`
	Name        string            `json:"name,omitempty" yaml:"name,omitempty"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Version     string            `json:"version" yaml:"version"`
	Defaults    map[string]any    `json:"defaults,omitempty" yaml:"defaults,omitempty"`
	Phases      []PhaseDefinition `json:"phases" yaml:"phases"`
}

// PhaseDefinition is one sequential step of a declarative process.
type PhaseDefinition struct {
	Name       string                `json:"name" yaml:"name"`
	Task       TaskDefinition        `json:"task" yaml:"task"`
	Gate       *GateDefinition       `json:"gate,omitempty" yaml:"gate,omitempty"`
	Breakpoint *BreakpointDefinition `json:"breakpoint,omitempty" yaml:"breakpoint,omitempty"`
}

// TaskDefinition is the descriptor template for a phase's agent task.
type TaskDefinition struct {
	Kind   string           `json:"kind" yaml:"kind"`
	Title  string           `json:"title" yaml:"title"`
	Agent  string           `json:"agent" yaml:"agent"`
	Prompt PromptDefinition `json:"prompt" yaml:"prompt"`
	Output OutputDefinition `json:"output" yaml:"output"`
	Labels []string         `json:"labels,omitempty" yaml:"labels,omitempty"`
}

// PromptDefinition mirrors the descriptor prompt fields.
type PromptDefinition struct {
	Role         string `json:"role,omitempty" yaml:"role,omitempty"`
	Task         string `json:"task" yaml:"task"`
	Context      string `json:"context,omitempty" yaml:"context,omitempty"`
	Instructions string `json:"instructions,omitempty" yaml:"instructions,omitempty"`
	OutputFormat string `json:"output_format,omitempty" yaml:"output_format,omitempty"`
}

// OutputDefinition declares the expected result shape as named, typed fields.
type OutputDefinition struct {
	Required []string          `json:"required,omitempty" yaml:"required,omitempty"`
	Fields   []FieldDefinition `json:"fields" yaml:"fields"`
}

// FieldDefinition is one property of a phase's output schema.
type FieldDefinition struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

// GateDefinition stops the run when the phase result does not satisfy the
// check: Require names a field that must be truthy, NotEmpty a list field
// that must have entries. The result's success flag is always checked.
type GateDefinition struct {
	Require  string `json:"require,omitempty" yaml:"require,omitempty"`
	NotEmpty string `json:"not_empty,omitempty" yaml:"not_empty,omitempty"`
	Message  string `json:"message,omitempty" yaml:"message,omitempty"`
}

// BreakpointDefinition raises a human checkpoint after the phase completes.
type BreakpointDefinition struct {
	Title    string `json:"title" yaml:"title"`
	Question string `json:"question" yaml:"question"`
	Summary  string `json:"summary,omitempty" yaml:"summary,omitempty"`
}

var fieldTypes = map[string]bool{
	"string":  true,
	"boolean": true,
	"number":  true,
	"integer": true,
	"array":   true,
	"object":  true,
}

// Normalized returns a trimmed copy of the definition.
func (def ProcessDefinition) Normalized() ProcessDefinition {
	clone := ProcessDefinition{
		ID:          strings.TrimSpace(def.ID),
		Name:        strings.TrimSpace(def.Name),
		Description: strings.TrimSpace(def.Description),
		Version:     strings.TrimSpace(def.Version),
	}
	if clone.Name == "" {
		clone.Name = clone.ID
	}
	if len(def.Defaults) > 0 {
		clone.Defaults = make(map[string]any, len(def.Defaults))
		for key, value := range def.Defaults {
			if trimmed := strings.TrimSpace(key); trimmed != "" {
				clone.Defaults[trimmed] = value
			}
		}
	}
	if len(def.Phases) > 0 {
		clone.Phases = make([]PhaseDefinition, len(def.Phases))
		for i, phase := range def.Phases {
			clone.Phases[i] = phase.normalized()
		}
	}
	return clone
}

func (phase PhaseDefinition) normalized() PhaseDefinition {
	clone := PhaseDefinition{
		Name: strings.TrimSpace(phase.Name),
		Task: phase.Task.normalized(),
	}
	if phase.Gate != nil {
		gate := GateDefinition{
			Require:  strings.TrimSpace(phase.Gate.Require),
			NotEmpty: strings.TrimSpace(phase.Gate.NotEmpty),
			Message:  strings.TrimSpace(phase.Gate.Message),
		}
		clone.Gate = &gate
	}
	if phase.Breakpoint != nil {
		breakpoint := BreakpointDefinition{
			Title:    strings.TrimSpace(phase.Breakpoint.Title),
			Question: strings.TrimSpace(phase.Breakpoint.Question),
			Summary:  strings.TrimSpace(phase.Breakpoint.Summary),
		}
		clone.Breakpoint = &breakpoint
	}
	return clone
}

func (t TaskDefinition) normalized() TaskDefinition {
	clone := TaskDefinition{
		Kind:  strings.TrimSpace(t.Kind),
		Title: strings.TrimSpace(t.Title),
		Agent: strings.TrimSpace(t.Agent),
		Prompt: PromptDefinition{
			Role:         strings.TrimSpace(t.Prompt.Role),
			Task:         strings.TrimSpace(t.Prompt.Task),
			Context:      strings.TrimSpace(t.Prompt.Context),
			Instructions: strings.TrimSpace(t.Prompt.Instructions),
			OutputFormat: strings.TrimSpace(t.Prompt.OutputFormat),
		},
	}
	clone.Output.Required = make([]string, 0, len(t.Output.Required))
	for _, name := range t.Output.Required {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			clone.Output.Required = append(clone.Output.Required, trimmed)
		}
	}
	clone.Output.Fields = make([]FieldDefinition, 0, len(t.Output.Fields))
	for _, field := range t.Output.Fields {
		clone.Output.Fields = append(clone.Output.Fields, FieldDefinition{
			Name: strings.TrimSpace(field.Name),
			Type: strings.ToLower(strings.TrimSpace(field.Type)),
		})
	}
	for _, label := range t.Labels {
		if trimmed := strings.TrimSpace(label); trimmed != "" {
			clone.Labels = append(clone.Labels, trimmed)
		}
	}
	return clone
}

// Validate ensures the definition is complete enough to adapt into a process.
func (def ProcessDefinition) Validate() error {
	normalized := def.Normalized()
	if normalized.ID == "" {
		return fmt.Errorf("plugin: id is required")
	}
	if normalized.Version == "" {
		return fmt.Errorf("plugin %s: version is required", normalized.ID)
	}
	if len(normalized.Phases) == 0 {
		return fmt.Errorf("plugin %s: at least one phase is required", normalized.ID)
	}
	seen := map[string]bool{}
	for i, phase := range normalized.Phases {
		if phase.Name == "" {
			return fmt.Errorf("plugin %s: phase %d: name is required", normalized.ID, i)
		}
		if seen[phase.Name] {
			return fmt.Errorf("plugin %s: duplicate phase %s", normalized.ID, phase.Name)
		}
		seen[phase.Name] = true
		if err := phase.Task.validate(); err != nil {
			return fmt.Errorf("plugin %s: phase %s: %w", normalized.ID, phase.Name, err)
		}
		if phase.Gate != nil && phase.Gate.Require == "" && phase.Gate.NotEmpty == "" {
			return fmt.Errorf("plugin %s: phase %s: gate needs require or not_empty", normalized.ID, phase.Name)
		}
		if phase.Breakpoint != nil && (phase.Breakpoint.Title == "" || phase.Breakpoint.Question == "") {
			return fmt.Errorf("plugin %s: phase %s: breakpoint needs title and question", normalized.ID, phase.Name)
		}
	}
	return nil
}

func (t TaskDefinition) validate() error {
	if t.Kind == "" {
		return fmt.Errorf("task kind is required")
	}
	if t.Title == "" {
		return fmt.Errorf("task title is required")
	}
	if t.Agent == "" {
		return fmt.Errorf("agent name is required")
	}
	if t.Prompt.Task == "" {
		return fmt.Errorf("prompt task is required")
	}
	if len(t.Output.Fields) == 0 {
		return fmt.Errorf("output fields are required")
	}
	declared := map[string]bool{}
	for i, field := range t.Output.Fields {
		if field.Name == "" {
			return fmt.Errorf("output field %d: name is required", i)
		}
		if !fieldTypes[field.Type] {
			return fmt.Errorf("output field %s: unknown type %q", field.Name, field.Type)
		}
		declared[field.Name] = true
	}
	for _, name := range t.Output.Required {
		if !declared[name] {
			return fmt.Errorf("required field %s is not declared", name)
		}
	}
	return nil
}

// Schema converts the declared output fields into the JSON Schema attached to
// the task descriptor.
func (o OutputDefinition) Schema() *jsonschema.Schema {
	properties := jsonschema.NewProperties()
	for _, field := range o.Fields {
		properties.Set(field.Name, &jsonschema.Schema{Type: field.Type})
	}
	return &jsonschema.Schema{
		Type:       "object",
		Properties: properties,
		Required:   append([]string(nil), o.Required...),
	}
}
