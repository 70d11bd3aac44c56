// Package task defines the declarative descriptor for one delegated unit of
// work. Descriptors are plain data: a factory builds one per invocation, the
// executor consumes it, nothing is retained. Construction cannot fail; all
// fallibility lives in the executor.

package task

import (
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
)

// KindAgent marks tasks whose execution is delegated to a generative agent.
const KindAgent = "agent"

// PromptSpec bundles the prompt fields handed to the agent.
type PromptSpec struct {
	Role         string `json:"role"`
	Task         string `json:"task"`
	Context      string `json:"context,omitempty"`
	Instructions string `json:"instructions,omitempty"`
	OutputFormat string `json:"outputFormat,omitempty"`
}

// AgentSpec names the agent and declares the shape of its expected output.
type AgentSpec struct {
	Name         string             `json:"name"`
	Prompt       PromptSpec         `json:"prompt"`
	OutputSchema *jsonschema.Schema `json:"outputSchema,omitempty"`
}

// IOSpec carries the file-path contract with the executor. Paths are relative
// to the run directory and always use forward slashes.
type IOSpec struct {
	InputPath  string `json:"inputJsonPath"`
	OutputPath string `json:"outputJsonPath"`
}

// Descriptor describes one delegated unit of work.
type Descriptor struct {
	Kind   string    `json:"kind"`
	Title  string    `json:"title"`
	Agent  AgentSpec `json:"agent"`
	IO     IOSpec    `json:"io"`
	Labels []string  `json:"labels,omitempty"`
}

// Validate ensures a descriptor is complete enough for the executor.
func (d Descriptor) Validate() error {
	if strings.TrimSpace(d.Kind) == "" {
		return fmt.Errorf("task: kind is required")
	}
	if strings.TrimSpace(d.Title) == "" {
		return fmt.Errorf("task: title is required for %s", d.Kind)
	}
	if d.Kind == KindAgent {
		if strings.TrimSpace(d.Agent.Name) == "" {
			return fmt.Errorf("task: agent name is required for %s", d.Kind)
		}
		if strings.TrimSpace(d.Agent.Prompt.Task) == "" {
			return fmt.Errorf("task: prompt task is required for %s", d.Kind)
		}
		if d.Agent.OutputSchema == nil {
			return fmt.Errorf("task: output schema is required for %s", d.Kind)
		}
	}
	if strings.TrimSpace(d.IO.InputPath) == "" || strings.TrimSpace(d.IO.OutputPath) == "" {
		return fmt.Errorf("task: io paths are required for %s", d.Kind)
	}
	return nil
}
