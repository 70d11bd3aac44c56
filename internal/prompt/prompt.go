// Package prompt renders the text handed to an agent. Templates use the
// executor's placeholder contract: {{task}} and {{context}} expand to the
// task statement and the pretty-printed input JSON.

package prompt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/xldeveloper/foreman/internal/task"
)

// Render expands a prompt template. The {{task}} and {{context}} placeholders
// are bound as template functions so the on-disk template files stay plain.
func Render(templateText, taskText string, contextData any) (string, error) {
	contextJSON, err := json.MarshalIndent(contextData, "", "  ")
	if err != nil {
		return "", fmt.Errorf("prompt: encode context: %w", err)
	}
	tmpl, err := template.New("agent_prompt").Funcs(template.FuncMap{
		"task":    func() string { return taskText },
		"context": func() string { return string(contextJSON) },
	}).Parse(templateText)
	if err != nil {
		return "", fmt.Errorf("prompt: parse template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, nil); err != nil {
		return "", fmt.Errorf("prompt: render template: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// Compose assembles the default prompt from a descriptor's prompt spec, the
// output schema, and the encoded input arguments. Used when no template file
// is configured.
func Compose(spec task.PromptSpec, schemaJSON, inputJSON string) string {
	var b strings.Builder
	section := func(label, text string) {
		if strings.TrimSpace(text) == "" {
			return
		}
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", label, strings.TrimSpace(text))
	}
	section("Role", spec.Role)
	section("Task", spec.Task)
	section("Context", spec.Context)
	section("Instructions", spec.Instructions)
	if strings.TrimSpace(inputJSON) != "" {
		section("Input", fmt.Sprintf("```json\n%s\n```", strings.TrimSpace(inputJSON)))
	}
	format := strings.TrimSpace(spec.OutputFormat)
	if format == "" {
		format = "Respond with a single JSON object matching the output schema. No prose outside the JSON."
	}
	section("Output Format", format)
	if strings.TrimSpace(schemaJSON) != "" {
		section("Output Schema", fmt.Sprintf("```json\n%s\n```", strings.TrimSpace(schemaJSON)))
	}
	return strings.TrimSpace(b.String())
}
