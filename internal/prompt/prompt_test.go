package prompt

import (
	"strings"
	"testing"

	"github.com/xldeveloper/foreman/internal/task"
)

func TestRenderExpandsPlaceholders(t *testing.T) {
	templateText := "You are an engineer.\n\nTask: {{task}}\n\nContext:\n{{context}}\n"
	rendered, err := Render(templateText, "Characterize the powder lot.", map[string]any{
		"materialSystem": "WC-Co",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(rendered, "Task: Characterize the powder lot.") {
		t.Fatalf("task not expanded: %s", rendered)
	}
	if !strings.Contains(rendered, `"materialSystem": "WC-Co"`) {
		t.Fatalf("context not expanded: %s", rendered)
	}
}

func TestRenderRejectsMalformedTemplate(t *testing.T) {
	if _, err := Render("{{task", "t", nil); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestComposeOrdersSections(t *testing.T) {
	spec := task.PromptSpec{
		Role:         "You are a materials engineer.",
		Task:         "Design a blend.",
		Instructions: "Use only the listed constituents.",
	}
	prompt := Compose(spec, `{"type":"object"}`, `{"constituents":["WC","Co"]}`)
	roleIdx := strings.Index(prompt, "## Role")
	taskIdx := strings.Index(prompt, "## Task")
	schemaIdx := strings.Index(prompt, "## Output Schema")
	if roleIdx < 0 || taskIdx < 0 || schemaIdx < 0 {
		t.Fatalf("missing sections: %s", prompt)
	}
	if !(roleIdx < taskIdx && taskIdx < schemaIdx) {
		t.Fatalf("sections out of order: %s", prompt)
	}
	if !strings.Contains(prompt, "single JSON object") {
		t.Fatalf("default output format missing: %s", prompt)
	}
	if strings.Contains(prompt, "## Context") {
		t.Fatalf("empty sections should be skipped: %s", prompt)
	}
}
