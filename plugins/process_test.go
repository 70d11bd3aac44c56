package plugins

import (
	"context"
	"fmt"
	"testing"

	"github.com/xldeveloper/foreman/internal/process"
	"github.com/xldeveloper/foreman/internal/task"
)

type scriptedRunner struct {
	outputs map[string]map[string]any
	calls   []string
	args    []map[string]any
}

func (r *scriptedRunner) RunTask(_ context.Context, d task.Descriptor, args map[string]any) (process.TaskResult, error) {
	r.calls = append(r.calls, d.Kind)
	copied := make(map[string]any, len(args))
	for key, value := range args {
		copied[key] = value
	}
	r.args = append(r.args, copied)
	output, ok := r.outputs[d.Kind]
	if !ok {
		return process.TaskResult{}, fmt.Errorf("no scripted output for %s", d.Kind)
	}
	object := make(map[string]any, len(output))
	for key, value := range output {
		object[key] = value
	}
	return process.TaskResult{Object: object}, nil
}

type recordingGate struct {
	titles   []string
	feedback string
}

func (g *recordingGate) Resolve(_ context.Context, breakpoint process.Breakpoint) (process.Decision, error) {
	g.titles = append(g.titles, breakpoint.Title)
	return process.Decision{Approved: true, Feedback: g.feedback}, nil
}

func newContext(runner process.TaskRunner, gate process.Gate) *process.Context {
	effect := 0
	return &process.Context{
		RunID: "alloy-screening-test",
		Tasks: runner,
		Gate:  gate,
		Effects: func() task.Context {
			effect++
			return task.Context{EffectID: fmt.Sprintf("effect-%d", effect)}
		},
	}
}

func loadedProcess(t *testing.T) process.Process {
	t.Helper()
	def, err := ParseProcessYAML([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	proc, err := NewProcess(def)
	if err != nil {
		t.Fatalf("adapt: %v", err)
	}
	return proc
}

func TestDeclarativeRunThreadsResultsForward(t *testing.T) {
	runner := &scriptedRunner{outputs: map[string]map[string]any{
		"ms-candidate-screening": {
			"success":    true,
			"candidates": []any{"Ti-6Al-4V", "Ti-5553"},
			"artifacts":  []any{map[string]any{"path": "screening.json", "format": "json"}},
		},
		"ms-candidate-ranking": {
			"success": true,
			"ranking": []any{"Ti-5553", "Ti-6Al-4V"},
		},
	}}
	gate := &recordingGate{feedback: "looks right"}
	proc := loadedProcess(t)

	result, err := proc.Run(context.Background(), newContext(runner, gate), process.Inputs{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success: %+v", result)
	}
	if runner.args[0]["alloySystem"] != "Ti-6Al-4V" {
		t.Fatalf("defaults not applied: %+v", runner.args[0])
	}
	candidates, ok := runner.args[1]["candidates"].([]any)
	if !ok || len(candidates) != 2 {
		t.Fatalf("phase result not threaded forward: %+v", runner.args[1])
	}
	if len(gate.titles) != 1 || gate.titles[0] != "Ranking review" {
		t.Fatalf("unexpected breakpoints: %v", gate.titles)
	}
	if len(result.Artifacts) != 1 || result.Artifacts[0].Path != "screening.json" {
		t.Fatalf("artifacts not aggregated: %+v", result.Artifacts)
	}
	feedback, ok := result.Fields["feedback"].(map[string]string)
	if !ok || feedback["rank-candidates"] != "looks right" {
		t.Fatalf("feedback not recorded: %+v", result.Fields)
	}
	if _, ok := result.Fields["ranking"]; !ok {
		t.Fatalf("final phase fields not surfaced: %+v", result.Fields)
	}
}

func TestDeclarativeGateShortCircuits(t *testing.T) {
	runner := &scriptedRunner{outputs: map[string]map[string]any{
		"ms-candidate-screening": {
			"success":    true,
			"candidates": []any{},
		},
	}}
	proc := loadedProcess(t)

	result, err := proc.Run(context.Background(), newContext(runner, &recordingGate{}), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Success {
		t.Fatalf("expected gate failure")
	}
	if result.Phase != "screen-candidates" {
		t.Fatalf("unexpected phase: %s", result.Phase)
	}
	if result.Error != "no candidates survived screening" {
		t.Fatalf("gate message not used: %s", result.Error)
	}
	if len(runner.calls) != 1 {
		t.Fatalf("subsequent phases ran after gate failure: %v", runner.calls)
	}
}

func TestDeclarativeDescriptorsEmbedEffectID(t *testing.T) {
	def, err := ParseProcessYAML([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	factory := descriptorFactory(def.Phases[0].Task)
	descriptor := factory(nil, task.Context{EffectID: "effect-d1"})
	if err := descriptor.Validate(); err != nil {
		t.Fatalf("descriptor invalid: %v", err)
	}
	if descriptor.IO.InputPath != "tasks/effect-d1/input.json" {
		t.Fatalf("unexpected input path: %s", descriptor.IO.InputPath)
	}
}

func TestRegisterAllRejectsDuplicateIDs(t *testing.T) {
	def, err := ParseProcessYAML([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	reg := process.NewRegistry()
	files := []DefinitionFile{{Definition: def, Path: "a.yaml"}, {Definition: def, Path: "b.yaml"}}
	if err := RegisterAll(reg, files); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
}
