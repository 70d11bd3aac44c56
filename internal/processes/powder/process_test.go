package powder

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/xldeveloper/foreman/internal/process"
	"github.com/xldeveloper/foreman/internal/task"
)

type scriptedRunner struct {
	outputs map[string]map[string]any
	calls   []string
}

func (r *scriptedRunner) RunTask(_ context.Context, d task.Descriptor, _ map[string]any) (process.TaskResult, error) {
	r.calls = append(r.calls, d.Kind)
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
	approved bool
	feedback string
}

func (g *recordingGate) Resolve(_ context.Context, breakpoint process.Breakpoint) (process.Decision, error) {
	g.titles = append(g.titles, breakpoint.Title)
	return process.Decision{Approved: g.approved, Feedback: g.feedback}, nil
}

func newContext(runner process.TaskRunner, gate process.Gate) *process.Context {
	effect := 0
	return &process.Context{
		RunID: "powder-processing-test",
		Tasks: runner,
		Gate:  gate,
		Effects: func() task.Context {
			effect++
			return task.Context{EffectID: fmt.Sprintf("effect-%d", effect)}
		},
	}
}

func happyOutputs(density float64) map[string]map[string]any {
	return map[string]map[string]any{
		KindCharacterization: {
			"success": true, "morphology": "spherical", "particleSizeD50": 12.4, "purity": 99.8,
			"artifacts": []any{map[string]any{"path": "characterization.md", "format": "markdown"}},
		},
		KindBlendDesign: {
			"success": true,
			"blendCandidates": []any{
				map[string]any{"name": "WC-10Co", "binderWtPct": 10.0},
				map[string]any{"name": "WC-12Co", "binderWtPct": 12.0},
			},
			"recommended": "WC-10Co",
			"artifacts":   []any{map[string]any{"path": "blends.json", "format": "json"}},
		},
		KindCompaction: {
			"success": true, "greenDensity": 62.0, "pressureMPa": 400.0,
		},
		KindSintering: {
			"success": true,
			"schedule": []any{
				map[string]any{"temperatureC": 1400.0, "holdMinutes": 60.0, "atmosphere": "vacuum"},
			},
			"peakTemperatureC": 1400.0,
			"artifacts":        []any{map[string]any{"path": "schedule.csv", "format": "csv"}},
		},
		KindMicrostructure: {
			"success": true, "grainSizeUm": 1.2, "porosityPct": 0.4,
		},
		KindProperties: {
			"success": true, "density": density, "hardnessHV": 1580.0, "fractureToughness": 10.5,
		},
		KindQualityReview: {
			"success": true, "verdict": "pass", "findings": []any{"none blocking"},
		},
		KindFinalReport: {
			"success": true, "reportPath": "report.md",
			"artifacts": []any{map[string]any{"path": "report.md", "format": "markdown", "label": "final report"}},
		},
	}
}

var phaseOrder = []string{
	KindCharacterization,
	KindBlendDesign,
	KindCompaction,
	KindSintering,
	KindMicrostructure,
	KindProperties,
	KindQualityReview,
	KindFinalReport,
}

func TestFactoriesEmbedEffectID(t *testing.T) {
	reg := task.NewRegistry()
	RegisterTasks(reg)
	tctx := task.Context{EffectID: "effect-abc"}
	for _, kind := range reg.Kinds() {
		descriptor, err := reg.Build(kind, map[string]any{"materialSystem": "WC-Co"}, tctx)
		if err != nil {
			t.Fatalf("%s: build: %v", kind, err)
		}
		if descriptor.Agent.OutputSchema == nil {
			t.Fatalf("%s: missing output schema", kind)
		}
		if !strings.Contains(descriptor.IO.InputPath, "effect-abc") ||
			!strings.Contains(descriptor.IO.OutputPath, "effect-abc") {
			t.Fatalf("%s: io paths not namespaced: %+v", kind, descriptor.IO)
		}
	}
}

func TestRunReturnsPredictedDensity(t *testing.T) {
	runner := &scriptedRunner{outputs: happyOutputs(99.5)}
	gate := &recordingGate{approved: true}
	result, err := New().Run(context.Background(), newContext(runner, gate), process.Inputs{
		"materialSystem": "WC-Co",
		"targetDensity":  99.5,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	properties, ok := result.Fields["finalProperties"].(map[string]any)
	if !ok || properties["density"] != 99.5 {
		t.Fatalf("unexpected final properties: %+v", result.Fields)
	}
	if len(runner.calls) != len(phaseOrder) {
		t.Fatalf("expected %d phases, got %v", len(phaseOrder), runner.calls)
	}
	for i, kind := range phaseOrder {
		if runner.calls[i] != kind {
			t.Fatalf("phase %d: expected %s, got %s", i, kind, runner.calls[i])
		}
	}
	if len(gate.titles) != 1 || gate.titles[0] != "Quality review" {
		t.Fatalf("unexpected breakpoints: %v", gate.titles)
	}
}

func TestCharacterizationGateShortCircuits(t *testing.T) {
	outputs := happyOutputs(99.5)
	outputs[KindCharacterization] = map[string]any{
		"success": false, "morphology": "irregular", "particleSizeD50": 40.0, "purity": 91.0,
	}
	runner := &scriptedRunner{outputs: outputs}
	result, err := New().Run(context.Background(), newContext(runner, &recordingGate{approved: true}), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Success {
		t.Fatalf("expected gate failure")
	}
	if result.Phase != "powder-characterization" {
		t.Fatalf("unexpected phase tag: %s", result.Phase)
	}
	if len(runner.calls) != 1 {
		t.Fatalf("subsequent phases ran after gate failure: %v", runner.calls)
	}
}

func TestBlendGateRequiresCandidates(t *testing.T) {
	outputs := happyOutputs(99.5)
	outputs[KindBlendDesign] = map[string]any{
		"success": true, "blendCandidates": []any{},
	}
	runner := &scriptedRunner{outputs: outputs}
	result, err := New().Run(context.Background(), newContext(runner, &recordingGate{approved: true}), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Success || result.Phase != "blend-design" {
		t.Fatalf("expected blend-design gate failure, got %+v", result)
	}
	if len(runner.calls) != 2 {
		t.Fatalf("subsequent phases ran after gate failure: %v", runner.calls)
	}
}

func TestArtifactsAggregateInPhaseOrder(t *testing.T) {
	wantPaths := []string{"characterization.md", "blends.json", "schedule.csv", "report.md"}
	for attempt := 0; attempt < 2; attempt++ {
		runner := &scriptedRunner{outputs: happyOutputs(99.5)}
		result, err := New().Run(context.Background(), newContext(runner, &recordingGate{approved: true}), nil)
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		if len(result.Artifacts) != len(wantPaths) {
			t.Fatalf("expected %d artifacts, got %+v", len(wantPaths), result.Artifacts)
		}
		for i, path := range wantPaths {
			if result.Artifacts[i].Path != path {
				t.Fatalf("artifact %d: expected %s, got %s", i, path, result.Artifacts[i].Path)
			}
		}
	}
}

func TestDensityShortfallRaisesBreakpointInOrder(t *testing.T) {
	runner := &scriptedRunner{outputs: happyOutputs(97.0)}
	gate := &recordingGate{approved: true}
	result, err := New().Run(context.Background(), newContext(runner, gate), process.Inputs{
		"targetDensity": 99.5,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !result.Success {
		t.Fatalf("threshold breakpoint must not abort the run: %+v", result)
	}
	want := []string{"Density target not met", "Quality review"}
	if len(gate.titles) != 2 || gate.titles[0] != want[0] || gate.titles[1] != want[1] {
		t.Fatalf("unexpected breakpoint order: %v", gate.titles)
	}
}

func TestBreakpointFeedbackRecordedWithoutAborting(t *testing.T) {
	runner := &scriptedRunner{outputs: happyOutputs(97.0)}
	gate := &recordingGate{approved: false, feedback: "extend the hold at peak"}
	result, err := New().Run(context.Background(), newContext(runner, gate), process.Inputs{
		"targetDensity": 99.5,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !result.Success {
		t.Fatalf("advisory breakpoints must not fail the run: %+v", result)
	}
	if result.Fields["densityFeedback"] != "extend the hold at peak" {
		t.Fatalf("feedback not recorded: %+v", result.Fields)
	}
	if len(runner.calls) != len(phaseOrder) {
		t.Fatalf("phases skipped after revision feedback: %v", runner.calls)
	}
}
