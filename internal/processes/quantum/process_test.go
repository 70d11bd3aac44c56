package quantum

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
	titles []string
}

func (g *recordingGate) Resolve(_ context.Context, breakpoint process.Breakpoint) (process.Decision, error) {
	g.titles = append(g.titles, breakpoint.Title)
	return process.Decision{Approved: true}, nil
}

func newContext(runner process.TaskRunner, gate process.Gate) *process.Context {
	effect := 0
	return &process.Context{
		RunID: "quantum-circuit-verification-test",
		Tasks: runner,
		Gate:  gate,
		Effects: func() task.Context {
			effect++
			return task.Context{EffectID: fmt.Sprintf("effect-%d", effect)}
		},
	}
}

func happyOutputs(estimatedFidelity float64, withinBudget bool) map[string]map[string]any {
	return map[string]map[string]any{
		KindTranspilation: {
			"success": true, "circuitDepth": 42, "gateCount": 180, "backend": "ibm-heron",
			"artifacts": []any{map[string]any{"path": "transpiled.qasm", "format": "qasm"}},
		},
		KindTimingAnalysis: {
			"success": true, "durationUs": 85.0, "coherenceLimitUs": 120.0, "withinBudget": withinBudget,
		},
		KindFidelity: {
			"success": true, "estimatedFidelity": estimatedFidelity, "dominantError": "two-qubit depolarizing",
		},
		KindErrorMitigation: {
			"success": true, "technique": "zero-noise extrapolation", "mitigatedFidelity": 0.993, "samplingOverhead": 3.2,
		},
		KindErrorBudget: {
			"success": true, "reportPath": "error-budget.md", "totalError": 0.007,
			"artifacts": []any{map[string]any{"path": "error-budget.md", "format": "markdown"}},
		},
	}
}

func TestFactoriesEmbedEffectID(t *testing.T) {
	reg := task.NewRegistry()
	RegisterTasks(reg)
	tctx := task.Context{EffectID: "effect-q1"}
	for _, kind := range reg.Kinds() {
		descriptor, err := reg.Build(kind, map[string]any{"circuitName": "qft-16"}, tctx)
		if err != nil {
			t.Fatalf("%s: build: %v", kind, err)
		}
		if descriptor.Agent.OutputSchema == nil {
			t.Fatalf("%s: missing output schema", kind)
		}
		if !strings.Contains(descriptor.IO.InputPath, "effect-q1") ||
			!strings.Contains(descriptor.IO.OutputPath, "effect-q1") {
			t.Fatalf("%s: io paths not namespaced: %+v", kind, descriptor.IO)
		}
	}
}

func TestRunSkipsMitigationWithoutFlag(t *testing.T) {
	runner := &scriptedRunner{outputs: happyOutputs(0.995, true)}
	gate := &recordingGate{}
	result, err := New().Run(context.Background(), newContext(runner, gate), process.Inputs{
		"circuitName":    "qft-16",
		"targetFidelity": 0.99,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success: %+v", result)
	}
	want := []string{KindTranspilation, KindTimingAnalysis, KindFidelity, KindErrorBudget}
	if len(runner.calls) != len(want) {
		t.Fatalf("unexpected phases: %v", runner.calls)
	}
	for i, kind := range want {
		if runner.calls[i] != kind {
			t.Fatalf("phase %d: expected %s, got %s", i, kind, runner.calls[i])
		}
	}
	if len(gate.titles) != 0 {
		t.Fatalf("no breakpoints expected: %v", gate.titles)
	}
	if result.Fields["reportedFidelity"] != 0.995 {
		t.Fatalf("unexpected reported fidelity: %+v", result.Fields)
	}
}

func TestRunAppliesZNEWhenRequested(t *testing.T) {
	runner := &scriptedRunner{outputs: happyOutputs(0.981, true)}
	gate := &recordingGate{}
	result, err := New().Run(context.Background(), newContext(runner, gate), process.Inputs{
		"techniques":     []string{"ZNE"},
		"targetFidelity": 0.99,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success: %+v", result)
	}
	found := false
	for _, kind := range runner.calls {
		if kind == KindErrorMitigation {
			found = true
		}
	}
	if !found {
		t.Fatalf("mitigation phase not run: %v", runner.calls)
	}
	if result.Fields["reportedFidelity"] != 0.993 {
		t.Fatalf("mitigated fidelity not reported: %+v", result.Fields)
	}
	mitigation, ok := result.Fields["mitigation"].(map[string]any)
	if !ok || mitigation["technique"] != "zero-noise extrapolation" {
		t.Fatalf("mitigation details missing: %+v", result.Fields)
	}
}

func TestTranspilationGateShortCircuits(t *testing.T) {
	outputs := happyOutputs(0.995, true)
	outputs[KindTranspilation] = map[string]any{
		"success": false, "circuitDepth": 0, "gateCount": 0, "backend": "ibm-heron",
	}
	runner := &scriptedRunner{outputs: outputs}
	result, err := New().Run(context.Background(), newContext(runner, &recordingGate{}), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Success || result.Phase != "transpilation" {
		t.Fatalf("expected transpilation gate failure, got %+v", result)
	}
	if len(runner.calls) != 1 {
		t.Fatalf("subsequent phases ran after gate failure: %v", runner.calls)
	}
}

func TestThresholdBreakpointsRaisedInOrderWithoutAborting(t *testing.T) {
	runner := &scriptedRunner{outputs: happyOutputs(0.95, false)}
	gate := &recordingGate{}
	result, err := New().Run(context.Background(), newContext(runner, gate), process.Inputs{
		"targetFidelity": 0.99,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !result.Success {
		t.Fatalf("threshold breakpoints must not abort the run: %+v", result)
	}
	want := []string{"Timing budget exceeded", "Fidelity below target"}
	if len(gate.titles) != 2 || gate.titles[0] != want[0] || gate.titles[1] != want[1] {
		t.Fatalf("unexpected breakpoint order: %v", gate.titles)
	}
}

func TestArtifactsAggregateInPhaseOrder(t *testing.T) {
	runner := &scriptedRunner{outputs: happyOutputs(0.995, true)}
	result, err := New().Run(context.Background(), newContext(runner, &recordingGate{}), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := []string{"transpiled.qasm", "error-budget.md"}
	if len(result.Artifacts) != len(want) {
		t.Fatalf("unexpected artifacts: %+v", result.Artifacts)
	}
	for i, path := range want {
		if result.Artifacts[i].Path != path {
			t.Fatalf("artifact %d: expected %s, got %s", i, path, result.Artifacts[i].Path)
		}
	}
}
