// Package quantum orchestrates verification of a quantum circuit against a
// target backend: transpilation, timing analysis, fidelity estimation, an
// optional error mitigation phase selected through the techniques input, and
// an error-budget report. Threshold misses ask a human; they never abort.
package quantum

import (
	"context"
	"fmt"

	"github.com/xldeveloper/foreman/internal/process"
	"github.com/xldeveloper/foreman/internal/run"
)

const (
	processID      = "quantum-circuit-verification"
	processVersion = "1.0.0"

	defaultCircuitName    = "bell-state"
	defaultBackend        = "ibm-heron"
	defaultTargetFidelity = 0.99

	techniqueZNE = "zne"
)

// Process implements the quantum-circuit-verification orchestration.
type Process struct{}

// Register adds the process to the registry.
func Register(reg *process.Registry) {
	if reg == nil {
		return
	}
	reg.MustRegister(processID, func() (process.Process, error) {
		return New(), nil
	})
}

// New constructs the process.
func New() *Process {
	return &Process{}
}

// Info implements process.Process.
func (p *Process) Info() process.Info {
	return process.Info{
		ID:          processID,
		Name:        "Quantum Circuit Verification",
		Description: "Verifies a circuit against a backend: transpilation, timing, fidelity, optional mitigation, error budget.",
		Version:     processVersion,
	}
}

// Run implements process.Process.
func (p *Process) Run(ctx context.Context, pctx *process.Context, inputs process.Inputs) (process.Result, error) {
	circuit := inputs.String("circuitName", defaultCircuitName)
	backend := inputs.String("backend", defaultBackend)
	targetFidelity := inputs.Float("targetFidelity", defaultTargetFidelity)

	var artifacts []run.Artifact

	// Phase 1: transpilation.
	transpileTask, err := pctx.Task(ctx, TranspileCircuit, map[string]any{
		"circuitName": circuit,
		"backend":     backend,
	})
	if err != nil {
		return process.Result{}, err
	}
	var transpilation TranspilationResult
	if err := transpileTask.Decode(&transpilation); err != nil {
		return process.Result{}, fmt.Errorf("quantum: decode transpilation: %w", err)
	}
	if !transpilation.Success {
		return process.Failure("transpilation", "circuit could not be transpiled", map[string]any{
			"circuitName": circuit,
			"backend":     backend,
		}), nil
	}
	artifacts = run.CollectArtifacts(artifacts, transpilation.Artifacts)

	// Phase 2: timing analysis.
	timingTask, err := pctx.Task(ctx, AnalyzeTiming, map[string]any{
		"circuitName":  circuit,
		"backend":      backend,
		"circuitDepth": transpilation.CircuitDepth,
		"gateCount":    transpilation.GateCount,
	})
	if err != nil {
		return process.Result{}, err
	}
	var timing TimingResult
	if err := timingTask.Decode(&timing); err != nil {
		return process.Result{}, fmt.Errorf("quantum: decode timing: %w", err)
	}
	artifacts = run.CollectArtifacts(artifacts, timing.Artifacts)

	var timingFeedback string
	if !timing.WithinBudget {
		decision, err := pctx.Breakpoint(ctx, process.Breakpoint{
			Title:    "Timing budget exceeded",
			Question: fmt.Sprintf("Circuit runs %.1f us against a %.1f us coherence window. Continue verification anyway?", timing.DurationUs, timing.CoherenceLimitUs),
			Context: process.BreakpointContext{
				Summary: fmt.Sprintf("%s on %s, depth %d", circuit, backend, transpilation.CircuitDepth),
				Files:   artifactPaths(artifacts),
			},
		})
		if err != nil {
			return process.Result{}, err
		}
		timingFeedback = decision.Feedback
	}

	// Phase 3: fidelity estimation.
	fidelityTask, err := pctx.Task(ctx, EstimateFidelity, map[string]any{
		"circuitName":  circuit,
		"backend":      backend,
		"circuitDepth": transpilation.CircuitDepth,
		"durationUs":   timing.DurationUs,
	})
	if err != nil {
		return process.Result{}, err
	}
	var fidelity FidelityResult
	if err := fidelityTask.Decode(&fidelity); err != nil {
		return process.Result{}, fmt.Errorf("quantum: decode fidelity: %w", err)
	}
	artifacts = run.CollectArtifacts(artifacts, fidelity.Artifacts)

	var fidelityFeedback string
	if fidelity.EstimatedFidelity < targetFidelity {
		decision, err := pctx.Breakpoint(ctx, process.Breakpoint{
			Title:    "Fidelity below target",
			Question: fmt.Sprintf("Estimated fidelity %.4f is below the %.4f target. Proceed to reporting?", fidelity.EstimatedFidelity, targetFidelity),
			Context: process.BreakpointContext{
				Summary: fmt.Sprintf("dominant error: %s", fidelity.DominantError),
				Files:   artifactPaths(artifacts),
			},
		})
		if err != nil {
			return process.Result{}, err
		}
		fidelityFeedback = decision.Feedback
	}

	// Optional phase: zero-noise extrapolation, selected by the techniques input.
	reportedFidelity := fidelity.EstimatedFidelity
	var mitigation *MitigationResult
	if inputs.Contains("techniques", techniqueZNE) {
		mitigationTask, err := pctx.Task(ctx, MitigateErrors, map[string]any{
			"circuitName":       circuit,
			"backend":           backend,
			"technique":         "zero-noise extrapolation",
			"estimatedFidelity": fidelity.EstimatedFidelity,
		})
		if err != nil {
			return process.Result{}, err
		}
		var mitigated MitigationResult
		if err := mitigationTask.Decode(&mitigated); err != nil {
			return process.Result{}, fmt.Errorf("quantum: decode mitigation: %w", err)
		}
		artifacts = run.CollectArtifacts(artifacts, mitigated.Artifacts)
		mitigation = &mitigated
		if mitigated.Success {
			reportedFidelity = mitigated.MitigatedFidelity
		}
	}

	// Final phase: error-budget report.
	budgetTask, err := pctx.Task(ctx, ReportErrorBudget, map[string]any{
		"circuitName":       circuit,
		"backend":           backend,
		"estimatedFidelity": fidelity.EstimatedFidelity,
		"reportedFidelity":  reportedFidelity,
		"timingFeedback":    timingFeedback,
		"fidelityFeedback":  fidelityFeedback,
	})
	if err != nil {
		return process.Result{}, err
	}
	var budget BudgetResult
	if err := budgetTask.Decode(&budget); err != nil {
		return process.Result{}, fmt.Errorf("quantum: decode error budget: %w", err)
	}
	artifacts = run.CollectArtifacts(artifacts, budget.Artifacts)

	result := process.Result{Success: true, Artifacts: artifacts}
	result.Field("circuitName", circuit)
	result.Field("backend", backend)
	result.Field("targetFidelity", targetFidelity)
	result.Field("estimatedFidelity", fidelity.EstimatedFidelity)
	result.Field("reportedFidelity", reportedFidelity)
	result.Field("totalError", budget.TotalError)
	result.Field("reportPath", budget.ReportPath)
	if mitigation != nil {
		result.Field("mitigation", map[string]any{
			"technique":         mitigation.Technique,
			"mitigatedFidelity": mitigation.MitigatedFidelity,
			"samplingOverhead":  mitigation.SamplingOverhead,
		})
	}
	if timingFeedback != "" {
		result.Field("timingFeedback", timingFeedback)
	}
	if fidelityFeedback != "" {
		result.Field("fidelityFeedback", fidelityFeedback)
	}
	return result, nil
}

func artifactPaths(artifacts []run.Artifact) []string {
	paths := make([]string, 0, len(artifacts))
	for _, artifact := range artifacts {
		paths = append(paths, artifact.Path)
	}
	return paths
}
