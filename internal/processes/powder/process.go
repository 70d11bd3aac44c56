// Package powder orchestrates a powder metallurgy process development run:
// feedstock characterization through blend design, compaction, sintering,
// microstructure and property prediction, quality review, and the final
// report. Each phase delegates to an agent task; two quality gates can stop
// the run early and two breakpoints pull a human in.
package powder

import (
	"context"
	"fmt"

	"github.com/xldeveloper/foreman/internal/process"
	"github.com/xldeveloper/foreman/internal/run"
)

const (
	processID      = "powder-processing"
	processVersion = "1.0.0"

	defaultMaterialSystem = "WC-Co"
	defaultTargetDensity  = 99.0
)

// Process implements the powder-processing orchestration.
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
		Name:        "Powder Processing Development",
		Description: "Develops a powder metallurgy process from feedstock characterization to a reviewed final report.",
		Version:     processVersion,
	}
}

// Run implements process.Process.
func (p *Process) Run(ctx context.Context, pctx *process.Context, inputs process.Inputs) (process.Result, error) {
	material := inputs.String("materialSystem", defaultMaterialSystem)
	targetDensity := inputs.Float("targetDensity", defaultTargetDensity)

	var artifacts []run.Artifact

	// Phase 1: feedstock characterization.
	charTask, err := pctx.Task(ctx, CharacterizePowder, map[string]any{
		"materialSystem": material,
	})
	if err != nil {
		return process.Result{}, err
	}
	var characterization CharacterizationResult
	if err := charTask.Decode(&characterization); err != nil {
		return process.Result{}, fmt.Errorf("powder: decode characterization: %w", err)
	}
	if !characterization.Success {
		return process.Failure("powder-characterization", "feedstock characterization failed", map[string]any{
			"materialSystem": material,
		}), nil
	}
	artifacts = run.CollectArtifacts(artifacts, characterization.Artifacts)

	// Phase 2: blend design.
	blendTask, err := pctx.Task(ctx, DesignBlend, map[string]any{
		"materialSystem":  material,
		"morphology":      characterization.Morphology,
		"particleSizeD50": characterization.ParticleSizeD50,
		"purity":          characterization.Purity,
	})
	if err != nil {
		return process.Result{}, err
	}
	var blend BlendDesignResult
	if err := blendTask.Decode(&blend); err != nil {
		return process.Result{}, fmt.Errorf("powder: decode blend design: %w", err)
	}
	if !blend.Success || len(blend.Candidates) == 0 {
		return process.Failure("blend-design", "no viable blend candidates", map[string]any{
			"materialSystem": material,
			"candidates":     len(blend.Candidates),
		}), nil
	}
	artifacts = run.CollectArtifacts(artifacts, blend.Artifacts)
	recommended := blend.Recommended
	if recommended == "" {
		recommended = blend.Candidates[0].Name
	}

	// Phase 3: compaction modeling.
	compactionTask, err := pctx.Task(ctx, ModelCompaction, map[string]any{
		"materialSystem":  material,
		"blend":           recommended,
		"particleSizeD50": characterization.ParticleSizeD50,
	})
	if err != nil {
		return process.Result{}, err
	}
	var compaction CompactionResult
	if err := compactionTask.Decode(&compaction); err != nil {
		return process.Result{}, fmt.Errorf("powder: decode compaction: %w", err)
	}
	artifacts = run.CollectArtifacts(artifacts, compaction.Artifacts)

	// Phase 4: sintering schedule.
	sinteringTask, err := pctx.Task(ctx, PlanSintering, map[string]any{
		"materialSystem": material,
		"blend":          recommended,
		"greenDensity":   compaction.GreenDensity,
		"targetDensity":  targetDensity,
	})
	if err != nil {
		return process.Result{}, err
	}
	var sintering SinteringResult
	if err := sinteringTask.Decode(&sintering); err != nil {
		return process.Result{}, fmt.Errorf("powder: decode sintering: %w", err)
	}
	artifacts = run.CollectArtifacts(artifacts, sintering.Artifacts)

	// Phase 5: microstructure prediction.
	microTask, err := pctx.Task(ctx, PredictMicrostructure, map[string]any{
		"materialSystem":   material,
		"peakTemperatureC": sintering.PeakTemperatureC,
		"scheduleSegments": len(sintering.Schedule),
	})
	if err != nil {
		return process.Result{}, err
	}
	var microstructure MicrostructureResult
	if err := microTask.Decode(&microstructure); err != nil {
		return process.Result{}, fmt.Errorf("powder: decode microstructure: %w", err)
	}
	artifacts = run.CollectArtifacts(artifacts, microstructure.Artifacts)

	// Phase 6: property prediction.
	propertyTask, err := pctx.Task(ctx, PredictProperties, map[string]any{
		"materialSystem": material,
		"grainSizeUm":    microstructure.GrainSizeUm,
		"porosityPct":    microstructure.PorosityPct,
	})
	if err != nil {
		return process.Result{}, err
	}
	var properties PropertyResult
	if err := propertyTask.Decode(&properties); err != nil {
		return process.Result{}, fmt.Errorf("powder: decode properties: %w", err)
	}
	artifacts = run.CollectArtifacts(artifacts, properties.Artifacts)

	// Threshold check: missing the density target asks a human, never aborts.
	var densityFeedback string
	if properties.Density < targetDensity {
		decision, err := pctx.Breakpoint(ctx, process.Breakpoint{
			Title:    "Density target not met",
			Question: fmt.Sprintf("Predicted density %.2f%% is below the %.2f%% target. Proceed with the current schedule?", properties.Density, targetDensity),
			Context: process.BreakpointContext{
				Summary: fmt.Sprintf("%s via blend %s, peak %.0f C", material, recommended, sintering.PeakTemperatureC),
				Files:   artifactPaths(artifacts),
			},
		})
		if err != nil {
			return process.Result{}, err
		}
		densityFeedback = decision.Feedback
	}

	// Phase 7: quality review.
	reviewTask, err := pctx.Task(ctx, ReviewQuality, map[string]any{
		"materialSystem":  material,
		"density":         properties.Density,
		"targetDensity":   targetDensity,
		"densityFeedback": densityFeedback,
	})
	if err != nil {
		return process.Result{}, err
	}
	var review ReviewResult
	if err := reviewTask.Decode(&review); err != nil {
		return process.Result{}, fmt.Errorf("powder: decode review: %w", err)
	}
	artifacts = run.CollectArtifacts(artifacts, review.Artifacts)

	reviewDecision, err := pctx.Breakpoint(ctx, process.Breakpoint{
		Title:    "Quality review",
		Question: fmt.Sprintf("Reviewer verdict: %s. Approve the process plan for reporting?", review.Verdict),
		Context: process.BreakpointContext{
			Summary: fmt.Sprintf("%d finding(s) from the quality review", len(review.Findings)),
			Files:   artifactPaths(artifacts),
		},
	})
	if err != nil {
		return process.Result{}, err
	}

	// Phase 8: final report.
	reportTask, err := pctx.Task(ctx, WriteReport, map[string]any{
		"materialSystem": material,
		"blend":          recommended,
		"density":        properties.Density,
		"verdict":        review.Verdict,
		"reviewFeedback": reviewDecision.Feedback,
	})
	if err != nil {
		return process.Result{}, err
	}
	var report ReportResult
	if err := reportTask.Decode(&report); err != nil {
		return process.Result{}, fmt.Errorf("powder: decode report: %w", err)
	}
	artifacts = run.CollectArtifacts(artifacts, report.Artifacts)

	result := process.Result{Success: true, Artifacts: artifacts}
	result.Field("materialSystem", material)
	result.Field("targetDensity", targetDensity)
	result.Field("blend", recommended)
	result.Field("finalProperties", map[string]any{
		"density":           properties.Density,
		"hardnessHV":        properties.HardnessHV,
		"fractureToughness": properties.FractureToughness,
	})
	result.Field("reviewVerdict", review.Verdict)
	result.Field("reportPath", report.ReportPath)
	if densityFeedback != "" {
		result.Field("densityFeedback", densityFeedback)
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
