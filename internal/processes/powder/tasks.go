package powder

import (
	"fmt"

	"github.com/xldeveloper/foreman/internal/run"
	"github.com/xldeveloper/foreman/internal/task"
)

// Task kinds exported by the powder-processing process.
const (
	KindCharacterization = "pm-powder-characterization"
	KindBlendDesign      = "pm-blend-design"
	KindCompaction       = "pm-compaction-modeling"
	KindSintering        = "pm-sintering-schedule"
	KindMicrostructure   = "pm-microstructure-prediction"
	KindProperties       = "pm-property-prediction"
	KindQualityReview    = "pm-quality-review"
	KindFinalReport      = "pm-final-report"
)

const agentName = "materials-engineer"

// CharacterizationResult is the expected output of the feedstock
// characterization phase.
type CharacterizationResult struct {
	Success         bool           `json:"success"`
	Morphology      string         `json:"morphology"`
	ParticleSizeD50 float64        `json:"particleSizeD50"`
	Purity          float64        `json:"purity"`
	Artifacts       []run.Artifact `json:"artifacts,omitempty"`
}

// BlendCandidate is one composition proposed by blend design.
type BlendCandidate struct {
	Name        string  `json:"name"`
	BinderWtPct float64 `json:"binderWtPct"`
	Rationale   string  `json:"rationale,omitempty"`
}

// BlendDesignResult is the expected output of the blend design phase.
type BlendDesignResult struct {
	Success     bool             `json:"success"`
	Candidates  []BlendCandidate `json:"blendCandidates"`
	Recommended string           `json:"recommended,omitempty"`
	Artifacts   []run.Artifact   `json:"artifacts,omitempty"`
}

// CompactionResult is the expected output of compaction modeling.
type CompactionResult struct {
	Success         bool           `json:"success"`
	GreenDensity    float64        `json:"greenDensity"`
	PressureMPa     float64        `json:"pressureMPa"`
	DieFillStrategy string         `json:"dieFillStrategy,omitempty"`
	Artifacts       []run.Artifact `json:"artifacts,omitempty"`
}

// SinteringStep is one segment of the sintering schedule.
type SinteringStep struct {
	TemperatureC float64 `json:"temperatureC"`
	HoldMinutes  float64 `json:"holdMinutes"`
	Atmosphere   string  `json:"atmosphere,omitempty"`
}

// SinteringResult is the expected output of sintering schedule design.
type SinteringResult struct {
	Success          bool            `json:"success"`
	Schedule         []SinteringStep `json:"schedule"`
	PeakTemperatureC float64         `json:"peakTemperatureC"`
	Artifacts        []run.Artifact  `json:"artifacts,omitempty"`
}

// MicrostructureResult is the expected output of microstructure prediction.
type MicrostructureResult struct {
	Success        bool           `json:"success"`
	GrainSizeUm    float64        `json:"grainSizeUm"`
	PorosityPct    float64        `json:"porosityPct"`
	PhasesObserved []string       `json:"phasesObserved,omitempty"`
	Artifacts      []run.Artifact `json:"artifacts,omitempty"`
}

// PropertyResult is the expected output of property prediction. Density is
// reported as percent of theoretical.
type PropertyResult struct {
	Success           bool           `json:"success"`
	Density           float64        `json:"density"`
	HardnessHV        float64        `json:"hardnessHV"`
	FractureToughness float64        `json:"fractureToughness"`
	Artifacts         []run.Artifact `json:"artifacts,omitempty"`
}

// ReviewResult is the expected output of the quality review phase.
type ReviewResult struct {
	Success   bool           `json:"success"`
	Verdict   string         `json:"verdict"`
	Findings  []string       `json:"findings,omitempty"`
	Artifacts []run.Artifact `json:"artifacts,omitempty"`
}

// ReportResult is the expected output of the final report phase.
type ReportResult struct {
	Success    bool           `json:"success"`
	ReportPath string         `json:"reportPath"`
	Summary    string         `json:"summary,omitempty"`
	Artifacts  []run.Artifact `json:"artifacts,omitempty"`
}

// CharacterizePowder builds the feedstock characterization task.
func CharacterizePowder(args map[string]any, tctx task.Context) task.Descriptor {
	material := stringArg(args, "materialSystem")
	return task.Descriptor{
		Kind:  KindCharacterization,
		Title: fmt.Sprintf("Characterize %s powder feedstock", material),
		Agent: task.AgentSpec{
			Name: agentName,
			Prompt: task.PromptSpec{
				Role: "You are a powder metallurgy engineer specializing in feedstock qualification.",
				Task: fmt.Sprintf("Characterize the %s powder feedstock: particle morphology, size distribution (report the D50), and chemical purity.", material),
				Instructions: "Base the assessment on standard characterization methods (laser diffraction, SEM, ICP-OES). " +
					"Flag any attribute that would disqualify the lot for pressing.",
			},
			OutputSchema: task.OutputSchema(CharacterizationResult{}),
		},
		IO:     tctx.IO(),
		Labels: []string{"powder-metallurgy", "characterization"},
	}
}

// DesignBlend builds the blend design task.
func DesignBlend(args map[string]any, tctx task.Context) task.Descriptor {
	material := stringArg(args, "materialSystem")
	return task.Descriptor{
		Kind:  KindBlendDesign,
		Title: fmt.Sprintf("Design %s blend candidates", material),
		Agent: task.AgentSpec{
			Name: agentName,
			Prompt: task.PromptSpec{
				Role:         "You are a powder metallurgy engineer designing powder blends.",
				Task:         fmt.Sprintf("Propose candidate %s blend compositions compatible with the characterized feedstock, and recommend one.", material),
				Instructions: "Each candidate needs a binder weight percentage and a one-line rationale. Reject compositions incompatible with the reported purity.",
			},
			OutputSchema: task.OutputSchema(BlendDesignResult{}),
		},
		IO:     tctx.IO(),
		Labels: []string{"powder-metallurgy", "blend-design"},
	}
}

// ModelCompaction builds the compaction modeling task.
func ModelCompaction(args map[string]any, tctx task.Context) task.Descriptor {
	return task.Descriptor{
		Kind:  KindCompaction,
		Title: "Model die compaction",
		Agent: task.AgentSpec{
			Name: agentName,
			Prompt: task.PromptSpec{
				Role:         "You are a powder metallurgy engineer modeling die compaction.",
				Task:         "Model uniaxial die compaction for the recommended blend and report the achievable green density and required pressure.",
				Instructions: "Use the blend's binder content and the feedstock D50 when estimating compressibility.",
			},
			OutputSchema: task.OutputSchema(CompactionResult{}),
		},
		IO:     tctx.IO(),
		Labels: []string{"powder-metallurgy", "compaction"},
	}
}

// PlanSintering builds the sintering schedule task.
func PlanSintering(args map[string]any, tctx task.Context) task.Descriptor {
	return task.Descriptor{
		Kind:  KindSintering,
		Title: "Plan sintering schedule",
		Agent: task.AgentSpec{
			Name: agentName,
			Prompt: task.PromptSpec{
				Role:         "You are a powder metallurgy engineer planning sintering cycles.",
				Task:         "Design a sintering schedule (ramp, hold, atmosphere per segment) that densifies the compact toward the target density.",
				Instructions: "Account for the reported green density. State the peak temperature explicitly.",
			},
			OutputSchema: task.OutputSchema(SinteringResult{}),
		},
		IO:     tctx.IO(),
		Labels: []string{"powder-metallurgy", "sintering"},
	}
}

// PredictMicrostructure builds the microstructure prediction task.
func PredictMicrostructure(args map[string]any, tctx task.Context) task.Descriptor {
	return task.Descriptor{
		Kind:  KindMicrostructure,
		Title: "Predict sintered microstructure",
		Agent: task.AgentSpec{
			Name: agentName,
			Prompt: task.PromptSpec{
				Role:         "You are a materials scientist predicting sintered microstructures.",
				Task:         "Predict the post-sinter microstructure: mean grain size, residual porosity, and phases present.",
				Instructions: "Derive the prediction from the sintering schedule's peak temperature and hold times.",
			},
			OutputSchema: task.OutputSchema(MicrostructureResult{}),
		},
		IO:     tctx.IO(),
		Labels: []string{"powder-metallurgy", "microstructure"},
	}
}

// PredictProperties builds the property prediction task.
func PredictProperties(args map[string]any, tctx task.Context) task.Descriptor {
	return task.Descriptor{
		Kind:  KindProperties,
		Title: "Predict mechanical properties",
		Agent: task.AgentSpec{
			Name: agentName,
			Prompt: task.PromptSpec{
				Role:         "You are a materials scientist predicting mechanical properties.",
				Task:         "Predict final density (percent of theoretical), hardness, and fracture toughness from the predicted microstructure.",
				Instructions: "Report density as a percentage of theoretical density for the blend composition.",
			},
			OutputSchema: task.OutputSchema(PropertyResult{}),
		},
		IO:     tctx.IO(),
		Labels: []string{"powder-metallurgy", "properties"},
	}
}

// ReviewQuality builds the quality review task.
func ReviewQuality(args map[string]any, tctx task.Context) task.Descriptor {
	return task.Descriptor{
		Kind:  KindQualityReview,
		Title: "Review process quality",
		Agent: task.AgentSpec{
			Name: agentName,
			Prompt: task.PromptSpec{
				Role:         "You are a senior quality engineer auditing a powder metallurgy process plan.",
				Task:         "Review the full phase chain for internal consistency and flag anything that would block production release.",
				Instructions: "Give a one-word verdict (pass/conditional/fail) plus concrete findings.",
			},
			OutputSchema: task.OutputSchema(ReviewResult{}),
		},
		IO:     tctx.IO(),
		Labels: []string{"powder-metallurgy", "review"},
	}
}

// WriteReport builds the final report task.
func WriteReport(args map[string]any, tctx task.Context) task.Descriptor {
	material := stringArg(args, "materialSystem")
	return task.Descriptor{
		Kind:  KindFinalReport,
		Title: fmt.Sprintf("Write %s process report", material),
		Agent: task.AgentSpec{
			Name: agentName,
			Prompt: task.PromptSpec{
				Role:         "You are a technical writer producing engineering reports.",
				Task:         "Write the final process development report covering every phase, its results, and the review findings.",
				Instructions: "Save the report as a markdown file and return its path.",
			},
			OutputSchema: task.OutputSchema(ReportResult{}),
		},
		IO:     tctx.IO(),
		Labels: []string{"powder-metallurgy", "report"},
	}
}

// RegisterTasks installs the powder task factories.
func RegisterTasks(reg *task.Registry) {
	if reg == nil {
		return
	}
	reg.MustRegister(KindCharacterization, CharacterizePowder)
	reg.MustRegister(KindBlendDesign, DesignBlend)
	reg.MustRegister(KindCompaction, ModelCompaction)
	reg.MustRegister(KindSintering, PlanSintering)
	reg.MustRegister(KindMicrostructure, PredictMicrostructure)
	reg.MustRegister(KindProperties, PredictProperties)
	reg.MustRegister(KindQualityReview, ReviewQuality)
	reg.MustRegister(KindFinalReport, WriteReport)
}

func stringArg(args map[string]any, key string) string {
	if raw, ok := args[key]; ok {
		if s, ok := raw.(string); ok && s != "" {
			return s
		}
	}
	return "unspecified material"
}
