package quantum

import (
	"fmt"

	"github.com/xldeveloper/foreman/internal/run"
	"github.com/xldeveloper/foreman/internal/task"
)

// Task kinds exported by the quantum-circuit-verification process.
const (
	KindTranspilation   = "qc-transpilation"
	KindTimingAnalysis  = "qc-timing-analysis"
	KindFidelity        = "qc-fidelity-estimation"
	KindErrorMitigation = "qc-error-mitigation"
	KindErrorBudget     = "qc-error-budget-report"
)

const agentName = "quantum-engineer"

// TranspilationResult is the expected output of circuit transpilation.
type TranspilationResult struct {
	Success      bool           `json:"success"`
	CircuitDepth int            `json:"circuitDepth"`
	GateCount    int            `json:"gateCount"`
	Backend      string         `json:"backend"`
	Artifacts    []run.Artifact `json:"artifacts,omitempty"`
}

// TimingResult is the expected output of timing analysis against the
// backend's coherence window.
type TimingResult struct {
	Success          bool           `json:"success"`
	DurationUs       float64        `json:"durationUs"`
	CoherenceLimitUs float64        `json:"coherenceLimitUs"`
	WithinBudget     bool           `json:"withinBudget"`
	Artifacts        []run.Artifact `json:"artifacts,omitempty"`
}

// FidelityResult is the expected output of fidelity estimation.
type FidelityResult struct {
	Success           bool           `json:"success"`
	EstimatedFidelity float64        `json:"estimatedFidelity"`
	DominantError     string         `json:"dominantError,omitempty"`
	Artifacts         []run.Artifact `json:"artifacts,omitempty"`
}

// MitigationResult is the expected output of the optional error mitigation
// phase.
type MitigationResult struct {
	Success           bool           `json:"success"`
	Technique         string         `json:"technique"`
	MitigatedFidelity float64        `json:"mitigatedFidelity"`
	SamplingOverhead  float64        `json:"samplingOverhead"`
	Artifacts         []run.Artifact `json:"artifacts,omitempty"`
}

// BudgetResult is the expected output of the error-budget report.
type BudgetResult struct {
	Success    bool           `json:"success"`
	ReportPath string         `json:"reportPath"`
	TotalError float64        `json:"totalError"`
	Artifacts  []run.Artifact `json:"artifacts,omitempty"`
}

// TranspileCircuit builds the transpilation task.
func TranspileCircuit(args map[string]any, tctx task.Context) task.Descriptor {
	circuit := stringArg(args, "circuitName", "unnamed circuit")
	backend := stringArg(args, "backend", "target backend")
	return task.Descriptor{
		Kind:  KindTranspilation,
		Title: fmt.Sprintf("Transpile %s for %s", circuit, backend),
		Agent: task.AgentSpec{
			Name: agentName,
			Prompt: task.PromptSpec{
				Role:         "You are a quantum compilation engineer.",
				Task:         fmt.Sprintf("Transpile the %s circuit to the native gate set of %s and report depth and gate count.", circuit, backend),
				Instructions: "Respect the backend's coupling map. Fail the task if the circuit cannot be mapped.",
			},
			OutputSchema: task.OutputSchema(TranspilationResult{}),
		},
		IO:     tctx.IO(),
		Labels: []string{"quantum", "transpilation"},
	}
}

// AnalyzeTiming builds the timing analysis task.
func AnalyzeTiming(args map[string]any, tctx task.Context) task.Descriptor {
	return task.Descriptor{
		Kind:  KindTimingAnalysis,
		Title: "Analyze circuit timing",
		Agent: task.AgentSpec{
			Name: agentName,
			Prompt: task.PromptSpec{
				Role:         "You are a quantum hardware engineer analyzing pulse schedules.",
				Task:         "Estimate the transpiled circuit's wall-clock duration and compare it with the backend's coherence window.",
				Instructions: "Report both the duration and the coherence limit in microseconds, and state whether the circuit fits the budget.",
			},
			OutputSchema: task.OutputSchema(TimingResult{}),
		},
		IO:     tctx.IO(),
		Labels: []string{"quantum", "timing"},
	}
}

// EstimateFidelity builds the fidelity estimation task.
func EstimateFidelity(args map[string]any, tctx task.Context) task.Descriptor {
	return task.Descriptor{
		Kind:  KindFidelity,
		Title: "Estimate circuit fidelity",
		Agent: task.AgentSpec{
			Name: agentName,
			Prompt: task.PromptSpec{
				Role:         "You are a quantum error characterization specialist.",
				Task:         "Estimate the end-to-end fidelity of the transpiled circuit from the backend's calibration data.",
				Instructions: "Name the dominant error channel.",
			},
			OutputSchema: task.OutputSchema(FidelityResult{}),
		},
		IO:     tctx.IO(),
		Labels: []string{"quantum", "fidelity"},
	}
}

// MitigateErrors builds the optional error mitigation task.
func MitigateErrors(args map[string]any, tctx task.Context) task.Descriptor {
	technique := stringArg(args, "technique", "zero-noise extrapolation")
	return task.Descriptor{
		Kind:  KindErrorMitigation,
		Title: fmt.Sprintf("Apply %s", technique),
		Agent: task.AgentSpec{
			Name: agentName,
			Prompt: task.PromptSpec{
				Role:         "You are a quantum error mitigation specialist.",
				Task:         fmt.Sprintf("Apply %s to the circuit and estimate the mitigated fidelity and sampling overhead.", technique),
				Instructions: "State the extrapolation model used and its assumptions.",
			},
			OutputSchema: task.OutputSchema(MitigationResult{}),
		},
		IO:     tctx.IO(),
		Labels: []string{"quantum", "mitigation"},
	}
}

// ReportErrorBudget builds the error-budget report task.
func ReportErrorBudget(args map[string]any, tctx task.Context) task.Descriptor {
	circuit := stringArg(args, "circuitName", "unnamed circuit")
	return task.Descriptor{
		Kind:  KindErrorBudget,
		Title: fmt.Sprintf("Report %s error budget", circuit),
		Agent: task.AgentSpec{
			Name: agentName,
			Prompt: task.PromptSpec{
				Role:         "You are a quantum verification engineer writing error-budget reports.",
				Task:         "Assemble the verification results into an error-budget report and return the report path.",
				Instructions: "Break the total error down per phase. Save the report as markdown.",
			},
			OutputSchema: task.OutputSchema(BudgetResult{}),
		},
		IO:     tctx.IO(),
		Labels: []string{"quantum", "report"},
	}
}

// RegisterTasks installs the quantum task factories.
func RegisterTasks(reg *task.Registry) {
	if reg == nil {
		return
	}
	reg.MustRegister(KindTranspilation, TranspileCircuit)
	reg.MustRegister(KindTimingAnalysis, AnalyzeTiming)
	reg.MustRegister(KindFidelity, EstimateFidelity)
	reg.MustRegister(KindErrorMitigation, MitigateErrors)
	reg.MustRegister(KindErrorBudget, ReportErrorBudget)
}

func stringArg(args map[string]any, key, fallback string) string {
	if raw, ok := args[key]; ok {
		if s, ok := raw.(string); ok && s != "" {
			return s
		}
	}
	return fallback
}
