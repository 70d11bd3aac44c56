package plugins

import (
	"strings"
	"testing"
)

func validDefinition() ProcessDefinition {
	return ProcessDefinition{
		ID:      "alloy-screening",
		Version: "1.0.0",
		Phases: []PhaseDefinition{
			{
				Name: "screen-candidates",
				Task: TaskDefinition{
					Kind:  "ms-candidate-screening",
					Title: "Screen alloy candidates",
					Agent: "materials-engineer",
					Prompt: PromptDefinition{
						Task: "Screen candidate alloys for the target application.",
					},
					Output: OutputDefinition{
						Required: []string{"success", "candidates"},
						Fields: []FieldDefinition{
							{Name: "success", Type: "boolean"},
							{Name: "candidates", Type: "array"},
						},
					},
				},
			},
		},
	}
}

func TestValidateAcceptsCompleteDefinition(t *testing.T) {
	if err := validDefinition().Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestValidateRejectsMissingID(t *testing.T) {
	def := validDefinition()
	def.ID = "  "
	if err := def.Validate(); err == nil {
		t.Fatalf("expected id error")
	}
}

func TestValidateRejectsUnknownFieldType(t *testing.T) {
	def := validDefinition()
	def.Phases[0].Task.Output.Fields[1].Type = "tuple"
	err := def.Validate()
	if err == nil || !strings.Contains(err.Error(), "unknown type") {
		t.Fatalf("expected type error, got %v", err)
	}
}

func TestValidateRejectsUndeclaredRequiredField(t *testing.T) {
	def := validDefinition()
	def.Phases[0].Task.Output.Required = append(def.Phases[0].Task.Output.Required, "verdict")
	err := def.Validate()
	if err == nil || !strings.Contains(err.Error(), "not declared") {
		t.Fatalf("expected required-field error, got %v", err)
	}
}

func TestValidateRejectsDuplicatePhases(t *testing.T) {
	def := validDefinition()
	def.Phases = append(def.Phases, def.Phases[0])
	err := def.Validate()
	if err == nil || !strings.Contains(err.Error(), "duplicate phase") {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestValidateRejectsEmptyGate(t *testing.T) {
	def := validDefinition()
	def.Phases[0].Gate = &GateDefinition{}
	if err := def.Validate(); err == nil {
		t.Fatalf("expected gate error")
	}
}

func TestOutputSchemaCarriesFieldsAndRequired(t *testing.T) {
	schema := validDefinition().Phases[0].Task.Output.Schema()
	if schema.Type != "object" {
		t.Fatalf("unexpected schema type: %s", schema.Type)
	}
	if len(schema.Required) != 2 {
		t.Fatalf("unexpected required list: %v", schema.Required)
	}
	property, ok := schema.Properties.Get("candidates")
	if !ok || property.Type != "array" {
		t.Fatalf("candidates property missing or mistyped")
	}
}

func TestNormalizedFillsNameFromID(t *testing.T) {
	def := validDefinition()
	def.Name = ""
	if normalized := def.Normalized(); normalized.Name != "alloy-screening" {
		t.Fatalf("unexpected name: %s", normalized.Name)
	}
}
