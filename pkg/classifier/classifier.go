package classifier

import (
	"context"

	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/therapy/slot"
)

// Result is the structured output of the external intent classifier for a
// single turn: the intent label plus whatever entities the turn volunteered.
// Entity fields are pointers or empty collections when absent, never
// sentinels.
type Result struct {
	IntentLabel string  `json:"intent_label"`
	Confidence  float64 `json:"confidence"`
	HighRisk    bool    `json:"is_high_risk,omitempty"`

	Medications []string                         `json:"medications,omitempty"`
	Biomarkers  map[string]slot.BiomarkerReading `json:"biomarkers,omitempty"`
	Allergies   []string                         `json:"allergies,omitempty"`

	Age      *float64 `json:"age,omitempty"`
	Sex      string   `json:"sex,omitempty"`
	WeightKg *float64 `json:"weight_kg,omitempty"`
	HeightCm *float64 `json:"height_cm,omitempty"`

	DiagnosisText string `json:"diagnosis_text,omitempty"`

	// All country mentions in order of appearance. The first mention wins
	// downstream; keeping the rest makes the tie-break testable.
	CountryMentions []string `json:"country_mentions,omitempty"`

	FoodA     string `json:"food_a,omitempty"`
	FoodB     string `json:"food_b,omitempty"`
	FoodState string `json:"food_state,omitempty"`
	Basis     string `json:"basis,omitempty"`
}

// Classifier is the external classification collaborator. Implementations
// own their own latency and timeouts; the orchestrator only consumes the
// structured result.
type Classifier interface {
	Classify(ctx context.Context, query string) (*Result, error)
}
