package classifier

import (
	"context"
	"io"
	"log"
	"testing"
)

func classify(t *testing.T, query string) *Result {
	t.Helper()
	res, err := NewRuleBased(log.New(io.Discard, "", 0)).Classify(context.Background(), query)
	if err != nil {
		t.Fatalf("Classify(%q): %v", query, err)
	}
	return res
}

func TestClassifyIntentLabels(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"I need a diet therapy plan for my CKD", "therapy"},
		{"can you build a meal plan", "therapy"},
		{"compare ugali vs rice", "comparison"},
		{"what foods are good during pregnancy", "pregnancy"},
		{"my daughter won't eat vegetables", "pediatric"},
		{"recommend good foods for anemia", "recommendation"},
		{"hello there", "general"},
	}
	for _, tt := range tests {
		res := classify(t, tt.query)
		if res.IntentLabel != tt.want {
			t.Errorf("Classify(%q) = %s, want %s", tt.query, res.IntentLabel, tt.want)
		}
	}
}

func TestClassifyConfidence(t *testing.T) {
	if res := classify(t, "I need diet therapy"); res.Confidence != 0.8 {
		t.Errorf("keyword hit confidence = %.1f, want 0.8", res.Confidence)
	}
	if res := classify(t, "hello"); res.Confidence != 0.5 {
		t.Errorf("default confidence = %.1f, want 0.5", res.Confidence)
	}
}

func TestClassifyExtractsAnthropometrics(t *testing.T) {
	res := classify(t, "my daughter is 7 years old, weighs 22kg and is 120 cm tall")
	if res.Age == nil || *res.Age != 7 {
		t.Errorf("Age = %v, want 7", res.Age)
	}
	if res.WeightKg == nil || *res.WeightKg != 22 {
		t.Errorf("WeightKg = %v, want 22", res.WeightKg)
	}
	if res.HeightCm == nil || *res.HeightCm != 120 {
		t.Errorf("HeightCm = %v, want 120", res.HeightCm)
	}
	if res.Sex != "female" {
		t.Errorf("Sex = %q, want female from the daughter mention", res.Sex)
	}
}

func TestClassifySexNeedsWholeWord(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"I need diet therapy to manage chronic kidney disease", ""},
		{"my germany-based cousin has diabetes", ""},
		{"he is a 40 year old man with diabetes", "male"},
		{"the patient is male, 55 years old", "male"},
		{"she is a woman in her sixties", "female"},
	}
	for _, tt := range tests {
		if res := classify(t, tt.query); res.Sex != tt.want {
			t.Errorf("Classify(%q) Sex = %q, want %q", tt.query, res.Sex, tt.want)
		}
	}
}

func TestClassifyExtractsClinicalEntities(t *testing.T) {
	res := classify(t, "I have type 2 diabetes, take metformin and insulin, my hba1c is 7.2%")
	if res.DiagnosisText != "type 2 diabetes" {
		t.Errorf("DiagnosisText = %q", res.DiagnosisText)
	}
	if len(res.Medications) != 2 {
		t.Errorf("Medications = %v, want metformin and insulin", res.Medications)
	}
	r, ok := res.Biomarkers["hba1c"]
	if !ok || r.Value != 7.2 {
		t.Errorf("Biomarkers = %v, want hba1c 7.2", res.Biomarkers)
	}
}

func TestClassifyExtractsAllergiesAndCountry(t *testing.T) {
	res := classify(t, "I live in nigeria and I'm allergic to peanuts, fish")
	if len(res.CountryMentions) != 1 || res.CountryMentions[0] != "nigeria" {
		t.Errorf("CountryMentions = %v", res.CountryMentions)
	}
	if len(res.Allergies) != 2 {
		t.Errorf("Allergies = %v, want peanuts and fish", res.Allergies)
	}
}

func TestClassifyComparisonFoods(t *testing.T) {
	res := classify(t, "compare ugali vs rice")
	if res.FoodA != "ugali" || res.FoodB != "rice" {
		t.Errorf("FoodA = %q, FoodB = %q", res.FoodA, res.FoodB)
	}
}

func TestClassifyCountryMentionOrder(t *testing.T) {
	res := classify(t, "I moved from kenya to canada")
	if len(res.CountryMentions) != 2 {
		t.Fatalf("CountryMentions = %v", res.CountryMentions)
	}
	if res.CountryMentions[0] != "kenya" {
		t.Errorf("first mention = %q, want kenya", res.CountryMentions[0])
	}
}
