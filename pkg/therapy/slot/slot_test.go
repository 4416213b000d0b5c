package slot

import (
	"encoding/json"
	"testing"
)

func TestValueStates(t *testing.T) {
	tests := []struct {
		name     string
		value    Value
		missing  bool
		filled   bool
		rejected bool
	}{
		{"zero value is missing", Value{}, true, false, false},
		{"explicit missing", MissingValue(), true, false, false},
		{"filled", Of(42.0), false, true, false},
		{"defaulted is still filled", DefaultOf("Nigeria"), false, true, false},
		{"rejected", Rejected("user_declined"), false, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.value.IsMissing(); got != tt.missing {
				t.Errorf("IsMissing() = %v, want %v", got, tt.missing)
			}
			if got := tt.value.IsFilled(); got != tt.filled {
				t.Errorf("IsFilled() = %v, want %v", got, tt.filled)
			}
			if got := tt.value.IsRejected(); got != tt.rejected {
				t.Errorf("IsRejected() = %v, want %v", got, tt.rejected)
			}
		})
	}
}

func TestAccessorsSurviveJSONRoundTrip(t *testing.T) {
	original := map[Name]Value{
		Age:         Of(7.0),
		Medications: Of([]string{"insulin", "metformin"}),
		Biomarkers:  Of(map[string]BiomarkerReading{"hba1c": {Value: 7.5, Unit: "%"}}),
	}
	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var restored map[Name]Value
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if f, ok := restored[Age].Float(); !ok || f != 7.0 {
		t.Errorf("Float() after round-trip = %v, %v", f, ok)
	}
	meds, ok := restored[Medications].List()
	if !ok || len(meds) != 2 || meds[0] != "insulin" {
		t.Errorf("List() after round-trip = %v, %v", meds, ok)
	}
	readings, ok := restored[Biomarkers].Readings()
	if !ok || readings["hba1c"].Value != 7.5 {
		t.Errorf("Readings() after round-trip = %v, %v", readings, ok)
	}
}

func TestValidateBounds(t *testing.T) {
	tests := []struct {
		name    string
		slot    Name
		payload any
		wantErr bool
	}{
		{"valid age", Age, 7.0, false},
		{"negative age", Age, -1.0, true},
		{"age above bound", Age, 130.0, true},
		{"valid weight", WeightKg, 22.0, false},
		{"weight below bound", WeightKg, 5.0, true},
		{"valid height", HeightCm, 120.0, false},
		{"height above bound", HeightCm, 300.0, true},
		{"sex accepted", Sex, "female", false},
		{"sex garbage", Sex, "banana", true},
		{"medication list", Medications, []string{"metformin"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.slot, tt.payload)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(%s, %v) error = %v, wantErr %v", tt.slot, tt.payload, err, tt.wantErr)
			}
		})
	}
}

func TestValidateBiomarkerImpossibleValues(t *testing.T) {
	// An HbA1c of 150% cannot exist in a living patient.
	if err := ValidateBiomarker("hba1c", BiomarkerReading{Value: 150, Unit: "%"}); err == nil {
		t.Error("expected error for HbA1c 150%")
	}
	if err := ValidateBiomarker("hba1c", BiomarkerReading{Value: 7.5, Unit: "%"}); err != nil {
		t.Errorf("unexpected error for HbA1c 7.5%%: %v", err)
	}
	if err := ValidateBiomarker("creatinine", BiomarkerReading{Value: 2.1, Unit: "mg/dL"}); err != nil {
		t.Errorf("unexpected error for creatinine 2.1: %v", err)
	}
	// Unknown markers pass; the bound table is a safety net.
	if err := ValidateBiomarker("obscure_marker", BiomarkerReading{Value: 99999}); err != nil {
		t.Errorf("unknown marker should pass, got %v", err)
	}
}

func TestCollectionOrderTherapy(t *testing.T) {
	order := CollectionOrder("therapy")
	if len(order) == 0 {
		t.Fatal("empty therapy collection order")
	}
	if order[0] != Diagnosis {
		t.Errorf("first therapy slot = %s, want %s", order[0], Diagnosis)
	}
	// Biomarkers gate pipeline entry and must come before country.
	bioIdx, countryIdx := -1, -1
	for i, n := range order {
		if n == Biomarkers {
			bioIdx = i
		}
		if n == Country {
			countryIdx = i
		}
	}
	if bioIdx == -1 || countryIdx == -1 || bioIdx > countryIdx {
		t.Errorf("biomarkers (%d) must precede country (%d)", bioIdx, countryIdx)
	}
}

func TestPopulationDefaults(t *testing.T) {
	if v, ok := PopulationDefault(Country); !ok || v != "Nigeria" {
		t.Errorf("country default = %v, %v", v, ok)
	}
	if _, ok := PopulationDefault(Medications); ok {
		t.Error("critical slot must not have a population default")
	}
	if _, ok := PopulationDefault(Biomarkers); ok {
		t.Error("critical slot must not have a population default")
	}
}
