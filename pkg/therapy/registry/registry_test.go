package registry

import (
	"math"
	"testing"
)

func TestNormalizeDiagnosis(t *testing.T) {
	tests := []struct {
		text string
		code string
		ok   bool
	}{
		{"chronic kidney disease stage 3", "ckd", true},
		{"my son has CKD", "ckd", true},
		{"renal insufficiency", "ckd", true},
		{"type 1 diabetes", "t1d", true},
		{"diabetes", "t2d", true},
		{"PKU", "pku", true},
		{"she has cystic fibrosis", "cf", true},
		{"epilepsy on a ketogenic diet", "epilepsy", true},
		{"crohn's disease", "ibd", true},
		{"rare mitochondrial disorder", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		cond, ok := NormalizeDiagnosis(tt.text)
		if ok != tt.ok {
			t.Errorf("NormalizeDiagnosis(%q) ok = %v, want %v", tt.text, ok, tt.ok)
			continue
		}
		if ok && cond.Code != tt.code {
			t.Errorf("NormalizeDiagnosis(%q) = %s, want %s", tt.text, cond.Code, tt.code)
		}
	}
}

func TestComputeBaselineChild(t *testing.T) {
	req, cites, err := ComputeBaseline(BaselineInput{Age: 7, Sex: "female", WeightKg: 22, HeightCm: 120})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// REE 774 kcal, light activity factor by default.
	if math.Abs(req.EnergyKcal-1064.3) > 0.11 {
		t.Errorf("EnergyKcal = %.1f, want ~1064.3", req.EnergyKcal)
	}
	// Pediatric per-kg protein is below the 30 g floor here.
	if req.Macros.ProteinG != 30 {
		t.Errorf("ProteinG = %.1f, want floor of 30", req.Macros.ProteinG)
	}
	if req.Micros["calcium_mg"] != 1000 {
		t.Errorf("calcium = %.0f, want 1000 for the 4-8 band", req.Micros["calcium_mg"])
	}
	if len(cites) == 0 {
		t.Error("baseline must cite its reference intake source")
	}
}

func TestComputeBaselineAdultMale(t *testing.T) {
	req, _, err := ComputeBaseline(BaselineInput{Age: 30, Sex: "male", WeightKg: 80, HeightCm: 180, ActivityLevel: "moderate"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(req.EnergyKcal-2759) > 0.11 {
		t.Errorf("EnergyKcal = %.1f, want ~2759", req.EnergyKcal)
	}
	if req.Macros.ProteinG != 64 {
		t.Errorf("ProteinG = %.1f, want 64", req.Macros.ProteinG)
	}
	if req.Micros["zinc_mg"] != 11 {
		t.Errorf("zinc = %.0f, want male band 11", req.Micros["zinc_mg"])
	}
}

func TestComputeBaselineMissingAnthropometrics(t *testing.T) {
	if _, _, err := ComputeBaseline(BaselineInput{Age: 0, WeightKg: 70, HeightCm: 170}); err == nil {
		t.Error("zero age must fail")
	}
	if _, _, err := ComputeBaseline(BaselineInput{Age: 30, WeightKg: 0, HeightCm: 170}); err == nil {
		t.Error("zero weight must fail")
	}
	if _, _, err := ComputeBaseline(BaselineInput{Age: 30, WeightKg: 70, HeightCm: 0}); err == nil {
		t.Error("zero height must fail")
	}
}

func TestApplyAdjustmentsCKD(t *testing.T) {
	base := Requirements{
		EnergyKcal: 2000,
		Macros:     Macros{ProteinG: 64, CarbohydrateRatio: 0.55, FatRatio: 0.30, FiberG: 28},
		Micros:     map[string]float64{"potassium_mg": 3500, "iron_mg": 8},
	}
	cond, _ := ConditionByCode("ckd")

	adjusted, applied, cites := ApplyAdjustments(base, cond)

	if adjusted.Macros.ProteinG != 48 {
		t.Errorf("protein = %.1f, want 64 * 0.75 = 48", adjusted.Macros.ProteinG)
	}
	if adjusted.Micros["potassium_mg"] != 2000 {
		t.Errorf("potassium = %.0f, want restricted to 2000", adjusted.Micros["potassium_mg"])
	}
	// Restrictions on nutrients the baseline does not track still apply.
	if adjusted.Micros["phosphorus_mg"] != 800 {
		t.Errorf("phosphorus = %.0f, want ceiling 800", adjusted.Micros["phosphorus_mg"])
	}
	if len(applied) != len(cond.Adjustments) {
		t.Errorf("applied %d rules, want %d", len(applied), len(cond.Adjustments))
	}
	if len(cites) != 1 {
		t.Errorf("cites = %d, want the condition source", len(cites))
	}
	// The input must not be mutated.
	if base.Macros.ProteinG != 64 || base.Micros["potassium_mg"] != 3500 {
		t.Error("baseline mutated by adjustment pass")
	}
}

func TestApplyAdjustmentsAbsoluteAndRestrictionKinds(t *testing.T) {
	base := Requirements{
		EnergyKcal: 1800,
		Macros:     Macros{ProteinG: 50, CarbohydrateRatio: 0.55, FatRatio: 0.30},
		Micros:     map[string]float64{"potassium_mg": 1500},
	}

	adjusted, _, _ := ApplyAdjustments(base, Condition{
		Code: "test",
		Adjustments: []Adjustment{
			{Nutrient: "carbohydrate_ratio", Kind: AdjustAbsolute, Amount: 0.45},
			// Ceiling above the current value leaves it untouched.
			{Nutrient: "potassium_mg", Kind: AdjustRestriction, Amount: 2000},
		},
	})
	if adjusted.Macros.CarbohydrateRatio != 0.45 {
		t.Errorf("carb ratio = %.2f, want 0.45", adjusted.Macros.CarbohydrateRatio)
	}
	if adjusted.Micros["potassium_mg"] != 1500 {
		t.Errorf("potassium = %.0f, ceiling above current must not raise it", adjusted.Micros["potassium_mg"])
	}
}

func TestApplyAdjustmentsNoRules(t *testing.T) {
	base := Requirements{EnergyKcal: 2000, Micros: map[string]float64{}}
	cond, _ := ConditionByCode("food_allergy")
	_, applied, cites := ApplyAdjustments(base, cond)
	if len(applied) != 0 || len(cites) != 0 {
		t.Errorf("allergy-only condition applied %d rules, cited %d", len(applied), len(cites))
	}
}

func TestCanonicalMedications(t *testing.T) {
	got := CanonicalMedications([]string{"Glucophage", "metformin", "Lantus", "kuvan"})
	want := []string{"metformin", "insulin", "sapropterin"}
	if len(got) != len(want) {
		t.Fatalf("CanonicalMedications = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("CanonicalMedications[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestCanonicalMedicationUnknownPassesThrough(t *testing.T) {
	if got := CanonicalMedication("Obscuratol"); got != "obscuratol" {
		t.Errorf("unknown medication = %q, want lowercased pass-through", got)
	}
}

func TestInteractionsFor(t *testing.T) {
	ints, cites := InteractionsFor([]string{"metformin", "furosemide"})
	if len(ints) < 3 {
		t.Fatalf("interactions = %v, want B12 plus two diuretic effects", ints)
	}
	seen := map[string]bool{}
	for _, in := range ints {
		seen[in.Medication+"/"+in.Nutrient] = true
		if in.Severity != "monitor" && in.Severity != "caution" {
			t.Errorf("unexpected severity %q", in.Severity)
		}
	}
	for _, want := range []string{"metformin/vitamin B12", "furosemide/potassium", "furosemide/calcium"} {
		if !seen[want] {
			t.Errorf("missing interaction %s in %v", want, ints)
		}
	}
	if len(cites) != len(ints) {
		t.Errorf("cites = %d, want one per interaction", len(cites))
	}
}

func TestTimingNote(t *testing.T) {
	if note, ok := TimingNote("levothyroxine"); !ok || note == "" {
		t.Error("levothyroxine should carry a timing note")
	}
	if _, ok := TimingNote("obscuratol"); ok {
		t.Error("unknown medication should carry no timing note")
	}
}

func TestInteractionsForUnknownMedication(t *testing.T) {
	ints, _ := InteractionsFor([]string{"obscuratol"})
	if len(ints) != 0 {
		t.Errorf("unknown medication produced interactions: %v", ints)
	}
}
