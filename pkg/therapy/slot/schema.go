package slot

import (
	"fmt"
	"strings"
)

// ValidationError signals an impossible or out-of-range slot value. Values
// failing validation are rejected at merge time and never stored.
type ValidationError struct {
	Slot   Name
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid value for %s: %s", e.Slot, e.Reason)
}

// numericBound is an absolute physiological bound, not a clinical normal
// range. Values outside these bounds cannot exist in a living patient.
type numericBound struct {
	min, max float64
}

var slotBounds = map[Name]numericBound{
	Age:      {0, 120},
	WeightKg: {10, 400},
	HeightCm: {50, 250},
}

// biomarkerBounds keys are lowercased biomarker names.
var biomarkerBounds = map[string]numericBound{
	"hba1c":      {2, 20},    // percent; 150% is physiologically impossible
	"creatinine": {0.1, 20},  // mg/dL
	"egfr":       {0, 200},   // mL/min/1.73m2
	"potassium":  {1, 10},    // mmol/L
	"phosphorus": {0.5, 15},  // mg/dL
	"albumin":    {0.5, 7},   // g/dL
	"glucose":    {20, 1500}, // mg/dL
}

// Validate checks a proposed payload for a slot against its physiological
// bounds. A nil return means the value may be stored.
func Validate(name Name, payload any) error {
	switch name {
	case Age, WeightKg, HeightCm:
		v := Of(payload)
		f, ok := v.Float()
		if !ok {
			return &ValidationError{Slot: name, Reason: "not a number"}
		}
		b := slotBounds[name]
		if f < b.min || f > b.max {
			return &ValidationError{Slot: name, Reason: fmt.Sprintf("%.1f outside bound [%.0f, %.0f]", f, b.min, b.max)}
		}
	case Biomarkers:
		v := Of(payload)
		readings, ok := v.Readings()
		if !ok {
			return &ValidationError{Slot: name, Reason: "not a biomarker map"}
		}
		for marker, r := range readings {
			if err := ValidateBiomarker(marker, r); err != nil {
				return err
			}
		}
	case Sex:
		s, ok := Of(payload).Text()
		if !ok {
			return &ValidationError{Slot: name, Reason: "not a string"}
		}
		switch strings.ToLower(s) {
		case "male", "female", "other":
		default:
			return &ValidationError{Slot: name, Reason: "expected male, female or other"}
		}
	case Medications, Allergies:
		if _, ok := Of(payload).List(); !ok {
			return &ValidationError{Slot: name, Reason: "not a list"}
		}
	}
	return nil
}

// ValidateBiomarker checks a single reading against its absolute bound.
// Unknown markers pass; the bound table is a safety net, not a registry.
func ValidateBiomarker(marker string, r BiomarkerReading) error {
	b, known := biomarkerBounds[strings.ToLower(marker)]
	if !known {
		return nil
	}
	if r.Value < b.min || r.Value > b.max {
		return &ValidationError{
			Slot:   Biomarkers,
			Reason: fmt.Sprintf("%s %.1f %s outside physiological bound [%.1f, %.1f]", marker, r.Value, r.Unit, b.min, b.max),
		}
	}
	return nil
}

// PopulationDefault returns the documented default substituted when a
// contextual slot is declined, and whether one exists.
func PopulationDefault(name Name) (any, bool) {
	switch name {
	case Country:
		return "Nigeria", true
	case Age:
		return float64(30), true
	case WeightKg:
		return float64(70), true
	case HeightCm:
		return float64(170), true
	case Sex:
		return "female", true
	case Allergies:
		return []string{}, true
	}
	return nil, false
}

// CollectionOrder returns the intent-specific priority order in which
// missing slots are asked for. Biomarkers gate pipeline entry, so they come
// ahead of country, which only affects food sourcing; for comparison the
// items to compare come ahead of the preparation method.
func CollectionOrder(intent string) []Name {
	switch intent {
	case "therapy":
		return []Name{Diagnosis, Age, Sex, WeightKg, HeightCm, Medications, Biomarkers, Country, Allergies}
	case "recommendation":
		return []Name{Age, Sex, WeightKg, HeightCm, Country, Allergies}
	case "comparison":
		return []Name{FoodA, FoodB, FoodState, Basis, Country}
	case "pregnancy":
		return []Name{Age, Country, Allergies}
	case "pediatric":
		return []Name{Age, WeightKg, Country, Allergies}
	case "geriatrics":
		return []Name{Age, Country, Allergies}
	}
	return nil
}
