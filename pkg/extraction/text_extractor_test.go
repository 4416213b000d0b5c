package extraction

import (
	"context"
	"io"
	"log"
	"math"
	"testing"

	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/therapy/slot"
)

func testExtractor() *TextExtractor {
	return NewTextExtractor(log.New(io.Discard, "", 0))
}

func resolve(t *testing.T, text string, awaiting slot.Name) *Result {
	t.Helper()
	res, err := testExtractor().Resolve(context.Background(), text, awaiting)
	if err != nil {
		t.Fatalf("Resolve(%q, %s): %v", text, awaiting, err)
	}
	return res
}

func TestResolveAge(t *testing.T) {
	tests := []struct {
		text   string
		found  bool
		value  float64
		reason Reason
	}{
		{"7", true, 7, ""},
		{"she is 7 years old", true, 7, ""},
		{"150", false, 0, ReasonOutOfRange},
		{"quite young", false, 0, ReasonUnparseable},
		{"I'd rather not say", false, 0, ReasonUserRejected},
	}
	for _, tt := range tests {
		res := resolve(t, tt.text, slot.Age)
		if res.Found != tt.found {
			t.Errorf("Resolve(%q) found = %v, want %v", tt.text, res.Found, tt.found)
			continue
		}
		if tt.found {
			if v, _ := res.Value.(float64); v != tt.value {
				t.Errorf("Resolve(%q) = %v, want %v", tt.text, res.Value, tt.value)
			}
		} else if res.Reason != tt.reason {
			t.Errorf("Resolve(%q) reason = %q, want %q", tt.text, res.Reason, tt.reason)
		}
	}
}

func TestResolveWeightConvertsPounds(t *testing.T) {
	res := resolve(t, "around 110 lbs", slot.WeightKg)
	if !res.Found {
		t.Fatalf("reason = %q", res.Reason)
	}
	v := res.Value.(float64)
	if math.Abs(v-49.9) > 0.1 {
		t.Errorf("weight = %.2f kg, want ~49.9", v)
	}
	if res.Unit != "kg" {
		t.Errorf("unit = %q", res.Unit)
	}
}

func TestResolveHeightConvertsMeters(t *testing.T) {
	tests := []struct {
		text string
		want float64
	}{
		{"1.2m", 120},
		{"1.2", 120},
		{"120 cm", 120},
		{"120", 120},
	}
	for _, tt := range tests {
		res := resolve(t, tt.text, slot.HeightCm)
		if !res.Found {
			t.Errorf("Resolve(%q) not found: %s", tt.text, res.Reason)
			continue
		}
		if v := res.Value.(float64); v != tt.want {
			t.Errorf("Resolve(%q) = %v cm, want %v", tt.text, v, tt.want)
		}
	}
}

func TestResolveSex(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"she's a girl", "female"},
		{"F", "female"},
		{"male", "male"},
		{"a little boy", "male"},
	}
	for _, tt := range tests {
		res := resolve(t, tt.text, slot.Sex)
		if !res.Found || res.Value != tt.want {
			t.Errorf("Resolve(%q) = %v (found=%v), want %q", tt.text, res.Value, res.Found, tt.want)
		}
	}
}

func TestResolveMedicationList(t *testing.T) {
	res := resolve(t, "metformin, lisinopril and furosemide", slot.Medications)
	if !res.Found {
		t.Fatalf("reason = %q", res.Reason)
	}
	list := res.Value.([]string)
	if len(list) != 3 {
		t.Errorf("list = %v, want 3 entries", list)
	}
}

func TestResolveListNoneIsValidEmptyAnswer(t *testing.T) {
	// For list slots a plain "none" answers the question; it is not a
	// decline.
	res := resolve(t, "none", slot.Allergies)
	if !res.Found {
		t.Fatalf("reason = %q, want found with empty list", res.Reason)
	}
	if list := res.Value.([]string); len(list) != 0 {
		t.Errorf("list = %v, want empty", list)
	}
}

func TestResolveBiomarkers(t *testing.T) {
	res := resolve(t, "my HbA1c is 7.2% and creatinine 1.4 mg/dL", slot.Biomarkers)
	if !res.Found {
		t.Fatalf("reason = %q", res.Reason)
	}
	readings := res.Value.(map[string]slot.BiomarkerReading)
	if len(readings) != 2 {
		t.Errorf("readings = %+v, want exactly hba1c and creatinine", readings)
	}
	if r, ok := readings["hba1c"]; !ok || r.Value != 7.2 {
		t.Errorf("hba1c = %+v", readings)
	}
	if r, ok := readings["creatinine"]; !ok || r.Value != 1.4 {
		t.Errorf("creatinine = %+v", readings)
	}
}

func TestResolveBiomarkersIgnoresFillerWords(t *testing.T) {
	res := resolve(t, "my hba1c level is 7.2 and my egfr was 42", slot.Biomarkers)
	if !res.Found {
		t.Fatalf("reason = %q", res.Reason)
	}
	readings := res.Value.(map[string]slot.BiomarkerReading)
	if len(readings) != 2 {
		t.Errorf("readings = %+v, want exactly hba1c and egfr", readings)
	}
	if r := readings["hba1c"]; r.Value != 7.2 {
		t.Errorf("hba1c = %+v", r)
	}
	if r := readings["egfr"]; r.Value != 42 {
		t.Errorf("egfr = %+v", r)
	}
}

func TestResolveBiomarkersNoLabsIsDecline(t *testing.T) {
	// Lab data cannot be invented, so "no labs" declines the slot.
	for _, text := range []string{"I don't have my labs", "none"} {
		res := resolve(t, text, slot.Biomarkers)
		if res.Found || res.Reason != ReasonUserRejected {
			t.Errorf("Resolve(%q) = %+v, want user rejection", text, res)
		}
	}
}

func TestResolveFoodStateAndBasis(t *testing.T) {
	if res := resolve(t, "boiled please", slot.FoodState); !res.Found || res.Value != "boiled" {
		t.Errorf("food state = %+v", res)
	}
	if res := resolve(t, "per 100 grams", slot.Basis); !res.Found || res.Value != "per_100g" {
		t.Errorf("basis = %+v", res)
	}
	if res := resolve(t, "per serving", slot.Basis); !res.Found || res.Value != "per_serving" {
		t.Errorf("basis = %+v", res)
	}
}

func TestResolveEmptyInput(t *testing.T) {
	res := resolve(t, "   ", slot.Age)
	if res.Found || res.Reason != ReasonUnparseable {
		t.Errorf("blank input = %+v, want unparseable", res)
	}
}
