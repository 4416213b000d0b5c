package extraction

import (
	"context"
	"log"
	"regexp"
	"strconv"
	"strings"

	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/therapy/slot"
)

// TextExtractor resolves free-text replies against the awaited slot with
// rule-based parsing. It satisfies Extractor without any external service.
type TextExtractor struct {
	logger *log.Logger
}

func NewTextExtractor(logger *log.Logger) *TextExtractor {
	return &TextExtractor{logger: logger}
}

var (
	numberRe    = regexp.MustCompile(`(\d+(?:\.\d+)?)`)
	weightRe    = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(kg|kgs|kilograms?|lbs?|pounds?)?`)
	heightRe    = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(cm|centimeters?|m|meters?)?`)
	// Anchored on the known marker vocabulary; a free name pattern splits
	// "hba1c is 7.2" into junk readings. Longer alternatives come first so
	// "hba1c" is not consumed as "a1c".
	biomarkerRe = regexp.MustCompile(`(hba1c|a1c|creatinine|egfr|gfr|potassium|phosphorus|phosphate|albumin|phenylalanine|phe|glucose|sodium|calcium)(?:\s+(?:level|is|was|of))*\s*[:=]?\s*(\d+(?:\.\d+)?)\s*([a-zA-Z/%]*)`)
)

// Phrases that signal the user is declining to answer rather than
// answering. A bare "no" only declines non-list slots; for medications and
// allergies it is a valid empty answer.
var declinePhrases = []string{
	"rather not", "prefer not", "don't want to", "do not want to",
	"won't share", "will not share", "not comfortable", "no thanks",
	"not telling", "skip this", "skip that", "pass on that",
}

func isDecline(t string) bool {
	for _, p := range declinePhrases {
		if strings.Contains(t, p) {
			return true
		}
	}
	return false
}

func isNone(t string) bool {
	switch strings.Trim(t, ".!? ") {
	case "none", "no", "nothing", "nope", "n/a", "na":
		return true
	}
	return strings.HasPrefix(t, "none") || strings.HasPrefix(t, "no,")
}

// Resolve parses the reply for the awaited slot. Found=false with a reason
// lets the caller distinguish a decline from a garbled answer.
func (e *TextExtractor) Resolve(ctx context.Context, text string, awaiting slot.Name) (*Result, error) {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return &Result{Reason: ReasonUnparseable}, nil
	}
	if isDecline(t) {
		return &Result{Reason: ReasonUserRejected}, nil
	}

	switch awaiting {
	case slot.Age:
		return e.resolveNumber(t, 0, 120)
	case slot.WeightKg:
		return e.resolveWeight(t)
	case slot.HeightCm:
		return e.resolveHeight(t)
	case slot.Sex:
		return e.resolveSex(t)
	case slot.Medications:
		return e.resolveList(t)
	case slot.Allergies:
		return e.resolveList(t)
	case slot.Biomarkers:
		return e.resolveBiomarkers(t)
	case slot.Country:
		return &Result{Found: true, Value: strings.TrimSpace(text)}, nil
	case slot.Diagnosis:
		return &Result{Found: true, Value: strings.TrimSpace(text)}, nil
	case slot.FoodA, slot.FoodB:
		return &Result{Found: true, Value: strings.TrimSpace(text)}, nil
	case slot.FoodState:
		return e.resolveChoice(t, []string{"raw", "boiled", "fried", "roasted", "dried", "fermented"})
	case slot.Basis:
		if strings.Contains(t, "100") {
			return &Result{Found: true, Value: "per_100g"}, nil
		}
		if strings.Contains(t, "serving") || strings.Contains(t, "portion") {
			return &Result{Found: true, Value: "per_serving"}, nil
		}
		return &Result{Reason: ReasonUnparseable}, nil
	}
	return &Result{Found: true, Value: strings.TrimSpace(text)}, nil
}

func (e *TextExtractor) resolveNumber(t string, min, max float64) (*Result, error) {
	m := numberRe.FindString(t)
	if m == "" {
		if isNone(t) {
			return &Result{Reason: ReasonUserRejected}, nil
		}
		return &Result{Reason: ReasonUnparseable}, nil
	}
	v, _ := strconv.ParseFloat(m, 64)
	if v < min || v > max {
		return &Result{Reason: ReasonOutOfRange, Value: v}, nil
	}
	return &Result{Found: true, Value: v}, nil
}

func (e *TextExtractor) resolveWeight(t string) (*Result, error) {
	m := weightRe.FindStringSubmatch(t)
	if m == nil || m[1] == "" {
		return &Result{Reason: ReasonUnparseable}, nil
	}
	v, _ := strconv.ParseFloat(m[1], 64)
	unit := m[2]
	if strings.HasPrefix(unit, "lb") || strings.HasPrefix(unit, "pound") {
		v = v * 0.4536
		unit = "kg"
	}
	if v < 10 || v > 400 {
		return &Result{Reason: ReasonOutOfRange, Value: v}, nil
	}
	return &Result{Found: true, Value: v, Unit: "kg"}, nil
}

func (e *TextExtractor) resolveHeight(t string) (*Result, error) {
	m := heightRe.FindStringSubmatch(t)
	if m == nil || m[1] == "" {
		return &Result{Reason: ReasonUnparseable}, nil
	}
	v, _ := strconv.ParseFloat(m[1], 64)
	unit := m[2]
	// Meters expressed as "1.65" or "1.65m" convert to centimeters.
	if strings.HasPrefix(unit, "m") && !strings.HasPrefix(unit, "cm") || (unit == "" && v > 0.5 && v < 2.6) {
		v = v * 100
	}
	if v < 50 || v > 250 {
		return &Result{Reason: ReasonOutOfRange, Value: v}, nil
	}
	return &Result{Found: true, Value: v, Unit: "cm"}, nil
}

func (e *TextExtractor) resolveSex(t string) (*Result, error) {
	switch {
	case strings.Contains(t, "female") || strings.Contains(t, "girl") || strings.Contains(t, "woman") || strings.Trim(t, ".!? ") == "f":
		return &Result{Found: true, Value: "female"}, nil
	case strings.Contains(t, "male") || strings.Contains(t, "boy") || strings.Contains(t, "man") || strings.Trim(t, ".!? ") == "m":
		return &Result{Found: true, Value: "male"}, nil
	}
	return &Result{Reason: ReasonUnparseable}, nil
}

func (e *TextExtractor) resolveList(t string) (*Result, error) {
	if isNone(t) {
		return &Result{Found: true, Value: []string{}}, nil
	}
	parts := regexp.MustCompile(`\s*(?:,|\band\b|;)\s*`).Split(t, -1)
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(p, ".!? ")
		if p != "" {
			items = append(items, p)
		}
	}
	if len(items) == 0 {
		return &Result{Reason: ReasonUnparseable}, nil
	}
	return &Result{Found: true, Value: items}, nil
}

// resolveBiomarkers pulls name-value pairs from free text. A user without
// lab results counts as declining: lab data cannot be invented.
func (e *TextExtractor) resolveBiomarkers(t string) (*Result, error) {
	if isNone(t) || strings.Contains(t, "don't have") || strings.Contains(t, "no labs") || strings.Contains(t, "no results") {
		return &Result{Reason: ReasonUserRejected}, nil
	}
	readings := make(map[string]slot.BiomarkerReading)
	for _, m := range biomarkerRe.FindAllStringSubmatch(t, -1) {
		name := strings.TrimSpace(m[1])
		if name == "" {
			continue
		}
		v, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		unit := m[3]
		switch unit {
		case "and", "with", "but", "also":
			unit = ""
		}
		readings[normalizeMarkerName(name)] = slot.BiomarkerReading{Value: v, Unit: unit}
	}
	if len(readings) == 0 {
		return &Result{Reason: ReasonUnparseable}, nil
	}
	return &Result{Found: true, Value: readings}, nil
}

func normalizeMarkerName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.TrimPrefix(n, "my ")
	switch {
	case strings.Contains(n, "hba1c") || strings.Contains(n, "a1c"):
		return "hba1c"
	case strings.Contains(n, "creatinine"):
		return "creatinine"
	case strings.Contains(n, "egfr") || strings.Contains(n, "gfr"):
		return "egfr"
	case strings.Contains(n, "potassium"):
		return "potassium"
	case strings.Contains(n, "glucose"):
		return "fasting_glucose"
	case strings.Contains(n, "albumin"):
		return "albumin"
	case strings.Contains(n, "phenylalanine") || n == "phe":
		return "phenylalanine"
	}
	return strings.ReplaceAll(n, " ", "_")
}

func (e *TextExtractor) resolveChoice(t string, options []string) (*Result, error) {
	for _, o := range options {
		if strings.Contains(t, o) {
			return &Result{Found: true, Value: o}, nil
		}
	}
	return &Result{Reason: ReasonUnparseable}, nil
}
