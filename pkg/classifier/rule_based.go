package classifier

import (
	"context"
	"log"
	"regexp"
	"strconv"
	"strings"

	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/therapy/slot"
)

// RuleBased is a keyword classifier used when no external classifier is
// configured. It resolves the intent label and pulls the entities a turn
// volunteers.
type RuleBased struct {
	logger *log.Logger
}

func NewRuleBased(logger *log.Logger) *RuleBased {
	return &RuleBased{logger: logger}
}

type intentRule struct {
	label    string
	keywords []string
}

// Ordered by specificity: the first rule with a hit wins.
var intentRules = []intentRule{
	{"comparison", []string{"compare", "versus", " vs ", "which is better", "difference between"}},
	{"pregnancy", []string{"pregnan", "trimester", "breastfeed", "lactat"}},
	{"pediatric", []string{"my child", "my baby", "my son", "my daughter", "toddler", "infant"}},
	{"geriatrics", []string{"elderly", "my mother is 7", "my father is 7", "old age"}},
	{"therapy", []string{"diet therapy", "meal plan", "diet plan", "therapy", "manage my", "nutrition plan", "what should i eat"}},
	{"recommendation", []string{"recommend", "suggest", "good foods", "foods for"}},
}

var (
	ageRe    = regexp.MustCompile(`(\d{1,3})\s*(?:years?\s*old|yrs?\s*old|yo\b|year-old)|aged?\s+(\d{1,3})`)
	weightRe = regexp.MustCompile(`(?:weighs?|weight\s*(?:is|of)?)\s*(\d+(?:\.\d+)?)\s*(kg|lbs?)?`)
	heightRe = regexp.MustCompile(`(?:height\s*(?:is|of)?|tall)\s*(\d+(?:\.\d+)?)\s*(cm|m)?|(\d+(?:\.\d+)?)\s*cm\s*tall`)
	markerRe = regexp.MustCompile(`(hba1c|a1c|creatinine|egfr|potassium|albumin|phenylalanine|glucose)\s*(?:is|of|:|=)?\s*(\d+(?:\.\d+)?)\s*([a-zA-Z/%]*)`)
	allergyRe = regexp.MustCompile(`allergic to ([a-z, ]+)|allerg(?:y|ies)[: ]+([a-z, ]+)`)
	// Word-bounded so "manage" never reads as "man" or "female" as "male".
	femaleRe = regexp.MustCompile(`\b(female|girl|woman|daughter)\b`)
	maleRe   = regexp.MustCompile(`\b(male|boy|man|son)\b`)
)

var medicationMentions = []string{
	"metformin", "insulin", "enalapril", "lisinopril", "ramipril", "furosemide",
	"lasix", "warfarin", "levothyroxine", "prednisolone", "prednisone",
	"omeprazole", "creon", "valproate", "phenytoin", "sapropterin",
	"mesalazine", "azathioprine",
}

var countryMentions = []string{
	"nigeria", "kenya", "canada", "ghana", "india", "united kingdom", "uk",
	"united states", "usa", "south africa", "tanzania", "uganda",
}

var diagnosisMentions = []string{
	"chronic kidney", "ckd", "kidney disease", "renal",
	"type 1 diabetes", "type 2 diabetes", "diabetes", "t1d", "t2d",
	"phenylketonuria", "pku", "cystic fibrosis", "epilepsy", "ketogenic",
	"preterm", "premature", "crohn", "ulcerative colitis", "ibd", "food allergy",
}

// Classify resolves an intent label and entity mentions from one turn.
func (r *RuleBased) Classify(ctx context.Context, query string) (*Result, error) {
	t := strings.ToLower(query)
	res := &Result{IntentLabel: "general", Confidence: 0.5}

	for _, rule := range intentRules {
		for _, kw := range rule.keywords {
			if strings.Contains(t, kw) {
				res.IntentLabel = rule.label
				res.Confidence = 0.8
				break
			}
		}
		if res.IntentLabel != "general" {
			break
		}
	}

	if m := ageRe.FindStringSubmatch(t); m != nil {
		raw := m[1]
		if raw == "" {
			raw = m[2]
		}
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			res.Age = &v
		}
	}
	if m := weightRe.FindStringSubmatch(t); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			if strings.HasPrefix(m[2], "lb") {
				v = v * 0.4536
			}
			res.WeightKg = &v
		}
	}
	if m := heightRe.FindStringSubmatch(t); m != nil {
		raw := m[1]
		if raw == "" {
			raw = m[3]
		}
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			if m[2] == "m" || (v > 0.5 && v < 2.6) {
				v = v * 100
			}
			res.HeightCm = &v
		}
	}
	switch {
	case femaleRe.MatchString(t):
		res.Sex = "female"
	case maleRe.MatchString(t):
		res.Sex = "male"
	}

	for _, med := range medicationMentions {
		if strings.Contains(t, med) {
			res.Medications = append(res.Medications, med)
		}
	}

	for _, m := range markerRe.FindAllStringSubmatch(t, -1) {
		v, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		if res.Biomarkers == nil {
			res.Biomarkers = make(map[string]slot.BiomarkerReading)
		}
		name := m[1]
		if name == "a1c" {
			name = "hba1c"
		}
		if name == "glucose" {
			name = "fasting_glucose"
		}
		res.Biomarkers[name] = slot.BiomarkerReading{Value: v, Unit: m[3]}
	}

	if m := allergyRe.FindStringSubmatch(t); m != nil {
		raw := m[1]
		if raw == "" {
			raw = m[2]
		}
		for _, a := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' }) {
			a = strings.Trim(a, " .")
			a = strings.TrimPrefix(a, "and ")
			if a != "" {
				res.Allergies = append(res.Allergies, a)
			}
		}
	}

	for _, c := range countryMentions {
		if strings.Contains(t, c) {
			res.CountryMentions = append(res.CountryMentions, c)
		}
	}

	for _, d := range diagnosisMentions {
		if strings.Contains(t, d) {
			res.DiagnosisText = d
			break
		}
	}

	if res.IntentLabel == "comparison" {
		res.FoodA, res.FoodB = splitComparison(t)
	}

	r.logger.Printf("[CLASSIFY] intent=%s confidence=%.1f", res.IntentLabel, res.Confidence)
	return res, nil
}

func splitComparison(t string) (string, string) {
	for _, sep := range []string{" versus ", " vs ", " or ", " and "} {
		if i := strings.Index(t, sep); i > 0 {
			pre := t
			if j := strings.Index(pre, "compare "); j >= 0 {
				pre = pre[j+len("compare "):]
				i = strings.Index(pre, sep)
				if i < 0 {
					return "", ""
				}
			}
			a := strings.Trim(pre[:i], " ?.")
			b := strings.Trim(pre[i+len(sep):], " ?.")
			if k := strings.IndexAny(b, ",?."); k > 0 {
				b = b[:k]
			}
			return a, b
		}
	}
	return "", ""
}
