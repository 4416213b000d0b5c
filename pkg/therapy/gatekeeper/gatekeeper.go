package gatekeeper

import (
	"log"
	"strings"

	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/store"
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/therapy/slot"
)

// Collection strategies offered when too much critical data is missing for
// a single-question flow.
const (
	StrategyUpload      = "upload"
	StrategyStepByStep  = "step_by_step"
	StrategyGeneralInfo = "general_info_first"
)

// Strategies lists the three onboarding options in presentation order.
var Strategies = []string{StrategyUpload, StrategyStepByStep, StrategyGeneralInfo}

// Decision is the outcome of evaluating critical-slot completeness for an
// intent.
type Decision struct {
	Allowed bool

	// FinalIntent is the intent to execute; equals the requested intent when
	// Allowed, a lower-data-demand variant when downgraded.
	FinalIntent     string
	OriginalIntent  string
	Downgraded      bool
	DowngradeReason string

	// Onboarding is set when two or more of {medications, biomarkers, age,
	// weight} are missing for a therapy request: instead of a single
	// question we offer three collection strategies.
	Onboarding     bool
	Strategies     []string
	BiomarkerHints []string
}

// Gatekeeper enforces critical-slot completeness before the therapy
// pipeline may run. A declined slot never satisfies the gate.
type Gatekeeper struct {
	logger *log.Logger
}

func NewGatekeeper(logger *log.Logger) *Gatekeeper {
	return &Gatekeeper{logger: logger}
}

// EligibleForIntent evaluates whether the session holds enough data for the
// requested intent. Only therapy is gated; every other intent passes.
func (g *Gatekeeper) EligibleForIntent(sess *store.Session, intent string) Decision {
	if intent != store.IntentTherapy {
		return Decision{Allowed: true, FinalIntent: intent, OriginalIntent: intent}
	}

	hasMeds := sess.Slot(slot.Medications).IsFilled()
	hasBiomarkers := sess.Slot(slot.Biomarkers).IsFilled()

	missingCritical := 0
	for _, name := range []slot.Name{slot.Medications, slot.Biomarkers, slot.Age, slot.WeightKg} {
		if sess.Slot(name).IsMissing() {
			missingCritical++
		}
	}
	if missingCritical >= 2 {
		g.logger.Printf("[GATE] therapy onboarding: %d of 4 key slots missing", missingCritical)
		return Decision{
			FinalIntent:     store.IntentRecommendation,
			OriginalIntent:  store.IntentTherapy,
			Downgraded:      true,
			DowngradeReason: downgradeReason(hasMeds, hasBiomarkers),
			Onboarding:      true,
			Strategies:      Strategies,
			BiomarkerHints:  BiomarkerHints(diagnosisText(sess)),
		}
	}

	if hasMeds && hasBiomarkers {
		return Decision{Allowed: true, FinalIntent: store.IntentTherapy, OriginalIntent: store.IntentTherapy}
	}

	reason := downgradeReason(hasMeds, hasBiomarkers)
	g.logger.Printf("[GATE] therapy downgraded to recommendation: %s", reason)
	return Decision{
		FinalIntent:     store.IntentRecommendation,
		OriginalIntent:  store.IntentTherapy,
		Downgraded:      true,
		DowngradeReason: reason,
		BiomarkerHints:  BiomarkerHints(diagnosisText(sess)),
	}
}

func downgradeReason(hasMeds, hasBiomarkers bool) string {
	var missing []string
	if !hasMeds {
		missing = append(missing, "medications")
	}
	if !hasBiomarkers {
		missing = append(missing, "biomarkers")
	}
	if len(missing) == 0 {
		missing = append(missing, "data")
	}
	return "missing_" + strings.Join(missing, "_")
}

func diagnosisText(sess *store.Session) string {
	d, _ := sess.Slot(slot.Diagnosis).Text()
	return d
}

// BiomarkerHints returns example labs relevant to a diagnosis, used to word
// the onboarding message and biomarker follow-up question.
func BiomarkerHints(diagnosis string) []string {
	d := strings.ToLower(diagnosis)
	switch {
	case strings.Contains(d, "ckd"), strings.Contains(d, "kidney"), strings.Contains(d, "renal"):
		return []string{"creatinine", "eGFR", "potassium", "phosphorus", "albumin"}
	case strings.Contains(d, "diabet"), strings.Contains(d, "t1d"), strings.Contains(d, "t2d"):
		return []string{"HbA1c", "fasting glucose"}
	case strings.Contains(d, "epilep"):
		return []string{"vitamin D", "folate", "vitamin B12"}
	case strings.Contains(d, "cystic"), d == "cf":
		return []string{"vitamins A/D/E/K", "albumin", "prealbumin"}
	case strings.Contains(d, "preterm"), strings.Contains(d, "neonate"):
		return []string{"albumin", "calcium", "phosphate", "ALP"}
	case strings.Contains(d, "pku"), strings.Contains(d, "phenylketonuria"):
		return []string{"phenylalanine", "amino acid profile"}
	case strings.Contains(d, "ibd"), strings.Contains(d, "crohn"):
		return []string{"albumin", "CRP", "iron indices"}
	}
	return []string{"creatinine", "eGFR", "HbA1c", "albumin"}
}

// NormalizeStrategyReply maps short user replies like "1", "step" or
// "upload lab" to a canonical strategy, or "" when unrecognizable.
func NormalizeStrategyReply(text string) string {
	t := strings.ToLower(strings.TrimSpace(text))
	t = strings.Trim(t, ".!?")
	t = strings.ReplaceAll(t, "_", " ")
	switch t {
	case "1", "upload", "upload lab", "lab", "photo", "pdf":
		return StrategyUpload
	case "2", "step", "step by step", "step-by-step", "stepbystep":
		return StrategyStepByStep
	case "3", "general", "overview", "general info", "general info first":
		return StrategyGeneralInfo
	}
	switch {
	case strings.Contains(t, "upload") || strings.Contains(t, "lab") || strings.Contains(t, "photo") || strings.Contains(t, "pdf"):
		return StrategyUpload
	case strings.Contains(t, "step"):
		return StrategyStepByStep
	case strings.Contains(t, "overview") || strings.Contains(t, "general"):
		return StrategyGeneralInfo
	}
	return ""
}
