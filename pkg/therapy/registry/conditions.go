package registry

import (
	"strings"

	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/therapy/citation"
)

// AdjustmentKind distinguishes the three ways a condition alters a
// baseline requirement.
type AdjustmentKind string

const (
	AdjustPercentage  AdjustmentKind = "percentage"  // scale the baseline value
	AdjustAbsolute    AdjustmentKind = "absolute"    // replace with an absolute target
	AdjustRestriction AdjustmentKind = "restriction" // cap or exclude, value is the ceiling
)

// Adjustment is one condition-specific rule applied to the baseline.
type Adjustment struct {
	Nutrient string         `json:"nutrient"`
	Kind     AdjustmentKind `json:"kind"`
	// Amount semantics by kind: percentage delta (e.g. -40 means -40%),
	// absolute target, or restriction ceiling in the nutrient's unit.
	Amount float64 `json:"amount"`
	Unit   string  `json:"unit,omitempty"`
	Note   string  `json:"note,omitempty"`
}

// MealRules constrain stage-5 food sourcing and stage-7 meal synthesis.
type MealRules struct {
	LowPotassium       bool    `json:"low_potassium,omitempty"`
	LowPhenylalanine   bool    `json:"low_phenylalanine,omitempty"`
	CarbRatio          float64 `json:"carb_ratio,omitempty"` // fixed macro ratio, fraction of energy
	FatRatio           float64 `json:"fat_ratio,omitempty"`
	ConsistentCarbs    bool    `json:"consistent_carbs,omitempty"`
	ExcludedFoodGroups []string `json:"excluded_food_groups,omitempty"`
}

// Condition is one entry in the fixed supported-condition registry.
type Condition struct {
	Code        string   `json:"code"`
	DisplayName string   `json:"display_name"`
	Synonyms    []string // lowercased match terms for free-text normalization
	Adjustments []Adjustment
	Rationale   []Rationale
	Meals       MealRules
	Source      citation.Entry
}

// Rationale links an adjusted nutrient to its biochemical explanation.
type Rationale struct {
	Nutrient string `json:"nutrient"`
	Why      string `json:"why"`
}

var guidelineSrc = func(locator, context string) citation.Entry {
	return citation.Entry{
		SourceID:   "Clinical Paediatric Dietetics",
		SourceType: citation.SourceGuideline,
		Locator:    locator,
		Context:    context,
	}
}

// conditions is the fixed registry. Order matters only for deterministic
// iteration in tests.
var conditions = []Condition{
	{
		Code:        "ckd",
		DisplayName: "Chronic Kidney Disease",
		Synonyms:    []string{"ckd", "chronic kidney", "kidney disease", "renal failure", "renal insufficiency", "nephropathy"},
		Adjustments: []Adjustment{
			{Nutrient: "protein_g", Kind: AdjustPercentage, Amount: -25, Note: "moderate protein to reduce nitrogenous waste"},
			{Nutrient: "potassium_mg", Kind: AdjustRestriction, Amount: 2000, Unit: "mg", Note: "restrict by stage"},
			{Nutrient: "phosphorus_mg", Kind: AdjustRestriction, Amount: 800, Unit: "mg"},
			{Nutrient: "sodium_mg", Kind: AdjustRestriction, Amount: 2000, Unit: "mg"},
		},
		Rationale: []Rationale{
			{Nutrient: "protein_g", Why: "Lower protein intake reduces urea generation and glomerular hyperfiltration."},
			{Nutrient: "potassium_mg", Why: "Impaired renal excretion risks hyperkalemia and cardiac arrhythmia."},
			{Nutrient: "phosphorus_mg", Why: "Phosphate retention drives secondary hyperparathyroidism and bone disease."},
		},
		Meals:  MealRules{LowPotassium: true},
		Source: guidelineSrc("ch. 18", "renal disease"),
	},
	{
		Code:        "t1d",
		DisplayName: "Type 1 Diabetes",
		Synonyms:    []string{"t1d", "type 1 diabetes", "type one diabetes", "insulin dependent diabetes"},
		Adjustments: []Adjustment{
			{Nutrient: "carbohydrate_ratio", Kind: AdjustAbsolute, Amount: 0.50, Note: "consistent carbohydrate distribution"},
			{Nutrient: "fiber_g", Kind: AdjustPercentage, Amount: 20, Note: "lower glycemic load"},
		},
		Rationale: []Rationale{
			{Nutrient: "carbohydrate_ratio", Why: "Matching carbohydrate to insulin dosing stabilizes glycemia."},
			{Nutrient: "fiber_g", Why: "Soluble fiber slows glucose absorption and reduces postprandial spikes."},
		},
		Meals:  MealRules{CarbRatio: 0.50, ConsistentCarbs: true},
		Source: guidelineSrc("ch. 12", "type 1 diabetes"),
	},
	{
		Code:        "t2d",
		DisplayName: "Type 2 Diabetes",
		Synonyms:    []string{"t2d", "type 2 diabetes", "type two diabetes", "diabetes mellitus", "diabetes"},
		Adjustments: []Adjustment{
			{Nutrient: "energy_kcal", Kind: AdjustPercentage, Amount: -10, Note: "modest deficit when overweight"},
			{Nutrient: "carbohydrate_ratio", Kind: AdjustAbsolute, Amount: 0.45},
			{Nutrient: "fiber_g", Kind: AdjustPercentage, Amount: 25},
		},
		Rationale: []Rationale{
			{Nutrient: "carbohydrate_ratio", Why: "Lower glycemic load reduces insulin demand and improves satiety."},
		},
		Meals:  MealRules{CarbRatio: 0.45, ConsistentCarbs: true},
		Source: guidelineSrc("ch. 12", "type 2 diabetes"),
	},
	{
		Code:        "pku",
		DisplayName: "Phenylketonuria",
		Synonyms:    []string{"pku", "phenylketonuria"},
		Adjustments: []Adjustment{
			{Nutrient: "phenylalanine_mg", Kind: AdjustRestriction, Amount: 350, Unit: "mg", Note: "strict low-phenylalanine diet"},
			{Nutrient: "protein_g", Kind: AdjustPercentage, Amount: -60, Note: "natural protein restricted; substituted by Phe-free formula"},
		},
		Rationale: []Rationale{
			{Nutrient: "phenylalanine_mg", Why: "Deficient phenylalanine hydroxylase makes accumulated Phe neurotoxic."},
		},
		Meals:  MealRules{LowPhenylalanine: true, ExcludedFoodGroups: []string{"meat", "fish", "dairy", "eggs"}},
		Source: guidelineSrc("ch. 21", "inherited metabolic disorders"),
	},
	{
		Code:        "cf",
		DisplayName: "Cystic Fibrosis",
		Synonyms:    []string{"cf", "cystic fibrosis"},
		Adjustments: []Adjustment{
			{Nutrient: "energy_kcal", Kind: AdjustPercentage, Amount: 30, Note: "elevated resting expenditure and malabsorption"},
			{Nutrient: "protein_g", Kind: AdjustPercentage, Amount: 20},
			{Nutrient: "sodium_mg", Kind: AdjustPercentage, Amount: 50, Note: "sweat salt losses"},
		},
		Rationale: []Rationale{
			{Nutrient: "energy_kcal", Why: "Pancreatic insufficiency and chronic infection raise energy needs 120-150% of baseline."},
			{Nutrient: "protein_g", Why: "Supports lean mass accretion against chronic catabolic stress."},
		},
		Source: guidelineSrc("ch. 7", "cystic fibrosis"),
	},
	{
		Code:        "epilepsy",
		DisplayName: "Epilepsy (ketogenic therapy)",
		Synonyms:    []string{"epilepsy", "seizure disorder", "ketogenic"},
		Adjustments: []Adjustment{
			{Nutrient: "fat_ratio", Kind: AdjustAbsolute, Amount: 0.70, Note: "classical ketogenic ratio"},
			{Nutrient: "carbohydrate_ratio", Kind: AdjustAbsolute, Amount: 0.10},
		},
		Rationale: []Rationale{
			{Nutrient: "fat_ratio", Why: "Sustained ketosis raises the seizure threshold in drug-resistant epilepsy."},
		},
		Meals:  MealRules{FatRatio: 0.70, CarbRatio: 0.10},
		Source: guidelineSrc("ch. 16", "ketogenic diets"),
	},
	{
		Code:        "preterm",
		DisplayName: "Preterm Infant",
		Synonyms:    []string{"preterm", "premature", "neonate"},
		Adjustments: []Adjustment{
			{Nutrient: "energy_kcal", Kind: AdjustPercentage, Amount: 20},
			{Nutrient: "protein_g", Kind: AdjustPercentage, Amount: 50, Note: "3.5-4 g/kg for catch-up growth"},
			{Nutrient: "calcium_mg", Kind: AdjustPercentage, Amount: 50},
		},
		Rationale: []Rationale{
			{Nutrient: "protein_g", Why: "Higher protein accretion rates are required to match intrauterine growth."},
		},
		Source: guidelineSrc("ch. 4", "the preterm neonate"),
	},
	{
		Code:        "ibd",
		DisplayName: "Inflammatory Bowel Disease",
		Synonyms:    []string{"ibd", "crohn", "ulcerative colitis", "inflammatory bowel"},
		Adjustments: []Adjustment{
			{Nutrient: "protein_g", Kind: AdjustPercentage, Amount: 25, Note: "mucosal repair and steroid catabolism"},
			{Nutrient: "iron_mg", Kind: AdjustPercentage, Amount: 30},
		},
		Rationale: []Rationale{
			{Nutrient: "iron_mg", Why: "Chronic intestinal blood loss and inflammation-driven hepcidin impair iron status."},
		},
		Source: guidelineSrc("ch. 10", "gastroenterology"),
	},
	{
		Code:        "food_allergy",
		DisplayName: "Food Allergy",
		Synonyms:    []string{"food allergy", "allergy"},
		Adjustments:  nil, // exclusions only, applied at food sourcing
		Source:      guidelineSrc("ch. 14", "food hypersensitivity"),
	},
}

// NormalizeDiagnosis maps free-text diagnosis to a registry condition. The
// match is the first condition with a synonym contained in the lowered
// text; false means the condition is unsupported.
func NormalizeDiagnosis(text string) (Condition, bool) {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return Condition{}, false
	}
	for _, c := range conditions {
		for _, syn := range c.Synonyms {
			if strings.Contains(t, syn) {
				return c, true
			}
		}
	}
	return Condition{}, false
}

// ConditionByCode looks a condition up by canonical code.
func ConditionByCode(code string) (Condition, bool) {
	for _, c := range conditions {
		if c.Code == code {
			return c, true
		}
	}
	return Condition{}, false
}

// SupportedConditions returns the registry codes, for diagnostics.
func SupportedConditions() []string {
	codes := make([]string, len(conditions))
	for i, c := range conditions {
		codes[i] = c.Code
	}
	return codes
}
