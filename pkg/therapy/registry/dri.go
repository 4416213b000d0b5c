package registry

import (
	"fmt"
	"strings"

	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/therapy/citation"
)

// Requirements is the baseline nutrient and energy profile computed at
// stage 1 and adjusted at stage 2.
type Requirements struct {
	EnergyKcal float64            `json:"energy_kcal"`
	Macros     Macros             `json:"macros"`
	Micros     map[string]float64 `json:"micros"` // nutrient key -> daily target
}

type Macros struct {
	ProteinG          float64 `json:"protein_g"`
	CarbohydrateRatio float64 `json:"carbohydrate_ratio"` // fraction of energy
	FatRatio          float64 `json:"fat_ratio"`
	FiberG            float64 `json:"fiber_g"`
}

// ActivityFactor multipliers applied to resting energy expenditure.
var activityFactors = map[string]float64{
	"sedentary": 1.2,
	"light":     1.375,
	"moderate":  1.55,
	"active":    1.725,
}

// driMicros holds daily micronutrient targets per age band and sex.
// Values follow the WHO/FAO reference intake bands the loader used to read
// from the DRI table.
type driBand struct {
	maxAge                    float64
	ironMg, calciumMg, zincMg float64
	vitCMg, potassiumMg       float64
}

var driFemale = []driBand{
	{maxAge: 3, ironMg: 7, calciumMg: 700, zincMg: 3, vitCMg: 15, potassiumMg: 2000},
	{maxAge: 8, ironMg: 10, calciumMg: 1000, zincMg: 5, vitCMg: 25, potassiumMg: 2300},
	{maxAge: 13, ironMg: 8, calciumMg: 1300, zincMg: 8, vitCMg: 45, potassiumMg: 2500},
	{maxAge: 18, ironMg: 15, calciumMg: 1300, zincMg: 9, vitCMg: 65, potassiumMg: 3000},
	{maxAge: 50, ironMg: 18, calciumMg: 1000, zincMg: 8, vitCMg: 75, potassiumMg: 3500},
	{maxAge: 120, ironMg: 8, calciumMg: 1200, zincMg: 8, vitCMg: 75, potassiumMg: 3500},
}

var driMale = []driBand{
	{maxAge: 3, ironMg: 7, calciumMg: 700, zincMg: 3, vitCMg: 15, potassiumMg: 2000},
	{maxAge: 8, ironMg: 10, calciumMg: 1000, zincMg: 5, vitCMg: 25, potassiumMg: 2300},
	{maxAge: 13, ironMg: 8, calciumMg: 1300, zincMg: 8, vitCMg: 45, potassiumMg: 2500},
	{maxAge: 18, ironMg: 11, calciumMg: 1300, zincMg: 11, vitCMg: 75, potassiumMg: 3000},
	{maxAge: 50, ironMg: 8, calciumMg: 1000, zincMg: 11, vitCMg: 90, potassiumMg: 3500},
	{maxAge: 120, ironMg: 8, calciumMg: 1200, zincMg: 11, vitCMg: 90, potassiumMg: 3500},
}

// BaselineInput are the anthropometrics stage 1 consumes. Sex defaults to
// female and activity to light when unknown.
type BaselineInput struct {
	Age           float64
	Sex           string
	WeightKg      float64
	HeightCm      float64
	ActivityLevel string
}

// ComputeBaseline derives energy and nutrient requirements from
// age/sex/weight/height/activity using Mifflin-St Jeor for resting energy
// and the DRI bands for micronutrients.
func ComputeBaseline(in BaselineInput) (Requirements, []citation.Entry, error) {
	if in.Age <= 0 {
		return Requirements{}, nil, fmt.Errorf("baseline requires age, got %.1f", in.Age)
	}
	if in.WeightKg <= 0 || in.HeightCm <= 0 {
		return Requirements{}, nil, fmt.Errorf("baseline requires weight and height, got %.1fkg / %.1fcm", in.WeightKg, in.HeightCm)
	}

	sex := strings.ToLower(in.Sex)
	sexConst := -161.0 // female and unspecified
	if sex == "male" {
		sexConst = 5.0
	}
	ree := 10*in.WeightKg + 6.25*in.HeightCm - 5*in.Age + sexConst

	factor, ok := activityFactors[strings.ToLower(in.ActivityLevel)]
	if !ok {
		factor = activityFactors["light"]
	}
	energy := ree * factor

	// Children run higher per-kg protein needs than adults.
	proteinPerKg := 0.8
	if in.Age < 18 {
		proteinPerKg = 1.1
	}
	protein := proteinPerKg * in.WeightKg
	if protein < 30 {
		protein = 30
	}

	bands := driFemale
	if sexConst == 5.0 {
		bands = driMale
	}
	var band driBand
	for _, b := range bands {
		if in.Age <= b.maxAge {
			band = b
			break
		}
	}

	fiber := 14 * energy / 1000 // g per 1000 kcal

	req := Requirements{
		EnergyKcal: round1(energy),
		Macros: Macros{
			ProteinG:          round1(protein),
			CarbohydrateRatio: 0.55,
			FatRatio:          0.30,
			FiberG:            round1(fiber),
		},
		Micros: map[string]float64{
			"iron_mg":      band.ironMg,
			"calcium_mg":   band.calciumMg,
			"zinc_mg":      band.zincMg,
			"vitamin_c_mg": band.vitCMg,
			"potassium_mg": band.potassiumMg,
		},
	}

	cites := []citation.Entry{
		{
			SourceID:   "WHO/FAO Dietary Reference Intakes",
			SourceType: citation.SourceGuideline,
			Locator:    fmt.Sprintf("age band <=%.0f", band.maxAge),
			Context:    fmt.Sprintf("age %.0f, %s", in.Age, orDefault(sex, "female")),
		},
	}
	return req, cites, nil
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// ApplyAdjustments folds condition rules into a copy of the baseline and
// reports which rules took effect.
func ApplyAdjustments(base Requirements, cond Condition) (Requirements, []Adjustment, []citation.Entry) {
	adjusted := base
	adjusted.Micros = make(map[string]float64, len(base.Micros))
	for k, v := range base.Micros {
		adjusted.Micros[k] = v
	}

	var applied []Adjustment
	for _, a := range cond.Adjustments {
		switch a.Nutrient {
		case "energy_kcal":
			adjusted.EnergyKcal = applyRule(adjusted.EnergyKcal, a)
		case "protein_g":
			adjusted.Macros.ProteinG = applyRule(adjusted.Macros.ProteinG, a)
		case "fiber_g":
			adjusted.Macros.FiberG = applyRule(adjusted.Macros.FiberG, a)
		case "carbohydrate_ratio":
			adjusted.Macros.CarbohydrateRatio = a.Amount
		case "fat_ratio":
			adjusted.Macros.FatRatio = a.Amount
		default:
			current, tracked := adjusted.Micros[a.Nutrient]
			if !tracked && a.Kind != AdjustRestriction {
				continue
			}
			adjusted.Micros[a.Nutrient] = applyRule(current, a)
		}
		applied = append(applied, a)
	}

	var cites []citation.Entry
	if len(applied) > 0 {
		cites = append(cites, cond.Source)
	}
	return adjusted, applied, cites
}

func applyRule(current float64, a Adjustment) float64 {
	switch a.Kind {
	case AdjustPercentage:
		return round1(current * (1 + a.Amount/100))
	case AdjustAbsolute:
		return a.Amount
	case AdjustRestriction:
		if current == 0 || current > a.Amount {
			return a.Amount
		}
		return current
	}
	return current
}
