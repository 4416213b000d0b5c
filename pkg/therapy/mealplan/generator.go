package mealplan

import (
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/therapy/foodtable"
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/therapy/registry"
)

// Energy share of each eating occasion.
var mealShares = []struct {
	Name  string
	Share float64
}{
	{"breakfast", 0.25},
	{"lunch", 0.35},
	{"dinner", 0.30},
	{"snack", 0.10},
}

// Item is one food with a computed portion.
type Item struct {
	Food       string  `json:"food"`
	PortionG   float64 `json:"portion_g"`
	EnergyKcal float64 `json:"energy_kcal"`
	ProteinG   float64 `json:"protein_g"`
}

// Meal is one eating occasion with its compliance check result.
type Meal struct {
	Name        string  `json:"name"`
	TargetKcal  float64 `json:"target_kcal"`
	Items       []Item  `json:"items"`
	EnergyKcal  float64 `json:"energy_kcal"`
	ProteinG    float64 `json:"protein_g"`
	PotassiumMg float64 `json:"potassium_mg"`
	Compliant   bool    `json:"compliant"`
	Notes       []string `json:"notes,omitempty"`
}

// Day is one day of the plan.
type Day struct {
	Day   int    `json:"day"`
	Meals []Meal `json:"meals"`
}

// Plan is the stage-7 synthesis result.
type Plan struct {
	Days            []Day    `json:"days"`
	DailyTargetKcal float64  `json:"daily_target_kcal"`
	MedicationNotes []string `json:"medication_notes,omitempty"`
	Warnings        []string `json:"warnings,omitempty"`
}

// Generator builds multi-day meal plans from the adjusted requirements and
// the stage-5 food selection.
type Generator struct {
	logger *log.Logger
	days   int
}

func NewGenerator(logger *log.Logger, days int) *Generator {
	if days <= 0 {
		days = 3
	}
	return &Generator{logger: logger, days: days}
}

// meal deviation tolerated before the compliance flag drops.
const energyTolerance = 0.15

// Generate distributes the daily energy target across meals, picks foods
// from the selection by group, sizes portions to hit each meal's energy
// share, and validates each meal against the target and meal rules.
func (g *Generator) Generate(req registry.Requirements, sel foodtable.Selection, meds []string, rules registry.MealRules) Plan {
	plan := Plan{DailyTargetKcal: req.EnergyKcal}
	groups := foodtable.ByGroup(sel.Foods)

	if len(sel.Foods) == 0 {
		plan.Warnings = append(plan.Warnings, "no compatible foods found; plan could not be populated")
		return plan
	}
	if sel.Fallback {
		plan.Warnings = append(plan.Warnings, "no composition table for the requested country; using generic foods")
	}

	for d := 1; d <= g.days; d++ {
		day := Day{Day: d}
		for mi, ms := range mealShares {
			target := req.EnergyKcal * ms.Share
			meal := g.composeMeal(ms.Name, target, req, groups, d+mi, rules)
			day.Meals = append(day.Meals, meal)
		}
		plan.Days = append(plan.Days, day)
	}

	for _, m := range meds {
		if note, ok := registry.TimingNote(m); ok {
			plan.MedicationNotes = append(plan.MedicationNotes, fmt.Sprintf("%s: %s", m, note))
		}
	}

	g.logger.Printf("[MEALPLAN] generated %d days at %.0f kcal/day (%d foods available)",
		g.days, req.EnergyKcal, len(sel.Foods))
	return plan
}

// composeMeal assembles one occasion: a staple, a protein, a vegetable or
// fruit, sized so their energies sum near the target. The rotation offset
// varies picks across days so consecutive days differ.
func (g *Generator) composeMeal(name string, targetKcal float64, req registry.Requirements, groups map[string][]foodtable.Food, offset int, rules registry.MealRules) Meal {
	meal := Meal{Name: name, TargetKcal: round1(targetKcal)}

	wantGroups := []string{"staple", "protein", "vegetable"}
	shares := []float64{0.45, 0.35, 0.20}
	if name == "snack" {
		wantGroups = []string{"fruit"}
		shares = []float64{1.0}
		if len(groups["fruit"]) == 0 {
			wantGroups = []string{"staple"}
		}
	}

	for i, grp := range wantGroups {
		foods := groups[grp]
		if len(foods) == 0 {
			// fall back to any available group so the meal is never empty
			foods = anyFoods(groups)
			if len(foods) == 0 {
				continue
			}
		}
		f := foods[offset%len(foods)]
		itemKcal := targetKcal * shares[i]
		portion := portionFor(f, itemKcal)
		factor := portion / 100

		meal.Items = append(meal.Items, Item{
			Food:       f.Name,
			PortionG:   portion,
			EnergyKcal: round1(f.EnergyKcal * factor),
			ProteinG:   round1(f.ProteinG * factor),
		})
		meal.EnergyKcal += f.EnergyKcal * factor
		meal.ProteinG += f.ProteinG * factor
		meal.PotassiumMg += f.PotassiumMg * factor
	}

	meal.EnergyKcal = round1(meal.EnergyKcal)
	meal.ProteinG = round1(meal.ProteinG)
	meal.PotassiumMg = round1(meal.PotassiumMg)
	meal.Compliant = validateMeal(&meal, targetKcal, rules)
	return meal
}

func validateMeal(meal *Meal, targetKcal float64, rules registry.MealRules) bool {
	ok := true
	if targetKcal > 0 {
		dev := math.Abs(meal.EnergyKcal-targetKcal) / targetKcal
		if dev > energyTolerance {
			ok = false
			meal.Notes = append(meal.Notes, fmt.Sprintf("energy off target by %.0f%%", dev*100))
		}
	}
	if rules.LowPotassium && meal.PotassiumMg > 700 {
		ok = false
		meal.Notes = append(meal.Notes, "potassium above per-meal ceiling")
	}
	if rules.ConsistentCarbs && meal.Name != "snack" {
		meal.Notes = append(meal.Notes, "keep carbohydrate portions consistent with other main meals")
	}
	return ok
}

// portionFor sizes a portion in grams to supply wantKcal, clamped to a
// realistic serving range.
func portionFor(f foodtable.Food, wantKcal float64) float64 {
	if f.EnergyKcal <= 0 {
		return 50
	}
	p := wantKcal / f.EnergyKcal * 100
	switch {
	case p < 15:
		p = 15
	case p > 350:
		p = 350
	}
	return round1(p)
}

func anyFoods(groups map[string][]foodtable.Food) []foodtable.Food {
	for _, order := range []string{"staple", "protein", "vegetable", "fruit", "dairy", "fat"} {
		if len(groups[order]) > 0 {
			return groups[order]
		}
	}
	return nil
}

// Render formats the plan for the chat response.
func (p Plan) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Daily target: %.0f kcal\n", p.DailyTargetKcal)
	for _, d := range p.Days {
		fmt.Fprintf(&b, "\nDay %d\n", d.Day)
		for _, m := range d.Meals {
			fmt.Fprintf(&b, "  %s (~%.0f kcal):\n", capitalize(m.Name), m.EnergyKcal)
			for _, it := range m.Items {
				fmt.Fprintf(&b, "    - %s, %.0fg\n", it.Food, it.PortionG)
			}
		}
	}
	if len(p.MedicationNotes) > 0 {
		b.WriteString("\nMedication timing:\n")
		for _, n := range p.MedicationNotes {
			b.WriteString("  - " + n + "\n")
		}
	}
	for _, w := range p.Warnings {
		b.WriteString("\nNote: " + w + "\n")
	}
	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
