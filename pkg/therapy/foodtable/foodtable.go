package foodtable

import (
	"strings"

	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/therapy/citation"
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/therapy/registry"
)

// Food is one entry in a country composition table. Nutrient values are
// per 100g edible portion.
type Food struct {
	Name            string   `json:"name"`
	Group           string   `json:"group"` // staple, protein, vegetable, fruit, fat, dairy
	EnergyKcal      float64  `json:"energy_kcal"`
	ProteinG        float64  `json:"protein_g"`
	CarbohydrateG   float64  `json:"carbohydrate_g"`
	FatG            float64  `json:"fat_g"`
	PotassiumMg     float64  `json:"potassium_mg"`
	PhenylalanineMg float64  `json:"phenylalanine_mg"`
	Allergens       []string `json:"allergens,omitempty"`
}

type table struct {
	country string
	source  citation.Entry
	foods   []Food
}

func src(id, locator string) citation.Entry {
	return citation.Entry{SourceID: id, SourceType: citation.SourceFoodTable, Locator: locator}
}

var tables = map[string]table{
	"nigeria": {
		country: "Nigeria",
		source:  src("Nigerian Food Composition Table", "v2.0"),
		foods: []Food{
			{Name: "boiled white rice", Group: "staple", EnergyKcal: 130, ProteinG: 2.7, CarbohydrateG: 28, FatG: 0.3, PotassiumMg: 35, PhenylalanineMg: 140},
			{Name: "pounded yam", Group: "staple", EnergyKcal: 118, ProteinG: 1.5, CarbohydrateG: 28, FatG: 0.2, PotassiumMg: 670, PhenylalanineMg: 70},
			{Name: "gari (cassava)", Group: "staple", EnergyKcal: 160, ProteinG: 1.0, CarbohydrateG: 38, FatG: 0.3, PotassiumMg: 270, PhenylalanineMg: 30},
			{Name: "brown beans (ewa)", Group: "protein", EnergyKcal: 127, ProteinG: 8.7, CarbohydrateG: 22, FatG: 0.5, PotassiumMg: 405, PhenylalanineMg: 460},
			{Name: "grilled tilapia", Group: "protein", EnergyKcal: 128, ProteinG: 26, CarbohydrateG: 0, FatG: 2.7, PotassiumMg: 380, PhenylalanineMg: 1050, Allergens: []string{"fish"}},
			{Name: "chicken (stewed)", Group: "protein", EnergyKcal: 215, ProteinG: 27, CarbohydrateG: 0, FatG: 11, PotassiumMg: 220, PhenylalanineMg: 1080},
			{Name: "groundnut", Group: "protein", EnergyKcal: 567, ProteinG: 26, CarbohydrateG: 16, FatG: 49, PotassiumMg: 705, PhenylalanineMg: 1340, Allergens: []string{"peanut"}},
			{Name: "efo riro (spinach stew)", Group: "vegetable", EnergyKcal: 45, ProteinG: 3, CarbohydrateG: 4, FatG: 2.5, PotassiumMg: 460, PhenylalanineMg: 130},
			{Name: "okra soup", Group: "vegetable", EnergyKcal: 33, ProteinG: 1.9, CarbohydrateG: 7, FatG: 0.2, PotassiumMg: 300, PhenylalanineMg: 65},
			{Name: "garden egg", Group: "vegetable", EnergyKcal: 25, ProteinG: 1, CarbohydrateG: 6, FatG: 0.2, PotassiumMg: 230, PhenylalanineMg: 40},
			{Name: "pawpaw", Group: "fruit", EnergyKcal: 43, ProteinG: 0.5, CarbohydrateG: 11, FatG: 0.3, PotassiumMg: 180, PhenylalanineMg: 10},
			{Name: "orange", Group: "fruit", EnergyKcal: 47, ProteinG: 0.9, CarbohydrateG: 12, FatG: 0.1, PotassiumMg: 180, PhenylalanineMg: 30},
			{Name: "plantain (boiled)", Group: "fruit", EnergyKcal: 122, ProteinG: 1.3, CarbohydrateG: 32, FatG: 0.4, PotassiumMg: 500, PhenylalanineMg: 50},
			{Name: "palm oil", Group: "fat", EnergyKcal: 884, ProteinG: 0, CarbohydrateG: 0, FatG: 100, PotassiumMg: 0, PhenylalanineMg: 0},
			{Name: "wara (local cheese)", Group: "dairy", EnergyKcal: 265, ProteinG: 18, CarbohydrateG: 2, FatG: 21, PotassiumMg: 100, PhenylalanineMg: 950, Allergens: []string{"dairy", "milk"}},
		},
	},
	"kenya": {
		country: "Kenya",
		source:  src("Kenya Food Composition Tables", "2018"),
		foods: []Food{
			{Name: "ugali (maize meal)", Group: "staple", EnergyKcal: 112, ProteinG: 2.6, CarbohydrateG: 24, FatG: 0.5, PotassiumMg: 75, PhenylalanineMg: 130},
			{Name: "chapati", Group: "staple", EnergyKcal: 300, ProteinG: 8, CarbohydrateG: 46, FatG: 9, PotassiumMg: 120, PhenylalanineMg: 420, Allergens: []string{"gluten", "wheat"}},
			{Name: "boiled rice", Group: "staple", EnergyKcal: 130, ProteinG: 2.7, CarbohydrateG: 28, FatG: 0.3, PotassiumMg: 35, PhenylalanineMg: 140},
			{Name: "githeri (maize and beans)", Group: "protein", EnergyKcal: 140, ProteinG: 6.5, CarbohydrateG: 26, FatG: 1.2, PotassiumMg: 350, PhenylalanineMg: 350},
			{Name: "omena (dried fish)", Group: "protein", EnergyKcal: 290, ProteinG: 58, CarbohydrateG: 0, FatG: 6, PotassiumMg: 650, PhenylalanineMg: 2300, Allergens: []string{"fish"}},
			{Name: "beef stew", Group: "protein", EnergyKcal: 200, ProteinG: 25, CarbohydrateG: 2, FatG: 10, PotassiumMg: 300, PhenylalanineMg: 1000},
			{Name: "sukuma wiki (kale)", Group: "vegetable", EnergyKcal: 49, ProteinG: 4.3, CarbohydrateG: 9, FatG: 0.9, PotassiumMg: 490, PhenylalanineMg: 170},
			{Name: "cabbage", Group: "vegetable", EnergyKcal: 25, ProteinG: 1.3, CarbohydrateG: 6, FatG: 0.1, PotassiumMg: 170, PhenylalanineMg: 40},
			{Name: "banana", Group: "fruit", EnergyKcal: 89, ProteinG: 1.1, CarbohydrateG: 23, FatG: 0.3, PotassiumMg: 360, PhenylalanineMg: 50},
			{Name: "mango", Group: "fruit", EnergyKcal: 60, ProteinG: 0.8, CarbohydrateG: 15, FatG: 0.4, PotassiumMg: 170, PhenylalanineMg: 15},
			{Name: "avocado", Group: "fat", EnergyKcal: 160, ProteinG: 2, CarbohydrateG: 9, FatG: 15, PotassiumMg: 485, PhenylalanineMg: 95},
			{Name: "maziwa lala (fermented milk)", Group: "dairy", EnergyKcal: 62, ProteinG: 3.3, CarbohydrateG: 4.7, FatG: 3.3, PotassiumMg: 150, PhenylalanineMg: 170, Allergens: []string{"dairy", "milk"}},
		},
	},
	"canada": {
		country: "Canada",
		source:  src("Canadian Nutrient File", "2015"),
		foods: []Food{
			{Name: "whole wheat bread", Group: "staple", EnergyKcal: 247, ProteinG: 13, CarbohydrateG: 41, FatG: 3.4, PotassiumMg: 250, PhenylalanineMg: 620, Allergens: []string{"gluten", "wheat"}},
			{Name: "baked potato", Group: "staple", EnergyKcal: 93, ProteinG: 2.5, CarbohydrateG: 21, FatG: 0.1, PotassiumMg: 535, PhenylalanineMg: 90},
			{Name: "oatmeal", Group: "staple", EnergyKcal: 71, ProteinG: 2.5, CarbohydrateG: 12, FatG: 1.5, PotassiumMg: 70, PhenylalanineMg: 130, Allergens: []string{"gluten"}},
			{Name: "baked salmon", Group: "protein", EnergyKcal: 206, ProteinG: 22, CarbohydrateG: 0, FatG: 12, PotassiumMg: 380, PhenylalanineMg: 880, Allergens: []string{"fish"}},
			{Name: "roast chicken breast", Group: "protein", EnergyKcal: 165, ProteinG: 31, CarbohydrateG: 0, FatG: 3.6, PotassiumMg: 255, PhenylalanineMg: 1230},
			{Name: "lentils (cooked)", Group: "protein", EnergyKcal: 116, ProteinG: 9, CarbohydrateG: 20, FatG: 0.4, PotassiumMg: 370, PhenylalanineMg: 445},
			{Name: "eggs (boiled)", Group: "protein", EnergyKcal: 155, ProteinG: 13, CarbohydrateG: 1.1, FatG: 11, PotassiumMg: 125, PhenylalanineMg: 680, Allergens: []string{"egg"}},
			{Name: "steamed broccoli", Group: "vegetable", EnergyKcal: 35, ProteinG: 2.4, CarbohydrateG: 7, FatG: 0.4, PotassiumMg: 290, PhenylalanineMg: 85},
			{Name: "carrots", Group: "vegetable", EnergyKcal: 41, ProteinG: 0.9, CarbohydrateG: 10, FatG: 0.2, PotassiumMg: 320, PhenylalanineMg: 30},
			{Name: "green beans", Group: "vegetable", EnergyKcal: 31, ProteinG: 1.8, CarbohydrateG: 7, FatG: 0.2, PotassiumMg: 210, PhenylalanineMg: 65},
			{Name: "apple", Group: "fruit", EnergyKcal: 52, ProteinG: 0.3, CarbohydrateG: 14, FatG: 0.2, PotassiumMg: 107, PhenylalanineMg: 5},
			{Name: "blueberries", Group: "fruit", EnergyKcal: 57, ProteinG: 0.7, CarbohydrateG: 14, FatG: 0.3, PotassiumMg: 77, PhenylalanineMg: 25},
			{Name: "canola oil", Group: "fat", EnergyKcal: 884, ProteinG: 0, CarbohydrateG: 0, FatG: 100, PotassiumMg: 0, PhenylalanineMg: 0},
			{Name: "cheddar cheese", Group: "dairy", EnergyKcal: 403, ProteinG: 25, CarbohydrateG: 1.3, FatG: 33, PotassiumMg: 98, PhenylalanineMg: 1300, Allergens: []string{"dairy", "milk"}},
			{Name: "plain yogurt", Group: "dairy", EnergyKcal: 61, ProteinG: 3.5, CarbohydrateG: 4.7, FatG: 3.3, PotassiumMg: 155, PhenylalanineMg: 180, Allergens: []string{"dairy", "milk"}},
		},
	},
}

// generic is the fallback table used when no country table exists. It
// carries widely available foods so stage 5 still produces suggestions.
var generic = table{
	country: "Generic",
	source:  src("FAO/INFOODS Generic Food Composition", "global"),
	foods: []Food{
		{Name: "boiled rice", Group: "staple", EnergyKcal: 130, ProteinG: 2.7, CarbohydrateG: 28, FatG: 0.3, PotassiumMg: 35, PhenylalanineMg: 140},
		{Name: "boiled potato", Group: "staple", EnergyKcal: 87, ProteinG: 1.9, CarbohydrateG: 20, FatG: 0.1, PotassiumMg: 380, PhenylalanineMg: 80},
		{Name: "maize porridge", Group: "staple", EnergyKcal: 112, ProteinG: 2.6, CarbohydrateG: 24, FatG: 0.5, PotassiumMg: 75, PhenylalanineMg: 130},
		{Name: "beans (cooked)", Group: "protein", EnergyKcal: 127, ProteinG: 8.7, CarbohydrateG: 22, FatG: 0.5, PotassiumMg: 405, PhenylalanineMg: 460},
		{Name: "chicken", Group: "protein", EnergyKcal: 165, ProteinG: 31, CarbohydrateG: 0, FatG: 3.6, PotassiumMg: 255, PhenylalanineMg: 1230},
		{Name: "fish (grilled)", Group: "protein", EnergyKcal: 128, ProteinG: 26, CarbohydrateG: 0, FatG: 2.7, PotassiumMg: 380, PhenylalanineMg: 1050, Allergens: []string{"fish"}},
		{Name: "eggs", Group: "protein", EnergyKcal: 155, ProteinG: 13, CarbohydrateG: 1.1, FatG: 11, PotassiumMg: 125, PhenylalanineMg: 680, Allergens: []string{"egg"}},
		{Name: "leafy greens", Group: "vegetable", EnergyKcal: 35, ProteinG: 3, CarbohydrateG: 5, FatG: 0.5, PotassiumMg: 450, PhenylalanineMg: 120},
		{Name: "cabbage", Group: "vegetable", EnergyKcal: 25, ProteinG: 1.3, CarbohydrateG: 6, FatG: 0.1, PotassiumMg: 170, PhenylalanineMg: 40},
		{Name: "banana", Group: "fruit", EnergyKcal: 89, ProteinG: 1.1, CarbohydrateG: 23, FatG: 0.3, PotassiumMg: 360, PhenylalanineMg: 50},
		{Name: "orange", Group: "fruit", EnergyKcal: 47, ProteinG: 0.9, CarbohydrateG: 12, FatG: 0.1, PotassiumMg: 180, PhenylalanineMg: 30},
		{Name: "vegetable oil", Group: "fat", EnergyKcal: 884, ProteinG: 0, CarbohydrateG: 0, FatG: 100, PotassiumMg: 0, PhenylalanineMg: 0},
		{Name: "milk", Group: "dairy", EnergyKcal: 61, ProteinG: 3.2, CarbohydrateG: 4.8, FatG: 3.3, PotassiumMg: 150, PhenylalanineMg: 160, Allergens: []string{"dairy", "milk"}},
	},
}

// thresholds for condition restrictions, per 100g.
const (
	lowPotassiumMaxMg     = 250
	lowPhenylalanineMaxMg = 100
)

// Selection is the stage-5 result: locally sourced foods compatible with
// the patient's allergies and condition rules.
type Selection struct {
	Country  string   `json:"country"`
	Fallback bool     `json:"fallback"` // true when the generic table substituted
	Foods    []Food   `json:"foods"`
	Excluded []string `json:"excluded,omitempty"` // names removed by filters
}

// Source returns the composition-table citation for a selection.
func Source(country string, fallback bool) citation.Entry {
	if fallback {
		return generic.source
	}
	return tables[strings.ToLower(country)].source
}

// SupportedCountries lists the countries with a dedicated table.
func SupportedCountries() []string {
	out := make([]string, 0, len(tables))
	for _, t := range tables {
		out = append(out, t.country)
	}
	return out
}

// Select filters the country table by allergies and the condition's meal
// rules. An unknown country falls back to the generic table rather than
// failing the stage.
func Select(country string, allergies []string, rules registry.MealRules) Selection {
	t, ok := tables[strings.ToLower(strings.TrimSpace(country))]
	sel := Selection{Country: t.country, Fallback: !ok}
	if !ok {
		t = generic
		sel.Country = generic.country
	}

	for _, f := range t.foods {
		if reason, excluded := excludeFood(f, allergies, rules); excluded {
			sel.Excluded = append(sel.Excluded, f.Name+" ("+reason+")")
			continue
		}
		sel.Foods = append(sel.Foods, f)
	}
	return sel
}

func excludeFood(f Food, allergies []string, rules registry.MealRules) (string, bool) {
	for _, a := range allergies {
		al := strings.ToLower(strings.TrimSpace(a))
		if al == "" {
			continue
		}
		if strings.Contains(strings.ToLower(f.Name), al) {
			return "allergy: " + al, true
		}
		for _, tag := range f.Allergens {
			if strings.Contains(tag, al) || strings.Contains(al, tag) {
				return "allergy: " + al, true
			}
		}
	}
	for _, g := range rules.ExcludedFoodGroups {
		if strings.EqualFold(f.Group, g) {
			return "excluded group: " + g, true
		}
	}
	if rules.LowPotassium && f.PotassiumMg > lowPotassiumMaxMg {
		return "high potassium", true
	}
	if rules.LowPhenylalanine && f.PhenylalanineMg > lowPhenylalanineMaxMg {
		return "high phenylalanine", true
	}
	return "", false
}

// FindFood searches every table, the requested country first, for a food
// whose name contains the query.
func FindFood(query, country string) (Food, citation.Entry, bool) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return Food{}, citation.Entry{}, false
	}

	search := []table{generic}
	if t, ok := tables[strings.ToLower(country)]; ok {
		search = append([]table{t}, search...)
	}
	for _, t := range tables {
		search = append(search, t)
	}

	for _, t := range search {
		for _, f := range t.foods {
			if strings.Contains(strings.ToLower(f.Name), q) || strings.Contains(q, strings.ToLower(f.Name)) {
				return f, t.source, true
			}
		}
	}
	return Food{}, citation.Entry{}, false
}

// ByGroup partitions a selection for the meal plan generator.
func ByGroup(foods []Food) map[string][]Food {
	out := make(map[string][]Food)
	for _, f := range foods {
		out[f.Group] = append(out[f.Group], f)
	}
	return out
}
