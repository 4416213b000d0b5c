package foodtable

import (
	"strings"
	"testing"

	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/therapy/registry"
)

func TestSelectCountryTable(t *testing.T) {
	sel := Select("Nigeria", nil, registry.MealRules{})
	if sel.Fallback {
		t.Error("Nigeria has a dedicated table, no fallback expected")
	}
	if sel.Country != "Nigeria" {
		t.Errorf("Country = %q", sel.Country)
	}
	if len(sel.Foods) == 0 || len(sel.Excluded) != 0 {
		t.Errorf("foods = %d, excluded = %v", len(sel.Foods), sel.Excluded)
	}
}

func TestSelectUnknownCountryFallsBack(t *testing.T) {
	sel := Select("Atlantis", nil, registry.MealRules{})
	if !sel.Fallback {
		t.Fatal("unknown country must fall back to the generic table")
	}
	if sel.Country != "Generic" {
		t.Errorf("Country = %q, want Generic", sel.Country)
	}
	if len(sel.Foods) == 0 {
		t.Error("generic fallback must still offer foods")
	}
}

func TestSelectFiltersAllergies(t *testing.T) {
	sel := Select("Canada", []string{"fish", "egg"}, registry.MealRules{})
	for _, f := range sel.Foods {
		for _, tag := range f.Allergens {
			if tag == "fish" || tag == "egg" {
				t.Errorf("%s carries allergen %s but survived the filter", f.Name, tag)
			}
		}
	}
	foundSalmon := false
	for _, ex := range sel.Excluded {
		if strings.Contains(ex, "salmon") {
			foundSalmon = true
		}
	}
	if !foundSalmon {
		t.Errorf("salmon not reported as excluded: %v", sel.Excluded)
	}
}

func TestSelectLowPotassiumRule(t *testing.T) {
	sel := Select("Nigeria", nil, registry.MealRules{LowPotassium: true})
	for _, f := range sel.Foods {
		if f.PotassiumMg > 250 {
			t.Errorf("%s has %.0fmg potassium per 100g, above the low-potassium ceiling", f.Name, f.PotassiumMg)
		}
	}
	// Pounded yam at 670mg must be out.
	for _, f := range sel.Foods {
		if strings.Contains(f.Name, "yam") {
			t.Error("pounded yam survived a low-potassium selection")
		}
	}
}

func TestSelectLowPhenylalanineAndGroupExclusions(t *testing.T) {
	cond, _ := registry.ConditionByCode("pku")
	sel := Select("Canada", nil, cond.Meals)
	for _, f := range sel.Foods {
		if f.PhenylalanineMg > 100 {
			t.Errorf("%s has %.0fmg phenylalanine per 100g", f.Name, f.PhenylalanineMg)
		}
		if f.Group == "dairy" {
			t.Errorf("%s is dairy, excluded by the condition rules", f.Name)
		}
	}
	if len(sel.Foods) == 0 {
		t.Error("a strict selection should still leave low-protein plants")
	}
}

func TestFindFoodPrefersCountryTable(t *testing.T) {
	f, cite, ok := FindFood("ugali", "Kenya")
	if !ok {
		t.Fatal("ugali should be found in the Kenyan table")
	}
	if f.Group != "staple" {
		t.Errorf("group = %q", f.Group)
	}
	if cite.SourceID != "Kenya Food Composition Tables" {
		t.Errorf("cite = %q, want the Kenyan table", cite.SourceID)
	}
}

func TestFindFoodFallsBackAcrossTables(t *testing.T) {
	if _, _, ok := FindFood("banana", "Nigeria"); !ok {
		t.Error("banana exists in other tables and should be found")
	}
	if _, _, ok := FindFood("unicorn steak", ""); ok {
		t.Error("nonexistent food reported as found")
	}
}

func TestByGroup(t *testing.T) {
	sel := Select("Kenya", nil, registry.MealRules{})
	groups := ByGroup(sel.Foods)
	for _, g := range []string{"staple", "protein", "vegetable", "fruit"} {
		if len(groups[g]) == 0 {
			t.Errorf("group %q empty", g)
		}
	}
}

func TestSourceCitation(t *testing.T) {
	if Source("Nigeria", false).SourceID != "Nigerian Food Composition Table" {
		t.Error("wrong source for Nigeria")
	}
	if Source("Atlantis", true).SourceID != "FAO/INFOODS Generic Food Composition" {
		t.Error("fallback source should be the generic table")
	}
}
