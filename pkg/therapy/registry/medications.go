package registry

import "strings"

// medicationAliases maps common spellings and brand names onto the
// canonical generic name used by the interaction table.
var medicationAliases = map[string]string{
	"metformin":      "metformin",
	"glucophage":     "metformin",
	"insulin":        "insulin",
	"lantus":         "insulin",
	"novorapid":      "insulin",
	"humalog":        "insulin",
	"enalapril":      "enalapril",
	"lisinopril":     "lisinopril",
	"ramipril":       "ramipril",
	"furosemide":     "furosemide",
	"lasix":          "furosemide",
	"warfarin":       "warfarin",
	"coumadin":       "warfarin",
	"levothyroxine":  "levothyroxine",
	"synthroid":      "levothyroxine",
	"prednisolone":   "prednisolone",
	"prednisone":     "prednisolone",
	"omeprazole":     "omeprazole",
	"pancrelipase":   "pancreatic enzymes",
	"creon":          "pancreatic enzymes",
	"valproate":      "valproate",
	"sodium valproate": "valproate",
	"phenytoin":      "phenytoin",
	"sapropterin":    "sapropterin",
	"kuvan":          "sapropterin",
	"mesalazine":     "mesalazine",
	"mesalamine":     "mesalazine",
	"azathioprine":   "azathioprine",
}

// CanonicalMedication normalizes one free-text medication mention. Unknown
// names pass through lowercased so they still appear in the profile card.
func CanonicalMedication(raw string) string {
	m := strings.ToLower(strings.TrimSpace(raw))
	if canon, ok := medicationAliases[m]; ok {
		return canon
	}
	for alias, canon := range medicationAliases {
		if strings.Contains(m, alias) {
			return canon
		}
	}
	return m
}

// CanonicalMedications normalizes and deduplicates a medication list,
// preserving first-mention order.
func CanonicalMedications(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		c := CanonicalMedication(r)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// medicationTiming holds meal-timing guidance surfaced in the meal plan.
var medicationTiming = map[string]string{
	"metformin":          "take with meals to reduce gastrointestinal upset",
	"insulin":            "coordinate rapid-acting doses with carbohydrate at each meal",
	"levothyroxine":      "take on an empty stomach, 30-60 minutes before breakfast",
	"furosemide":         "take in the morning; pair with potassium-aware meal choices",
	"pancreatic enzymes": "take with every meal and snack containing fat",
	"warfarin":           "keep vitamin K intake consistent day to day",
	"prednisolone":       "take with food; watch added salt and sugar",
}

// TimingNote returns the meal-timing guidance for a canonical medication.
func TimingNote(canonical string) (string, bool) {
	note, ok := medicationTiming[canonical]
	return note, ok
}
