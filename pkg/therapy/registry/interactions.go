package registry

import (
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/therapy/citation"
)

// Interaction is one drug-nutrient interaction surfaced at stage 4.
type Interaction struct {
	Medication string `json:"medication"`
	Nutrient   string `json:"nutrient"`
	Effect     string `json:"effect"`
	Guidance   string `json:"guidance"`
	Severity   string `json:"severity"` // "monitor" or "caution"
}

var interactionSrc = citation.Entry{
	SourceID:   "Stockley's Drug Interactions",
	SourceType: citation.SourceDrugInteraction,
	Locator:    "food and nutrient monographs",
}

// interactions is keyed by canonical medication name.
var interactions = map[string][]Interaction{
	"metformin": {
		{Medication: "metformin", Nutrient: "vitamin B12", Effect: "long-term use impairs B12 absorption",
			Guidance: "monitor B12 annually; include fortified foods or animal products", Severity: "monitor"},
	},
	"insulin": {
		{Medication: "insulin", Nutrient: "carbohydrate", Effect: "dose and carbohydrate intake must match",
			Guidance: "keep carbohydrate consistent per meal and coordinate with dosing", Severity: "caution"},
	},
	"enalapril": {
		{Medication: "enalapril", Nutrient: "potassium", Effect: "ACE inhibition reduces potassium excretion",
			Guidance: "avoid potassium supplements and salt substitutes; monitor serum potassium", Severity: "caution"},
	},
	"lisinopril": {
		{Medication: "lisinopril", Nutrient: "potassium", Effect: "ACE inhibition reduces potassium excretion",
			Guidance: "avoid potassium supplements and salt substitutes; monitor serum potassium", Severity: "caution"},
	},
	"ramipril": {
		{Medication: "ramipril", Nutrient: "potassium", Effect: "ACE inhibition reduces potassium excretion",
			Guidance: "avoid potassium supplements and salt substitutes; monitor serum potassium", Severity: "caution"},
	},
	"furosemide": {
		{Medication: "furosemide", Nutrient: "potassium", Effect: "loop diuresis wastes potassium and magnesium",
			Guidance: "include potassium-containing foods unless renally restricted; monitor electrolytes", Severity: "monitor"},
		{Medication: "furosemide", Nutrient: "calcium", Effect: "increases urinary calcium loss",
			Guidance: "meet calcium targets through diet", Severity: "monitor"},
	},
	"warfarin": {
		{Medication: "warfarin", Nutrient: "vitamin K", Effect: "vitamin K intake swings alter INR",
			Guidance: "keep leafy-green intake steady rather than avoiding it", Severity: "caution"},
	},
	"levothyroxine": {
		{Medication: "levothyroxine", Nutrient: "calcium", Effect: "calcium and iron bind the drug in the gut",
			Guidance: "separate from calcium- or iron-rich foods and supplements by 4 hours", Severity: "caution"},
	},
	"prednisolone": {
		{Medication: "prednisolone", Nutrient: "calcium", Effect: "glucocorticoids accelerate bone loss",
			Guidance: "ensure calcium and vitamin D targets are met", Severity: "monitor"},
		{Medication: "prednisolone", Nutrient: "sodium", Effect: "promotes sodium and fluid retention",
			Guidance: "limit added salt", Severity: "monitor"},
	},
	"omeprazole": {
		{Medication: "omeprazole", Nutrient: "vitamin B12", Effect: "acid suppression impairs food-bound B12 release",
			Guidance: "monitor B12 on long-term use", Severity: "monitor"},
		{Medication: "omeprazole", Nutrient: "magnesium", Effect: "chronic use can cause hypomagnesemia",
			Guidance: "include magnesium-containing foods; check levels if symptomatic", Severity: "monitor"},
	},
	"valproate": {
		{Medication: "valproate", Nutrient: "carnitine", Effect: "depletes carnitine in long-term pediatric use",
			Guidance: "consider dietary carnitine sources; supplement only under supervision", Severity: "monitor"},
	},
	"phenytoin": {
		{Medication: "phenytoin", Nutrient: "folate", Effect: "chronic use lowers folate stores",
			Guidance: "include folate-rich foods; avoid high-dose supplements without advice", Severity: "monitor"},
	},
	"mesalazine": {
		{Medication: "mesalazine", Nutrient: "folate", Effect: "competes with folate absorption",
			Guidance: "include folate-rich foods", Severity: "monitor"},
	},
	"pancreatic enzymes": {
		{Medication: "pancreatic enzymes", Nutrient: "fat", Effect: "enzyme dosing scales with dietary fat",
			Guidance: "dose with every fat-containing meal and snack", Severity: "caution"},
	},
}

// InteractionsFor returns the interactions for a list of canonical
// medications plus the supporting citations. Medications without a table
// entry contribute nothing; an empty result is a valid stage outcome.
func InteractionsFor(meds []string) ([]Interaction, []citation.Entry) {
	var out []Interaction
	for _, m := range meds {
		out = append(out, interactions[m]...)
	}
	if len(out) == 0 {
		return nil, nil
	}
	cites := make([]citation.Entry, 0, len(out))
	for _, ix := range out {
		c := interactionSrc
		c.Locator = ix.Medication
		c.Context = ix.Nutrient
		cites = append(cites, c)
	}
	return out, cites
}
