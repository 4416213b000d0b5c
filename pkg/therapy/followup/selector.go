package followup

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/store"
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/therapy/foodtable"
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/therapy/gatekeeper"
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/therapy/slot"
)

// Selector computes the next question to ask. It asks exactly one question
// per turn and never re-offers a slot the user has declined within the
// current intent-lock episode, so the interview always terminates.
type Selector struct {
	logger *log.Logger
}

func NewSelector(logger *log.Logger) *Selector {
	return &Selector{logger: logger}
}

// ComputeMissing returns the unmet, non-rejected slot names for an intent
// in the intent-specific collection order.
func (s *Selector) ComputeMissing(sess *store.Session, intent string) []slot.Name {
	var missing []slot.Name
	for _, name := range slot.CollectionOrder(intent) {
		v := sess.Slot(name)
		if v.IsFilled() || v.IsRejected() || sess.Rejected[name] {
			continue
		}
		missing = append(missing, name)
	}
	return missing
}

// PickNext returns the highest-priority missing slot, or false when the
// intent is ready to proceed.
func (s *Selector) PickNext(sess *store.Session, intent string) (slot.Name, bool) {
	missing := s.ComputeMissing(sess, intent)
	if len(missing) == 0 {
		return "", false
	}
	s.logger.Printf("[FOLLOWUP] %d slots missing for %s, asking %s", len(missing), intent, missing[0])
	return missing[0], true
}

// Question phrases the follow-up for one slot, with a diagnosis-aware hint
// for biomarkers.
func (s *Selector) Question(sess *store.Session, name slot.Name) string {
	switch name {
	case slot.Diagnosis:
		return "What is the medical condition or diagnosis?"
	case slot.Age:
		return "How old is the patient? (age in years)"
	case slot.Sex:
		return "What is the patient's biological sex? (male/female)"
	case slot.WeightKg:
		return "What is the patient's weight in kilograms?"
	case slot.HeightCm:
		return "What is the patient's height in centimeters?"
	case slot.Medications:
		return "Are you currently taking any medications? If yes, list them (separate with commas, or say 'none')."
	case slot.Biomarkers:
		diag, _ := sess.Slot(slot.Diagnosis).Text()
		hints := gatekeeper.BiomarkerHints(diag)
		return fmt.Sprintf("Do you have recent lab results? Useful ones here: %s.", strings.Join(hints, ", "))
	case slot.Country:
		countries := foodtable.SupportedCountries()
		sort.Strings(countries)
		return fmt.Sprintf("Which country are you in? I have detailed food tables for %s, and general data for everywhere else.",
			strings.Join(countries, ", "))
	case slot.Allergies:
		return "Any food allergies? (list them, or say 'none')"
	case slot.FoodA:
		return "What is the first food you want to compare?"
	case slot.FoodB:
		return "What is the second food you want to compare?"
	case slot.FoodState:
		return "How is the food prepared? (raw, boiled, fried, roasted, dried or fermented)"
	case slot.Basis:
		return "Should I compare per 100g or per serving?"
	}
	return fmt.Sprintf("Could you share the %s?", strings.ReplaceAll(string(name), "_", " "))
}

// Progress renders a "collected k of n" indicator appended to questions so
// the user can see the interview converging.
func (s *Selector) Progress(sess *store.Session, intent string) string {
	order := slot.CollectionOrder(intent)
	if len(order) == 0 {
		return ""
	}
	collected := 0
	for _, name := range order {
		v := sess.Slot(name)
		if v.IsFilled() || v.IsRejected() {
			collected++
		}
	}
	return fmt.Sprintf("\n\n(%d of %d details collected)", collected, len(order))
}
