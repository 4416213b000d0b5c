package profile

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Stage display titles for the rendered card. Stage 6 is the confirmation
// gate and never produces a section of its own.
var stageTitles = map[int]string{
	0: "Condition",
	1: "Baseline Requirements",
	2: "Therapeutic Adjustments",
	3: "Biochemical Rationale",
	4: "Drug-Nutrient Interactions",
	5: "Food Sources",
	7: "Meal Plan",
}

// PatientInfo is the static header of the card, filled from session slots.
type PatientInfo struct {
	Age         *float64 `json:"age,omitempty"`
	Sex         string   `json:"sex,omitempty"`
	WeightKg    *float64 `json:"weight_kg,omitempty"`
	HeightCm    *float64 `json:"height_cm,omitempty"`
	BMI         *float64 `json:"bmi,omitempty"`
	Diagnosis   string   `json:"diagnosis,omitempty"`
	Medications []string `json:"medications,omitempty"`
	Biomarkers  []string `json:"biomarkers,omitempty"`
	Country     string   `json:"country,omitempty"`
}

// Card is a progressive read-model of pipeline progress: a patient summary
// plus one rendered snapshot per completed stage. Updating a stage twice
// with identical input replaces the snapshot in place, so replay is
// idempotent.
type Card struct {
	Patient     PatientInfo    `json:"patient"`
	Sections    map[int]string `json:"sections"`
	LastUpdated time.Time      `json:"last_updated"`
}

func NewCard(patient PatientInfo) *Card {
	return &Card{Patient: patient, Sections: make(map[int]string)}
}

// Update records the rendered snapshot for a completed stage.
func (c *Card) Update(stage int, snapshot string) {
	if _, known := stageTitles[stage]; !known {
		return
	}
	if c.Sections == nil {
		c.Sections = make(map[int]string)
	}
	c.Sections[stage] = snapshot
	c.LastUpdated = time.Now()
}

// CompletedStages returns the stages with a snapshot, ascending.
func (c *Card) CompletedStages() []int {
	stages := make([]int, 0, len(c.Sections))
	for s := range c.Sections {
		stages = append(stages, s)
	}
	sort.Ints(stages)
	return stages
}

// Complete reports whether the minimum therapy stages (1-5) all have
// snapshots.
func (c *Card) Complete() bool {
	for _, s := range []int{1, 2, 3, 4, 5} {
		if _, ok := c.Sections[s]; !ok {
			return false
		}
	}
	return true
}

// Render formats the card for display, progressively including whatever
// stages have completed so far.
func (c *Card) Render() string {
	var b strings.Builder
	rule := strings.Repeat("-", 58)
	b.WriteString("+" + rule + "+\n")
	b.WriteString("| PROFILE SUMMARY CARD\n")
	b.WriteString("+" + rule + "+\n")

	p := c.Patient
	var bits []string
	if p.Age != nil {
		bits = append(bits, fmt.Sprintf("%.0f years", *p.Age))
	}
	if p.Sex != "" {
		bits = append(bits, p.Sex)
	}
	if p.WeightKg != nil {
		bits = append(bits, fmt.Sprintf("%.0fkg", *p.WeightKg))
	}
	if p.HeightCm != nil {
		bits = append(bits, fmt.Sprintf("%.0fcm", *p.HeightCm))
	}
	if len(bits) > 0 {
		b.WriteString("| Patient: " + strings.Join(bits, ", ") + "\n")
	}
	if p.BMI != nil {
		b.WriteString(fmt.Sprintf("| BMI: %.1f\n", *p.BMI))
	}
	if p.Diagnosis != "" {
		b.WriteString("| Diagnosis: " + p.Diagnosis + "\n")
	}
	if len(p.Medications) > 0 {
		meds := p.Medications
		extra := ""
		if len(meds) > 3 {
			extra = fmt.Sprintf(" (+%d more)", len(meds)-3)
			meds = meds[:3]
		}
		b.WriteString("| Medications: " + strings.Join(meds, ", ") + extra + "\n")
	}
	if len(p.Biomarkers) > 0 {
		b.WriteString("| Biomarkers: " + strings.Join(p.Biomarkers, ", ") + "\n")
	}
	if p.Country != "" {
		b.WriteString("| Country: " + p.Country + "\n")
	}

	for _, stage := range c.CompletedStages() {
		b.WriteString("+" + rule + "+\n")
		b.WriteString(fmt.Sprintf("| STEP %d: %s\n", stage, stageTitles[stage]))
		for _, line := range strings.Split(c.Sections[stage], "\n") {
			b.WriteString("| " + line + "\n")
		}
	}
	b.WriteString("+" + rule + "+")
	return b.String()
}
