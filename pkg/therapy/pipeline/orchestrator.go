package pipeline

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/store"
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/therapy/citation"
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/therapy/foodtable"
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/therapy/mealplan"
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/therapy/registry"
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/therapy/slot"
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/therapy/therapyerr"
)

// Outcome is what one pipeline run hands back to the chat service.
type Outcome struct {
	Stage                int
	AwaitingConfirmation bool
	Partial              bool
	PlanDays             int
	Message              string
	Warnings             []string
}

// Orchestrator runs the staged therapy computation. Each stage records its
// result on the session, so a re-run after suspension or a repeated turn
// reuses stored results instead of recomputing them.
type Orchestrator struct {
	logger *log.Logger
	plans  *mealplan.Generator
}

func NewOrchestrator(logger *log.Logger, planDays int) *Orchestrator {
	return &Orchestrator{
		logger: logger,
		plans:  mealplan.NewGenerator(logger, planDays),
	}
}

// Stage payloads. Kept as named structs so stored results unmarshal back
// into the same shapes on resume.

type conditionPayload struct {
	Code        string `json:"code"`
	DisplayName string `json:"display_name"`
}

type adjustmentsPayload struct {
	Requirements registry.Requirements `json:"requirements"`
	Applied      []registry.Adjustment `json:"applied,omitempty"`
	Condition    string                `json:"condition"`
}

type rationalePayload struct {
	Entries []registry.Rationale `json:"entries"`
}

type interactionsPayload struct {
	Interactions []registry.Interaction `json:"interactions"`
}

type planPayload struct {
	Plan mealplan.Plan `json:"plan"`
}

// Run executes stages 0 through 5 and then suspends at the confirmation
// gate. Stage 0 failure returns UnsupportedConditionError so the caller
// can downgrade the conversation; stage 1 failure returns FatalStageError
// and nothing is produced. Every other stage degrades per its fallback and
// sets the partial flag.
func (o *Orchestrator) Run(sess *store.Session) (Outcome, error) {
	out := Outcome{}

	cond, err := o.normalizeCondition(sess)
	if err != nil {
		out.Stage = store.StageConditionNormalize
		return out, err
	}

	base, err := o.baseline(sess)
	if err != nil {
		out.Stage = store.StageBaseline
		return out, err
	}

	adjusted := o.adjustments(sess, base, cond, &out)
	o.rationale(sess, cond, &out)
	o.interactions(sess, &out)
	sel := o.foodSourcing(sess, cond, &out)

	// Stage 6: suspend until the user confirms the collected profile.
	sess.Pipeline.AwaitingConfirmation = true
	sess.Pipeline.Record(store.StageConfirmGate, store.StageResult{Status: store.StageSuccess})
	out.Stage = store.StageConfirmGate
	out.AwaitingConfirmation = true
	out.Partial = sess.Pipeline.Partial
	out.Message = o.confirmationMessage(sess, adjusted, sel)
	return out, nil
}

// Resume completes stage 7 after the user confirmed at the gate. Inputs
// come from the stored stage results, not from recomputation.
func (o *Orchestrator) Resume(sess *store.Session) (Outcome, error) {
	out := Outcome{Stage: store.StageMealPlan}
	sess.Pipeline.AwaitingConfirmation = false

	if r, ok := sess.Pipeline.Result(store.StageMealPlan); ok && r.Status == store.StageSuccess {
		var pp planPayload
		if err := json.Unmarshal(r.Payload, &pp); err == nil {
			out.Partial = sess.Pipeline.Partial
			out.PlanDays = len(pp.Plan.Days)
			out.Message = o.withSources(sess, pp.Plan.Render())
			return out, nil
		}
	}

	req, ok := o.storedRequirements(sess)
	if !ok {
		return out, &therapyerr.FatalStageError{Stage: store.StageMealPlan, Reason: "no stored requirements to synthesize from"}
	}
	sel, selOK := o.storedSelection(sess)
	if !selOK {
		sel = foodtable.Selection{}
	}

	cond := o.storedCondition(sess)
	meds, _ := sess.Slot(slot.Medications).List()
	plan := o.plans.Generate(req, sel, registry.CanonicalMedications(meds), cond.Meals)

	if sess.Pipeline.Partial {
		plan.Warnings = append(plan.Warnings, "some analysis steps were skipped; this plan is based on partial data")
		out.Partial = true
	}

	payload, _ := json.Marshal(planPayload{Plan: plan})
	sess.Pipeline.Record(store.StageMealPlan, store.StageResult{Status: store.StageSuccess, Payload: payload})
	if sess.Card != nil {
		sess.Card.Update(store.StageMealPlan, fmt.Sprintf("%d-day plan at %.0f kcal/day", len(plan.Days), plan.DailyTargetKcal))
	}

	o.logger.Printf("[PIPELINE] stage 7 complete for session %s (partial=%v)", sess.ID, out.Partial)
	out.PlanDays = len(plan.Days)
	out.Message = o.withSources(sess, plan.Render())
	out.Warnings = plan.Warnings
	return out, nil
}

// withSources appends the accumulated provenance block to the final plan.
func (o *Orchestrator) withSources(sess *store.Session, msg string) string {
	if src := sess.Ledger().Render(); src != "" {
		return msg + "\n\n" + src
	}
	return msg
}

// normalizeCondition is stage 0. An unsupported diagnosis halts the run
// without poisoning the session: the failure is recorded and the caller
// downgrades to general guidance.
func (o *Orchestrator) normalizeCondition(sess *store.Session) (registry.Condition, error) {
	if r, ok := sess.Pipeline.Result(store.StageConditionNormalize); ok && r.Status == store.StageSuccess {
		var cp conditionPayload
		if json.Unmarshal(r.Payload, &cp) == nil {
			if cond, found := registry.ConditionByCode(cp.Code); found {
				return cond, nil
			}
		}
	}

	diag, _ := sess.Slot(slot.Diagnosis).Text()
	cond, found := registry.NormalizeDiagnosis(diag)
	if !found {
		sess.Pipeline.Record(store.StageConditionNormalize, store.StageResult{
			Status: store.StageFailure,
			Reason: "unsupported condition",
		})
		o.logger.Printf("[PIPELINE] stage 0 halt: unsupported condition %q", diag)
		return registry.Condition{}, &therapyerr.UnsupportedConditionError{Diagnosis: diag}
	}

	payload, _ := json.Marshal(conditionPayload{Code: cond.Code, DisplayName: cond.DisplayName})
	sess.Pipeline.Record(store.StageConditionNormalize, store.StageResult{Status: store.StageSuccess, Payload: payload})
	if sess.Card != nil {
		sess.Card.Update(store.StageConditionNormalize, cond.DisplayName)
		sess.Card.Patient.Diagnosis = cond.DisplayName
	}
	return cond, nil
}

// baseline is stage 1 and the only fatal stage: without energy and
// nutrient targets nothing downstream is meaningful.
func (o *Orchestrator) baseline(sess *store.Session) (registry.Requirements, error) {
	if r, ok := sess.Pipeline.Result(store.StageBaseline); ok && r.Status == store.StageSuccess {
		var req registry.Requirements
		if json.Unmarshal(r.Payload, &req) == nil {
			return req, nil
		}
	}

	in := registry.BaselineInput{}
	in.Age, _ = sess.Slot(slot.Age).Float()
	in.WeightKg, _ = sess.Slot(slot.WeightKg).Float()
	in.HeightCm, _ = sess.Slot(slot.HeightCm).Float()
	in.Sex, _ = sess.Slot(slot.Sex).Text()

	req, cites, err := registry.ComputeBaseline(in)
	if err != nil {
		sess.Pipeline.Record(store.StageBaseline, store.StageResult{Status: store.StageFailure, Reason: err.Error()})
		return registry.Requirements{}, &therapyerr.FatalStageError{Stage: store.StageBaseline, Reason: err.Error()}
	}

	payload, _ := json.Marshal(req)
	sess.Pipeline.Record(store.StageBaseline, store.StageResult{Status: store.StageSuccess, Payload: payload, Citations: cites})
	sess.Ledger().AddAll(cites)
	if sess.Card != nil {
		sess.Card.Update(store.StageBaseline, fmt.Sprintf("%.0f kcal, %.0fg protein daily", req.EnergyKcal, req.Macros.ProteinG))
	}
	return req, nil
}

// adjustments is stage 2. On any problem the baseline passes through
// unmodified and the run is flagged partial.
func (o *Orchestrator) adjustments(sess *store.Session, base registry.Requirements, cond registry.Condition, out *Outcome) registry.Requirements {
	if r, ok := sess.Pipeline.Result(store.StageAdjustments); ok && r.Status == store.StageSuccess {
		var ap adjustmentsPayload
		if json.Unmarshal(r.Payload, &ap) == nil {
			return ap.Requirements
		}
	}

	adjusted, applied, cites := registry.ApplyAdjustments(base, cond)
	if len(applied) == 0 && len(cond.Adjustments) > 0 {
		sess.Pipeline.Record(store.StageAdjustments, store.StageResult{Status: store.StageFailure, Reason: "no adjustment rules applied"})
		sess.Pipeline.Partial = true
		out.Warnings = append(out.Warnings, "condition-specific adjustments unavailable; using baseline targets")
		return base
	}

	payload, _ := json.Marshal(adjustmentsPayload{Requirements: adjusted, Applied: applied, Condition: cond.Code})
	sess.Pipeline.Record(store.StageAdjustments, store.StageResult{Status: store.StageSuccess, Payload: payload, Citations: cites})
	sess.Ledger().AddAll(cites)
	if sess.Card != nil {
		sess.Card.Update(store.StageAdjustments, fmt.Sprintf("%d rules applied for %s", len(applied), cond.DisplayName))
	}
	return adjusted
}

// rationale is stage 3. Omitted from the output on failure.
func (o *Orchestrator) rationale(sess *store.Session, cond registry.Condition, out *Outcome) {
	if r, ok := sess.Pipeline.Result(store.StageRationale); ok && r.Status == store.StageSuccess {
		return
	}

	if len(cond.Rationale) == 0 {
		sess.Pipeline.Record(store.StageRationale, store.StageResult{Status: store.StageFailure, Reason: "no rationale available"})
		sess.Pipeline.Partial = true
		return
	}

	payload, _ := json.Marshal(rationalePayload{Entries: cond.Rationale})
	sess.Pipeline.Record(store.StageRationale, store.StageResult{Status: store.StageSuccess, Payload: payload, Citations: []citation.Entry{cond.Source}})
	sess.Ledger().Add(cond.Source)
	if sess.Card != nil {
		sess.Card.Update(store.StageRationale, fmt.Sprintf("%d nutrients explained", len(cond.Rationale)))
	}
}

// interactions is stage 4. An empty interaction list is a valid success;
// a patient on no interacting drugs is the common case.
func (o *Orchestrator) interactions(sess *store.Session, out *Outcome) {
	if r, ok := sess.Pipeline.Result(store.StageInteractions); ok && r.Status == store.StageSuccess {
		return
	}

	meds, _ := sess.Slot(slot.Medications).List()
	ixs, cites := registry.InteractionsFor(registry.CanonicalMedications(meds))

	payload, _ := json.Marshal(interactionsPayload{Interactions: ixs})
	sess.Pipeline.Record(store.StageInteractions, store.StageResult{Status: store.StageSuccess, Payload: payload, Citations: cites})
	sess.Ledger().AddAll(cites)
	if sess.Card != nil {
		sess.Card.Update(store.StageInteractions, fmt.Sprintf("%d interactions flagged", len(ixs)))
	}
}

// foodSourcing is stage 5. An unknown country substitutes the generic
// table; only a fully empty selection flags the run partial.
func (o *Orchestrator) foodSourcing(sess *store.Session, cond registry.Condition, out *Outcome) foodtable.Selection {
	if r, ok := sess.Pipeline.Result(store.StageFoodSourcing); ok && r.Status == store.StageSuccess {
		var sel foodtable.Selection
		if json.Unmarshal(r.Payload, &sel) == nil {
			return sel
		}
	}

	country, _ := sess.Slot(slot.Country).Text()
	allergies, _ := sess.Slot(slot.Allergies).List()
	sel := foodtable.Select(country, allergies, cond.Meals)

	if len(sel.Foods) == 0 {
		sess.Pipeline.Record(store.StageFoodSourcing, store.StageResult{Status: store.StageFailure, Reason: "no compatible foods"})
		sess.Pipeline.Partial = true
		out.Warnings = append(out.Warnings, "no compatible local foods found; the plan will name food groups instead")
		return sel
	}
	if sel.Fallback {
		out.Warnings = append(out.Warnings, fmt.Sprintf("no composition table for %q; using widely available foods", country))
	}

	payload, _ := json.Marshal(sel)
	cite := foodtable.Source(country, sel.Fallback)
	sess.Pipeline.Record(store.StageFoodSourcing, store.StageResult{
		Status: store.StageSuccess, Payload: payload, Citations: []citation.Entry{cite},
	})
	sess.Ledger().Add(cite)
	if sess.Card != nil {
		sess.Card.Update(store.StageFoodSourcing, fmt.Sprintf("%d foods from %s", len(sel.Foods), sel.Country))
	}
	return sel
}

func (o *Orchestrator) confirmationMessage(sess *store.Session, req registry.Requirements, sel foodtable.Selection) string {
	var b strings.Builder
	b.WriteString("Here's what I have so far:\n\n")
	if sess.Card != nil {
		b.WriteString(sess.Card.Render())
		b.WriteString("\n")
	}
	b.WriteString(fmt.Sprintf("Daily targets: %.0f kcal, %.0fg protein, %.0fg fiber.\n", req.EnergyKcal, req.Macros.ProteinG, req.Macros.FiberG))
	if len(sel.Foods) > 0 {
		b.WriteString(fmt.Sprintf("I found %d suitable foods in %s.\n", len(sel.Foods), sel.Country))
	}
	b.WriteString("\nShall I generate the meal plan? (yes to continue, or correct anything above first)")
	return b.String()
}

func (o *Orchestrator) storedRequirements(sess *store.Session) (registry.Requirements, bool) {
	if r, ok := sess.Pipeline.Result(store.StageAdjustments); ok && r.Status == store.StageSuccess {
		var ap adjustmentsPayload
		if json.Unmarshal(r.Payload, &ap) == nil {
			return ap.Requirements, true
		}
	}
	if r, ok := sess.Pipeline.Result(store.StageBaseline); ok && r.Status == store.StageSuccess {
		var req registry.Requirements
		if json.Unmarshal(r.Payload, &req) == nil {
			return req, true
		}
	}
	return registry.Requirements{}, false
}

func (o *Orchestrator) storedSelection(sess *store.Session) (foodtable.Selection, bool) {
	r, ok := sess.Pipeline.Result(store.StageFoodSourcing)
	if !ok || r.Status != store.StageSuccess {
		return foodtable.Selection{}, false
	}
	var sel foodtable.Selection
	if json.Unmarshal(r.Payload, &sel) != nil {
		return foodtable.Selection{}, false
	}
	return sel, true
}

func (o *Orchestrator) storedCondition(sess *store.Session) registry.Condition {
	if r, ok := sess.Pipeline.Result(store.StageConditionNormalize); ok && r.Status == store.StageSuccess {
		var cp conditionPayload
		if json.Unmarshal(r.Payload, &cp) == nil {
			if cond, found := registry.ConditionByCode(cp.Code); found {
				return cond
			}
		}
	}
	return registry.Condition{}
}
