package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/internal/constant"
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/internal/dto"
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/internal/pkg/logger"
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/classifier"
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/events"
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/extraction"
	pkgnats "github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/nats"
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/store"
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/therapy/citation"
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/therapy/followup"
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/therapy/foodtable"
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/therapy/gatekeeper"
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/therapy/pipeline"
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/therapy/profile"
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/therapy/registry"
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/therapy/rejection"
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/therapy/session"
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/therapy/slot"
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/therapy/therapyerr"
)

type IChatService interface {
	Turn(ctx context.Context, userID string, req *dto.ChatTurnRequest) (*dto.ChatTurnResponse, error)
	Reset(ctx context.Context, userID string, req *dto.ResetSessionRequest) (*dto.ResetSessionResponse, error)
	State(ctx context.Context, userID, sessionID string) (*dto.SessionStateResponse, error)
}

type chatService struct {
	sessions     *session.Manager
	gate         *gatekeeper.Gatekeeper
	followups    *followup.Selector
	rejections   *rejection.Handler
	orchestrator *pipeline.Orchestrator

	classify classifier.Classifier
	extract  extraction.Extractor
	docs     extraction.DocumentExtractor

	audit  *pkgnats.Publisher
	logger logger.ILogger

	maxRetry int
}

func NewChatService(
	sessions *session.Manager,
	gate *gatekeeper.Gatekeeper,
	followups *followup.Selector,
	rejections *rejection.Handler,
	orchestrator *pipeline.Orchestrator,
	classify classifier.Classifier,
	extract extraction.Extractor,
	docs extraction.DocumentExtractor,
	audit *pkgnats.Publisher,
	sysLogger logger.ILogger,
	maxRetry int,
) IChatService {
	return &chatService{
		sessions:     sessions,
		gate:         gate,
		followups:    followups,
		rejections:   rejections,
		orchestrator: orchestrator,
		classify:     classify,
		extract:      extract,
		docs:         docs,
		audit:        audit,
		logger:       sysLogger,
		maxRetry:     maxRetry,
	}
}

// Turn processes one user message end to end: reset commands, entity merge,
// awaited-slot resolution, intent lock, gatekeeping, pipeline and follow-up
// selection, in that order.
func (s *chatService) Turn(ctx context.Context, userID string, req *dto.ChatTurnRequest) (*dto.ChatTurnResponse, error) {
	if req.SessionId == "" {
		req.SessionId = uuid.NewString()
	}
	sess, release := s.sessions.Acquire(req.SessionId, userID)
	defer release()

	text := strings.TrimSpace(req.Message)
	lowered := strings.ToLower(strings.Trim(text, ".!? "))

	// Reset commands bypass classification entirely.
	if lowered == constant.ResetCommandFull {
		s.sessions.Reset(sess)
		s.emit(ctx, events.NewSessionReset(sess.ID, "full"))
		return &dto.ChatTurnResponse{
			SessionId:           req.SessionId,
			MessageText:         constant.MsgSessionReset,
			ComposerPlaceholder: constant.PlaceholderDefault,
		}, nil
	}
	if lowered == constant.ResetCommandSlots {
		s.clearCollected(sess)
		s.emit(ctx, events.NewSessionReset(sess.ID, "slots"))
		return &dto.ChatTurnResponse{
			SessionId:           req.SessionId,
			MessageText:         constant.MsgSlotsCleared,
			ComposerPlaceholder: constant.PlaceholderDefault,
		}, nil
	}

	resp := &dto.ChatTurnResponse{SessionId: req.SessionId}

	// Uploaded evidence stands in for typed biomarker answers.
	if req.DocumentRef != "" && s.docs != nil {
		s.ingestDocument(ctx, sess, req.DocumentRef, resp)
	}

	cls, err := s.classify.Classify(ctx, text)
	if err != nil {
		s.logger.Error("CHAT", "classification failed", map[string]interface{}{"error": err.Error(), "session": sess.ID})
		cls = &classifier.Result{IntentLabel: store.IntentGeneral}
	}

	// Merge volunteered entities before any routing decision. Validation
	// failures surface as warnings; valid values from the same turn still
	// land.
	for _, merr := range s.sessions.Merge(sess, cls) {
		var verr *slot.ValidationError
		if errors.As(merr, &verr) {
			s.emit(ctx, events.NewValidationRejected(sess.ID, string(verr.Slot), verr.Reason))
			resp.Warnings = append(resp.Warnings, verr.Error())
		}
	}

	// Suspended at the confirmation gate: a yes resumes stage 7, a
	// correction recomputes, anything else repeats the summary.
	if sess.Pipeline.AwaitingConfirmation {
		return s.handleConfirmation(ctx, sess, cls, lowered, resp)
	}

	// Waiting for an onboarding strategy pick.
	if sess.AwaitingStrategy {
		if done := s.handleStrategyReply(ctx, sess, text, resp); done {
			return resp, nil
		}
	}

	// Waiting for a pick among the post-decline alternatives.
	if sess.AwaitingAlternative != nil {
		if done := s.handleAlternativeReply(ctx, sess, text, resp); done {
			return resp, nil
		}
	}

	// Exactly one outstanding question at a time: resolve the reply against
	// the awaited slot before anything else may ask a new one.
	if sess.AwaitingSlot != nil {
		if done := s.resolveAwaited(ctx, sess, text, resp); done {
			return resp, nil
		}
	}

	// Intent lock: the first classification of an episode routes every later
	// turn; follow-up answers never re-route the conversation.
	if sess.IntentLock == "" {
		sess.IntentLock = cls.IntentLabel
		sess.OriginalIntent = cls.IntentLabel
	}

	return s.route(ctx, sess, resp)
}

// route dispatches on the locked intent once slot resolution is done.
func (s *chatService) route(ctx context.Context, sess *store.Session, resp *dto.ChatTurnResponse) (*dto.ChatTurnResponse, error) {
	intent := sess.IntentLock

	// A downgraded therapy request upgrades back the moment the missing
	// critical data arrives.
	if intent == store.IntentRecommendation && sess.OriginalIntent == store.IntentTherapy {
		if retry := s.gate.EligibleForIntent(sess, store.IntentTherapy); retry.Allowed {
			sess.IntentLock = store.IntentTherapy
			intent = store.IntentTherapy
		}
	}

	decision := s.gate.EligibleForIntent(sess, intent)

	if decision.Onboarding && !sess.AwaitingStrategy && !sess.StrategyChosen {
		sess.AwaitingStrategy = true
		resp.MessageText = constant.MsgOnboardingIntro
		resp.QuickActionOptions = gatekeeper.Strategies
		resp.ComposerPlaceholder = constant.PlaceholderAwaiting
		s.finish(sess, resp)
		return resp, nil
	}

	// A chosen collection strategy keeps the interview going; the gate
	// re-decides once every slot is answered or declined.
	if intent == store.IntentTherapy && sess.StrategyChosen {
		if next, ok := s.followups.PickNext(sess, store.IntentTherapy); ok {
			s.ask(sess, next, resp)
			return resp, nil
		}
	}

	if decision.Downgraded {
		sess.IntentLock = decision.FinalIntent
		s.emit(ctx, events.NewIntentDowngraded(sess.ID, decision.OriginalIntent, decision.FinalIntent, decision.DowngradeReason))
		s.logger.Info("CHAT", "intent downgraded", map[string]interface{}{
			"session": sess.ID, "reason": decision.DowngradeReason,
		})
	}

	switch sess.IntentLock {
	case store.IntentTherapy:
		return s.runTherapy(ctx, sess, resp)
	case store.IntentComparison:
		return s.runComparison(sess, resp)
	default:
		return s.runGuidance(sess, decision, resp)
	}
}

// runTherapy collects the remaining slots one question per turn, then runs
// the staged pipeline.
func (s *chatService) runTherapy(ctx context.Context, sess *store.Session, resp *dto.ChatTurnResponse) (*dto.ChatTurnResponse, error) {
	if next, ok := s.followups.PickNext(sess, store.IntentTherapy); ok {
		s.ask(sess, next, resp)
		return resp, nil
	}

	s.ensureCard(sess)
	out, err := s.orchestrator.Run(sess)
	if err != nil {
		return s.handlePipelineError(ctx, sess, err, resp)
	}

	resp.MessageText = out.Message
	resp.PipelineStage = out.Stage
	resp.Partial = out.Partial
	resp.Warnings = append(resp.Warnings, out.Warnings...)
	if out.AwaitingConfirmation {
		resp.ComposerPlaceholder = constant.PlaceholderConfirming
	}
	s.finish(sess, resp)
	return resp, nil
}

func (s *chatService) handlePipelineError(ctx context.Context, sess *store.Session, err error, resp *dto.ChatTurnResponse) (*dto.ChatTurnResponse, error) {
	var unsupported *therapyerr.UnsupportedConditionError
	if errors.As(err, &unsupported) {
		s.emit(ctx, events.NewStageFailed(sess.ID, store.StageConditionNormalize, err.Error(), false))
		sess.IntentLock = store.IntentRecommendation
		s.emit(ctx, events.NewIntentDowngraded(sess.ID, store.IntentTherapy, store.IntentRecommendation, "unsupported_condition"))
		resp.MessageText = constant.MsgUnsupportedCondition + " I currently cover " + coveredConditions() + ".\n\n" + s.guidanceText(sess)
		s.finish(sess, resp)
		return resp, nil
	}

	var fatal *therapyerr.FatalStageError
	if errors.As(err, &fatal) {
		s.emit(ctx, events.NewStageFailed(sess.ID, fatal.Stage, fatal.Reason, true))
		s.logger.Error("CHAT", "pipeline fatal", map[string]interface{}{
			"session": sess.ID, "stage": fatal.Stage, "reason": fatal.Reason,
		})
		resp.MessageText = constant.MsgFatalBaseline
		s.finish(sess, resp)
		return resp, nil
	}
	return nil, err
}

// handleConfirmation processes the reply while suspended at stage 6.
func (s *chatService) handleConfirmation(ctx context.Context, sess *store.Session, cls *classifier.Result, lowered string, resp *dto.ChatTurnResponse) (*dto.ChatTurnResponse, error) {
	if isAffirmative(lowered) {
		out, err := s.orchestrator.Resume(sess)
		if err != nil {
			return s.handlePipelineError(ctx, sess, err, resp)
		}
		s.emit(ctx, events.NewPlanGenerated(sess.ID, out.PlanDays, out.Partial))
		resp.MessageText = out.Message
		resp.PipelineStage = out.Stage
		resp.Partial = out.Partial
		resp.Warnings = append(resp.Warnings, out.Warnings...)
		s.finish(sess, resp)
		return resp, nil
	}

	if hasEntities(cls) {
		// A correction invalidates computed stages; recompute from the
		// updated slots.
		sess.Pipeline = store.PipelineState{}
		sess.Card = nil
		return s.runTherapy(ctx, sess, resp)
	}

	resp.MessageText = "I still have the summary above ready. Reply 'yes' to generate the plan, or tell me what to correct."
	resp.ComposerPlaceholder = constant.PlaceholderConfirming
	s.finish(sess, resp)
	return resp, nil
}

// handleStrategyReply consumes the onboarding strategy pick. Returns true
// when the turn is fully answered.
func (s *chatService) handleStrategyReply(ctx context.Context, sess *store.Session, text string, resp *dto.ChatTurnResponse) bool {
	strategy := gatekeeper.NormalizeStrategyReply(text)
	switch strategy {
	case gatekeeper.StrategyUpload:
		sess.AwaitingStrategy = false
		sess.StrategyChosen = true
		resp.MessageText = "Please upload a recent lab report or prescription and I'll read the values from it."
		resp.ComposerPlaceholder = constant.PlaceholderAwaiting
		s.finish(sess, resp)
		return true
	case gatekeeper.StrategyStepByStep:
		sess.AwaitingStrategy = false
		sess.StrategyChosen = true
		if next, ok := s.followups.PickNext(sess, store.IntentTherapy); ok {
			s.ask(sess, next, resp)
			return true
		}
		return false
	case gatekeeper.StrategyGeneralInfo:
		sess.AwaitingStrategy = false
		sess.StrategyChosen = true
		sess.IntentLock = store.IntentRecommendation
		s.emit(ctx, events.NewIntentDowngraded(sess.ID, store.IntentTherapy, store.IntentRecommendation, "general_info_first"))
		resp.MessageText = s.guidanceText(sess) + "\n\n" + constant.MsgDowngradeNotice
		s.finish(sess, resp)
		return true
	}

	// Unrecognized pick: repeat the options once, then the entity merge from
	// this turn may have answered questions anyway.
	resp.MessageText = constant.MsgOnboardingIntro
	resp.QuickActionOptions = gatekeeper.Strategies
	resp.ComposerPlaceholder = constant.PlaceholderAwaiting
	s.finish(sess, resp)
	return true
}

// handleAlternativeReply consumes the pick among the choices offered after
// a critical slot was declined. Returns true when the turn is fully
// answered.
func (s *chatService) handleAlternativeReply(ctx context.Context, sess *store.Session, text string, resp *dto.ChatTurnResponse) bool {
	declined := *sess.AwaitingAlternative

	choice := rejection.NormalizeAlternativeReply(text)
	if choice == "" {
		// Not a pick. The entity merge may have supplied the declined data
		// after all; otherwise repeat the choices.
		if sess.Slot(declined).IsFilled() {
			sess.AwaitingAlternative = nil
			return false
		}
		resp.MessageText = rejection.AlternativesPrompt()
		resp.QuickActionOptions = []string{rejection.AltDowngrade, rejection.AltDefer, rejection.AltUpload}
		s.finish(sess, resp)
		return true
	}

	sess.AwaitingAlternative = nil
	switch choice {
	case rejection.AltDowngrade:
		sess.IntentLock = store.IntentRecommendation
		s.emit(ctx, events.NewIntentDowngraded(sess.ID, store.IntentTherapy, store.IntentRecommendation, "critical_slot_declined"))
		resp.MessageText = constant.MsgDowngradeNotice + "\n\n" + s.guidanceText(sess)
		s.finish(sess, resp)
		return true

	case rejection.AltDefer:
		// The therapy intent stays locked and the pipeline stays blocked; the
		// interview moves on to the remaining slots and the deferred data can
		// arrive in any later turn.
		if next, ok := s.followups.PickNext(sess, sess.IntentLock); ok {
			s.ask(sess, next, resp)
			resp.MessageText = "Okay, we can come back to that. " + resp.MessageText
			return true
		}
		resp.MessageText = fmt.Sprintf(
			"Okay. Share the %s whenever you have it and I'll pick the plan back up. Until then I can only offer general guidance.",
			strings.ReplaceAll(string(declined), "_", " "))
		s.finish(sess, resp)
		return true

	case rejection.AltUpload:
		resp.MessageText = "Please upload a recent lab report or prescription and I'll read the values from it."
		resp.ComposerPlaceholder = constant.PlaceholderAwaiting
		s.finish(sess, resp)
		return true
	}
	return false
}

// resolveAwaited applies the reply to the outstanding question. Returns
// true when the turn is fully answered by this step.
func (s *chatService) resolveAwaited(ctx context.Context, sess *store.Session, text string, resp *dto.ChatTurnResponse) bool {
	awaiting := *sess.AwaitingSlot

	// The broad merge may already have filled the awaited slot.
	if sess.Slot(awaiting).IsFilled() {
		sess.AwaitingSlot = nil
		sess.RetryCount = 0
		return false
	}

	res, err := s.extract.Resolve(ctx, text, awaiting)
	if err != nil {
		s.logger.Error("CHAT", "extraction failed", map[string]interface{}{"error": err.Error(), "session": sess.ID})
		res = &extraction.Result{Reason: extraction.ReasonUnparseable}
	}

	switch {
	case res.Found:
		if verr := slot.Validate(awaiting, res.Value); verr != nil {
			s.emit(ctx, events.NewValidationRejected(sess.ID, string(awaiting), verr.Error()))
			return s.retryAwaited(ctx, sess, awaiting, verr.Error(), resp)
		}
		s.storeAwaited(sess, awaiting, res.Value)
		sess.AwaitingSlot = nil
		sess.RetryCount = 0
		return false

	case res.Reason == extraction.ReasonUserRejected:
		outcome := s.rejections.Handle(sess, awaiting, "user_declined")
		s.emit(ctx, events.NewSlotDeclined(sess.ID, string(awaiting), string(outcome.Action)))
		if outcome.Action == rejection.ActionOfferAlternatives {
			declined := awaiting
			sess.AwaitingAlternative = &declined
			resp.MessageText = outcome.Message
			resp.QuickActionOptions = outcome.Alternatives
			s.finish(sess, resp)
			return true
		}
		resp.Warnings = append(resp.Warnings, outcome.Message)
		return false

	case res.Reason == extraction.ReasonOutOfRange:
		s.emit(ctx, events.NewValidationRejected(sess.ID, string(awaiting), "out_of_range"))
		return s.retryAwaited(ctx, sess, awaiting, fmt.Sprintf("%v looks out of range", res.Value), resp)

	default:
		return s.retryAwaited(ctx, sess, awaiting, "", resp)
	}
}

// retryAwaited re-asks the outstanding question up to the retry limit,
// then marks the slot declined so the interview keeps converging.
func (s *chatService) retryAwaited(ctx context.Context, sess *store.Session, awaiting slot.Name, detail string, resp *dto.ChatTurnResponse) bool {
	sess.RetryCount++
	if sess.RetryCount > s.maxRetry {
		outcome := s.rejections.Handle(sess, awaiting, "max_retries")
		s.emit(ctx, events.NewSlotDeclined(sess.ID, string(awaiting), string(outcome.Action)))
		resp.Warnings = append(resp.Warnings, constant.MsgMaxRetries)
		if outcome.Action == rejection.ActionOfferAlternatives {
			declined := awaiting
			sess.AwaitingAlternative = &declined
			resp.MessageText = outcome.Message
			resp.QuickActionOptions = outcome.Alternatives
			s.finish(sess, resp)
			return true
		}
		return false
	}

	msg := constant.MsgRetryGeneric
	if detail != "" {
		msg = fmt.Sprintf("Hmm, %s.", detail)
	}
	resp.MessageText = msg + " " + s.followups.Question(sess, awaiting)
	resp.AwaitingSlot = string(awaiting)
	resp.ComposerPlaceholder = constant.PlaceholderAwaiting
	s.finish(sess, resp)
	return true
}

// storeAwaited writes an extracted value, merging biomarker panels instead
// of replacing them.
func (s *chatService) storeAwaited(sess *store.Session, name slot.Name, value any) {
	if name == slot.Biomarkers {
		if readings, ok := value.(map[string]slot.BiomarkerReading); ok {
			if prior, found := sess.Slot(name).Readings(); found {
				for k, v := range readings {
					prior[k] = v
				}
				readings = prior
			}
			sess.SetSlot(name, slot.Of(readings))
			return
		}
	}
	if name == slot.Medications {
		if meds, ok := value.([]string); ok {
			value = registry.CanonicalMedications(meds)
		}
	}
	sess.SetSlot(name, slot.Of(value))
}

// ask phrases the next follow-up question and records the outstanding slot.
func (s *chatService) ask(sess *store.Session, next slot.Name, resp *dto.ChatTurnResponse) {
	sess.AwaitingSlot = &next
	sess.RetryCount = 0
	resp.MessageText = s.followups.Question(sess, next) + s.followups.Progress(sess, sess.IntentLock)
	resp.AwaitingSlot = string(next)
	resp.ComposerPlaceholder = constant.PlaceholderAwaiting
	s.finish(sess, resp)
}

// runComparison serves the food comparison intent once both foods are
// known.
func (s *chatService) runComparison(sess *store.Session, resp *dto.ChatTurnResponse) (*dto.ChatTurnResponse, error) {
	if next, ok := s.followups.PickNext(sess, store.IntentComparison); ok {
		s.ask(sess, next, resp)
		return resp, nil
	}

	nameA, _ := sess.Slot(slot.FoodA).Text()
	nameB, _ := sess.Slot(slot.FoodB).Text()
	country, _ := sess.Slot(slot.Country).Text()

	foodA, srcA, okA := foodtable.FindFood(nameA, country)
	foodB, srcB, okB := foodtable.FindFood(nameB, country)
	if !okA || !okB {
		missing := nameA
		if okA {
			missing = nameB
		}
		resp.MessageText = fmt.Sprintf("I couldn't find composition data for %q. Try a more common name for it.", missing)
		s.finish(sess, resp)
		return resp, nil
	}

	sess.Ledger().Add(srcA)
	sess.Ledger().Add(srcB)

	var b strings.Builder
	fmt.Fprintf(&b, "Per 100g comparison:\n\n")
	fmt.Fprintf(&b, "%-22s %10s %10s\n", "", foodA.Name, foodB.Name)
	fmt.Fprintf(&b, "%-22s %10.0f %10.0f\n", "Energy (kcal)", foodA.EnergyKcal, foodB.EnergyKcal)
	fmt.Fprintf(&b, "%-22s %10.1f %10.1f\n", "Protein (g)", foodA.ProteinG, foodB.ProteinG)
	fmt.Fprintf(&b, "%-22s %10.1f %10.1f\n", "Carbohydrate (g)", foodA.CarbohydrateG, foodB.CarbohydrateG)
	fmt.Fprintf(&b, "%-22s %10.1f %10.1f\n", "Fat (g)", foodA.FatG, foodB.FatG)
	fmt.Fprintf(&b, "%-22s %10.0f %10.0f\n", "Potassium (mg)", foodA.PotassiumMg, foodB.PotassiumMg)
	resp.MessageText = b.String()
	s.finish(sess, resp)
	return resp, nil
}

// runGuidance serves the recommendation and general intents.
func (s *chatService) runGuidance(sess *store.Session, decision gatekeeper.Decision, resp *dto.ChatTurnResponse) (*dto.ChatTurnResponse, error) {
	msg := s.guidanceText(sess)
	if decision.Downgraded {
		msg = constant.MsgDowngradeNotice + "\n\n" + msg
		if len(decision.BiomarkerHints) > 0 {
			msg += fmt.Sprintf("\n\nUseful lab values to share: %s.", strings.Join(decision.BiomarkerHints, ", "))
		}
	}
	resp.MessageText = msg
	s.finish(sess, resp)
	return resp, nil
}

// guidanceText builds condition-aware general guidance from the registry
// and the country food table, without the clinical pipeline.
func (s *chatService) guidanceText(sess *store.Session) string {
	diag, _ := sess.Slot(slot.Diagnosis).Text()
	cond, found := registry.NormalizeDiagnosis(diag)
	if !found {
		return "General guidance: build meals around whole staples, a protein source and vegetables; keep added sugar and salt low; and drink water over sweetened drinks."
	}

	country, _ := sess.Slot(slot.Country).Text()
	allergies, _ := sess.Slot(slot.Allergies).List()
	sel := foodtable.Select(country, allergies, cond.Meals)

	sess.Ledger().Add(cond.Source)
	if len(sel.Foods) > 0 {
		sess.Ledger().Add(foodtable.Source(country, sel.Fallback))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "General guidance for %s:\n", cond.DisplayName)
	for _, r := range cond.Rationale {
		fmt.Fprintf(&b, "- %s: %s\n", strings.ReplaceAll(r.Nutrient, "_", " "), r.Why)
	}
	if len(sel.Foods) > 0 {
		names := make([]string, 0, 6)
		for i, f := range sel.Foods {
			if i >= 6 {
				break
			}
			names = append(names, f.Name)
		}
		fmt.Fprintf(&b, "\nSuitable everyday foods: %s.", strings.Join(names, ", "))
	}
	return b.String()
}

// ingestDocument reads biomarker values out of uploaded evidence.
func (s *chatService) ingestDocument(ctx context.Context, sess *store.Session, ref string, resp *dto.ChatTurnResponse) {
	readings, err := s.docs.ExtractReadings(ctx, ref)
	if err != nil {
		s.logger.Warn("CHAT", "document extraction failed", map[string]interface{}{"error": err.Error(), "session": sess.ID})
		resp.Warnings = append(resp.Warnings, "I couldn't read values from the uploaded document.")
		return
	}

	valid := make(map[string]slot.BiomarkerReading, len(readings))
	for marker, r := range readings {
		if verr := slot.ValidateBiomarker(marker, r); verr != nil {
			s.emit(ctx, events.NewValidationRejected(sess.ID, string(slot.Biomarkers), verr.Error()))
			resp.Warnings = append(resp.Warnings, verr.Error())
			continue
		}
		valid[marker] = r
	}
	if len(valid) == 0 {
		return
	}
	if prior, ok := sess.Slot(slot.Biomarkers).Readings(); ok {
		for k, v := range valid {
			prior[k] = v
		}
		valid = prior
	}
	sess.SetSlot(slot.Biomarkers, slot.Of(valid))
	resp.Warnings = append(resp.Warnings, fmt.Sprintf("Read %d lab values from the uploaded document.", len(valid)))
}

// finish stamps the envelope with the shared session-derived fields.
func (s *chatService) finish(sess *store.Session, resp *dto.ChatTurnResponse) {
	resp.Intent = sess.IntentLock
	if sess.OriginalIntent != "" && sess.OriginalIntent != sess.IntentLock {
		resp.OriginalIntent = sess.OriginalIntent
	}
	if sess.Card != nil {
		resp.ProfileCard = sess.Card.Render()
	}
	if sess.Citations != nil && sess.Citations.Count() > 0 {
		resp.Citations = sess.Citations.Grouped()
	}
	if resp.PipelineStage == 0 {
		resp.PipelineStage = sess.Pipeline.CurrentStage
	}
	if resp.ComposerPlaceholder == "" {
		resp.ComposerPlaceholder = constant.PlaceholderDefault
	}
}

func (s *chatService) ensureCard(sess *store.Session) {
	if sess.Card != nil {
		return
	}
	info := profile.PatientInfo{}
	if v, ok := sess.Slot(slot.Age).Float(); ok {
		info.Age = &v
	}
	if v, ok := sess.Slot(slot.WeightKg).Float(); ok {
		info.WeightKg = &v
	}
	if v, ok := sess.Slot(slot.HeightCm).Float(); ok {
		info.HeightCm = &v
	}
	if v, ok := sess.BMI(); ok {
		info.BMI = &v
	}
	info.Sex, _ = sess.Slot(slot.Sex).Text()
	info.Diagnosis, _ = sess.Slot(slot.Diagnosis).Text()
	info.Country, _ = sess.Slot(slot.Country).Text()
	info.Medications, _ = sess.Slot(slot.Medications).List()
	if readings, ok := sess.Slot(slot.Biomarkers).Readings(); ok {
		markers := make([]string, 0, len(readings))
		for marker, r := range readings {
			markers = append(markers, fmt.Sprintf("%s %.1f%s", marker, r.Value, r.Unit))
		}
		sort.Strings(markers)
		info.Biomarkers = markers
	}
	sess.Card = profile.NewCard(info)
}

func (s *chatService) clearCollected(sess *store.Session) {
	sess.Slots = make(map[slot.Name]slot.Value)
	sess.Rejected = make(map[slot.Name]bool)
	sess.AwaitingSlot = nil
	sess.RetryCount = 0
	sess.AwaitingAlternative = nil
	sess.IntentLock = ""
	sess.OriginalIntent = ""
	sess.AwaitingStrategy = false
	sess.StrategyChosen = false
	sess.Pipeline = store.PipelineState{}
	sess.Card = nil
	sess.Citations = citation.NewLedger()
}

// Reset handles the explicit reset endpoint.
func (s *chatService) Reset(ctx context.Context, userID string, req *dto.ResetSessionRequest) (*dto.ResetSessionResponse, error) {
	sess, release := s.sessions.Acquire(req.SessionId, userID)
	defer release()

	scope := req.Scope
	if scope == "" {
		scope = "full"
	}
	if scope == "full" {
		s.sessions.Reset(sess)
	} else {
		s.clearCollected(sess)
	}
	s.emit(ctx, events.NewSessionReset(sess.ID, scope))
	return &dto.ResetSessionResponse{SessionId: req.SessionId, Scope: scope}, nil
}

// State returns a read-only session view.
func (s *chatService) State(ctx context.Context, userID, sessionID string) (*dto.SessionStateResponse, error) {
	sess, release := s.sessions.Acquire(sessionID, userID)
	defer release()

	res := &dto.SessionStateResponse{
		SessionId:     sess.ID,
		Intent:        sess.IntentLock,
		PipelineStage: sess.Pipeline.CurrentStage,
	}
	if sess.AwaitingSlot != nil {
		res.AwaitingSlot = string(*sess.AwaitingSlot)
	}
	if sess.Card != nil {
		res.ProfileCard = sess.Card.Render()
	}
	for name, rejected := range sess.Rejected {
		if rejected {
			res.RejectedSlots = append(res.RejectedSlots, string(name))
		}
	}
	return res, nil
}

func (s *chatService) emit(ctx context.Context, ev events.Event) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Publish(ctx, ev); err != nil {
		s.logger.Warn("CHAT", "audit publish failed", map[string]interface{}{
			"event": ev.EventType(), "error": err.Error(),
		})
	}
}

// coveredConditions words the registry's condition list for user-facing
// copy.
func coveredConditions() string {
	codes := registry.SupportedConditions()
	names := make([]string, 0, len(codes))
	for _, code := range codes {
		if c, ok := registry.ConditionByCode(code); ok {
			names = append(names, c.DisplayName)
		}
	}
	return strings.Join(names, ", ")
}

func isAffirmative(t string) bool {
	switch t {
	case "yes", "y", "yes please", "ok", "okay", "sure", "go ahead", "generate", "do it", "yep", "yeah":
		return true
	}
	return strings.HasPrefix(t, "yes")
}

func hasEntities(cls *classifier.Result) bool {
	if cls == nil {
		return false
	}
	return len(cls.Medications) > 0 || len(cls.Biomarkers) > 0 || len(cls.Allergies) > 0 ||
		cls.Age != nil || cls.WeightKg != nil || cls.HeightCm != nil ||
		cls.Sex != "" || cls.DiagnosisText != "" || len(cls.CountryMentions) > 0
}
