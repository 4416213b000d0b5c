package service

import (
	"context"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/internal/constant"
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/internal/dto"
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/internal/repository/memory"
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/classifier"
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/extraction"
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/store"
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/therapy/followup"
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/therapy/gatekeeper"
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/therapy/pipeline"
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/therapy/rejection"
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/therapy/session"
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/therapy/slot"
)

type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }

func newTestService(t *testing.T) (IChatService, *session.Manager) {
	t.Helper()
	std := log.New(io.Discard, "", 0)
	mgr := session.NewManager(memory.NewSessionRepository(time.Hour), std)
	svc := NewChatService(
		mgr,
		gatekeeper.NewGatekeeper(std),
		followup.NewSelector(std),
		rejection.NewHandler(std),
		pipeline.NewOrchestrator(std, 3),
		classifier.NewRuleBased(std),
		extraction.NewTextExtractor(std),
		nil, // no document extraction backend under test
		nil, // audit bus optional
		nopLogger{},
		2,
	)
	return svc, mgr
}

func turn(t *testing.T, svc IChatService, sessionID, message string) *dto.ChatTurnResponse {
	t.Helper()
	res, err := svc.Turn(context.Background(), "u1", &dto.ChatTurnRequest{SessionId: sessionID, Message: message})
	assert.NoError(t, err)
	return res
}

func TestTurnTherapyEndToEnd(t *testing.T) {
	svc, _ := newTestService(t)

	res := turn(t, svc, "s1",
		"I need diet therapy to manage chronic kidney disease. I am 55 years old and weigh 80kg, height is 175 cm, I take enalapril and my egfr is 42")
	assert.Equal(t, store.IntentTherapy, res.Intent)
	assert.Equal(t, string(slot.Sex), res.AwaitingSlot)

	res = turn(t, svc, "s1", "male")
	assert.Equal(t, string(slot.Country), res.AwaitingSlot)

	res = turn(t, svc, "s1", "Nigeria")
	assert.Equal(t, string(slot.Allergies), res.AwaitingSlot)

	res = turn(t, svc, "s1", "none")
	assert.Equal(t, store.StageConfirmGate, res.PipelineStage)
	assert.Contains(t, res.MessageText, "Shall I generate the meal plan?")
	assert.NotEmpty(t, res.ProfileCard)
	assert.Equal(t, constant.PlaceholderConfirming, res.ComposerPlaceholder)

	res = turn(t, svc, "s1", "yes")
	assert.Equal(t, store.StageMealPlan, res.PipelineStage)
	assert.Contains(t, res.MessageText, "Day 1")
	assert.Contains(t, res.MessageText, "Day 3")
	assert.NotEmpty(t, res.Citations)
}

func TestTurnDowngradeAndReUpgrade(t *testing.T) {
	svc, _ := newTestService(t)

	res := turn(t, svc, "s1",
		"I need diet therapy to manage type 2 diabetes, I am 45 years old, weigh 90kg and my hba1c is 7.9")
	assert.Equal(t, store.IntentRecommendation, res.Intent)
	assert.Equal(t, store.IntentTherapy, res.OriginalIntent)
	assert.Contains(t, res.MessageText, constant.MsgDowngradeNotice)
	assert.Contains(t, res.MessageText, "HbA1c")

	// The missing medications arrive; the episode upgrades back to therapy
	// and the interview continues.
	res = turn(t, svc, "s1", "I take metformin")
	assert.Equal(t, store.IntentTherapy, res.Intent)
	assert.NotEmpty(t, res.AwaitingSlot)
}

func TestTurnOnboardingStepByStep(t *testing.T) {
	svc, _ := newTestService(t)

	res := turn(t, svc, "s1", "I need a diet therapy plan")
	assert.Equal(t, constant.MsgOnboardingIntro, res.MessageText)
	assert.Len(t, res.QuickActionOptions, 3)

	res = turn(t, svc, "s1", "2")
	assert.Equal(t, string(slot.Diagnosis), res.AwaitingSlot)

	// Answering the question must continue the interview, not re-offer the
	// strategy menu.
	res = turn(t, svc, "s1", "chronic kidney disease")
	assert.Equal(t, string(slot.Age), res.AwaitingSlot)
	assert.Empty(t, res.QuickActionOptions)
}

func TestTurnDeclinedCriticalSlotOffersAlternatives(t *testing.T) {
	svc, mgr := newTestService(t)

	sess, release := mgr.Acquire("s1", "u1")
	sess.IntentLock = store.IntentTherapy
	sess.OriginalIntent = store.IntentTherapy
	awaiting := slot.Medications
	sess.AwaitingSlot = &awaiting
	release()

	res := turn(t, svc, "s1", "I'd rather not share that")
	assert.Len(t, res.QuickActionOptions, 3)
	assert.NotEmpty(t, res.MessageText)

	sess, release = mgr.Acquire("s1", "u1")
	defer release()
	assert.True(t, sess.Rejected[slot.Medications])
	assert.Nil(t, sess.AwaitingSlot)
}

// declineMedications drives a session to the point where the critical
// medications slot was declined and the three alternatives are on offer.
func declineMedications(t *testing.T, svc IChatService, mgr *session.Manager) {
	t.Helper()
	sess, release := mgr.Acquire("s1", "u1")
	sess.IntentLock = store.IntentTherapy
	sess.OriginalIntent = store.IntentTherapy
	awaiting := slot.Medications
	sess.AwaitingSlot = &awaiting
	release()
	turn(t, svc, "s1", "I'd rather not share that")
}

func TestTurnAlternativePickGeneralGuidance(t *testing.T) {
	svc, mgr := newTestService(t)
	declineMedications(t, svc, mgr)

	res := turn(t, svc, "s1", "1")
	assert.Equal(t, store.IntentRecommendation, res.Intent)
	assert.Contains(t, res.MessageText, constant.MsgDowngradeNotice)

	sess, release := mgr.Acquire("s1", "u1")
	defer release()
	assert.Nil(t, sess.AwaitingAlternative)
}

func TestTurnAlternativePickAnswerLater(t *testing.T) {
	svc, mgr := newTestService(t)
	declineMedications(t, svc, mgr)

	res := turn(t, svc, "s1", "answer later")
	assert.Equal(t, store.IntentTherapy, res.Intent)
	assert.Contains(t, res.MessageText, "come back to that")
	assert.NotEmpty(t, res.AwaitingSlot)

	// The declined slot stays declined; the interview moves on without it.
	sess, release := mgr.Acquire("s1", "u1")
	defer release()
	assert.True(t, sess.Rejected[slot.Medications])
	assert.Nil(t, sess.AwaitingAlternative)
	assert.NotEqual(t, string(slot.Medications), res.AwaitingSlot)
}

func TestTurnAlternativePickUpload(t *testing.T) {
	svc, mgr := newTestService(t)
	declineMedications(t, svc, mgr)

	res := turn(t, svc, "s1", "3")
	assert.Equal(t, store.IntentTherapy, res.Intent)
	assert.Contains(t, res.MessageText, "upload")
	assert.Equal(t, constant.PlaceholderAwaiting, res.ComposerPlaceholder)
}

func TestTurnAlternativeUnrecognizedReplyReoffers(t *testing.T) {
	svc, mgr := newTestService(t)
	declineMedications(t, svc, mgr)

	res := turn(t, svc, "s1", "what do you mean")
	assert.Len(t, res.QuickActionOptions, 3)
	assert.Contains(t, res.MessageText, "general guidance")

	sess, release := mgr.Acquire("s1", "u1")
	defer release()
	assert.NotNil(t, sess.AwaitingAlternative)
}

func TestTurnRetryThenMoveOn(t *testing.T) {
	svc, mgr := newTestService(t)

	sess, release := mgr.Acquire("s1", "u1")
	sess.IntentLock = store.IntentTherapy
	sess.OriginalIntent = store.IntentTherapy
	awaiting := slot.Age
	sess.AwaitingSlot = &awaiting
	release()

	// Two garbled replies re-ask the same question.
	res := turn(t, svc, "s1", "mumble")
	assert.Equal(t, string(slot.Age), res.AwaitingSlot)
	res = turn(t, svc, "s1", "mumble again")
	assert.Equal(t, string(slot.Age), res.AwaitingSlot)

	// The third failure moves the interview on.
	res = turn(t, svc, "s1", "still mumbling")
	assert.Contains(t, res.Warnings, constant.MsgMaxRetries)
}

func TestTurnUnsupportedConditionDowngrades(t *testing.T) {
	svc, mgr := newTestService(t)

	sess, release := mgr.Acquire("s1", "u1")
	sess.IntentLock = store.IntentTherapy
	sess.OriginalIntent = store.IntentTherapy
	sess.SetSlot(slot.Diagnosis, slot.Of("gout"))
	sess.SetSlot(slot.Age, slot.Of(50.0))
	sess.SetSlot(slot.Sex, slot.Of("male"))
	sess.SetSlot(slot.WeightKg, slot.Of(85.0))
	sess.SetSlot(slot.HeightCm, slot.Of(178.0))
	sess.SetSlot(slot.Medications, slot.Of([]string{"allopurinol"}))
	sess.SetSlot(slot.Biomarkers, slot.Of(map[string]slot.BiomarkerReading{"creatinine": {Value: 1.0}}))
	sess.SetSlot(slot.Country, slot.Of("Canada"))
	sess.SetSlot(slot.Allergies, slot.Of([]string{}))
	release()

	res := turn(t, svc, "s1", "go ahead with the plan")
	assert.Equal(t, store.IntentRecommendation, res.Intent)
	assert.Contains(t, res.MessageText, "I don't have clinical guidelines for that condition yet")
}

func TestTurnComparisonFlow(t *testing.T) {
	svc, _ := newTestService(t)

	res := turn(t, svc, "s1", "compare ugali vs rice")
	assert.Equal(t, store.IntentComparison, res.Intent)
	assert.Equal(t, string(slot.FoodState), res.AwaitingSlot)

	res = turn(t, svc, "s1", "boiled")
	assert.Equal(t, string(slot.Basis), res.AwaitingSlot)

	res = turn(t, svc, "s1", "per 100g")
	assert.Equal(t, string(slot.Country), res.AwaitingSlot)

	res = turn(t, svc, "s1", "Kenya")
	assert.Contains(t, res.MessageText, "Per 100g comparison")
	assert.Contains(t, res.MessageText, "Energy (kcal)")
	assert.NotEmpty(t, res.Citations)
}

func TestTurnResetCommands(t *testing.T) {
	svc, mgr := newTestService(t)

	turn(t, svc, "s1", "I need diet therapy for ckd, I am 40 years old")

	res := turn(t, svc, "s1", "start over")
	assert.Equal(t, constant.MsgSessionReset, res.MessageText)

	sess, release := mgr.Acquire("s1", "u1")
	defer release()
	assert.False(t, sess.Slot(slot.Age).IsFilled())
	assert.Empty(t, sess.IntentLock)
}

func TestResetSlotsScopeKeepsSession(t *testing.T) {
	svc, mgr := newTestService(t)

	turn(t, svc, "s1", "I need diet therapy for ckd, I am 40 years old")

	res, err := svc.Reset(context.Background(), "u1", &dto.ResetSessionRequest{SessionId: "s1", Scope: "slots"})
	assert.NoError(t, err)
	assert.Equal(t, "slots", res.Scope)

	sess, release := mgr.Acquire("s1", "u1")
	defer release()
	assert.False(t, sess.Slot(slot.Age).IsFilled())
	assert.Empty(t, sess.IntentLock)
}

func TestState(t *testing.T) {
	svc, _ := newTestService(t)

	turn(t, svc, "s1", "I need a diet therapy plan")
	turn(t, svc, "s1", "2")

	res, err := svc.State(context.Background(), "u1", "s1")
	assert.NoError(t, err)
	assert.Equal(t, "s1", res.SessionId)
	assert.Equal(t, string(slot.Diagnosis), res.AwaitingSlot)
	assert.Equal(t, store.IntentTherapy, res.Intent)
}

func TestTurnGeneralIntent(t *testing.T) {
	svc, _ := newTestService(t)

	res := turn(t, svc, "s1", "hello there")
	assert.Equal(t, store.IntentGeneral, res.Intent)
	assert.True(t, strings.Contains(res.MessageText, "General guidance"))
}
