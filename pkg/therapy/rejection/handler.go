package rejection

import (
	"fmt"
	"log"
	"strings"

	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/store"
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/therapy/slot"
)

// Action describes how the conversation continues after a decline.
type Action string

const (
	// ActionOfferAlternatives: a critical slot was declined; the user picks
	// between downgrade, defer, or supplying evidence via upload.
	ActionOfferAlternatives Action = "offer_alternatives"
	// ActionDefaulted: a contextual slot was declined and a documented
	// population default was substituted.
	ActionDefaulted Action = "defaulted"
	// ActionContinueEmpty: the allergy slot was declined; we continue with
	// an empty exclusion set.
	ActionContinueEmpty Action = "continue_empty"
)

// Alternatives offered for a declined critical slot, in presentation order.
const (
	AltDowngrade = "general_guidance"
	AltDefer     = "answer_later"
	AltUpload    = "upload_evidence"
)

// Outcome is the result of processing a decline for the awaited slot.
type Outcome struct {
	Action       Action
	Slot         slot.Name
	Alternatives []string
	Default      any
	Message      string
}

// Handler manages user declines. Marking the slot Rejected removes it from
// the missing-slot computation for the rest of the episode, so the same
// question is never asked twice.
type Handler struct {
	logger *log.Logger
}

func NewHandler(logger *log.Logger) *Handler {
	return &Handler{logger: logger}
}

// Handle marks the awaited slot Rejected and decides how to continue based
// on the slot's category.
func (h *Handler) Handle(sess *store.Session, name slot.Name, reason string) Outcome {
	if reason == "" {
		reason = "user_declined"
	}
	sess.SetSlot(name, slot.Rejected(reason))
	sess.AwaitingSlot = nil
	sess.RetryCount = 0
	h.logger.Printf("[REJECT] slot %s declined (%s)", name, reason)

	if name == slot.Allergies {
		sess.SetSlot(name, slot.DefaultOf([]string{}))
		sess.Rejected[name] = true
		return Outcome{
			Action:  ActionContinueEmpty,
			Slot:    name,
			Default: []string{},
			Message: "No problem - I'll assume no food allergies. Tell me any time if that changes.",
		}
	}

	if slot.CategoryOf(name) == slot.Critical {
		return Outcome{
			Action:       ActionOfferAlternatives,
			Slot:         name,
			Alternatives: []string{AltDowngrade, AltDefer, AltUpload},
			Message: fmt.Sprintf(
				"Understood - I won't ask for %s again. Without it I can't compute a full therapy plan. %s",
				humanize(name), AlternativesPrompt()),
		}
	}

	// Contextual: substitute the documented population default and annotate
	// the final output as less personalized.
	def, ok := slot.PopulationDefault(name)
	if !ok {
		return Outcome{
			Action:  ActionContinueEmpty,
			Slot:    name,
			Message: fmt.Sprintf("Okay, skipping %s.", humanize(name)),
		}
	}
	sess.SetSlot(name, slot.DefaultOf(def))
	sess.Rejected[name] = true
	return Outcome{
		Action:  ActionDefaulted,
		Slot:    name,
		Default: def,
		Message: fmt.Sprintf("Okay - I'll use a typical value for %s (%v). The result will be a bit less personalized.", humanize(name), def),
	}
}

func humanize(name slot.Name) string {
	return strings.ReplaceAll(string(name), "_", " ")
}

// AlternativesPrompt words the follow-on choices for a declined critical
// slot, numbered to match the Alternatives order.
func AlternativesPrompt() string {
	return "You can:\n" +
		"1. Continue with general guidance instead\n" +
		"2. Answer later (I'll keep what we have)\n" +
		"3. Upload a lab report or prescription and I'll read it"
}

// NormalizeAlternativeReply maps short replies like "2", "later" or "upload"
// to a canonical alternative, or "" when unrecognizable.
func NormalizeAlternativeReply(text string) string {
	t := strings.ToLower(strings.TrimSpace(text))
	t = strings.Trim(t, ".!?")
	t = strings.ReplaceAll(t, "_", " ")
	switch t {
	case "1", "general", "guidance", "general guidance":
		return AltDowngrade
	case "2", "later", "answer later", "not now":
		return AltDefer
	case "3", "upload", "upload evidence":
		return AltUpload
	}
	switch {
	case strings.Contains(t, "guidance") || strings.Contains(t, "general"):
		return AltDowngrade
	case strings.Contains(t, "later") || strings.Contains(t, "defer"):
		return AltDefer
	case strings.Contains(t, "upload") || strings.Contains(t, "report") || strings.Contains(t, "prescription"):
		return AltUpload
	}
	return ""
}
