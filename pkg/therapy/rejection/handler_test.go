package rejection

import (
	"io"
	"log"
	"testing"

	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/store"
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/therapy/slot"
)

func testHandler() *Handler {
	return NewHandler(log.New(io.Discard, "", 0))
}

func TestCriticalDeclineOffersAlternatives(t *testing.T) {
	sess := store.NewSession("s1", "u1")
	awaiting := slot.Medications
	sess.AwaitingSlot = &awaiting
	sess.RetryCount = 1

	out := testHandler().Handle(sess, slot.Medications, "user_declined")

	if out.Action != ActionOfferAlternatives {
		t.Fatalf("Action = %v, want offer_alternatives", out.Action)
	}
	if len(out.Alternatives) != 3 {
		t.Errorf("Alternatives = %v, want 3 options", out.Alternatives)
	}
	if !sess.Rejected[slot.Medications] {
		t.Error("slot not marked rejected")
	}
	if sess.AwaitingSlot != nil || sess.RetryCount != 0 {
		t.Error("outstanding question state not cleared")
	}
}

func TestNormalizeAlternativeReply(t *testing.T) {
	tests := []struct {
		reply string
		want  string
	}{
		{"1", AltDowngrade},
		{"general guidance please", AltDowngrade},
		{"2", AltDefer},
		{"I'll answer later", AltDefer},
		{"3", AltUpload},
		{"let me upload my lab report", AltUpload},
		{"what do you mean", ""},
	}
	for _, tt := range tests {
		if got := NormalizeAlternativeReply(tt.reply); got != tt.want {
			t.Errorf("NormalizeAlternativeReply(%q) = %q, want %q", tt.reply, got, tt.want)
		}
	}
}

func TestContextualDeclineSubstitutesDefault(t *testing.T) {
	sess := store.NewSession("s1", "u1")
	out := testHandler().Handle(sess, slot.Country, "user_declined")

	if out.Action != ActionDefaulted {
		t.Fatalf("Action = %v, want defaulted", out.Action)
	}
	if out.Default != "Nigeria" {
		t.Errorf("Default = %v, want Nigeria", out.Default)
	}
	v := sess.Slot(slot.Country)
	if !v.IsFilled() || !v.Defaulted {
		t.Error("default not stored as a defaulted fill")
	}
	// Still on record as rejected so it is never asked again.
	if !sess.Rejected[slot.Country] {
		t.Error("rejection record lost after defaulting")
	}
}

func TestAllergyDeclineContinuesEmpty(t *testing.T) {
	sess := store.NewSession("s1", "u1")
	out := testHandler().Handle(sess, slot.Allergies, "")

	if out.Action != ActionContinueEmpty {
		t.Fatalf("Action = %v, want continue_empty", out.Action)
	}
	list, ok := sess.Slot(slot.Allergies).List()
	if !ok || len(list) != 0 {
		t.Errorf("allergies = %v, want empty list", list)
	}
}
