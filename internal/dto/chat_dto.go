package dto

import (
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/therapy/citation"
)

// ChatTurnRequest is one user turn. An empty SessionId starts a new
// session; the assigned id comes back in the response. DocumentRef carries
// an uploaded evidence file reference when the user chose the upload path.
type ChatTurnRequest struct {
	SessionId   string `json:"session_id,omitempty"`
	Message     string `json:"message" validate:"required,max=4000"`
	DocumentRef string `json:"document_ref,omitempty"`
}

// ChatTurnResponse is the full turn envelope. At most one of AwaitingSlot
// and QuickActionOptions is populated; both empty means the turn carried a
// complete answer.
type ChatTurnResponse struct {
	SessionId   string `json:"session_id"`
	MessageText string `json:"message_text"`

	Intent         string `json:"intent"`
	OriginalIntent string `json:"original_intent,omitempty"` // differs from Intent after a downgrade

	AwaitingSlot       string   `json:"awaiting_slot,omitempty"`
	QuickActionOptions []string `json:"quick_action_options,omitempty"`

	ProfileCard string                                   `json:"profile_card,omitempty"`
	Citations   map[citation.SourceType][]citation.Entry `json:"citations,omitempty"`

	PipelineStage int      `json:"pipeline_stage,omitempty"`
	Partial       bool     `json:"partial,omitempty"`
	Warnings      []string `json:"warnings,omitempty"`

	ComposerPlaceholder string `json:"composer_placeholder,omitempty"`
}

type ResetSessionRequest struct {
	SessionId string `json:"session_id" validate:"required"`
	// Scope is "full" (drop everything) or "slots" (keep the session, clear
	// collected data).
	Scope string `json:"scope,omitempty" validate:"omitempty,oneof=full slots"`
}

type ResetSessionResponse struct {
	SessionId string `json:"session_id"`
	Scope     string `json:"scope"`
}

// SessionStateResponse exposes a read-only session view for debugging and
// client reconnects.
type SessionStateResponse struct {
	SessionId     string   `json:"session_id"`
	Intent        string   `json:"intent,omitempty"`
	AwaitingSlot  string   `json:"awaiting_slot,omitempty"`
	PipelineStage int      `json:"pipeline_stage"`
	ProfileCard   string   `json:"profile_card,omitempty"`
	RejectedSlots []string `json:"rejected_slots,omitempty"`
}
