package events

import "time"

// Event defines the contract for all audit events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "SESSION_RESET").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent helps embed common logic if needed,
// strictly creating valid implementations is preferred though.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// Audit event codes emitted by the conversation flow.
const (
	TypeIntentDowngraded   = "INTENT_DOWNGRADED"
	TypeValidationRejected = "VALIDATION_REJECTED"
	TypeSlotDeclined       = "SLOT_DECLINED"
	TypeStageFailed        = "STAGE_FAILED"
	TypeSessionReset       = "SESSION_RESET"
	TypePlanGenerated      = "PLAN_GENERATED"
)

// NewIntentDowngraded records a therapy request served as a recommendation.
func NewIntentDowngraded(sessionID, original, final, reason string) Event {
	return BaseEvent{
		Type: TypeIntentDowngraded,
		Data: map[string]interface{}{
			"session_id":      sessionID,
			"original_intent": original,
			"final_intent":    final,
			"reason":          reason,
		},
		OccurredAt: time.Now(),
	}
}

// NewValidationRejected records an out-of-range or unparseable user value.
func NewValidationRejected(sessionID, slot, reason string) Event {
	return BaseEvent{
		Type: TypeValidationRejected,
		Data: map[string]interface{}{
			"session_id": sessionID,
			"slot":       slot,
			"reason":     reason,
		},
		OccurredAt: time.Now(),
	}
}

// NewSlotDeclined records a user declining to provide a slot.
func NewSlotDeclined(sessionID, slot, action string) Event {
	return BaseEvent{
		Type: TypeSlotDeclined,
		Data: map[string]interface{}{
			"session_id": sessionID,
			"slot":       slot,
			"action":     action,
		},
		OccurredAt: time.Now(),
	}
}

// NewStageFailed records a pipeline stage degrading or aborting.
func NewStageFailed(sessionID string, stage int, reason string, fatal bool) Event {
	return BaseEvent{
		Type: TypeStageFailed,
		Data: map[string]interface{}{
			"session_id": sessionID,
			"stage":      stage,
			"reason":     reason,
			"fatal":      fatal,
		},
		OccurredAt: time.Now(),
	}
}

// NewSessionReset records an explicit user-initiated reset.
func NewSessionReset(sessionID, scope string) Event {
	return BaseEvent{
		Type: TypeSessionReset,
		Data: map[string]interface{}{
			"session_id": sessionID,
			"scope":      scope,
		},
		OccurredAt: time.Now(),
	}
}

// NewPlanGenerated records a completed meal plan synthesis.
func NewPlanGenerated(sessionID string, days int, partial bool) Event {
	return BaseEvent{
		Type: TypePlanGenerated,
		Data: map[string]interface{}{
			"session_id": sessionID,
			"days":       days,
			"partial":    partial,
		},
		OccurredAt: time.Now(),
	}
}
