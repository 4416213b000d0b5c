package store

import (
	"encoding/json"
	"time"

	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/therapy/citation"
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/therapy/profile"
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/therapy/slot"
)

// Intent labels produced by the external classifier.
const (
	IntentTherapy        = "therapy"
	IntentRecommendation = "recommendation"
	IntentComparison     = "comparison"
	IntentPregnancy      = "pregnancy"
	IntentPediatric      = "pediatric"
	IntentGeriatrics     = "geriatrics"
	IntentGeneral        = "general"
)

// Pipeline stage indices. Stage 6 is a suspension point, not a computation.
const (
	StageConditionNormalize = 0
	StageBaseline           = 1
	StageAdjustments        = 2
	StageRationale          = 3
	StageInteractions       = 4
	StageFoodSourcing       = 5
	StageConfirmGate        = 6
	StageMealPlan           = 7
)

// StageStatus discriminates a per-stage outcome.
type StageStatus string

const (
	StageSuccess StageStatus = "success"
	StageFailure StageStatus = "failure"
)

// StageResult is the recorded outcome of one pipeline stage. Payloads are
// kept marshaled so the whole pipeline state round-trips losslessly.
type StageResult struct {
	Status    StageStatus      `json:"status"`
	Payload   json.RawMessage  `json:"payload,omitempty"`
	Citations []citation.Entry `json:"citations,omitempty"`
	Reason    string           `json:"reason,omitempty"`
}

// PipelineState tracks therapy computation progress across turns.
// CurrentStage only advances, never rewinds, except on full session reset.
type PipelineState struct {
	CurrentStage         int                 `json:"current_stage"`
	Results              map[int]StageResult `json:"results,omitempty"`
	Partial              bool                `json:"partial"`
	AwaitingConfirmation bool                `json:"awaiting_confirmation"`
}

func (p *PipelineState) Result(stage int) (StageResult, bool) {
	r, ok := p.Results[stage]
	return r, ok
}

func (p *PipelineState) Record(stage int, r StageResult) {
	if p.Results == nil {
		p.Results = make(map[int]StageResult)
	}
	p.Results[stage] = r
	if stage > p.CurrentStage {
		p.CurrentStage = stage
	}
}

// Session is the active per-conversation state in memory. All mutation goes
// through the session manager, which serializes turns behind a per-session
// lock.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`

	// Collected data. Rejected is kept as an explicit set in addition to the
	// per-slot union so episode-scoped re-collection policy stays cheap to
	// evaluate.
	Slots    map[slot.Name]slot.Value `json:"slots"`
	Rejected map[slot.Name]bool       `json:"rejected,omitempty"`

	// THE OUTSTANDING QUESTION (at most one slot awaited at a time)
	AwaitingSlot *slot.Name `json:"awaiting_slot,omitempty"`
	RetryCount   int        `json:"retry_count,omitempty"`

	// AwaitingAlternative holds the declined critical slot while the three
	// follow-on choices (guidance, defer, upload) are on offer.
	AwaitingAlternative *slot.Name `json:"awaiting_alternative,omitempty"`

	// Intent lock: the first classified intent of an episode; follow-up
	// answers never re-route the conversation.
	IntentLock     string `json:"intent_lock,omitempty"`
	OriginalIntent string `json:"original_intent,omitempty"` // pre-downgrade, kept for audit

	// Onboarding: AwaitingStrategy is set while the three collection
	// strategies are on offer; StrategyChosen once the user picked one, so
	// the menu is never re-offered mid-interview.
	AwaitingStrategy bool `json:"awaiting_strategy,omitempty"`
	StrategyChosen   bool `json:"strategy_chosen,omitempty"`

	Pipeline  PipelineState    `json:"pipeline"`
	Card      *profile.Card    `json:"card,omitempty"`
	Citations *citation.Ledger `json:"citations,omitempty"`
}

// NewSession creates a fresh session for its first turn.
func NewSession(id, userID string) *Session {
	return &Session{
		ID:        id,
		UserID:    userID,
		CreatedAt: time.Now(),
		Slots:     make(map[slot.Name]slot.Value),
		Rejected:  make(map[slot.Name]bool),
		Citations: citation.NewLedger(),
	}
}

// Slot returns the union value for a slot, Missing when never set.
func (s *Session) Slot(name slot.Name) slot.Value {
	if v, ok := s.Slots[name]; ok {
		return v
	}
	return slot.MissingValue()
}

// SetSlot stores a filled value and clears any earlier rejection of the
// same slot (volunteering data overrides a prior decline).
func (s *Session) SetSlot(name slot.Name, v slot.Value) {
	if s.Slots == nil {
		s.Slots = make(map[slot.Name]slot.Value)
	}
	s.Slots[name] = v
	if v.IsFilled() && !v.Defaulted {
		delete(s.Rejected, name)
	}
	if v.IsRejected() {
		if s.Rejected == nil {
			s.Rejected = make(map[slot.Name]bool)
		}
		s.Rejected[name] = true
	}
}

// Ledger returns the citation ledger, creating it lazily after restore.
func (s *Session) Ledger() *citation.Ledger {
	if s.Citations == nil {
		s.Citations = citation.NewLedger()
	}
	return s.Citations
}

// BMI derives body mass index when height and weight are present.
func (s *Session) BMI() (float64, bool) {
	h, okH := s.Slot(slot.HeightCm).Float()
	w, okW := s.Slot(slot.WeightKg).Float()
	if !okH || !okW || h <= 0 {
		return 0, false
	}
	m := h / 100
	return w / (m * m), true
}

// Snapshot is the flat persistable record of a session: slot mapping,
// rejected set, conversation markers, pipeline state and accumulated
// citations, fully restorable.
type Snapshot struct {
	ID        string                   `json:"id"`
	UserID    string                   `json:"user_id"`
	CreatedAt time.Time                `json:"created_at"`
	Slots       map[slot.Name]slot.Value `json:"slots"`
	Rejected    []slot.Name              `json:"rejected,omitempty"`
	Awaiting    *slot.Name               `json:"awaiting_slot,omitempty"`
	RetryCount  int                      `json:"retry_count,omitempty"`
	Alternative *slot.Name               `json:"awaiting_alternative,omitempty"`
	Intent      string                   `json:"intent_lock,omitempty"`
	Original    string                   `json:"original_intent,omitempty"`
	Onboarding  bool                     `json:"awaiting_strategy,omitempty"`
	Strategy    bool                     `json:"strategy_chosen,omitempty"`
	Pipeline    PipelineState            `json:"pipeline"`
	Card        *profile.Card            `json:"card,omitempty"`
	Citations   []citation.Entry         `json:"citations,omitempty"`
}

// Snapshot exports the session as a flat structured record.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		ID:          s.ID,
		UserID:      s.UserID,
		CreatedAt:   s.CreatedAt,
		Slots:       s.Slots,
		Awaiting:    s.AwaitingSlot,
		RetryCount:  s.RetryCount,
		Alternative: s.AwaitingAlternative,
		Intent:      s.IntentLock,
		Original:    s.OriginalIntent,
		Onboarding:  s.AwaitingStrategy,
		Strategy:    s.StrategyChosen,
		Pipeline:    s.Pipeline,
		Card:        s.Card,
	}
	for name, rejected := range s.Rejected {
		if rejected {
			snap.Rejected = append(snap.Rejected, name)
		}
	}
	if s.Citations != nil {
		snap.Citations = s.Citations.Entries()
	}
	return snap
}

// Restore rebuilds a session from a snapshot.
func Restore(snap Snapshot) *Session {
	s := &Session{
		ID:                  snap.ID,
		UserID:              snap.UserID,
		CreatedAt:           snap.CreatedAt,
		Slots:               snap.Slots,
		Rejected:            make(map[slot.Name]bool),
		AwaitingSlot:        snap.Awaiting,
		RetryCount:          snap.RetryCount,
		AwaitingAlternative: snap.Alternative,
		IntentLock:          snap.Intent,
		OriginalIntent:      snap.Original,
		AwaitingStrategy:    snap.Onboarding,
		StrategyChosen:      snap.Strategy,
		Pipeline:            snap.Pipeline,
		Card:                snap.Card,
		Citations:           citation.NewLedger(),
	}
	if s.Slots == nil {
		s.Slots = make(map[slot.Name]slot.Value)
	}
	for _, name := range snap.Rejected {
		s.Rejected[name] = true
	}
	s.Citations.AddAll(snap.Citations)
	return s
}
