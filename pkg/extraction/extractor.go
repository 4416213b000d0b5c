package extraction

import (
	"context"

	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/therapy/slot"
)

// Reason explains why a targeted extraction produced no usable value.
type Reason string

const (
	ReasonUserRejected Reason = "user_rejected"
	ReasonOutOfRange   Reason = "out_of_range"
	ReasonUnparseable  Reason = "unparseable"
)

// Result is the outcome of resolving raw text against the currently awaited
// slot.
type Result struct {
	Found  bool   `json:"found"`
	Value  any    `json:"value,omitempty"`
	Unit   string `json:"unit,omitempty"`
	Reason Reason `json:"reason,omitempty"`
}

// Extractor is the context-aware extraction collaborator: given the user's
// raw reply and the slot we asked about, it either finds a typed value or
// reports why it could not.
type Extractor interface {
	Resolve(ctx context.Context, text string, awaiting slot.Name) (*Result, error)
}

// DocumentExtractor is the evidence-upload collaborator offered as an
// alternative when a critical slot is declined: lab values extracted from a
// document stand in for typed answers.
type DocumentExtractor interface {
	ExtractReadings(ctx context.Context, documentRef string) (map[string]slot.BiomarkerReading, error)
}
