package citation

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SourceType classifies where a citation came from.
type SourceType string

const (
	SourceGuideline       SourceType = "guideline"
	SourceBiochemical     SourceType = "biochemical"
	SourceDrugInteraction SourceType = "drugInteraction"
	SourceFoodTable       SourceType = "foodTable"
)

var displayNames = map[SourceType]string{
	SourceGuideline:       "Clinical Guidelines & Reference Intakes",
	SourceBiochemical:     "Biochemical Context",
	SourceDrugInteraction: "Drug-Nutrient Interactions",
	SourceFoodTable:       "Food Composition Tables",
}

// displayOrder fixes the grouping order for rendered citations.
var displayOrder = []SourceType{SourceGuideline, SourceBiochemical, SourceDrugInteraction, SourceFoodTable}

// Entry is one provenance record. Two entries with the same source and
// locator are the same citation regardless of context.
type Entry struct {
	SourceID   string     `json:"source_id"`
	SourceType SourceType `json:"source_type"`
	Locator    string     `json:"locator,omitempty"` // chapter/page/table row
	Context    string     `json:"context,omitempty"`
}

func (e Entry) dedupKey() string {
	return e.SourceID + "|" + e.Locator
}

func (e Entry) String() string {
	parts := []string{e.SourceID}
	if e.Locator != "" {
		parts = append(parts, e.Locator)
	}
	if e.Context != "" {
		parts = append(parts, fmt.Sprintf("(%s)", e.Context))
	}
	return strings.Join(parts, ", ")
}

// Ledger accumulates deduplicated citations across pipeline stages within a
// session. Adding the same (source, locator) twice is a no-op, which makes
// stage replay idempotent.
type Ledger struct {
	entries []Entry
	seen    map[string]struct{}
}

func NewLedger() *Ledger {
	return &Ledger{seen: make(map[string]struct{})}
}

// Add records one citation. Returns true if it was new.
func (l *Ledger) Add(e Entry) bool {
	if l.seen == nil {
		l.seen = make(map[string]struct{})
	}
	key := e.dedupKey()
	if _, dup := l.seen[key]; dup {
		return false
	}
	l.seen[key] = struct{}{}
	l.entries = append(l.entries, e)
	return true
}

// AddAll records a batch of citations, keeping first-seen order.
func (l *Ledger) AddAll(entries []Entry) {
	for _, e := range entries {
		l.Add(e)
	}
}

// Entries returns the accumulated citations in insertion order.
func (l *Ledger) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *Ledger) Count() int { return len(l.entries) }

// Grouped returns citations bucketed by source type in display order.
// Types with no entries are omitted.
func (l *Ledger) Grouped() map[SourceType][]Entry {
	grouped := make(map[SourceType][]Entry)
	for _, e := range l.entries {
		grouped[e.SourceType] = append(grouped[e.SourceType], e)
	}
	return grouped
}

// Render formats the grouped citations for the presentation layer.
func (l *Ledger) Render() string {
	if len(l.entries) == 0 {
		return ""
	}
	grouped := l.Grouped()
	var b strings.Builder
	b.WriteString("SOURCES:")
	for _, st := range displayOrder {
		entries := grouped[st]
		if len(entries) == 0 {
			continue
		}
		b.WriteString("\n" + displayNames[st] + ":")
		for _, e := range entries {
			b.WriteString("\n  - " + e.String())
		}
	}
	return b.String()
}

// MarshalJSON serializes only the entry list; the dedup index is derived.
func (l *Ledger) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.entries)
}

func (l *Ledger) UnmarshalJSON(data []byte) error {
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	l.entries = nil
	l.seen = make(map[string]struct{})
	l.AddAll(entries)
	return nil
}
