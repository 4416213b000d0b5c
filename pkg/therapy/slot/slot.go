package slot

import (
	"encoding/json"
	"fmt"
)

// Name identifies a single datum collected from the user.
type Name string

const (
	Diagnosis   Name = "diagnosis"
	Age         Name = "age"
	Sex         Name = "sex"
	WeightKg    Name = "weight_kg"
	HeightCm    Name = "height_cm"
	Medications Name = "medications"
	Biomarkers  Name = "key_biomarkers"
	Country     Name = "country"
	Allergies   Name = "allergies"

	// Comparison intent slots
	FoodA     Name = "food_a"
	FoodB     Name = "food_b"
	FoodState Name = "food_state"
	Basis     Name = "basis"
)

// Category determines how the gatekeeper and rejection handler treat a slot.
type Category int

const (
	// Contextual slots are substitutable with documented population defaults.
	Contextual Category = iota
	// Critical slots block pipeline entry entirely when absent or declined.
	Critical
	// Identifying slots gate diagnosis normalization (stage 0).
	Identifying
)

// CategoryOf returns the category for a slot name. Unknown slots are contextual.
func CategoryOf(name Name) Category {
	switch name {
	case Medications, Biomarkers:
		return Critical
	case Diagnosis:
		return Identifying
	default:
		return Contextual
	}
}

// State is the discriminant of the Value union.
type State string

const (
	StateMissing  State = "missing"
	StateFilled   State = "filled"
	StateRejected State = "rejected"
)

// BiomarkerReading is one lab value with its unit, e.g. creatinine 2.1 mg/dL.
type BiomarkerReading struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// Value is a tagged union: Missing | Filled(payload) | Rejected(reason).
// A rejection is a first-class terminal state, never a sentinel payload,
// so a "is this slot filled" check cannot misclassify a decline as data.
type Value struct {
	State   State  `json:"state"`
	Payload any    `json:"payload,omitempty"`
	Reason  string `json:"reason,omitempty"`
	// Defaulted marks payloads substituted from population defaults after a
	// decline; the final output is annotated as less personalized.
	Defaulted bool `json:"defaulted,omitempty"`
}

// Missing returns the zero state of the union.
func MissingValue() Value {
	return Value{State: StateMissing}
}

// Of wraps a typed payload as a filled value.
func Of(payload any) Value {
	return Value{State: StateFilled, Payload: payload}
}

// DefaultOf wraps a population default substituted after a decline.
func DefaultOf(payload any) Value {
	return Value{State: StateFilled, Payload: payload, Defaulted: true}
}

// Rejected records a user decline with its reason.
func Rejected(reason string) Value {
	return Value{State: StateRejected, Reason: reason}
}

func (v Value) IsMissing() bool  { return v.State == "" || v.State == StateMissing }
func (v Value) IsFilled() bool   { return v.State == StateFilled }
func (v Value) IsRejected() bool { return v.State == StateRejected }

// Float extracts a numeric payload. JSON round-trips turn numbers into
// float64, so both paths land here.
func (v Value) Float() (float64, bool) {
	if !v.IsFilled() {
		return 0, false
	}
	switch n := v.Payload.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// Text extracts a string payload.
func (v Value) Text() (string, bool) {
	if !v.IsFilled() {
		return "", false
	}
	s, ok := v.Payload.(string)
	return s, ok
}

// List extracts a string-list payload, tolerating the []any form a JSON
// round-trip produces.
func (v Value) List() ([]string, bool) {
	if !v.IsFilled() {
		return nil, false
	}
	switch l := v.Payload.(type) {
	case []string:
		return l, true
	case []any:
		out := make([]string, 0, len(l))
		for _, e := range l {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

// Readings extracts a biomarker map payload.
func (v Value) Readings() (map[string]BiomarkerReading, bool) {
	if !v.IsFilled() {
		return nil, false
	}
	switch m := v.Payload.(type) {
	case map[string]BiomarkerReading:
		return m, true
	case map[string]any:
		out := make(map[string]BiomarkerReading, len(m))
		for k, raw := range m {
			b, err := json.Marshal(raw)
			if err != nil {
				return nil, false
			}
			var r BiomarkerReading
			if err := json.Unmarshal(b, &r); err != nil {
				return nil, false
			}
			out[k] = r
		}
		return out, true
	}
	return nil, false
}

func (v Value) String() string {
	switch v.State {
	case StateFilled:
		return fmt.Sprintf("filled(%v)", v.Payload)
	case StateRejected:
		return fmt.Sprintf("rejected(%s)", v.Reason)
	default:
		return "missing"
	}
}
