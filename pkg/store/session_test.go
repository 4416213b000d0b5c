package store

import (
	"encoding/json"
	"testing"

	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/therapy/citation"
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/therapy/slot"
)

func TestSetSlotRejectionLifecycle(t *testing.T) {
	s := NewSession("s1", "u1")

	s.SetSlot(slot.Age, slot.Rejected("user_declined"))
	if !s.Rejected[slot.Age] {
		t.Fatal("rejection not recorded in the rejected set")
	}
	if !s.Slot(slot.Age).IsRejected() {
		t.Fatal("slot value not in rejected state")
	}

	// Substituting a population default keeps the rejection on record.
	s.SetSlot(slot.Age, slot.DefaultOf(30.0))
	if !s.Slot(slot.Age).IsFilled() {
		t.Error("defaulted slot should read as filled")
	}
	if !s.Rejected[slot.Age] {
		t.Error("defaulted fill must not clear the rejection record")
	}

	// Volunteering real data overrides the decline entirely.
	s.SetSlot(slot.Age, slot.Of(7.0))
	if s.Rejected[slot.Age] {
		t.Error("volunteered value must clear the rejection record")
	}
}

func TestPipelineStateRecord(t *testing.T) {
	p := PipelineState{}
	p.Record(StageBaseline, StageResult{Status: StageSuccess})
	p.Record(StageFoodSourcing, StageResult{Status: StageSuccess})
	if p.CurrentStage != StageFoodSourcing {
		t.Errorf("CurrentStage = %d, want %d", p.CurrentStage, StageFoodSourcing)
	}
	// Recording an earlier stage never rewinds progress.
	p.Record(StageAdjustments, StageResult{Status: StageSuccess})
	if p.CurrentStage != StageFoodSourcing {
		t.Errorf("CurrentStage rewound to %d", p.CurrentStage)
	}
	if _, ok := p.Result(StageAdjustments); !ok {
		t.Error("recorded result not retrievable")
	}
}

func TestBMI(t *testing.T) {
	s := NewSession("s1", "u1")
	if _, ok := s.BMI(); ok {
		t.Error("BMI without height/weight should not compute")
	}
	s.SetSlot(slot.WeightKg, slot.Of(22.0))
	s.SetSlot(slot.HeightCm, slot.Of(120.0))
	bmi, ok := s.BMI()
	if !ok {
		t.Fatal("BMI should compute")
	}
	if bmi < 15.2 || bmi > 15.3 {
		t.Errorf("BMI = %.2f, want ~15.28", bmi)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := NewSession("s1", "u1")
	s.SetSlot(slot.Diagnosis, slot.Of("cystic fibrosis"))
	s.SetSlot(slot.Age, slot.Of(7.0))
	s.SetSlot(slot.Medications, slot.Rejected("user_declined"))
	s.IntentLock = IntentTherapy
	awaiting := slot.Biomarkers
	s.AwaitingSlot = &awaiting
	s.RetryCount = 1
	s.AwaitingStrategy = true
	declined := slot.Medications
	s.AwaitingAlternative = &declined
	s.Pipeline.Record(StageBaseline, StageResult{Status: StageSuccess, Payload: json.RawMessage(`{"energy_kcal":1500}`)})
	s.Ledger().Add(citation.Entry{SourceID: "A", SourceType: citation.SourceGuideline, Locator: "1"})

	data, err := json.Marshal(s.Snapshot())
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	restored := Restore(snap)

	if d, _ := restored.Slot(slot.Diagnosis).Text(); d != "cystic fibrosis" {
		t.Errorf("diagnosis = %q", d)
	}
	if !restored.Rejected[slot.Medications] {
		t.Error("rejected set lost in round trip")
	}
	if restored.AwaitingSlot == nil || *restored.AwaitingSlot != slot.Biomarkers {
		t.Error("awaiting slot lost in round trip")
	}
	if restored.IntentLock != IntentTherapy {
		t.Errorf("intent lock = %q", restored.IntentLock)
	}
	if restored.RetryCount != 1 {
		t.Errorf("retry count = %d, want 1", restored.RetryCount)
	}
	if !restored.AwaitingStrategy {
		t.Error("onboarding marker lost; a restored session would re-offer the strategy menu")
	}
	if restored.AwaitingAlternative == nil || *restored.AwaitingAlternative != slot.Medications {
		t.Error("declined-slot alternative marker lost in round trip")
	}
	r, ok := restored.Pipeline.Result(StageBaseline)
	if !ok || r.Status != StageSuccess {
		t.Error("pipeline result lost in round trip")
	}
	if restored.Ledger().Count() != 1 {
		t.Errorf("citations lost, count = %d", restored.Ledger().Count())
	}
}
