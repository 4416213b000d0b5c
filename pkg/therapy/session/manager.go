package session

import (
	"log"
	"sync"

	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/internal/repository/memory"
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/classifier"
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/store"
	"github.com/luch91/RAG-Clinical-Nutrition-Assistant/pkg/therapy/slot"
)

// Manager owns per-session slot state and locking. Every mutating turn for
// a session runs behind that session's lock; unrelated sessions proceed in
// parallel.
type Manager struct {
	sessionRepo *memory.SessionRepository
	logger      *log.Logger

	mu      sync.Mutex
	locks   map[string]*sync.Mutex
	dropped map[string]bool
}

func NewManager(sessionRepo *memory.SessionRepository, logger *log.Logger) *Manager {
	return &Manager{
		sessionRepo: sessionRepo,
		logger:      logger,
		locks:       make(map[string]*sync.Mutex),
		dropped:     make(map[string]bool),
	}
}

func (m *Manager) lockFor(id string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[id]
	if !ok {
		l = &sync.Mutex{}
		m.locks[id] = l
	}
	return l
}

// Acquire returns the session for id under its exclusive lock, creating it
// on first use. A second turn for the same session blocks here rather than
// interleave with a running pipeline. The caller must invoke release.
func (m *Manager) Acquire(id, userID string) (*store.Session, func()) {
	l := m.lockFor(id)
	l.Lock()

	sess, found := m.sessionRepo.Get(id)
	if !found {
		sess = store.NewSession(id, userID)
		m.sessionRepo.Save(sess)
		m.logger.Printf("[SESSION] Created session %s", id)
	}
	return sess, func() {
		m.mu.Lock()
		wasDropped := m.dropped[sess.ID]
		delete(m.dropped, sess.ID)
		m.mu.Unlock()
		// A reset during this turn must not be undone by the write-back.
		if !wasDropped {
			m.sessionRepo.Save(sess)
		}
		l.Unlock()
	}
}

// Reset tears the session down. The caller must hold the session lock; the
// pending release skips its save so the deletion sticks.
func (m *Manager) Reset(sess *store.Session) {
	m.sessionRepo.Delete(sess.ID)
	m.mu.Lock()
	m.dropped[sess.ID] = true
	m.mu.Unlock()
	m.logger.Printf("[SESSION] Reset session %s", sess.ID)
}

// Merge folds classifier entities into the session unconditionally, before
// any routing decision and even while a slot is awaited, so volunteered
// data is never discarded for arriving out of sequence. Values failing
// validation are not stored; each failure comes back as a
// *slot.ValidationError and the rest of the turn's entities still land.
func (m *Manager) Merge(sess *store.Session, ents *classifier.Result) []error {
	if ents == nil {
		return nil
	}
	var errs []error
	put := func(name slot.Name, payload any) {
		if err := slot.Validate(name, payload); err != nil {
			m.logger.Printf("[MERGE] %s rejected: %v", name, err)
			errs = append(errs, err)
			return
		}
		sess.SetSlot(name, slot.Of(payload))
	}

	if len(ents.Medications) > 0 {
		put(slot.Medications, ents.Medications)
	}
	if len(ents.Biomarkers) > 0 {
		// Validate readings one by one; a single impossible lab value must
		// not discard the rest of the panel.
		valid := make(map[string]slot.BiomarkerReading, len(ents.Biomarkers))
		for marker, r := range ents.Biomarkers {
			if err := slot.ValidateBiomarker(marker, r); err != nil {
				m.logger.Printf("[MERGE] biomarker %s rejected: %v", marker, err)
				errs = append(errs, err)
				continue
			}
			valid[marker] = r
		}
		if len(valid) > 0 {
			merged := valid
			if prior, ok := sess.Slot(slot.Biomarkers).Readings(); ok {
				for k, v := range valid {
					prior[k] = v
				}
				merged = prior
			}
			sess.SetSlot(slot.Biomarkers, slot.Of(merged))
		}
	}
	if len(ents.Allergies) > 0 {
		put(slot.Allergies, ents.Allergies)
	}
	if ents.Age != nil {
		put(slot.Age, *ents.Age)
	}
	if ents.Sex != "" {
		put(slot.Sex, ents.Sex)
	}
	if ents.WeightKg != nil {
		put(slot.WeightKg, *ents.WeightKg)
	}
	if ents.HeightCm != nil {
		put(slot.HeightCm, *ents.HeightCm)
	}
	if ents.DiagnosisText != "" {
		put(slot.Diagnosis, ents.DiagnosisText)
	}
	if len(ents.CountryMentions) > 0 {
		// Deliberate tie-break: the first mention wins.
		put(slot.Country, ents.CountryMentions[0])
	}
	if ents.FoodA != "" {
		put(slot.FoodA, ents.FoodA)
	}
	if ents.FoodB != "" {
		put(slot.FoodB, ents.FoodB)
	}
	if ents.FoodState != "" {
		put(slot.FoodState, ents.FoodState)
	}
	if ents.Basis != "" {
		put(slot.Basis, ents.Basis)
	}
	return errs
}
