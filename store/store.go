// ABOUTME: In-memory observable lead store with change notification
// ABOUTME: Applies partial patches, enforces write-once attribution and remote ID monotonicity
package store

import (
	"sync"

	"github.com/quickclose/leadsync/models"
)

// Listener receives the post-patch lead snapshot and the keys that
// changed, synchronously after every patch. One notification per patch,
// never batched, so ordering stays deterministic.
type Listener func(lead models.Lead, changed []models.Field)

// Store holds the current lead record. No I/O happens here; it is pure
// state plus notification.
type Store struct {
	mu      sync.Mutex
	lead    models.Lead
	subs    map[int]Listener
	nextSub int
}

// New creates a store for a fresh lead. The local ID is assigned exactly
// once, before any other field is set.
func New(localID string) *Store {
	return &Store{
		lead: models.Lead{
			LocalID:   localID,
			LeadStage: models.StageNew,
		},
		subs: make(map[int]Listener),
	}
}

// Get returns a snapshot of the current lead.
func (s *Store) Get() models.Lead {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lead.Clone()
}

// Subscribe registers a listener and returns its unsubscribe func.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Patch shallow-merges p into the lead and notifies subscribers with the
// changed keys. Attribution fields merge only-if-empty; RemoteID is
// write-once. Returns the changed keys.
func (s *Store) Patch(p models.Patch) []models.Field {
	s.mu.Lock()

	var changed []models.Field

	setField := func(dst *models.FieldValue, src *models.FieldValue, key models.Field) {
		if src == nil {
			return
		}
		if dst.Value != src.Value || dst.Provenance != src.Provenance {
			*dst = *src
			changed = append(changed, key)
		}
	}

	setField(&s.lead.Name, p.Name, models.FieldName)
	setField(&s.lead.Phone, p.Phone, models.FieldPhone)
	setField(&s.lead.Email, p.Email, models.FieldEmail)
	setField(&s.lead.Street, p.Street, models.FieldStreet)
	setField(&s.lead.City, p.City, models.FieldCity)
	setField(&s.lead.Zip, p.Zip, models.FieldZip)

	// Once set from a successful upsert, the remote ID never changes.
	if p.RemoteID != nil && *p.RemoteID != "" && s.lead.RemoteID == "" {
		s.lead.RemoteID = *p.RemoteID
		changed = append(changed, models.FieldRemoteID)
	}

	if p.Attribution != nil {
		if s.lead.Attribution.MergeEmpty(*p.Attribution) {
			changed = append(changed, models.FieldAttribution)
		}
	}

	if p.Enrichment != nil {
		s.lead.Enrichment = *p.Enrichment
		changed = append(changed, models.FieldEnrichment)
	}

	if p.LeadStage != nil && *p.LeadStage != s.lead.LeadStage {
		s.lead.LeadStage = *p.LeadStage
		changed = append(changed, models.FieldLeadStage)
	}

	if p.Answer != nil {
		s.applyAnswer(*p.Answer)
		changed = append(changed, models.FieldQualifyingAnswers)
	}

	if p.Submitting != nil && *p.Submitting != s.lead.Submitting {
		s.lead.Submitting = *p.Submitting
		changed = append(changed, models.FieldSubmitting)
	}
	if p.Submitted != nil && *p.Submitted != s.lead.Submitted {
		s.lead.Submitted = *p.Submitted
		changed = append(changed, models.FieldSubmitted)
	}
	if p.LastSubmissionError != nil && *p.LastSubmissionError != s.lead.LastSubmissionError {
		s.lead.LastSubmissionError = *p.LastSubmissionError
		changed = append(changed, models.FieldLastSubmissionError)
	}
	if p.LastSyncedAt != nil && !p.LastSyncedAt.Equal(s.lead.LastSyncedAt) {
		s.lead.LastSyncedAt = *p.LastSyncedAt
		changed = append(changed, models.FieldLastSyncedAt)
	}

	if len(changed) == 0 {
		s.mu.Unlock()
		return nil
	}

	snapshot := s.lead.Clone()
	listeners := make([]Listener, 0, len(s.subs))
	for _, fn := range s.subs {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	// Notify outside the lock so listeners can call back into the store.
	for _, fn := range listeners {
		fn(snapshot, changed)
	}
	return changed
}

// applyAnswer appends the answer, or updates the value in place when the
// question key already exists. Entries are never removed.
func (s *Store) applyAnswer(a models.Answer) {
	for i := range s.lead.QualifyingAnswers {
		if s.lead.QualifyingAnswers[i].Key == a.Key {
			s.lead.QualifyingAnswers[i].Value = a.Value
			return
		}
	}
	s.lead.QualifyingAnswers = append(s.lead.QualifyingAnswers, a)
}
