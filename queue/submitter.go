// ABOUTME: Submission queue serializing CRM upserts per lead
// ABOUTME: At-most-one in-flight request, depth-1 coalescing of later intents, bounded retry with backoff
package queue

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/quickclose/leadsync/crm"
	"github.com/quickclose/leadsync/models"
	"github.com/quickclose/leadsync/store"
	"github.com/quickclose/leadsync/trigger"
)

// Upserter is the slice of the CRM adapter the queue consumes.
type Upserter interface {
	UpsertLead(ctx context.Context, lead models.Lead) (string, error)
}

// Journal records submission attempts for operational visibility.
// Implementations must never block or fail the submission path.
type Journal interface {
	RecordAttempt(leadID, kind, outcome, errMsg string, duration time.Duration)
	UpdateState(leadID, status, errMsg string)
}

// State is the per-lead submission machine position.
type State int

const (
	StateIdle State = iota
	StateSubmitting
)

// DefaultMaxAttempts bounds upsert attempts per intent. The contact
// form call site raises this; it is a policy choice per conversion
// point, not a constant.
const DefaultMaxAttempts = 3

// DefaultBackoff doubles the delay per failed attempt starting at
// 500ms.
func DefaultBackoff(attempt int) time.Duration {
	d := 500 * time.Millisecond
	for i := 1; i < attempt; i++ {
		d *= 2
	}
	return d
}

// Options tune a Submitter.
type Options struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
	Journal     Journal
}

type pendingIntent struct {
	intent      trigger.Intent
	maxAttempts int
}

// Submitter serializes full-record upserts for one lead. While a
// request is in flight, later intents replace the single pending slot
// so the CRM eventually sees the latest snapshot without a call per
// keystroke.
type Submitter struct {
	mu      sync.Mutex
	state   State
	pending *pendingIntent
	closed  bool
	wg      sync.WaitGroup

	client      Upserter
	leads       *store.Store
	journal     Journal
	maxAttempts int
	backoff     func(int) time.Duration
}

// NewSubmitter creates a queue writing results back into leads.
func NewSubmitter(client Upserter, leads *store.Store, opts Options) *Submitter {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Backoff == nil {
		opts.Backoff = DefaultBackoff
	}
	return &Submitter{
		client:      client,
		leads:       leads,
		journal:     opts.Journal,
		maxAttempts: opts.MaxAttempts,
		backoff:     opts.Backoff,
	}
}

// State returns the current machine position.
func (s *Submitter) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Enqueue schedules a full upsert with the default attempt bound.
func (s *Submitter) Enqueue(intent trigger.Intent) {
	s.EnqueueLimit(intent, s.maxAttempts)
}

// EnqueueLimit schedules a full upsert with a per-call-site attempt
// bound. If a request is in flight the intent replaces any pending one;
// exactly one more call fires when the in-flight request resolves.
func (s *Submitter) EnqueueLimit(intent trigger.Intent, maxAttempts int) {
	if maxAttempts <= 0 {
		maxAttempts = s.maxAttempts
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if s.state == StateSubmitting {
		s.pending = &pendingIntent{intent: intent, maxAttempts: maxAttempts}
		return
	}

	s.state = StateSubmitting
	s.wg.Add(1)
	go s.run(&pendingIntent{intent: intent, maxAttempts: maxAttempts})
}

// FireLightweight sends a typing-progress sync once, without retry and
// without touching the in-flight state. Failures are logged and
// dropped; these updates carry no identity-critical data.
func (s *Submitter) FireLightweight(intent trigger.Intent) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		start := time.Now()
		_, err := s.client.UpsertLead(context.Background(), intent.Snapshot)
		elapsed := time.Since(start)
		if err != nil {
			log.Printf("lead sync: lightweight sync failed: %v", err)
			s.recordAttemptDur(intent.Snapshot.LocalID, models.KindLightweight, models.OutcomeFailed, err, elapsed)
			return
		}
		s.recordAttemptDur(intent.Snapshot.LocalID, models.KindLightweight, models.OutcomeSucceeded, nil, elapsed)
	}()
}

// Close stops scheduling new intents. An in-flight request completes
// and its remote ID write-back still lands; discarding it would risk a
// duplicate remote lead next session.
func (s *Submitter) Close() {
	s.mu.Lock()
	s.closed = true
	s.pending = nil
	s.mu.Unlock()
}

// Wait blocks until all started submissions have finished.
func (s *Submitter) Wait() {
	s.wg.Wait()
}

func (s *Submitter) run(p *pendingIntent) {
	defer s.wg.Done()

	leadID := p.intent.Snapshot.LocalID
	s.leads.Patch(models.Patch{Submitting: models.BoolPtr(true)})
	if s.journal != nil {
		s.journal.UpdateState(leadID, models.SyncStatusSyncing, "")
	}

	var lastErr error
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		start := time.Now()
		remoteID, err := s.client.UpsertLead(context.Background(), p.intent.Snapshot)
		elapsed := time.Since(start)

		if err == nil {
			s.recordAttemptDur(leadID, models.KindFullUpsert, models.OutcomeSucceeded, nil, elapsed)
			now := time.Now()
			s.leads.Patch(models.Patch{
				RemoteID:            &remoteID,
				Submitting:          models.BoolPtr(false),
				Submitted:           models.BoolPtr(true),
				LastSubmissionError: models.StringPtr(""),
				LastSyncedAt:        &now,
			})
			if s.journal != nil {
				s.journal.UpdateState(leadID, models.SyncStatusIdle, "")
			}
			lastErr = nil
			break
		}

		lastErr = err
		s.recordAttemptDur(leadID, models.KindFullUpsert, models.OutcomeFailed, err, elapsed)

		if !crm.IsRetryable(err) {
			break
		}
		if attempt < p.maxAttempts {
			time.Sleep(s.backoff(attempt))
		}
	}

	if lastErr != nil {
		// The funnel always proceeds; failure is recorded, never shown.
		log.Printf("lead sync: upsert gave up for %s: %v", leadID, lastErr)
		s.recordAttempt(leadID, models.KindFullUpsert, models.OutcomeExhausted, lastErr)
		s.leads.Patch(models.Patch{
			Submitting:          models.BoolPtr(false),
			LastSubmissionError: models.StringPtr(lastErr.Error()),
		})
		if s.journal != nil {
			s.journal.UpdateState(leadID, models.SyncStatusError, lastErr.Error())
		}
	}

	s.mu.Lock()
	next := s.pending
	s.pending = nil
	if next != nil && !s.closed {
		s.wg.Add(1)
		go s.run(next)
	} else {
		s.state = StateIdle
	}
	s.mu.Unlock()
}

func (s *Submitter) recordAttempt(leadID, kind, outcome string, err error) {
	s.recordAttemptDur(leadID, kind, outcome, err, 0)
}

func (s *Submitter) recordAttemptDur(leadID, kind, outcome string, err error, dur time.Duration) {
	if s.journal == nil {
		return
	}
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	s.journal.RecordAttempt(leadID, kind, outcome, msg, dur)
}
