// ABOUTME: Independent sub-queue for enrichment-record uploads
// ABOUTME: Gated on record-available-and-not-yet-submitted, decoupled from the main upsert queue
package queue

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/quickclose/leadsync/crm"
	"github.com/quickclose/leadsync/models"
)

// RecordSubmitter is the slice of the CRM adapter the record queue
// consumes.
type RecordSubmitter interface {
	SubmitEnrichmentRecord(ctx context.Context, record json.RawMessage) error
}

// RecordQueue uploads the opaque property record at most once per
// session. It keeps its own in-flight flag so a busy lead upsert never
// delays the enrichment upload, and vice versa.
type RecordQueue struct {
	mu         sync.Mutex
	submitting bool
	submitted  bool
	wg         sync.WaitGroup

	client      RecordSubmitter
	journal     Journal
	maxAttempts int
	backoff     func(int) time.Duration
}

// NewRecordQueue creates the enrichment upload queue.
func NewRecordQueue(client RecordSubmitter, opts Options) *RecordQueue {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Backoff == nil {
		opts.Backoff = DefaultBackoff
	}
	return &RecordQueue{
		client:      client,
		journal:     opts.Journal,
		maxAttempts: opts.MaxAttempts,
		backoff:     opts.Backoff,
	}
}

// Offer submits the record if one is available and neither submitted
// nor currently submitting. Duplicate offers are dropped.
func (q *RecordQueue) Offer(leadID string, record json.RawMessage) {
	if len(record) == 0 {
		return
	}

	q.mu.Lock()
	if q.submitted || q.submitting {
		q.mu.Unlock()
		return
	}
	q.submitting = true
	q.wg.Add(1)
	q.mu.Unlock()

	go q.run(leadID, record)
}

// Submitted reports whether the record reached the CRM.
func (q *RecordQueue) Submitted() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.submitted
}

// Wait blocks until any started upload has finished.
func (q *RecordQueue) Wait() {
	q.wg.Wait()
}

func (q *RecordQueue) run(leadID string, record json.RawMessage) {
	defer q.wg.Done()

	var lastErr error
	for attempt := 1; attempt <= q.maxAttempts; attempt++ {
		start := time.Now()
		err := q.client.SubmitEnrichmentRecord(context.Background(), record)
		elapsed := time.Since(start)

		if err == nil {
			if q.journal != nil {
				q.journal.RecordAttempt(leadID, models.KindEnrichment, models.OutcomeSucceeded, "", elapsed)
			}
			q.mu.Lock()
			q.submitting = false
			q.submitted = true
			q.mu.Unlock()
			return
		}

		lastErr = err
		if q.journal != nil {
			q.journal.RecordAttempt(leadID, models.KindEnrichment, models.OutcomeFailed, err.Error(), elapsed)
		}
		if !crm.IsRetryable(err) {
			break
		}
		if attempt < q.maxAttempts {
			time.Sleep(q.backoff(attempt))
		}
	}

	log.Printf("lead sync: enrichment record upload gave up for %s: %v", leadID, lastErr)
	if q.journal != nil {
		q.journal.RecordAttempt(leadID, models.KindEnrichment, models.OutcomeExhausted, lastErr.Error(), 0)
	}
	q.mu.Lock()
	q.submitting = false
	q.mu.Unlock()
}
