// ABOUTME: Per-session fired-events guard for analytics pixels
// ABOUTME: Replaces module-level view counters with an explicit, testable fired set
package analytics

import "sync"

// Tracker remembers which analytics events have fired this session so
// fire-once pixels stay fire-once without hidden cross-instance state.
type Tracker struct {
	mu    sync.Mutex
	fired map[string]bool
}

// NewTracker creates an empty per-session tracker.
func NewTracker() *Tracker {
	return &Tracker{fired: make(map[string]bool)}
}

// HasFired reports whether the event already fired.
func (t *Tracker) HasFired(event string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fired[event]
}

// MarkFired records the event as fired.
func (t *Tracker) MarkFired(event string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fired[event] = true
}

// FireOnce marks the event and reports true only for the first call.
func (t *Tracker) FireOnce(event string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fired[event] {
		return false
	}
	t.fired[event] = true
	return true
}
