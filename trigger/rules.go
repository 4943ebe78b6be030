// ABOUTME: Declarative trigger rules deciding when a field change warrants a CRM sync
// ABOUTME: Maps lead store diffs to full or lightweight sync intents, throttling typing progress
package trigger

import (
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/quickclose/leadsync/models"
)

// Kind distinguishes the full-record upsert from the lightweight
// typing-progress sync.
type Kind int

const (
	KindFull Kind = iota
	KindLightweight
)

// String returns the journal label for the kind.
func (k Kind) String() string {
	if k == KindLightweight {
		return models.KindLightweight
	}
	return models.KindFullUpsert
}

// Intent is a scheduled synchronization: why it fired and the full
// current-state snapshot at rule-evaluation time. The CRM call is a
// full-record upsert, never a field-level patch.
type Intent struct {
	Reason   string
	Kind     Kind
	Snapshot models.Lead
}

// identityFields are the high-signal fields whose changes drive the
// main upsert rule.
var identityFields = []models.Field{models.FieldPhone, models.FieldStreet, models.FieldName}

// lowSignalFields reach the CRM only once a contact channel exists.
var lowSignalFields = []models.Field{models.FieldQualifyingAnswers, models.FieldLeadStage}

// Rules evaluates lead store diffs into sync intents. Not safe for
// concurrent use from multiple goroutines; the engine drives it from
// the store's synchronous notification path.
type Rules struct {
	typing *rate.Limiter
}

// NewRules creates the rule set. typingInterval throttles lightweight
// typing-progress syncs; zero disables throttling.
func NewRules(typingInterval time.Duration) *Rules {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if typingInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(typingInterval), 1)
	}
	return &Rules{typing: limiter}
}

// Evaluate decides whether the change set warrants a sync. prev is the
// lead before the patch, next after. Returns nil when nothing should
// fire.
func (r *Rules) Evaluate(prev, next models.Lead, changed []models.Field) *Intent {
	changedSet := make(map[models.Field]bool, len(changed))
	for _, f := range changed {
		changedSet[f] = true
	}

	// Identity rule: a high-signal field changed to a non-empty value,
	// and either it is newly non-empty or the lead has already been
	// submitted at least once.
	for _, f := range identityFields {
		if !changedSet[f] {
			continue
		}
		val := next.IdentityField(f)
		if val.Value == "" {
			continue
		}
		if prev.IdentityField(f).Value == "" || next.Submitted {
			return &Intent{
				Reason:   fmt.Sprintf("%s changed", f),
				Kind:     KindFull,
				Snapshot: next.Clone(),
			}
		}
	}

	// Qualifier rule: low-signal progress syncs only once a phone
	// number exists. A visitor who never leaves a phone number never
	// has qualifier progress persisted remotely.
	for _, f := range lowSignalFields {
		if changedSet[f] && next.Phone.Value != "" {
			return &Intent{
				Reason:   fmt.Sprintf("%s progress", f),
				Kind:     KindFull,
				Snapshot: next.Clone(),
			}
		}
	}

	// Typing-progress rule: partial address edits produce lightweight,
	// throttled syncs carrying no identity-critical data.
	if changedSet[models.FieldStreet] && next.Street.Value != "" {
		if !r.typing.Allow() {
			return nil
		}
		return &Intent{
			Reason:   "address typing progress",
			Kind:     KindLightweight,
			Snapshot: next.Clone(),
		}
	}

	return nil
}
