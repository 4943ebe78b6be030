// ABOUTME: Unit tests for trigger rules
// ABOUTME: Covers identity/qualifier gating and the lightweight typing-progress throttle
package trigger

import (
	"testing"
	"time"

	"github.com/quickclose/leadsync/models"
)

func lead(mutate func(*models.Lead)) models.Lead {
	l := models.Lead{LocalID: "local-1", LeadStage: models.StageNew}
	if mutate != nil {
		mutate(&l)
	}
	return l
}

func TestEvaluateIdentityRule(t *testing.T) {
	tests := []struct {
		name     string
		prev     models.Lead
		next     models.Lead
		changed  []models.Field
		wantSync bool
		wantKind Kind
	}{
		{
			name: "phone newly non-empty",
			prev: lead(nil),
			next: lead(func(l *models.Lead) {
				l.Phone = models.FieldValue{Value: "4045551234"}
			}),
			changed:  []models.Field{models.FieldPhone},
			wantSync: true,
			wantKind: KindFull,
		},
		{
			name: "name newly non-empty",
			prev: lead(nil),
			next: lead(func(l *models.Lead) {
				l.Name = models.FieldValue{Value: "John"}
			}),
			changed:  []models.Field{models.FieldName},
			wantSync: true,
			wantKind: KindFull,
		},
		{
			name: "phone cleared does not sync",
			prev: lead(func(l *models.Lead) {
				l.Phone = models.FieldValue{Value: "4045551234"}
			}),
			next:     lead(nil),
			changed:  []models.Field{models.FieldPhone},
			wantSync: false,
		},
		{
			name: "name edit after prior submission syncs",
			prev: lead(func(l *models.Lead) {
				l.Name = models.FieldValue{Value: "Jon"}
				l.Submitted = true
			}),
			next: lead(func(l *models.Lead) {
				l.Name = models.FieldValue{Value: "John"}
				l.Submitted = true
			}),
			changed:  []models.Field{models.FieldName},
			wantSync: true,
			wantKind: KindFull,
		},
		{
			name: "name edit before any submission does not sync",
			prev: lead(func(l *models.Lead) {
				l.Name = models.FieldValue{Value: "Jon"}
			}),
			next: lead(func(l *models.Lead) {
				l.Name = models.FieldValue{Value: "John"}
			}),
			changed:  []models.Field{models.FieldName},
			wantSync: false,
		},
		{
			name: "email change alone does not sync",
			prev: lead(nil),
			next: lead(func(l *models.Lead) {
				l.Email = models.FieldValue{Value: "j@example.com"}
			}),
			changed:  []models.Field{models.FieldEmail},
			wantSync: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRules(0)
			intent := r.Evaluate(tt.prev, tt.next, tt.changed)
			if (intent != nil) != tt.wantSync {
				t.Fatalf("Evaluate sync = %v, want %v", intent != nil, tt.wantSync)
			}
			if intent != nil && intent.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", intent.Kind, tt.wantKind)
			}
		})
	}
}

func TestEvaluateSnapshotCarriesFullState(t *testing.T) {
	r := NewRules(0)
	prev := lead(func(l *models.Lead) {
		l.Street = models.FieldValue{Value: "123 Main St"}
	})
	next := lead(func(l *models.Lead) {
		l.Street = models.FieldValue{Value: "123 Main St"}
		l.Phone = models.FieldValue{Value: "4045551234"}
	})

	intent := r.Evaluate(prev, next, []models.Field{models.FieldPhone})
	if intent == nil {
		t.Fatal("expected sync intent for newly non-empty phone")
	}
	if intent.Snapshot.Street.Value != "123 Main St" {
		t.Errorf("snapshot missing street: %q", intent.Snapshot.Street.Value)
	}
	if intent.Snapshot.Phone.Value != "4045551234" {
		t.Errorf("snapshot missing phone: %q", intent.Snapshot.Phone.Value)
	}
}

// Qualifier progress reaches the CRM only once a contact channel exists.
func TestEvaluateQualifierGatedOnPhone(t *testing.T) {
	r := NewRules(0)

	noPhone := lead(func(l *models.Lead) {
		l.QualifyingAnswers = []models.Answer{{Key: "condition", Value: "fair"}}
	})
	if intent := r.Evaluate(lead(nil), noPhone, []models.Field{models.FieldQualifyingAnswers}); intent != nil {
		t.Error("qualifier change without phone should not sync")
	}

	withPhone := lead(func(l *models.Lead) {
		l.Phone = models.FieldValue{Value: "4045551234"}
		l.QualifyingAnswers = []models.Answer{{Key: "condition", Value: "fair"}}
	})
	intent := r.Evaluate(lead(nil), withPhone, []models.Field{models.FieldQualifyingAnswers})
	if intent == nil {
		t.Fatal("qualifier change with phone should sync")
	}
	if intent.Kind != KindFull {
		t.Errorf("Kind = %v, want KindFull", intent.Kind)
	}
}

func TestEvaluateTypingProgressLightweight(t *testing.T) {
	r := NewRules(0)

	prev := lead(func(l *models.Lead) {
		l.Street = models.FieldValue{Value: "123 Mai"}
	})
	next := lead(func(l *models.Lead) {
		l.Street = models.FieldValue{Value: "123 Main"}
	})

	intent := r.Evaluate(prev, next, []models.Field{models.FieldStreet})
	if intent == nil {
		t.Fatal("expected lightweight typing-progress intent")
	}
	if intent.Kind != KindLightweight {
		t.Errorf("Kind = %v, want KindLightweight", intent.Kind)
	}
}

func TestTypingProgressThrottled(t *testing.T) {
	r := NewRules(500 * time.Millisecond)

	mk := func(street string) models.Lead {
		return lead(func(l *models.Lead) {
			l.Street = models.FieldValue{Value: street}
		})
	}

	first := r.Evaluate(mk("123 Mai"), mk("123 Main"), []models.Field{models.FieldStreet})
	if first == nil {
		t.Fatal("first typing-progress intent should pass the throttle")
	}
	second := r.Evaluate(mk("123 Main"), mk("123 Main S"), []models.Field{models.FieldStreet})
	if second != nil {
		t.Error("second rapid typing-progress intent should be throttled")
	}
}
