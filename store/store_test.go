// ABOUTME: Unit tests for the observable lead store
// ABOUTME: Covers write-once attribution, remote ID monotonicity, and change notification
package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickclose/leadsync/models"
)

func TestPatchNotifiesChangedKeys(t *testing.T) {
	s := New("local-1")

	var gotLead models.Lead
	var gotChanged []models.Field
	calls := 0
	unsub := s.Subscribe(func(lead models.Lead, changed []models.Field) {
		gotLead = lead
		gotChanged = changed
		calls++
	})
	defer unsub()

	s.Patch(models.Patch{
		Street: &models.FieldValue{Value: "123 Main St", Provenance: models.ProvenanceManual},
	})

	require.Equal(t, 1, calls, "one patch should produce exactly one notification")
	assert.Equal(t, []models.Field{models.FieldStreet}, gotChanged)
	assert.Equal(t, "123 Main St", gotLead.Street.Value)
	assert.Equal(t, "local-1", gotLead.LocalID)
}

func TestPatchNoChangeNoNotification(t *testing.T) {
	s := New("local-1")
	s.Patch(models.Patch{Name: &models.FieldValue{Value: "John"}})

	calls := 0
	unsub := s.Subscribe(func(models.Lead, []models.Field) { calls++ })
	defer unsub()

	// Identical value is not a change
	s.Patch(models.Patch{Name: &models.FieldValue{Value: "John"}})
	assert.Equal(t, 0, calls)
}

// Once campaign attribution is populated, later writes only fill
// currently-empty fields.
func TestAttributionWriteOnce(t *testing.T) {
	s := New("local-1")

	s.Patch(models.Patch{Attribution: &models.Attribution{
		CampaignID: "camp-1",
		Keyword:    "sell my house",
	}})

	s.Patch(models.Patch{Attribution: &models.Attribution{
		CampaignID: "camp-2", // must not overwrite
		GCLID:      "gclid-xyz",
	}})

	lead := s.Get()
	assert.Equal(t, "camp-1", lead.Attribution.CampaignID)
	assert.Equal(t, "sell my house", lead.Attribution.Keyword)
	assert.Equal(t, "gclid-xyz", lead.Attribution.GCLID, "empty fields still fill in")
}

// Once set from a successful upsert, RemoteID is never cleared or
// reassigned.
func TestRemoteIDMonotonic(t *testing.T) {
	s := New("local-1")

	s.Patch(models.Patch{RemoteID: models.StringPtr("crm-100")})
	s.Patch(models.Patch{RemoteID: models.StringPtr("crm-999")})
	s.Patch(models.Patch{RemoteID: models.StringPtr("")})

	assert.Equal(t, "crm-100", s.Get().RemoteID)
}

func TestQualifyingAnswersAppendOnly(t *testing.T) {
	s := New("local-1")

	s.Patch(models.Patch{Answer: &models.Answer{Key: "condition", Value: "fair"}})
	s.Patch(models.Patch{Answer: &models.Answer{Key: "timeline", Value: "30 days"}})
	s.Patch(models.Patch{Answer: &models.Answer{Key: "condition", Value: "good"}})

	lead := s.Get()
	require.Len(t, lead.QualifyingAnswers, 2)
	assert.Equal(t, "condition", lead.QualifyingAnswers[0].Key)
	assert.Equal(t, "good", lead.QualifyingAnswers[0].Value, "same key updates in place")
	assert.Equal(t, "timeline", lead.QualifyingAnswers[1].Key)
}

func TestUnsubscribeStopsNotifications(t *testing.T) {
	s := New("local-1")

	calls := 0
	unsub := s.Subscribe(func(models.Lead, []models.Field) { calls++ })
	s.Patch(models.Patch{Name: &models.FieldValue{Value: "A"}})
	unsub()
	s.Patch(models.Patch{Name: &models.FieldValue{Value: "B"}})

	assert.Equal(t, 1, calls)
}

func TestSnapshotIsolation(t *testing.T) {
	s := New("local-1")
	s.Patch(models.Patch{Answer: &models.Answer{Key: "condition", Value: "fair"}})

	snap := s.Get()
	snap.QualifyingAnswers[0].Value = "mutated"
	snap.Name.Value = "mutated"

	lead := s.Get()
	assert.Equal(t, "fair", lead.QualifyingAnswers[0].Value)
	assert.Equal(t, "", lead.Name.Value)
}

func TestListenerCanPatchStore(t *testing.T) {
	s := New("local-1")

	unsub := s.Subscribe(func(lead models.Lead, changed []models.Field) {
		// A listener reacting to a field change must be able to write
		// back without deadlocking.
		if lead.RemoteID == "" && containsField(changed, models.FieldPhone) {
			s.Patch(models.Patch{RemoteID: models.StringPtr("crm-1")})
		}
	})
	defer unsub()

	s.Patch(models.Patch{Phone: &models.FieldValue{Value: "4045551234"}})
	assert.Equal(t, "crm-1", s.Get().RemoteID)
}

func containsField(fields []models.Field, f models.Field) bool {
	for _, c := range fields {
		if c == f {
			return true
		}
	}
	return false
}
