// ABOUTME: Data models for lead capture and CRM synchronization
// ABOUTME: Defines Lead, Attribution, Enrichment, and field/provenance constants
package models

import (
	"encoding/json"
	"time"
)

// Provenance records how a field value was obtained.
type Provenance string

const (
	ProvenanceManual          Provenance = "manual"
	ProvenanceAutocomplete    Provenance = "autocomplete"
	ProvenanceGoogle          Provenance = "google"
	ProvenanceBrowserAutofill Provenance = "browser_autofill"
)

// Field identifies a single lead attribute for change tracking.
type Field string

const (
	FieldName    Field = "name"
	FieldPhone   Field = "phone"
	FieldEmail   Field = "email"
	FieldStreet  Field = "street"
	FieldCity    Field = "city"
	FieldZip     Field = "zip"

	FieldRemoteID            Field = "remote_id"
	FieldAttribution         Field = "attribution"
	FieldEnrichment          Field = "enrichment"
	FieldLeadStage           Field = "lead_stage"
	FieldQualifyingAnswers   Field = "qualifying_answers"
	FieldSubmitting          Field = "submitting"
	FieldSubmitted           Field = "submitted"
	FieldLastSubmissionError Field = "last_submission_error"
	FieldLastSyncedAt        Field = "last_synced_at"
)

// Lead stage labels describing funnel position.
const (
	StageNew             = "New"
	StageAddressTyping   = "Address Typing"
	StageAddressSelected = "Address Selected"
	StageContactProvided = "Contact Info Provided"
	StagePhoneVerified   = "Phone Verified"
	StageQualifying      = "Qualifying"
)

// FieldValue pairs a value with the provenance of how it was entered.
type FieldValue struct {
	Value      string     `json:"value"`
	Provenance Provenance `json:"provenance,omitempty"`
}

// Attribution captures how the visitor arrived. Each field is write-once
// per session: a later write only fills a currently-empty field.
type Attribution struct {
	CampaignID    string `json:"campaign_id,omitempty"`
	CampaignName  string `json:"campaign_name,omitempty"`
	AdGroupID     string `json:"ad_group_id,omitempty"`
	AdGroupName   string `json:"ad_group_name,omitempty"`
	Keyword       string `json:"keyword,omitempty"`
	Device        string `json:"device,omitempty"`
	GCLID         string `json:"gclid,omitempty"`
	TrafficSource string `json:"traffic_source,omitempty"`
	URL           string `json:"url,omitempty"`
}

// MergeEmpty fills only the empty fields of a from other, preserving any
// value already present. Returns true if anything changed.
func (a *Attribution) MergeEmpty(other Attribution) bool {
	changed := false
	fill := func(dst *string, src string) {
		if *dst == "" && src != "" {
			*dst = src
			changed = true
		}
	}
	fill(&a.CampaignID, other.CampaignID)
	fill(&a.CampaignName, other.CampaignName)
	fill(&a.AdGroupID, other.AdGroupID)
	fill(&a.AdGroupName, other.AdGroupName)
	fill(&a.Keyword, other.Keyword)
	fill(&a.Device, other.Device)
	fill(&a.GCLID, other.GCLID)
	fill(&a.TrafficSource, other.TrafficSource)
	fill(&a.URL, other.URL)
	return changed
}

// Enrichment holds property-lookup results. Written by enrichment
// providers, never by the visitor.
type Enrichment struct {
	OwnerName         string          `json:"owner_name,omitempty"`
	EstimatedValue    int64           `json:"estimated_value,omitempty"` // in dollars
	MaxEstimatedValue int64           `json:"max_estimated_value,omitempty"`
	PropertyRecord    json.RawMessage `json:"property_record,omitempty"` // opaque pass-through
}

// Answer is one qualifying-question response. Answers are ordered and
// append-only as the multi-step qualifier advances.
type Answer struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Lead is the central entity: one visitor's partially-completed funnel
// session, mutated in place and upserted to the CRM as it fills in.
type Lead struct {
	LocalID  string `json:"local_id"`
	RemoteID string `json:"remote_id,omitempty"`

	Name   FieldValue `json:"name"`
	Phone  FieldValue `json:"phone"`
	Email  FieldValue `json:"email"`
	Street FieldValue `json:"street"`
	City   FieldValue `json:"city"`
	Zip    FieldValue `json:"zip"`

	Attribution Attribution `json:"attribution"`
	Enrichment  Enrichment  `json:"enrichment"`

	LeadStage         string   `json:"lead_stage"`
	QualifyingAnswers []Answer `json:"qualifying_answers,omitempty"`

	Submitting          bool      `json:"submitting"`
	Submitted           bool      `json:"submitted"`
	LastSubmissionError string    `json:"last_submission_error,omitempty"`
	LastSyncedAt        time.Time `json:"last_synced_at,omitzero"`
}

// IdentityField returns the named identity field value. Non-identity
// fields return the zero FieldValue.
func (l Lead) IdentityField(f Field) FieldValue {
	switch f {
	case FieldName:
		return l.Name
	case FieldPhone:
		return l.Phone
	case FieldEmail:
		return l.Email
	case FieldStreet:
		return l.Street
	case FieldCity:
		return l.City
	case FieldZip:
		return l.Zip
	}
	return FieldValue{}
}

// Clone returns a deep copy safe to hand to subscribers and snapshots.
func (l Lead) Clone() Lead {
	out := l
	if l.QualifyingAnswers != nil {
		out.QualifyingAnswers = make([]Answer, len(l.QualifyingAnswers))
		copy(out.QualifyingAnswers, l.QualifyingAnswers)
	}
	if l.Enrichment.PropertyRecord != nil {
		out.Enrichment.PropertyRecord = make(json.RawMessage, len(l.Enrichment.PropertyRecord))
		copy(out.Enrichment.PropertyRecord, l.Enrichment.PropertyRecord)
	}
	return out
}

// Patch is a partial update applied to a Lead. Nil fields are left
// untouched. RemoteID and Attribution carry write-once semantics,
// enforced by the store.
type Patch struct {
	RemoteID *string

	Name   *FieldValue
	Phone  *FieldValue
	Email  *FieldValue
	Street *FieldValue
	City   *FieldValue
	Zip    *FieldValue

	Attribution *Attribution
	Enrichment  *Enrichment

	LeadStage *string
	Answer    *Answer // appended, or updated in place when the key already exists

	Submitting          *bool
	Submitted           *bool
	LastSubmissionError *string
	LastSyncedAt        *time.Time
}

// Sync status constants.
const (
	SyncStatusIdle    = "idle"
	SyncStatusSyncing = "syncing"
	SyncStatusError   = "error"
)

// Submission outcome labels recorded in the journal.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeExhausted = "exhausted"
)

// Submission kinds recorded in the journal.
const (
	KindFullUpsert  = "full_upsert"
	KindLightweight = "lightweight"
	KindEnrichment  = "enrichment_record"
	KindVerifyCode  = "verify_code"
)

// String pointer helper used by patch construction.
func StringPtr(s string) *string { return &s }

// BoolPtr helper used by patch construction.
func BoolPtr(b bool) *bool { return &b }
