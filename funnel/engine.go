// ABOUTME: Lead synchronization engine wiring the store, trigger rules, queues, and CRM adapter
// ABOUTME: Exposes the funnel entry points the UI layer calls; talks back only via store subscription
package funnel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/quickclose/leadsync/analytics"
	"github.com/quickclose/leadsync/enrich"
	"github.com/quickclose/leadsync/models"
	"github.com/quickclose/leadsync/places"
	"github.com/quickclose/leadsync/queue"
	"github.com/quickclose/leadsync/storage"
	"github.com/quickclose/leadsync/store"
	"github.com/quickclose/leadsync/trigger"
	"github.com/quickclose/leadsync/validate"
)

// localIDKey is the only key the engine persists to durable storage.
const localIDKey = "local_id"

// Name length bounds applied to the contact form.
const (
	nameMinLen = 2
	nameMaxLen = 100
)

// ErrCodeRejected is returned when the CRM rejects a verification
// code. Unlike background sync failures, this one is surfaced: a wrong
// or expired code gates a real business decision.
var ErrCodeRejected = errors.New("verification code rejected")

// CRM is the remote adapter surface the engine consumes.
type CRM interface {
	UpsertLead(ctx context.Context, lead models.Lead) (string, error)
	VerifyCode(ctx context.Context, code, remoteID, cookie string) (bool, error)
	SubmitEnrichmentRecord(ctx context.Context, record json.RawMessage) error
}

// Deps are the engine's collaborators. CRM is required; the rest are
// optional.
type Deps struct {
	CRM      CRM
	Session  storage.Store
	Journal  queue.Journal
	Enricher enrich.Provider
	Places   places.Provider
	Tracker  *analytics.Tracker
}

// Engine is one visitor session's lead synchronization engine.
type Engine struct {
	cfg     *Config
	leads   *store.Store
	rules   *trigger.Rules
	sub     *queue.Submitter
	records *queue.RecordQueue
	crm     CRM
	journal queue.Journal

	enricher enrich.Provider
	places   places.Provider
	tracker  *analytics.Tracker

	mu        sync.Mutex
	prev      models.Lead
	nextLimit int
	closed    bool

	unsub func()
	wg    sync.WaitGroup
}

// New builds an engine. The local lead ID is loaded from durable
// storage or generated and persisted; when storage fails the engine
// falls back to an in-memory ID for the session and keeps going.
func New(cfg *Config, deps Deps) (*Engine, error) {
	if deps.CRM == nil {
		return nil, fmt.Errorf("funnel: CRM adapter is required")
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}
	if cfg.ContactFormMaxAttempts <= 0 {
		cfg.ContactFormMaxAttempts = DefaultConfig().ContactFormMaxAttempts
	}
	if deps.Tracker == nil {
		deps.Tracker = analytics.NewTracker()
	}

	localID := loadLocalID(deps.Session)
	leads := store.New(localID)

	e := &Engine{
		cfg:   cfg,
		leads: leads,
		rules: trigger.NewRules(cfg.TypingThrottle()),
		sub: queue.NewSubmitter(deps.CRM, leads, queue.Options{
			MaxAttempts: cfg.MaxAttempts,
			Journal:     deps.Journal,
		}),
		records:  queue.NewRecordQueue(deps.CRM, queue.Options{Journal: deps.Journal}),
		crm:      deps.CRM,
		journal:  deps.Journal,
		enricher: deps.Enricher,
		places:   deps.Places,
		tracker:  deps.Tracker,
		prev:     leads.Get(),
	}
	e.unsub = leads.Subscribe(e.onChange)

	if e.tracker.FireOnce("session_started") {
		log.Printf("funnel: session started for lead %s", localID)
	}

	return e, nil
}

// loadLocalID reads the stable session lead ID, generating and
// persisting one when absent. Storage failure is a warning, never a
// blocker.
func loadLocalID(session storage.Store) string {
	if session == nil {
		return uuid.NewString()
	}

	id, err := session.Get(localIDKey)
	if err != nil {
		log.Printf("funnel: session storage unavailable, using in-memory lead id: %v", err)
		return uuid.NewString()
	}
	if id != "" {
		return id
	}

	id = uuid.NewString()
	if err := session.Set(localIDKey, id); err != nil {
		log.Printf("funnel: failed to persist lead id, continuing in memory: %v", err)
	}
	return id
}

// Lead returns the current lead snapshot.
func (e *Engine) Lead() models.Lead {
	return e.leads.Get()
}

// Store exposes the lead store so the UI layer can subscribe. This is
// the engine's only callback channel into the UI.
func (e *Engine) Store() *store.Store {
	return e.leads
}

// InitLead seeds campaign attribution from the landing URL. Attribution
// is write-once: repeat calls only fill fields still empty.
func (e *Engine) InitLead(attr models.Attribution) {
	e.leads.Patch(models.Patch{Attribution: &attr})
}

// UpdateField applies one form field change. Validation errors are
// returned to the caller and never queued for submission.
func (e *Engine) UpdateField(field models.Field, value string, prov models.Provenance) error {
	fv := models.FieldValue{Value: value, Provenance: prov}

	switch field {
	case models.FieldPhone:
		if value != "" {
			res := validate.Phone(value)
			if !res.Valid {
				return res.Err
			}
			fv.Value = res.Normalized
		}
		e.leads.Patch(models.Patch{Phone: &fv})
	case models.FieldEmail:
		if err := validate.Email(value); err != nil {
			return err
		}
		e.leads.Patch(models.Patch{Email: &fv})
	case models.FieldName:
		if value != "" {
			if err := validate.Name(value, nameMinLen, nameMaxLen); err != nil {
				return err
			}
		}
		e.leads.Patch(models.Patch{Name: &fv})
	case models.FieldStreet:
		e.leads.Patch(models.Patch{Street: &fv})
	case models.FieldCity:
		e.leads.Patch(models.Patch{City: &fv})
	case models.FieldZip:
		e.leads.Patch(models.Patch{Zip: &fv})
	default:
		return fmt.Errorf("unknown field %q", field)
	}
	return nil
}

// SelectPlace applies a resolved autocomplete selection and kicks off
// property enrichment in the background when a provider is wired.
func (e *Engine) SelectPlace(d places.Details) {
	street := d.Street
	if street == "" {
		street = d.FormattedAddress
	}
	stage := models.StageAddressSelected
	e.leads.Patch(models.Patch{
		Street:    &models.FieldValue{Value: street, Provenance: models.ProvenanceAutocomplete},
		City:      &models.FieldValue{Value: d.City, Provenance: models.ProvenanceAutocomplete},
		Zip:       &models.FieldValue{Value: d.Zip, Provenance: models.ProvenanceAutocomplete},
		LeadStage: &stage,
	})

	if e.tracker.FireOnce("address_selected") {
		log.Printf("funnel: address selected for lead %s", e.leads.Get().LocalID)
	}

	if e.enricher != nil {
		e.mu.Lock()
		if e.closed {
			e.mu.Unlock()
			return
		}
		e.wg.Add(1)
		e.mu.Unlock()

		address := d.FormattedAddress
		go func() {
			defer e.wg.Done()
			res, err := e.enricher.LookupProperty(context.Background(), address)
			if err != nil {
				log.Printf("funnel: property lookup failed: %v", err)
				return
			}
			e.RecordEnrichment(*res)
		}()
	}
}

// AddressPredictions proxies autocomplete lookups for the UI layer.
func (e *Engine) AddressPredictions(ctx context.Context, text string) ([]places.Prediction, error) {
	if e.places == nil {
		return nil, fmt.Errorf("no places provider configured")
	}
	return e.places.Predictions(ctx, text)
}

// SubmitContactInfo validates and applies the contact form in one
// patch. This is the funnel's highest-value conversion point, so its
// sync gets the raised attempt bound.
func (e *Engine) SubmitContactInfo(name, phone, email string) error {
	if err := validate.Name(name, nameMinLen, nameMaxLen); err != nil {
		return err
	}
	phoneRes := validate.Phone(phone)
	if !phoneRes.Valid {
		return phoneRes.Err
	}
	if err := validate.Email(email); err != nil {
		return err
	}

	e.mu.Lock()
	e.nextLimit = e.cfg.ContactFormMaxAttempts
	e.mu.Unlock()

	stage := models.StageContactProvided
	e.leads.Patch(models.Patch{
		Name:      &models.FieldValue{Value: name, Provenance: models.ProvenanceManual},
		Phone:     &models.FieldValue{Value: phoneRes.Normalized, Provenance: models.ProvenanceManual},
		Email:     &models.FieldValue{Value: email, Provenance: models.ProvenanceManual},
		LeadStage: &stage,
	})

	if e.tracker.FireOnce("contact_submitted") {
		log.Printf("funnel: contact info submitted for lead %s", e.leads.Get().LocalID)
	}
	return nil
}

// AnswerQualifier records one qualifying-question answer. Whether it
// reaches the CRM depends on the trigger rules' phone gating.
func (e *Engine) AnswerQualifier(key, value string) {
	stage := models.StageQualifying
	e.leads.Patch(models.Patch{
		Answer:    &models.Answer{Key: key, Value: value},
		LeadStage: &stage,
	})
}

// SubmitVerificationCode checks an SMS code against the CRM. Unlike
// background sync failures this outcome is surfaced to the caller.
func (e *Engine) SubmitVerificationCode(ctx context.Context, code string) error {
	lead := e.leads.Get()
	if lead.RemoteID == "" {
		return fmt.Errorf("lead has not been registered with the CRM yet")
	}

	verified, err := e.crm.VerifyCode(ctx, code, lead.RemoteID, lead.LocalID)
	if err != nil {
		e.recordVerify(lead.LocalID, models.OutcomeFailed, err.Error())
		return fmt.Errorf("code verification failed: %w", err)
	}
	if !verified {
		e.recordVerify(lead.LocalID, models.OutcomeFailed, ErrCodeRejected.Error())
		return ErrCodeRejected
	}

	e.recordVerify(lead.LocalID, models.OutcomeSucceeded, "")
	stage := models.StagePhoneVerified
	e.leads.Patch(models.Patch{LeadStage: &stage})
	return nil
}

// RecordEnrichment stores a property lookup result and offers the raw
// record to the enrichment upload queue.
func (e *Engine) RecordEnrichment(res enrich.Result) {
	e.leads.Patch(models.Patch{Enrichment: &models.Enrichment{
		OwnerName:         res.OwnerName,
		EstimatedValue:    res.EstimatedValue,
		MaxEstimatedValue: res.MaxEstimatedValue,
		PropertyRecord:    res.RawRecord,
	}})
	e.records.Offer(e.leads.Get().LocalID, res.RawRecord)
}

// Close stops scheduling new syncs. In-flight requests complete and
// their remote ID write-backs still land.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.mu.Unlock()

	e.unsub()
	e.sub.Close()
}

// Wait blocks until all background submissions have finished. Intended
// for CLI and test use; a browser-style host never waits.
func (e *Engine) Wait() {
	e.wg.Wait()
	e.sub.Wait()
	e.records.Wait()
}

// onChange is the store subscription: every patch flows through the
// trigger rules, and matching intents go to the submission queues.
func (e *Engine) onChange(lead models.Lead, changed []models.Field) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	prev := e.prev
	e.prev = lead
	limit := e.nextLimit
	e.nextLimit = 0
	e.mu.Unlock()

	intent := e.rules.Evaluate(prev, lead, changed)
	if intent == nil {
		return
	}

	if intent.Kind == trigger.KindLightweight {
		e.sub.FireLightweight(*intent)
		return
	}
	if limit > 0 {
		e.sub.EnqueueLimit(*intent, limit)
		return
	}
	e.sub.Enqueue(*intent)
}

func (e *Engine) recordVerify(leadID, outcome, errMsg string) {
	if e.journal == nil {
		return
	}
	e.journal.RecordAttempt(leadID, models.KindVerifyCode, outcome, errMsg, 0)
}
