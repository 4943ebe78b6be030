// ABOUTME: Simulate CLI command driving a scripted visitor session against a CRM endpoint
// ABOUTME: Useful for smoke-testing an adapter deployment without a browser in front of it
package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/quickclose/leadsync/crm"
	"github.com/quickclose/leadsync/db"
	"github.com/quickclose/leadsync/funnel"
	"github.com/quickclose/leadsync/models"
	"github.com/quickclose/leadsync/storage"
)

// SimulateCommand runs a scripted funnel session against a live CRM
// endpoint and reports what the adapter did.
func SimulateCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("simulate", flag.ExitOnError)
	crmURL := fs.String("crm-url", "", "CRM base URL (required)")
	leadType := fs.String("lead-type", "", "Lead type sent on registration (default from config)")
	street := fs.String("street", "", "Street address to enter")
	city := fs.String("city", "", "City")
	zip := fs.String("zip", "", "ZIP code")
	name := fs.String("name", "", "Contact name")
	phone := fs.String("phone", "", "Contact phone number")
	email := fs.String("email", "", "Contact email")
	answers := fs.String("answers", "", "Qualifying answers as key=value pairs, comma separated")
	code := fs.String("code", "", "Verification code to submit after registration")
	source := fs.String("source", "simulate", "Traffic source recorded in attribution")
	sessionFile := fs.String("session-file", "", "Session file for a stable lead ID (default: in-memory)")
	_ = fs.Parse(args)

	if *crmURL == "" {
		return fmt.Errorf("--crm-url is required")
	}

	cfg, err := funnel.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.CRMBaseURL = *crmURL
	if *leadType != "" {
		cfg.LeadType = *leadType
	}

	var session storage.Store = storage.NewMemStore()
	if *sessionFile != "" {
		fileStore, err := storage.NewFileStore(*sessionFile)
		if err != nil {
			return fmt.Errorf("failed to open session file: %w", err)
		}
		session = fileStore
	}

	client := crm.NewClient(cfg.CRMBaseURL, cfg.LeadType, cfg.RequestTimeout())
	engine, err := funnel.New(cfg, funnel.Deps{
		CRM:     client,
		Session: session,
		Journal: db.NewJournal(database),
	})
	if err != nil {
		return fmt.Errorf("failed to start engine: %w", err)
	}
	defer engine.Close()

	engine.InitLead(models.Attribution{TrafficSource: *source, URL: *crmURL})

	if *street != "" {
		if err := engine.UpdateField(models.FieldStreet, *street, models.ProvenanceManual); err != nil {
			return fmt.Errorf("street rejected: %w", err)
		}
	}
	if *city != "" {
		if err := engine.UpdateField(models.FieldCity, *city, models.ProvenanceManual); err != nil {
			return fmt.Errorf("city rejected: %w", err)
		}
	}
	if *zip != "" {
		if err := engine.UpdateField(models.FieldZip, *zip, models.ProvenanceManual); err != nil {
			return fmt.Errorf("zip rejected: %w", err)
		}
	}

	if *name != "" || *phone != "" || *email != "" {
		if err := engine.SubmitContactInfo(*name, *phone, *email); err != nil {
			return fmt.Errorf("contact info rejected: %w", err)
		}
	}

	for _, pair := range strings.Split(*answers, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("invalid answer %q, expected key=value", pair)
		}
		engine.AnswerQualifier(key, value)
	}

	engine.Wait()

	lead := engine.Lead()
	if *code != "" {
		if lead.RemoteID == "" {
			return fmt.Errorf("no remote lead registered, cannot verify code")
		}
		if err := engine.SubmitVerificationCode(context.Background(), *code); err != nil {
			log.Printf("verification failed: %v", err)
		} else {
			fmt.Println("✓ Verification code accepted")
		}
		lead = engine.Lead()
	}

	out, err := json.MarshalIndent(lead, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to render lead: %w", err)
	}

	fmt.Printf("✓ Session complete (lead ID: %s)\n", lead.LocalID)
	if lead.RemoteID != "" {
		fmt.Printf("  Remote ID: %s\n", lead.RemoteID)
	}
	if lead.LastSubmissionError != "" {
		fmt.Printf("  Last submission error: %s\n", lead.LastSubmissionError)
	}
	fmt.Println(string(out))

	return nil
}
