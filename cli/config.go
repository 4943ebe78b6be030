// ABOUTME: Config CLI commands
// ABOUTME: Shows and edits the engine configuration file
package cli

import (
	"encoding/json"
	"flag"
	"fmt"

	"github.com/quickclose/leadsync/funnel"
)

// ConfigShowCommand prints the effective configuration after env
// overrides.
func ConfigShowCommand(args []string) error {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	_ = fs.Parse(args)

	cfg, err := funnel.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	out, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}

	fmt.Printf("Config file: %s\n", funnel.ConfigPath())
	fmt.Println(string(out))
	return nil
}

// ConfigSetCommand updates configuration values and writes them back.
func ConfigSetCommand(args []string) error {
	fs := flag.NewFlagSet("set", flag.ExitOnError)
	crmURL := fs.String("crm-url", "", "CRM base URL")
	leadType := fs.String("lead-type", "", "Lead type sent on registration")
	maxAttempts := fs.Int("max-attempts", 0, "Default submission attempt bound")
	contactAttempts := fs.Int("contact-form-max-attempts", 0, "Contact form attempt bound")
	_ = fs.Parse(args)

	cfg, err := funnel.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	changed := false
	if *crmURL != "" {
		cfg.CRMBaseURL = *crmURL
		changed = true
	}
	if *leadType != "" {
		cfg.LeadType = *leadType
		changed = true
	}
	if *maxAttempts > 0 {
		cfg.MaxAttempts = *maxAttempts
		changed = true
	}
	if *contactAttempts > 0 {
		cfg.ContactFormMaxAttempts = *contactAttempts
		changed = true
	}

	if !changed {
		return fmt.Errorf("nothing to set, see --help for flags")
	}

	if err := funnel.SaveConfig(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("✓ Config saved: %s\n", funnel.ConfigPath())
	return nil
}
