// ABOUTME: Journal CLI commands for inspecting recorded submission attempts and sync state
// ABOUTME: Reads the local sqlite journal; never talks to the CRM
package cli

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/quickclose/leadsync/db"
)

// JournalAttemptsCommand lists recorded submission attempts for a lead.
func JournalAttemptsCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("attempts", flag.ExitOnError)
	leadID := fs.String("lead-id", "", "Lead ID (required)")
	limit := fs.Int("limit", 50, "Maximum results")
	_ = fs.Parse(args)

	if *leadID == "" {
		return fmt.Errorf("--lead-id is required")
	}

	logs, err := db.ListSubmissionLogs(database, *leadID, *limit)
	if err != nil {
		return fmt.Errorf("failed to list submission attempts: %w", err)
	}

	if len(logs) == 0 {
		fmt.Println("No submission attempts recorded.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ATTEMPTED\tKIND\tOUTCOME\tDURATION\tERROR")
	for _, entry := range logs {
		errMsg := ""
		if entry.ErrorMessage != nil {
			errMsg = *entry.ErrorMessage
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%dms\t%s\n",
			entry.AttemptedAt.Format("2006-01-02 15:04:05"),
			entry.Kind,
			entry.Outcome,
			entry.DurationMS,
			errMsg,
		)
	}
	_ = w.Flush()

	fmt.Printf("\n%d attempt(s)\n", len(logs))
	return nil
}

// JournalStateCommand shows the latest sync state for a lead.
func JournalStateCommand(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("state", flag.ExitOnError)
	leadID := fs.String("lead-id", "", "Lead ID (required)")
	_ = fs.Parse(args)

	if *leadID == "" {
		return fmt.Errorf("--lead-id is required")
	}

	state, err := db.GetSyncState(database, *leadID)
	if err != nil {
		return fmt.Errorf("failed to load sync state: %w", err)
	}
	if state == nil {
		fmt.Println("No sync state recorded for this lead.")
		return nil
	}

	fmt.Printf("Lead:       %s\n", state.LeadID)
	if state.RemoteID != nil {
		fmt.Printf("Remote ID:  %s\n", *state.RemoteID)
	}
	fmt.Printf("Status:     %s\n", state.Status)
	if state.ErrorMessage != nil && *state.ErrorMessage != "" {
		fmt.Printf("Last error: %s\n", *state.ErrorMessage)
	}
	fmt.Printf("Updated:    %s\n", state.UpdatedAt.Format("2006-01-02 15:04:05"))

	return nil
}
