// ABOUTME: Entry point for the leadsync CLI
// ABOUTME: Routes to simulate, journal, and config commands based on arguments
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/quickclose/leadsync/cli"
	"github.com/quickclose/leadsync/db"
)

const version = "0.2.0"

func main() {
	// Local env overrides for development; missing file is fine
	_ = godotenv.Load(".env.local")

	// Global flags
	showVersion := flag.Bool("version", false, "Show version and exit")
	dbPath := flag.String("db-path", "", "Journal database path (default: ~/.local/share/leadsync/journal.db)")
	initOnly := flag.Bool("init", false, "Initialize journal database and exit")

	_ = flag.CommandLine.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("leadsync version %s\n", version)
		os.Exit(0)
	}

	args := flag.Args()

	if len(args) == 0 {
		printUsage()
		os.Exit(0)
	}

	command := args[0]
	commandArgs := args[1:]

	switch command {
	case "simulate":
		database, err := db.OpenDatabase(getDatabasePath(*dbPath))
		if err != nil {
			log.Fatalf("Failed to open journal database: %v", err)
		}
		defer database.Close()

		if err := cli.SimulateCommand(database, commandArgs); err != nil {
			log.Fatalf("Error: %v", err)
		}

	case "journal":
		finalDBPath := getDatabasePath(*dbPath)
		database, err := db.OpenDatabase(finalDBPath)
		if err != nil {
			log.Fatalf("Failed to open journal database: %v", err)
		}
		defer database.Close()

		log.Printf("Journal database: %s", finalDBPath)

		if *initOnly {
			log.Println("Journal database initialized successfully")
			os.Exit(0)
		}

		if len(commandArgs) == 0 {
			fmt.Println("Error: journal requires a subcommand")
			printUsage()
			os.Exit(1)
		}

		journalCommand := commandArgs[0]
		journalArgs := commandArgs[1:]

		switch journalCommand {
		case "attempts":
			if err := cli.JournalAttemptsCommand(database, journalArgs); err != nil {
				log.Fatalf("Error: %v", err)
			}
		case "state":
			if err := cli.JournalStateCommand(database, journalArgs); err != nil {
				log.Fatalf("Error: %v", err)
			}
		default:
			fmt.Printf("Unknown journal command: %s\n\n", journalCommand)
			printUsage()
			os.Exit(1)
		}

	case "config":
		if len(commandArgs) == 0 {
			fmt.Println("Error: config requires a subcommand")
			printUsage()
			os.Exit(1)
		}

		configCommand := commandArgs[0]
		configArgs := commandArgs[1:]

		switch configCommand {
		case "show":
			if err := cli.ConfigShowCommand(configArgs); err != nil {
				log.Fatalf("Error: %v", err)
			}
		case "set":
			if err := cli.ConfigSetCommand(configArgs); err != nil {
				log.Fatalf("Error: %v", err)
			}
		default:
			fmt.Printf("Unknown config command: %s\n\n", configCommand)
			printUsage()
			os.Exit(1)
		}

	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func getDatabasePath(dbPath string) string {
	if dbPath != "" {
		return dbPath
	}
	return db.DefaultPath()
}

func printUsage() {
	fmt.Printf(`leadsync v%s - Lead synchronization engine CLI

USAGE:
  leadsync [global flags] <command> [subcommand] [flags]

GLOBAL FLAGS:
  --version              Show version and exit
  --db-path <path>       Journal database path (default: ~/.local/share/leadsync/journal.db)
  --init                 Initialize journal database and exit (use with 'journal')

COMMANDS:
  simulate               Drive a scripted visitor session against a CRM endpoint
  journal                Inspect recorded submission attempts and sync state
  config                 Show or edit engine configuration

SIMULATE:
  leadsync simulate --crm-url <url> [flags]
    --crm-url <url>          CRM base URL (required)
    --lead-type <type>       Lead type sent on registration
    --street <address>       Street address to enter
    --city <city>            City
    --zip <zip>              ZIP code
    --name <name>            Contact name
    --phone <phone>          Contact phone number
    --email <email>          Contact email
    --answers <k=v,...>      Qualifying answers, comma separated
    --code <code>            Verification code to submit after registration
    --session-file <path>    Session file for a stable lead ID

JOURNAL COMMANDS:
  leadsync journal attempts --lead-id <id>   List submission attempts
    --limit <n>                                Max results (default: 50)

  leadsync journal state --lead-id <id>      Show latest sync state

CONFIG COMMANDS:
  leadsync config show                       Print effective configuration
  leadsync config set [flags]                Update configuration values
    --crm-url <url>                            CRM base URL
    --lead-type <type>                         Lead type
    --max-attempts <n>                         Default submission attempt bound
    --contact-form-max-attempts <n>            Contact form attempt bound

EXAMPLES:
  # Smoke-test a CRM endpoint with a full scripted session
  leadsync simulate --crm-url http://localhost:8930 \
    --street "123 Main St" --name "Jane Seller" \
    --phone 4045551234 --email jane@example.com

  # Inspect what the engine did
  leadsync journal attempts --lead-id <lead-id>

`, version)
}
