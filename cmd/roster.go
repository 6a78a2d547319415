// =============================================================================
// Recibos Dispatcher - Roster Command
// =============================================================================
//
// This file defines the 'roster' command, which summarizes the employee
// roster and lists its rows.
//
// COMMAND USAGE:
//   recibos roster [--search TEXT] [--limit N]
//
// =============================================================================

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nominas/recibos-dispatcher/internal/logger"
	"github.com/nominas/recibos-dispatcher/internal/names"
	"github.com/nominas/recibos-dispatcher/internal/roster"
)

var (
	// rosterSearch filters rows by name.
	rosterSearch string

	// rosterLimit caps the listed rows; 0 lists all.
	rosterLimit int
)

var rosterCmd = &cobra.Command{
	Use:   "roster",
	Short: "Show roster statistics and rows",
	Long: `The roster command loads the configured roster file and prints how many rows
it has, how many carry a valid, missing or malformed email, and how many
distinct names a run would use. Rows are listed with the search key used
to match XML recipient names.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runRoster()
	},
}

func init() {
	rootCmd.AddCommand(rosterCmd)

	rosterCmd.Flags().StringVar(&rosterSearch, "search", "", "Only list rows whose name contains TEXT")
	rosterCmd.Flags().IntVar(&rosterLimit, "limit", 20, "Maximum rows to list (0 for all)")
}

func runRoster() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.Get()

	stats, err := roster.Preview(cfg.RosterFile, rosterOptions(cfg, &log))
	if err != nil {
		return err
	}

	fmt.Printf("=== Roster: %s ===\n", cfg.RosterFile)
	fmt.Printf("Rows:            %d\n", stats.Total())
	fmt.Printf("Valid emails:    %d\n", stats.ValidEmails)
	fmt.Printf("Missing emails:  %d\n", stats.MissingEmails)
	fmt.Printf("Invalid emails:  %d\n", stats.InvalidEmails)
	fmt.Printf("Distinct names:  %d\n\n", stats.DistinctKeys)

	rows := stats.Rows
	if rosterSearch != "" {
		rows = stats.Search(rosterSearch)
		fmt.Printf("%d row(s) match %q\n", len(rows), rosterSearch)
	}

	shown := rows
	if rosterLimit > 0 && len(shown) > rosterLimit {
		shown = shown[:rosterLimit]
	}
	for _, row := range shown {
		fmt.Printf("  %5d  %-40s %-35s %s\n", row.Line, row.Name, row.Email, names.SearchKey(row.Name))
	}
	if len(shown) < len(rows) {
		fmt.Printf("  ... %d more (use --limit 0 to list all)\n", len(rows)-len(shown))
	}

	return nil
}
