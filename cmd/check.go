// =============================================================================
// Recibos Dispatcher - Check Command
// =============================================================================
//
// This file defines the 'check' command, which verifies a configuration
// without renaming or sending anything.
//
// COMMAND USAGE:
//   recibos check
//
// CHECKS:
//   - XML and PDF directories exist, with their file counts
//   - The roster loads and has entries
//   - The mail transport has its credentials
//
// =============================================================================

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nominas/recibos-dispatcher/internal/logger"
	"github.com/nominas/recibos-dispatcher/internal/roster"
	"github.com/nominas/recibos-dispatcher/pkg/utils"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify directories, roster and mail settings",
	Long: `The check command loads the configuration the same way 'process' does and
reports whether a run could start: the XML and PDF directories exist, the
roster file loads, and the selected mail transport has its credentials.

Nothing is renamed or sent.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runCheck()
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.Get()

	fmt.Println("=== Configuration Check ===")
	fmt.Printf("Config file:     %s\n", cfgFile)
	fmt.Printf("Mail transport:  %s\n\n", cfg.Mail.Transport)

	printDirCheck("XML directory", cfg.XMLDir, ".xml")
	printDirCheck("PDF directory", cfg.PDFDir, ".pdf")

	if r, err := roster.Load(cfg.RosterFile, rosterOptions(cfg, &log)); err != nil {
		fmt.Printf("  ✗ Roster          %s: %v\n", cfg.RosterFile, err)
	} else {
		fmt.Printf("  ✓ Roster          %s (%d entries)\n", cfg.RosterFile, r.Len())
	}

	if err := cfg.ValidateForRun(); err != nil {
		fmt.Println("\nConfiguration is NOT ready:")
		return err
	}

	fmt.Println("\nConfiguration is ready.")
	return nil
}

func printDirCheck(label, dir, extension string) {
	n, err := utils.CountFiles(dir, extension)
	if err != nil {
		fmt.Printf("  ✗ %-15s %s: %v\n", label, dir, err)
		return
	}
	fmt.Printf("  ✓ %-15s %s (%d %s file(s))\n", label, dir, n, extension)
}
