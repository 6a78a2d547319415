// =============================================================================
// Recibos Dispatcher - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. Every other command
// is attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (recibos)
//   ├── processCmd (recibos process)
//   ├── checkCmd   (recibos check)
//   ├── rosterCmd  (recibos roster)
//   └── versionCmd (recibos version)
//
// CONFIGURATION:
//   The root command owns the flags shared by all commands and the loading
//   sequence: .env file, config.yaml, environment overrides, logger.
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/nominas/recibos-dispatcher/internal/config"
	"github.com/nominas/recibos-dispatcher/internal/logger"
	"github.com/nominas/recibos-dispatcher/internal/roster"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// envFile holds the path to an optional .env file.
var envFile string

// verbose forces debug logging.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "recibos",
	Short: "Recibos Dispatcher - Match payroll CFDI XML files to PDF receipts and email them",
	Long: `Recibos Dispatcher reads a directory of CFDI 4.0 payroll XML files, finds
the PDF receipt of each employee by the CURP printed in it, renames the PDF
to NAME-CURP.pdf and emails both files to the address listed in the
employee roster.

Key Features:
  - PDF receipts located by text content, not by file name
  - Accent- and case-insensitive roster lookup (XLSX or CSV)
  - SMTP or Gmail API delivery, or a dry run that changes nothing
  - One failing document never stops the batch

Example Usage:
  recibos check                        # Verify paths, roster and mail settings
  recibos process --dry-run            # Show what would be renamed and sent
  recibos process                      # Rename and send
  recibos roster --search lopez        # Inspect the roster`,

	SilenceUsage: true,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. Interrupt and SIGTERM cancel the command
// context, which aborts an email send in progress.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().StringVar(
		&envFile,
		"env",
		"",
		"Path to a .env file (default ./.env when present)",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

// loadConfig runs the configuration sequence shared by the commands and
// initializes logging.
func loadConfig() (*config.MainConfig, error) {
	if err := config.LoadEnvFile(envFile); err != nil {
		return nil, err
	}

	cfg, err := config.LoadMainConfig(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load main config: %w", err)
	}

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	logger.Init(level, cfg.LogFormat)

	return cfg, nil
}

// rosterOptions maps the roster settings to roster.Options.
func rosterOptions(cfg *config.MainConfig, log *zerolog.Logger) roster.Options {
	return roster.Options{
		Sheet:       cfg.Roster.Sheet,
		NameColumn:  cfg.Roster.NameColumn,
		EmailColumn: cfg.Roster.EmailColumn,
		Encoding:    cfg.Roster.Encoding,
		Delimiter:   cfg.Roster.Delimiter,
		Logger:      log,
	}
}
