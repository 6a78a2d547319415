// =============================================================================
// Recibos Dispatcher - Process Command
// =============================================================================
//
// This file defines the 'process' command, which runs a dispatch over the
// configured XML and PDF directories.
//
// COMMAND USAGE:
//   recibos process [flags]
//
// FLAGS:
//   --dry-run           : Log renames and sends without performing them
//   --detect-duplicates : Warn when a CURP appears in more than one PDF
//
// PROCESSING PIPELINE:
//   1. Load configuration and check paths and mail credentials
//   2. Load the roster (fatal on error)
//   3. Build the PDF locator and the notifier
//   4. Run the reconciliation pipeline, printing progress per document
//   5. Print the summary and write the summary report
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/nominas/recibos-dispatcher/internal/config"
	"github.com/nominas/recibos-dispatcher/internal/logger"
	"github.com/nominas/recibos-dispatcher/internal/notify"
	"github.com/nominas/recibos-dispatcher/internal/receipts"
	"github.com/nominas/recibos-dispatcher/internal/reconcile"
	"github.com/nominas/recibos-dispatcher/internal/roster"
	"github.com/nominas/recibos-dispatcher/internal/types"
	"github.com/nominas/recibos-dispatcher/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// dryRun logs renames and sends without performing them.
var dryRun bool

// detectDuplicates overrides pdf.detect_duplicates.
var detectDuplicates bool

// =============================================================================
// PROCESS COMMAND DEFINITION
// =============================================================================

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Match XML files to PDF receipts, rename the PDFs and email them",
	Long: `The process command reads every XML file of the XML directory, extracts the
recipient name and CURP, finds the PDF receipt containing that CURP, renames
it to NAME-CURP.pdf and emails the XML and the PDF to the address found in
the roster.

Documents are processed one at a time. A document that fails (missing XML
data, no PDF, no roster entry, send error) is reported and the run moves on.
An existing NAME-CURP.pdf is never overwritten.

With --dry-run nothing is renamed and nothing is sent; the run log shows
what would have happened.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runProcess(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().BoolVar(
		&dryRun,
		"dry-run",
		false,
		"Log renames and sends without performing them",
	)

	processCmd.Flags().BoolVar(
		&detectDuplicates,
		"detect-duplicates",
		false,
		"Warn when a CURP is found in more than one PDF (the first match is still used)",
	)
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runProcess(ctx context.Context) error {
	// =========================================================================
	// STEP 1: LOAD CONFIGURATION
	// =========================================================================

	fmt.Println("=== Recibos Dispatcher ===")
	fmt.Println("Loading configuration...")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if dryRun {
		cfg.Mail.Transport = notify.TransportDryRun
	}
	if detectDuplicates {
		cfg.PDF.DetectDuplicates = true
	}
	if err := cfg.ValidateForRun(); err != nil {
		return fmt.Errorf("configuration check failed:\n%w", err)
	}

	log := logger.Get()

	// =========================================================================
	// STEP 2: LOAD ROSTER
	// =========================================================================

	fmt.Printf("Loading roster %s...\n", cfg.RosterFile)

	dir, err := roster.Load(cfg.RosterFile, rosterOptions(cfg, &log))
	if err != nil {
		return err
	}
	fmt.Printf("Loaded %d roster entr(ies)\n", dir.Len())

	// =========================================================================
	// STEP 3: BUILD LOCATOR AND NOTIFIER
	// =========================================================================

	locator := receipts.NewLocator(receipts.Config{
		Dir:              cfg.PDFDir,
		Extractor:        &receipts.PDFTextExtractor{MaxFileSize: cfg.PDF.MaxFileSize},
		DetectDuplicates: cfg.PDF.DetectDuplicates,
		Logger:           &log,
	})

	notifier, err := newNotifier(ctx, cfg, &log)
	if err != nil {
		return fmt.Errorf("failed to set up %s transport: %w", cfg.Mail.Transport, err)
	}

	// =========================================================================
	// STEP 4: RUN PIPELINE
	// =========================================================================

	if dryRun {
		fmt.Println("Dry run: no file will be renamed and no email will be sent.")
	}

	pipeline := reconcile.New(reconcile.Config{
		XMLDir:   cfg.XMLDir,
		Locator:  locator,
		Roster:   dir,
		Notifier: notifier,
		DryRun:   dryRun,
		Logger:   &log,
		Progress: printProgress,
	})

	report, runErr := pipeline.Run(ctx)
	if report == nil {
		return runErr
	}

	// =========================================================================
	// STEP 5: PRINT SUMMARY
	// =========================================================================

	printSummary(report)

	fm := utils.NewFileManager(cfg.XMLDir, cfg.PDFDir, cfg.ReportDir)
	if fm.ReportDir != "" {
		if err := fm.EnsureReportDir(); err != nil {
			log.Warn().Err(err).Msg("summary report not written")
		} else if path, err := utils.WriteSummaryReport(report.SummaryReport(), fm.ReportDir); err != nil {
			log.Warn().Err(err).Msg("summary report not written")
		} else {
			fmt.Printf("\nSummary report written to %s\n", path)
		}
	}

	return runErr
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// newNotifier builds the notifier selected by mail.transport.
func newNotifier(ctx context.Context, cfg *config.MainConfig, log *zerolog.Logger) (notify.Notifier, error) {
	switch cfg.Mail.Transport {
	case notify.TransportGmail:
		return notify.NewGmail(ctx, notify.GmailConfig{
			CredentialsPath: cfg.Mail.GmailCredentials,
			TokenPath:       cfg.Mail.GmailToken,
			Sender:          cfg.Mail.Sender,
			Logger:          log,
		})
	case notify.TransportDryRun:
		return notify.NewDryRun(log), nil
	default:
		return notify.NewSMTP(notify.SMTPConfig{
			Host:     cfg.Mail.SMTPHost,
			Port:     cfg.Mail.SMTPPort,
			Sender:   cfg.Mail.Sender,
			Password: cfg.Mail.Password,
			Logger:   log,
		}), nil
	}
}

// printProgress renders pipeline events as one line per document.
func printProgress(e reconcile.Event) {
	if e.Index == 0 {
		if e.Total == 0 {
			fmt.Println("No XML files found in the XML directory.")
			return
		}
		fmt.Printf("Processing %d file(s)...\n", e.Total)
		return
	}

	if e.Status.Succeeded() {
		fmt.Printf("  ✓ [%d/%d] %s: %s\n", e.Index, e.Total, e.File, e.Message)
	} else {
		fmt.Printf("  ✗ [%d/%d] %s: %s\n", e.Index, e.Total, e.File, e.Message)
	}
}

func printSummary(report *reconcile.Report) {
	s := report.Summary

	fmt.Println("\n=== Processing Complete ===")
	fmt.Printf("Run ID:          %s\n", s.RunID)
	fmt.Printf("XML files:       %d\n", s.Total)
	fmt.Printf("Processed:       %d\n", s.Processed)
	fmt.Printf("Successful:      %d\n", s.Succeeded)
	fmt.Printf("Errors:          %d\n", s.Failed)
	fmt.Printf("Time elapsed:    %s\n", s.Elapsed.Round(time.Millisecond))

	if s.Failed > 0 {
		fmt.Println("\nBy status:")
		for _, status := range types.AllStatuses {
			if n := s.ByStatus[status]; n > 0 {
				fmt.Printf("  %-26s %d\n", status.Label()+":", n)
			}
		}

		fmt.Println("\nFailed documents:")
		for _, o := range report.Failures() {
			fmt.Printf("  ✗ %s: %s\n", o.XMLFile, o.Status.Label())
		}
	}
}
