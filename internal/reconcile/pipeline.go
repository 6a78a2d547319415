// =============================================================================
// Recibos Dispatcher - Reconciliation Pipeline
// =============================================================================
//
// This module contains the core dispatch logic. It walks the XML directory
// and, for each payroll document, finds its PDF receipt, renames it and
// mails both files to the employee.
//
// PIPELINE (per document):
//   1. Extract the recipient name and CURP from the XML
//   2. Derive the canonical file name from the recipient name
//   3. Locate the PDF whose text contains the CURP
//   4. Rename the PDF to {CANONICAL}-{CURP}.pdf unless the target exists
//   5. Look the recipient up in the roster
//   6. Send the XML and the PDF through the notifier
//
// FAILURE ISOLATION:
//   A failing step ends that document with a status and the run moves on.
//   Only an unreadable XML or PDF directory aborts the run.
//
// CONCURRENCY:
//   Documents are processed one at a time, in directory listing order. A
//   Pipeline must not be run concurrently with another run over the same
//   directories.
//
// =============================================================================

package reconcile

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nominas/recibos-dispatcher/internal/cfdi"
	"github.com/nominas/recibos-dispatcher/internal/names"
	"github.com/nominas/recibos-dispatcher/internal/notify"
	"github.com/nominas/recibos-dispatcher/internal/receipts"
	"github.com/nominas/recibos-dispatcher/internal/types"
	"github.com/nominas/recibos-dispatcher/internal/validation"
	"github.com/nominas/recibos-dispatcher/pkg/utils"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrEmailNotFound means the roster has no address for the recipient.
	ErrEmailNotFound = errors.New("recipient not found in roster")

	// ErrXMLDir means the XML directory could not be listed. It is fatal.
	ErrXMLDir = errors.New("XML directory cannot be listed")
)

// =============================================================================
// DEPENDENCIES
// =============================================================================

// ReceiptLocator finds PDF receipts by identity code. *receipts.Locator
// implements it.
type ReceiptLocator interface {
	Locate(code string) (types.ReceiptFile, error)
	Renamed(oldPath, newPath string)
	Dir() string
}

// Directory resolves a recipient name to an email address. *roster.Roster
// implements it.
type Directory interface {
	Lookup(name string) (string, bool)
}

// Config wires a Pipeline.
type Config struct {
	// XMLDir holds the payroll XML files to dispatch.
	XMLDir string

	Locator  ReceiptLocator
	Roster   Directory
	Notifier notify.Notifier

	// DryRun logs renames and sends without performing them.
	DryRun bool

	// Logger mirrors every run log entry. Nil discards.
	Logger *zerolog.Logger

	// Progress, when set, is called synchronously for every Event.
	Progress func(Event)
}

// =============================================================================
// PIPELINE STRUCTURE
// =============================================================================

// Pipeline runs one dispatch over a directory of payroll documents.
type Pipeline struct {
	cfg      Config
	notifier notify.Notifier
	base     zerolog.Logger

	// logger is base tagged with the current run ID.
	logger  zerolog.Logger
	entries []LogEntry
}

// New creates a Pipeline. In dry-run mode the configured notifier is
// replaced by a notify.DryRunNotifier.
func New(cfg Config) *Pipeline {
	base := zerolog.Nop()
	if cfg.Logger != nil {
		base = *cfg.Logger
	}

	notifier := cfg.Notifier
	if cfg.DryRun || notifier == nil {
		notifier = notify.NewDryRun(&base)
	}

	return &Pipeline{
		cfg:      cfg,
		notifier: notifier,
		base:     base,
		logger:   base,
	}
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run processes every XML file of the XML directory and returns the report.
//
// The returned error is non-nil only for conditions that stop the whole run:
// an unreadable XML directory (ErrXMLDir) or PDF directory
// (*receipts.DirError). In the latter case the partial report of the
// documents processed so far is returned alongside the error.
//
// ctx is passed to the notifier; a cancelled context makes the remaining
// sends fail with StatusSendFailed rather than stopping the run.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	p.entries = nil

	runID := uuid.New().String()
	p.logger = p.base.With().Str("run_id", runID).Logger()

	report := &Report{Summary: newRunSummary(runID, start, p.cfg.DryRun)}

	files, err := utils.DiscoverFiles(p.cfg.XMLDir, ".xml")
	if err != nil {
		p.record(zerolog.ErrorLevel, CategoryRun, "", err.Error())
		return nil, fmt.Errorf("%w: %w", ErrXMLDir, err)
	}

	report.Summary.Total = len(files)
	p.record(zerolog.InfoLevel, CategoryRun, "", fmt.Sprintf("%d XML file(s) to process", len(files)))
	p.emit(Event{Total: len(files), Message: "start"})

	for i, path := range files {
		outcome, err := p.processDocument(ctx, path)
		if err != nil {
			p.record(zerolog.ErrorLevel, CategoryRun, outcome.XMLFile, err.Error())
			p.finish(report, start)
			return report, err
		}

		report.Outcomes = append(report.Outcomes, outcome)
		report.Summary.add(outcome)

		msg := outcome.Status.Label()
		if outcome.Err != nil {
			msg = fmt.Sprintf("%s: %v", msg, outcome.Err)
		}
		p.emit(Event{
			Index:   i + 1,
			Total:   len(files),
			File:    outcome.XMLFile,
			Status:  outcome.Status,
			Message: msg,
		})
	}

	p.finish(report, start)
	s := report.Summary
	p.record(zerolog.InfoLevel, CategoryRun, "", fmt.Sprintf(
		"run complete: %d total, %d processed, %d succeeded, %d failed",
		s.Total, s.Processed, s.Succeeded, s.Failed))
	report.Entries = p.entries

	return report, nil
}

// finish stamps the end of the run on the report.
func (p *Pipeline) finish(report *Report, start time.Time) {
	report.Summary.Timestamp = time.Now()
	report.Summary.Elapsed = report.Summary.Timestamp.Sub(start)
	report.Entries = p.entries
}

// processDocument takes one XML file through the pipeline. The error return
// is reserved for fatal conditions; per-document failures are reported in
// the Outcome.
func (p *Pipeline) processDocument(ctx context.Context, path string) (Outcome, error) {
	file := filepath.Base(path)
	outcome := Outcome{XMLPath: path, XMLFile: file}

	// =========================================================================
	// STEP 1: EXTRACT IDENTITY
	// =========================================================================

	doc, err := cfdi.Extract(path)
	if err != nil {
		p.record(zerolog.ErrorLevel, CategoryXML, file, err.Error())
		return p.fail(outcome, types.StatusMissingXMLFields, err), nil
	}
	outcome.DisplayName = doc.DisplayName
	outcome.IdentityCode = doc.IdentityCode

	if err := validation.ValidateCURP(doc.IdentityCode); err != nil {
		p.record(zerolog.WarnLevel, CategoryXML, file, err.Error())
	}

	// =========================================================================
	// STEP 2: CANONICAL FILE NAME
	// =========================================================================

	canonical := names.CanonicalFileName(doc.DisplayName)

	// =========================================================================
	// STEP 3: LOCATE PDF
	// =========================================================================

	receipt, err := p.cfg.Locator.Locate(doc.IdentityCode)
	if err != nil {
		var dirErr *receipts.DirError
		if errors.As(err, &dirErr) {
			return outcome, err
		}
		p.record(zerolog.ErrorLevel, CategoryPDF, file,
			fmt.Sprintf("no PDF contains CURP %s", doc.IdentityCode))
		return p.fail(outcome, types.StatusPDFNotFound, err), nil
	}

	// =========================================================================
	// STEP 4: RENAME PDF
	// =========================================================================

	target := filepath.Join(p.cfg.Locator.Dir(), canonical+"-"+doc.IdentityCode+".pdf")
	pdfPath, err := p.rename(file, receipt, target)
	if err != nil {
		return p.fail(outcome, types.StatusRenameFailed, err), nil
	}
	outcome.PDFPath = pdfPath

	// =========================================================================
	// STEP 5: RESOLVE ADDRESS
	// =========================================================================

	email, ok := p.cfg.Roster.Lookup(doc.DisplayName)
	if !ok {
		p.record(zerolog.ErrorLevel, CategoryRoster, file,
			fmt.Sprintf("no email for %s (key %s)", doc.DisplayName, names.SearchKey(doc.DisplayName)))
		return p.fail(outcome, types.StatusEmailNotFound, ErrEmailNotFound), nil
	}
	outcome.Recipient = email

	if err := validation.ValidateEmail(email); err != nil {
		p.record(zerolog.WarnLevel, CategoryRoster, file, err.Error())
	}

	// =========================================================================
	// STEP 6: SEND
	// =========================================================================

	msg := notify.Message{
		To:          email,
		Subject:     Subject(doc.DisplayName),
		Body:        Body(doc.DisplayName),
		Attachments: []string{path, pdfPath},
	}
	if err := p.notifier.Send(ctx, msg); err != nil {
		p.record(zerolog.ErrorLevel, CategoryEmail, file, fmt.Sprintf("send to %s failed: %v", email, err))
		return p.fail(outcome, types.StatusSendFailed, err), nil
	}

	p.record(zerolog.InfoLevel, CategoryEmail, file, fmt.Sprintf("sent to %s", email))
	outcome.Status = types.StatusSent
	return outcome, nil
}

// rename moves the located receipt to target and returns the path to
// attach. An existing target is never overwritten: the rename is skipped
// and the target is attached.
func (p *Pipeline) rename(file string, receipt types.ReceiptFile, target string) (string, error) {
	switch {
	case receipt.Path == target:
		p.record(zerolog.DebugLevel, CategoryRename, file, "PDF already has its canonical name")
		return target, nil

	case utils.FileExists(target):
		p.record(zerolog.WarnLevel, CategoryRename, file,
			fmt.Sprintf("%s already exists, rename of %s skipped", filepath.Base(target), receipt.OriginalName))
		return target, nil

	case p.cfg.DryRun:
		p.record(zerolog.InfoLevel, CategoryRename, file,
			fmt.Sprintf("dry run: would rename %s to %s", receipt.OriginalName, filepath.Base(target)))
		return receipt.Path, nil
	}

	renamed, err := utils.RenameIfAbsent(receipt.Path, target)
	if err != nil {
		p.record(zerolog.ErrorLevel, CategoryRename, file, err.Error())
		return "", err
	}
	if renamed {
		p.cfg.Locator.Renamed(receipt.Path, target)
		p.record(zerolog.InfoLevel, CategoryRename, file,
			fmt.Sprintf("%s renamed to %s", receipt.OriginalName, filepath.Base(target)))
	}
	return target, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func (p *Pipeline) fail(o Outcome, status types.Status, err error) Outcome {
	o.Status = status
	o.Err = err
	return o
}

// record appends a run log entry and mirrors it to the logger.
func (p *Pipeline) record(level zerolog.Level, category, file, msg string) {
	p.entries = append(p.entries, LogEntry{
		Time:     time.Now(),
		Level:    level,
		Category: category,
		File:     file,
		Message:  msg,
	})

	ev := p.logger.WithLevel(level).Str("category", category)
	if file != "" {
		ev = ev.Str("file", file)
	}
	ev.Msg(msg)
}

func (p *Pipeline) emit(e Event) {
	if p.cfg.Progress != nil {
		p.cfg.Progress(e)
	}
}
