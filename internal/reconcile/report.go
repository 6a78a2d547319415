package reconcile

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/nominas/recibos-dispatcher/internal/types"
	"github.com/nominas/recibos-dispatcher/pkg/utils"
)

// =============================================================================
// MESSAGE TEMPLATE
// =============================================================================

const (
	subjectPrefix = "Recibo de Nómina - "

	bodyTemplate = "Estimado(a) %s,\n\n" +
		"Por medio del presente reciba un cordial saludo y al mismo tiempo enviamos en archivo adjunto el CFDI con el formato electrónico XML(s) de las remuneraciones cubiertas en el período indicado en el título del correo.\n\n" +
		"Saludos cordiales."
)

// Subject returns the email subject for an employee.
func Subject(displayName string) string {
	return subjectPrefix + displayName
}

// Body returns the fixed email body addressed to an employee.
func Body(displayName string) string {
	return fmt.Sprintf(bodyTemplate, displayName)
}

// =============================================================================
// OUTCOME STRUCTURE
// =============================================================================

// Outcome is the result of processing one XML file.
type Outcome struct {
	// XMLPath is the path of the input document; XMLFile its base name.
	XMLPath string
	XMLFile string

	// DisplayName and IdentityCode are empty when extraction failed.
	DisplayName  string
	IdentityCode string

	// PDFPath is the receipt that was (or would have been) attached.
	PDFPath string

	// Recipient is the roster address, when one was found.
	Recipient string

	Status types.Status

	// Err is the cause of a failed status. Nil for StatusSent.
	Err error
}

// =============================================================================
// RUN SUMMARY
// =============================================================================

// RunSummary aggregates the outcomes of a run.
type RunSummary struct {
	// RunID identifies the run in logs and reports.
	RunID string

	// Total is the number of XML files found.
	Total int

	// Processed counts documents that reached the notifier, sent or not.
	Processed int

	// Succeeded + Failed == Total once the run completes.
	Succeeded int
	Failed    int

	ByStatus map[types.Status]int

	DryRun bool

	StartedAt time.Time
	Timestamp time.Time
	Elapsed   time.Duration
}

func newRunSummary(runID string, start time.Time, dryRun bool) RunSummary {
	byStatus := make(map[types.Status]int, len(types.AllStatuses))
	for _, s := range types.AllStatuses {
		byStatus[s] = 0
	}
	return RunSummary{
		RunID:     runID,
		ByStatus:  byStatus,
		DryRun:    dryRun,
		StartedAt: start,
	}
}

func (s *RunSummary) add(o Outcome) {
	s.ByStatus[o.Status]++
	if o.Status == types.StatusSent || o.Status == types.StatusSendFailed {
		s.Processed++
	}
	if o.Status.Succeeded() {
		s.Succeeded++
	} else {
		s.Failed++
	}
}

// =============================================================================
// LOG ENTRIES AND PROGRESS EVENTS
// =============================================================================

// Log categories.
const (
	CategoryRun    = "run"
	CategoryXML    = "xml"
	CategoryPDF    = "pdf"
	CategoryRename = "rename"
	CategoryRoster = "roster"
	CategoryEmail  = "email"
)

// LogEntry is one line of the run log returned with the report.
type LogEntry struct {
	Time     time.Time
	Level    zerolog.Level
	Category string
	File     string
	Message  string
}

// Event is delivered to the progress callback once before the first
// document (Index 0) and after each document (Index 1..Total).
type Event struct {
	Index   int
	Total   int
	File    string
	Status  types.Status
	Message string
}

// =============================================================================
// REPORT
// =============================================================================

// Report is everything a run produced, in processing order.
type Report struct {
	Summary  RunSummary
	Outcomes []Outcome
	Entries  []LogEntry
}

// Failures returns the outcomes that did not end in StatusSent.
func (r *Report) Failures() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if !o.Status.Succeeded() {
			failed = append(failed, o)
		}
	}
	return failed
}

// SummaryReport converts the report for utils.WriteSummaryReport.
func (r *Report) SummaryReport() utils.SummaryReport {
	s := r.Summary
	out := utils.SummaryReport{
		RunID:     s.RunID,
		StartTime: s.StartedAt,
		EndTime:   s.Timestamp,
		DryRun:    s.DryRun,
		Total:     s.Total,
		Processed: s.Processed,
		Succeeded: s.Succeeded,
		Failed:    s.Failed,
	}

	for _, status := range types.AllStatuses {
		if n := s.ByStatus[status]; n > 0 {
			out.ByStatus = append(out.ByStatus, utils.StatusCount{Label: status.Label(), Count: n})
		}
	}

	for _, o := range r.Outcomes {
		line := utils.DocumentLine{
			File:   o.XMLFile,
			Status: o.Status.Label(),
			Failed: !o.Status.Succeeded(),
		}
		switch {
		case o.Err != nil:
			line.Detail = o.Err.Error()
		case o.Recipient != "":
			line.Detail = fmt.Sprintf("%s -> %s", filepath.Base(o.PDFPath), o.Recipient)
		}
		out.Documents = append(out.Documents, line)
	}

	return out
}
