// =============================================================================
// Recibos Dispatcher - File Manager Utility
// =============================================================================
//
// This module provides the filesystem operations of a dispatch run:
//   - Directory checks before a run
//   - File discovery in directory listing order
//   - No-clobber renames of PDF receipts
//   - The plain-text run summary report
//
// RENAME STRATEGY:
//   - A receipt is renamed in place, inside the PDF directory
//   - An existing target is never overwritten; the rename is skipped
//   - Nothing is copied, moved across directories or deleted
//
// =============================================================================

package utils

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager knows the directories of a dispatch run.
type FileManager struct {
	// XMLDir holds the CFDI payroll XML files.
	XMLDir string

	// PDFDir holds the PDF receipts; renames happen here.
	PDFDir string

	// ReportDir receives run summary reports. Empty disables reports.
	ReportDir string
}

// NewFileManager creates a new FileManager with the specified directories.
func NewFileManager(xmlDir, pdfDir, reportDir string) *FileManager {
	return &FileManager{
		XMLDir:    xmlDir,
		PDFDir:    pdfDir,
		ReportDir: reportDir,
	}
}

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// CheckDirectories verifies that the XML and PDF directories exist. Every
// missing directory is reported.
func (fm *FileManager) CheckDirectories() error {
	var errs []error
	for _, dir := range []string{fm.XMLDir, fm.PDFDir} {
		if err := checkDir(dir); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// EnsureReportDir creates the report directory if reports are enabled.
func (fm *FileManager) EnsureReportDir() error {
	if fm.ReportDir == "" {
		return nil
	}
	if err := os.MkdirAll(fm.ReportDir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", fm.ReportDir, err)
	}
	return nil
}

func checkDir(dir string) error {
	if dir == "" {
		return errors.New("directory not configured")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// DiscoverFiles lists the regular files of dir whose extension matches
// extension, ignoring case. Paths are returned in directory listing order
// (sorted by name). Subdirectories are not scanned.
func DiscoverFiles(dir, extension string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan directory %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if extension == "" || strings.EqualFold(filepath.Ext(entry.Name()), extension) {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}

	return files, nil
}

// CountFiles returns how many files DiscoverFiles would list.
func CountFiles(dir, extension string) (int, error) {
	files, err := DiscoverFiles(dir, extension)
	if err != nil {
		return 0, err
	}
	return len(files), nil
}

// =============================================================================
// RENAMING
// =============================================================================

// RenameIfAbsent renames src to dst unless dst already exists. It reports
// whether the rename happened; an existing dst is not an error.
func RenameIfAbsent(src, dst string) (bool, error) {
	if FileExists(dst) {
		return false, nil
	}
	if err := os.Rename(src, dst); err != nil {
		return false, fmt.Errorf("failed to rename %s: %w", filepath.Base(src), err)
	}
	return true, nil
}

// =============================================================================
// RUN SUMMARY REPORT
// =============================================================================

// SummaryReport is the content of a run summary file.
type SummaryReport struct {
	RunID     string
	StartTime time.Time
	EndTime   time.Time
	DryRun    bool

	Total     int
	Processed int
	Succeeded int
	Failed    int

	// ByStatus lists each outcome label with its count, in display order.
	ByStatus []StatusCount

	// Documents has one line per XML file, in processing order.
	Documents []DocumentLine
}

// StatusCount is one row of the per-status table.
type StatusCount struct {
	Label string
	Count int
}

// DocumentLine describes the outcome of one XML file.
type DocumentLine struct {
	File   string
	Status string
	Detail string
	Failed bool
}

// WriteSummaryReport writes a processing summary to a text file in dir and
// returns its path.
func WriteSummaryReport(summary SummaryReport, dir string) (string, error) {
	// Generate summary file name.
	timestamp := summary.StartTime.Format("20060102_150405")
	summaryFileName := fmt.Sprintf("dispatch_summary_%s.txt", timestamp)
	summaryPath := filepath.Join(dir, summaryFileName)

	file, err := os.Create(summaryPath)
	if err != nil {
		return "", fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	mode := "send"
	if summary.DryRun {
		mode = "dry run"
	}

	duration := summary.EndTime.Sub(summary.StartTime)
	fmt.Fprintf(writer, "Recibos Dispatcher - Run Summary\n"+
		"================================================================================\n\n"+
		"Run Information:\n"+
		"  Run ID:         %s\n"+
		"  Mode:           %s\n"+
		"  Start Time:     %s\n"+
		"  End Time:       %s\n"+
		"  Duration:       %s\n\n"+
		"Statistics:\n"+
		"  XML Files:      %d\n"+
		"  Processed:      %d\n"+
		"  Succeeded:      %d\n"+
		"  Failed:         %d\n\n",
		summary.RunID,
		mode,
		summary.StartTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Format("2006-01-02 15:04:05"),
		duration.String(),
		summary.Total,
		summary.Processed,
		summary.Succeeded,
		summary.Failed)

	if len(summary.ByStatus) > 0 {
		writer.WriteString("By Status:\n")
		for _, sc := range summary.ByStatus {
			fmt.Fprintf(writer, "  %-28s %d\n", sc.Label+":", sc.Count)
		}
		writer.WriteString("\n")
	}

	if len(summary.Documents) > 0 {
		writer.WriteString("Documents:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for _, doc := range summary.Documents {
			mark := "✓"
			if doc.Failed {
				mark = "✗"
			}
			fmt.Fprintf(writer, "  %s %s: %s\n", mark, doc.File, doc.Status)
			if doc.Detail != "" {
				fmt.Fprintf(writer, "      %s\n", doc.Detail)
			}
		}
		writer.WriteString("\n")
	}

	writer.WriteString("================================================================================\n" +
		"End of Summary\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush summary file: %w", err)
	}

	return summaryPath, nil
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// FileExists checks if a file exists. A path that cannot be inspected counts
// as existing.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
