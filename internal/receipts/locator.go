// Package receipts finds the PDF payroll receipt that belongs to a CURP by
// scanning the text of every PDF in a directory.
//
// The scan is linear in the number of PDFs and, across a run, in the number
// of XML files too. Extracted text is cached per file for the lifetime of a
// Locator so each PDF is parsed at most once per run.
package receipts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/nominas/recibos-dispatcher/internal/types"
)

// ErrNotFound means no PDF in the directory contains the identity code.
var ErrNotFound = errors.New("no PDF contains the identity code")

// DirError reports a receipts directory that cannot be listed. It is fatal
// for a run.
type DirError struct {
	Dir string
	Err error
}

func (e *DirError) Error() string {
	return fmt.Sprintf("receipts directory %s: %v", e.Dir, e.Err)
}

func (e *DirError) Unwrap() error { return e.Err }

// Config configures a Locator.
type Config struct {
	// Dir is the directory holding the PDF receipts.
	Dir string

	// Extractor returns PDF text. Nil means a PDFTextExtractor.
	Extractor TextExtractor

	// DetectDuplicates keeps scanning after the first match and logs every
	// other PDF that also contains the code. The first match is still used.
	DetectDuplicates bool

	// Logger receives skipped-candidate and duplicate warnings.
	Logger *zerolog.Logger
}

func (c *Config) defaults() {
	if c.Extractor == nil {
		c.Extractor = &PDFTextExtractor{}
	}
	if c.Logger == nil {
		nop := zerolog.Nop()
		c.Logger = &nop
	}
}

// Locator finds receipts by identity code. It is not safe for concurrent use.
type Locator struct {
	cfg    Config
	logger *zerolog.Logger

	// text caches extracted text by path; failed extractions are cached as
	// errors so a corrupt file is reported once.
	text map[string]cachedText
}

type cachedText struct {
	text string
	err  error
}

// NewLocator creates a Locator for cfg.Dir.
func NewLocator(cfg Config) *Locator {
	cfg.defaults()
	return &Locator{
		cfg:    cfg,
		logger: cfg.Logger,
		text:   make(map[string]cachedText),
	}
}

// Dir returns the receipts directory.
func (l *Locator) Dir() string {
	return l.cfg.Dir
}

// Locate returns the first PDF, in directory listing order, whose text
// contains code. It returns ErrNotFound when none does and a *DirError when
// the directory cannot be read. PDFs whose text cannot be extracted are
// skipped with a warning.
func (l *Locator) Locate(code string) (types.ReceiptFile, error) {
	if code == "" {
		return types.ReceiptFile{}, ErrNotFound
	}

	entries, err := os.ReadDir(l.cfg.Dir)
	if err != nil {
		return types.ReceiptFile{}, &DirError{Dir: l.cfg.Dir, Err: err}
	}

	var found *types.ReceiptFile
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			continue
		}

		path := filepath.Join(l.cfg.Dir, entry.Name())
		text, err := l.extract(path)
		if err != nil {
			continue
		}
		if !strings.Contains(text, code) {
			continue
		}

		if found == nil {
			found = &types.ReceiptFile{Path: path, OriginalName: entry.Name()}
			if !l.cfg.DetectDuplicates {
				break
			}
			continue
		}

		l.logger.Warn().
			Str("curp", code).
			Str("used", found.OriginalName).
			Str("also_matches", entry.Name()).
			Msg("identity code found in more than one PDF")
	}

	if found == nil {
		return types.ReceiptFile{}, ErrNotFound
	}
	return *found, nil
}

// Renamed tells the locator that a PDF moved, carrying its cached text over.
func (l *Locator) Renamed(oldPath, newPath string) {
	if cached, ok := l.text[oldPath]; ok {
		delete(l.text, oldPath)
		l.text[newPath] = cached
	}
}

// extract returns the text of path, consulting the cache first.
func (l *Locator) extract(path string) (string, error) {
	if cached, ok := l.text[path]; ok {
		return cached.text, cached.err
	}

	text, err := l.cfg.Extractor.ExtractText(path)
	if err != nil {
		l.logger.Warn().
			Err(err).
			Str("file", filepath.Base(path)).
			Msg("invalid PDF skipped")
	}
	l.text[path] = cachedText{text: text, err: err}
	return text, err
}
