// Package roster loads the employee -> email directory used to address
// payroll receipts. Rows are keyed by names.SearchKey so that the name printed
// in a CFDI matches the spreadsheet regardless of accents, case or spacing.
package roster

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/nominas/recibos-dispatcher/internal/csvparser"
	"github.com/nominas/recibos-dispatcher/internal/names"
	"github.com/nominas/recibos-dispatcher/internal/xlsxparser"
)

// Default column headers, as used by the payroll department's spreadsheet.
const (
	DefaultNameColumn  = "Nombre"
	DefaultEmailColumn = "Correo"
)

// Options controls how the roster file is read.
type Options struct {
	// Sheet selects the worksheet of an XLSX roster. Empty means first sheet.
	Sheet string

	// NameColumn and EmailColumn are the required header names.
	NameColumn  string
	EmailColumn string

	// Encoding and Delimiter apply to CSV rosters only.
	Encoding  string
	Delimiter string

	// Logger receives collision and skipped-row warnings. Nil discards them.
	Logger *zerolog.Logger
}

func (o *Options) defaults() {
	if o.NameColumn == "" {
		o.NameColumn = DefaultNameColumn
	}
	if o.EmailColumn == "" {
		o.EmailColumn = DefaultEmailColumn
	}
	if o.Logger == nil {
		nop := zerolog.Nop()
		o.Logger = &nop
	}
}

// RosterLoadError reports a roster that cannot be used at all. It is fatal for
// a run: no partial roster is ever returned.
type RosterLoadError struct {
	Path string
	Err  error
}

func (e *RosterLoadError) Error() string {
	return fmt.Sprintf("roster %s: %v", e.Path, e.Err)
}

func (e *RosterLoadError) Unwrap() error { return e.Err }

// Row is one data row of the roster file.
type Row struct {
	// Line is the 1-based row number in the source, header included.
	Line  int
	Name  string
	Email string
}

// Roster maps search keys to email addresses.
type Roster struct {
	emails map[string]string
}

// New builds a roster from name -> email pairs. Names are normalized with
// names.SearchKey; it is mainly useful for tests and callers with in-memory
// directories.
func New(entries map[string]string) *Roster {
	r := &Roster{emails: make(map[string]string, len(entries))}
	for name, email := range entries {
		r.emails[names.SearchKey(name)] = email
	}
	return r
}

// Load reads the roster at path. The format is chosen by extension: .xlsx and
// .xlsm go through excelize, .csv through encoding/csv.
//
// When two rows normalize to the same key the later row wins and the
// collision is logged. Rows with an empty email are skipped with a warning
// and never overwrite an earlier address.
func Load(path string, opts Options) (*Roster, error) {
	opts.defaults()

	rows, err := ReadRows(path, opts)
	if err != nil {
		return nil, err
	}

	r := &Roster{emails: make(map[string]string, len(rows))}
	seen := make(map[string]int, len(rows))

	for _, row := range rows {
		email := strings.TrimSpace(row.Email)
		if email == "" {
			opts.Logger.Warn().
				Int("row", row.Line).
				Str("name", row.Name).
				Msg("roster row without email skipped")
			continue
		}

		key := names.SearchKey(row.Name)
		if key == "" {
			opts.Logger.Warn().Int("row", row.Line).Msg("roster row without name skipped")
			continue
		}

		if prev, dup := seen[key]; dup {
			opts.Logger.Warn().
				Str("key", key).
				Int("previous_row", prev).
				Int("row", row.Line).
				Str("previous_email", r.emails[key]).
				Str("email", email).
				Msg("duplicate roster name, later row wins")
		}
		seen[key] = row.Line
		r.emails[key] = email
	}

	return r, nil
}

// ReadRows reads the data rows of the roster at path, validating that the
// required columns are present. Headers are compared after trimming.
func ReadRows(path string, opts Options) ([]Row, error) {
	opts.defaults()

	table, err := readTable(path, opts)
	if err != nil {
		return nil, &RosterLoadError{Path: path, Err: err}
	}

	header := table[0]
	columnMap := make(map[string]int, len(header))
	for i, col := range header {
		columnMap[strings.TrimSpace(col)] = i
	}

	nameIdx, ok := columnMap[opts.NameColumn]
	if !ok {
		return nil, &RosterLoadError{Path: path, Err: fmt.Errorf("missing required column: %s", opts.NameColumn)}
	}
	emailIdx, ok := columnMap[opts.EmailColumn]
	if !ok {
		return nil, &RosterLoadError{Path: path, Err: fmt.Errorf("missing required column: %s", opts.EmailColumn)}
	}

	getValue := func(row []string, idx int) string {
		if idx < len(row) {
			return row[idx]
		}
		return ""
	}

	rows := make([]Row, 0, len(table)-1)
	for i, raw := range table[1:] {
		if isRowEmpty(raw) {
			continue
		}
		rows = append(rows, Row{
			Line:  i + 2,
			Name:  getValue(raw, nameIdx),
			Email: getValue(raw, emailIdx),
		})
	}

	return rows, nil
}

// Lookup returns the address registered for name, normalizing it first.
func (r *Roster) Lookup(name string) (string, bool) {
	email, ok := r.emails[names.SearchKey(name)]
	return email, ok
}

// Len returns the number of distinct keys.
func (r *Roster) Len() int {
	return len(r.emails)
}

func readTable(path string, opts Options) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return xlsxparser.ReadSheet(path, opts.Sheet)
	case ".csv":
		return csvparser.ReadAll(path, csvparser.Settings{
			Delimiter: opts.Delimiter,
			Encoding:  opts.Encoding,
		})
	default:
		return nil, fmt.Errorf("unsupported roster format %q", filepath.Ext(path))
	}
}

func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
