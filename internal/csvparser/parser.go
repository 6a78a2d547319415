// =============================================================================
// Recibos Dispatcher - CSV Roster Reader
// =============================================================================
//
// Reads a roster exported as CSV. Spreadsheet exports made on Windows are
// frequently Windows-1252 or Latin-1 rather than UTF-8, which would corrupt
// accented employee names and break the name join. The reader therefore
// decodes the configured encoding before handing bytes to encoding/csv.
//
// FEATURES:
//   - Configurable delimiter (comma, semicolon, tab, pipe)
//   - UTF-8 (with or without BOM), Windows-1252 and ISO-8859-1 input
//   - Ragged rows and lazy quotes tolerated
//
// =============================================================================

package csvparser

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// =============================================================================
// SETTINGS
// =============================================================================

// Settings controls how a CSV roster is read.
type Settings struct {
	// Delimiter separates fields. Accepts a literal character or one of
	// "tab", "pipe", "semicolon". Default: ",".
	Delimiter string

	// Encoding of the file: "utf-8" (default), "windows-1252", "iso-8859-1".
	Encoding string
}

// bomUTF8 is stripped from the start of UTF-8 files written by Excel.
var bomUTF8 = []byte{0xEF, 0xBB, 0xBF}

// =============================================================================
// READER
// =============================================================================

// ReadAll reads every record of the CSV file at filePath.
// The first record is the header row; no row is dropped or reshaped.
func ReadAll(filePath string, settings Settings) ([][]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return Read(file, settings)
}

// Read reads every record from r using settings.
func Read(r io.Reader, settings Settings) ([][]string, error) {
	decoded, err := decodingReader(bufio.NewReader(r), settings.Encoding)
	if err != nil {
		return nil, err
	}

	csvReader := csv.NewReader(decoded)
	configureReader(csvReader, settings)

	rows, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("CSV file is empty")
	}

	return rows, nil
}

// configureReader applies the delimiter and the tolerant parsing flags.
func configureReader(reader *csv.Reader, settings Settings) {
	switch strings.ToLower(settings.Delimiter) {
	case "\\t", "tab":
		reader.Comma = '\t'
	case "|", "pipe":
		reader.Comma = '|'
	case ";", "semicolon":
		reader.Comma = ';'
	default:
		if len(settings.Delimiter) > 0 {
			reader.Comma = rune(settings.Delimiter[0])
		} else {
			reader.Comma = ','
		}
	}

	// Rosters are hand-edited; allow ragged rows and stray quotes.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
}

// decodingReader wraps r so it yields UTF-8 for the named encoding.
func decodingReader(r *bufio.Reader, name string) (io.Reader, error) {
	enc, err := lookupEncoding(name)
	if err != nil {
		return nil, err
	}
	if enc != nil {
		return transform.NewReader(r, enc.NewDecoder()), nil
	}

	// UTF-8: drop a leading BOM so the first header compares cleanly.
	if head, err := r.Peek(len(bomUTF8)); err == nil && bytes.Equal(head, bomUTF8) {
		if _, err := r.Discard(len(bomUTF8)); err != nil {
			return nil, fmt.Errorf("failed to skip BOM: %w", err)
		}
	}
	return r, nil
}

// lookupEncoding maps a configured encoding name to a decoder.
// A nil encoding means the input is already UTF-8.
func lookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return nil, nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252, nil
	case "iso-8859-1", "latin-1", "latin1":
		return charmap.ISO8859_1, nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
}
