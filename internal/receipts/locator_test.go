package receipts

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

// plainTextExtractor treats every "PDF" as a text file and fails for files
// whose content starts with "CORRUPT".
type plainTextExtractor struct {
	calls map[string]int
}

func (e *plainTextExtractor) ExtractText(path string) (string, error) {
	if e.calls == nil {
		e.calls = make(map[string]int)
	}
	e.calls[filepath.Base(path)]++

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if bytes.HasPrefix(data, []byte("CORRUPT")) {
		return "", errors.New("not a PDF")
	}
	return string(data), nil
}

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestLocate(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"a_corrupt.pdf": "CORRUPT ABCD010101HDFXXX01",
		"b_other.pdf":   "Recibo de nómina CURP: ZZZZ999999MDFYYY09",
		"c_match.pdf":   "Recibo de nómina CURP: ABCD010101HDFXXX01",
		"d_notes.txt":   "ABCD010101HDFXXX01",
	})
	extractor := &plainTextExtractor{}
	loc := NewLocator(Config{Dir: dir, Extractor: extractor})

	tests := []struct {
		name     string
		code     string
		expected string
		err      error
	}{
		{"match after corrupt candidate", "ABCD010101HDFXXX01", "c_match.pdf", nil},
		{"other file", "ZZZZ999999MDFYYY09", "b_other.pdf", nil},
		{"unknown code", "QQQQ000000HDFQQQ00", "", ErrNotFound},
		{"empty code", "", "", ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			receipt, err := loc.Locate(tt.code)
			if !errors.Is(err, tt.err) {
				t.Fatalf("Locate(%q) error = %v, expected %v", tt.code, err, tt.err)
			}
			if receipt.OriginalName != tt.expected {
				t.Errorf("Locate(%q) = %q, expected %q", tt.code, receipt.OriginalName, tt.expected)
			}
			if tt.err == nil && receipt.Path != filepath.Join(dir, tt.expected) {
				t.Errorf("Path = %q", receipt.Path)
			}
		})
	}

	if extractor.calls["d_notes.txt"] != 0 {
		t.Error("non-PDF file should not be scanned")
	}
	for name, n := range extractor.calls {
		if n > 1 {
			t.Errorf("%s extracted %d times, expected cached text", name, n)
		}
	}
}

func TestLocateFirstMatchStopsScan(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"1.pdf": "ABCD010101HDFXXX01",
		"2.pdf": "ABCD010101HDFXXX01",
	})
	extractor := &plainTextExtractor{}
	loc := NewLocator(Config{Dir: dir, Extractor: extractor})

	receipt, err := loc.Locate("ABCD010101HDFXXX01")
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if receipt.OriginalName != "1.pdf" {
		t.Errorf("expected first match, got %q", receipt.OriginalName)
	}
	if extractor.calls["2.pdf"] != 0 {
		t.Error("scan should stop at the first match")
	}
}

func TestLocateDetectDuplicates(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"1.pdf": "ABCD010101HDFXXX01",
		"2.pdf": "copy of ABCD010101HDFXXX01",
	})
	var logs bytes.Buffer
	logger := zerolog.New(&logs)
	loc := NewLocator(Config{Dir: dir, Extractor: &plainTextExtractor{}, DetectDuplicates: true, Logger: &logger})

	receipt, err := loc.Locate("ABCD010101HDFXXX01")
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if receipt.OriginalName != "1.pdf" {
		t.Errorf("expected first match to win, got %q", receipt.OriginalName)
	}
	if !strings.Contains(logs.String(), "more than one PDF") || !strings.Contains(logs.String(), "2.pdf") {
		t.Errorf("expected duplicate warning, got %q", logs.String())
	}
}

func TestLocateCorruptWarningLogged(t *testing.T) {
	dir := writeFiles(t, map[string]string{"bad.pdf": "CORRUPT"})
	var logs bytes.Buffer
	logger := zerolog.New(&logs)
	loc := NewLocator(Config{Dir: dir, Extractor: &plainTextExtractor{}, Logger: &logger})

	if _, err := loc.Locate("ABCD010101HDFXXX01"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if !strings.Contains(logs.String(), "invalid PDF skipped") {
		t.Errorf("expected warning for invalid PDF, got %q", logs.String())
	}
}

func TestLocateMissingDir(t *testing.T) {
	loc := NewLocator(Config{Dir: filepath.Join(t.TempDir(), "missing"), Extractor: &plainTextExtractor{}})

	_, err := loc.Locate("ABCD010101HDFXXX01")
	var dirErr *DirError
	if !errors.As(err, &dirErr) {
		t.Fatalf("expected *DirError, got %v", err)
	}
}

func TestRenamedKeepsCache(t *testing.T) {
	dir := writeFiles(t, map[string]string{"recibo1.pdf": "ABCD010101HDFXXX01"})
	extractor := &plainTextExtractor{}
	loc := NewLocator(Config{Dir: dir, Extractor: extractor})

	receipt, err := loc.Locate("ABCD010101HDFXXX01")
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}

	target := filepath.Join(dir, "ANA_LOPEZ-ABCD010101HDFXXX01.pdf")
	if err := os.Rename(receipt.Path, target); err != nil {
		t.Fatal(err)
	}
	loc.Renamed(receipt.Path, target)

	again, err := loc.Locate("ABCD010101HDFXXX01")
	if err != nil {
		t.Fatalf("Locate after rename: %v", err)
	}
	if again.Path != target {
		t.Errorf("Path = %q, expected %q", again.Path, target)
	}
	if extractor.calls["ANA_LOPEZ-ABCD010101HDFXXX01.pdf"] != 0 {
		t.Error("renamed file should reuse cached text")
	}
}
