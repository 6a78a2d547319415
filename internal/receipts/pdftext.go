package receipts

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// DefaultMaxFileSize bounds the PDFs the extractor will open (50 MB).
const DefaultMaxFileSize int64 = 50 * 1024 * 1024

// TextExtractor returns the text content of a PDF file.
type TextExtractor interface {
	ExtractText(path string) (string, error)
}

// PDFTextExtractor extracts text with pdfcpu: the document is read and
// validated, then each page content stream is scanned for text-showing
// operators. It handles the plain Type1/TrueType text that payroll systems
// emit; glyph-indexed (Identity-H) fonts yield no usable text.
type PDFTextExtractor struct {
	// MaxFileSize rejects larger files. Zero means DefaultMaxFileSize.
	MaxFileSize int64
}

// ExtractText returns the text of every page of the PDF at path, pages
// separated by a newline.
func (e *PDFTextExtractor) ExtractText(path string) (string, error) {
	limit := e.MaxFileSize
	if limit <= 0 {
		limit = DefaultMaxFileSize
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}
	if info.Size() > limit {
		return "", fmt.Errorf("file too large: %d bytes (max %d)", info.Size(), limit)
	}

	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(f, conf)
	if err != nil {
		return "", fmt.Errorf("pdfcpu read: %w", err)
	}

	var all strings.Builder
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
		if err != nil || r == nil {
			continue
		}
		data, err := io.ReadAll(r)
		if err != nil || len(data) == 0 {
			continue
		}
		if all.Len() > 0 {
			all.WriteByte('\n')
		}
		all.WriteString(textFromContentStream(data))
	}

	return all.String(), nil
}

// textFromContentStream collects the strings shown by the Tj, TJ, ' and "
// operators of a page content stream. Strings of one TJ array are joined
// without separators so kerned identifiers stay contiguous; Td/TD add a space
// and T*/ET a newline.
func textFromContentStream(data []byte) string {
	var (
		sb      strings.Builder
		pending []string
	)

	flush := func() {
		for _, s := range pending {
			sb.WriteString(s)
		}
	}

	for i := 0; i < len(data); {
		c := data[i]
		switch {
		case isPDFSpace(c), c == '[', c == ']', c == '{', c == '}':
			i++
		case c == '%':
			for i < len(data) && data[i] != '\n' && data[i] != '\r' {
				i++
			}
		case c == '(':
			raw, n := scanLiteral(data[i:])
			pending = append(pending, decodeLiteral(raw))
			i += n
		case c == '<' && i+1 < len(data) && data[i+1] == '<', c == '>' && i+1 < len(data) && data[i+1] == '>':
			i += 2
		case c == '<':
			end := bytes.IndexByte(data[i:], '>')
			if end < 0 {
				i = len(data)
				continue
			}
			pending = append(pending, decodeHex(data[i+1:i+end]))
			i += end + 1
		case c == ')' || c == '>':
			i++
		default:
			start := i
			if c == '/' {
				i++
			}
			for i < len(data) && !isPDFSpace(data[i]) && !isPDFDelimiter(data[i]) {
				i++
			}
			word := string(data[start:i])
			if c == '/' || isNumber(word) {
				continue
			}

			switch word {
			case "Tj", "TJ":
				flush()
			case "'", `"`:
				sb.WriteByte('\n')
				flush()
			case "Td", "TD":
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
			case "T*", "ET":
				sb.WriteByte('\n')
			case "ID":
				// Inline image data runs until the EI operator.
				if end := bytes.Index(data[i:], []byte("EI")); end >= 0 {
					i += end + 2
				} else {
					i = len(data)
				}
			}
			pending = pending[:0]
		}
	}

	return sb.String()
}

// scanLiteral returns the body of the literal string starting at data[0] ==
// '(' and the number of bytes consumed. Balanced inner parentheses are kept.
func scanLiteral(data []byte) ([]byte, int) {
	depth := 0
	for i := 0; i < len(data); i++ {
		switch data[i] {
		case '\\':
			i++
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return data[1:i], i + 1
			}
		}
	}
	return data[1:], len(data)
}

func isPDFSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f', 0:
		return true
	}
	return false
}

func isPDFDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isNumber(word string) bool {
	if word == "" {
		return false
	}
	for _, r := range word {
		if (r < '0' || r > '9') && r != '.' && r != '-' && r != '+' {
			return false
		}
	}
	return true
}

// decodeLiteral resolves the escape sequences of a PDF literal string.
func decodeLiteral(raw []byte) string {
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' || i+1 >= len(raw) {
			sb.WriteByte(raw[i])
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case 'b', 'f':
		case '\\', '(', ')':
			sb.WriteByte(raw[i])
		default:
			if raw[i] < '0' || raw[i] > '7' {
				sb.WriteByte(raw[i])
				continue
			}
			// Octal escape, up to three digits.
			val := int(raw[i] - '0')
			for n := 0; n < 2 && i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7'; n++ {
				i++
				val = val*8 + int(raw[i]-'0')
			}
			sb.WriteByte(byte(val))
		}
	}
	return sb.String()
}

// decodeHex decodes a hex string operand; an odd final digit is padded with 0
// as the PDF reference requires. Invalid input yields nothing.
func decodeHex(raw []byte) string {
	digits := bytes.Map(func(r rune) rune {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			return -1
		}
		return r
	}, raw)
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	out := make([]byte, hex.DecodedLen(len(digits)))
	if _, err := hex.Decode(out, digits); err != nil {
		return ""
	}
	return string(out)
}
