// =============================================================================
// Recibos Dispatcher - Field Validation
// =============================================================================
//
// Format checks for the two identifiers the dispatcher handles:
//   - CURP: the 18-character government ID joining XML and PDF
//   - Email: the roster address a receipt is mailed to
//
// VALIDATION STRATEGY:
//   These checks never block a document. The pipeline matches CURPs by plain
//   substring and the notifier reports bad addresses on its own; a failed
//   check here becomes a warning in the run log and a count in the roster
//   preview.
//
// =============================================================================

package validation

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
)

// =============================================================================
// VALIDATION ERROR TYPE
// =============================================================================

// ValidationError describes one field that failed a format check.
type ValidationError struct {
	// Field is the logical field name ("curp", "email").
	Field string

	// Value is the offending value.
	Value string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s' with value '%s': %s", e.Field, e.Value, e.Message)
}

// =============================================================================
// CURP
// =============================================================================

// curpPattern follows the RENAPO layout: 4 letters, birth date YYMMDD, sex,
// 5 letters (state + consonants), homonym differentiator, check digit.
var curpPattern = regexp.MustCompile(`^[A-Z]{4}\d{6}[HMX][A-Z]{5}[A-Z0-9]\d$`)

// ValidateCURP checks that code has the shape of a CURP.
// The code is expected upper-cased, as the extractor produces it.
func ValidateCURP(code string) error {
	if len(code) != 18 {
		return &ValidationError{
			Field:   "curp",
			Value:   code,
			Message: fmt.Sprintf("expected 18 characters, got %d", len(code)),
		}
	}
	if !curpPattern.MatchString(code) {
		return &ValidationError{
			Field:   "curp",
			Value:   code,
			Message: "does not match the CURP layout",
		}
	}
	return nil
}

// =============================================================================
// EMAIL
// =============================================================================

// ValidateEmail checks that addr is a single bare RFC 5322 address.
// Display-name forms such as "Ana <ana@x.com>" are rejected because the
// roster column is expected to hold the address only.
func ValidateEmail(addr string) error {
	trimmed := strings.TrimSpace(addr)
	if trimmed == "" {
		return &ValidationError{Field: "email", Value: addr, Message: "empty address"}
	}

	parsed, err := mail.ParseAddress(trimmed)
	if err != nil {
		return &ValidationError{Field: "email", Value: addr, Message: err.Error()}
	}
	if parsed.Address != trimmed {
		return &ValidationError{Field: "email", Value: addr, Message: "expected a bare address"}
	}

	return nil
}
