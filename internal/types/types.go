// =============================================================================
// Recibos Dispatcher - Shared Types
// =============================================================================
//
// This package contains the domain types shared by the extractor, the PDF
// locator and the reconciliation pipeline. Keeping them here avoids import
// cycles between:
//   - cfdi
//   - receipts
//   - reconcile
//
// =============================================================================

package types

// =============================================================================
// DOCUMENT TYPES
// =============================================================================

// PayrollDocument is the identity extracted from one CFDI payroll XML file.
// It is immutable once extracted.
type PayrollDocument struct {
	// Path is the location of the source XML file.
	Path string

	// DisplayName is the recipient name exactly as written in the XML
	// (cfdi:Receptor/@Nombre). It may contain accents and mixed case.
	DisplayName string

	// IdentityCode is the recipient CURP (nomina12:Receptor/@Curp),
	// upper-cased.
	IdentityCode string
}

// ReceiptFile is a PDF receipt located by its identity code.
type ReceiptFile struct {
	// Path is the current location of the PDF.
	Path string

	// OriginalName is the base name the file had when it was located.
	OriginalName string
}

// =============================================================================
// OUTCOME STATUS
// =============================================================================

// Status is the terminal state of one document in a run.
type Status string

const (
	// StatusSent means the XML and PDF were mailed to the employee.
	StatusSent Status = "sent"

	// StatusMissingXMLFields means the XML could not be parsed or lacked the
	// recipient name or CURP.
	StatusMissingXMLFields Status = "missing_xml_fields"

	// StatusPDFNotFound means no PDF in the receipts directory contains the CURP.
	StatusPDFNotFound Status = "pdf_not_found"

	// StatusRenameFailed means the matching PDF could not be renamed.
	StatusRenameFailed Status = "rename_failed"

	// StatusEmailNotFound means the roster has no address for the employee.
	StatusEmailNotFound Status = "email_not_found"

	// StatusSendFailed means the notifier returned an error.
	StatusSendFailed Status = "send_failed"
)

// AllStatuses lists every status in pipeline order.
var AllStatuses = []Status{
	StatusSent,
	StatusMissingXMLFields,
	StatusPDFNotFound,
	StatusRenameFailed,
	StatusEmailNotFound,
	StatusSendFailed,
}

// Succeeded reports whether the status is the success terminal state.
func (s Status) Succeeded() bool {
	return s == StatusSent
}

// Label returns the human-readable category shown to operators.
func (s Status) Label() string {
	switch s {
	case StatusSent:
		return "Correo enviado"
	case StatusMissingXMLFields:
		return "Datos incompletos en XML"
	case StatusPDFNotFound:
		return "PDF no encontrado"
	case StatusRenameFailed:
		return "Error al renombrar PDF"
	case StatusEmailNotFound:
		return "Correo no encontrado"
	case StatusSendFailed:
		return "Error al enviar correo"
	default:
		return string(s)
	}
}
