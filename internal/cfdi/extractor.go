// Package cfdi extracts the recipient identity from CFDI 4.0 payroll XML
// files carrying the Nómina 1.2 complement.
//
// Only two attributes matter to the dispatcher:
//
//	<cfdi:Comprobante xmlns:cfdi="http://www.sat.gob.mx/cfd/4" ...>
//	  <cfdi:Receptor Nombre="ANA LÓPEZ" .../>
//	  <cfdi:Complemento>
//	    <nomina12:Nomina xmlns:nomina12="http://www.sat.gob.mx/nomina12" ...>
//	      <nomina12:Receptor Curp="ABCD010101HDFXXX01" .../>
//
// No schema validation is done beyond finding those two values.
package cfdi

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/nominas/recibos-dispatcher/internal/types"
)

// Namespace URIs of the CFDI 4.0 and Nómina 1.2 schemas.
const (
	NamespaceCFDI   = "http://www.sat.gob.mx/cfd/4"
	NamespaceNomina = "http://www.sat.gob.mx/nomina12"
)

const (
	receptorElement = "Receptor"
	nameAttribute   = "Nombre"
	curpAttribute   = "Curp"
)

// ErrMissingFields is wrapped by every extraction failure: unreadable or
// malformed XML, or a missing recipient element or attribute.
var ErrMissingFields = errors.New("recipient name or CURP not found")

// Extract reads the XML file at path and returns its recipient identity.
//
// The first cfdi:Receptor and the first nomina12:Receptor below the root are
// used, as a path query would pick them. The whole document is read so that a
// malformed file is rejected even when both values appear early.
func Extract(path string) (types.PayrollDocument, error) {
	f, err := os.Open(path)
	if err != nil {
		return types.PayrollDocument{}, fmt.Errorf("%w: %v", ErrMissingFields, err)
	}
	defer f.Close()

	doc, err := Decode(f)
	if err != nil {
		return types.PayrollDocument{}, err
	}
	doc.Path = path
	return doc, nil
}

// Decode extracts the recipient identity from r. The returned document has
// no Path.
func Decode(r io.Reader) (types.PayrollDocument, error) {
	var (
		nameElem, curpElem *xml.StartElement
		depth              int
	)

	decoder := xml.NewDecoder(r)
	// Some payroll systems still stamp encoding="ISO-8859-1".
	decoder.CharsetReader = charset.NewReaderLabel
	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return types.PayrollDocument{}, fmt.Errorf("%w: %v", ErrMissingFields, err)
		}

		switch el := tok.(type) {
		case xml.StartElement:
			depth++
			if depth == 1 || el.Name.Local != receptorElement {
				continue
			}
			switch el.Name.Space {
			case NamespaceCFDI:
				if nameElem == nil {
					c := el.Copy()
					nameElem = &c
				}
			case NamespaceNomina:
				if curpElem == nil {
					c := el.Copy()
					curpElem = &c
				}
			}
		case xml.EndElement:
			depth--
		}
	}

	if nameElem == nil {
		return types.PayrollDocument{}, fmt.Errorf("%w: cfdi:Receptor element not found", ErrMissingFields)
	}
	if curpElem == nil {
		return types.PayrollDocument{}, fmt.Errorf("%w: nomina12:Receptor element not found", ErrMissingFields)
	}

	name := attr(nameElem, nameAttribute)
	if name == "" {
		return types.PayrollDocument{}, fmt.Errorf("%w: cfdi:Receptor has no %s", ErrMissingFields, nameAttribute)
	}
	curp := strings.ToUpper(strings.TrimSpace(attr(curpElem, curpAttribute)))
	if curp == "" {
		return types.PayrollDocument{}, fmt.Errorf("%w: nomina12:Receptor has no %s", ErrMissingFields, curpAttribute)
	}

	return types.PayrollDocument{
		DisplayName:  name,
		IdentityCode: curp,
	}, nil
}

// attr returns the value of the unqualified attribute local on el.
func attr(el *xml.StartElement, local string) string {
	for _, a := range el.Attr {
		if a.Name.Space == "" && a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}
