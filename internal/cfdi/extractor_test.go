package cfdi

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleCFDI = `<?xml version="1.0" encoding="UTF-8"?>
<cfdi:Comprobante xmlns:cfdi="http://www.sat.gob.mx/cfd/4" xmlns:nomina12="http://www.sat.gob.mx/nomina12" Version="4.0">
  <cfdi:Emisor Rfc="EMP010101AAA" Nombre="EMPRESA SA DE CV"/>
  <cfdi:Receptor Rfc="LOAA010101AAA" Nombre="Ana López"/>
  <cfdi:Complemento>
    <nomina12:Nomina Version="1.2">
      <nomina12:Emisor RegistroPatronal="Y0000000000"/>
      <nomina12:Receptor Curp="abcd010101hdfxxx01" NumEmpleado="42"/>
    </nomina12:Nomina>
  </cfdi:Complemento>
</cfdi:Comprobante>`

func TestDecode(t *testing.T) {
	doc, err := Decode(strings.NewReader(sampleCFDI))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if doc.DisplayName != "Ana López" {
		t.Errorf("DisplayName = %q", doc.DisplayName)
	}
	if doc.IdentityCode != "ABCD010101HDFXXX01" {
		t.Errorf("IdentityCode = %q, expected upper-cased CURP", doc.IdentityCode)
	}
}

func TestDecodeFailures(t *testing.T) {
	tests := []struct {
		name string
		xml  string
	}{
		{"empty", ""},
		{"not xml", "this is not xml"},
		{"truncated", `<cfdi:Comprobante xmlns:cfdi="http://www.sat.gob.mx/cfd/4"><cfdi:Receptor Nombre="Ana"/>`},
		{"no curp attribute", strings.Replace(sampleCFDI, `Curp="abcd010101hdfxxx01"`, ``, 1)},
		{"empty curp", strings.Replace(sampleCFDI, `Curp="abcd010101hdfxxx01"`, `Curp=""`, 1)},
		{"no name attribute", strings.Replace(sampleCFDI, `Nombre="Ana López"`, ``, 1)},
		{"no nomina complement", `<cfdi:Comprobante xmlns:cfdi="http://www.sat.gob.mx/cfd/4"><cfdi:Receptor Nombre="Ana"/></cfdi:Comprobante>`},
		{"wrong namespace", strings.Replace(sampleCFDI, "http://www.sat.gob.mx/cfd/4", "http://www.sat.gob.mx/cfd/3", 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.xml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrMissingFields) {
				t.Errorf("expected ErrMissingFields, got %v", err)
			}
		})
	}
}

func TestDecodeUsesFirstReceptor(t *testing.T) {
	xml := `<cfdi:Comprobante xmlns:cfdi="http://www.sat.gob.mx/cfd/4" xmlns:nomina12="http://www.sat.gob.mx/nomina12">
  <cfdi:Receptor/>
  <cfdi:Receptor Nombre="Second"/>
  <nomina12:Receptor Curp="ABCD010101HDFXXX01"/>
</cfdi:Comprobante>`

	if _, err := Decode(strings.NewReader(xml)); !errors.Is(err, ErrMissingFields) {
		t.Errorf("expected first receptor without Nombre to fail, got %v", err)
	}
}

func TestDecodeLatin1Declaration(t *testing.T) {
	xml := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n" +
		`<cfdi:Comprobante xmlns:cfdi="http://www.sat.gob.mx/cfd/4" xmlns:nomina12="http://www.sat.gob.mx/nomina12">` +
		"<cfdi:Receptor Nombre=\"Ana L\xf3pez\"/>" +
		`<nomina12:Receptor Curp="ABCD010101HDFXXX01"/></cfdi:Comprobante>`

	doc, err := Decode(strings.NewReader(xml))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if doc.DisplayName != "Ana López" {
		t.Errorf("DisplayName = %q", doc.DisplayName)
	}
}

func TestExtractSetsPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nomina.xml")
	if err := os.WriteFile(path, []byte(sampleCFDI), 0644); err != nil {
		t.Fatal(err)
	}

	doc, err := Extract(path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if doc.Path != path {
		t.Errorf("Path = %q, expected %q", doc.Path, path)
	}

	if _, err := Extract(filepath.Join(t.TempDir(), "missing.xml")); !errors.Is(err, ErrMissingFields) {
		t.Errorf("expected ErrMissingFields for missing file, got %v", err)
	}
}
