// =============================================================================
// Recibos Dispatcher - XLSX Roster Reader
// =============================================================================
//
// Reads the rows of one worksheet from an Excel roster. The HR roster is
// normally a workbook with a single sheet whose first row holds the headers:
//
//   | Nombre              | Correo              |
//   |---------------------|---------------------|
//   | Ana López           | ana@empresa.com     |
//   | José Pérez Núñez    | jperez@empresa.com  |
//
// Cells are returned as their formatted text, so numeric-looking names or
// dates typed into the name column still arrive as strings.
//
// =============================================================================

package xlsxparser

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ReadSheet returns every row of the named sheet. An empty sheet name selects
// the first sheet in the workbook.
func ReadSheet(workbookPath, sheetName string) ([][]string, error) {
	f, err := excelize.OpenFile(workbookPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if sheetName == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheetName = sheets[0]
	} else if idx, err := f.GetSheetIndex(sheetName); err != nil || idx < 0 {
		return nil, fmt.Errorf("sheet %q not found", sheetName)
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheetName)
	}

	return rows, nil
}
