package xlsx

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/gridlens/gridlens/internal/model"
)

// WriteFile creates an .xlsx file from raw sheet data, including formulas and
// merged regions. Used to generate sample models and test fixtures.
func WriteFile(wb *model.RawWorkbook, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, sheet := range wb.Sheets {
		sheetName := sheet.Name
		if sheetName == "" {
			sheetName = fmt.Sprintf("Sheet%d", i+1)
		}

		if i == 0 {
			// Rename default sheet
			defaultSheet := f.GetSheetName(0)
			if err := f.SetSheetName(defaultSheet, sheetName); err != nil {
				return fmt.Errorf("could not rename sheet: %w", err)
			}
		} else {
			if _, err := f.NewSheet(sheetName); err != nil {
				return fmt.Errorf("could not create sheet %q: %w", sheetName, err)
			}
		}

		for _, cell := range sheet.Cells {
			if cell.Formula != "" {
				formula := strings.TrimPrefix(cell.Formula, "=")
				if err := f.SetCellFormula(sheetName, cell.Address, formula); err != nil {
					return fmt.Errorf("could not set formula at %s: %w", cell.Address, err)
				}
				continue
			}
			if err := f.SetCellValue(sheetName, cell.Address, cell.Value); err != nil {
				return fmt.Errorf("could not set cell %s: %w", cell.Address, err)
			}
		}

		for _, m := range sheet.Merges {
			if err := f.MergeCell(sheetName, m.TopLeft, m.BottomRight); err != nil {
				return fmt.Errorf("could not merge %s:%s: %w", m.TopLeft, m.BottomRight, err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("could not save %s: %w", path, err)
	}

	return nil
}
