// Package xlsx reads and writes .xlsx workbooks. It is the only place the
// analyzer touches spreadsheet files; everything downstream works on the raw
// sheet data produced here.
package xlsx

import (
	"bytes"
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"

	"github.com/gridlens/gridlens/internal/model"
)

// ReadFile reads an .xlsx file into raw sheet data: per-cell values and
// formulas plus merge region bounds.
func ReadFile(path string) (*model.RawWorkbook, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("file not found: %s — check that the path is correct", path)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not open %s — is this a valid .xlsx file? %w", path, err)
	}
	defer f.Close()

	return readWorkbook(f, path)
}

// ReadBytes reads an .xlsx workbook from a byte slice.
func ReadBytes(data []byte, filename string) (*model.RawWorkbook, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("could not read Excel data: %w", err)
	}
	defer f.Close()

	return readWorkbook(f, filename)
}

func readWorkbook(f *excelize.File, filename string) (*model.RawWorkbook, error) {
	wb := &model.RawWorkbook{Filename: filename}

	for _, name := range f.GetSheetList() {
		sheet, err := readSheet(f, name)
		if err != nil {
			return nil, fmt.Errorf("could not read sheet %q: %w", name, err)
		}
		wb.Sheets = append(wb.Sheets, *sheet)
	}

	return wb, nil
}

func readSheet(f *excelize.File, name string) (*model.RawSheet, error) {
	sheet := &model.RawSheet{Name: name}

	merges, err := f.GetMergeCells(name)
	if err != nil {
		return nil, err
	}
	for _, m := range merges {
		sheet.Merges = append(sheet.Merges, model.MergeBounds{
			TopLeft:     m.GetStartAxis(),
			BottomRight: m.GetEndAxis(),
		})
	}

	rows, err := f.GetRows(name)
	if err != nil {
		return nil, err
	}
	for rowIdx, row := range rows {
		for colIdx, value := range row {
			addr, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+1)
			if err != nil {
				sheet.FailedCells++
				continue
			}
			formula, err := f.GetCellFormula(name, addr)
			if err != nil {
				// The cached value is still usable; count the
				// miss and keep going.
				sheet.FailedCells++
				formula = ""
			}
			if value == "" && formula == "" {
				continue
			}
			if formula != "" {
				formula = "=" + formula
			}
			sheet.Cells = append(sheet.Cells, model.RawCell{
				Address: addr,
				Value:   value,
				Formula: formula,
			})
		}
	}

	return sheet, nil
}
