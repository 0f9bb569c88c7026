//go:build ignore

// This program generates the sample workbooks used by the smoke tests and
// the documentation examples. Run it from the repository root:
//
//	go run testdata/generate_fixtures.go
package main

import (
	"fmt"
	"os"

	"github.com/gridlens/gridlens/internal/model"
	"github.com/gridlens/gridlens/internal/xlsx"
)

func main() {
	if err := xlsx.WriteFile(budgetV1(), "testdata/budget-v1.xlsx"); err != nil {
		fmt.Fprintf(os.Stderr, "Error generating budget-v1.xlsx: %v\n", err)
		os.Exit(1)
	}

	if err := xlsx.WriteFile(budgetV2(), "testdata/budget-v2.xlsx"); err != nil {
		fmt.Fprintf(os.Stderr, "Error generating budget-v2.xlsx: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Test fixtures generated successfully.")
}

// budgetV1 is a small but realistic financial model: a Model sheet with
// labelled rows feeding a summary, an Assumptions sheet it pulls from, a
// merged header, one hardcoded constant inside a formula, and a circular
// reference pair.
func budgetV1() *model.RawWorkbook {
	return &model.RawWorkbook{
		Filename: "budget-v1.xlsx",
		Sheets: []model.RawSheet{
			{
				Name: "Model",
				Cells: []model.RawCell{
					{Address: "A1", Value: "FY2026 Budget"},
					{Address: "A3", Value: "Line Item"},
					{Address: "B3", Value: "Q1"},
					{Address: "C3", Value: "Q2"},
					{Address: "A4", Value: "Revenue"},
					{Address: "B4", Value: "1250000"},
					{Address: "C4", Value: "1375000", Formula: "=B4*Assumptions!B2"},
					{Address: "A5", Value: "Personnel Cost"},
					{Address: "B5", Value: "480000"},
					{Address: "C5", Value: "508800", Formula: "=B5*1.06"},
					{Address: "A6", Value: "Marketing"},
					{Address: "B6", Value: "120000"},
					{Address: "C6", Value: "120000", Formula: "=B6"},
					{Address: "A8", Value: "Operating Profit"},
					{Address: "B8", Value: "650000", Formula: "=B4-B5-B6"},
					{Address: "C8", Value: "746200", Formula: "=C4-C5-C6"},
				},
				Merges: []model.MergeBounds{
					{TopLeft: "A1", BottomRight: "C1"},
				},
			},
			{
				Name: "Assumptions",
				Cells: []model.RawCell{
					{Address: "A2", Value: "Revenue growth"},
					{Address: "B2", Value: "1.1"},
					{Address: "A3", Value: "Headcount"},
					{Address: "B3", Value: "42"},
				},
			},
			{
				Name: "Scratch",
				Cells: []model.RawCell{
					{Address: "A1", Value: "1", Formula: "=B1+1"},
					{Address: "B1", Value: "2", Formula: "=A1+1"},
				},
			},
		},
	}
}

// budgetV2 applies the edits the diff smoke test expects against v1: a
// formula change on the profit row, an input update on marketing, a row
// renamed in place, and a new row.
func budgetV2() *model.RawWorkbook {
	wb := budgetV1()
	wb.Filename = "budget-v2.xlsx"

	sheet := &wb.Sheets[0]
	for i, cell := range sheet.Cells {
		switch cell.Address {
		case "B6":
			sheet.Cells[i].Value = "135000"
		case "C8":
			sheet.Cells[i].Value = "783510"
			sheet.Cells[i].Formula = "=(C4-C5-C6)*1.05"
		}
	}
	sheet.Cells = append(sheet.Cells,
		model.RawCell{Address: "A7", Value: "Cloud Hosting"},
		model.RawCell{Address: "B7", Value: "64000"},
		model.RawCell{Address: "C7", Value: "64000", Formula: "=B7"},
	)
	return wb
}
