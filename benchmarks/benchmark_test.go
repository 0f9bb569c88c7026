package benchmarks

import (
	"context"
	"fmt"
	"testing"

	"github.com/gridlens/gridlens/internal/diff"
	"github.com/gridlens/gridlens/internal/engine"
	"github.com/gridlens/gridlens/internal/graph"
	"github.com/gridlens/gridlens/internal/model"
)

// syntheticWorkbook builds a model with rows×2 formula cells per sheet: a
// value column, a formula referencing the row above, and a cross-sheet
// rollup. Large enough to exercise the tokenizer and graph builder without
// dwarfing b.N.
func syntheticWorkbook(sheets, rows int) *model.RawWorkbook {
	wb := &model.RawWorkbook{Filename: "bench.xlsx"}
	for s := 0; s < sheets; s++ {
		sheet := model.RawSheet{Name: fmt.Sprintf("Sheet%d", s+1)}
		sheet.Cells = append(sheet.Cells, model.RawCell{Address: "A1", Value: "Item"})
		sheet.Cells = append(sheet.Cells, model.RawCell{Address: "B1", Value: "100"})
		for r := 2; r <= rows; r++ {
			sheet.Cells = append(sheet.Cells,
				model.RawCell{Address: fmt.Sprintf("A%d", r), Value: fmt.Sprintf("Line %d", r)},
				model.RawCell{Address: fmt.Sprintf("B%d", r), Value: "0", Formula: fmt.Sprintf("=B%d*1.02", r-1)},
			)
		}
		sheet.Merges = []model.MergeBounds{{TopLeft: "D1", BottomRight: "F2"}}
		wb.Sheets = append(wb.Sheets, sheet)
	}
	return wb
}

func benchConfig() engine.Config {
	return engine.Config{
		CellCap:             100000,
		CycleCap:            100,
		CrossSheetThreshold: 2,
		RegionExpansionCap:  2000,
		Labeler:             engine.HeuristicLabeler(),
	}
}

func BenchmarkResolveSheet(b *testing.B) {
	sheet := syntheticWorkbook(1, 200).Sheets[0]
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _, err := engine.ResolveSheet(sheet, 2000)
		if err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkExtractDependencies(b *testing.B) {
	cells := map[string]*model.CellRecord{
		"Model!B4":  {Sheet: "Model", Address: "B4", Value: "100"},
		"Model!B5":  {Sheet: "Model", Address: "B5", Value: "200"},
		"Model!B6":  {Sheet: "Model", Address: "B6", Value: "300"},
		"Data!A1":   {Sheet: "Data", Address: "A1", Value: "1"},
		"Data!A2":   {Sheet: "Data", Address: "A2", Value: "2"},
		"Model!C10": {Sheet: "Model", Address: "C10", Value: "9"},
	}
	formula := "=SUM(B4:B6)+Data!A1*Data!A2-C10"
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = engine.ExtractDependencies(formula, "Model", cells, 2000)
	}
}

func BenchmarkAnalyzeSmall(b *testing.B) {
	wb := syntheticWorkbook(1, 50)
	a := engine.New(benchConfig())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := a.Analyze(context.Background(), wb); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkAnalyzeMultiSheet(b *testing.B) {
	wb := syntheticWorkbook(5, 200)
	a := engine.New(benchConfig())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := a.Analyze(context.Background(), wb); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkQuickScan(b *testing.B) {
	wb := syntheticWorkbook(5, 200)
	a := engine.New(benchConfig())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := a.QuickScan(context.Background(), wb); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkGraphCycles(b *testing.B) {
	g := graph.New()
	for i := 0; i < 500; i++ {
		g.AddEdge(fmt.Sprintf("S!A%d", i), fmt.Sprintf("S!A%d", i+1))
	}
	// A handful of short cycles among the chain.
	for i := 0; i < 10; i++ {
		g.AddEdge(fmt.Sprintf("S!A%d", i*50+1), fmt.Sprintf("S!A%d", i*50))
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = g.Cycles(100)
	}
}

func BenchmarkTraceToDrivers(b *testing.B) {
	g := graph.New()
	for i := 0; i < 1000; i++ {
		g.AddEdge(fmt.Sprintf("S!A%d", i), fmt.Sprintf("S!A%d", i+1))
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = g.TraceToDrivers("S!A1000", 0)
	}
}

func BenchmarkDiffCompare(b *testing.B) {
	a := engine.New(benchConfig())
	oldModel, err := a.Analyze(context.Background(), syntheticWorkbook(1, 200))
	if err != nil {
		b.Fatal(err)
	}
	newWb := syntheticWorkbook(1, 200)
	newWb.Sheets[0].Cells[5].Formula = "=B2*1.05"
	newModel, err := a.Analyze(context.Background(), newWb)
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = diff.Compare(oldModel, newModel, "Sheet1", []string{"A"})
	}
}
