package engine

import (
	"strings"
	"testing"

	"github.com/gridlens/gridlens/internal/graph"
	"github.com/gridlens/gridlens/internal/model"
)

func formulaCell(sheet, addr, formula string) *model.CellRecord {
	return &model.CellRecord{Sheet: sheet, Address: addr, Formula: formula}
}

func TestDetectHardcodes(t *testing.T) {
	cells := map[string]*model.CellRecord{
		"S!A1": formulaCell("S", "A1", "=1000*C4"),
	}

	alerts := detectHardcodes(cells, nil, Config{})
	if len(alerts) != 1 {
		t.Fatalf("got %d alerts, want 1", len(alerts))
	}
	a := alerts[0]
	if a.Type != model.RiskHiddenHardcode || a.Severity != model.SeverityHigh {
		t.Errorf("alert = %s/%s, want Hidden Hardcode/High", a.Type, a.Severity)
	}
	if a.Cell != "A1" || !strings.Contains(a.Description, "1000") {
		t.Errorf("alert = %+v", a)
	}
}

func TestDetectHardcodesAllowedConstant(t *testing.T) {
	cells := map[string]*model.CellRecord{
		"S!A1": formulaCell("S", "A1", "=1000*C4"),
	}

	alerts := detectHardcodes(cells, nil, Config{AllowedConstants: []float64{1000}})
	if len(alerts) != 0 {
		t.Fatalf("got %d alerts, want 0 with 1000 allowed", len(alerts))
	}
}

func TestDetectHardcodesCommonConstantsLow(t *testing.T) {
	cells := map[string]*model.CellRecord{
		"S!A1": formulaCell("S", "A1", "=B1*12"),
		"S!A2": formulaCell("S", "A2", "=B2*100"),
	}

	alerts := detectHardcodes(cells, nil, Config{})
	if len(alerts) != 2 {
		t.Fatalf("got %d alerts, want 2", len(alerts))
	}
	for _, a := range alerts {
		if a.Severity != model.SeverityLow {
			t.Errorf("%s: severity %s, want Low for common constant", a.Cell, a.Severity)
		}
	}
}

func TestDetectHardcodesOnePerLiteral(t *testing.T) {
	cells := map[string]*model.CellRecord{
		"S!A1": formulaCell("S", "A1", "=B1*1.08+250"),
	}

	alerts := detectHardcodes(cells, nil, Config{})
	if len(alerts) != 2 {
		t.Fatalf("got %d alerts, want one per literal (1.08 and 250)", len(alerts))
	}
}

func TestDetectCircular(t *testing.T) {
	// A1 = B1+1, B1 = A1+1
	g := graph.New()
	g.AddEdge("S!A1", "S!B1")
	g.AddEdge("S!B1", "S!A1")

	alerts := detectCircular(nil, g, Config{})
	if len(alerts) != 1 {
		t.Fatalf("got %d alerts, want exactly 1 for one cycle", len(alerts))
	}
	a := alerts[0]
	if a.Type != model.RiskCircularReference || a.Severity != model.SeverityCritical {
		t.Errorf("alert = %s/%s, want Circular Reference/Critical", a.Type, a.Severity)
	}
	if !strings.Contains(a.Description, "A1 -> B1") {
		t.Errorf("description = %q", a.Description)
	}
}

func TestDetectCircularCapSummary(t *testing.T) {
	g := graph.New()
	for _, pair := range [][2]string{{"S!A1", "S!A2"}, {"S!B1", "S!B2"}} {
		g.AddEdge(pair[0], pair[1])
		g.AddEdge(pair[1], pair[0])
	}

	alerts := detectCircular(nil, g, Config{CycleCap: 1})
	if len(alerts) != 2 {
		t.Fatalf("got %d alerts, want 1 cycle alert + 1 truncation summary", len(alerts))
	}
	summary := alerts[1]
	if summary.Sheet != "Multiple" {
		t.Errorf("summary sheet = %q, want Multiple", summary.Sheet)
	}
	if truncated, _ := summary.Metadata["truncated"].(bool); !truncated {
		t.Error("summary alert should carry the truncation marker")
	}
}

func TestDetectMergedMismatch(t *testing.T) {
	cells := map[string]*model.CellRecord{
		"S!B2": {Sheet: "S", Address: "B2", IsMerged: true, MergedRangeID: "S!B2:B4"},
		"S!B3": {Sheet: "S", Address: "B3", IsMerged: true, MergedRangeID: "S!B2:B4"},
		"S!B4": {Sheet: "S", Address: "B4", IsMerged: true, MergedRangeID: "S!B2:B4"},
		"S!D1": formulaCell("S", "D1", "=SUM(B2:B3)"),
	}

	alerts := detectMergedMismatch(cells, nil, Config{})
	if len(alerts) != 1 {
		t.Fatalf("got %d alerts, want 1", len(alerts))
	}
	a := alerts[0]
	if a.Type != model.RiskMergedCellRange || a.Severity != model.SeverityMedium {
		t.Errorf("alert = %s/%s, want Merged Cell Risk/Medium", a.Type, a.Severity)
	}
	if a.Cell != "D1" {
		t.Errorf("alert cell = %s, want D1", a.Cell)
	}
}

func TestDetectMergedMismatchExactRangeOK(t *testing.T) {
	cells := map[string]*model.CellRecord{
		"S!B2": {Sheet: "S", Address: "B2", IsMerged: true, MergedRangeID: "S!B2:B4"},
		"S!D1": formulaCell("S", "D1", "=SUM(B2:B4)"),
	}

	alerts := detectMergedMismatch(cells, nil, Config{})
	if len(alerts) != 0 {
		t.Fatalf("got %d alerts, want 0 when the range matches the region exactly", len(alerts))
	}
}

func TestDetectCrossSheet(t *testing.T) {
	cell := formulaCell("Model", "A1", "=X!B1+Y!B1+Z!B1")
	cell.Dependencies = []string{"X!B1", "Y!B1", "Z!B1"}
	cells := map[string]*model.CellRecord{"Model!A1": cell}

	alerts := detectCrossSheet(cells, nil, Config{CrossSheetThreshold: 2})
	if len(alerts) != 1 {
		t.Fatalf("got %d alerts, want 1 above threshold", len(alerts))
	}
	a := alerts[0]
	if a.Severity != model.SeverityLow || !strings.Contains(a.Description, "X, Y, Z") {
		t.Errorf("alert = %+v", a)
	}

	// At the threshold, no alert.
	cell.Dependencies = []string{"X!B1", "Y!B1"}
	if alerts := detectCrossSheet(cells, nil, Config{CrossSheetThreshold: 2}); len(alerts) != 0 {
		t.Errorf("got %d alerts at threshold, want 0", len(alerts))
	}
}

func TestHealthScore(t *testing.T) {
	mk := func(sev string, n int) []model.RiskAlert {
		out := make([]model.RiskAlert, n)
		for i := range out {
			out[i] = model.RiskAlert{Severity: sev}
		}
		return out
	}

	var alerts []model.RiskAlert
	alerts = append(alerts, mk(model.SeverityCritical, 1)...)
	alerts = append(alerts, mk(model.SeverityHigh, 2)...)
	alerts = append(alerts, mk(model.SeverityMedium, 3)...)
	alerts = append(alerts, mk(model.SeverityLow, 10)...)

	// 100 - 10 - 10 - 6 = 74; Low alerts are free.
	if got := HealthScore(alerts); got != 74 {
		t.Errorf("HealthScore = %d, want 74", got)
	}

	if got := HealthScore(nil); got != 100 {
		t.Errorf("HealthScore(none) = %d, want 100", got)
	}

	if got := HealthScore(mk(model.SeverityCritical, 20)); got != 0 {
		t.Errorf("HealthScore(20 critical) = %d, want floor 0", got)
	}
}

func TestRunDetectorsImpactCount(t *testing.T) {
	cells := map[string]*model.CellRecord{
		"S!A1": formulaCell("S", "A1", "=999*2"),
		"S!B1": formulaCell("S", "B1", "=A1"),
		"S!C1": formulaCell("S", "C1", "=B1"),
	}
	g := graph.New()
	g.AddEdge("S!A1", "S!B1")
	g.AddEdge("S!B1", "S!C1")

	alerts := RunDetectors(cells, g, Config{})
	var found bool
	for _, a := range alerts {
		if a.Cell == "A1" && a.Type == model.RiskHiddenHardcode {
			found = true
			if impact, _ := a.Metadata["impactCount"].(int); impact != 2 {
				t.Errorf("impactCount = %v, want 2 downstream cells", a.Metadata["impactCount"])
			}
		}
	}
	if !found {
		t.Fatal("expected a hardcode alert on A1")
	}
}

func TestRunDetectorsLabelerPanicIsolated(t *testing.T) {
	cells := map[string]*model.CellRecord{
		"S!A1": formulaCell("S", "A1", "=999*2"),
	}
	cfg := Config{
		Labeler: func(sheet, cell string, cells map[string]*model.CellRecord) (string, string) {
			panic("labeler broke")
		},
	}

	alerts := RunDetectors(cells, graph.New(), cfg)
	if len(alerts) == 0 {
		t.Fatal("labeler panic must not suppress alerts")
	}
	if alerts[0].RowLabel != "" || alerts[0].ColLabel != "" {
		t.Error("labels should be empty after labeler failure")
	}
}

func valueCell(sheet, addr, value string) *model.CellRecord {
	return &model.CellRecord{Sheet: sheet, Address: addr, Value: value}
}

func TestDetectExternalLinks(t *testing.T) {
	cells := map[string]*model.CellRecord{
		"S!A1": formulaCell("S", "A1", "='[Budget2024.xlsx]Inputs'!A5"),
		"S!A2": formulaCell("S", "A2", "=Assumptions!B2*2"),
	}

	alerts := detectExternalLinks(cells, nil, Config{})
	if len(alerts) != 1 {
		t.Fatalf("got %d alerts, want 1 for the external workbook reference", len(alerts))
	}
	a := alerts[0]
	if a.Type != model.RiskExternalLink || a.Severity != model.SeverityMedium {
		t.Errorf("alert = %s/%s, want External Link/Medium", a.Type, a.Severity)
	}
	if a.Cell != "A1" || !strings.Contains(a.Description, "Budget2024.xlsx") {
		t.Errorf("alert = %+v", a)
	}
	if a.Metadata["externalFile"] != "Budget2024.xlsx" {
		t.Errorf("externalFile = %v", a.Metadata["externalFile"])
	}
}

func TestDetectFormulaErrors(t *testing.T) {
	cells := map[string]*model.CellRecord{
		"S!A1": valueCell("S", "A1", "#REF!"),
		"S!A2": valueCell("S", "A2", "150"),
		"S!A3": formulaCell("S", "A3", "=B3/C3"),
	}
	cells["S!A3"].Value = "#DIV/0!"

	alerts := detectFormulaErrors(cells, nil, Config{})
	if len(alerts) != 2 {
		t.Fatalf("got %d alerts, want 2 error cells", len(alerts))
	}
	for _, a := range alerts {
		if a.Type != model.RiskFormulaError || a.Severity != model.SeverityCritical {
			t.Errorf("%s: alert = %s/%s, want Formula Error/Critical", a.Cell, a.Type, a.Severity)
		}
	}
	if alerts[0].Cell != "A1" || alerts[0].Metadata["errorCode"] != "#REF!" {
		t.Errorf("alerts[0] = %+v", alerts[0])
	}
	if alerts[1].Cell != "A3" || !strings.Contains(alerts[1].Description, "Division by zero") {
		t.Errorf("alerts[1] = %+v", alerts[1])
	}
}

func TestCompressAlertsAdjacentHardcodes(t *testing.T) {
	// The same literal filled across B2:B4, as virtual fill produces.
	cells := map[string]*model.CellRecord{
		"S!B2": formulaCell("S", "B2", "=C2*1.06"),
		"S!B3": formulaCell("S", "B3", "=C2*1.06"),
		"S!B4": formulaCell("S", "B4", "=C2*1.06"),
	}

	alerts := RunDetectors(cells, graph.New(), Config{})
	if len(alerts) != 1 {
		t.Fatalf("got %d alerts, want the instances folded into 1: %+v", len(alerts), alerts)
	}
	a := alerts[0]
	if a.Cell != "B2:B4" {
		t.Errorf("location = %q, want B2:B4", a.Cell)
	}
	if n, _ := a.Metadata["instanceCount"].(int); n != 3 {
		t.Errorf("instanceCount = %v, want 3", a.Metadata["instanceCount"])
	}
	if !strings.Contains(a.Description, "3 instances") {
		t.Errorf("description = %q", a.Description)
	}
}

func TestCompressAlertsDistantCellsStaySeparate(t *testing.T) {
	cells := map[string]*model.CellRecord{
		"S!B2":  formulaCell("S", "B2", "=C2*1.06"),
		"S!B30": formulaCell("S", "B30", "=C2*1.06"),
	}

	alerts := RunDetectors(cells, graph.New(), Config{})
	if len(alerts) != 2 {
		t.Fatalf("got %d alerts, want 2 for cells 28 rows apart: %+v", len(alerts), alerts)
	}
}

func TestCompressAlertsPairLocation(t *testing.T) {
	cells := map[string]*model.CellRecord{
		"S!B2": formulaCell("S", "B2", "=C2*1.06"),
		"S!B3": formulaCell("S", "B3", "=C2*1.06"),
	}

	alerts := RunDetectors(cells, graph.New(), Config{})
	if len(alerts) != 1 {
		t.Fatalf("got %d alerts, want 1: %+v", len(alerts), alerts)
	}
	if alerts[0].Cell != "B2, B3" {
		t.Errorf("location = %q, want the two cells comma joined", alerts[0].Cell)
	}
}

func TestCompressAlertsSumsImpact(t *testing.T) {
	g := graph.New()
	g.AddEdge("S!B2", "S!D1")
	g.AddEdge("S!B3", "S!D1")
	g.AddEdge("S!B3", "S!D2")
	cells := map[string]*model.CellRecord{
		"S!B2": formulaCell("S", "B2", "=C2*1.06"),
		"S!B3": formulaCell("S", "B3", "=C2*1.06"),
	}

	alerts := RunDetectors(cells, g, Config{})
	if len(alerts) != 1 {
		t.Fatalf("got %d alerts, want 1: %+v", len(alerts), alerts)
	}
	if impact, _ := alerts[0].Metadata["impactCount"].(int); impact != 3 {
		t.Errorf("impactCount = %v, want the members' impacts summed to 3", alerts[0].Metadata["impactCount"])
	}
}

func TestCompressAlertsScoresOnce(t *testing.T) {
	// One merged hardcode must cost the score once, not once per
	// covered cell.
	cells := map[string]*model.CellRecord{
		"S!B2": formulaCell("S", "B2", "=C2*999"),
		"S!B3": formulaCell("S", "B3", "=C2*999"),
		"S!B4": formulaCell("S", "B4", "=C2*999"),
	}

	alerts := RunDetectors(cells, graph.New(), Config{})
	if got := HealthScore(alerts); got != 95 {
		t.Errorf("score = %d, want 95 for a single High finding", got)
	}
}
