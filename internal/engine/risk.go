package engine

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/efp"
	"github.com/xuri/excelize/v2"

	"github.com/gridlens/gridlens/internal/graph"
	"github.com/gridlens/gridlens/internal/model"
)

// Detector is one independent risk check. Detectors are pure: same inputs,
// same alerts. Adding a check means appending to the pipeline, not
// subclassing anything.
type Detector func(cells map[string]*model.CellRecord, g *graph.Graph, cfg Config) []model.RiskAlert

// pipeline is the fixed detector order.
var pipeline = []Detector{
	detectHardcodes,
	detectCircular,
	detectMergedMismatch,
	detectCrossSheet,
	detectExternalLinks,
	detectFormulaErrors,
}

// Numeric literals common enough in real models (unit factors, month counts,
// percent bases) that they are reported at Low severity instead of High when
// not explicitly allowed.
var commonConstants = map[float64]bool{0: true, 1: true, 12: true, 100: true}

// RunDetectors executes the detector pipeline, attaches impact counts,
// compresses duplicate findings, and enriches alerts through the optional
// labeler. Labeler failure leaves alerts unlabeled; it never aborts the run.
func RunDetectors(cells map[string]*model.CellRecord, g *graph.Graph, cfg Config) []model.RiskAlert {
	var alerts []model.RiskAlert
	for _, detect := range pipeline {
		alerts = append(alerts, detect(cells, g, cfg)...)
	}

	// Impact counts go on before compression so a compressed group can sum
	// the impacts of its members.
	for i := range alerts {
		if g != nil && !strings.ContainsAny(alerts[i].Cell, ":, ") {
			impact := len(g.Descendants(alerts[i].Sheet + "!" + alerts[i].Cell))
			if alerts[i].Metadata == nil {
				alerts[i].Metadata = map[string]any{}
			}
			alerts[i].Metadata["impactCount"] = impact
		}
	}

	alerts = compressAlerts(alerts)

	if cfg.Labeler != nil {
		for i := range alerts {
			labelCell := alerts[i].Cell
			if cs, ok := alerts[i].Metadata["cells"].([]string); ok && len(cs) > 0 {
				labelCell = cs[0]
			}
			row, col := safeLabel(cfg.Labeler, alerts[i].Sheet, labelCell, cells)
			alerts[i].RowLabel = row
			alerts[i].ColLabel = col
		}
	}

	return alerts
}

// HealthScore reduces an alert list to a single scalar:
// 100 - 10*critical - 5*high - 2*medium, floored at 0. Low alerts do not
// affect the score. Deterministic given the alert list.
func HealthScore(alerts []model.RiskAlert) int {
	score := 100
	for i := range alerts {
		switch alerts[i].Severity {
		case model.SeverityCritical:
			score -= 10
		case model.SeverityHigh:
			score -= 5
		case model.SeverityMedium:
			score -= 2
		}
	}
	if score < 0 {
		score = 0
	}
	return score
}

func safeLabel(labeler LabelFunc, sheet, cell string, cells map[string]*model.CellRecord) (row, col string) {
	defer func() {
		if recover() != nil {
			row, col = "", ""
		}
	}()
	return labeler(sheet, cell, cells)
}

// sortedFormulaCells returns the keys of all formula cells in deterministic
// order so alert output is stable.
func sortedFormulaCells(cells map[string]*model.CellRecord) []string {
	keys := make([]string, 0, len(cells))
	for k, c := range cells {
		if c.HasFormula() {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// detectHardcodes flags numeric literals buried in formulas. Literals in the
// caller's allowed set are exempt; common constants are downgraded to Low.
func detectHardcodes(cells map[string]*model.CellRecord, _ *graph.Graph, cfg Config) []model.RiskAlert {
	allowed := cfg.allowed()
	var alerts []model.RiskAlert

	for _, key := range sortedFormulaCells(cells) {
		cell := cells[key]
		for _, token := range Tokens(cell.Formula) {
			if token.TType != efp.TokenTypeOperand || token.TSubType != efp.TokenSubTypeNumber {
				continue
			}
			num, err := strconv.ParseFloat(token.TValue, 64)
			if err != nil {
				continue
			}
			if allowed[num] {
				continue
			}
			severity := model.SeverityHigh
			if commonConstants[num] {
				severity = model.SeverityLow
			}
			alerts = append(alerts, model.RiskAlert{
				Type:        model.RiskHiddenHardcode,
				Severity:    severity,
				Sheet:       cell.Sheet,
				Cell:        cell.Address,
				Description: fmt.Sprintf("Formula contains hardcoded value: %s", token.TValue),
				Metadata: map[string]any{
					"formula": cell.Formula,
					"literal": token.TValue,
					"value":   num,
				},
			})
		}
	}

	return alerts
}

// detectCircular reports each simple cycle in the graph as one Critical
// alert, up to the configured cap. When the cap truncates enumeration a
// summary alert carries the truncation marker.
func detectCircular(_ map[string]*model.CellRecord, g *graph.Graph, cfg Config) []model.RiskAlert {
	if g == nil {
		return nil
	}
	result := g.Cycles(cfg.CycleCap)

	var alerts []model.RiskAlert
	for _, cycle := range result.Cycles {
		sheet, address, _ := model.SplitKey(cycle[0])
		addrs := make([]string, 0, len(cycle))
		for i, member := range cycle {
			if i == 5 {
				break
			}
			_, a, _ := model.SplitKey(member)
			addrs = append(addrs, a)
		}
		desc := "Circular reference detected: " + strings.Join(addrs, " -> ")
		if len(cycle) > 5 {
			desc += fmt.Sprintf(" ... (%d cells total)", len(cycle))
		}
		alerts = append(alerts, model.RiskAlert{
			Type:        model.RiskCircularReference,
			Severity:    model.SeverityCritical,
			Sheet:       sheet,
			Cell:        address,
			Description: desc,
			Metadata: map[string]any{
				"cycle":       cycle,
				"cycleLength": len(cycle),
			},
		})
	}

	if result.Truncated {
		alerts = append(alerts, model.RiskAlert{
			Type:        model.RiskCircularReference,
			Severity:    model.SeverityCritical,
			Sheet:       "Multiple",
			Cell:        "Multiple",
			Description: fmt.Sprintf("Cycle enumeration truncated after %d cycles; the model contains more", len(result.Cycles)),
			Metadata: map[string]any{
				"truncated":      true,
				"reportedCycles": len(result.Cycles),
			},
		})
	}

	return alerts
}

// detectMergedMismatch flags formulas whose range references spatially
// overlap a merged region but do not textually match its bounds. Such ranges
// silently read the region's empty non-anchor cells in the source file.
func detectMergedMismatch(cells map[string]*model.CellRecord, _ *graph.Graph, cfg Config) []model.RiskAlert {
	regionsBySheet := mergedRegions(cells)
	if len(regionsBySheet) == 0 {
		return nil
	}

	var alerts []model.RiskAlert
	for _, key := range sortedFormulaCells(cells) {
		cell := cells[key]
		for _, ref := range RangeRefs(cell.Formula, cell.Sheet) {
			rc1, rr1, rc2, rr2, ok := rangeBounds(ref.Ref)
			if !ok {
				continue
			}
			var overlapping []string
			for _, region := range regionsBySheet[ref.Sheet] {
				if ref.Ref == region.Ref() {
					continue
				}
				mc1, mr1, mc2, mr2, ok := rangeBounds(region.Ref())
				if !ok {
					continue
				}
				if rc1 <= mc2 && mc1 <= rc2 && rr1 <= mr2 && mr1 <= rr2 {
					overlapping = append(overlapping, region.Ref())
				}
			}
			if len(overlapping) == 0 {
				continue
			}
			alerts = append(alerts, model.RiskAlert{
				Type:        model.RiskMergedCellRange,
				Severity:    model.SeverityMedium,
				Sheet:       cell.Sheet,
				Cell:        cell.Address,
				Description: fmt.Sprintf("Formula range %s overlaps merged region %s without matching its bounds", ref.Ref, strings.Join(overlapping, ", ")),
				Metadata: map[string]any{
					"formula":         cell.Formula,
					"referencedRange": ref.Sheet + "!" + ref.Ref,
					"mergedRanges":    overlapping,
				},
			})
		}
	}

	return alerts
}

// detectCrossSheet flags formulas that pull from more distinct other sheets
// than the configured threshold.
func detectCrossSheet(cells map[string]*model.CellRecord, _ *graph.Graph, cfg Config) []model.RiskAlert {
	var alerts []model.RiskAlert
	for _, key := range sortedFormulaCells(cells) {
		cell := cells[key]
		external := make(map[string]bool)
		for _, dep := range cell.Dependencies {
			sheet, _, ok := model.SplitKey(dep)
			if ok && sheet != cell.Sheet {
				external[sheet] = true
			}
		}
		if len(external) <= cfg.CrossSheetThreshold {
			continue
		}
		sheets := make([]string, 0, len(external))
		for s := range external {
			sheets = append(sheets, s)
		}
		sort.Strings(sheets)
		alerts = append(alerts, model.RiskAlert{
			Type:        model.RiskCrossSheet,
			Severity:    model.SeverityLow,
			Sheet:       cell.Sheet,
			Cell:        cell.Address,
			Description: fmt.Sprintf("Formula references %d external sheets: %s", len(sheets), strings.Join(sheets, ", ")),
			Metadata: map[string]any{
				"formula":        cell.Formula,
				"externalSheets": sheets,
			},
		})
	}
	return alerts
}

// externalFileRef extracts the workbook name from an external reference like
// ='[Budget2024.xlsx]Sheet1'!A5. Brackets only appear in formulas for
// external workbook references, never for internal cross-sheet ones.
var externalFileRef = regexp.MustCompile(`\[([^\]]+)\]`)

// detectExternalLinks flags formulas referencing other workbook files. Such
// links break as soon as the file is shared without its companions.
func detectExternalLinks(cells map[string]*model.CellRecord, _ *graph.Graph, cfg Config) []model.RiskAlert {
	var alerts []model.RiskAlert
	for _, key := range sortedFormulaCells(cells) {
		cell := cells[key]
		if !strings.Contains(cell.Formula, "[") || !strings.Contains(cell.Formula, "]") {
			continue
		}
		externalFile := "Unknown"
		if m := externalFileRef.FindStringSubmatch(cell.Formula); m != nil {
			externalFile = m[1]
		}
		alerts = append(alerts, model.RiskAlert{
			Type:        model.RiskExternalLink,
			Severity:    model.SeverityMedium,
			Sheet:       cell.Sheet,
			Cell:        cell.Address,
			Description: fmt.Sprintf("Formula references external file: %s", externalFile),
			Metadata: map[string]any{
				"formula":      cell.Formula,
				"externalFile": externalFile,
			},
		})
	}
	return alerts
}

// formulaErrorCodes maps Excel error values to what they mean, in report
// order.
var formulaErrorCodes = []struct{ code, meaning string }{
	{"#REF!", "Reference to deleted cell or sheet"},
	{"#DIV/0!", "Division by zero"},
	{"#VALUE!", "Wrong type of argument or operand"},
	{"#NAME?", "Unrecognized function or name"},
	{"#N/A", "Value not available"},
	{"#NUM!", "Invalid numeric value"},
	{"#NULL!", "Incorrect range operator"},
}

// detectFormulaErrors reports cells whose cached value is an Excel error.
// A broken formula stops the whole model from calculating, so every error
// cell is Critical. Only the first error code per cell is reported.
func detectFormulaErrors(cells map[string]*model.CellRecord, _ *graph.Graph, cfg Config) []model.RiskAlert {
	keys := make([]string, 0, len(cells))
	for k := range cells {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var alerts []model.RiskAlert
	for _, key := range keys {
		cell := cells[key]
		if cell.Value == "" {
			continue
		}
		for _, ec := range formulaErrorCodes {
			if !strings.Contains(cell.Value, ec.code) {
				continue
			}
			alerts = append(alerts, model.RiskAlert{
				Type:        model.RiskFormulaError,
				Severity:    model.SeverityCritical,
				Sheet:       cell.Sheet,
				Cell:        cell.Address,
				Description: fmt.Sprintf("%s: %s", ec.code, ec.meaning),
				Metadata: map[string]any{
					"errorCode": ec.code,
					"formula":   cell.Formula,
					"value":     cell.Value,
				},
			})
			break
		}
	}
	return alerts
}

// compressGroupKey returns the grouping key for alert types eligible for
// compression, or "" for types that stay unique. Hardcodes group by sheet
// and literal, external links by sheet.
func compressGroupKey(a *model.RiskAlert) string {
	switch a.Type {
	case model.RiskHiddenHardcode:
		return a.Type + "|" + a.Sheet + "|" + fmt.Sprint(a.Metadata["literal"])
	case model.RiskExternalLink:
		return a.Type + "|" + a.Sheet
	default:
		return ""
	}
}

// compressAlerts folds runs of adjacent identical findings into one alert.
// Virtual fill copies an anchor formula into every covered cell, so a single
// merged hardcode would otherwise surface once per covered cell, each
// instance deducting from the health score. Only spatially adjacent cells
// (row and column gap both at most 1) join a cluster; a driver cell and an
// unrelated calculation twenty rows below stay separate alerts.
func compressAlerts(alerts []model.RiskAlert) []model.RiskAlert {
	groups := make(map[string][]int)
	for i := range alerts {
		if key := compressGroupKey(&alerts[i]); key != "" {
			groups[key] = append(groups[key], i)
		}
	}

	emitted := make(map[int]bool)
	out := make([]model.RiskAlert, 0, len(alerts))
	for i := range alerts {
		if emitted[i] {
			continue
		}
		key := compressGroupKey(&alerts[i])
		if key == "" || len(groups[key]) == 1 {
			out = append(out, alerts[i])
			continue
		}
		group := make([]model.RiskAlert, 0, len(groups[key]))
		for _, m := range groups[key] {
			emitted[m] = true
			group = append(group, alerts[m])
		}
		sort.Slice(group, func(a, b int) bool {
			ra, ca := cellCoords(group[a].Cell)
			rb, cb := cellCoords(group[b].Cell)
			if ra != rb {
				return ra < rb
			}
			return ca < cb
		})
		for _, cluster := range splitAdjacent(group) {
			if len(cluster) == 1 {
				out = append(out, cluster[0])
			} else {
				out = append(out, compressCluster(cluster))
			}
		}
	}
	return out
}

// splitAdjacent splits a coordinate-sorted group wherever consecutive cells
// are more than one row or one column apart.
func splitAdjacent(sorted []model.RiskAlert) [][]model.RiskAlert {
	var clusters [][]model.RiskAlert
	current := []model.RiskAlert{sorted[0]}
	prevRow, prevCol := cellCoords(sorted[0].Cell)

	for _, alert := range sorted[1:] {
		row, col := cellCoords(alert.Cell)
		if abs(row-prevRow) <= 1 && abs(col-prevCol) <= 1 {
			current = append(current, alert)
		} else {
			clusters = append(clusters, current)
			current = []model.RiskAlert{alert}
		}
		prevRow, prevCol = row, col
	}
	return append(clusters, current)
}

// compressCluster merges a cluster of two or more alerts into one, summing
// impact counts and describing the covered cells as a range.
func compressCluster(group []model.RiskAlert) model.RiskAlert {
	first := group[0]
	cells := make([]string, len(group))
	impact := 0
	for i := range group {
		cells[i] = group[i].Cell
		if n, ok := group[i].Metadata["impactCount"].(int); ok {
			impact += n
		}
	}

	location := cells[0]
	switch {
	case len(cells) == 2:
		location = cells[0] + ", " + cells[1]
	case len(cells) > 2:
		location = cells[0] + ":" + cells[len(cells)-1]
	}

	alert := model.RiskAlert{
		Type:     first.Type,
		Severity: first.Severity,
		Sheet:    first.Sheet,
		Cell:     location,
		Metadata: map[string]any{
			"instanceCount": len(group),
			"cells":         cells,
			"impactCount":   impact,
		},
	}
	switch first.Type {
	case model.RiskHiddenHardcode:
		alert.Description = fmt.Sprintf("Hardcoded value '%v' (%d instances)", first.Metadata["literal"], len(group))
		alert.Metadata["literal"] = first.Metadata["literal"]
		alert.Metadata["value"] = first.Metadata["value"]
		alert.Metadata["formula"] = first.Metadata["formula"]
	case model.RiskExternalLink:
		alert.Description = fmt.Sprintf("External link detected (%d instances)", len(group))
	}
	return alert
}

func cellCoords(address string) (row, col int) {
	c, r, err := excelize.CellNameToCoordinates(address)
	if err != nil {
		return 0, 0
	}
	return r, c
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// mergedRegions reconstructs the merged regions per sheet from the virtual
// fill markers on the cells.
func mergedRegions(cells map[string]*model.CellRecord) map[string][]model.MergedRange {
	seen := make(map[string]bool)
	out := make(map[string][]model.MergedRange)
	for _, cell := range cells {
		if !cell.IsMerged || cell.MergedRangeID == "" || seen[cell.MergedRangeID] {
			continue
		}
		seen[cell.MergedRangeID] = true
		sheet, ref, ok := model.SplitKey(cell.MergedRangeID)
		if !ok {
			continue
		}
		topLeft, bottomRight, ok := strings.Cut(ref, ":")
		if !ok {
			continue
		}
		out[sheet] = append(out[sheet], model.MergedRange{
			Sheet:       sheet,
			TopLeft:     topLeft,
			BottomRight: bottomRight,
			ID:          cell.MergedRangeID,
		})
	}
	for sheet := range out {
		regions := out[sheet]
		sort.Slice(regions, func(i, j int) bool { return regions[i].ID < regions[j].ID })
	}
	return out
}

// rangeBounds parses "A1:B3" into numeric bounds.
func rangeBounds(ref string) (c1, r1, c2, r2 int, ok bool) {
	start, end, found := strings.Cut(ref, ":")
	if !found {
		return 0, 0, 0, 0, false
	}
	var err error
	c1, r1, err = excelize.CellNameToCoordinates(start)
	if err != nil {
		return 0, 0, 0, 0, false
	}
	c2, r2, err = excelize.CellNameToCoordinates(end)
	if err != nil {
		return 0, 0, 0, 0, false
	}
	if c2 < c1 {
		c1, c2 = c2, c1
	}
	if r2 < r1 {
		r1, r2 = r2, r1
	}
	return c1, r1, c2, r2, true
}
