// Package model defines the data types shared by the analysis and diff
// engines: cells, merged ranges, risk alerts, analysis results, and the
// structures produced when two model versions are compared.
package model

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gridlens/gridlens/internal/graph"
)

// Severity levels for risk alerts, ordered from worst to least severe.
const (
	SeverityCritical = "Critical"
	SeverityHigh     = "High"
	SeverityMedium   = "Medium"
	SeverityLow      = "Low"
)

// Risk type identifiers produced by the detector pipeline.
const (
	RiskHiddenHardcode    = "Hidden Hardcode"
	RiskCircularReference = "Circular Reference"
	RiskMergedCellRange   = "Merged Cell Risk"
	RiskCrossSheet        = "Cross-Sheet Spaghetti"
	RiskExternalLink      = "External Link"
	RiskFormulaError      = "Formula Error"
)

// Change types emitted by the change classifier.
const (
	ChangeLogic        = "logic_change"
	ChangeInput        = "input_update"
	ChangeRiskImproved = "risk_improved"
	ChangeRiskDegraded = "risk_degraded"
)

// CellRecord is a single cell after virtual fill. Cells covered by a merged
// region carry the anchor cell's value and formula verbatim.
type CellRecord struct {
	Sheet         string   `json:"sheet"`
	Address       string   `json:"address"`
	Row           int      `json:"row"`
	Col           int      `json:"col"`
	Value         string   `json:"value"`
	Formula       string   `json:"formula,omitempty"`
	Dependencies  []string `json:"dependencies,omitempty"`
	IsMerged      bool     `json:"isMerged,omitempty"`
	MergedRangeID string   `json:"mergedRangeId,omitempty"`
	IsDynamicRef  bool     `json:"isDynamicRef,omitempty"`
}

// Key returns the global cell key in "Sheet!Address" form.
func (c *CellRecord) Key() string {
	return c.Sheet + "!" + c.Address
}

// HasFormula reports whether the cell carries a formula.
func (c *CellRecord) HasFormula() bool {
	return c.Formula != ""
}

// MergedRange describes one merged region on a sheet, bounds inclusive.
type MergedRange struct {
	Sheet       string `json:"sheet"`
	TopLeft     string `json:"topLeft"`
	BottomRight string `json:"bottomRight"`
	ID          string `json:"id"`
}

// Ref returns the region in "A1:B3" notation.
func (m MergedRange) Ref() string {
	return m.TopLeft + ":" + m.BottomRight
}

// RiskAlert is a single finding from a risk detector. Alerts are immutable
// once produced; the optional row/col labels are filled by the labeling
// collaborator before the alert is appended to the result.
type RiskAlert struct {
	Type        string         `json:"riskType"`
	Severity    string         `json:"severity"`
	Sheet       string         `json:"sheet"`
	Cell        string         `json:"cell"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	RowLabel    string         `json:"rowLabel,omitempty"`
	ColLabel    string         `json:"colLabel,omitempty"`
}

// Location returns the alert position in "Sheet!Cell" form.
func (r *RiskAlert) Location() string {
	return r.Sheet + "!" + r.Cell
}

// Context returns a short human label for the alert row, if one was recovered.
func (r *RiskAlert) Context() string {
	switch {
	case r.RowLabel != "" && r.ColLabel != "":
		return r.RowLabel + " / " + r.ColLabel
	case r.RowLabel != "":
		return r.RowLabel
	default:
		return r.ColLabel
	}
}

// ParseStats tracks per-cell parse outcomes so callers can warn when the
// success ratio drops too low.
type ParseStats struct {
	Total  int `json:"total"`
	Failed int `json:"failed"`
}

// SuccessRatio is 1.0 for an empty sheet set.
func (p ParseStats) SuccessRatio() float64 {
	if p.Total == 0 {
		return 1.0
	}
	return float64(p.Total-p.Failed) / float64(p.Total)
}

// Truncation records which resource caps were hit during analysis. Any set
// flag means the result is partial but still usable.
type Truncation struct {
	CellCap    bool `json:"cellCap,omitempty"`
	RegionCap  bool `json:"regionCap,omitempty"`
	RangeCap   bool `json:"rangeCap,omitempty"`
	CycleCap   bool `json:"cycleCap,omitempty"`
	TimeBudget bool `json:"timeBudget,omitempty"`
}

// Any reports whether any cap was hit.
func (t Truncation) Any() bool {
	return t.CellCap || t.RegionCap || t.RangeCap || t.CycleCap || t.TimeBudget
}

// SheetError is a structural failure confined to one sheet. Other sheets
// continue to be analyzed and already-parsed cells stay in the result.
type SheetError struct {
	Sheet  string `json:"sheet"`
	Reason string `json:"reason"`
}

func (e SheetError) Error() string {
	return fmt.Sprintf("sheet %q: %s", e.Sheet, e.Reason)
}

// CompositeKey identifies a row by the joined content of its key columns,
// independent of the row's position in the sheet.
type CompositeKey struct {
	KeyColumns []string `json:"keyColumns"`
	RawValue   string   `json:"rawValue"`
	Normalized string   `json:"normalizedValue"`
	Sheet      string   `json:"sheet"`
	Row        int      `json:"rowNumber"`
}

// RowMapping pairs a row in the old model with its counterpart in the new
// model. OldRow or NewRow is zero when the row was added or deleted.
type RowMapping struct {
	OldRow     int          `json:"oldRow,omitempty"`
	NewRow     int          `json:"newRow,omitempty"`
	Key        CompositeKey `json:"compositeKey"`
	Confidence float64      `json:"matchConfidence"`
}

// IsMatched reports whether both sides of the mapping are present.
func (m RowMapping) IsMatched() bool { return m.OldRow != 0 && m.NewRow != 0 }

// IsAdded reports whether the row exists only in the new model.
func (m RowMapping) IsAdded() bool { return m.OldRow == 0 && m.NewRow != 0 }

// IsDeleted reports whether the row exists only in the old model.
func (m RowMapping) IsDeleted() bool { return m.OldRow != 0 && m.NewRow == 0 }

// ChangeRecord is one classified difference between the two model versions.
type ChangeRecord struct {
	Type        string `json:"changeType"`
	Severity    string `json:"severity"`
	OldValue    string `json:"oldValue"`
	NewValue    string `json:"newValue"`
	Description string `json:"description"`
}

// DiffResult aggregates everything the change classifier produced.
type DiffResult struct {
	OldScore          int            `json:"oldScore"`
	NewScore          int            `json:"newScore"`
	ScoreDelta        int            `json:"scoreDelta"`
	LogicChanges      []ChangeRecord `json:"logicChanges"`
	InputUpdates      []ChangeRecord `json:"inputUpdates"`
	ImprovedRisks     []RiskAlert    `json:"improvedRisks"`
	DegradedRisks     []RiskAlert    `json:"degradedRisks"`
	StructuralChanges []string       `json:"structuralChanges"`
	RowMapping        []RowMapping   `json:"rowMapping"`
}

// IsImproved reports whether the new model scores at least as well as the old
// one with no new logic changes outstanding.
func (d *DiffResult) IsImproved() bool {
	return d.ScoreDelta >= 0 && len(d.DegradedRisks) == 0
}

// Summary returns a one-line overview of the diff.
func (d *DiffResult) Summary() string {
	return fmt.Sprintf("%d logic changes, %d input updates, %d risks improved, %d degraded, score %d → %d",
		len(d.LogicChanges), len(d.InputUpdates),
		len(d.ImprovedRisks), len(d.DegradedRisks), d.OldScore, d.NewScore)
}

// RiskCounts tallies alerts by severity.
type RiskCounts struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
}

// Analysis is the immutable result of analyzing one workbook snapshot. A
// re-run produces a new Analysis; nothing mutates an existing one.
type Analysis struct {
	Filename     string                   `json:"filename"`
	Sheets       []string                 `json:"sheets"`
	Cells        map[string]*CellRecord   `json:"cells"`
	Graph        *graph.Graph             `json:"-"`
	MergedRanges map[string][]MergedRange `json:"mergedRanges,omitempty"`
	Risks        []RiskAlert              `json:"risks"`
	HealthScore  int                      `json:"healthScore"`
	Partial      bool                     `json:"partial,omitempty"`
	Truncated    Truncation               `json:"truncated,omitempty"`
	SheetErrors  []SheetError             `json:"sheetErrors,omitempty"`
	ParseStats   ParseStats               `json:"parseStats"`
}

// Cell looks up a cell by sheet and address.
func (a *Analysis) Cell(sheet, address string) (*CellRecord, bool) {
	c, ok := a.Cells[sheet+"!"+address]
	return c, ok
}

// RiskCounts tallies the analysis alerts by severity.
func (a *Analysis) RiskCounts() RiskCounts {
	var rc RiskCounts
	for i := range a.Risks {
		switch a.Risks[i].Severity {
		case SeverityCritical:
			rc.Critical++
		case SeverityHigh:
			rc.High++
		case SeverityMedium:
			rc.Medium++
		case SeverityLow:
			rc.Low++
		}
	}
	return rc
}

// RisksBySeverity returns alerts matching one severity level.
func (a *Analysis) RisksBySeverity(severity string) []RiskAlert {
	var out []RiskAlert
	for i := range a.Risks {
		if a.Risks[i].Severity == severity {
			out = append(out, a.Risks[i])
		}
	}
	return out
}

// SortedCellKeys returns all cell keys in deterministic order.
func (a *Analysis) SortedCellKeys() []string {
	keys := make([]string, 0, len(a.Cells))
	for k := range a.Cells {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SplitKey splits a "Sheet!Address" key. Sheet names containing '!' are not
// supported by the spreadsheet format, so the first separator wins.
func SplitKey(key string) (sheet, address string, ok bool) {
	i := strings.Index(key, "!")
	if i < 0 {
		return "", key, false
	}
	return key[:i], key[i+1:], true
}
