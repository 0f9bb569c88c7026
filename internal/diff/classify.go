package diff

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/gridlens/gridlens/internal/model"
)

// Change severities. Change records grade how risky an edit is, separately
// from the risk alert severity scale.
const (
	severityCritical = "critical"
	severityNormal   = "normal"
)

// Compare matches rows of one sheet across two analyzed versions by
// composite key and classifies every difference. Formula changes outrank
// value changes: a row whose formula text changed is a logic change even
// when the computed value moved too.
func Compare(oldModel, newModel *model.Analysis, sheet string, keyColumns []string) *model.DiffResult {
	oldIdx := BuildKeyIndex(oldModel, sheet, keyColumns)
	newIdx := BuildKeyIndex(newModel, sheet, keyColumns)
	mappings := MatchRows(oldIdx, newIdx)

	res := &model.DiffResult{
		OldScore:   oldModel.HealthScore,
		NewScore:   newModel.HealthScore,
		ScoreDelta: newModel.HealthScore - oldModel.HealthScore,
		RowMapping: mappings,
	}

	oldRows := rowsByNumber(oldModel, sheet)
	newRows := rowsByNumber(newModel, sheet)

	for _, m := range mappings {
		if !m.IsMatched() {
			continue
		}
		classifyRow(res, m, oldRows[m.OldRow], newRows[m.NewRow])
	}

	compareRisks(res, oldModel, newModel, sheet, oldIdx, newIdx)
	res.StructuralChanges = structuralChanges(oldModel, newModel, mappings)

	return res
}

// classifyRow compares one matched row column by column. Only columns
// present in both versions are comparable; a formula text difference is
// classified before any value difference is considered.
func classifyRow(res *model.DiffResult, m model.RowMapping, oldRow, newRow map[string]*model.CellRecord) {
	cols := make([]string, 0, len(oldRow))
	for col := range oldRow {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	for _, col := range cols {
		oldCell := oldRow[col]
		newCell := newRow[col]
		if newCell == nil {
			continue
		}

		oldFormula := normalizeFormula(oldCell.Formula)
		newFormula := normalizeFormula(newCell.Formula)

		switch {
		case oldFormula != newFormula:
			res.LogicChanges = append(res.LogicChanges, model.ChangeRecord{
				Type:     model.ChangeLogic,
				Severity: severityCritical,
				OldValue: oldCell.Formula,
				NewValue: newCell.Formula,
				Description: fmt.Sprintf("Formula changed at %s (row %q): %s → %s",
					newCell.Key(), m.Key.RawValue, displayFormula(oldCell.Formula), displayFormula(newCell.Formula)),
			})
		case oldCell.Value != newCell.Value:
			res.InputUpdates = append(res.InputUpdates, model.ChangeRecord{
				Type:     model.ChangeInput,
				Severity: severityNormal,
				OldValue: oldCell.Value,
				NewValue: newCell.Value,
				Description: fmt.Sprintf("Value changed at %s (row %q): %s → %s",
					newCell.Key(), m.Key.RawValue, displayValue(oldCell.Value), displayValue(newCell.Value)),
			})
		}
	}
}

// compareRisks pairs alerts across the two versions. Alerts on rows with a
// composite key are keyed by (row key, risk type) so row movement does not
// register as a risk change; alerts elsewhere fall back to their literal
// location. An alert present only in the old model was resolved, present
// only in the new model introduced.
func compareRisks(res *model.DiffResult, oldModel, newModel *model.Analysis, sheet string, oldIdx, newIdx *KeyIndex) {
	oldSigs := riskSignatures(oldModel.Risks, sheet, oldIdx)
	newSigs := riskSignatures(newModel.Risks, sheet, newIdx)

	for _, sig := range sortedSignatures(oldSigs) {
		if _, ok := newSigs[sig]; !ok {
			res.ImprovedRisks = append(res.ImprovedRisks, oldSigs[sig])
		}
	}
	for _, sig := range sortedSignatures(newSigs) {
		if _, ok := oldSigs[sig]; !ok {
			res.DegradedRisks = append(res.DegradedRisks, newSigs[sig])
		}
	}
}

func riskSignatures(alerts []model.RiskAlert, sheet string, idx *KeyIndex) map[string]model.RiskAlert {
	keyByRow := make(map[int]string, len(idx.Rows))
	for normalized, row := range idx.Rows {
		keyByRow[row] = normalized
	}

	sigs := make(map[string]model.RiskAlert, len(alerts))
	for _, alert := range alerts {
		sig := fmt.Sprintf("loc|%s|%s|%s", alert.Type, alert.Sheet, alert.Cell)
		if alert.Sheet == sheet {
			if key, ok := keyByRow[addressRow(alert.Cell)]; ok {
				sig = fmt.Sprintf("key|%s|%s", key, alert.Type)
			}
		}
		if _, dup := sigs[sig]; !dup {
			sigs[sig] = alert
		}
	}
	return sigs
}

func sortedSignatures(sigs map[string]model.RiskAlert) []string {
	out := make([]string, 0, len(sigs))
	for sig := range sigs {
		out = append(out, sig)
	}
	sort.Strings(out)
	return out
}

// structuralChanges lists sheets and rows that exist in only one version.
func structuralChanges(oldModel, newModel *model.Analysis, mappings []model.RowMapping) []string {
	var out []string

	oldSheets := make(map[string]bool, len(oldModel.Sheets))
	for _, s := range oldModel.Sheets {
		oldSheets[s] = true
	}
	newSheets := make(map[string]bool, len(newModel.Sheets))
	for _, s := range newModel.Sheets {
		newSheets[s] = true
	}

	for _, s := range oldModel.Sheets {
		if !newSheets[s] {
			out = append(out, fmt.Sprintf("Sheet removed: %s", s))
		}
	}
	for _, s := range newModel.Sheets {
		if !oldSheets[s] {
			out = append(out, fmt.Sprintf("Sheet added: %s", s))
		}
	}

	for _, m := range mappings {
		switch {
		case m.IsAdded():
			out = append(out, fmt.Sprintf("Row added: %s (row %d)", m.Key.RawValue, m.NewRow))
		case m.IsDeleted():
			out = append(out, fmt.Sprintf("Row removed: %s (row %d)", m.Key.RawValue, m.OldRow))
		}
	}

	return out
}

// normalizeFormula strips whitespace so cosmetic reformatting does not
// register as a logic change.
func normalizeFormula(formula string) string {
	return strings.Join(strings.Fields(formula), "")
}

func displayFormula(formula string) string {
	if formula == "" {
		return "(none)"
	}
	return formula
}

func displayValue(value string) string {
	if value == "" {
		return "(empty)"
	}
	return value
}

// addressRow extracts the row number from a cell address ("B13" -> 13).
func addressRow(address string) int {
	for i, r := range address {
		if r >= '0' && r <= '9' {
			n, err := strconv.Atoi(address[i:])
			if err != nil {
				return 0
			}
			return n
		}
	}
	return 0
}
