// Package diff compares two analyzed model versions. Rows are matched by a
// caller-chosen composite business key, never by row position, so inserted
// and reordered rows do not corrupt the comparison.
package diff

import (
	"sort"
	"strings"

	"github.com/gridlens/gridlens/internal/model"
)

// BuildCompositeKey joins the row's key-column values with "|" and derives
// the normalized form: lowercased, repeated whitespace collapsed. The same
// row content always yields the same key regardless of row position.
func BuildCompositeKey(rowCells map[string]*model.CellRecord, keyColumns []string, sheet string, row int) model.CompositeKey {
	parts := make([]string, 0, len(keyColumns))
	for _, col := range keyColumns {
		var value string
		if cell := rowCells[strings.ToUpper(col)]; cell != nil {
			value = strings.TrimSpace(cell.Value)
		}
		parts = append(parts, value)
	}
	raw := strings.Join(parts, "|")
	return model.CompositeKey{
		KeyColumns: keyColumns,
		RawValue:   raw,
		Normalized: normalizeKey(raw),
		Sheet:      sheet,
		Row:        row,
	}
}

func normalizeKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// emptyKey reports whether a normalized key carries no content at all
// (blank rows and separator-only joins).
func emptyKey(normalized string) bool {
	return strings.Trim(normalized, "| ") == ""
}

// KeyIndex maps normalized composite keys to rows for one model and sheet.
// Keys occurring on more than one row are collisions: those rows are
// excluded from exact matching and reported in Ambiguous instead of being
// silently overwritten.
type KeyIndex struct {
	Rows           map[string]int
	Keys           map[string]model.CompositeKey
	Ambiguous      []string
	UniquenessRate float64
}

// BuildKeyIndex builds the index for one sheet of an analyzed model.
func BuildKeyIndex(a *model.Analysis, sheet string, keyColumns []string) *KeyIndex {
	rows := rowsByNumber(a, sheet)

	idx := &KeyIndex{
		Rows: make(map[string]int),
		Keys: make(map[string]model.CompositeKey),
	}

	counts := make(map[string]int)
	keys := make(map[int]model.CompositeKey, len(rows))
	rowNums := make([]int, 0, len(rows))
	for row := range rows {
		rowNums = append(rowNums, row)
	}
	sort.Ints(rowNums)

	total := 0
	for _, row := range rowNums {
		key := BuildCompositeKey(rows[row], keyColumns, sheet, row)
		if emptyKey(key.Normalized) {
			continue
		}
		total++
		counts[key.Normalized]++
		keys[row] = key
	}

	unique := 0
	for _, row := range rowNums {
		key, ok := keys[row]
		if !ok {
			continue
		}
		if counts[key.Normalized] > 1 {
			continue
		}
		unique++
		idx.Rows[key.Normalized] = row
		idx.Keys[key.Normalized] = key
	}

	for normalized, n := range counts {
		if n > 1 {
			idx.Ambiguous = append(idx.Ambiguous, normalized)
		}
	}
	sort.Strings(idx.Ambiguous)

	if total == 0 {
		idx.UniquenessRate = 1.0
	} else {
		idx.UniquenessRate = float64(unique) / float64(total)
	}

	return idx
}

// MatchRows pairs rows across the two indexes. Keys present in both emit a
// confidence-1.0 mapping; keys only in old emit deletions, only in new
// additions. The result is sorted by key, so reordering rows in either model
// leaves it unchanged.
func MatchRows(oldIdx, newIdx *KeyIndex) []model.RowMapping {
	union := make(map[string]bool, len(oldIdx.Rows)+len(newIdx.Rows))
	for k := range oldIdx.Rows {
		union[k] = true
	}
	for k := range newIdx.Rows {
		union[k] = true
	}
	keys := make([]string, 0, len(union))
	for k := range union {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	mappings := make([]model.RowMapping, 0, len(keys))
	for _, k := range keys {
		oldRow, inOld := oldIdx.Rows[k]
		newRow, inNew := newIdx.Rows[k]
		switch {
		case inOld && inNew:
			mappings = append(mappings, model.RowMapping{
				OldRow:     oldRow,
				NewRow:     newRow,
				Key:        oldIdx.Keys[k],
				Confidence: 1.0,
			})
		case inOld:
			mappings = append(mappings, model.RowMapping{
				OldRow:     oldRow,
				Key:        oldIdx.Keys[k],
				Confidence: 1.0,
			})
		default:
			mappings = append(mappings, model.RowMapping{
				NewRow:     newRow,
				Key:        newIdx.Keys[k],
				Confidence: 1.0,
			})
		}
	}
	return mappings
}

// rowsByNumber groups a sheet's cells by row, each row indexed by column
// letter.
func rowsByNumber(a *model.Analysis, sheet string) map[int]map[string]*model.CellRecord {
	rows := make(map[int]map[string]*model.CellRecord)
	for _, cell := range a.Cells {
		if cell.Sheet != sheet {
			continue
		}
		if rows[cell.Row] == nil {
			rows[cell.Row] = make(map[string]*model.CellRecord)
		}
		rows[cell.Row][columnLetter(cell.Address)] = cell
	}
	return rows
}

// columnLetter returns the leading letters of a cell address ("BN13" -> "BN").
func columnLetter(address string) string {
	for i, r := range address {
		if r >= '0' && r <= '9' {
			return address[:i]
		}
	}
	return address
}
