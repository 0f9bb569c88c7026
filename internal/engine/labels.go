package engine

import (
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/gridlens/gridlens/internal/model"
)

// Column headers in financial models are usually periods; only these count
// as column labels.
var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\d{2}-\d{4}`),
	regexp.MustCompile(`\d{4}-\d{2}`),
	regexp.MustCompile(`[A-Z][a-z]{2}\s+\d{4}`),
	regexp.MustCompile(`Q\d`),
	regexp.MustCompile(`FY\s*\d{4}`),
}

var symbolOnly = regexp.MustCompile(`^[-0-9\s]+$`)

// HeuristicLabeler recovers human context for an alert position: the row
// label is the best text found scanning left from the cell, the column label
// the first period-like header above it. It is the default context-labeling
// collaborator; callers may substitute their own.
func HeuristicLabeler() LabelFunc {
	return func(sheet, cell string, cells map[string]*model.CellRecord) (string, string) {
		col, row, err := excelize.CellNameToCoordinates(cell)
		if err != nil {
			return "", ""
		}
		return rowLabel(sheet, col, row, cells), colLabel(sheet, col, row, cells)
	}
}

type labelCandidate struct {
	text  string
	col   int
	score int
}

// rowLabel scans from the cell leftward to column A and scores every text
// value found. Item names live in the first columns; units, note markers,
// and bare symbols are penalized.
func rowLabel(sheet string, col, row int, cells map[string]*model.CellRecord) string {
	var best *labelCandidate
	for c := col - 1; c >= 1; c-- {
		addr, err := excelize.CoordinatesToCellName(c, row)
		if err != nil {
			continue
		}
		rec := cells[sheet+"!"+addr]
		if rec == nil {
			continue
		}
		text := cleanLabel(rec.Value)
		if text == "" || strings.HasPrefix(text, "=") {
			continue
		}

		score := 0
		switch {
		case c <= 20:
			score += 300 - (c-1)*10
		case c <= 30:
			score += 90 - (c-21)*9
		default:
			score -= (c - 30) * 10
		}
		if strings.ContainsAny(text, "()（）") {
			score -= 50
		}
		if strings.HasPrefix(text, "※") || strings.HasPrefix(text, "*") || strings.HasPrefix(text, "注") {
			score -= 50
		}
		if len([]rune(text)) <= 2 {
			score -= 20
		}
		if symbolOnly.MatchString(text) {
			score -= 100
		}

		if best == nil || score > best.score || (score == best.score && c < best.col) {
			best = &labelCandidate{text: text, col: c, score: score}
		}
	}
	if best == nil {
		return ""
	}
	return best.text
}

// colLabel scans the header rows above the cell for a period-like value.
// Formula cells are skipped; checksum rows often hide formulas in headers.
func colLabel(sheet string, col, row int, cells map[string]*model.CellRecord) string {
	limit := row - 1
	if limit > 20 {
		limit = 20
	}
	for r := 1; r <= limit; r++ {
		addr, err := excelize.CoordinatesToCellName(col, r)
		if err != nil {
			continue
		}
		rec := cells[sheet+"!"+addr]
		if rec == nil || rec.HasFormula() {
			continue
		}
		text := cleanLabel(rec.Value)
		if text == "" || strings.HasPrefix(text, "=") {
			continue
		}
		for _, pattern := range datePatterns {
			if pattern.MatchString(text) {
				return text
			}
		}
	}
	return ""
}

// cleanLabel normalizes full-width spaces before trimming; Japanese models
// pad labels with U+3000.
func cleanLabel(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "　", " "))
}
