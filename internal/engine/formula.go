package engine

import (
	"strings"

	"github.com/xuri/efp"
	"github.com/xuri/excelize/v2"

	"github.com/gridlens/gridlens/internal/model"
)

// Functions whose targets cannot be resolved statically. A formula using one
// is marked dynamic and contributes no graph edges.
var dynamicFunctions = map[string]bool{
	"INDIRECT": true,
	"OFFSET":   true,
	"ADDRESS":  true,
}

// Dependencies is the outcome of analyzing one formula.
type Dependencies struct {
	// Keys are the referenced cell keys in order of first appearance,
	// de-duplicated.
	Keys []string

	// Dynamic is set when the formula contains an unresolvable construct:
	// INDIRECT/OFFSET/ADDRESS, an external-workbook reference, a named
	// range, or a whole-row/column range.
	Dynamic bool

	// Truncated is set when a range reference expanded past the cap.
	Truncated bool
}

// Tokens tokenizes a formula, with or without its leading '='. A formula the
// tokenizer cannot handle yields nil rather than an error; malformed formulas
// are treated as opaque.
func Tokens(formula string) (tokens []efp.Token) {
	defer func() {
		if recover() != nil {
			tokens = nil
		}
	}()
	formula = strings.TrimPrefix(strings.TrimSpace(formula), "=")
	if formula == "" {
		return nil
	}
	ps := efp.ExcelParser()
	return ps.Parse(formula)
}

// ExtractDependencies resolves a formula's operand references into global
// cell keys. Range references expand against the post-virtual-fill cell map,
// so a reference into a merged region resolves to all of the region's virtual
// cells. sheet is the sheet the formula lives on.
func ExtractDependencies(formula, sheet string, cells map[string]*model.CellRecord, rangeCap int) Dependencies {
	var out Dependencies
	seen := make(map[string]bool)
	add := func(key string) {
		if !seen[key] {
			seen[key] = true
			out.Keys = append(out.Keys, key)
		}
	}

	for _, token := range Tokens(formula) {
		if token.TType == efp.TokenTypeFunction && token.TSubType == efp.TokenSubTypeStart {
			if dynamicFunctions[strings.ToUpper(token.TValue)] {
				out.Dynamic = true
			}
			continue
		}
		if token.TType != efp.TokenTypeOperand || token.TSubType != efp.TokenSubTypeRange {
			continue
		}

		ref := token.TValue
		if strings.Contains(ref, "[") {
			// External workbook reference.
			out.Dynamic = true
			continue
		}

		targetSheet := sheet
		cellPart := ref
		if i := strings.Index(ref, "!"); i >= 0 {
			targetSheet = strings.Trim(ref[:i], "'")
			cellPart = ref[i+1:]
		}
		cellPart = strings.ReplaceAll(cellPart, "$", "")

		if start, end, ok := strings.Cut(cellPart, ":"); ok {
			if !expandRange(targetSheet, start, end, cells, rangeCap, add, &out) {
				out.Dynamic = true
			}
			continue
		}

		if _, _, err := excelize.CellNameToCoordinates(cellPart); err != nil {
			// Named range or other construct we cannot place.
			out.Dynamic = true
			continue
		}
		add(targetSheet + "!" + cellPart)
	}

	return out
}

// expandRange enumerates the rectangle between start and end, adding every
// coordinate present in the cell map. Returns false when the bounds cannot be
// parsed (whole-column ranges like A:A land here).
func expandRange(sheet, start, end string, cells map[string]*model.CellRecord, rangeCap int, add func(string), out *Dependencies) bool {
	c1, r1, err := excelize.CellNameToCoordinates(start)
	if err != nil {
		return false
	}
	c2, r2, err := excelize.CellNameToCoordinates(end)
	if err != nil {
		return false
	}
	if c2 < c1 {
		c1, c2 = c2, c1
	}
	if r2 < r1 {
		r1, r2 = r2, r1
	}

	expanded := 0
	for row := r1; row <= r2; row++ {
		for col := c1; col <= c2; col++ {
			if rangeCap > 0 && expanded >= rangeCap {
				out.Truncated = true
				return true
			}
			expanded++
			addr, err := excelize.CoordinatesToCellName(col, row)
			if err != nil {
				continue
			}
			key := sheet + "!" + addr
			if _, present := cells[key]; present {
				add(key)
			}
		}
	}
	return true
}

// RangeRef is a textual range reference found inside a formula, resolved to
// its target sheet.
type RangeRef struct {
	Sheet string
	Ref   string // "B2:C3" form, anchors stripped
}

// RangeRefs returns the range references a formula makes, for detectors that
// compare referenced ranges against actual merged regions.
func RangeRefs(formula, sheet string) []RangeRef {
	var refs []RangeRef
	for _, token := range Tokens(formula) {
		if token.TType != efp.TokenTypeOperand || token.TSubType != efp.TokenSubTypeRange {
			continue
		}
		ref := token.TValue
		if strings.Contains(ref, "[") {
			continue
		}
		targetSheet := sheet
		cellPart := ref
		if i := strings.Index(ref, "!"); i >= 0 {
			targetSheet = strings.Trim(ref[:i], "'")
			cellPart = ref[i+1:]
		}
		cellPart = strings.ReplaceAll(cellPart, "$", "")
		if !strings.Contains(cellPart, ":") {
			continue
		}
		refs = append(refs, RangeRef{Sheet: targetSheet, Ref: cellPart})
	}
	return refs
}
