package engine

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/gridlens/gridlens/internal/model"
)

// region is a merged region with parsed, normalized bounds.
type region struct {
	model.MergedRange
	minCol, minRow, maxCol, maxRow int
}

// cellCount returns the number of coordinates the region covers.
func (r region) cellCount() int {
	return (r.maxCol - r.minCol + 1) * (r.maxRow - r.minRow + 1)
}

// ResolveSheet applies virtual fill to one sheet: every coordinate inside a
// merged region gets its own CellRecord carrying the anchor cell's value and
// formula verbatim. Non-merged cells pass through unchanged.
//
// Overlapping regions are a structural error for the whole sheet. A region
// covering more than regionCap cells (when regionCap > 0) is expanded only up
// to the cap and the truncated flag is set. Resolution is idempotent: the
// same input always produces the same map.
func ResolveSheet(sheet model.RawSheet, regionCap int) (map[string]*model.CellRecord, []model.MergedRange, bool, error) {
	regions, err := normalizeRegions(sheet)
	if err != nil {
		return nil, nil, false, &model.StructuralError{Sheet: sheet.Name, Err: err}
	}

	cells := make(map[string]*model.CellRecord, len(sheet.Cells))
	for _, raw := range sheet.Cells {
		col, row, err := excelize.CellNameToCoordinates(raw.Address)
		if err != nil {
			continue
		}
		cells[sheet.Name+"!"+raw.Address] = &model.CellRecord{
			Sheet:   sheet.Name,
			Address: raw.Address,
			Row:     row,
			Col:     col,
			Value:   raw.Value,
			Formula: raw.Formula,
		}
	}

	truncated := false
	ranges := make([]model.MergedRange, 0, len(regions))
	for _, reg := range regions {
		ranges = append(ranges, reg.MergedRange)

		anchor := cells[sheet.Name+"!"+reg.TopLeft]
		var anchorValue, anchorFormula string
		if anchor != nil {
			anchorValue = anchor.Value
			anchorFormula = anchor.Formula
		}

		expanded := 0
		capHit := false
	fill:
		for row := reg.minRow; row <= reg.maxRow; row++ {
			for col := reg.minCol; col <= reg.maxCol; col++ {
				if regionCap > 0 && expanded >= regionCap {
					capHit = true
					break fill
				}
				expanded++
				addr, err := excelize.CoordinatesToCellName(col, row)
				if err != nil {
					continue
				}
				cells[sheet.Name+"!"+addr] = &model.CellRecord{
					Sheet:         sheet.Name,
					Address:       addr,
					Row:           row,
					Col:           col,
					Value:         anchorValue,
					Formula:       anchorFormula,
					IsMerged:      true,
					MergedRangeID: reg.ID,
				}
			}
		}
		if capHit {
			truncated = true
		}
	}

	return cells, ranges, truncated, nil
}

// normalizeRegions parses and validates the sheet's merge bounds. Regions of
// a single cell are dropped (merging a cell with itself is a no-op) and any
// overlap between two regions rejects the whole merge set.
func normalizeRegions(sheet model.RawSheet) ([]region, error) {
	var regions []region

	for _, m := range sheet.Merges {
		c1, r1, err := excelize.CellNameToCoordinates(m.TopLeft)
		if err != nil {
			return nil, fmt.Errorf("bad merge bound %q: %w", m.TopLeft, err)
		}
		c2, r2, err := excelize.CellNameToCoordinates(m.BottomRight)
		if err != nil {
			return nil, fmt.Errorf("bad merge bound %q: %w", m.BottomRight, err)
		}
		if c2 < c1 {
			c1, c2 = c2, c1
		}
		if r2 < r1 {
			r1, r2 = r2, r1
		}
		if c1 == c2 && r1 == r2 {
			continue
		}

		topLeft, _ := excelize.CoordinatesToCellName(c1, r1)
		bottomRight, _ := excelize.CoordinatesToCellName(c2, r2)
		reg := region{
			MergedRange: model.MergedRange{
				Sheet:       sheet.Name,
				TopLeft:     topLeft,
				BottomRight: bottomRight,
				ID:          sheet.Name + "!" + topLeft + ":" + bottomRight,
			},
			minCol: c1, minRow: r1, maxCol: c2, maxRow: r2,
		}

		// Rectangle intersection, not coordinate enumeration: a merge
		// covering an entire column must not blow up the check.
		for _, prev := range regions {
			if reg.minCol <= prev.maxCol && prev.minCol <= reg.maxCol &&
				reg.minRow <= prev.maxRow && prev.minRow <= reg.maxRow {
				return nil, fmt.Errorf("%w: %s and %s", model.ErrOverlappingMerges, prev.ID, reg.ID)
			}
		}

		regions = append(regions, reg)
	}

	return regions, nil
}
