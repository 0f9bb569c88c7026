// Package engine turns raw sheet data into an immutable analysis result:
// virtual fill for merged regions, formula dependency extraction, graph
// construction, and the risk detector pipeline.
package engine

import (
	"time"

	"github.com/gridlens/gridlens/internal/model"
)

// LabelFunc is the optional context-labeling collaborator. It receives the
// alert position and the full cell map and returns human row/column labels,
// either of which may be empty. A nil, failing, or panicking labeler never
// aborts analysis.
type LabelFunc func(sheet, cell string, cells map[string]*model.CellRecord) (rowLabel, colLabel string)

// Config carries every knob the analysis pipeline honors. The engine applies
// no hidden defaults: zero caps mean unlimited, a zero time budget means no
// deadline, and a zero cross-sheet threshold alerts on any cross-sheet
// reference. Callers normally fill this from the config package.
type Config struct {
	// AllowedConstants are numeric literals exempt from hardcode detection.
	AllowedConstants []float64

	// CellCap bounds the total number of cells analyzed.
	CellCap int

	// CycleCap bounds the number of cycles the circular-reference detector
	// reports. Values <= 0 fall back to the graph package default of 100.
	CycleCap int

	// CrossSheetThreshold is the number of distinct other sheets a formula
	// may reference before the complexity detector fires.
	CrossSheetThreshold int

	// RegionExpansionCap bounds how many cells a single merged region or a
	// single range reference expands to.
	RegionExpansionCap int

	// TimeBudget bounds the wall-clock time of a full analysis.
	TimeBudget time.Duration

	// Labeler enriches alerts with row/column context. Optional.
	Labeler LabelFunc
}

// allowed returns a set view of AllowedConstants.
func (c Config) allowed() map[float64]bool {
	if len(c.AllowedConstants) == 0 {
		return nil
	}
	set := make(map[float64]bool, len(c.AllowedConstants))
	for _, v := range c.AllowedConstants {
		set[v] = true
	}
	return set
}
