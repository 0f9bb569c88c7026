package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/gridlens/gridlens/internal/graph"
	"github.com/gridlens/gridlens/internal/model"
)

// Analyzer runs the full analysis pipeline over raw sheet data. It holds no
// state between runs; independent analyses may run concurrently.
type Analyzer struct {
	cfg Config
}

// New returns an Analyzer with the given configuration.
func New(cfg Config) *Analyzer {
	return &Analyzer{cfg: cfg}
}

// Analyze runs the full pass: virtual fill, dependency extraction, graph
// construction, and the risk detector pipeline. Resource caps and the time
// budget truncate rather than fail; the result always comes back usable,
// flagged partial where a cap was hit. Unexpected failures surface as
// model.ErrAnalysisFailed, never as a panic.
func (a *Analyzer) Analyze(ctx context.Context, wb *model.RawWorkbook) (res *model.Analysis, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = model.AnalysisFailure(fmt.Errorf("%v", r))
		}
	}()

	deadline := newDeadline(a.cfg.TimeBudget)
	res = a.collectCells(ctx, wb, deadline, true)

	a.extractDependencies(ctx, res, deadline)
	res.Graph = buildGraph(res.Cells)

	res.Risks = RunDetectors(res.Cells, res.Graph, a.cfg)
	for i := range res.Risks {
		if truncated, _ := res.Risks[i].Metadata["truncated"].(bool); truncated {
			res.Truncated.CycleCap = true
		}
	}
	res.HealthScore = HealthScore(res.Risks)
	res.Partial = res.Truncated.Any() || len(res.SheetErrors) > 0

	return res, nil
}

// QuickScan runs the fast pass: no virtual fill, no graph, only the
// detectors that need neither. The result is always marked partial; callers
// follow up with Analyze for the complete picture.
func (a *Analyzer) QuickScan(ctx context.Context, wb *model.RawWorkbook) (res *model.Analysis, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = model.AnalysisFailure(fmt.Errorf("%v", r))
		}
	}()

	deadline := newDeadline(a.cfg.TimeBudget)
	res = a.collectCells(ctx, wb, deadline, false)

	res.Risks = detectHardcodes(res.Cells, nil, a.cfg)
	if a.cfg.Labeler != nil {
		for i := range res.Risks {
			res.Risks[i].RowLabel, res.Risks[i].ColLabel =
				safeLabel(a.cfg.Labeler, res.Risks[i].Sheet, res.Risks[i].Cell, res.Cells)
		}
	}
	res.HealthScore = HealthScore(res.Risks)
	res.Partial = true

	return res, nil
}

// collectCells builds the global cell map, applying virtual fill when
// resolve is set. Sheet-level structural errors skip that sheet only.
func (a *Analyzer) collectCells(ctx context.Context, wb *model.RawWorkbook, deadline deadline, resolve bool) *model.Analysis {
	res := &model.Analysis{
		Filename:     wb.Filename,
		Cells:        make(map[string]*model.CellRecord),
		MergedRanges: make(map[string][]model.MergedRange),
	}

	for _, sheet := range wb.Sheets {
		res.Sheets = append(res.Sheets, sheet.Name)
		if ctx.Err() != nil || deadline.exceeded() {
			res.Truncated.TimeBudget = true
			break
		}

		res.ParseStats.Total += len(sheet.Cells) + sheet.FailedCells
		res.ParseStats.Failed += sheet.FailedCells

		var (
			sheetCells map[string]*model.CellRecord
			ranges     []model.MergedRange
			truncated  bool
			err        error
		)
		if resolve {
			sheetCells, ranges, truncated, err = ResolveSheet(sheet, a.cfg.RegionExpansionCap)
			if err != nil {
				reason := err.Error()
				var structErr *model.StructuralError
				if errors.As(err, &structErr) {
					reason = structErr.Err.Error()
				}
				res.SheetErrors = append(res.SheetErrors, model.SheetError{
					Sheet:  sheet.Name,
					Reason: reason,
				})
				// The sheet's cells were counted into Total above but none
				// of them made it into the result.
				res.ParseStats.Failed += len(sheet.Cells)
				continue
			}
		} else {
			sheetCells = rawCells(sheet)
		}
		if truncated {
			res.Truncated.RegionCap = true
		}
		if len(ranges) > 0 {
			res.MergedRanges[sheet.Name] = ranges
		}

		// Sorted keys so a hit cell cap keeps a reproducible subset.
		keys := make([]string, 0, len(sheetCells))
		for key := range sheetCells {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if a.cfg.CellCap > 0 && len(res.Cells) >= a.cfg.CellCap {
				res.Truncated.CellCap = true
				break
			}
			res.Cells[key] = sheetCells[key]
		}
		if res.Truncated.CellCap {
			break
		}
	}

	return res
}

// extractDependencies analyzes every formula cell in deterministic order.
func (a *Analyzer) extractDependencies(ctx context.Context, res *model.Analysis, deadline deadline) {
	keys := res.SortedCellKeys()
	for i, key := range keys {
		cell := res.Cells[key]
		if !cell.HasFormula() {
			continue
		}
		if i%256 == 0 && (ctx.Err() != nil || deadline.exceeded()) {
			res.Truncated.TimeBudget = true
			return
		}
		deps := ExtractDependencies(cell.Formula, cell.Sheet, res.Cells, a.cfg.RegionExpansionCap)
		cell.Dependencies = deps.Keys
		cell.IsDynamicRef = deps.Dynamic
		if deps.Truncated {
			res.Truncated.RangeCap = true
		}
	}
}

// buildGraph adds every cell as a node and one edge per resolvable
// dependency. Dynamic formulas contribute no edges; dependencies pointing at
// cells that do not exist are dropped so every graph node is a real cell.
func buildGraph(cells map[string]*model.CellRecord) *graph.Graph {
	g := graph.New()
	for key := range cells {
		g.AddNode(key)
	}
	for key, cell := range cells {
		if cell.IsDynamicRef {
			continue
		}
		for _, dep := range cell.Dependencies {
			if _, exists := cells[dep]; exists {
				g.AddEdge(dep, key)
			}
		}
	}
	return g
}

// rawCells converts a sheet without virtual fill, for the fast pass.
func rawCells(sheet model.RawSheet) map[string]*model.CellRecord {
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
	return cells
}

// deadline is a wall-clock budget; the zero value never expires.
type deadline struct {
	at time.Time
}

func newDeadline(budget time.Duration) deadline {
	if budget <= 0 {
		return deadline{}
	}
	return deadline{at: time.Now().Add(budget)}
}

func (d deadline) exceeded() bool {
	return !d.at.IsZero() && time.Now().After(d.at)
}
