package output

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/gridlens/gridlens/internal/model"
)

// RenderAnalysis renders a full analysis report as colored text.
func RenderAnalysis(a *model.Analysis) string {
	bold := color.New(color.Bold)
	dim := color.New(color.FgHiBlack)
	yellow := color.New(color.FgYellow)

	var b strings.Builder

	fmt.Fprintln(&b, bold.Sprintf("Analysis: %s", a.Filename))
	fmt.Fprintf(&b, "Sheets: %d   Cells: %d   Formulas: %d   Merged ranges: %d\n",
		len(a.Sheets), len(a.Cells), formulaCount(a), len(a.MergedRanges))
	fmt.Fprintf(&b, "Health score: %s\n", scoreColor(a.HealthScore).Sprintf("%d/100", a.HealthScore))

	if a.Partial {
		yellow.Fprintln(&b, "Partial result: some limits were reached or sheets failed to parse.")
	}
	for _, se := range a.SheetErrors {
		yellow.Fprintf(&b, "  sheet %q skipped: %s\n", se.Sheet, se.Reason)
	}

	counts := a.RiskCounts()
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, bold.Sprint("Risks"))
	fmt.Fprintf(&b, "  Critical: %d   High: %d   Medium: %d   Low: %d\n",
		counts.Critical, counts.High, counts.Medium, counts.Low)

	for _, sev := range []string{model.SeverityCritical, model.SeverityHigh, model.SeverityMedium, model.SeverityLow} {
		alerts := a.RisksBySeverity(sev)
		if len(alerts) == 0 {
			continue
		}
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, severityColor(sev).Sprintf("[%s]", sev))
		for i := range alerts {
			alert := &alerts[i]
			fmt.Fprintf(&b, "  %-12s %s\n", alert.Location(), alert.Description)
			if ctx := alert.Context(); ctx != "" {
				dim.Fprintf(&b, "               %s\n", ctx)
			}
		}
	}

	if a.ParseStats.SuccessRatio() < 1.0 {
		fmt.Fprintln(&b)
		dim.Fprintf(&b, "Parsed %d/%d cells cleanly.\n",
			a.ParseStats.Total-a.ParseStats.Failed, a.ParseStats.Total)
	}

	return b.String()
}

// RenderDiff renders a diff result as colored text.
func RenderDiff(d *model.DiffResult) string {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	cyan := color.New(color.FgCyan)

	var b strings.Builder

	fmt.Fprintln(&b, bold.Sprint("Model comparison"))
	fmt.Fprintf(&b, "Score: %d → %d (%+d)\n", d.OldScore, d.NewScore, d.ScoreDelta)

	if len(d.LogicChanges) > 0 {
		fmt.Fprintln(&b)
		red.Fprintf(&b, "Logic changes (%d)\n", len(d.LogicChanges))
		for _, c := range d.LogicChanges {
			fmt.Fprintf(&b, "  ! %s\n", c.Description)
		}
	}

	if len(d.InputUpdates) > 0 {
		fmt.Fprintln(&b)
		cyan.Fprintf(&b, "Input updates (%d)\n", len(d.InputUpdates))
		for _, c := range d.InputUpdates {
			fmt.Fprintf(&b, "  ~ %s\n", c.Description)
		}
	}

	if len(d.ImprovedRisks) > 0 {
		fmt.Fprintln(&b)
		green.Fprintf(&b, "Risks resolved (%d)\n", len(d.ImprovedRisks))
		for i := range d.ImprovedRisks {
			alert := &d.ImprovedRisks[i]
			fmt.Fprintf(&b, "  - %s %s\n", alert.Location(), alert.Description)
		}
	}

	if len(d.DegradedRisks) > 0 {
		fmt.Fprintln(&b)
		red.Fprintf(&b, "Risks introduced (%d)\n", len(d.DegradedRisks))
		for i := range d.DegradedRisks {
			alert := &d.DegradedRisks[i]
			fmt.Fprintf(&b, "  + %s %s\n", alert.Location(), alert.Description)
		}
	}

	if len(d.StructuralChanges) > 0 {
		fmt.Fprintln(&b)
		bold.Fprintf(&b, "Structural changes (%d)\n", len(d.StructuralChanges))
		for _, s := range d.StructuralChanges {
			fmt.Fprintf(&b, "  * %s\n", s)
		}
	}

	fmt.Fprintf(&b, "\n%s\n", d.Summary())

	return b.String()
}

func formulaCount(a *model.Analysis) int {
	n := 0
	for _, c := range a.Cells {
		if c.HasFormula() {
			n++
		}
	}
	return n
}

func scoreColor(score int) *color.Color {
	switch {
	case score >= 80:
		return color.New(color.FgGreen)
	case score >= 50:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}

func severityColor(severity string) *color.Color {
	switch severity {
	case model.SeverityCritical:
		return color.New(color.FgRed, color.Bold)
	case model.SeverityHigh:
		return color.New(color.FgRed)
	case model.SeverityMedium:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgHiBlack)
	}
}
