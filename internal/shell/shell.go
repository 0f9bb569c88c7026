// Package shell provides the interactive GridLens REPL for exploring an
// analyzed workbook: risks, precedents, dependents, and driver traces.
package shell

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/gridlens/gridlens/internal/engine"
	"github.com/gridlens/gridlens/internal/model"
	"github.com/gridlens/gridlens/internal/xlsx"
)

// Session manages an interactive shell session over one analyzed workbook.
type Session struct {
	Analyzer       *engine.Analyzer
	Analysis       *model.Analysis
	CommandHistory []string
	HistoryFile    string
	StartTime      time.Time
}

// NewSession creates a new interactive session.
func NewSession(a *engine.Analyzer) (*Session, error) {
	home, _ := os.UserHomeDir()
	histFile := filepath.Join(home, ".gridlens", "shell_history")

	// Ensure parent dir exists
	os.MkdirAll(filepath.Dir(histFile), 0755)

	return &Session{
		Analyzer:    a,
		HistoryFile: histFile,
		StartTime:   time.Now(),
	}, nil
}

// Run starts the REPL loop. Blocks until 'exit' or Ctrl+D.
func (s *Session) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "gridlens> ",
		HistoryFile:     s.HistoryFile,
		AutoComplete:    s.buildCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	fmt.Println("GridLens — Interactive Shell")
	fmt.Println("Type 'help' for commands, 'exit' to quit.")
	fmt.Println()

	for {
		line, err := rl.Readline()
		if err != nil { // io.EOF or interrupt
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		s.CommandHistory = append(s.CommandHistory, line)

		if line == "exit" || line == "quit" {
			elapsed := time.Since(s.StartTime)
			fmt.Printf("\nSession ended. %d commands run in %s.\n",
				len(s.CommandHistory)-1, formatDuration(elapsed))
			return nil
		}

		output, err := s.Eval(ctx, line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			continue
		}
		if output != "" {
			fmt.Print(output)
			if !strings.HasSuffix(output, "\n") {
				fmt.Println()
			}
		}
	}

	return nil
}

// Eval runs a single command line and returns its output.
func (s *Session) Eval(ctx context.Context, line string) (string, error) {
	args := strings.Fields(line)
	if len(args) == 0 {
		return "", nil
	}

	switch args[0] {
	case "help":
		return helpText, nil
	case "history":
		var b strings.Builder
		for i, cmd := range s.CommandHistory {
			fmt.Fprintf(&b, "  %d  %s\n", i+1, cmd)
		}
		return b.String(), nil
	case "load":
		if len(args) != 2 {
			return "", fmt.Errorf("usage: load <file.xlsx>")
		}
		return s.load(ctx, args[1])
	case "sheets":
		return s.sheets()
	case "score":
		return s.score()
	case "risks":
		severity := ""
		if len(args) > 1 {
			severity = args[1]
		}
		return s.risks(severity)
	case "cell":
		if len(args) != 2 {
			return "", fmt.Errorf("usage: cell <Sheet!A1>")
		}
		return s.cell(args[1])
	case "precedents":
		if len(args) != 2 {
			return "", fmt.Errorf("usage: precedents <Sheet!A1>")
		}
		return s.neighbors(args[1], true)
	case "dependents":
		if len(args) != 2 {
			return "", fmt.Errorf("usage: dependents <Sheet!A1>")
		}
		return s.neighbors(args[1], false)
	case "trace":
		if len(args) < 2 || len(args) > 3 {
			return "", fmt.Errorf("usage: trace <Sheet!A1> [depth]")
		}
		depth := 0
		if len(args) == 3 {
			if _, err := fmt.Sscanf(args[2], "%d", &depth); err != nil {
				return "", fmt.Errorf("depth must be a number, got %q", args[2])
			}
		}
		return s.trace(args[1], depth)
	default:
		return "", fmt.Errorf("unknown command %q — type 'help' for a list", args[0])
	}
}

func (s *Session) load(ctx context.Context, path string) (string, error) {
	wb, err := xlsx.ReadFile(path)
	if err != nil {
		return "", err
	}
	analysis, err := s.Analyzer.Analyze(ctx, wb)
	if err != nil {
		return "", err
	}
	s.Analysis = analysis
	return fmt.Sprintf("Loaded %s: %d sheets, %d cells, %d risks, score %d/100\n",
		analysis.Filename, len(analysis.Sheets), len(analysis.Cells),
		len(analysis.Risks), analysis.HealthScore), nil
}

func (s *Session) sheets() (string, error) {
	if err := s.requireLoaded(); err != nil {
		return "", err
	}
	var b strings.Builder
	for _, sheet := range s.Analysis.Sheets {
		n := 0
		for _, c := range s.Analysis.Cells {
			if c.Sheet == sheet {
				n++
			}
		}
		fmt.Fprintf(&b, "  %s  (%d cells)\n", sheet, n)
	}
	return b.String(), nil
}

func (s *Session) score() (string, error) {
	if err := s.requireLoaded(); err != nil {
		return "", err
	}
	counts := s.Analysis.RiskCounts()
	return fmt.Sprintf("Health score: %d/100  (critical %d, high %d, medium %d, low %d)\n",
		s.Analysis.HealthScore, counts.Critical, counts.High, counts.Medium, counts.Low), nil
}

func (s *Session) risks(severity string) (string, error) {
	if err := s.requireLoaded(); err != nil {
		return "", err
	}

	alerts := s.Analysis.Risks
	if severity != "" {
		alerts = s.Analysis.RisksBySeverity(canonicalSeverity(severity))
	}
	if len(alerts) == 0 {
		return "No risks found.\n", nil
	}

	var b strings.Builder
	for i := range alerts {
		alert := &alerts[i]
		fmt.Fprintf(&b, "  [%s] %-12s %s\n", alert.Severity, alert.Location(), alert.Description)
		if ctx := alert.Context(); ctx != "" {
			fmt.Fprintf(&b, "       %s\n", ctx)
		}
	}
	return b.String(), nil
}

func (s *Session) cell(key string) (string, error) {
	if err := s.requireLoaded(); err != nil {
		return "", err
	}
	rec, ok := s.Analysis.Cells[key]
	if !ok {
		return "", fmt.Errorf("no cell %q in the loaded model", key)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", rec.Key())
	fmt.Fprintf(&b, "  value:   %s\n", rec.Value)
	if rec.HasFormula() {
		fmt.Fprintf(&b, "  formula: %s\n", rec.Formula)
	}
	if rec.IsMerged {
		fmt.Fprintf(&b, "  merged:  %s\n", rec.MergedRangeID)
	}
	if len(rec.Dependencies) > 0 {
		fmt.Fprintf(&b, "  refs:    %s\n", strings.Join(rec.Dependencies, ", "))
	}
	return b.String(), nil
}

func (s *Session) neighbors(key string, precedents bool) (string, error) {
	if err := s.requireLoaded(); err != nil {
		return "", err
	}
	if !s.Analysis.Graph.HasNode(key) {
		return "", fmt.Errorf("no cell %q in the dependency graph", key)
	}

	var nodes []string
	if precedents {
		nodes = s.Analysis.Graph.PrecedentsOf(key)
	} else {
		nodes = s.Analysis.Graph.DependentsOf(key)
	}
	if len(nodes) == 0 {
		return "  (none)\n", nil
	}

	var b strings.Builder
	for _, n := range nodes {
		fmt.Fprintf(&b, "  %s\n", n)
	}
	return b.String(), nil
}

func (s *Session) trace(key string, depth int) (string, error) {
	if err := s.requireLoaded(); err != nil {
		return "", err
	}
	if !s.Analysis.Graph.HasNode(key) {
		return "", fmt.Errorf("no cell %q in the dependency graph", key)
	}

	drivers := s.Analysis.Graph.TraceToDrivers(key, depth)
	if len(drivers) == 0 {
		return "  (no drivers: the cell has no precedents)\n", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Drivers of %s:\n", key)
	for _, d := range drivers {
		line := "  " + d
		if rec, ok := s.Analysis.Cells[d]; ok && rec.Value != "" {
			line += "  = " + rec.Value
		}
		fmt.Fprintln(&b, line)
	}
	return b.String(), nil
}

func (s *Session) requireLoaded() error {
	if s.Analysis == nil {
		return fmt.Errorf("no model loaded — run 'load <file.xlsx>' first")
	}
	return nil
}

func canonicalSeverity(s string) string {
	switch strings.ToLower(s) {
	case "critical":
		return model.SeverityCritical
	case "high":
		return model.SeverityHigh
	case "medium":
		return model.SeverityMedium
	case "low":
		return model.SeverityLow
	default:
		return s
	}
}

func (s *Session) buildCompleter() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("load"),
		readline.PcItem("sheets"),
		readline.PcItem("score"),
		readline.PcItem("risks",
			readline.PcItem("critical"),
			readline.PcItem("high"),
			readline.PcItem("medium"),
			readline.PcItem("low"),
		),
		readline.PcItem("cell"),
		readline.PcItem("precedents"),
		readline.PcItem("dependents"),
		readline.PcItem("trace"),
		readline.PcItem("history"),
		readline.PcItem("help"),
		readline.PcItem("exit"),
	)
}

const helpText = `Available commands:

  load <file.xlsx>      analyze a workbook and keep it loaded
  sheets                list sheets of the loaded model
  score                 health score and risk counts
  risks [severity]      list risk alerts, optionally one severity
  cell <Sheet!A1>       show a cell's value, formula and references
  precedents <Sheet!A1> cells this cell reads from
  dependents <Sheet!A1> cells that read this cell
  trace <Sheet!A1> [d]  input cells that ultimately drive this cell
  history               show command history
  exit                  exit the shell
`

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm %ds", m, s)
}
