package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"

	"github.com/lockplane/idxmaint/internal/resultlog"
	"github.com/lockplane/idxmaint/internal/ui"
)

const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

func validateOutput(format string) error {
	switch format {
	case outputText, outputJSON, outputYAML:
		return nil
	default:
		return fmt.Errorf("unsupported output format %q (want text, json or yaml)", format)
	}
}

// writeStructured renders v as JSON or YAML. It reports false for text output.
func writeStructured(w io.Writer, format string, v any) (bool, error) {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return true, err
		}
		return true, enc.Close()
	default:
		return false, nil
	}
}

var tableBorder = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(tableBorder).
		Headers(headers...)
}

func formatPercent(p float64) string {
	return strconv.FormatFloat(p, 'f', 1, 64) + "%"
}

func formatMillis(ms int64) string {
	return (time.Duration(ms) * time.Millisecond).Round(time.Millisecond).String()
}

// runExitCode maps the run status to the process exit code
func runExitCode(status resultlog.RunStatus) int {
	switch status {
	case resultlog.RunSucceeded:
		return 0
	case resultlog.RunCompletedWithFailures:
		return 2
	case resultlog.RunBudgetExhausted:
		return 3
	case resultlog.RunCancelled:
		return 130
	default:
		return 1
	}
}

func renderSummary(w io.Writer, s resultlog.RunSummary) {
	status := s.Status()
	var b strings.Builder
	b.WriteString(ui.Header("Maintenance run") + "\n\n")
	b.WriteString(ui.Label("Status:      ") + ui.Status(string(status), status == resultlog.RunSucceeded) + "\n")
	b.WriteString(ui.Label("Run ID:      ") + s.RunID + "\n")
	b.WriteString(ui.Label("Elapsed:     ") + s.Elapsed.Round(time.Second).String() + "\n")
	b.WriteString(ui.Label("Queued:      ") + strconv.Itoa(s.Queued) + "\n")
	b.WriteString(ui.Label("Succeeded:   ") + strconv.Itoa(s.Succeeded) + "\n")
	b.WriteString(ui.Label("Failed:      ") + strconv.Itoa(s.Failed) + "\n")
	b.WriteString(ui.Label("Unprocessed: ") + strconv.Itoa(s.Unprocessed) + "\n")
	if s.StatisticsRefreshed+s.StatisticsFailed > 0 {
		b.WriteString(ui.Label("Statistics:  ") +
			fmt.Sprintf("%d refreshed, %d failed", s.StatisticsRefreshed, s.StatisticsFailed) + "\n")
	}
	if s.SinkErrors > 0 {
		b.WriteString(ui.Warning(fmt.Sprintf("%d results could not be written to the maintenance log", s.SinkErrors)) + "\n")
	}
	_, _ = fmt.Fprint(w, ui.Box(strings.TrimRight(b.String(), "\n"))+"\n")
}

func renderResults(w io.Writer, results []resultlog.ExecutionResult) {
	if len(results) == 0 {
		_, _ = fmt.Fprintln(w, ui.Info("No maintenance attempts recorded"))
		return
	}

	t := newTable("TIME", "INDEX", "ACTION", "MODE", "FRAG", "DURATION", "STATUS", "ERROR")
	for _, r := range results {
		t.Row(
			r.Timestamp.Local().Format(time.DateTime),
			r.Key.String(),
			r.Action.String(),
			r.Mode.String(),
			formatPercent(r.FragmentationBefore),
			formatMillis(r.DurationMillis),
			r.Status(),
			r.ErrorMessage,
		)
	}
	_, _ = fmt.Fprintln(w, t.Render())
}
