package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/lockplane/idxmaint/internal/database"
	"github.com/lockplane/idxmaint/internal/driver"
	"github.com/lockplane/idxmaint/internal/locks"
	"github.com/lockplane/idxmaint/internal/maintenance"
	"github.com/lockplane/idxmaint/internal/planner"
	"github.com/lockplane/idxmaint/internal/ui"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the maintenance queue without executing it",
	Long: `Load fragmentation statistics and print the ordered maintenance queue,
the SQL each entry would run and the locks it would take.

Nothing is executed and nothing is written to the maintenance log.`,
	Example: `  # Show the plan for the default environment
  idxmaint plan

  # Machine-readable plan for production
  idxmaint plan --env production -o json`,
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)

	planCmd.Flags().StringVarP(&flagOutput, "output", "o", outputText, "Output format: text, json or yaml")
}

// PlanEntry is one queued action as shown by the plan command
type PlanEntry struct {
	Position             int                   `json:"position" yaml:"position"`
	Key                  database.StructureKey `json:"key" yaml:"key"`
	Action               database.Action       `json:"action" yaml:"action"`
	Mode                 database.Mode         `json:"mode" yaml:"mode"`
	FragmentationPercent float64               `json:"fragmentation_percent" yaml:"fragmentation_percent"`
	PageCount            int64                 `json:"page_count" yaml:"page_count"`
	SQL                  string                `json:"sql" yaml:"sql"`
	Lock                 *locks.LockImpact     `json:"lock" yaml:"lock"`
}

// PlanReport is the dry-run output
type PlanReport struct {
	Engine    string            `json:"engine" yaml:"engine"`
	Container string            `json:"container" yaml:"container"`
	Budget    planner.RunBudget `json:"budget" yaml:"budget"`
	Entries   []PlanEntry       `json:"entries" yaml:"entries"`
	Skipped   planner.SkipTally `json:"skipped" yaml:"skipped"`
}

func buildPlanReport(engine driver.Engine, dbType database.DatabaseType, container string, budget planner.RunBudget, plan *planner.Plan) (*PlanReport, error) {
	report := &PlanReport{
		Engine:    engine.Name(),
		Container: container,
		Budget:    budget,
		Entries:   make([]PlanEntry, 0, len(plan.Queue)),
		Skipped:   plan.Skipped,
	}
	for i, p := range plan.Queue {
		req := p.Request()
		sql, err := engine.Render(req)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", req, err)
		}
		report.Entries = append(report.Entries, PlanEntry{
			Position:             i + 1,
			Key:                  p.Key,
			Action:               p.Action,
			Mode:                 req.Mode,
			FragmentationPercent: p.FragmentationPercent,
			PageCount:            p.PageCount,
			SQL:                  sql,
			Lock:                 locks.ForRequest(dbType, req),
		})
	}
	return report, nil
}

func runPlan(cmd *cobra.Command, args []string) (err error) {
	if err := validateOutput(flagOutput); err != nil {
		return err
	}

	s, err := loadSession()
	if err != nil {
		return err
	}
	defer closeSession(s, &err)

	ctx := cmd.Context()
	if err := s.openTarget(ctx); err != nil {
		return err
	}

	runner := &maintenance.Runner{
		Stats:        s.engine,
		Capabilities: s.engine,
		Budget:       s.cfg.Budget,
		Container:    s.container,
		Logger:       s.log,
	}
	plan, err := runner.Plan(ctx)
	if err != nil {
		return err
	}

	report, err := buildPlanReport(s.engine, s.dbType, s.container, s.cfg.Budget, plan)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	structured, err := writeStructured(out, flagOutput, report)
	if err != nil || structured {
		return err
	}
	renderPlan(out, report)
	return nil
}

func renderPlan(w io.Writer, r *PlanReport) {
	_, _ = fmt.Fprintln(w, ui.Header(fmt.Sprintf("Maintenance plan for %s (%s)", r.Container, r.Engine)))
	_, _ = fmt.Fprintln(w)

	if len(r.Entries) == 0 {
		_, _ = fmt.Fprintln(w, ui.Success("No indexes need maintenance"))
	} else {
		t := newTable("#", "INDEX", "ACTION", "MODE", "FRAG", "PAGES", "LOCK", "SQL")
		for _, e := range r.Entries {
			t.Row(
				strconv.Itoa(e.Position),
				e.Key.String(),
				e.Action.String(),
				e.Mode.String(),
				formatPercent(e.FragmentationPercent),
				strconv.FormatInt(e.PageCount, 10),
				e.Lock.LockMode.String(),
				e.SQL,
			)
		}
		_, _ = fmt.Fprintln(w, t.Render())
	}

	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, ui.Info(fmt.Sprintf("Skipped: %d below threshold, %d below %d pages",
		r.Skipped.BelowThreshold, r.Skipped.BelowMinPages, r.Budget.MinPageCount)))

	for _, e := range r.Entries {
		if e.Lock.IsHighImpact() {
			_, _ = fmt.Fprintln(w, ui.Warning(fmt.Sprintf("%s: %s", e.Key, e.Lock.Explanation)))
		}
	}
}
