package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/lockplane/idxmaint/internal/executor"
	"github.com/lockplane/idxmaint/internal/maintenance"
	"github.com/lockplane/idxmaint/internal/metrics"
	"github.com/lockplane/idxmaint/internal/state"
	"github.com/lockplane/idxmaint/internal/ui"
	"github.com/lockplane/idxmaint/internal/window"
)

var (
	runForce       bool
	runProgress    bool
	runMetricsFile string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run index maintenance within the configured budget",
	Long: `Load fragmentation statistics, plan maintenance actions and execute
them one at a time until the queue is empty or the time budget is spent.

A command that is already running when the budget runs out is allowed to
finish. Every attempt is written to the maintenance log. A marker in
.idxmaint-state.json keeps two runs from overlapping.

Exit codes:
  0    all planned actions succeeded
  2    the queue was drained but some actions failed
  3    the budget ran out before the queue was drained
  130  the run was interrupted
  1    the run could not start`,
	Example: `  # Run against the default environment
  idxmaint run

  # Run against production, ignoring the maintenance window
  idxmaint run --env production --force

  # Export metrics for the node_exporter textfile collector
  idxmaint run --metrics-file /var/lib/node_exporter/idxmaint.prom`,
	RunE: runMaintenance,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runForce, "force", false, "Run even when the maintenance window is closed or another run is marked active")
	runCmd.Flags().BoolVar(&runProgress, "progress", true, "Show live progress when stderr is a terminal")
	runCmd.Flags().StringVarP(&flagOutput, "output", "o", outputText, "Summary format: text, json or yaml")
	runCmd.Flags().StringVar(&runMetricsFile, "metrics-file", "", "Write Prometheus metrics to this file after the run")
}

func runMaintenance(cmd *cobra.Command, args []string) (err error) {
	if err := validateOutput(flagOutput); err != nil {
		return err
	}

	s, err := loadSession()
	if err != nil {
		return err
	}
	defer closeSession(s, &err)

	budget := s.cfg.Budget
	win, err := window.Parse(s.cfg.Window)
	if err != nil {
		return err
	}
	now := time.Now()
	if !win.IsOpen(now) {
		if !runForce {
			return fmt.Errorf("maintenance window %s is closed, next opens at %s (use --force to run anyway)",
				win, win.Next(now).Format(time.RFC3339))
		}
		s.log.Warn("running outside the maintenance window", "window", win.String())
	} else {
		budget = win.ClampBudget(budget, now)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := s.openTarget(ctx); err != nil {
		return err
	}
	if err := s.openSink(ctx); err != nil {
		return err
	}

	m, err := metrics.New(s.container)
	if err != nil {
		return err
	}
	observers := []executor.Observer{m}

	runState, err := state.Load(state.Path(stateDir(s)))
	if err != nil {
		return err
	}
	runID := uuid.NewString()
	startedAt := time.Now()
	active := state.ActiveRun{
		ID:          runID,
		Environment: s.env.Name,
		Container:   s.container,
		PID:         os.Getpid(),
		StartedAt:   startedAt,
		Deadline:    startedAt.Add(budget.MaxDuration()),
	}
	if err := runState.BeginRun(active, startedAt, runForce); err != nil {
		return err
	}

	var progress *ui.Progress
	if runProgress && term.IsTerminal(int(os.Stderr.Fd())) {
		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		ctx = runCtx
		progress = ui.StartProgress(os.Stderr, "Maintaining "+s.container, cancel)
		observers = append(observers, progress)
	}

	runner := &maintenance.Runner{
		RunID:        runID,
		Stats:        s.engine,
		Capabilities: s.engine,
		Commands:     s.engine,
		Sink:         s.sink,
		Budget:       budget,
		Container:    s.container,
		Logger:       s.log,
		Observers:    observers,
	}

	summary, runErr := runner.Run(ctx)
	if progress != nil {
		if perr := progress.Stop(); perr != nil {
			s.log.Warn("progress view failed", "error", perr)
		}
	}
	if serr := runState.FinishRun(runID, summary); serr != nil {
		s.log.Warn("failed to update state file", "error", serr)
	}
	if runErr != nil {
		return runErr
	}

	m.RecordSummary(summary)
	if runMetricsFile != "" {
		if err := m.WriteTextfile(runMetricsFile); err != nil {
			s.log.Error("failed to write metrics", "error", err)
		}
	}

	out := cmd.OutOrStdout()
	structured, err := writeStructured(out, flagOutput, summary)
	if err != nil {
		return err
	}
	if !structured {
		renderSummary(out, summary)
	}

	if code := runExitCode(summary.Status()); code != 0 {
		return &exitError{code: code}
	}
	return nil
}

// stateDir is where the state file lives: beside idxmaint.toml, else the
// working directory.
func stateDir(s *session) string {
	if dir := s.cfg.ConfigDir(); dir != "" {
		return dir
	}
	return "."
}
