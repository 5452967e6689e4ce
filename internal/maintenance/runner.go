// Package maintenance ties the stats snapshot, planner and executor into one run.
package maintenance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"

	"github.com/lockplane/idxmaint/internal/database"
	"github.com/lockplane/idxmaint/internal/executor"
	"github.com/lockplane/idxmaint/internal/planner"
	"github.com/lockplane/idxmaint/internal/resultlog"
)

var (
	// ErrStatsUnavailable is returned when fragmentation telemetry cannot be loaded
	ErrStatsUnavailable = errors.New("fragmentation stats unavailable")

	// ErrCapabilitiesUnavailable is returned when engine capabilities cannot be read
	ErrCapabilitiesUnavailable = errors.New("engine capabilities unavailable")
)

const (
	DefaultLoadAttempts = 3
	DefaultRetryDelay   = 2 * time.Second
)

// Runner performs one maintenance run against one container
type Runner struct {
	Stats        database.StatsProvider
	Capabilities database.CapabilityProvider
	Commands     database.CommandExecutor
	Sink         resultlog.Sink
	Budget       planner.RunBudget
	Container    string
	Logger       *slog.Logger
	Observers    []executor.Observer

	// RunID tags the run's log lines and summary; generated when empty
	RunID string

	// Clock defaults to time.Now
	Clock func() time.Time

	// LoadAttempts and RetryDelay bound retries of the stats and capability reads
	LoadAttempts uint
	RetryDelay   time.Duration
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

func (r *Runner) now() time.Time {
	if r.Clock == nil {
		return time.Now()
	}
	return r.Clock()
}

func (r *Runner) retryOptions(ctx context.Context, log *slog.Logger, what string) []retry.Option {
	attempts := r.LoadAttempts
	if attempts == 0 {
		attempts = DefaultLoadAttempts
	}
	delay := r.RetryDelay
	if delay == 0 {
		delay = DefaultRetryDelay
	}

	return []retry.Option{
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Warn("retrying "+what, "attempt", n+1, "error", err)
		}),
	}
}

// Plan loads a fresh snapshot and builds the ordered queue without executing it
func (r *Runner) Plan(ctx context.Context) (*planner.Plan, error) {
	return r.plan(ctx, r.logger())
}

func (r *Runner) plan(ctx context.Context, log *slog.Logger) (*planner.Plan, error) {
	if err := r.Budget.Validate(); err != nil {
		return nil, err
	}

	records, err := retry.DoWithData(func() ([]database.FragmentationRecord, error) {
		return r.Stats.LoadFragmentation(ctx, r.Container, r.Budget.MinPageCount)
	}, r.retryOptions(ctx, log, "fragmentation load")...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStatsUnavailable, err)
	}

	caps, err := retry.DoWithData(func() (database.Capabilities, error) {
		return r.Capabilities.Capabilities(ctx)
	}, r.retryOptions(ctx, log, "capability check")...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCapabilitiesUnavailable, err)
	}

	plan := planner.Build(records, caps, r.Budget)
	log.Info("maintenance plan built",
		"container", r.Container,
		"indexes", len(records),
		"queued", len(plan.Queue),
		"below_threshold", plan.Skipped.BelowThreshold,
		"below_min_pages", plan.Skipped.BelowMinPages,
		"online_supported", caps.SupportsOnlineOps)

	return plan, nil
}

// Run plans and drains the queue. Only a failure to plan is returned as an
// error; per-index failures and budget exhaustion are reported in the summary.
func (r *Runner) Run(ctx context.Context) (resultlog.RunSummary, error) {
	runID := r.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	startedAt := r.now().UTC()
	log := r.logger().With("run_id", runID)

	log.Info("maintenance run starting",
		"container", r.Container,
		"budget", r.Budget.MaxDuration(),
		"online_mode", r.Budget.OnlineModeEnabled)

	plan, err := r.plan(ctx, log)
	if err != nil {
		log.Error("maintenance run aborted", "error", err)
		return resultlog.RunSummary{RunID: runID, StartedAt: startedAt}, err
	}

	opts := []executor.Option{executor.WithLogger(log)}
	if r.Clock != nil {
		opts = append(opts, executor.WithClock(r.Clock))
	}
	for _, o := range r.Observers {
		opts = append(opts, executor.WithObserver(o))
	}

	results := resultlog.NewLogger(r.Sink, log)
	summary := executor.New(r.Commands, results, r.Budget, opts...).Drain(ctx, plan.Queue)
	summary.RunID = runID
	summary.StartedAt = startedAt

	log.Info("maintenance run finished",
		"status", summary.Status(),
		"processed", summary.Processed,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"unprocessed", summary.Unprocessed,
		"elapsed", summary.Elapsed.Round(time.Millisecond),
		"stop_reason", summary.StopReason.String())

	return summary, nil
}
