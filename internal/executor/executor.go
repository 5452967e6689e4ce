// Package executor drains an ordered maintenance queue one plan at a time
// within a wall-clock budget.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lockplane/idxmaint/internal/database"
	"github.com/lockplane/idxmaint/internal/planner"
	"github.com/lockplane/idxmaint/internal/resultlog"
)

// Executor issues maintenance commands sequentially. It is not safe for
// concurrent use; one Executor drains one queue.
type Executor struct {
	commands  database.CommandExecutor
	results   *resultlog.Logger
	budget    planner.RunBudget
	log       *slog.Logger
	now       func() time.Time
	observers []Observer
}

// Option configures an Executor
type Option func(*Executor)

// WithClock replaces time.Now, used for deterministic budget tests
func WithClock(now func() time.Time) Option {
	return func(e *Executor) { e.now = now }
}

// WithObserver registers an observer for plan state transitions
func WithObserver(o Observer) Option {
	return func(e *Executor) { e.observers = append(e.observers, o) }
}

// WithLogger sets the structured logger
func WithLogger(log *slog.Logger) Option {
	return func(e *Executor) { e.log = log }
}

// New creates an Executor
func New(commands database.CommandExecutor, results *resultlog.Logger, budget planner.RunBudget, opts ...Option) *Executor {
	e := &Executor{
		commands: commands,
		results:  results,
		budget:   budget,
		log:      slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Drain executes the queue in order until it is empty or the budget runs out.
//
// The budget is checked before each plan is dequeued, never during a command:
// a command in flight always runs to completion, so one slow rebuild can overrun
// the budget. Cancelling ctx stops the loop at the same check point; commands
// and result writes use a context detached from cancellation.
func (e *Executor) Drain(ctx context.Context, queue []planner.ActionPlan) resultlog.RunSummary {
	start := e.now()
	limit := e.budget.MaxDuration()
	stop := resultlog.StopQueueExhausted
	total := len(queue)

	for i := range queue {
		e.emit(Event{Index: i, Total: total, Plan: queue[i], State: StatePending})
	}

	processed := 0
	for i, plan := range queue {
		if elapsed := e.now().Sub(start); elapsed >= limit {
			stop = resultlog.StopBudgetExhausted
			e.log.Info("maintenance budget exhausted",
				"elapsed", elapsed.Round(time.Millisecond),
				"budget", limit,
				"remaining", total-i)
			break
		}
		if ctx.Err() != nil {
			stop = resultlog.StopCancelled
			e.log.Warn("maintenance run cancelled", "remaining", total-i)
			break
		}

		e.runPlan(context.WithoutCancel(ctx), i, total, plan)
		processed++
	}

	return e.results.Summarize(stop, e.now().Sub(start), total-processed)
}

func (e *Executor) runPlan(ctx context.Context, index, total int, plan planner.ActionPlan) {
	e.emit(Event{Index: index, Total: total, Plan: plan, State: StateRunning})

	result := e.attempt(ctx, plan, plan.Request())
	e.results.Record(ctx, result)
	e.emit(Event{Index: index, Total: total, Plan: plan, State: terminalState(result), Result: &result})

	if !result.Succeeded || plan.Action != database.ActionRebuild || !e.budget.UpdateStatisticsAfterRebuild {
		return
	}

	refresh := database.CommandRequest{
		Key:    plan.Key,
		Action: database.ActionUpdateStatistics,
		Mode:   database.ModeOffline,
	}
	e.emit(Event{Index: index, Total: total, Plan: plan, State: StateRunning, Secondary: true})
	stats := e.attempt(ctx, plan, refresh)
	e.results.Record(ctx, stats)
	e.emit(Event{Index: index, Total: total, Plan: plan, State: terminalState(stats), Secondary: true, Result: &stats})
}

// attempt runs one command and converts any failure, including a panic in the
// collaborator, into a failed result.
func (e *Executor) attempt(ctx context.Context, plan planner.ActionPlan, req database.CommandRequest) resultlog.ExecutionResult {
	started := e.now()
	err := e.execute(ctx, req)
	duration := e.now().Sub(started)

	result := resultlog.ExecutionResult{
		Key:                 req.Key,
		Action:              req.Action,
		Mode:                req.Mode,
		FragmentationBefore: plan.FragmentationPercent,
		PageCount:           plan.PageCount,
		DurationMillis:      duration.Milliseconds(),
		Succeeded:           err == nil,
		Timestamp:           started.UTC(),
	}

	if err != nil {
		result.ErrorMessage = err.Error()
		e.log.Warn("maintenance command failed",
			"structure", req.Key.String(),
			"action", req.Action.String(),
			"mode", req.Mode.String(),
			"duration", duration.Round(time.Millisecond),
			"error", err)
	} else {
		e.log.Info("maintenance command succeeded",
			"structure", req.Key.String(),
			"action", req.Action.String(),
			"mode", req.Mode.String(),
			"duration", duration.Round(time.Millisecond))
	}

	return result
}

func (e *Executor) execute(ctx context.Context, req database.CommandRequest) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("command executor panicked: %v", r)
		}
	}()
	return e.commands.Execute(ctx, req)
}

func (e *Executor) emit(ev Event) {
	for _, o := range e.observers {
		e.notify(o, ev)
	}
}

// notify delivers one event; a panicking observer is logged and skipped
func (e *Executor) notify(o Observer, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("maintenance observer panicked",
				"structure", ev.Plan.Key.String(),
				"state", ev.State.String(),
				"panic", r)
		}
	}()
	o.Observe(ev)
}

func terminalState(r resultlog.ExecutionResult) PlanState {
	if r.Succeeded {
		return StateSucceeded
	}
	return StateFailed
}
