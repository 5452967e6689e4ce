// Package window decides whether a maintenance run may start now, and for how long.
package window

import (
	"fmt"
	"time"

	"github.com/robfig/cron"

	"github.com/lockplane/idxmaint/internal/planner"
)

var (
	// DefaultDuration is used when a schedule is set without a duration
	DefaultDuration = 2 * time.Hour

	// DefaultTimezone is used when a schedule is set without a timezone
	DefaultTimezone = "UTC"

	// cronParser uses the 6-field format: second minute hour day-of-month month day-of-week
	cronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
)

// Config is the [window] section of idxmaint.toml
type Config struct {
	Schedule string `toml:"schedule,omitempty" json:"schedule,omitempty"`
	Duration string `toml:"duration,omitempty" json:"duration,omitempty"`
	Timezone string `toml:"timezone,omitempty" json:"timezone,omitempty"`
}

// Window is a recurring period during which maintenance may run
type Window struct {
	expr     string
	schedule cron.Schedule
	duration time.Duration
	loc      *time.Location
}

// Parse builds a Window. An empty schedule means no window: Parse returns nil
// and every nil *Window method treats maintenance as always allowed.
func Parse(cfg Config) (*Window, error) {
	if cfg.Schedule == "" {
		return nil, nil
	}

	schedule, err := cronParser.Parse(cfg.Schedule)
	if err != nil {
		return nil, fmt.Errorf("invalid window schedule %q: %w", cfg.Schedule, err)
	}

	duration := DefaultDuration
	if cfg.Duration != "" {
		duration, err = time.ParseDuration(cfg.Duration)
		if err != nil {
			return nil, fmt.Errorf("invalid window duration %q: %w", cfg.Duration, err)
		}
		if duration <= 0 {
			return nil, fmt.Errorf("window duration %s must be positive", duration)
		}
	}

	tz := cfg.Timezone
	if tz == "" {
		tz = DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid window timezone %q: %w", tz, err)
	}

	return &Window{expr: cfg.Schedule, schedule: schedule, duration: duration, loc: loc}, nil
}

func (w *Window) String() string {
	if w == nil {
		return "always open"
	}
	return fmt.Sprintf("%q for %s (%s)", w.expr, w.duration, w.loc)
}

// mostRecentStart finds the latest window start in (now-duration, now]
func (w *Window) mostRecentStart(now time.Time) time.Time {
	check := now.Add(-w.duration)

	// bounds schedules that fire every second against long windows
	const maxIterations = 100000

	var last time.Time
	for i := 0; i < maxIterations; i++ {
		next := w.schedule.Next(check)
		if next.IsZero() || next.After(now) || !next.After(check) {
			break
		}
		last = next
		check = next
	}
	return last
}

// Remaining reports how much of the current window is left at now.
// A nil window is always open with no limit.
func (w *Window) Remaining(now time.Time) (time.Duration, bool) {
	if w == nil {
		return 0, true
	}

	now = now.In(w.loc)
	start := w.mostRecentStart(now)
	if start.IsZero() {
		return 0, false
	}

	end := start.Add(w.duration)
	if !now.Before(end) {
		return 0, false
	}
	return end.Sub(now), true
}

// IsOpen reports whether maintenance may start at now
func (w *Window) IsOpen(now time.Time) bool {
	_, open := w.Remaining(now)
	return open
}

// Next returns the next window start after now, or the zero time if there is none
func (w *Window) Next(now time.Time) time.Time {
	if w == nil {
		return time.Time{}
	}
	return w.schedule.Next(now.In(w.loc))
}

// ClampBudget shortens the budget so a run cannot outlast the window
func (w *Window) ClampBudget(b planner.RunBudget, now time.Time) planner.RunBudget {
	remaining, open := w.Remaining(now)
	if w == nil || !open {
		return b
	}
	if remaining < b.MaxDuration() {
		b.MaxDurationMinutes = remaining.Minutes()
	}
	return b
}
