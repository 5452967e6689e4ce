package resultlog

import (
	"fmt"
	"time"
)

// StopReason tells why the executor stopped draining
type StopReason int

const (
	StopQueueExhausted StopReason = iota
	StopBudgetExhausted
	StopCancelled
)

func (s StopReason) String() string {
	switch s {
	case StopQueueExhausted:
		return "queue_exhausted"
	case StopBudgetExhausted:
		return "budget_exhausted"
	case StopCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

func (s StopReason) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *StopReason) UnmarshalText(text []byte) error {
	for _, r := range []StopReason{StopQueueExhausted, StopBudgetExhausted, StopCancelled} {
		if r.String() == string(text) {
			*s = r
			return nil
		}
	}
	return fmt.Errorf("unknown stop reason %q", text)
}

// RunStatus is the overall outcome callers act on without reading individual rows
type RunStatus string

const (
	RunSucceeded             RunStatus = "succeeded"
	RunCompletedWithFailures RunStatus = "completed_with_failures"
	RunBudgetExhausted       RunStatus = "budget_exhausted"
	RunCancelled             RunStatus = "cancelled"
)

// RunSummary aggregates one maintenance run
type RunSummary struct {
	RunID     string    `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	StartedAt time.Time `json:"started_at" yaml:"started_at"`

	// Plan attempts; statistics refreshes are counted separately below
	Queued    int `json:"queued" yaml:"queued"`
	Processed int `json:"processed" yaml:"processed"`
	Succeeded int `json:"succeeded" yaml:"succeeded"`
	Failed    int `json:"failed" yaml:"failed"`

	StatisticsRefreshed int `json:"statistics_refreshed" yaml:"statistics_refreshed"`
	StatisticsFailed    int `json:"statistics_failed" yaml:"statistics_failed"`

	// Unprocessed counts plans never dequeued because the run stopped early
	Unprocessed int `json:"unprocessed" yaml:"unprocessed"`

	Elapsed         time.Duration `json:"elapsed" yaml:"elapsed"`
	StopReason      StopReason    `json:"stop_reason" yaml:"stop_reason"`
	BudgetExhausted bool          `json:"budget_exhausted" yaml:"budget_exhausted"`

	// SinkErrors counts results that could not be persisted
	SinkErrors int `json:"sink_errors" yaml:"sink_errors"`
}

// Status derives the run outcome. An early stop wins over per-index failures.
func (s RunSummary) Status() RunStatus {
	switch {
	case s.StopReason == StopCancelled:
		return RunCancelled
	case s.BudgetExhausted:
		return RunBudgetExhausted
	case s.Failed > 0 || s.StatisticsFailed > 0:
		return RunCompletedWithFailures
	default:
		return RunSucceeded
	}
}

// Summarize aggregates the results of one run
func Summarize(results []ExecutionResult, stop StopReason, elapsed time.Duration, unprocessed int) RunSummary {
	summary := RunSummary{
		Unprocessed:     unprocessed,
		Elapsed:         elapsed,
		StopReason:      stop,
		BudgetExhausted: stop == StopBudgetExhausted,
	}

	for _, r := range results {
		if r.IsStatisticsRefresh() {
			if r.Succeeded {
				summary.StatisticsRefreshed++
			} else {
				summary.StatisticsFailed++
			}
			continue
		}

		summary.Processed++
		if r.Succeeded {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}

	summary.Queued = summary.Processed + unprocessed
	return summary
}
