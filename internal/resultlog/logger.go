package resultlog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Logger records attempts to a Sink and keeps the run's results for summarizing.
// A failing sink never interrupts the caller.
type Logger struct {
	sink Sink
	log  *slog.Logger

	mu         sync.Mutex
	results    []ExecutionResult
	sinkErrors int
}

// NewLogger creates a Logger. A nil sink keeps results in memory only.
func NewLogger(sink Sink, log *slog.Logger) *Logger {
	if sink == nil {
		sink = NewMemorySink()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Logger{sink: sink, log: log}
}

// Record appends one result
func (l *Logger) Record(ctx context.Context, result ExecutionResult) {
	if result.Timestamp.IsZero() {
		result.Timestamp = time.Now().UTC()
	}
	if result.Succeeded {
		result.ErrorMessage = ""
	}

	l.mu.Lock()
	l.results = append(l.results, result)
	l.mu.Unlock()

	if err := l.appendToSink(ctx, result); err != nil {
		l.mu.Lock()
		l.sinkErrors++
		l.mu.Unlock()
		l.log.Warn("failed to persist maintenance result",
			"structure", result.Key.String(),
			"action", result.Action.String(),
			"status", result.Status(),
			"error", err)
	}
}

func (l *Logger) appendToSink(ctx context.Context, result ExecutionResult) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink panicked: %v", r)
		}
	}()
	return l.sink.Append(ctx, result)
}

// Results returns a copy of the results recorded so far
func (l *Logger) Results() []ExecutionResult {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ExecutionResult, len(l.results))
	copy(out, l.results)
	return out
}

// Summarize aggregates everything recorded so far
func (l *Logger) Summarize(stop StopReason, elapsed time.Duration, unprocessed int) RunSummary {
	summary := Summarize(l.Results(), stop, elapsed, unprocessed)

	l.mu.Lock()
	summary.SinkErrors = l.sinkErrors
	l.mu.Unlock()

	return summary
}
