package resultlog

import (
	"context"
	"sync"
)

// Sink durably appends execution results
type Sink interface {
	Append(ctx context.Context, result ExecutionResult) error
}

// MemorySink keeps results in memory, for dry runs and tests
type MemorySink struct {
	mu   sync.Mutex
	rows []ExecutionResult
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Append(_ context.Context, result ExecutionResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, result)
	return nil
}

// Rows returns a copy of everything appended so far
func (s *MemorySink) Rows() []ExecutionResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ExecutionResult, len(s.rows))
	copy(out, s.rows)
	return out
}
