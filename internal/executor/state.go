package executor

import (
	"fmt"

	"github.com/lockplane/idxmaint/internal/planner"
	"github.com/lockplane/idxmaint/internal/resultlog"
)

// PlanState is the lifecycle of one queued plan: Pending → Running → {Succeeded, Failed}
type PlanState int

const (
	StatePending PlanState = iota
	StateRunning
	StateSucceeded
	StateFailed
)

func (s PlanState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Terminal reports whether no further transition can happen
func (s PlanState) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// Event is emitted on every state transition of a plan
type Event struct {
	Index int
	Total int
	Plan  planner.ActionPlan
	State PlanState

	// Secondary is set for the statistics refresh that follows a rebuild
	Secondary bool

	// Result is set once State is terminal
	Result *resultlog.ExecutionResult
}

// Observer is notified synchronously from the draining goroutine
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) { f(e) }
