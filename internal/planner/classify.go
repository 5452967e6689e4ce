package planner

import "github.com/lockplane/idxmaint/internal/database"

const (
	PriorityRebuild    = 1
	PriorityReorganize = 2
)

// Classify maps a fragmentation reading to an action using the budget thresholds.
// The page-count filter is applied separately by Build.
func Classify(record database.FragmentationRecord, budget RunBudget) database.Action {
	switch {
	case record.FragmentationPercent >= budget.RebuildThresholdPercent:
		return database.ActionRebuild
	case record.FragmentationPercent >= budget.ReorganizeThresholdPercent:
		return database.ActionReorganize
	default:
		return database.ActionNone
	}
}

// PriorityFor returns the queue priority of an action, lower runs first.
// Actions that never get queued return 0.
func PriorityFor(action database.Action) int {
	switch action {
	case database.ActionRebuild:
		return PriorityRebuild
	case database.ActionReorganize:
		return PriorityReorganize
	default:
		return 0
	}
}
