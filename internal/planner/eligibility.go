package planner

import "github.com/lockplane/idxmaint/internal/database"

// IsOnlineEligible decides per index whether a rebuild may use the online mode.
// The engine must support it, the budget must allow it, and the index must not
// reference a large-object, large-text or XML column.
func IsOnlineEligible(record database.FragmentationRecord, caps database.Capabilities, budget RunBudget) bool {
	if !caps.SupportsOnlineOps || !budget.OnlineModeEnabled {
		return false
	}
	_, blocked := database.HasIncompatibleColumn(record.ColumnTypes)
	return !blocked
}
