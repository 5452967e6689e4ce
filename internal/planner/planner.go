package planner

import "github.com/lockplane/idxmaint/internal/database"

// Build turns a stats snapshot into the ordered maintenance queue.
//
// Order of operations:
//  1. Drop indexes below the minimum page count
//  2. Classify the rest and drop those that need no action
//  3. Decide online eligibility for every remaining index
//  4. Sort into drain order
//
// Build is pure: identical inputs always produce an identical plan.
func Build(records []database.FragmentationRecord, caps database.Capabilities, budget RunBudget) *Plan {
	plan := &Plan{
		Queue: []ActionPlan{},
	}

	for _, record := range records {
		if record.PageCount < budget.MinPageCount {
			plan.Skipped.BelowMinPages++
			continue
		}

		action := Classify(record, budget)
		if action == database.ActionNone {
			plan.Skipped.BelowThreshold++
			continue
		}

		ap := ActionPlan{
			Key:                  record.Key,
			StructureID:          record.StructureID,
			Action:               action,
			Priority:             PriorityFor(action),
			FragmentationPercent: record.FragmentationPercent,
			PageCount:            record.PageCount,
		}
		if action == database.ActionRebuild {
			ap.OnlineEligible = IsOnlineEligible(record, caps, budget)
		}
		plan.Queue = append(plan.Queue, ap)
	}

	plan.Queue = Order(plan.Queue)
	return plan
}
