package planner

import (
	"cmp"
	"slices"
)

// Order returns the plans in drain order: priority ascending, then fragmentation
// descending, then page count descending. The key breaks remaining ties so the
// same snapshot always yields the same queue. The input slice is not modified.
func Order(plans []ActionPlan) []ActionPlan {
	ordered := slices.Clone(plans)
	slices.SortStableFunc(ordered, comparePlans)
	return ordered
}

func comparePlans(a, b ActionPlan) int {
	if c := cmp.Compare(a.Priority, b.Priority); c != 0 {
		return c
	}
	if c := cmp.Compare(b.FragmentationPercent, a.FragmentationPercent); c != 0 {
		return c
	}
	if c := cmp.Compare(b.PageCount, a.PageCount); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Key.Container, b.Key.Container); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Key.Table, b.Key.Table); c != 0 {
		return c
	}
	return cmp.Compare(a.Key.Structure, b.Key.Structure)
}
