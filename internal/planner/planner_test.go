package planner

import (
	"errors"
	"reflect"
	"testing"

	"github.com/lockplane/idxmaint/internal/database"
)

func exampleBudget() RunBudget {
	return RunBudget{
		MaxDurationMinutes:           60,
		MinPageCount:                 1000,
		ReorganizeThresholdPercent:   5.0,
		RebuildThresholdPercent:      30.0,
		OnlineModeEnabled:            true,
		UpdateStatisticsAfterRebuild: true,
	}
}

func record(structure string, frag float64, pages int64, columnTypes ...string) database.FragmentationRecord {
	return database.FragmentationRecord{
		Key:                  database.StructureKey{Container: "public", Table: "orders", Structure: structure},
		FragmentationPercent: frag,
		PageCount:            pages,
		ColumnTypes:          columnTypes,
	}
}

func queueNames(plan *Plan) []string {
	names := make([]string, 0, len(plan.Queue))
	for _, p := range plan.Queue {
		names = append(names, p.Key.Structure)
	}
	return names
}

func TestBuild_Example(t *testing.T) {
	records := []database.FragmentationRecord{
		record("C", 2, 50000),
		record("B", 10, 2000),
		record("A", 45, 5000),
	}

	plan := Build(records, database.Capabilities{SupportsOnlineOps: true}, exampleBudget())

	if got := queueNames(plan); !reflect.DeepEqual(got, []string{"A", "B"}) {
		t.Fatalf("Expected queue [A B], got %v", got)
	}

	a := plan.Queue[0]
	if a.Action != database.ActionRebuild || a.Priority != PriorityRebuild {
		t.Errorf("Expected A to be Rebuild priority 1, got %s priority %d", a.Action, a.Priority)
	}
	if !a.OnlineEligible {
		t.Error("Expected A to be online eligible")
	}

	b := plan.Queue[1]
	if b.Action != database.ActionReorganize || b.Priority != PriorityReorganize {
		t.Errorf("Expected B to be Reorganize priority 2, got %s priority %d", b.Action, b.Priority)
	}
	if b.OnlineEligible {
		t.Error("Reorganize plans are never annotated online eligible")
	}

	if plan.Skipped.BelowThreshold != 1 {
		t.Errorf("Expected 1 record below threshold, got %d", plan.Skipped.BelowThreshold)
	}
}

func TestBuild_MinPageCountExcludesRegardlessOfFragmentation(t *testing.T) {
	records := []database.FragmentationRecord{
		record("tiny_rebuild", 99, 999),
		record("tiny_reorg", 10, 0),
		record("exact", 99, 1000),
	}

	plan := Build(records, database.Capabilities{}, exampleBudget())

	if got := queueNames(plan); !reflect.DeepEqual(got, []string{"exact"}) {
		t.Fatalf("Expected only 'exact' queued, got %v", got)
	}
	if plan.Skipped.BelowMinPages != 2 {
		t.Errorf("Expected 2 records below min pages, got %d", plan.Skipped.BelowMinPages)
	}
}

func TestBuild_EmptySnapshot(t *testing.T) {
	plan := Build(nil, database.Capabilities{}, exampleBudget())
	if plan.Queue == nil {
		t.Fatal("Expected non-nil empty queue")
	}
	if len(plan.Queue) != 0 {
		t.Errorf("Expected empty queue, got %d plans", len(plan.Queue))
	}
}

func TestBuild_Deterministic(t *testing.T) {
	records := []database.FragmentationRecord{
		record("x", 40, 2000),
		record("y", 40, 2000),
		record("z", 12, 9000),
		record("w", 40, 2000),
		record("v", 12, 9000),
	}

	first := Build(records, database.Capabilities{}, exampleBudget())

	reversed := make([]database.FragmentationRecord, len(records))
	for i, r := range records {
		reversed[len(records)-1-i] = r
	}
	second := Build(reversed, database.Capabilities{}, exampleBudget())

	if !reflect.DeepEqual(first.Queue, second.Queue) {
		t.Errorf("Expected identical queues for the same snapshot\nfirst:  %v\nsecond: %v",
			queueNames(first), queueNames(second))
	}

	expected := []string{"w", "x", "y", "v", "z"}
	if got := queueNames(first); !reflect.DeepEqual(got, expected) {
		t.Errorf("Expected %v, got %v", expected, got)
	}
}

func TestRunBudgetValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(b *RunBudget)
		wantErr bool
	}{
		{"defaults", func(b *RunBudget) {}, false},
		{"zero reorganize threshold", func(b *RunBudget) { b.ReorganizeThresholdPercent = 0 }, false},
		{"negative reorganize threshold", func(b *RunBudget) { b.ReorganizeThresholdPercent = -1 }, true},
		{"rebuild equals reorganize", func(b *RunBudget) { b.RebuildThresholdPercent = b.ReorganizeThresholdPercent }, true},
		{"rebuild below reorganize", func(b *RunBudget) { b.RebuildThresholdPercent = 1 }, true},
		{"rebuild above 100", func(b *RunBudget) { b.RebuildThresholdPercent = 101 }, true},
		{"zero duration", func(b *RunBudget) { b.MaxDurationMinutes = 0 }, true},
		{"negative min pages", func(b *RunBudget) { b.MinPageCount = -5 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := DefaultBudget()
			tt.mutate(&b)
			err := b.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected validation error")
				}
				if !errors.Is(err, ErrInvalidBudget) {
					t.Errorf("Expected ErrInvalidBudget, got %v", err)
				}
			} else if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestActionPlanRequest(t *testing.T) {
	key := database.StructureKey{Container: "public", Table: "orders", Structure: "idx"}

	tests := []struct {
		name   string
		plan   ActionPlan
		expect database.Mode
	}{
		{"online rebuild", ActionPlan{Key: key, Action: database.ActionRebuild, OnlineEligible: true}, database.ModeOnline},
		{"offline rebuild", ActionPlan{Key: key, Action: database.ActionRebuild}, database.ModeOffline},
		{"reorganize ignores eligibility", ActionPlan{Key: key, Action: database.ActionReorganize, OnlineEligible: true}, database.ModeOffline},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.plan.Request()
			if req.Mode != tt.expect {
				t.Errorf("Expected mode %s, got %s", tt.expect, req.Mode)
			}
			if req.Key != key || req.Action != tt.plan.Action {
				t.Errorf("Request does not carry plan key/action: %+v", req)
			}
		})
	}
}

func TestRunBudgetMaxDuration(t *testing.T) {
	b := RunBudget{MaxDurationMinutes: 1.5}
	if b.MaxDuration().Seconds() != 90 {
		t.Errorf("Expected 90s, got %v", b.MaxDuration())
	}
}
