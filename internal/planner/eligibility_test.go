package planner

import (
	"testing"

	"github.com/lockplane/idxmaint/internal/database"
)

func TestIsOnlineEligible(t *testing.T) {
	online := database.Capabilities{SupportsOnlineOps: true}
	offline := database.Capabilities{SupportsOnlineOps: false}

	enabled := exampleBudget()
	disabled := exampleBudget()
	disabled.OnlineModeEnabled = false

	tests := []struct {
		name     string
		columns  []string
		caps     database.Capabilities
		budget   RunBudget
		expected bool
	}{
		{"scalar columns, all flags on", []string{"integer", "character varying(64)"}, online, enabled, true},
		{"no column info, all flags on", nil, online, enabled, true},
		{"engine lacks online ops", []string{"integer"}, offline, enabled, false},
		{"online mode disabled", []string{"integer"}, online, disabled, false},
		{"bytea column", []string{"integer", "bytea"}, online, enabled, false},
		{"text column", []string{"text"}, online, enabled, false},
		{"xml column", []string{"xml"}, online, enabled, false},
		{"varbinary max column", []string{"varbinary(max)"}, online, enabled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := record("idx", 50, 5000, tt.columns...)
			if got := IsOnlineEligible(rec, tt.caps, tt.budget); got != tt.expected {
				t.Errorf("IsOnlineEligible = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBuild_EligibilityIsPerStructure(t *testing.T) {
	records := []database.FragmentationRecord{
		record("blob_idx", 60, 5000, "bytea"),
		record("int_idx", 50, 5000, "integer"),
	}

	plan := Build(records, database.Capabilities{SupportsOnlineOps: true}, exampleBudget())
	if len(plan.Queue) != 2 {
		t.Fatalf("Expected 2 plans, got %d", len(plan.Queue))
	}

	for _, p := range plan.Queue {
		switch p.Key.Structure {
		case "blob_idx":
			if p.OnlineEligible {
				t.Error("Index over a bytea column must never be online eligible")
			}
		case "int_idx":
			if !p.OnlineEligible {
				t.Error("Index over scalar columns should be online eligible")
			}
		}
	}
}
