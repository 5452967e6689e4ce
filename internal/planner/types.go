package planner

import (
	"errors"
	"fmt"
	"time"

	"github.com/lockplane/idxmaint/internal/database"
)

// Plan is the ordered maintenance queue produced from one stats snapshot
type Plan struct {
	Queue   []ActionPlan `json:"queue"`
	Skipped SkipTally    `json:"skipped"`
}

// ActionPlan is one queued maintenance action for one index
type ActionPlan struct {
	Key                  database.StructureKey `json:"key"`
	StructureID          int64                 `json:"structure_id"`
	Action               database.Action       `json:"action"`
	Priority             int                   `json:"priority"`
	OnlineEligible       bool                  `json:"online_eligible"`
	FragmentationPercent float64               `json:"fragmentation_percent"`
	PageCount            int64                 `json:"page_count"`
}

// Mode returns the execution mode the plan will request
func (p ActionPlan) Mode() database.Mode {
	if p.Action == database.ActionRebuild && p.OnlineEligible {
		return database.ModeOnline
	}
	return database.ModeOffline
}

// Request builds the command request for this plan
func (p ActionPlan) Request() database.CommandRequest {
	return database.CommandRequest{
		Key:    p.Key,
		Action: p.Action,
		Mode:   p.Mode(),
	}
}

// SkipTally counts records that did not produce a plan
type SkipTally struct {
	BelowThreshold int `json:"below_threshold"`
	BelowMinPages  int `json:"below_min_pages"`
}

// RunBudget configures one maintenance run. It is read-only once a run starts.
type RunBudget struct {
	MaxDurationMinutes           float64 `toml:"max_duration_minutes" json:"max_duration_minutes"`
	MinPageCount                 int64   `toml:"min_page_count" json:"min_page_count"`
	ReorganizeThresholdPercent   float64 `toml:"reorganize_threshold_percent" json:"reorganize_threshold_percent"`
	RebuildThresholdPercent      float64 `toml:"rebuild_threshold_percent" json:"rebuild_threshold_percent"`
	OnlineModeEnabled            bool    `toml:"online_mode_enabled" json:"online_mode_enabled"`
	UpdateStatisticsAfterRebuild bool    `toml:"update_statistics_after_rebuild" json:"update_statistics_after_rebuild"`
}

const (
	DefaultMaxDurationMinutes         = 60
	DefaultMinPageCount               = 1000
	DefaultReorganizeThresholdPercent = 5.0
	DefaultRebuildThresholdPercent    = 30.0
)

// DefaultBudget returns the budget used when no configuration overrides it
func DefaultBudget() RunBudget {
	return RunBudget{
		MaxDurationMinutes:           DefaultMaxDurationMinutes,
		MinPageCount:                 DefaultMinPageCount,
		ReorganizeThresholdPercent:   DefaultReorganizeThresholdPercent,
		RebuildThresholdPercent:      DefaultRebuildThresholdPercent,
		OnlineModeEnabled:            true,
		UpdateStatisticsAfterRebuild: true,
	}
}

var ErrInvalidBudget = errors.New("invalid run budget")

// Validate checks the threshold ordering and limits
func (b RunBudget) Validate() error {
	if b.ReorganizeThresholdPercent < 0 {
		return fmt.Errorf("%w: reorganize threshold %.2f must be >= 0", ErrInvalidBudget, b.ReorganizeThresholdPercent)
	}
	if b.RebuildThresholdPercent <= b.ReorganizeThresholdPercent {
		return fmt.Errorf("%w: rebuild threshold %.2f must be greater than reorganize threshold %.2f",
			ErrInvalidBudget, b.RebuildThresholdPercent, b.ReorganizeThresholdPercent)
	}
	if b.RebuildThresholdPercent > 100 {
		return fmt.Errorf("%w: rebuild threshold %.2f must be <= 100", ErrInvalidBudget, b.RebuildThresholdPercent)
	}
	if b.MaxDurationMinutes <= 0 {
		return fmt.Errorf("%w: max duration %.2f minutes must be > 0", ErrInvalidBudget, b.MaxDurationMinutes)
	}
	if b.MinPageCount < 0 {
		return fmt.Errorf("%w: min page count %d must be >= 0", ErrInvalidBudget, b.MinPageCount)
	}
	return nil
}

// MaxDuration converts MaxDurationMinutes to a time.Duration
func (b RunBudget) MaxDuration() time.Duration {
	return time.Duration(b.MaxDurationMinutes * float64(time.Minute))
}
