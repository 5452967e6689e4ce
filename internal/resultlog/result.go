// Package resultlog records one durable row per maintenance attempt and
// aggregates a run into a RunSummary.
package resultlog

import (
	"time"

	"github.com/lockplane/idxmaint/internal/database"
)

const (
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

// ExecutionResult is one attempted maintenance command. Results are append-only.
type ExecutionResult struct {
	Key                 database.StructureKey `json:"key" yaml:"key"`
	Action              database.Action       `json:"action" yaml:"action"`
	Mode                database.Mode         `json:"mode" yaml:"mode"`
	FragmentationBefore float64               `json:"fragmentation_before" yaml:"fragmentation_before"`
	PageCount           int64                 `json:"page_count" yaml:"page_count"`
	DurationMillis      int64                 `json:"duration_millis" yaml:"duration_millis"`
	Succeeded           bool                  `json:"succeeded" yaml:"succeeded"`
	ErrorMessage        string                `json:"error_message,omitempty" yaml:"error_message,omitempty"`
	Timestamp           time.Time             `json:"timestamp" yaml:"timestamp"`
}

// Status returns the persisted status value
func (r ExecutionResult) Status() string {
	if r.Succeeded {
		return StatusSuccess
	}
	return StatusFailed
}

// IsStatisticsRefresh reports whether this is the follow-up attempt after a rebuild
func (r ExecutionResult) IsStatisticsRefresh() bool {
	return r.Action == database.ActionUpdateStatistics
}
