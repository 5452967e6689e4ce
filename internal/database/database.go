package database

import (
	"context"
	"fmt"
)

// DatabaseType identifies the engine behind a connection string
type DatabaseType string

const (
	DatabaseTypePostgres DatabaseType = "postgres"
	DatabaseTypeSQLite   DatabaseType = "sqlite"
	DatabaseTypeLibSQL   DatabaseType = "libsql"
)

// StructureKey identifies one index by container (schema), table and index name
type StructureKey struct {
	Container string `json:"container" yaml:"container"`
	Table     string `json:"table" yaml:"table"`
	Structure string `json:"structure" yaml:"structure"`
}

func (k StructureKey) String() string {
	return fmt.Sprintf("%s.%s.%s", k.Container, k.Table, k.Structure)
}

// FragmentationRecord is a point-in-time fragmentation reading for one index.
// Records are produced fresh by a StatsProvider on every run and never modified.
type FragmentationRecord struct {
	Key                  StructureKey `json:"key"`
	StructureID          int64        `json:"structure_id"`
	FragmentationPercent float64      `json:"fragmentation_percent"`
	PageCount            int64        `json:"page_count"`

	// ColumnTypes holds the declared type of every column the index references,
	// including covering columns.
	ColumnTypes []string `json:"column_types,omitempty"`
}

// Action is the maintenance operation applied to an index
type Action int

const (
	ActionNone Action = iota
	ActionReorganize
	ActionRebuild
	// ActionUpdateStatistics is only issued as a follow-up to a successful rebuild
	ActionUpdateStatistics
)

// String returns the action name as persisted in the maintenance log
func (a Action) String() string {
	switch a {
	case ActionNone:
		return "NONE"
	case ActionReorganize:
		return "REORGANIZE"
	case ActionRebuild:
		return "REBUILD"
	case ActionUpdateStatistics:
		return "UPDATE_STATISTICS"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(a))
	}
}

func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// ParseAction is the inverse of Action.String
func ParseAction(s string) (Action, error) {
	switch s {
	case "NONE":
		return ActionNone, nil
	case "REORGANIZE":
		return ActionReorganize, nil
	case "REBUILD":
		return ActionRebuild, nil
	case "UPDATE_STATISTICS":
		return ActionUpdateStatistics, nil
	default:
		return ActionNone, fmt.Errorf("unknown action %q", s)
	}
}

// Mode selects between the default and the lower-impact execution of a command
type Mode int

const (
	ModeOffline Mode = iota
	ModeOnline
)

func (m Mode) String() string {
	if m == ModeOnline {
		return "ONLINE"
	}
	return "OFFLINE"
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// CommandRequest is the typed instruction handed to a CommandExecutor.
// Rendering it into engine SQL is the executor's concern.
type CommandRequest struct {
	Key    StructureKey
	Action Action
	Mode   Mode
}

func (r CommandRequest) String() string {
	return fmt.Sprintf("%s %s (%s)", r.Action, r.Key, r.Mode)
}

// Capabilities describes what the target engine supports
type Capabilities struct {
	SupportsOnlineOps bool `json:"supports_online_ops"`
}

// StatsProvider yields current fragmentation telemetry for every index in a container.
// Providers may pre-filter on minPages; callers apply their own filter regardless.
type StatsProvider interface {
	LoadFragmentation(ctx context.Context, container string, minPages int64) ([]FragmentationRecord, error)
}

// CapabilityProvider reports engine capabilities
type CapabilityProvider interface {
	Capabilities(ctx context.Context) (Capabilities, error)
}

// CommandExecutor performs one maintenance command synchronously.
// Implementations must be safe to re-run manually; callers never retry.
type CommandExecutor interface {
	Execute(ctx context.Context, req CommandRequest) error
}

// ConnectionConfig holds what is needed to open a target database
type ConnectionConfig struct {
	DatabaseType DatabaseType
	URL          string
}
