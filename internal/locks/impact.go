package locks

import "github.com/lockplane/idxmaint/internal/database"

// LockImpact describes what a maintenance command does to concurrent traffic
type LockImpact struct {
	LockMode     LockMode    `json:"lock_mode"`
	BlocksReads  bool        `json:"blocks_reads"`
	BlocksWrites bool        `json:"blocks_writes"`
	Impact       ImpactLevel `json:"impact"`
	Explanation  string      `json:"explanation"`
}

// IsHighImpact returns true if the command blocks writes
func (li *LockImpact) IsHighImpact() bool {
	return li.Impact >= ImpactMedium
}

// DetectLockMode returns the table-level lock a request will take on the given engine
func DetectLockMode(engine database.DatabaseType, req database.CommandRequest) LockMode {
	switch engine {
	case database.DatabaseTypeSQLite, database.DatabaseTypeLibSQL:
		if req.Action == database.ActionNone {
			return LockAccessShare
		}
		return LockExclusive
	}

	switch req.Action {
	case database.ActionNone:
		return LockAccessShare
	case database.ActionRebuild:
		if req.Mode == database.ModeOnline {
			return LockShareUpdateExclusive
		}
		return LockShare
	case database.ActionReorganize, database.ActionUpdateStatistics:
		return LockShareUpdateExclusive
	default:
		// Unknown actions are assumed to be the worst case
		return LockAccessExclusive
	}
}

// ForRequest returns the lock impact of a request on the given engine
func ForRequest(engine database.DatabaseType, req database.CommandRequest) *LockImpact {
	mode := DetectLockMode(engine, req)
	return &LockImpact{
		LockMode:     mode,
		BlocksReads:  mode.BlocksReads(),
		BlocksWrites: mode.BlocksWrites(),
		Impact:       mode.ImpactLevel(),
		Explanation:  explainLockMode(engine, req, mode),
	}
}

func explainLockMode(engine database.DatabaseType, req database.CommandRequest, mode LockMode) string {
	if mode == LockExclusive {
		return "SQLite holds the database write lock for the whole command"
	}

	switch req.Action {
	case database.ActionRebuild:
		if req.Mode == database.ModeOnline {
			return "REINDEX CONCURRENTLY allows concurrent reads and writes"
		}
		return "REINDEX blocks writes to the table and reads that use the index"
	case database.ActionReorganize:
		return "VACUUM removes dead index entries without blocking reads or writes"
	case database.ActionUpdateStatistics:
		return "ANALYZE samples the table without blocking reads or writes"
	case database.ActionNone:
		return "No command is issued"
	default:
		return "Unknown command on " + string(engine) + ", assuming exclusive access"
	}
}
