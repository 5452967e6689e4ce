package locks

import "fmt"

// LockMode is the strongest table-level lock a maintenance command holds.
// Modes follow PostgreSQL naming; SQLite write transactions map to LockExclusive.
// See: https://www.postgresql.org/docs/current/explicit-locking.html
type LockMode int

const (
	// LockAccessShare - Acquired by SELECT queries
	LockAccessShare LockMode = iota

	// LockShareUpdateExclusive - Acquired by VACUUM, ANALYZE, REINDEX CONCURRENTLY
	// Allows concurrent reads and writes
	LockShareUpdateExclusive

	// LockShare - Acquired on the table by a plain REINDEX
	// Blocks writes but allows reads
	LockShare

	// LockExclusive - SQLite write transaction
	// Blocks other writers, readers continue in WAL mode
	LockExclusive

	// LockAccessExclusive - Conflicts with everything
	LockAccessExclusive
)

// String returns the human-readable name of the lock mode
func (l LockMode) String() string {
	switch l {
	case LockAccessShare:
		return "ACCESS SHARE"
	case LockShareUpdateExclusive:
		return "SHARE UPDATE EXCLUSIVE"
	case LockShare:
		return "SHARE"
	case LockExclusive:
		return "EXCLUSIVE"
	case LockAccessExclusive:
		return "ACCESS EXCLUSIVE"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", l)
	}
}

func (l LockMode) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// BlocksReads returns true if this lock mode blocks SELECT queries
func (l LockMode) BlocksReads() bool {
	return l == LockAccessExclusive
}

// BlocksWrites returns true if this lock mode blocks INSERT/UPDATE/DELETE
func (l LockMode) BlocksWrites() bool {
	return l >= LockShare
}

// ImpactLevel returns a simple categorization of the lock's impact
func (l LockMode) ImpactLevel() ImpactLevel {
	switch l {
	case LockAccessShare:
		return ImpactNone
	case LockShareUpdateExclusive:
		return ImpactLow
	case LockShare, LockExclusive:
		return ImpactMedium
	default:
		return ImpactHigh
	}
}

// ImpactLevel categorizes the severity of lock impact
type ImpactLevel int

const (
	ImpactNone   ImpactLevel = iota // No blocking
	ImpactLow                       // Concurrent reads and writes continue
	ImpactMedium                    // Blocks writes, allows reads
	ImpactHigh                      // Blocks everything
)

// String returns the human-readable impact level
func (i ImpactLevel) String() string {
	switch i {
	case ImpactNone:
		return "NONE"
	case ImpactLow:
		return "LOW"
	case ImpactMedium:
		return "MEDIUM"
	case ImpactHigh:
		return "HIGH"
	default:
		return "UNKNOWN"
	}
}

func (i ImpactLevel) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}
