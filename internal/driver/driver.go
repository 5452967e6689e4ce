// Package driver maps connection strings to engine implementations.
package driver

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lockplane/idxmaint/internal/database"
	"github.com/lockplane/idxmaint/internal/database/postgres"
	"github.com/lockplane/idxmaint/internal/database/sqlite"
)

// Engine is everything a maintenance run needs from a target database
type Engine interface {
	database.StatsProvider
	database.CapabilityProvider
	database.CommandExecutor

	// Name returns the database driver name
	Name() string

	// DefaultContainer is the container scanned when none is configured
	DefaultContainer() string

	// Render returns the SQL a request would execute, without running it
	Render(req database.CommandRequest) (string, error)
}

// PingTimeout bounds the connectivity check in Open
var PingTimeout = 5 * time.Second

// DetectDriver infers the database type from a connection string
func DetectDriver(connString string) database.DatabaseType {
	lower := strings.ToLower(strings.TrimSpace(connString))

	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return database.DatabaseTypePostgres
	case strings.HasPrefix(lower, "libsql://"):
		return database.DatabaseTypeLibSQL
	case lower == ":memory:", isSQLiteFilePath(lower):
		return database.DatabaseTypeSQLite
	}

	// key=value DSNs are postgres
	if strings.Contains(lower, "host=") || strings.Contains(lower, "dbname=") {
		return database.DatabaseTypePostgres
	}
	return database.DatabaseTypeSQLite
}

func isSQLiteFilePath(s string) bool {
	if strings.HasPrefix(s, "sqlite://") || strings.HasPrefix(s, "file:") {
		return true
	}
	return strings.HasSuffix(s, ".db") ||
		strings.HasSuffix(s, ".sqlite") ||
		strings.HasSuffix(s, ".sqlite3")
}

// SQLDriverName returns the database/sql driver name registered for a type.
// Accepts the aliases users tend to write in config files.
func SQLDriverName(driverType string) string {
	switch strings.ToLower(driverType) {
	case "postgres", "postgresql":
		return "postgres"
	case "libsql", "turso":
		return "libsql"
	case "sqlite", "sqlite3":
		return "sqlite"
	default:
		return driverType
	}
}

// dataSourceName strips the URL scheme modernc's sqlite driver does not understand
func dataSourceName(cfg database.ConnectionConfig) string {
	if cfg.DatabaseType == database.DatabaseTypeSQLite {
		if rest, ok := strings.CutPrefix(cfg.URL, "sqlite://"); ok {
			return rest
		}
	}
	return cfg.URL
}

// Open a connection to the database, and run a ping to test it
func Open(ctx context.Context, cfg database.ConnectionConfig) (*sql.DB, error) {
	if cfg.DatabaseType == "" {
		cfg.DatabaseType = DetectDriver(cfg.URL)
	}

	db, err := sql.Open(SQLDriverName(string(cfg.DatabaseType)), dataSourceName(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", cfg.DatabaseType, err)
	}

	if cfg.DatabaseType != database.DatabaseTypePostgres {
		// a single writer avoids SQLITE_BUSY between the sink and REINDEX
		db.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, PingTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// New creates the engine for a database type over an open connection
func New(databaseType database.DatabaseType, db *sql.DB) (Engine, error) {
	switch databaseType {
	case database.DatabaseTypePostgres:
		return postgres.NewEngine(db), nil
	case database.DatabaseTypeSQLite, database.DatabaseTypeLibSQL:
		return sqlite.NewEngine(db, string(databaseType)), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", databaseType)
	}
}
