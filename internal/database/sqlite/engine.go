// Package sqlite implements index maintenance for SQLite and libSQL.
//
// SQLite has no in-place index defragmentation and no online rebuild, so both
// REORGANIZE and REBUILD render to REINDEX and Capabilities never reports
// online support.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lockplane/idxmaint/internal/database"
)

// DefaultSchema is the attached database scanned when none is configured
const DefaultSchema = "main"

// Engine implements the maintenance collaborators for SQLite
type Engine struct {
	db   *sql.DB
	name string
}

// NewEngine creates an engine. name is reported by Name and is "sqlite" or "libsql".
func NewEngine(db *sql.DB, name string) *Engine {
	if name == "" {
		name = "sqlite"
	}
	return &Engine{db: db, name: name}
}

func (e *Engine) Name() string {
	return e.name
}

func (e *Engine) DefaultContainer() string {
	return DefaultSchema
}

// Capabilities always reports no online operations
func (e *Engine) Capabilities(context.Context) (database.Capabilities, error) {
	return database.Capabilities{SupportsOnlineOps: false}, nil
}

func quoteIdentifier(identifier string) string {
	return `"` + strings.ReplaceAll(identifier, `"`, `""`) + `"`
}

func qualified(schema, name string) string {
	return quoteIdentifier(schema) + "." + quoteIdentifier(name)
}

// Render translates a request into one SQLite statement
func (e *Engine) Render(req database.CommandRequest) (string, error) {
	if req.Mode == database.ModeOnline {
		return "", fmt.Errorf("%s does not support online %s", e.name, req.Action)
	}

	switch req.Action {
	case database.ActionReorganize, database.ActionRebuild:
		return "REINDEX " + qualified(req.Key.Container, req.Key.Structure), nil
	case database.ActionUpdateStatistics:
		return "ANALYZE " + qualified(req.Key.Container, req.Key.Table), nil
	default:
		return "", fmt.Errorf("no command for action %s", req.Action)
	}
}

// Execute runs one maintenance command
func (e *Engine) Execute(ctx context.Context, req database.CommandRequest) error {
	stmt, err := e.Render(req)
	if err != nil {
		return err
	}

	if _, err := e.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("%s failed: %w", req, err)
	}
	return nil
}

var (
	_ database.StatsProvider      = (*Engine)(nil)
	_ database.CapabilityProvider = (*Engine)(nil)
	_ database.CommandExecutor    = (*Engine)(nil)
)
