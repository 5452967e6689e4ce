package postgres

import (
	"database/sql"

	"github.com/lockplane/idxmaint/internal/database"
)

// DefaultSchema is scanned when no container is configured
const DefaultSchema = "public"

// Engine implements the maintenance collaborators for PostgreSQL
type Engine struct {
	db *sql.DB
}

// NewEngine creates a PostgreSQL engine over an open connection
func NewEngine(db *sql.DB) *Engine {
	return &Engine{db: db}
}

// Name returns the database driver name
func (e *Engine) Name() string {
	return "postgres"
}

func (e *Engine) DefaultContainer() string {
	return DefaultSchema
}

var (
	_ database.StatsProvider      = (*Engine)(nil)
	_ database.CapabilityProvider = (*Engine)(nil)
	_ database.CommandExecutor    = (*Engine)(nil)
)
